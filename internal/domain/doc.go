// Package domain holds the shared data model of the meeting scheduling core:
// principals, providers, the meeting lifecycle state machine, persistent
// records, and the typed error taxonomy that every other package dispatches on.
//
// The package has no dependencies on any transport or storage technology so
// that adapters, stores and the orchestrator can all agree on one vocabulary.
package domain
