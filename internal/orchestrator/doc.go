// Package orchestrator coordinates meeting scheduling across the credential
// vault, the provider adapters, the recording-bot client, and the meeting
// store.
//
// Scheduling is one linear pipeline per request: validate, resolve the
// participants, obtain a fresh provider token, create the meeting, persist
// the record, invite the bot. There is no distributed transaction across
// these systems; every failure past the validation step is classified into a
// terminal error status and persisted so the attempt stays auditable. No
// compensating action is taken against a provider when a later step fails,
// an operator-visible warning is logged instead.
//
// Read paths apply the hierarchy resolver's scope before touching the store,
// so a principal can only list and fetch meetings their role permits.
package orchestrator
