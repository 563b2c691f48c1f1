// Package logging provides structured logging helpers built on log/slog.
//
// It defines the canonical attribute keys used across the codebase and small
// constructors for common attributes, so log output stays consistent and
// greppable. User identifiers are anonymized before logging and tokens are
// never logged beyond a length indicator.
package logging
