// Package notetaker invites a third-party recording bot into a scheduled
// meeting.
//
// The bot provider exposes a single create-bot endpoint. A successful
// response that carries no bot ID is not treated as an error: the meeting is
// still valuable without a recording, so the condition is logged and an empty
// ID is returned. Transport failures and non-2xx responses are hard errors;
// the invite is idempotent on the provider side, so transient failures are
// retried a bounded number of times.
package notetaker
