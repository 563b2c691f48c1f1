package domain

import (
	"errors"
	"fmt"
)

// ErrCalendarLinkMissing is returned by the Google adapter when the calendar
// event was created but the response carried no conference link. The event
// exists on the provider side; the orchestrator classifies this separately
// from an event-creation failure.
var ErrCalendarLinkMissing = errors.New("calendar event created without a meeting link")

// ValidationError reports missing or malformed input. No meeting record is
// written for requests that fail validation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// AuthRequiredError means no usable credential is on file for the user and
// provider: either nothing is stored, or the stored refresh token was
// permanently rejected and has been cleared. The caller must re-run the OAuth
// consent flow.
type AuthRequiredError struct {
	UserID   string
	Provider Provider
}

func (e *AuthRequiredError) Error() string {
	return fmt.Sprintf("%s authorization required for user %s", e.Provider, e.UserID)
}

// ProviderError is a failure reported by (or while talking to) a calendar or
// meeting provider. Status is the provider's HTTP status when one was
// received, zero for transport-level failures.
type ProviderError struct {
	Provider Provider
	Status   int
	Message  string
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s provider error (status %d): %s", e.Provider, e.Status, e.Message)
	}
	return fmt.Sprintf("%s provider error: %s", e.Provider, e.Message)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// BotInviteError is a hard failure from the recording-bot API: a non-2xx
// response (Status, Message set) or a transport failure (Status zero).
// A successful response without a bot ID is not an error; see the bot client.
type BotInviteError struct {
	Status  int
	Message string
	Err     error
}

func (e *BotInviteError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("bot invite failed (status %d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("bot invite failed: %s", e.Message)
}

func (e *BotInviteError) Unwrap() error { return e.Err }

// NotFoundError reports a missing entity referenced by a request.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// AccessDeniedError reports that the principal's visibility scope does not
// include the requested resource.
type AccessDeniedError struct {
	Resource string
	ID       string
}

func (e *AccessDeniedError) Error() string {
	return fmt.Sprintf("access to %s %s denied", e.Resource, e.ID)
}

// HTTPStatus maps a domain error onto the HTTP status the API surfaces:
// 400 for validation, 401 for missing/revoked credentials, 403/404 for scope
// and lookup failures, the provider's own status where one is available, and
// 500 otherwise.
func HTTPStatus(err error) int {
	var (
		validation *ValidationError
		auth       *AuthRequiredError
		provider   *ProviderError
		bot        *BotInviteError
		notFound   *NotFoundError
		denied     *AccessDeniedError
	)
	switch {
	case errors.As(err, &validation):
		return 400
	case errors.As(err, &auth):
		return 401
	case errors.As(err, &denied):
		return 403
	case errors.As(err, &notFound):
		return 404
	case errors.As(err, &provider):
		if provider.Status != 0 {
			return provider.Status
		}
		return 500
	case errors.As(err, &bot):
		if bot.Status != 0 {
			return bot.Status
		}
		return 500
	}
	return 500
}
