package domain

import (
	"context"
	"time"
)

// MeetingStore persists meeting records. Implementations must keep the state
// machine honest: UpdateStatus refuses transitions the status enum forbids.
type MeetingStore interface {
	CreateMeeting(ctx context.Context, m *MeetingRecord) error
	GetMeeting(ctx context.Context, id string) (*MeetingRecord, error)
	ListMeetings(ctx context.Context, filter MeetingFilter) ([]MeetingRecord, error)
	// UpdateStatus moves a record to the given status. botID is applied when
	// non-nil (an empty string clears it; a successful invite may legitimately
	// carry no bot ID).
	UpdateStatus(ctx context.Context, id string, status MeetingStatus, botID *string) error
}

// CredentialStore persists per-user, per-provider OAuth credentials. Only the
// credential vault writes through this interface.
type CredentialStore interface {
	GetCredential(ctx context.Context, userID string, provider Provider) (*OAuthCredential, error)
	// UpsertCredential stores a full token set for the user and provider.
	UpsertCredential(ctx context.Context, cred *OAuthCredential) error
	// UpdateTokens replaces the access token and expiry, and the refresh token
	// when the provider issued a new one (empty keeps the stored one).
	UpdateTokens(ctx context.Context, userID string, provider Provider, accessToken, refreshToken string, expiresAt time.Time) error
	// ClearCredential blanks all token fields after a permanent refresh
	// rejection, forcing a new consent flow.
	ClearCredential(ctx context.Context, userID string, provider Provider) error
}

// EmployeeGraphStore reads the management graph: employees, their report
// edges, owning teams, and the linked user accounts.
type EmployeeGraphStore interface {
	EmployeeByID(ctx context.Context, id string) (*Employee, error)
	EmployeeByUserID(ctx context.Context, userID string) (*Employee, error)
	DirectReports(ctx context.Context, employeeID string) ([]Employee, error)
	UserByID(ctx context.Context, id string) (*User, error)
	TeamsOwnedBy(ctx context.Context, ownerUserIDs []string) ([]Team, error)
	EmployeesInTeams(ctx context.Context, teamIDs []string) ([]Employee, error)
}
