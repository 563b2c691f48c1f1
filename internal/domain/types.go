package domain

import (
	"fmt"
	"time"
)

// Role is the authorization role carried by a Principal.
type Role string

const (
	RoleAdmin   Role = "ADMIN"
	RoleManager Role = "MANAGER"
	RoleUser    Role = "USER"
)

// Principal is the authenticated actor making a request. It is immutable for
// the duration of a request and is derived from the session by the HTTP layer.
type Principal struct {
	ID             string
	Role           Role
	OrganizationID string
}

// Provider identifies an external OAuth-backed calendar/meeting service.
type Provider string

const (
	ProviderGoogle Provider = "GOOGLE"
	ProviderZoom   Provider = "ZOOM"
)

// ParsePlatform maps the user-facing platform names from the scheduling API
// onto a Provider. Unknown values are a validation error.
func ParsePlatform(platform string) (Provider, error) {
	switch platform {
	case "Google Meet":
		return ProviderGoogle, nil
	case "Zoom":
		return ProviderZoom, nil
	default:
		return "", &ValidationError{Field: "platform", Reason: fmt.Sprintf("unsupported platform %q", platform)}
	}
}

// PlatformName returns the user-facing name for a provider, the inverse of
// ParsePlatform.
func (p Provider) PlatformName() string {
	switch p {
	case ProviderGoogle:
		return "Google Meet"
	case ProviderZoom:
		return "Zoom"
	}
	return string(p)
}

// OAuthCredential stores the per-user, per-provider OAuth token set. It is
// owned 1:1 by the user entity and mutated only by the credential vault.
// All token fields are cleared when a refresh is permanently rejected.
type OAuthCredential struct {
	ID           string    `gorm:"primaryKey" json:"id"`
	UserID       string    `gorm:"uniqueIndex:idx_cred_user_provider;not null" json:"user_id"`
	Provider     Provider  `gorm:"uniqueIndex:idx_cred_user_provider;type:varchar(16);not null" json:"provider"`
	AccessToken  string    `json:"-"`
	RefreshToken string    `json:"-"`
	ExpiresAt    time.Time `json:"expires_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// MeetingType distinguishes the kind of 1:1 being scheduled (e.g. "ONE_ON_ONE",
// "PERFORMANCE_REVIEW"). It is carried through opaquely.
type MeetingType = string

// MeetingSpec is the ephemeral input to a scheduling request. Times are UTC
// instants; TimeZone is the IANA zone the meeting should be rendered in for
// the provider.
type MeetingSpec struct {
	EmployeeID  string
	ManagerID   string
	Platform    Provider
	Title       string
	Description string
	StartTime   time.Time
	EndTime     time.Time
	TimeZone    string
	MeetingType MeetingType
}

// MeetingRequest is the provider-facing shape of a meeting, produced by the
// orchestrator after display-data resolution and timezone conversion.
// StartLocal/EndLocal are wall-clock strings in TimeZone, not UTC instants.
type MeetingRequest struct {
	Title       string
	Description string
	Start       time.Time
	End         time.Time
	StartLocal  string
	EndLocal    string
	TimeZone    string
	Attendees   []string
}

// CreatedMeeting is what an adapter returns once the provider accepted the
// meeting: a joinable URL and the provider's own identifier.
type CreatedMeeting struct {
	JoinURL    string
	ExternalID string
}

// MeetingRecord is the durable row representing one scheduling attempt and its
// lifecycle state. It is created by the orchestrator and never deleted here.
type MeetingRecord struct {
	ID                string        `gorm:"primaryKey" json:"id"`
	ManagerID         string        `gorm:"index;not null" json:"manager_id"`
	EmployeeID        string        `gorm:"index;not null" json:"employee_id"`
	Platform          Provider      `gorm:"type:varchar(16)" json:"platform"`
	MeetingURL        string        `json:"meeting_url"`
	ExternalMeetingID string        `json:"external_meeting_id"`
	BotID             string        `json:"bot_id"`
	Status            MeetingStatus `gorm:"type:varchar(32);index;not null" json:"status"`
	ScheduledTime     time.Time     `json:"scheduled_time"`
	MeetingType       MeetingType   `gorm:"type:varchar(32)" json:"meeting_type"`
	CreatedAt         time.Time     `json:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at"`
}

// User is the account entity. Only the fields the scheduling core reads are
// modeled; the rest of the account record belongs to the outer application.
type User struct {
	ID             string `gorm:"primaryKey" json:"id"`
	Email          string `gorm:"uniqueIndex" json:"email"`
	Name           string `json:"name"`
	Role           Role   `gorm:"type:varchar(16)" json:"role"`
	OrganizationID string `gorm:"index" json:"organization_id"`
}

// Employee is a node in the management graph. ManagerID is self-referential
// (another Employee.ID); UserID links the employee to a login, when one exists.
type Employee struct {
	ID        string `gorm:"primaryKey" json:"id"`
	UserID    string `gorm:"index" json:"user_id"`
	ManagerID string `gorm:"index" json:"manager_id"`
	TeamID    string `gorm:"index" json:"team_id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
}

// Team groups employees under an owning manager user.
type Team struct {
	ID           string `gorm:"primaryKey" json:"id"`
	OwnerUserID  string `gorm:"index" json:"owner_user_id"`
	DepartmentID string `gorm:"index" json:"department_id"`
	Name         string `json:"name"`
}

// Scope is the visibility set computed for a principal by the hierarchy
// resolver. All short-circuits every filter (admin view).
type Scope struct {
	All            bool
	ManagerUserIDs []string
	TeamIDs        []string
	EmployeeIDs    []string
}

// MeetingFilter restricts a meeting query to rows visible under a Scope. A
// meeting is visible when either side of it falls in scope: its manager field
// matches one of ManagerUserIDs, or its employee is one of EmployeeIDs.
type MeetingFilter struct {
	All            bool
	ManagerUserIDs []string
	EmployeeIDs    []string
}

// Filter derives the meeting filter from a scope.
func (s Scope) Filter() MeetingFilter {
	return MeetingFilter{
		All:            s.All,
		ManagerUserIDs: s.ManagerUserIDs,
		EmployeeIDs:    s.EmployeeIDs,
	}
}

// Allows reports whether a concrete meeting row is visible under the filter.
func (f MeetingFilter) Allows(m *MeetingRecord) bool {
	if f.All {
		return true
	}
	for _, id := range f.ManagerUserIDs {
		if m.ManagerID == id {
			return true
		}
	}
	for _, id := range f.EmployeeIDs {
		if m.EmployeeID == id {
			return true
		}
	}
	return false
}
