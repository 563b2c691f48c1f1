package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/perfpulse/meetsched/internal/domain"
	"github.com/perfpulse/meetsched/internal/logging"
	"github.com/perfpulse/meetsched/internal/orchestrator"
)

// Scheduler is the orchestrator surface the handlers depend on.
type Scheduler interface {
	Schedule(ctx context.Context, principal domain.Principal, spec domain.MeetingSpec) (*domain.MeetingRecord, error)
	Record(ctx context.Context, principal domain.Principal, req orchestrator.RecordRequest) (*domain.MeetingRecord, error)
	List(ctx context.Context, principal domain.Principal) ([]domain.MeetingRecord, error)
	Get(ctx context.Context, principal domain.Principal, id string) (*domain.MeetingRecord, error)
}

// CredentialFlow is the vault surface used by the OAuth consent endpoints.
type CredentialFlow interface {
	AuthCodeURL(provider domain.Provider, state string) (string, error)
	Exchange(ctx context.Context, userID string, provider domain.Provider, code string) error
}

// Handler holds the HTTP handlers for the meeting and OAuth endpoints.
type Handler struct {
	scheduler Scheduler
	vault     CredentialFlow
	logger    *slog.Logger
}

// NewHandler creates the handler set. logger may be nil.
func NewHandler(scheduler Scheduler, vault CredentialFlow, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{scheduler: scheduler, vault: vault, logger: logger}
}

// scheduleRequest is the body of POST /api/v1/meetings/schedule.
type scheduleRequest struct {
	EmployeeID    string `json:"employeeId"`
	ManagerID     string `json:"managerId"`
	Platform      string `json:"platform"`
	Title         string `json:"title"`
	Description   string `json:"description"`
	StartDateTime string `json:"startDateTime"`
	EndDateTime   string `json:"endDateTime"`
	TimeZone      string `json:"timeZone"`
	MeetingType   string `json:"meetingType"`
}

// recordRequest is the body of POST /api/v1/meetings/record. Platform is
// optional: the meeting already exists at its URL.
type recordRequest struct {
	EmployeeID    string `json:"employeeId"`
	ManagerID     string `json:"managerId"`
	Platform      string `json:"platform"`
	MeetingURL    string `json:"meetingUrl"`
	StartDateTime string `json:"startDateTime"`
	MeetingType   string `json:"meetingType"`
}

// meetingResponse is the body returned by the scheduling endpoints.
type meetingResponse struct {
	MeetingID         string `json:"meetingId"`
	MeetingURL        string `json:"meetingUrl"`
	Platform          string `json:"platform,omitempty"`
	ExternalMeetingID string `json:"externalMeetingId,omitempty"`
	MeetingBaasID     string `json:"meetingBaasId,omitempty"`
	Status            string `json:"status"`
}

func newMeetingResponse(record *domain.MeetingRecord) meetingResponse {
	return meetingResponse{
		MeetingID:         record.ID,
		MeetingURL:        record.MeetingURL,
		Platform:          record.Platform.PlatformName(),
		ExternalMeetingID: record.ExternalMeetingID,
		MeetingBaasID:     record.BotID,
		Status:            string(record.Status),
	}
}

// ScheduleMeeting creates a meeting on the requested platform and invites the
// recording bot.
func (h *Handler) ScheduleMeeting(c *gin.Context) {
	principal := PrincipalFrom(c)

	var body scheduleRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		h.renderError(c, &domain.ValidationError{Reason: "malformed request body"})
		return
	}

	platform, err := domain.ParsePlatform(body.Platform)
	if err != nil {
		h.renderError(c, err)
		return
	}
	start, err := parseInstant("startDateTime", body.StartDateTime)
	if err != nil {
		h.renderError(c, err)
		return
	}
	end, err := parseInstant("endDateTime", body.EndDateTime)
	if err != nil {
		h.renderError(c, err)
		return
	}

	managerID := body.ManagerID
	if managerID == "" {
		managerID = principal.ID
	}

	record, err := h.scheduler.Schedule(c.Request.Context(), principal, domain.MeetingSpec{
		EmployeeID:  body.EmployeeID,
		ManagerID:   managerID,
		Platform:    platform,
		Title:       body.Title,
		Description: body.Description,
		StartTime:   start,
		EndTime:     end,
		TimeZone:    body.TimeZone,
		MeetingType: body.MeetingType,
	})
	if err != nil {
		h.renderError(c, err)
		return
	}

	c.JSON(http.StatusCreated, newMeetingResponse(record))
}

// RecordMeeting registers a meeting that already has a URL and invites the
// recording bot into it. A failed invite does not fail the request.
func (h *Handler) RecordMeeting(c *gin.Context) {
	principal := PrincipalFrom(c)

	var body recordRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		h.renderError(c, &domain.ValidationError{Reason: "malformed request body"})
		return
	}

	var platform domain.Provider
	var err error
	if body.Platform != "" {
		if platform, err = domain.ParsePlatform(body.Platform); err != nil {
			h.renderError(c, err)
			return
		}
	}
	var start time.Time
	if body.StartDateTime != "" {
		if start, err = parseInstant("startDateTime", body.StartDateTime); err != nil {
			h.renderError(c, err)
			return
		}
	}

	managerID := body.ManagerID
	if managerID == "" {
		managerID = principal.ID
	}

	record, err := h.scheduler.Record(c.Request.Context(), principal, orchestrator.RecordRequest{
		EmployeeID:  body.EmployeeID,
		ManagerID:   managerID,
		Platform:    platform,
		MeetingURL:  body.MeetingURL,
		StartTime:   start,
		MeetingType: body.MeetingType,
	})
	if err != nil {
		h.renderError(c, err)
		return
	}

	c.JSON(http.StatusCreated, newMeetingResponse(record))
}

// ListMeetings returns the meetings visible to the principal.
func (h *Handler) ListMeetings(c *gin.Context) {
	meetings, err := h.scheduler.List(c.Request.Context(), PrincipalFrom(c))
	if err != nil {
		h.renderError(c, err)
		return
	}
	if meetings == nil {
		meetings = []domain.MeetingRecord{}
	}
	c.JSON(http.StatusOK, gin.H{"meetings": meetings})
}

// GetMeeting returns one meeting if the principal's scope allows it.
func (h *Handler) GetMeeting(c *gin.Context) {
	meeting, err := h.scheduler.Get(c.Request.Context(), PrincipalFrom(c), c.Param("id"))
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"meeting": meeting})
}

// AuthURL hands the caller the provider's consent page URL so the frontend
// can start the OAuth flow. The principal's ID travels in the OAuth state so
// the callback can attribute the returned code.
func (h *Handler) AuthURL(provider domain.Provider) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal := PrincipalFrom(c)
		url, err := h.vault.AuthCodeURL(provider, principal.ID)
		if err != nil {
			h.renderError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"authUrl": url})
	}
}

// AuthCallback exchanges the provider's authorization code and stores the
// resulting credential.
func (h *Handler) AuthCallback(provider domain.Provider) gin.HandlerFunc {
	return func(c *gin.Context) {
		code := c.Query("code")
		userID := c.Query("state")
		if code == "" || userID == "" {
			h.renderError(c, &domain.ValidationError{Field: "code", Reason: "missing code or state"})
			return
		}
		if err := h.vault.Exchange(c.Request.Context(), userID, provider, code); err != nil {
			h.renderError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "connected", "provider": provider.PlatformName()})
	}
}

// renderError maps a domain error onto its HTTP status and a structured JSON
// body.
func (h *Handler) renderError(c *gin.Context, err error) {
	status := domain.HTTPStatus(err)
	if status >= 500 {
		h.logger.Error("request failed",
			logging.Operation(c.FullPath()),
			logging.Err(err),
		)
		// Internal details stay in the logs.
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// parseInstant parses an RFC 3339 timestamp.
func parseInstant(field, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, &domain.ValidationError{Field: field, Reason: "required"}
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, &domain.ValidationError{Field: field, Reason: "must be an RFC 3339 timestamp"}
	}
	return t, nil
}
