package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/perfpulse/meetsched/internal/domain"
	"github.com/perfpulse/meetsched/internal/instrumentation"
	"github.com/perfpulse/meetsched/internal/logging"
)

// localTimeLayout is the wall-clock format providers expect alongside an
// IANA zone name.
const localTimeLayout = "2006-01-02T15:04:05"

// Adapter creates a meeting on one provider and returns its join URL and
// external ID.
type Adapter interface {
	CreateMeeting(ctx context.Context, accessToken string, req domain.MeetingRequest) (domain.CreatedMeeting, error)
}

// TokenProvider hands out valid access tokens, refreshing as needed.
type TokenProvider interface {
	GetValidToken(ctx context.Context, userID string, provider domain.Provider) (string, error)
}

// BotInviter asks the recording bot to join a meeting URL.
type BotInviter interface {
	Invite(ctx context.Context, meetingURL, botName, entryMessage string) (string, error)
}

// ScopeResolver computes the visibility scope for a principal.
type ScopeResolver interface {
	Scope(ctx context.Context, principal domain.Principal) (domain.Scope, error)
}

// Orchestrator is the top-level meeting scheduling coordinator.
type Orchestrator struct {
	meetings domain.MeetingStore
	graph    domain.EmployeeGraphStore
	tokens   TokenProvider
	adapters map[domain.Provider]Adapter
	bot      BotInviter
	resolver ScopeResolver
	botName  string
	logger   *slog.Logger
	metrics  *instrumentation.Metrics
	now      func() time.Time
}

// Config carries the orchestrator's collaborators.
type Config struct {
	Meetings domain.MeetingStore
	Graph    domain.EmployeeGraphStore
	Tokens   TokenProvider
	Google   Adapter
	Zoom     Adapter
	Bot      BotInviter
	Resolver ScopeResolver
	// BotName is the display name the recording bot joins meetings with.
	BotName string
	Logger  *slog.Logger
	Metrics *instrumentation.Metrics
}

// New creates an orchestrator. Logger and Metrics may be nil.
func New(cfg Config) *Orchestrator {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = &instrumentation.Metrics{}
	}
	botName := cfg.BotName
	if botName == "" {
		botName = "Notetaker"
	}
	return &Orchestrator{
		meetings: cfg.Meetings,
		graph:    cfg.Graph,
		tokens:   cfg.Tokens,
		adapters: map[domain.Provider]Adapter{
			domain.ProviderGoogle: cfg.Google,
			domain.ProviderZoom:   cfg.Zoom,
		},
		bot:      cfg.Bot,
		resolver: cfg.Resolver,
		botName:  botName,
		logger:   logger,
		metrics:  metrics,
		now:      time.Now,
	}
}

// Schedule creates a meeting on the requested platform for a manager/employee
// pair, persists the resulting record, and invites the recording bot.
//
// Validation and participant-resolution failures leave no record behind. Once
// the pipeline reaches the provider step, every outcome is persisted: the
// success path as PENDING_BOT_INVITE then BOT_INVITED, failures as the
// matching terminal error status. A failed bot invite on this path is fatal
// and surfaces to the caller.
func (o *Orchestrator) Schedule(ctx context.Context, principal domain.Principal, spec domain.MeetingSpec) (*domain.MeetingRecord, error) {
	if err := validateSpec(spec); err != nil {
		return nil, err
	}

	req, err := o.resolveRequest(ctx, spec)
	if err != nil {
		return nil, err
	}

	log := o.logger.With(
		logging.Operation("schedule"),
		logging.ProviderAttr(string(spec.Platform)),
		logging.UserHash(spec.ManagerID),
	)

	adapter := o.adapters[spec.Platform]

	token, err := o.tokens.GetValidToken(ctx, spec.ManagerID, spec.Platform)
	if err != nil {
		return nil, o.failSchedule(ctx, log, spec, domain.CreatedMeeting{}, err)
	}

	created, err := adapter.CreateMeeting(ctx, token, req)
	if err != nil {
		return nil, o.failSchedule(ctx, log, spec, created, err)
	}

	record := o.newRecord(spec, created, domain.StatusPendingBotInvite)
	if err := o.meetings.CreateMeeting(ctx, record); err != nil {
		// The provider-side meeting exists but we lost the row. Nothing is
		// rolled back; an operator has to reconcile the dangling event.
		log.Warn("meeting created at provider but record insert failed, manual reconciliation needed",
			slog.String("external_meeting_id", created.ExternalID),
			logging.Err(err),
		)
		o.recordAttempt(ctx, spec, domain.StatusErrorScheduling)
		return nil, fmt.Errorf("failed to persist meeting record: %w", err)
	}

	botID, err := o.bot.Invite(ctx, created.JoinURL, o.botName, o.entryMessage(req))
	if err != nil {
		o.persistStatus(ctx, log, record, domain.StatusErrorBotInvite, nil)
		o.recordAttempt(ctx, spec, domain.StatusErrorBotInvite)
		return nil, err
	}

	o.persistStatus(ctx, log, record, domain.StatusBotInvited, &botID)
	o.recordAttempt(ctx, spec, domain.StatusBotInvited)
	log.Info("meeting scheduled",
		logging.MeetingID(record.ID),
		logging.Status(string(record.Status)),
	)
	return record, nil
}

// RecordRequest is the input to the immediate-invite path: the meeting
// already exists at the provider and only the bot invite and the record are
// needed.
type RecordRequest struct {
	EmployeeID  string
	ManagerID   string
	Platform    domain.Provider
	MeetingURL  string
	StartTime   time.Time
	MeetingType domain.MeetingType
}

// Record persists a meeting that already has a joinable URL and invites the
// recording bot into it.
//
// Unlike Schedule, a failed bot invite here is soft: the failure is persisted
// as ERROR_BOT_INVITE for the audit trail and logged, but the record is still
// returned without an error. A meeting is worth keeping even when no bot
// could join it.
func (o *Orchestrator) Record(ctx context.Context, principal domain.Principal, req RecordRequest) (*domain.MeetingRecord, error) {
	if err := validateRecordRequest(req); err != nil {
		return nil, err
	}
	if req.Platform == "" {
		req.Platform = platformFromURL(req.MeetingURL)
	}
	if _, err := o.graph.EmployeeByID(ctx, req.EmployeeID); err != nil {
		return nil, err
	}
	manager, err := o.graph.UserByID(ctx, req.ManagerID)
	if err != nil {
		return nil, err
	}

	log := o.logger.With(
		logging.Operation("record"),
		logging.ProviderAttr(string(req.Platform)),
		logging.UserHash(req.ManagerID),
	)

	record := &domain.MeetingRecord{
		ID:            uuid.NewString(),
		ManagerID:     req.ManagerID,
		EmployeeID:    req.EmployeeID,
		Platform:      req.Platform,
		MeetingURL:    req.MeetingURL,
		Status:        domain.StatusPendingBotInvite,
		ScheduledTime: req.StartTime,
		MeetingType:   req.MeetingType,
	}
	if err := o.meetings.CreateMeeting(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to persist meeting record: %w", err)
	}

	entryMessage := fmt.Sprintf("Hi, I'm here to take notes for %s's meeting.", manager.Name)
	botID, err := o.bot.Invite(ctx, req.MeetingURL, o.botName, entryMessage)
	if err != nil {
		o.persistStatus(ctx, log, record, domain.StatusErrorBotInvite, nil)
		o.metrics.RecordSchedulingAttempt(ctx, string(req.Platform), string(domain.StatusErrorBotInvite))
		log.Warn("bot invite failed for recorded meeting",
			logging.MeetingID(record.ID),
			logging.Err(err),
		)
		return record, nil
	}

	o.persistStatus(ctx, log, record, domain.StatusBotInvited, &botID)
	o.metrics.RecordSchedulingAttempt(ctx, string(req.Platform), string(domain.StatusBotInvited))
	return record, nil
}

// List returns the meetings visible to the principal.
func (o *Orchestrator) List(ctx context.Context, principal domain.Principal) ([]domain.MeetingRecord, error) {
	scope, err := o.resolver.Scope(ctx, principal)
	if err != nil {
		return nil, err
	}
	return o.meetings.ListMeetings(ctx, scope.Filter())
}

// Get returns one meeting if the principal's scope allows it.
func (o *Orchestrator) Get(ctx context.Context, principal domain.Principal, id string) (*domain.MeetingRecord, error) {
	meeting, err := o.meetings.GetMeeting(ctx, id)
	if err != nil {
		return nil, err
	}
	scope, err := o.resolver.Scope(ctx, principal)
	if err != nil {
		return nil, err
	}
	if !scope.Filter().Allows(meeting) {
		return nil, &domain.AccessDeniedError{Resource: "meeting", ID: id}
	}
	return meeting, nil
}

// resolveRequest turns a validated spec into the provider-facing request:
// participant display data resolved and UTC instants rendered as wall-clock
// strings in the requested zone.
func (o *Orchestrator) resolveRequest(ctx context.Context, spec domain.MeetingSpec) (domain.MeetingRequest, error) {
	employee, err := o.graph.EmployeeByID(ctx, spec.EmployeeID)
	if err != nil {
		return domain.MeetingRequest{}, err
	}
	manager, err := o.graph.UserByID(ctx, spec.ManagerID)
	if err != nil {
		return domain.MeetingRequest{}, err
	}

	loc, err := time.LoadLocation(spec.TimeZone)
	if err != nil {
		return domain.MeetingRequest{}, &domain.ValidationError{
			Field:  "timeZone",
			Reason: fmt.Sprintf("unknown IANA zone %q", spec.TimeZone),
		}
	}

	title := spec.Title
	if title == "" {
		title = fmt.Sprintf("1:1: %s & %s", manager.Name, employee.Name)
	}

	var attendees []string
	if manager.Email != "" {
		attendees = append(attendees, manager.Email)
	}
	if employee.Email != "" {
		attendees = append(attendees, employee.Email)
	}

	return domain.MeetingRequest{
		Title:       title,
		Description: spec.Description,
		Start:       spec.StartTime,
		End:         spec.EndTime,
		StartLocal:  spec.StartTime.In(loc).Format(localTimeLayout),
		EndLocal:    spec.EndTime.In(loc).Format(localTimeLayout),
		TimeZone:    spec.TimeZone,
		Attendees:   attendees,
	}, nil
}

// failSchedule persists a terminal error record for a scheduling attempt that
// made it past validation, then returns the original error.
func (o *Orchestrator) failSchedule(ctx context.Context, log *slog.Logger, spec domain.MeetingSpec, created domain.CreatedMeeting, cause error) error {
	status := classify(cause)
	record := o.newRecord(spec, created, status)
	if err := o.meetings.CreateMeeting(ctx, record); err != nil {
		log.Error("failed to persist failed scheduling attempt",
			logging.Status(string(status)),
			logging.Err(err),
		)
	}
	o.recordAttempt(ctx, spec, status)
	log.Warn("scheduling failed",
		logging.MeetingID(record.ID),
		logging.Status(string(status)),
		logging.Err(cause),
	)
	return cause
}

// recordAttempt counts one scheduling attempt, labeled with the anonymized
// manager when detailed metric labels are enabled.
func (o *Orchestrator) recordAttempt(ctx context.Context, spec domain.MeetingSpec, status domain.MeetingStatus) {
	o.metrics.RecordSchedulingAttemptForUser(ctx, string(spec.Platform), string(status), logging.AnonymizeUser(spec.ManagerID))
}

// persistStatus moves a record to the given status and mirrors the change on
// the in-memory copy. A storage failure here is logged, not surfaced: the
// scheduling outcome itself is already decided.
func (o *Orchestrator) persistStatus(ctx context.Context, log *slog.Logger, record *domain.MeetingRecord, status domain.MeetingStatus, botID *string) {
	if err := o.meetings.UpdateStatus(ctx, record.ID, status, botID); err != nil {
		log.Error("failed to update meeting status",
			logging.MeetingID(record.ID),
			logging.Status(string(status)),
			logging.Err(err),
		)
		return
	}
	record.Status = status
	if botID != nil {
		record.BotID = *botID
	}
}

// newRecord builds the durable row for one scheduling attempt.
func (o *Orchestrator) newRecord(spec domain.MeetingSpec, created domain.CreatedMeeting, status domain.MeetingStatus) *domain.MeetingRecord {
	return &domain.MeetingRecord{
		ID:                uuid.NewString(),
		ManagerID:         spec.ManagerID,
		EmployeeID:        spec.EmployeeID,
		Platform:          spec.Platform,
		MeetingURL:        created.JoinURL,
		ExternalMeetingID: created.ExternalID,
		Status:            status,
		ScheduledTime:     spec.StartTime,
		MeetingType:       spec.MeetingType,
	}
}

// entryMessage is what the bot says when it joins.
func (o *Orchestrator) entryMessage(req domain.MeetingRequest) string {
	return fmt.Sprintf("Hi, I'm here to take notes for %q.", req.Title)
}

// classify maps a pipeline failure onto the terminal status persisted for the
// attempt.
func classify(err error) domain.MeetingStatus {
	var (
		authErr     *domain.AuthRequiredError
		providerErr *domain.ProviderError
		botErr      *domain.BotInviteError
	)
	switch {
	case errors.As(err, &authErr):
		return domain.StatusErrorPlatformAuth
	case errors.Is(err, domain.ErrCalendarLinkMissing):
		return domain.StatusErrorCalendarLink
	case errors.As(err, &providerErr):
		if providerErr.Status == 401 {
			return domain.StatusErrorPlatformAuth
		}
		switch providerErr.Provider {
		case domain.ProviderZoom:
			return domain.StatusErrorZoomMeeting
		case domain.ProviderGoogle:
			return domain.StatusErrorCalendarEvent
		}
		return domain.StatusErrorScheduling
	case errors.As(err, &botErr):
		return domain.StatusErrorBotInvite
	}
	return domain.StatusErrorScheduling
}

// validateSpec checks the required scheduling fields. Failures here never
// leave a record behind.
func validateSpec(spec domain.MeetingSpec) error {
	switch {
	case spec.EmployeeID == "":
		return &domain.ValidationError{Field: "employeeId", Reason: "required"}
	case spec.ManagerID == "":
		return &domain.ValidationError{Field: "managerId", Reason: "required"}
	case spec.Platform != domain.ProviderGoogle && spec.Platform != domain.ProviderZoom:
		return &domain.ValidationError{Field: "platform", Reason: fmt.Sprintf("unsupported platform %q", spec.Platform)}
	case spec.StartTime.IsZero():
		return &domain.ValidationError{Field: "startDateTime", Reason: "required"}
	case spec.EndTime.IsZero():
		return &domain.ValidationError{Field: "endDateTime", Reason: "required"}
	case !spec.EndTime.After(spec.StartTime):
		return &domain.ValidationError{Field: "endDateTime", Reason: "meeting end must be after its start"}
	case spec.TimeZone == "":
		return &domain.ValidationError{Field: "timeZone", Reason: "required"}
	}
	return nil
}

// validateRecordRequest checks the immediate-invite inputs. The platform is
// optional here: the meeting already exists, so no provider has to be picked.
func validateRecordRequest(req RecordRequest) error {
	switch {
	case req.EmployeeID == "":
		return &domain.ValidationError{Field: "employeeId", Reason: "required"}
	case req.ManagerID == "":
		return &domain.ValidationError{Field: "managerId", Reason: "required"}
	case req.Platform != "" && req.Platform != domain.ProviderGoogle && req.Platform != domain.ProviderZoom:
		return &domain.ValidationError{Field: "platform", Reason: fmt.Sprintf("unsupported platform %q", req.Platform)}
	case strings.TrimSpace(req.MeetingURL) == "":
		return &domain.ValidationError{Field: "meetingUrl", Reason: "required"}
	}
	return nil
}

// platformFromURL guesses the provider from a join URL. URLs on unrecognized
// hosts are recorded without a platform.
func platformFromURL(meetingURL string) domain.Provider {
	u, err := url.Parse(meetingURL)
	if err != nil {
		return ""
	}
	host := u.Hostname()
	switch {
	case host == "meet.google.com":
		return domain.ProviderGoogle
	case host == "zoom.us" || strings.HasSuffix(host, ".zoom.us"):
		return domain.ProviderZoom
	}
	return ""
}
