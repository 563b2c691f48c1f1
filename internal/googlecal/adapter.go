package googlecal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	calendar "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/perfpulse/meetsched/internal/domain"
	"github.com/perfpulse/meetsched/internal/instrumentation"
	"github.com/perfpulse/meetsched/internal/logging"
)

// DefaultTimeout bounds each calendar API call.
const DefaultTimeout = 15 * time.Second

// Adapter creates Google Meet meetings through the Calendar v3 API.
// A fresh service client is built per call from the caller's token, so
// concurrent calls for different users never share state.
type Adapter struct {
	logger  *slog.Logger
	metrics *instrumentation.Metrics
	timeout time.Duration

	// endpoint overrides the Calendar API base URL; used by tests.
	endpoint string
}

// Option configures the adapter.
type Option func(*Adapter)

// WithTimeout sets the per-call timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(a *Adapter) { a.timeout = timeout }
}

// WithEndpoint points the adapter at an alternative API base URL.
func WithEndpoint(endpoint string) Option {
	return func(a *Adapter) { a.endpoint = endpoint }
}

// New creates an Adapter. logger and metrics may be nil.
func New(logger *slog.Logger, metrics *instrumentation.Metrics, opts ...Option) *Adapter {
	a := &Adapter{
		logger:  logger,
		metrics: metrics,
		timeout: DefaultTimeout,
	}
	if a.logger == nil {
		a.logger = slog.Default()
	}
	if a.metrics == nil {
		a.metrics = &instrumentation.Metrics{}
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// CreateMeeting inserts a calendar event with a Meet conference on the
// user's primary calendar and returns the join URL and event ID. The event
// may exist on the provider side even when an error is returned (see
// domain.ErrCalendarLinkMissing).
func (a *Adapter) CreateMeeting(ctx context.Context, accessToken string, req domain.MeetingRequest) (domain.CreatedMeeting, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	svc, err := a.service(ctx, accessToken)
	if err != nil {
		return domain.CreatedMeeting{}, fmt.Errorf("failed to create Calendar service: %w", err)
	}

	attendees := make([]*calendar.EventAttendee, 0, len(req.Attendees))
	for _, email := range req.Attendees {
		attendees = append(attendees, &calendar.EventAttendee{Email: email})
	}

	event := &calendar.Event{
		Summary:     req.Title,
		Description: req.Description,
		Start: &calendar.EventDateTime{
			DateTime: req.StartLocal,
			TimeZone: req.TimeZone,
		},
		End: &calendar.EventDateTime{
			DateTime: req.EndLocal,
			TimeZone: req.TimeZone,
		},
		Attendees: attendees,
		ConferenceData: &calendar.ConferenceData{
			CreateRequest: &calendar.CreateConferenceRequest{
				// Unique per call: a retried insert cannot create a second
				// conference.
				RequestId: uuid.NewString(),
				ConferenceSolutionKey: &calendar.ConferenceSolutionKey{
					Type: "hangoutsMeet",
				},
			},
		},
	}

	start := time.Now()
	created, err := svc.Events.Insert("primary", event).
		ConferenceDataVersion(1).
		SendUpdates("all").
		Context(ctx).
		Do()
	if err != nil {
		a.metrics.RecordProviderOperation(ctx, string(domain.ProviderGoogle), "create_meeting", instrumentation.StatusError, time.Since(start))
		return domain.CreatedMeeting{}, wrapAPIError(err)
	}
	a.metrics.RecordProviderOperation(ctx, string(domain.ProviderGoogle), "create_meeting", instrumentation.StatusSuccess, time.Since(start))

	link := meetLink(created)
	if link == "" {
		// The event was created but carries no conference link; surface this
		// separately so the caller can classify it and an operator can
		// reconcile the dangling event.
		a.logger.Warn("calendar event created without meeting link, manual reconciliation may be needed",
			logging.Operation("create_meeting"),
			logging.ProviderAttr(string(domain.ProviderGoogle)),
			slog.String("event_id", created.Id),
		)
		return domain.CreatedMeeting{}, fmt.Errorf("event %s: %w", created.Id, domain.ErrCalendarLinkMissing)
	}

	return domain.CreatedMeeting{
		JoinURL:    link,
		ExternalID: created.Id,
	}, nil
}

// service builds a Calendar client authenticated with the given token.
func (a *Adapter) service(ctx context.Context, accessToken string) (*calendar.Service, error) {
	source := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"})
	opts := []option.ClientOption{option.WithTokenSource(source)}
	if a.endpoint != "" {
		opts = append(opts, option.WithEndpoint(a.endpoint))
	}
	return calendar.NewService(ctx, opts...)
}

// meetLink extracts the joinable Meet URL from a created event, preferring
// the conference entry points over the legacy hangout link.
func meetLink(event *calendar.Event) string {
	if event == nil {
		return ""
	}
	if event.ConferenceData != nil {
		for _, ep := range event.ConferenceData.EntryPoints {
			if ep.EntryPointType == "video" && ep.Uri != "" {
				return ep.Uri
			}
		}
	}
	return event.HangoutLink
}

// wrapAPIError converts a Calendar API failure into the domain error
// taxonomy, carrying the provider status when one was received.
func wrapAPIError(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return &domain.ProviderError{
			Provider: domain.ProviderGoogle,
			Status:   apiErr.Code,
			Message:  apiErr.Message,
			Err:      err,
		}
	}
	return &domain.ProviderError{
		Provider: domain.ProviderGoogle,
		Message:  "calendar event creation failed",
		Err:      err,
	}
}
