package zoom

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/perfpulse/meetsched/internal/domain"
	"github.com/perfpulse/meetsched/internal/instrumentation"
)

// DefaultBaseURL is Zoom's REST API base.
const DefaultBaseURL = "https://api.zoom.us"

// DefaultTimeout bounds each Zoom API call.
const DefaultTimeout = 15 * time.Second

// Client creates meetings on behalf of the authenticated Zoom user.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *instrumentation.Metrics
}

// Option configures the client.
type Option func(*Client)

// WithBaseURL points the client at an alternative API base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) { c.baseURL = baseURL }
}

// WithTimeout sets the per-call timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = timeout }
}

// NewClient creates a Zoom client. logger and metrics may be nil.
func NewClient(logger *slog.Logger, metrics *instrumentation.Metrics, opts ...Option) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		logger:     logger,
		metrics:    metrics,
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.metrics == nil {
		c.metrics = &instrumentation.Metrics{}
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CreateMeeting schedules a Zoom meeting and returns its join URL and numeric
// meeting ID. The meeting duration is derived from the requested interval and
// must be positive.
func (c *Client) CreateMeeting(ctx context.Context, accessToken string, req domain.MeetingRequest) (domain.CreatedMeeting, error) {
	duration := int(req.End.Sub(req.Start).Minutes())
	if duration <= 0 {
		return domain.CreatedMeeting{}, &domain.ValidationError{
			Field:  "endDateTime",
			Reason: "meeting end must be after its start",
		}
	}

	body, err := json.Marshal(createMeetingRequest{
		Topic:     req.Title,
		Type:      meetingTypeScheduled,
		StartTime: req.StartLocal,
		Duration:  duration,
		Timezone:  req.TimeZone,
		Agenda:    req.Description,
		Settings: meetingSettings{
			WaitingRoom:      true,
			HostVideo:        false,
			ParticipantVideo: false,
			JoinBeforeHost:   false,
		},
	})
	if err != nil {
		return domain.CreatedMeeting{}, fmt.Errorf("failed to marshal meeting request: %w", err)
	}

	url := c.baseURL + "/v2/users/me/meetings"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return domain.CreatedMeeting{}, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+accessToken)

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.metrics.RecordProviderOperation(ctx, string(domain.ProviderZoom), "create_meeting", instrumentation.StatusError, time.Since(start))
		return domain.CreatedMeeting{}, &domain.ProviderError{
			Provider: domain.ProviderZoom,
			Message:  "meeting creation request failed",
			Err:      err,
		}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		c.metrics.RecordProviderOperation(ctx, string(domain.ProviderZoom), "create_meeting", instrumentation.StatusError, time.Since(start))
		return domain.CreatedMeeting{}, &domain.ProviderError{
			Provider: domain.ProviderZoom,
			Message:  "failed to read meeting response",
			Err:      err,
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.metrics.RecordProviderOperation(ctx, string(domain.ProviderZoom), "create_meeting", instrumentation.StatusError, time.Since(start))
		return domain.CreatedMeeting{}, c.apiError(resp.StatusCode, respBody)
	}
	c.metrics.RecordProviderOperation(ctx, string(domain.ProviderZoom), "create_meeting", instrumentation.StatusSuccess, time.Since(start))

	var meeting meetingResponse
	if err := json.Unmarshal(respBody, &meeting); err != nil {
		return domain.CreatedMeeting{}, &domain.ProviderError{
			Provider: domain.ProviderZoom,
			Message:  "failed to parse meeting response",
			Err:      err,
		}
	}

	return domain.CreatedMeeting{
		JoinURL:    meeting.JoinURL,
		ExternalID: strconv.FormatInt(meeting.ID, 10),
	}, nil
}

// apiError converts a non-2xx Zoom response into a ProviderError carrying
// Zoom's status and message.
func (c *Client) apiError(status int, body []byte) error {
	message := "zoom api error"
	var parsed errorResponse
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Message != "" {
		message = parsed.Message
	}
	return &domain.ProviderError{
		Provider: domain.ProviderZoom,
		Status:   status,
		Message:  message,
	}
}
