package notetaker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/perfpulse/meetsched/internal/domain"
	"github.com/perfpulse/meetsched/internal/instrumentation"
	"github.com/perfpulse/meetsched/internal/logging"
)

// DefaultBaseURL is the bot provider's API base.
const DefaultBaseURL = "https://api.meetingbaas.com"

// DefaultTimeout bounds each invite call.
const DefaultTimeout = 20 * time.Second

// maxInviteAttempts bounds the retry loop for transient invite failures.
const maxInviteAttempts = 3

// waitingRoomTimeoutSeconds is how long the bot waits in a waiting room
// before giving up and leaving.
const waitingRoomTimeoutSeconds = 600

// Client invites the recording bot into meetings.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *instrumentation.Metrics
}

// Option configures the client.
type Option func(*Client)

// WithBaseURL points the client at an alternative bot API base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) { c.baseURL = baseURL }
}

// WithTimeout sets the per-call timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = timeout }
}

// NewClient creates a bot invite client. logger and metrics may be nil.
func NewClient(apiKey string, logger *slog.Logger, metrics *instrumentation.Metrics, opts ...Option) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		apiKey:     apiKey,
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

// Invite asks the bot provider to join the meeting at meetingURL and returns
// the bot's ID. A 2xx response without a bot ID returns an empty ID and a nil
// error. Transient failures (transport errors, 5xx) are retried up to
// maxInviteAttempts times; 4xx responses are returned immediately as a
// BotInviteError.
func (c *Client) Invite(ctx context.Context, meetingURL, botName, entryMessage string) (string, error) {
	body, err := json.Marshal(inviteRequest{
		MeetingURL:    meetingURL,
		BotName:       botName,
		EntryMessage:  entryMessage,
		RecordingMode: "speaker_view",
		SpeechToText:  speechToTextConfig{Provider: "Default"},
		AutomaticLeave: automaticLeave{
			WaitingRoomTimeout: waitingRoomTimeoutSeconds,
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal invite request: %w", err)
	}

	start := time.Now()
	operation := func() (string, error) {
		return c.invite(ctx, body)
	}

	botID, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(maxInviteAttempts),
	)
	if err != nil {
		c.metrics.RecordBotInvite(ctx, instrumentation.StatusError)
		c.metrics.RecordProviderOperation(ctx, "bot", "invite", instrumentation.StatusError, time.Since(start))
		return "", err
	}
	c.metrics.RecordBotInvite(ctx, instrumentation.StatusSuccess)
	c.metrics.RecordProviderOperation(ctx, "bot", "invite", instrumentation.StatusSuccess, time.Since(start))

	if botID == "" {
		// The provider accepted the invite but did not identify the bot. The
		// meeting goes ahead without a recording reference.
		c.logger.Warn("bot invite accepted without a bot id",
			logging.Operation("bot_invite"),
		)
	}
	return botID, nil
}

// invite performs one POST /bots attempt.
func (c *Client) invite(ctx context.Context, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/bots", bytes.NewReader(body))
	if err != nil {
		return "", backoff.Permanent(&domain.BotInviteError{Message: "failed to create request", Err: err})
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-meeting-baas-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &domain.BotInviteError{Message: "invite request failed", Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &domain.BotInviteError{Message: "failed to read invite response", Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		message := "bot provider error"
		var parsed errorResponse
		if jsonErr := json.Unmarshal(respBody, &parsed); jsonErr == nil && parsed.Message != "" {
			message = parsed.Message
		}
		inviteErr := &domain.BotInviteError{Status: resp.StatusCode, Message: message}
		if resp.StatusCode >= 500 {
			return "", inviteErr
		}
		return "", backoff.Permanent(inviteErr)
	}

	var invited inviteResponse
	if err := json.Unmarshal(respBody, &invited); err != nil {
		// A 2xx with an unparseable body is treated like a missing bot ID.
		c.logger.Warn("failed to parse invite response",
			logging.Operation("bot_invite"),
			logging.Err(err),
		)
		return "", nil
	}
	return invited.BotID, nil
}
