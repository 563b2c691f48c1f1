package notetaker

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perfpulse/meetsched/internal/domain"
)

func TestInvite(t *testing.T) {
	var captured inviteRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/bots", r.URL.Path)
		assert.Equal(t, "test-api-key", r.Header.Get("x-meeting-baas-api-key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(inviteResponse{BotID: "bot-123"})
	}))
	defer srv.Close()

	client := NewClient("test-api-key", nil, nil, WithBaseURL(srv.URL))

	botID, err := client.Invite(t.Context(), "https://meet.google.com/abc-defg-hij", "Notetaker", "Recording this 1:1")
	require.NoError(t, err)
	assert.Equal(t, "bot-123", botID)

	assert.Equal(t, "https://meet.google.com/abc-defg-hij", captured.MeetingURL)
	assert.Equal(t, "Notetaker", captured.BotName)
	assert.Equal(t, "Recording this 1:1", captured.EntryMessage)
	assert.Equal(t, "speaker_view", captured.RecordingMode)
}

func TestInviteMissingBotID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client := NewClient("key", nil, nil, WithBaseURL(srv.URL))

	botID, err := client.Invite(t.Context(), "https://zoom.us/j/123", "Notetaker", "")
	require.NoError(t, err)
	assert.Empty(t, botID)
}

func TestInviteRejected(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_ = json.NewEncoder(w).Encode(errorResponse{Message: "invalid meeting url"})
	}))
	defer srv.Close()

	client := NewClient("key", nil, nil, WithBaseURL(srv.URL))

	_, err := client.Invite(t.Context(), "not-a-url", "Notetaker", "")

	var inviteErr *domain.BotInviteError
	require.ErrorAs(t, err, &inviteErr)
	assert.Equal(t, http.StatusUnprocessableEntity, inviteErr.Status)
	assert.Equal(t, "invalid meeting url", inviteErr.Message)
	assert.Equal(t, int32(1), calls.Load(), "4xx must not be retried")
}

func TestInviteTransientFailureRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(inviteResponse{BotID: "bot-after-retry"})
	}))
	defer srv.Close()

	client := NewClient("key", nil, nil, WithBaseURL(srv.URL))

	botID, err := client.Invite(t.Context(), "https://meet.google.com/abc", "Notetaker", "")
	require.NoError(t, err)
	assert.Equal(t, "bot-after-retry", botID)
	assert.Equal(t, int32(3), calls.Load())
}

func TestInviteExhaustsRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewClient("key", nil, nil, WithBaseURL(srv.URL))

	_, err := client.Invite(t.Context(), "https://meet.google.com/abc", "Notetaker", "")

	var inviteErr *domain.BotInviteError
	require.ErrorAs(t, err, &inviteErr)
	assert.Equal(t, http.StatusBadGateway, inviteErr.Status)
	assert.Equal(t, int32(maxInviteAttempts), calls.Load())
}
