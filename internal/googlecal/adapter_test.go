package googlecal

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	calendar "google.golang.org/api/calendar/v3"

	"github.com/perfpulse/meetsched/internal/domain"
)

func meetingRequest() domain.MeetingRequest {
	start := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	return domain.MeetingRequest{
		Title:       "1:1 Alice / Bob",
		Description: "Weekly check-in",
		Start:       start,
		End:         start.Add(30 * time.Minute),
		StartLocal:  "2024-01-01T05:00:00",
		EndLocal:    "2024-01-01T05:30:00",
		TimeZone:    "America/New_York",
		Attendees:   []string{"alice@example.com", "bob@example.com"},
	}
}

// calendarServer fakes the events.insert endpoint, capturing the submitted
// event and answering with the given response.
func calendarServer(t *testing.T, status int, respond func(*calendar.Event) any) (*httptest.Server, *calendar.Event) {
	t.Helper()
	captured := &calendar.Event{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(captured))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(respond(captured))
	}))
	t.Cleanup(srv.Close)
	return srv, captured
}

func TestCreateMeetingSuccess(t *testing.T) {
	srv, captured := calendarServer(t, http.StatusOK, func(ev *calendar.Event) any {
		return &calendar.Event{
			Id: "evt-123",
			ConferenceData: &calendar.ConferenceData{
				EntryPoints: []*calendar.EntryPoint{
					{EntryPointType: "phone", Uri: "tel:+1-555-0100"},
					{EntryPointType: "video", Uri: "https://meet.google.com/abc-defg-hij"},
				},
			},
		}
	})
	adapter := New(nil, nil, WithEndpoint(srv.URL))

	created, err := adapter.CreateMeeting(t.Context(), "token", meetingRequest())

	require.NoError(t, err)
	assert.Equal(t, "https://meet.google.com/abc-defg-hij", created.JoinURL)
	assert.Equal(t, "evt-123", created.ExternalID)

	// The event must carry local wall-clock times plus the IANA zone, not
	// UTC instants.
	assert.Equal(t, "2024-01-01T05:00:00", captured.Start.DateTime)
	assert.Equal(t, "America/New_York", captured.Start.TimeZone)
	assert.Equal(t, "2024-01-01T05:30:00", captured.End.DateTime)

	require.Len(t, captured.Attendees, 2)
	assert.Equal(t, "alice@example.com", captured.Attendees[0].Email)

	// Idempotency token for the conference request.
	require.NotNil(t, captured.ConferenceData)
	require.NotNil(t, captured.ConferenceData.CreateRequest)
	assert.NotEmpty(t, captured.ConferenceData.CreateRequest.RequestId)
	assert.Equal(t, "hangoutsMeet", captured.ConferenceData.CreateRequest.ConferenceSolutionKey.Type)
}

func TestCreateMeetingUniqueRequestIDs(t *testing.T) {
	seen := make(map[string]bool)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var ev calendar.Event
		require.NoError(t, json.NewDecoder(r.Body).Decode(&ev))
		seen[ev.ConferenceData.CreateRequest.RequestId] = true
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(&calendar.Event{Id: "evt", HangoutLink: "https://meet.google.com/xyz"})
	}))
	t.Cleanup(srv.Close)
	adapter := New(nil, nil, WithEndpoint(srv.URL))

	for i := 0; i < 3; i++ {
		_, err := adapter.CreateMeeting(t.Context(), "token", meetingRequest())
		require.NoError(t, err)
	}
	assert.Len(t, seen, 3, "each call must carry a fresh conference request ID")
}

func TestCreateMeetingMissingLink(t *testing.T) {
	srv, _ := calendarServer(t, http.StatusOK, func(*calendar.Event) any {
		return &calendar.Event{Id: "evt-no-link"}
	})
	adapter := New(nil, nil, WithEndpoint(srv.URL))

	_, err := adapter.CreateMeeting(t.Context(), "token", meetingRequest())

	require.ErrorIs(t, err, domain.ErrCalendarLinkMissing)
}

func TestCreateMeetingHangoutLinkFallback(t *testing.T) {
	srv, _ := calendarServer(t, http.StatusOK, func(*calendar.Event) any {
		return &calendar.Event{Id: "evt-legacy", HangoutLink: "https://meet.google.com/legacy"}
	})
	adapter := New(nil, nil, WithEndpoint(srv.URL))

	created, err := adapter.CreateMeeting(t.Context(), "token", meetingRequest())

	require.NoError(t, err)
	assert.Equal(t, "https://meet.google.com/legacy", created.JoinURL)
}

func TestCreateMeetingProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"code":401,"message":"Invalid Credentials"}}`))
	}))
	t.Cleanup(srv.Close)
	adapter := New(nil, nil, WithEndpoint(srv.URL))

	_, err := adapter.CreateMeeting(t.Context(), "expired-token", meetingRequest())

	var provErr *domain.ProviderError
	require.ErrorAs(t, err, &provErr)
	assert.Equal(t, domain.ProviderGoogle, provErr.Provider)
	assert.Equal(t, http.StatusUnauthorized, provErr.Status)
}

func TestMeetLink(t *testing.T) {
	tests := []struct {
		name     string
		event    *calendar.Event
		expected string
	}{
		{"nil event", nil, ""},
		{"no conference data", &calendar.Event{}, ""},
		{
			"video entry point",
			&calendar.Event{ConferenceData: &calendar.ConferenceData{
				EntryPoints: []*calendar.EntryPoint{{EntryPointType: "video", Uri: "https://meet.google.com/a"}},
			}},
			"https://meet.google.com/a",
		},
		{
			"hangout link fallback",
			&calendar.Event{HangoutLink: "https://meet.google.com/b"},
			"https://meet.google.com/b",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, meetLink(tt.event))
		})
	}
}
