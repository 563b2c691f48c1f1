package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perfpulse/meetsched/internal/domain"
	"github.com/perfpulse/meetsched/internal/orchestrator"
)

var testSecret = []byte("test-secret")

func signToken(t *testing.T, userID string, role domain.Role) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Role: string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	signed, err := token.SignedString(testSecret)
	require.NoError(t, err)
	return signed
}

type stubScheduler struct {
	record   *domain.MeetingRecord
	meetings []domain.MeetingRecord
	err      error

	gotSpec      domain.MeetingSpec
	gotRecordReq orchestrator.RecordRequest
	gotPrincipal domain.Principal
}

func (s *stubScheduler) Schedule(_ context.Context, principal domain.Principal, spec domain.MeetingSpec) (*domain.MeetingRecord, error) {
	s.gotPrincipal = principal
	s.gotSpec = spec
	return s.record, s.err
}

func (s *stubScheduler) Record(_ context.Context, principal domain.Principal, req orchestrator.RecordRequest) (*domain.MeetingRecord, error) {
	s.gotPrincipal = principal
	s.gotRecordReq = req
	return s.record, s.err
}

func (s *stubScheduler) List(_ context.Context, principal domain.Principal) ([]domain.MeetingRecord, error) {
	s.gotPrincipal = principal
	return s.meetings, s.err
}

func (s *stubScheduler) Get(_ context.Context, principal domain.Principal, _ string) (*domain.MeetingRecord, error) {
	s.gotPrincipal = principal
	return s.record, s.err
}

type stubVault struct {
	url         string
	exchangeErr error

	gotUserID string
	gotCode   string
}

func (s *stubVault) AuthCodeURL(domain.Provider, string) (string, error) {
	return s.url, nil
}

func (s *stubVault) Exchange(_ context.Context, userID string, _ domain.Provider, code string) error {
	s.gotUserID = userID
	s.gotCode = code
	return s.exchangeErr
}

func testRouter(scheduler *stubScheduler, vault *stubVault) http.Handler {
	return NewRouter(RouterConfig{
		Handler:   NewHandler(scheduler, vault, nil),
		Health:    NewHealthChecker(nil),
		JWTSecret: testSecret,
	})
}

func doRequest(t *testing.T, router http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestScheduleEndpoint(t *testing.T) {
	scheduler := &stubScheduler{
		record: &domain.MeetingRecord{
			ID:                "m-1",
			Platform:          domain.ProviderGoogle,
			Status:            domain.StatusBotInvited,
			MeetingURL:        "https://meet.google.com/abc",
			ExternalMeetingID: "evt-1",
			BotID:             "bot-1",
		},
	}
	router := testRouter(scheduler, &stubVault{})
	token := signToken(t, "u-mgr", domain.RoleManager)

	rec := doRequest(t, router, http.MethodPost, "/api/v1/meetings/schedule", token, `{
		"employeeId": "e-1",
		"platform": "Google Meet",
		"startDateTime": "2024-01-01T10:00:00Z",
		"endDateTime": "2024-01-01T10:30:00Z",
		"timeZone": "America/New_York"
	}`)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, domain.ProviderGoogle, scheduler.gotSpec.Platform)
	assert.Equal(t, "u-mgr", scheduler.gotSpec.ManagerID, "manager defaults to the principal")
	assert.Equal(t, time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC), scheduler.gotSpec.StartTime.UTC())

	var response map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, "m-1", response["meetingId"])
	assert.Equal(t, "https://meet.google.com/abc", response["meetingUrl"])
	assert.Equal(t, "Google Meet", response["platform"])
	assert.Equal(t, "evt-1", response["externalMeetingId"])
	assert.Equal(t, "bot-1", response["meetingBaasId"])
}

func TestScheduleEndpointUnknownPlatform(t *testing.T) {
	router := testRouter(&stubScheduler{}, &stubVault{})
	token := signToken(t, "u-mgr", domain.RoleManager)

	rec := doRequest(t, router, http.MethodPost, "/api/v1/meetings/schedule", token, `{
		"employeeId": "e-1",
		"platform": "Skype",
		"startDateTime": "2024-01-01T10:00:00Z",
		"endDateTime": "2024-01-01T10:30:00Z",
		"timeZone": "UTC"
	}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "platform")
}

func TestScheduleEndpointSurfacesProviderStatus(t *testing.T) {
	scheduler := &stubScheduler{
		err: &domain.ProviderError{Provider: domain.ProviderZoom, Status: 401, Message: "Invalid access token."},
	}
	router := testRouter(scheduler, &stubVault{})
	token := signToken(t, "u-mgr", domain.RoleManager)

	rec := doRequest(t, router, http.MethodPost, "/api/v1/meetings/schedule", token, `{
		"employeeId": "e-1",
		"platform": "Zoom",
		"startDateTime": "2024-01-01T10:00:00Z",
		"endDateTime": "2024-01-01T10:30:00Z",
		"timeZone": "UTC"
	}`)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestScheduleEndpointHidesInternalErrors(t *testing.T) {
	scheduler := &stubScheduler{
		err: &domain.ProviderError{Provider: domain.ProviderZoom, Message: "dial tcp: connection refused"},
	}
	router := testRouter(scheduler, &stubVault{})
	token := signToken(t, "u-mgr", domain.RoleManager)

	rec := doRequest(t, router, http.MethodPost, "/api/v1/meetings/schedule", token, `{
		"employeeId": "e-1",
		"platform": "Zoom",
		"startDateTime": "2024-01-01T10:00:00Z",
		"endDateTime": "2024-01-01T10:30:00Z",
		"timeZone": "UTC"
	}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "dial tcp")
}

func TestRecordEndpointIncludesBotID(t *testing.T) {
	scheduler := &stubScheduler{
		record: &domain.MeetingRecord{ID: "m-1", Status: domain.StatusBotInvited, BotID: "bot-9"},
	}
	router := testRouter(scheduler, &stubVault{})
	token := signToken(t, "u-mgr", domain.RoleManager)

	rec := doRequest(t, router, http.MethodPost, "/api/v1/meetings/record", token, `{
		"employeeId": "e-1",
		"platform": "Zoom",
		"meetingUrl": "https://zoom.us/j/123"
	}`)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "https://zoom.us/j/123", scheduler.gotRecordReq.MeetingURL)

	var response map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, "m-1", response["meetingId"])
	assert.Equal(t, "bot-9", response["meetingBaasId"])
}

func TestRecordEndpointWithoutPlatform(t *testing.T) {
	scheduler := &stubScheduler{
		record: &domain.MeetingRecord{ID: "m-1", Status: domain.StatusBotInvited, BotID: "bot-9"},
	}
	router := testRouter(scheduler, &stubVault{})
	token := signToken(t, "u-mgr", domain.RoleManager)

	// The minimal body: a meeting URL and an employee. No platform has to be
	// picked for a meeting that already exists.
	rec := doRequest(t, router, http.MethodPost, "/api/v1/meetings/record", token, `{
		"meetingUrl": "https://meet.google.com/abc-defg-hij",
		"employeeId": "emp-1"
	}`)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, domain.Provider(""), scheduler.gotRecordReq.Platform)
	assert.Equal(t, "https://meet.google.com/abc-defg-hij", scheduler.gotRecordReq.MeetingURL)
}

func TestRecordEndpointOmitsMissingBotID(t *testing.T) {
	scheduler := &stubScheduler{
		record: &domain.MeetingRecord{ID: "m-1", Status: domain.StatusBotInvited},
	}
	router := testRouter(scheduler, &stubVault{})
	token := signToken(t, "u-mgr", domain.RoleManager)

	rec := doRequest(t, router, http.MethodPost, "/api/v1/meetings/record", token, `{
		"employeeId": "e-1",
		"platform": "Zoom",
		"meetingUrl": "https://zoom.us/j/123"
	}`)

	require.Equal(t, http.StatusCreated, rec.Code)

	var response map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.NotContains(t, response, "meetingBaasId")
}

func TestListEndpoint(t *testing.T) {
	scheduler := &stubScheduler{
		meetings: []domain.MeetingRecord{{ID: "m-1"}, {ID: "m-2"}},
	}
	router := testRouter(scheduler, &stubVault{})
	token := signToken(t, "u-1", domain.RoleUser)

	rec := doRequest(t, router, http.MethodGet, "/api/v1/meetings", token, "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u-1", scheduler.gotPrincipal.ID)
	assert.Equal(t, domain.RoleUser, scheduler.gotPrincipal.Role)
}

func TestGetEndpointAccessDenied(t *testing.T) {
	scheduler := &stubScheduler{
		err: &domain.AccessDeniedError{Resource: "meeting", ID: "m-1"},
	}
	router := testRouter(scheduler, &stubVault{})
	token := signToken(t, "u-1", domain.RoleUser)

	rec := doRequest(t, router, http.MethodGet, "/api/v1/meetings/m-1", token, "")

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAuthMiddleware(t *testing.T) {
	router := testRouter(&stubScheduler{}, &stubVault{})

	rec := doRequest(t, router, http.MethodGet, "/api/v1/meetings", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doRequest(t, router, http.MethodGet, "/api/v1/meetings", "not-a-jwt", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthURL(t *testing.T) {
	vault := &stubVault{url: "https://accounts.google.com/o/oauth2/auth?state=u-1"}
	router := testRouter(&stubScheduler{}, vault)
	token := signToken(t, "u-1", domain.RoleManager)

	rec := doRequest(t, router, http.MethodGet, "/api/v1/auth/google", token, "")

	require.Equal(t, http.StatusOK, rec.Code)

	var response map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, vault.url, response["authUrl"])
}

func TestAuthCallback(t *testing.T) {
	vault := &stubVault{}
	router := testRouter(&stubScheduler{}, vault)

	rec := doRequest(t, router, http.MethodGet, "/api/v1/auth/zoom/callback?code=abc&state=u-1", "", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u-1", vault.gotUserID)
	assert.Equal(t, "abc", vault.gotCode)

	rec = doRequest(t, router, http.MethodGet, "/api/v1/auth/zoom/callback", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthEndpoints(t *testing.T) {
	router := testRouter(&stubScheduler{}, &stubVault{})

	rec := doRequest(t, router, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, router, http.MethodGet, "/readyz", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadinessWhileShuttingDown(t *testing.T) {
	health := NewHealthChecker(nil)
	router := NewRouter(RouterConfig{
		Handler:   NewHandler(&stubScheduler{}, &stubVault{}, nil),
		Health:    health,
		JWTSecret: testSecret,
	})

	health.SetShuttingDown()

	rec := doRequest(t, router, http.MethodGet, "/readyz", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
