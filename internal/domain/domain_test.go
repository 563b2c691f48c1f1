package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePlatform(t *testing.T) {
	p, err := ParsePlatform("Google Meet")
	require.NoError(t, err)
	assert.Equal(t, ProviderGoogle, p)

	p, err = ParsePlatform("Zoom")
	require.NoError(t, err)
	assert.Equal(t, ProviderZoom, p)

	_, err = ParsePlatform("Skype")
	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, "platform", valErr.Field)
}

func TestStatusTransitions(t *testing.T) {
	tests := []struct {
		from, to MeetingStatus
		ok       bool
	}{
		{StatusPendingBotInvite, StatusBotInvited, true},
		{StatusPendingBotInvite, StatusErrorBotInvite, true},
		{StatusPendingBotInvite, StatusCompleted, false},
		{StatusBotInvited, StatusCallEnded, true},
		{StatusBotInvited, StatusPendingBotInvite, false},
		{StatusBotInvited, StatusBotInvited, false},
		{StatusCallEnded, StatusGeneratingInsights, true},
		{StatusGeneratingInsights, StatusCompleted, true},
		{StatusCompleted, StatusBotInvited, false},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s->%s", tt.from, tt.to), func(t *testing.T) {
			assert.Equal(t, tt.ok, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestErrorStatesAreTerminal(t *testing.T) {
	errorStates := []MeetingStatus{
		StatusErrorPlatformAuth, StatusErrorCalendarEvent, StatusErrorCalendarLink,
		StatusErrorZoomMeeting, StatusErrorBotInvite, StatusErrorScheduling,
	}
	for _, from := range errorStates {
		assert.False(t, from.CanTransitionTo(StatusBotInvited), "%s must be terminal", from)
		assert.False(t, from.CanTransitionTo(StatusErrorScheduling), "%s must be terminal", from)
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", &ValidationError{Field: "platform", Reason: "x"}, 400},
		{"auth required", &AuthRequiredError{UserID: "u", Provider: ProviderZoom}, 401},
		{"access denied", &AccessDeniedError{Resource: "meeting", ID: "m"}, 403},
		{"not found", &NotFoundError{Resource: "meeting", ID: "m"}, 404},
		{"provider with status", &ProviderError{Provider: ProviderZoom, Status: 429}, 429},
		{"provider transport", &ProviderError{Provider: ProviderZoom}, 500},
		{"bot with status", &BotInviteError{Status: 502}, 502},
		{"wrapped", fmt.Errorf("schedule: %w", &AuthRequiredError{UserID: "u"}), 401},
		{"unknown", errors.New("boom"), 500},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}

func TestMeetingFilterAllows(t *testing.T) {
	m := &MeetingRecord{ManagerID: "u-mgr", EmployeeID: "e-1"}

	assert.True(t, MeetingFilter{All: true}.Allows(m))
	assert.True(t, MeetingFilter{ManagerUserIDs: []string{"u-mgr"}}.Allows(m))
	assert.True(t, MeetingFilter{EmployeeIDs: []string{"e-1"}}.Allows(m))
	assert.False(t, MeetingFilter{ManagerUserIDs: []string{"u-other"}, EmployeeIDs: []string{"e-2"}}.Allows(m))
	assert.False(t, MeetingFilter{}.Allows(m))
}
