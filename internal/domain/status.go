package domain

// MeetingStatus is the closed lifecycle state of a MeetingRecord. The status
// only moves forward: terminal error states are never left, and the success
// transition to StatusBotInvited is only reachable from StatusPendingBotInvite.
type MeetingStatus string

const (
	// Success path. States after StatusBotInvited are produced by the
	// downstream insights pipeline, not by this subsystem.
	StatusPendingBotInvite   MeetingStatus = "PENDING_BOT_INVITE"
	StatusBotInvited         MeetingStatus = "BOT_INVITED"
	StatusCallEnded          MeetingStatus = "CALL_ENDED"
	StatusGeneratingInsights MeetingStatus = "GENERATING_INSIGHTS"
	StatusCompleted          MeetingStatus = "COMPLETED"

	// Terminal failure states.
	StatusErrorPlatformAuth  MeetingStatus = "ERROR_PLATFORM_AUTH"
	StatusErrorCalendarEvent MeetingStatus = "ERROR_CALENDAR_EVENT"
	StatusErrorCalendarLink  MeetingStatus = "ERROR_CALENDAR_LINK"
	StatusErrorZoomMeeting   MeetingStatus = "ERROR_ZOOM_MEETING"
	StatusErrorBotInvite     MeetingStatus = "ERROR_BOT_INVITE"
	StatusErrorScheduling    MeetingStatus = "ERROR_SCHEDULING"
)

// IsError reports whether the status is a terminal failure state.
func (s MeetingStatus) IsError() bool {
	switch s {
	case StatusErrorPlatformAuth, StatusErrorCalendarEvent, StatusErrorCalendarLink,
		StatusErrorZoomMeeting, StatusErrorBotInvite, StatusErrorScheduling:
		return true
	}
	return false
}

// IsValid reports whether s is one of the closed set of states.
func (s MeetingStatus) IsValid() bool {
	switch s {
	case StatusPendingBotInvite, StatusBotInvited, StatusCallEnded,
		StatusGeneratingInsights, StatusCompleted:
		return true
	}
	return s.IsError()
}

// CanTransitionTo reports whether the state machine permits moving from s to
// next. Error states are terminal, the pipeline states advance strictly in
// order, and StatusBotInvited is only reachable from StatusPendingBotInvite.
func (s MeetingStatus) CanTransitionTo(next MeetingStatus) bool {
	if s.IsError() {
		return false
	}
	if next.IsError() {
		// Any non-terminal state may fail.
		return true
	}
	switch s {
	case StatusPendingBotInvite:
		return next == StatusBotInvited
	case StatusBotInvited:
		return next == StatusCallEnded
	case StatusCallEnded:
		return next == StatusGeneratingInsights
	case StatusGeneratingInsights:
		return next == StatusCompleted
	}
	return false
}
