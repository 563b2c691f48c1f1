package zoom

// meetingTypeScheduled is Zoom's meeting type for a scheduled (non-recurring)
// meeting.
const meetingTypeScheduled = 2

// createMeetingRequest is the body for POST /v2/users/me/meetings.
type createMeetingRequest struct {
	Topic     string          `json:"topic"`
	Type      int             `json:"type"`
	StartTime string          `json:"start_time"`
	Duration  int             `json:"duration"`
	Timezone  string          `json:"timezone"`
	Agenda    string          `json:"agenda,omitempty"`
	Settings  meetingSettings `json:"settings"`
}

// meetingSettings is the fixed policy applied to every scheduled meeting.
type meetingSettings struct {
	WaitingRoom      bool `json:"waiting_room"`
	HostVideo        bool `json:"host_video"`
	ParticipantVideo bool `json:"participant_video"`
	JoinBeforeHost   bool `json:"join_before_host"`
}

// meetingResponse is the subset of Zoom's create-meeting response the
// scheduler consumes.
type meetingResponse struct {
	ID      int64  `json:"id"`
	JoinURL string `json:"join_url"`
}

// errorResponse is Zoom's error body shape.
type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}
