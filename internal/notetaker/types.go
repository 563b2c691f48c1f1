package notetaker

// inviteRequest is the body for POST /bots.
type inviteRequest struct {
	MeetingURL     string             `json:"meeting_url"`
	BotName        string             `json:"bot_name"`
	EntryMessage   string             `json:"entry_message,omitempty"`
	RecordingMode  string             `json:"recording_mode"`
	Reserved       bool               `json:"reserved"`
	SpeechToText   speechToTextConfig `json:"speech_to_text"`
	AutomaticLeave automaticLeave     `json:"automatic_leave"`
}

// speechToTextConfig selects the provider-side transcription backend.
type speechToTextConfig struct {
	Provider string `json:"provider"`
}

// automaticLeave makes the bot exit instead of idling in an empty room.
type automaticLeave struct {
	WaitingRoomTimeout int `json:"waiting_room_timeout"`
}

// inviteResponse is the subset of the bot provider's response the scheduler
// consumes.
type inviteResponse struct {
	BotID string `json:"bot_id"`
}

// errorResponse is the bot provider's error body shape.
type errorResponse struct {
	Message string `json:"message"`
}
