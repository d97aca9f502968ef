package models

// Response types

type SessionInfoResponse struct {
	Session          Session      `json:"session"`
	Agenda           []AgendaItem `json:"agenda"`
	ParticipantCount int          `json:"participant_count"`
}

type ParticipantsResponse struct {
	SessionCode  int           `json:"session_code"`
	Participants []Participant `json:"participants"`
}

type DeleteSessionResponse struct {
	SessionCode int    `json:"session_code"`
	Message     string `json:"message"`
}

// Error response

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
