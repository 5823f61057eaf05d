package models

// Event types pushed to display clients. Events for one connection are
// delivered in the order they were produced; in particular EventLoginSuccess
// always precedes the first EventPlaybackUpdate of the same authentication.
const (
	EventConnectionAck  = "connection_ack"
	EventLoginSuccess   = "login_success"
	EventPlaybackUpdate = "playback_update"

	// Client -> server.
	EventAuthenticate = "authenticate"
)

// Event is the envelope for every message on the push channel.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// ConnectionAck tells a freshly connected client its connection id, which it
// passes back as socketId when requesting a login URL.
type ConnectionAck struct {
	ConnectionID string `json:"connectionId"`
}

// LoginSuccess carries the token pair after a redirect-flow login, or just a
// message for the direct-token flow.
type LoginSuccess struct {
	AccessToken  string `json:"accessToken,omitempty"`
	RefreshToken string `json:"refreshToken,omitempty"`
	Message      string `json:"message,omitempty"`
}

// PlaybackUpdate is the per-tick payload. Playback and Queue are null when
// nothing is playing.
type PlaybackUpdate struct {
	Playback *PlaybackState `json:"playback"`
	Queue    []Track        `json:"queue"`
}

// AuthenticatePayload is the client-supplied token pair for returning
// sessions that skip the redirect flow.
type AuthenticatePayload struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}
