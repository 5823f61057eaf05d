package models

import "errors"

var (
	// ErrInvalidRequest marks malformed client input, e.g. a missing socket id
	// or an authenticate attempt carrying neither token.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrStateMismatch marks an unknown, expired, or already-consumed
	// authorization state token.
	ErrStateMismatch = errors.New("state mismatch")

	// ErrAuthExchangeFailed marks a failed code-for-token exchange after the
	// state token was already consumed.
	ErrAuthExchangeFailed = errors.New("auth exchange failed")

	// ErrUpstreamAuth marks a Spotify token endpoint failure.
	ErrUpstreamAuth = errors.New("upstream auth error")

	// ErrUpstreamFetch marks a failed playback or queue fetch; the whole tick
	// fails, no partial snapshot is produced.
	ErrUpstreamFetch = errors.New("upstream fetch error")

	// ErrUnknownConnection marks an event for a connection id that is no
	// longer registered.
	ErrUnknownConnection = errors.New("unknown connection")
)
