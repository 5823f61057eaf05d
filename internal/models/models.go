package models

import "time"

// Credential is the Spotify token pair held for one live connection.
// RefreshToken may be empty: Spotify does not always return one, and the
// direct-token authenticate path may supply only an access token. Callers
// must treat an empty refresh token as "re-login required on expiry".
type Credential struct {
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken"`
	Expiry       time.Time `json:"-"`
}

// Track is the subset of Spotify track metadata a display client renders.
type Track struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Artists     []string `json:"artists"`
	Album       string   `json:"album"`
	AlbumArtURL string   `json:"albumArtUrl,omitempty"`
	DurationMs  int64    `json:"durationMs"`
}

type Device struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Type          string `json:"type"`
	VolumePercent int    `json:"volumePercent"`
}

// PlaybackState is what the user's player is doing right now.
type PlaybackState struct {
	IsPlaying  bool      `json:"isPlaying"`
	ProgressMs int64     `json:"progressMs"`
	Track      Track     `json:"track"`
	Device     Device    `json:"device"`
	FetchedAt  time.Time `json:"fetchedAt"`
}

// ProgressAt extrapolates playback progress to the given wall-clock time.
// While playing, progress advances by elapsed time since the snapshot was
// fetched, clamped to the track duration. Paused playback does not advance.
func (p *PlaybackState) ProgressAt(now time.Time) int64 {
	progress := p.ProgressMs
	if p.IsPlaying {
		if elapsed := now.Sub(p.FetchedAt); elapsed > 0 {
			progress += elapsed.Milliseconds()
		}
	}
	if p.Track.DurationMs > 0 && progress > p.Track.DurationMs {
		return p.Track.DurationMs
	}
	return progress
}

// PlaybackSnapshot is the playback state plus upcoming queue fetched on one
// polling tick. Playback is nil when nothing is playing on any device.
// Snapshots are produced fresh each tick and never merged.
type PlaybackSnapshot struct {
	Playback *PlaybackState `json:"playback"`
	Queue    []Track        `json:"queue"`
}

// PlayRecord is one observed track play, kept in the history log.
type PlayRecord struct {
	ID           int64     `json:"id"`
	ConnectionID string    `json:"connectionId"`
	TrackID      string    `json:"trackId"`
	Title        string    `json:"title"`
	Artist       string    `json:"artist"`
	Album        string    `json:"album"`
	StartedAt    time.Time `json:"startedAt"`
}
