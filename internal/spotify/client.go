package spotify

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"spotiui/internal/models"
)

// Scopes requested during the redirect flow. Playback state and queue reads
// plus remote-control scopes the kiosk client needs.
var Scopes = []string{
	spotifyauth.ScopeUserReadPlaybackState,
	spotifyauth.ScopeUserReadCurrentlyPlaying,
	spotifyauth.ScopeUserModifyPlaybackState,
	spotifyauth.ScopeUserReadPrivate,
	spotifyauth.ScopeUserReadEmail,
	"app-remote-control",
	spotifyauth.ScopeStreaming,
}

const defaultQueueLimit = 10

// Client talks to the Spotify Web API: token exchange and refresh via the
// accounts endpoint, playback and queue reads via the player endpoints.
// A fresh API client is built per call from the supplied credential, so
// concurrent calls for different connections share no mutable state.
type Client struct {
	auth       *spotifyauth.Authenticator
	limiter    *rate.Limiter
	baseURL    string
	httpClient *http.Client
	queueLimit int
}

type Option func(*Client)

// WithBaseURL points the Web API calls at an alternate base URL. The URL must
// end with a trailing slash. Used in tests.
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = url }
}

// WithHTTPClient overrides the OAuth-authenticated HTTP client. Used in tests
// to bypass token handling.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithQueueLimit(n int) Option {
	return func(c *Client) { c.queueLimit = n }
}

func New(clientID, clientSecret, redirectURI string, opts ...Option) *Client {
	c := &Client{
		auth: spotifyauth.New(
			spotifyauth.WithClientID(clientID),
			spotifyauth.WithClientSecret(clientSecret),
			spotifyauth.WithRedirectURL(redirectURI),
			spotifyauth.WithScopes(Scopes...),
		),
		// Spotify's app-wide rate limit is computed over a rolling 30 s
		// window; 8 rps with a small burst keeps a handful of kiosks
		// comfortably under it.
		limiter:    rate.NewLimiter(8, 16),
		queueLimit: defaultQueueLimit,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// AuthURL returns the Spotify authorize URL carrying the given state token.
func (c *Client) AuthURL(state string) string {
	return c.auth.AuthURL(state)
}

// ExchangeCode trades an authorization code for a token pair. A failed
// exchange reports ErrAuthExchangeFailed with ErrUpstreamAuth underneath.
func (c *Client) ExchangeCode(ctx context.Context, code string) (models.Credential, error) {
	tok, err := c.auth.Exchange(ctx, code)
	if err != nil {
		return models.Credential{}, fmt.Errorf("%w: %w: exchanging code: %v",
			models.ErrAuthExchangeFailed, models.ErrUpstreamAuth, err)
	}
	return credentialFromToken(tok), nil
}

// RefreshAccess obtains a fresh access token for a returning connection that
// only holds a refresh token.
func (c *Client) RefreshAccess(ctx context.Context, refreshToken string) (models.Credential, error) {
	stale := &oauth2.Token{
		RefreshToken: refreshToken,
		Expiry:       time.Now().Add(-time.Hour),
	}
	tok, err := c.auth.RefreshToken(ctx, stale)
	if err != nil {
		return models.Credential{}, fmt.Errorf("%w: refreshing token: %v", models.ErrUpstreamAuth, err)
	}
	cred := credentialFromToken(tok)
	if cred.RefreshToken == "" {
		// Spotify omits the refresh token when it is unchanged.
		cred.RefreshToken = refreshToken
	}
	return cred, nil
}

// FetchSnapshot fetches the playback state and queue for the same tick. The
// two calls run concurrently; if either fails the tick fails as a whole and
// no partial snapshot is returned.
func (c *Client) FetchSnapshot(ctx context.Context, cred models.Credential) (models.PlaybackSnapshot, error) {
	api := c.apiClient(ctx, cred)

	var (
		state *spotify.PlayerState
		queue *spotify.Queue
	)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		var err error
		state, err = api.PlayerState(ctx)
		if err != nil {
			return fmt.Errorf("player state: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		var err error
		queue, err = api.GetQueue(ctx)
		if err != nil {
			return fmt.Errorf("queue: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return models.PlaybackSnapshot{}, fmt.Errorf("%w: %v", models.ErrUpstreamFetch, err)
	}

	snap := models.PlaybackSnapshot{
		Playback: playbackFromState(state),
	}
	if queue != nil {
		snap.Queue = queueTracks(queue.Items, c.queueLimit)
	}
	return snap, nil
}

func (c *Client) apiClient(ctx context.Context, cred models.Credential) *spotify.Client {
	hc := c.httpClient
	if hc == nil {
		tok := &oauth2.Token{
			AccessToken:  cred.AccessToken,
			RefreshToken: cred.RefreshToken,
			Expiry:       cred.Expiry,
			TokenType:    "Bearer",
		}
		hc = c.auth.Client(ctx, tok)
	}
	var opts []spotify.ClientOption
	if c.baseURL != "" {
		opts = append(opts, spotify.WithBaseURL(c.baseURL))
	}
	return spotify.New(hc, opts...)
}

func credentialFromToken(tok *oauth2.Token) models.Credential {
	return models.Credential{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		Expiry:       tok.Expiry,
	}
}

func playbackFromState(ps *spotify.PlayerState) *models.PlaybackState {
	if ps == nil || ps.Item == nil {
		return nil
	}
	return &models.PlaybackState{
		IsPlaying:  ps.Playing,
		ProgressMs: int64(ps.Progress),
		Track:      trackFromFull(*ps.Item),
		Device: models.Device{
			ID:            ps.Device.ID.String(),
			Name:          ps.Device.Name,
			Type:          ps.Device.Type,
			VolumePercent: int(ps.Device.Volume),
		},
		FetchedAt: time.Now().UTC(),
	}
}

func queueTracks(items []spotify.FullTrack, limit int) []models.Track {
	if len(items) > limit {
		items = items[:limit]
	}
	tracks := make([]models.Track, 0, len(items))
	for _, it := range items {
		tracks = append(tracks, trackFromFull(it))
	}
	return tracks
}

func trackFromFull(ft spotify.FullTrack) models.Track {
	artists := make([]string, 0, len(ft.Artists))
	for _, a := range ft.Artists {
		artists = append(artists, a.Name)
	}
	t := models.Track{
		ID:         ft.ID.String(),
		Name:       ft.Name,
		Artists:    artists,
		Album:      ft.Album.Name,
		DurationMs: int64(ft.Duration),
	}
	if len(ft.Album.Images) > 0 {
		t.AlbumArtURL = ft.Album.Images[0].URL
	}
	return t
}
