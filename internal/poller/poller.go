// Package poller runs one recurring fetch-and-push loop per authenticated
// connection.
package poller

import (
	"context"
	"log"
	"sync"
	"time"

	"spotiui/internal/models"
)

// DefaultPeriod is the polling period for every connection's loop.
const DefaultPeriod = 3 * time.Second

// Fetcher produces one playback snapshot per tick.
type Fetcher interface {
	FetchSnapshot(ctx context.Context, cred models.Credential) (models.PlaybackSnapshot, error)
}

// Router is the poller's view of the connection registry: the current
// credential for a connection, and best-effort event delivery to it.
type Router interface {
	Credential(connID string) (models.Credential, bool)
	Deliver(connID string, ev models.Event) bool
}

// History receives observed track plays. Satisfied by *store.Store.
type History interface {
	InsertPlay(rec *models.PlayRecord) error
}

type task struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Poller owns the per-connection polling tasks. At most one task exists per
// connection id; starting a new one cancels the old one first.
type Poller struct {
	fetcher Fetcher
	period  time.Duration
	history History

	mu        sync.Mutex
	router    Router
	tasks     map[string]*task
	lastTrack map[string]string
}

type Option func(*Poller)

func WithPeriod(d time.Duration) Option {
	return func(p *Poller) { p.period = d }
}

// WithHistory makes the poller log each newly observed playing track.
func WithHistory(h History) Option {
	return func(p *Poller) { p.history = h }
}

func New(f Fetcher, opts ...Option) *Poller {
	p := &Poller{
		fetcher:   f,
		period:    DefaultPeriod,
		tasks:     make(map[string]*task),
		lastTrack: make(map[string]string),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Bind attaches the connection registry. Must be called before Start.
func (p *Poller) Bind(r Router) {
	p.mu.Lock()
	p.router = r
	p.mu.Unlock()
}

// Start installs the polling task for a connection, cancelling any existing
// one first so no two loops ever run for the same id. cred is only the
// initial credential; each tick re-reads the current one from the registry,
// so re-authentication is observed without racing a stale capture.
func (p *Poller) Start(connID string, cred models.Credential) {
	ctx, cancel := context.WithCancel(context.Background())
	t := &task{cancel: cancel, done: make(chan struct{})}

	p.mu.Lock()
	if old, ok := p.tasks[connID]; ok {
		old.cancel()
	}
	p.tasks[connID] = t
	p.mu.Unlock()

	go p.run(ctx, t, connID, cred)
}

// Stop cancels and removes the task for a connection. No-op when none exists.
func (p *Poller) Stop(connID string) {
	p.mu.Lock()
	t, ok := p.tasks[connID]
	delete(p.tasks, connID)
	delete(p.lastTrack, connID)
	p.mu.Unlock()
	if ok {
		t.cancel()
	}
}

// StopAll cancels every task and waits for the loops to exit. For shutdown.
func (p *Poller) StopAll() {
	p.mu.Lock()
	tasks := make([]*task, 0, len(p.tasks))
	for id, t := range p.tasks {
		t.cancel()
		tasks = append(tasks, t)
		delete(p.tasks, id)
	}
	p.lastTrack = make(map[string]string)
	p.mu.Unlock()

	for _, t := range tasks {
		<-t.done
	}
}

// Active returns the number of live polling tasks.
func (p *Poller) Active() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.tasks)
}

// run executes ticks sequentially for one connection: an immediate first tick,
// then one per period. Sequential execution means a tick that outlasts the
// period simply delays the next one; time.Ticker drops the missed fires, so
// fetches for the same connection never overlap.
func (p *Poller) run(ctx context.Context, t *task, connID string, cred models.Credential) {
	defer close(t.done)

	ticker := time.NewTicker(p.period)
	defer ticker.Stop()

	if ctx.Err() != nil {
		return
	}
	p.tick(ctx, connID, cred)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.tick(ctx, connID, cred)
		}
	}
}

func (p *Poller) tick(ctx context.Context, connID string, initial models.Credential) {
	cred := initial
	router := p.getRouter()
	if router != nil {
		current, ok := router.Credential(connID)
		if !ok {
			// Credential cleared; the task is about to be stopped.
			return
		}
		cred = current
	}

	snap, err := p.fetcher.FetchSnapshot(ctx, cred)
	if err != nil {
		// Transient upstream failures are expected; the loop self-heals on
		// the next tick.
		if ctx.Err() == nil {
			log.Printf("polling %s: %v", connID, err)
		}
		return
	}
	if ctx.Err() != nil {
		return
	}

	if router != nil {
		router.Deliver(connID, models.Event{
			Type: models.EventPlaybackUpdate,
			Payload: models.PlaybackUpdate{
				Playback: snap.Playback,
				Queue:    snap.Queue,
			},
		})
	}

	p.recordPlay(connID, snap)
}

func (p *Poller) getRouter() Router {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.router
}

// recordPlay writes a history row when the playing track changes.
func (p *Poller) recordPlay(connID string, snap models.PlaybackSnapshot) {
	if p.history == nil || snap.Playback == nil || !snap.Playback.IsPlaying {
		return
	}
	track := snap.Playback.Track
	if track.ID == "" {
		return
	}

	p.mu.Lock()
	last := p.lastTrack[connID]
	if last == track.ID {
		p.mu.Unlock()
		return
	}
	p.lastTrack[connID] = track.ID
	p.mu.Unlock()

	artist := ""
	if len(track.Artists) > 0 {
		artist = track.Artists[0]
	}
	rec := &models.PlayRecord{
		ConnectionID: connID,
		TrackID:      track.ID,
		Title:        track.Name,
		Artist:       artist,
		Album:        track.Album,
		StartedAt:    time.Now().UTC(),
	}
	if err := p.history.InsertPlay(rec); err != nil {
		log.Printf("recording play %q for %s: %v", track.Name, connID, err)
	}
}
