package poller

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"spotiui/internal/models"
)

type fakeFetcher struct {
	mu      sync.Mutex
	calls   int
	err     error
	block   chan struct{} // when set, FetchSnapshot waits on it
	snap    models.PlaybackSnapshot
	perCred map[string]error // error keyed by access token
}

func (f *fakeFetcher) FetchSnapshot(ctx context.Context, cred models.Credential) (models.PlaybackSnapshot, error) {
	f.mu.Lock()
	f.calls++
	err := f.err
	if f.perCred != nil {
		err = f.perCred[cred.AccessToken]
	}
	block := f.block
	snap := f.snap
	f.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return models.PlaybackSnapshot{}, ctx.Err()
		}
	}
	if err != nil {
		return models.PlaybackSnapshot{}, err
	}
	return snap, nil
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeRouter struct {
	mu        sync.Mutex
	creds     map[string]models.Credential
	delivered map[string][]models.Event
	notify    chan string
}

func newFakeRouter() *fakeRouter {
	return &fakeRouter{
		creds:     make(map[string]models.Credential),
		delivered: make(map[string][]models.Event),
		notify:    make(chan string, 64),
	}
}

func (r *fakeRouter) Credential(id string) (models.Credential, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.creds[id]
	return c, ok
}

func (r *fakeRouter) setCredential(id string, c models.Credential) {
	r.mu.Lock()
	r.creds[id] = c
	r.mu.Unlock()
}

func (r *fakeRouter) dropCredential(id string) {
	r.mu.Lock()
	delete(r.creds, id)
	r.mu.Unlock()
}

func (r *fakeRouter) Deliver(id string, ev models.Event) bool {
	r.mu.Lock()
	r.delivered[id] = append(r.delivered[id], ev)
	r.mu.Unlock()
	select {
	case r.notify <- id:
	default:
	}
	return true
}

func (r *fakeRouter) deliveredTo(id string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.delivered[id])
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestStartDeliversWithinOnePeriod(t *testing.T) {
	f := &fakeFetcher{}
	r := newFakeRouter()
	p := New(f, WithPeriod(50*time.Millisecond))
	p.Bind(r)
	defer p.StopAll()

	r.setCredential("c1", models.Credential{AccessToken: "tok"})
	p.Start("c1", models.Credential{AccessToken: "tok"})

	waitFor(t, time.Second, func() bool { return r.deliveredTo("c1") >= 1 })

	r.mu.Lock()
	ev := r.delivered["c1"][0]
	r.mu.Unlock()
	if ev.Type != models.EventPlaybackUpdate {
		t.Errorf("event type = %q, want playback_update", ev.Type)
	}
}

func TestAtMostOneTaskPerConnection(t *testing.T) {
	f := &fakeFetcher{}
	r := newFakeRouter()
	p := New(f, WithPeriod(20*time.Millisecond))
	p.Bind(r)
	defer p.StopAll()

	r.setCredential("c1", models.Credential{AccessToken: "tok"})
	for i := 0; i < 10; i++ {
		p.Start("c1", models.Credential{AccessToken: "tok"})
	}

	if got := p.Active(); got != 1 {
		t.Fatalf("active tasks = %d, want 1", got)
	}

	// Let the cancelled loops drain, then verify the fetch rate is bounded
	// by a single loop's period.
	time.Sleep(50 * time.Millisecond)
	f.mu.Lock()
	f.calls = 0
	f.mu.Unlock()
	time.Sleep(110 * time.Millisecond)
	if calls := f.callCount(); calls > 8 {
		t.Errorf("fetch count = %d over ~5 periods, suggests duplicate loops", calls)
	}
}

func TestFailedTickKeepsLoopRunning(t *testing.T) {
	f := &fakeFetcher{err: errors.New("rate limited")}
	r := newFakeRouter()
	p := New(f, WithPeriod(20*time.Millisecond))
	p.Bind(r)
	defer p.StopAll()

	r.setCredential("c1", models.Credential{AccessToken: "tok"})
	p.Start("c1", models.Credential{AccessToken: "tok"})

	waitFor(t, time.Second, func() bool { return f.callCount() >= 3 })
	if r.deliveredTo("c1") != 0 {
		t.Error("failed ticks must not deliver updates")
	}

	// Upstream recovers; the loop self-heals.
	f.mu.Lock()
	f.err = nil
	f.mu.Unlock()
	waitFor(t, time.Second, func() bool { return r.deliveredTo("c1") >= 1 })
}

func TestFailureIsolatedPerConnection(t *testing.T) {
	f := &fakeFetcher{perCred: map[string]error{"tok-x": errors.New("boom")}}
	r := newFakeRouter()
	p := New(f, WithPeriod(20*time.Millisecond))
	p.Bind(r)
	defer p.StopAll()

	r.setCredential("x", models.Credential{AccessToken: "tok-x"})
	r.setCredential("y", models.Credential{AccessToken: "tok-y"})
	p.Start("x", models.Credential{AccessToken: "tok-x"})
	p.Start("y", models.Credential{AccessToken: "tok-y"})

	waitFor(t, time.Second, func() bool { return r.deliveredTo("y") >= 3 })
	if r.deliveredTo("x") != 0 {
		t.Error("x's failing ticks should deliver nothing")
	}
}

func TestStopPreventsDeliveryFromInFlightTick(t *testing.T) {
	block := make(chan struct{})
	f := &fakeFetcher{block: block}
	r := newFakeRouter()
	p := New(f, WithPeriod(20*time.Millisecond))
	p.Bind(r)

	r.setCredential("c1", models.Credential{AccessToken: "tok"})
	p.Start("c1", models.Credential{AccessToken: "tok"})

	// Wait until the first tick is in flight, then tear the connection down.
	waitFor(t, time.Second, func() bool { return f.callCount() >= 1 })
	p.Stop("c1")
	r.dropCredential("c1")
	close(block)

	time.Sleep(50 * time.Millisecond)
	if n := r.deliveredTo("c1"); n != 0 {
		t.Errorf("delivered %d events after stop, want 0", n)
	}
	if p.Active() != 0 {
		t.Errorf("active tasks = %d after stop", p.Active())
	}
}

func TestStopWithoutTaskIsNoOp(t *testing.T) {
	p := New(&fakeFetcher{})
	p.Stop("never-started") // must not panic or error
}

func TestTickReadsCurrentCredential(t *testing.T) {
	f := &fakeFetcher{}
	r := newFakeRouter()
	p := New(f, WithPeriod(20*time.Millisecond))
	p.Bind(r)
	defer p.StopAll()

	r.setCredential("c1", models.Credential{AccessToken: "old"})
	p.Start("c1", models.Credential{AccessToken: "old"})
	waitFor(t, time.Second, func() bool { return r.deliveredTo("c1") >= 1 })

	// Replace the credential; subsequent ticks must observe it.
	r.setCredential("c1", models.Credential{AccessToken: "new"})
	var sawNew bool
	f.mu.Lock()
	f.perCred = map[string]error{"old": errors.New("expired")}
	f.mu.Unlock()

	waitFor(t, time.Second, func() bool {
		// Delivery resumes only once ticks use the new token.
		before := r.deliveredTo("c1")
		time.Sleep(30 * time.Millisecond)
		sawNew = r.deliveredTo("c1") > before
		return sawNew
	})
}

type countingHistory struct {
	mu   sync.Mutex
	recs []*models.PlayRecord
}

func (h *countingHistory) InsertPlay(rec *models.PlayRecord) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.recs = append(h.recs, rec)
	return nil
}

func (h *countingHistory) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.recs)
}

func TestHistoryRecordsTrackChangesOnly(t *testing.T) {
	h := &countingHistory{}
	f := &fakeFetcher{snap: models.PlaybackSnapshot{
		Playback: &models.PlaybackState{
			IsPlaying: true,
			Track:     models.Track{ID: "t1", Name: "Song", Artists: []string{"A"}},
		},
	}}
	r := newFakeRouter()
	p := New(f, WithPeriod(10*time.Millisecond), WithHistory(h))
	p.Bind(r)
	defer p.StopAll()

	r.setCredential("c1", models.Credential{AccessToken: "tok"})
	p.Start("c1", models.Credential{AccessToken: "tok"})

	waitFor(t, time.Second, func() bool { return f.callCount() >= 4 })
	if got := h.count(); got != 1 {
		t.Errorf("history rows = %d, want 1 for an unchanged track", got)
	}

	f.mu.Lock()
	f.snap.Playback = &models.PlaybackState{
		IsPlaying: true,
		Track:     models.Track{ID: "t2", Name: "Other", Artists: []string{"B"}},
	}
	f.mu.Unlock()

	waitFor(t, time.Second, func() bool { return h.count() == 2 })
}
