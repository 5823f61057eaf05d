// Package authflow correlates OAuth redirect callbacks with the live
// connection that initiated them, via one-time state tokens.
package authflow

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"spotiui/internal/models"
)

// Registry answers whether a connection id is currently live.
type Registry interface {
	Registered(connID string) bool
}

// URLBuilder renders the external authorize URL for a state token.
type URLBuilder interface {
	AuthURL(state string) string
}

const (
	// DefaultTTL bounds how long an unconsumed state token stays valid.
	DefaultTTL = 10 * time.Minute

	sweepInterval = time.Minute
)

type pending struct {
	connID    string
	createdAt time.Time
}

// Correlator issues one-time state tokens bound to connection ids and
// consumes each mapping exactly once on callback.
type Correlator struct {
	registry Registry
	urls     URLBuilder
	ttl      time.Duration
	now      func() time.Time

	mu     sync.Mutex
	states map[string]pending

	done      chan struct{}
	closeOnce sync.Once
}

type Option func(*Correlator)

func WithTTL(ttl time.Duration) Option {
	return func(c *Correlator) { c.ttl = ttl }
}

func withNow(now func() time.Time) Option {
	return func(c *Correlator) { c.now = now }
}

func New(registry Registry, urls URLBuilder, opts ...Option) *Correlator {
	c := &Correlator{
		registry: registry,
		urls:     urls,
		ttl:      DefaultTTL,
		now:      time.Now,
		states:   make(map[string]pending),
		done:     make(chan struct{}),
	}
	for _, o := range opts {
		o(c)
	}
	go c.sweep()
	return c
}

// Stop halts the expiry sweeper.
func (c *Correlator) Stop() {
	c.closeOnce.Do(func() { close(c.done) })
}

// Begin issues a fresh state token for the given connection and returns the
// authorize URL carrying it. The connection must be currently registered.
func (c *Correlator) Begin(connID string) (string, error) {
	if !c.registry.Registered(connID) {
		return "", fmt.Errorf("%w: connection %q is not registered", models.ErrInvalidRequest, connID)
	}

	state, err := generateState()
	if err != nil {
		return "", fmt.Errorf("generating state token: %w", err)
	}

	c.mu.Lock()
	c.states[state] = pending{connID: connID, createdAt: c.now()}
	c.mu.Unlock()

	return c.urls.AuthURL(state), nil
}

// Consume atomically looks up and removes the mapping for a state token,
// returning the originating connection id. A token is consumed exactly once:
// replays and forged callbacks get ErrStateMismatch.
func (c *Correlator) Consume(state string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.states[state]
	if !ok {
		return "", models.ErrStateMismatch
	}
	delete(c.states, state)

	if c.now().Sub(p.createdAt) > c.ttl {
		return "", models.ErrStateMismatch
	}
	return p.connID, nil
}

func (c *Correlator) sweep() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			cutoff := c.now().Add(-c.ttl)
			c.mu.Lock()
			for state, p := range c.states {
				if p.createdAt.Before(cutoff) {
					delete(c.states, state)
				}
			}
			c.mu.Unlock()
		}
	}
}

func generateState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
