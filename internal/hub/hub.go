// Package hub tracks live display-client connections, routes inbound
// authenticate events, and pushes outbound events to the right connection.
package hub

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"spotiui/internal/models"
)

// Keepalive timings the kiosk clients expect: a ping every 25 s, peers
// considered gone after 60 s without a pong.
const (
	pingInterval = 25 * time.Second
	pongWait     = 60 * time.Second
	writeWait    = 10 * time.Second

	sendBuffer = 16

	authenticateTimeout = 15 * time.Second
)

// Scheduler starts and stops the polling loop for a connection. Satisfied by
// *poller.Poller.
type Scheduler interface {
	Start(connID string, cred models.Credential)
	Stop(connID string)
}

// TokenRefresher turns a refresh token into a fresh credential. Satisfied by
// the Spotify adapter.
type TokenRefresher interface {
	RefreshAccess(ctx context.Context, refreshToken string) (models.Credential, error)
}

// Hub is the connection registry and event router. Each live websocket gets
// an opaque uuid connection id; all per-connection state (credential, polling
// task) is keyed by that id and torn down on disconnect.
type Hub struct {
	refresher TokenRefresher
	sched     Scheduler
	upgrader  websocket.Upgrader

	mu    sync.RWMutex
	conns map[string]*connection
	creds map[string]models.Credential
}

func New(refresher TokenRefresher, sched Scheduler) *Hub {
	return &Hub{
		refresher: refresher,
		sched:     sched,
		upgrader: websocket.Upgrader{
			// Display clients connect from arbitrary kiosk origins.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		conns: make(map[string]*connection),
		creds: make(map[string]models.Credential),
	}
}

// ServeWS upgrades the request, registers the connection, and services it
// until the peer goes away.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade: %v", err)
		return
	}

	id := uuid.NewString()
	c := newConnection(id, ws)

	h.mu.Lock()
	h.conns[id] = c
	h.mu.Unlock()
	log.Printf("client connected: %s", id)

	// The ack is enqueued before the writer drains anything, so the client
	// learns its id first.
	c.enqueue(models.Event{
		Type:    models.EventConnectionAck,
		Payload: models.ConnectionAck{ConnectionID: id},
	})

	go c.writeLoop()
	h.readLoop(c)
	h.Disconnect(id)
}

// Registered reports whether the connection id names a live connection.
func (h *Hub) Registered(connID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.conns[connID]
	return ok
}

// Credential returns the current credential for a connection.
func (h *Hub) Credential(connID string) (models.Credential, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	cred, ok := h.creds[connID]
	return cred, ok
}

// SetCredential binds a credential to a live connection, replacing any prior
// one. Fails with ErrUnknownConnection if the connection is gone.
func (h *Hub) SetCredential(connID string, cred models.Credential) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.conns[connID]; !ok {
		return fmt.Errorf("%w: %s", models.ErrUnknownConnection, connID)
	}
	h.creds[connID] = cred
	return nil
}

// Deliver pushes an event to the named connection, best effort. Unknown ids
// are a silent drop: the connection's teardown already cancelled whatever
// produced the event.
func (h *Hub) Deliver(connID string, ev models.Event) bool {
	h.mu.RLock()
	c, ok := h.conns[connID]
	h.mu.RUnlock()
	if !ok {
		return false
	}
	return c.enqueue(ev)
}

// CompleteLogin binds a redirect-flow credential to its originating
// connection, emits login_success with the token pair, and starts polling.
func (h *Hub) CompleteLogin(connID string, cred models.Credential) error {
	return h.completeAuth(connID, cred, models.LoginSuccess{
		AccessToken:  cred.AccessToken,
		RefreshToken: cred.RefreshToken,
	})
}

// Authenticate handles the direct-token flow for returning sessions. With a
// refresh token the credential is rebuilt upstream; with only an access token
// it is used as-is (short-lived). With neither the attempt is rejected
// outright rather than attempting an exchange guaranteed to fail.
// A failed attempt leaves the connection in its prior state.
func (h *Hub) Authenticate(ctx context.Context, connID, accessToken, refreshToken string) error {
	if !h.Registered(connID) {
		return fmt.Errorf("%w: %s", models.ErrUnknownConnection, connID)
	}

	var cred models.Credential
	switch {
	case refreshToken != "":
		var err error
		cred, err = h.refresher.RefreshAccess(ctx, refreshToken)
		if err != nil {
			return fmt.Errorf("authenticating %s: %w", connID, err)
		}
	case accessToken != "":
		cred = models.Credential{AccessToken: accessToken}
	default:
		return fmt.Errorf("%w: authenticate with neither access nor refresh token", models.ErrInvalidRequest)
	}

	return h.completeAuth(connID, cred, models.LoginSuccess{Message: "Authenticated successfully"})
}

func (h *Hub) completeAuth(connID string, cred models.Credential, payload models.LoginSuccess) error {
	if err := h.SetCredential(connID, cred); err != nil {
		return err
	}
	// login_success is enqueued before the polling task starts, so it is
	// observable before the first playback_update of this authentication.
	h.Deliver(connID, models.Event{Type: models.EventLoginSuccess, Payload: payload})
	if h.sched != nil {
		h.sched.Start(connID, cred)
	}
	return nil
}

// Disconnect tears down a connection: the polling task is stopped first, then
// the credential and registry entry are removed. Idempotent.
func (h *Hub) Disconnect(connID string) {
	if h.sched != nil {
		h.sched.Stop(connID)
	}

	h.mu.Lock()
	c, ok := h.conns[connID]
	delete(h.conns, connID)
	delete(h.creds, connID)
	h.mu.Unlock()

	if ok {
		c.close()
		log.Printf("client disconnected: %s", connID)
	}
}

// Close disconnects every live connection. For shutdown.
func (h *Hub) Close() {
	h.mu.RLock()
	ids := make([]string, 0, len(h.conns))
	for id := range h.conns {
		ids = append(ids, id)
	}
	h.mu.RUnlock()
	for _, id := range ids {
		h.Disconnect(id)
	}
}

func (h *Hub) readLoop(c *connection) {
	c.ws.SetReadLimit(1 << 16)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var ev inboundEvent
		if err := c.ws.ReadJSON(&ev); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("read from %s: %v", c.id, err)
			}
			return
		}
		h.dispatch(c.id, ev)
	}
}

func (h *Hub) dispatch(connID string, ev inboundEvent) {
	switch ev.Type {
	case models.EventAuthenticate:
		var payload models.AuthenticatePayload
		if err := ev.decode(&payload); err != nil {
			log.Printf("bad authenticate payload from %s: %v", connID, err)
			return
		}
		// The refresh call is a network round trip; run it off the read loop
		// so a slow upstream does not stall ping/pong handling.
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), authenticateTimeout)
			defer cancel()
			if err := h.Authenticate(ctx, connID, payload.AccessToken, payload.RefreshToken); err != nil {
				log.Printf("auth failed for %s: %v", connID, err)
			}
		}()
	default:
		log.Printf("unknown event %q from %s", ev.Type, connID)
	}
}
