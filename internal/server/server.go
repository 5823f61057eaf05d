package server

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"spotiui/internal/hub"
	"spotiui/internal/models"
	"spotiui/internal/store"
)

// AuthBroker issues and consumes one-time authorization state tokens.
// Satisfied by *authflow.Correlator.
type AuthBroker interface {
	Begin(connID string) (string, error)
	Consume(state string) (string, error)
}

// Exchanger trades an authorization code for a credential.
type Exchanger interface {
	ExchangeCode(ctx context.Context, code string) (models.Credential, error)
}

// Relay finishes a redirect-flow login: stores the credential, notifies the
// connection, starts polling. Satisfied by *hub.Hub.
type Relay interface {
	CompleteLogin(connID string, cred models.Credential) error
}

type Server struct {
	router     chi.Router
	broker     AuthBroker
	exchanger  Exchanger
	relay      Relay
	hub        *hub.Hub
	store      *store.Store
	corsOrigin string
}

func NewServer(broker AuthBroker, exchanger Exchanger, relay Relay, opts ...Option) *Server {
	srv := &Server{
		router:    chi.NewRouter(),
		broker:    broker,
		exchanger: exchanger,
		relay:     relay,
	}
	for _, o := range opts {
		o(srv)
	}
	srv.router.Use(middleware.Logger)
	srv.router.Use(middleware.Recoverer)
	srv.routes()
	return srv
}

type Option func(*Server)

// WithHub exposes the websocket endpoint.
func WithHub(h *hub.Hub) Option {
	return func(s *Server) { s.hub = h }
}

func WithStore(st *store.Store) Option {
	return func(s *Server) { s.store = st }
}

func WithCORSOrigin(origin string) Option {
	return func(s *Server) { s.corsOrigin = origin }
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
