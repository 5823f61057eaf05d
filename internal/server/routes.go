package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (s *Server) routes() {
	s.router.Get("/", s.handleIndex)
	s.router.Get("/login", s.handleLogin)
	s.router.Get("/callback", s.handleCallback)

	if s.hub != nil {
		s.router.Get("/ws", s.hub.ServeWS)
	}

	s.router.Route("/api", func(r chi.Router) {
		r.Use(jsonContentType)
		r.Use(corsMiddleware(s.corsOrigin))

		r.Get("/health", s.handleHealth)
		r.Get("/history", s.handleHistory)
	})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("SpotiUI API is running"))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.store != nil {
		if err := s.store.Ping(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"error"}`))
			return
		}
	}
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
