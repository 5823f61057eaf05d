package server

import (
	"errors"
	"log"
	"net/http"

	"spotiui/internal/models"
)

// handleLogin starts the redirect flow for a live connection. The connection
// id arrives as socketId, the name the display client learned from its
// connection_ack.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	socketID := r.URL.Query().Get("socketId")
	if socketID == "" {
		http.Error(w, "Missing socketId", http.StatusBadRequest)
		return
	}

	authURL, err := s.broker.Begin(socketID)
	if err != nil {
		if errors.Is(err, models.ErrInvalidRequest) {
			http.Error(w, "Unknown socketId", http.StatusBadRequest)
			return
		}
		log.Printf("beginning authorization for %s: %v", socketID, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, authURL, http.StatusFound)
}

// handleCallback completes the redirect flow. The state token is consumed
// exactly once, before the code exchange, so a failed exchange still burns
// the token.
func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	if errParam := q.Get("error"); errParam != "" {
		writePlain(w, "Error: "+errParam)
		return
	}

	connID, err := s.broker.Consume(q.Get("state"))
	if err != nil {
		writePlain(w, "State mismatch or invalid state")
		return
	}

	cred, err := s.exchanger.ExchangeCode(r.Context(), q.Get("code"))
	if err != nil {
		log.Printf("code exchange for %s: %v", connID, err)
		writePlain(w, "Error during authentication")
		return
	}

	if err := s.relay.CompleteLogin(connID, cred); err != nil {
		// The display client went away mid-flow; nothing to deliver to.
		log.Printf("completing login for %s: %v", connID, err)
		writePlain(w, "Connection closed before login completed")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(connectedPage))
}

func writePlain(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(msg))
}

// connectedPage is shown in the user's browser after a successful login.
const connectedPage = `<html>
  <head>
    <meta name="viewport" content="width=device-width, initial-scale=1">
    <style>
      body { font-family: sans-serif; background: #121212; color: white; display: flex; justify-content: center; align-items: center; height: 100vh; text-align: center; }
      h1 { color: #1DB954; }
    </style>
  </head>
  <body>
    <div>
      <h1>Connected!</h1>
      <p>You can now control the music from the Kiosk.</p>
      <p>You can close this window.</p>
    </div>
  </body>
</html>`
