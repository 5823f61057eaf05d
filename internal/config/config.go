package config

import (
	"fmt"
	"os"
)

// Config holds everything read from the environment at startup.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	ListenAddr   string
	DBPath       string
	CORSOrigin   string
}

const (
	defaultListenAddr = ":3001"
	defaultDBPath     = "./data/spotiui.db"
)

// Load reads configuration from the environment. The Spotify client id,
// client secret, and redirect URI are required; a missing one is a startup
// error so the process fails fast rather than limping along unauthorized.
func Load() (Config, error) {
	cfg := Config{
		ClientID:     os.Getenv("SPOTIFY_CLIENT_ID"),
		ClientSecret: os.Getenv("SPOTIFY_CLIENT_SECRET"),
		RedirectURI:  os.Getenv("SPOTIFY_REDIRECT_URI"),
		ListenAddr:   envOr("LISTEN_ADDR", defaultListenAddr),
		DBPath:       envOr("DB_PATH", defaultDBPath),
		CORSOrigin:   os.Getenv("CORS_ORIGIN"),
	}

	var missing []string
	if cfg.ClientID == "" {
		missing = append(missing, "SPOTIFY_CLIENT_ID")
	}
	if cfg.ClientSecret == "" {
		missing = append(missing, "SPOTIFY_CLIENT_SECRET")
	}
	if cfg.RedirectURI == "" {
		missing = append(missing, "SPOTIFY_REDIRECT_URI")
	}
	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required environment variables: %v", missing)
	}

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
