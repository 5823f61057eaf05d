package config

import (
	"strings"
	"testing"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("SPOTIFY_CLIENT_ID", "id")
	t.Setenv("SPOTIFY_CLIENT_SECRET", "secret")
	t.Setenv("SPOTIFY_REDIRECT_URI", "http://localhost:3001/callback")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)
	t.Setenv("LISTEN_ADDR", "")
	t.Setenv("DB_PATH", "")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ListenAddr != ":3001" {
		t.Errorf("listen addr = %q, want :3001", cfg.ListenAddr)
	}
	if cfg.DBPath != "./data/spotiui.db" {
		t.Errorf("db path = %q", cfg.DBPath)
	}
}

func TestLoadMissingRequired(t *testing.T) {
	setRequired(t)
	t.Setenv("SPOTIFY_CLIENT_SECRET", "")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error for missing client secret")
	}
	if !strings.Contains(err.Error(), "SPOTIFY_CLIENT_SECRET") {
		t.Errorf("error %q should name the missing variable", err)
	}
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("LISTEN_ADDR", ":9000")
	t.Setenv("CORS_ORIGIN", "https://kiosk.example")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ListenAddr != ":9000" {
		t.Errorf("listen addr = %q, want :9000", cfg.ListenAddr)
	}
	if cfg.CORSOrigin != "https://kiosk.example" {
		t.Errorf("cors origin = %q", cfg.CORSOrigin)
	}
}
