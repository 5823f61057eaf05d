package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"spotiui/internal/authflow"
	"spotiui/internal/config"
	"spotiui/internal/hub"
	"spotiui/internal/poller"
	"spotiui/internal/server"
	"spotiui/internal/spotify"
	"spotiui/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("loading configuration: %v", err)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
		log.Fatal(err)
	}
	st, err := store.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("opening database: %v", err)
	}
	defer st.Close()

	adapter := spotify.New(cfg.ClientID, cfg.ClientSecret, cfg.RedirectURI)

	p := poller.New(adapter, poller.WithHistory(st))
	h := hub.New(adapter, p)
	p.Bind(h)
	defer p.StopAll()
	defer h.Close()

	correlator := authflow.New(h, adapter)
	defer correlator.Stop()

	srv := server.NewServer(correlator, adapter, h,
		server.WithHub(h),
		server.WithStore(st),
		server.WithCORSOrigin(cfg.CORSOrigin),
	)

	httpServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("SpotiUI listening on %s", cfg.ListenAddr)
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatal(err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
