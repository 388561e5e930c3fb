package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/zalo/manapotion/internal/server"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "config.yaml", "Path to configuration file (YAML or JSON)")
	listenAddr := flag.String("listen", "", "Web server listen address (overrides the config file)")
	maxSessions := flag.Int("max-sessions", -1, "Maximum concurrent pages, 0 for no limit (overrides the config file)")
	flag.Parse()

	cfg, err := server.LoadConfig(*configPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		log.Printf("No config at %s, using defaults", *configPath)
		cfg = server.DefaultConfig()
	case err != nil:
		log.Fatalf("Failed to load config: %v", err)
	}
	if *listenAddr != "" {
		cfg.ListenAddr = *listenAddr
	}
	if *maxSessions >= 0 {
		cfg.MaxSessions = *maxSessions
	}

	srv, err := server.New(cfg)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	// Handle shutdown signals
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Printf("Manapotion starting on %s", cfg.ListenAddr)

	if err := srv.Run(ctx); err != nil {
		log.Fatalf("Server error: %v", err)
	}
	log.Println("Shut down")
}
