package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	cfg, err := loadConfig(os.Args[1:], os.LookupEnv)
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	obs, err := cfg.NewObservabilityConfig(os.Stderr)
	if err != nil {
		cancel()
		log.Fatalf("Failed to set up observability: %v", err)
	}

	log.Printf("Configuration: log-mode=%s, log-backend=%s, observability=%t, service=%s, status-retry-attempts=%d",
		cfg.LogMode, cfg.LogBackend, cfg.ObservabilityEnabled, cfg.ServiceName, cfg.StatusRetryAttempts)

	a, err := newApp(cfg, obs, os.Stdout)
	if err != nil {
		cancel()
		log.Fatalf("Failed to wire the library: %v", err)
	}

	runErr := a.run(ctx)

	if err := obs.Shutdown(); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}

	if runErr != nil {
		cancel()
		log.Fatalf("Demo failed: %v", runErr)
	}
}
