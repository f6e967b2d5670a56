package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sso-broker/internal/auth"
	"sso-broker/internal/auth/providers"
	"sso-broker/internal/middleware"
	"sso-broker/internal/server"
	"sso-broker/internal/shared/config"
	"sso-broker/internal/shared/cookies"
	"sso-broker/internal/shared/logger"
	"sso-broker/internal/shared/redis"
)

func main() {
	if err := config.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize config: %v\n", err)
		os.Exit(1)
	}

	cfg := config.GlobalConfig
	logger.Init(cfg)

	if err := run(cfg); err != nil {
		slog.Error("Server stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	log := slog.With("component", "main")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	states, closeStates, err := newStateStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStates()

	registry := providers.NewRegistry(ctx, credentials(cfg), providers.Options{
		HTTPClient: &http.Client{Timeout: cfg.OAuth.HTTPTimeout},
	})

	sessions, err := auth.NewSessionIssuer(cfg.Auth.SigningSecret, cfg.Auth.Issuer, cfg.Auth.TokenExpiration)
	if err != nil {
		return fmt.Errorf("failed to create session issuer: %w", err)
	}

	broker := auth.NewBroker(registry, states, sessions, auth.BrokerConfig{
		RedirectURIs: map[providers.Name]string{
			providers.Google:    cfg.OAuth.Google.RedirectURL,
			providers.GitHub:    cfg.OAuth.GitHub.RedirectURL,
			providers.Microsoft: cfg.OAuth.Microsoft.RedirectURL,
		},
		ExchangeTimeout: cfg.OAuth.ExchangeTimeout,
	})

	deliveries, err := auth.NewDeliveries(cfg.Frontend.URL, auth.DeliveryMode(cfg.Delivery.Mode))
	if err != nil {
		return fmt.Errorf("failed to configure delivery: %w", err)
	}

	routes := server.NewRoutes(
		broker,
		deliveries,
		states,
		cookies.NewSettings(cfg),
		middleware.NewCORS(cfg.Frontend),
		middleware.NewRateLimiter(ctx, cfg.RateLimit),
	)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      routes.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("SSO broker starting",
			"port", cfg.Server.Port,
			"environment", cfg.Server.Environment,
			"state_backend", cfg.State.Backend,
			"delivery_mode", cfg.Delivery.Mode,
			"providers", registry.Configured())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	log.Info("Server stopped")
	return nil
}

// newStateStore returns the configured backend and a function releasing it.
// The memory store's sweeper runs until ctx is cancelled.
func newStateStore(ctx context.Context, cfg *config.Config) (auth.StateStore, func(), error) {
	switch cfg.State.Backend {
	case "redis":
		client, err := redis.Connect(ctx, cfg)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		closeClient := func() {
			if err := client.Close(); err != nil {
				slog.Warn("Failed to close Redis connection", "error", err)
			}
		}
		return auth.NewRedisStateStore(client.Client, cfg.State.TTL), closeClient, nil
	default:
		store := auth.NewMemoryStateStore(cfg.State.TTL)
		go store.Start(ctx)
		return store, func() {}, nil
	}
}

func credentials(cfg *config.Config) map[providers.Name]providers.Credentials {
	return map[providers.Name]providers.Credentials{
		providers.Google: {
			ClientID:     cfg.OAuth.Google.ClientID,
			ClientSecret: cfg.OAuth.Google.ClientSecret,
		},
		providers.GitHub: {
			ClientID:     cfg.OAuth.GitHub.ClientID,
			ClientSecret: cfg.OAuth.GitHub.ClientSecret,
		},
		providers.Microsoft: {
			ClientID:     cfg.OAuth.Microsoft.ClientID,
			ClientSecret: cfg.OAuth.Microsoft.ClientSecret,
		},
	}
}
