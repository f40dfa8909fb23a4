package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/bingohall/go/internal/room/engine"
	"github.com/mcdev12/bingohall/go/internal/room/gateway"
	"github.com/mcdev12/bingohall/go/internal/room/relay"
	"github.com/mcdev12/bingohall/go/internal/room/store"
)

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	// Setup logging
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if os.Getenv("LOG_LEVEL") == "debug" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	cfg, err := LoadConfig(getEnv("CONFIG_PATH", "config.yaml"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	// Persistence: Postgres when configured, in-memory otherwise
	var st store.Store
	if cfg.Database.Enabled {
		pg, err := store.NewPostgresStore(context.Background(), cfg.Database.DSN())
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to database")
		}
		st = pg
		log.Info().Str("database", cfg.Database.Name).Msg("using postgres store")
	} else {
		st = store.NewMemoryStore()
		log.Info().Msg("using in-memory store")
	}
	defer st.Close()

	// Optional JetStream mirror of committed room events
	var publisher engine.Publisher
	if cfg.NATS.Enabled {
		jsCfg := relay.DefaultJetStreamConfig()
		jsCfg.URL = cfg.NATS.URL
		jsRelay, err := relay.NewJetStreamRelay(jsCfg)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to NATS")
		}
		defer jsRelay.Close()
		publisher = jsRelay
		log.Info().Str("nats_url", cfg.NATS.URL).Msg("relaying room events to JetStream")
	}

	manager := gateway.NewConnectionManager(gateway.DefaultConnectionConfig())
	registry := engine.NewRegistry(engine.RegistryConfig{
		Broadcaster: manager,
		Publisher:   publisher,
	})
	defer registry.Close()

	service := gateway.NewService(registry, manager, st)

	mux := http.NewServeMux()
	service.RegisterRoutes(mux)

	handler := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost},
		AllowedHeaders:   []string{"Content-Type", "X-Admin-Token"},
		AllowCredentials: true,
	}).Handler(mux)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Janitor: close rooms past their hard lifetime cap and sweep their
	// persisted records
	go func() {
		ticker := time.NewTicker(cfg.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				registry.SweepExpired(ctx)
				if n, err := st.DeleteExpiredRooms(ctx, time.Now()); err != nil {
					log.Error().Err(err).Msg("store sweep failed")
				} else if n > 0 {
					log.Info().Int("rooms", n).Msg("swept expired room records")
				}
			}
		}
	}()

	go func() {
		log.Info().Str("addr", server.Addr).Msg("room server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan

	log.Info().Str("signal", sig.String()).Msg("received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}
	cancel()

	log.Info().Msg("room server shutdown complete")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
