package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/posture-coach/engine/internal/api"
	"github.com/posture-coach/engine/internal/api/ws"
	"github.com/posture-coach/engine/internal/bus"
	"github.com/posture-coach/engine/internal/config"
	"github.com/posture-coach/engine/internal/models"
	"github.com/posture-coach/engine/internal/observability"
	"github.com/posture-coach/engine/internal/storage"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	observability.SetupLogger(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("starting posture gateway", "port", cfg.Server.Port)

	db, err := storage.NewPostgresStore(cfg.Database)
	if err != nil {
		slog.Error("connect to postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	publisher, err := bus.NewPublisher(cfg.NATS.URL)
	if err != nil {
		slog.Error("connect to nats publisher", "error", err)
		os.Exit(1)
	}
	defer publisher.Close()

	if err := publisher.EnsureStreams(context.Background()); err != nil {
		slog.Warn("ensure nats streams", "error", err)
	}

	subscriber, err := bus.NewSubscriber(cfg.NATS.URL)
	if err != nil {
		slog.Error("connect to nats subscriber", "error", err)
		os.Exit(1)
	}
	defer subscriber.Close()

	liveConfig := config.NewStore()

	hub := ws.NewHub()
	go hub.Run()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err = subscriber.ConsumeTicks(ctx, "gateway-ticks", func(ctx context.Context, msg jetstream.Msg) error {
		sessionID := strings.TrimPrefix(msg.Subject(), bus.TicksSubjectBase+".")

		var tick models.EngineTick
		if err := json.Unmarshal(msg.Data(), &tick); err != nil {
			slog.Error("decode tick", "error", err)
			return nil
		}

		hub.BroadcastTick(sessionID, &tick)
		return nil
	})
	if err != nil {
		slog.Warn("start tick consumer", "error", err)
	}

	router := api.NewRouter(api.RouterConfig{
		APIKey:    cfg.Server.APIKey,
		DB:        db,
		Store:     liveConfig,
		Publisher: publisher,
		Hub:       hub,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("gateway listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down gateway...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	slog.Info("gateway stopped")
}
