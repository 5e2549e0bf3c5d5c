package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/posture-coach/engine/internal/aggregator"
	"github.com/posture-coach/engine/internal/bus"
	"github.com/posture-coach/engine/internal/calibration"
	"github.com/posture-coach/engine/internal/config"
	"github.com/posture-coach/engine/internal/engine"
	"github.com/posture-coach/engine/internal/models"
	"github.com/posture-coach/engine/internal/observability"
	"github.com/posture-coach/engine/internal/risk"
	"github.com/posture-coach/engine/internal/storage"
	"github.com/posture-coach/engine/pkg/dto"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	sessionID := flag.String("session", "default", "session id this engine process owns")
	userID := flag.String("user", "default", "user id this engine process runs on behalf of")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	observability.SetupLogger(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("starting posture engine", "session", *sessionID, "user", *userID)

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
	worker := engine.NewWorker(liveConfig)

	if rec, err := db.GetActiveCalibration(context.Background(), *userID); err != nil {
		slog.Warn("load active calibration", "error", err)
	} else if rec != nil {
		worker.InstallCalibration(engine.ActiveCalibration{
			Baseline: risk.Baseline{
				Pitch: rec.BaselinePitchDeg,
				EHD:   rec.BaselineEHD,
				DPR:   rec.BaselineDPR,
				Valid: true,
			},
			Thresholds: thresholdsFromRecord(*rec),
			Valid:      true,
		})
		slog.Info("installed persisted calibration", "quality", rec.Quality)
	}

	agg := aggregator.New(db, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	controlSub, err := subscriber.SubscribeControl(*sessionID, func(msg *nats.Msg) {
		handleControl(worker, msg)
	})
	if err != nil {
		slog.Error("subscribe control", "error", err)
		os.Exit(1)
	}
	defer controlSub.Unsubscribe()

	lastFrameAtMs := -1.0

	err = subscriber.ConsumeFrames(ctx, *sessionID, "engine-"+*sessionID, func(ctx context.Context, msg jetstream.Msg) error {
		var req dto.FrameIngestRequest
		if err := json.Unmarshal(msg.Data(), &req); err != nil {
			slog.Error("decode frame", "error", err)
			return nil // malformed frame; don't retry
		}

		nowMs := req.CapturedAt
		deltaSeconds := 1.0 / 30.0
		if lastFrameAtMs >= 0 && nowMs > lastFrameAtMs {
			deltaSeconds = (nowMs - lastFrameAtMs) / 1000.0
		}
		lastFrameAtMs = nowMs

		if worker.Paused() {
			return nil
		}

		frame := req.ToEngineFramePayload(nowMs)
		tick := worker.ProcessFrame(frame, deltaSeconds, nowMs)

		observability.TicksProcessed.WithLabelValues(*sessionID).Inc()
		observability.CurrentScore.WithLabelValues(*sessionID).Set(float64(tick.Score))

		if err := agg.Observe(ctx, tick); err != nil {
			slog.Error("aggregate tick", "error", err)
		}

		if err := publisher.PublishTick(ctx, *sessionID, tick); err != nil {
			slog.Error("publish tick", "error", err)
		}

		if events := worker.RunCalibrationStep(nowMs); events.Progress != nil || events.Complete != nil || events.Failed != nil {
			publishCalibrationEvents(ctx, publisher, db, *sessionID, *userID, worker, events)
		}

		return nil
	}, 1)
	if err != nil {
		slog.Error("start frame consumer", "error", err)
		os.Exit(1)
	}

	flushTicker := time.NewTicker(config.PersistenceInterval)
	defer flushTicker.Stop()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-flushTicker.C:
				if err := agg.Flush(ctx); err != nil {
					slog.Error("periodic flush", "error", err)
				}
			}
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down engine...")
	cancel()

	flushCtx, flushCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer flushCancel()
	if err := agg.Flush(flushCtx); err != nil {
		slog.Error("final flush", "error", err)
	}

	slog.Info("engine stopped")
}

func thresholdsFromRecord(rec models.PostureCalibrationRecord) risk.Thresholds {
	th := models.Thresholds{PitchDeg: 12, EHD: 0.18, DPR: 0.12}
	if rec.CustomPitchThreshold != nil {
		th.PitchDeg = *rec.CustomPitchThreshold
	}
	if rec.CustomEHDThreshold != nil {
		th.EHD = *rec.CustomEHDThreshold
	}
	if rec.CustomDPRThreshold != nil {
		th.DPR = *rec.CustomDPRThreshold
	}
	return risk.Thresholds{PitchThreshold: th.PitchDeg, EHDThreshold: th.EHD, DPRThreshold: th.DPR}
}

// publishCalibrationEvents publishes any calibration events produced this
// frame, installs a completed calibration into the live FSM and persists it
// so it survives a process restart.
func publishCalibrationEvents(ctx context.Context, publisher *bus.Publisher, db *storage.PostgresStore, sessionID, userID string, worker *engine.Worker, events calibration.Events) {
	if err := publisher.PublishCalibrationEvent(ctx, sessionID, dto.FromEvents(events)); err != nil {
		slog.Error("publish calibration event", "error", err)
	}

	if events.Complete == nil {
		return
	}

	worker.ApplyCalibration(*events.Complete)

	rec := models.PostureCalibrationRecord{
		ID:           uuid.NewString(),
		UserID:       userID,
		Baseline:     events.Complete.Baseline,
		Sensitivity:  events.Complete.Sensitivity,
		CalibratedAt: time.Now(),
		IsActive:     true,
	}
	if events.Complete.Sensitivity == models.SensitivityCustom {
		rec.CustomPitchThreshold = &events.Complete.Thresholds.PitchDeg
		rec.CustomEHDThreshold = &events.Complete.Thresholds.EHD
		rec.CustomDPRThreshold = &events.Complete.Thresholds.DPR
	}

	if err := db.UpsertActiveCalibration(ctx, rec); err != nil {
		slog.Error("persist calibration", "error", err)
	}
}

func handleControl(worker *engine.Worker, msg *nats.Msg) {
	var cmd dto.ControlCommand
	if err := json.Unmarshal(msg.Data, &cmd); err != nil {
		slog.Error("decode control command", "error", err)
		return
	}

	switch cmd.Type {
	case dto.ControlPause:
		worker.SetPaused(true)
	case dto.ControlResume:
		worker.SetPaused(false)
	case dto.ControlStartCalibration:
		opts := calibration.StartOptions{}
		if cmd.Calibration != nil {
			opts = cmd.Calibration.ToOptions()
		}
		worker.StartCalibration(opts, float64(time.Now().UnixMilli()))
	case dto.ControlCancelCalibration:
		worker.CancelCalibration()
	default:
		slog.Warn("unknown control command", "type", cmd.Type)
	}
}
