// Package bus generalizes the teacher's NATS JetStream pub/sub onto the
// posture pipeline's message flows: capture frames and control commands
// flowing in from the gateway to the engine, and engine ticks/calibration
// events flowing out to the gateway.
package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

const (
	FramesStreamName       = "FRAMES"
	FramesSubjectBase      = "frames"
	TicksStreamName        = "TICKS"
	TicksSubjectBase       = "ticks"
	CalibrationStreamName  = "CALIBRATION_EVENTS"
	CalibrationSubjectBase = "calibration"
	ControlSubjectBase     = "engine.control"
)

// Publisher owns the JetStream connection used to publish ticks and
// calibration events, plus raw NATS publish for control commands.
type Publisher struct {
	nc *nats.Conn
	js jetstream.JetStream
}

func NewPublisher(natsURL string) (*Publisher, error) {
	nc, err := nats.Connect(natsURL,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		return nil, fmt.Errorf("create jetstream context: %w", err)
	}

	return &Publisher{nc: nc, js: js}, nil
}

// EnsureStreams creates the JetStream streams if they don't exist, retrying
// to absorb NATS startup delay.
func (p *Publisher) EnsureStreams(ctx context.Context) error {
	streams := []jetstream.StreamConfig{
		{
			Name:        FramesStreamName,
			Subjects:    []string{FramesSubjectBase + ".>"},
			Retention:   jetstream.WorkQueuePolicy,
			MaxAge:      30 * time.Second,
			MaxMsgs:     50000,
			MaxBytes:    512 * 1024 * 1024,
			Storage:     jetstream.FileStorage,
			Discard:     jetstream.DiscardOld,
			Duplicates:  5 * time.Second,
			Description: "Raw capture frames awaiting engine processing",
		},
		{
			Name:        TicksStreamName,
			Subjects:    []string{TicksSubjectBase + ".>"},
			Retention:   jetstream.LimitsPolicy,
			MaxAge:      5 * time.Minute,
			MaxMsgs:     200000,
			Storage:     jetstream.FileStorage,
			Discard:     jetstream.DiscardOld,
			Description: "Per-frame posture engine ticks",
		},
		{
			Name:        CalibrationStreamName,
			Subjects:    []string{CalibrationSubjectBase + ".>"},
			Retention:   jetstream.InterestPolicy,
			MaxAge:      24 * time.Hour,
			MaxMsgs:     100000,
			Storage:     jetstream.FileStorage,
			Description: "Calibration progress/complete/failed events",
		},
	}

	const maxAttempts = 30
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		allOK := true
		for _, cfg := range streams {
			opCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			_, err := p.js.CreateOrUpdateStream(opCtx, cfg)
			cancel()
			if err != nil {
				allOK = false
				if attempt == maxAttempts {
					return fmt.Errorf("create stream %s: %w (after %d attempts)", cfg.Name, err, maxAttempts)
				}
				slog.Warn("ensure NATS stream (retrying...)", "name", cfg.Name, "attempt", attempt, "error", err)
				break
			}
			slog.Info("ensured NATS stream", "name", cfg.Name)
		}
		if allOK {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(1 * time.Second):
		}
	}
	return nil
}

// PublishFrame publishes one capture frame for a session onto the frames
// stream, for the owning engine process to consume.
func (p *Publisher) PublishFrame(ctx context.Context, sessionID string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal frame: %w", err)
	}
	subject := fmt.Sprintf("%s.%s", FramesSubjectBase, sessionID)
	if _, err := p.js.Publish(ctx, subject, payload); err != nil {
		return fmt.Errorf("publish frame: %w", err)
	}
	return nil
}

// PublishTick publishes one engine tick for a session onto the ticks stream.
func (p *Publisher) PublishTick(ctx context.Context, sessionID string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal tick: %w", err)
	}
	subject := fmt.Sprintf("%s.%s", TicksSubjectBase, sessionID)
	if _, err := p.js.Publish(ctx, subject, payload); err != nil {
		return fmt.Errorf("publish tick: %w", err)
	}
	return nil
}

// PublishCalibrationEvent publishes a calibration progress/complete/failed
// event for a session.
func (p *Publisher) PublishCalibrationEvent(ctx context.Context, sessionID string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal calibration event: %w", err)
	}
	subject := fmt.Sprintf("%s.%s", CalibrationSubjectBase, sessionID)
	if _, err := p.js.Publish(ctx, subject, payload); err != nil {
		return fmt.Errorf("publish calibration event: %w", err)
	}
	return nil
}

// PublishControl sends a control command (pause/resume/calibration
// start/cancel) to a session's engine via raw NATS, mirroring the teacher's
// "stream.control" fire-and-forget command channel.
func (p *Publisher) PublishControl(sessionID string, data []byte) error {
	subject := fmt.Sprintf("%s.%s", ControlSubjectBase, sessionID)
	return p.nc.Publish(subject, data)
}

func (p *Publisher) Ping() error {
	if !p.nc.IsConnected() {
		return fmt.Errorf("nats not connected")
	}
	return nil
}

func (p *Publisher) Close() {
	p.nc.Close()
}
