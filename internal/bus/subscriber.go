package bus

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

type MessageHandler func(ctx context.Context, msg jetstream.Msg) error
type ControlHandler func(msg *nats.Msg)

// Subscriber owns the JetStream connection used to consume ticks and
// calibration events, plus raw NATS subscribe for control commands.
type Subscriber struct {
	nc *nats.Conn
	js jetstream.JetStream
}

func NewSubscriber(natsURL string) (*Subscriber, error) {
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

	return &Subscriber{nc: nc, js: js}, nil
}

// ConsumeFrames starts consuming one session's capture frames. workerCount
// controls how many goroutines fetch and process concurrently.
func (s *Subscriber) ConsumeFrames(ctx context.Context, sessionID, consumerName string, handler MessageHandler, workerCount int) error {
	stream, err := s.js.Stream(ctx, FramesStreamName)
	if err != nil {
		return fmt.Errorf("get stream %s: %w", FramesStreamName, err)
	}

	cons, err := stream.CreateOrUpdateConsumer(ctx, jetstream.ConsumerConfig{
		Name:          consumerName,
		Durable:       consumerName,
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       5 * time.Second,
		MaxDeliver:    3,
		FilterSubject: fmt.Sprintf("%s.%s", FramesSubjectBase, sessionID),
	})
	if err != nil {
		return fmt.Errorf("create consumer %s: %w", consumerName, err)
	}

	msgCh := make(chan jetstream.Msg, workerCount*2)

	go func() {
		for {
			select {
			case <-ctx.Done():
				close(msgCh)
				return
			default:
			}

			batch, err := cons.Fetch(workerCount, jetstream.FetchMaxWait(5*time.Second))
			if err != nil {
				if ctx.Err() != nil {
					close(msgCh)
					return
				}
				slog.Warn("fetch frames error", "error", err)
				time.Sleep(time.Second)
				continue
			}

			for msg := range batch.Messages() {
				select {
				case msgCh <- msg:
				case <-ctx.Done():
					close(msgCh)
					return
				}
			}
		}
	}()

	for i := 0; i < workerCount; i++ {
		go func(workerID int) {
			for msg := range msgCh {
				if err := handler(ctx, msg); err != nil {
					slog.Error("process frame error", "worker", workerID, "error", err, "subject", msg.Subject())
					_ = msg.Nak()
				} else {
					_ = msg.Ack()
				}
			}
		}(i)
	}

	slog.Info("frame consumer started", "consumer", consumerName, "session", sessionID, "workers", workerCount)
	return nil
}

// ConsumeTicks starts consuming engine ticks across all sessions (for the
// gateway to fan out over WebSocket).
func (s *Subscriber) ConsumeTicks(ctx context.Context, consumerName string, handler MessageHandler) error {
	return s.consume(ctx, TicksStreamName, TicksSubjectBase+".>", consumerName, 10*time.Second, handler)
}

// ConsumeCalibrationEvents starts consuming calibration events across all
// sessions.
func (s *Subscriber) ConsumeCalibrationEvents(ctx context.Context, consumerName string, handler MessageHandler) error {
	return s.consume(ctx, CalibrationStreamName, CalibrationSubjectBase+".>", consumerName, 10*time.Second, handler)
}

func (s *Subscriber) consume(ctx context.Context, streamName, filterSubject, consumerName string, ackWait time.Duration, handler MessageHandler) error {
	stream, err := s.js.Stream(ctx, streamName)
	if err != nil {
		return fmt.Errorf("get stream %s: %w", streamName, err)
	}

	cons, err := stream.CreateOrUpdateConsumer(ctx, jetstream.ConsumerConfig{
		Name:          consumerName,
		Durable:       consumerName,
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       ackWait,
		MaxDeliver:    3,
		FilterSubject: filterSubject,
		DeliverPolicy: jetstream.DeliverNewPolicy,
	})
	if err != nil {
		return fmt.Errorf("create consumer %s: %w", consumerName, err)
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			batch, err := cons.Fetch(10, jetstream.FetchMaxWait(5*time.Second))
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				time.Sleep(time.Second)
				continue
			}

			for msg := range batch.Messages() {
				if err := handler(ctx, msg); err != nil {
					slog.Error("process message error", "stream", streamName, "error", err)
					_ = msg.Nak()
				} else {
					_ = msg.Ack()
				}
			}
		}
	}()

	slog.Info("consumer started", "consumer", consumerName, "stream", streamName)
	return nil
}

// SubscribeControl subscribes to control commands for a session, invoking
// handler for each raw NATS message (unacknowledged, fire-and-forget).
func (s *Subscriber) SubscribeControl(sessionID string, handler ControlHandler) (*nats.Subscription, error) {
	subject := fmt.Sprintf("%s.%s", ControlSubjectBase, sessionID)
	sub, err := s.nc.Subscribe(subject, handler)
	if err != nil {
		return nil, fmt.Errorf("subscribe control %s: %w", subject, err)
	}
	return sub, nil
}

func (s *Subscriber) Close() {
	s.nc.Close()
}
