// Package events streams prediction events to NATS JetStream.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

const (
	streamName    = "AGRIDOCTOR_PREDICTIONS"
	subjectPrefix = "agridoctor.predictions."
	schemaVersion = "1.0.0"
)

// Publisher announces stored predictions to downstream consumers.
type Publisher interface {
	// PublishPrediction emits a "<kind>.created" event carrying payload.
	PublishPrediction(ctx context.Context, kind string, payload any) error
	Close() error
}

// Envelope wraps every published payload.
type Envelope struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	Version    string    `json:"version"`
	OccurredAt time.Time `json:"occurred_at"`
	Payload    any       `json:"payload"`
}

// Subject returns the JetStream subject for a prediction kind.
func Subject(kind string) string {
	return subjectPrefix + kind + ".created"
}

// NewEnvelope stamps payload with a fresh ID and the current time.
func NewEnvelope(kind string, payload any) Envelope {
	return Envelope{
		ID:         uuid.NewString(),
		Type:       Subject(kind),
		Version:    schemaVersion,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	}
}

// Noop discards events. It is used when NATS is not configured.
type Noop struct{}

func (Noop) PublishPrediction(context.Context, string, any) error { return nil }
func (Noop) Close() error                                        { return nil }

type natsPublisher struct {
	nc *nats.Conn
	js nats.JetStreamContext
}

// NewPublisher connects to url and ensures the prediction stream exists. An empty url
// or any connection failure yields a Noop publisher.
func NewPublisher(url string) Publisher {
	if url == "" {
		return Noop{}
	}

	nc, err := nats.Connect(url, nats.Name("agridoctor-back"))
	if err != nil {
		slog.Warn("NATS connect failed, using noop publisher", "error", err)
		return Noop{}
	}

	js, err := nc.JetStream()
	if err != nil {
		slog.Warn("NATS JetStream context creation failed, using noop publisher", "error", err)
		nc.Close()
		return Noop{}
	}

	if err := initStream(js); err != nil {
		slog.Warn("NATS stream initialization failed, using noop publisher", "error", err)
		nc.Close()
		return Noop{}
	}

	slog.Info("NATS publisher ready", "stream", streamName)
	return &natsPublisher{nc: nc, js: js}
}

func initStream(js nats.JetStreamContext) error {
	_, err := js.AddStream(&nats.StreamConfig{
		Name:      streamName,
		Subjects:  []string{subjectPrefix + ">"},
		Retention: nats.LimitsPolicy,
		MaxAge:    7 * 24 * time.Hour,
		Discard:   nats.DiscardOld,
		Storage:   nats.FileStorage,
	})
	if err != nil {
		return fmt.Errorf("failed to create %s stream: %w", streamName, err)
	}
	return nil
}

func (p *natsPublisher) PublishPrediction(ctx context.Context, kind string, payload any) error {
	env := NewEnvelope(kind, payload)
	b, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	if _, err := p.js.Publish(env.Type, b, nats.Context(ctx), nats.MsgId(env.ID)); err != nil {
		return fmt.Errorf("failed to publish %s: %w", env.Type, err)
	}
	return nil
}

func (p *natsPublisher) Close() error {
	if p.nc != nil {
		return p.nc.Drain()
	}
	return nil
}
