// Package queue mirrors audit events onto NATS JetStream for downstream
// consumers (the administrative panel reads attendance history from it).
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/your-org/presenca/internal/audit"
)

const (
	auditStreamName  = "PRESENCA_AUDIT"
	auditSubjectBase = "presenca.audit"
)

// Publisher publishes audit entries to JetStream. It implements audit.Sink.
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
		nc.Close()
		return nil, fmt.Errorf("create jetstream context: %w", err)
	}

	return &Publisher{nc: nc, js: js}, nil
}

// EnsureStream creates the audit stream if it doesn't exist.
func (p *Publisher) EnsureStream(ctx context.Context) error {
	_, err := p.js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:        auditStreamName,
		Subjects:    []string{auditSubjectBase + ".>"},
		Retention:   jetstream.InterestPolicy,
		MaxAge:      30 * 24 * time.Hour,
		Storage:     jetstream.FileStorage,
		Description: "Facial attendance audit events",
	})
	if err != nil {
		return fmt.Errorf("ensure stream %s: %w", auditStreamName, err)
	}
	return nil
}

// Publish sends one audit entry, subject-keyed by action.
func (p *Publisher) Publish(ctx context.Context, entry audit.Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal audit entry: %w", err)
	}

	subject := auditSubjectBase + "." + entry.Action
	if _, err := p.js.Publish(ctx, subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}

// Ping checks NATS connectivity.
func (p *Publisher) Ping() error {
	if !p.nc.IsConnected() {
		return fmt.Errorf("nats not connected")
	}
	return nil
}

func (p *Publisher) Close() {
	p.nc.Close()
}
