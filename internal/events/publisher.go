package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"
)

// Publisher provides typed methods for publishing audit events to
// JetStream.
type Publisher struct {
	js jetstream.JetStream
}

func NewPublisher(js jetstream.JetStream) *Publisher {
	return &Publisher{js: js}
}

func (p *Publisher) PublishMemoryStored(ctx context.Context, ev MemoryStored) error {
	ev.Timestamp = time.Now().UTC()
	return p.publish(ctx, SubjectMemoryStored, ev)
}

func (p *Publisher) PublishMemoryForgotten(ctx context.Context, ev MemoryForgotten) error {
	ev.Timestamp = time.Now().UTC()
	return p.publish(ctx, SubjectMemoryForgotten, ev)
}

func (p *Publisher) PublishTurnRecorded(ctx context.Context, ev TurnRecorded) error {
	ev.Timestamp = time.Now().UTC()
	return p.publish(ctx, SubjectTurnRecorded, ev)
}

func (p *Publisher) publish(ctx context.Context, subject string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshaling event for %s: %w", subject, err)
	}
	_, err = p.js.Publish(ctx, subject, payload)
	if err != nil {
		return fmt.Errorf("publishing to %s: %w", subject, err)
	}
	return nil
}
