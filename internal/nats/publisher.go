package nats

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go/jetstream"
)

// Publisher provides typed methods for publishing events to NATS JetStream.
type Publisher struct {
	js jetstream.JetStream
}

// NewPublisher creates a new Publisher.
func NewPublisher(js jetstream.JetStream) *Publisher {
	return &Publisher{js: js}
}

// PublishFetchResult publishes the outcome of a fetch cycle.
func (p *Publisher) PublishFetchResult(ctx context.Context, event FetchResultEvent) error {
	return p.publish(ctx, SubjectFetchEvent, event)
}

// PublishDecision publishes an enforcement checkpoint decision.
func (p *Publisher) PublishDecision(ctx context.Context, event DecisionEvent) error {
	return p.publish(ctx, SubjectDecisionEvent, event)
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
