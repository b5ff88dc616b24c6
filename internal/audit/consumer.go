package audit

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go/jetstream"

	inats "github.com/extgov-platform/extgov/internal/nats"
)

// Consumer listens on the governance event subjects and persists entries to
// the database. Audit persistence is off the decision path entirely: a slow
// or down database never delays a checkpoint answer.
type Consumer struct {
	repo        *Repository
	consumerMgr *inats.ConsumerManager
}

// NewConsumer creates a new audit event Consumer.
func NewConsumer(repo *Repository, consumerMgr *inats.ConsumerManager) *Consumer {
	return &Consumer{
		repo:        repo,
		consumerMgr: consumerMgr,
	}
}

// Start begins the consume loop. Blocks until ctx is cancelled.
func (c *Consumer) Start(ctx context.Context) error {
	consumer, err := c.consumerMgr.EnsureConsumer(ctx, inats.StreamEvents, "audit-persister", "extgov.events.>")
	if err != nil {
		return err
	}

	slog.Info("audit consumer started", "consumer", "audit-persister")

	for {
		msgs, err := consumer.Fetch(10, jetstream.FetchMaxWait(inats.FetchTimeout))
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			slog.Debug("audit consumer: fetching events", "error", err)
			continue
		}

		for msg := range msgs.Messages() {
			c.handleEvent(ctx, msg)
		}

		if ctx.Err() != nil {
			return nil
		}
	}
}

func (c *Consumer) handleEvent(ctx context.Context, msg jetstream.Msg) {
	var log *Log

	switch msg.Subject() {
	case inats.SubjectDecisionEvent:
		var event inats.DecisionEvent
		if err := json.Unmarshal(msg.Data(), &event); err != nil {
			slog.Error("audit consumer: unmarshaling decision event", "error", err)
			_ = msg.Nak()
			return
		}
		log = decisionToLog(event)
	case inats.SubjectFetchEvent:
		var event inats.FetchResultEvent
		if err := json.Unmarshal(msg.Data(), &event); err != nil {
			slog.Error("audit consumer: unmarshaling fetch event", "error", err)
			_ = msg.Nak()
			return
		}
		log = fetchToLog(event)
	default:
		slog.Debug("audit consumer: ignoring subject", "subject", msg.Subject())
		_ = msg.Ack()
		return
	}

	if err := c.repo.Insert(ctx, log); err != nil {
		slog.Error("audit consumer: persisting audit log", "error", err, "event_type", log.EventType)
		_ = msg.Nak()
		return
	}

	_ = msg.Ack()

	slog.Debug("audit consumer: persisted event",
		"event_type", log.EventType,
		"outcome", log.Outcome,
		"extension_id", log.ExtensionID,
	)
}

func decisionToLog(event inats.DecisionEvent) *Log {
	outcome := "vetoed"
	if event.Allowed {
		outcome = "allowed"
	}
	if event.Checkpoint == inats.CheckpointOverride {
		outcome = "deny"
		if event.Allowed {
			outcome = "allow"
		}
	}

	details, _ := json.Marshal(map[string]string{
		"requester": event.Requester,
		"reason":    event.Reason,
	})

	return &Log{
		ID:          uuid.New(),
		EventType:   EventDecision,
		Checkpoint:  event.Checkpoint,
		ExtensionID: event.ExtensionID,
		Outcome:     outcome,
		Details:     details,
		CreatedAt:   event.Timestamp,
	}
}

func fetchToLog(event inats.FetchResultEvent) *Log {
	details, _ := json.Marshal(map[string]any{
		"revision": event.Revision,
		"entries":  event.Entries,
		"skipped":  event.Skipped,
		"attempts": event.Attempts,
		"error":    event.Error,
	})

	return &Log{
		ID:        uuid.New(),
		EventType: EventFetch,
		Outcome:   event.Outcome,
		Details:   details,
		CreatedAt: event.Timestamp,
	}
}
