package nats

import "time"

// FetchTimeout is the default timeout for batch fetching messages from consumers.
const FetchTimeout = 2 * time.Second

// Stream names.
const (
	StreamEvents = "EXTGOV_EVENTS"
)

// Subject constants.
const (
	SubjectFetchEvent    = "extgov.events.fetch"
	SubjectDecisionEvent = "extgov.events.decision"
)

// Checkpoint identifiers used in DecisionEvent.
const (
	CheckpointDisable  = "disable"
	CheckpointOverride = "override"
)

// FetchResultEvent is published at the end of every fetch cycle.
type FetchResultEvent struct {
	Outcome   string    `json:"outcome"` // success, transient, permanent, parse
	Revision  string    `json:"revision,omitempty"`
	Entries   int       `json:"entries,omitempty"`
	Skipped   int       `json:"skipped,omitempty"` // malformed entries dropped
	Attempts  int       `json:"attempts"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// DecisionEvent is published for every enforcement checkpoint decision.
type DecisionEvent struct {
	Checkpoint  string    `json:"checkpoint"` // disable, override
	ExtensionID string    `json:"extension_id"`
	Allowed     bool      `json:"allowed"` // disable permitted / override allowed
	Protected   bool      `json:"protected"`
	Requester   string    `json:"requester,omitempty"`
	Reason      string    `json:"reason,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}
