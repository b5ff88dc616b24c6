package audit

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Log matches the audit_logs table schema. One row per governance event:
// a checkpoint decision or a fetch cycle outcome.
type Log struct {
	ID          uuid.UUID       `json:"id"`
	EventType   string          `json:"event_type"` // decision, fetch
	Checkpoint  string          `json:"checkpoint,omitempty"`
	ExtensionID string          `json:"extension_id,omitempty"`
	Outcome     string          `json:"outcome"`
	Details     json.RawMessage `json:"details,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Event type values.
const (
	EventDecision = "decision"
	EventFetch    = "fetch"
)

// ListParams holds pagination and filtering parameters for audit log queries.
type ListParams struct {
	EventType   string
	Checkpoint  string
	ExtensionID string
	Outcome     string
	From        *time.Time
	To          *time.Time
	Page        int
	PageSize    int
}

// DefaultListParams returns sensible defaults.
func DefaultListParams() ListParams {
	return ListParams{
		Page:     1,
		PageSize: 20,
	}
}
