package audit

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	inats "github.com/extgov-platform/extgov/internal/nats"
)

func TestDecisionToLog_DisableVeto(t *testing.T) {
	event := inats.DecisionEvent{
		Checkpoint:  inats.CheckpointDisable,
		ExtensionID: "abcdefghijklmnopabcdefghijklmnop",
		Allowed:     false,
		Protected:   true,
		Requester:   "user",
		Reason:      "settings toggle",
		Timestamp:   time.Now().UTC(),
	}

	log := decisionToLog(event)

	assert.Equal(t, EventDecision, log.EventType)
	assert.Equal(t, "disable", log.Checkpoint)
	assert.Equal(t, "vetoed", log.Outcome)
	assert.Equal(t, event.ExtensionID, log.ExtensionID)
	assert.Equal(t, event.Timestamp, log.CreatedAt)

	var details map[string]string
	require.NoError(t, json.Unmarshal(log.Details, &details))
	assert.Equal(t, "user", details["requester"])
	assert.Equal(t, "settings toggle", details["reason"])
}

func TestDecisionToLog_DisableAllowed(t *testing.T) {
	log := decisionToLog(inats.DecisionEvent{
		Checkpoint:  inats.CheckpointDisable,
		ExtensionID: "ppoonnmmllkkjjiihhggffeeddccbbaa",
		Allowed:     true,
	})
	assert.Equal(t, "allowed", log.Outcome)
}

func TestDecisionToLog_OverrideOutcomes(t *testing.T) {
	deny := decisionToLog(inats.DecisionEvent{Checkpoint: inats.CheckpointOverride, Allowed: false})
	assert.Equal(t, "deny", deny.Outcome)

	allow := decisionToLog(inats.DecisionEvent{Checkpoint: inats.CheckpointOverride, Allowed: true})
	assert.Equal(t, "allow", allow.Outcome)
}

func TestFetchToLog(t *testing.T) {
	event := inats.FetchResultEvent{
		Outcome:   "success",
		Revision:  "rev-abc",
		Entries:   4,
		Skipped:   1,
		Attempts:  2,
		Timestamp: time.Now().UTC(),
	}

	log := fetchToLog(event)

	assert.Equal(t, EventFetch, log.EventType)
	assert.Equal(t, "success", log.Outcome)
	assert.Empty(t, log.Checkpoint)
	assert.Equal(t, event.Timestamp, log.CreatedAt)

	var details map[string]any
	require.NoError(t, json.Unmarshal(log.Details, &details))
	assert.Equal(t, "rev-abc", details["revision"])
	assert.Equal(t, float64(4), details["entries"])
	assert.Equal(t, float64(1), details["skipped"])
}

func TestFetchToLog_Failure(t *testing.T) {
	log := fetchToLog(inats.FetchResultEvent{
		Outcome:  "transient",
		Attempts: 3,
		Error:    "server returned 500",
	})

	assert.Equal(t, "transient", log.Outcome)

	var details map[string]any
	require.NoError(t, json.Unmarshal(log.Details, &details))
	assert.Equal(t, "server returned 500", details["error"])
}
