package commands

import "github.com/extgov-platform/extgov/internal/config"

// Command is one policy-gated UI command: a stable identifier plus the
// predicate deciding whether it is enabled. Keeping the mapping in one table
// replaces flag conditionals scattered across call sites.
type Command struct {
	ID      string
	Enabled func(config.FeaturesConfig) bool
}

// State is the evaluated form served to the host UI.
type State struct {
	ID      string `json:"id"`
	Enabled bool   `json:"enabled"`
}

var table = []Command{
	{
		ID:      "open-assistant-panel",
		Enabled: func(f config.FeaturesConfig) bool { return f.AssistantPanel },
	},
	{
		ID:      "toggle-assistant-panel",
		Enabled: func(f config.FeaturesConfig) bool { return f.AssistantPanel },
	},
	{
		ID:      "open-compare-view",
		Enabled: func(f config.FeaturesConfig) bool { return f.CompareView },
	},
}

// Evaluate resolves the table against the current feature flags. Called once
// per UI-state refresh by the host, not per command.
func Evaluate(features config.FeaturesConfig) []State {
	states := make([]State, 0, len(table))
	for _, c := range table {
		states = append(states, State{ID: c.ID, Enabled: c.Enabled(features)})
	}
	return states
}
