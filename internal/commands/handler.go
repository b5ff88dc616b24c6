package commands

import (
	"net/http"

	"github.com/extgov-platform/extgov/internal/api"
	"github.com/extgov-platform/extgov/internal/config"
)

// Handler serves the evaluated command table.
type Handler struct {
	features config.FeaturesConfig
}

func NewHandler(features config.FeaturesConfig) *Handler {
	return &Handler{features: features}
}

// List returns the enabled state of every policy-gated UI command.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	api.JSON(w, http.StatusOK, Evaluate(h.features))
}
