package provision

import (
	"net/http"

	"github.com/extgov-platform/extgov/internal/api"
)

// Handler exposes the runner to the admin API.
type Handler struct {
	runner *Runner
}

func NewHandler(runner *Runner) *Handler {
	return &Handler{runner: runner}
}

// Status returns the provisioning lifecycle state and snapshot info.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	api.JSON(w, http.StatusOK, h.runner.Status())
}

// Refresh triggers a fetch cycle outside the regular schedule. The cycle runs
// on the runner goroutine; this returns immediately.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	h.runner.Refresh()
	api.JSONMessage(w, http.StatusAccepted, "refresh scheduled")
}
