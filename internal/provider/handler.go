package provider

import (
	"net/http"

	"github.com/extgov-platform/extgov/internal/api"
)

// Handler serves the external-provider surface the host polls.
type Handler struct {
	bridge *Bridge
}

func NewHandler(bridge *Bridge) *Handler {
	return &Handler{bridge: bridge}
}

type listResponse struct {
	RemoteProvisioning bool     `json:"remote_provisioning"`
	Extensions         []Record `json:"extensions"`
}

// ListExtensions returns the current provider records.
func (h *Handler) ListExtensions(w http.ResponseWriter, r *http.Request) {
	api.JSON(w, http.StatusOK, listResponse{
		RemoteProvisioning: h.bridge.RemoteProvisioning(),
		Extensions:         h.bridge.Records(),
	})
}
