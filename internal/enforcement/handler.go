package enforcement

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/extgov-platform/extgov/internal/allowlist"
	"github.com/extgov-platform/extgov/internal/api"
)

// Handler exposes the enforcement checkpoints over HTTP. The host browser
// calls these synchronously before acting on a user request, so responses
// must always be 200 with a decision — a malformed id is answered with the
// conservative outcome, not an error the host might misread as "no veto".
type Handler struct {
	guard    *DisableGuard
	gate     *OverrideGate
	validate *validator.Validate
}

func NewHandler(guard *DisableGuard, gate *OverrideGate) *Handler {
	return &Handler{
		guard:    guard,
		gate:     gate,
		validate: validator.New(),
	}
}

type disableRequest struct {
	ExtensionID string `json:"extension_id" validate:"required"`
	Requester   string `json:"requester,omitempty" validate:"omitempty,max=128"`
	Reason      string `json:"reason,omitempty" validate:"omitempty,max=512"`
}

type disableResponse struct {
	ExtensionID string `json:"extension_id"`
	CanDisable  bool   `json:"can_disable"`
}

// CheckDisable answers the "can this extension be disabled" checkpoint.
func (h *Handler) CheckDisable(w http.ResponseWriter, r *http.Request) {
	var req disableRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.ErrBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.NewValidationError(err.Error()))
		return
	}

	id, err := allowlist.ParseID(req.ExtensionID)
	if err != nil {
		// Unknown id format cannot belong to the allow-list; no veto from us.
		api.JSON(w, http.StatusOK, disableResponse{ExtensionID: req.ExtensionID, CanDisable: true})
		return
	}

	api.JSON(w, http.StatusOK, disableResponse{
		ExtensionID: req.ExtensionID,
		CanDisable:  h.guard.CanDisable(r.Context(), id, req.Requester, req.Reason),
	})
}

type overrideRequest struct {
	ExtensionID   string   `json:"extension_id" validate:"required"`
	RequestedURLs []string `json:"requested_urls" validate:"max=32,dive,max=2048"`
}

type overrideResponse struct {
	ExtensionID string   `json:"extension_id"`
	Decision    Decision `json:"decision"`
}

// CheckOverride answers the "register page override" checkpoint.
func (h *Handler) CheckOverride(w http.ResponseWriter, r *http.Request) {
	var req overrideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.ErrBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.NewValidationError(err.Error()))
		return
	}

	id, err := allowlist.ParseID(req.ExtensionID)
	if err != nil {
		// Conservative: an id we cannot even parse never overrides built-ins.
		api.JSON(w, http.StatusOK, overrideResponse{ExtensionID: req.ExtensionID, Decision: Deny})
		return
	}

	api.JSON(w, http.StatusOK, overrideResponse{
		ExtensionID: req.ExtensionID,
		Decision:    h.gate.ShouldRegisterOverride(r.Context(), id, req.RequestedURLs),
	})
}
