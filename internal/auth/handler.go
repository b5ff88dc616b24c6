package auth

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/extgov-platform/extgov/internal/api"
)

// Handler serves the token exchange endpoint.
type Handler struct {
	svc      *Service
	validate *validator.Validate
}

func NewHandler(svc *Service) *Handler {
	return &Handler{
		svc:      svc,
		validate: validator.New(),
	}
}

type tokenRequest struct {
	APIKey string `json:"api_key" validate:"required,min=16"`
}

// Token exchanges the admin API key for a short-lived JWT.
func (h *Handler) Token(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.ErrBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.NewValidationError(err.Error()))
		return
	}

	token, err := h.svc.ExchangeKey(req.APIKey)
	if err != nil {
		if errors.Is(err, ErrInvalidKey) {
			api.HandleError(w, api.ErrUnauthorized)
			return
		}
		slog.Error("exchanging admin key", "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	api.JSON(w, http.StatusOK, token)
}
