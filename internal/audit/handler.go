package audit

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/extgov-platform/extgov/internal/api"
)

// Handler provides the admin HTTP surface for audit logs.
type Handler struct {
	repo *Repository
}

// NewHandler creates a new audit Handler.
func NewHandler(repo *Repository) *Handler {
	return &Handler{repo: repo}
}

// List returns paginated audit logs with optional filters.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	params := parseListParams(r)

	logs, total, err := h.repo.List(r.Context(), params)
	if err != nil {
		slog.Error("listing audit logs", "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	api.JSONPaginated(w, http.StatusOK, logs, total, params.Page, params.PageSize)
}

func parseListParams(r *http.Request) ListParams {
	params := DefaultListParams()

	q := r.URL.Query()
	if et := q.Get("event_type"); et != "" {
		params.EventType = et
	}
	if cp := q.Get("checkpoint"); cp != "" {
		params.Checkpoint = cp
	}
	if id := q.Get("extension_id"); id != "" {
		params.ExtensionID = id
	}
	if o := q.Get("outcome"); o != "" {
		params.Outcome = o
	}
	if p := q.Get("page"); p != "" {
		if page, err := strconv.Atoi(p); err == nil && page > 0 {
			params.Page = page
		}
	}
	if ps := q.Get("page_size"); ps != "" {
		if pageSize, err := strconv.Atoi(ps); err == nil && pageSize > 0 && pageSize <= 100 {
			params.PageSize = pageSize
		}
	}
	if from := q.Get("from"); from != "" {
		if t, err := time.Parse(time.RFC3339, from); err == nil {
			params.From = &t
		}
	}
	if to := q.Get("to"); to != "" {
		if t, err := time.Parse(time.RFC3339, to); err == nil {
			params.To = &t
		}
	}

	return params
}
