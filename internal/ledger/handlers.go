package ledger

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/mealminder/server/internal/userctx"
)

type Handlers struct {
	service *Service
}

func NewHandlers(service *Service) *Handlers {
	return &Handlers{service: service}
}

// HandleSkip handles POST /v1/completions/skip
func (h *Handlers) HandleSkip(w http.ResponseWriter, r *http.Request) {
	var req SkipRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	templateID, err := uuid.Parse(strings.TrimSpace(req.TemplateID))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid template_id")
		return
	}

	owner := userctx.Owner(r.Context())

	record, err := h.service.MarkSkipped(r.Context(), owner, templateID, strings.TrimSpace(req.Date))
	if err != nil {
		h.handleError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, SkipResponse{Record: ToRecordDTO(record)})
}

func (h *Handlers) handleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid request")
	case errors.Is(err, ErrTemplateNotFound):
		writeError(w, http.StatusNotFound, "template_not_found", "Meal template not found")
	case errors.Is(err, ErrRecordNotFound):
		writeError(w, http.StatusNotFound, "record_not_found", "Completion record not found")
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", "Internal server error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{
		Error: ErrorDetail{Code: code, Message: message},
	})
}
