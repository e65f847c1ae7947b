package meals

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

// HandleLog handles POST /v1/meals
func (h *Handlers) HandleLog(w http.ResponseWriter, r *http.Request) {
	var req LogMealRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	resp, err := h.service.Log(r.Context(), userctx.Owner(r.Context()), req)
	if err != nil {
		h.handleError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

// HandleList handles GET /v1/meals?date=YYYY-MM-DD
func (h *Handlers) HandleList(w http.ResponseWriter, r *http.Request) {
	date := strings.TrimSpace(r.URL.Query().Get("date"))
	if date == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "date is required")
		return
	}

	resp, err := h.service.ListByDate(r.Context(), userctx.Owner(r.Context()), date)
	if err != nil {
		h.handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleLink handles POST /v1/meals/{id}/link
func (h *Handlers) HandleLink(w http.ResponseWriter, r *http.Request) {
	mealID, err := uuid.Parse(strings.TrimSpace(r.PathValue("id")))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid meal id")
		return
	}

	var req LinkMealRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.TemplateID == uuid.Nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "template_id is required")
		return
	}

	resp, err := h.service.Link(r.Context(), userctx.Owner(r.Context()), mealID, req)
	if err != nil {
		h.handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handlers) handleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, ErrMealNotFound):
		writeError(w, http.StatusNotFound, "meal_not_found", "Meal not found")
	case errors.Is(err, ErrTemplateNotFound):
		writeError(w, http.StatusNotFound, "template_not_found", "Meal template not found")
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
