package plans

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

// HandleList handles GET /v1/plans
func (h *Handlers) HandleList(w http.ResponseWriter, r *http.Request) {
	resp, err := h.service.List(r.Context(), userctx.Owner(r.Context()))
	if err != nil {
		h.handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleCreate handles POST /v1/plans
func (h *Handlers) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req UpsertPlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	resp, err := h.service.Create(r.Context(), userctx.Owner(r.Context()), req)
	if err != nil {
		h.handleError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

// HandleGet handles GET /v1/plans/{id}
func (h *Handlers) HandleGet(w http.ResponseWriter, r *http.Request) {
	planID, ok := parsePlanID(w, r)
	if !ok {
		return
	}

	resp, err := h.service.Get(r.Context(), userctx.Owner(r.Context()), planID)
	if err != nil {
		h.handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleUpdate handles PUT /v1/plans/{id}
func (h *Handlers) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	planID, ok := parsePlanID(w, r)
	if !ok {
		return
	}

	var req UpsertPlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	resp, err := h.service.Update(r.Context(), userctx.Owner(r.Context()), planID, req)
	if err != nil {
		h.handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleDelete handles DELETE /v1/plans/{id}
func (h *Handlers) HandleDelete(w http.ResponseWriter, r *http.Request) {
	planID, ok := parsePlanID(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), userctx.Owner(r.Context()), planID); err != nil {
		h.handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleActivate handles POST /v1/plans/{id}/activate
func (h *Handlers) HandleActivate(w http.ResponseWriter, r *http.Request) {
	planID, ok := parsePlanID(w, r)
	if !ok {
		return
	}

	resp, err := h.service.Activate(r.Context(), userctx.Owner(r.Context()), planID)
	if err != nil {
		h.handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func parsePlanID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	idRaw := strings.TrimSpace(r.PathValue("id"))
	planID, err := uuid.Parse(idRaw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid plan id")
		return uuid.Nil, false
	}
	return planID, true
}

func (h *Handlers) handleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, ErrPlanNotFound):
		writeError(w, http.StatusNotFound, "plan_not_found", "Plan not found")
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
