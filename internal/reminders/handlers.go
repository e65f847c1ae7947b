package reminders

import (
	"encoding/json"
	"net/http"

	"github.com/mealminder/server/internal/userctx"
)

type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type PendingResponse struct {
	Alerts []Alert `json:"alerts"`
}

type AuthorizeResponse struct {
	Status  string `json:"status"`
	Granted bool   `json:"granted"`
}

type Handlers struct {
	scheduler *Scheduler
}

func NewHandlers(scheduler *Scheduler) *Handlers {
	return &Handlers{scheduler: scheduler}
}

// HandleReschedule handles POST /v1/reminders/reschedule
func (h *Handlers) HandleReschedule(w http.ResponseWriter, r *http.Request) {
	result, err := h.scheduler.RebuildAlerts(r.Context(), userctx.Owner(r.Context()))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// HandlePending handles GET /v1/reminders/pending
func (h *Handlers) HandlePending(w http.ResponseWriter, r *http.Request) {
	alerts, err := h.scheduler.PendingAlerts(r.Context(), userctx.Owner(r.Context()))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, PendingResponse{Alerts: alerts})
}

// HandleAuthorize handles POST /v1/reminders/authorize
func (h *Handlers) HandleAuthorize(w http.ResponseWriter, r *http.Request) {
	status, err := h.scheduler.RequestAuthorization(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, AuthorizeResponse{
		Status:  status,
		Granted: status == AuthStatusAuthorized,
	})
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
