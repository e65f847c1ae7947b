package adherence

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/mealminder/server/internal/clock"
	"github.com/mealminder/server/internal/userctx"
)

type Handlers struct {
	service *Service
	clock   clock.Clock
}

func NewHandlers(service *Service, clk clock.Clock) *Handlers {
	return &Handlers{service: service, clock: clk}
}

// HandleEvaluate handles GET /v1/adherence?date=YYYY-MM-DD
// Without a date parameter it evaluates today.
func (h *Handlers) HandleEvaluate(w http.ResponseWriter, r *http.Request) {
	date := strings.TrimSpace(r.URL.Query().Get("date"))
	if date == "" {
		date = clock.DateString(h.clock.Now().In(h.clock.Location()))
	}

	resp, err := h.service.Evaluate(r.Context(), userctx.Owner(r.Context()), date)
	if err != nil {
		h.handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleTrend handles GET /v1/adherence/trend?from=YYYY-MM-DD&to=YYYY-MM-DD
func (h *Handlers) HandleTrend(w http.ResponseWriter, r *http.Request) {
	from := strings.TrimSpace(r.URL.Query().Get("from"))
	to := strings.TrimSpace(r.URL.Query().Get("to"))
	if from == "" || to == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "from and to are required")
		return
	}

	resp, err := h.service.Trend(r.Context(), userctx.Owner(r.Context()), from, to)
	if err != nil {
		h.handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handlers) handleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid request")
	case errors.Is(err, ErrInvalidRange):
		writeError(w, http.StatusBadRequest, "invalid_request", "to must not be before from")
	case errors.Is(err, ErrRangeTooLarge):
		writeError(w, http.StatusBadRequest, "invalid_request", "Date range too large")
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
