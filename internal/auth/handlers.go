package auth

import (
	"encoding/json"
	"net/http"

	"github.com/mealminder/server/internal/config"
)

type Handlers struct {
	config  *config.Config
	service *Service
}

func NewHandlers(cfg *config.Config, service *Service) *Handlers {
	return &Handlers{config: cfg, service: service}
}

// HandleDevAuth handles POST /v1/auth/dev
func (h *Handlers) HandleDevAuth(w http.ResponseWriter, r *http.Request) {
	if h.config.AuthMode != config.AuthModeDev {
		writeError(w, http.StatusNotFound, "not_found", "Dev auth is disabled")
		return
	}

	var req DevAuthRequest
	if r.Body != nil {
		// Body is optional; ignore decode errors from an empty body.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	resp, err := h.service.SignInDev(r.Context(), req.UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(resp)
}
