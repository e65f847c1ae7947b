package ledger

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/mealminder/server/internal/userctx"
)

func TestHandleSkip(t *testing.T) {
	svc, _, templateID := newTestService(t)
	h := NewHandlers(svc)

	body := `{"template_id":"` + templateID.String() + `","date":"2025-06-04"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/completions/skip", strings.NewReader(body))
	req = req.WithContext(userctx.WithUserID(context.Background(), "userA"))
	w := httptest.NewRecorder()
	h.HandleSkip(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", w.Code, w.Body.String())
	}

	var resp SkipResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Record.WasCompleted {
		t.Fatal("expected skip record")
	}
	if resp.Record.TemplateID != templateID || resp.Record.Date != "2025-06-04" {
		t.Fatalf("unexpected record: %+v", resp.Record)
	}
}

func TestHandleSkipErrors(t *testing.T) {
	svc, _, templateID := newTestService(t)
	h := NewHandlers(svc)

	cases := []struct {
		name string
		body string
		code int
	}{
		{"bad json", `{`, http.StatusBadRequest},
		{"bad template id", `{"template_id":"nope","date":"2025-06-04"}`, http.StatusBadRequest},
		{"bad date", `{"template_id":"` + templateID.String() + `","date":"June 4"}`, http.StatusBadRequest},
		{"unknown template", `{"template_id":"` + uuid.New().String() + `","date":"2025-06-04"}`, http.StatusNotFound},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/v1/completions/skip", strings.NewReader(tc.body))
			req = req.WithContext(userctx.WithUserID(context.Background(), "userA"))
			w := httptest.NewRecorder()
			h.HandleSkip(w, req)
			if w.Code != tc.code {
				t.Fatalf("expected %d, got %d body=%s", tc.code, w.Code, w.Body.String())
			}
		})
	}
}
