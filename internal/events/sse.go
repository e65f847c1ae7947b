package events

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/mealminder/server/internal/userctx"
)

// HandleSSE streams bus events for the authenticated owner as server-sent
// events until the client disconnects.
func HandleSSE(bus *Bus) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "streaming unsupported", http.StatusInternalServerError)
			return
		}

		owner := userctx.Owner(r.Context())

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)
		flusher.Flush()

		ch := bus.Subscribe()
		defer bus.Unsubscribe(ch)

		for {
			select {
			case <-r.Context().Done():
				return
			case evt, ok := <-ch:
				if !ok {
					return
				}
				if evt.Owner != "" && evt.Owner != owner {
					continue
				}
				data, err := json.Marshal(evt)
				if err != nil {
					continue
				}
				fmt.Fprintf(w, "event: %s\ndata: %s\n\n", evt.Kind, data)
				flusher.Flush()
			}
		}
	}
}
