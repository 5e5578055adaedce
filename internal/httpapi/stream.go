package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"meams.org/internal/asset"
)

// handleListen streams scan events for one equipment record as Server-Sent
// Events. The first frame confirms the subscription; idle periods are bridged
// with keepalive comments so proxies do not drop the connection.
func (a *API) handleListen(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if a.stream == nil {
		writeError(w, r, http.StatusServiceUnavailable, kindUpstreamFailure, "streaming disabled")
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/listen/equipment/")
	if !asset.ValidID(id) {
		writeError(w, r, http.StatusBadRequest, kindInvalidIDFormat, "invalid asset identifier")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, r, http.StatusInternalServerError, kindUpstreamFailure, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	ch := a.stream.Subscribe(r.Context(), id)

	writeSSE(w, map[string]any{"type": "connected", "equipment_id": id})
	flusher.Flush()

	keepalive := time.NewTicker(a.keepaliveInterval)
	defer keepalive.Stop()

	for {
		select {
		case event, open := <-ch:
			if !open {
				return
			}
			writeSSE(w, event)
			flusher.Flush()
			keepalive.Reset(a.keepaliveInterval)
		case <-keepalive.C:
			_, _ = w.Write([]byte(": keepalive\n\n"))
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}

func writeSSE(w http.ResponseWriter, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	_, _ = w.Write([]byte("data: "))
	_, _ = w.Write(data)
	_, _ = w.Write([]byte("\n\n"))
}
