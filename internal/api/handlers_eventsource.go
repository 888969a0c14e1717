package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	dErrors "ims/pkg/domainerrors"
	"ims/pkg/httputil"

	"ims/internal/eventbus"
)

// sseRetryMillis is the reconnect hint written with the initial frame.
const sseRetryMillis = 5000

// handleEventSource subscribes the client to the change-notification
// bus and writes frames for as long as the connection stays open. The
// first frame is always InitialEvent with the current counter; a
// client that cached a last-seen ID compares the two and re-queries
// the store on a gap.
func (a *API) handleEventSource(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := a.identity(r)
	if id.Anonymous() {
		a.writeUnauthenticated(w, r)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "streaming unsupported"))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	listener := a.bus.Subscribe()
	defer a.bus.Unsubscribe(listener)
	a.metrics.IncrementSSEListeners()
	defer a.metrics.DecrementSSEListeners()

	for {
		select {
		case <-ctx.Done():
			return
		case frame, open := <-listener.C:
			if !open {
				return
			}
			if err := writeFrame(w, frame, frame.Class == eventbus.ClassInitial); err != nil {
				a.metrics.IncrementSSEListenerDrops()
				return
			}
			flusher.Flush()
			a.metrics.IncrementSSEFramesSent()
		}
	}
}

// writeFrame renders one SSE frame: id, event, data, and (on the
// initial frame only) a retry hint.
func writeFrame(w http.ResponseWriter, frame eventbus.Frame, withRetry bool) error {
	data, err := json.Marshal(frame.Data)
	if err != nil {
		return err
	}
	if withRetry {
		if _, err := fmt.Fprintf(w, "retry: %d\n", sseRetryMillis); err != nil {
			return err
		}
	}
	_, err = fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", frame.ID, frame.Class, data)
	return err
}
