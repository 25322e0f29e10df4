package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Producer builds the payload for one server-sent event.
type Producer func(ctx context.Context) (any, error)

// Stream writes a server-sent event immediately and then every interval until the
// client disconnects. Producer errors are sent as "error" events and do not end
// the stream.
func Stream(w http.ResponseWriter, r *http.Request, interval time.Duration, produce Producer) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		WriteError(w, http.StatusInternalServerError, "Streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	ctx := r.Context()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := writeEvent(ctx, w, produce); err != nil {
			slog.Debug("stopped event stream", "path", r.URL.Path, "error", err)
			return
		}
		flusher.Flush()

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func writeEvent(ctx context.Context, w http.ResponseWriter, produce Producer) error {
	payload, err := produce(ctx)
	if err != nil {
		data, _ := json.Marshal(map[string]string{"error": err.Error()})
		_, werr := fmt.Fprintf(w, "event: error\ndata: %s\n\n", data)
		return werr
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", data)
	return err
}
