package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/feedcached/feedcached/internal/eventbus"
)

// sseHeartbeat keeps idle connections from being reaped by proxies.
const sseHeartbeat = 30 * time.Second

// handleEvents streams store-update events as server-sent events until the
// client disconnects. Slow clients drop events rather than block the bus.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	events := make(chan eventbus.Event, 16)
	unsubscribe := s.bus.Subscribe(eventbus.EventTypeStoreUpdate, func(e eventbus.Event) {
		select {
		case events <- e:
		default:
		}
	})
	defer unsubscribe()

	log.Debug().Str("remote", r.RemoteAddr).Msg("Event stream client connected")

	heartbeat := time.NewTicker(sseHeartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			log.Debug().Str("remote", r.RemoteAddr).Msg("Event stream client disconnected")
			return

		case <-heartbeat.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()

		case e := <-events:
			data, err := json.Marshal(e.Data)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", e.Type, data)
			flusher.Flush()
		}
	}
}
