package web

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/roadwatch/roadwatch/internal/binding"
	"github.com/roadwatch/roadwatch/internal/store"
	"github.com/roadwatch/roadwatch/internal/view"
)

// handleStream serves the dashboard overview as server-sent events.
//
// The client receives one "overview" event immediately, then one per batch
// of store mutations. A slow client sees latest-wins delivery rather than a
// growing backlog.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	events := make(chan view.Overview, 1)
	b := binding.Bind(s.store,
		func(snap *store.Snapshot) view.Overview {
			overview, err := view.BuildOverview(snap, s.recentLimit)
			if err != nil {
				// recentLimit is validated at config load; a failure here
				// yields an empty frame rather than a dead stream.
				s.logger.Error("overview computation failed", "error", err)
			}
			return overview
		},
		func(overview view.Overview) {
			// Latest wins: replace a pending frame instead of blocking the
			// delivery goroutine on a slow client.
			for {
				select {
				case events <- overview:
					return
				default:
				}
				select {
				case <-events:
				default:
				}
			}
		},
	)
	defer b.Close()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case overview := <-events:
			data, err := json.Marshal(overview)
			if err != nil {
				s.logger.Error("stream frame encoding failed", "error", err)
				return
			}
			fmt.Fprintf(w, "event: overview\ndata: %s\n\n", data)
			flusher.Flush()
		}
	}
}
