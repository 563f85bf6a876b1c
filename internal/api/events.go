package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/Veraticus/dreambuilder/internal/service"
)

const eventBuffer = 16

// handleEvents streams ledger changes for one user as server-sent events,
// starting with the current account state.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if s.deps.Events == nil {
		http.Error(w, "event stream not configured", http.StatusNotImplemented)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	id := userID(r)
	events, unsubscribe := s.deps.Events.Subscribe(id, eventBuffer)
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	if account, ok := s.deps.Ledger.Account(id); ok {
		writeSSE(w, service.LedgerEvent{At: s.deps.Clock.Now(), Kind: service.EventSnapshot, UserID: id, Account: account})
	}
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, open := <-events:
			if !open {
				return
			}
			writeSSE(w, ev)
			flusher.Flush()
		}
	}
}

func writeSSE(w http.ResponseWriter, ev service.LedgerEvent) {
	data, err := json.Marshal(ev)
	if err != nil {
		slog.Warn("Failed to encode event", "error", err)
		return
	}
	_, _ = fmt.Fprintf(w, "event: %s\n", ev.Kind)
	_, _ = fmt.Fprintf(w, "data: %s\n\n", data)
}
