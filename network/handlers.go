package network

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"siege_server/logic"
	"siege_server/storage"
)

// SummaryReader looks up finished games.
type SummaryReader interface {
	LoadSummary(ctx context.Context, gameID string) (logic.Summary, error)
}

// Handler wires the HTTP surface: the websocket endpoint, a health check,
// the live session list and finished game results.
func (m *SessionManager) Handler(results SummaryReader) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", m.ServeWs)

	// Health Check Endpoint (For load balancers/k8s)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	mux.HandleFunc("GET /sessions", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{"sessions": m.ListSessions()})
	})

	if results != nil {
		mux.HandleFunc("GET /games/{id}", func(w http.ResponseWriter, r *http.Request) {
			sum, err := results.LoadSummary(r.Context(), r.PathValue("id"))
			if errors.Is(err, storage.ErrReplayNotFound) {
				http.Error(w, "unknown game", http.StatusNotFound)
				return
			}
			if err != nil {
				http.Error(w, "lookup failed", http.StatusInternalServerError)
				return
			}
			writeJSON(w, http.StatusOK, sum)
		})
	}
	return mux
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
