package internal

import (
	"encoding/json"
	"net/http"
)

const statusText = "Chat server is running"

// HandleStatus is the liveness probe served at "/".
func (s *Server) HandleStatus(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(statusText))
}

func (s *Server) HandleRoomExists(w http.ResponseWriter, r *http.Request) {
	room := r.URL.Query().Get("room")
	if room == "" {
		http.Error(w, "missing room", http.StatusBadRequest)
		return
	}
	if s.registry.RoomExists(room) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
		return
	}
	http.Error(w, "not found", http.StatusNotFound)
}

// HandleMetrics reports the counters together with live registry sizes.
func (s *Server) HandleMetrics(w http.ResponseWriter, _ *http.Request) {
	payload := s.metrics.Snapshot()
	stats := s.Stats()
	payload["rooms"] = stats.Rooms
	payload["room_members"] = stats.Members
	payload["room_messages"] = stats.Messages
	payload["sessions"] = stats.Sessions
	writeJSON(w, http.StatusOK, payload)
}

// withCORS lets browser clients on any origin reach the relay.
func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func methodNotAllowed(w http.ResponseWriter, allowed string) {
	w.Header().Set("Allow", allowed)
	http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
}
