package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/kbnam33/scheduleflow-mvp-sub001/internal/store"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// storeError maps a persistence failure: ownership-folded misses become
// 404 (never revealing whether the row exists for someone else), and
// everything else is a 500 with no internal detail outside dev mode.
func (s *Server) storeError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	s.internalError(w, err)
}

func (s *Server) internalError(w http.ResponseWriter, err error) {
	log.Printf("internal error: %v", err)
	msg := "internal error"
	if s.cfg.Env != "production" {
		msg = err.Error()
	}
	writeError(w, http.StatusInternalServerError, msg)
}
