package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kbnam33/scheduleflow-mvp-sub001/internal/auth"
)

func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	identity := auth.IdentityFrom(r.Context())

	var req struct {
		Type      string          `json:"type"`
		Payload   json.RawMessage `json:"payload"`
		Timestamp *time.Time      `json:"timestamp"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Type == "" {
		writeError(w, http.StatusBadRequest, "type required")
		return
	}
	if req.Timestamp == nil {
		writeError(w, http.StatusBadRequest, "timestamp required")
		return
	}

	event, err := s.db.InsertEvent(identity.ID, req.Type, req.Payload, *req.Timestamp)
	if err != nil {
		s.internalError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"id":        event.ID,
		"type":      event.Type,
		"timestamp": time.UnixMilli(event.Timestamp).UTC().Format(time.RFC3339),
	})
}

type suggestionJSON struct {
	ID          string  `json:"id"`
	Message     string  `json:"message"`
	Read        bool    `json:"read"`
	Confirmed   bool    `json:"confirmed"`
	ConfirmedAt *string `json:"confirmed_time,omitempty"`
	CreatedAt   string  `json:"created_at"`
}

func (s *Server) handleListSuggestions(w http.ResponseWriter, r *http.Request) {
	identity := auth.IdentityFrom(r.Context())

	suggestions, err := s.db.ListUnreadSuggestions(identity.ID)
	if err != nil {
		s.internalError(w, err)
		return
	}

	out := make([]suggestionJSON, 0, len(suggestions))
	for _, sg := range suggestions {
		item := suggestionJSON{
			ID:        sg.ID,
			Message:   sg.Message,
			Read:      sg.Read,
			Confirmed: sg.Confirmed,
			CreatedAt: time.UnixMilli(sg.CreatedAt).UTC().Format(time.RFC3339),
		}
		if sg.ConfirmedAt != nil {
			ct := time.UnixMilli(*sg.ConfirmedAt).UTC().Format(time.RFC3339)
			item.ConfirmedAt = &ct
		}
		out = append(out, item)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"suggestions": out,
		"count":       len(out),
	})
}

func (s *Server) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	identity := auth.IdentityFrom(r.Context())
	suggestionID := chi.URLParam(r, "suggestionID")

	if err := s.db.MarkSuggestionRead(identity.ID, suggestionID); err != nil {
		s.storeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "read"})
}
