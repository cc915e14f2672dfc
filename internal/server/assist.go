package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/kbnam33/scheduleflow-mvp-sub001/internal/auth"
	"github.com/kbnam33/scheduleflow-mvp-sub001/internal/llm"
)

// fallbackMessage is the user-visible note when generation degrades to
// an empty result on the list endpoints.
const fallbackMessage = "could not generate, try again"

// chatApology is the canned reply when the conversational completion
// fails. The chat endpoint never surfaces a hard error for this.
const chatApology = "Sorry — I couldn't come up with a reply just now. Please try again in a moment."

// chatHistoryTurns is how much rolling history feeds the chat prompt.
const chatHistoryTurns = 10

// generationFailed reports the failures that take the caller-supplied
// fallback path: exhausted retries or a low-confidence answer.
func generationFailed(err error) bool {
	return errors.Is(err, llm.ErrUnavailable) || errors.Is(err, llm.ErrLowConfidence)
}

func (s *Server) handleSuggestPrepSlot(w http.ResponseWriter, r *http.Request) {
	identity := auth.IdentityFrom(r.Context())

	var req struct {
		MeetingTitle    string     `json:"meeting_title"`
		MeetingTime     *time.Time `json:"meeting_time"`
		DurationMinutes int        `json:"duration_minutes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.MeetingTitle == "" || req.MeetingTime == nil {
		writeError(w, http.StatusBadRequest, "meeting_title and meeting_time required")
		return
	}
	if req.DurationMinutes <= 0 {
		req.DurationMinutes = 30
	}

	if s.completer == nil {
		writeJSON(w, http.StatusOK, map[string]any{"slots": []string{}, "message": fallbackMessage})
		return
	}

	prompt := llm.PrepSlotPrompt(req.MeetingTitle, *req.MeetingTime, req.DurationMinutes)
	items, err := s.completer.List(r.Context(), prompt, 512)
	if err != nil {
		if generationFailed(err) {
			writeJSON(w, http.StatusOK, map[string]any{"slots": []string{}, "message": fallbackMessage})
			return
		}
		s.internalError(w, err)
		return
	}

	var slots []string
	for _, item := range items {
		var slot string
		if err := json.Unmarshal(item, &slot); err != nil {
			continue
		}
		if _, err := time.Parse(time.RFC3339, slot); err != nil {
			continue
		}
		slots = append(slots, slot)
	}
	if len(slots) == 0 {
		writeJSON(w, http.StatusOK, map[string]any{"slots": []string{}, "message": fallbackMessage})
		return
	}

	// The proposed slots become a confirmable suggestion. Persistence is
	// best-effort: the user still gets the slots if the write fails.
	resp := map[string]any{"slots": slots}
	message := fmt.Sprintf("Prep time before %q: %s", req.MeetingTitle, strings.Join(slots, ", "))
	if sg, err := s.db.InsertSuggestion(identity.ID, message); err != nil {
		log.Printf("suggest-prep-slot: store suggestion: %v", err)
	} else {
		resp["suggestion_id"] = sg.ID
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleConfirmPrepSlot(w http.ResponseWriter, r *http.Request) {
	identity := auth.IdentityFrom(r.Context())

	var req struct {
		SuggestionID string     `json:"suggestion_id"`
		ChosenTime   *time.Time `json:"chosen_time"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.SuggestionID == "" || req.ChosenTime == nil {
		writeError(w, http.StatusBadRequest, "suggestion_id and chosen_time required")
		return
	}

	if err := s.db.ConfirmSuggestion(identity.ID, req.SuggestionID, *req.ChosenTime); err != nil {
		s.storeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":         "confirmed",
		"confirmed_time": req.ChosenTime.UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleGenerateTasks(w http.ResponseWriter, r *http.Request) {
	identity := auth.IdentityFrom(r.Context())

	var req struct {
		Goal  string `json:"goal"`
		Count int    `json:"count"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Goal == "" {
		writeError(w, http.StatusBadRequest, "goal required")
		return
	}
	if req.Count <= 0 || req.Count > 10 {
		req.Count = 5
	}

	if s.completer == nil {
		writeJSON(w, http.StatusOK, map[string]any{"tasks": []any{}, "message": fallbackMessage})
		return
	}

	items, err := s.completer.List(r.Context(), llm.TaskGenPrompt(req.Goal, req.Count), 1024)
	if err != nil {
		if generationFailed(err) {
			writeJSON(w, http.StatusOK, map[string]any{"tasks": []any{}, "message": fallbackMessage})
			return
		}
		s.internalError(w, err)
		return
	}

	type taskJSON struct {
		ID          string `json:"id,omitempty"`
		Title       string `json:"title"`
		Description string `json:"description"`
		Due         string `json:"due,omitempty"`
	}

	var tasks []taskJSON
	for _, item := range items {
		var t taskJSON
		if err := json.Unmarshal(item, &t); err != nil || t.Title == "" {
			continue
		}
		// Persist best-effort: a store failure is logged, the user still
		// receives the generated task.
		var dueAt *time.Time
		if t.Due != "" {
			if parsed, err := time.Parse(time.RFC3339, t.Due); err == nil {
				dueAt = &parsed
			}
		}
		if row, err := s.db.InsertTask(identity.ID, t.Title, t.Description, dueAt); err != nil {
			log.Printf("generate-tasks: store task %q: %v", t.Title, err)
		} else {
			t.ID = row.ID
		}
		tasks = append(tasks, t)
	}

	if len(tasks) == 0 {
		writeJSON(w, http.StatusOK, map[string]any{"tasks": []any{}, "message": fallbackMessage})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tasks": tasks, "count": len(tasks)})
}

func (s *Server) handleAssetQuery(w http.ResponseWriter, r *http.Request) {
	identity := auth.IdentityFrom(r.Context())

	var req struct {
		Query string `json:"query"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "query required")
		return
	}

	if s.completer == nil {
		writeJSON(w, http.StatusOK, map[string]any{"assets": []any{}, "message": fallbackMessage})
		return
	}

	items, err := s.completer.List(r.Context(), llm.AssetQueryPrompt(req.Query), 1024)
	if err != nil {
		if generationFailed(err) {
			writeJSON(w, http.StatusOK, map[string]any{"assets": []any{}, "message": fallbackMessage})
			return
		}
		s.internalError(w, err)
		return
	}

	type assetJSON struct {
		ID   string `json:"id,omitempty"`
		Name string `json:"name"`
		URL  string `json:"url,omitempty"`
		Kind string `json:"kind,omitempty"`
	}

	var assets []assetJSON
	for _, item := range items {
		var a assetJSON
		if err := json.Unmarshal(item, &a); err != nil || a.Name == "" {
			continue
		}
		if row, err := s.db.InsertAsset(identity.ID, a.Name, a.URL, a.Kind); err != nil {
			log.Printf("assets-query: store asset %q: %v", a.Name, err)
		} else {
			a.ID = row.ID
		}
		assets = append(assets, a)
	}

	if len(assets) == 0 {
		writeJSON(w, http.StatusOK, map[string]any{"assets": []any{}, "message": fallbackMessage})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"assets": assets, "count": len(assets)})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	identity := auth.IdentityFrom(r.Context())

	var req struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "message required")
		return
	}

	var history []llm.ChatTurn
	if msgs, err := s.db.RecentChatMessages(identity.ID, chatHistoryTurns); err != nil {
		log.Printf("chat: load history for %s: %v", identity.ID, err)
	} else {
		for _, m := range msgs {
			history = append(history, llm.ChatTurn{Role: m.Role, Content: m.Content})
		}
	}

	if err := s.db.AppendChatMessage(identity.ID, "user", req.Message); err != nil {
		log.Printf("chat: store user message: %v", err)
	}

	if s.completer == nil {
		writeJSON(w, http.StatusOK, map[string]string{"reply": chatApology})
		return
	}

	reply, err := s.completer.Text(r.Context(), llm.ChatPrompt(history, req.Message), 1024)
	if err != nil {
		if generationFailed(err) {
			writeJSON(w, http.StatusOK, map[string]string{"reply": chatApology})
			return
		}
		s.internalError(w, err)
		return
	}

	if err := s.db.AppendChatMessage(identity.ID, "assistant", reply); err != nil {
		log.Printf("chat: store assistant reply: %v", err)
	}

	writeJSON(w, http.StatusOK, map[string]string{"reply": reply})
}

func (s *Server) handleProcessEmail(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Email == "" {
		writeError(w, http.StatusBadRequest, "email required")
		return
	}

	if s.completer == nil {
		writeJSON(w, http.StatusOK, map[string]string{"summary": "", "message": fallbackMessage})
		return
	}

	summary, err := s.completer.Text(r.Context(), llm.EmailTriagePrompt(req.Email), 512)
	if err != nil {
		if generationFailed(err) {
			writeJSON(w, http.StatusOK, map[string]string{"summary": "", "message": fallbackMessage})
			return
		}
		s.internalError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"summary": summary})
}

func (s *Server) handleConnectExchange(w http.ResponseWriter, r *http.Request) {
	identity := auth.IdentityFrom(r.Context())

	var req struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Code == "" {
		writeError(w, http.StatusBadRequest, "code required")
		return
	}

	if s.creds == nil {
		writeError(w, http.StatusServiceUnavailable, "provider connection not configured")
		return
	}

	if err := s.creds.Connect(r.Context(), identity.ID, req.Code); err != nil {
		s.internalError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "connected"})
}
