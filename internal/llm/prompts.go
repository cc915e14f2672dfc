package llm

import (
	"fmt"
	"strings"
	"time"
)

// NudgePrompt generates the prompt for a proactive focus nudge, used by
// the background trigger job when a user keeps re-opening the app.
func NudgePrompt(userID string, count int, window time.Duration) string {
	return fmt.Sprintf(`You are a personal productivity assistant. User %s opened the app %d times in the last %d minutes without settling into any task.

Write ONE short, friendly nudge (max 2 sentences) suggesting they pick a single next action — review today's calendar, clear their inbox, or start their top task.

Rules:
- Address the user directly, no greeting
- No bullet points, no markdown
- If you cannot produce a useful nudge, respond with the single token [ERROR]`, userID, count, int(window.Minutes()))
}

// PrepSlotPrompt generates the structured prompt for candidate
// preparation slots ahead of a meeting.
func PrepSlotPrompt(meetingTitle string, meetingTime time.Time, durationMinutes int) string {
	return fmt.Sprintf(`You are a scheduling assistant. The user has a meeting "%s" at %s and wants %d minutes of preparation time before it.

Propose up to 3 candidate preparation slots earlier the same day.

Rules:
- Slots must end before the meeting starts
- Prefer round start times (:00 or :30)
- Return ONLY a JSON array, no other text

Return a JSON array of RFC3339 timestamps:
["2024-01-15T09:00:00Z", "2024-01-15T10:30:00Z"]`, meetingTitle, meetingTime.Format(time.RFC3339), durationMinutes)
}

// TaskGenPrompt generates the structured prompt for breaking a goal
// into actionable tasks.
func TaskGenPrompt(goal string, count int) string {
	return fmt.Sprintf(`You are a task planning assistant. Break this goal into at most %d concrete, actionable tasks.

GOAL:
%s

Rules:
- Each task must be completable in a single sitting
- Skip vague filler like "research options"
- due is optional; use RFC3339 or empty string
- Return ONLY a JSON array, no other text

Return a JSON array:
[{"title": "short imperative", "description": "one or two sentences", "due": ""}]`, count, goal)
}

// AssetQueryPrompt generates the structured prompt for suggesting
// reference assets (docs, templates, links) for a user query.
func AssetQueryPrompt(query string) string {
	return fmt.Sprintf(`You are a resource librarian. Suggest up to 5 reference assets (documents, templates, tools) relevant to this request.

REQUEST:
%s

Rules:
- Only suggest assets that plausibly exist
- kind is one of: document, template, tool, link
- Return ONLY a JSON array, no other text

Return a JSON array:
[{"name": "asset name", "url": "https://... or empty", "kind": "document"}]`, query)
}

// ChatPrompt generates the conversational prompt with the user's recent
// history folded in. History is expected oldest-first.
func ChatPrompt(history []ChatTurn, message string) string {
	var b strings.Builder
	b.WriteString("You are a personal productivity assistant. Answer the user's message helpfully and concisely.\n")
	if len(history) > 0 {
		b.WriteString("\nCONVERSATION SO FAR:\n")
		for _, t := range history {
			b.WriteString(fmt.Sprintf("%s: %s\n", t.Role, t.Content))
		}
	}
	b.WriteString("\nuser: ")
	b.WriteString(message)
	b.WriteString("\n\nRespond with the assistant's reply only, no role prefix. If you cannot answer, respond with the single token [ERROR]")
	return b.String()
}

// ChatTurn is one prior message included in a chat prompt.
type ChatTurn struct {
	Role    string
	Content string
}

// EmailTriagePrompt generates the free-text prompt for triaging a
// pasted email.
func EmailTriagePrompt(email string) string {
	return fmt.Sprintf(`You are an email triage assistant. Read this email and produce a short triage note.

EMAIL:
%s

Write:
1. A one-sentence summary
2. The urgency (low / normal / high)
3. The single recommended next action

Plain text, max 80 words. If the content is not an email or cannot be triaged, respond with the single token [ERROR]`, email)
}
