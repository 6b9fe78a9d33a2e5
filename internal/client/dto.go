package client

import (
	"encoding/json"
	"strings"

	"teamsync/internal/types"
)

type MessageRequest struct {
	Message string `json:"message"`
}

type InquiryResponseRequest struct {
	Response string `json:"response"`
}

type RunResponse struct {
	TeamSession *types.Session        `json:"teamSession"`
	Messages    []types.MessageRecord `json:"messages,omitempty"`
}

type MessagesPage struct {
	Messages   []types.MessageRecord
	TotalCount int
}

// errorPayload covers both {"error": "..."} and {"message": "..." | [...]}
// error bodies.
type errorPayload struct {
	Error   json.RawMessage `json:"error"`
	Message json.RawMessage `json:"message"`
}

func (p errorPayload) text() string {
	if text := rawText(p.Message); text != "" {
		return text
	}
	return rawText(p.Error)
}

func rawText(raw json.RawMessage) string {
	if types.IsEmptyJSON(raw) {
		return ""
	}
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return strings.TrimSpace(text)
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return strings.TrimSpace(strings.Join(list, "; "))
	}
	return ""
}
