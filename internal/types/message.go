package types

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"
)

const (
	SenderUser   = "user"
	SenderSystem = "system"
)

const MessageTypeTaskResult = "task-result"

// MessageRecord is one raw record of the remote message log.
type MessageRecord struct {
	ID           string          `json:"id"`
	UserID       string          `json:"userId,omitempty"`
	SessionID    string          `json:"sessionId,omitempty"`
	Sender       string          `json:"sender"`
	Message      string          `json:"message"`
	Content      json.RawMessage `json:"content,omitempty"`
	AgentID      string          `json:"agentId,omitempty"`
	Type         string          `json:"type,omitempty"`
	FinishReason string          `json:"finishReason,omitempty"`
	Error        string          `json:"error,omitempty"`
	CreatedAt    time.Time       `json:"created"`
	UpdatedAt    time.Time       `json:"updated,omitempty"`
}

// Text returns the displayable body: the message field, else the content
// field (unquoted when it is a JSON string).
func (m MessageRecord) Text() string {
	if m.Message != "" {
		return m.Message
	}
	return JSONText(m.Content)
}

// IsEmptyJSON reports whether raw carries no value: absent, null, an empty
// string, or an empty object or array.
func IsEmptyJSON(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	switch string(trimmed) {
	case "", "null", `""`, "{}", "[]":
		return true
	}
	return false
}

// JSONText renders raw for display. Strings are returned verbatim, other
// values as compact JSON.
func JSONText(raw json.RawMessage) string {
	if IsEmptyJSON(raw) {
		return ""
	}
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return text
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return strings.TrimSpace(string(raw))
	}
	return buf.String()
}
