package timeline

import (
	"encoding/json"
	"sort"
	"strings"
	"time"

	"teamsync/internal/types"
)

const defaultQuestionText = "Please provide additional information"

// Question payload fields, in lookup order.
var questionFields = []string{"question", "message", "text", "prompt"}

var detailFields = []string{"description", "details", "help"}

type Resolution struct {
	Pending *types.Inquiry
	Entries []types.TimelineEntry
}

// ResolveInquiry picks the inquiry blocking the session, if any, and returns
// a question entry for every unanswered candidate in creation order. It does
// nothing unless the session is awaiting a tool result.
func ResolveInquiry(session *types.Session, inquiries []types.Inquiry, at time.Time) Resolution {
	if session == nil || session.Status != types.RunStatusAwaitingToolResult {
		return Resolution{}
	}
	askUserCalled := session.ToolTypeCalled == types.FunctionAskUser
	var candidates []*types.Inquiry
	for i := range inquiries {
		inquiry := &inquiries[i]
		if inquiry.Answered() {
			continue
		}
		if !inquiry.AsksUser() && !askUserCalled {
			continue
		}
		candidates = append(candidates, inquiry)
	}
	if len(candidates) == 0 {
		return Resolution{}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].CreatedAt.Before(candidates[j].CreatedAt)
	})
	res := Resolution{
		Pending: types.CloneInquiry(candidates[len(candidates)-1]),
		Entries: make([]types.TimelineEntry, 0, len(candidates)),
	}
	for _, inquiry := range candidates {
		res.Entries = append(res.Entries, questionEntry(inquiry, at))
	}
	return res
}

func InquiryNarrationKey(id string) string {
	return "inquiry:" + id
}

func questionEntry(inquiry *types.Inquiry, at time.Time) types.TimelineEntry {
	sender := strings.TrimSpace(inquiry.AgentID)
	if sender == "" {
		sender = types.SenderSystem
	}
	createdAt := inquiry.CreatedAt
	if createdAt.IsZero() {
		createdAt = at
	}
	key := InquiryNarrationKey(inquiry.ID)
	return types.TimelineEntry{
		ID:           key,
		Sender:       sender,
		AgentID:      inquiry.AgentID,
		Content:      QuestionText(inquiry),
		Kind:         types.EntryKindInquiryQuestion,
		CreatedAt:    createdAt,
		Payload:      append(json.RawMessage(nil), inquiry.Inquiry...),
		NarrationKey: key,
	}
}

// QuestionText extracts the text to show for an inquiry: the direct
// question field, a string payload, then the payload's question, message,
// text or prompt field, then a fixed fallback.
func QuestionText(inquiry *types.Inquiry) string {
	if inquiry == nil {
		return defaultQuestionText
	}
	if question := strings.TrimSpace(inquiry.Question); question != "" {
		return question
	}
	if types.IsEmptyJSON(inquiry.Inquiry) {
		return defaultQuestionText
	}
	var text string
	if err := json.Unmarshal(inquiry.Inquiry, &text); err == nil {
		if strings.TrimSpace(text) != "" {
			return text
		}
		return defaultQuestionText
	}
	if value, ok := firstStringField(inquiry.Inquiry, questionFields); ok {
		return value
	}
	return defaultQuestionText
}

// QuestionDetails returns the supplementary description, details and help
// strings of a structured inquiry payload, skipping absent ones.
func QuestionDetails(inquiry *types.Inquiry) []string {
	if inquiry == nil || types.IsEmptyJSON(inquiry.Inquiry) {
		return nil
	}
	var payload map[string]any
	if err := json.Unmarshal(inquiry.Inquiry, &payload); err != nil {
		return nil
	}
	var out []string
	for _, field := range detailFields {
		if value, ok := payload[field].(string); ok && strings.TrimSpace(value) != "" {
			out = append(out, value)
		}
	}
	return out
}

func firstStringField(raw json.RawMessage, fields []string) (string, bool) {
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return "", false
	}
	for _, field := range fields {
		value, ok := payload[field].(string)
		if ok && strings.TrimSpace(value) != "" {
			return value, true
		}
	}
	return "", false
}
