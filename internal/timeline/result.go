package timeline

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"teamsync/internal/types"
)

type ResultSource string

const (
	ResultSourceStructured  ResultSource = "structured"
	ResultSourceLastMessage ResultSource = "last_message"
)

// FinalResult is what a completed session produced.
type FinalResult struct {
	Specification string          `json:"specification"`
	Structured    json.RawMessage `json:"structured,omitempty"`
	Source        ResultSource    `json:"source"`
	CompletedAt   time.Time       `json:"completed_at"`
}

// ExtractResult prefers the session's structured result and falls back to
// the last record of the message log. Some sessions finish without
// populating the structured field.
func ExtractResult(session *types.Session, records []types.MessageRecord, at time.Time) (FinalResult, bool) {
	if session.HasResult() {
		return FinalResult{
			Specification: specificationText(session.Result),
			Structured:    append(json.RawMessage(nil), session.Result...),
			Source:        ResultSourceStructured,
			CompletedAt:   at,
		}, true
	}
	if len(records) == 0 {
		return FinalResult{}, false
	}
	text := records[len(records)-1].Text()
	if strings.TrimSpace(text) == "" {
		return FinalResult{}, false
	}
	return FinalResult{
		Specification: text,
		Source:        ResultSourceLastMessage,
		CompletedAt:   at,
	}, true
}

func ResultNarrationKey(sessionID string) string {
	return "result:" + sessionID
}

func FinalEntry(sessionID string, result FinalResult) types.TimelineEntry {
	key := ResultNarrationKey(sessionID)
	return types.TimelineEntry{
		ID:           key,
		Sender:       types.SenderSystem,
		Content:      result.Specification,
		Kind:         types.EntryKindFinalSpecification,
		CreatedAt:    result.CompletedAt,
		Payload:      append(json.RawMessage(nil), result.Structured...),
		NarrationKey: key,
	}
}

// specificationText prefers a "specification" string inside a structured
// result, then a bare string, then the indented JSON.
func specificationText(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	var payload map[string]any
	if err := json.Unmarshal(trimmed, &payload); err == nil {
		if spec, ok := payload["specification"].(string); ok && strings.TrimSpace(spec) != "" {
			return spec
		}
	}
	return FormatResult(trimmed)
}

// ToEntries transcribes the remote message log into timeline entries.
// Records without an id get one derived from their log position.
func ToEntries(sessionID string, records []types.MessageRecord) []types.TimelineEntry {
	if len(records) == 0 {
		return nil
	}
	out := make([]types.TimelineEntry, 0, len(records))
	for i, record := range records {
		text := record.Text()
		if strings.TrimSpace(text) == "" {
			continue
		}
		id := strings.TrimSpace(record.ID)
		if id == "" {
			id = "remote-" + sessionID + "-" + strconv.Itoa(i)
		}
		sender := strings.TrimSpace(record.Sender)
		if sender == "" {
			sender = strings.TrimSpace(record.AgentID)
		}
		if sender == "" {
			sender = types.SenderSystem
		}
		entry := types.TimelineEntry{
			ID:        id,
			Sender:    sender,
			AgentID:   record.AgentID,
			Content:   text,
			Kind:      types.EntryKindMessage,
			CreatedAt: record.CreatedAt,
		}
		if record.Type == types.MessageTypeTaskResult {
			entry.Kind = types.EntryKindTaskCompleted
			if !types.IsEmptyJSON(record.Content) {
				entry.Payload = append(json.RawMessage(nil), record.Content...)
			}
		}
		out = append(out, entry)
	}
	return out
}
