package types

import (
	"encoding/json"
	"time"
)

type EntryKind string

const (
	EntryKindMessage            EntryKind = "message"
	EntryKindTaskStarted        EntryKind = "task_started"
	EntryKindTaskCompleted      EntryKind = "task_completed"
	EntryKindInquiryQuestion    EntryKind = "inquiry_question"
	EntryKindFinalSpecification EntryKind = "final_specification"
)

// TimelineEntry is one renderable unit of the conversation view.
// NarrationKey is set only on entries synthesized locally from an observed
// state change.
type TimelineEntry struct {
	ID           string          `json:"id"`
	Sender       string          `json:"sender"`
	AgentID      string          `json:"agent_id,omitempty"`
	Content      string          `json:"content"`
	Kind         EntryKind       `json:"kind"`
	CreatedAt    time.Time       `json:"created_at"`
	Payload      json.RawMessage `json:"payload,omitempty"`
	NarrationKey string          `json:"narration_key,omitempty"`
}

type EntryKey struct {
	Sender  string
	Content string
}

func (e TimelineEntry) DedupKey() EntryKey {
	return EntryKey{Sender: e.Sender, Content: e.Content}
}

func (e TimelineEntry) Synthetic() bool {
	return e.NarrationKey != ""
}

func CloneEntries(entries []TimelineEntry) []TimelineEntry {
	if entries == nil {
		return nil
	}
	out := make([]TimelineEntry, len(entries))
	for i, entry := range entries {
		entry.Payload = append(json.RawMessage(nil), entry.Payload...)
		out[i] = entry
	}
	return out
}
