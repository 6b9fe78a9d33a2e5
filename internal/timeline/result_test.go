package timeline

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"teamsync/internal/types"
)

func TestExtractResultFallsBackToLastMessage(t *testing.T) {
	session := &types.Session{ID: "s1", Status: types.RunStatusComplete}
	records := []types.MessageRecord{
		{ID: "m1", Sender: "user", Message: "Build X"},
		{ID: "m2", Sender: "planner", Message: "done"},
	}
	result, ok := ExtractResult(session, records, time.Now())
	if !ok {
		t.Fatalf("expected result")
	}
	if result.Specification != "done" || result.Source != ResultSourceLastMessage {
		t.Fatalf("unexpected result: %#v", result)
	}
}

func TestExtractResultPrefersStructured(t *testing.T) {
	session := &types.Session{ID: "s1", Status: types.RunStatusComplete, Result: json.RawMessage(`{"specification":"# Spec"}`)}
	records := []types.MessageRecord{{ID: "m1", Sender: "planner", Message: "done"}}
	result, ok := ExtractResult(session, records, time.Now())
	if !ok || result.Source != ResultSourceStructured {
		t.Fatalf("expected structured result, got %#v", result)
	}
	if result.Specification != "# Spec" {
		t.Fatalf("unexpected specification %q", result.Specification)
	}

	session.Result = json.RawMessage(`{"summary":"x"}`)
	result, _ = ExtractResult(session, nil, time.Now())
	if !strings.Contains(result.Specification, `"summary": "x"`) {
		t.Fatalf("expected indented JSON fallback, got %q", result.Specification)
	}
}

func TestExtractResultWithNothing(t *testing.T) {
	if _, ok := ExtractResult(&types.Session{Result: json.RawMessage(`null`)}, nil, time.Now()); ok {
		t.Fatalf("expected no result")
	}
	records := []types.MessageRecord{{ID: "m1", Sender: "planner", Message: "  "}}
	if _, ok := ExtractResult(nil, records, time.Now()); ok {
		t.Fatalf("expected blank last message to yield nothing")
	}
}

func TestFinalEntryKeyedBySession(t *testing.T) {
	entry := FinalEntry("s1", FinalResult{Specification: "done"})
	if entry.Kind != types.EntryKindFinalSpecification || entry.NarrationKey != "result:s1" || entry.Content != "done" {
		t.Fatalf("unexpected final entry: %#v", entry)
	}
}

func TestToEntries(t *testing.T) {
	records := []types.MessageRecord{
		{ID: "m1", Sender: "user", Message: "Build X"},
		{Sender: "", AgentID: "coder", Content: json.RawMessage(`"writing"`)},
		{ID: "m3", Sender: "planner"},
		{ID: "m4", Sender: "coder", Type: types.MessageTypeTaskResult, Content: json.RawMessage(`{"ok":true}`)},
	}
	out := ToEntries("s1", records)
	if len(out) != 3 {
		t.Fatalf("expected empty record skipped, got %d entries", len(out))
	}
	if out[1].ID != "remote-s1-1" || out[1].Sender != "coder" || out[1].Content != "writing" {
		t.Fatalf("unexpected fallback entry: %#v", out[1])
	}
	if out[2].Kind != types.EntryKindTaskCompleted || out[2].Content != `{"ok":true}` || len(out[2].Payload) == 0 {
		t.Fatalf("unexpected task result entry: %#v", out[2])
	}
}
