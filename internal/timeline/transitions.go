package timeline

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"teamsync/internal/types"
)

const noResultPlaceholder = "No result provided"

// DetectTransitions compares two backlog snapshots and returns the started
// and completed notifications the delta calls for. Output depends only on
// its inputs.
func DetectTransitions(previous, current []types.Task, at time.Time) []types.TimelineEntry {
	if len(current) == 0 {
		return nil
	}
	before := make(map[types.TaskID]types.TaskStatus, len(previous))
	for _, task := range previous {
		before[task.ID] = task.Status
	}
	var out []types.TimelineEntry
	for _, task := range current {
		prev, known := before[task.ID]
		switch task.Status {
		case types.TaskStatusInProgress:
			if known && prev == types.TaskStatusInProgress {
				continue
			}
			out = append(out, taskStartedEntry(task, at))
		case types.TaskStatusDone:
			if known && prev == types.TaskStatusDone {
				continue
			}
			out = append(out, taskCompletedEntry(task, at))
		}
	}
	return out
}

func TaskNarrationKey(id types.TaskID, kind types.EntryKind) string {
	switch kind {
	case types.EntryKindTaskStarted:
		return "task:" + string(id) + ":started"
	case types.EntryKindTaskCompleted:
		return "task:" + string(id) + ":completed"
	default:
		return "task:" + string(id) + ":" + string(kind)
	}
}

func taskStartedEntry(task types.Task, at time.Time) types.TimelineEntry {
	key := TaskNarrationKey(task.ID, types.EntryKindTaskStarted)
	return types.TimelineEntry{
		ID:           key,
		Sender:       types.SenderSystem,
		Content:      "Task started: " + task.Label(),
		Kind:         types.EntryKindTaskStarted,
		CreatedAt:    at,
		NarrationKey: key,
	}
}

func taskCompletedEntry(task types.Task, at time.Time) types.TimelineEntry {
	key := TaskNarrationKey(task.ID, types.EntryKindTaskCompleted)
	entry := types.TimelineEntry{
		ID:           key,
		Sender:       types.SenderSystem,
		Content:      "Task completed: " + task.Label() + "\n\n" + FormatResult(task.Result),
		Kind:         types.EntryKindTaskCompleted,
		CreatedAt:    at,
		NarrationKey: key,
	}
	if !types.IsEmptyJSON(task.Result) {
		entry.Payload = append(json.RawMessage(nil), task.Result...)
	}
	return entry
}

// FormatResult renders a task result for display: objects and arrays as
// indented JSON, strings verbatim, other scalars as their JSON text.
func FormatResult(raw json.RawMessage) string {
	if types.IsEmptyJSON(raw) {
		return noResultPlaceholder
	}
	trimmed := bytes.TrimSpace(raw)
	switch trimmed[0] {
	case '"':
		var text string
		if err := json.Unmarshal(trimmed, &text); err == nil {
			return text
		}
	case '{', '[':
		var buf bytes.Buffer
		if err := json.Indent(&buf, trimmed, "", "  "); err == nil {
			return buf.String()
		}
	}
	return strings.TrimSpace(string(trimmed))
}
