package types

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

type TaskStatus string

const (
	TaskStatusPending           TaskStatus = "pending"
	TaskStatusInProgress        TaskStatus = "in_progress"
	TaskStatusDone              TaskStatus = "done"
	TaskStatusFailed            TaskStatus = "failed"
	TaskStatusAwaitingUserInput TaskStatus = "awaiting_user_input"
)

type TaskPriority string

const (
	TaskPriorityHigh   TaskPriority = "high"
	TaskPriorityMedium TaskPriority = "medium"
	TaskPriorityLow    TaskPriority = "low"
)

// TaskID is a backlog item identifier. The service reports numeric ids but
// string ids are accepted as well; both decode to the same textual form.
type TaskID string

func (id *TaskID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var value string
		if err := json.Unmarshal(data, &value); err != nil {
			return err
		}
		*id = TaskID(strings.TrimSpace(value))
		return nil
	}
	var number json.Number
	if err := json.Unmarshal(data, &number); err != nil {
		return err
	}
	*id = TaskID(number.String())
	return nil
}

func (id TaskID) MarshalJSON() ([]byte, error) {
	if _, err := strconv.ParseInt(string(id), 10, 64); err == nil {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

type Task struct {
	ID                 TaskID          `json:"id"`
	Title              string          `json:"title"`
	Description        string          `json:"description,omitempty"`
	Status             TaskStatus      `json:"status"`
	Priority           TaskPriority    `json:"priority,omitempty"`
	Details            string          `json:"details,omitempty"`
	Result             json.RawMessage `json:"result,omitempty"`
	Dependencies       []TaskID        `json:"dependencies,omitempty"`
	RetryCount         int             `json:"retryCount,omitempty"`
	DelegatedToTeamID  string          `json:"delegatedToTeamId,omitempty"`
	DelegatedSessionID string          `json:"delegatedSessionId,omitempty"`
}

func (t Task) Label() string {
	title := strings.TrimSpace(t.Title)
	if title != "" {
		return title
	}
	return "Task " + string(t.ID)
}

func CloneTasks(tasks []Task) []Task {
	if tasks == nil {
		return nil
	}
	out := make([]Task, len(tasks))
	for i, task := range tasks {
		task.Result = append(json.RawMessage(nil), task.Result...)
		task.Dependencies = append([]TaskID(nil), task.Dependencies...)
		out[i] = task
	}
	return out
}
