package types

import (
	"encoding/json"
	"time"
)

type RunStatus string

const (
	RunStatusCreated                 RunStatus = "created"
	RunStatusActive                  RunStatus = "active"
	RunStatusAwaitingToolResult      RunStatus = "awaiting_tool_result"
	RunStatusAwaitingDelegatedResult RunStatus = "awaiting_delegated_result"
	RunStatusComplete                RunStatus = "complete"
	RunStatusError                   RunStatus = "error"
	RunStatusStopped                 RunStatus = "stopped"
)

// IsTerminal reports whether a session in this status will not make further progress.
func (s RunStatus) IsTerminal() bool {
	switch s {
	case RunStatusComplete, RunStatusError, RunStatusStopped:
		return true
	default:
		return false
	}
}

type SessionMeta struct {
	Name string `json:"name,omitempty"`
}

// Session is one snapshot of a remote team session as reported by the
// orchestration service.
type Session struct {
	ID              string          `json:"id"`
	SessionID       string          `json:"sessionId,omitempty"`
	UserID          string          `json:"userId,omitempty"`
	TeamID          string          `json:"teamId,omitempty"`
	Status          RunStatus       `json:"status"`
	Completed       bool            `json:"completed,omitempty"`
	MessagesCount   int             `json:"messagesCount,omitempty"`
	Result          json.RawMessage `json:"result,omitempty"`
	Meta            SessionMeta     `json:"meta,omitempty"`
	StopReason      string          `json:"stopReason,omitempty"`
	CurrentAgent    string          `json:"currentAgent,omitempty"`
	PreviousAgent   string          `json:"previousAgent,omitempty"`
	Backlog         []Task          `json:"backlog,omitempty"`
	DelegatedFromID string          `json:"delegatedFromTeamSessionId,omitempty"`
	ToolTypeCalled  FunctionType    `json:"toolTypeCalled,omitempty"`
	CreatedAt       *time.Time      `json:"created,omitempty"`
	UpdatedAt       *time.Time      `json:"updated,omitempty"`
}

func (s *Session) IsTerminal() bool {
	if s == nil {
		return false
	}
	return s.EffectiveStatus().IsTerminal()
}

// EffectiveStatus is the reported status, except that a set completed flag
// on a non-terminal status reads as complete.
func (s *Session) EffectiveStatus() RunStatus {
	if s == nil {
		return ""
	}
	if s.Completed && !s.Status.IsTerminal() {
		return RunStatusComplete
	}
	return s.Status
}

// HasResult reports whether the structured result field carries a value.
func (s *Session) HasResult() bool {
	if s == nil {
		return false
	}
	return !IsEmptyJSON(s.Result)
}

type FunctionType string

const (
	FunctionAskUser                FunctionType = "ask-user"
	FunctionWebhookTrigger         FunctionType = "webhook-trigger"
	FunctionUnknown                FunctionType = "unknown"
	FunctionCreateAgent            FunctionType = "create-agent"
	FunctionGetAgentData           FunctionType = "get-agent-data"
	FunctionValidateAgentConfig    FunctionType = "validate-agent-config"
	FunctionValidateRunAgentConfig FunctionType = "validate-run-agent-config"
	FunctionAddTasks               FunctionType = "add-tasks"
	FunctionDefault                FunctionType = "default"
)
