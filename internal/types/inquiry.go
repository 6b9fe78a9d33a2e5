package types

import (
	"encoding/json"
	"strings"
	"time"
)

type InquiryStatus string

const (
	InquiryStatusPending  InquiryStatus = "pending"
	InquiryStatusAnswered InquiryStatus = "answered"
)

// Inquiry is a server-raised request for a human answer. Inquiry holds the
// question payload, either a JSON string or an object.
type Inquiry struct {
	ID        string          `json:"id"`
	UserID    string          `json:"userId,omitempty"`
	SessionID string          `json:"sessionId"`
	AgentID   string          `json:"agentId,omitempty"`
	ToolName  string          `json:"toolName,omitempty"`
	ToolType  FunctionType    `json:"toolType,omitempty"`
	Inquiry   json.RawMessage `json:"inquiry,omitempty"`
	Response  json.RawMessage `json:"response,omitempty"`
	Question  string          `json:"question,omitempty"`
	Status    InquiryStatus   `json:"status,omitempty"`
	CreatedAt time.Time       `json:"created"`
	UpdatedAt time.Time       `json:"updated,omitempty"`
}

func (i *Inquiry) Answered() bool {
	if i == nil {
		return false
	}
	if i.Status == InquiryStatusAnswered {
		return true
	}
	if IsEmptyJSON(i.Response) {
		return false
	}
	var text string
	if err := json.Unmarshal(i.Response, &text); err == nil {
		return strings.TrimSpace(text) != ""
	}
	return true
}

func (i *Inquiry) AsksUser() bool {
	if i == nil {
		return false
	}
	return i.ToolType == FunctionAskUser
}

func CloneInquiry(in *Inquiry) *Inquiry {
	if in == nil {
		return nil
	}
	out := *in
	out.Inquiry = append(json.RawMessage(nil), in.Inquiry...)
	out.Response = append(json.RawMessage(nil), in.Response...)
	return &out
}
