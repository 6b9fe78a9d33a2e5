package types

import "time"

// SessionRecord is the locally persisted index row of a session this client
// started or attached to. It never holds timeline entries.
type SessionRecord struct {
	SessionID   string     `json:"session_id"`
	TeamID      string     `json:"team_id"`
	Prompt      string     `json:"prompt,omitempty"`
	Status      RunStatus  `json:"status"`
	Result      string     `json:"result,omitempty"`
	StopReason  string     `json:"stop_reason,omitempty"`
	Attached    bool       `json:"attached,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

func CloneSessionRecord(in *SessionRecord) *SessionRecord {
	if in == nil {
		return nil
	}
	out := *in
	if in.CompletedAt != nil {
		completed := *in.CompletedAt
		out.CompletedAt = &completed
	}
	return &out
}

func CloneSession(in *Session) *Session {
	if in == nil {
		return nil
	}
	out := *in
	out.Result = append([]byte(nil), in.Result...)
	out.Backlog = CloneTasks(in.Backlog)
	if in.CreatedAt != nil {
		created := *in.CreatedAt
		out.CreatedAt = &created
	}
	if in.UpdatedAt != nil {
		updated := *in.UpdatedAt
		out.UpdatedAt = &updated
	}
	return &out
}
