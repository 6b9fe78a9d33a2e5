package session

import (
	"context"

	"teamsync/internal/types"
)

// Gateway is the remote orchestration service as seen by the controller.
type Gateway interface {
	CreateSession(ctx context.Context, teamID, message string) (string, error)
	ContinueSession(ctx context.Context, teamID, sessionID, message string) error
	StopSession(ctx context.Context, sessionID string) error
	GetSession(ctx context.Context, sessionID string) (*types.Session, error)
	GetMessages(ctx context.Context, sessionID string) ([]types.MessageRecord, error)
	GetInquiries(ctx context.Context, sessionID string) ([]types.Inquiry, error)
	RespondToInquiry(ctx context.Context, inquiryID, message string) error
}

// Recorder keeps the local index of sessions in step with the controller.
type Recorder interface {
	RecordStarted(ctx context.Context, record *types.SessionRecord) error
	RecordOutcome(ctx context.Context, sessionID string, status types.RunStatus, result, stopReason string) error
}
