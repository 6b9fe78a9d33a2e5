package store

import (
	"context"
	"strings"
	"time"

	"teamsync/internal/types"
)

// IndexRecorder writes controller lifecycle updates into a session index.
type IndexRecorder struct {
	sessions SessionIndexStore
	now      func() time.Time
}

func NewIndexRecorder(sessions SessionIndexStore) *IndexRecorder {
	return &IndexRecorder{sessions: sessions, now: time.Now}
}

func (r *IndexRecorder) RecordStarted(ctx context.Context, record *types.SessionRecord) error {
	if r == nil || r.sessions == nil {
		return nil
	}
	_, err := r.sessions.UpsertRecord(ctx, record)
	return err
}

func (r *IndexRecorder) RecordOutcome(ctx context.Context, sessionID string, status types.RunStatus, result, stopReason string) error {
	if r == nil || r.sessions == nil {
		return nil
	}
	now := r.now().UTC()
	record := &types.SessionRecord{
		SessionID:  strings.TrimSpace(sessionID),
		Status:     status,
		Result:     result,
		StopReason: strings.TrimSpace(stopReason),
		UpdatedAt:  now,
	}
	if status.IsTerminal() {
		record.CompletedAt = &now
	}
	_, err := r.sessions.UpsertRecord(ctx, record)
	return err
}
