package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"teamsync/internal/types"
)

func TestSessionIndexStoreUpsertList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.json")
	store := NewFileSessionIndexStore(path)

	list, err := store.ListRecords(context.Background())
	if err != nil || len(list) != 0 {
		t.Fatalf("expected empty list for missing file, got %v %v", list, err)
	}

	record := &types.SessionRecord{
		SessionID: "sess-1",
		TeamID:    "team-1",
		Prompt:    "Build X",
		Status:    types.RunStatusCreated,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := store.UpsertRecord(context.Background(), record); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if _, err := store.UpsertRecord(context.Background(), &types.SessionRecord{SessionID: "sess-1", Status: types.RunStatusStopped}); err != nil {
		t.Fatalf("upsert update: %v", err)
	}

	list, err = store.ListRecords(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 record, got %d", len(list))
	}

	got, ok, err := store.GetRecord(context.Background(), "sess-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !ok || got.Status != types.RunStatusStopped || got.Prompt != "Build X" {
		t.Fatalf("unexpected record %#v", got)
	}

	if err := store.DeleteRecord(context.Background(), "sess-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := store.DeleteRecord(context.Background(), "sess-1"); !errors.Is(err, ErrRecordNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestIndexRecorderTracksLifecycle(t *testing.T) {
	repo, err := NewBboltRepository(filepath.Join(t.TempDir(), "sessions.db"))
	if err != nil {
		t.Fatalf("NewBboltRepository: %v", err)
	}
	defer repo.Close()
	ctx := context.Background()
	recorder := NewIndexRecorder(repo.SessionIndex())
	fixed := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	recorder.now = func() time.Time { return fixed }

	if err := recorder.RecordStarted(ctx, &types.SessionRecord{SessionID: "s1", TeamID: "team-1", Prompt: "Build X", Status: types.RunStatusCreated}); err != nil {
		t.Fatalf("record started: %v", err)
	}
	if err := recorder.RecordOutcome(ctx, "s1", types.RunStatusError, "", "agent crashed"); err != nil {
		t.Fatalf("record outcome: %v", err)
	}
	got, ok, err := repo.SessionIndex().GetRecord(ctx, "s1")
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if got.Status != types.RunStatusError || got.StopReason != "agent crashed" || got.Prompt != "Build X" {
		t.Fatalf("unexpected record %#v", got)
	}
	if got.CompletedAt == nil || !got.CompletedAt.Equal(fixed) {
		t.Fatalf("expected completion time, got %v", got.CompletedAt)
	}
}

func TestNilRecorderIsNoop(t *testing.T) {
	var recorder *IndexRecorder
	if err := recorder.RecordOutcome(context.Background(), "s1", types.RunStatusComplete, "", ""); err != nil {
		t.Fatalf("expected nil recorder to be a no-op, got %v", err)
	}
}
