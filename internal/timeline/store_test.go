package timeline

import (
	"reflect"
	"testing"
	"time"

	"teamsync/internal/types"
)

func entry(id, sender, content string) types.TimelineEntry {
	return types.TimelineEntry{ID: id, Sender: sender, Content: content, Kind: types.EntryKindMessage}
}

func contents(entries []types.TimelineEntry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Sender+":"+e.Content)
	}
	return out
}

func TestMergeIsIdempotent(t *testing.T) {
	store := NewStore()
	remote := []types.TimelineEntry{entry("m1", "user", "Build X"), entry("m2", "planner", "On it")}
	store.Merge(remote, nil)
	first := store.Entries()

	if added := store.Merge(remote, nil); added != 0 {
		t.Fatalf("expected no growth on second merge, got %d", added)
	}
	if !reflect.DeepEqual(first, store.Entries()) {
		t.Fatalf("merge not idempotent:\nfirst=%v\nsecond=%v", contents(first), contents(store.Entries()))
	}
}

func TestMergeKeepsEarliestPositionWithNewestCopy(t *testing.T) {
	store := NewStore()
	store.Append(types.TimelineEntry{ID: "local-1", Sender: "user", Content: "Build X", Kind: types.EntryKindMessage})
	store.Merge(nil, []types.TimelineEntry{{
		ID: "task:1:started", Sender: "system", Content: "Task started: Plan", Kind: types.EntryKindTaskStarted, NarrationKey: "task:1:started",
	}})
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	remote := []types.TimelineEntry{{ID: "m1", Sender: "user", Content: "Build X", Kind: types.EntryKindMessage, CreatedAt: created}}
	store.Merge(remote, nil)

	got := store.Entries()
	if want := []string{"user:Build X", "system:Task started: Plan"}; !reflect.DeepEqual(contents(got), want) {
		t.Fatalf("unexpected order: %v", contents(got))
	}
	if got[0].ID != "m1" || !got[0].CreatedAt.Equal(created) {
		t.Fatalf("expected remote copy metadata at original position, got %#v", got[0])
	}
}

func TestMergeAppendsNewRemoteEntriesAfterSynthetic(t *testing.T) {
	store := NewStore()
	store.Merge([]types.TimelineEntry{entry("m1", "user", "Build X")}, nil)
	synthetic := []types.TimelineEntry{{ID: "s", Sender: "system", Content: "Task started: A", NarrationKey: "task:1:started"}}
	remote := []types.TimelineEntry{entry("m1", "user", "Build X"), entry("m2", "coder", "Working")}
	store.Merge(remote, synthetic)

	want := []string{"user:Build X", "system:Task started: A", "coder:Working"}
	if got := contents(store.Entries()); !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected timeline: %v", got)
	}
}

func TestMergeNarratesEachKeyOnce(t *testing.T) {
	store := NewStore()
	synthetic := []types.TimelineEntry{{ID: "q", Sender: "agent", Content: "Which branch?", NarrationKey: "inquiry:q1"}}
	for i := 0; i < 5; i++ {
		store.Merge(nil, synthetic)
	}
	if store.Len() != 1 {
		t.Fatalf("expected one narrated entry, got %d", store.Len())
	}
	if !store.Narrated("inquiry:q1") {
		t.Fatalf("expected key recorded")
	}

	// Same key with different content is still suppressed.
	store.Merge(nil, []types.TimelineEntry{{ID: "q", Sender: "agent", Content: "Which branch now?", NarrationKey: "inquiry:q1"}})
	if store.Len() != 1 {
		t.Fatalf("expected narrated key to suppress re-narration, got %d entries", store.Len())
	}
}

func TestMergeCollapsesDuplicatesWithinRemoteLog(t *testing.T) {
	store := NewStore()
	remote := []types.TimelineEntry{
		entry("m1", "planner", "ok"),
		entry("m2", "user", "next"),
		entry("m3", "planner", "ok"),
	}
	store.Merge(remote, nil)
	got := store.Entries()
	if want := []string{"planner:ok", "user:next"}; !reflect.DeepEqual(contents(got), want) {
		t.Fatalf("unexpected dedupe: %v", contents(got))
	}
	if got[0].ID != "m3" {
		t.Fatalf("expected newest copy to win, got %q", got[0].ID)
	}
}

func TestSameContentDifferentSenderIsKept(t *testing.T) {
	out := Dedupe([]types.TimelineEntry{entry("a", "user", "done"), entry("b", "agent", "done")})
	if len(out) != 2 {
		t.Fatalf("expected both entries kept, got %v", contents(out))
	}
}

func TestStoreRemove(t *testing.T) {
	store := NewStore()
	store.Append(entry("local-1", "user", "hello"))
	store.Append(entry("local-2", "user", "again"))
	if !store.Remove("local-1") {
		t.Fatalf("expected remove to succeed")
	}
	if store.Remove("missing") {
		t.Fatalf("expected remove of unknown id to fail")
	}
	if got := contents(store.Entries()); !reflect.DeepEqual(got, []string{"user:again"}) {
		t.Fatalf("unexpected entries after remove: %v", got)
	}
	store.Merge(nil, []types.TimelineEntry{{ID: "x", Sender: "system", Content: "x", NarrationKey: "k"}})
	if !store.Remove("x") {
		t.Fatalf("expected remove of narrated entry to succeed")
	}
	if !store.Narrated("k") {
		t.Fatalf("expected narration key kept after remove")
	}
	if added := store.Merge(nil, []types.TimelineEntry{{ID: "y", Sender: "system", Content: "x", NarrationKey: "k"}}); added != 0 {
		t.Fatalf("expected removed narration not to repeat, added %d", added)
	}
}

func TestEntriesReturnsCopy(t *testing.T) {
	store := NewStore()
	store.Append(entry("a", "user", "hello"))
	got := store.Entries()
	got[0].Content = "mutated"
	if store.Entries()[0].Content != "hello" {
		t.Fatalf("expected store to be isolated from callers")
	}
}
