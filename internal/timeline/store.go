package timeline

import (
	"teamsync/internal/types"
)

// Store is the ordered conversation log of one session together with the
// set of narration keys already merged. Callers serialize access.
type Store struct {
	entries  []types.TimelineEntry
	narrated map[string]struct{}
}

func NewStore() *Store {
	return &Store{narrated: map[string]struct{}{}}
}

// Merge appends the synthetic entries not narrated before, then the freshly
// fetched remote log, and collapses entries sharing (sender, content). It
// returns how many entries the timeline grew by.
func (s *Store) Merge(remote, synthetic []types.TimelineEntry) int {
	if s == nil {
		return 0
	}
	before := len(s.entries)
	combined := make([]types.TimelineEntry, 0, len(s.entries)+len(synthetic)+len(remote))
	combined = append(combined, s.entries...)
	for _, entry := range synthetic {
		if entry.NarrationKey != "" {
			if _, seen := s.narrated[entry.NarrationKey]; seen {
				continue
			}
			s.narrated[entry.NarrationKey] = struct{}{}
		}
		combined = append(combined, entry)
	}
	combined = append(combined, remote...)
	s.entries = Dedupe(combined)
	return len(s.entries) - before
}

// Append adds a locally originated entry, such as an optimistic user reply.
func (s *Store) Append(entry types.TimelineEntry) {
	if s == nil {
		return
	}
	s.Merge(nil, []types.TimelineEntry{entry})
}

// Remove drops the entry with the given id. It is used to roll back an
// optimistic entry whose request failed.
func (s *Store) Remove(id string) bool {
	if s == nil || id == "" {
		return false
	}
	for i, entry := range s.entries {
		if entry.ID != id {
			continue
		}
		s.entries = append(s.entries[:i:i], s.entries[i+1:]...)
		return true
	}
	return false
}

func (s *Store) Contains(key types.EntryKey) bool {
	if s == nil {
		return false
	}
	for _, entry := range s.entries {
		if entry.DedupKey() == key {
			return true
		}
	}
	return false
}

func (s *Store) Entries() []types.TimelineEntry {
	if s == nil {
		return nil
	}
	return types.CloneEntries(s.entries)
}

func (s *Store) Len() int {
	if s == nil {
		return 0
	}
	return len(s.entries)
}

func (s *Store) Narrated(key string) bool {
	if s == nil {
		return false
	}
	_, ok := s.narrated[key]
	return ok
}

// Dedupe keeps one entry per (sender, content). The survivor sits at the
// earliest position of its key and carries the newest copy's fields.
func Dedupe(entries []types.TimelineEntry) []types.TimelineEntry {
	if len(entries) == 0 {
		return nil
	}
	newest := make(map[types.EntryKey]int, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		key := entries[i].DedupKey()
		if _, ok := newest[key]; !ok {
			newest[key] = i
		}
	}
	out := make([]types.TimelineEntry, 0, len(newest))
	placed := make(map[types.EntryKey]struct{}, len(newest))
	for _, entry := range entries {
		key := entry.DedupKey()
		if _, ok := placed[key]; ok {
			continue
		}
		placed[key] = struct{}{}
		out = append(out, entries[newest[key]])
	}
	return out
}
