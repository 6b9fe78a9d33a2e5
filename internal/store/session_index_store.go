package store

import (
	"context"
	"errors"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"teamsync/internal/types"
)

const sessionIndexSchemaVersion = 2

// FileSessionIndexStore keeps the index as one JSON document keyed by
// session id. Every call reads the file; writes replace it atomically.
type FileSessionIndexStore struct {
	path string
	mu   sync.Mutex
}

type sessionIndexFile struct {
	Version  int                             `json:"version"`
	Sessions map[string]*types.SessionRecord `json:"sessions"`
}

func NewFileSessionIndexStore(path string) *FileSessionIndexStore {
	return &FileSessionIndexStore{path: path}
}

func (s *FileSessionIndexStore) ListRecords(ctx context.Context) ([]*types.SessionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.read()
	if err != nil {
		return nil, err
	}
	out := make([]*types.SessionRecord, 0, len(doc.Sessions))
	for _, record := range doc.Sessions {
		out = append(out, types.CloneSessionRecord(record))
	}
	sortRecords(out)
	return out, nil
}

func (s *FileSessionIndexStore) GetRecord(ctx context.Context, sessionID string) (*types.SessionRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.read()
	if err != nil {
		return nil, false, err
	}
	record, ok := doc.Sessions[strings.TrimSpace(sessionID)]
	if !ok {
		return nil, false, nil
	}
	return types.CloneSessionRecord(record), true, nil
}

func (s *FileSessionIndexStore) UpsertRecord(ctx context.Context, record *types.SessionRecord) (*types.SessionRecord, error) {
	if err := validateRecord(record); err != nil {
		return nil, err
	}
	next := normalizeSessionRecord(record)
	err := s.update(func(doc *sessionIndexFile) error {
		next = mergeSessionRecord(doc.Sessions[next.SessionID], next)
		doc.Sessions[next.SessionID] = next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return types.CloneSessionRecord(next), nil
}

func (s *FileSessionIndexStore) DeleteRecord(ctx context.Context, sessionID string) error {
	sessionID = strings.TrimSpace(sessionID)
	return s.update(func(doc *sessionIndexFile) error {
		if _, ok := doc.Sessions[sessionID]; !ok {
			return ErrRecordNotFound
		}
		delete(doc.Sessions, sessionID)
		return nil
	})
}

// update applies fn to the stored document and writes it back unless fn
// fails. Callers must not hold s.mu.
func (s *FileSessionIndexStore) update(fn func(doc *sessionIndexFile) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.read()
	if err != nil {
		return err
	}
	if err := fn(doc); err != nil {
		return err
	}
	doc.Version = sessionIndexSchemaVersion
	return writeJSONAtomic(s.path, doc)
}

// read returns an empty document when the file does not exist yet.
func (s *FileSessionIndexStore) read() (*sessionIndexFile, error) {
	doc := &sessionIndexFile{}
	if err := readJSON(s.path, doc); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	if doc.Sessions == nil {
		doc.Sessions = map[string]*types.SessionRecord{}
	}
	for id, record := range doc.Sessions {
		if record == nil {
			delete(doc.Sessions, id)
		}
	}
	return doc, nil
}

func normalizeSessionRecord(record *types.SessionRecord) *types.SessionRecord {
	out := types.CloneSessionRecord(record)
	out.SessionID = strings.TrimSpace(out.SessionID)
	now := time.Now().UTC()
	if out.CreatedAt.IsZero() {
		out.CreatedAt = now
	}
	if out.UpdatedAt.IsZero() {
		out.UpdatedAt = now
	}
	return out
}

// mergeSessionRecord layers next over previous. The creation time, the
// attached flag and any field left empty in next keep their stored values.
func mergeSessionRecord(previous, next *types.SessionRecord) *types.SessionRecord {
	out := types.CloneSessionRecord(next)
	if previous == nil {
		return out
	}
	if !previous.CreatedAt.IsZero() {
		out.CreatedAt = previous.CreatedAt
	}
	if out.TeamID == "" {
		out.TeamID = previous.TeamID
	}
	if out.Prompt == "" {
		out.Prompt = previous.Prompt
	}
	if out.Status == "" {
		out.Status = previous.Status
	}
	if out.Result == "" {
		out.Result = previous.Result
	}
	if out.StopReason == "" {
		out.StopReason = previous.StopReason
	}
	if out.CompletedAt == nil && previous.CompletedAt != nil {
		completed := *previous.CompletedAt
		out.CompletedAt = &completed
	}
	out.Attached = previous.Attached
	return out
}

func sortRecords(records []*types.SessionRecord) {
	sort.Slice(records, func(i, j int) bool {
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
}
