package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"teamsync/internal/types"
)

const (
	RepositoryBackendFile  = "file"
	RepositoryBackendBbolt = "bbolt"
)

var ErrRecordNotFound = errors.New("session record not found")

// SessionIndexStore persists one metadata row per session this client
// started or attached to.
type SessionIndexStore interface {
	ListRecords(ctx context.Context) ([]*types.SessionRecord, error)
	GetRecord(ctx context.Context, sessionID string) (*types.SessionRecord, bool, error)
	UpsertRecord(ctx context.Context, record *types.SessionRecord) (*types.SessionRecord, error)
	DeleteRecord(ctx context.Context, sessionID string) error
}

type Repository interface {
	SessionIndex() SessionIndexStore
	Backend() string
	Close() error
}

// Open returns the session index repository for the configured backend.
func Open(backend, path string) (Repository, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", RepositoryBackendBbolt:
		return NewBboltRepository(path)
	case RepositoryBackendFile:
		return NewFileRepository(path)
	default:
		return nil, fmt.Errorf("unsupported store backend %q", backend)
	}
}

type fileRepository struct {
	sessions *FileSessionIndexStore
}

func NewFileRepository(path string) (Repository, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("session index path is required")
	}
	return &fileRepository{sessions: NewFileSessionIndexStore(path)}, nil
}

func (r *fileRepository) SessionIndex() SessionIndexStore {
	return r.sessions
}

func (r *fileRepository) Backend() string {
	return RepositoryBackendFile
}

func (r *fileRepository) Close() error {
	return nil
}

func validateRecord(record *types.SessionRecord) error {
	if record == nil || strings.TrimSpace(record.SessionID) == "" {
		return errors.New("session record requires session id")
	}
	return nil
}
