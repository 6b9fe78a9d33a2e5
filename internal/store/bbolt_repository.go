package store

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"

	"teamsync/internal/types"
)

var (
	bucketMeta         = []byte("meta")
	bucketSessionIndex = []byte("session_index")
	keySchemaVersion   = []byte("schema_version")
)

type bboltRepository struct {
	db       *bolt.DB
	sessions SessionIndexStore
}

func NewBboltRepository(path string) (Repository, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("repository db path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, err
	}
	if err := initBboltSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &bboltRepository{
		db:       db,
		sessions: &bboltSessionIndexStore{db: db},
	}, nil
}

func (r *bboltRepository) SessionIndex() SessionIndexStore {
	return r.sessions
}

func (r *bboltRepository) Backend() string {
	return RepositoryBackendBbolt
}

func (r *bboltRepository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

func initBboltSchema(db *bolt.DB) error {
	return db.Update(func(tx *bolt.Tx) error {
		meta, err := tx.CreateBucketIfNotExists(bucketMeta)
		if err != nil {
			return err
		}
		if _, err := tx.CreateBucketIfNotExists(bucketSessionIndex); err != nil {
			return err
		}
		if meta.Get(keySchemaVersion) == nil {
			return meta.Put(keySchemaVersion, []byte{sessionIndexSchemaVersion})
		}
		return nil
	})
}

type bboltSessionIndexStore struct {
	db *bolt.DB
	mu sync.Mutex
}

func (s *bboltSessionIndexStore) ListRecords(ctx context.Context) ([]*types.SessionRecord, error) {
	out := make([]*types.SessionRecord, 0)
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSessionIndex)
		if b == nil {
			return nil
		}
		return b.ForEach(func(_, v []byte) error {
			var record types.SessionRecord
			if err := json.Unmarshal(v, &record); err != nil {
				return err
			}
			out = append(out, &record)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sortRecords(out)
	return out, nil
}

func (s *bboltSessionIndexStore) GetRecord(ctx context.Context, sessionID string) (*types.SessionRecord, bool, error) {
	var (
		out *types.SessionRecord
		ok  bool
	)
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSessionIndex)
		if b == nil {
			return nil
		}
		data := b.Get([]byte(strings.TrimSpace(sessionID)))
		if data == nil {
			return nil
		}
		var record types.SessionRecord
		if err := json.Unmarshal(data, &record); err != nil {
			return err
		}
		out = &record
		ok = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return out, ok, nil
}

func (s *bboltSessionIndexStore) UpsertRecord(ctx context.Context, record *types.SessionRecord) (*types.SessionRecord, error) {
	if err := validateRecord(record); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	normalized := normalizeSessionRecord(record)
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSessionIndex)
		if b == nil {
			return errors.New("session index bucket missing")
		}
		key := []byte(normalized.SessionID)
		if existing := b.Get(key); existing != nil {
			var previous types.SessionRecord
			if err := json.Unmarshal(existing, &previous); err == nil {
				normalized = mergeSessionRecord(&previous, normalized)
			}
		}
		data, err := json.Marshal(normalized)
		if err != nil {
			return err
		}
		return b.Put(key, data)
	})
	if err != nil {
		return nil, err
	}
	return types.CloneSessionRecord(normalized), nil
}

func (s *bboltSessionIndexStore) DeleteRecord(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSessionIndex)
		if b == nil {
			return ErrRecordNotFound
		}
		key := []byte(strings.TrimSpace(sessionID))
		if b.Get(key) == nil {
			return ErrRecordNotFound
		}
		return b.Delete(key)
	})
}
