package session

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/matzehuels/flowscope/pkg/cache"
	"github.com/matzehuels/flowscope/pkg/errors"
)

// Record is a persisted session.
type Record struct {
	ID        string          `json:"id"`
	Engine    string          `json:"engine"`
	Snapshot  json.RawMessage `json:"snapshot"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
	ExpiresAt time.Time       `json:"expires_at"`
}

// IsExpired reports whether the record has passed its expiry.
func (r *Record) IsExpired() bool {
	return !r.ExpiresAt.IsZero() && time.Now().After(r.ExpiresAt)
}

// Store persists session records.
type Store interface {
	// Load returns a record. Missing and expired records are reported as
	// SESSION_NOT_FOUND.
	Load(ctx context.Context, id string) (*Record, error)

	// Save creates or replaces a record.
	Save(ctx context.Context, rec *Record) error

	// Delete removes a record. Deleting a missing record is not an error.
	Delete(ctx context.Context, id string) error

	// List returns the ids of all live records, sorted.
	List(ctx context.Context) ([]string, error)

	Close() error
}

// DefaultTTL bounds how long an untouched snapshot is kept.
const DefaultTTL = cache.TTLSnapshot

func notFound(id string) error {
	return errors.New(errors.ErrCodeSessionNotFound, "session %q not found", id)
}

// encode serializes a record as zstd-compressed JSON.
func encode(rec *Record) ([]byte, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("marshal record: %w", err)
	}
	return cache.Compress(data)
}

func decode(data []byte) (*Record, error) {
	raw, err := cache.Decompress(data)
	if err != nil {
		return nil, err
	}
	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal record: %w", err)
	}
	return &rec, nil
}

// stamp fills timestamps before a save.
func stamp(rec *Record, ttl time.Duration) {
	now := time.Now()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now
	if ttl > 0 {
		rec.ExpiresAt = now.Add(ttl)
	}
}

// MemoryStore keeps compressed records in memory.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string][]byte
	ttl     time.Duration
}

// NewMemoryStore returns an empty store. A ttl <= 0 keeps records forever.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{records: make(map[string][]byte), ttl: ttl}
}

// Load implements Store.
func (s *MemoryStore) Load(_ context.Context, id string) (*Record, error) {
	s.mu.RLock()
	data, ok := s.records[id]
	s.mu.RUnlock()
	if !ok {
		return nil, notFound(id)
	}
	rec, err := decode(data)
	if err != nil {
		return nil, err
	}
	if rec.IsExpired() {
		_ = s.Delete(context.Background(), id)
		return nil, notFound(id)
	}
	return rec, nil
}

// Save implements Store.
func (s *MemoryStore) Save(_ context.Context, rec *Record) error {
	stamp(rec, s.ttl)
	data, err := encode(rec)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.ID] = data
	return nil
}

// Delete implements Store.
func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, id)
	return nil
}

// List implements Store.
func (s *MemoryStore) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	ids := make([]string, 0, len(s.records))
	for id := range s.records {
		ids = append(ids, id)
	}
	s.mu.RUnlock()

	live := ids[:0]
	for _, id := range ids {
		if _, err := s.Load(ctx, id); err == nil {
			live = append(live, id)
		}
	}
	slices.Sort(live)
	return live, nil
}

// Close implements Store.
func (s *MemoryStore) Close() error { return nil }

var _ Store = (*MemoryStore)(nil)
