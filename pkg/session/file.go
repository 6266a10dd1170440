package session

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"
)

const fileExt = ".json.zst"

// FileStore keeps one compressed file per session.
type FileStore struct {
	mu      sync.RWMutex
	baseDir string
	ttl     time.Duration
}

// NewFileStore creates a file store. If baseDir is empty, it defaults to
// $XDG_CONFIG_HOME/flowscope/sessions.
func NewFileStore(baseDir string, ttl time.Duration) (*FileStore, error) {
	if baseDir == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("get config dir: %w", err)
		}
		baseDir = filepath.Join(dir, "flowscope", "sessions")
	}
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("create session dir: %w", err)
	}
	return &FileStore{baseDir: baseDir, ttl: ttl}, nil
}

func (s *FileStore) path(id string) string {
	return filepath.Join(s.baseDir, id+fileExt)
}

// Load implements Store.
func (s *FileStore) Load(_ context.Context, id string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, notFound(id)
		}
		return nil, fmt.Errorf("read session file: %w", err)
	}
	rec, err := decode(data)
	if err != nil {
		return nil, fmt.Errorf("parse session %s: %w", id, err)
	}
	if rec.IsExpired() {
		os.Remove(s.path(id))
		return nil, notFound(id)
	}
	return rec, nil
}

// Save implements Store.
func (s *FileStore) Save(_ context.Context, rec *Record) error {
	stamp(rec, s.ttl)
	data, err := encode(rec)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	tmp := s.path(rec.ID) + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	if err := os.Rename(tmp, s.path(rec.ID)); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("write session file: %w", err)
	}
	return nil
}

// Delete implements Store.
func (s *FileStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.path(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove session file: %w", err)
	}
	return nil
}

// List implements Store. Expired files are removed.
func (s *FileStore) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return nil, fmt.Errorf("read session dir: %w", err)
	}
	var ids []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, fileExt) {
			continue
		}
		id := strings.TrimSuffix(name, fileExt)
		if _, err := s.Load(ctx, id); err == nil {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids, nil
}

// Close implements Store.
func (s *FileStore) Close() error { return nil }

// Path returns the base directory for session files.
func (s *FileStore) Path() string { return s.baseDir }

var _ Store = (*FileStore)(nil)
