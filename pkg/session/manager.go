package session

import (
	"bytes"
	"context"
	"io"
	"maps"
	"slices"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/flowscope/pkg/errors"
	"github.com/matzehuels/flowscope/pkg/hgraph"
	graphio "github.com/matzehuels/flowscope/pkg/io"
)

// Manager tracks open sessions and persists them through a Store. Sessions
// evicted from memory are restored from the store on demand.
type Manager struct {
	store  Store
	cfg    Config
	logger *log.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager returns a manager. A nil store keeps sessions in memory only.
func NewManager(store Store, cfg Config) *Manager {
	if store == nil {
		store = NewMemoryStore(0)
	}
	if cfg.Logger == nil {
		cfg.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &Manager{
		store:    store,
		cfg:      cfg,
		logger:   cfg.Logger,
		sessions: make(map[string]*Session),
	}
}

// Create loads a graph document and opens a session on it.
func (m *Manager) Create(ctx context.Context, doc []byte, opts ...graphio.Option) (*Session, error) {
	g, err := m.read(doc, opts...)
	if err != nil {
		return nil, err
	}
	if err := g.Validate(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid graph document")
	}
	sess, err := New(ctx, g, m.cfg)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.sessions[sess.ID] = sess
	m.mu.Unlock()

	if err := m.Persist(ctx, sess); err != nil {
		m.logger.Warn("persist new session", "session", sess.ID, "err", err)
	}
	m.logger.Info("opened session", "session", sess.ID, "nodes", g.NodeCount(), "containers", g.ContainerCount())
	return sess, nil
}

// Get returns an open session, restoring it from the store if needed.
func (m *Manager) Get(ctx context.Context, id string) (*Session, error) {
	if err := errors.ValidateSessionID(id); err != nil {
		return nil, err
	}
	m.mu.Lock()
	sess, ok := m.sessions[id]
	m.mu.Unlock()
	if ok {
		return sess, nil
	}

	rec, err := m.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	sess, err = m.restore(ctx, rec)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.sessions[id]; ok {
		sess.Close()
		return existing, nil
	}
	m.sessions[id] = sess
	m.logger.Debug("restored session", "session", id)
	return sess, nil
}

func (m *Manager) restore(ctx context.Context, rec *Record) (*Session, error) {
	g, err := m.read(rec.Snapshot)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "decode snapshot of session %s", rec.ID)
	}
	cfg := m.cfg
	cfg.Policy = nil
	sess, err := open(ctx, rec.ID, g, cfg)
	if err != nil {
		return nil, err
	}
	sess.CreatedAt = rec.CreatedAt
	return sess, nil
}

// read decodes a document with the configured constants.
func (m *Manager) read(data []byte, opts ...graphio.Option) (*hgraph.Graph, error) {
	if m.cfg.Constants != nil {
		opts = append([]graphio.Option{graphio.WithConstants(*m.cfg.Constants)}, opts...)
	}
	return graphio.ReadJSON(bytes.NewReader(data), opts...)
}

// Persist saves the current state of sess.
func (m *Manager) Persist(ctx context.Context, sess *Session) error {
	snap, err := sess.Snapshot()
	if err != nil {
		return err
	}
	return m.store.Save(ctx, &Record{
		ID:        sess.ID,
		Engine:    sess.Engine(),
		Snapshot:  snap,
		CreatedAt: sess.CreatedAt,
	})
}

// Remove closes a session and deletes its record.
func (m *Manager) Remove(ctx context.Context, id string) error {
	m.mu.Lock()
	sess, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if ok {
		sess.Close()
	}
	return m.store.Delete(ctx, id)
}

// Open returns the ids of sessions held in memory, sorted.
func (m *Manager) Open() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Sorted(maps.Keys(m.sessions))
}

// Store returns the backing store.
func (m *Manager) Store() Store { return m.store }

// Close closes every open session and the store.
func (m *Manager) Close() error {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()
	for _, s := range sessions {
		s.Close()
	}
	return m.store.Close()
}
