// Package session manages interactive viewer sessions.
//
// A [Session] owns one hierarchical graph loaded from a document, the layout
// adapter that places it and a debouncer that coalesces bursts of
// collapse/expand requests into a single layout run. Subscribers receive the
// render output after every applied layout.
//
// Sessions are persisted as snapshots through a [Store]:
//   - [MemoryStore]: in-process, for tests and single-instance servers
//   - [FileStore]: zstd-compressed files, for the CLI
//   - [RedisStore]: shared across server instances
//   - [MongoStore]: durable storage with TTL expiry
//
// # Usage
//
//	g, err := io.ReadJSON(r)
//	sess, err := session.New(ctx, g, session.Config{Engine: layout.NewLayeredEngine()})
//	defer sess.Close()
//
//	updates, cancel := sess.Subscribe(1)
//	defer cancel()
//	_ = sess.Collapse(ctx, "loc_0") // layout follows after the debounce window
//	out := <-updates
package session

import (
	"bytes"
	"context"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/flowscope/pkg/errors"
	"github.com/matzehuels/flowscope/pkg/hgraph"
	graphio "github.com/matzehuels/flowscope/pkg/io"
	"github.com/matzehuels/flowscope/pkg/layout"
	"github.com/matzehuels/flowscope/pkg/observability"
	"github.com/matzehuels/flowscope/pkg/render"
)

// DefaultDebounce is the quiet window before a relayout.
const DefaultDebounce = 150 * time.Millisecond

// Config configures a session.
type Config struct {
	// Engine places elements. Defaults to a layered engine.
	Engine layout.Engine

	// Debounce is the quiet window before a relayout. Zero uses
	// DefaultDebounce; a negative value lays out synchronously.
	Debounce time.Duration

	// Policy collapses containers before the first layout. Nil keeps the
	// document's collapsed flags.
	Policy layout.CollapsePolicy

	// Constants are applied to the graphs a Manager reads. Nil keeps
	// hgraph.DefaultConstants.
	Constants *hgraph.Constants

	Logger *log.Logger
}

// Session is one interactive view of a graph. All methods are safe for
// concurrent use.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu       sync.Mutex
	graph    *hgraph.Graph
	initial  []byte
	cfg      Config
	adapter  *layout.Adapter
	debounce *layout.Debouncer
	logger   *log.Logger

	// ctx outlives individual requests; debounced layouts run under it.
	ctx    context.Context
	cancel context.CancelFunc

	subMu   sync.Mutex
	subs    map[int]chan render.Output
	nextSub int
	lastErr error
}

// New opens a session on g. It measures expanded container sizes, applies
// the configured collapse policy and runs the first layout.
func New(ctx context.Context, g *hgraph.Graph, cfg Config) (*Session, error) {
	return open(ctx, uuid.NewString(), g, cfg)
}

func open(ctx context.Context, id string, g *hgraph.Graph, cfg Config) (*Session, error) {
	if cfg.Engine == nil {
		cfg.Engine = layout.NewLayeredEngine()
	}
	if cfg.Debounce == 0 {
		cfg.Debounce = DefaultDebounce
	}
	if cfg.Logger == nil {
		cfg.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	initial, err := graphio.MarshalJSON(g)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "snapshot initial state")
	}

	bg, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s := &Session{
		ID:        id,
		CreatedAt: time.Now(),
		graph:     g,
		initial:   initial,
		cfg:       cfg,
		logger:    cfg.Logger.With("session", id),
		ctx:       bg,
		cancel:    cancel,
		subs:      make(map[int]chan render.Output),
	}
	s.adapter = s.newAdapter(g)
	if cfg.Debounce > 0 {
		s.debounce = layout.NewDebouncer(cfg.Debounce, func() {
			if _, err := s.Relayout(s.ctx); err != nil {
				s.logger.Warn("debounced layout failed", "err", err)
			}
		})
	}

	if err := s.prepare(ctx); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (s *Session) newAdapter(g *hgraph.Graph) *layout.Adapter {
	return layout.NewAdapter(g, s.cfg.Engine, layout.WithLocker(&s.mu), layout.WithLogger(s.logger))
}

// prepare measures, applies the policy and lays out once.
func (s *Session) prepare(ctx context.Context) error {
	s.mu.Lock()
	adapter := s.adapter
	s.mu.Unlock()

	if _, err := adapter.Measure(ctx); err != nil {
		return err
	}
	if s.cfg.Policy != nil {
		s.mu.Lock()
		ids, err := layout.ApplyPolicy(s.graph, s.cfg.Policy)
		s.mu.Unlock()
		if err != nil {
			return err
		}
		if len(ids) > 0 {
			s.logger.Info("collapsed large containers", "containers", ids)
		}
	}
	_, err := s.Relayout(ctx)
	return err
}

// Collapse collapses a container and schedules a relayout.
func (s *Session) Collapse(ctx context.Context, id string) error {
	return s.transition(ctx, "collapse", id, (*hgraph.Graph).CollapseContainer)
}

// Expand expands a container and schedules a relayout. A container that was
// never measured is measured first.
func (s *Session) Expand(ctx context.Context, id string) error {
	return s.transition(ctx, "expand", id, (*hgraph.Graph).ExpandContainer)
}

// Toggle flips a container and schedules a relayout.
func (s *Session) Toggle(ctx context.Context, id string) error {
	return s.transition(ctx, "toggle", id, (*hgraph.Graph).ToggleContainer)
}

func (s *Session) transition(ctx context.Context, op, id string, fn func(*hgraph.Graph, string) error) error {
	start := time.Now()
	s.mu.Lock()
	err := fn(s.graph, id)
	adapter := s.adapter
	s.mu.Unlock()

	if errors.Is(err, errors.ErrCodeMissingDimensions) {
		s.logger.Debug("measuring before expand", "container", id)
		if _, merr := adapter.Measure(ctx); merr != nil {
			return merr
		}
		s.mu.Lock()
		err = fn(s.graph, id)
		s.mu.Unlock()
	}

	hooks := observability.Graph()
	hooks.OnTransition(ctx, op, id, time.Since(start), err)
	if err != nil {
		return err
	}
	s.mu.Lock()
	hooks.OnHyperEdges(ctx, s.graph.HyperEdgeCount())
	s.mu.Unlock()

	s.logger.Debug("transition", "op", op, "container", id)
	return s.schedule(ctx)
}

func (s *Session) schedule(ctx context.Context) error {
	if s.debounce == nil {
		_, err := s.Relayout(ctx)
		return err
	}
	s.debounce.Trigger()
	return nil
}

// CollapseAll collapses every container.
func (s *Session) CollapseAll(ctx context.Context) error {
	s.mu.Lock()
	s.graph.CollapseAll()
	s.mu.Unlock()
	return s.schedule(ctx)
}

// ExpandAll expands every container, measuring first if needed.
func (s *Session) ExpandAll(ctx context.Context) error {
	s.mu.Lock()
	err := s.graph.ExpandAll()
	adapter := s.adapter
	s.mu.Unlock()
	if errors.Is(err, errors.ErrCodeMissingDimensions) {
		if _, err := adapter.Measure(ctx); err != nil {
			return err
		}
		s.mu.Lock()
		err = s.graph.ExpandAll()
		s.mu.Unlock()
	}
	if err != nil {
		return err
	}
	return s.schedule(ctx)
}

// Reset restores the state the session was opened with and lays it out.
func (s *Session) Reset(ctx context.Context) error {
	g, err := graphio.ReadJSON(bytes.NewReader(s.initial), graphio.WithConstants(s.Constants()))
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "restore initial state")
	}
	s.mu.Lock()
	s.graph = g
	s.adapter = s.newAdapter(g)
	s.mu.Unlock()
	_, err = s.Relayout(ctx)
	return err
}

// Relayout runs the layout engine now, cancelling any scheduled run.
// Subscribers are notified when the result is applied.
func (s *Session) Relayout(ctx context.Context) (layout.Result, error) {
	if s.debounce != nil {
		s.debounce.Cancel()
	}
	s.mu.Lock()
	adapter := s.adapter
	s.mu.Unlock()

	res, err := adapter.Run(ctx)
	s.subMu.Lock()
	s.lastErr = err
	s.subMu.Unlock()
	if err != nil || res.Discarded {
		return res, err
	}
	s.publish(s.Render())
	return res, nil
}

// Flush runs a scheduled relayout immediately. It reports whether one was
// pending.
func (s *Session) Flush() bool {
	return s.debounce != nil && s.debounce.Flush()
}

// Pending reports whether a relayout is scheduled.
func (s *Session) Pending() bool {
	return s.debounce != nil && s.debounce.Pending()
}

// LastError returns the error of the most recent layout run.
func (s *Session) LastError() error {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	return s.lastErr
}

// Render returns what a front-end should draw now.
func (s *Session) Render() render.Output {
	s.mu.Lock()
	defer s.mu.Unlock()
	return render.Build(s.graph)
}

// LayoutRequest returns the request the next layout run would send.
func (s *Session) LayoutRequest() layout.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return layout.BuildRequest(s.graph)
}

// Snapshot encodes the current state, viewer state included.
func (s *Session) Snapshot() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return graphio.MarshalJSON(s.graph)
}

// Stats summarizes the graph.
func (s *Session) Stats() hgraph.Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.graph.Stats()
}

// Constants returns the layout constants of the graph.
func (s *Session) Constants() hgraph.Constants {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.graph.Constants()
}

// View calls fn with the graph while holding the session lock. fn must not
// keep the graph or call other session methods.
func (s *Session) View(fn func(g *hgraph.Graph)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.graph)
}

// Engine returns the name of the layout engine.
func (s *Session) Engine() string { return s.cfg.Engine.Name() }

// Subscribe registers for render updates. Slow subscribers only see the
// latest output. The returned func unsubscribes and closes the channel.
func (s *Session) Subscribe(buffer int) (<-chan render.Output, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan render.Output, buffer)

	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	s.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.subMu.Lock()
			defer s.subMu.Unlock()
			if c, ok := s.subs[id]; ok {
				delete(s.subs, id)
				close(c)
			}
		})
	}
}

func (s *Session) publish(out render.Output) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subs {
		for {
			select {
			case ch <- out:
			default:
				// Drop the oldest update and retry.
				select {
				case <-ch:
				default:
				}
				continue
			}
			break
		}
	}
}

// Close stops scheduled layouts and closes all subscriptions.
func (s *Session) Close() {
	if s.debounce != nil {
		s.debounce.Stop()
	}
	s.cancel()
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
}
