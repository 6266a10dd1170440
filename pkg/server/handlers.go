package server

import (
	"context"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/flowscope/pkg/errors"
	"github.com/matzehuels/flowscope/pkg/hgraph"
	graphio "github.com/matzehuels/flowscope/pkg/io"
	"github.com/matzehuels/flowscope/pkg/render"
	"github.com/matzehuels/flowscope/pkg/session"
)

type createResponse struct {
	ID     string        `json:"id"`
	Engine string        `json:"engine"`
	Render render.Output `json:"render"`
}

type transitionResponse struct {
	Session    string `json:"session"`
	Container  string `json:"container,omitempty"`
	Op         string `json:"op"`
	Generation uint64 `json:"generation"`
	Pending    bool   `json:"pending"`
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBody))
	if err != nil {
		s.writeError(w, r, errors.Wrap(errors.ErrCodeInvalidInput, err, "read request body"))
		return
	}
	var opts []graphio.Option
	if h := r.URL.Query().Get("hierarchy"); h != "" {
		opts = append(opts, graphio.WithHierarchy(h))
	}
	sess, err := s.mgr.Create(r.Context(), body, opts...)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, createResponse{ID: sess.ID, Engine: sess.Engine(), Render: sess.Render()})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	ids, err := s.mgr.Store().List(r.Context())
	if err != nil {
		s.writeError(w, r, errors.Wrap(errors.ErrCodeInternal, err, "list sessions"))
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"sessions": ids, "open": s.mgr.Open()})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := errors.ValidateSessionID(id); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.mgr.Remove(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// session resolves the {id} parameter, writing the error response on failure.
func (s *Server) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sess, err := s.mgr.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return nil, false
	}
	return sess, true
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	if r.URL.Query().Get("flush") == "true" {
		sess.Flush()
	}
	out := sess.Render()
	switch f := render.Format(r.URL.Query().Get("format")); f {
	case "", render.FormatJSON:
		writeJSON(w, http.StatusOK, out)
	case render.FormatSVG:
		w.Header().Set("Content-Type", "image/svg+xml")
		_, _ = w.Write(render.ToSVG(out))
	default:
		s.writeError(w, r, errors.New(errors.ErrCodeUnsupported, "unsupported render format %q", f))
	}
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if sess, ok := s.session(w, r); ok {
		writeJSON(w, http.StatusOK, sess.Stats())
	}
}

func (s *Server) handleLayoutRequest(w http.ResponseWriter, r *http.Request) {
	if sess, ok := s.session(w, r); ok {
		writeJSON(w, http.StatusOK, sess.LayoutRequest())
	}
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	data, err := sess.Snapshot()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(data)
}

func (s *Server) handleTransition(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	cid, op := chi.URLParam(r, "cid"), chi.URLParam(r, "op")
	if !isContainerOp(op) {
		s.writeError(w, r, errors.New(errors.ErrCodeUnsupported, "unknown container operation %q", op))
		return
	}
	if err := errors.ValidateElementID(cid); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.apply(r.Context(), sess, op, cid); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.transitionResult(sess, op, cid))
}

func (s *Server) handleBulk(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	op := chi.URLParam(r, "op")
	if err := s.apply(r.Context(), sess, op, ""); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.transitionResult(sess, op, ""))
}

// apply runs op on sess and persists the new state. Container operations
// take a container id; the others ignore it.
func (s *Server) apply(ctx context.Context, sess *session.Session, op, cid string) error {
	if isContainerOp(op) && cid == "" {
		return errors.New(errors.ErrCodeInvalidInput, "operation %q needs a container id", op)
	}
	var err error
	switch op {
	case "collapse":
		err = sess.Collapse(ctx, cid)
	case "expand":
		err = sess.Expand(ctx, cid)
	case "toggle":
		err = sess.Toggle(ctx, cid)
	case "collapse-all":
		err = sess.CollapseAll(ctx)
	case "expand-all":
		err = sess.ExpandAll(ctx)
	case "reset":
		err = sess.Reset(ctx)
	case "relayout":
		_, err = sess.Relayout(ctx)
	default:
		return errors.New(errors.ErrCodeUnsupported, "unknown operation %q", op)
	}
	if err != nil {
		return err
	}
	if err := s.mgr.Persist(ctx, sess); err != nil {
		s.logger.Warn("persist session", "session", sess.ID, "err", err)
	}
	return nil
}

func isContainerOp(op string) bool {
	return op == "collapse" || op == "expand" || op == "toggle"
}

func (s *Server) transitionResult(sess *session.Session, op, cid string) transitionResponse {
	res := transitionResponse{Session: sess.ID, Container: cid, Op: op, Pending: sess.Pending()}
	sess.View(func(g *hgraph.Graph) { res.Generation = g.Generation() })
	return res
}
