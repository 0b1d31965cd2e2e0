// Package http exposes workflow editing over a REST API with server-sent change events.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/internal/presentation"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ops"
	"github.com/aretw0/arbor/pkg/session"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// MaxBodyBytes caps request bodies, including imported documents.
const MaxBodyBytes = 4 << 20

// ErrBadRequest marks client errors in request bodies and parameters.
var ErrBadRequest = errors.New("bad request")

// Server serves the editors of a session manager.
type Server struct {
	Sessions *session.Manager
	Streams  *StreamManager

	metrics http.Handler
	logger  *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMetrics mounts h at /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// NewServer creates a server over the session manager.
func NewServer(sessions *session.Manager, opts ...Option) *Server {
	s := &Server{
		Sessions: sessions,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Streams = NewStreamManager(s.logger)
	return s
}

// NewHandler creates the HTTP handler for the session manager.
func NewHandler(sessions *session.Manager, opts ...Option) http.Handler {
	return NewServer(sessions, opts...).Routes()
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics)
	}

	r.Route("/workflows", func(r chi.Router) {
		r.Get("/", s.ListWorkflows)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.GetWorkflow)
			r.Delete("/", s.DeleteWorkflow)

			r.Post("/nodes", s.AddNode)
			r.Patch("/nodes/{nodeID}", s.UpdateNode)
			r.Delete("/nodes/{nodeID}", s.DeleteNode)
			r.Post("/nodes/{nodeID}/branch-labels", s.AddBranchLabel)
			r.Put("/nodes/{nodeID}/branch-labels/{index}", s.UpdateBranchLabel)
			r.Put("/selection", s.SelectNode)

			r.Post("/undo", s.Undo)
			r.Post("/redo", s.Redo)

			r.Get("/layout", s.GetLayout)
			r.Get("/validation", s.GetValidation)
			r.Get("/export", s.Export)
			r.Put("/document", s.PutDocument)
			r.Post("/save", s.Save)
			r.Post("/reset", s.Reset)

			r.Get("/events", s.SubscribeEvents)
		})
	})

	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetHealth handles GET /health.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles GET /info.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"app":     "arbor-http",
		"version": strings.TrimSpace(arbor.Version),
	})
}

// ListWorkflows handles GET /workflows.
func (s *Server) ListWorkflows(w http.ResponseWriter, r *http.Request) {
	ids, err := s.Sessions.List(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"workflows": ids})
}

// GetWorkflow handles GET /workflows/{id}.
func (s *Server) GetWorkflow(w http.ResponseWriter, r *http.Request) {
	s.view(w, r, func(ed *arbor.Editor) any { return stateView(ed) })
}

// DeleteWorkflow handles DELETE /workflows/{id}.
func (s *Server) DeleteWorkflow(w http.ResponseWriter, r *http.Request) {
	if err := s.Sessions.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddNode handles POST /workflows/{id}/nodes.
// An empty parent_id adds under the selected node, or the root if nothing is selected.
func (s *Server) AddNode(w http.ResponseWriter, r *http.Request) {
	var body AddNodeRequest
	if !s.decode(w, r, &body) {
		return
	}
	t, ok := domain.ParseChildType(body.Type)
	if !ok {
		s.fail(w, r, fmt.Errorf("%w: cannot add a node of type %q", ErrBadRequest, body.Type))
		return
	}
	s.edit(w, r, func(ctx context.Context, ed *arbor.Editor) (bool, string, error) {
		parent := body.ParentID
		if parent == "" {
			cur := ed.Current()
			parent = cur.SelectedNodeID
			if parent == "" {
				parent = cur.RootID
			}
		}
		id, applied := ed.AddNode(ctx, parent, t, body.BranchLabel)
		return applied, id, nil
	})
}

// UpdateNode handles PATCH /workflows/{id}/nodes/{nodeID}.
func (s *Server) UpdateNode(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if !s.decode(w, r, &body) {
		return
	}
	u, err := ops.DecodeUpdate(body)
	if err != nil {
		s.fail(w, r, fmt.Errorf("%w: %v", ErrBadRequest, err))
		return
	}
	nodeID := chi.URLParam(r, "nodeID")
	s.edit(w, r, func(ctx context.Context, ed *arbor.Editor) (bool, string, error) {
		return ed.UpdateNode(ctx, nodeID, u), nodeID, nil
	})
}

// DeleteNode handles DELETE /workflows/{id}/nodes/{nodeID}.
func (s *Server) DeleteNode(w http.ResponseWriter, r *http.Request) {
	nodeID := chi.URLParam(r, "nodeID")
	s.edit(w, r, func(ctx context.Context, ed *arbor.Editor) (bool, string, error) {
		return ed.DeleteNode(ctx, nodeID), nodeID, nil
	})
}

// AddBranchLabel handles POST /workflows/{id}/nodes/{nodeID}/branch-labels.
func (s *Server) AddBranchLabel(w http.ResponseWriter, r *http.Request) {
	var body LabelRequest
	if !s.decode(w, r, &body) {
		return
	}
	nodeID := chi.URLParam(r, "nodeID")
	s.edit(w, r, func(ctx context.Context, ed *arbor.Editor) (bool, string, error) {
		return ed.AddBranchLabel(ctx, nodeID, body.Label), nodeID, nil
	})
}

// UpdateBranchLabel handles PUT /workflows/{id}/nodes/{nodeID}/branch-labels/{index}.
func (s *Server) UpdateBranchLabel(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		s.fail(w, r, fmt.Errorf("%w: invalid label index", ErrBadRequest))
		return
	}
	var body LabelRequest
	if !s.decode(w, r, &body) {
		return
	}
	nodeID := chi.URLParam(r, "nodeID")
	s.edit(w, r, func(ctx context.Context, ed *arbor.Editor) (bool, string, error) {
		return ed.UpdateBranchLabel(ctx, nodeID, index, body.Label), nodeID, nil
	})
}

// SelectNode handles PUT /workflows/{id}/selection. An empty node_id clears the selection.
func (s *Server) SelectNode(w http.ResponseWriter, r *http.Request) {
	var body SelectRequest
	if !s.decode(w, r, &body) {
		return
	}
	s.edit(w, r, func(ctx context.Context, ed *arbor.Editor) (bool, string, error) {
		return ed.SelectNode(ctx, body.NodeID), body.NodeID, nil
	})
}

// Undo handles POST /workflows/{id}/undo.
func (s *Server) Undo(w http.ResponseWriter, r *http.Request) {
	s.edit(w, r, func(ctx context.Context, ed *arbor.Editor) (bool, string, error) {
		return ed.Undo(ctx), "", nil
	})
}

// Redo handles POST /workflows/{id}/redo.
func (s *Server) Redo(w http.ResponseWriter, r *http.Request) {
	s.edit(w, r, func(ctx context.Context, ed *arbor.Editor) (bool, string, error) {
		return ed.Redo(ctx), "", nil
	})
}

// GetLayout handles GET /workflows/{id}/layout.
func (s *Server) GetLayout(w http.ResponseWriter, r *http.Request) {
	s.view(w, r, func(ed *arbor.Editor) any { return layoutView(ed) })
}

// GetValidation handles GET /workflows/{id}/validation.
func (s *Server) GetValidation(w http.ResponseWriter, r *http.Request) {
	s.view(w, r, func(ed *arbor.Editor) any { return validationView(ed) })
}

// Export handles GET /workflows/{id}/export?format=json|yaml|mermaid|svg.
func (s *Server) Export(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if err := presentation.CheckFormat(format); err != nil {
		s.fail(w, r, err)
		return
	}
	var data []byte
	err := s.Sessions.WithExistingEditor(r.Context(), chi.URLParam(r, "id"), func(_ context.Context, ed *arbor.Editor) error {
		var err error
		data, err = presentation.Export(ed, format)
		return err
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", presentation.ContentType(format))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		s.logger.Error("export write failed", "err", err)
	}
}

// PutDocument handles PUT /workflows/{id}/document?format=json|yaml.
// The body replaces the workflow and clears its undo history.
func (s *Server) PutDocument(w http.ResponseWriter, r *http.Request) {
	format, err := domain.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err != nil {
		s.fail(w, r, fmt.Errorf("%w: %v", ErrBadRequest, err))
		return
	}
	s.edit(w, r, func(ctx context.Context, ed *arbor.Editor) (bool, string, error) {
		if err := ed.Import(ctx, data, format); err != nil {
			return false, "", err
		}
		return true, "", nil
	})
}

// Save handles POST /workflows/{id}/save.
func (s *Server) Save(w http.ResponseWriter, r *http.Request) {
	var version int
	err := s.Sessions.WithEditor(r.Context(), chi.URLParam(r, "id"), func(ctx context.Context, ed *arbor.Editor) error {
		version = ed.Version()
		return ed.Save(ctx)
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"saved": true, "version": version})
}

// Reset handles POST /workflows/{id}/reset.
func (s *Server) Reset(w http.ResponseWriter, r *http.Request) {
	s.edit(w, r, func(ctx context.Context, ed *arbor.Editor) (bool, string, error) {
		ed.Reset(ctx)
		return true, "", nil
	})
}

// SubscribeEvents handles GET /workflows/{id}/events (SSE).
// Each message is a JSON domain.SnapshotDiff. The optional watch parameter
// (comma separated: nodes, selection, root) drops diffs touching none of them.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		s.logger.Error("SubscribeEvents: streaming not supported")
		return
	}

	workflowID := chi.URLParam(r, "id")
	var watchList []string
	if watch := r.URL.Query().Get("watch"); watch != "" {
		watchList = strings.Split(watch, ",")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch, cancel := s.Streams.Subscribe(workflowID)
	defer cancel()
	s.logger.Info("SSE: subscribed", "workflow", workflowID)

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			s.logger.Info("SSE: client disconnected", "workflow", workflowID)
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if len(watchList) > 0 && !watched(msg, watchList) {
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

func watched(msg string, watchList []string) bool {
	var diff domain.SnapshotDiff
	if err := json.Unmarshal([]byte(msg), &diff); err != nil {
		return true
	}
	for _, field := range watchList {
		switch strings.TrimSpace(field) {
		case "nodes":
			if len(diff.Added)+len(diff.Removed)+len(diff.Changed) > 0 {
				return true
			}
		case "selection":
			if diff.SelectedNodeID != nil {
				return true
			}
		case "root":
			if diff.RootID != nil {
				return true
			}
		}
	}
	return false
}

// -- Helpers --

// edit runs fn under the workflow lock and broadcasts the resulting diff.
func (s *Server) edit(w http.ResponseWriter, r *http.Request, fn func(context.Context, *arbor.Editor) (bool, string, error)) {
	workflowID := chi.URLParam(r, "id")
	var resp EditResponse
	err := s.Sessions.WithEditor(r.Context(), workflowID, func(ctx context.Context, ed *arbor.Editor) error {
		before := ed.Current()
		applied, nodeID, err := fn(ctx, ed)
		if err != nil {
			return err
		}
		// Broadcast under the workflow lock so subscribers see diffs in commit order.
		if diff := domain.Diff(before, ed.Current()); diff != nil {
			if data, err := json.Marshal(diff); err == nil {
				s.Streams.Broadcast(workflowID, string(data))
			}
		}
		resp = EditResponse{Applied: applied, NodeID: nodeID, State: stateView(ed)}
		return nil
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// view renders a read-only projection of the workflow under its lock.
// Unknown workflows are 404: reading never starts a new one.
func (s *Server) view(w http.ResponseWriter, r *http.Request, fn func(*arbor.Editor) any) {
	var out any
	err := s.Sessions.WithExistingEditor(r.Context(), chi.URLParam(r, "id"), func(_ context.Context, ed *arbor.Editor) error {
		out = fn(ed)
		return nil
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes)).Decode(v); err != nil {
		s.fail(w, r, fmt.Errorf("%w: invalid request body: %v", ErrBadRequest, err))
		return false
	}
	return true
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "err", err)
	} else {
		s.logger.WarnContext(r.Context(), "request rejected", "path", r.URL.Path, "err", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, domain.ErrInvalidDocument),
		errors.Is(err, domain.ErrUnsupportedFormat):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrWorkflowNotFound):
		return http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
