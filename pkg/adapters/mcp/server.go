// Package mcp exposes workflow editing as Model Context Protocol tools.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/internal/presentation"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/layout"
	"github.com/aretw0/arbor/pkg/ops"
	"github.com/aretw0/arbor/pkg/session"
	"github.com/aretw0/arbor/pkg/validator"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// WorkflowsURI lists the known workflow ids.
const WorkflowsURI = "arbor://workflows"

// WorkflowState is the structured view of an editor returned by every tool.
type WorkflowState struct {
	WorkflowID     string                  `json:"workflow_id" jsonschema_description:"The workflow being edited"`
	Version        int                     `json:"version" jsonschema_description:"Edit counter of the displayed snapshot"`
	RootID         string                  `json:"root_id"`
	SelectedNodeID string                  `json:"selected_node_id,omitempty"`
	Nodes          map[string]*domain.Node `json:"nodes" jsonschema_description:"Nodes keyed by id"`
	CanUndo        bool                    `json:"can_undo"`
	CanRedo        bool                    `json:"can_redo"`
}

// EditResult is the outcome of an editing tool.
type EditResult struct {
	Applied bool          `json:"applied" jsonschema_description:"False when the edit changed nothing"`
	NodeID  string        `json:"node_id,omitempty"`
	State   WorkflowState `json:"state"`
}

// EditArgs are the arguments shared by the editing tools. Each tool reads the fields it declares.
type EditArgs struct {
	WorkflowID  string         `json:"workflow_id,omitempty"`
	NodeID      string         `json:"node_id,omitempty"`
	ParentID    string         `json:"parent_id,omitempty"`
	Type        string         `json:"type,omitempty"`
	BranchLabel string         `json:"branch_label,omitempty"`
	Label       string         `json:"label,omitempty"`
	Index       int            `json:"index,omitempty"`
	Changes     map[string]any `json:"changes,omitempty"`
	Format      string         `json:"format,omitempty"`
}

// Server wraps a session manager and exposes it as an MCP Server.
type Server struct {
	sessions   *session.Manager
	mcpServer  *server.MCPServer
	workflowID string
	autoSave   bool
	logger     *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithWorkflowID sets the workflow edited when a tool call names none.
func WithWorkflowID(id string) Option {
	return func(s *Server) {
		s.workflowID = id
	}
}

// WithAutoSave persists the workflow after every applied edit.
func WithAutoSave(enabled bool) Option {
	return func(s *Server) {
		s.autoSave = enabled
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(sessions *session.Manager, opts ...Option) *Server {
	s := &Server{
		sessions:   sessions,
		mcpServer:  server.NewMCPServer("arbor-mcp", strings.TrimSpace(arbor.Version)),
		workflowID: arbor.DefaultWorkflowID,
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying protocol server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves over SSE on port until ctx is cancelled.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Info("shutting down MCP server")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func workflowParam() mcp.ToolOption {
	return mcp.WithString("workflow_id", mcp.Description("Workflow to edit (optional, defaults to the server's workflow)"))
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("get_workflow",
		mcp.WithDescription("Get the current nodes, selection and undo state of a workflow."),
		workflowParam(),
		mcp.WithOutputSchema[WorkflowState](),
	), mcp.NewStructuredToolHandler(s.handleGetWorkflow))

	s.mcpServer.AddTool(mcp.NewTool("add_node",
		mcp.WithDescription("Append a new node as the last child of a parent. The new node becomes selected."),
		workflowParam(),
		mcp.WithString("parent_id", mcp.Required(), mcp.Description("Parent node ID")),
		mcp.WithString("type", mcp.Required(), mcp.Description("Node type"), mcp.Enum("action", "branch", "end")),
		mcp.WithString("branch_label", mcp.Description("Label of the edge from the parent (optional)")),
		mcp.WithOutputSchema[EditResult](),
	), mcp.NewStructuredToolHandler(s.handleAddNode))

	s.mcpServer.AddTool(mcp.NewTool("delete_node",
		mcp.WithDescription("Delete a node; its children are reattached to its parent. The root cannot be deleted."),
		workflowParam(),
		mcp.WithString("node_id", mcp.Required(), mcp.Description("Node ID")),
		mcp.WithOutputSchema[EditResult](),
	), mcp.NewStructuredToolHandler(s.handleDeleteNode))

	s.mcpServer.AddTool(mcp.NewTool("update_node",
		mcp.WithDescription("Merge changes into a node, e.g. {\"label\": \"Review\"}."),
		workflowParam(),
		mcp.WithString("node_id", mcp.Required(), mcp.Description("Node ID")),
		mcp.WithObject("changes", mcp.Required(), mcp.Description("Fields to overwrite: label, type, children, parentId, branchLabel, branchLabels, metadata")),
		mcp.WithOutputSchema[EditResult](),
	), mcp.NewStructuredToolHandler(s.handleUpdateNode))

	s.mcpServer.AddTool(mcp.NewTool("select_node",
		mcp.WithDescription("Select a node. An empty node_id clears the selection."),
		workflowParam(),
		mcp.WithString("node_id", mcp.Description("Node ID")),
		mcp.WithOutputSchema[EditResult](),
	), mcp.NewStructuredToolHandler(s.handleSelectNode))

	s.mcpServer.AddTool(mcp.NewTool("add_branch_label",
		mcp.WithDescription("Append an outgoing edge label to a node."),
		workflowParam(),
		mcp.WithString("node_id", mcp.Required(), mcp.Description("Node ID")),
		mcp.WithString("label", mcp.Required(), mcp.Description("Label text")),
		mcp.WithOutputSchema[EditResult](),
	), mcp.NewStructuredToolHandler(s.handleAddBranchLabel))

	s.mcpServer.AddTool(mcp.NewTool("update_branch_label",
		mcp.WithDescription("Set the edge label at index, growing the list with empty labels if needed."),
		workflowParam(),
		mcp.WithString("node_id", mcp.Required(), mcp.Description("Node ID")),
		mcp.WithNumber("index", mcp.Required(), mcp.Description("Zero-based label index")),
		mcp.WithString("label", mcp.Required(), mcp.Description("Label text")),
		mcp.WithOutputSchema[EditResult](),
	), mcp.NewStructuredToolHandler(s.handleUpdateBranchLabel))

	s.mcpServer.AddTool(mcp.NewTool("undo",
		mcp.WithDescription("Step back one edit."),
		workflowParam(),
		mcp.WithOutputSchema[EditResult](),
	), mcp.NewStructuredToolHandler(s.handleUndo))

	s.mcpServer.AddTool(mcp.NewTool("redo",
		mcp.WithDescription("Step forward one edit."),
		workflowParam(),
		mcp.WithOutputSchema[EditResult](),
	), mcp.NewStructuredToolHandler(s.handleRedo))

	s.mcpServer.AddTool(mcp.NewTool("layout",
		mcp.WithDescription("Get node positions and connector paths for drawing the tree."),
		workflowParam(),
	), s.handleLayout)

	s.mcpServer.AddTool(mcp.NewTool("validate",
		mcp.WithDescription("Check the workflow for orphaned nodes, incomplete branches and cycles."),
		workflowParam(),
	), s.handleValidate)

	s.mcpServer.AddTool(mcp.NewTool("export",
		mcp.WithDescription("Export the workflow as json, yaml, mermaid or svg."),
		workflowParam(),
		mcp.WithString("format", mcp.Description("Output format (default json)")),
	), s.handleExport)

	s.mcpServer.AddTool(mcp.NewTool("save",
		mcp.WithDescription("Persist the workflow to the configured store."),
		workflowParam(),
	), s.handleSave)
}

// Handler methods for structured tools

func (s *Server) handleGetWorkflow(ctx context.Context, _ mcp.CallToolRequest, args EditArgs) (WorkflowState, error) {
	var out WorkflowState
	err := s.sessions.WithEditor(ctx, s.workflow(args), func(_ context.Context, ed *arbor.Editor) error {
		out = stateOf(ed)
		return nil
	})
	return out, err
}

func (s *Server) handleAddNode(ctx context.Context, _ mcp.CallToolRequest, args EditArgs) (EditResult, error) {
	t, ok := domain.ParseChildType(args.Type)
	if !ok {
		return EditResult{}, fmt.Errorf("cannot add a node of type %q (want action, branch or end)", args.Type)
	}
	return s.edit(ctx, args, func(ctx context.Context, ed *arbor.Editor) (bool, string) {
		id, applied := ed.AddNode(ctx, args.ParentID, t, args.BranchLabel)
		return applied, id
	})
}

func (s *Server) handleDeleteNode(ctx context.Context, _ mcp.CallToolRequest, args EditArgs) (EditResult, error) {
	return s.edit(ctx, args, func(ctx context.Context, ed *arbor.Editor) (bool, string) {
		return ed.DeleteNode(ctx, args.NodeID), args.NodeID
	})
}

func (s *Server) handleUpdateNode(ctx context.Context, _ mcp.CallToolRequest, args EditArgs) (EditResult, error) {
	u, err := ops.DecodeUpdate(args.Changes)
	if err != nil {
		return EditResult{}, err
	}
	return s.edit(ctx, args, func(ctx context.Context, ed *arbor.Editor) (bool, string) {
		return ed.UpdateNode(ctx, args.NodeID, u), args.NodeID
	})
}

func (s *Server) handleSelectNode(ctx context.Context, _ mcp.CallToolRequest, args EditArgs) (EditResult, error) {
	return s.edit(ctx, args, func(ctx context.Context, ed *arbor.Editor) (bool, string) {
		return ed.SelectNode(ctx, args.NodeID), args.NodeID
	})
}

func (s *Server) handleAddBranchLabel(ctx context.Context, _ mcp.CallToolRequest, args EditArgs) (EditResult, error) {
	return s.edit(ctx, args, func(ctx context.Context, ed *arbor.Editor) (bool, string) {
		return ed.AddBranchLabel(ctx, args.NodeID, args.Label), args.NodeID
	})
}

func (s *Server) handleUpdateBranchLabel(ctx context.Context, _ mcp.CallToolRequest, args EditArgs) (EditResult, error) {
	return s.edit(ctx, args, func(ctx context.Context, ed *arbor.Editor) (bool, string) {
		return ed.UpdateBranchLabel(ctx, args.NodeID, args.Index, args.Label), args.NodeID
	})
}

func (s *Server) handleUndo(ctx context.Context, _ mcp.CallToolRequest, args EditArgs) (EditResult, error) {
	return s.edit(ctx, args, func(ctx context.Context, ed *arbor.Editor) (bool, string) {
		return ed.Undo(ctx), ""
	})
}

func (s *Server) handleRedo(ctx context.Context, _ mcp.CallToolRequest, args EditArgs) (EditResult, error) {
	return s.edit(ctx, args, func(ctx context.Context, ed *arbor.Editor) (bool, string) {
		return ed.Redo(ctx), ""
	})
}

// LayoutResult is the JSON text returned by the layout tool.
type LayoutResult struct {
	Positions   layout.Positions    `json:"positions"`
	Connections []layout.Connection `json:"connections"`
	Bounds      layout.Rect         `json:"bounds"`
}

func (s *Server) handleLayout(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var out LayoutResult
	err := s.sessions.WithEditor(ctx, s.workflowFrom(request), func(_ context.Context, ed *arbor.Editor) error {
		nodes := ed.Current().Nodes
		out.Positions = ed.Layout()
		out.Connections = layout.Connections(nodes, out.Positions)
		out.Bounds = layout.Bounds(out.Positions, nodes)
		return nil
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("layout failed: %v", err)), nil
	}
	jsonBytes, _ := json.Marshal(out)
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func (s *Server) handleValidate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var warnings []validator.Warning
	err := s.sessions.WithEditor(ctx, s.workflowFrom(request), func(_ context.Context, ed *arbor.Editor) error {
		warnings = ed.Validate()
		return nil
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("validate failed: %v", err)), nil
	}
	return mcp.NewToolResultText(validator.Markdown(warnings)), nil
}

func (s *Server) handleExport(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	format := request.GetString("format", "json")
	var data []byte
	err := s.sessions.WithEditor(ctx, s.workflowFrom(request), func(_ context.Context, ed *arbor.Editor) error {
		var err error
		data, err = presentation.Export(ed, format)
		return err
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("export failed: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) handleSave(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := s.workflowFrom(request)
	if err := s.sessions.Persist(ctx, id); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("save failed: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("saved workflow %s", id)), nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(WorkflowsURI, "Workflows",
		mcp.WithResourceDescription("IDs of stored and open workflows"),
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		ids, err := s.sessions.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list workflows: %w", err)
		}
		jsonBytes, _ := json.Marshal(ids)
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      WorkflowsURI,
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})

	s.mcpServer.AddResourceTemplate(mcp.NewResourceTemplate(WorkflowsURI+"/{id}", "Workflow Document",
		mcp.WithTemplateDescription("The workflow as a JSON document"),
		mcp.WithTemplateMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		id := strings.TrimPrefix(request.Params.URI, WorkflowsURI+"/")
		if id == "" || id == request.Params.URI {
			return nil, errors.New("missing workflow id")
		}
		var data []byte
		err := s.sessions.WithEditor(ctx, id, func(_ context.Context, ed *arbor.Editor) error {
			var err error
			data, err = ed.Export(domain.FormatJSON)
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("failed to read workflow %s: %w", id, err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      request.Params.URI,
				MIMEType: "application/json",
				Text:     string(data),
			},
		}, nil
	})
}

// -- Helpers --

func (s *Server) edit(ctx context.Context, args EditArgs, fn func(context.Context, *arbor.Editor) (bool, string)) (EditResult, error) {
	var out EditResult
	err := s.sessions.WithEditor(ctx, s.workflow(args), func(ctx context.Context, ed *arbor.Editor) error {
		applied, nodeID := fn(ctx, ed)
		out = EditResult{Applied: applied, NodeID: nodeID, State: stateOf(ed)}
		if applied && s.autoSave {
			return ed.Save(ctx)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("MCP edit failed", "workflow", s.workflow(args), "err", err)
	}
	return out, err
}

func (s *Server) workflow(args EditArgs) string {
	if args.WorkflowID != "" {
		return args.WorkflowID
	}
	return s.workflowID
}

func (s *Server) workflowFrom(request mcp.CallToolRequest) string {
	return s.workflow(EditArgs{WorkflowID: request.GetString("workflow_id", "")})
}

func stateOf(ed *arbor.Editor) WorkflowState {
	s := ed.Current()
	return WorkflowState{
		WorkflowID:     ed.WorkflowID(),
		Version:        s.Version,
		RootID:         s.RootID,
		SelectedNodeID: s.SelectedNodeID,
		Nodes:          s.Nodes,
		CanUndo:        ed.CanUndo(),
		CanRedo:        ed.CanRedo(),
	}
}
