// Package mcp exposes tree runs as Model Context Protocol tools.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/internal/presentation/graph"
	"github.com/aretw0/arbor/pkg/loader"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"golang.org/x/sync/errgroup"
)

// Line is one captured output line of a run.
type Line struct {
	Node   string `json:"node" jsonschema_description:"Node that produced the line"`
	Text   string `json:"text"`
	Stderr bool   `json:"stderr,omitempty"`
}

// RunResponse is the structured result of run_tree.
type RunResponse struct {
	RunID      string            `json:"run_id" jsonschema_description:"Journal key of the run"`
	Tree       string            `json:"tree"`
	Outcome    string            `json:"outcome" jsonschema_description:"pass or fail"`
	DurationMS int64             `json:"duration_ms"`
	Output     []Line            `json:"output" jsonschema_description:"Output lines of external tasks, in arrival order"`
	Nodes      []arbor.NodeState `json:"nodes"`
}

// TreeList is the structured result of list_trees.
type TreeList struct {
	Trees []string `json:"trees"`
}

// Server wraps a Runner and exposes it as an MCP Server.
type Server struct {
	runner    *arbor.Runner
	mcpServer *server.MCPServer
	logger    *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(runner *arbor.Runner, opts ...Option) *Server {
	s := &Server{
		runner:    runner,
		mcpServer: server.NewMCPServer("arbor-mcp", strings.TrimSpace(arbor.Version)),
		logger:    logging.NewNop(),
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

// ServeSSE starts the server on the given port using SSE and stops it when
// ctx is done.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	})
	return g.Wait()
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

func (s *Server) registerTools() {
	// TOOL: list_trees
	s.mcpServer.AddTool(mcp.NewTool("list_trees",
		mcp.WithDescription("List the behavior trees that can be run."),
		mcp.WithOutputSchema[TreeList](),
	), mcp.NewStructuredToolHandler(s.handleListTrees))

	// TOOL: run_tree
	s.mcpServer.AddTool(mcp.NewTool("run_tree",
		mcp.WithDescription("Run a behavior tree to completion and return its outcome and output."),
		mcp.WithString("tree", mcp.Required(), mcp.Description("Tree name")),
		mcp.WithString("vars", mcp.Description("JSON object overriding the tree variables (optional)")),
		mcp.WithOutputSchema[RunResponse](),
	), mcp.NewStructuredToolHandler(s.handleRunTree))

	// TOOL: get_graph
	s.mcpServer.AddTool(mcp.NewTool("get_graph",
		mcp.WithDescription("Render a tree as a Mermaid diagram, optionally colored by the outcomes of a run."),
		mcp.WithString("tree", mcp.Required(), mcp.Description("Tree name")),
		mcp.WithString("run_id", mcp.Description("Run to overlay (optional)")),
	), s.handleGetGraph)

	// TOOL: get_run
	s.mcpServer.AddTool(mcp.NewTool("get_run",
		mcp.WithDescription("Get the journaled outcomes of a run."),
		mcp.WithString("run_id", mcp.Required(), mcp.Description("Run ID returned by run_tree")),
	), s.handleGetRun)
}

func (s *Server) handleListTrees(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (TreeList, error) {
	names, err := s.runner.Source().ListTrees()
	if err != nil {
		return TreeList{}, fmt.Errorf("list failed: %w", err)
	}
	if names == nil {
		names = []string{}
	}
	return TreeList{Trees: names}, nil
}

func (s *Server) handleRunTree(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (RunResponse, error) {
	tree, _ := args["tree"].(string)
	if tree == "" {
		return RunResponse{}, errors.New("tree is required")
	}
	var vars map[string]any
	if raw, ok := args["vars"].(string); ok && raw != "" {
		if err := json.Unmarshal([]byte(raw), &vars); err != nil {
			return RunResponse{}, fmt.Errorf("invalid vars: %w", err)
		}
	}

	var (
		mu     sync.Mutex
		output = []Line{}
	)
	res, err := s.runner.Run(ctx, arbor.RunRequest{
		Tree: tree,
		Vars: vars,
		Progress: func(node string, line arbor.OutputLine) {
			mu.Lock()
			defer mu.Unlock()
			output = append(output, Line{Node: node, Text: line.Line, Stderr: line.IsErr})
		},
	})
	if err != nil {
		s.logger.Warn("MCP run_tree failed", "tree", tree, "err", err)
		return RunResponse{}, err
	}

	mu.Lock()
	defer mu.Unlock()
	return RunResponse{
		RunID:      res.RunID,
		Tree:       res.Tree,
		Outcome:    res.Outcome.String(),
		DurationMS: res.Duration.Milliseconds(),
		Output:     output,
		Nodes:      res.Nodes,
	}, nil
}

func (s *Server) handleGetGraph(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tree := request.GetString("tree", "")
	data, err := s.runner.Source().GetTree(tree)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("load failed: %v", err)), nil
	}
	def, err := loader.Parse(data)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("parse failed: %v", err)), nil
	}
	var overlay *graph.Overlay
	if runID := request.GetString("run_id", ""); runID != "" {
		recs, err := s.runner.Sessions().Load(ctx, runID)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("run %s: %v", runID, err)), nil
		}
		overlay = graph.OverlayFromRecords(recs)
	}
	return mcp.NewToolResultText(graph.GenerateMermaid(def, overlay)), nil
}

func (s *Server) handleGetRun(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	runID := request.GetString("run_id", "")
	recs, err := s.runner.Sessions().Load(ctx, runID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("run %s: %v", runID, err)), nil
	}
	jsonBytes, err := json.Marshal(recs)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func (s *Server) registerResources() {
	// EXPOSE: arbor://trees
	s.mcpServer.AddResource(mcp.NewResource("arbor://trees", "Available Trees",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		names, err := s.runner.Source().ListTrees()
		if err != nil {
			return nil, fmt.Errorf("failed to list trees: %w", err)
		}
		jsonBytes, _ := json.Marshal(names)

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      "arbor://trees",
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})
}
