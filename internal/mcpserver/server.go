// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes lapse tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/varga/lapse/internal/index"
	"github.com/varga/lapse/internal/runservice"
	"github.com/varga/lapse/internal/seqservice"
	"github.com/varga/lapse/internal/storage"
)

// Server wraps the MCP server with lapse tools.
type Server struct {
	mcp    *server.MCPServer
	store  storage.Provider
	db     *index.DB
	seqSvc *seqservice.Service
	runSvc *runservice.Service
}

// New creates a new MCP server with all lapse tools registered.
func New(store storage.Provider, db *index.DB, seqSvc *seqservice.Service, runSvc *runservice.Service) *Server {
	s := &Server{store: store, db: db, seqSvc: seqSvc, runSvc: runSvc}

	s.mcp = server.NewMCPServer(
		"Lapse",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_sequences",
		mcp.WithDescription("Full-text search through sequence names, channel presets and position names."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchSequences)

	s.mcp.AddTool(mcp.NewTool("list_sequences",
		mcp.WithDescription("List all sequence documents or documents in a specific folder."),
		mcp.WithString("folder", mcp.Description("Optional folder to list (empty for all)")),
	), s.listSequences)

	s.mcp.AddTool(mcp.NewTool("read_sequence",
		mcp.WithDescription("Read the raw content of a sequence document."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the document (e.g. plates/scan.useq.json)")),
	), s.readSequence)

	s.mcp.AddTool(mcp.NewTool("create_sequence",
		mcp.WithDescription("Create a new sequence document at the specified path. "+
			"Content MUST follow the useq document format (JSON or YAML matching the "+
			"file extension). Read the contract first via the get_sequence_contract "+
			"tool or the lapse://sequence-format resource."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path for the new document (e.g. scan.useq.json)")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Document content following the lapse sequence format contract")),
	), s.createSequence)

	s.mcp.AddTool(mcp.NewTool("get_sequence_contract",
		mcp.WithDescription("Returns the canonical lapse sequence document format contract. "+
			"Call this before creating or updating sequence documents."),
	), s.getSequenceContract)

	s.mcp.AddTool(mcp.NewTool("list_positions",
		mcp.WithDescription("List the stage positions of a sequence document."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path of the sequence document")),
	), s.listPositions)

	s.mcp.AddTool(mcp.NewTool("add_position",
		mcp.WithDescription("Append a stage position to a sequence document."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path of the sequence document")),
		mcp.WithNumber("x", mcp.Required(), mcp.Description("X coordinate in micrometers")),
		mcp.WithNumber("y", mcp.Required(), mcp.Description("Y coordinate in micrometers")),
		mcp.WithNumber("z", mcp.Description("Optional Z coordinate in micrometers")),
		mcp.WithString("name", mcp.Description("Optional position name (defaults to PosN)")),
	), s.addPosition)

	s.mcp.AddTool(mcp.NewTool("remove_position",
		mcp.WithDescription("Remove the stage position at the given index from a sequence document."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path of the sequence document")),
		mcp.WithNumber("index", mcp.Required(), mcp.Description("Zero-based position index")),
	), s.removePosition)

	s.mcp.AddTool(mcp.NewTool("import_positions",
		mcp.WithDescription("Append stage positions parsed from a points file "+
			"(CSV rows of name,x,y[,z] or a JSON array) to a sequence document."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path of the sequence document")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Points file content")),
		mcp.WithString("format", mcp.Description("Points format: csv or json (default json)")),
	), s.importPositions)

	s.mcp.AddTool(mcp.NewTool("start_timelapse",
		mcp.WithDescription("Start a time-lapse acquisition from a saved sequence document "+
			"or from a single channel preset. Exactly one of path or preset is required."),
		mcp.WithString("path", mcp.Description("Sequence document to run")),
		mcp.WithString("preset", mcp.Description("Channel preset for a simple 60x5s time-lapse")),
	), s.startTimelapse)

	s.mcp.AddTool(mcp.NewTool("stop_timelapse",
		mcp.WithDescription("Stop the active acquisition. Stopping an idle launcher does nothing."),
	), s.stopTimelapse)

	s.mcp.AddTool(mcp.NewTool("run_status",
		mcp.WithDescription("Report the launcher state: whether a run is active and its frame progress."),
	), s.runStatus)

	// Resource: sequence format contract.
	s.mcp.AddResource(
		mcp.NewResource("lapse://sequence-format", "Sequence Format Contract",
			mcp.WithResourceDescription("Canonical useq document format that all sequence documents must follow."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readSequenceFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) searchSequences(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.db.Search(query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(results, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listSequences(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	folder := ""
	if f, err := req.RequireString("folder"); err == nil {
		folder = f
	}

	metas, err := s.store.List(folder)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var paths []string
	for _, m := range metas {
		paths = append(paths, m.Path)
	}
	return mcp.NewToolResultText(strings.Join(paths, "\n")), nil
}

func (s *Server) readSequence(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	data, err := s.store.Read(path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", path)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) createSequence(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if _, err := s.seqSvc.Create(ctx, path, []byte(content)); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s", path)), nil
}

func (s *Server) getSequenceContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(SequenceFormatContract), nil
}

func (s *Server) readSequenceFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "lapse://sequence-format",
			MIMEType: "text/markdown",
			Text:     SequenceFormatContract,
		},
	}, nil
}

func (s *Server) listPositions(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	list, err := s.seqSvc.ListPositions(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(list.Positions, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) runStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	st := s.runSvc.Status()
	out, _ := json.MarshalIndent(st, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) stopTimelapse(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.runSvc.Stop(); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText("stopped"), nil
}

func (s *Server) startTimelapse(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := ""
	if v, err := req.RequireString("path"); err == nil {
		path = v
	}
	preset := ""
	if v, err := req.RequireString("preset"); err == nil {
		preset = v
	}
	if (path == "") == (preset == "") {
		return mcp.NewToolResultError("exactly one of path or preset is required"), nil
	}

	var (
		run *runservice.Run
		err error
	)
	if path != "" {
		run, err = s.runSvc.StartFromFile(ctx, path)
	} else {
		run, err = s.runSvc.StartFromPreset(ctx, preset)
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(run, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}
