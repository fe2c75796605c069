// Package mcp exposes completion and call tips over the Model Context
// Protocol. Each tool call opens a headless editing session on the source
// it is given; cataloged libraries are kept in one shared catalog for the
// life of the server.
package mcp

import (
	"context"
	"runtime/debug"

	"github.com/go-logr/logr"
	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/standardbeagle/csac/internal/calltip"
	"github.com/standardbeagle/csac/internal/catalog"
	"github.com/standardbeagle/csac/internal/config"
	csacdebug "github.com/standardbeagle/csac/internal/debug"
	"github.com/standardbeagle/csac/internal/editor"
	"github.com/standardbeagle/csac/internal/library"
	"github.com/standardbeagle/csac/internal/session"
	"github.com/standardbeagle/csac/internal/version"
	"github.com/standardbeagle/csac/pkg/logger"
)

const serverName = "csac-mcp-server"

// Server hosts the csac tools
type Server struct {
	server *mcp.Server
	cfg    *config.Config
	loader *library.Loader
	shared *catalog.Catalog
	styles *calltip.Styles
	log    *logr.Logger
}

type Option func(*Server)

func WithLogger(l *logr.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// WithStyles sets the registry whose styles and icons are reported with
// call tips
func WithStyles(st *calltip.Styles) Option {
	return func(s *Server) {
		if st != nil {
			s.styles = st
		}
	}
}

// NewServer creates a server that resolves libraries through loader into
// shared. A nil cfg uses the defaults; a nil shared catalog is created.
func NewServer(cfg *config.Config, loader *library.Loader, shared *catalog.Catalog, opts ...Option) (*Server, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if shared == nil {
		shared = catalog.NewShared()
	}
	s := &Server{
		cfg:    cfg,
		loader: loader,
		shared: shared,
		styles: calltip.NewStyles(),
		log:    logger.GetNoopLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.server = mcp.NewServer(&mcp.Implementation{
		Name:    serverName,
		Version: version.Info(),
	}, nil)
	s.registerTools()
	csacdebug.LogMCP("server created, %d tools\n", len(toolDocs))
	return s, nil
}

// Shared returns the catalog the tools populate
func (s *Server) Shared() *catalog.Catalog { return s.shared }

type toolDoc struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Example     string `json:"example"`
}

var toolDocs = []toolDoc{
	{"info", "Server version, catalog state and tool help. Pass a tool name for its parameters.",
		`{"tool": "calltip"}`},
	{"cache_libraries", "Catalog the libraries named by the using directives of a C# source.",
		`{"source": "using Demo;\nclass P {}", "static": true}`},
	{"suggest", "Autocomplete words at a byte offset: keywords, cataloged types and names in scope.",
		`{"source": "...", "offset": 120, "filter": "fo"}`},
	{"calltip", "Members of the expression before the dot that ends at a byte offset.",
		`{"source": "...foo.", "offset": 124, "anywhere": false}`},
	{"lookup_type", "Describe a cataloged type by name, with suggestions on a miss.",
		`{"name": "Foo"}`},
}

func describe(name string) string {
	for _, t := range toolDocs {
		if t.Name == name {
			return t.Description
		}
	}
	return ""
}

func (s *Server) registerTools() {
	s.server.AddTool(&mcp.Tool{
		Name:        "info",
		Description: describe("info"),
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"tool": {Type: "string", Description: "Tool to describe"},
			},
		},
	}, s.safe("info", s.handleInfo))

	s.server.AddTool(&mcp.Tool{
		Name:        "cache_libraries",
		Description: describe("cache_libraries"),
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"source": {Type: "string", Description: "C# source text"},
				"static": {Type: "boolean", Description: "Cache into the shared catalog (default true)"},
			},
			Required: []string{"source"},
		},
	}, s.safe("cache_libraries", s.handleCacheLibraries))

	s.server.AddTool(&mcp.Tool{
		Name:        "suggest",
		Description: describe("suggest"),
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"source": {Type: "string", Description: "C# source text"},
				"offset": {Type: "integer", Description: "Byte offset of the caret"},
				"filter": {Type: "string", Description: "Prefix to filter by; defaults to the word before the caret"},
			},
			Required: []string{"source", "offset"},
		},
	}, s.safe("suggest", s.handleSuggest))

	s.server.AddTool(&mcp.Tool{
		Name:        "calltip",
		Description: describe("calltip"),
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"source":   {Type: "string", Description: "C# source text"},
				"offset":   {Type: "integer", Description: "Byte offset just after the dot"},
				"anywhere": {Type: "boolean", Description: "Match the filter anywhere in member names"},
				"filter":   {Type: "string", Description: "Characters typed after the dot"},
			},
			Required: []string{"source", "offset"},
		},
	}, s.safe("calltip", s.handleCallTip))

	s.server.AddTool(&mcp.Tool{
		Name:        "lookup_type",
		Description: describe("lookup_type"),
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"name": {Type: "string", Description: "Type name, short or namespace-qualified"},
			},
			Required: []string{"name"},
		},
	}, s.safe("lookup_type", s.handleLookupType))
}

type handlerFunc = mcp.ToolHandler

// safe turns a panic in a handler into an error result
func (s *Server) safe(operation string, h handlerFunc) handlerFunc {
	return func(ctx context.Context, req *mcp.CallToolRequest) (result *mcp.CallToolResult, err error) {
		defer func() {
			if r := recover(); r != nil {
				s.log.Info("panic in tool", "tool", operation, "panic", r, "stack", string(debug.Stack()))
				result, err = createErrorResponse(operation, errPanic)
			}
		}()
		return h(ctx, req)
	}
}

// openSession starts a headless session on source with the caret at offset
func (s *Server) openSession(source string, offset int) (*session.Session, *editor.Buffer) {
	ed := editor.New(source)
	ed.SetCaret(offset)
	r := s.cfg.Reanalysis
	sess := session.New(ed, nil, s.shared,
		session.WithLoader(s.loader),
		session.WithInterval(r.Interval()),
		session.WithPostpone(r.Postpone()),
		session.WithDisposeTimeout(r.DisposeTimeout()),
		session.WithReturnTypes(s.cfg.CallTip.ReturnTypes),
		session.WithMatchAnywhere(s.cfg.CallTip.MatchAnywhere),
		session.WithStyles(s.styles),
		session.WithLogger(s.log),
	)
	return sess, ed
}

// Start serves over stdio until ctx ends or the client disconnects
func (s *Server) Start(ctx context.Context) error {
	csacdebug.SetMCPMode(true)
	s.log.Info("starting MCP server", "transport", "stdio", "version", version.FullInfo())
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// Handler returns the handler registered for tool, or nil. Tests call
// handlers directly through it.
func (s *Server) Handler(tool string) handlerFunc {
	switch tool {
	case "info":
		return s.safe(tool, s.handleInfo)
	case "cache_libraries":
		return s.safe(tool, s.handleCacheLibraries)
	case "suggest":
		return s.safe(tool, s.handleSuggest)
	case "calltip":
		return s.safe(tool, s.handleCallTip)
	case "lookup_type":
		return s.safe(tool, s.handleLookupType)
	}
	return nil
}
