package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/standardbeagle/csac/internal/catalog"
	"github.com/standardbeagle/csac/internal/session"
	"github.com/standardbeagle/csac/internal/typename"
	"github.com/standardbeagle/csac/internal/types"
	"github.com/standardbeagle/csac/internal/version"
	"github.com/standardbeagle/csac/internal/wordlist"
)

var (
	errPanic       = errors.New("internal error while running the tool")
	errNoSource    = errors.New("source is required")
	errNoName      = errors.New("name is required")
	errNoDot       = errors.New("offset must follow a '.'")
	errNoMembers   = errors.New("no members found for the expression before the dot")
	errUnknownType = errors.New("type is not cataloged")
)

type InfoResponse struct {
	Server    string         `json:"server"`
	Version   string         `json:"version"`
	BuildID   string         `json:"build_id"`
	GoVersion string         `json:"go_version"`
	Catalog   CatalogInfo    `json:"catalog"`
	Tools     []toolDoc      `json:"tools"`
	Warnings  []UnknownField `json:"warnings,omitempty"`
}

type CatalogInfo struct {
	Entries   int      `json:"entries"`
	Libraries []string `json:"libraries"`
	Failed    []string `json:"failed,omitempty"`
}

type CacheResponse struct {
	Catalog   string         `json:"catalog"`
	Libraries int            `json:"libraries"`
	Types     int            `json:"types"`
	Skipped   int            `json:"skipped"`
	Failed    []string       `json:"failed,omitempty"`
	Words     int            `json:"words"`
	Warnings  []UnknownField `json:"warnings,omitempty"`
}

type SuggestResponse struct {
	Prefix     string          `json:"prefix"`
	LenEntered int             `json:"len_entered"`
	Words      []wordlist.Word `json:"words"`
	List       string          `json:"list"`
	Warnings   []UnknownField  `json:"warnings,omitempty"`
}

type CallTipResponse struct {
	Position string         `json:"position"`
	Filter   string         `json:"filter,omitempty"`
	Entries  []CallTipEntry `json:"entries"`
	Warnings []UnknownField `json:"warnings,omitempty"`
}

type CallTipEntry struct {
	Body  string              `json:"body"`
	Name  string              `json:"name"`
	Type  string              `json:"type,omitempty"`
	Kind  types.ConstructKind `json:"kind"`
	Icon  string              `json:"icon,omitempty"`
	Spans []SpanView          `json:"spans"`
}

type SpanView struct {
	Text  string `json:"text"`
	Start int    `json:"start"`
	Style string `json:"style"`
}

type LookupResponse struct {
	Matches  []catalog.EntryView `json:"matches"`
	Warnings []UnknownField      `json:"warnings,omitempty"`
}

func (s *Server) handleInfo(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p InfoParams
	if err := json.Unmarshal(req.Params.Arguments, &p); err != nil {
		return createErrorResponse("info", fmt.Errorf("invalid parameters: %w", err))
	}

	if tool := strings.ToLower(strings.TrimSpace(p.Tool)); tool != "" {
		for _, t := range toolDocs {
			if t.Name == tool {
				return createJSONResponse(t)
			}
		}
		names := make([]string, len(toolDocs))
		for i, t := range toolDocs {
			names[i] = t.Name
		}
		return createSmartErrorResponse("info", fmt.Errorf("unknown tool %q", p.Tool), map[string]any{
			"tools": names,
		})
	}

	info := CatalogInfo{
		Entries:   s.shared.Len(),
		Libraries: s.shared.Libraries(),
	}
	if s.loader != nil {
		info.Failed = s.loader.Resolver().Failed()
	}
	return createJSONResponse(InfoResponse{
		Server:    serverName,
		Version:   version.FullInfo(),
		BuildID:   version.BuildID(),
		GoVersion: runtime.Version(),
		Catalog:   info,
		Tools:     toolDocs,
		Warnings:  p.Warnings,
	})
}

func (s *Server) handleCacheLibraries(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p CacheParams
	if err := json.Unmarshal(req.Params.Arguments, &p); err != nil {
		return createErrorResponse("cache_libraries", fmt.Errorf("invalid parameters: %w", err))
	}
	if strings.TrimSpace(p.Source) == "" {
		return createErrorResponse("cache_libraries", errNoSource)
	}
	static := p.Static == nil || *p.Static

	sess, _ := s.openSession(p.Source, len(p.Source))
	defer sess.Close()

	report, err := sess.CacheLibraries(ctx, static)
	if err != nil {
		return createErrorResponse("cache_libraries", err)
	}
	target := sess.Instance()
	if static {
		target = sess.Shared()
	}
	return createJSONResponse(CacheResponse{
		Catalog:   target.Name(),
		Libraries: report.Libraries,
		Types:     report.Types,
		Skipped:   report.Skipped,
		Failed:    errorStrings(report.Failed),
		Words:     sess.Words().Len(),
		Warnings:  p.Warnings,
	})
}

func (s *Server) handleSuggest(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p SuggestParams
	if err := json.Unmarshal(req.Params.Arguments, &p); err != nil {
		return createErrorResponse("suggest", fmt.Errorf("invalid parameters: %w", err))
	}
	if err := checkOffset(p.Source, p.Offset); err != nil {
		return createErrorResponse("suggest", err)
	}

	sess, _ := s.openSession(p.Source, p.Offset)
	defer sess.Close()
	if err := s.cache(ctx, sess); err != nil {
		return createErrorResponse("suggest", err)
	}

	n, words := sess.Complete()
	prefix := p.Filter
	if prefix == "" {
		prefix = p.Source[p.Offset-n : p.Offset]
	}
	matched := wordlist.New()
	for _, w := range words.Words() {
		if strings.HasPrefix(strings.ToLower(w.Name), strings.ToLower(prefix)) {
			matched.Add(w.Name, w.Kind)
		}
	}
	return createJSONResponse(SuggestResponse{
		Prefix:     prefix,
		LenEntered: n,
		Words:      matched.Words(),
		List:       matched.String(),
		Warnings:   p.Warnings,
	})
}

func (s *Server) handleCallTip(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p CallTipParams
	if err := json.Unmarshal(req.Params.Arguments, &p); err != nil {
		return createErrorResponse("calltip", fmt.Errorf("invalid parameters: %w", err))
	}
	if err := checkOffset(p.Source, p.Offset); err != nil {
		return createErrorResponse("calltip", err)
	}
	if p.Offset == 0 || p.Source[p.Offset-1] != '.' {
		return createErrorResponse("calltip", errNoDot)
	}

	sess, ed := s.openSession(p.Source, p.Offset)
	defer sess.Close()
	if err := s.cache(ctx, sess); err != nil {
		return createErrorResponse("calltip", err)
	}
	sess.SetFilterAnywhere(p.Anywhere)
	sess.HandleCharAdded('.')

	nav := ed.CallTip()
	if nav == nil {
		return createErrorResponse("calltip", errNoMembers)
	}
	for _, r := range p.Filter {
		nav.TypeChar(r)
	}
	if !nav.Visible() {
		return createErrorResponse("calltip", fmt.Errorf("no member matches %q", p.Filter))
	}

	resp := CallTipResponse{Position: nav.Position(), Filter: nav.Filter(), Warnings: p.Warnings}
	styles := sess.Styles()
	for _, e := range nav.Filtered() {
		view := CallTipEntry{
			Body: e.BodyText,
			Name: e.BodyTextNoParameters,
			Type: e.TypeText,
			Kind: e.Kind,
			Icon: styles.Icon(e.Kind),
		}
		for _, sp := range e.Spans() {
			view.Spans = append(view.Spans, SpanView{Text: e.Text(sp), Start: sp.Start, Style: sp.Style.String()})
		}
		resp.Entries = append(resp.Entries, view)
	}
	return createJSONResponse(resp)
}

func (s *Server) handleLookupType(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var p LookupParams
	if err := json.Unmarshal(req.Params.Arguments, &p); err != nil {
		return createErrorResponse("lookup_type", fmt.Errorf("invalid parameters: %w", err))
	}
	name := strings.TrimSpace(p.Name)
	if name == "" {
		return createErrorResponse("lookup_type", errNoName)
	}

	var matches []catalog.EntryView
	if strings.Contains(name, ".") {
		if e := s.shared.FindByType(typename.Named(name)); e != nil {
			matches = append(matches, s.shared.View(e, s.cfg.Project.Root))
		}
	} else {
		for _, e := range s.shared.Lookup(name) {
			if e.Kind.IsType() {
				matches = append(matches, s.shared.View(e, s.cfg.Project.Root))
			}
		}
	}
	if len(matches) == 0 {
		return createSmartErrorResponse("lookup_type", fmt.Errorf("%w: %s", errUnknownType, name), map[string]any{
			"suggestions": s.shared.Suggest(name, 5),
		})
	}
	return createJSONResponse(LookupResponse{Matches: matches, Warnings: p.Warnings})
}

// cache loads the libraries of the session's source into the shared
// catalog. A server without a loader works from what is already cataloged.
func (s *Server) cache(ctx context.Context, sess *session.Session) error {
	if s.loader == nil {
		sess.Reanalyze()
		return nil
	}
	_, err := sess.CacheLibraries(ctx, true)
	return err
}

func errorStrings(errs []error) []string {
	if len(errs) == 0 {
		return nil
	}
	out := make([]string, len(errs))
	for i, err := range errs {
		out[i] = err.Error()
	}
	return out
}
