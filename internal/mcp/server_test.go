package mcp

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/standardbeagle/csac/internal/calltip"
	"github.com/standardbeagle/csac/internal/config"
	"github.com/standardbeagle/csac/internal/library"
	"github.com/standardbeagle/csac/internal/types"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"))
}

const demoLibrary = `namespace Demo
{
    public class Foo
    {
        public int Add(int a, int b) { return a + b; }
        public string Name { get; set; }
    }

    public static class Util
    {
        public static int Twice(int x) { return x * 2; }
    }
}
`

const program = `using Demo;
using Missing.Lib;

class Program
{
    void Run()
    {
        var foo = new Foo();
        int total = 1;
        to
    }
}
`

func newTestServer(t *testing.T, opts ...Option) *Server {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "Demo"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Demo", "Foo.cs"), []byte(demoLibrary), 0o644))

	cfg := config.Default()
	cfg.Project.Root = dir
	loader := library.NewLoader(library.NewResolver([]string{dir}, false, nil), library.NewHarvester())
	s, err := NewServer(cfg, loader, nil, opts...)
	require.NoError(t, err)
	return s
}

func call(t *testing.T, s *Server, tool string, args any) (*mcp.CallToolResult, map[string]any) {
	t.Helper()
	raw, err := json.Marshal(args)
	require.NoError(t, err)
	h := s.Handler(tool)
	require.NotNil(t, h, tool)
	result, err := h(context.Background(), &mcp.CallToolRequest{Params: &mcp.CallToolParamsRaw{
		Name:      tool,
		Arguments: raw,
	}})
	require.NoError(t, err)
	require.NotNil(t, result)
	require.Len(t, result.Content, 1)
	text, ok := result.Content[0].(*mcp.TextContent)
	require.True(t, ok)

	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(text.Text), &out))
	return result, out
}

func TestInfo(t *testing.T) {
	s := newTestServer(t)

	result, out := call(t, s, "info", map[string]any{"verbose": true})
	assert.False(t, result.IsError)
	assert.Equal(t, serverName, out["server"])
	assert.Len(t, out["tools"], len(toolDocs))
	warnings := out["warnings"].([]any)
	require.Len(t, warnings, 1)
	assert.Equal(t, "verbose", warnings[0].(map[string]any)["name"])

	_, out = call(t, s, "info", map[string]any{"tool": "CallTip"})
	assert.Equal(t, "calltip", out["name"])

	result, out = call(t, s, "info", map[string]any{"tool": "nope"})
	assert.True(t, result.IsError)
	assert.Equal(t, false, out["success"])
}

func TestCacheLibraries(t *testing.T) {
	s := newTestServer(t)

	result, out := call(t, s, "cache_libraries", map[string]any{"source": program})
	require.False(t, result.IsError, out)
	assert.Equal(t, "shared", out["catalog"])
	assert.EqualValues(t, 1, out["libraries"])
	assert.EqualValues(t, 2, out["types"])
	failed := out["failed"].([]any)
	require.Len(t, failed, 1)
	assert.Contains(t, failed[0], "Missing.Lib")
	assert.NotNil(t, s.Shared().FindType("Foo"))

	// a second pass finds everything cataloged
	_, out = call(t, s, "cache_libraries", map[string]any{"source": program})
	assert.EqualValues(t, 0, out["types"])

	result, _ = call(t, s, "cache_libraries", map[string]any{"source": "  "})
	assert.True(t, result.IsError)
}

func TestCacheLibraries_Instance(t *testing.T) {
	s := newTestServer(t)

	_, out := call(t, s, "cache_libraries", map[string]any{"source": program, "static": false})
	assert.NotEqual(t, "shared", out["catalog"])
	assert.EqualValues(t, 2, out["types"])
	assert.Zero(t, s.Shared().Len())
}

func TestSuggest(t *testing.T) {
	s := newTestServer(t)
	offset := strings.Index(program, "to\n") + 2

	result, out := call(t, s, "suggest", map[string]any{"source": program, "offset": offset})
	require.False(t, result.IsError, out)
	assert.Equal(t, "to", out["prefix"])
	assert.EqualValues(t, 2, out["len_entered"])
	assert.Contains(t, strings.Fields(out["list"].(string)), "total?9")
	for _, w := range strings.Fields(out["list"].(string)) {
		assert.True(t, strings.HasPrefix(strings.ToLower(w), "to"), w)
	}

	_, out = call(t, s, "suggest", map[string]any{"source": program, "offset": offset, "filter": "Fo"})
	list := strings.Fields(out["list"].(string))
	assert.Contains(t, list, "Foo?3")
	assert.Contains(t, list, "foo?9")

	result, _ = call(t, s, "suggest", map[string]any{"source": program, "offset": len(program) + 1})
	assert.True(t, result.IsError)
}

func TestCallTip(t *testing.T) {
	st := calltip.NewStyles()
	st.SetIcon(types.KindMethod, "method.png")
	s := newTestServer(t, WithStyles(st))

	src := strings.Replace(program, "to\n", "foo.\n", 1)
	offset := strings.Index(src, "foo.\n") + 4

	result, out := call(t, s, "calltip", map[string]any{"source": src, "offset": offset})
	require.False(t, result.IsError, out)
	assert.Equal(t, "1 of 3", out["position"])
	entries := out["entries"].([]any)
	require.Len(t, entries, 3)

	first := entries[0].(map[string]any)
	assert.Equal(t, "Add(int a, int b)", first["body"])
	assert.Equal(t, "method", first["kind"])
	assert.Equal(t, "method.png", first["icon"])
	var rebuilt strings.Builder
	for _, sp := range first["spans"].([]any) {
		rebuilt.WriteString(sp.(map[string]any)["text"].(string))
	}
	assert.Equal(t, "Add(int a, int b)", rebuilt.String(), "spans cover the body")

	_, out = call(t, s, "calltip", map[string]any{"source": src, "offset": offset, "filter": "N"})
	assert.Equal(t, "1 of 1", out["position"])

	_, out = call(t, s, "calltip", map[string]any{"source": src, "offset": offset, "filter": "dd", "anywhere": true})
	assert.Equal(t, "1 of 1", out["position"])

	result, _ = call(t, s, "calltip", map[string]any{"source": src, "offset": offset, "filter": "zz"})
	assert.True(t, result.IsError)
}

func TestCallTip_Errors(t *testing.T) {
	s := newTestServer(t)

	result, _ := call(t, s, "calltip", map[string]any{"source": program, "offset": 3})
	assert.True(t, result.IsError, "not after a dot")

	src := strings.Replace(program, "to\n", "nothing.\n", 1)
	offset := strings.Index(src, "nothing.\n") + len("nothing.")
	result, out := call(t, s, "calltip", map[string]any{"source": src, "offset": offset})
	assert.True(t, result.IsError)
	assert.Contains(t, out["error"], "no members")
}

func TestLookupType(t *testing.T) {
	s := newTestServer(t)
	call(t, s, "cache_libraries", map[string]any{"source": program})

	result, out := call(t, s, "lookup_type", map[string]any{"name": "Foo"})
	require.False(t, result.IsError, out)
	matches := out["matches"].([]any)
	require.Len(t, matches, 1)
	assert.Equal(t, "Demo", matches[0].(map[string]any)["namespace"])

	_, out = call(t, s, "lookup_type", map[string]any{"name": "Demo.Util"})
	assert.Equal(t, "static_class", out["matches"].([]any)[0].(map[string]any)["kind"])

	result, out = call(t, s, "lookup_type", map[string]any{"name": "Fooo"})
	assert.True(t, result.IsError)
	assert.Contains(t, out["suggestions"], "Foo")

	result, _ = call(t, s, "lookup_type", map[string]any{"name": ""})
	assert.True(t, result.IsError)
}

func TestHandlerUnknown(t *testing.T) {
	assert.Nil(t, newTestServer(t).Handler("search"))
}

func TestCollectUnknownFields(t *testing.T) {
	known := map[string]struct{}{"source": {}}
	raw, warnings, err := collectUnknownFields([]byte(`{"source":"x","b":2,"a":"y"}`), known)
	require.NoError(t, err)
	assert.Len(t, raw, 3)
	require.Len(t, warnings, 2)
	assert.Equal(t, "a", warnings[0].Name)
	assert.Equal(t, float64(2), warnings[1].Value)

	_, _, err = collectUnknownFields([]byte(`[1]`), known)
	assert.Error(t, err)
}
