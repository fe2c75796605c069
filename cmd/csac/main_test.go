package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const demoLibrary = `namespace Demo
{
    public class Foo
    {
        public int Add(int a, int b) { return a + b; }
        public string Name { get; set; }
    }
}
`

const program = `using Demo;

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

// setupProject lays out a project with one library and one source file and
// points HOME away from any user config
func setupProject(t *testing.T, src string) (root, file string) {
	t.Helper()
	root = t.TempDir()
	t.Setenv("HOME", t.TempDir())

	libs := filepath.Join(root, "libs")
	require.NoError(t, os.MkdirAll(filepath.Join(libs, "Demo"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(libs, "Demo", "Foo.cs"), []byte(demoLibrary), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".csac.kdl"), []byte("libraries {\n    search_path \"libs\"\n}\n"), 0o644))

	file = filepath.Join(root, "Program.cs")
	require.NoError(t, os.WriteFile(file, []byte(src), 0o644))
	return root, file
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	app := newApp()
	var out bytes.Buffer
	app.Writer = &out
	app.ErrWriter = &out
	err := app.Run(append([]string{"csac"}, args...))
	return out.String(), err
}

func TestTypeName(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	out, err := run(t, "typename", "int", "List<int>", "System.String[]")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "System.Int32\tint", lines[0])
	assert.Equal(t, "List<System.Int32>\tList<int>", lines[1])
	assert.Equal(t, "System.String[]\tstring[]", lines[2])

	_, err = run(t, "typename", "List<int")
	assert.Error(t, err)

	_, err = run(t, "typename")
	assert.Error(t, err)
}

func TestSuggest(t *testing.T) {
	root, file := setupProject(t, program)
	offset := strings.Index(program, "to\n") + 2

	out, err := run(t, "--root", root, "suggest", "--offset", strconv.Itoa(offset), file)
	require.NoError(t, err)
	fields := strings.Fields(out)
	require.NotEmpty(t, fields)
	assert.Equal(t, "2", fields[0])
	assert.Contains(t, fields[1:], "total?9")

	out, err = run(t, "--root", root, "suggest", "--offset", strconv.Itoa(offset), "--filter", "Fo", file)
	require.NoError(t, err)
	assert.Contains(t, strings.Fields(out), "Foo?3")

	_, err = run(t, "--root", root, "suggest", "--offset", strconv.Itoa(len(program)+10), file)
	assert.Error(t, err)
}

func TestCallTip(t *testing.T) {
	src := strings.Replace(program, "to\n", "foo.\n", 1)
	root, file := setupProject(t, src)
	offset := strings.Index(src, "foo.\n") + 4

	out, err := run(t, "--root", root, "calltip", "--offset", strconv.Itoa(offset), file)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.NotEmpty(t, lines)
	assert.Equal(t, "1 of 3", lines[0])
	assert.Contains(t, out, "Add(int a, int b)")

	out, err = run(t, "--root", root, "calltip", "--offset", strconv.Itoa(offset), "--filter", "N", file)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "1 of 1"), out)

	_, err = run(t, "--root", root, "calltip", "--offset", "3", file)
	assert.Error(t, err, "not after a dot")
}

func TestCatalog(t *testing.T) {
	root, file := setupProject(t, program)

	out, err := run(t, "--root", root, "catalog", "--json", file)
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Contains(t, out, `"Foo"`)

	out, err = run(t, "--root", root, "catalog", "--kind", "class", file)
	require.NoError(t, err)
	assert.Contains(t, out, "name: Foo")
	assert.Contains(t, out, "Add(int a, int b)")

	out, err = run(t, "--root", root, "catalog", "--kind", "static_class", file)
	require.NoError(t, err)
	assert.NotContains(t, out, "name: Foo")

	_, err = run(t, "--root", root, "catalog", "--kind", "gadget", file)
	assert.Error(t, err)

	_, err = run(t, "--root", root, "catalog")
	assert.Error(t, err)
}

func TestConfigShow(t *testing.T) {
	root, _ := setupProject(t, program)

	out, err := run(t, "--root", root, "config", "show", "--format", "json")
	require.NoError(t, err)
	var cfg map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &cfg))
	libs := cfg["Libraries"].(map[string]any)
	assert.Contains(t, libs["SearchPaths"], filepath.Join(root, "libs"))

	out, err = run(t, "--root", root, "--library-path", root, "config", "show", "--format", "toml")
	require.NoError(t, err)
	assert.Contains(t, out, "[Reanalysis]")

	out, err = run(t, "--root", root, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "reanalysis:")

	_, err = run(t, "--root", root, "config", "show", "--format", "ini")
	assert.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	root, _ := setupProject(t, program)

	out, err := run(t, "--root", root, "--library-path", filepath.Join(root, "absent"), "config", "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "warning: search path")
	assert.Contains(t, out, "configuration is valid")

	_, err = run(t, "--root", root, "--config", filepath.Join(root, "missing.kdl"), "config", "validate")
	assert.Error(t, err)
}
