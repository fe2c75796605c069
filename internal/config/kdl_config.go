package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	kdl "github.com/sblinch/kdl-go"
	"github.com/sblinch/kdl-go/document"

	"github.com/standardbeagle/csac/internal/debug"
	csacerrors "github.com/standardbeagle/csac/internal/errors"
)

// LoadKDL loads .csac.kdl from dir. It returns nil, nil when there is none.
func LoadKDL(dir string) (*Config, error) {
	path := filepath.Join(dir, FileName)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	return LoadKDLFile(path, dir)
}

// LoadKDLFile loads the config at path. Relative root, search paths and
// theme resolve against the directory holding the file; a missing root
// defaults to projectRoot.
func LoadKDLFile(path, projectRoot string) (*Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, csacerrors.NewConfigError("file", path, err)
	}

	cfg, err := parseKDL(string(content))
	if err != nil {
		return nil, csacerrors.NewConfigError("file", path, err)
	}

	base := filepath.Dir(path)
	if cfg.Project.Root != "" {
		cfg.Project.Root = resolve(base, cfg.Project.Root)
	} else if abs, err := filepath.Abs(projectRoot); err == nil {
		cfg.Project.Root = abs
	} else {
		cfg.Project.Root = projectRoot
	}
	for i, p := range cfg.Libraries.SearchPaths {
		cfg.Libraries.SearchPaths[i] = resolve(base, p)
	}
	if cfg.Theme != "" {
		cfg.Theme = resolve(base, cfg.Theme)
	}
	debug.Log("CONFIG", "loaded %s: %d search paths\n", path, len(cfg.Libraries.SearchPaths))
	return cfg, nil
}

func resolve(base, p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Clean(filepath.Join(base, p))
}

func parseKDL(content string) (*Config, error) {
	cfg := Default()
	// left empty unless the file names a root
	cfg.Project.Root = ""

	doc, err := kdl.Parse(strings.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse KDL config: %w", err)
	}

	for _, n := range doc.Nodes {
		switch nodeName(n) {
		case "project":
			for _, cn := range n.Children { // project { root "." name "foo" }
				assignSimpleString(cn, "root", func(v string) { cfg.Project.Root = v })
				assignSimpleString(cn, "name", func(v string) { cfg.Project.Name = v })
			}
		case "libraries":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "search_path":
					cfg.Libraries.SearchPaths = append(cfg.Libraries.SearchPaths, collectStringArgs(cn)...)
				case "recursive":
					if b, ok := firstBoolArg(cn); ok {
						cfg.Libraries.Recursive = b
					}
				case "exclude":
					cfg.Libraries.Exclude = collectStringArgs(cn)
				case "watch":
					if b, ok := firstBoolArg(cn); ok {
						cfg.Libraries.Watch = b
					}
				case "watch_debounce_ms":
					if v, ok := firstIntArg(cn); ok {
						cfg.Libraries.WatchDebounceMs = v
					}
				}
			}
		case "reanalysis":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "interval_ms":
					if v, ok := firstIntArg(cn); ok {
						cfg.Reanalysis.IntervalMs = v
					}
				case "postpone_ms":
					if v, ok := firstIntArg(cn); ok {
						cfg.Reanalysis.PostponeMs = v
					}
				case "dispose_timeout_ms":
					if v, ok := firstIntArg(cn); ok {
						cfg.Reanalysis.DisposeTimeoutMs = v
					}
				}
			}
		case "calltip":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "match_anywhere":
					if b, ok := firstBoolArg(cn); ok {
						cfg.CallTip.MatchAnywhere = b
					}
				case "return_types":
					if b, ok := firstBoolArg(cn); ok {
						cfg.CallTip.ReturnTypes = b
					}
				}
			}
		case "performance":
			for _, cn := range n.Children {
				if nodeName(cn) == "parallel_workers" {
					if v, ok := firstIntArg(cn); ok {
						cfg.Performance.ParallelWorkers = v
					}
				}
			}
		case "theme":
			if s, ok := firstStringArg(n); ok {
				cfg.Theme = s
			}
		case "logging":
			for _, cn := range n.Children {
				assignSimpleString(cn, "level", func(v string) { cfg.Logging.Level = v })
			}
		}
	}

	return cfg, nil
}

func nodeName(n *document.Node) string {
	if n == nil || n.Name == nil {
		return ""
	}
	return n.Name.NodeNameString()
}

func firstIntArg(n *document.Node) (int, bool) {
	if len(n.Arguments) == 0 {
		return 0, false
	}
	switch v := n.Arguments[0].Value.(type) {
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

func firstStringArg(n *document.Node) (string, bool) {
	if len(n.Arguments) == 0 {
		return "", false
	}
	if s, ok := n.Arguments[0].Value.(string); ok {
		return s, true
	}
	return "", false
}

func firstBoolArg(n *document.Node) (bool, bool) {
	if len(n.Arguments) == 0 {
		return false, false
	}
	if b, ok := n.Arguments[0].Value.(bool); ok {
		return b, true
	}
	return false, false
}

// collectStringArgs reads `name "a" "b"` or a block of children
// `name { "a"; "b" }`
func collectStringArgs(n *document.Node) []string {
	if n == nil {
		return nil
	}
	out := make([]string, 0, len(n.Arguments))
	for _, a := range n.Arguments {
		if s, ok := a.Value.(string); ok {
			out = append(out, s)
		}
	}

	if len(out) == 0 && len(n.Children) > 0 {
		out = make([]string, 0, len(n.Children))
		for _, child := range n.Children {
			if s, ok := firstStringArg(child); ok {
				out = append(out, s)
			} else if child.Name != nil {
				if s, ok := child.Name.Value.(string); ok {
					out = append(out, s)
				}
			}
		}
	}
	return out
}

func assignSimpleString(n *document.Node, target string, set func(string)) {
	if nodeName(n) == target {
		if s, ok := firstStringArg(n); ok {
			set(s)
		}
	}
}
