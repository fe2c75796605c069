package library

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/standardbeagle/csac/internal/debug"
)

// Resolver maps import names to library sources under a set of search
// paths. Search paths may be doublestar globs.
type Resolver struct {
	SearchPaths []string
	Recursive   bool
	Exclude     []string

	mu     sync.Mutex
	failed map[string]error
}

func NewResolver(searchPaths []string, recursive bool, exclude []string) *Resolver {
	return &Resolver{
		SearchPaths: searchPaths,
		Recursive:   recursive,
		Exclude:     exclude,
		failed:      make(map[string]error),
	}
}

// Resolve finds the library called name. A library is either a directory
// named name holding .cs files or a single name.cs file. It returns the
// library path and the source files in a stable order.
func (r *Resolver) Resolve(name string) (string, []string, error) {
	for _, base := range r.searchRoots() {
		if path, files, ok := r.resolveIn(base, name); ok {
			return path, files, nil
		}
	}
	return "", nil, fmt.Errorf("library %s: %w", name, fs.ErrNotExist)
}

func (r *Resolver) resolveIn(base, name string) (string, []string, bool) {
	dir := filepath.Join(base, name)
	if info, err := os.Stat(dir); err == nil && info.IsDir() {
		if files := r.collect(dir); len(files) > 0 {
			return dir, files, true
		}
	}
	file := filepath.Join(base, name+".cs")
	if info, err := os.Stat(file); err == nil && !info.IsDir() && !r.excluded(file) {
		return file, []string{file}, true
	}
	if IsExecutable(name) {
		return "", nil, false
	}
	if !r.Recursive {
		return "", nil, false
	}

	// look for a matching directory or file deeper in the tree
	var found string
	_ = filepath.WalkDir(base, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if path == base {
			return nil
		}
		if r.excluded(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() && d.Name() == name {
			found = path
			return filepath.SkipAll
		}
		if !d.IsDir() && d.Name() == name+".cs" {
			found = path
			return filepath.SkipAll
		}
		return nil
	})
	if found == "" {
		return "", nil, false
	}
	if strings.HasSuffix(found, ".cs") {
		return found, []string{found}, true
	}
	files := r.collect(found)
	return found, files, len(files) > 0
}

// collect lists the .cs files of a library directory. Subdirectories are
// included when the resolver is recursive.
func (r *Resolver) collect(dir string) []string {
	var files []string
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if path != dir && (!r.Recursive || r.excluded(path)) {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.EqualFold(filepath.Ext(path), ".cs") && !r.excluded(path) {
			files = append(files, path)
		}
		return nil
	})
	sort.Strings(files)
	return files
}

// Roots returns the search directories with globs expanded
func (r *Resolver) Roots() []string { return r.searchRoots() }

// Excluded reports whether path matches an exclude pattern
func (r *Resolver) Excluded(path string) bool { return r.excluded(path) }

// searchRoots expands glob search paths into existing directories
func (r *Resolver) searchRoots() []string {
	var roots []string
	for _, p := range r.SearchPaths {
		if !strings.ContainsAny(p, "*?[{") {
			roots = append(roots, p)
			continue
		}
		matches, err := doublestar.FilepathGlob(p)
		if err != nil {
			debug.LogCatalog("search path %s: %v\n", p, err)
			continue
		}
		for _, m := range matches {
			if info, err := os.Stat(m); err == nil && info.IsDir() {
				roots = append(roots, m)
			}
		}
	}
	return roots
}

func (r *Resolver) excluded(path string) bool {
	slashed := filepath.ToSlash(path)
	for _, pattern := range r.Exclude {
		if ok, _ := doublestar.Match(pattern, slashed); ok {
			return true
		}
		if ok, _ := doublestar.Match(pattern, filepath.Base(path)); ok {
			return true
		}
	}
	return false
}

// MarkFailed records that name could not be resolved or loaded. Failed
// names are not retried.
func (r *Resolver) MarkFailed(name string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failed == nil {
		r.failed = make(map[string]error)
	}
	r.failed[name] = err
}

func (r *Resolver) IsFailed(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.failed[name]
	return ok
}

// Failed returns the failed names in sorted order
func (r *Resolver) Failed() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.failed))
	for name := range r.failed {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// ResetFailed forgets every failure, for example after the search paths changed
func (r *Resolver) ResetFailed() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failed = make(map[string]error)
}
