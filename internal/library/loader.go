package library

import (
	"context"
	"errors"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/standardbeagle/csac/internal/debug"
	csacerrors "github.com/standardbeagle/csac/internal/errors"
)

var (
	errFailedBefore = errors.New("library failed to load earlier in this session")
	errExecutable   = errors.New("executable images are not libraries")
)

// Loader resolves import names and harvests the matching libraries once.
// Names that fail are remembered by the resolver and skipped afterwards.
type Loader struct {
	resolver  *Resolver
	harvester *Harvester

	mu     sync.Mutex
	loaded map[string]*Library
}

func NewLoader(resolver *Resolver, harvester *Harvester) *Loader {
	return &Loader{
		resolver:  resolver,
		harvester: harvester,
		loaded:    make(map[string]*Library),
	}
}

func (l *Loader) Resolver() *Resolver { return l.resolver }

// Load returns the library for name, harvesting it on first use
func (l *Loader) Load(ctx context.Context, name string) (*Library, error) {
	l.mu.Lock()
	lib, ok := l.loaded[name]
	l.mu.Unlock()
	if ok {
		return lib, nil
	}
	if l.resolver.IsFailed(name) {
		return nil, csacerrors.NewLibraryError("load", name, errFailedBefore)
	}

	path, files, err := l.resolver.Resolve(name)
	if err != nil {
		l.resolver.MarkFailed(name, err)
		return nil, csacerrors.NewLibraryError("resolve", name, err)
	}
	if IsExecutable(path) {
		l.resolver.MarkFailed(name, errExecutable)
		return nil, csacerrors.NewLibraryError("resolve", name, errExecutable).WithPath(path)
	}
	lib, err = l.harvester.HarvestLibrary(ctx, name, path, files)
	if err != nil {
		if ctx.Err() == nil {
			l.resolver.MarkFailed(name, err)
		}
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if existing, ok := l.loaded[name]; ok {
		return existing, nil
	}
	l.loaded[name] = lib
	return lib, nil
}

// LoadAll loads every name, skipping failures. The returned error
// aggregates the per-library failures and is nil when all loaded.
func (l *Loader) LoadAll(ctx context.Context, names []string) ([]*Library, error) {
	var libs []*Library
	var errs []error
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return libs, err
		}
		if l.resolver.IsFailed(name) {
			continue
		}
		lib, err := l.Load(ctx, name)
		if err != nil {
			debug.LogCatalog("library %s not loaded: %v\n", name, err)
			errs = append(errs, err)
			continue
		}
		libs = append(libs, lib)
	}
	return libs, csacerrors.NewMultiError(errs).ErrorOrNil()
}

// Reload drops a loaded library so the next Load harvests it again. The
// content cache still skips unchanged files.
func (l *Loader) Reload(name string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.loaded, name)
}

// Loaded returns the loaded libraries sorted by name
func (l *Loader) Loaded() []*Library {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]*Library, 0, len(l.loaded))
	for _, lib := range l.loaded {
		out = append(out, lib)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// LoadedPaths returns the set of loaded library paths
func (l *Loader) LoadedPaths() map[string]bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[string]bool, len(l.loaded))
	for _, lib := range l.loaded {
		out[lib.Path] = true
	}
	return out
}

// Owner returns the name of the loaded library that contains path. A
// library owns its own path and, for directory libraries, everything below.
func (l *Loader) Owner(path string) (string, bool) {
	path = filepath.Clean(path)
	l.mu.Lock()
	defer l.mu.Unlock()
	for name, lib := range l.loaded {
		libPath := filepath.Clean(lib.Path)
		if path == libPath || strings.HasPrefix(path, libPath+string(filepath.Separator)) {
			return name, true
		}
	}
	return "", false
}
