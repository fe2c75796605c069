package config

import (
	"os"
	"time"
)

// FileName is the configuration file looked up in the home and project
// directories
const FileName = ".csac.kdl"

const (
	DefaultIntervalMs       = 1000
	DefaultPostponeMs       = 500
	DefaultDisposeTimeoutMs = 3000
	DefaultWatchDebounceMs  = 300
)

type Config struct {
	Version     int
	Project     Project
	Libraries   Libraries
	Reanalysis  Reanalysis
	CallTip     CallTip
	Performance Performance
	Theme       string // TOML theme file, resolved against the config directory
	Logging     Logging
}

type Project struct {
	Root string
	Name string
}

// Libraries says where library declaration sources are found
type Libraries struct {
	SearchPaths     []string // directories or doublestar globs
	Recursive       bool     // look for libraries below the search paths too
	Exclude         []string // doublestar patterns
	Watch           bool     // reload libraries whose sources change
	WatchDebounceMs int
}

type Reanalysis struct {
	IntervalMs       int
	PostponeMs       int
	DisposeTimeoutMs int
}

func (r Reanalysis) Interval() time.Duration {
	return time.Duration(r.IntervalMs) * time.Millisecond
}

func (r Reanalysis) Postpone() time.Duration {
	return time.Duration(r.PostponeMs) * time.Millisecond
}

func (r Reanalysis) DisposeTimeout() time.Duration {
	return time.Duration(r.DisposeTimeoutMs) * time.Millisecond
}

type CallTip struct {
	MatchAnywhere bool
	ReturnTypes   bool
}

type Performance struct {
	ParallelWorkers int // 0 = one per CPU
}

type Logging struct {
	Level string
}

// Default returns the configuration used when no file is found
func Default() *Config {
	root, err := os.Getwd()
	if err != nil {
		root = "."
	}
	return &Config{
		Version: 1,
		Project: Project{Root: root},
		Libraries: Libraries{
			SearchPaths:     []string{},
			Exclude:         []string{"**/obj/**", "**/bin/**"},
			WatchDebounceMs: DefaultWatchDebounceMs,
		},
		Reanalysis: Reanalysis{
			IntervalMs:       DefaultIntervalMs,
			PostponeMs:       DefaultPostponeMs,
			DisposeTimeoutMs: DefaultDisposeTimeoutMs,
		},
		Logging: Logging{Level: "info"},
	}
}

func Load(path string) (*Config, error) {
	return LoadWithRoot(path, "")
}

// LoadWithRoot reads ~/.csac.kdl and the project's .csac.kdl and merges
// them, the project file taking precedence. path names an explicit project
// file; when empty the file is looked up in rootDir, or the working
// directory.
func LoadWithRoot(path string, rootDir string) (*Config, error) {
	searchDir := "."
	if rootDir != "" {
		searchDir = rootDir
	}

	var baseConfig *Config
	if homeDir, err := os.UserHomeDir(); err == nil {
		if globalCfg, err := LoadKDL(homeDir); err == nil && globalCfg != nil {
			baseConfig = globalCfg
		}
	}

	var projectConfig *Config
	var err error
	if path != "" {
		projectConfig, err = LoadKDLFile(path, searchDir)
	} else {
		projectConfig, err = LoadKDL(searchDir)
	}
	if err != nil {
		return nil, err
	}

	switch {
	case baseConfig != nil && projectConfig != nil:
		return mergeConfigs(baseConfig, projectConfig), nil
	case projectConfig != nil:
		return projectConfig, nil
	case baseConfig != nil:
		baseConfig.Project.Root = searchDir
		return baseConfig, nil
	}

	cfg := Default()
	if rootDir != "" {
		cfg.Project.Root = rootDir
	}
	return cfg, nil
}

// mergeConfigs lays a project config over a base config. Search paths
// and exclusions from both are kept, base first; everything else comes
// from the project.
func mergeConfigs(base, project *Config) *Config {
	merged := *project

	merged.Libraries.SearchPaths = mergePatterns(base.Libraries.SearchPaths, project.Libraries.SearchPaths)
	merged.Libraries.Exclude = mergePatterns(base.Libraries.Exclude, project.Libraries.Exclude)

	if merged.Theme == "" {
		merged.Theme = base.Theme
	}
	return &merged
}

func mergePatterns(base, project []string) []string {
	if len(base) == 0 {
		return project
	}
	seen := make(map[string]bool, len(base)+len(project))
	out := make([]string, 0, len(base)+len(project))
	for _, list := range [][]string{base, project} {
		for _, p := range list {
			if seen[p] {
				continue
			}
			seen[p] = true
			out = append(out, p)
		}
	}
	return out
}
