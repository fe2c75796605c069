package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	csacerrors "github.com/standardbeagle/csac/internal/errors"
)

// Validator validates configuration and sets smart defaults
type Validator struct{}

func NewValidator() *Validator {
	return &Validator{}
}

// ValidateAndSetDefaults validates configuration and applies smart defaults
func (v *Validator) ValidateAndSetDefaults(cfg *Config) error {
	if err := v.validateProjectConfig(&cfg.Project); err != nil {
		return csacerrors.NewConfigError("project", "", err)
	}
	if err := v.validateLibrariesConfig(&cfg.Libraries); err != nil {
		return csacerrors.NewConfigError("libraries", "", err)
	}
	if err := v.validateReanalysisConfig(&cfg.Reanalysis); err != nil {
		return csacerrors.NewConfigError("reanalysis", "", err)
	}
	if cfg.Performance.ParallelWorkers < 0 {
		return csacerrors.NewConfigError("performance", fmt.Sprint(cfg.Performance.ParallelWorkers),
			errors.New("parallel_workers cannot be negative"))
	}

	v.setSmartDefaults(cfg)
	return nil
}

func (v *Validator) validateProjectConfig(project *Project) error {
	if project.Root == "" {
		return errors.New("project root cannot be empty")
	}
	return nil
}

func (v *Validator) validateLibrariesConfig(libs *Libraries) error {
	for i, p := range libs.SearchPaths {
		if strings.TrimSpace(p) == "" {
			return fmt.Errorf("search_path %d is empty", i)
		}
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("search_path %q is not a valid pattern", p)
		}
	}
	for _, p := range libs.Exclude {
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("exclude %q is not a valid pattern", p)
		}
	}
	if libs.WatchDebounceMs < 0 {
		return fmt.Errorf("watch_debounce_ms cannot be negative, got %d", libs.WatchDebounceMs)
	}
	return nil
}

func (v *Validator) validateReanalysisConfig(r *Reanalysis) error {
	for _, d := range []struct {
		name string
		ms   int
	}{
		{"interval_ms", r.IntervalMs},
		{"postpone_ms", r.PostponeMs},
		{"dispose_timeout_ms", r.DisposeTimeoutMs},
	} {
		if d.ms < 0 {
			return fmt.Errorf("%s cannot be negative, got %d", d.name, d.ms)
		}
	}
	return nil
}

// setSmartDefaults fills the values left at zero
func (v *Validator) setSmartDefaults(cfg *Config) {
	if cfg.Performance.ParallelWorkers == 0 {
		cfg.Performance.ParallelWorkers = max(1, runtime.NumCPU()-1)
	}
	if cfg.Reanalysis.IntervalMs == 0 {
		cfg.Reanalysis.IntervalMs = DefaultIntervalMs
	}
	if cfg.Reanalysis.PostponeMs == 0 {
		cfg.Reanalysis.PostponeMs = DefaultPostponeMs
	}
	if cfg.Reanalysis.DisposeTimeoutMs == 0 {
		cfg.Reanalysis.DisposeTimeoutMs = DefaultDisposeTimeoutMs
	}
	if cfg.Libraries.WatchDebounceMs == 0 {
		cfg.Libraries.WatchDebounceMs = DefaultWatchDebounceMs
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Project.Name == "" {
		cfg.Project.Name = filepath.Base(cfg.Project.Root)
	}
}

// ValidateConfig is a convenience function for quick validation
func ValidateConfig(cfg *Config) error {
	return NewValidator().ValidateAndSetDefaults(cfg)
}
