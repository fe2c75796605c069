package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-logr/logr"
	"github.com/urfave/cli/v2"

	"github.com/standardbeagle/csac/internal/calltip"
	"github.com/standardbeagle/csac/internal/catalog"
	"github.com/standardbeagle/csac/internal/config"
	"github.com/standardbeagle/csac/internal/debug"
	"github.com/standardbeagle/csac/internal/library"
	"github.com/standardbeagle/csac/internal/session"
	"github.com/standardbeagle/csac/internal/theme"
	"github.com/standardbeagle/csac/internal/version"
	"github.com/standardbeagle/csac/pkg/logger"
)

const envKey = "csac.env"

// environment is what every command works from: the merged configuration
// and the library stack built from it
type environment struct {
	cfg    *config.Config
	log    *logr.Logger
	loader *library.Loader
	shared *catalog.Catalog
	styles *calltip.Styles
}

// sessionOptions maps the configuration onto session options
func (e *environment) sessionOptions() []session.Option {
	r := e.cfg.Reanalysis
	return []session.Option{
		session.WithLoader(e.loader),
		session.WithInterval(r.Interval()),
		session.WithPostpone(r.Postpone()),
		session.WithDisposeTimeout(r.DisposeTimeout()),
		session.WithReturnTypes(e.cfg.CallTip.ReturnTypes),
		session.WithMatchAnywhere(e.cfg.CallTip.MatchAnywhere),
		session.WithStyles(e.styles),
		session.WithLogger(e.log),
	}
}

// loadConfigWithOverrides loads configuration and applies CLI flag overrides
func loadConfigWithOverrides(c *cli.Context) (*config.Config, error) {
	configPath := ""
	if c.IsSet("config") {
		configPath = c.String("config")
	}
	root := c.String("root")
	if root != "" {
		abs, err := filepath.Abs(root)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve root path %q: %w", root, err)
		}
		root = abs
	}

	cfg, err := config.LoadWithRoot(configPath, root)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if root != "" {
		cfg.Project.Root = root
	}
	for _, p := range c.StringSlice("library-path") {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve library path %q: %w", p, err)
		}
		cfg.Libraries.SearchPaths = append(cfg.Libraries.SearchPaths, abs)
	}
	if c.Bool("verbose") {
		cfg.Logging.Level = "debug"
	}
	if err := config.ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newEnvironment(cfg *config.Config, log *logr.Logger) *environment {
	resolver := library.NewResolver(cfg.Libraries.SearchPaths, cfg.Libraries.Recursive, cfg.Libraries.Exclude)
	harvester := library.NewHarvester(
		library.WithWorkers(cfg.Performance.ParallelWorkers),
		library.WithCache(library.NewCache()),
	)
	env := &environment{
		cfg:    cfg,
		log:    log,
		loader: library.NewLoader(resolver, harvester),
		shared: catalog.NewShared(),
		styles: calltip.NewStyles(),
	}

	th := theme.Default()
	if cfg.Theme != "" {
		custom, err := theme.Load(cfg.Theme)
		if err != nil {
			log.Info("theme not loaded, using the default", "theme", cfg.Theme, "error", err.Error())
		} else {
			th = th.Merge(custom)
		}
	}
	if err := th.Apply(env.styles); err != nil {
		log.Info("theme has unknown entries", "error", err.Error())
	}
	return env
}

func getEnv(c *cli.Context) (*environment, error) {
	env, ok := c.App.Metadata[envKey].(*environment)
	if !ok || env == nil {
		return nil, errors.New("configuration not loaded")
	}
	return env, nil
}

func newApp() *cli.App {
	return &cli.App{
		Name:                   "csac",
		Usage:                  "C# autocompletion and call tips from library sources",
		Version:                version.Info(),
		UseShortOptionHandling: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Config file path",
				Value:   config.FileName,
			},
			&cli.StringFlag{
				Name:    "root",
				Aliases: []string{"r"},
				Usage:   "Project root directory (overrides config)",
			},
			&cli.StringSliceFlag{
				Name:  "library-path",
				Usage: "Additional library search path, may be repeated",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Log debug output to stderr",
			},
		},
		Commands: []*cli.Command{
			catalogCommand(),
			suggestCommand(),
			callTipCommand(),
			typeNameCommand(),
			watchCommand(),
			mcpCommand(),
			configCommand(),
		},
		Before: func(c *cli.Context) error {
			if c.NArg() == 0 || c.Args().Get(0) == "help" || c.Bool("help") {
				return nil
			}
			cfg, err := loadConfigWithOverrides(c)
			if err != nil {
				return err
			}
			if c.Args().Get(0) == "mcp" {
				debug.SetMCPMode(true)
			}
			log := logger.Get(logger.ParseLevel(cfg.Logging.Level))
			if c.Bool("verbose") {
				debug.EnableDebug = "true"
			}
			debug.SetLogger(log)

			if c.App.Metadata == nil {
				c.App.Metadata = map[string]any{}
			}
			c.App.Metadata[envKey] = newEnvironment(cfg, log)
			return nil
		},
		After: func(c *cli.Context) error {
			logger.Sync()
			return nil
		},
	}
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}
