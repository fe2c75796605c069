package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/standardbeagle/csac/internal/catalog"
	"github.com/standardbeagle/csac/internal/config"
	"github.com/standardbeagle/csac/internal/editor"
	"github.com/standardbeagle/csac/internal/mcp"
	"github.com/standardbeagle/csac/internal/session"
	"github.com/standardbeagle/csac/internal/typename"
	"github.com/standardbeagle/csac/internal/types"
	"github.com/standardbeagle/csac/internal/watch"
	"github.com/standardbeagle/csac/internal/wordlist"
)

// openFile reads path into a headless buffer with the caret at offset and
// starts a session on it. A negative offset puts the caret at the end.
func openFile(env *environment, path string, offset int) (*session.Session, *editor.Buffer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	text := string(data)
	if offset < 0 {
		offset = len(strings.TrimRight(text, " \t\r\n"))
	}
	if offset > len(text) {
		return nil, nil, fmt.Errorf("offset %d is past the end of %s (%d bytes)", offset, path, len(text))
	}
	ed := editor.New(text)
	ed.SetCaret(offset)
	return session.New(ed, nil, env.shared, env.sessionOptions()...), ed, nil
}

func fileArg(c *cli.Context) (string, error) {
	if c.NArg() != 1 {
		return "", fmt.Errorf("%s takes exactly one source file", c.Command.Name)
	}
	return c.Args().First(), nil
}

func catalogCommand() *cli.Command {
	return &cli.Command{
		Name:      "catalog",
		Usage:     "Catalog the libraries a source file imports and print the entries",
		ArgsUsage: "<file.cs>",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:    "kind",
				Aliases: []string{"k"},
				Usage:   "Only print entries of these construct kinds",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Print JSON instead of YAML",
			},
		},
		Action: func(c *cli.Context) error {
			env, err := getEnv(c)
			if err != nil {
				return err
			}
			path, err := fileArg(c)
			if err != nil {
				return err
			}
			var kinds []types.ConstructKind
			for _, k := range c.StringSlice("kind") {
				kind, err := types.ParseConstructKind(k)
				if err != nil {
					return err
				}
				kinds = append(kinds, kind)
			}

			sess, _, err := openFile(env, path, -1)
			if err != nil {
				return err
			}
			defer sess.Close()
			report, err := sess.CacheLibraries(c.Context, true)
			if err != nil {
				return err
			}
			for _, f := range report.Failed {
				env.log.Info("library not loaded", "error", f.Error())
			}

			root := env.cfg.Project.Root
			if c.Bool("json") {
				return env.shared.WriteJSON(c.App.Writer, root, kinds...)
			}
			return env.shared.WriteYAML(c.App.Writer, root, kinds...)
		},
	}
}

func suggestCommand() *cli.Command {
	return &cli.Command{
		Name:      "suggest",
		Usage:     "Print the autocomplete list at an offset of a source file",
		ArgsUsage: "<file.cs>",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "offset",
				Aliases: []string{"o"},
				Usage:   "Byte offset of the caret (default: end of file)",
				Value:   -1,
			},
			&cli.StringFlag{
				Name:  "filter",
				Usage: "Prefix to filter by (default: the word before the caret)",
			},
		},
		Action: func(c *cli.Context) error {
			env, err := getEnv(c)
			if err != nil {
				return err
			}
			path, err := fileArg(c)
			if err != nil {
				return err
			}
			sess, ed, err := openFile(env, path, c.Int("offset"))
			if err != nil {
				return err
			}
			defer sess.Close()
			if _, err := sess.CacheLibraries(c.Context, true); err != nil {
				return err
			}

			n, words := sess.Complete()
			prefix := c.String("filter")
			if prefix == "" {
				caret := ed.CaretPosition()
				prefix = ed.Text()[caret-n : caret]
			}
			matched := wordlist.New()
			for _, w := range words.Words() {
				if strings.HasPrefix(strings.ToLower(w.Name), strings.ToLower(prefix)) {
					matched.Add(w.Name, w.Kind)
				}
			}
			fmt.Fprintf(c.App.Writer, "%d %s\n", n, matched.String())
			return nil
		},
	}
}

func callTipCommand() *cli.Command {
	return &cli.Command{
		Name:      "calltip",
		Usage:     "Print the call tip for the dot just before an offset",
		ArgsUsage: "<file.cs>",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "offset",
				Aliases: []string{"o"},
				Usage:   "Byte offset just after the dot (default: end of file)",
				Value:   -1,
			},
			&cli.BoolFlag{
				Name:  "anywhere",
				Usage: "Match the filter anywhere in member names",
			},
			&cli.StringFlag{
				Name:  "filter",
				Usage: "Characters typed after the dot",
			},
		},
		Action: func(c *cli.Context) error {
			env, err := getEnv(c)
			if err != nil {
				return err
			}
			path, err := fileArg(c)
			if err != nil {
				return err
			}
			sess, ed, err := openFile(env, path, c.Int("offset"))
			if err != nil {
				return err
			}
			defer sess.Close()
			caret := ed.CaretPosition()
			if caret == 0 || ed.Text()[caret-1] != '.' {
				return fmt.Errorf("offset %d does not follow a '.'", caret)
			}
			if _, err := sess.CacheLibraries(c.Context, true); err != nil {
				return err
			}
			if c.IsSet("anywhere") {
				sess.SetFilterAnywhere(c.Bool("anywhere"))
			}
			sess.HandleCharAdded('.')

			nav := ed.CallTip()
			if nav == nil {
				return fmt.Errorf("no members found before offset %d", caret)
			}
			for _, r := range c.String("filter") {
				nav.TypeChar(r)
			}
			if !nav.Visible() {
				return fmt.Errorf("no member matches %q", c.String("filter"))
			}
			fmt.Fprintln(c.App.Writer, nav.Position())
			for _, e := range nav.Filtered() {
				fmt.Fprintf(c.App.Writer, "%-14s %s\n", e.Kind, e.BodyText)
			}
			return nil
		},
	}
}

func typeNameCommand() *cli.Command {
	return &cli.Command{
		Name:      "typename",
		Usage:     "Print the C# short names of type expressions",
		ArgsUsage: "<type>...",
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return fmt.Errorf("typename needs at least one type")
			}
			mapper := typename.Default()
			for _, arg := range c.Args().Slice() {
				d, err := mapper.Parse(arg)
				if err != nil {
					return fmt.Errorf("failed to parse %q: %w", arg, err)
				}
				fmt.Fprintf(c.App.Writer, "%s\t%s\n", d.String(), mapper.ShortName(d))
			}
			return nil
		},
	}
}

func watchCommand() *cli.Command {
	return &cli.Command{
		Name:      "watch",
		Usage:     "Catalog libraries and refresh them as their sources change",
		ArgsUsage: "[file.cs...]",
		Action: func(c *cli.Context) error {
			env, err := getEnv(c)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			for _, path := range c.Args().Slice() {
				sess, _, err := openFile(env, path, -1)
				if err != nil {
					return err
				}
				report, err := sess.CacheLibraries(ctx, true)
				sess.Close()
				if err != nil {
					return err
				}
				fmt.Fprintf(c.App.Writer, "%s: %s\n", path, report)
			}

			w, err := watch.New(env.loader, env.shared,
				watch.WithDebounce(time.Duration(env.cfg.Libraries.WatchDebounceMs)*time.Millisecond),
				watch.WithLogger(env.log),
				watch.WithOnReload(func(name string, report catalog.Report, err error) {
					if err != nil {
						fmt.Fprintf(c.App.Writer, "%s: %v\n", name, err)
						return
					}
					fmt.Fprintf(c.App.Writer, "%s: %s\n", name, report)
				}),
			)
			if err != nil {
				return err
			}
			if err := w.Start(); err != nil {
				return err
			}
			defer w.Stop()

			env.log.Info("watching library sources", "paths", w.WatchList())
			<-ctx.Done()
			stats := w.Stats()
			env.log.Info("watch stopped", "events", stats.EventsProcessed, "reloads", stats.Reloads, "errors", stats.ErrorCount)
			return nil
		},
	}
}

func mcpCommand() *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Serve completion tools over the Model Context Protocol on stdio",
		Action: func(c *cli.Context) error {
			env, err := getEnv(c)
			if err != nil {
				return err
			}
			server, err := mcp.NewServer(env.cfg, env.loader, env.shared,
				mcp.WithLogger(env.log),
				mcp.WithStyles(env.styles),
			)
			if err != nil {
				return fmt.Errorf("failed to create MCP server: %w", err)
			}

			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			errChan := make(chan error, 1)
			go func() {
				errChan <- server.Start(ctx)
			}()

			select {
			case err := <-errChan:
				if err != nil && ctx.Err() == nil {
					return fmt.Errorf("MCP server error: %w", err)
				}
				return nil
			case <-ctx.Done():
				env.log.Info("shutting down MCP server")
				<-errChan
				return nil
			}
		},
	}
}

func configCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Inspect the effective configuration",
		Subcommands: []*cli.Command{
			{
				Name:  "show",
				Usage: "Print the merged configuration",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "format",
						Usage: "Output format: yaml, json or toml",
						Value: "yaml",
					},
				},
				Action: func(c *cli.Context) error {
					env, err := getEnv(c)
					if err != nil {
						return err
					}
					return writeConfig(c, env.cfg, c.String("format"))
				},
			},
			{
				Name:  "validate",
				Usage: "Check the configuration and report problems",
				Action: func(c *cli.Context) error {
					env, err := getEnv(c)
					if err != nil {
						return err
					}
					if err := config.ValidateConfig(env.cfg); err != nil {
						return err
					}
					for _, p := range env.cfg.Libraries.SearchPaths {
						if _, err := os.Stat(p); err != nil {
							fmt.Fprintf(c.App.Writer, "warning: search path %s: %v\n", p, err)
						}
					}
					fmt.Fprintln(c.App.Writer, "configuration is valid")
					return nil
				},
			},
		},
	}
}

func writeConfig(c *cli.Context, cfg *config.Config, format string) error {
	w := c.App.Writer
	switch strings.ToLower(format) {
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(cfg); err != nil {
			return err
		}
		return enc.Close()
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(cfg)
	case "toml":
		return toml.NewEncoder(w).Encode(cfg)
	}
	return fmt.Errorf("unknown format %q (want yaml, json or toml)", format)
}
