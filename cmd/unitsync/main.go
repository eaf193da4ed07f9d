package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/standardbeagle/unitsync/internal/collect"
	"github.com/standardbeagle/unitsync/internal/config"
	"github.com/standardbeagle/unitsync/internal/debug"
	"github.com/standardbeagle/unitsync/internal/metrics"
	"github.com/standardbeagle/unitsync/internal/types"
	"github.com/standardbeagle/unitsync/internal/version"
)

var (
	cfg          *config.Config
	recorder     *metrics.Recorder
	cleanupFuncs []func()
)

var languageFlag = &cli.StringFlag{
	Name:     "language",
	Aliases:  []string{"l"},
	Usage:    "Source language: python, java, js, go, rust or cpp",
	Required: true,
}

var repoFlags = []cli.Flag{
	&cli.StringSliceFlag{
		Name:  "repo-id",
		Usage: "Repository id as user/repo (repeatable)",
	},
	&cli.StringFlag{
		Name:  "repo-list",
		Usage: "File with one repository id per line",
	},
}

var collectFlags = []cli.Flag{
	&cli.IntFlag{
		Name:    "workers",
		Aliases: []string{"j"},
		Usage:   "Repositories processed concurrently (overrides config)",
	},
	&cli.DurationFlag{
		Name:  "repo-timeout",
		Usage: "Per-repository deadline, 0 disables (overrides config)",
	},
	&cli.StringSliceFlag{
		Name:  "include",
		Usage: "Only visit test files matching glob patterns (e.g., --include '**/tests/**')",
	},
	&cli.StringSliceFlag{
		Name:  "exclude",
		Usage: "Skip files matching glob patterns (e.g., --exclude '**/fixtures/**')",
	},
}

func newApp() *cli.App {
	return &cli.App{
		Name:                   "unitsync",
		Usage:                  "Pair unit tests with the production functions they exercise",
		Version:                version.Version,
		UseShortOptionHandling: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Directory holding " + config.FileName,
				Value:   ".",
			},
			// -v stays with the built-in --version flag
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Debug-level run log, including the per-stage trace",
			},
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "Run log file (overrides config)",
			},
			&cli.StringFlag{
				Name:  "metrics-textfile",
				Usage: "Write Prometheus metrics to this file on exit (overrides config)",
			},
		},
		Before: setup,
		After:  teardown,
		Commands: []*cli.Command{
			{
				Name:   "focal",
				Usage:  "Locate the focal call of every unit test in each repository",
				Flags:  append(append([]cli.Flag{languageFlag, &cli.BoolFlag{Name: "force", Aliases: []string{"f"}, Usage: "Re-collect repositories whose output exists"}, &cli.BoolFlag{Name: "table", Usage: "Print a per-repository table"}}, repoFlags...), collectFlags...),
				Action: focalCommand,
			},
			{
				Name:  "sync",
				Usage: "Resolve focal calls to definitions and write the code-test dataset",
				Flags: append(append([]cli.Flag{
					languageFlag,
					&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Dataset JSONL path (overrides config)"},
					&cli.BoolFlag{Name: "append", Usage: "Append to an existing dataset, skipping pairs already present"},
					&cli.DurationFlag{Name: "lsp-timeout", Usage: "Per-request language server timeout (overrides config)"},
					&cli.BoolFlag{Name: "rust-lsp", Usage: "Resolve Rust calls with rust-analyzer instead of the function index"},
					&cli.BoolFlag{Name: "failures", Usage: "Print failure counts per kind"},
				}, repoFlags...), collectFlags...),
				Action: syncCommand,
			},
			{
				Name:      "locate",
				Usage:     "Print the focal records of test files as JSONL",
				ArgsUsage: "<test-file>...",
				Flags:     []cli.Flag{languageFlag},
				Action:    locateCommand,
			},
			{
				Name:      "header",
				Usage:     "Print the signature line of the first test definition",
				ArgsUsage: "[file]",
				Flags:     []cli.Flag{languageFlag},
				Action:    headerCommand,
			},
			{
				Name:      "use-decls",
				Usage:     "Print the flattened Rust use declarations of a workspace directory",
				ArgsUsage: "<workspace> [subdir]",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "code", Usage: "Flatten this use declaration instead of scanning a workspace"},
				},
				Action: useDeclsCommand,
			},
			{
				Name:  "stats",
				Usage: "Report per-project data quality of a dataset",
				Flags: []cli.Flag{
					languageFlag,
					&cli.StringFlag{Name: "dataset", Aliases: []string{"d"}, Usage: "Dataset JSONL path (overrides config)"},
				},
				Action: statsCommand,
			},
			{
				Name:  "watch",
				Usage: "Re-collect focal records when test files change",
				Flags: append(append([]cli.Flag{
					languageFlag,
					&cli.DurationFlag{Name: "debounce", Usage: "Quiet period before re-collecting (overrides config)"},
				}, repoFlags...), collectFlags...),
				Action: watchCommand,
			},
			{
				Name:   "mcp",
				Usage:  "Serve focal collection tools over MCP stdio",
				Action: mcpCommand,
			},
			{
				Name:  "version",
				Usage: "Print build information",
				Action: func(c *cli.Context) error {
					fmt.Fprintln(c.App.Writer, version.FullInfo())
					return nil
				},
			},
		},
	}
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "unitsync:", err)
		os.Exit(1)
	}
}

// setup loads configuration and installs the run log
func setup(c *cli.Context) error {
	loaded, err := config.Load(c.String("config"))
	if err != nil {
		return fmt.Errorf("failed to load config from %s: %w", c.String("config"), err)
	}
	cfg = loaded
	if f := c.String("log-file"); f != "" {
		cfg.Log.File = f
	}
	if f := c.String("metrics-textfile"); f != "" {
		cfg.Metrics.Textfile = f
	}

	closer := debug.ConfigureLogger(debug.LogOptions{
		Filename:   cfg.Abs(cfg.Log.File),
		Level:      cfg.Log.Level,
		MaxSize:    cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAgeDays,
		Compress:   cfg.Log.Compress,
		Verbose:    c.Bool("verbose"),
		Fallback:   os.Stderr,
	})
	cleanupFuncs = append(cleanupFuncs, func() { _ = closer.Close() })

	recorder = metrics.NewRecorder()
	return nil
}

// teardown exports metrics and releases the run log
func teardown(c *cli.Context) error {
	var err error
	if cfg != nil && recorder != nil && cfg.Metrics.Textfile != "" {
		if werr := recorder.WriteTextfile(cfg.Abs(cfg.Metrics.Textfile)); werr != nil {
			slog.Warn("failed to write metrics textfile", "path", cfg.Metrics.Textfile, "error", werr)
			err = werr
		}
	}
	for i := len(cleanupFuncs) - 1; i >= 0; i-- {
		cleanupFuncs[i]()
	}
	cleanupFuncs = nil
	return err
}

// applyOverrides lays command flags over the loaded config and validates it
func applyOverrides(c *cli.Context) error {
	if c.IsSet("workers") {
		cfg.Collect.Workers = c.Int("workers")
	}
	if c.IsSet("repo-timeout") {
		cfg.Collect.RepoTimeout = c.Duration("repo-timeout")
	}
	if c.IsSet("lsp-timeout") {
		cfg.Collect.LSPTimeout = c.Duration("lsp-timeout")
	}
	if c.IsSet("debounce") {
		cfg.Collect.WatchDebounce = c.Duration("debounce")
	}
	if include := c.StringSlice("include"); len(include) > 0 {
		cfg.Collect.Include = include
	}
	if exclude := c.StringSlice("exclude"); len(exclude) > 0 {
		cfg.Collect.Exclude = config.DeduplicatePatterns(append(cfg.Collect.Exclude, exclude...))
	}
	if c.Bool("rust-lsp") {
		cfg.Resolver.Rust = config.RustResolverLSP
	}
	return config.ValidateConfig(cfg)
}

func languageOf(c *cli.Context) (types.Language, error) {
	return types.ParseLanguage(c.String("language"))
}

// repoIDs gathers ids from --repo-id and --repo-list, in that order
func repoIDs(c *cli.Context) ([]string, error) {
	ids := append([]string(nil), c.StringSlice("repo-id")...)
	if list := c.String("repo-list"); list != "" {
		fromFile, err := collect.LoadRepoIDs(list)
		if err != nil {
			return nil, fmt.Errorf("failed to read repo list: %w", err)
		}
		ids = append(ids, fromFile...)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("no repositories given; use --repo-id or --repo-list")
	}
	return ids, nil
}

func printLines(w io.Writer, lines []string) {
	for _, line := range lines {
		fmt.Fprintln(w, line)
	}
}
