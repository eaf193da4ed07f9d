package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/standardbeagle/unitsync/internal/collect"
	"github.com/standardbeagle/unitsync/internal/debug"
	"github.com/standardbeagle/unitsync/internal/frontend"
	"github.com/standardbeagle/unitsync/internal/mcp"
	"github.com/standardbeagle/unitsync/internal/quality"
	"github.com/standardbeagle/unitsync/internal/resolver"
	"github.com/standardbeagle/unitsync/internal/types"
)

func signalContext(c *cli.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
}

func collectOptions(c *cli.Context, lang types.Language) collect.Options {
	return collect.Options{
		Language:    lang,
		RepoRoot:    cfg.Abs(cfg.Paths.RepoRoot),
		FocalRoot:   cfg.Abs(cfg.Paths.FocalRoot),
		Workers:     cfg.Collect.Workers,
		RepoTimeout: cfg.Collect.RepoTimeout,
		Force:       c.Bool("force"),
		Include:     cfg.Collect.Include,
		Exclude:     cfg.Collect.Exclude,
		Metrics:     recorder,
	}
}

func focalCommand(c *cli.Context) error {
	lang, err := languageOf(c)
	if err != nil {
		return err
	}
	ids, err := repoIDs(c)
	if err != nil {
		return err
	}
	if err := applyOverrides(c); err != nil {
		return err
	}

	ctx, cancel := signalContext(c)
	defer cancel()

	results, err := collect.CollectFocal(ctx, ids, collectOptions(c, lang))
	if c.Bool("table") {
		collect.RenderResults(c.App.Writer, results)
	}
	printLines(c.App.Writer, collect.Summarize(results).Lines())
	return err
}

func syncCommand(c *cli.Context) error {
	lang, err := languageOf(c)
	if err != nil {
		return err
	}
	ids, err := repoIDs(c)
	if err != nil {
		return err
	}
	if err := applyOverrides(c); err != nil {
		return err
	}

	output := cfg.Paths.SourcePath
	if o := c.String("output"); o != "" {
		output = o
	}

	ctx, cancel := signalContext(c)
	defer cancel()

	summary, err := collect.SyncRepos(ctx, ids, collect.SyncOptions{
		Language:    lang,
		RepoRoot:    cfg.Abs(cfg.Paths.RepoRoot),
		FocalRoot:   cfg.Abs(cfg.Paths.FocalRoot),
		OutputPath:  cfg.Abs(output),
		Append:      c.Bool("append"),
		Workers:     cfg.Collect.Workers,
		RepoTimeout: cfg.Collect.RepoTimeout,
		Resolver: resolver.Options{
			Command:   cfg.Command(lang),
			Timeout:   cfg.Collect.LSPTimeout,
			RustIndex: cfg.RustIndex(),
		},
		Metrics: recorder,
	})
	if c.Bool("failures") {
		summary.RenderFailures(c.App.Writer)
	}
	printLines(c.App.Writer, summary.Lines())
	return err
}

func locateCommand(c *cli.Context) error {
	lang, err := languageOf(c)
	if err != nil {
		return err
	}
	if c.NArg() == 0 {
		return fmt.Errorf("no test files given")
	}

	enc := json.NewEncoder(c.App.Writer)
	enc.SetEscapeHTML(false)
	idRoot := cfg.Abs(cfg.Paths.RepoRoot)
	for _, arg := range c.Args().Slice() {
		path, err := filepath.Abs(arg)
		if err != nil {
			return err
		}
		file, err := collect.CollectFile(c.Context, lang, idRoot, path, recorder)
		if err != nil {
			return err
		}
		for _, rec := range file.Records {
			if err := enc.Encode(rec); err != nil {
				return err
			}
		}
	}
	return nil
}

func headerCommand(c *cli.Context) error {
	lang, err := languageOf(c)
	if err != nil {
		return err
	}
	fe, err := frontend.For(lang)
	if err != nil {
		return err
	}

	var code []byte
	if c.NArg() > 0 {
		code, err = os.ReadFile(c.Args().First())
	} else {
		code, err = io.ReadAll(c.App.Reader)
	}
	if err != nil {
		return err
	}

	header, ok := fe.DefHeader(string(code)).Get()
	if !ok {
		return fmt.Errorf("no test definition found")
	}
	fmt.Fprint(c.App.Writer, header)
	return nil
}

func useDeclsCommand(c *cli.Context) error {
	if code := c.String("code"); code != "" {
		printLines(c.App.Writer, frontend.FlattenUseDecl(code))
		return nil
	}
	if c.NArg() == 0 {
		return fmt.Errorf("no workspace given")
	}
	decls, err := frontend.ConstructUseDecls(c.Args().Get(0), c.Args().Get(1))
	if err != nil {
		return err
	}
	printLines(c.App.Writer, decls)
	return nil
}

func statsCommand(c *cli.Context) error {
	lang, err := languageOf(c)
	if err != nil {
		return err
	}
	path := cfg.Paths.SourcePath
	if d := c.String("dataset"); d != "" {
		path = d
	}
	records, err := quality.LoadDataset(cfg.Abs(path))
	if err != nil {
		return err
	}
	quality.Analyze(lang, records).Render(c.App.Writer)
	return nil
}

func watchCommand(c *cli.Context) error {
	lang, err := languageOf(c)
	if err != nil {
		return err
	}
	ids, err := repoIDs(c)
	if err != nil {
		return err
	}
	if err := applyOverrides(c); err != nil {
		return err
	}

	w, err := collect.NewWatcher(ids, collectOptions(c, lang), cfg.Collect.WatchDebounce, func(r collect.RepoResult) {
		fmt.Fprintf(c.App.Writer, "%s: %s, %d focal functions for %d tests\n", r.RepoID, r.Status, r.Focals, r.Tests)
	})
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(c)
	defer cancel()
	if err := w.Start(ctx); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "Watching %d repositories, press Ctrl+C to stop\n", len(ids))
	<-ctx.Done()
	return w.Stop()
}

func mcpCommand(c *cli.Context) error {
	// stdio carries the protocol
	debug.SetMCPMode(true)

	server, err := mcp.NewServer(cfg, recorder)
	if err != nil {
		return err
	}
	ctx, cancel := signalContext(c)
	defer cancel()

	if err := server.Start(ctx); err != nil && ctx.Err() == nil {
		return fmt.Errorf("MCP server error: %w", err)
	}
	return nil
}
