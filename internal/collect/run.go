package collect

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/standardbeagle/unitsync/internal/debug"
	"github.com/standardbeagle/unitsync/internal/metrics"
	"github.com/standardbeagle/unitsync/internal/types"
)

// Options configures a focal collection run
type Options struct {
	Language types.Language
	// RepoRoot holds one directory per repository, named by WrapRepo
	RepoRoot string
	// FocalRoot receives one JSONL file per repository
	FocalRoot string
	// Workers bounds concurrently processed repositories; 0 means GOMAXPROCS
	Workers int
	// RepoTimeout abandons a repository after this long; 0 disables the deadline
	RepoTimeout time.Duration
	// Force re-collects repositories whose output already exists
	Force   bool
	Include []string
	Exclude []string
	Metrics *metrics.Recorder
}

func (o Options) workers() int {
	if o.Workers > 0 {
		return o.Workers
	}
	return runtime.GOMAXPROCS(0)
}

// CollectFocal processes every repository and returns one result per id, in
// input order. Per-repository failures are reported in the results; the error
// is non-nil only when ctx is cancelled.
func CollectFocal(ctx context.Context, repoIDs []string, opts Options) ([]RepoResult, error) {
	results := make([]RepoResult, len(repoIDs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.workers())
	for i, id := range repoIDs {
		g.Go(func() error {
			results[i] = CollectRepo(gctx, id, opts)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, ctx.Err()
}

// CollectRepo writes the focal records of one repository
func CollectRepo(ctx context.Context, repoID string, opts Options) RepoResult {
	log := debug.ForRepo(debug.Collect, repoID, opts.Language.String())
	start := time.Now()
	result := collectRepo(ctx, repoID, opts, log)
	result.Duration = time.Since(start)

	opts.Metrics.ObserveRepo("focal", result.Status.String(), result.Duration.Seconds())
	opts.Metrics.ObserveRecords("focal", result.Focals)
	log.Info("collected repository",
		"status", result.Status.String(),
		"tests", result.Tests,
		"focals", result.Focals,
		"duration", result.Duration,
		"error", result.Err)
	return result
}

func collectRepo(ctx context.Context, repoID string, opts Options, log *slog.Logger) RepoResult {
	result := RepoResult{RepoID: repoID}

	repoDir := filepath.Join(opts.RepoRoot, WrapRepo(repoID))
	if info, err := os.Stat(repoDir); err != nil || !info.IsDir() {
		result.Status = StatusRepoNotFound
		return result
	}
	outPath := FocalPath(opts.FocalRoot, repoID)
	if !opts.Force {
		if _, err := os.Stat(outPath); err == nil {
			result.Status = StatusSkipped
			return result
		}
	}

	if opts.RepoTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.RepoTimeout)
		defer cancel()
	}

	if err := ctx.Err(); err != nil {
		result.Status, result.Err = contextStatus(err), err
		return result
	}
	files, err := TestFiles(repoDir, opts.Language, RepoFilter(repoDir, opts.Include, opts.Exclude))
	if err != nil {
		result.Status, result.Err = StatusFailed, err
		return result
	}
	result.Files = len(files)
	if len(files) == 0 {
		result.Status = StatusNoFocal
		return result
	}

	out, err := createJSONL(outPath, false)
	if err != nil {
		result.Status, result.Err = StatusFailed, err
		return result
	}

	for _, path := range files {
		if err := ctx.Err(); err != nil {
			result.Status, result.Err = contextStatus(err), err
			break
		}
		ff, err := CollectFile(ctx, opts.Language, opts.RepoRoot, path, opts.Metrics)
		ctxErr := ctx.Err()
		if err != nil && ctxErr == nil {
			// a file that fails to parse is skipped
			debug.Trace(log, "collect %s: %v", path, err)
			continue
		}
		result.Tests += len(ff.Records)
		for _, rec := range ff.Records {
			if rec.FocalLoc == nil {
				continue
			}
			if err := out.Write(rec); err != nil {
				result.Status, result.Err = StatusFailed, err
				break
			}
			result.Focals++
		}
		if result.Err != nil {
			break
		}
		if ctxErr != nil {
			// records located before the deadline are kept
			result.Status, result.Err = contextStatus(ctxErr), ctxErr
			break
		}
	}

	if err := out.Close(); err != nil && result.Err == nil {
		result.Status, result.Err = StatusFailed, err
	}
	if result.Focals == 0 {
		// an empty output would make later runs skip the repository
		_ = os.Remove(outPath)
		if result.Err == nil {
			result.Status = StatusNoFocal
		}
		return result
	}
	if result.Err != nil {
		return result
	}
	result.Status = StatusSuccess
	return result
}

func contextStatus(err error) Status {
	if stderrors.Is(err, context.DeadlineExceeded) {
		return StatusTimeout
	}
	return StatusFailed
}

// ErrNoRepos is returned when a run is given no repository ids
var ErrNoRepos = fmt.Errorf("no repositories to process")
