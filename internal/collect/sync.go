package collect

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/sync/errgroup"

	"github.com/standardbeagle/unitsync/internal/debug"
	"github.com/standardbeagle/unitsync/internal/errors"
	"github.com/standardbeagle/unitsync/internal/extract"
	"github.com/standardbeagle/unitsync/internal/metrics"
	"github.com/standardbeagle/unitsync/internal/resolver"
	"github.com/standardbeagle/unitsync/internal/types"
)

// SyncOptions configures a dataset sync run
type SyncOptions struct {
	Language  types.Language
	RepoRoot  string
	FocalRoot string
	// OutputPath is the dataset JSONL file shared by every repository
	OutputPath string
	// Append keeps an existing dataset and skips pairs already in it
	Append      bool
	Workers     int
	RepoTimeout time.Duration
	Resolver    resolver.Options
	Metrics     *metrics.Recorder
	// NewResolver overrides strategy selection for a repository directory
	NewResolver func(repoDir string) resolver.Resolver
}

func (o SyncOptions) resolverFor(repoDir string) resolver.Resolver {
	if o.NewResolver != nil {
		return o.NewResolver(repoDir)
	}
	return resolver.New(repoDir, o.Language, o.Resolver)
}

// DatasetWriter appends dataset records, dropping repeated (test_id, code_id)
// pairs. It is safe for concurrent use.
type DatasetWriter struct {
	mu   sync.Mutex
	out  *jsonlWriter
	seen map[uint64]struct{}
}

func pairKey(testID, codeID string) uint64 {
	d := xxhash.New()
	_, _ = d.WriteString(testID)
	_, _ = d.Write([]byte{0})
	_, _ = d.WriteString(codeID)
	return d.Sum64()
}

// NewDatasetWriter opens path. In append mode the pairs already present are
// loaded so reruns do not duplicate them.
func NewDatasetWriter(path string, appendMode bool) (*DatasetWriter, error) {
	seen := make(map[uint64]struct{})
	if appendMode {
		existing, err := types.ReadJSONL[types.DatasetRecord](path)
		if err != nil && !os.IsNotExist(err) {
			return nil, errors.NewFileError("read", path, err)
		}
		for _, r := range existing {
			seen[pairKey(r.TestID, r.CodeID)] = struct{}{}
		}
	}
	out, err := createJSONL(path, appendMode)
	if err != nil {
		return nil, errors.NewFileError("create", path, err)
	}
	return &DatasetWriter{out: out, seen: seen}, nil
}

// Write appends rec unless its pair was written before. It reports whether the
// record was written.
func (d *DatasetWriter) Write(rec types.DatasetRecord) (bool, error) {
	key := pairKey(rec.TestID, rec.CodeID)
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, dup := d.seen[key]; dup {
		return false, nil
	}
	if err := d.out.Write(rec); err != nil {
		return false, err
	}
	d.seen[key] = struct{}{}
	return true, nil
}

// Close flushes and closes the file
func (d *DatasetWriter) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.out.Close()
}

// SyncRepos resolves the focal calls of every repository and writes the dataset
func SyncRepos(ctx context.Context, repoIDs []string, opts SyncOptions) (SyncSummary, error) {
	summary := newSyncSummary()
	w, err := NewDatasetWriter(opts.OutputPath, opts.Append)
	if err != nil {
		return summary, err
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(Options{Workers: opts.Workers}.workers())
	for _, id := range repoIDs {
		g.Go(func() error {
			s := SyncRepo(gctx, id, opts, w)
			mu.Lock()
			summary.add(s)
			mu.Unlock()
			return nil
		})
	}
	waitErr := g.Wait()
	if err := w.Close(); err != nil && waitErr == nil {
		waitErr = err
	}
	if waitErr != nil {
		return summary, waitErr
	}
	return summary, ctx.Err()
}

// SyncRepo resolves the focal records of one repository into w
func SyncRepo(ctx context.Context, repoID string, opts SyncOptions, w *DatasetWriter) SyncSummary {
	log := debug.ForRepo(debug.Sync, repoID, opts.Language.String())
	start := time.Now()
	s := newSyncSummary()
	s.Repos = 1

	records, err := types.ReadJSONL[types.FocalRecord](FocalPath(opts.FocalRoot, repoID))
	if err != nil {
		debug.Trace(log, "no focal records: %v", err)
		s.ReposMissing = 1
		opts.Metrics.ObserveRepo("sync", StatusRepoNotFound.String(), time.Since(start).Seconds())
		return s
	}
	s.Total = len(records)

	if opts.RepoTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.RepoTimeout)
		defer cancel()
	}

	repoDir := filepath.Join(opts.RepoRoot, WrapRepo(repoID))
	lang := opts.Language
	status := StatusSuccess
	runErr := resolver.Run(ctx, opts.resolverFor(repoDir), func(r resolver.Resolver) error {
		syncer := resolver.NewSynchronizer(r, extract.New(opts.RepoRoot), lang)
		for _, rec := range records {
			if err := ctx.Err(); err != nil {
				return err
			}
			if rec.FocalID == nil || rec.FocalLoc == nil {
				continue
			}
			testPath, _, _ := strings.Cut(rec.TestID, "::")
			res := syncer.SourceOfCall(ctx, resolver.Query{
				Language: lang,
				File:     filepath.Join(opts.RepoRoot, filepath.FromSlash(testPath)),
				Call:     types.CallCandidate{Name: *rec.FocalID, Position: *rec.FocalLoc},
			})
			src, rerr := res.Get()
			if rerr != nil {
				s.Failures[rerr.Kind]++
				if _, ok := s.Reasons[rerr.Kind]; !ok {
					s.Reasons[rerr.Kind] = rerr.Reason
				}
				opts.Metrics.ObserveResolve(lang.ShortName(), string(rerr.Kind))
				debug.Trace(log, "%s: %s", rec.TestID, rerr.Reason)
				continue
			}
			opts.Metrics.ObserveResolve(lang.ShortName(), "success")

			written, err := w.Write(types.DatasetRecord{
				TestID:    rec.TestID,
				Test:      rec.Test,
				CodeID:    src.ID,
				Code:      src.Code,
				Docstring: src.Doc,
			})
			if err != nil {
				return err
			}
			if written {
				s.Written++
			} else {
				s.Duplicates++
			}
		}
		return nil
	})
	if runErr != nil {
		status = StatusFailed
		if ctx.Err() != nil {
			status = contextStatus(ctx.Err())
		}
	}

	opts.Metrics.ObserveRepo("sync", status.String(), time.Since(start).Seconds())
	opts.Metrics.ObserveRecords("sync", s.Written)
	log.Info("synced repository",
		"status", status.String(),
		"pairs", s.Total,
		"written", s.Written,
		"failed", s.Failed(),
		"error", runErr)
	return s
}
