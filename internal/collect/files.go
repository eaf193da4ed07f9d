// Package collect drives the pipeline over whole repositories: it finds test
// files, writes focal records per repository and syncs them into a dataset.
package collect

import (
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/standardbeagle/unitsync/internal/config"
	"github.com/standardbeagle/unitsync/internal/debug"
	"github.com/standardbeagle/unitsync/internal/errors"
	"github.com/standardbeagle/unitsync/internal/frontend"
	"github.com/standardbeagle/unitsync/internal/parser"
	"github.com/standardbeagle/unitsync/internal/types"
)

// FileFilter applies include and exclude globs to repository-relative paths.
// An empty include list admits every path.
type FileFilter struct {
	include []string
	exclude []string
}

// NewFileFilter builds a filter. Invalid patterns are dropped with a debug log.
func NewFileFilter(include, exclude []string) *FileFilter {
	return &FileFilter{include: validPatterns(include), exclude: validPatterns(exclude)}
}

// RepoFilter is NewFileFilter with the repository's build output directories
// appended to exclude
func RepoFilter(repoDir string, include, exclude []string) *FileFilter {
	artifacts := config.NewBuildArtifactDetector(repoDir).DetectOutputDirectories()
	return NewFileFilter(include, config.DeduplicatePatterns(append(append([]string(nil), exclude...), artifacts...)))
}

func validPatterns(patterns []string) []string {
	valid := make([]string, 0, len(patterns))
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if !doublestar.ValidatePattern(p) {
			debug.Log(debug.Collect, "ignoring invalid pattern %q\n", p)
			continue
		}
		valid = append(valid, p)
	}
	return valid
}

// Excluded reports whether rel matches an exclude pattern. Directories are also
// tested with a trailing slash so "**/vendor/**" prunes the vendor directory itself.
func (f *FileFilter) Excluded(rel string, isDir bool) bool {
	rel = filepath.ToSlash(rel)
	for _, p := range f.exclude {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
		if isDir {
			if ok, _ := doublestar.Match(p, rel+"/"); ok {
				return true
			}
		}
	}
	return false
}

// Included reports whether rel is a candidate file
func (f *FileFilter) Included(rel string) bool {
	if f.Excluded(rel, false) {
		return false
	}
	if len(f.include) == 0 {
		return true
	}
	rel = filepath.ToSlash(rel)
	for _, p := range f.include {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}

// TestFiles walks repoDir and returns, sorted, the absolute paths of files that
// pass the filter and the language's test-file pre-filter.
func TestFiles(repoDir string, lang types.Language, filter *FileFilter) ([]string, error) {
	fe, err := frontend.For(lang)
	if err != nil {
		return nil, err
	}
	if filter == nil {
		filter = NewFileFilter(nil, nil)
	}
	exts := lang.Extensions()

	var files []string
	walkErr := filepath.WalkDir(repoDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// unreadable subtrees are skipped, not fatal
			debug.Log(debug.Collect, "walk %s: %v\n", path, err)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		rel, relErr := filepath.Rel(repoDir, path)
		if relErr != nil || rel == "." {
			return nil
		}
		if d.IsDir() {
			if filter.Excluded(rel, true) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || !hasAnySuffix(path, exts) || !filter.Included(rel) {
			return nil
		}

		src, err := parser.ReadSource(path)
		if err != nil {
			debug.Log(debug.Collect, "read %s: %v\n", path, err)
			return nil
		}
		if fe.MatchesFile(rel, src) {
			files = append(files, path)
		}
		return nil
	})
	if walkErr != nil {
		return nil, errors.NewFileError("walk", repoDir, walkErr)
	}
	sort.Strings(files)
	return files, nil
}

func hasAnySuffix(path string, suffixes []string) bool {
	for _, s := range suffixes {
		if strings.HasSuffix(path, s) {
			return true
		}
	}
	return false
}
