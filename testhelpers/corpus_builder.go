// Package testhelpers builds on-disk corpora for tests.
package testhelpers

import (
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/standardbeagle/unitsync/internal/collect"
)

// CalcTestPy is a pytest file with two tests: test_add has a focal call,
// test_truth asserts without calling anything, and helper is not a test
const CalcTestPy = `from calc import add
def test_add():
    assert add(1, 2) == 3

def test_truth():
    assert True

def helper():
    return add(0, 0)
`

// CalcPy is the production module CalcTestPy exercises
const CalcPy = "def add(a, b):\n    return a + b\n"

// CorpusBuilder lays out repositories under <root>/<repoRoot>/<user-repo>
type CorpusBuilder struct {
	t        testing.TB
	root     string
	repoRoot string
	repos    map[string]map[string]string
}

// NewCorpusBuilder creates a builder rooted at a fresh temp directory
func NewCorpusBuilder(t testing.TB, repoRoot string) *CorpusBuilder {
	t.Helper()
	return &CorpusBuilder{
		t:        t,
		root:     t.TempDir(),
		repoRoot: repoRoot,
		repos:    make(map[string]map[string]string),
	}
}

// AddFile adds a file, slash-separated and relative to the repository
func (cb *CorpusBuilder) AddFile(repoID, rel, content string) *CorpusBuilder {
	files := cb.repos[repoID]
	if files == nil {
		files = make(map[string]string)
		cb.repos[repoID] = files
	}
	files[rel] = content
	return cb
}

// AddCalcRepo adds the calc fixture under repoID
func (cb *CorpusBuilder) AddCalcRepo(repoID string) *CorpusBuilder {
	return cb.AddFile(repoID, "tests/test_calc.py", CalcTestPy).AddFile(repoID, "calc.py", CalcPy)
}

// RepoDir is where repoID is written
func (cb *CorpusBuilder) RepoDir(repoID string) string {
	return filepath.Join(cb.root, cb.repoRoot, collect.WrapRepo(repoID))
}

// Build writes every file and returns the corpus root
func (cb *CorpusBuilder) Build() string {
	cb.t.Helper()
	ids := make([]string, 0, len(cb.repos))
	for id := range cb.repos {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		for rel, content := range cb.repos[id] {
			path := filepath.Join(cb.RepoDir(id), filepath.FromSlash(rel))
			if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
				cb.t.Fatalf("create %s: %v", filepath.Dir(path), err)
			}
			if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
				cb.t.Fatalf("write %s: %v", path, err)
			}
		}
	}
	return cb.root
}
