package collect

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/unitsync/internal/metrics"
	"github.com/standardbeagle/unitsync/internal/types"
)

const calcPy = "def add(a, b):\n    return a + b\n\n\ndef sub(a, b):\n    return a - b\n"

const testCalcPy = `from calc import add, sub

def test_add():
    result = add(1, 2)
    assert result == 3

def test_sub():
    assert sub(3, 1) == 2

def test_noop():
    assert True
`

// newPythonRepos lays out acme/calc with focal calls and acme/empty without any
func newPythonRepos(t *testing.T) (repoRoot, focalRoot string) {
	t.Helper()
	repoRoot = t.TempDir()
	focalRoot = filepath.Join(t.TempDir(), "focal")
	writeFiles(t, repoRoot, map[string]string{
		"acme-calc/calc.py":            calcPy,
		"acme-calc/tests/test_calc.py": testCalcPy,
		"acme-empty/tests/test_x.py":   "def test_x():\n    assert True\n",
	})
	return repoRoot, focalRoot
}

func TestWrapRepo(t *testing.T) {
	assert.Equal(t, "acme-calc", WrapRepo("acme/calc"))
	assert.Equal(t, "acme-calc", WrapRepo(" acme/calc\n"))
	assert.Equal(t, "solo", WrapRepo("solo"))
}

func TestLoadRepoIDs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "repos.txt")
	require.NoError(t, os.WriteFile(path, []byte("# corpus\nacme/calc\n\n  acme/empty  \n"), 0o644))

	ids, err := LoadRepoIDs(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"acme/calc", "acme/empty"}, ids)

	_, err = LoadRepoIDs(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}

func TestCollectFile(t *testing.T) {
	repoRoot, _ := newPythonRepos(t)
	path := filepath.Join(repoRoot, "acme-calc", "tests", "test_calc.py")

	ff, err := CollectFile(context.Background(), types.Python, repoRoot, path, nil)
	require.NoError(t, err)
	require.Len(t, ff.Records, 3)
	assert.Equal(t, 2, ff.Located())

	add := ff.Records[0]
	assert.Equal(t, "acme-calc/tests/test_calc.py::test_add", add.TestID)
	assert.Equal(t, types.Position{Line: 2, Column: 0}, add.TestLoc)
	assert.Contains(t, add.Test, "result = add(1, 2)")
	require.NotNil(t, add.FocalID)
	assert.Equal(t, "add", *add.FocalID)
	assert.Equal(t, types.Position{Line: 3, Column: 13}, *add.FocalLoc)

	sub := ff.Records[1]
	require.NotNil(t, sub.FocalID)
	assert.Equal(t, "sub", *sub.FocalID)
	assert.Equal(t, types.Position{Line: 7, Column: 11}, *sub.FocalLoc)

	assert.Nil(t, ff.Records[2].FocalID)
	assert.Nil(t, ff.Records[2].FocalLoc)
}

func TestCollectFocal(t *testing.T) {
	repoRoot, focalRoot := newPythonRepos(t)
	rec := metrics.NewRecorder()
	opts := Options{
		Language:  types.Python,
		RepoRoot:  repoRoot,
		FocalRoot: focalRoot,
		Workers:   2,
		Metrics:   rec,
	}
	ids := []string{"acme/calc", "acme/empty", "acme/missing"}

	results, err := CollectFocal(context.Background(), ids, opts)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, StatusSuccess, results[0].Status)
	assert.Equal(t, 3, results[0].Tests)
	assert.Equal(t, 2, results[0].Focals)
	assert.Equal(t, StatusNoFocal, results[1].Status)
	assert.Equal(t, StatusRepoNotFound, results[2].Status)

	records, err := types.ReadJSONL[types.FocalRecord](FocalPath(focalRoot, "acme/calc"))
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "acme-calc/tests/test_calc.py::test_add", records[0].TestID)

	_, err = os.Stat(FocalPath(focalRoot, "acme/empty"))
	assert.True(t, os.IsNotExist(err), "a repository without focal calls leaves no output")

	series, err := testutil.GatherAndCount(rec.Registry(), "unitsync_focal_tests_total")
	require.NoError(t, err)
	assert.Equal(t, 2, series, "located and missing outcomes")

	t.Run("existing output is skipped", func(t *testing.T) {
		results, err := CollectFocal(context.Background(), ids[:1], opts)
		require.NoError(t, err)
		assert.Equal(t, StatusSkipped, results[0].Status)
	})

	t.Run("force re-collects", func(t *testing.T) {
		forced := opts
		forced.Force = true
		results, err := CollectFocal(context.Background(), ids[:1], forced)
		require.NoError(t, err)
		assert.Equal(t, StatusSuccess, results[0].Status)

		records, err := types.ReadJSONL[types.FocalRecord](FocalPath(focalRoot, "acme/calc"))
		require.NoError(t, err)
		assert.Len(t, records, 2, "output is rewritten, not appended")
	})

	t.Run("summary", func(t *testing.T) {
		s := Summarize(results)
		assert.Equal(t, []string{
			"Processed 3 repos with 0 skipped, 1 not found, and 1 failed to locate any focal functions",
			"Collected 2 focal functions for 4 tests",
		}, s.Lines())

		var buf bytes.Buffer
		RenderResults(&buf, results)
		assert.Contains(t, buf.String(), "acme/calc")
		assert.Contains(t, buf.String(), "not_found")
	})
}

func TestCollectRepoCancelled(t *testing.T) {
	repoRoot, focalRoot := newPythonRepos(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := CollectRepo(ctx, "acme/calc", Options{Language: types.Python, RepoRoot: repoRoot, FocalRoot: focalRoot})
	assert.Equal(t, StatusFailed, result.Status)
	assert.ErrorIs(t, result.Err, context.Canceled)
	_, err := os.Stat(FocalPath(focalRoot, "acme/calc"))
	assert.True(t, os.IsNotExist(err))
}

func TestFocalSummaryTimeoutLine(t *testing.T) {
	s := Summarize([]RepoResult{{Status: StatusTimeout}, {Status: StatusSuccess, Tests: 4, Focals: 1}})
	assert.Equal(t, []string{
		"1 repos timeout",
		"Processed 2 repos with 0 skipped, 0 not found, and 0 failed to locate any focal functions",
		"Collected 1 focal functions for 4 tests",
	}, s.Lines())
}

func TestCollectRepoIsRepeatable(t *testing.T) {
	repoRoot, focalRoot := newPythonRepos(t)
	opts := Options{Language: types.Python, RepoRoot: repoRoot, FocalRoot: focalRoot, Force: true}
	out := FocalPath(focalRoot, "acme/calc")

	first := CollectRepo(context.Background(), "acme/calc", opts)
	require.Equal(t, StatusSuccess, first.Status)
	want, err := os.ReadFile(out)
	require.NoError(t, err)

	second := CollectRepo(context.Background(), "acme/calc", opts)
	require.Equal(t, StatusSuccess, second.Status)
	got, err := os.ReadFile(out)
	require.NoError(t, err)

	assert.Equal(t, string(want), string(got))
	assert.Equal(t, first.Focals, second.Focals)
	assert.Equal(t, first.Tests, second.Tests)
}

func TestCollectFileCancelled(t *testing.T) {
	repoRoot, _ := newPythonRepos(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ff, err := CollectFile(ctx, types.Python, repoRoot, filepath.Join(repoRoot, "acme-calc", "tests", "test_calc.py"), nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, ff.Records)
}

// expiringContext reports its deadline as passed from the (live+1)th Err call on
type expiringContext struct {
	context.Context
	live  int
	calls int
}

func (c *expiringContext) Err() error {
	c.calls++
	if c.calls > c.live {
		return context.DeadlineExceeded
	}
	return nil
}

func TestCollectKeepsRecordsBeforeDeadline(t *testing.T) {
	repoRoot := t.TempDir()
	focalRoot := filepath.Join(t.TempDir(), "focal")
	writeFiles(t, repoRoot, map[string]string{
		"acme-slow/tests/test_slow.py": "def test_first():\n    assert first(1) == 1\n\ndef test_second():\n    assert second(2) == 2\n",
	})
	path := filepath.Join(repoRoot, "acme-slow", "tests", "test_slow.py")

	t.Run("file", func(t *testing.T) {
		ctx := &expiringContext{Context: context.Background(), live: 1}
		ff, err := CollectFile(ctx, types.Python, repoRoot, path, nil)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		require.Len(t, ff.Records, 1)
		assert.Equal(t, "acme-slow/tests/test_slow.py::test_first", ff.Records[0].TestID)
	})

	t.Run("repo", func(t *testing.T) {
		// repo check, file loop, first test
		ctx := &expiringContext{Context: context.Background(), live: 3}
		result := CollectRepo(ctx, "acme/slow", Options{Language: types.Python, RepoRoot: repoRoot, FocalRoot: focalRoot})
		assert.Equal(t, StatusTimeout, result.Status)
		assert.ErrorIs(t, result.Err, context.DeadlineExceeded)
		assert.Equal(t, 1, result.Focals)

		records, err := types.ReadJSONL[types.FocalRecord](FocalPath(focalRoot, "acme/slow"))
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, "first", *records[0].FocalID)
	})
}
