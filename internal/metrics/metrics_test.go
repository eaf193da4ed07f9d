package metrics

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorderCounts(t *testing.T) {
	r := NewRecorder()

	r.ObserveFocal("python", true)
	r.ObserveFocal("python", true)
	r.ObserveFocal("python", false)
	r.ObserveResolve("go", "success")
	r.ObserveResolve("go", "out_of_workspace")
	r.ObserveRepo("focal", "success", 1.5)
	r.ObserveRecords("sync", 3)
	r.ObserveRecords("sync", 0)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.focalTotal.WithLabelValues("python", "located")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.focalTotal.WithLabelValues("python", "not_found")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.resolveTotal.WithLabelValues("go", "out_of_workspace")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.repoTotal.WithLabelValues("focal", "success")))
	assert.Equal(t, 3.0, testutil.ToFloat64(r.recordsTotal.WithLabelValues("sync")))
}

func TestNilRecorder(t *testing.T) {
	var r *Recorder
	assert.NotPanics(t, func() {
		r.ObserveFocal("go", true)
		r.ObserveResolve("go", "success")
		r.ObserveRepo("focal", "success", 1)
		r.ObserveRecords("sync", 1)
	})
	assert.Nil(t, r.Registry())
	assert.NoError(t, r.WriteTextfile(filepath.Join(t.TempDir(), "m.prom")))
}

func TestWriteTextfile(t *testing.T) {
	r := NewRecorder()
	r.ObserveFocal("rust", true)

	path := filepath.Join(t.TempDir(), "unitsync.prom")
	require.NoError(t, r.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `unitsync_focal_tests_total{language="rust",outcome="located"} 1`)
}
