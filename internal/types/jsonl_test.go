package types

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadJSONL(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
		return path
	}

	t.Run("skips blank lines", func(t *testing.T) {
		path := write("focal.jsonl", `{"test_id":"r/a.py::test_a","test_loc":[1,0],"test":"t","focal_id":"a","focal_loc":[2,11]}`+"\n\n  \n"+
			`{"test_id":"r/a.py::test_b","test_loc":[4,0],"test":"t","focal_id":null,"focal_loc":null}`+"\n")
		records, err := ReadJSONL[FocalRecord](path)
		require.NoError(t, err)
		require.Len(t, records, 2)
		require.NotNil(t, records[0].FocalLoc)
		assert.Equal(t, Position{Line: 2, Column: 11}, *records[0].FocalLoc)
		assert.Nil(t, records[1].FocalID)
	})

	t.Run("malformed line", func(t *testing.T) {
		path := write("bad.jsonl", `{"test_id":"ok","test":"","code_id":"c","code":"x","docstring":null}`+"\n{oops\n")
		records, err := ReadJSONL[DatasetRecord](path)
		assert.ErrorContains(t, err, "bad.jsonl:2")
		assert.Len(t, records, 1)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := ReadJSONL[DatasetRecord](filepath.Join(dir, "missing.jsonl"))
		assert.True(t, os.IsNotExist(err))
	})
}
