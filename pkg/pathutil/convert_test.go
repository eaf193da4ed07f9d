package pathutil

import (
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToRelative(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix path fixtures")
	}
	tests := []struct {
		name     string
		absPath  string
		rootDir  string
		expected string
	}{
		{"simple relative path", "/corpus/acme-calc/calc.py", "/corpus", "acme-calc/calc.py"},
		{"same directory", "/corpus", "/corpus", "."},
		{"already relative path", "acme-calc/calc.py", "/corpus", "acme-calc/calc.py"},
		{"path outside root", "/usr/lib/python3/os.py", "/corpus", "/usr/lib/python3/os.py"},
		{"sibling with shared prefix", "/corpus-old/a.py", "/corpus", "/corpus-old/a.py"},
		{"dotdot-prefixed name inside root", "/corpus/..hidden/a.py", "/corpus", "..hidden/a.py"},
		{"empty root", "/corpus/a.py", "", "/corpus/a.py"},
		{"unclean input", "/corpus/./acme//calc.py", "/corpus/", "acme/calc.py"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ToRelative(tt.absPath, tt.rootDir))
		})
	}
}

func TestToRelativeAll(t *testing.T) {
	root := filepath.Join(string(filepath.Separator), "corpus")
	paths := []string{filepath.Join(root, "a", "t.py"), filepath.Join(root, "b.py")}

	got := ToRelativeAll(paths, root)
	assert.Equal(t, []string{"a/t.py", "b.py"}, got)
	assert.Equal(t, filepath.Join(root, "a", "t.py"), paths[0], "input is not modified")
	assert.Empty(t, ToRelativeAll(nil, root))
}

func TestToAbsolute(t *testing.T) {
	root := filepath.Join(string(filepath.Separator), "corpus")
	assert.Equal(t, filepath.Join(root, "a", "t.py"), ToAbsolute("a/t.py", root))
	assert.Equal(t, filepath.Join(root, "x.py"), ToAbsolute(filepath.Join(root, "y", "..", "x.py"), "/elsewhere"))
	assert.Equal(t, "", ToAbsolute("", root))
}
