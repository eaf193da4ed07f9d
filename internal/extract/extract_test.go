package extract

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/unitsync/internal/errors"
	"github.com/standardbeagle/unitsync/internal/types"
)

func location(path string, line, col int) types.DefinitionLocation {
	return types.DefinitionLocation{
		FilePath: path,
		Start:    types.Position{Line: line, Column: col},
		End:      types.Position{Line: line, Column: col + 3},
	}
}

func TestExtractPython(t *testing.T) {
	workspace := filepath.Join("testdata", "py_example")
	ex := New(workspace)
	path := filepath.Join(workspace, "src", "add.py")

	src, rerr := ex.Extract(types.Python, location(path, 0, 4)).Get()
	require.Nil(t, rerr)
	assert.Equal(t, "def add(x: int, y: int) -> int:\n    return x + y", src.Code)
	assert.Nil(t, src.Doc)
	assert.Equal(t, "src/add.py::add", src.ID)

	missing := ex.Extract(types.Python, location(path, 1, 4))
	require.False(t, missing.IsSuccess())
	assert.Equal(t, errors.KindNotFound, missing.Err().Kind)
}

func TestExtractPythonMethodDocstring(t *testing.T) {
	workspace := filepath.Join("testdata", "py_example")
	ex := New(workspace)

	src, rerr := ex.Extract(types.Python, location(filepath.Join(workspace, "src", "classes.py"), 6, 8)).Get()
	require.Nil(t, rerr)
	assert.Contains(t, src.Code, "def greet(self):\n")
	assert.Contains(t, src.Code, "\n    return \"Hello, \" + self.name")
	require.NotNil(t, src.Doc)
	assert.Equal(t, "Say hello.\n\nUses the stored name.", *src.Doc)
	assert.Equal(t, "src/classes.py::greet", src.ID)
}

func TestExtractJava(t *testing.T) {
	workspace := filepath.Join("testdata", "java_example")
	ex := New(workspace)
	path := filepath.Join(workspace, "Add.java")

	tests := []struct {
		name string
		line int
		id   string
		code string
	}{
		{"plain method", 17, "Add.java::add", "public static int add(int a, int b) {\n    return a + b;\n}"},
		{"annotated method by name line", 22, "Add.java::sub", "@Deprecated\npublic static int sub(int a, int b) {\n    return a - b;\n}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src, rerr := ex.Extract(types.Java, location(path, tt.line, 22)).Get()
			require.Nil(t, rerr)
			assert.Equal(t, tt.id, src.ID)
			assert.Equal(t, tt.code, src.Code)
		})
	}
}

func TestExtractUnreadable(t *testing.T) {
	dir := t.TempDir()
	binary := filepath.Join(dir, "blob.go")
	require.NoError(t, os.WriteFile(binary, []byte{0xff, 0xfe, 0x00, 'f', 'u', 'n', 'c'}, 0o644))

	tests := []struct {
		name string
		lang types.Language
		path string
	}{
		{"missing file", types.Go, filepath.Join(dir, "does", "not", "exist.go")},
		{"unknown language", types.LanguageUnknown, binary},
		{"directory", types.Go, dir},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := New(dir).Extract(tt.lang, location(tt.path, 0, 0))
			require.False(t, res.IsSuccess())
			assert.Equal(t, errors.KindParse, res.Err().Kind)
			assert.Equal(t, tt.path, res.Err().FilePath)
			assert.Contains(t, res.Reason(), "Failed to read source")
		})
	}
}

func TestExtractExpandsTabs(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "calc.go")
	require.NoError(t, os.WriteFile(path, []byte("package calc\n\n// Sum adds.\nfunc Sum(a, b int) int {\n\treturn a + b\n}\n"), 0o644))

	src, rerr := New(dir).Extract(types.Go, location(path, 3, 5)).Get()
	require.Nil(t, rerr)
	assert.Equal(t, "func Sum(a, b int) int {\n    return a + b\n}", src.Code)
	require.NotNil(t, src.Doc)
	assert.Equal(t, "// Sum adds.", *src.Doc)
	assert.Equal(t, "calc.go::Sum", src.ID)
}

func TestRelativeTo(t *testing.T) {
	root := t.TempDir()
	assert.Equal(t, "a/b.go", RelativeTo(root, filepath.Join(root, "a", "b.go")))
	assert.Equal(t, filepath.ToSlash(filepath.Clean("/elsewhere/b.go")), RelativeTo(root, "/elsewhere/b.go"))
	assert.Equal(t, "x/y.go", RelativeTo("", "x/./y.go"))
}
