package frontend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/standardbeagle/unitsync/internal/parser"
	"github.com/standardbeagle/unitsync/internal/types"
)

func parseCode(t *testing.T, lang types.Language, code string) *parser.Tree {
	t.Helper()
	tree, err := parser.Default().ParseString(lang, code)
	require.NoError(t, err)
	t.Cleanup(tree.Close)
	return tree
}

// firstTest wraps the first node of kind as a test, the way a discoverer would
func firstTest(t *testing.T, tree *parser.Tree, kind string) types.TestFunction {
	t.Helper()
	nodes := tree.NodesOfType(tree.Root(), kind)
	require.NotEmpty(t, nodes, "no %s in sample", kind)
	return types.TestFunction{Node: nodes[0], DeclaredAt: parser.StartOf(nodes[0])}
}

func requireFocal(t *testing.T, m types.Maybe[types.CallCandidate]) types.CallCandidate {
	t.Helper()
	call, ok := m.Get()
	require.True(t, ok, "expected a focal call")
	return call
}

func TestForCoversEveryLanguage(t *testing.T) {
	for _, lang := range types.Languages {
		fe, err := For(lang)
		require.NoError(t, err, lang.String())
		assert.Equal(t, lang, fe.Language())
	}

	_, err := For(types.LanguageUnknown)
	assert.Error(t, err)
	assert.Panics(t, func() { MustFor(types.LanguageUnknown) })
}

func TestFuzzyFocalName(t *testing.T) {
	tests := []struct {
		name     string
		expected string
	}{
		{"test_add", "add"},
		{"add_test", "add"},
		{"TestAdd", "Add"},
		{"AddTest", "Add"},
		{"testAdd", "Add"},
		{"add", "add"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FuzzyFocalName(tt.name))
		})
	}
}

func TestLastCallBeforeAssertion(t *testing.T) {
	tree := parseCode(t, types.Python, "a()\nb()\nassert_ok()\nc()\n")
	calls := tree.NodesOfType(tree.Root(), "call")
	require.Len(t, calls, 4)

	isAssert := func(name string) func(n *tree_sitter.Node) bool {
		return func(n *tree_sitter.Node) bool {
			return tree.RawText(n.ChildByFieldName("function")) == name
		}
	}

	got, ok := lastCallBeforeAssertion(calls, isAssert("assert_ok")).Get()
	require.True(t, ok)
	assert.Equal(t, "b()", tree.RawText(got))

	assert.False(t, lastCallBeforeAssertion(calls, isAssert("a")).IsFound(), "nothing precedes the assertion")
	assert.False(t, lastCallBeforeAssertion(calls, isAssert("missing")).IsFound(), "no assertion")
}

func TestLeadingComments(t *testing.T) {
	code := `package p

// unrelated

// Add sums
// two ints.
func Add(a, b int) int { return a + b }

func Sub(a, b int) int { return a - b }
`
	tree := parseCode(t, types.Go, code)
	funcs := tree.NodesOfType(tree.Root(), "function_declaration")
	require.Len(t, funcs, 2)

	doc := leadingComments(tree, funcs[0])
	require.NotNil(t, doc)
	assert.Equal(t, "// Add sums\n// two ints.", *doc)
	assert.Nil(t, leadingComments(tree, funcs[1]))
}

type located struct {
	Test  string
	Found bool
	Call  types.CallCandidate
}

func locateAll(fe Frontend, tree *parser.Tree) []located {
	var out []located
	for _, test := range fe.DiscoverTests(tree) {
		call, ok := fe.LocateFocal(tree, test).Get()
		out = append(out, located{Test: test.Name, Found: ok, Call: call})
	}
	return out
}

func TestLocateFocalIsRepeatable(t *testing.T) {
	tests := []struct {
		lang types.Language
		code string
	}{
		{types.Python, "def test_add():\n    assert add(1, 2) == 3\n\ndef test_truth():\n    assert True\n"},
		{types.Java, javaAddSource},
		{types.JavaScript, jsStoreTest},
		{types.Go, goDatasetsTest},
		{types.Rust, "#[test]\nfn encode() {\n    let bytes = [1u8];\n    assert_eq!(STANDARD.encode_slice(&bytes), Ok(4));\n}\n"},
		{types.Cpp, "TEST(Parse, Empty) {\n  EXPECT_EQ(parse(\"\"), nullptr);\n}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.lang.String(), func(t *testing.T) {
			fe := MustFor(tt.lang)
			tree := parseCode(t, tt.lang, tt.code)

			first := locateAll(fe, tree)
			require.NotEmpty(t, first)
			assert.True(t, first[0].Found, "sample has a focal call")
			assert.Equal(t, first, locateAll(fe, tree), "same tree")
			assert.Equal(t, first, locateAll(fe, parseCode(t, tt.lang, tt.code)), "fresh parse")
		})
	}
}
