package frontend

import (
	"fmt"
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/standardbeagle/unitsync/internal/parser"
	"github.com/standardbeagle/unitsync/internal/types"
)

// goAssertionHelpers are the helper names treated as assertions when they are the
// first identifier of a call (ok(t, err), equals(t, a, b), assert.Equal(...)).
var goAssertionHelpers = map[string]bool{
	"ok":     true,
	"equals": true,
	"assert": true,
}

type goFrontend struct{}

func (goFrontend) Language() types.Language { return types.Go }

func (goFrontend) MatchesFile(relPath, _ string) bool {
	return strings.HasSuffix(relPath, "_test.go")
}

// DiscoverTests returns functions taking a testing.T parameter
func (goFrontend) DiscoverTests(tree *parser.Tree) []types.TestFunction {
	var tests []types.TestFunction
	for _, fn := range tree.NodesOfType(tree.Root(), "function_declaration") {
		params := parser.FirstDescendantOfKind(fn, "parameter_list")
		if params == nil {
			continue
		}
		isTest := false
		for _, qt := range parser.NodesOfType(params, "qualified_type") {
			if tree.RawText(qt) == "testing.T" {
				isTest = true
				break
			}
		}
		if !isTest {
			continue
		}
		tests = append(tests, types.TestFunction{
			Name:       fieldText(tree, fn, "name"),
			Node:       fn,
			DeclaredAt: parser.StartOf(fn),
		})
	}
	return tests
}

func (goFrontend) IsAssertion(tree *parser.Tree, call *tree_sitter.Node) bool {
	ids := parser.NodesOfType(call, "identifier")
	if len(ids) == 0 {
		return false
	}
	return goAssertionHelpers[tree.RawText(ids[0])]
}

func (g goFrontend) LocateFocal(tree *parser.Tree, test types.TestFunction) types.Maybe[types.CallCandidate] {
	calls := parser.Postorder(test.Node, "call_expression")
	focal, ok := lastCallBeforeAssertion(calls, func(n *tree_sitter.Node) bool {
		return g.IsAssertion(tree, n)
	}).Get()
	if !ok {
		return types.NotFound[types.CallCandidate]()
	}
	return types.Found(callCandidate(tree, focal, focal.ChildByFieldName("function")))
}

// DefinitionAt prefers methods over plain functions starting on the same line
func (goFrontend) DefinitionAt(tree *parser.Tree, line int) types.Maybe[*tree_sitter.Node] {
	if n := firstAtLine(tree.Root(), "method_declaration", line); n != nil {
		return types.Found(n)
	}
	if n := firstAtLine(tree.Root(), "function_declaration", line); n != nil {
		return types.Found(n)
	}
	return types.NotFound[*tree_sitter.Node]()
}

func (goFrontend) DeclarationName(tree *parser.Tree, decl *tree_sitter.Node) string {
	return fieldText(tree, decl, "name")
}

func (goFrontend) Docstring(tree *parser.Tree, decl *tree_sitter.Node) *string {
	return leadingComments(tree, decl)
}

// DefHeader renders the test signature from the first function declaration
func (goFrontend) DefHeader(code string) types.Maybe[string] {
	tree, ok := parseSnippet(types.Go, code)
	if !ok {
		return types.NotFound[string]()
	}
	defer tree.Close()

	fn := parser.FirstDescendantOfKind(tree.Root(), "function_declaration")
	if fn == nil {
		return types.NotFound[string]()
	}
	ids := parser.NodesOfType(fn, "identifier")
	if len(ids) == 0 {
		return types.NotFound[string]()
	}
	return types.Found(fmt.Sprintf("func %s(t *testing.T) {\n", tree.RawText(ids[0])))
}
