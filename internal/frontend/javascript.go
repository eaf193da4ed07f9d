package frontend

import (
	"fmt"
	"path/filepath"
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/standardbeagle/unitsync/internal/parser"
	"github.com/standardbeagle/unitsync/internal/types"
)

var jsFunctionKinds = map[string]bool{
	"function":            true,
	"function_expression": true,
	"arrow_function":      true,
}

type javascriptFrontend struct{}

func (javascriptFrontend) Language() types.Language { return types.JavaScript }

// MatchesFile accepts chai test files below a directory whose path mentions "test"
func (javascriptFrontend) MatchesFile(relPath, src string) bool {
	if !strings.HasSuffix(relPath, ".js") {
		return false
	}
	if !strings.Contains(filepath.ToSlash(filepath.Dir(relPath)), "test") {
		return false
	}
	return strings.Contains(src, "require('chai')") || strings.Contains(src, `require("chai")`)
}

// describeArgs unpacks describe("name", function () {...}). The arguments node must
// have exactly five children: "(", string, ",", function, ")".
func describeArgs(tree *parser.Tree, call *tree_sitter.Node) (string, *tree_sitter.Node, bool) {
	if call.Kind() != "call_expression" {
		return "", nil, false
	}
	fn := call.ChildByFieldName("function")
	if fn == nil || fn.Kind() != "identifier" || tree.RawText(fn) != "describe" {
		return "", nil, false
	}
	args := parser.FirstChildOfKind(call, "arguments")
	children := parser.Children(args)
	if len(children) != 5 || children[1].Kind() != "string" || !jsFunctionKinds[children[3].Kind()] {
		return "", nil, false
	}
	return unquoteJS(tree.RawText(children[1])), children[3], true
}

func unquoteJS(s string) string {
	if len(s) >= 2 {
		q := s[0]
		if (q == '\'' || q == '"' || q == '`') && s[len(s)-1] == q {
			return s[1 : len(s)-1]
		}
	}
	return s
}

// DiscoverTests returns the callback of every describe block
func (javascriptFrontend) DiscoverTests(tree *parser.Tree) []types.TestFunction {
	var tests []types.TestFunction
	for _, call := range tree.NodesOfType(tree.Root(), "call_expression") {
		name, fn, ok := describeArgs(tree, call)
		if !ok {
			continue
		}
		tests = append(tests, types.TestFunction{
			Name:       name,
			Node:       fn,
			DeclaredAt: parser.StartOf(fn),
		})
	}
	return tests
}

func (javascriptFrontend) IsAssertion(tree *parser.Tree, call *tree_sitter.Node) bool {
	text := tree.RawText(call)
	return strings.Contains(text, "expect") || strings.Contains(text, "test")
}

func (js javascriptFrontend) LocateFocal(tree *parser.Tree, test types.TestFunction) types.Maybe[types.CallCandidate] {
	calls := parser.Postorder(test.Node, "call_expression")
	focal, ok := lastCallBeforeAssertion(calls, func(n *tree_sitter.Node) bool {
		return js.IsAssertion(tree, n)
	}).Get()
	if !ok {
		return types.NotFound[types.CallCandidate]()
	}
	return types.Found(callCandidate(tree, focal, focal.ChildByFieldName("function")))
}

// DefinitionAt returns the first node of any kind starting on line
func (javascriptFrontend) DefinitionAt(tree *parser.Tree, line int) types.Maybe[*tree_sitter.Node] {
	if n := firstAtLine(tree.Root(), "", line); n != nil {
		return types.Found(n)
	}
	return types.NotFound[*tree_sitter.Node]()
}

// DeclarationName handles function declarations, methods and const bindings. Other
// statements fall back to their first identifier.
func (javascriptFrontend) DeclarationName(tree *parser.Tree, decl *tree_sitter.Node) string {
	if name := decl.ChildByFieldName("name"); name != nil {
		return tree.RawText(name)
	}
	if declarator := parser.FirstDescendantOfKind(decl, "variable_declarator"); declarator != nil {
		return fieldText(tree, declarator, "name")
	}
	for _, kind := range []string{"identifier", "property_identifier"} {
		if id := parser.FirstDescendantOfKind(decl, kind); id != nil {
			return tree.RawText(id)
		}
	}
	return ""
}

func (javascriptFrontend) Docstring(tree *parser.Tree, decl *tree_sitter.Node) *string {
	return leadingComments(tree, decl)
}

// DefHeader renders an arrow function binding for the first lexical declaration
func (javascriptFrontend) DefHeader(code string) types.Maybe[string] {
	tree, ok := parseSnippet(types.JavaScript, code)
	if !ok {
		return types.NotFound[string]()
	}
	defer tree.Close()

	decl := parser.FirstDescendantOfKind(tree.Root(), "lexical_declaration")
	if decl == nil {
		return types.NotFound[string]()
	}
	ids := parser.NodesOfType(decl, "identifier")
	if len(ids) == 0 {
		return types.NotFound[string]()
	}
	return types.Found(fmt.Sprintf("const %s = () => {\n", tree.RawText(ids[0])))
}
