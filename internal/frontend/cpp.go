package frontend

import (
	"fmt"
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/standardbeagle/unitsync/internal/parser"
	"github.com/standardbeagle/unitsync/internal/types"
)

// gtestMacros are the GoogleTest macros that declare a test body
var gtestMacros = map[string]bool{
	"TEST":         true,
	"TEST_F":       true,
	"TEST_P":       true,
	"TYPED_TEST":   true,
	"TYPED_TEST_P": true,
}

type cppFrontend struct{}

func (cppFrontend) Language() types.Language { return types.Cpp }

func (cppFrontend) MatchesFile(relPath, src string) bool {
	if !hasExtension(relPath, types.Cpp.Extensions()) {
		return false
	}
	return strings.Contains(src, `#include "gtest/gtest.h"`)
}

func hasExtension(path string, exts []string) bool {
	for _, ext := range exts {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}
	return false
}

func cppDeclarator(def *tree_sitter.Node) *tree_sitter.Node {
	decl := def.ChildByFieldName("declarator")
	for decl != nil && decl.Kind() != "function_declarator" {
		// pointer and reference declarators wrap the function declarator
		decl = decl.ChildByFieldName("declarator")
	}
	return decl
}

// DiscoverTests returns function definitions declared through a gtest macro.
// The test name is Suite::Case.
func (cppFrontend) DiscoverTests(tree *parser.Tree) []types.TestFunction {
	var tests []types.TestFunction
	for _, def := range tree.NodesOfType(tree.Root(), "function_definition") {
		decl := cppDeclarator(def)
		if decl == nil {
			continue
		}
		macro := decl.ChildByFieldName("declarator")
		if macro == nil || macro.Kind() != "identifier" || !gtestMacros[tree.RawText(macro)] {
			continue
		}
		params := parser.NodesOfType(def, "parameter_declaration")
		if len(params) == 0 {
			continue
		}
		names := []string{tree.RawText(params[0])}
		if len(params) > 1 {
			names = append(names, tree.RawText(params[1]))
		}
		tests = append(tests, types.TestFunction{
			Name:       strings.Join(names, "::"),
			Node:       def,
			DeclaredAt: parser.StartOf(def),
		})
	}
	return tests
}

func (cppFrontend) IsAssertion(tree *parser.Tree, call *tree_sitter.Node) bool {
	text := tree.RawText(call)
	return strings.Contains(text, "EXPECT") || strings.Contains(text, "ASSERT")
}

func (c cppFrontend) LocateFocal(tree *parser.Tree, test types.TestFunction) types.Maybe[types.CallCandidate] {
	calls := parser.Postorder(test.Node, "call_expression")
	focal, ok := lastCallBeforeAssertion(calls, func(n *tree_sitter.Node) bool {
		return c.IsAssertion(tree, n)
	}).Get()
	if !ok {
		return types.NotFound[types.CallCandidate]()
	}
	return types.Found(callCandidate(tree, focal, focal.ChildByFieldName("function")))
}

func (cppFrontend) DefinitionAt(tree *parser.Tree, line int) types.Maybe[*tree_sitter.Node] {
	if n := firstAtLine(tree.Root(), "function_definition", line); n != nil {
		return types.Found(n)
	}
	return types.NotFound[*tree_sitter.Node]()
}

// DeclarationName is the declarator's name as written, qualified names included
func (cppFrontend) DeclarationName(tree *parser.Tree, decl *tree_sitter.Node) string {
	fn := cppDeclarator(decl)
	if fn == nil {
		return ""
	}
	return tree.RawText(fn.ChildByFieldName("declarator"))
}

func (cppFrontend) Docstring(tree *parser.Tree, decl *tree_sitter.Node) *string {
	return leadingComments(tree, decl)
}

// DefHeader renders MACRO(Suite, Case) from the first function definition
func (cppFrontend) DefHeader(code string) types.Maybe[string] {
	tree, ok := parseSnippet(types.Cpp, code)
	if !ok {
		return types.NotFound[string]()
	}
	defer tree.Close()

	def := parser.FirstDescendantOfKind(tree.Root(), "function_definition")
	if def == nil {
		return types.NotFound[string]()
	}
	ids := parser.NodesOfType(def, "identifier")
	if len(ids) == 0 {
		return types.NotFound[string]()
	}
	params := parser.NodesOfType(def, "parameter_declaration")
	if len(params) > 2 {
		params = params[:2]
	}
	texts := make([]string, len(params))
	for i, p := range params {
		texts[i] = tree.RawText(p)
	}
	return types.Found(fmt.Sprintf("%s(%s) {\n", tree.RawText(ids[0]), strings.Join(texts, ", ")))
}
