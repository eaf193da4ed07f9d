package frontend

import (
	"path/filepath"
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/standardbeagle/unitsync/internal/parser"
	"github.com/standardbeagle/unitsync/internal/types"
)

// rustUtilityCalls mark calls that post-process a result rather than produce it
var rustUtilityCalls = []string{"unwrap", "len", "as_slice", "into_iter"}

type rustFrontend struct{}

func (rustFrontend) Language() types.Language { return types.Rust }

// MatchesFile accepts files with #[test] functions, and fuzz targets under fuzz/
func (rustFrontend) MatchesFile(relPath, src string) bool {
	if !strings.HasSuffix(relPath, ".rs") {
		return false
	}
	if strings.Contains(src, "#[test]") {
		return true
	}
	return strings.Contains(src, "fuzz_target!") && isFuzzPath(relPath)
}

func isFuzzPath(relPath string) bool {
	for _, dir := range strings.Split(filepath.ToSlash(filepath.Dir(relPath)), "/") {
		if dir == "fuzz" {
			return true
		}
	}
	return false
}

func macroName(tree *parser.Tree, macro *tree_sitter.Node) string {
	if name := macro.ChildByFieldName("macro"); name != nil {
		return tree.RawText(name)
	}
	if id := parser.FirstChildOfKind(macro, "identifier"); id != nil {
		return tree.RawText(id)
	}
	return ""
}

// hasTestAttribute scans the attributes directly above the item at idx
func hasTestAttribute(tree *parser.Tree, siblings []*tree_sitter.Node, idx int) bool {
	for i := idx - 1; i >= 0 && siblings[i].Kind() == "attribute_item"; i-- {
		for _, id := range parser.NodesOfType(siblings[i], "identifier") {
			if tree.RawText(id) == "test" {
				return true
			}
		}
	}
	return false
}

func collectRustTests(tree *parser.Tree, container *tree_sitter.Node, prefix string, out []types.TestFunction) []types.TestFunction {
	children := parser.Children(container)
	for idx, child := range children {
		switch child.Kind() {
		case "function_item":
			if !hasTestAttribute(tree, children, idx) {
				continue
			}
			out = append(out, types.TestFunction{
				Name:       prefix + fieldText(tree, child, "name"),
				Node:       child,
				DeclaredAt: parser.StartOf(child),
			})
		case "mod_item":
			if body := child.ChildByFieldName("body"); body != nil {
				out = collectRustTests(tree, body, prefix+fieldText(tree, child, "name")+"::", out)
			}
		}
	}
	return out
}

// DiscoverTests returns #[test] functions at the top level or nested in inline
// modules, followed by fuzz_target! bodies named after their file.
func (rustFrontend) DiscoverTests(tree *parser.Tree) []types.TestFunction {
	tests := collectRustTests(tree, tree.Root(), "", nil)

	for _, macro := range tree.NodesOfType(tree.Root(), "macro_invocation") {
		if macroName(tree, macro) != "fuzz_target" {
			continue
		}
		name := "fuzz_target"
		if path := tree.Path(); path != "" {
			name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		}
		tests = append(tests, types.TestFunction{
			Name:       name,
			Node:       macro,
			DeclaredAt: parser.StartOf(macro),
			Fuzz:       true,
		})
	}
	return tests
}

// IsAssertion reports whether the node is an assert-family macro
func (rustFrontend) IsAssertion(tree *parser.Tree, node *tree_sitter.Node) bool {
	return node.Kind() == "macro_invocation" && strings.Contains(macroName(tree, node), "assert")
}

func isRustUtilityCall(text string) bool {
	for _, name := range rustUtilityCalls {
		if strings.Contains(text, name) {
			return true
		}
	}
	return false
}

// offsetPosition maps a position in a re-parsed token tree back to the file. Only
// the first line of the snippet shares the token tree's column.
func offsetPosition(base, p types.Position) types.Position {
	if p.Line == 0 {
		return types.Position{Line: base.Line, Column: base.Column + p.Column}
	}
	return types.Position{Line: base.Line + p.Line, Column: p.Column}
}

// reparseTokenTree parses the token tree of a macro invocation as Rust. Macro bodies
// are opaque to the grammar until re-parsed.
func reparseTokenTree(tree *parser.Tree, macro *tree_sitter.Node) (*parser.Tree, types.Position, bool) {
	tokens := parser.FirstDescendantOfKind(macro, "token_tree")
	if tokens == nil {
		return nil, types.Position{}, false
	}
	snippet, ok := parseSnippet(types.Rust, tree.RawText(tokens))
	if !ok {
		return nil, types.Position{}, false
	}
	return snippet, parser.StartOf(tokens), true
}

// LocateFocal prefers the first usable call inside the first assertion macro, in
// source order. When the assertion holds no usable call the function body is
// searched backwards instead. Fuzz targets take the backward search even without an
// assertion; ordinary tests without one have no focal call.
func (r rustFrontend) LocateFocal(tree *parser.Tree, test types.TestFunction) types.Maybe[types.CallCandidate] {
	if !test.Fuzz {
		return r.locateIn(tree, test.Node, types.Position{}, false)
	}
	body, base, ok := reparseTokenTree(tree, test.Node)
	if !ok {
		return types.NotFound[types.CallCandidate]()
	}
	defer body.Close()
	return r.locateIn(body, body.Root(), base, true)
}

func (r rustFrontend) locateIn(tree *parser.Tree, fn *tree_sitter.Node, base types.Position, fuzz bool) types.Maybe[types.CallCandidate] {
	var assertion *tree_sitter.Node
	for _, macro := range parser.NodesOfType(fn, "macro_invocation") {
		if r.IsAssertion(tree, macro) {
			assertion = macro
			break
		}
	}
	if assertion == nil && !fuzz {
		return types.NotFound[types.CallCandidate]()
	}

	if assertion != nil {
		if call, ok := r.callInAssertion(tree, assertion).Get(); ok {
			call.Position = offsetPosition(base, call.Position)
			return types.Found(call)
		}
	}

	calls := parser.Postorder(fn, "call_expression")
	for i := len(calls) - 1; i >= 0; i-- {
		text := tree.RawText(calls[i])
		if isRustUtilityCall(text) {
			continue
		}
		return types.Found(rustCandidate(text, calls[i], base))
	}
	return types.NotFound[types.CallCandidate]()
}

func (rustFrontend) callInAssertion(tree *parser.Tree, assertion *tree_sitter.Node) types.Maybe[types.CallCandidate] {
	snippet, base, ok := reparseTokenTree(tree, assertion)
	if !ok {
		return types.NotFound[types.CallCandidate]()
	}
	defer snippet.Close()

	for _, call := range snippet.NodesOfType(snippet.Root(), "call_expression") {
		text := snippet.RawText(call)
		if isRustUtilityCall(text) {
			continue
		}
		return types.Found(rustCandidate(text, call, base))
	}
	return types.NotFound[types.CallCandidate]()
}

// rustCandidate keeps the full call text as the name, which the function index
// matches on, and points at the last path or method segment so a language server
// resolves the called function rather than the receiver.
func rustCandidate(text string, call *tree_sitter.Node, base types.Position) types.CallCandidate {
	at := call
	if name := calleeNameNode(call.ChildByFieldName("function")); name != nil {
		at = name
	}
	return types.CallCandidate{Name: text, Position: offsetPosition(base, parser.StartOf(at))}
}

func (rustFrontend) DefinitionAt(tree *parser.Tree, line int) types.Maybe[*tree_sitter.Node] {
	if n := firstAtLine(tree.Root(), "function_item", line); n != nil {
		return types.Found(n)
	}
	return types.NotFound[*tree_sitter.Node]()
}

func (rustFrontend) DeclarationName(tree *parser.Tree, decl *tree_sitter.Node) string {
	return fieldText(tree, decl, "name")
}

func (rustFrontend) Docstring(tree *parser.Tree, decl *tree_sitter.Node) *string {
	return leadingComments(tree, decl)
}

// DefHeader is not defined for Rust; generated tests keep the original attribute
// and signature.
func (rustFrontend) DefHeader(string) types.Maybe[string] {
	return types.NotFound[string]()
}
