// Package frontend holds the per-language rules for finding unit tests, picking the
// focal call inside each test, and locating declarations in production code.
package frontend

import (
	"fmt"
	"regexp"
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/standardbeagle/unitsync/internal/parser"
	"github.com/standardbeagle/unitsync/internal/types"
)

// Frontend is the language-specific half of the pipeline. Implementations are
// stateless and safe for concurrent use; all state lives in the Tree passed in.
type Frontend interface {
	Language() types.Language

	// MatchesFile is the cheap file pre-filter. relPath is relative to the repository
	// root and src is the file content.
	MatchesFile(relPath, src string) bool

	// DiscoverTests returns every unit test declared in the tree, in source order
	DiscoverTests(tree *parser.Tree) []types.TestFunction

	// IsAssertion classifies a call-like node as an assertion
	IsAssertion(tree *parser.Tree, node *tree_sitter.Node) bool

	// LocateFocal picks the focal call of a test. NotFound is an expected outcome.
	LocateFocal(tree *parser.Tree, test types.TestFunction) types.Maybe[types.CallCandidate]

	// DefinitionAt finds the declaration starting at a 0-indexed line
	DefinitionAt(tree *parser.Tree, line int) types.Maybe[*tree_sitter.Node]

	// DeclarationName returns the name used in code ids for a declaration
	DeclarationName(tree *parser.Tree, decl *tree_sitter.Node) string

	// Docstring returns the declaration's documentation, nil when absent
	Docstring(tree *parser.Tree, decl *tree_sitter.Node) *string

	// DefHeader returns the signature line a generator would continue from
	DefHeader(code string) types.Maybe[string]
}

var frontends = map[types.Language]Frontend{
	types.Python:     pythonFrontend{},
	types.Java:       javaFrontend{},
	types.JavaScript: javascriptFrontend{},
	types.Go:         goFrontend{},
	types.Rust:       rustFrontend{},
	types.Cpp:        cppFrontend{},
}

// For returns the frontend for lang
func For(lang types.Language) (Frontend, error) {
	switch lang {
	case types.Python, types.Java, types.JavaScript, types.Go, types.Rust, types.Cpp:
		return frontends[lang], nil
	default:
		return nil, fmt.Errorf("no frontend for language %s", lang)
	}
}

// MustFor is For for callers holding a validated language
func MustFor(lang types.Language) Frontend {
	fe, err := For(lang)
	if err != nil {
		panic(err)
	}
	return fe
}

// lastCallBeforeAssertion walks calls in the given order and returns the last call
// seen before the first assertion. It is absent when there is no assertion or
// nothing precedes it.
func lastCallBeforeAssertion(calls []*tree_sitter.Node, isAssertion func(*tree_sitter.Node) bool) types.Maybe[*tree_sitter.Node] {
	var last *tree_sitter.Node
	for _, call := range calls {
		if isAssertion(call) {
			if last == nil {
				return types.NotFound[*tree_sitter.Node]()
			}
			return types.Found(last)
		}
		last = call
	}
	return types.NotFound[*tree_sitter.Node]()
}

// calleeNameNode resolves the node naming the invoked function: the last segment of
// a member access or qualified name.
func calleeNameNode(callee *tree_sitter.Node) *tree_sitter.Node {
	if callee == nil {
		return nil
	}
	switch callee.Kind() {
	case "identifier", "field_identifier", "property_identifier":
		return callee
	case "attribute":
		return callee.ChildByFieldName("attribute")
	case "member_expression":
		return callee.ChildByFieldName("property")
	case "selector_expression", "field_expression":
		return callee.ChildByFieldName("field")
	case "qualified_identifier", "scoped_identifier", "template_function", "generic_function":
		if name := callee.ChildByFieldName("name"); name != nil {
			return calleeNameNode(name)
		}
		if fn := callee.ChildByFieldName("function"); fn != nil {
			return calleeNameNode(fn)
		}
	}
	return nil
}

// callCandidate names a call by its callee's last segment. When the callee shape is
// not recognised the text before the first parenthesis is split on dots instead,
// offsetting the column by the dropped prefix.
func callCandidate(tree *parser.Tree, call *tree_sitter.Node, callee *tree_sitter.Node) types.CallCandidate {
	if nameNode := calleeNameNode(callee); nameNode != nil {
		return types.CallCandidate{Name: tree.RawText(nameNode), Position: parser.StartOf(nameNode)}
	}

	pos := parser.StartOf(call)
	full := tree.RawText(call)
	if i := strings.Index(full, "("); i >= 0 {
		full = full[:i]
	}
	if i := strings.LastIndex(full, "."); i >= 0 && !strings.Contains(full, "\n") {
		pos.Column += i + 1
		full = full[i+1:]
	}
	return types.CallCandidate{Name: strings.TrimSpace(full), Position: pos}
}

var commentKinds = map[string]bool{
	"comment":       true,
	"line_comment":  true,
	"block_comment": true,
}

// leadingComments joins the comments directly above a declaration. Comments separated
// from the declaration (or from each other) by a blank line are not included.
func leadingComments(tree *parser.Tree, decl *tree_sitter.Node) *string {
	var parts []string
	line := parser.StartOf(decl).Line
	for prev := decl.PrevSibling(); prev != nil && commentKinds[prev.Kind()]; prev = prev.PrevSibling() {
		if parser.EndOf(prev).Line < line-1 {
			break
		}
		// rust doc comments own their trailing newline
		parts = append(parts, strings.TrimRight(tree.RawText(prev), "\r\n"))
		line = parser.StartOf(prev).Line
	}
	if len(parts) == 0 {
		return nil
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	doc := strings.Join(parts, "\n")
	return &doc
}

// firstAtLine returns the first node of the given kind starting at line
func firstAtLine(root *tree_sitter.Node, kind string, line int) *tree_sitter.Node {
	for _, n := range parser.NodesOfType(root, kind) {
		if int(n.StartPosition().Row) == line {
			return n
		}
	}
	return nil
}

func fieldText(tree *parser.Tree, n *tree_sitter.Node, field string) string {
	if n == nil {
		return ""
	}
	return tree.RawText(n.ChildByFieldName(field))
}

var fuzzyFocalPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)test_(\w+)`),
	regexp.MustCompile(`(?i)(\w+)_test`),
	regexp.MustCompile(`(?i)Test(\w+)`),
	regexp.MustCompile(`(?i)(\w+)Test`),
}

// FuzzyFocalName guesses the focal name a test is named after by stripping a
// test_/_test/Test affix. The first matching pattern wins; names without an affix are
// returned unchanged.
func FuzzyFocalName(testName string) string {
	for _, re := range fuzzyFocalPatterns {
		if m := re.FindStringSubmatch(testName); m != nil {
			return m[1]
		}
	}
	return testName
}

// parseSnippet parses a code fragment for header extraction
func parseSnippet(lang types.Language, code string) (*parser.Tree, bool) {
	tree, err := parser.Default().ParseString(lang, code)
	if err != nil {
		return nil, false
	}
	return tree, true
}
