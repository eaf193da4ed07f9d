package frontend

import (
	"fmt"
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/standardbeagle/unitsync/internal/parser"
	"github.com/standardbeagle/unitsync/internal/types"
)

// pytestFilePatterns follow pytest's default test discovery
var pytestFilePatterns = []string{"*_test.py", "test_*.py"}

// staticDecorators mark class members collected as tests regardless of their name
var staticDecorators = map[string]bool{
	"staticmethod": true,
	"classmethods": true,
}

type pythonFrontend struct{}

func (pythonFrontend) Language() types.Language { return types.Python }

func (pythonFrontend) MatchesFile(relPath, _ string) bool {
	base := path.Base(strings.ReplaceAll(relPath, "\\", "/"))
	for _, pattern := range pytestFilePatterns {
		if ok, _ := doublestar.Match(pattern, base); ok {
			return true
		}
	}
	return false
}

func pythonClasses(fn *tree_sitter.Node) []*tree_sitter.Node {
	var classes []*tree_sitter.Node
	for p := fn.Parent(); p != nil; p = p.Parent() {
		if p.Kind() == "class_definition" {
			classes = append([]*tree_sitter.Node{p}, classes...)
		}
	}
	return classes
}

// isTestClass: a Test-prefixed class or a TestCase subclass, without an __init__
func isTestClass(tree *parser.Tree, class *tree_sitter.Node) bool {
	isTest := strings.HasPrefix(fieldText(tree, class, "name"), "Test")
	if bases := class.ChildByFieldName("superclasses"); bases != nil && !isTest {
		for _, base := range parser.Children(bases) {
			switch base.Kind() {
			case "identifier":
				isTest = isTest || tree.RawText(base) == "TestCase"
			case "attribute":
				isTest = isTest || fieldText(tree, base, "attribute") == "TestCase"
			}
		}
	}
	if !isTest {
		return false
	}
	for _, fn := range parser.NodesOfType(class, "function_definition") {
		if fieldText(tree, fn, "name") == "__init__" {
			return false
		}
	}
	return true
}

func hasStaticDecorator(tree *parser.Tree, fn *tree_sitter.Node) bool {
	decorated := fn.Parent()
	if decorated == nil || decorated.Kind() != "decorated_definition" {
		return false
	}
	for _, dec := range parser.Children(decorated) {
		if dec.Kind() != "decorator" {
			continue
		}
		if id := parser.FirstChildOfKind(dec, "identifier"); id != nil && staticDecorators[tree.RawText(id)] {
			return true
		}
	}
	return false
}

// hasPythonAssert looks for an assert statement or a unittest-style self.assertX call
func hasPythonAssert(tree *parser.Tree, fn *tree_sitter.Node) bool {
	if len(parser.NodesOfType(fn, "assert_statement")) > 0 {
		return true
	}
	for _, call := range parser.NodesOfType(fn, "call") {
		callee := call.ChildByFieldName("function")
		if callee != nil && callee.Kind() == "attribute" &&
			strings.HasPrefix(fieldText(tree, callee, "attribute"), "assert") {
			return true
		}
	}
	return false
}

// DiscoverTests applies pytest's conventions: test-prefixed functions outside
// classes, and test-prefixed or static members of test classes. A test must
// contain an assertion.
func (pythonFrontend) DiscoverTests(tree *parser.Tree) []types.TestFunction {
	var tests []types.TestFunction
	for _, fn := range tree.NodesOfType(tree.Root(), "function_definition") {
		name := fieldText(tree, fn, "name")
		classes := pythonClasses(fn)

		var isTest bool
		if len(classes) == 0 {
			isTest = strings.HasPrefix(name, "test")
		} else {
			inTestClass := false
			for _, class := range classes {
				if isTestClass(tree, class) {
					inTestClass = true
					break
				}
			}
			isTest = inTestClass && (strings.HasPrefix(name, "test") || hasStaticDecorator(tree, fn))
		}
		if !isTest || !hasPythonAssert(tree, fn) {
			continue
		}

		parts := make([]string, 0, len(classes)+1)
		for _, class := range classes {
			parts = append(parts, fieldText(tree, class, "name"))
		}
		tests = append(tests, types.TestFunction{
			Name:       strings.Join(append(parts, name), "::"),
			Node:       fn,
			DeclaredAt: parser.StartOf(fn),
		})
	}
	return tests
}

// IsAssertion matches assert statements and calls to assert*-named functions
func (pythonFrontend) IsAssertion(tree *parser.Tree, node *tree_sitter.Node) bool {
	switch node.Kind() {
	case "assert_statement":
		return true
	case "call":
		name := calleeNameNode(node.ChildByFieldName("function"))
		return name != nil && strings.HasPrefix(tree.RawText(name), "assert")
	}
	return false
}

func (p pythonFrontend) LocateFocal(tree *parser.Tree, test types.TestFunction) types.Maybe[types.CallCandidate] {
	var sequence []*tree_sitter.Node
	for _, n := range parser.Postorder(test.Node, "") {
		if n.Kind() == "call" || n.Kind() == "assert_statement" {
			sequence = append(sequence, n)
		}
	}
	focal, ok := lastCallBeforeAssertion(sequence, func(n *tree_sitter.Node) bool {
		return p.IsAssertion(tree, n)
	}).Get()
	if !ok {
		return types.NotFound[types.CallCandidate]()
	}
	return types.Found(callCandidate(tree, focal, focal.ChildByFieldName("function")))
}

func (pythonFrontend) DefinitionAt(tree *parser.Tree, line int) types.Maybe[*tree_sitter.Node] {
	if n := firstAtLine(tree.Root(), "function_definition", line); n != nil {
		return types.Found(n)
	}
	return types.NotFound[*tree_sitter.Node]()
}

func (pythonFrontend) DeclarationName(tree *parser.Tree, decl *tree_sitter.Node) string {
	return fieldText(tree, decl, "name")
}

// Docstring returns the first statement of the body when it is a string literal,
// cleaned up the way inspect.cleandoc does.
func (pythonFrontend) Docstring(tree *parser.Tree, decl *tree_sitter.Node) *string {
	body := decl.ChildByFieldName("body")
	if body == nil {
		return nil
	}
	var first *tree_sitter.Node
	for _, stmt := range parser.Children(body) {
		if !commentKinds[stmt.Kind()] {
			first = stmt
			break
		}
	}
	if first == nil || first.Kind() != "expression_statement" || first.ChildCount() != 1 {
		return nil
	}
	str := first.Child(0)
	if str.Kind() != "string" {
		return nil
	}
	literal, ok := stripPythonQuotes(tree.RawText(str))
	if !ok {
		return nil
	}
	doc := cleandoc(literal)
	return &doc
}

// stripPythonQuotes returns the body of a str literal. Byte and f-strings are not
// docstrings.
func stripPythonQuotes(lit string) (string, bool) {
	i := 0
	for i < len(lit) && strings.ContainsRune("rRuU", rune(lit[i])) {
		i++
	}
	lit = lit[i:]
	for _, q := range []string{`"""`, `'''`, `"`, `'`} {
		if strings.HasPrefix(lit, q) && strings.HasSuffix(lit, q) && len(lit) >= 2*len(q) {
			return lit[len(q) : len(lit)-len(q)], true
		}
	}
	return "", false
}

// cleandoc removes the common indentation of all lines after the first, and strips
// surrounding blank lines.
func cleandoc(doc string) string {
	lines := strings.Split(strings.ReplaceAll(doc, "\t", "        "), "\n")
	margin := -1
	for _, line := range lines[1:] {
		content := strings.TrimLeft(line, " ")
		if content == "" {
			continue
		}
		if indent := len(line) - len(content); margin < 0 || indent < margin {
			margin = indent
		}
	}
	lines[0] = strings.TrimLeft(lines[0], " ")
	if margin > 0 {
		for i := 1; i < len(lines); i++ {
			if len(lines[i]) >= margin {
				lines[i] = lines[i][margin:]
			} else {
				lines[i] = strings.TrimLeft(lines[i], " ")
			}
		}
	}
	for i := range lines {
		lines[i] = strings.TrimRight(lines[i], " ")
	}
	for len(lines) > 0 && lines[0] == "" {
		lines = lines[1:]
	}
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return strings.Join(lines, "\n")
}

// DefHeader renders the first function found breadth-first with its positional
// parameters.
func (pythonFrontend) DefHeader(code string) types.Maybe[string] {
	tree, ok := parseSnippet(types.Python, code)
	if !ok {
		return types.NotFound[string]()
	}
	defer tree.Close()

	queue := []*tree_sitter.Node{tree.Root()}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		if n.Kind() == "function_definition" {
			return types.Found(fmt.Sprintf("def %s(%s):\n",
				fieldText(tree, n, "name"), strings.Join(positionalParams(tree, n), ", ")))
		}
		queue = append(queue, parser.Children(n)...)
	}
	return types.NotFound[string]()
}

// positionalParams lists the parameters that may be passed by position or keyword.
// Positional-only parameters and everything from *args on are left out.
func positionalParams(tree *parser.Tree, fn *tree_sitter.Node) []string {
	var names []string
	for _, param := range parser.Children(fn.ChildByFieldName("parameters")) {
		switch param.Kind() {
		case "identifier":
			names = append(names, tree.RawText(param))
		case "typed_parameter":
			if first := param.Child(0); first != nil && first.Kind() != "identifier" {
				// *args: T and **kwargs: T
				return names
			}
			if id := parser.FirstChildOfKind(param, "identifier"); id != nil {
				names = append(names, tree.RawText(id))
			}
		case "default_parameter", "typed_default_parameter":
			names = append(names, fieldText(tree, param, "name"))
		case "positional_separator":
			names = nil
		case "list_splat_pattern", "keyword_separator", "dictionary_splat_pattern":
			return names
		}
	}
	return names
}
