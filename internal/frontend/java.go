package frontend

import (
	"regexp"
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/standardbeagle/unitsync/internal/parser"
	"github.com/standardbeagle/unitsync/internal/types"
)

var javaMethodName = regexp.MustCompile(`(\w+)\s*\(`)

type javaFrontend struct{}

func (javaFrontend) Language() types.Language { return types.Java }

// MatchesFile accepts JUnit 4 and JUnit 5 test sources
func (javaFrontend) MatchesFile(relPath, src string) bool {
	if !strings.HasSuffix(relPath, ".java") || !strings.Contains(src, "@Test") {
		return false
	}
	return strings.Contains(src, "import org.junit.Test") ||
		strings.Contains(src, "import org.junit.jupiter.api.Test")
}

func javaModifiers(tree *parser.Tree, method *tree_sitter.Node) []string {
	var mods []string
	for _, child := range parser.Children(method) {
		if child.Kind() != "modifiers" {
			continue
		}
		for _, m := range parser.Children(child) {
			mods = append(mods, tree.RawText(m))
		}
	}
	return mods
}

// javaQualifiedName prefixes a method with its enclosing class names
func javaQualifiedName(tree *parser.Tree, method *tree_sitter.Node) string {
	parts := []string{fieldText(tree, method, "name")}
	for p := method.Parent(); p != nil; p = p.Parent() {
		switch p.Kind() {
		case "class_declaration", "enum_declaration", "interface_declaration", "record_declaration":
			parts = append([]string{fieldText(tree, p, "name")}, parts...)
		}
	}
	return strings.Join(parts, "::")
}

// DiscoverTests returns methods annotated with @Test
func (javaFrontend) DiscoverTests(tree *parser.Tree) []types.TestFunction {
	var tests []types.TestFunction
	for _, method := range tree.NodesOfType(tree.Root(), "method_declaration") {
		isTest := false
		for _, mod := range javaModifiers(tree, method) {
			if mod == "@Test" {
				isTest = true
				break
			}
		}
		if !isTest {
			continue
		}
		tests = append(tests, types.TestFunction{
			Name:       javaQualifiedName(tree, method),
			Node:       method,
			DeclaredAt: parser.StartOf(method),
		})
	}
	return tests
}

func (javaFrontend) IsAssertion(tree *parser.Tree, call *tree_sitter.Node) bool {
	return strings.Contains(tree.RawText(call), "assert")
}

func (j javaFrontend) LocateFocal(tree *parser.Tree, test types.TestFunction) types.Maybe[types.CallCandidate] {
	calls := parser.Postorder(test.Node, "method_invocation")
	focal, ok := lastCallBeforeAssertion(calls, func(n *tree_sitter.Node) bool {
		return j.IsAssertion(tree, n)
	}).Get()
	if !ok {
		return types.NotFound[types.CallCandidate]()
	}

	if name := focal.ChildByFieldName("name"); name != nil {
		return types.Found(types.CallCandidate{Name: tree.RawText(name), Position: parser.StartOf(name)})
	}

	// Without a name field fall back to the last `ident(` in the call text
	text := tree.RawText(focal)
	matches := javaMethodName.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return types.NotFound[types.CallCandidate]()
	}
	last := matches[len(matches)-1]
	pos := parser.StartOf(focal)
	prefix := text[:last[2]]
	if nl := strings.LastIndex(prefix, "\n"); nl >= 0 {
		pos.Line += strings.Count(prefix, "\n")
		pos.Column = len(prefix) - nl - 1
	} else {
		pos.Column += last[2]
	}
	return types.Found(types.CallCandidate{Name: text[last[2]:last[3]], Position: pos})
}

// DefinitionAt also matches a line inside the method's modifier block, where servers
// sometimes point for annotated methods.
func (javaFrontend) DefinitionAt(tree *parser.Tree, line int) types.Maybe[*tree_sitter.Node] {
	for _, method := range tree.NodesOfType(tree.Root(), "method_declaration") {
		row := int(method.StartPosition().Row)
		if row == line {
			return types.Found(method)
		}
		if row <= line && line <= row+len(javaModifiers(tree, method)) {
			return types.Found(method)
		}
	}
	return types.NotFound[*tree_sitter.Node]()
}

func (javaFrontend) DeclarationName(tree *parser.Tree, decl *tree_sitter.Node) string {
	return fieldText(tree, decl, "name")
}

func (javaFrontend) Docstring(tree *parser.Tree, decl *tree_sitter.Node) *string {
	return leadingComments(tree, decl)
}

// DefHeader keeps everything up to the first opening brace
func (javaFrontend) DefHeader(code string) types.Maybe[string] {
	if i := strings.Index(code, "{"); i >= 0 {
		return types.Found(code[:i] + "{\n")
	}
	return types.Found(code + "{\n")
}
