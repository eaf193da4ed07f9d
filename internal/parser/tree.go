package parser

import (
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/standardbeagle/unitsync/internal/types"
)

// DefaultMaxDepth bounds NodesOfType recursion
const DefaultMaxDepth = 50

// declarationKinds are extracted as whole lines with the first line's indent removed,
// so a nested method reads as if declared at column zero.
var declarationKinds = map[string]bool{
	"method_declaration":   true,
	"function_definition":  true,
	"function_declaration": true,
	"function_item":        true,
}

// Tree is a parsed source file. Nodes obtained from it are only valid until Close.
type Tree struct {
	tree *tree_sitter.Tree
	src  []byte
	lang types.Language
	path string
}

// Root returns the root node
func (t *Tree) Root() *tree_sitter.Node {
	return t.tree.RootNode()
}

// Source returns the parsed bytes
func (t *Tree) Source() []byte {
	return t.src
}

// Language returns the grammar the tree was parsed with
func (t *Tree) Language() types.Language {
	return t.lang
}

// Path returns the file the tree was read from, empty for in-memory sources
func (t *Tree) Path() string {
	return t.path
}

// Close releases the underlying tree-sitter tree
func (t *Tree) Close() {
	if t.tree != nil {
		t.tree.Close()
		t.tree = nil
	}
}

// RawText returns exactly the bytes the node spans
func (t *Tree) RawText(n *tree_sitter.Node) string {
	if n == nil {
		return ""
	}
	return string(t.src[n.StartByte():n.EndByte()])
}

// Text returns the source of a node. Declarations are returned as full lines
// with the first line's leading whitespace removed from every line.
func (t *Tree) Text(n *tree_sitter.Node) string {
	if n == nil {
		return ""
	}
	if !declarationKinds[n.Kind()] {
		return t.RawText(n)
	}

	start := int(n.StartPosition().Row)
	end := int(n.EndPosition().Row)
	lines := strings.Split(string(t.src), "\n")
	if end >= len(lines) {
		end = len(lines) - 1
	}
	if start > end {
		return t.RawText(n)
	}
	return strings.Join(dedentLines(lines[start:end+1]), "\n")
}

// dedentLines removes the first line's indentation from each line. A line that does not
// share that whitespace prefix keeps only the part after its own whitespace.
func dedentLines(lines []string) []string {
	out := make([]string, len(lines))
	first := strings.TrimSuffix(lines[0], "\r")
	indent := first[:len(first)-len(strings.TrimLeft(first, " \t"))]
	for i, line := range lines {
		line = strings.TrimSuffix(line, "\r")
		if strings.HasPrefix(line, indent) {
			out[i] = line[len(indent):]
		} else {
			out[i] = strings.TrimLeft(line, " \t")
		}
	}
	return out
}

// NodesOfType collects descendants of root (excluding root) in preorder whose kind
// equals kind. An empty kind matches every node.
func (t *Tree) NodesOfType(root *tree_sitter.Node, kind string) []*tree_sitter.Node {
	return NodesOfType(root, kind)
}

// NodesOfType is the tree-independent form of Tree.NodesOfType
func NodesOfType(root *tree_sitter.Node, kind string) []*tree_sitter.Node {
	return NodesOfTypeDepth(root, kind, DefaultMaxDepth)
}

// NodesOfTypeDepth is NodesOfType with an explicit depth limit
func NodesOfTypeDepth(root *tree_sitter.Node, kind string, maxDepth int) []*tree_sitter.Node {
	var nodes []*tree_sitter.Node
	collectPreorder(root, kind, maxDepth, &nodes)
	return nodes
}

func collectPreorder(n *tree_sitter.Node, kind string, level int, out *[]*tree_sitter.Node) {
	if n == nil || level == 0 {
		return
	}
	for i := uint(0); i < n.ChildCount(); i++ {
		child := n.Child(i)
		if child == nil {
			continue
		}
		if kind == "" || child.Kind() == kind {
			*out = append(*out, child)
		}
		collectPreorder(child, kind, level-1, out)
	}
}

// Postorder collects root and its descendants in postorder whose kind equals kind.
// An empty kind matches every node.
func Postorder(root *tree_sitter.Node, kind string) []*tree_sitter.Node {
	var nodes []*tree_sitter.Node
	var walk func(n *tree_sitter.Node)
	walk = func(n *tree_sitter.Node) {
		for i := uint(0); i < n.ChildCount(); i++ {
			if child := n.Child(i); child != nil {
				walk(child)
			}
		}
		if kind == "" || n.Kind() == kind {
			nodes = append(nodes, n)
		}
	}
	if root != nil {
		walk(root)
	}
	return nodes
}

// Children returns the direct children of n
func Children(n *tree_sitter.Node) []*tree_sitter.Node {
	if n == nil {
		return nil
	}
	children := make([]*tree_sitter.Node, 0, n.ChildCount())
	for i := uint(0); i < n.ChildCount(); i++ {
		if child := n.Child(i); child != nil {
			children = append(children, child)
		}
	}
	return children
}

// FirstChildOfKind returns the first direct child with the given kind, or nil
func FirstChildOfKind(n *tree_sitter.Node, kind string) *tree_sitter.Node {
	for _, child := range Children(n) {
		if child.Kind() == kind {
			return child
		}
	}
	return nil
}

// FirstDescendantOfKind returns the first preorder descendant with the given kind, or nil
func FirstDescendantOfKind(n *tree_sitter.Node, kind string) *tree_sitter.Node {
	for _, child := range Children(n) {
		if child.Kind() == kind {
			return child
		}
		if found := FirstDescendantOfKind(child, kind); found != nil {
			return found
		}
	}
	return nil
}

// StartOf returns the node's 0-indexed start position
func StartOf(n *tree_sitter.Node) types.Position {
	p := n.StartPosition()
	return types.Position{Line: int(p.Row), Column: int(p.Column)}
}

// EndOf returns the node's 0-indexed end position
func EndOf(n *tree_sitter.Node) types.Position {
	p := n.EndPosition()
	return types.Position{Line: int(p.Row), Column: int(p.Column)}
}
