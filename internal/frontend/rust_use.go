package frontend

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/standardbeagle/unitsync/internal/debug"
	"github.com/standardbeagle/unitsync/internal/errors"
	"github.com/standardbeagle/unitsync/internal/parser"
	"github.com/standardbeagle/unitsync/internal/types"
)

// FlattenUseDecl splits a use declaration with a brace list into one declaration per
// item:
//
//	use rand::{Rng, SeedableRng};  =>  use rand::Rng;  use rand::SeedableRng;
//
// A plain wildcard import is returned unchanged. Anything else, including code that
// is not exactly one use declaration, yields nil.
func FlattenUseDecl(code string) []string {
	tree, ok := parseSnippet(types.Rust, code)
	if !ok {
		return nil
	}
	defer tree.Close()

	decls := tree.NodesOfType(tree.Root(), "use_declaration")
	if len(decls) != 1 {
		return nil
	}
	decl := decls[0]

	lists := parser.NodesOfType(decl, "scoped_use_list")
	if len(lists) == 0 {
		if len(parser.NodesOfType(decl, "use_wildcard")) > 0 {
			return []string{code}
		}
		return nil
	}

	children := parser.Children(lists[0])
	if len(children) == 0 {
		return nil
	}
	useList := children[len(children)-1]
	if useList.Kind() != "use_list" {
		return nil
	}

	base := joinText(tree, children[:len(children)-1])
	var flat []string
	for _, item := range parser.Children(useList) {
		if u := useItemText(tree, item); u != "" {
			flat = append(flat, "use "+base+u+";")
		}
	}
	return flat
}

func joinText(tree *parser.Tree, nodes []*tree_sitter.Node) string {
	var sb strings.Builder
	for _, n := range nodes {
		sb.WriteString(tree.RawText(n))
	}
	return sb.String()
}

// useItemText renders one element of a use list. Punctuation renders as "".
func useItemText(tree *parser.Tree, item *tree_sitter.Node) string {
	switch item.Kind() {
	case "identifier", "use_wildcard", "use_as_clause":
		return tree.RawText(item)
	case "scoped_identifier":
		return joinText(tree, parser.Children(item))
	default:
		return ""
	}
}

// ConstructUseDecls collects the flattened use declarations of every .rs file below
// workspace/subdir. Declarations without a brace list are kept as written. The result
// is sorted and free of duplicates.
func ConstructUseDecls(workspace, subdir string) ([]string, error) {
	root := filepath.Join(workspace, subdir)
	files, err := doublestar.Glob(os.DirFS(root), "**/*.rs")
	if err != nil {
		return nil, errors.NewFileError("glob", root, err)
	}

	seen := make(map[string]struct{})
	for _, rel := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		tree, err := parser.Default().ParseFile(types.Rust, path)
		if err != nil {
			debug.Log(debug.Parse, "skipping %s: %v\n", path, err)
			continue
		}
		for _, decl := range tree.NodesOfType(tree.Root(), "use_declaration") {
			text := tree.RawText(decl)
			flat := FlattenUseDecl(text)
			if len(flat) == 0 && parser.FirstDescendantOfKind(decl, "use_list") == nil {
				flat = []string{strings.TrimSpace(text)}
			}
			for _, use := range flat {
				seen[use] = struct{}{}
			}
		}
		tree.Close()
	}

	decls := make([]string, 0, len(seen))
	for use := range seen {
		decls = append(decls, use)
	}
	sort.Strings(decls)
	return decls, nil
}
