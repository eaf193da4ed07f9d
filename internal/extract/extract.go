// Package extract turns a resolved definition location into the declaration's
// source text, docstring and code id.
package extract

import (
	"path/filepath"
	"strings"

	"github.com/standardbeagle/unitsync/internal/debug"
	"github.com/standardbeagle/unitsync/internal/errors"
	"github.com/standardbeagle/unitsync/internal/frontend"
	"github.com/standardbeagle/unitsync/internal/parser"
	"github.com/standardbeagle/unitsync/internal/types"
)

// Extractor reads declarations from files of one workspace
type Extractor struct {
	workspace string
	registry  *parser.Registry
}

// New returns an extractor producing code ids relative to workspace
func New(workspace string) *Extractor {
	return &Extractor{workspace: workspace, registry: parser.Default()}
}

// Workspace returns the root code ids are relative to
func (e *Extractor) Workspace() string {
	return e.workspace
}

// Extract re-parses the file at loc and returns the declaration starting on loc's
// line. A file that cannot be read or parsed fails with KindParse; a line without
// a declaration fails with KindNotFound.
func (e *Extractor) Extract(lang types.Language, loc types.DefinitionLocation) types.Result[types.Source] {
	fe, err := frontend.For(lang)
	if err != nil {
		return types.Failure[types.Source](errors.UnreadableSource(loc.FilePath, err))
	}

	src, err := parser.ReadSource(loc.FilePath)
	if err != nil {
		debug.Log(debug.Resolve, "extract %s: %v", loc, err)
		return types.Failure[types.Source](errors.UnreadableSource(loc.FilePath, err))
	}
	tree, err := e.registry.ParseSource(lang, loc.FilePath, parser.ReplaceTabs(src))
	if err != nil {
		debug.Log(debug.Resolve, "extract %s: %v", loc, err)
		return types.Failure[types.Source](errors.UnreadableSource(loc.FilePath, err))
	}
	defer tree.Close()

	decl, ok := fe.DefinitionAt(tree, loc.Start.Line).Get()
	if !ok {
		return types.Failure[types.Source](errors.SourceNotFound(loc.FilePath, loc.Start.Line, loc.Start.Column))
	}
	return types.Success(types.Source{
		Code: tree.Text(decl),
		Doc:  fe.Docstring(tree, decl),
		ID:   e.CodeID(loc.FilePath, fe.DeclarationName(tree, decl)),
	})
}

// CodeID joins the workspace-relative path and a declaration name
func (e *Extractor) CodeID(path, name string) string {
	return RelativeTo(e.workspace, path) + "::" + name
}

// RelativeTo returns path relative to root using forward slashes. Paths outside
// root, or when root is empty, are returned cleaned but otherwise unchanged.
func RelativeTo(root, path string) string {
	if root == "" {
		return filepath.ToSlash(filepath.Clean(path))
	}
	absRoot, err1 := filepath.Abs(root)
	absPath, err2 := filepath.Abs(path)
	if err1 != nil || err2 != nil {
		return filepath.ToSlash(filepath.Clean(path))
	}
	rel, err := filepath.Rel(absRoot, absPath)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return filepath.ToSlash(filepath.Clean(path))
	}
	return filepath.ToSlash(rel)
}
