package parser

import (
	"fmt"
	"os"
	"strings"
	"sync"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_cpp "github.com/tree-sitter/tree-sitter-cpp/bindings/go"
	tree_sitter_go "github.com/tree-sitter/tree-sitter-go/bindings/go"
	tree_sitter_java "github.com/tree-sitter/tree-sitter-java/bindings/go"
	tree_sitter_javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"
	tree_sitter_rust "github.com/tree-sitter/tree-sitter-rust/bindings/go"

	"github.com/standardbeagle/unitsync/internal/debug"
	"github.com/standardbeagle/unitsync/internal/errors"
	"github.com/standardbeagle/unitsync/internal/types"
)

// Registry maps each supported language to its loaded grammar.
// It is built once and never mutated, so it is safe for concurrent use.
// tree_sitter.Parser is not safe for concurrent use, so a new parser is created per Parse call.
type Registry struct {
	languages map[types.Language]*tree_sitter.Language
}

var (
	defaultRegistry *Registry
	registryOnce    sync.Once
)

// Default returns the process-wide registry, loading the grammars on first use
func Default() *Registry {
	registryOnce.Do(func() {
		defaultRegistry = NewRegistry()
		debug.Log(debug.Parse, "loaded %d grammars\n", len(defaultRegistry.languages))
	})
	return defaultRegistry
}

// NewRegistry loads every grammar. Most callers want Default.
func NewRegistry() *Registry {
	return &Registry{
		languages: map[types.Language]*tree_sitter.Language{
			types.Python:     tree_sitter.NewLanguage(tree_sitter_python.Language()),
			types.Java:       tree_sitter.NewLanguage(tree_sitter_java.Language()),
			types.JavaScript: tree_sitter.NewLanguage(tree_sitter_javascript.Language()),
			types.Go:         tree_sitter.NewLanguage(tree_sitter_go.Language()),
			types.Rust:       tree_sitter.NewLanguage(tree_sitter_rust.Language()),
			types.Cpp:        tree_sitter.NewLanguage(tree_sitter_cpp.Language()),
		},
	}
}

// Language returns the grammar for lang
func (r *Registry) Language(lang types.Language) (*tree_sitter.Language, error) {
	language, ok := r.languages[lang]
	if !ok {
		return nil, fmt.Errorf("no grammar registered for %s", lang)
	}
	return language, nil
}

// Parse parses src as lang. The caller owns the returned tree and must Close it.
func (r *Registry) Parse(lang types.Language, src []byte) (*Tree, error) {
	language, err := r.Language(lang)
	if err != nil {
		return nil, errors.NewParseError("", lang.String(), err)
	}

	parser := tree_sitter.NewParser()
	defer parser.Close()
	if err := parser.SetLanguage(language); err != nil {
		return nil, errors.NewParseError("", lang.String(), err)
	}

	tree := parser.Parse(src, nil)
	if tree == nil {
		return nil, errors.NewParseError("", lang.String(), fmt.Errorf("parser returned no tree"))
	}
	return &Tree{tree: tree, src: src, lang: lang}, nil
}

// ParseString is Parse for source held as a string
func (r *Registry) ParseString(lang types.Language, src string) (*Tree, error) {
	return r.Parse(lang, []byte(src))
}

// ParseFile reads and parses the file at path
func (r *Registry) ParseFile(lang types.Language, path string) (*Tree, error) {
	src, err := ReadSource(path)
	if err != nil {
		return nil, err
	}
	return r.ParseSource(lang, path, src)
}

// ParseSource parses src as the content of path. Callers use it when the content
// was preprocessed (e.g. with ReplaceTabs) before parsing.
func (r *Registry) ParseSource(lang types.Language, path, src string) (*Tree, error) {
	tree, err := r.Parse(lang, []byte(src))
	if err != nil {
		if pe, ok := err.(*errors.ParseError); ok {
			pe.FilePath = path
		}
		return nil, err
	}
	tree.path = path
	return tree, nil
}

// ReadSource reads a source file, replacing invalid UTF-8 with U+FFFD
func ReadSource(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", errors.NewFileError("read", path, err)
	}
	return strings.ToValidUTF8(string(data), "�"), nil
}

// ReplaceTabs expands tabs to four spaces
func ReplaceTabs(src string) string {
	return strings.ReplaceAll(src, "\t", "    ")
}
