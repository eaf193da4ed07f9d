package resolver

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/hbollon/go-edlib"

	"github.com/standardbeagle/unitsync/internal/config"
	"github.com/standardbeagle/unitsync/internal/debug"
	"github.com/standardbeagle/unitsync/internal/errors"
	"github.com/standardbeagle/unitsync/internal/parser"
	"github.com/standardbeagle/unitsync/internal/types"
)

// indexEntry is one indexed function_item
type indexEntry struct {
	relPath string
	loc     types.DefinitionLocation
}

// RustIndex resolves Rust calls by name against every function in the crate's
// source directory, ranking same-named candidates by path similarity.
type RustIndex struct {
	workspace string
	srcDir    string
	byName    map[string][]indexEntry
	files     int
}

// NewRustIndex returns an index for the crate at workspace. Its source directory
// is read from Cargo.toml when Start runs.
func NewRustIndex(workspace string) *RustIndex {
	return &RustIndex{workspace: workspace}
}

// Start walks the source directory and indexes every function by name.
// Files that fail to parse are skipped.
func (ix *RustIndex) Start(ctx context.Context) error {
	abs, err := filepath.Abs(ix.workspace)
	if err != nil {
		return err
	}
	ix.workspace = abs
	ix.srcDir = filepath.Join(abs, config.CargoSourceDir(abs))
	ix.byName = make(map[string][]indexEntry)
	ix.files = 0

	matches, err := doublestar.Glob(os.DirFS(ix.srcDir), "**/*.rs")
	if err != nil {
		return errors.NewFileError("glob", ix.srcDir, err)
	}
	sort.Strings(matches)

	for _, rel := range matches {
		if err := ctx.Err(); err != nil {
			return err
		}
		path := filepath.Join(ix.srcDir, filepath.FromSlash(rel))
		if err := ix.indexFile(path); err != nil {
			debug.Log(debug.Resolve, "index %s: %v\n", path, err)
			continue
		}
		ix.files++
	}
	debug.Log(debug.Resolve, "indexed %d function names from %d files under %s\n", len(ix.byName), ix.files, ix.srcDir)
	return nil
}

func (ix *RustIndex) indexFile(path string) error {
	tree, err := parser.Default().ParseFile(types.Rust, path)
	if err != nil {
		return err
	}
	defer tree.Close()

	rel, err := filepath.Rel(ix.workspace, path)
	if err != nil {
		rel = path
	}
	rel = filepath.ToSlash(rel)

	for _, fn := range parser.NodesOfType(tree.Root(), "function_item") {
		name := fn.ChildByFieldName("name")
		if name == nil {
			continue
		}
		key := tree.RawText(name)
		ix.byName[key] = append(ix.byName[key], indexEntry{
			relPath: rel,
			loc: types.DefinitionLocation{
				FilePath: path,
				Start:    parser.StartOf(fn),
				End:      parser.EndOf(fn),
			},
		})
	}
	return nil
}

// Len returns the number of distinct indexed function names
func (ix *RustIndex) Len() int {
	return len(ix.byName)
}

// Resolve looks the call's base name up and returns the candidate whose path is
// most similar to the call's include name.
func (ix *RustIndex) Resolve(_ context.Context, q Query) types.Result[types.DefinitionLocation] {
	candidates := ix.Candidates(q.Call.Name)
	if len(candidates) == 0 {
		return types.Failure[types.DefinitionLocation](errors.IndexNoDefinition())
	}
	return types.Success(candidates[0])
}

// Candidates returns every indexed definition matching call, best first
func (ix *RustIndex) Candidates(call string) []types.DefinitionLocation {
	include, base := SplitRustCall(call)
	entries := ix.byName[base]
	if len(entries) == 0 {
		return nil
	}

	type scored struct {
		loc   types.DefinitionLocation
		score float32
	}
	ranked := make([]scored, len(entries))
	for i, e := range entries {
		score, err := edlib.StringsSimilarity(e.relPath, include, edlib.JaroWinkler)
		if err != nil {
			score = 0
		}
		ranked[i] = scored{loc: e.loc, score: score}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })

	locs := make([]types.DefinitionLocation, len(ranked))
	for i, s := range ranked {
		locs[i] = s.loc
	}
	return locs
}

// Stop releases the index
func (ix *RustIndex) Stop(context.Context) error {
	ix.byName = nil
	return nil
}

// SplitRustCall derives the include name and the function name to look up from a
// focal call's text. For a method chain the include name is the receiver and the
// name is the last method, or the one before it when the last is an unwrap.
// Path-qualified names are looked up by their final segment.
func SplitRustCall(call string) (include, base string) {
	parts := strings.Split(call, ".")
	if len(parts) == 1 {
		include, _, _ = strings.Cut(call, "(")
		return include, lastPathSegment(include)
	}

	include = parts[0]
	method := parts[len(parts)-1]
	if strings.Contains(method, "unwrap") {
		method = parts[len(parts)-2]
	}
	base, _, _ = strings.Cut(method, "(")
	return include, lastPathSegment(base)
}

func lastPathSegment(name string) string {
	name = strings.TrimSpace(name)
	// turbofish: parse::<u8>
	if i := strings.Index(name, "::<"); i >= 0 {
		name = name[:i]
	}
	if i := strings.LastIndex(name, "::"); i >= 0 {
		name = name[i+2:]
	}
	return name
}
