package collect

import (
	"context"

	"github.com/standardbeagle/unitsync/internal/extract"
	"github.com/standardbeagle/unitsync/internal/frontend"
	"github.com/standardbeagle/unitsync/internal/metrics"
	"github.com/standardbeagle/unitsync/internal/parser"
	"github.com/standardbeagle/unitsync/internal/types"
)

// FileFocal is the outcome of collecting one test file
type FileFocal struct {
	Path string
	// Records holds one record per discovered test; FocalLoc is nil when no focal
	// call was located
	Records []types.FocalRecord
}

// Located counts records with a focal call
func (f FileFocal) Located() int {
	n := 0
	for _, r := range f.Records {
		if r.FocalLoc != nil {
			n++
		}
	}
	return n
}

// CollectFile discovers the tests of one file and locates each test's focal call.
// Test ids are relative to idRoot. The file is parsed with tabs expanded so
// positions agree with what the language server is sent. ctx is checked between
// tests; on cancellation the records so far are returned with ctx's error.
func CollectFile(ctx context.Context, lang types.Language, idRoot, path string, rec *metrics.Recorder) (FileFocal, error) {
	fe, err := frontend.For(lang)
	if err != nil {
		return FileFocal{}, err
	}
	src, err := parser.ReadSource(path)
	if err != nil {
		return FileFocal{}, err
	}
	tree, err := parser.Default().ParseSource(lang, path, parser.ReplaceTabs(src))
	if err != nil {
		return FileFocal{}, err
	}
	defer tree.Close()

	prefix := extract.RelativeTo(idRoot, path)
	out := FileFocal{Path: path}
	for _, test := range fe.DiscoverTests(tree) {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		record := types.FocalRecord{
			TestID:  prefix + "::" + test.Name,
			TestLoc: test.DeclaredAt,
			Test:    tree.Text(test.Node),
		}
		if call, ok := fe.LocateFocal(tree, test).Get(); ok {
			name, pos := call.Name, call.Position
			record.FocalID = &name
			record.FocalLoc = &pos
		}
		rec.ObserveFocal(lang.ShortName(), record.FocalLoc != nil)
		out.Records = append(out.Records, record)
	}
	return out, nil
}
