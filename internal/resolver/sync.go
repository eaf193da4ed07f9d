package resolver

import (
	"context"
	"strings"

	"github.com/standardbeagle/unitsync/internal/errors"
	"github.com/standardbeagle/unitsync/internal/extract"
	"github.com/standardbeagle/unitsync/internal/types"
)

// Synchronizer turns focal calls into focal sources: it resolves the call and
// extracts the declaration found at the definition.
type Synchronizer struct {
	resolver  Resolver
	extractor *extract.Extractor
	lang      types.Language
}

// NewSynchronizer pairs a started resolver with an extractor for the same workspace
func NewSynchronizer(r Resolver, ex *extract.Extractor, lang types.Language) *Synchronizer {
	return &Synchronizer{resolver: r, extractor: ex, lang: lang}
}

// SourceOfCall resolves q and extracts the definition's source
func (s *Synchronizer) SourceOfCall(ctx context.Context, q Query) types.Result[types.Source] {
	if q.Language == types.LanguageUnknown {
		q.Language = s.lang
	}
	return types.Bind(s.resolver.Resolve(ctx, q), func(loc types.DefinitionLocation) types.Result[types.Source] {
		return s.extract(loc)
	})
}

func (s *Synchronizer) extract(loc types.DefinitionLocation) types.Result[types.Source] {
	return types.Bind(s.extractor.Extract(s.lang, loc), func(v types.Source) types.Result[types.Source] {
		if strings.TrimSpace(v.Code) == "" {
			return types.Failure[types.Source](errors.EmptySource(loc.FilePath))
		}
		return types.Success(v)
	})
}
