package resolver

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/unitsync/internal/errors"
	"github.com/standardbeagle/unitsync/internal/types"
)

// stubResolver records its lifecycle and answers every query with loc
type stubResolver struct {
	startErr error
	stopErr  error
	loc      types.Maybe[types.DefinitionLocation]
	started  bool
	stopped  int
	queries  []Query
}

func (s *stubResolver) Start(context.Context) error {
	s.started = true
	return s.startErr
}

func (s *stubResolver) Resolve(_ context.Context, q Query) types.Result[types.DefinitionLocation] {
	s.queries = append(s.queries, q)
	return types.FromMaybe(s.loc, errors.NoDefinition)
}

func (s *stubResolver) Stop(context.Context) error {
	s.stopped++
	return s.stopErr
}

func TestRunAlwaysStops(t *testing.T) {
	boom := stderrors.New("boom")

	t.Run("success", func(t *testing.T) {
		r := &stubResolver{}
		called := false
		err := Run(context.Background(), r, func(Resolver) error {
			called = true
			return nil
		})
		require.NoError(t, err)
		assert.True(t, called)
		assert.Equal(t, 1, r.stopped)
	})

	t.Run("start failure skips fn", func(t *testing.T) {
		r := &stubResolver{startErr: boom}
		err := Run(context.Background(), r, func(Resolver) error {
			t.Fatal("fn must not run")
			return nil
		})
		require.ErrorIs(t, err, boom)
		assert.Equal(t, 1, r.stopped)
	})

	t.Run("fn error joined with stop error", func(t *testing.T) {
		stopErr := stderrors.New("stop")
		r := &stubResolver{stopErr: stopErr}
		err := Run(context.Background(), r, func(Resolver) error { return boom })
		require.ErrorIs(t, err, boom)
		require.ErrorIs(t, err, stopErr)
		assert.Equal(t, 1, r.stopped)
	})

	t.Run("cancelled context still stops", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		r := &stubResolver{}
		err := Run(ctx, r, func(Resolver) error {
			cancel()
			return ctx.Err()
		})
		require.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, r.stopped)
	})

	t.Run("panic in fn", func(t *testing.T) {
		r := &stubResolver{}
		assert.Panics(t, func() {
			_ = Run(context.Background(), r, func(Resolver) error { panic("bad") })
		})
		assert.Equal(t, 1, r.stopped)
	})
}

func TestNewSelectsStrategy(t *testing.T) {
	_, isIndex := New(t.TempDir(), types.Rust, Options{RustIndex: true}).(*RustIndex)
	assert.True(t, isIndex)

	_, isLSP := New(t.TempDir(), types.Rust, Options{}).(*LSPResolver)
	assert.True(t, isLSP)

	_, isLSP = New(t.TempDir(), types.Python, Options{RustIndex: true}).(*LSPResolver)
	assert.True(t, isLSP)
}

func TestDefaultCommand(t *testing.T) {
	for _, lang := range types.Languages {
		assert.NotEmpty(t, DefaultCommand(lang), lang.String())
	}
	assert.Equal(t, []string{"python3", "-m", "pylsp"}, DefaultCommand(types.Python))
	assert.Equal(t, []string{"typescript-language-server", "--stdio"}, DefaultCommand(types.JavaScript))
	assert.Nil(t, DefaultCommand(types.LanguageUnknown))
}
