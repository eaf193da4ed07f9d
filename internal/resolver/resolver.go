// Package resolver maps a focal call to the location of its definition, either by
// asking a language server or by looking the name up in a self-built index.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/standardbeagle/unitsync/internal/debug"
	"github.com/standardbeagle/unitsync/internal/types"
)

// Query is one focal call to resolve
type Query struct {
	Language types.Language
	// File is the test file containing the call, absolute or relative to the workspace
	File string
	Call types.CallCandidate
}

// Resolver finds definitions for focal calls of one workspace.
// Start must succeed before Resolve is called; Stop releases the collaborator
// and is safe to call after a failed Start.
type Resolver interface {
	Start(ctx context.Context) error
	Resolve(ctx context.Context, q Query) types.Result[types.DefinitionLocation]
	Stop(ctx context.Context) error
}

// Run starts r, hands it to fn and stops it on every exit path, including panics
// in fn. Errors from Stop are joined with fn's.
func Run(ctx context.Context, r Resolver, fn func(Resolver) error) (err error) {
	defer func() {
		// Stop runs on a fresh context so a cancelled run still shuts the server down
		stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), stopTimeout)
		defer cancel()
		if stopErr := r.Stop(stopCtx); stopErr != nil {
			debug.Log(debug.Resolve, "stop failed: %v\n", stopErr)
			err = errors.Join(err, fmt.Errorf("stop resolver: %w", stopErr))
		}
	}()

	if err := r.Start(ctx); err != nil {
		return fmt.Errorf("start resolver: %w", err)
	}
	return fn(r)
}

// Options selects and configures a resolver strategy
type Options struct {
	// Command overrides the language server command line
	Command []string
	// Timeout bounds each server request
	Timeout time.Duration
	// RustIndex resolves Rust with the self-built index instead of a server
	RustIndex bool
}

// New returns the resolver strategy for lang in workspace
func New(workspace string, lang types.Language, opts Options) Resolver {
	if lang == types.Rust && opts.RustIndex {
		return NewRustIndex(workspace)
	}
	return NewLSP(workspace, lang, opts.Command, opts.Timeout)
}
