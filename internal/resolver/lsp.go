package resolver

import (
	"context"
	stderrors "errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/standardbeagle/unitsync/internal/debug"
	"github.com/standardbeagle/unitsync/internal/errors"
	"github.com/standardbeagle/unitsync/internal/lsp"
	"github.com/standardbeagle/unitsync/internal/types"
)

// stopTimeout bounds the shutdown of a collaborator
const stopTimeout = 5 * time.Second

// Connector produces an initialized-ready client and the function that tears it down
type Connector func(ctx context.Context) (*lsp.Client, func(context.Context) error, error)

// SpawnConnector runs command in workspace as a language server subprocess
func SpawnConnector(command []string, workspace string, timeout time.Duration) Connector {
	return func(ctx context.Context) (*lsp.Client, func(context.Context) error, error) {
		proc, err := lsp.Spawn(ctx, command, workspace, timeout)
		if err != nil {
			return nil, nil, err
		}
		return proc.Client(), proc.Stop, nil
	}
}

// LSPResolver resolves focal calls with textDocument/definition
type LSPResolver struct {
	workspace string
	realRoot  string
	lang      types.Language
	connect   Connector

	client *lsp.Client
	stop   func(context.Context) error
}

// NewLSP returns a resolver that spawns command for workspace. An empty command
// selects DefaultCommand(lang).
func NewLSP(workspace string, lang types.Language, command []string, timeout time.Duration) *LSPResolver {
	if len(command) == 0 {
		command = DefaultCommand(lang)
	}
	return NewLSPWithConnector(workspace, lang, SpawnConnector(command, workspace, timeout))
}

// NewLSPWithConnector returns a resolver using connect to reach its server
func NewLSPWithConnector(workspace string, lang types.Language, connect Connector) *LSPResolver {
	return &LSPResolver{workspace: workspace, lang: lang, connect: connect}
}

// Start prepares the workspace, connects and performs the initialize handshake
func (r *LSPResolver) Start(ctx context.Context) error {
	abs, err := filepath.Abs(r.workspace)
	if err != nil {
		return err
	}
	r.workspace = abs
	r.realRoot = abs
	if real, err := filepath.EvalSymlinks(abs); err == nil {
		r.realRoot = real
	}

	if r.lang == types.Cpp {
		EnsureCompileCommands(ctx, abs)
	}

	client, stop, err := r.connect(ctx)
	if err != nil {
		return fmt.Errorf("connect %s server: %w", r.lang, err)
	}
	r.client, r.stop = client, stop

	if _, err := client.Initialize(ctx, abs); err != nil {
		return err
	}
	return nil
}

// Resolve opens the test file and asks for the definition at the call position.
// Only the first returned location is used.
func (r *LSPResolver) Resolve(ctx context.Context, q Query) types.Result[types.DefinitionLocation] {
	if r.client == nil {
		return types.Failure[types.DefinitionLocation](errors.RequestFailed(fmt.Errorf("resolver not started")))
	}
	file := q.File
	if !filepath.IsAbs(file) {
		file = filepath.Join(r.workspace, file)
	}

	if err := r.client.DidOpen(ctx, file, r.lang.String()); err != nil {
		return types.Failure[types.DefinitionLocation](errors.RequestFailed(err))
	}
	locs, err := r.client.Definition(ctx, file, q.Call.Position.Line, q.Call.Position.Column)
	if err != nil {
		var unexpected *lsp.UnexpectedResponseError
		if stderrors.As(err, &unexpected) {
			return types.Failure[types.DefinitionLocation](errors.UnexpectedResponse(unexpected.Raw))
		}
		return types.Failure[types.DefinitionLocation](errors.RequestFailed(err))
	}
	if len(locs) == 0 {
		return types.Failure[types.DefinitionLocation](errors.NoDefinition())
	}

	loc := locs[0]
	if !strings.HasPrefix(string(loc.URI), "file://") {
		return types.Failure[types.DefinitionLocation](errors.OutOfWorkspace(string(loc.URI)))
	}
	path := loc.URI.Filename()
	if !r.inWorkspace(path) {
		debug.Log(debug.Resolve, "%s resolved outside workspace: %s\n", q.Call.Name, path)
		return types.Failure[types.DefinitionLocation](errors.OutOfWorkspace(path))
	}
	return types.Success(types.DefinitionLocation{
		FilePath: path,
		Start:    types.Position{Line: int(loc.Range.Start.Line), Column: int(loc.Range.Start.Character)},
		End:      types.Position{Line: int(loc.Range.End.Line), Column: int(loc.Range.End.Character)},
	})
}

func (r *LSPResolver) inWorkspace(path string) bool {
	return within(r.workspace, path) || within(r.realRoot, path)
}

func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && !filepath.IsAbs(rel)
}

// Stop shuts the server down. It is a no-op when Start never connected.
func (r *LSPResolver) Stop(ctx context.Context) error {
	if r.stop == nil {
		return nil
	}
	stop := r.stop
	r.stop, r.client = nil, nil
	return stop(ctx)
}
