// Package lsp is a minimal Language Server Protocol client: enough of the protocol
// to initialize a server, open documents and ask for definitions.
package lsp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/uri"

	"github.com/standardbeagle/unitsync/internal/debug"
	"github.com/standardbeagle/unitsync/internal/parser"
)

// DefaultRequestTimeout bounds a single request when no timeout is configured
const DefaultRequestTimeout = 10 * time.Second

// Client talks to one language server over a JSON-RPC connection.
// It is safe for concurrent use.
type Client struct {
	conn    jsonrpc2.Conn
	timeout time.Duration

	mu     sync.Mutex
	root   string
	opened map[uri.URI]bool
}

// NewClient starts serving conn. Server-initiated requests are answered with
// defaults (see handle); notifications are logged and dropped.
func NewClient(ctx context.Context, conn jsonrpc2.Conn, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	c := &Client{
		conn:    conn,
		timeout: timeout,
		opened:  make(map[uri.URI]bool),
	}
	conn.Go(ctx, c.handle)
	return c
}

// requestContext bounds one request by the client timeout. An earlier deadline on
// ctx still applies.
func (c *Client) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.timeout)
}

func (c *Client) call(ctx context.Context, method string, params, result any) error {
	ctx, cancel := c.requestContext(ctx)
	defer cancel()
	if _, err := c.conn.Call(ctx, method, params, result); err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	return nil
}

// Initialize performs the initialize/initialized handshake for a workspace root
func (c *Client) Initialize(ctx context.Context, root string) (*InitializeResult, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.root = abs
	c.mu.Unlock()

	rootURI := uri.File(abs)
	params := InitializeParams{
		ProcessID:        int32(os.Getpid()),
		RootURI:          rootURI,
		RootPath:         abs,
		WorkspaceFolders: []WorkspaceFolder{{URI: rootURI, Name: filepath.Base(abs)}},
	}
	params.Capabilities.TextDocument.Definition.LinkSupport = true
	params.Capabilities.Workspace.Configuration = true
	params.Capabilities.Workspace.WorkspaceFolders = true

	var result InitializeResult
	if err := c.call(ctx, MethodInitialize, params, &result); err != nil {
		return nil, err
	}
	if err := c.conn.Notify(ctx, MethodInitialized, struct{}{}); err != nil {
		return nil, fmt.Errorf("%s: %w", MethodInitialized, err)
	}
	debug.Log(debug.LSP, "initialized %s (server %v)\n", abs, result.ServerInfo)
	return &result, nil
}

// DidOpen sends the file's content to the server once per client. Tabs are
// expanded so columns agree with positions taken from tab-expanded parses.
func (c *Client) DidOpen(ctx context.Context, path, languageID string) error {
	docURI := uri.File(path)
	c.mu.Lock()
	already := c.opened[docURI]
	c.opened[docURI] = true
	c.mu.Unlock()
	if already {
		return nil
	}

	text, err := parser.ReadSource(path)
	if err != nil {
		return err
	}
	ctx, cancel := c.requestContext(ctx)
	defer cancel()
	return c.conn.Notify(ctx, MethodDidOpen, DidOpenTextDocumentParams{
		TextDocument: TextDocumentItem{
			URI:        docURI,
			LanguageID: languageID,
			Version:    1,
			Text:       parser.ReplaceTabs(text),
		},
	})
}

// Definition asks for the definition of the symbol at line/character in path.
// A null result is returned as an empty slice.
func (c *Client) Definition(ctx context.Context, path string, line, character int) ([]Location, error) {
	params := TextDocumentPositionParams{
		TextDocument: TextDocumentIdentifier{URI: uri.File(path)},
		Position:     Position{Line: uint32(line), Character: uint32(character)},
	}
	var raw json.RawMessage
	if err := c.call(ctx, MethodDefinition, params, &raw); err != nil {
		return nil, err
	}
	locs, err := DecodeDefinition(raw)
	if err != nil {
		return nil, &UnexpectedResponseError{Raw: string(raw), Err: err}
	}
	return locs, nil
}

// Shutdown sends shutdown then exit and closes the connection. Errors from the
// shutdown request are returned after the connection is closed.
func (c *Client) Shutdown(ctx context.Context) error {
	shutdownErr := c.call(ctx, MethodShutdown, nil, nil)
	if err := c.conn.Notify(ctx, MethodExit, nil); err != nil && shutdownErr == nil {
		debug.Log(debug.LSP, "exit notification failed: %v\n", err)
	}
	if err := c.conn.Close(); err != nil && shutdownErr == nil {
		return err
	}
	return shutdownErr
}

// Done is closed when the connection stops
func (c *Client) Done() <-chan struct{} {
	return c.conn.Done()
}

// UnexpectedResponseError reports a definition payload the client could not decode
type UnexpectedResponseError struct {
	Raw string
	Err error
}

func (e *UnexpectedResponseError) Error() string {
	return fmt.Sprintf("unexpected response %s: %v", e.Raw, e.Err)
}

func (e *UnexpectedResponseError) Unwrap() error {
	return e.Err
}

// handle answers the server-to-client requests servers block on during startup
func (c *Client) handle(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	switch req.Method() {
	case MethodConfiguration:
		var params ConfigurationParams
		if err := json.Unmarshal(req.Params(), &params); err != nil {
			return reply(ctx, nil, err)
		}
		return reply(ctx, make([]any, len(params.Items)), nil)
	case MethodWorkspaceDirs:
		c.mu.Lock()
		root := c.root
		c.mu.Unlock()
		if root == "" {
			return reply(ctx, nil, nil)
		}
		return reply(ctx, []WorkspaceFolder{{URI: uri.File(root), Name: filepath.Base(root)}}, nil)
	case MethodProgressCreate, MethodRegisterCap, MethodShowMessageReq:
		return reply(ctx, nil, nil)
	}

	if _, isCall := req.(*jsonrpc2.Call); isCall {
		debug.Log(debug.LSP, "unhandled server request %s\n", req.Method())
		return jsonrpc2.MethodNotFoundHandler(ctx, reply, req)
	}
	// window/logMessage, $/progress, textDocument/publishDiagnostics and friends
	return reply(ctx, nil, nil)
}
