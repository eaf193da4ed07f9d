// Package mcp exposes focal-call collection as Model Context Protocol tools
// over stdio.
package mcp

import (
	"context"
	"fmt"
	rtdebug "runtime/debug"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/standardbeagle/unitsync/internal/config"
	"github.com/standardbeagle/unitsync/internal/debug"
	"github.com/standardbeagle/unitsync/internal/metrics"
	"github.com/standardbeagle/unitsync/internal/version"
)

// Server serves the unitsync tools
type Server struct {
	cfg     *config.Config
	metrics *metrics.Recorder
	server  *mcp.Server
}

// NewServer registers every tool. rec may be nil.
func NewServer(cfg *config.Config, rec *metrics.Recorder) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	s := &Server{
		cfg:     cfg,
		metrics: rec,
		server:  mcp.NewServer(&mcp.Implementation{Name: "unitsync", Version: version.Version}, nil),
	}
	s.registerTools()
	return s, nil
}

func languageSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:        "string",
		Description: "Source language: python, java, js, go, rust or cpp",
		Enum:        []any{"python", "java", "js", "go", "rust", "cpp"},
	}
}

func (s *Server) registerTools() {
	s.server.AddTool(&mcp.Tool{
		Name:        "locate_focal",
		Description: "Discover the unit tests of one test file and locate each test's focal call. Returns one record per test with test_id, test_loc, test source, focal_id and focal_loc (null when no focal call was found).",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"language": languageSchema(),
				"path": {
					Type:        "string",
					Description: "Test file path, absolute or relative to the project root",
				},
			},
			Required: []string{"language", "path"},
		},
	}, s.handleLocateFocal)

	s.server.AddTool(&mcp.Tool{
		Name:        "list_tests",
		Description: "List the test files of a repository that focal collection would visit, honoring the configured include/exclude globs and detected build output directories.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"language": languageSchema(),
				"repo_dir": {
					Type:        "string",
					Description: "Repository directory, absolute or relative to the configured repo_root",
				},
			},
			Required: []string{"language", "repo_dir"},
		},
	}, s.handleListTests)

	s.server.AddTool(&mcp.Tool{
		Name:        "flatten_use",
		Description: "Expand a Rust use declaration into one fully qualified path per imported item.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"code": {
					Type:        "string",
					Description: "Rust source containing use declarations, e.g. 'use std::{fs, io::Read};'",
				},
			},
			Required: []string{"code"},
		},
	}, s.handleFlattenUse)

	s.server.AddTool(&mcp.Tool{
		Name:        "def_header",
		Description: "Return the signature line of the first test definition in a snippet, the header a generator would continue from.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"language": languageSchema(),
				"code": {
					Type:        "string",
					Description: "Test source code",
				},
			},
			Required: []string{"language", "code"},
		},
	}, s.handleDefHeader)
}

// recoverFromPanic turns a handler panic into an error result
func (s *Server) recoverFromPanic(operation string, handler func() (*mcp.CallToolResult, error)) (result *mcp.CallToolResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			debug.Logger(debug.MCP).Error("panic recovered",
				"operation", operation, "panic", r, "stack", string(rtdebug.Stack()))
			result, err = createErrorResponse(operation, fmt.Errorf("internal error: %v", r))
		}
	}()

	result, err = handler()
	if err != nil {
		debug.Log(debug.MCP, "%s failed: %v", operation, err)
		return createErrorResponse(operation, err)
	}
	return result, nil
}

// Start serves over stdio until ctx is cancelled or the client disconnects
func (s *Server) Start(ctx context.Context) error {
	debug.SetMCPMode(true)
	debug.Logger(debug.MCP).Info("serving MCP over stdio", "root", s.cfg.Project.Root)
	return s.server.Run(ctx, &mcp.StdioTransport{})
}
