package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/standardbeagle/unitsync/internal/collect"
	"github.com/standardbeagle/unitsync/internal/frontend"
	"github.com/standardbeagle/unitsync/internal/types"
	"github.com/standardbeagle/unitsync/pkg/pathutil"
)

// LocateFocalParams are the arguments of locate_focal
type LocateFocalParams struct {
	Language string `json:"language"`
	Path     string `json:"path"`
}

// LocateFocalResponse lists the records of one test file
type LocateFocalResponse struct {
	Path    string              `json:"path"`
	Tests   int                 `json:"tests"`
	Located int                 `json:"located"`
	Records []types.FocalRecord `json:"records"`
}

// ListTestsParams are the arguments of list_tests
type ListTestsParams struct {
	Language string `json:"language"`
	RepoDir  string `json:"repo_dir"`
}

// ListTestsResponse lists test files relative to the repository
type ListTestsResponse struct {
	RepoDir string   `json:"repo_dir"`
	Files   []string `json:"files"`
}

// FlattenUseParams are the arguments of flatten_use
type FlattenUseParams struct {
	Code string `json:"code"`
}

// DefHeaderParams are the arguments of def_header
type DefHeaderParams struct {
	Language string `json:"language"`
	Code     string `json:"code"`
}

func decodeParams(req *mcp.CallToolRequest, params any) error {
	if req == nil || req.Params == nil || len(req.Params.Arguments) == 0 {
		return fmt.Errorf("missing parameters")
	}
	if err := json.Unmarshal(req.Params.Arguments, params); err != nil {
		return fmt.Errorf("invalid parameters: %w", err)
	}
	return nil
}

func (s *Server) handleLocateFocal(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.recoverFromPanic("locate_focal", func() (*mcp.CallToolResult, error) {
		var params LocateFocalParams
		if err := decodeParams(req, &params); err != nil {
			return nil, err
		}
		if params.Path == "" {
			return nil, fmt.Errorf("'path' parameter is required")
		}
		lang, err := types.ParseLanguage(params.Language)
		if err != nil {
			return nil, err
		}

		path := pathutil.ToAbsolute(params.Path, s.cfg.Project.Root)
		file, err := collect.CollectFile(ctx, lang, s.cfg.Abs(s.cfg.Paths.RepoRoot), path, s.metrics)
		if err != nil {
			return nil, err
		}
		records := file.Records
		if records == nil {
			records = []types.FocalRecord{}
		}
		return createJSONResponse(LocateFocalResponse{
			Path:    pathutil.ToSlashRelative(path, s.cfg.Project.Root),
			Tests:   len(records),
			Located: file.Located(),
			Records: records,
		})
	})
}

func (s *Server) handleListTests(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.recoverFromPanic("list_tests", func() (*mcp.CallToolResult, error) {
		var params ListTestsParams
		if err := decodeParams(req, &params); err != nil {
			return nil, err
		}
		if params.RepoDir == "" {
			return nil, fmt.Errorf("'repo_dir' parameter is required")
		}
		lang, err := types.ParseLanguage(params.Language)
		if err != nil {
			return nil, err
		}

		repoDir := pathutil.ToAbsolute(params.RepoDir, s.cfg.Abs(s.cfg.Paths.RepoRoot))
		if info, err := os.Stat(repoDir); err != nil || !info.IsDir() {
			return nil, fmt.Errorf("repository %s not found", params.RepoDir)
		}
		filter := collect.RepoFilter(repoDir, s.cfg.Collect.Include, s.cfg.Collect.Exclude)
		files, err := collect.TestFiles(repoDir, lang, filter)
		if err != nil {
			return nil, err
		}
		rel := pathutil.ToRelativeAll(files, repoDir)
		if rel == nil {
			rel = []string{}
		}
		return createJSONResponse(ListTestsResponse{RepoDir: repoDir, Files: rel})
	})
}

func (s *Server) handleFlattenUse(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.recoverFromPanic("flatten_use", func() (*mcp.CallToolResult, error) {
		var params FlattenUseParams
		if err := decodeParams(req, &params); err != nil {
			return nil, err
		}
		paths := frontend.FlattenUseDecl(params.Code)
		if paths == nil {
			paths = []string{}
		}
		return createJSONResponse(map[string]interface{}{"paths": paths})
	})
}

func (s *Server) handleDefHeader(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.recoverFromPanic("def_header", func() (*mcp.CallToolResult, error) {
		var params DefHeaderParams
		if err := decodeParams(req, &params); err != nil {
			return nil, err
		}
		lang, err := types.ParseLanguage(params.Language)
		if err != nil {
			return nil, err
		}
		fe, err := frontend.For(lang)
		if err != nil {
			return nil, err
		}
		header, ok := fe.DefHeader(params.Code).Get()
		if !ok {
			return nil, fmt.Errorf("no test definition found")
		}
		return createJSONResponse(map[string]interface{}{"header": header})
	})
}
