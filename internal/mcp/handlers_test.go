package mcp

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/unitsync/internal/config"
	"github.com/standardbeagle/unitsync/testhelpers"
)

func newTestServer(t *testing.T) (*Server, string) {
	t.Helper()
	root := testhelpers.NewCorpusBuilder(t, config.DefaultRepoRoot).AddCalcRepo("acme/calc").Build()

	s, err := NewServer(config.Default(root), nil)
	require.NoError(t, err)
	return s, root
}

func callRequest(t *testing.T, args any) *mcp.CallToolRequest {
	t.Helper()
	raw, err := json.Marshal(args)
	require.NoError(t, err)
	return &mcp.CallToolRequest{Params: &mcp.CallToolParamsRaw{Arguments: raw}}
}

func decodeResult(t *testing.T, result *mcp.CallToolResult, into any) {
	t.Helper()
	require.NotNil(t, result)
	require.Len(t, result.Content, 1)
	text, ok := result.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	require.NoError(t, json.Unmarshal([]byte(text.Text), into))
}

func TestNewServerRequiresConfig(t *testing.T) {
	_, err := NewServer(nil, nil)
	assert.Error(t, err)
}

func TestHandleLocateFocal(t *testing.T) {
	s, _ := newTestServer(t)

	result, err := s.handleLocateFocal(context.Background(), callRequest(t, map[string]string{
		"language": "python",
		"path":     filepath.Join(config.DefaultRepoRoot, "acme-calc", "tests", "test_calc.py"),
	}))
	require.NoError(t, err)
	assert.False(t, result.IsError)

	var resp LocateFocalResponse
	decodeResult(t, result, &resp)
	assert.Equal(t, "data/repos/acme-calc/tests/test_calc.py", resp.Path)
	assert.Equal(t, 2, resp.Tests)
	assert.Equal(t, 1, resp.Located)
	require.Len(t, resp.Records, 2)
	assert.Equal(t, "acme-calc/tests/test_calc.py::test_add", resp.Records[0].TestID)
	require.NotNil(t, resp.Records[0].FocalID)
	assert.Equal(t, "add", *resp.Records[0].FocalID)
	assert.Equal(t, "acme-calc/tests/test_calc.py::test_truth", resp.Records[1].TestID)
	assert.Nil(t, resp.Records[1].FocalID)
	assert.Nil(t, resp.Records[1].FocalLoc)
}

func TestHandleListTests(t *testing.T) {
	s, _ := newTestServer(t)

	result, err := s.handleListTests(context.Background(), callRequest(t, map[string]string{
		"language": "py",
		"repo_dir": "acme-calc",
	}))
	require.NoError(t, err)
	var resp ListTestsResponse
	decodeResult(t, result, &resp)
	assert.Equal(t, []string{"tests/test_calc.py"}, resp.Files)
}

func TestHandleFlattenUse(t *testing.T) {
	s, _ := newTestServer(t)

	result, err := s.handleFlattenUse(context.Background(), callRequest(t, map[string]string{
		"code": "use rand::{Rng, SeedableRng};",
	}))
	require.NoError(t, err)
	var resp struct {
		Paths []string `json:"paths"`
	}
	decodeResult(t, result, &resp)
	assert.Equal(t, []string{"use rand::Rng;", "use rand::SeedableRng;"}, resp.Paths)
}

func TestHandleDefHeader(t *testing.T) {
	s, _ := newTestServer(t)

	result, err := s.handleDefHeader(context.Background(), callRequest(t, map[string]string{
		"language": "go",
		"code":     "func TestAdd(t *testing.T) {\n\tassert.Equal(t, 3, Add(1, 2))\n}\n",
	}))
	require.NoError(t, err)
	var resp struct {
		Header string `json:"header"`
	}
	decodeResult(t, result, &resp)
	assert.Equal(t, "func TestAdd(t *testing.T) {\n", resp.Header)
}

func TestHandlerErrors(t *testing.T) {
	s, _ := newTestServer(t)
	ctx := context.Background()

	tests := []struct {
		name      string
		handler   func(context.Context, *mcp.CallToolRequest) (*mcp.CallToolResult, error)
		req       *mcp.CallToolRequest
		operation string
	}{
		{"missing arguments", s.handleLocateFocal, &mcp.CallToolRequest{Params: &mcp.CallToolParamsRaw{}}, "locate_focal"},
		{"malformed json", s.handleFlattenUse, &mcp.CallToolRequest{Params: &mcp.CallToolParamsRaw{Arguments: json.RawMessage(`{"code":`)}}, "flatten_use"},
		{"unknown language", s.handleDefHeader, callRequest(t, map[string]string{"language": "cobol", "code": "x"}), "def_header"},
		{"missing path", s.handleLocateFocal, callRequest(t, map[string]string{"language": "python"}), "locate_focal"},
		{"missing repo", s.handleListTests, callRequest(t, map[string]string{"language": "python", "repo_dir": "nope"}), "list_tests"},
		{"no definition", s.handleDefHeader, callRequest(t, map[string]string{"language": "python", "code": "x = 1\n"}), "def_header"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := tt.handler(ctx, tt.req)
			require.NoError(t, err, "tool failures are reported in the result")
			assert.True(t, result.IsError)

			var resp map[string]interface{}
			decodeResult(t, result, &resp)
			assert.Equal(t, false, resp["success"])
			assert.Equal(t, tt.operation, resp["operation"])
			assert.NotEmpty(t, resp["error"])
		})
	}
}

func TestRecoverFromPanic(t *testing.T) {
	s, _ := newTestServer(t)
	result, err := s.recoverFromPanic("boom", func() (*mcp.CallToolResult, error) {
		panic("kaboom")
	})
	require.NoError(t, err)
	assert.True(t, result.IsError)
}
