package frontend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/unitsync/internal/types"
)

const jsStoreTest = `const { expect } = require('chai');

describe('storeUtils', function () {
  it('reads a key', function () {
    storeUtils.get(store, 'key');
    expect(store.reads).to.equal(1);
  });
});

describe("arrow", () => {
  const value = compute(2);
  expect(value).to.equal(4);
});

describe('no body', 42);
`

func TestJavaScriptMatchesFile(t *testing.T) {
	fe := javascriptFrontend{}
	assert.True(t, fe.MatchesFile("test/store.spec.js", jsStoreTest))
	assert.True(t, fe.MatchesFile("packages/core/tests/unit/store.js", `const chai = require("chai");`))
	assert.False(t, fe.MatchesFile("src/store.js", jsStoreTest), "directory must mention test")
	assert.False(t, fe.MatchesFile("test/store.js", "const jest = require('jest');"))
	assert.False(t, fe.MatchesFile("test/store.ts", jsStoreTest))
}

func TestJavaScriptDiscoverAndLocate(t *testing.T) {
	fe := javascriptFrontend{}
	tree := parseCode(t, types.JavaScript, jsStoreTest)

	tests := fe.DiscoverTests(tree)
	require.Len(t, tests, 2)
	assert.Equal(t, "storeUtils", tests[0].Name)
	assert.Equal(t, "arrow", tests[1].Name)

	call := requireFocal(t, fe.LocateFocal(tree, tests[0]))
	assert.Equal(t, "get", call.Name)
	assert.Equal(t, types.Position{Line: 4, Column: 15}, call.Position)

	call = requireFocal(t, fe.LocateFocal(tree, tests[1]))
	assert.Equal(t, "compute", call.Name)
	assert.Equal(t, types.Position{Line: 10, Column: 16}, call.Position)
}

func TestJavaScriptDefinitionAt(t *testing.T) {
	code := "// sums\nfunction add(a, b) {\n  return a + b;\n}\nconst sub = (a, b) => a - b;\n"
	fe := javascriptFrontend{}
	tree := parseCode(t, types.JavaScript, code)

	decl, ok := fe.DefinitionAt(tree, 1).Get()
	require.True(t, ok)
	assert.Equal(t, "add", fe.DeclarationName(tree, decl))
	require.NotNil(t, fe.Docstring(tree, decl))
	assert.Equal(t, "// sums", *fe.Docstring(tree, decl))

	decl, ok = fe.DefinitionAt(tree, 4).Get()
	require.True(t, ok)
	assert.Equal(t, "sub", fe.DeclarationName(tree, decl))
}
