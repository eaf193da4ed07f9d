package resolver

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/standardbeagle/unitsync/internal/debug"
	"github.com/standardbeagle/unitsync/internal/types"
)

// DefaultCommand returns the language server command line used when the
// configuration names none
func DefaultCommand(lang types.Language) []string {
	switch lang {
	case types.Python:
		return []string{"python3", "-m", "pylsp"}
	case types.Java:
		return []string{"java-language-server"}
	case types.JavaScript:
		return []string{"typescript-language-server", "--stdio"}
	case types.Go:
		return []string{"gopls"}
	case types.Rust:
		return []string{"rust-analyzer"}
	case types.Cpp:
		return []string{"clangd"}
	default:
		return nil
	}
}

// compileDatabase is what clangd reads to learn include paths and flags
const compileDatabase = "compile_commands.json"

// EnsureCompileCommands generates compile_commands.json with cmake when the
// workspace has a CMakeLists.txt but no compile database yet. A failing cmake is
// logged and ignored; clangd still answers many queries without the database.
func EnsureCompileCommands(ctx context.Context, workspace string) {
	if _, err := os.Stat(filepath.Join(workspace, compileDatabase)); err == nil {
		return
	}
	if _, err := os.Stat(filepath.Join(workspace, "CMakeLists.txt")); err != nil {
		return
	}

	cmd := exec.CommandContext(ctx, "cmake", "-DCMAKE_EXPORT_COMPILE_COMMANDS=ON", ".")
	cmd.Dir = workspace
	if out, err := cmd.CombinedOutput(); err != nil {
		debug.Log(debug.Resolve, "cmake in %s failed: %v\n%s", workspace, err, out)
		return
	}
	debug.Log(debug.Resolve, "generated %s in %s\n", compileDatabase, workspace)
}
