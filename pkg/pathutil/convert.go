// Package pathutil converts between the absolute paths used internally and the
// root-relative paths shown to users.
package pathutil

import (
	"path/filepath"
	"strings"
)

// ToRelative converts an absolute path to relative based on a root directory.
// Falls back to the original path if conversion fails, the path is already
// relative, or it lies outside root.
//
// Examples:
//   - ToRelative("/home/user/corpus/acme-calc/calc.py", "/home/user/corpus") → "acme-calc/calc.py"
//   - ToRelative("/usr/lib/python3/os.py", "/home/user/corpus") → "/usr/lib/python3/os.py"
//   - ToRelative("acme-calc/calc.py", "/home/user/corpus") → "acme-calc/calc.py"
func ToRelative(absPath, rootDir string) string {
	if absPath == "" || rootDir == "" {
		return absPath
	}
	if !filepath.IsAbs(absPath) {
		return absPath
	}

	absPath = filepath.Clean(absPath)
	rootDir = filepath.Clean(rootDir)

	relPath, err := filepath.Rel(rootDir, absPath)
	if err != nil {
		return absPath
	}
	if relPath == ".." || strings.HasPrefix(relPath, ".."+string(filepath.Separator)) {
		return absPath
	}
	return relPath
}

// ToSlashRelative is ToRelative with forward slashes, the form used in ids
func ToSlashRelative(absPath, rootDir string) string {
	return filepath.ToSlash(ToRelative(absPath, rootDir))
}

// ToRelativeAll converts every path, returning a new slice
func ToRelativeAll(paths []string, rootDir string) []string {
	if len(paths) == 0 {
		return paths
	}
	converted := make([]string, len(paths))
	for i, p := range paths {
		converted[i] = ToSlashRelative(p, rootDir)
	}
	return converted
}

// ToAbsolute resolves a root-relative path; absolute paths are returned cleaned
func ToAbsolute(path, rootDir string) string {
	if path == "" {
		return path
	}
	if filepath.IsAbs(path) || rootDir == "" {
		return filepath.Clean(path)
	}
	return filepath.Join(rootDir, filepath.FromSlash(path))
}
