package config

import (
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// DefaultRustSourceDir is cargo's library root when Cargo.toml has no [lib] path
const DefaultRustSourceDir = "src"

// cargoManifest holds the parts of Cargo.toml the resolver needs
type cargoManifest struct {
	Package struct {
		Name string `toml:"name"`
	} `toml:"package"`
	Lib struct {
		Path string `toml:"path"`
	} `toml:"lib"`
	Profile struct {
		Release struct {
			TargetDir string `toml:"target-dir"`
		} `toml:"release"`
	} `toml:"profile"`
}

func readCargoManifest(root string) (*cargoManifest, error) {
	data, err := os.ReadFile(filepath.Join(root, "Cargo.toml"))
	if err != nil {
		return nil, err
	}
	var m cargoManifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// CargoSourceDir returns the directory holding a crate's library sources, relative
// to root. A [lib] path such as "src/lib.rs" yields its directory; a missing or
// unreadable manifest yields DefaultRustSourceDir.
func CargoSourceDir(root string) string {
	m, err := readCargoManifest(root)
	if err != nil || m.Lib.Path == "" {
		return DefaultRustSourceDir
	}
	dir := filepath.Dir(filepath.FromSlash(m.Lib.Path))
	if dir == "." || dir == "" {
		return "."
	}
	return dir
}

// CargoPackageName returns the crate name from Cargo.toml, empty when unknown
func CargoPackageName(root string) string {
	m, err := readCargoManifest(root)
	if err != nil {
		return ""
	}
	return m.Package.Name
}
