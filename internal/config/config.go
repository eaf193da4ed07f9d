package config

import (
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/standardbeagle/unitsync/internal/types"
)

// FileName is the per-project and per-user configuration file
const FileName = ".unitsync.kdl"

// Defaults for a fresh configuration
const (
	DefaultRepoRoot      = "data/repos"
	DefaultFocalRoot     = "data/focal"
	DefaultSourcePath    = "data/source/all.jsonl"
	DefaultRepoTimeout   = 120 * time.Second
	DefaultLSPTimeout    = 5 * time.Second
	DefaultWatchDebounce = 500 * time.Millisecond
)

// Rust resolution strategies
const (
	RustResolverIndex = "index"
	RustResolverLSP   = "lsp"
)

type Config struct {
	Project  Project
	Paths    Paths
	Collect  Collect
	LSP      map[types.Language][]string // language server command per language
	Resolver Resolver
	Log      Log
	Metrics  Metrics
}

type Project struct {
	Root string
}

// Paths locate the pipeline inputs and outputs. Relative paths are taken
// against Project.Root.
type Paths struct {
	RepoRoot   string
	FocalRoot  string
	SourcePath string
}

type Collect struct {
	Workers       int // 0 = GOMAXPROCS
	RepoTimeout   time.Duration
	LSPTimeout    time.Duration
	WatchDebounce time.Duration
	Include       []string
	Exclude       []string
}

type Resolver struct {
	Rust string // "index" or "lsp"
}

type Log struct {
	File       string
	Level      string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

type Metrics struct {
	Textfile string // Prometheus textfile written at the end of a run
}

// Default returns the configuration used when no file is present
func Default(root string) *Config {
	return &Config{
		Project: Project{Root: root},
		Paths: Paths{
			RepoRoot:   DefaultRepoRoot,
			FocalRoot:  DefaultFocalRoot,
			SourcePath: DefaultSourcePath,
		},
		Collect: Collect{
			Workers:       runtime.GOMAXPROCS(0),
			RepoTimeout:   DefaultRepoTimeout,
			LSPTimeout:    DefaultLSPTimeout,
			WatchDebounce: DefaultWatchDebounce,
			Include:       []string{},
			Exclude:       []string{},
		},
		LSP:      map[types.Language][]string{},
		Resolver: Resolver{Rust: RustResolverIndex},
		Log: Log{
			Level:      "info",
			MaxSizeMB:  50,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// Load reads ~/.unitsync.kdl and dir/.unitsync.kdl, the project file taking
// precedence, and falls back to defaults rooted at dir
func Load(dir string) (*Config, error) {
	home, _ := os.UserHomeDir()
	return LoadWithHome(dir, home)
}

// LoadWithHome is Load with an explicit home directory; an empty home skips the
// user file
func LoadWithHome(dir, home string) (*Config, error) {
	if dir == "" {
		dir = "."
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		absDir = dir
	}

	var base *Config
	if home != "" && filepath.Clean(home) != absDir {
		if cfg, err := LoadKDL(home); err != nil {
			return nil, err
		} else if cfg != nil {
			base = cfg
		}
	}
	project, err := LoadKDL(absDir)
	if err != nil {
		return nil, err
	}

	switch {
	case base != nil && project != nil:
		return mergeConfigs(base, project), nil
	case project != nil:
		return project, nil
	case base != nil:
		base.Project.Root = absDir
		return base, nil
	}
	return Default(absDir), nil
}

// mergeConfigs lays a project config over a user config. Exclusions are
// unioned and language server commands are merged per language; everything
// else comes from the project.
func mergeConfigs(base, project *Config) *Config {
	merged := *project

	if len(base.Collect.Exclude) > 0 {
		merged.Collect.Exclude = DeduplicatePatterns(append(append([]string(nil), base.Collect.Exclude...), project.Collect.Exclude...))
	}
	if len(project.Collect.Include) == 0 && len(base.Collect.Include) > 0 {
		merged.Collect.Include = base.Collect.Include
	}

	merged.LSP = make(map[types.Language][]string, len(base.LSP)+len(project.LSP))
	for lang, cmd := range base.LSP {
		merged.LSP[lang] = cmd
	}
	for lang, cmd := range project.LSP {
		merged.LSP[lang] = cmd
	}
	if merged.Metrics.Textfile == "" {
		merged.Metrics.Textfile = base.Metrics.Textfile
	}
	if merged.Log.File == "" {
		merged.Log.File = base.Log.File
	}
	return &merged
}

// Abs resolves p against the project root
func (c *Config) Abs(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Project.Root, p)
}

// Command returns the configured language server command for lang, or nil to
// use the built-in default
func (c *Config) Command(lang types.Language) []string {
	if cmd := c.LSP[lang]; len(cmd) > 0 {
		return append([]string(nil), cmd...)
	}
	return nil
}

// RustIndex reports whether Rust calls are resolved by the function index
// instead of rust-analyzer
func (c *Config) RustIndex() bool {
	return c.Resolver.Rust == RustResolverIndex
}
