package config

import (
	stderrors "errors"
	"fmt"
	"runtime"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/standardbeagle/unitsync/internal/errors"
)

// Validator validates configuration and sets smart defaults
type Validator struct{}

// NewValidator creates a new configuration validator
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateAndSetDefaults validates configuration and fills zero values
func (v *Validator) ValidateAndSetDefaults(cfg *Config) error {
	if cfg.Project.Root == "" {
		return errors.NewConfigError("project.root", "", stderrors.New("project root cannot be empty"))
	}
	if err := v.validatePaths(&cfg.Paths); err != nil {
		return errors.NewConfigError("paths", "", err)
	}
	if err := v.validateCollect(&cfg.Collect); err != nil {
		return errors.NewConfigError("collect", "", err)
	}
	for lang, cmd := range cfg.LSP {
		if len(cmd) == 0 || cmd[0] == "" {
			return errors.NewConfigError("lsp."+lang.String(), "", stderrors.New("command cannot be empty"))
		}
	}
	switch cfg.Resolver.Rust {
	case "", RustResolverIndex, RustResolverLSP:
	default:
		return errors.NewConfigError("resolver.rust", cfg.Resolver.Rust,
			fmt.Errorf("must be %q or %q", RustResolverIndex, RustResolverLSP))
	}
	if cfg.Log.MaxSizeMB < 0 || cfg.Log.MaxBackups < 0 || cfg.Log.MaxAgeDays < 0 {
		return errors.NewConfigError("log", "", stderrors.New("rotation limits cannot be negative"))
	}

	v.setSmartDefaults(cfg)
	return nil
}

func (v *Validator) validatePaths(p *Paths) error {
	if p.RepoRoot == "" {
		return stderrors.New("repo_root cannot be empty")
	}
	if p.FocalRoot == "" {
		return stderrors.New("focal_root cannot be empty")
	}
	if p.SourcePath == "" {
		return stderrors.New("source_path cannot be empty")
	}
	return nil
}

func (v *Validator) validateCollect(c *Collect) error {
	if c.Workers < 0 {
		return fmt.Errorf("workers cannot be negative, got %d", c.Workers)
	}
	if c.RepoTimeout < 0 {
		return fmt.Errorf("repo_timeout cannot be negative, got %s", c.RepoTimeout)
	}
	if c.LSPTimeout < 0 {
		return fmt.Errorf("lsp_timeout cannot be negative, got %s", c.LSPTimeout)
	}
	if c.LSPTimeout > time.Hour {
		return fmt.Errorf("lsp_timeout should not exceed 1h, got %s", c.LSPTimeout)
	}
	for _, p := range append(append([]string(nil), c.Include...), c.Exclude...) {
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("invalid glob pattern %q", p)
		}
	}
	return nil
}

// setSmartDefaults fills values left at zero
func (v *Validator) setSmartDefaults(cfg *Config) {
	if cfg.Collect.Workers == 0 {
		cfg.Collect.Workers = max(1, runtime.NumCPU()-1)
	}
	if cfg.Collect.LSPTimeout == 0 {
		cfg.Collect.LSPTimeout = DefaultLSPTimeout
	}
	if cfg.Collect.WatchDebounce == 0 {
		cfg.Collect.WatchDebounce = DefaultWatchDebounce
	}
	if cfg.Resolver.Rust == "" {
		cfg.Resolver.Rust = RustResolverIndex
	}
}

// ValidateConfig is a convenience function for quick validation
func ValidateConfig(cfg *Config) error {
	return NewValidator().ValidateAndSetDefaults(cfg)
}
