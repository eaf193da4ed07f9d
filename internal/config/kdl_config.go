package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	kdl "github.com/sblinch/kdl-go"
	"github.com/sblinch/kdl-go/document"

	"github.com/standardbeagle/unitsync/internal/debug"
	"github.com/standardbeagle/unitsync/internal/errors"
	"github.com/standardbeagle/unitsync/internal/types"
)

// LoadKDL loads dir/.unitsync.kdl. It returns nil, nil when the file does not exist.
func LoadKDL(dir string) (*Config, error) {
	path := filepath.Join(dir, FileName)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewFileError("read", path, err)
	}

	absDir, err := filepath.Abs(dir)
	if err != nil {
		absDir = dir
	}
	cfg, err := parseKDL(string(content), absDir)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	// a relative root is taken against the directory holding the file
	if !filepath.IsAbs(cfg.Project.Root) {
		cfg.Project.Root = filepath.Join(absDir, cfg.Project.Root)
	}
	cfg.Project.Root = filepath.Clean(cfg.Project.Root)
	return cfg, nil
}

// parseKDL applies a KDL document over the defaults rooted at root
func parseKDL(content, root string) (*Config, error) {
	cfg := Default(root)

	doc, err := kdl.Parse(strings.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse KDL config: %w", err)
	}

	for _, n := range doc.Nodes {
		switch nodeName(n) {
		case "project":
			for _, cn := range n.Children { // project { root "." }
				assignSimpleString(cn, "root", func(v string) { cfg.Project.Root = v })
			}
		case "paths":
			for _, cn := range n.Children {
				assignSimpleString(cn, "repo_root", func(v string) { cfg.Paths.RepoRoot = v })
				assignSimpleString(cn, "focal_root", func(v string) { cfg.Paths.FocalRoot = v })
				assignSimpleString(cn, "source_path", func(v string) { cfg.Paths.SourcePath = v })
			}
		case "collect":
			if err := parseCollect(cfg, n); err != nil {
				return nil, err
			}
		case "lsp":
			// lsp { python "python3" "-m" "pylsp" }
			for _, cn := range n.Children {
				lang, err := types.ParseLanguage(nodeName(cn))
				if err != nil {
					return nil, errors.NewConfigError("lsp", nodeName(cn), err)
				}
				cfg.LSP[lang] = collectStringArgs(cn)
			}
		case "resolver":
			for _, cn := range n.Children {
				assignSimpleString(cn, "rust", func(v string) { cfg.Resolver.Rust = strings.ToLower(v) })
			}
		case "log":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "file":
					if s, ok := firstStringArg(cn); ok {
						cfg.Log.File = s
					}
				case "level":
					if s, ok := firstStringArg(cn); ok {
						cfg.Log.Level = s
					}
				case "max_size_mb":
					if v, ok := firstIntArg(cn); ok {
						cfg.Log.MaxSizeMB = v
					}
				case "max_backups":
					if v, ok := firstIntArg(cn); ok {
						cfg.Log.MaxBackups = v
					}
				case "max_age_days":
					if v, ok := firstIntArg(cn); ok {
						cfg.Log.MaxAgeDays = v
					}
				case "compress":
					if b, ok := firstBoolArg(cn); ok {
						cfg.Log.Compress = b
					}
				}
			}
		case "metrics":
			for _, cn := range n.Children {
				assignSimpleString(cn, "textfile", func(v string) { cfg.Metrics.Textfile = v })
			}
		default:
			debug.Log(debug.Config, "ignoring unknown section %q\n", nodeName(n))
		}
	}
	return cfg, nil
}

func parseCollect(cfg *Config, n *document.Node) error {
	for _, cn := range n.Children {
		name := nodeName(cn)
		switch name {
		case "workers":
			if v, ok := firstIntArg(cn); ok {
				cfg.Collect.Workers = v
			}
		case "repo_timeout", "lsp_timeout", "watch_debounce":
			d, ok, err := firstDurationArg(cn)
			if err != nil {
				return errors.NewConfigError("collect."+name, fmt.Sprint(cn.Arguments[0].Value), err)
			}
			if !ok {
				continue
			}
			switch name {
			case "repo_timeout":
				cfg.Collect.RepoTimeout = d
			case "lsp_timeout":
				cfg.Collect.LSPTimeout = d
			default:
				cfg.Collect.WatchDebounce = d
			}
		case "include":
			cfg.Collect.Include = append(cfg.Collect.Include, collectStringArgs(cn)...)
		case "exclude":
			cfg.Collect.Exclude = append(cfg.Collect.Exclude, collectStringArgs(cn)...)
		}
	}
	return nil
}

func nodeName(n *document.Node) string {
	if n == nil || n.Name == nil {
		return ""
	}
	return n.Name.NodeNameString()
}

func firstIntArg(n *document.Node) (int, bool) {
	if len(n.Arguments) == 0 {
		return 0, false
	}
	switch v := n.Arguments[0].Value.(type) {
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

func firstStringArg(n *document.Node) (string, bool) {
	if len(n.Arguments) == 0 {
		return "", false
	}
	if s, ok := n.Arguments[0].Value.(string); ok {
		return s, true
	}
	return "", false
}

func firstBoolArg(n *document.Node) (bool, bool) {
	if len(n.Arguments) == 0 {
		return false, false
	}
	if b, ok := n.Arguments[0].Value.(bool); ok {
		return b, true
	}
	return false, false
}

// firstDurationArg accepts a duration string ("90s", "2m") or a number of seconds
func firstDurationArg(n *document.Node) (time.Duration, bool, error) {
	if len(n.Arguments) == 0 {
		return 0, false, nil
	}
	switch v := n.Arguments[0].Value.(type) {
	case string:
		d, err := time.ParseDuration(v)
		if err != nil {
			return 0, false, err
		}
		return d, true, nil
	case int64:
		return time.Duration(v) * time.Second, true, nil
	case float64:
		return time.Duration(v * float64(time.Second)), true, nil
	default:
		return 0, false, fmt.Errorf("expected duration, got %T", v)
	}
}

// collectStringArgs reads inline arguments, or for block form
// (exclude { "pattern" }) the child node names
func collectStringArgs(n *document.Node) []string {
	if n == nil {
		return nil
	}
	out := make([]string, 0, len(n.Arguments))
	for _, a := range n.Arguments {
		if s, ok := a.Value.(string); ok {
			out = append(out, s)
		}
	}

	if len(out) == 0 && len(n.Children) > 0 {
		for _, child := range n.Children {
			if s, ok := firstStringArg(child); ok {
				out = append(out, s)
			} else if child.Name != nil {
				if s, ok := child.Name.Value.(string); ok {
					out = append(out, s)
				}
			}
		}
	}
	return out
}

func assignSimpleString(n *document.Node, target string, set func(string)) {
	if nodeName(n) == target {
		if s, ok := firstStringArg(n); ok {
			set(s)
		}
	}
}
