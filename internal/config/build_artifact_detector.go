// Build output detection from project manifests
// Test discovery skips these directories so generated or vendored copies of a
// test file are not collected twice.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// defaultArtifactPatterns are excluded in every repository
var defaultArtifactPatterns = []string{
	"**/.git/**",
	"**/node_modules/**",
	"**/target/**",
	"**/build/**",
	"**/dist/**",
	"**/__pycache__/**",
	"**/.venv/**",
	"**/venv/**",
}

// BuildArtifactDetector finds build output directories of one repository
type BuildArtifactDetector struct {
	projectRoot string
}

// NewBuildArtifactDetector creates a detector for a repository root
func NewBuildArtifactDetector(projectRoot string) *BuildArtifactDetector {
	return &BuildArtifactDetector{projectRoot: projectRoot}
}

// DetectOutputDirectories returns doublestar exclusion patterns: the defaults plus
// any output directory named in package.json, Cargo.toml or pyproject.toml.
func (bad *BuildArtifactDetector) DetectOutputDirectories() []string {
	patterns := append([]string(nil), defaultArtifactPatterns...)
	patterns = append(patterns, bad.detectJavaScriptOutputs()...)
	patterns = append(patterns, bad.detectRustOutputs()...)
	patterns = append(patterns, bad.detectPythonOutputs()...)
	return DeduplicatePatterns(patterns)
}

func dirPattern(dir string) string {
	dir = strings.Trim(filepath.ToSlash(strings.TrimSpace(dir)), "/")
	dir = strings.TrimPrefix(dir, "./")
	if dir == "" || dir == "." {
		return ""
	}
	return "**/" + dir + "/**"
}

func (bad *BuildArtifactDetector) detectJavaScriptOutputs() []string {
	data, err := os.ReadFile(filepath.Join(bad.projectRoot, "package.json"))
	if err != nil {
		return nil
	}
	var pkg struct {
		Scripts map[string]string `json:"scripts"`
		Build   struct {
			OutDir string `json:"outDir"`
		} `json:"build"`
	}
	if json.Unmarshal(data, &pkg) != nil {
		return nil
	}

	var patterns []string
	if p := dirPattern(pkg.Build.OutDir); p != "" {
		patterns = append(patterns, p)
	}
	for _, script := range pkg.Scripts {
		parts := strings.Fields(script)
		for i, part := range parts {
			if (part == "--outDir" || part == "-outDir") && i+1 < len(parts) {
				if p := dirPattern(strings.Trim(parts[i+1], "\"'")); p != "" {
					patterns = append(patterns, p)
				}
			}
		}
	}
	return patterns
}

func (bad *BuildArtifactDetector) detectRustOutputs() []string {
	m, err := readCargoManifest(bad.projectRoot)
	if err != nil {
		return nil
	}
	if p := dirPattern(m.Profile.Release.TargetDir); p != "" {
		return []string{p}
	}
	return nil
}

func (bad *BuildArtifactDetector) detectPythonOutputs() []string {
	data, err := os.ReadFile(filepath.Join(bad.projectRoot, "pyproject.toml"))
	if err != nil {
		return nil
	}
	var pyproject struct {
		Tool struct {
			Poetry struct {
				Build struct {
					TargetDir string `toml:"target-dir"`
				} `toml:"build"`
			} `toml:"poetry"`
		} `toml:"tool"`
	}
	if toml.Unmarshal(data, &pyproject) != nil {
		return nil
	}
	if p := dirPattern(pyproject.Tool.Poetry.Build.TargetDir); p != "" {
		return []string{p}
	}
	return nil
}

// DeduplicatePatterns removes duplicate exclusion patterns, keeping first occurrences
func DeduplicatePatterns(patterns []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(patterns))

	for _, pattern := range patterns {
		if !seen[pattern] {
			seen[pattern] = true
			result = append(result, pattern)
		}
	}

	return result
}
