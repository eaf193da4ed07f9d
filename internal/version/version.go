// Package version reports which unitsync build produced a dataset.
package version

import (
	"crypto/sha256"
	"fmt"
	"runtime/debug"
	"strings"
	"sync"
)

// Version is the current semantic version of unitsync
const Version = "0.3.0"

// Set during build time with -ldflags "-X".
var (
	BuildDate = "development"
	GitCommit = "unknown"
)

// Build describes the running binary
type Build struct {
	Version   string
	Commit    string
	Date      string
	GoVersion string
	Modified  bool
	ID        string
}

var (
	current     Build
	currentOnce sync.Once
)

// Current returns the description of the running binary. Commit and date fall
// back to the VCS stamp the go tool embeds when ldflags did not set them.
func Current() Build {
	currentOnce.Do(func() {
		info, _ := debug.ReadBuildInfo()
		current = describe(info, GitCommit, BuildDate)
	})
	return current
}

func describe(info *debug.BuildInfo, commit, date string) Build {
	b := Build{Version: Version, Commit: commit, Date: date}
	if info == nil {
		b.ID = Version + "-" + commit
		return b
	}
	b.GoVersion = info.GoVersion

	h := sha256.New()
	h.Write([]byte(info.GoVersion))
	h.Write([]byte(info.Main.Path))
	h.Write([]byte(info.Main.Version))
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			if b.Commit == "unknown" {
				b.Commit = s.Value
			}
		case "vcs.time":
			if b.Date == "development" {
				b.Date = s.Value
			}
		case "vcs.modified":
			b.Modified = s.Value == "true"
		default:
			continue
		}
		h.Write([]byte(s.Key))
		h.Write([]byte(s.Value))
	}
	b.ID = fmt.Sprintf("%x", h.Sum(nil))[:16]
	return b
}

// String renders b on one line, as the version command prints it
func (b Build) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "unitsync %s (commit: %s", b.Version, b.Commit)
	if b.Modified {
		sb.WriteString("+dirty")
	}
	fmt.Fprintf(&sb, ", built: %s, build: %s", b.Date, b.ID)
	if b.GoVersion != "" {
		fmt.Fprintf(&sb, ", %s", b.GoVersion)
	}
	sb.WriteString(")")
	return sb.String()
}

// FullInfo returns the one-line description of the running binary
func FullInfo() string {
	return Current().String()
}

// BuildID returns a fingerprint of the current binary build. Datasets written
// by different builds can be told apart by it.
func BuildID() string {
	return Current().ID
}
