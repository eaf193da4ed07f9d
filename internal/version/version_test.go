package version

import (
	"runtime/debug"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildIDStable(t *testing.T) {
	id := BuildID()
	assert.NotEmpty(t, id)
	assert.Equal(t, id, BuildID())
}

func TestFullInfo(t *testing.T) {
	info := FullInfo()
	assert.True(t, strings.HasPrefix(info, "unitsync "+Version))
	assert.Contains(t, info, BuildID())
}

func TestDescribe(t *testing.T) {
	stamped := &debug.BuildInfo{
		GoVersion: "go1.24.0",
		Main:      debug.Module{Path: "github.com/standardbeagle/unitsync"},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "abc123"},
			{Key: "vcs.time", Value: "2026-10-01T00:00:00Z"},
			{Key: "vcs.modified", Value: "true"},
			{Key: "-trimpath", Value: "true"},
		},
	}

	tests := []struct {
		name   string
		info   *debug.BuildInfo
		commit string
		date   string
		want   string
	}{
		{
			name:   "no build info",
			commit: "unknown",
			date:   "development",
			want:   "unitsync " + Version + " (commit: unknown, built: development, build: " + Version + "-unknown)",
		},
		{
			name:   "vcs stamp fills defaults",
			info:   stamped,
			commit: "unknown",
			date:   "development",
			want:   "commit: abc123+dirty, built: 2026-10-01T00:00:00Z",
		},
		{
			name:   "ldflags win over vcs stamp",
			info:   stamped,
			commit: "deadbeef",
			date:   "2026-10-14",
			want:   "commit: deadbeef+dirty, built: 2026-10-14",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := describe(tt.info, tt.commit, tt.date)
			assert.Contains(t, b.String(), tt.want)
			assert.NotEmpty(t, b.ID)
		})
	}

	t.Run("id ignores unrelated settings", func(t *testing.T) {
		other := *stamped
		other.Settings = append([]debug.BuildSetting(nil), stamped.Settings[:3]...)
		assert.Equal(t, describe(stamped, "x", "y").ID, describe(&other, "x", "y").ID)
	})
}
