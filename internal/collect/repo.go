package collect

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Status is the outcome of processing one repository
type Status int

const (
	StatusSuccess Status = iota
	StatusRepoNotFound
	StatusNoFocal
	StatusSkipped
	StatusTimeout
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusRepoNotFound:
		return "not_found"
	case StatusNoFocal:
		return "no_focal"
	case StatusSkipped:
		return "skipped"
	case StatusTimeout:
		return "timeout"
	default:
		return "failed"
	}
}

// WrapRepo maps a "user/repo" id to its on-disk directory name "user-repo"
func WrapRepo(id string) string {
	return strings.Join(strings.Split(strings.TrimSpace(id), "/"), "-")
}

// RepoResult summarizes one repository
type RepoResult struct {
	RepoID   string
	Status   Status
	Files    int
	Tests    int
	Focals   int
	Duration time.Duration
	Err      error
}

// LoadRepoIDs reads one repository id per line, skipping blanks and # comments
func LoadRepoIDs(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var ids []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		ids = append(ids, line)
	}
	return ids, scanner.Err()
}

// FocalPath is where the focal records of a repository are written
func FocalPath(focalRoot, repoID string) string {
	return filepath.Join(focalRoot, WrapRepo(repoID)+".jsonl")
}

// jsonlWriter appends one JSON document per line and flushes after each, so an
// abandoned run leaves only whole records behind
type jsonlWriter struct {
	f   *os.File
	buf *bufio.Writer
	n   int
}

func createJSONL(path string, appendMode bool) (*jsonlWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if appendMode {
		flags = os.O_CREATE | os.O_WRONLY | os.O_APPEND
	}
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return nil, err
	}
	return &jsonlWriter{f: f, buf: bufio.NewWriter(f)}, nil
}

func (w *jsonlWriter) Write(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := w.buf.Write(append(data, '\n')); err != nil {
		return err
	}
	if err := w.buf.Flush(); err != nil {
		return err
	}
	w.n++
	return nil
}

func (w *jsonlWriter) Close() error {
	if err := w.buf.Flush(); err != nil {
		w.f.Close()
		return err
	}
	return w.f.Close()
}
