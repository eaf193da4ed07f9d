package types

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// maxJSONLLine bounds one record; test and focal sources can be large
const maxJSONLLine = 64 * 1024 * 1024

// ReadJSONL decodes every non-blank line of path into a T. Errors opening the
// file are returned unwrapped so callers can test them with os.IsNotExist. A
// malformed line fails with its line number and the records decoded before it.
func ReadJSONL[T any](path string) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []T
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxJSONLLine)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var v T
		if err := json.Unmarshal([]byte(text), &v); err != nil {
			return out, fmt.Errorf("%s:%d: %w", path, line, err)
		}
		out = append(out, v)
	}
	return out, scanner.Err()
}
