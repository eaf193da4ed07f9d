package errors

import (
	"errors"
	"io/fs"
	"testing"
)

func TestResolveError(t *testing.T) {
	underlying := errors.New("connection reset")
	err := RequestFailed(underlying)

	if err.Type != ErrorTypeResolve {
		t.Errorf("Expected Type to be ErrorTypeResolve, got %v", err.Type)
	}
	if err.Kind != KindUpstream {
		t.Errorf("Expected Kind to be KindUpstream, got %v", err.Kind)
	}
	if err.Reason != "GoDef Request Failed: connection reset" {
		t.Errorf("Unexpected reason %q", err.Reason)
	}
	if !errors.Is(err, underlying) {
		t.Errorf("Expected error to unwrap to underlying error")
	}
	if !err.IsRecoverable() {
		t.Errorf("Expected request failures to be recoverable")
	}

	expectedMsg := "resolve upstream: GoDef Request Failed: connection reset"
	if err.Error() != expectedMsg {
		t.Errorf("Expected error message %q, got %q", expectedMsg, err.Error())
	}
}

func TestResolveErrorReasons(t *testing.T) {
	tests := []struct {
		name   string
		err    *ResolveError
		kind   ResolveKind
		reason string
	}{
		{"no definition", NoDefinition(), KindNotFound, "No definition found"},
		{"unexpected", UnexpectedResponse(`{"x":1}`), KindUpstream, `Unexpected response from LSP server: {"x":1}`},
		{"out of workspace", OutOfWorkspace("/usr/lib/python3/os.py"), KindOutOfWorkspace, "Source code not in workspace: /usr/lib/python3/os.py"},
		{"source not found", SourceNotFound("/repo/a.py", 3, 4), KindNotFound, "Source code not found: /repo/a.py:3:4"},
		{"empty", EmptySource("/repo/a.py"), KindEmptyBody, "Empty Source Code"},
		{"index", IndexNoDefinition(), KindNotFound, "Not Definition Found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Kind != tt.kind {
				t.Errorf("Expected kind %v, got %v", tt.kind, tt.err.Kind)
			}
			if tt.err.Reason != tt.reason {
				t.Errorf("Expected reason %q, got %q", tt.reason, tt.err.Reason)
			}
		})
	}
}

func TestParseError(t *testing.T) {
	underlying := errors.New("syntax error")
	err := NewParseError("/path/to/file.go", "go", underlying)

	if err.Type != ErrorTypeParse {
		t.Errorf("Expected Type to be ErrorTypeParse, got %v", err.Type)
	}
	if !errors.Is(err, underlying) {
		t.Errorf("Expected error to unwrap to underlying error")
	}

	expectedMsg := "parse error in /path/to/file.go (go): syntax error"
	if err.Error() != expectedMsg {
		t.Errorf("Expected error message %q, got %q", expectedMsg, err.Error())
	}

	noPath := NewParseError("", "rust", underlying)
	if noPath.Error() != "parse error (rust): syntax error" {
		t.Errorf("Unexpected message %q", noPath.Error())
	}
}

func TestFileError(t *testing.T) {
	t.Run("not found", func(t *testing.T) {
		err := NewFileError("read", "/missing", fs.ErrNotExist)
		if err.Type != ErrorTypeFileNotFound {
			t.Errorf("Expected ErrorTypeFileNotFound, got %v", err.Type)
		}
		if !errors.Is(err, fs.ErrNotExist) {
			t.Errorf("Expected error to unwrap to fs.ErrNotExist")
		}
	})

	t.Run("permission", func(t *testing.T) {
		err := NewFileError("write", "/root/x", &fs.PathError{Op: "open", Path: "/root/x", Err: fs.ErrPermission})
		if err.Type != ErrorTypePermission {
			t.Errorf("Expected ErrorTypePermission, got %v", err.Type)
		}
	})
}

func TestConfigError(t *testing.T) {
	underlying := errors.New("must be positive")
	err := NewConfigError("collect.workers", "-1", underlying)

	expectedMsg := "config error for field collect.workers (value -1): must be positive"
	if err.Error() != expectedMsg {
		t.Errorf("Expected error message %q, got %q", expectedMsg, err.Error())
	}
	if !errors.Is(err, underlying) {
		t.Errorf("Expected error to unwrap to underlying error")
	}
}
