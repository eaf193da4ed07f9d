package errors

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"time"
)

// Error types for the focal resolution pipeline
type ErrorType string

const (
	// Resolution errors
	ErrorTypeResolve ErrorType = "resolve"
	ErrorTypeParse   ErrorType = "parse"

	// File errors
	ErrorTypeFileNotFound ErrorType = "file_not_found"
	ErrorTypePermission   ErrorType = "permission"

	// Configuration errors
	ErrorTypeConfig ErrorType = "config"

	// Internal errors
	ErrorTypeInternal ErrorType = "internal"
)

// ResolveKind classifies why a focal definition could not be produced
type ResolveKind string

const (
	// KindNotFound means the definition query or the declaration lookup came back empty
	KindNotFound ResolveKind = "not_found"
	// KindOutOfWorkspace means the definition lives outside the project (stdlib, dependency)
	KindOutOfWorkspace ResolveKind = "out_of_workspace"
	// KindUpstream means the language server or its transport failed
	KindUpstream ResolveKind = "upstream"
	// KindParse means the target file could not be read or parsed
	KindParse ResolveKind = "parse"
	// KindEmptyBody means the declaration was found but its source is empty
	KindEmptyBody ResolveKind = "empty_body"
)

// Canonical failure reasons produced by the resolvers
const (
	ReasonNoDefinition   = "No definition found"
	ReasonEmptySource    = "Empty Source Code"
	ReasonIndexNoDef     = "Not Definition Found"
	reasonRequestFailed  = "GoDef Request Failed: %v"
	reasonUnexpected     = "Unexpected response from LSP server: %s"
	reasonOutOfWorkspace = "Source code not in workspace: %s"
	reasonSourceNotFound = "Source code not found: %s:%d:%d"
)

// ResolveError is the failure half of a resolver Result.
// Reason is the human-readable text reported in logs and summaries.
type ResolveError struct {
	Type        ErrorType
	Kind        ResolveKind
	Reason      string
	FilePath    string
	Underlying  error
	Timestamp   time.Time
	Recoverable bool
}

// NewResolveError creates a resolution failure with the given kind and reason
func NewResolveError(kind ResolveKind, reason string, err error) *ResolveError {
	return &ResolveError{
		Type:       ErrorTypeResolve,
		Kind:       kind,
		Reason:     reason,
		Underlying: err,
		Timestamp:  time.Now(),
	}
}

// RequestFailed reports a transport or server failure on a definition request
func RequestFailed(err error) *ResolveError {
	return NewResolveError(KindUpstream, fmt.Sprintf(reasonRequestFailed, err), err).WithRecoverable(true)
}

// NoDefinition reports an empty definition response
func NoDefinition() *ResolveError {
	return NewResolveError(KindNotFound, ReasonNoDefinition, nil)
}

// UnexpectedResponse reports a definition response of an unknown shape
func UnexpectedResponse(raw string) *ResolveError {
	return NewResolveError(KindUpstream, fmt.Sprintf(reasonUnexpected, raw), nil)
}

// OutOfWorkspace reports a definition outside the project root
func OutOfWorkspace(path string) *ResolveError {
	return NewResolveError(KindOutOfWorkspace, fmt.Sprintf(reasonOutOfWorkspace, path), nil).WithFile(path)
}

// SourceNotFound reports that no declaration starts at the resolved position
func SourceNotFound(path string, line, col int) *ResolveError {
	return NewResolveError(KindNotFound, fmt.Sprintf(reasonSourceNotFound, path, line, col), nil).WithFile(path)
}

// EmptySource reports a declaration whose extracted text is empty
func EmptySource(path string) *ResolveError {
	return NewResolveError(KindEmptyBody, ReasonEmptySource, nil).WithFile(path)
}

// IndexNoDefinition reports that the symbol index had no candidate
func IndexNoDefinition() *ResolveError {
	return NewResolveError(KindNotFound, ReasonIndexNoDef, nil)
}

// UnreadableSource reports that the definition file could not be read or parsed
func UnreadableSource(path string, err error) *ResolveError {
	return NewResolveError(KindParse, fmt.Sprintf("Failed to read source %s: %v", path, err), err).WithFile(path)
}

// WithFile adds file information to the error
func (e *ResolveError) WithFile(path string) *ResolveError {
	e.FilePath = path
	return e
}

// WithRecoverable marks the error as recoverable
func (e *ResolveError) WithRecoverable(recoverable bool) *ResolveError {
	e.Recoverable = recoverable
	return e
}

// Error implements the error interface
func (e *ResolveError) Error() string {
	return fmt.Sprintf("%s %s: %s", e.Type, e.Kind, e.Reason)
}

// Unwrap returns the underlying error for errors.Is/As
func (e *ResolveError) Unwrap() error {
	return e.Underlying
}

// IsRecoverable checks if the error can be retried
func (e *ResolveError) IsRecoverable() bool {
	return e.Recoverable
}

// ParseError represents a parsing error
type ParseError struct {
	Type       ErrorType
	FilePath   string
	Language   string
	Underlying error
	Timestamp  time.Time
}

// NewParseError creates a new parse error
func NewParseError(path, language string, err error) *ParseError {
	return &ParseError{
		Type:       ErrorTypeParse,
		FilePath:   path,
		Language:   language,
		Underlying: err,
		Timestamp:  time.Now(),
	}
}

// Error implements the error interface
func (e *ParseError) Error() string {
	if e.FilePath == "" {
		return fmt.Sprintf("parse error (%s): %v", e.Language, e.Underlying)
	}
	return fmt.Sprintf("parse error in %s (%s): %v", e.FilePath, e.Language, e.Underlying)
}

// Unwrap returns the underlying error
func (e *ParseError) Unwrap() error {
	return e.Underlying
}

// FileError represents a file-related error
type FileError struct {
	Type       ErrorType
	Path       string
	Operation  string
	Underlying error
	Timestamp  time.Time
}

// NewFileError creates a new file error
func NewFileError(op, path string, err error) *FileError {
	errorType := ErrorTypeFileNotFound
	if isPermissionError(err) {
		errorType = ErrorTypePermission
	}

	return &FileError{
		Type:       errorType,
		Path:       path,
		Operation:  op,
		Underlying: err,
		Timestamp:  time.Now(),
	}
}

func isPermissionError(err error) bool {
	if err == nil {
		return false
	}
	if stderrors.Is(err, fs.ErrPermission) {
		return true
	}
	errStr := err.Error()
	return errStr == "permission denied" || errStr == "access denied"
}

// Error implements the error interface
func (e *FileError) Error() string {
	return fmt.Sprintf("file %s failed for %s: %v", e.Operation, e.Path, e.Underlying)
}

// Unwrap returns the underlying error
func (e *FileError) Unwrap() error {
	return e.Underlying
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field      string
	Value      string
	Underlying error
	Timestamp  time.Time
}

// NewConfigError creates a new config error
func NewConfigError(field, value string, err error) *ConfigError {
	return &ConfigError{
		Field:      field,
		Value:      value,
		Underlying: err,
		Timestamp:  time.Now(),
	}
}

// Error implements the error interface
func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error for field %s (value %s): %v", e.Field, e.Value, e.Underlying)
}

// Unwrap returns the underlying error
func (e *ConfigError) Unwrap() error {
	return e.Underlying
}
