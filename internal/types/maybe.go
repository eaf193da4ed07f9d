package types

import (
	"github.com/standardbeagle/unitsync/internal/errors"
)

// Maybe holds a value that is either Found or absent by design.
// Absence is an expected outcome (a test without a focal call, a line without a declaration)
// and carries no reason; use Result when the caller needs to know why.
type Maybe[T any] struct {
	value T
	ok    bool
}

// Found wraps a present value
func Found[T any](v T) Maybe[T] {
	return Maybe[T]{value: v, ok: true}
}

// NotFound returns the empty Maybe
func NotFound[T any]() Maybe[T] {
	return Maybe[T]{}
}

// Get returns the value and whether it is present
func (m Maybe[T]) Get() (T, bool) {
	return m.value, m.ok
}

// IsFound reports whether a value is present
func (m Maybe[T]) IsFound() bool {
	return m.ok
}

// Result is either a Success carrying a value or a Failure carrying a ResolveError.
type Result[T any] struct {
	value T
	err   *errors.ResolveError
}

// Success wraps a value
func Success[T any](v T) Result[T] {
	return Result[T]{value: v}
}

// Failure wraps a failure reason
func Failure[T any](err *errors.ResolveError) Result[T] {
	if err == nil {
		err = errors.NewResolveError(errors.KindUpstream, "unknown failure", nil)
	}
	return Result[T]{err: err}
}

// Get returns the value and the failure, exactly one of which is meaningful
func (r Result[T]) Get() (T, *errors.ResolveError) {
	return r.value, r.err
}

// IsSuccess reports whether the result carries a value
func (r Result[T]) IsSuccess() bool {
	return r.err == nil
}

// Err returns the failure or nil.
func (r Result[T]) Err() *errors.ResolveError {
	return r.err
}

// Reason returns the human-readable failure reason, empty on success
func (r Result[T]) Reason() string {
	if r.err == nil {
		return ""
	}
	return r.err.Reason
}

// FromMaybe converts a Maybe to a Result, building the failure lazily when absent.
func FromMaybe[T any](m Maybe[T], onMissing func() *errors.ResolveError) Result[T] {
	if v, ok := m.Get(); ok {
		return Success(v)
	}
	return Failure[T](onMissing())
}

// Bind chains a fallible step onto a successful Result.
func Bind[T, U any](r Result[T], next func(T) Result[U]) Result[U] {
	if r.err != nil {
		return Failure[U](r.err)
	}
	return next(r.value)
}
