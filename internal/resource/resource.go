// Package resource provides the tri-state envelope used to report results
// that can be in flight, settled, or failed.
package resource

import "fmt"

// State is the lifecycle state of a Resource.
type State int

const (
	StateLoading State = iota
	StateSuccess
	StateError
)

// String returns the lower-case state name.
func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateSuccess:
		return "success"
	case StateError:
		return "error"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Resource wraps a value with its loading state. Values are built only through
// Loading, Success and Error and are never modified after construction.
type Resource[T any] struct {
	state   State
	data    T
	hasData bool
	message string
}

// Loading returns an in-flight envelope. data may be stale cached content.
func Loading[T any](data T, ok bool) Resource[T] {
	r := Resource[T]{state: StateLoading}
	if ok {
		r.data = data
		r.hasData = true
	}
	return r
}

// Success returns a settled envelope carrying data.
func Success[T any](data T) Resource[T] {
	return Resource[T]{state: StateSuccess, data: data, hasData: true}
}

// Error returns a failed envelope. data, when ok is set, is the last known
// good value so callers can keep displaying it.
func Error[T any](message string, data T, ok bool) Resource[T] {
	if message == "" {
		message = "unknown error"
	}
	r := Resource[T]{state: StateError, message: message}
	if ok {
		r.data = data
		r.hasData = true
	}
	return r
}

// State returns the envelope state.
func (r Resource[T]) State() State { return r.state }

// Data returns the carried value and whether one is present.
func (r Resource[T]) Data() (T, bool) { return r.data, r.hasData }

// Message returns the failure reason for Error envelopes.
func (r Resource[T]) Message() string { return r.message }

func (r Resource[T]) IsLoading() bool { return r.state == StateLoading }
func (r Resource[T]) IsSuccess() bool { return r.state == StateSuccess }
func (r Resource[T]) IsError() bool   { return r.state == StateError }

// Settled reports whether the envelope is a Success or an Error.
func (r Resource[T]) Settled() bool { return r.state != StateLoading }

// String implements fmt.Stringer.
func (r Resource[T]) String() string {
	switch r.state {
	case StateError:
		return fmt.Sprintf("error(%s, data=%t)", r.message, r.hasData)
	default:
		return fmt.Sprintf("%s(data=%t)", r.state, r.hasData)
	}
}

// Map converts the carried data while keeping state and message.
func Map[T, U any](r Resource[T], fn func(T) U) Resource[U] {
	out := Resource[U]{state: r.state, message: r.message, hasData: r.hasData}
	if r.hasData {
		out.data = fn(r.data)
	}
	return out
}
