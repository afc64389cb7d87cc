// Package apierr defines the error kinds a run can fail with.
//
// Every failure that aborts a run is an *Error carrying the stage that failed
// and the input it was working on, so the CLI can print one line that is
// enough to diagnose the problem and pick an exit code.
package apierr

import (
	"errors"
	"fmt"
)

// Kind classifies a pipeline failure.
type Kind int

const (
	KindUnknown Kind = iota
	KindConfiguration
	KindFetch
	KindParse
	KindExtraction
	KindMapping
	KindGeneration
	KindCatalog
)

func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindFetch:
		return "fetch"
	case KindParse:
		return "parse"
	case KindExtraction:
		return "extraction"
	case KindMapping:
		return "mapping"
	case KindGeneration:
		return "generation"
	case KindCatalog:
		return "catalog"
	default:
		return "unknown"
	}
}

// Error is a classified pipeline failure.
type Error struct {
	Kind Kind
	// Stage names the pipeline step, e.g. "fetch" or "locate".
	Stage string
	// Input is the offending input (URL, heading id, file path). May be empty.
	Input string
	Msg   string
	Err   error
}

func (e *Error) Error() string {
	msg := e.Msg
	if e.Err != nil {
		if msg == "" {
			msg = e.Err.Error()
		} else {
			msg = msg + ": " + e.Err.Error()
		}
	}
	prefix := e.Kind.String() + " error"
	if e.Stage != "" {
		prefix += " in " + e.Stage
	}
	if e.Input != "" {
		prefix += fmt.Sprintf(" (%s)", e.Input)
	}
	return prefix + ": " + msg
}

func (e *Error) Unwrap() error { return e.Err }

// New returns an *Error without a cause.
func New(kind Kind, stage, input, format string, args ...any) *Error {
	return &Error{Kind: kind, Stage: stage, Input: input, Msg: fmt.Sprintf(format, args...)}
}

// Wrap classifies err. It returns nil when err is nil, and err unchanged
// when it is already classified, so the innermost stage and input win.
func Wrap(kind Kind, stage, input string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return &Error{Kind: kind, Stage: stage, Input: input, Err: err}
}

// Wrapf classifies err with an extra message.
func Wrapf(kind Kind, stage, input string, err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Stage: stage, Input: input, Msg: fmt.Sprintf(format, args...), Err: err}
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
