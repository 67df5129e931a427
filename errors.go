package yololbl

// Error classification shared by the codec, the reader and the writer.

import (
	"errors"
	"fmt"
)

// Sentinel errors, one per ErrorKind. OpError.Is matches them by kind.
var (
	ErrIO                 = errors.New("i/o failure")
	ErrMalformedClassList = errors.New("malformed class list")
	ErrMalformedRecord    = errors.New("malformed record")
	ErrOutOfRange         = errors.New("class index out of range")
)

// ErrorKind is a coarse-grained categorization for errors.
type ErrorKind string

const (
	KindIO                 ErrorKind = "io"
	KindMalformedClassList ErrorKind = "malformed_class_list"
	KindMalformedRecord    ErrorKind = "malformed_record"
	KindOutOfRange         ErrorKind = "out_of_range"
)

var kindSentinels = map[ErrorKind]error{
	KindIO:                 ErrIO,
	KindMalformedClassList: ErrMalformedClassList,
	KindMalformedRecord:    ErrMalformedRecord,
	KindOutOfRange:         ErrOutOfRange,
}

// OpError wraps an underlying error with operation context and a kind.
type OpError struct {
	Op   string
	Kind ErrorKind
	Path string // Optional: relevant file path.
	Line int    // Optional: 1-based line number within Path.
	Err  error
}

func (e *OpError) Error() string {
	if e == nil {
		return "<nil>"
	}

	base := fmt.Sprintf("%s: %s", e.Op, e.Kind)
	if e.Path != "" {
		base += fmt.Sprintf(" (path=%s", e.Path)
		if e.Line > 0 {
			base += fmt.Sprintf(", line=%d", e.Line)
		}
		base += ")"
	} else if e.Line > 0 {
		base += fmt.Sprintf(" (line=%d)", e.Line)
	}
	if e.Err != nil {
		base += fmt.Sprintf(": %v", e.Err)
	}
	return base
}

func (e *OpError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is reports whether target is the sentinel error for e.Kind.
func (e *OpError) Is(target error) bool {
	if e == nil {
		return false
	}
	s, ok := kindSentinels[e.Kind]
	return ok && s == target
}

// IsKind reports whether err or any error it wraps is an *OpError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var oe *OpError
	if errors.As(err, &oe) {
		return oe.Kind == kind
	}
	return false
}
