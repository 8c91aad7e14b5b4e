package object

import (
	"errors"
	"fmt"
)

// Kind classifies runtime errors.
type Kind int

const (
	KindInternal Kind = iota
	KindLoad
	KindEval
	KindType
	KindRange
	KindRegistration
	KindInvalidObject
)

var kindNames = map[Kind]string{
	KindInternal:      "internal error",
	KindLoad:          "load error",
	KindEval:          "evaluation error",
	KindType:          "type error",
	KindRange:         "range error",
	KindRegistration:  "registration error",
	KindInvalidObject: "invalid object",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error is the error type returned by the runtime and its bindings.
type Error struct {
	Kind Kind
	Op   string // operation or path the error relates to
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is a bare sentinel of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Op == "" && t.Msg == "" && t.Err == nil && t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	ErrInternal       = &Error{Kind: KindInternal}
	ErrLoad           = &Error{Kind: KindLoad}
	ErrEval           = &Error{Kind: KindEval}
	ErrTypeMismatch   = &Error{Kind: KindType}
	ErrOutOfRange     = &Error{Kind: KindRange}
	ErrAlreadyDefined = &Error{Kind: KindRegistration}
	ErrInvalidObject  = &Error{Kind: KindInvalidObject}
)

// KindOf returns the Kind of err, or KindInternal for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// TypeError reports a boundary value of the wrong kind.
func TypeError(expected string, got Value) *Error {
	return &Error{
		Kind: KindType,
		Msg:  fmt.Sprintf("%s expected, got %s", expected, TypeName(got)),
	}
}

// RangeError reports a numeric boundary value outside [min, max].
func RangeError(min, max, got float64) *Error {
	return &Error{
		Kind: KindRange,
		Msg:  fmt.Sprintf("value in [%g, %g] expected, got %g", min, max, got),
	}
}

func invalidObject(op string) *Error {
	return &Error{
		Kind: KindInvalidObject,
		Op:   op,
		Msg:  "attempt to index an object that was already garbage collected",
	}
}

func internalError(op, format string, args ...any) *Error {
	return &Error{Kind: KindInternal, Op: op, Msg: fmt.Sprintf(format, args...)}
}
