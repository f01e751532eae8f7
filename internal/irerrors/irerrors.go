// Package irerrors defines the toolkit's error taxonomy: the five
// conditions passes and verification can raise, each eagerly aborting
// the offending pass rather than a soft diagnostic. verify() itself
// (internal/ir.VerifyFunction) is the one purely-diagnostic exception —
// it collects and returns problems instead of raising.
package irerrors

import (
	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// Kind classifies which of the five taxonomy entries an error belongs
// to.
type Kind int

const (
	TypeMismatch Kind = iota
	MalformedIR
	UnsupportedType
	PassPrecondition
	ExecutionException
)

func (k Kind) String() string {
	switch k {
	case TypeMismatch:
		return "TypeMismatch"
	case MalformedIR:
		return "MalformedIR"
	case UnsupportedType:
		return "UnsupportedType"
	case PassPrecondition:
		return "PassPrecondition"
	case ExecutionException:
		return "ExecutionException"
	default:
		return "Unknown"
	}
}

// Error wraps a Kind with context, built through pkg/errors so callers
// retain a stack trace and can Wrapf additional context as the error
// propagates up through a pass.
type Error struct {
	Kind Kind
	Op   string
	err  error
}

func (e *Error) Error() string { return e.Kind.String() + ": " + e.err.Error() }
func (e *Error) Unwrap() error  { return e.err }

// New builds a taxonomy error of the given kind.
func New(kind Kind, op, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Op: op, err: errors.Errorf(format, args...)}
}

// Wrap attaches a taxonomy Kind to an existing error.
func Wrap(kind Kind, op string, err error) *Error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, err: errors.WithStack(err)}
}

// Is reports whether err is (or wraps) a taxonomy Error of the given
// Kind.
func Is(err error, kind Kind) bool {
	var te *Error
	for err != nil {
		if e, ok := err.(*Error); ok {
			te = e
			break
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	return te != nil && te.Kind == kind
}

// Aggregate combines multiple pass errors into one, dropping nils —
// used by callers that run several independent checks (e.g. verifying
// every function in a module) and want a single combined failure.
func Aggregate(errs ...error) error { return multierr.Combine(errs...) }
