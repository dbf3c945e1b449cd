package pathfs

import (
	"errors"
	"fmt"
)

// Kind classifies a pathfs failure.
type Kind int

const (
	// KindIO is a wrapped operating system failure.
	KindIO Kind = iota
	// KindNotFound means the path is absent where existence is required.
	KindNotFound
	// KindInvalidInput means the path exists but has the wrong type, or the
	// path itself is malformed.
	KindInvalidInput
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not found"
	case KindInvalidInput:
		return "invalid input"
	default:
		return "io failure"
	}
}

// Sentinels usable with errors.Is against any *Error.
var (
	ErrIO           = errors.New("pathfs: io failure")
	ErrNotFound     = errors.New("pathfs: not found")
	ErrInvalidInput = errors.New("pathfs: invalid input")
)

// Error records a failed operation together with the offending path.
type Error struct {
	Kind Kind
	Op   string
	Path Path
	// Dest is set for two-path operations such as copy and rename.
	Dest Path
	Err  error

	msg string
}

func (e *Error) Error() string {
	if e.msg != "" {
		return e.msg
	}
	if e.Dest != "" {
		return fmt.Sprintf("could not %s %s to %s due to: %v", e.Op, e.Path, e.Dest, e.Err)
	}
	return fmt.Sprintf("could not %s %s due to: %v", e.Op, e.Path, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel matching e.Kind.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrIO:
		return e.Kind == KindIO
	case ErrNotFound:
		return e.Kind == KindNotFound
	case ErrInvalidInput:
		return e.Kind == KindInvalidInput
	}
	return false
}

// KindOf returns the Kind of the first *Error in err's chain. Errors that
// did not originate in pathfs are reported as KindIO.
func KindOf(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return KindIO
}

func ioError(op string, path Path, err error) error {
	return &Error{Kind: KindIO, Op: op, Path: path, Err: err}
}

func ioError2(op string, from, to Path, err error) error {
	return &Error{Kind: KindIO, Op: op, Path: from, Dest: to, Err: err}
}

func guardError(kind Kind, path Path, msg string) error {
	return &Error{Kind: kind, Op: "check", Path: path, msg: msg}
}
