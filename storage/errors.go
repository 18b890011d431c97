package storage

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrIO         = errors.New("io error")
	ErrCorruption = errors.New("corruption")
	ErrEncoding   = errors.New("encoding error")
	ErrDecoding   = errors.New("decoding error")
	ErrCompaction = errors.New("compaction failed")
	ErrClosed     = errors.New("closed")
)

// Error carries the kind of a storage failure together with the operation
// and file that produced it. errors.Is matches it against its Kind and
// against anything in the wrapped chain.
type Error struct {
	Kind error
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Kind.Error()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Path != "" {
		msg = fmt.Sprintf("%s %s", msg, e.Path)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}

	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	return target == e.Kind
}

func newError(kind error, op, path string, err error) error {
	return &Error{Kind: kind, Op: op, Path: path, Err: err}
}

func IOError(op, path string, err error) error {
	return newError(ErrIO, op, path, err)
}

func CorruptionError(op, path string, err error) error {
	return newError(ErrCorruption, op, path, err)
}

func EncodingError(op string, err error) error {
	return newError(ErrEncoding, op, "", err)
}

func DecodingError(op string, err error) error {
	return newError(ErrDecoding, op, "", err)
}

func CompactionError(op, path string, err error) error {
	return newError(ErrCompaction, op, path, err)
}

func ClosedError(op, path string) error {
	return newError(ErrClosed, op, path, nil)
}

// IsCompactionError reports whether err came from a compaction that ran
// after its triggering insert had already been committed.
func IsCompactionError(err error) bool {
	return errors.Is(err, ErrCompaction)
}
