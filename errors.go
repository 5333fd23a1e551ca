package rangecoding

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies the errors reported by Encode and Decode.
type Kind int

const (
	// KindPrecision is an out of range precision.
	KindPrecision Kind = iota + 1
	// KindShape is a malformed or incompatible shape. Shape errors are always checked.
	KindShape
	// KindValue is a symbol outside its alphabet. Only checked with WithDebug.
	KindValue
	// KindCDF is a malformed CDF slice. Only checked with WithDebug.
	KindCDF
)

func (k Kind) String() string {
	switch k {
	case KindPrecision:
		return "precision"
	case KindShape:
		return "shape"
	case KindValue:
		return "value"
	case KindCDF:
		return "cdf"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// An Error describes invalid input to Encode or Decode.
// Errors are returned with a stack trace attached, use errors.As to retrieve them.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	return e.Msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, format string, args ...interface{}) error {
	return errors.WithStack(&Error{Kind: kind, Msg: fmt.Sprintf(format, args...)})
}

func wrapError(kind Kind, err error) error {
	return errors.WithStack(&Error{Kind: kind, Msg: err.Error(), Err: err})
}
