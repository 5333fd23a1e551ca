// Package ac holds the limits shared by the coders that scale integer CDFs to a power of two total.
// The coder itself lives in the rangecoder subpackage.
package ac

import (
	"github.com/pkg/errors"
)

// MaxPrecision is the largest number of bits a CDF total may occupy.
//
// The coders keep their range register above 2^16 between symbols,
// so a probability of 2^-16 is the smallest one that still maps to a non-empty interval.
const MaxPrecision = 16

// ErrPrecision is returned when a precision falls outside [1, MaxPrecision].
var ErrPrecision = errors.New("precision out of range")

// CheckPrecision reports whether precision can be used to scale a CDF.
func CheckPrecision(precision int) error {
	if precision < 1 || precision > MaxPrecision {
		return errors.Wrapf(ErrPrecision, "precision should be in [1, %d]: %d", MaxPrecision, precision)
	}
	return nil
}
