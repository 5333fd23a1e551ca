package rangecoding

import (
	"github.com/fumin/rangecoding/ac/rangecoder"
)

// Encode range codes every element of data, in row-major order, into a single stream.
//
// cdf holds one CDF slice per data element, broadcast as described in the package documentation,
// and each slice must total 2^precision, with 1 <= precision <= 16.
// Shape errors are always reported.
// Symbols outside [0, A-1), A being the slice length, and malformed CDFs are reported only WithDebug.
func Encode(data Tensor[int16], cdf Tensor[int32], precision int, opts ...Option) ([]byte, error) {
	cfg := newConfig(opts)
	if err := data.check(); err != nil {
		return nil, err
	}
	table, err := prepare(data.Shape, cdf, precision)
	if err != nil {
		return nil, err
	}

	check := cfg.validator(precision, table)
	enc := rangecoder.NewEncoder()
	n := table.SliceLen()
	err = table.Walk(func(index, offset int) error {
		v := data.Data[index]
		if err := check.value(index, v, n); err != nil {
			return err
		}
		slice := cdf.Data[offset : offset+n]
		if err := check.slice(offset, slice); err != nil {
			return err
		}
		if err := check.interval(index, v, slice); err != nil {
			return err
		}

		s := clampSymbol(v, n)
		enc.Encode(uint32(slice[s]), uint32(slice[s+1]), precision)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return enc.Finalize(), nil
}
