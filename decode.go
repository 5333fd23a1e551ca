package rangecoding

import (
	"github.com/fumin/rangecoding/ac/rangecoder"
)

// Decode reconstructs a tensor of the given shape from a stream produced by Encode.
//
// cdf and precision must be those given to Encode.
// A stream that is shorter than the one Encode produced still decodes to a tensor of the requested shape,
// but its contents are unspecified.
// WithDebug validates every CDF slice in use.
func Decode(encoded []byte, shape Shape, cdf Tensor[int32], precision int, opts ...Option) (Tensor[int16], error) {
	cfg := newConfig(opts)
	for i, d := range shape {
		if d < 0 {
			return Tensor[int16]{}, newError(KindShape, "shape[%d]=%d should be non-negative", i, d)
		}
	}
	table, err := prepare(shape, cdf, precision)
	if err != nil {
		return Tensor[int16]{}, err
	}

	check := cfg.validator(precision, table)
	dec := rangecoder.NewDecoder(encoded)
	out := make([]int16, table.NumElements())
	n := table.SliceLen()
	err = table.Walk(func(index, offset int) error {
		slice := cdf.Data[offset : offset+n]
		if err := check.slice(offset, slice); err != nil {
			return err
		}
		out[index] = int16(dec.Decode(slice, precision))
		return nil
	})
	if err != nil {
		return Tensor[int16]{}, err
	}
	return Tensor[int16]{Shape: append(Shape{}, shape...), Data: out}, nil
}
