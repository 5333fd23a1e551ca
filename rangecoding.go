// Package rangecoding losslessly compresses integer tensors with a range coder,
// using a CDF supplied per element.
//
// The CDFs of a tensor of shape [d0, ..., dR-1] form a tensor of shape [b0, ..., bR-1, A],
// where each bi is either di or 1, in which case the CDFs are broadcast along that axis.
// Every element v is coded with the interval [cdf[v], cdf[v+1]) of its CDF slice, out of a total of 2^precision.
// The encoded stream has no header, so decoding requires the same shape, CDF and precision.
//
// Below is an example of compressing a file of int16 symbols with a shared CDF:
//
//	go run ./compress -precision 14 -cdf cdf.json data.json > data.rc
//	go run ./decompress -precision 14 -cdf cdf.json -shape 32,32,16 < data.rc > decoded.json
package rangecoding

import (
	"runtime"

	"github.com/fumin/rangecoding/ac"
)

// config holds the options of an encode or decode call.
type config struct {
	debug       bool
	concurrency int
}

// An Option configures Encode, Decode and their batch variants.
type Option func(*config)

// WithDebug enables validation of every symbol and every CDF slice in use.
// Without it, invalid symbols and CDFs produce unspecified output instead of an error.
func WithDebug(debug bool) Option {
	return func(c *config) {
		c.debug = debug
	}
}

// WithConcurrency limits the number of tensors EncodeAll and DecodeAll process at once.
// Values below 1 fall back to runtime.GOMAXPROCS(0).
func WithConcurrency(n int) Option {
	return func(c *config) {
		c.concurrency = n
	}
}

func newConfig(opts []Option) config {
	c := config{}
	for _, opt := range opts {
		opt(&c)
	}
	if c.concurrency < 1 {
		c.concurrency = runtime.GOMAXPROCS(0)
	}
	return c
}

// validator returns the validation policy of the walk over table.
func (c config) validator(precision int, table *StrideTable) validator {
	if !c.debug {
		return trusting{}
	}
	return newChecking(precision, table)
}

// prepare runs the checks shared by encoding and decoding, which are never skipped.
func prepare(shape Shape, cdf Tensor[int32], precision int) (*StrideTable, error) {
	if err := ac.CheckPrecision(precision); err != nil {
		return nil, wrapError(KindPrecision, err)
	}
	if err := cdf.check(); err != nil {
		return nil, err
	}
	table, err := NewStrideTable(shape, cdf.Shape)
	if err != nil {
		return nil, err
	}
	if table.SliceLen()-1 > maxSymbols {
		return nil, newError(KindShape, "last dimension of cdf is %d, int16 symbols allow at most %d", table.SliceLen(), maxSymbols+1)
	}
	return table, nil
}
