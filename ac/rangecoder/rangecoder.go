// Package rangecoder implements a range coder whose symbol intervals are given by integer CDFs
// scaled to a power of two total.
//
// Both machines track the half-open interval [base, base+size) in 32 bit registers and keep
// 2^16 <= size <= 2^32 between symbols.
// Whenever a symbol shrinks size below 2^16, 16 bits are shifted out of (or into) the registers.
// Since a CDF total never exceeds 2^16, no symbol with a non-empty CDF interval can collapse the range.
package rangecoder

import (
	"math"
)

const (
	// renormBits is the number of bits moved between the registers and the stream at each renormalization.
	renormBits = 16

	// filler is the byte the decoder reads once the stream is exhausted.
	// The encoder relies on it by omitting trailing zero bytes in Finalize.
	filler byte = 0
)

// A carryRun holds output that is undecided while the encoder interval straddles 2^32.
// The interval contains 2^32 only after a renormalization shifted out a word top < 0xFFFF,
// so the run resolves either to top+1 followed by words zero words when base later overflows,
// or to top followed by words 0xFFFF words when the interval ends up below 2^32.
type carryRun struct {
	active bool
	top    uint16
	words  int
}

// An Encoder carries the state of a single encoding pass.
// The zero value is not ready for use, call NewEncoder instead.
type Encoder struct {
	base       uint32
	sizeMinus1 uint32
	run        carryRun
	sink       []byte
}

// NewEncoder returns an encoder whose interval is [0, 2^32).
func NewEncoder() *Encoder {
	return &Encoder{sizeMinus1: math.MaxUint32}
}

// Encode narrows the interval to the symbol interval [lower, upper) out of 2^precision.
//
// Encode does not validate its arguments.
// Callers must ensure 0 <= lower < upper <= 2^precision and 1 <= precision <= 16,
// otherwise the output is unspecified.
func (e *Encoder) Encode(lower, upper uint32, precision int) {
	size := uint64(e.sizeMinus1) + 1

	// a and b are the first and last offsets of the new interval relative to base.
	// Since lower < 2^precision and size <= 2^32, a fits in 32 bits, and so does b.
	a := uint32((size * uint64(lower)) >> precision)
	b := uint32((size*uint64(upper))>>precision - 1)

	e.base += a
	e.sizeMinus1 = b - a
	overflow := e.base < a

	if e.base+e.sizeMinus1 < e.base {
		// The interval still contains 2^32.
		// Its leading word is 0xFFFF if there is no carry, so it joins the run.
		if e.sizeMinus1>>renormBits == 0 {
			e.shift()
			e.run.words++
		}
		return
	}

	if e.run.active {
		e.flushRun(overflow)
	}

	if e.sizeMinus1>>renormBits == 0 {
		top := uint16(e.base >> renormBits)
		e.shift()
		if e.base <= e.base+e.sizeMinus1 {
			e.sink = append(e.sink, byte(top>>8), byte(top))
		} else {
			e.run = carryRun{active: true, top: top}
		}
	}
}

func (e *Encoder) shift() {
	e.base <<= renormBits
	e.sizeMinus1 = e.sizeMinus1<<renormBits | (1<<renormBits - 1)
}

// flushRun writes the pending run once it is known whether base overflowed.
func (e *Encoder) flushRun(carry bool) {
	top, fill := e.run.top, byte(0xFF)
	if carry {
		top, fill = top+1, 0
	}
	e.sink = append(e.sink, byte(top>>8), byte(top))
	for i := 0; i < 2*e.run.words; i++ {
		e.sink = append(e.sink, fill)
	}
	e.run = carryRun{}
}

// Finalize writes out the shortest byte string that identifies a value inside the current interval,
// and returns the complete stream.
// Trailing zero bytes are omitted, the decoder fills them in.
// The encoder is reset afterwards and may start a new stream.
func (e *Encoder) Finalize() []byte {
	switch {
	case e.run.active:
		// base < 2^32 < base+size, so pick 2^32, which is top+1 followed by zeros.
		e.appendTrimmed(e.run.top + 1)
	case e.base != 0:
		// Round base up to a multiple of 2^16.
		// As size >= 2^16, the result stays inside the interval.
		e.appendTrimmed(uint16((e.base-1)>>renormBits + 1))
	}

	out := e.sink
	*e = Encoder{sizeMinus1: math.MaxUint32}
	return out
}

func (e *Encoder) appendTrimmed(word uint16) {
	e.sink = append(e.sink, byte(word>>8))
	if word&0xFF != 0 {
		e.sink = append(e.sink, byte(word))
	}
}

// A Decoder carries the state of a single decoding pass.
type Decoder struct {
	base       uint32
	sizeMinus1 uint32
	value      uint32

	src []byte
	pos int
}

// NewDecoder returns a decoder reading the stream src produced by Encoder.
func NewDecoder(src []byte) *Decoder {
	d := &Decoder{sizeMinus1: math.MaxUint32, src: src}
	d.read16()
	d.read16()
	return d
}

// Decode returns the index of the symbol in cdf that the encoder wrote at this position,
// and advances past it.
//
// cdf must be the same CDF, and precision the same precision, given to the encoder.
// Decode expects cdf[0] == 0.
// If the current value lies beyond the last interval, which only happens for invalid CDFs,
// the last symbol len(cdf)-2 is returned.
// CDFs shorter than 2 entries have no symbols and decode to 0 without consuming input.
func (d *Decoder) Decode(cdf []int32, precision int) int {
	if len(cdf) < 2 {
		return 0
	}

	size := uint64(d.sizeMinus1) + 1
	offset := (uint64(d.value-d.base)+1)<<precision - 1

	// Find the smallest v >= 1 such that offset < size * cdf[v],
	// in other words the first interval starting beyond the current value.
	v, n := 1, len(cdf)-1
	for n > 0 {
		half := n / 2
		mid := v + half
		if size*uint64(uint32(cdf[mid])) <= offset {
			v = mid + 1
			n -= half + 1
		} else {
			n = half
		}
	}
	if v == len(cdf) {
		v--
	}

	a := uint32((size * uint64(uint32(cdf[v-1]))) >> precision)
	b := uint32((size*uint64(uint32(cdf[v])))>>precision - 1)

	d.base += a
	d.sizeMinus1 = b - a
	if d.sizeMinus1>>renormBits == 0 {
		d.base <<= renormBits
		d.sizeMinus1 = d.sizeMinus1<<renormBits | (1<<renormBits - 1)
		d.read16()
	}

	return v - 1
}

func (d *Decoder) read16() {
	d.value = d.value<<8 | uint32(d.next())
	d.value = d.value<<8 | uint32(d.next())
}

func (d *Decoder) next() byte {
	if d.pos >= len(d.src) {
		return filler
	}
	b := d.src[d.pos]
	d.pos++
	return b
}
