package rangecoding

import (
	"cmp"
	"math"

	"github.com/emirpasic/gods/v2/trees/binaryheap"
	"github.com/fumin/rangecoding/ac"
	"gonum.org/v1/gonum/floats"
)

// QuantizeCDF converts a probability mass function into a CDF for Encode and Decode.
//
// The result has len(pmf)+1 entries, starts at 0 and ends at exactly 2^precision.
// pmf need not be normalized.
// Every symbol, including those of zero mass, receives a non-empty interval so that any symbol can be coded.
// A single symbol pmf yields a two entry CDF, which codes without WithDebug only,
// since validated CDFs need at least two symbols.
// The mass lost or gained to rounding is moved between symbols where it costs the fewest bits.
func QuantizeCDF(pmf []float64, precision int) ([]int32, error) {
	if err := ac.CheckPrecision(precision); err != nil {
		return nil, wrapError(KindPrecision, err)
	}
	total := 1 << precision
	if len(pmf) == 0 {
		return nil, newError(KindCDF, "pmf is empty")
	}
	if len(pmf) > total {
		return nil, newError(KindCDF, "%d symbols do not fit in a total of 2^%d", len(pmf), precision)
	}
	for i, p := range pmf {
		if p < 0 || math.IsNaN(p) || math.IsInf(p, 0) {
			return nil, newError(KindCDF, "pmf[%d]=%v is not a finite non-negative number", i, p)
		}
	}
	sum := floats.Sum(pmf)
	if sum <= 0 || math.IsInf(sum, 0) {
		return nil, newError(KindCDF, "pmf sums to %v", sum)
	}

	freq := make([]int, len(pmf))
	assigned := 0
	for i, p := range pmf {
		f := int(math.Round(p / sum * float64(total)))
		if f < 1 {
			f = 1
		}
		freq[i] = f
		assigned += f
	}

	switch {
	case assigned > total:
		// Decrement the bins whose shrinking adds the fewest bits, pmf[i] * log2(f / (f-1)).
		costs := newBinHeap()
		for i, f := range freq {
			if f > 1 {
				costs.Push(bin{index: i, score: pmf[i] * math.Log2(float64(f)/float64(f-1))})
			}
		}
		for ; assigned > total; assigned-- {
			b, _ := costs.Pop()
			freq[b.index]--
			if f := freq[b.index]; f > 1 {
				costs.Push(bin{index: b.index, score: pmf[b.index] * math.Log2(float64(f)/float64(f-1))})
			}
		}
	case assigned < total:
		// Increment the bins whose growth saves the most bits, pmf[i] * log2((f+1) / f).
		gains := newBinHeap()
		for i, f := range freq {
			gains.Push(bin{index: i, score: -pmf[i] * math.Log2(float64(f+1)/float64(f))})
		}
		for ; assigned < total; assigned++ {
			b, _ := gains.Pop()
			freq[b.index]++
			f := freq[b.index]
			gains.Push(bin{index: b.index, score: -pmf[b.index] * math.Log2(float64(f+1)/float64(f))})
		}
	}

	cdf := make([]int32, len(freq)+1)
	for i, f := range freq {
		cdf[i+1] = cdf[i] + int32(f)
	}
	return cdf, nil
}

// QuantizeCDFs applies QuantizeCDF to every vector along the last axis of pmf.
// The last axis of the result is one longer than that of pmf.
func QuantizeCDFs(pmf Tensor[float64], precision int) (Tensor[int32], error) {
	if err := pmf.check(); err != nil {
		return Tensor[int32]{}, err
	}
	if len(pmf.Shape) == 0 {
		return Tensor[int32]{}, newError(KindShape, "pmf should have at least one axis")
	}
	m := pmf.Shape[len(pmf.Shape)-1]
	if m == 0 {
		return Tensor[int32]{}, newError(KindCDF, "pmf is empty: shape %v", pmf.Shape)
	}
	shape := append(Shape{}, pmf.Shape...)
	shape[len(shape)-1] = m + 1

	out := Tensor[int32]{Shape: shape, Data: make([]int32, 0, shape.NumElements())}
	for start := 0; start < len(pmf.Data); start += m {
		cdf, err := QuantizeCDF(pmf.Data[start:start+m], precision)
		if err != nil {
			return Tensor[int32]{}, err
		}
		out.Data = append(out.Data, cdf...)
	}
	return out, nil
}

// Histogram counts the occurrences of each symbol in [0, alphabet) among the elements of data.
// Symbols outside the alphabet are not counted.
func Histogram(data Tensor[int16], alphabet int) ([]float64, error) {
	if err := data.check(); err != nil {
		return nil, err
	}
	if alphabet < 1 {
		return nil, newError(KindValue, "alphabet should be positive: %d", alphabet)
	}
	counts := make([]float64, alphabet)
	for _, v := range data.Data {
		if v >= 0 && int(v) < alphabet {
			counts[v]++
		}
	}
	return counts, nil
}

// A bin is a heap entry ranking one symbol of a CDF under construction.
type bin struct {
	index int
	score float64
}

// newBinHeap returns a heap that pops the lowest score first, breaking ties by index.
func newBinHeap() *binaryheap.Heap[bin] {
	return binaryheap.NewWith[bin](func(x, y bin) int {
		if c := cmp.Compare(x.score, y.score); c != 0 {
			return c
		}
		return cmp.Compare(x.index, y.index)
	})
}
