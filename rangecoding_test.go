package rangecoding

import (
	"math/bits"
	"math/rand"
	"testing"

	"github.com/fumin/rangecoding/ac"
	"github.com/fumin/rangecoding/ac/rangecoder"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// logUniform samples from [0, n) by first picking one of {0}, [1, 2), [2, 4), ..., [2^(m-1), n) uniformly.
func logUniform(r *rand.Rand, n int) int {
	m := bits.Len(uint(n - 1))
	for {
		k := r.Intn(m+1) - 1
		outcome := k + 1
		if k >= 1 {
			outcome = 1<<k + r.Intn(1<<k)
		}
		if outcome < n {
			return outcome
		}
	}
}

// naiveOffset computes the CDF slice offset of a data element from its coordinates.
func naiveOffset(index int, dataShape, cdfShape Shape) int {
	dataStrides := dataShape.Strides()
	cdfStrides := cdfShape.Strides()
	offset := 0
	for i := range dataShape {
		coord := index / dataStrides[i]
		index -= coord * dataStrides[i]
		if cdfShape[i] != 1 {
			offset += coord * cdfStrides[i]
		}
	}
	return offset
}

func populateMaxValues(r *rand.Rand, n, minMaxValue, maxMaxValue int) []int16 {
	maxvalue := make([]int16, n)
	for i := range maxvalue {
		maxvalue[i] = int16(minMaxValue + r.Intn(maxMaxValue-minMaxValue))
	}
	return maxvalue
}

// buildCDF fills data with random symbols below the maxvalue of their CDF slice,
// and returns the CDFs obtained by accumulating the histogram of the symbols sharing each slice.
func buildCDF(t *testing.T, r *rand.Rand, data Tensor[int16], cdfShape Shape, maxvalue []int16) Tensor[int32] {
	t.Helper()
	require.Len(t, cdfShape, len(data.Shape)+1)
	sliceLen := cdfShape[len(cdfShape)-1]

	hist := make([]int32, cdfShape.NumElements())
	for index := range data.Data {
		offset := naiveOffset(index, data.Shape, cdfShape)
		mv := int(maxvalue[offset/sliceLen])
		require.Less(t, mv+1, sliceLen)
		v := logUniform(r, mv)
		data.Data[index] = int16(v)
		hist[offset+v+1]++
	}
	for start := 0; start < len(hist); start += sliceLen {
		for i := start + 1; i < start+sliceLen; i++ {
			hist[i] += hist[i-1]
		}
	}
	return Tensor[int32]{Shape: cdfShape, Data: hist}
}

func newData(shape Shape) Tensor[int16] {
	return Tensor[int16]{Shape: shape, Data: make([]int16, shape.NumElements())}
}

func testEncodeAndDecode(t *testing.T, precision int, data Tensor[int16], cdf Tensor[int32], opts ...Option) []byte {
	t.Helper()
	encoded, err := Encode(data, cdf, precision, opts...)
	require.NoError(t, err)

	decoded, err := Decode(encoded, data.Shape, cdf, precision, opts...)
	require.NoError(t, err)
	require.Equal(t, data.Shape, decoded.Shape)
	require.Equal(t, data.Data, decoded.Data)
	return encoded
}

func TestNoBroadcast(t *testing.T) {
	const precision = 14
	const maxValue = 10
	r := rand.New(rand.NewSource(1))

	data := newData(Shape{1, 32, 32, 16})
	require.LessOrEqual(t, data.Shape.NumElements(), 1<<precision)
	shared := buildCDF(t, r, data, Shape{1, 1, 1, 1, maxValue + 2}, []int16{maxValue})

	// Materialize the shared CDF for every element.
	cdf := Tensor[int32]{Shape: Shape{1, 32, 32, 16, maxValue + 2}}
	for i := 0; i < data.Shape.NumElements(); i++ {
		cdf.Data = append(cdf.Data, shared.Data...)
	}

	encoded := testEncodeAndDecode(t, precision, data, cdf)

	// Broadcasting the shared CDF codes exactly the same stream.
	broadcast := testEncodeAndDecode(t, precision, data, shared)
	assert.Equal(t, encoded, broadcast)
}

func TestBroadcast1Axis(t *testing.T) {
	const precision = 9
	const dimensionSize = 1 << precision
	const minMaxValue = 10
	const maxMaxValue = 64
	r := rand.New(rand.NewSource(2))

	data := newData(Shape{1, dimensionSize, dimensionSize})
	maxvalue := populateMaxValues(r, dimensionSize, minMaxValue, maxMaxValue)

	t.Run("axis1", func(t *testing.T) {
		cdf := buildCDF(t, r, data, Shape{1, 1, dimensionSize, maxMaxValue + 2}, maxvalue)
		testEncodeAndDecode(t, precision, data, cdf)
	})
	t.Run("axis2", func(t *testing.T) {
		cdf := buildCDF(t, r, data, Shape{1, dimensionSize, 1, maxMaxValue + 2}, maxvalue)
		testEncodeAndDecode(t, precision, data, cdf)
	})
}

func TestBroadcast2Axes(t *testing.T) {
	const precision = 13
	const dimensionSize1 = 1 << (precision / 2)
	const dimensionSize2 = 1 << (precision - precision/2)
	const minMaxValue = 10
	const maxMaxValue = 64
	r := rand.New(rand.NewSource(3))

	maxvalue := populateMaxValues(r, 2*7, minMaxValue, maxMaxValue)
	data := newData(Shape{2, dimensionSize1, dimensionSize2, 7})
	cdf := buildCDF(t, r, data, Shape{2, 1, 1, 7, maxMaxValue + 2}, maxvalue)
	testEncodeAndDecode(t, precision, data, cdf)
}

// randomRegularCDFShape returns a CDF shape broadcasting onto dataShape that NewStrideTable accepts.
func randomRegularCDFShape(r *rand.Rand, dataShape Shape, sliceLen int) Shape {
	for {
		cdfShape := make(Shape, 0, len(dataShape)+1)
		for _, d := range dataShape {
			if r.Intn(2) == 0 {
				d = 1
			}
			cdfShape = append(cdfShape, d)
		}
		cdfShape = append(cdfShape, sliceLen)
		if _, err := NewStrideTable(dataShape, cdfShape); err == nil {
			return cdfShape
		}
	}
}

// TestRoundTripRanks codes tensors of every rank up to 9 under valid CDFs with validation on,
// and checks that validation does not change the stream.
func TestRoundTripRanks(t *testing.T) {
	r := rand.New(rand.NewSource(4))
	for rank := 0; rank <= 9; rank++ {
		for trial := 0; trial < 5; trial++ {
			dataShape := make(Shape, rank)
			for i := range dataShape {
				dataShape[i] = 1 + r.Intn(3)
			}
			symbols := 2 + r.Intn(20)
			lo := bits.Len(uint(symbols - 1))
			precision := lo + r.Intn(ac.MaxPrecision-lo+1)
			cdfShape := randomRegularCDFShape(r, dataShape, symbols+1)

			cdf := Tensor[int32]{Shape: cdfShape}
			for i := 0; i < cdfShape[:rank].NumElements(); i++ {
				pmf := make([]float64, symbols)
				for j := range pmf {
					pmf[j] = r.Float64()
				}
				slice, err := QuantizeCDF(pmf, precision)
				require.NoError(t, err)
				cdf.Data = append(cdf.Data, slice...)
			}

			data := newData(dataShape)
			for i := range data.Data {
				data.Data[i] = int16(r.Intn(symbols))
			}

			debug := testEncodeAndDecode(t, precision, data, cdf, WithDebug(true))
			trusted := testEncodeAndDecode(t, precision, data, cdf)
			require.Equal(t, debug, trusted, "rank %d, data %v, cdf %v", rank, dataShape, cdfShape)
		}
	}
}

func requireKind(t *testing.T, err error, kind Kind, substr string) {
	t.Helper()
	require.Error(t, err)
	require.Contains(t, err.Error(), substr)
	var e *Error
	require.True(t, errors.As(err, &e), "%+v", err)
	require.Equal(t, kind, e.Kind)
}

func TestInvalidCdfShape(t *testing.T) {
	data := newData(Shape{3, 3})
	cdf := Tensor[int32]{Shape: Shape{3, 3}, Data: make([]int32, 9)}

	_, err := Encode(data, cdf, 10)
	requireKind(t, err, KindShape, "cdf should have one more axis")
	_, err = Decode(nil, Shape{3, 3}, cdf, 10)
	requireKind(t, err, KindShape, "cdf should have one more axis")

	cdf = Tensor[int32]{Shape: Shape{3, 3, 1}, Data: make([]int32, 9)}
	_, err = Encode(data, cdf, 10)
	requireKind(t, err, KindShape, "last dimension of cdf should be > 1")
	_, err = Decode(nil, Shape{3, 3}, cdf, 10)
	requireKind(t, err, KindShape, "last dimension of cdf should be > 1")
}

func TestInvalidBroadcast(t *testing.T) {
	data := newData(Shape{3, 3})
	cdf := Tensor[int32]{Shape: Shape{3, 2, 2}, Data: make([]int32, 12)}
	_, err := Encode(data, cdf, 10)
	requireKind(t, err, KindShape, "Cannot broadcast shape")

	cdf = Tensor[int32]{Shape: Shape{3, 3, 2}, Data: make([]int32, 18)}
	_, err = Decode(nil, Shape{3, 1}, cdf, 10)
	requireKind(t, err, KindShape, "Cannot broadcast shape")

	shape := Shape{2, 2, 2, 2, 2, 2, 2, 2, 2}
	data = newData(shape)
	cdfShape := Shape{2, 1, 2, 1, 2, 1, 2, 1, 2, 2}
	cdf = Tensor[int32]{Shape: cdfShape, Data: make([]int32, cdfShape.NumElements())}
	_, err = Encode(data, cdf, 10)
	requireKind(t, err, KindShape, "Irregular broadcast")
	_, err = Decode(nil, shape, cdf, 10)
	requireKind(t, err, KindShape, "Irregular broadcast")
}

func TestInvalidPrecision(t *testing.T) {
	data := newData(Shape{})
	cdf := Tensor[int32]{Shape: Shape{3}, Data: []int32{0, 1, 2}}
	for _, precision := range []int{0, 17} {
		_, err := Encode(data, cdf, precision)
		requireKind(t, err, KindPrecision, "precision")
		require.True(t, errors.Is(err, ac.ErrPrecision))

		_, err = Decode(nil, Shape{}, cdf, precision)
		requireKind(t, err, KindPrecision, "precision")
	}
}

func TestInvalidTensors(t *testing.T) {
	cdf := Tensor[int32]{Shape: Shape{3}, Data: []int32{0, 1, 2}}

	_, err := Encode(Tensor[int16]{Shape: Shape{2}, Data: []int16{0}}, cdf, 1)
	requireKind(t, err, KindShape, "needs 2 elements")

	_, err = Encode(newData(Shape{}), Tensor[int32]{Shape: Shape{3}, Data: []int32{0, 1}}, 1)
	requireKind(t, err, KindShape, "needs 3 elements")

	_, err = Decode(nil, Shape{2, -1}, Tensor[int32]{Shape: Shape{1, 1, 3}, Data: []int32{0, 1, 2}}, 1)
	requireKind(t, err, KindShape, "shape[1]=-1")

	_, err = NewTensor(Shape{-1}, []int16{})
	requireKind(t, err, KindShape, "negative")

	wide := Tensor[int32]{Shape: Shape{maxSymbols + 2}, Data: make([]int32, maxSymbols+2)}
	_, err = Encode(newData(Shape{}), wide, 16)
	requireKind(t, err, KindShape, "int16 symbols")
}

func TestEncoderDebug(t *testing.T) {
	data := Tensor[int16]{Shape: Shape{}, Data: []int16{1}}
	cdf := Tensor[int32]{Shape: Shape{4}, Data: []int32{0, 16, 18, 32}}

	_, err := Encode(data, cdf, 5, WithDebug(true))
	require.NoError(t, err)

	data.Data[0] = -1
	_, err = Encode(data, cdf, 5, WithDebug(true))
	requireKind(t, err, KindValue, "value not in [0, 3)")

	data.Data[0] = 5
	_, err = Encode(data, cdf, 5, WithDebug(true))
	requireKind(t, err, KindValue, "value not in [0, 3)")

	data.Data[0] = 1
	cdf.Data = []int32{0, 18, 16, 32}
	_, err = Encode(data, cdf, 5, WithDebug(true))
	requireKind(t, err, KindCDF, "monotonic")

	// A symbol without probability mass cannot be coded.
	empty := Tensor[int32]{Shape: Shape{1, 4}, Data: []int32{0, 16, 16, 32}}
	_, err = Encode(Tensor[int16]{Shape: Shape{4}, Data: []int16{1, 0, 1, 1}}, empty, 5, WithDebug(true))
	requireKind(t, err, KindCDF, "empty interval for data[0]=1: cdf[1]=16, cdf[2]=16")
	_, err = Encode(Tensor[int16]{Shape: Shape{2}, Data: []int16{0, 2}}, empty, 5, WithDebug(true))
	require.NoError(t, err)
}

func TestDecoderDebug(t *testing.T) {
	encoder := rangecoder.NewEncoder()
	encoder.Encode(16, 18, 5)
	encoded := encoder.Finalize()

	cdf := Tensor[int32]{Shape: Shape{4}, Data: []int32{0, 16, 18, 32}}
	decoded, err := Decode(encoded, Shape{}, cdf, 5, WithDebug(true))
	require.NoError(t, err)
	require.Equal(t, []int16{1}, decoded.Data)

	cdf.Data = []int32{1, 16, 18, 32}
	_, err = Decode(encoded, Shape{}, cdf, 5, WithDebug(true))
	requireKind(t, err, KindCDF, "cdf[0]=1")

	cdf.Data = []int32{0, 16, 18, 31}
	_, err = Decode(encoded, Shape{}, cdf, 5, WithDebug(true))
	requireKind(t, err, KindCDF, "cdf[^1]=31")

	cdf.Data = []int32{0, 18, 16, 32}
	_, err = Decode(encoded, Shape{}, cdf, 5, WithDebug(true))
	requireKind(t, err, KindCDF, "monotonic")

	cdf = Tensor[int32]{Shape: Shape{2}, Data: []int32{0, 32}}
	_, err = Decode(encoded, Shape{}, cdf, 5, WithDebug(true))
	requireKind(t, err, KindCDF, "CDF size")
}

// TestTrustedClamp checks that without validation out of range symbols are coded as the nearest valid symbol.
func TestTrustedClamp(t *testing.T) {
	data := Tensor[int16]{Shape: Shape{4}, Data: []int16{-3, 0, 7, 2}}
	cdf := Tensor[int32]{Shape: Shape{1, 4}, Data: []int32{0, 16, 18, 32}}

	encoded, err := Encode(data, cdf, 5)
	require.NoError(t, err)
	decoded, err := Decode(encoded, data.Shape, cdf, 5)
	require.NoError(t, err)
	require.Equal(t, []int16{0, 0, 2, 2}, decoded.Data)
}

func TestTruncatedStream(t *testing.T) {
	r := rand.New(rand.NewSource(5))
	data := newData(Shape{64, 64})
	cdf := buildCDF(t, r, data, Shape{1, 64, 18}, populateMaxValues(r, 64, 4, 16))
	// Each slice totals the 64 rows that share it.
	encoded := testEncodeAndDecode(t, 6, data, cdf)

	for _, n := range []int{0, len(encoded) / 3} {
		decoded, err := Decode(encoded[:n], data.Shape, cdf, 6)
		require.NoError(t, err)
		require.Equal(t, data.Shape, decoded.Shape)
		require.Len(t, decoded.Data, len(data.Data))
	}
}

func TestZeroElements(t *testing.T) {
	data := newData(Shape{0, 3})
	cdf := Tensor[int32]{Shape: Shape{1, 3, 3}, Data: []int32{0, 1, 2, 0, 1, 2, 0, 1, 2}}

	encoded, err := Encode(data, cdf, 1, WithDebug(true))
	require.NoError(t, err)
	require.Empty(t, encoded)

	decoded, err := Decode(encoded, Shape{0, 3}, cdf, 1, WithDebug(true))
	require.NoError(t, err)
	require.Equal(t, Shape{0, 3}, decoded.Shape)
	require.Empty(t, decoded.Data)
}
