package rangecoding

// maxSymbols is the number of distinct symbols an int16 element can hold, [0, 2^15).
const maxSymbols = 1 << 15

// A validator is the checking policy of an encode or decode walk.
// The walk itself is the same whether or not the input is trusted.
type validator interface {
	// value checks the symbol v of the data element at index, whose CDF slice has sliceLen entries.
	value(index int, v int16, sliceLen int) error
	// slice checks the CDF slice stored at offset.
	slice(offset int, cdf []int32) error
	// interval checks that the symbol v of the data element at index owns a non-empty interval of cdf.
	interval(index int, v int16, cdf []int32) error
}

// trusting skips all checks.
type trusting struct{}

func (trusting) value(int, int16, int) error { return nil }

func (trusting) slice(int, []int32) error { return nil }

func (trusting) interval(int, int16, []int32) error { return nil }

// checking verifies every symbol, and every CDF slice the first time it is used.
type checking struct {
	precision int
	sliceLen  int
	seen      []bool
}

func newChecking(precision int, table *StrideTable) *checking {
	return &checking{
		precision: precision,
		sliceLen:  table.SliceLen(),
		seen:      make([]bool, table.NumSlices()),
	}
}

func (c *checking) value(index int, v int16, sliceLen int) error {
	if v < 0 || int(v)+1 >= sliceLen {
		return newError(KindValue, "value not in [0, %d): data[%d]=%d", sliceLen-1, index, v)
	}
	return nil
}

func (c *checking) slice(offset int, cdf []int32) error {
	k := offset / c.sliceLen
	if c.seen[k] {
		return nil
	}
	if err := checkCDF(cdf, c.precision); err != nil {
		return err
	}
	c.seen[k] = true
	return nil
}

func (c *checking) interval(index int, v int16, cdf []int32) error {
	if lower, upper := cdf[v], cdf[v+1]; lower >= upper {
		return newError(KindCDF, "empty interval for data[%d]=%d: cdf[%d]=%d, cdf[%d]=%d", index, v, v, lower, v+1, upper)
	}
	return nil
}

// checkCDF reports whether cdf starts at zero, ends at 2^precision and never decreases.
func checkCDF(cdf []int32, precision int) error {
	if len(cdf) <= 2 {
		return newError(KindCDF, "CDF size should be > 2: %d", len(cdf))
	}
	if cdf[0] != 0 {
		return newError(KindCDF, "cdf[0]=%d, should be 0", cdf[0])
	}
	if last := cdf[len(cdf)-1]; last != 1<<precision {
		return newError(KindCDF, "cdf[^1]=%d, should be %d", last, 1<<precision)
	}
	for i := 1; i < len(cdf); i++ {
		if cdf[i-1] > cdf[i] {
			return newError(KindCDF, "CDF is not monotonic: cdf[%d]=%d > cdf[%d]=%d", i-1, cdf[i-1], i, cdf[i])
		}
	}
	return nil
}

// clampSymbol maps v into [0, sliceLen-2] so that unchecked input never indexes outside its CDF slice.
func clampSymbol(v int16, sliceLen int) int {
	switch {
	case v < 0:
		return 0
	case int(v) > sliceLen-2:
		return sliceLen - 2
	default:
		return int(v)
	}
}
