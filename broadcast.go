package rangecoding

// MaxBroadcastRuns is the largest number of alternating runs of broadcast and non-broadcast axes
// a CDF shape may have.
// Adjacent axes with the same broadcast status are merged into one run,
// so the walk over the data only ever tracks this many counters.
const MaxBroadcastRuns = 5

// A StrideTable maps each element of a data tensor to the offset of its CDF slice,
// without materializing the broadcast CDF tensor.
type StrideTable struct {
	// dims are the sizes of the merged data axes, outermost first.
	dims []int
	// strides are the CDF offset increments of the merged axes, zero on broadcast axes.
	strides []int

	sliceLen    int
	numElements int
	numSlices   int
}

// NewStrideTable validates that a CDF tensor of shape cdfShape can be broadcast onto data of shape dataShape,
// and returns the table that locates the CDF slice of every data element.
//
// cdfShape must have one more axis than dataShape, and that last axis must hold at least two entries.
// Every other CDF axis must equal the data axis or be 1.
func NewStrideTable(dataShape, cdfShape Shape) (*StrideTable, error) {
	if len(cdfShape) != len(dataShape)+1 {
		return nil, newError(KindShape, "cdf should have one more axis than data: cdf shape %v, data shape %v", cdfShape, dataShape)
	}
	sliceLen := cdfShape[len(cdfShape)-1]
	if sliceLen <= 1 {
		return nil, newError(KindShape, "last dimension of cdf should be > 1: cdf shape %v", cdfShape)
	}

	type run struct {
		size      int
		broadcast bool
	}
	var runs []run
	leading := cdfShape[:len(dataShape)]
	for i, d := range dataShape {
		b := leading[i]
		if b != d && b != 1 {
			return nil, newError(KindShape, "Cannot broadcast shape %v to %v", leading, dataShape)
		}
		// Axes of size 1 fit either kind of run.
		if d == 1 {
			continue
		}
		broadcast := b == 1
		if n := len(runs); n > 0 && runs[n-1].broadcast == broadcast {
			runs[n-1].size *= d
			continue
		}
		runs = append(runs, run{size: d, broadcast: broadcast})
	}
	if len(runs) > MaxBroadcastRuns {
		return nil, newError(KindShape, "Irregular broadcast shape %v to %v: %d alternating runs of broadcast axes, at most %d allowed", leading, dataShape, len(runs), MaxBroadcastRuns)
	}

	t := &StrideTable{
		dims:        make([]int, len(runs)),
		strides:     make([]int, len(runs)),
		sliceLen:    sliceLen,
		numElements: dataShape.NumElements(),
		numSlices:   leading.NumElements(),
	}
	stride := sliceLen
	for i := len(runs) - 1; i >= 0; i-- {
		t.dims[i] = runs[i].size
		if !runs[i].broadcast {
			t.strides[i] = stride
			stride *= runs[i].size
		}
	}
	return t, nil
}

// NumElements returns the number of data elements.
func (t *StrideTable) NumElements() int { return t.numElements }

// SliceLen returns the length of each CDF slice, the last dimension of the CDF tensor.
func (t *StrideTable) SliceLen() int { return t.sliceLen }

// NumSlices returns the number of CDF slices stored in the CDF tensor.
func (t *StrideTable) NumSlices() int { return t.numSlices }

// Walk calls fn with the index and CDF slice offset of every data element in row-major order.
// It stops at the first error returned by fn and returns it.
func (t *StrideTable) Walk(fn func(index, offset int) error) error {
	counters := make([]int, len(t.dims))
	offset := 0
	for index := 0; index < t.numElements; index++ {
		if err := fn(index, offset); err != nil {
			return err
		}

		for i := len(t.dims) - 1; i >= 0; i-- {
			counters[i]++
			offset += t.strides[i]
			if counters[i] < t.dims[i] {
				break
			}
			offset -= t.dims[i] * t.strides[i]
			counters[i] = 0
		}
	}
	return nil
}
