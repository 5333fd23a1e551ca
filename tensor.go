package rangecoding

import (
	"fmt"
	"strings"
)

// Shape holds the dimensions of a tensor, outermost first.
type Shape []int

// NumElements returns the number of elements of a tensor with this shape.
// A scalar, whose shape is empty, has one element.
func (s Shape) NumElements() int {
	n := 1
	for _, d := range s {
		n *= d
	}
	return n
}

// Strides returns the row-major strides of the shape.
func (s Shape) Strides() []int {
	strides := make([]int, len(s))
	stride := 1
	for i := len(s) - 1; i >= 0; i-- {
		strides[i] = stride
		stride *= s[i]
	}
	return strides
}

// Equal reports whether s and other have the same dimensions.
func (s Shape) Equal(other Shape) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

func (s Shape) String() string {
	dims := make([]string, len(s))
	for i, d := range s {
		dims[i] = fmt.Sprint(d)
	}
	return "[" + strings.Join(dims, ",") + "]"
}

// A Tensor is a dense row-major array.
type Tensor[T int16 | int32 | float64] struct {
	Shape Shape `json:"shape"`
	Data  []T   `json:"data"`
}

// NewTensor returns a tensor of the given shape backed by data.
func NewTensor[T int16 | int32 | float64](shape Shape, data []T) (Tensor[T], error) {
	t := Tensor[T]{Shape: shape, Data: data}
	if err := t.check(); err != nil {
		return Tensor[T]{}, err
	}
	return t, nil
}

func (t Tensor[T]) check() error {
	for i, d := range t.Shape {
		if d < 0 {
			return newError(KindShape, "dimension %d of shape %v is negative", i, t.Shape)
		}
	}
	if n := t.Shape.NumElements(); n != len(t.Data) {
		return newError(KindShape, "shape %v needs %d elements, got %d", t.Shape, n, len(t.Data))
	}
	return nil
}
