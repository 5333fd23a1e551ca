package rangecoding

import (
	"encoding/json"
	"io"
	"os"

	"github.com/pkg/errors"
)

// ReadTensor reads a tensor stored as a JSON object {"shape": [...], "data": [...]}.
func ReadTensor[T int16 | int32 | float64](r io.Reader) (Tensor[T], error) {
	var t Tensor[T]
	if err := json.NewDecoder(r).Decode(&t); err != nil {
		return Tensor[T]{}, errors.Wrap(err, "")
	}
	if t.Data == nil {
		t.Data = []T{}
	}
	if err := t.check(); err != nil {
		return Tensor[T]{}, err
	}
	return t, nil
}

// ReadTensorFile reads a tensor file written by WriteTensor.
func ReadTensorFile[T int16 | int32 | float64](name string) (Tensor[T], error) {
	f, err := os.Open(name)
	if err != nil {
		return Tensor[T]{}, errors.Wrap(err, "")
	}
	defer f.Close()
	t, err := ReadTensor[T](f)
	if err != nil {
		return Tensor[T]{}, errors.Wrapf(err, "%s", name)
	}
	return t, nil
}

// WriteTensor writes t in the format read by ReadTensor.
func WriteTensor[T int16 | int32 | float64](w io.Writer, t Tensor[T]) error {
	if t.Shape == nil {
		t.Shape = Shape{}
	}
	if t.Data == nil {
		t.Data = []T{}
	}
	if err := json.NewEncoder(w).Encode(t); err != nil {
		return errors.Wrap(err, "")
	}
	return nil
}
