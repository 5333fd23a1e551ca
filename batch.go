package rangecoding

import (
	"context"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// An EncodeItem is one tensor of an EncodeAll batch, together with its CDF.
type EncodeItem struct {
	Data Tensor[int16]
	CDF  Tensor[int32]
}

// A DecodeItem is one stream of a DecodeAll batch, together with its shape and CDF.
type DecodeItem struct {
	Encoded []byte
	Shape   Shape
	CDF     Tensor[int32]
}

// EncodeAll encodes independent tensors concurrently, each into its own stream.
// Each stream is identical to what Encode returns for the same item.
// The first failure cancels the items not yet started and is returned.
func EncodeAll(ctx context.Context, items []EncodeItem, precision int, opts ...Option) ([][]byte, error) {
	cfg := newConfig(opts)
	out := make([][]byte, len(items))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.concurrency)
	for i := range items {
		i := i // per-iteration copy (go < 1.22 loop semantics)
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return errors.WithStack(err)
			}
			encoded, err := Encode(items[i].Data, items[i].CDF, precision, opts...)
			if err != nil {
				return errors.Wrapf(err, "item %d", i)
			}
			out[i] = encoded
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// DecodeAll decodes independent streams concurrently.
// The first failure cancels the items not yet started and is returned.
func DecodeAll(ctx context.Context, items []DecodeItem, precision int, opts ...Option) ([]Tensor[int16], error) {
	cfg := newConfig(opts)
	out := make([]Tensor[int16], len(items))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.concurrency)
	for i := range items {
		i := i // per-iteration copy (go < 1.22 loop semantics)
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return errors.WithStack(err)
			}
			decoded, err := Decode(items[i].Encoded, items[i].Shape, items[i].CDF, precision, opts...)
			if err != nil {
				return errors.Wrapf(err, "item %d", i)
			}
			out[i] = decoded
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
