package quire

import (
	"errors"
	"fmt"

	"github.com/avdva/posit"
)

// ErrLengthMismatch is returned by Dot for vectors of different lengths.
var ErrLengthMismatch = errors.New("vector length mismatch")

// Dot returns the fused dot product of x and y: all products are accumulated exactly
// and the sum is rounded once. The result does not depend on the order of the elements.
func Dot(cfg posit.Config, x, y []posit.Posit) (posit.Posit, error) {
	if len(x) != len(y) {
		return cfg.NaR(), Error.Wrap(fmt.Errorf("%w: %d != %d", ErrLengthMismatch, len(x), len(y)))
	}
	q := New(cfg, 0)
	for i := range x {
		if err := q.AddProduct(x[i], y[i]); err != nil {
			return cfg.NaR(), err
		}
	}
	return q.Posit(), nil
}

// Sum returns the fused sum of x, rounded once.
func Sum(cfg posit.Config, x []posit.Posit) (posit.Posit, error) {
	q := New(cfg, 0)
	for _, p := range x {
		if err := q.AddPosit(p); err != nil {
			return cfg.NaR(), err
		}
	}
	return q.Posit(), nil
}
