// Copyright 2020 Aleksandr Demakin. All rights reserved.

package posit

import (
	"github.com/avdva/posit/internal/mathutil"
)

// precision is the number of significant bits kept by inexact operations before the final rounding.
// It covers the hidden bit and 64 fraction bits, which is more than any posit can store.
const precision = 65

// Neg returns -p. The negation of zero is zero, the negation of NaR is NaR.
func (p Posit) Neg() Posit {
	p.bits = -p.bits & p.cfg.mask()
	return p
}

// Abs returns |p|.
func (p Posit) Abs() Posit {
	if p.IsNeg() {
		return p.Neg()
	}
	return p
}

// Add returns p+q rounded to the nearest posit.
func (p Posit) Add(q Posit) Posit {
	mismatch(p.cfg, q.cfg)
	switch {
	case p.IsNaR() || q.IsNaR():
		return p.cfg.NaR()
	case p.IsZero():
		return p.cfg.FromBits(q.bits)
	case q.IsZero():
		return p
	}
	return p.cfg.FromValue(p.Value().Add(q.Value()))
}

// Sub returns p-q rounded to the nearest posit.
func (p Posit) Sub(q Posit) Posit {
	return p.Add(q.Neg())
}

// Mul returns p*q rounded to the nearest posit.
func (p Posit) Mul(q Posit) Posit {
	mismatch(p.cfg, q.cfg)
	switch {
	case p.IsNaR() || q.IsNaR():
		return p.cfg.NaR()
	case p.IsZero() || q.IsZero():
		return p.cfg.Zero()
	}
	return p.cfg.FromValue(p.Value().Mul(q.Value()))
}

// Div returns p/q rounded to the nearest posit.
// Division by zero produces NaR, and raises ErrDivideByZero in Trap mode.
func (p Posit) Div(q Posit) Posit {
	mismatch(p.cfg, q.cfg)
	switch {
	case p.IsNaR() || q.IsNaR():
		return p.cfg.NaR()
	case q.IsZero():
		p.cfg.trap(ErrDivideByZero)
		return p.cfg.NaR()
	case p.IsZero():
		return p
	}
	return p.cfg.FromValue(p.Value().quo(q.Value(), precision))
}

// Reciprocal returns 1/p.
func (p Posit) Reciprocal() Posit {
	return p.cfg.One().Div(p)
}

// Sqrt returns the square root of p.
// A negative argument produces NaR, and raises ErrNegativeSqrt in Trap mode.
func (p Posit) Sqrt() Posit {
	switch {
	case p.IsNaR() || p.IsZero():
		return p
	case p.IsNeg():
		p.cfg.trap(ErrNegativeSqrt)
		return p.cfg.NaR()
	}
	if t := sqrtTableFor(p.cfg); t != nil {
		return p.cfg.FromBits(uint64(t[p.bits]))
	}
	return p.sqrt()
}

func (p Posit) sqrt() Posit {
	return p.cfg.FromValue(p.Value().sqrt(precision))
}

// FMA returns a*b+c with a single rounding.
func FMA(a, b, c Posit) Posit {
	mismatch(a.cfg, b.cfg)
	mismatch(a.cfg, c.cfg)
	if a.IsNaR() || b.IsNaR() || c.IsNaR() {
		return a.cfg.NaR()
	}
	return a.cfg.FromValue(a.Value().Mul(b.Value()).Add(c.Value()))
}

// QuireMul returns the exact, unrounded product of a and b, ready to be accumulated in a quire.
func QuireMul(a, b Posit) Value {
	mismatch(a.cfg, b.cfg)
	return a.Value().Mul(b.Value())
}

// Next returns the posit with the next pattern: the next larger value,
// maxpos for NaR, and NaR for maxpos.
func (p Posit) Next() Posit {
	p.bits = (p.bits + 1) & p.cfg.mask()
	return p
}

// Prev returns the posit with the previous pattern.
func (p Posit) Prev() Posit {
	p.bits = (p.bits - 1) & p.cfg.mask()
	return p
}

// Cmp compares p and q in the order of their patterns read as signed integers.
// NaR is less than every other posit.
func (p Posit) Cmp(q Posit) int {
	mismatch(p.cfg, q.cfg)
	a, b := mathutil.SignExtend(p.bits, p.cfg.NBits), mathutil.SignExtend(q.bits, q.cfg.NBits)
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// RawEqual returns true if p and q have the same format and pattern. NaR is raw-equal to itself.
func (p Posit) RawEqual(q Posit) bool {
	return p.cfg.NBits == q.cfg.NBits && p.cfg.ES == q.cfg.ES && p.bits == q.bits
}

// Equal returns true if p and q are the same real number. NaR is not equal to anything.
func (p Posit) Equal(q Posit) bool {
	return !p.IsNaR() && !q.IsNaR() && p.Cmp(q) == 0
}

// Less returns p < q, false if any of them is NaR.
func (p Posit) Less(q Posit) bool {
	return !p.IsNaR() && !q.IsNaR() && p.Cmp(q) < 0
}

// LessEq returns p <= q, false if any of them is NaR.
func (p Posit) LessEq(q Posit) bool {
	return !p.IsNaR() && !q.IsNaR() && p.Cmp(q) <= 0
}

// Greater returns p > q, false if any of them is NaR.
func (p Posit) Greater(q Posit) bool {
	return q.Less(p)
}

// GreaterEq returns p >= q, false if any of them is NaR.
func (p Posit) GreaterEq(q Posit) bool {
	return q.LessEq(p)
}

// Min returns the smaller of p and q, or NaR if any of them is NaR.
func Min(p, q Posit) Posit {
	if p.IsNaR() || q.IsNaR() {
		return p.cfg.NaR()
	}
	if q.Less(p) {
		return q
	}
	return p
}

// Max returns the larger of p and q, or NaR if any of them is NaR.
func Max(p, q Posit) Posit {
	if p.IsNaR() || q.IsNaR() {
		return p.cfg.NaR()
	}
	if q.Greater(p) {
		return q
	}
	return p
}
