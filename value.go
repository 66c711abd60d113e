// Copyright 2020 Aleksandr Demakin. All rights reserved.

package posit

import (
	"math"
	"math/big"

	"github.com/shopspring/decimal"

	"github.com/avdva/posit/bitfield"
	"github.com/avdva/posit/internal/mathutil"
)

type kind uint8

const (
	kindZero kind = iota
	kindFinite
	kindNaR
)

// guardBits is the number of bits kept by inexact operations beyond the 64-bit fraction window.
const guardBits = 4

// Value is an exact intermediate result: (-1)^neg * sig * 2^(scale-(width(sig)-1)).
// The significand has its leading one at the top and no trailing zeros.
// A sticky Value is inexact: the true value differs from the stored bits by a nonzero amount
// smaller than one unit of the lowest bit of its inexact inputs. Conversions append a one bit
// below the stored ones, so rounding to a coarser precision than that is exact.
// The zero Value is zero.
type Value struct {
	kind   kind
	neg    bool
	scale  int
	sig    bitfield.Field
	sticky bool
}

// NaRValue returns the NaR value.
func NaRValue() Value {
	return Value{kind: kindNaR}
}

// NewValue returns (-1)^neg * mag * 2^exp.
func NewValue(neg bool, exp int, mag bitfield.Field) Value {
	msb := mag.MSB()
	if msb < 0 {
		return Value{}
	}
	tz := mag.TrailingZeros()
	return Value{
		kind:  kindFinite,
		neg:   neg,
		scale: exp + msb,
		sig:   mag.Shr(tz).Resize(uint(msb) - tz + 1),
	}
}

func valueFromUint64(neg bool, exp int, m uint64) Value {
	if m == 0 {
		return Value{}
	}
	return NewValue(neg, exp, bitfield.FromUint64(uint(mathutil.BinaryDigits(m)), m))
}

func valueFromBigInt(neg bool, exp int, m *big.Int) Value {
	if m.Sign() == 0 {
		return Value{}
	}
	return NewValue(neg, exp, bitfield.FromBigInt(uint(m.BitLen()), m))
}

// ValueFromFloat64 returns the exact value of f. NaN and infinities become NaR.
func ValueFromFloat64(f float64) Value {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return NaRValue()
	}
	if f == 0 {
		return Value{}
	}
	frac, exp := math.Frexp(math.Abs(f))
	return valueFromUint64(f < 0, exp-53, uint64(math.Ldexp(frac, 53)))
}

// ValueFromInt64 returns the exact value of v.
func ValueFromInt64(v int64) Value {
	u := uint64(v)
	if v < 0 {
		u = -u
	}
	return valueFromUint64(v < 0, 0, u)
}

// ValueFromUint64 returns the exact value of v.
func ValueFromUint64(v uint64) Value {
	return valueFromUint64(false, 0, v)
}

// ValueFromDecimal converts d into a binary value with at least precision significant bits.
// The result is exact if d is a dyadic rational which fits, and sticky otherwise.
func ValueFromDecimal(d decimal.Decimal, precision uint) Value {
	c := new(big.Int).Set(d.Coefficient())
	if c.Sign() == 0 {
		return Value{}
	}
	neg := c.Sign() < 0
	c.Abs(c)
	exp := int(d.Exponent())
	if exp >= 0 {
		c.Mul(c, new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(exp)), nil))
		return valueFromBigInt(neg, 0, c)
	}
	den := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(-exp)), nil)
	shift := int(precision) + guardBits + den.BitLen() - c.BitLen()
	if shift < 0 {
		shift = 0
	}
	c.Lsh(c, uint(shift))
	q, r := c.QuoRem(c, den, new(big.Int))
	v := valueFromBigInt(neg, -shift, q)
	v.sticky = r.Sign() != 0
	return v
}

// IsZero returns true for zero.
func (v Value) IsZero() bool {
	return v.kind == kindZero
}

// IsNaR returns true for NaR.
func (v Value) IsNaR() bool {
	return v.kind == kindNaR
}

// IsNeg returns true for negative values.
func (v Value) IsNeg() bool {
	return v.kind == kindFinite && v.neg
}

// Sign returns -1, 0, or 1. NaR has sign 0.
func (v Value) Sign() int {
	switch {
	case v.kind != kindFinite:
		return 0
	case v.neg:
		return -1
	default:
		return 1
	}
}

// Exact returns false if v carries a sticky remainder.
func (v Value) Exact() bool {
	return !v.sticky
}

// Scale returns the binary exponent of the leading one bit, zero for zero and NaR.
func (v Value) Scale() int {
	if v.kind != kindFinite {
		return 0
	}
	return v.scale
}

// Exponent returns the binary exponent of the lowest significand bit,
// so that |v| = Significand() * 2^Exponent().
func (v Value) Exponent() int {
	if v.kind != kindFinite {
		return 0
	}
	return v.scale - int(v.sig.Width()) + 1
}

// Significand returns a copy of the significand. It is a one-bit zero field for zero and NaR.
func (v Value) Significand() bitfield.Field {
	if v.kind != kindFinite {
		return bitfield.New(1)
	}
	return v.sig.Clone()
}

// Negate returns -v.
func (v Value) Negate() Value {
	if v.kind == kindFinite {
		v.neg = !v.neg
	}
	return v
}

// Abs returns |v|.
func (v Value) Abs() Value {
	v.neg = false
	return v
}

// fraction returns up to 64 fraction bits below the leading one, left-aligned,
// and whether anything nonzero follows them.
func (v Value) fraction() (uint64, bool) {
	fbits := v.sig.Width() - 1
	if fbits == 0 {
		return 0, v.sticky
	}
	if fbits <= 64 {
		return v.sig.Bits(0, fbits) << (64 - fbits), v.sticky
	}
	lo := fbits - 64
	return v.sig.Bits(lo, 64), v.sticky || v.sig.AnyBelow(lo)
}

// Add returns v+o. The sum of exact values is exact.
func (v Value) Add(o Value) Value {
	switch {
	case v.kind == kindNaR || o.kind == kindNaR:
		return NaRValue()
	case v.kind == kindZero:
		return o
	case o.kind == kindZero:
		return v
	}
	lsb := v.Exponent()
	if e := o.Exponent(); e < lsb {
		lsb = e
	}
	sticky := v.sticky || o.sticky
	if sticky {
		// the remainder of an inexact operand is placed below both operands,
		// so that it keeps its sign through a subtraction.
		lsb--
	}
	top := v.scale
	if o.scale > top {
		top = o.scale
	}
	width := uint(top-lsb) + 2
	a := v.sig.Resize(width).Shl(uint(v.Exponent() - lsb))
	if v.sticky {
		a = a.Increment()
	}
	b := o.sig.Resize(width).Shl(uint(o.Exponent() - lsb))
	if o.sticky {
		b = b.Increment()
	}
	var r Value
	if v.neg == o.neg {
		sum, _ := a.Add(b)
		r = NewValue(v.neg, lsb, sum)
	} else {
		switch a.Cmp(b) {
		case 0:
			return Value{}
		case 1:
			diff, _ := a.Sub(b)
			r = NewValue(v.neg, lsb, diff)
		default:
			diff, _ := b.Sub(a)
			r = NewValue(o.neg, lsb, diff)
		}
	}
	r.sticky = sticky
	return r
}

// Sub returns v-o.
func (v Value) Sub(o Value) Value {
	return v.Add(o.Negate())
}

// Mul returns the exact product v*o.
func (v Value) Mul(o Value) Value {
	switch {
	case v.kind == kindNaR || o.kind == kindNaR:
		return NaRValue()
	case v.kind == kindZero || o.kind == kindZero:
		return Value{}
	}
	r := NewValue(v.neg != o.neg, v.Exponent()+o.Exponent(), bitfield.Mul(v.sig, o.sig))
	r.sticky = v.sticky || o.sticky
	return r
}

// quo returns v/o with at least precision significant bits and a sticky remainder.
// o must be finite and nonzero.
func (v Value) quo(o Value, precision uint) Value {
	switch v.kind {
	case kindNaR:
		return NaRValue()
	case kindZero:
		return Value{}
	}
	wa, wb := int(v.sig.Width()), int(o.sig.Width())
	shift := int(precision) + guardBits + wb - wa
	if shift < 0 {
		shift = 0
	}
	a := v.sig.Resize(uint(wa + shift)).Shl(uint(shift))
	q, rem := bitfield.DivMod(a, o.sig.Resize(a.Width()))
	r := NewValue(v.neg != o.neg, v.Exponent()-shift-o.Exponent(), q)
	r.sticky = v.sticky || o.sticky || !rem.IsZero()
	return r
}

// sqrt returns the square root of a positive v with at least precision significant bits.
func (v Value) sqrt(precision uint) Value {
	if v.kind != kindFinite {
		return v
	}
	exp := v.Exponent()
	shift := 2*(int(precision)+guardBits) - int(v.sig.Width())
	if shift < 0 {
		shift = 0
	}
	if (exp-shift)%2 != 0 {
		shift++
	}
	m := v.sig.Resize(v.sig.Width() + uint(shift)).Shl(uint(shift))
	root, rem := bitfield.Sqrt(m)
	r := NewValue(false, (exp-shift)/2, root)
	r.sticky = v.sticky || !rem.IsZero()
	return r
}

// Cmp compares two values. NaR is less than any other value and equal to itself.
func (v Value) Cmp(o Value) int {
	switch {
	case v.kind == kindNaR && o.kind == kindNaR:
		return 0
	case v.kind == kindNaR:
		return -1
	case o.kind == kindNaR:
		return 1
	}
	return v.Sub(o).Sign()
}

// Equal returns true if both values are equal and exact. NaR is not equal to anything.
func (v Value) Equal(o Value) bool {
	if v.kind == kindNaR || o.kind == kindNaR || v.sticky || o.sticky {
		return false
	}
	return v.Cmp(o) == 0
}

func (v Value) bigFloat() *big.Float {
	m := v.sig
	exp := v.Exponent()
	if v.sticky {
		m = m.Resize(m.Width() + 1).Shl(1).Increment()
		exp--
	}
	f := new(big.Float).SetInt(m.BigInt())
	f.SetMantExp(f, exp)
	if v.neg {
		f.Neg(f)
	}
	return f
}

// Float64 returns the nearest float64, NaN for NaR.
func (v Value) Float64() float64 {
	switch v.kind {
	case kindZero:
		return 0
	case kindNaR:
		return math.NaN()
	}
	f, _ := v.bigFloat().Float64()
	return f
}

// Float32 returns the nearest float32, NaN for NaR.
func (v Value) Float32() float32 {
	switch v.kind {
	case kindZero:
		return 0
	case kindNaR:
		return float32(math.NaN())
	}
	f, _ := v.bigFloat().Float32()
	return f
}

// Decimal returns the exact decimal representation of the stored bits, zero for NaR.
func (v Value) Decimal() decimal.Decimal {
	if v.kind != kindFinite {
		return decimal.Zero
	}
	m := v.sig.BigInt()
	exp := v.Exponent()
	if exp >= 0 {
		m.Lsh(m, uint(exp))
		exp = 0
	} else {
		m.Mul(m, new(big.Int).Exp(big.NewInt(5), big.NewInt(int64(-exp)), nil))
	}
	if v.neg {
		m.Neg(m)
	}
	return decimal.NewFromBigInt(m, int32(exp))
}

// String returns the exact decimal value, or NaR.
func (v Value) String() string {
	if v.kind == kindNaR {
		return "NaR"
	}
	return v.Decimal().String()
}
