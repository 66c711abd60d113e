// Copyright 2020 Aleksandr Demakin. All rights reserved.

// Package posit implements posit<nbits,es> numbers: a tapered-precision binary format,
// where a run-length encoded regime trades fraction bits for dynamic range.
//
//   nbits-1 nbits-2
//   s       rrrr...r t eee...e fff...f
//
// The value of a pattern is (-1)^s * 2^(k*2^es + e) * 1.f, negative patterns are stored in
// two's complement. The all-zero pattern is zero, and the pattern with only the sign bit
// set is NaR (Not a Real), which is the result of any undefined operation.
// Posits are ordered the same way as their patterns read as signed integers.
//
// The quire subpackage provides the exact accumulator for fused dot products.
package posit

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
	"golang.org/x/exp/constraints"

	"github.com/avdva/posit/bitfield"
	"github.com/avdva/posit/internal/mathutil"
)

// decimalPrecision is the number of significant bits a decimal is converted with before rounding.
const decimalPrecision = 128

// Posit is an immutable posit value. Posits are comparable: == is raw bit-pattern equality
// including the configuration. The zero Posit is not usable, construct posits with a Config.
type Posit struct {
	cfg  Config
	bits uint64
}

// FromBits returns a posit with the given pattern. Bits above nbits are ignored.
func (c Config) FromBits(b uint64) Posit {
	c.mustValidate()
	return Posit{cfg: c, bits: b & c.mask()}
}

// FromBitField returns a posit with the given pattern, which must be exactly nbits wide.
func (c Config) FromBitField(f bitfield.Field) (Posit, error) {
	if f.Width() != c.NBits {
		return Posit{}, Error.Wrap(fmt.Errorf("%w: %d-bit pattern for %s", ErrConfigMismatch, f.Width(), c))
	}
	return c.FromBits(f.Uint64()), nil
}

// FromValue rounds v to the nearest posit.
func (c Config) FromValue(v Value) Posit {
	c.mustValidate()
	switch v.kind {
	case kindZero:
		return c.Zero()
	case kindNaR:
		return c.NaR()
	}
	frac, sticky := v.fraction()
	return Posit{cfg: c, bits: c.encode(v.neg, v.scale, frac, sticky)}
}

// FromFloat64 rounds f to the nearest posit. NaN and infinities produce NaR,
// and raise ErrNotAReal in Trap mode.
func (c Config) FromFloat64(f float64) Posit {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		c.trap(ErrNotAReal)
		return c.NaR()
	}
	return c.FromValue(ValueFromFloat64(f))
}

// FromFloat32 rounds f to the nearest posit.
func (c Config) FromFloat32(f float32) Posit {
	return c.FromFloat64(float64(f))
}

// FromInt64 rounds v to the nearest posit.
func (c Config) FromInt64(v int64) Posit {
	return c.FromValue(ValueFromInt64(v))
}

// FromUint64 rounds v to the nearest posit.
func (c Config) FromUint64(v uint64) Posit {
	return c.FromValue(ValueFromUint64(v))
}

// FromDecimal rounds d to the nearest posit.
func (c Config) FromDecimal(d decimal.Decimal) Posit {
	if p, ok := c.saturateDecimal(d); ok {
		return p
	}
	return c.FromValue(ValueFromDecimal(d, decimalPrecision))
}

// FromPosit rounds p, which may have another configuration, to the nearest posit of c.
func (c Config) FromPosit(p Posit) Posit {
	return c.FromValue(p.Value())
}

// FromFloat rounds any float to the nearest posit.
func FromFloat[T constraints.Float](c Config, v T) Posit {
	return c.FromFloat64(float64(v))
}

// FromInt rounds any integer to the nearest posit.
func FromInt[T constraints.Integer](c Config, v T) Posit {
	if v < 0 {
		return c.FromInt64(int64(v))
	}
	return c.FromUint64(uint64(v))
}

// saturateDecimal handles decimals, whose magnitude is so far outside of the dynamic range,
// that converting them exactly is not needed.
func (c Config) saturateDecimal(d decimal.Decimal) (Posit, bool) {
	if d.IsZero() {
		return c.Zero(), true
	}
	// |d| is in [10^(mag-1), 10^mag).
	mag := int64(d.NumDigits()) + int64(d.Exponent())
	// 2^maxScale < 10^(maxScale*0.302)
	limit := int64(float64(c.MaxScale())*math.Log10(2)) + 2
	var p Posit
	switch {
	case mag > limit:
		p = c.MaxPos()
	case mag < -limit:
		p = c.MinPos()
	default:
		return Posit{}, false
	}
	if d.Sign() < 0 {
		p = p.Neg()
	}
	return p, true
}

// Config returns the configuration of p.
func (p Posit) Config() Config {
	return p.cfg
}

// Bits returns the raw pattern.
func (p Posit) Bits() uint64 {
	return p.bits
}

// BitField returns the raw pattern as an nbits-wide field.
func (p Posit) BitField() bitfield.Field {
	return bitfield.FromUint64(p.cfg.NBits, p.bits)
}

// IsNaR returns true for Not-a-Real.
func (p Posit) IsNaR() bool {
	return p.bits == p.cfg.narBits()
}

// IsZero returns true for zero.
func (p Posit) IsZero() bool {
	return p.bits == 0
}

// IsNeg returns true for negative posits. NaR is not negative.
func (p Posit) IsNeg() bool {
	return p.bits&p.cfg.narBits() != 0 && !p.IsNaR()
}

// IsPos returns true for positive posits.
func (p Posit) IsPos() bool {
	return p.bits != 0 && p.bits&p.cfg.narBits() == 0
}

// IsOne returns true for 1.
func (p Posit) IsOne() bool {
	return p.bits == 1<<(p.cfg.NBits-2)
}

// IsMinusOne returns true for -1.
func (p Posit) IsMinusOne() bool {
	return p.bits == -(uint64(1)<<(p.cfg.NBits-2))&p.cfg.mask()
}

// IsPowerOf2 returns true for ±2^n, that is for finite nonzero posits without fraction bits set.
func (p Posit) IsPowerOf2() bool {
	if p.IsZero() || p.IsNaR() {
		return false
	}
	return p.Components().Fraction == 0
}

// Sign returns -1, 0, or 1. NaR has sign 0.
func (p Posit) Sign() int {
	if p.IsNaR() {
		return 0
	}
	return mathutil.Int64Sign(mathutil.SignExtend(p.bits, p.cfg.NBits))
}

// Components returns the decoded fields of p.
func (p Posit) Components() Components {
	return p.cfg.Decompose(p.bits)
}

// Scale returns the binary exponent k*2^es + e, zero for zero and NaR.
func (p Posit) Scale() int {
	if p.IsZero() || p.IsNaR() {
		return 0
	}
	return p.Components().Scale(p.cfg.ES)
}

// Regime returns the regime value k.
func (p Posit) Regime() int {
	return p.Components().K
}

// RegimeBits returns the regime field of the magnitude pattern, including the terminator, and its length.
func (p Posit) RegimeBits() (uint64, uint) {
	c := p.Components()
	field := (p.magnitudeBits() >> (p.cfg.NBits - 1 - c.RegimeLen)) & mathutil.Mask(c.RegimeLen)
	return field, c.RegimeLen
}

// ExponentBits returns the exponent field and its length.
func (p Posit) ExponentBits() (uint64, uint) {
	c := p.Components()
	return c.Exponent, c.ExponentLen
}

// FractionBits returns the fraction field and its length.
func (p Posit) FractionBits() (uint64, uint) {
	c := p.Components()
	return c.Fraction, c.FractionLen
}

func (p Posit) magnitudeBits() uint64 {
	if p.bits&p.cfg.narBits() != 0 {
		return -p.bits & p.cfg.mask()
	}
	return p.bits
}

// Value returns the exact value of p.
func (p Posit) Value() Value {
	switch {
	case p.IsZero():
		return Value{}
	case p.IsNaR():
		return NaRValue()
	}
	c := p.Components()
	sig := uint64(1)<<c.FractionLen | c.Fraction
	return valueFromUint64(c.Neg, c.Scale(p.cfg.ES)-int(c.FractionLen), sig)
}

// Float64 returns the nearest float64, NaN for NaR.
func (p Posit) Float64() float64 {
	return p.Value().Float64()
}

// Float32 returns the nearest float32, NaN for NaR.
func (p Posit) Float32() float32 {
	return p.Value().Float32()
}

// Int64 truncates p toward zero, saturating at the int64 range.
// NaR returns math.MinInt64, and raises ErrNotAReal in Trap mode.
func (p Posit) Int64() int64 {
	if p.IsNaR() {
		p.cfg.trap(ErrNotAReal)
		return math.MinInt64
	}
	v := p.Value()
	if v.IsZero() || v.scale < 0 {
		return 0
	}
	if v.scale >= 63 {
		if v.neg {
			return math.MinInt64
		}
		return math.MaxInt64
	}
	var mag uint64
	if exp := v.Exponent(); exp >= 0 {
		mag = v.sig.Uint64() << uint(exp)
	} else {
		mag = v.sig.Shr(uint(-exp)).Uint64()
	}
	if v.neg {
		return -int64(mag)
	}
	return int64(mag)
}

// Decimal returns the exact decimal value of p. NaR returns zero, and raises ErrNotAReal in Trap mode.
func (p Posit) Decimal() decimal.Decimal {
	if p.IsNaR() {
		p.cfg.trap(ErrNotAReal)
	}
	return p.Value().Decimal()
}
