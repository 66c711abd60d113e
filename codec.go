// Copyright 2020 Aleksandr Demakin. All rights reserved.

package posit

import (
	"math/bits"

	"github.com/avdva/posit/internal/mathutil"
)

// A posit body (everything after the sign bit) is laid out as
//   nbits-2                                                 0
//   rrrr...r t eee...e fff...f
// where r is a run of equal bits, t is the opposite terminator bit,
// e is up to es exponent bits, and f are the fraction bits.
// The codec functions below work on non-negative patterns: the caller takes the
// two's complement of negative posits first.

// DecodeRegime counts the run of equal bits starting at position nbits-2.
// A run of m ones gives k = m-1, a run of m zeros gives k = -m.
// consumed is m+1 if the run is terminated by an opposite bit, and m if it reaches bit 0.
func DecodeRegime(pattern uint64, nbits uint) (k int, consumed uint) {
	body := nbits - 1
	x := pattern << (64 - body)
	first := pattern>>(nbits-2)&1 == 1
	if first {
		x = ^x
	}
	m := mathutil.MinUint(uint(bits.LeadingZeros64(x)), body)
	consumed = m
	if m < body {
		consumed++
	}
	if first {
		return int(m) - 1, consumed
	}
	return -int(m), consumed
}

// ExtractExponent returns up to es exponent bits following a regime of the given length,
// and the number of bits actually available. If n < es, the exponent was truncated by the
// end of the field, and its missing low bits are zeros.
func ExtractExponent(pattern uint64, nbits, es, consumed uint) (e uint64, n uint) {
	remaining := nbits - 1 - consumed
	n = mathutil.MinUint(es, remaining)
	return pattern >> (remaining - n) & mathutil.Mask(n), n
}

// ExtractFraction returns the fraction bits following the regime and the exponent, and their number.
func ExtractFraction(pattern uint64, nbits, es, consumed uint) (f uint64, n uint) {
	remaining := nbits - 1 - consumed
	n = remaining - mathutil.MinUint(es, remaining)
	return pattern & mathutil.Mask(n), n
}

// Components is the decoded form of a posit bit pattern.
type Components struct {
	// Neg is the sign bit.
	Neg bool
	// K is the regime value.
	K int
	// RegimeLen is the number of bits in the regime, including the terminator.
	RegimeLen uint
	// Exponent holds ExponentLen bits.
	Exponent    uint64
	ExponentLen uint
	// Fraction holds FractionLen bits of the hidden-one significand 1.Fraction.
	Fraction    uint64
	FractionLen uint
}

// Scale returns k*2^es + e, where a truncated exponent is zero-extended.
func (c Components) Scale(es uint) int {
	return c.K<<es + int(c.Exponent<<(es-c.ExponentLen))
}

// Decompose splits a pattern into its fields. Negative patterns are decoded from their two's complement.
// Zero and NaR decode as a regime run of zeros covering the whole body.
func (c Config) Decompose(pattern uint64) Components {
	pattern &= c.mask()
	var comp Components
	if pattern&c.narBits() != 0 {
		comp.Neg = true
		pattern = -pattern & c.mask()
	}
	comp.K, comp.RegimeLen = DecodeRegime(pattern, c.NBits)
	comp.Exponent, comp.ExponentLen = ExtractExponent(pattern, c.NBits, c.ES, comp.RegimeLen)
	comp.Fraction, comp.FractionLen = ExtractFraction(pattern, c.NBits, c.ES, comp.RegimeLen)
	return comp
}

// regimeField returns the regime bits for k: k+1 ones or -k zeros, followed by the terminator.
func regimeField(k int) (field uint64, length uint) {
	if k >= 0 {
		length = uint(k) + 2
		return 1<<length - 2, length
	}
	return 1, uint(-k) + 1
}

// encode rounds (-1)^neg * 2^scale * 1.frac to the nearest posit, ties to even.
// frac holds the fraction bits left-aligned, sticky is set if any nonzero bits follow them.
// Magnitudes beyond maxpos and below minpos saturate, a nonzero value never becomes zero or NaR.
func (c Config) encode(neg bool, scale int, frac uint64, sticky bool) uint64 {
	maxScale := c.MaxScale()
	var body uint64
	switch {
	case scale >= maxScale:
		body = c.maxPosBits()
	case scale < -maxScale:
		body = 1
	default:
		body = c.round(scale, frac, sticky)
	}
	if neg {
		return -body & c.mask()
	}
	return body
}

// round assembles regime, exponent and fraction into an (nbits-1)-bit body.
// Bits which do not fit decide the rounding: the first one is the guard bit, the rest are sticky.
// A carry out of the fraction propagates into the exponent and the regime by plain integer addition.
func (c Config) round(scale int, frac uint64, sticky bool) uint64 {
	k, e := mathutil.FloorDivPow2(scale, c.ES)
	regime, rlen := regimeField(k)
	avail := c.NBits - 1 - rlen

	// exponent followed by the fraction, left-aligned.
	tail := frac
	if c.ES > 0 {
		tail = uint64(e)<<(64-c.ES) | frac>>c.ES
		sticky = sticky || frac&mathutil.Mask(c.ES) != 0
	}
	body := regime<<avail | tail>>(64-avail)
	guard := tail>>(63-avail)&1 == 1
	sticky = sticky || tail<<(avail+1) != 0
	if guard && (sticky || body&1 == 1) {
		body++
	}
	return body
}
