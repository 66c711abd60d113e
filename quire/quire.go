// Copyright 2020 Aleksandr Demakin. All rights reserved.

// Package quire implements an exact fixed-point accumulator for posit products.
//
// A quire for posit<nbits,es> with range = 2^es*(4*nbits-8) is a two's complement register
//
//   sign | capacity | range/2 + 1 integer bits . range/2 fraction bits
//
// It holds the product of any two posits exactly, and the sum of up to 2^capacity
// products of maxpos, so a dot product is rounded only once, when it is read back.
package quire

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zeebo/errs"

	"github.com/avdva/posit"
	"github.com/avdva/posit/bitfield"
)

// DefaultCapacity is the number of headroom bits used when New is given zero.
const DefaultCapacity = 30

var (
	// Error is the class of all quire errors.
	Error = errs.Class("quire")

	// ErrOperandTooLarge is returned in Trap mode for operands above the capacity of the quire.
	ErrOperandTooLarge = errors.New("operand too large for quire")
	// ErrOperandTooSmall is returned in Trap mode for operands with bits below the quire resolution.
	ErrOperandTooSmall = errors.New("operand too small for quire")
	// ErrOperandIsNaR is returned in Trap mode when NaR is accumulated.
	ErrOperandIsNaR = errors.New("operand is NaR")
	// ErrCapacityExceeded is returned in Trap mode when a sum does not fit the quire.
	ErrCapacityExceeded = errors.New("quire capacity exceeded")
)

// Status records the conditions, which were absorbed by a Silent quire.
type Status uint8

const (
	// Overflow is set when an operand or a sum was saturated.
	Overflow Status = 1 << iota
	// Underflow is set when operand bits below the quire resolution were dropped.
	Underflow
)

func (s Status) String() string {
	var parts []string
	if s&Overflow != 0 {
		parts = append(parts, "overflow")
	}
	if s&Underflow != 0 {
		parts = append(parts, "underflow")
	}
	if len(parts) == 0 {
		return "ok"
	}
	return strings.Join(parts, "|")
}

// Quire is a mutable accumulator. It must not be used from several goroutines at once.
type Quire struct {
	cfg      posit.Config
	capacity uint
	radix    uint
	acc      bitfield.Field
	nar      bool
	status   Status
}

// New returns a zero quire for cfg with the given number of headroom bits.
func New(cfg posit.Config, capacity uint) *Quire {
	if err := cfg.Validate(); err != nil {
		panic(err)
	}
	if capacity == 0 {
		capacity = DefaultCapacity
	}
	radix := DynamicRange(cfg) / 2
	return &Quire{
		cfg:      cfg,
		capacity: capacity,
		radix:    radix,
		acc:      bitfield.New(2*radix + 1 + capacity + 1),
	}
}

// DynamicRange returns 2^es*(4*nbits-8), the number of bits needed to hold the product of any two posits.
func DynamicRange(cfg posit.Config) uint {
	return (4*cfg.NBits - 8) << cfg.ES
}

// Config returns the posit configuration of q.
func (q *Quire) Config() posit.Config {
	return q.cfg
}

// Capacity returns the number of headroom bits.
func (q *Quire) Capacity() uint {
	return q.capacity
}

// Radix returns the number of fraction bits.
func (q *Quire) Radix() uint {
	return q.radix
}

// TotalBits returns the width of the register including the sign bit.
func (q *Quire) TotalBits() uint {
	return q.acc.Width()
}

// Window returns the range of binary scales an operand bit may have.
func (q *Quire) Window() (lo, hi int) {
	return -int(q.radix), int(q.radix + q.capacity)
}

// Status returns the conditions absorbed since the last Reset.
func (q *Quire) Status() Status {
	return q.status
}

// Reset sets q to zero and clears NaR and Status.
func (q *Quire) Reset() {
	q.acc = bitfield.New(q.acc.Width())
	q.nar = false
	q.status = 0
}

// IsZero returns true if q holds exact zero.
func (q *Quire) IsZero() bool {
	return !q.nar && q.acc.IsZero()
}

// IsNaR returns true if NaR was accumulated.
func (q *Quire) IsNaR() bool {
	return q.nar
}

// Sign returns -1, 0, or 1. A NaR quire has sign 0.
func (q *Quire) Sign() int {
	switch {
	case q.nar || q.acc.IsZero():
		return 0
	case q.acc.IsNegative():
		return -1
	default:
		return 1
	}
}

// Scale returns the binary scale of the leading one of |q|, zero for zero and NaR.
func (q *Quire) Scale() int {
	if q.Sign() == 0 {
		return 0
	}
	return q.acc.Abs().MSB() - int(q.radix)
}

// Value returns the exact sum.
func (q *Quire) Value() posit.Value {
	if q.nar {
		return posit.NaRValue()
	}
	neg := q.acc.IsNegative()
	return posit.NewValue(neg, -int(q.radix), q.acc.Abs())
}

// Posit returns the sum rounded to the nearest posit.
func (q *Quire) Posit() posit.Posit {
	return q.cfg.FromValue(q.Value())
}

// Set replaces the contents of q with v.
func (q *Quire) Set(v posit.Value) error {
	q.Reset()
	return q.Add(v)
}

// Add accumulates an exact value, normally a product from posit.QuireMul.
// In Trap mode a failed Add leaves q unchanged. In Silent mode out-of-range operands
// and sums saturate, bits below the resolution are dropped, and NaR turns q into NaR.
func (q *Quire) Add(v posit.Value) error {
	if q.nar {
		return nil
	}
	switch {
	case v.IsNaR():
		if q.trap() {
			return Error.Wrap(ErrOperandIsNaR)
		}
		q.nar = true
		return nil
	case v.IsZero():
		return nil
	}
	operand, err := q.align(v)
	if err != nil || operand.IsZero() {
		return err
	}
	return q.accumulate(operand)
}

// Sub subtracts an exact value.
func (q *Quire) Sub(v posit.Value) error {
	return q.Add(v.Negate())
}

// AddPosit accumulates p.
func (q *Quire) AddPosit(p posit.Posit) error {
	return q.Add(p.Value())
}

// SubPosit subtracts p.
func (q *Quire) SubPosit(p posit.Posit) error {
	return q.Sub(p.Value())
}

// AddProduct accumulates the exact product a*b.
func (q *Quire) AddProduct(a, b posit.Posit) error {
	return q.Add(posit.QuireMul(a, b))
}

// SubProduct subtracts the exact product a*b.
func (q *Quire) SubProduct(a, b posit.Posit) error {
	return q.Sub(posit.QuireMul(a, b))
}

// AddQuire accumulates another quire of the same layout.
func (q *Quire) AddQuire(o *Quire) error {
	if o.cfg.NBits != q.cfg.NBits || o.cfg.ES != q.cfg.ES || o.capacity != q.capacity {
		panic(Error.Wrap(fmt.Errorf("%w: %s with capacity %d and %s with capacity %d",
			posit.ErrConfigMismatch, q.cfg, q.capacity, o.cfg, o.capacity)))
	}
	if q.nar {
		return nil
	}
	if o.nar {
		if q.trap() {
			return Error.Wrap(ErrOperandIsNaR)
		}
		q.nar = true
		return nil
	}
	if err := q.accumulate(o.acc); err != nil {
		return err
	}
	q.status |= o.status
	return nil
}

func (q *Quire) trap() bool {
	return q.cfg.Mode == posit.Trap
}

// align places |v| at its position in the register and applies the sign.
func (q *Quire) align(v posit.Value) (bitfield.Field, error) {
	lo, hi := q.Window()
	if v.Scale() > hi {
		if q.trap() {
			return bitfield.Field{}, Error.Wrap(fmt.Errorf("%w: scale %d > %d", ErrOperandTooLarge, v.Scale(), hi))
		}
		q.status |= Overflow
		return q.saturated(v.IsNeg()), nil
	}
	sig, exp := v.Significand(), v.Exponent()
	if exp < lo {
		if q.trap() {
			return bitfield.Field{}, Error.Wrap(fmt.Errorf("%w: lowest bit at scale %d < %d", ErrOperandTooSmall, exp, lo))
		}
		q.status |= Underflow
		sig = sig.Shr(uint(lo - exp))
		exp = lo
	}
	operand := sig.Resize(q.acc.Width()).Shl(uint(exp - lo))
	if v.IsNeg() {
		operand = operand.Negate()
	}
	return operand, nil
}

// accumulate adds a two's complement operand, detecting overflow by the signs.
// The most negative register value has no positive counterpart and counts as an overflow too.
func (q *Quire) accumulate(operand bitfield.Field) error {
	sum, _ := q.acc.Add(operand)
	neg := operand.IsNegative()
	if q.acc.IsNegative() == neg && sum.IsNegative() != neg || sum.IsNegative() && sum.Negate().IsNegative() {
		if q.trap() {
			return Error.Wrap(ErrCapacityExceeded)
		}
		q.status |= Overflow
		sum = q.saturated(neg)
	}
	q.acc = sum
	return nil
}

// saturated returns the largest magnitude of the given sign.
func (q *Quire) saturated(neg bool) bitfield.Field {
	top := bitfield.New(q.acc.Width()).Not().Shr(1)
	if neg {
		return top.Negate()
	}
	return top
}

// String returns the register as "s:capacity_integer.fraction" where s is + or -,
// and the bit groups hold the magnitude. A NaR quire is "nar".
func (q *Quire) String() string {
	if q.nar {
		return "nar"
	}
	mag := q.acc.Abs()
	bits := mag.Resize(q.acc.Width() - 1).String()
	var b strings.Builder
	if q.acc.IsNegative() {
		b.WriteString("-:")
	} else {
		b.WriteString("+:")
	}
	b.WriteString(bits[:q.capacity])
	b.WriteByte('_')
	b.WriteString(bits[q.capacity : q.capacity+q.radix+1])
	b.WriteByte('.')
	b.WriteString(bits[q.capacity+q.radix+1:])
	return b.String()
}

// Load replaces the contents of q with a register in the String format.
// Group widths must match the layout of q exactly.
func (q *Quire) Load(s string) error {
	if s == "nar" {
		q.Reset()
		q.nar = true
		return nil
	}
	if len(s) < 2 || (s[0] != '+' && s[0] != '-') || s[1] != ':' {
		return Error.New("load: expected sign and ':' in %q", s)
	}
	capBits, rest, ok := strings.Cut(s[2:], "_")
	if !ok {
		return Error.New("load: missing '_' after the capacity bits")
	}
	intBits, fracBits, ok := strings.Cut(rest, ".")
	if !ok {
		return Error.New("load: missing radix point")
	}
	if uint(len(capBits)) != q.capacity || uint(len(intBits)) != q.radix+1 || uint(len(fracBits)) != q.radix {
		return Error.New("load: expected %d_%d.%d bits, got %d_%d.%d",
			q.capacity, q.radix+1, q.radix, len(capBits), len(intBits), len(fracBits))
	}
	mag, err := bitfield.FromString(capBits + intBits + fracBits)
	if err != nil {
		return Error.Wrap(err)
	}
	acc := mag.Resize(q.acc.Width())
	if s[0] == '-' {
		acc = acc.Negate()
	}
	q.Reset()
	q.acc = acc
	return nil
}
