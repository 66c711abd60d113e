// Copyright 2020 Aleksandr Demakin. All rights reserved.

package quire

import (
	"fmt"
	"math"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/avdva/posit"
)

func TestLayout(t *testing.T) {
	a := assert.New(t)
	tests := []struct {
		c        posit.Config
		capacity uint
		dr       uint
		total    uint
		lo, hi   int
	}{
		{posit.Posit8, 0, 96, 128, -48, 78},
		{posit.Posit16, 0, 224, 256, -112, 142},
		{posit.Posit32, 0, 480, 512, -240, 270},
		{posit.Posit64, 0, 992, 1024, -496, 526},
		{posit.Posit8ES0, 4, 24, 30, -12, 16},
		{posit.Config{NBits: 2}, 1, 0, 3, 0, 1},
	}
	for _, test := range tests {
		t.Run(test.c.String(), func(t *testing.T) {
			q := New(test.c, test.capacity)
			a.Equal(test.dr, DynamicRange(test.c))
			a.Equal(test.total, q.TotalBits())
			lo, hi := q.Window()
			a.Equal(test.lo, lo)
			a.Equal(test.hi, hi)
			a.True(q.IsZero())
			a.Equal(test.c, q.Config())
		})
	}
	a.Panics(func() { New(posit.Config{NBits: 1}, 0) })
}

func TestScenario(t *testing.T) {
	a := assert.New(t)
	c := posit.Posit16
	q := New(c, 0)
	a.NoError(q.AddProduct(c.FromFloat64(2), c.FromFloat64(3)))
	a.NoError(q.AddProduct(c.FromFloat64(0.5), c.FromFloat64(-1)))
	p := q.Posit()
	a.Equal(uint64(0x5300), p.Bits())
	a.Equal(5.5, p.Float64())
	a.Equal(1, q.Sign())
	a.Equal(2, q.Scale())
	a.Equal(Status(0), q.Status())
}

func TestExactness(t *testing.T) {
	rnd := rand.New(rand.NewSource(time.Now().Unix()))
	for _, c := range []posit.Config{posit.Posit8, posit.Posit16, posit.Posit32, posit.Config{NBits: 12, ES: 3}} {
		t.Run(c.String(), func(t *testing.T) {
			a := assert.New(t)
			q := New(c, 0)
			sum := decimal.Zero
			for i := 0; i < 500; i++ {
				x, y := c.FromBits(rnd.Uint64()), c.FromBits(rnd.Uint64())
				if x.IsNaR() || y.IsNaR() {
					continue
				}
				if rnd.Intn(3) == 0 {
					a.NoError(q.SubProduct(x, y))
					sum = sum.Sub(x.Decimal().Mul(y.Decimal()))
				} else {
					a.NoError(q.AddProduct(x, y))
					sum = sum.Add(x.Decimal().Mul(y.Decimal()))
				}
			}
			a.True(q.Value().Decimal().Equal(sum))
			a.True(q.Value().Exact())
			a.Equal(c.FromDecimal(sum).Bits(), q.Posit().Bits())
			a.Equal(sum.Sign(), q.Sign())
		})
	}
}

func TestOrderIndependence(t *testing.T) {
	a := assert.New(t)
	rnd := rand.New(rand.NewSource(time.Now().Unix()))
	c := posit.Posit16
	x, y := make([]posit.Posit, 1000), make([]posit.Posit, 1000)
	for i := range x {
		x[i] = c.FromFloat64(rnd.NormFloat64() * math.Pow(2, float64(rnd.Intn(60)-30)))
		y[i] = c.FromFloat64(rnd.NormFloat64())
	}
	q1 := New(c, 0)
	for i := range x {
		a.NoError(q1.AddProduct(x[i], y[i]))
	}
	rnd.Shuffle(len(x), func(i, j int) {
		x[i], x[j] = x[j], x[i]
		y[i], y[j] = y[j], y[i]
	})
	q2 := New(c, 0)
	for i := range x {
		a.NoError(q2.AddProduct(x[i], y[i]))
	}
	a.Equal(q1.String(), q2.String())
	a.True(q1.Posit().RawEqual(q2.Posit()))

	// adding and then subtracting everything restores zero.
	for i := range x {
		a.NoError(q2.SubProduct(x[i], y[i]))
	}
	a.True(q2.IsZero())
	a.Equal(0, q2.Sign())
	a.True(q2.Posit().IsZero())
}

func TestOperandErrors(t *testing.T) {
	large := posit.ValueFromFloat64(math.Ldexp(1, 143))
	small := posit.ValueFromFloat64(math.Ldexp(1, -113)).Add(posit.ValueFromInt64(1))
	tests := []struct {
		name   string
		v      posit.Value
		err    error
		status Status
		res    float64
	}{
		{"large", large, ErrOperandTooLarge, Overflow, math.Ldexp(1, 56)},
		{"negative large", large.Negate(), ErrOperandTooLarge, Overflow, -math.Ldexp(1, 56)},
		{"small", small, ErrOperandTooSmall, Underflow, 1},
		{"nar", posit.NaRValue(), ErrOperandIsNaR, 0, math.NaN()},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			a := assert.New(t)
			trap := New(posit.Posit16.WithMode(posit.Trap), 0)
			err := trap.Add(test.v)
			a.ErrorIs(err, test.err)
			a.True(Error.Has(err))
			a.True(trap.IsZero())

			silent := New(posit.Posit16, 0)
			a.NoError(silent.Add(test.v))
			a.Equal(test.status, silent.Status())
			if math.IsNaN(test.res) {
				a.True(silent.IsNaR())
				a.True(silent.Posit().IsNaR())
				a.True(silent.Value().IsNaR())
				a.Equal(0, silent.Sign())
				a.NoError(silent.AddPosit(posit.Posit16.One()))
				a.True(silent.IsNaR())
				return
			}
			a.Equal(test.res, silent.Posit().Float64())
		})
	}
}

func TestCapacity(t *testing.T) {
	a := assert.New(t)
	c := posit.Posit8
	maxpos := c.MaxPos()

	trap := New(c.WithMode(posit.Trap), 1)
	for i := 0; i < 3; i++ {
		a.NoError(trap.AddProduct(maxpos, maxpos))
	}
	a.Equal(3*math.Ldexp(1, 48), trap.Value().Float64())
	a.ErrorIs(trap.AddProduct(maxpos, maxpos), ErrCapacityExceeded)
	a.Equal(3*math.Ldexp(1, 48), trap.Value().Float64())
	a.NoError(trap.SubProduct(maxpos, maxpos))
	a.Equal(math.Ldexp(1, 49), trap.Value().Float64())

	silent := New(c, 1)
	for i := 0; i < 4; i++ {
		a.NoError(silent.AddProduct(maxpos, maxpos))
	}
	a.Equal(Overflow, silent.Status())
	a.True(silent.Posit().RawEqual(maxpos))
	a.Equal("overflow", silent.Status().String())

	silent.Reset()
	a.Equal("ok", silent.Status().String())
	for i := 0; i < 4; i++ {
		a.NoError(silent.SubProduct(maxpos, maxpos))
	}
	a.True(silent.Posit().RawEqual(c.MaxNeg()))
	a.Equal(-1, silent.Sign())

	a.Equal("overflow|underflow", (Overflow | Underflow).String())

	silent.Reset()
	for i := 0; i < 4; i++ {
		a.NoError(silent.AddProduct(maxpos, maxpos))
	}
	a.Equal(Overflow, silent.Status())
	a.ErrorIs(trap.AddQuire(silent), ErrCapacityExceeded)
	a.Equal(Status(0), trap.Status())
	a.Equal(math.Ldexp(1, 49), trap.Value().Float64())

	merged := New(c.WithMode(posit.Trap), 1)
	a.NoError(merged.AddQuire(silent))
	a.Equal(Overflow, merged.Status())
}

func TestAddQuire(t *testing.T) {
	a := assert.New(t)
	c := posit.Posit32
	q1, q2 := New(c, 0), New(c, 0)
	a.NoError(q1.AddPosit(c.FromInt64(7)))
	a.NoError(q2.SubPosit(c.FromFloat64(0.25)))
	a.NoError(q1.AddQuire(q2))
	a.Equal(6.75, q1.Posit().Float64())
	a.Equal(-0.25, q2.Posit().Float64())

	q3 := New(c, 0)
	a.NoError(q3.Add(posit.NaRValue()))
	a.NoError(q1.AddQuire(q3))
	a.True(q1.IsNaR())

	trap := New(c.WithMode(posit.Trap), 0)
	a.ErrorIs(trap.AddQuire(q3), ErrOperandIsNaR)

	a.Panics(func() { _ = q1.AddQuire(New(c, 10)) })
	a.Panics(func() { _ = q1.AddQuire(New(posit.Posit16, 0)) })
}

func TestSet(t *testing.T) {
	a := assert.New(t)
	c := posit.Posit16
	q := New(c, 0)
	a.NoError(q.AddPosit(c.One()))
	a.NoError(q.Set(posit.ValueFromFloat64(-1.5)))
	a.Equal(-1.5, q.Value().Float64())
	a.Equal(0, q.Scale())
	a.Equal(-1, q.Sign())
}

func TestStringLoad(t *testing.T) {
	a := assert.New(t)
	c := posit.Posit8
	q := New(c, 4)
	a.NoError(q.AddPosit(c.One()))
	s := q.String()
	a.Equal("+:0000_"+strings.Repeat("0", 48)+"1."+strings.Repeat("0", 48), s)

	a.NoError(q.AddPosit(c.FromFloat64(-1.5)))
	s = q.String()
	a.Equal("-:0000_"+strings.Repeat("0", 49)+".1"+strings.Repeat("0", 47), s)

	loaded := New(c, 4)
	a.NoError(loaded.Load(s))
	a.Equal(s, loaded.String())
	a.Equal(-0.5, loaded.Value().Float64())

	a.NoError(loaded.Load("nar"))
	a.True(loaded.IsNaR())
	a.Equal("nar", loaded.String())

	tests := []struct {
		s   string
		err string
	}{
		{"0000_1.0", "expected sign"},
		{"+:0000", "missing '_'"},
		{"+:0000_1", "missing radix point"},
		{"+:000_1.0", "expected 4_49.48 bits, got 3_1.1"},
		{"+:0000_" + strings.Repeat("2", 49) + "." + strings.Repeat("0", 48), "unexpected symbol"},
	}
	for i, test := range tests {
		t.Run(fmt.Sprintf("%d", i), func(t *testing.T) {
			err := loaded.Load(test.s)
			if a.Error(err) {
				a.Contains(err.Error(), test.err)
			}
		})
	}
}

func TestDotSum(t *testing.T) {
	a := assert.New(t)
	c := posit.Posit32
	maxpos, one := c.MaxPos(), c.One()

	naive := maxpos.Mul(one).Add(one.Mul(one)).Add(maxpos.Mul(one.Neg()))
	a.True(naive.IsZero())

	p, err := Dot(c, []posit.Posit{maxpos, one, maxpos}, []posit.Posit{one, one, one.Neg()})
	a.NoError(err)
	a.True(p.IsOne())

	p, err = Sum(c, []posit.Posit{maxpos, one, maxpos.Neg()})
	a.NoError(err)
	a.True(p.IsOne())

	_, err = Dot(c, []posit.Posit{one}, nil)
	a.ErrorIs(err, ErrLengthMismatch)

	p, err = Dot(c, []posit.Posit{c.NaR()}, []posit.Posit{one})
	a.NoError(err)
	a.True(p.IsNaR())

	trap := c.WithMode(posit.Trap)
	_, err = Sum(trap, []posit.Posit{one, trap.NaR()})
	a.ErrorIs(err, ErrOperandIsNaR)

	p, err = Sum(c, nil)
	a.NoError(err)
	a.True(p.IsZero())
}

func BenchmarkAddProduct(b *testing.B) {
	for _, c := range []posit.Config{posit.Posit8, posit.Posit16, posit.Posit32, posit.Posit64} {
		b.Run(c.String(), func(b *testing.B) {
			q := New(c, 0)
			x, y := c.FromFloat64(math.Pi), c.FromFloat64(-math.E)
			for i := 0; i < b.N; i++ {
				_ = q.AddProduct(x, y)
			}
		})
	}
}
