// Copyright 2020 Aleksandr Demakin. All rights reserved.

package posit

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"math/rand"
	"sync"
	"testing"
	"time"

	of "github.com/robaho/fixed"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

// All products and sums of 8-bit posits are exact in float64,
// and quotients and square roots are never rounded by float64 onto a posit tie.
func TestArithmeticExhaustive8(t *testing.T) {
	for _, c := range []Config{Posit8ES0, {NBits: 8, ES: 1}, Posit8} {
		t.Run(c.String(), func(t *testing.T) {
			a := assert.New(t)
			for i := uint64(0); i < 256; i++ {
				x := c.FromBits(i)
				fx := x.Float64()
				a.Equal(c.FromFloat64(math.Sqrt(fx)).Bits(), x.Sqrt().Bits(), "sqrt(%x)", i)
				for j := uint64(0); j < 256; j++ {
					y := c.FromBits(j)
					fy := y.Float64()
					a.Equal(c.FromFloat64(fx+fy).Bits(), x.Add(y).Bits(), "%x+%x", i, j)
					a.Equal(c.FromFloat64(fx-fy).Bits(), x.Sub(y).Bits(), "%x-%x", i, j)
					a.Equal(c.FromFloat64(fx*fy).Bits(), x.Mul(y).Bits(), "%x*%x", i, j)
					a.Equal(c.FromFloat64(fx/fy).Bits(), x.Div(y).Bits(), "%x/%x", i, j)
				}
			}
		})
	}
}

func TestArithmeticRandom16(t *testing.T) {
	a := assert.New(t)
	rnd := rand.New(rand.NewSource(time.Now().Unix()))
	c := Posit16
	for i := 0; i < 20000; i++ {
		x, y := c.FromBits(rnd.Uint64()), c.FromBits(rnd.Uint64())
		if x.IsNaR() || y.IsNaR() {
			continue
		}
		dx, dy := x.Decimal(), y.Decimal()
		a.Equal(c.FromDecimal(dx.Add(dy)).Bits(), x.Add(y).Bits(), "%x+%x", x.Bits(), y.Bits())
		a.Equal(c.FromDecimal(dx.Mul(dy)).Bits(), x.Mul(y).Bits(), "%x*%x", x.Bits(), y.Bits())
		a.Equal(c.FromFloat64(x.Float64()/y.Float64()).Bits(), x.Div(y).Bits(), "%x/%x", x.Bits(), y.Bits())
		if !x.IsNeg() {
			a.Equal(c.FromFloat64(math.Sqrt(x.Float64())).Bits(), x.Sqrt().Bits(), "sqrt(%x)", x.Bits())
		}
	}
}

func TestArithmeticProperties(t *testing.T) {
	a := assert.New(t)
	rnd := rand.New(rand.NewSource(time.Now().Unix()))
	c := Posit32
	for i := 0; i < 10000; i++ {
		x, y := c.FromBits(rnd.Uint64()), c.FromBits(rnd.Uint64())
		a.True(x.Add(y).RawEqual(y.Add(x)))
		a.True(x.Mul(y).RawEqual(y.Mul(x)))
		a.True(x.Neg().Add(y.Neg()).RawEqual(x.Add(y).Neg()))
		a.True(x.Neg().Mul(y).RawEqual(x.Mul(y).Neg()))
		if !x.IsNaR() {
			a.True(x.Sub(x).IsZero())
			a.True(x.Add(c.Zero()).RawEqual(x))
			a.True(x.Mul(c.One()).RawEqual(x))
			a.True(x.Div(c.One()).RawEqual(x))
		}
	}
}

func TestNaRPropagation(t *testing.T) {
	a := assert.New(t)
	c := Posit8
	nar := c.NaR()
	for b := uint64(0); b < 256; b++ {
		p := c.FromBits(b)
		a.True(nar.Add(p).IsNaR())
		a.True(p.Add(nar).IsNaR())
		a.True(p.Sub(nar).IsNaR())
		a.True(nar.Mul(p).IsNaR())
		a.True(p.Div(nar).IsNaR())
		a.True(p.Div(c.Zero()).IsNaR())
		a.True(FMA(p, nar, c.One()).IsNaR())
		a.False(p.Equal(nar))
		a.False(p.Less(nar))
		a.False(nar.Less(p))
		a.False(p.GreaterEq(nar))
		a.True(Min(p, nar).IsNaR())
		a.True(Max(nar, p).IsNaR())
	}
	a.True(nar.Sqrt().IsNaR())
	a.True(nar.Neg().IsNaR())
	a.True(nar.Abs().IsNaR())
	a.True(nar.RawEqual(nar))
	a.Equal(-1, nar.Cmp(c.MaxNeg()))
	a.True(c.Zero().Reciprocal().IsNaR())
	a.True(c.FromFloat64(-4).Sqrt().IsNaR())
	a.True(c.FromFloat64(math.NaN()).IsNaR())
	a.True(c.FromFloat64(math.Inf(-1)).IsNaR())
}

func TestTrap(t *testing.T) {
	a := assert.New(t)
	c := Posit16.WithMode(Trap)
	tests := []struct {
		name string
		fn   func()
		err  error
	}{
		{"div", func() { c.One().Div(c.Zero()) }, ErrDivideByZero},
		{"reciprocal", func() { c.Zero().Reciprocal() }, ErrDivideByZero},
		{"sqrt", func() { c.FromInt64(-2).Sqrt() }, ErrNegativeSqrt},
		{"sqrt8", func() { Posit8.WithMode(Trap).FromInt64(-2).Sqrt() }, ErrNegativeSqrt},
		{"nan", func() { c.FromFloat64(math.NaN()) }, ErrNotAReal},
		{"inf", func() { c.FromFloat32(float32(math.Inf(1))) }, ErrNotAReal},
		{"int64", func() { c.NaR().Int64() }, ErrNotAReal},
		{"decimal", func() { c.NaR().Decimal() }, ErrNotAReal},
		{"ok", func() { c.One().Div(c.One()) }, nil},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			err := Catch(test.fn)
			if test.err == nil {
				a.NoError(err)
				return
			}
			a.ErrorIs(err, test.err)
			a.True(Error.Has(err))
			a.True(IsArithmetic(err))
			a.Contains(err.Error(), "posit<")
		})
	}
	// Silent mode produces the same results without errors.
	a.NoError(Catch(func() {
		s := Posit16
		a.True(s.One().Div(s.Zero()).IsNaR())
		a.True(s.FromInt64(-2).Sqrt().IsNaR())
		a.True(s.FromFloat64(math.Inf(1)).IsNaR())
	}))
}

func TestConfigMismatch(t *testing.T) {
	a := assert.New(t)
	a.Panics(func() { Posit8.One().Add(Posit16.One()) })
	a.Panics(func() { Posit8.One().Cmp(Posit8ES0.One()) })
	a.Panics(func() { QuireMul(Posit8.One(), Posit32.One()) })
	a.Panics(func() {
		_ = Catch(func() { Posit8.One().Mul(Posit16.One()) })
	}, "mismatch is not an arithmetic error")
	defer func() {
		r := recover()
		err, ok := r.(error)
		a.True(ok)
		a.True(errors.Is(err, ErrConfigMismatch))
	}()
	Posit8.One().Div(Posit16.One())
}

func TestModeDoesNotAffectCompatibility(t *testing.T) {
	a := assert.New(t)
	s, tr := Posit16.FromInt64(3), Posit16.WithMode(Trap).FromInt64(4)
	a.Equal(7.0, s.Add(tr).Float64())
	a.Equal(Silent, s.Add(tr).Config().Mode)
	a.True(s.Less(tr))
}

func TestFMA(t *testing.T) {
	a := assert.New(t)
	c := Posit16
	// x*x = 1 + 2^-7 + 2^-16, the last term is lost by the separately rounded product.
	x := c.FromFloat64(1 + 1.0/256)
	one := c.One()
	a.Equal(1.0/128, x.Mul(x).Sub(one).Float64())
	a.Equal(1.0/128+1.0/65536, FMA(x, x, one.Neg()).Float64())
	a.True(FMA(c.Zero(), x, one).RawEqual(one))
	a.True(FMA(x, one, c.Zero()).RawEqual(x))
}

func TestQuireMul(t *testing.T) {
	a := assert.New(t)
	c := Posit16
	v := QuireMul(c.MaxPos(), c.MaxPos())
	a.True(v.Exact())
	a.Equal(2*c.MaxScale(), v.Scale())
	a.True(QuireMul(c.NaR(), c.One()).IsNaR())
	a.True(QuireMul(c.Zero(), c.MaxPos()).IsZero())
	a.Equal(-5.5, QuireMul(c.FromFloat64(-2.75), c.FromInt64(2)).Float64())
}

func TestNextPrev(t *testing.T) {
	a := assert.New(t)
	c := Posit8
	a.True(c.MaxPos().Next().IsNaR())
	a.True(c.NaR().Next().RawEqual(c.MaxNeg()))
	a.True(c.MinNeg().Next().IsZero())
	a.True(c.Zero().Next().RawEqual(c.MinPos()))
	a.True(c.Zero().Prev().RawEqual(c.MinNeg()))
	a.True(c.NaR().Prev().RawEqual(c.MaxPos()))
	for b := uint64(0); b < 256; b++ {
		p := c.FromBits(b)
		a.True(p.Next().Prev().RawEqual(p))
	}
}

func TestMinMax(t *testing.T) {
	a := assert.New(t)
	c := Posit16
	x, y := c.FromInt64(-3), c.FromInt64(2)
	a.True(Min(x, y).RawEqual(x))
	a.True(Min(y, x).RawEqual(x))
	a.True(Max(x, y).RawEqual(y))
	a.True(Max(y, y).RawEqual(y))
	a.True(x.LessEq(x))
	a.True(y.GreaterEq(x))
	a.True(x.Equal(c.MustFromString("-3")))
}

func TestSqrtTable(t *testing.T) {
	for _, c := range smallConfigs {
		t.Run(c.String(), func(t *testing.T) {
			a := assert.New(t)
			for b := uint64(0); b < 1<<c.NBits; b++ {
				p := c.FromBits(b)
				if p.IsNeg() {
					continue
				}
				a.Equal(p.sqrt().Bits(), p.Sqrt().Bits(), "%x", b)
			}
		})
	}
}

func TestSqrtConcurrent(t *testing.T) {
	a := assert.New(t)
	c := Config{NBits: 7, ES: 1}
	var wg sync.WaitGroup
	results := make([][]uint64, 8)
	for g := range results {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for b := uint64(0); b < 1<<c.NBits; b++ {
				results[g] = append(results[g], c.FromBits(b).Sqrt().Bits())
			}
		}(g)
	}
	wg.Wait()
	for g := 1; g < len(results); g++ {
		a.Equal(results[0], results[g])
	}
}

func TestSqrtWide(t *testing.T) {
	a := assert.New(t)
	sqrt2 := decimal.RequireFromString(new(big.Float).SetPrec(256).Sqrt(big.NewFloat(2)).Text('e', 70))
	a.Equal(Posit32.FromFloat64(math.Sqrt2).Bits(), Posit32.FromInt64(2).Sqrt().Bits())
	for _, c := range []Config{Posit32, Posit64, Posit64ES3} {
		a.Equal(c.FromDecimal(sqrt2).Bits(), c.FromInt64(2).Sqrt().Bits(), c.String())
		a.Equal(c.FromInt64(3).Bits(), c.FromInt64(9).Sqrt().Bits(), c.String())
		a.True(c.MaxPos().Sqrt().Mul(c.MaxPos().Sqrt()).Equal(c.MaxPos()))
	}
}

func TestDivExact(t *testing.T) {
	a := assert.New(t)
	c := Posit32
	a.Equal(0.375, c.FromInt64(3).Div(c.FromInt64(8)).Float64())
	a.Equal(c.FromFloat64(1.0/3).Bits(), c.One().Div(c.FromInt64(3)).Bits())
	a.Equal(c.FromFloat64(0.1).Bits(), c.FromInt64(10).Reciprocal().Bits())
	a.True(c.Zero().Div(c.FromInt64(7)).IsZero())
}

func BenchmarkMulPosit32(b *testing.B) {
	p0 := Posit32.FromFloat64(123456789.0)
	p1 := Posit32.FromFloat64(1234.0)

	for i := 0; i < b.N; i++ {
		p0.Mul(p1)
	}
}

func BenchmarkMulOtherFixed(b *testing.B) {
	f0 := of.NewF(123456789.9)
	f1 := of.NewF(1234.9)

	for i := 0; i < b.N; i++ {
		f0.Mul(f1)
	}
}

func BenchmarkMulDecimal(b *testing.B) {
	f0 := decimal.NewFromFloat(123456789.0)
	f1 := decimal.NewFromFloat(1234.0)

	for i := 0; i < b.N; i++ {
		f0.Mul(f1)
	}
}

func BenchmarkAddPosit(b *testing.B) {
	for _, c := range []Config{Posit8, Posit16, Posit32, Posit64} {
		b.Run(c.String(), func(b *testing.B) {
			rnd := rand.New(rand.NewSource(time.Now().Unix()))
			for i := 0; i < b.N; i++ {
				c.FromBits(rnd.Uint64()).Add(c.FromBits(rnd.Uint64()))
			}
		})
	}
}

func BenchmarkDivPosit32(b *testing.B) {
	p0 := Posit32.FromFloat64(123456789.0)
	p1 := Posit32.FromFloat64(1234.5)

	for i := 0; i < b.N; i++ {
		p0.Div(p1)
	}
}

func BenchmarkDivOtherFixed(b *testing.B) {
	f0 := of.NewF(123456789.9)
	f1 := of.NewF(1234.5)

	for i := 0; i < b.N; i++ {
		f0.Div(f1)
	}
}

func BenchmarkSqrt(b *testing.B) {
	for _, c := range []Config{Posit8, Posit32} {
		b.Run(fmt.Sprintf("%d", c.NBits), func(b *testing.B) {
			p := c.FromFloat64(2)
			for i := 0; i < b.N; i++ {
				p.Sqrt()
			}
		})
	}
}
