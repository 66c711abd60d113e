// Copyright 2020 Aleksandr Demakin. All rights reserved.

package posit

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromString(t *testing.T) {
	a := assert.New(t)
	tests := []struct {
		c    Config
		s    string
		bits uint64
		err  string
	}{
		{Posit16, "5.5", 0x5300, ""},
		{Posit16, "+5.5", 0x5300, ""},
		{Posit16, "  -5.5 ", 0xAD00, ""},
		{Posit16, `"5.5"`, 0x5300, ""},
		{Posit16, "55e-1", 0x5300, ""},
		{Posit16, "0.055E2", 0x5300, ""},
		{Posit16, ".5", 0x3800, ""},
		{Posit16, "5.", 0x5200, ""},
		{Posit16, "-0", 0, ""},
		{Posit16, "nar", 0x8000, ""},
		{Posit16, "NaR", 0x8000, ""},
		{Posit16, "nan", 0x8000, ""},
		{Posit16, "-Inf", 0x8000, ""},
		{Posit16, "16.2x5300p", 0x5300, ""},
		{Posit8, "16.2x5300p", 0x53, ""},
		{Posit8, "8.0x7Fp", 0x68, ""},
		{Posit16, "1e1000", 0x7FFF, ""},
		{Posit16, "-1e-1000", 0xFFFF, ""},
		{Posit8ES0, "1.0156250000000000000000000001", 0x41, ""},

		{Posit16, "", 0x8000, "empty input"},
		{Posit16, `""`, 0x8000, "empty input"},
		{Posit16, "1.2.3", 0x8000, "unexpected delimiter at pos 4"},
		{Posit16, "12a", 0x8000, "unexpected symbol 'a' at pos 3"},
		{Posit16, `"1y"`, 0x8000, "unexpected symbol 'y' at pos 3"},
		{Posit16, " 1e", 0x8000, "missing exponent at pos 4"},
		{Posit16, "1e+x", 0x8000, "unexpected symbol 'x' at pos 4"},
		{Posit16, "-", 0x8000, "missing digits at pos 2"},
		{Posit16, "e5", 0x8000, "missing digits before exponent at pos 1"},
		{Posit16, "8.2x123p", 0x8000, "needs at most 2 hex digits"},
		{Posit16, "8.7x12p", 0x8000, "invalid configuration"},
		{Posit16, "8.2xZZp", 0x8000, "invalid syntax"},
		{Posit16, "8x12p", 0x8000, "missing es"},
		{Posit16, "7.2xFFp", 0x8000, "does not fit"},
	}
	for i, test := range tests {
		t.Run(fmt.Sprintf("%d", i), func(t *testing.T) {
			p, err := test.c.FromString(test.s)
			if len(test.err) == 0 {
				a.NoError(err)
			} else if a.Error(err) {
				a.Contains(err.Error(), test.err)
				a.True(Error.Has(err))
			}
			a.Equal(test.bits, p.Bits())
		})
	}
	a.Panics(func() { Posit16.MustFromString("x") })
}

func TestFromStringTrap(t *testing.T) {
	a := assert.New(t)
	c := Posit16.WithMode(Trap)
	for _, s := range []string{"nan", "inf", "+infinity"} {
		err := Catch(func() {
			_, _ = c.FromString(s)
		})
		a.ErrorIs(err, ErrNotAReal, s)
	}
	p, err := c.FromString("nar")
	a.NoError(err)
	a.True(p.IsNaR())
}

func TestParseHex(t *testing.T) {
	a := assert.New(t)
	for _, c := range []Config{{NBits: 2}, {NBits: 7, ES: 3}, Posit16, {NBits: 33, ES: 4}, Posit64} {
		for _, f := range []float64{1, -3.75, 1e-3} {
			p := c.FromFloat64(f)
			parsed, err := ParseHex(p.HexFormat())
			if a.NoError(err) {
				a.True(parsed.RawEqual(p), p.HexFormat())
				a.Equal(Silent, parsed.Config().Mode)
			}
		}
	}
}

func TestStringRoundTrip(t *testing.T) {
	a := assert.New(t)
	for _, c := range smallConfigs {
		for b := uint64(0); b < 1<<c.NBits; b++ {
			p := c.FromBits(b)
			parsed, err := c.FromString(p.String())
			if a.NoError(err) {
				a.True(parsed.RawEqual(p), "%s %x", c, b)
			}
		}
	}
}
