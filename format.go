// Copyright 2020 Aleksandr Demakin. All rights reserved.

package posit

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/avdva/posit/bitfield"
)

// String returns the shortest decimal representation of the nearest float64, or "NaR".
func (p Posit) String() string {
	if p.IsNaR() {
		return "NaR"
	}
	return strconv.FormatFloat(p.Float64(), 'g', -1, 64)
}

// Binary returns exactly nbits binary digits of the pattern, most significant first.
// If nibbleMarker is set, groups of four bits are separated by '.
func (p Posit) Binary(nibbleMarker bool) string {
	return p.BitField().Binary(nibbleMarker)
}

// Fields returns the pattern split into sign, regime, exponent and fraction: "0|10|01|000".
// The fields of negative posits are shown for their two's complement.
func (p Posit) Fields() string {
	c := p.Components()
	body := bitfield.FromUint64(p.cfg.NBits-1, p.magnitudeBits())
	var b strings.Builder
	if p.bits&p.cfg.narBits() != 0 {
		b.WriteString("1|")
	} else {
		b.WriteString("0|")
	}
	pos := p.cfg.NBits - 1
	for i, n := range []uint{c.RegimeLen, c.ExponentLen, c.FractionLen} {
		if i > 0 {
			b.WriteByte('|')
		}
		for ; n > 0; n-- {
			pos--
			if body.Bit(pos) {
				b.WriteByte('1')
			} else {
				b.WriteByte('0')
			}
		}
	}
	return b.String()
}

// Triple returns the (sign,scale,fraction) form, like "(-,3,0110)".
func (p Posit) Triple() string {
	switch {
	case p.IsNaR():
		return "(nar)"
	case p.IsZero():
		return "(zero)"
	}
	c := p.Components()
	sign := "+"
	if c.Neg {
		sign = "-"
	}
	return fmt.Sprintf("(%s,%d,%s)", sign, p.Scale(), fractionString(c))
}

// Base2Scientific returns the value in base-2 scientific notation, like "+1.0110e2^-3".
func (p Posit) Base2Scientific() string {
	switch {
	case p.IsNaR():
		return "nar"
	case p.IsZero():
		return "0"
	}
	c := p.Components()
	sign := "+"
	if c.Neg {
		sign = "-"
	}
	frac := fractionString(c)
	if frac == "" {
		frac = "0"
	}
	return fmt.Sprintf("%s1.%se2^%+d", sign, frac, p.Scale())
}

func fractionString(c Components) string {
	if c.FractionLen == 0 {
		return ""
	}
	return bitfield.FromUint64(c.FractionLen, c.Fraction).String()
}

// HexFormat returns the lossless "nbits.esxHEXp" form, like "8.2x40p".
func (p Posit) HexFormat() string {
	return fmt.Sprintf("%d.%dx%sp", p.cfg.NBits, p.cfg.ES, p.BitField().Hex())
}

// Format implements fmt.Formatter.
//   %b   binary pattern, %#b with nibble markers
//   %x   hex pattern, %#x the hex format
//   %v   same as String, %+v adds the configuration
//   %e %f %g and their upper case versions format the nearest float64
func (p Posit) Format(fs fmt.State, c rune) {
	switch c {
	case 'b':
		fmt.Fprint(fs, p.Binary(fs.Flag('#')))
	case 'x', 'X':
		if fs.Flag('#') {
			fmt.Fprint(fs, p.HexFormat())
			return
		}
		h := p.BitField().Hex()
		if c == 'x' {
			h = strings.ToLower(h)
		}
		fmt.Fprint(fs, h)
	case 'v', 's':
		if fs.Flag('+') {
			fmt.Fprintf(fs, "%s(%s)", p.cfg, p.String())
			return
		}
		fmt.Fprint(fs, p.String())
	case 'e', 'E', 'f', 'F', 'g', 'G':
		if p.IsNaR() {
			fmt.Fprint(fs, "NaR")
			return
		}
		fmt.Fprintf(fs, fmt.FormatString(fs, c), p.Float64())
	default:
		fmt.Fprintf(fs, "%%!%c(posit=%s)", c, p.String())
	}
}
