// Copyright 2020 Aleksandr Demakin. All rights reserved.

package posit

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"

	"github.com/avdva/posit/internal/mathutil"
)

type posError struct {
	pos int
	err string
}

func newPosError(err string, pos int) *posError {
	return &posError{err: err, pos: pos}
}

func (pe posError) Error() string {
	return pe.err + fmt.Sprintf(" at pos %d", pe.pos)
}

// FromString parses s and rounds it to the nearest posit.
// Accepted forms are decimals with an optional exponent ("-1.25", "3e-7"),
// "nar" in any case, and the hex format produced by HexFormat ("8.2x40p"),
// which is converted to c if its configuration differs.
// "nan" and "inf" produce NaR, and raise ErrNotAReal in Trap mode.
// The input may be surrounded by spaces and double quotes.
func (c Config) FromString(s string) (Posit, error) {
	c.mustValidate()
	s, offset, err := prepareString(s)
	if err != nil {
		return c.NaR(), Error.Wrap(fmt.Errorf("parsing failed: %w", err))
	}
	switch strings.ToLower(strings.TrimLeft(s, "+-")) {
	case "nar":
		return c.NaR(), nil
	case "nan", "inf", "infinity":
		c.trap(ErrNotAReal)
		return c.NaR(), nil
	}
	if isHexFormat(s) {
		p, err := ParseHex(s)
		if err != nil {
			return c.NaR(), err
		}
		return c.FromPosit(p), nil
	}
	if err := checkDecimal(s); err != nil {
		var pe *posError
		if errors.As(err, &pe) {
			pe.pos += offset + 1 // +1 to start indices from 1.
			err = pe
		}
		return c.NaR(), Error.Wrap(fmt.Errorf("parsing failed: %w", err))
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return c.NaR(), Error.Wrap(fmt.Errorf("parsing failed: %w", err))
	}
	return c.FromDecimal(d), nil
}

// MustFromString is like FromString, but panics on error.
func (c Config) MustFromString(s string) Posit {
	p, err := c.FromString(s)
	if err != nil {
		panic(err)
	}
	return p
}

// ParseHex parses the "nbits.esxHEXp" format, returning a Silent posit of that configuration.
func ParseHex(s string) (Posit, error) {
	head, digits, ok := strings.Cut(s, "x")
	if !ok || !strings.HasSuffix(digits, "p") {
		return Posit{}, Error.New("parsing failed: %q is not in nbits.esxHEXp format", s)
	}
	digits = strings.TrimSuffix(digits, "p")
	nbitsStr, esStr, ok := strings.Cut(head, ".")
	if !ok {
		return Posit{}, Error.New("parsing failed: missing es in %q", s)
	}
	nbits, err := strconv.ParseUint(nbitsStr, 10, 8)
	if err != nil {
		return Posit{}, Error.Wrap(fmt.Errorf("parsing failed: bad nbits: %w", err))
	}
	es, err := strconv.ParseUint(esStr, 10, 8)
	if err != nil {
		return Posit{}, Error.Wrap(fmt.Errorf("parsing failed: bad es: %w", err))
	}
	c, err := NewConfig(uint(nbits), uint(es), Silent)
	if err != nil {
		return Posit{}, err
	}
	if len(digits) == 0 || uint(len(digits)) > (c.NBits+3)/4 {
		return Posit{}, Error.New("parsing failed: %s needs at most %d hex digits, got %q", c, (c.NBits+3)/4, digits)
	}
	b, err := strconv.ParseUint(digits, 16, 64)
	if err != nil {
		return Posit{}, Error.Wrap(fmt.Errorf("parsing failed: %w", err))
	}
	if b > mathutil.Mask(c.NBits) {
		return Posit{}, Error.New("parsing failed: pattern %s does not fit %s", digits, c)
	}
	return c.FromBits(b), nil
}

func isHexFormat(s string) bool {
	return strings.ContainsRune(s, 'x') && strings.HasSuffix(s, "p")
}

func prepareString(s string) (prepared string, offset int, err error) {
	if len(s) == 0 {
		return "", 0, fmt.Errorf("empty input")
	}
	if s[0] == '"' {
		s = s[1:]
		offset++
	}
	if len(s) > 0 && s[len(s)-1] == '"' {
		s = s[:len(s)-1]
	}
	if trimmed := strings.TrimLeftFunc(s, unicode.IsSpace); len(trimmed) != len(s) {
		offset += len(s) - len(trimmed)
		s = trimmed
	}
	s = strings.TrimRightFunc(s, unicode.IsSpace)
	if len(s) == 0 {
		return "", 0, fmt.Errorf("empty input")
	}
	return s, offset, nil
}

// checkDecimal validates [+-]digits[.digits][(e|E)[+-]digits], reporting the first bad symbol.
func checkDecimal(s string) error {
	i := 0
	if s[0] == '+' || s[0] == '-' {
		i++
	}
	digits, delim := 0, false
	for ; i < len(s); i++ {
		r := s[i]
		switch {
		case '0' <= r && r <= '9':
			digits++
		case r == '.':
			if delim {
				return newPosError("unexpected delimiter", i)
			}
			delim = true
		case r == 'e' || r == 'E':
			if digits == 0 {
				return newPosError("missing digits before exponent", i)
			}
			return checkExponent(s, i+1)
		default:
			return newPosError(fmt.Sprintf("unexpected symbol %q", r), i)
		}
	}
	if digits == 0 {
		return newPosError("missing digits", len(s))
	}
	return nil
}

func checkExponent(s string, i int) error {
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	if i == len(s) {
		return newPosError("missing exponent", i)
	}
	for ; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return newPosError(fmt.Sprintf("unexpected symbol %q", s[i]), i)
		}
	}
	return nil
}
