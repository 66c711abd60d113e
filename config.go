// Copyright 2020 Aleksandr Demakin. All rights reserved.

package posit

import (
	"fmt"

	"github.com/avdva/posit/internal/mathutil"
)

const (
	// MaxNBits is the widest supported posit.
	MaxNBits = 64
	// MaxES is the largest supported exponent field.
	MaxES = 8
)

// Mode selects how arithmetic exceptions are reported.
type Mode uint8

const (
	// Silent produces NaR, or saturates, without reporting an error.
	Silent Mode = iota
	// Trap reports arithmetic exceptions. Operations on posits panic with an error
	// wrapping one of ErrDivideByZero, ErrNegativeSqrt, ErrNotAReal; see Catch.
	// Quire operations return errors instead of saturating.
	Trap
)

func (m Mode) String() string {
	switch m {
	case Silent:
		return "silent"
	case Trap:
		return "trap"
	default:
		return fmt.Sprintf("mode(%d)", uint8(m))
	}
}

// ParseMode parses the result of Mode.String.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "silent", "":
		return Silent, nil
	case "trap":
		return Trap, nil
	default:
		return Silent, Error.New("unknown mode %q", s)
	}
}

// Config describes a posit<nbits,es> format and its exception mode.
type Config struct {
	NBits uint
	ES    uint
	Mode  Mode
}

// NewConfig returns a validated configuration.
func NewConfig(nbits, es uint, mode Mode) (Config, error) {
	c := Config{NBits: nbits, ES: es, Mode: mode}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// MustConfig is like NewConfig, but panics on error.
func MustConfig(nbits, es uint, mode Mode) Config {
	c, err := NewConfig(nbits, es, mode)
	if err != nil {
		panic(err)
	}
	return c
}

// Validate checks that 2 <= NBits <= 64, ES <= 8, and that the exponent leaves room for the regime.
func (c Config) Validate() error {
	switch {
	case c.NBits < 2 || c.NBits > MaxNBits:
		return Error.Wrap(fmt.Errorf("%w: nbits must be in [2, %d], got %d", ErrInvalidConfig, MaxNBits, c.NBits))
	case c.ES > MaxES:
		return Error.Wrap(fmt.Errorf("%w: es must not exceed %d, got %d", ErrInvalidConfig, MaxES, c.ES))
	case c.NBits == 2 && c.ES != 0:
		return Error.Wrap(fmt.Errorf("%w: es must be 0 for 2-bit posits", ErrInvalidConfig))
	case c.NBits > 2 && c.ES > c.NBits-2:
		return Error.Wrap(fmt.Errorf("%w: es must not exceed nbits-2, got %d", ErrInvalidConfig, c.ES))
	case c.Mode > Trap:
		return Error.Wrap(fmt.Errorf("%w: %s", ErrInvalidConfig, c.Mode))
	}
	return nil
}

func (c Config) mustValidate() {
	if err := c.Validate(); err != nil {
		panic(err)
	}
}

// WithMode returns a copy of c with the given mode.
func (c Config) WithMode(m Mode) Config {
	c.Mode = m
	return c
}

// String returns "posit<nbits,es>".
func (c Config) String() string {
	return fmt.Sprintf("posit<%d,%d>", c.NBits, c.ES)
}

// MaxScale returns the binary scale of maxpos, which is (nbits-2)*2^es.
// The scale of minpos is -MaxScale.
func (c Config) MaxScale() int {
	return int(c.NBits-2) << c.ES
}

// FractionBits returns the largest number of fraction bits a posit of this configuration can carry.
func (c Config) FractionBits() uint {
	if c.ES+3 >= c.NBits {
		return 0
	}
	return c.NBits - 3 - c.ES
}

func (c Config) mask() uint64 {
	return mathutil.Mask(c.NBits)
}

func (c Config) narBits() uint64 {
	return 1 << (c.NBits - 1)
}

func (c Config) maxPosBits() uint64 {
	return c.narBits() - 1
}

// Zero returns the zero posit.
func (c Config) Zero() Posit {
	c.mustValidate()
	return Posit{cfg: c}
}

// NaR returns the Not-a-Real posit.
func (c Config) NaR() Posit {
	return c.FromBits(c.narBits())
}

// One returns 1.
func (c Config) One() Posit {
	return c.FromBits(1 << (c.NBits - 2))
}

// MaxPos returns the largest positive posit.
func (c Config) MaxPos() Posit {
	return c.FromBits(c.maxPosBits())
}

// MinPos returns the smallest positive posit.
func (c Config) MinPos() Posit {
	return c.FromBits(1)
}

// MaxNeg returns the negative posit with the largest magnitude.
func (c Config) MaxNeg() Posit {
	return c.FromBits(c.narBits() + 1)
}

// MinNeg returns the negative posit closest to zero.
func (c Config) MinNeg() Posit {
	return c.FromBits(c.mask())
}
