// Copyright 2020 Aleksandr Demakin. All rights reserved.

package posit

import (
	"errors"
	"fmt"

	"github.com/zeebo/errs"
)

var (
	// Error is the class of all errors produced by this package.
	Error = errs.Class("posit")

	// ErrDivideByZero is raised by x/0 in Trap mode.
	ErrDivideByZero = errors.New("divide by zero")
	// ErrNegativeSqrt is raised by the square root of a negative posit in Trap mode.
	ErrNegativeSqrt = errors.New("square root of a negative value")
	// ErrNotAReal is raised in Trap mode when NaN or an infinity is converted into a posit,
	// or NaR is converted into a type which cannot represent it.
	ErrNotAReal = errors.New("not a real")

	// ErrConfigMismatch is a programming error: posits of different configurations were combined.
	ErrConfigMismatch = errors.New("configuration mismatch")
	// ErrInvalidConfig is a programming error: the configuration cannot describe a posit.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// IsArithmetic returns true for the errors, which are raised depending on the configuration Mode.
func IsArithmetic(err error) bool {
	return errors.Is(err, ErrDivideByZero) || errors.Is(err, ErrNegativeSqrt) || errors.Is(err, ErrNotAReal)
}

// Catch runs fn and returns an arithmetic trap raised inside it as an error.
// Any other panic is propagated.
func Catch(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok && IsArithmetic(e) {
				err = e
				return
			}
			panic(r)
		}
	}()
	fn()
	return nil
}

// trap panics with err in Trap mode and does nothing otherwise.
func (c Config) trap(err error) {
	if c.Mode == Trap {
		panic(Error.Wrap(fmt.Errorf("%s: %w", c, err)))
	}
}

func mismatch(a, b Config) {
	if a.NBits != b.NBits || a.ES != b.ES {
		panic(Error.Wrap(fmt.Errorf("%w: %s and %s", ErrConfigMismatch, a, b)))
	}
}
