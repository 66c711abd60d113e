// Copyright 2020 Aleksandr Demakin. All rights reserved.

// Package bitfield implements a fixed-width bit container with two's complement semantics.
// It is the storage primitive for posit significands and quire registers.
package bitfield

import (
	"errors"
	"fmt"
	"math/big"
	"math/bits"
	"strings"

	"github.com/zeebo/errs"
)

var (
	// Error is the class of all bitfield errors.
	Error = errs.Class("bitfield")

	// ErrIndexOutOfBounds is returned when a bit index is not less than the width.
	ErrIndexOutOfBounds = errors.New("index out of bounds")
	// ErrWidthMismatch is raised when two fields of different widths are combined.
	ErrWidthMismatch = errors.New("width mismatch")
	// ErrDivisionByZero is raised by DivMod for a zero divisor.
	ErrDivisionByZero = errors.New("division by zero")
)

const wordBits = 64

// Field is an n-bit unsigned integer, which can also be read as a two's complement number.
// Words are stored least significant first, bits above the width are always zero.
// All operations except Set return new fields and never modify their operands.
type Field struct {
	n     uint
	words []uint64
}

func wordsFor(n uint) int {
	return int((n + wordBits - 1) / wordBits)
}

// New returns an all-zero field of n bits.
func New(n uint) Field {
	if n == 0 {
		panic(Error.New("zero width"))
	}
	return Field{n: n, words: make([]uint64, wordsFor(n))}
}

// FromUint64 returns an n-bit field holding v truncated to n bits.
func FromUint64(n uint, v uint64) Field {
	f := New(n)
	f.words[0] = v
	f.trim()
	return f
}

// FromBigInt returns x modulo 2^n, so negative values are stored in two's complement.
func FromBigInt(n uint, x *big.Int) Field {
	mod := new(big.Int).Lsh(big.NewInt(1), n)
	m := new(big.Int).Mod(x, mod)
	f := New(n)
	buf := m.Bytes()
	for i := 0; i < len(buf); i++ {
		b := uint64(buf[len(buf)-1-i])
		f.words[i/8] |= b << (8 * uint(i%8))
	}
	return f
}

// FromString parses a binary string, most significant bit first.
// An optional 0b prefix and ' separators are accepted.
// The width of the result is the number of binary digits.
func FromString(s string) (Field, error) {
	s = strings.TrimPrefix(s, "0b")
	digits := strings.ReplaceAll(s, "'", "")
	if len(digits) == 0 {
		return Field{}, Error.New("empty input")
	}
	f := New(uint(len(digits)))
	for i, r := range digits {
		switch r {
		case '0':
		case '1':
			f.setBit(uint(len(digits) - 1 - i))
		default:
			return Field{}, Error.New("unexpected symbol %q at pos %d", r, i+1)
		}
	}
	return f, nil
}

// MustFromString is like FromString, but panics on error.
func MustFromString(s string) Field {
	f, err := FromString(s)
	if err != nil {
		panic(err)
	}
	return f
}

func (f *Field) trim() {
	if r := f.n % wordBits; r != 0 {
		f.words[len(f.words)-1] &= 1<<r - 1
	}
}

func (f Field) setBit(i uint) {
	f.words[i/wordBits] |= 1 << (i % wordBits)
}

func (f Field) mustMatch(other Field) {
	if f.n != other.n {
		panic(Error.Wrap(fmt.Errorf("%w: %d != %d", ErrWidthMismatch, f.n, other.n)))
	}
}

// Width returns the number of bits.
func (f Field) Width() uint {
	return f.n
}

// Clone returns a deep copy of f.
func (f Field) Clone() Field {
	c := Field{n: f.n, words: make([]uint64, len(f.words))}
	copy(c.words, f.words)
	return c
}

// Resize returns f zero-extended or truncated to n bits.
func (f Field) Resize(n uint) Field {
	r := New(n)
	copy(r.words, f.words)
	r.trim()
	return r
}

// SignExtend returns f, treated as a two's complement number, extended or truncated to n bits.
func (f Field) SignExtend(n uint) Field {
	r := f.Resize(n)
	if n <= f.n || !f.IsNegative() {
		return r
	}
	return r.Or(New(n).Not().Shl(f.n))
}

// Get returns the bit at position i.
func (f Field) Get(i uint) (bool, error) {
	if i >= f.n {
		return false, Error.Wrap(fmt.Errorf("%w: %d >= %d", ErrIndexOutOfBounds, i, f.n))
	}
	return f.Bit(i), nil
}

// Set sets the bit at position i.
func (f *Field) Set(i uint, v bool) error {
	if i >= f.n {
		return Error.Wrap(fmt.Errorf("%w: %d >= %d", ErrIndexOutOfBounds, i, f.n))
	}
	mask := uint64(1) << (i % wordBits)
	if v {
		f.words[i/wordBits] |= mask
	} else {
		f.words[i/wordBits] &^= mask
	}
	return nil
}

// Bit returns the bit at position i, or false for positions outside of the field.
func (f Field) Bit(i uint) bool {
	if i >= f.n {
		return false
	}
	return f.words[i/wordBits]>>(i%wordBits)&1 == 1
}

// Bits returns up to 64 bits starting at position lo as an unsigned integer.
func (f Field) Bits(lo, count uint) uint64 {
	if count == 0 || lo >= f.n {
		return 0
	}
	w, b := lo/wordBits, lo%wordBits
	v := f.words[w] >> b
	if b > 0 && int(w)+1 < len(f.words) {
		v |= f.words[w+1] << (wordBits - b)
	}
	if count < wordBits {
		v &= 1<<count - 1
	}
	return v
}

// Uint64 returns the lowest 64 bits.
func (f Field) Uint64() uint64 {
	return f.words[0]
}

// IsZero returns true if all bits are zero.
func (f Field) IsZero() bool {
	for _, w := range f.words {
		if w != 0 {
			return false
		}
	}
	return true
}

// IsNegative returns the most significant bit, which is the sign of a two's complement number.
func (f Field) IsNegative() bool {
	return f.Bit(f.n - 1)
}

// MSB returns the position of the highest set bit, or -1 for zero.
func (f Field) MSB() int {
	for i := len(f.words) - 1; i >= 0; i-- {
		if f.words[i] != 0 {
			return i*wordBits + wordBits - 1 - bits.LeadingZeros64(f.words[i])
		}
	}
	return -1
}

// TrailingZeros returns the number of zero bits below the lowest set bit, or the width for zero.
func (f Field) TrailingZeros() uint {
	for i, w := range f.words {
		if w != 0 {
			return uint(i*wordBits + bits.TrailingZeros64(w))
		}
	}
	return f.n
}

// AnyBelow returns true if any bit at a position lower than i is set.
func (f Field) AnyBelow(i uint) bool {
	if i > f.n {
		i = f.n
	}
	full := int(i / wordBits)
	for j := 0; j < full; j++ {
		if f.words[j] != 0 {
			return true
		}
	}
	if r := i % wordBits; r != 0 {
		return f.words[full]&(1<<r-1) != 0
	}
	return false
}

// Shl returns f shifted left by s bits. Shifts of the whole width or more produce zero.
func (f Field) Shl(s uint) Field {
	r := New(f.n)
	if s >= f.n {
		return r
	}
	ws, bs := int(s/wordBits), s%wordBits
	for i := len(f.words) - 1; i >= ws; i-- {
		src := i - ws
		v := f.words[src] << bs
		if bs > 0 && src > 0 {
			v |= f.words[src-1] >> (wordBits - bs)
		}
		r.words[i] = v
	}
	r.trim()
	return r
}

// Shr returns f logically shifted right by s bits.
func (f Field) Shr(s uint) Field {
	r := New(f.n)
	if s >= f.n {
		return r
	}
	ws, bs := int(s/wordBits), s%wordBits
	for i := 0; i+ws < len(f.words); i++ {
		src := i + ws
		v := f.words[src] >> bs
		if bs > 0 && src+1 < len(f.words) {
			v |= f.words[src+1] << (wordBits - bs)
		}
		r.words[i] = v
	}
	return r
}

// Sar returns f arithmetically shifted right by s bits, replicating the sign bit.
func (f Field) Sar(s uint) Field {
	if !f.IsNegative() || s == 0 {
		return f.Shr(s)
	}
	ones := New(f.n).Not()
	if s >= f.n {
		return ones
	}
	return f.Shr(s).Or(ones.Shl(f.n - s))
}

// Not returns the bitwise complement of f.
func (f Field) Not() Field {
	r := New(f.n)
	for i, w := range f.words {
		r.words[i] = ^w
	}
	r.trim()
	return r
}

// Or returns the bitwise or of two fields of the same width.
func (f Field) Or(other Field) Field {
	f.mustMatch(other)
	r := New(f.n)
	for i := range f.words {
		r.words[i] = f.words[i] | other.words[i]
	}
	return r
}

// And returns the bitwise and of two fields of the same width.
func (f Field) And(other Field) Field {
	f.mustMatch(other)
	r := New(f.n)
	for i := range f.words {
		r.words[i] = f.words[i] & other.words[i]
	}
	return r
}

// Add returns f+other modulo 2^n and the carry out of the top bit.
func (f Field) Add(other Field) (Field, bool) {
	f.mustMatch(other)
	r := New(f.n)
	var carry uint64
	for i := range f.words {
		r.words[i], carry = bits.Add64(f.words[i], other.words[i], carry)
	}
	if rem := f.n % wordBits; rem != 0 {
		carry = r.words[len(r.words)-1] >> rem & 1
		r.trim()
	}
	return r, carry == 1
}

// Sub returns f-other modulo 2^n and the borrow out of the top bit.
func (f Field) Sub(other Field) (Field, bool) {
	f.mustMatch(other)
	r := New(f.n)
	var borrow uint64
	for i := range f.words {
		r.words[i], borrow = bits.Sub64(f.words[i], other.words[i], borrow)
	}
	r.trim()
	return r, borrow == 1
}

// Increment returns f+1 modulo 2^n.
func (f Field) Increment() Field {
	r, _ := f.Add(FromUint64(f.n, 1))
	return r
}

// Negate returns the two's complement negation ~f + 1.
func (f Field) Negate() Field {
	return f.Not().Increment()
}

// Abs returns the magnitude of f read as a two's complement number.
func (f Field) Abs() Field {
	if f.IsNegative() {
		return f.Negate()
	}
	return f.Clone()
}

// Cmp compares f and other as unsigned integers, the widths may differ.
func (f Field) Cmp(other Field) int {
	n := len(f.words)
	if len(other.words) > n {
		n = len(other.words)
	}
	for i := n - 1; i >= 0; i-- {
		var a, b uint64
		if i < len(f.words) {
			a = f.words[i]
		}
		if i < len(other.words) {
			b = other.words[i]
		}
		switch {
		case a < b:
			return -1
		case a > b:
			return 1
		}
	}
	return 0
}

// Equal returns true if both fields have the same width and bits.
func (f Field) Equal(other Field) bool {
	return f.n == other.n && f.Cmp(other) == 0
}

// BigInt returns the unsigned value of f.
func (f Field) BigInt() *big.Int {
	buf := make([]byte, len(f.words)*8)
	for i, w := range f.words {
		for j := 0; j < 8; j++ {
			buf[len(buf)-1-(i*8+j)] = byte(w >> (8 * j))
		}
	}
	return new(big.Int).SetBytes(buf)
}

// SignedBigInt returns the value of f read as a two's complement number.
func (f Field) SignedBigInt() *big.Int {
	v := f.BigInt()
	if f.IsNegative() {
		v.Sub(v, new(big.Int).Lsh(big.NewInt(1), f.n))
	}
	return v
}

// Mul returns the full product of a and b, which is a.Width()+b.Width() bits wide.
func Mul(a, b Field) Field {
	tmp := make([]uint64, len(a.words)+len(b.words))
	for i, x := range a.words {
		if x == 0 {
			continue
		}
		var carry uint64
		for j, y := range b.words {
			hi, lo := bits.Mul64(x, y)
			var c uint64
			lo, c = bits.Add64(lo, tmp[i+j], 0)
			hi += c
			lo, c = bits.Add64(lo, carry, 0)
			hi += c
			tmp[i+j] = lo
			carry = hi
		}
		tmp[i+len(b.words)] = carry
	}
	r := New(a.n + b.n)
	copy(r.words, tmp)
	return r
}

// DivMod returns the quotient and remainder of a/b, both a.Width() bits wide.
func DivMod(a, b Field) (quo, rem Field) {
	if b.IsZero() {
		panic(Error.Wrap(ErrDivisionByZero))
	}
	q, r := new(big.Int).QuoRem(a.BigInt(), b.BigInt(), new(big.Int))
	return FromBigInt(a.n, q), FromBigInt(a.n, r)
}

// Sqrt returns the integer square root of a and the remainder a-root^2.
func Sqrt(a Field) (root, rem Field) {
	x := a.BigInt()
	s := new(big.Int).Sqrt(x)
	x.Sub(x, new(big.Int).Mul(s, s))
	return FromBigInt(a.n, s), FromBigInt(a.n, x)
}

// String returns exactly Width() binary digits, most significant first.
func (f Field) String() string {
	return f.Binary(false)
}

// Binary returns the binary digits of f, most significant first.
// If nibbleMarker is set, a ' separates every group of four bits counted from the lowest bit.
func (f Field) Binary(nibbleMarker bool) string {
	var b strings.Builder
	b.Grow(int(f.n + f.n/4))
	for i := int(f.n) - 1; i >= 0; i-- {
		if f.Bit(uint(i)) {
			b.WriteByte('1')
		} else {
			b.WriteByte('0')
		}
		if nibbleMarker && i > 0 && i%4 == 0 {
			b.WriteByte('\'')
		}
	}
	return b.String()
}

// Hex returns ceil(Width()/4) upper case hexadecimal digits.
func (f Field) Hex() string {
	const digits = "0123456789ABCDEF"
	n := (f.n + 3) / 4
	buf := make([]byte, n)
	for i := uint(0); i < n; i++ {
		buf[n-1-i] = digits[f.Bits(4*i, 4)]
	}
	return string(buf)
}
