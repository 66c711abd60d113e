package mathutil

import (
	"math/bits"
	"unsafe"
)

// Mask returns a value with the lowest n bits set.
func Mask(n uint) uint64 {
	if n >= 64 {
		return ^uint64(0)
	}
	return 1<<n - 1
}

// SignExtend interprets the lowest n bits of v as a two's complement number.
func SignExtend(v uint64, n uint) int64 {
	shift := 64 - n
	return int64(v<<shift) >> shift
}

func BinaryDigits(value uint64) int {
	return int(8*unsafe.Sizeof(uint64(0))) - bits.LeadingZeros64(value)
}

// FloorDivPow2 returns k and r such that x = k*2^s + r and 0 <= r < 2^s.
func FloorDivPow2(x int, s uint) (k, r int) {
	k = x >> s
	return k, x - k<<s
}

func Int64Sign(v int64) int {
	if v == 0 {
		return 0
	}
	return [...]int{1, -1}[uint64(v)>>63]
}

// MinUint returns the smaller of a and b.
func MinUint(a, b uint) uint {
	if a < b {
		return a
	}
	return b
}
