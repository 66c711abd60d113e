package datafile

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/zeebo/blake3"
)

// Checksum identifies the hash stored after the payload.
type Checksum uint8

const (
	// ChecksumNone stores no trailer.
	ChecksumNone Checksum = iota
	// ChecksumXXH64 stores the 8-byte xxHash64 of the uncompressed payload.
	ChecksumXXH64
	// ChecksumBLAKE3 stores the 32-byte BLAKE3 hash of the uncompressed payload.
	ChecksumBLAKE3
)

func (c Checksum) String() string {
	switch c {
	case ChecksumNone:
		return "none"
	case ChecksumXXH64:
		return "xxh64"
	case ChecksumBLAKE3:
		return "blake3"
	default:
		return fmt.Sprintf("checksum(%d)", uint8(c))
	}
}

// ParseChecksum parses the result of Checksum.String.
func ParseChecksum(s string) (Checksum, error) {
	for _, c := range []Checksum{ChecksumNone, ChecksumXXH64, ChecksumBLAKE3} {
		if strings.EqualFold(s, c.String()) {
			return c, nil
		}
	}
	return ChecksumNone, Error.Wrap(fmt.Errorf("%w: checksum %q", ErrUnknownCodec, s))
}

// Size returns the length of the trailer, -1 for unknown checksums.
func (c Checksum) Size() int {
	switch c {
	case ChecksumNone:
		return 0
	case ChecksumXXH64:
		return 8
	case ChecksumBLAKE3:
		return 32
	default:
		return -1
	}
}

// Sum returns the trailer for data.
func (c Checksum) Sum(data []byte) []byte {
	switch c {
	case ChecksumXXH64:
		return binary.LittleEndian.AppendUint64(nil, xxhash.Sum64(data))
	case ChecksumBLAKE3:
		sum := blake3.Sum256(data)
		return sum[:]
	default:
		return nil
	}
}
