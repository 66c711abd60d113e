package datafile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/klauspost/compress/s2"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"github.com/ulikunitz/xz"
)

// Compression identifies the payload codec.
type Compression uint8

const (
	// CompressionNone stores the payload as is.
	CompressionNone Compression = iota
	// CompressionZstd uses Zstandard.
	CompressionZstd
	// CompressionS2 uses S2, a faster Snappy extension.
	CompressionS2
	// CompressionLZ4 uses LZ4 blocks.
	CompressionLZ4
	// CompressionXZ uses xz (LZMA2).
	CompressionXZ
)

var compressionNames = map[Compression]string{
	CompressionNone: "none",
	CompressionZstd: "zstd",
	CompressionS2:   "s2",
	CompressionLZ4:  "lz4",
	CompressionXZ:   "xz",
}

func (c Compression) String() string {
	if name, ok := compressionNames[c]; ok {
		return name
	}
	return fmt.Sprintf("compression(%d)", uint8(c))
}

// ParseCompression parses the result of Compression.String.
func ParseCompression(s string) (Compression, error) {
	for c, name := range compressionNames {
		if strings.EqualFold(s, name) {
			return c, nil
		}
	}
	return CompressionNone, Error.Wrap(fmt.Errorf("%w: %q", ErrUnknownCodec, s))
}

// Codec compresses and decompresses whole payloads. Codecs are safe for concurrent use.
type Codec interface {
	Compress(data []byte) ([]byte, error)
	// Decompress restores a payload, whose uncompressed size is known to be size bytes.
	Decompress(data []byte, size int) ([]byte, error)
}

var codecs = map[Compression]Codec{
	CompressionNone: noopCodec{},
	CompressionZstd: zstdCodec{},
	CompressionS2:   s2Codec{},
	CompressionLZ4:  lz4Codec{},
	CompressionXZ:   xzCodec{},
}

// GetCodec returns the codec for c.
func GetCodec(c Compression) (Codec, error) {
	if codec, ok := codecs[c]; ok {
		return codec, nil
	}
	return nil, Error.Wrap(fmt.Errorf("%w: %s", ErrUnknownCodec, c))
}

type noopCodec struct{}

func (noopCodec) Compress(data []byte) ([]byte, error) {
	return data, nil
}

func (noopCodec) Decompress(data []byte, _ int) ([]byte, error) {
	return data, nil
}

// maxPrealloc bounds the buffers sized from a file header before any data backs them.
const maxPrealloc = 1 << 20

func prealloc(size int) int {
	return min(size, maxPrealloc)
}

var zstdDecoderPool = sync.Pool{
	New: func() any {
		decoder, err := zstd.NewReader(nil,
			zstd.WithDecoderConcurrency(1),
			zstd.WithDecoderLowmem(false),
			zstd.WithDecoderMaxMemory(MaxCount*8),
		)
		if err != nil {
			panic(fmt.Sprintf("failed to create zstd decoder for pool: %v", err))
		}
		return decoder
	},
}

var zstdEncoderPool = sync.Pool{
	New: func() any {
		encoder, err := zstd.NewWriter(nil,
			zstd.WithEncoderLevel(zstd.SpeedDefault),
			zstd.WithEncoderCRC(false),
		)
		if err != nil {
			panic(fmt.Sprintf("failed to create zstd encoder for pool: %v", err))
		}
		return encoder
	},
}

type zstdCodec struct{}

func (zstdCodec) Compress(data []byte) ([]byte, error) {
	encoder := zstdEncoderPool.Get().(*zstd.Encoder)
	defer zstdEncoderPool.Put(encoder)
	return encoder.EncodeAll(data, nil), nil
}

func (zstdCodec) Decompress(data []byte, size int) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var h zstd.Header
	if err := h.Decode(data); err != nil {
		return nil, fmt.Errorf("zstd decompression failed: %w", err)
	}
	if h.HasFCS && h.FrameContentSize != uint64(size) {
		return nil, fmt.Errorf("zstd frame holds %d bytes, expected %d", h.FrameContentSize, size)
	}
	decoder := zstdDecoderPool.Get().(*zstd.Decoder)
	defer zstdDecoderPool.Put(decoder)
	decompressed, err := decoder.DecodeAll(data, make([]byte, 0, prealloc(size)))
	if err != nil {
		return nil, fmt.Errorf("zstd decompression failed: %w", err)
	}
	return decompressed, nil
}

type s2Codec struct{}

func (s2Codec) Compress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}
	return s2.Encode(nil, data), nil
}

func (s2Codec) Decompress(data []byte, size int) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}
	n, err := s2.DecodedLen(data)
	if err != nil {
		return nil, fmt.Errorf("s2 decompression failed: %w", err)
	}
	if n != size {
		return nil, fmt.Errorf("s2 block holds %d bytes, expected %d", n, size)
	}
	return s2.Decode(nil, data)
}

var lz4CompressorPool = sync.Pool{
	New: func() any {
		return &lz4.Compressor{}
	},
}

// errIncompressible is returned by the lz4 codec when a block would not get smaller.
var errIncompressible = errors.New("incompressible data")

type lz4Codec struct{}

const maxLZ4Slack = 64

func (lz4Codec) Compress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}
	dst := make([]byte, lz4.CompressBlockBound(len(data)))
	lc, _ := lz4CompressorPool.Get().(*lz4.Compressor)
	defer lz4CompressorPool.Put(lc)
	n, err := lc.CompressBlock(data, dst)
	if err != nil {
		return nil, err
	}
	if n == 0 || n >= len(data) {
		return nil, errIncompressible
	}
	return dst[:n], nil
}

func (lz4Codec) Decompress(data []byte, size int) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}
	// a block cannot expand more than 255 times, as every length byte adds at most 255 bytes.
	if size > 255*len(data)+maxLZ4Slack {
		return nil, fmt.Errorf("lz4 block of %d bytes cannot hold %d bytes", len(data), size)
	}
	buf := make([]byte, size)
	n, err := lz4.UncompressBlock(data, buf)
	if err != nil {
		return nil, fmt.Errorf("lz4 decompression failed: %w", err)
	}
	return buf[:n], nil
}

type xzCodec struct{}

func (xzCodec) Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := xz.NewWriter(&buf)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (xzCodec) Decompress(data []byte, size int) ([]byte, error) {
	r, err := xz.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("xz decompression failed: %w", err)
	}
	buf := bytes.NewBuffer(make([]byte, 0, prealloc(size)))
	if _, err := io.Copy(buf, io.LimitReader(r, int64(size)+1)); err != nil {
		return nil, fmt.Errorf("xz decompression failed: %w", err)
	}
	return buf.Bytes(), nil
}
