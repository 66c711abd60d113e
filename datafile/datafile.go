// Copyright 2020 Aleksandr Demakin. All rights reserved.

// Package datafile stores vectors of posits in a compact binary container.
//
// A file is a fixed little-endian header, the payload, and an optional checksum trailer:
//
//	magic u32 | version u16 | type u32 | nbits u8 | es u8 | compression u8 | checksum u8 |
//	count u64 | payload length u64 | payload | checksum
//
// The payload holds count patterns, each in ceil(nbits/8) little-endian bytes,
// and may be compressed. The checksum covers the uncompressed payload.
package datafile

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/calebcase/oops"
	"github.com/zeebo/errs"

	"github.com/avdva/posit"
)

const (
	// Magic starts every file.
	Magic uint32 = 0xAAA0
	// Version is the only supported format version.
	Version uint16 = 1
	// TypePosit is the type id of posit vectors.
	TypePosit uint32 = 0x0401

	// HeaderSize is the encoded size of Header.
	HeaderSize = 30

	// MaxCount limits the number of posits in a file.
	MaxCount = 1 << 28
)

var (
	// Error is the class of all datafile errors.
	Error = errs.Class("datafile")

	// ErrBadMagic is returned for input, which does not start with Magic.
	ErrBadMagic = errors.New("bad magic")
	// ErrUnsupportedVersion is returned for versions other than Version.
	ErrUnsupportedVersion = errors.New("unsupported version")
	// ErrUnsupportedType is returned for type ids other than TypePosit.
	ErrUnsupportedType = errors.New("unsupported type")
	// ErrChecksum is returned when the payload does not match its checksum.
	ErrChecksum = errors.New("checksum mismatch")
	// ErrTruncated is returned when the input ends early or the payload has a wrong size.
	ErrTruncated = errors.New("truncated data")
	// ErrUnknownCodec is returned for unknown compression or checksum ids.
	ErrUnknownCodec = errors.New("unknown codec")
)

// Header is the fixed part of a file.
type Header struct {
	Magic       uint32
	Version     uint16
	Type        uint32
	NBits       uint8
	ES          uint8
	Compression Compression
	Checksum    Checksum
	Count       uint64
	PayloadLen  uint64
}

// Options control encoding.
type Options struct {
	Compression Compression
	Checksum    Checksum
}

// DefaultOptions compress with zstd and protect the payload with xxHash64.
var DefaultOptions = Options{Compression: CompressionZstd, Checksum: ChecksumXXH64}

// PatternSize returns the number of bytes a pattern of cfg occupies in the payload.
func PatternSize(cfg posit.Config) int {
	return int(cfg.NBits+7) / 8
}

// Write encodes ps, which must all have the nbits and es of cfg, into w.
// If the payload cannot be compressed with LZ4, it is stored uncompressed.
func Write(w io.Writer, cfg posit.Config, ps []posit.Posit, opts Options) error {
	if err := cfg.Validate(); err != nil {
		return Error.Wrap(err)
	}
	if len(ps) > MaxCount {
		return Error.New("%d posits exceed the limit of %d", len(ps), MaxCount)
	}
	codec, err := GetCodec(opts.Compression)
	if err != nil {
		return err
	}
	if opts.Checksum.Size() < 0 {
		return Error.Wrap(fmt.Errorf("%w: %s", ErrUnknownCodec, opts.Checksum))
	}
	payload, err := pack(cfg, ps)
	if err != nil {
		return err
	}
	compressed, err := codec.Compress(payload)
	switch {
	case errors.Is(err, errIncompressible):
		opts.Compression, compressed = CompressionNone, payload
	case err != nil:
		return Error.Wrap(err)
	}
	h := Header{
		Magic:       Magic,
		Version:     Version,
		Type:        TypePosit,
		NBits:       uint8(cfg.NBits),
		ES:          uint8(cfg.ES),
		Compression: opts.Compression,
		Checksum:    opts.Checksum,
		Count:       uint64(len(ps)),
		PayloadLen:  uint64(len(compressed)),
	}
	if err := binary.Write(w, binary.LittleEndian, &h); err != nil {
		return Error.Wrap(err)
	}
	if _, err := w.Write(compressed); err != nil {
		return Error.Wrap(err)
	}
	if _, err := w.Write(opts.Checksum.Sum(payload)); err != nil {
		return Error.Wrap(err)
	}
	return nil
}

// Read decodes a file from r. The returned configuration is Silent.
func Read(r io.Reader) (posit.Config, []posit.Posit, error) {
	h, err := ReadHeader(r)
	if err != nil {
		return posit.Config{}, nil, err
	}
	cfg, err := h.config()
	if err != nil {
		return posit.Config{}, nil, err
	}
	codec, err := GetCodec(h.Compression)
	if err != nil {
		return posit.Config{}, nil, oops.Trace(err)
	}
	size := uint64(PatternSize(cfg)) * h.Count
	if h.Count > MaxCount || h.PayloadLen > 2*size+1024 {
		return posit.Config{}, nil, oops.Trace(Error.Wrap(fmt.Errorf("%w: %d posits in a %d-byte payload",
			ErrTruncated, h.Count, h.PayloadLen)))
	}
	var compressed bytes.Buffer
	compressed.Grow(prealloc(int(h.PayloadLen)))
	n, err := io.Copy(&compressed, io.LimitReader(r, int64(h.PayloadLen)))
	if err != nil {
		return posit.Config{}, nil, oops.Trace(truncated(err))
	}
	if uint64(n) != h.PayloadLen {
		return posit.Config{}, nil, oops.Trace(Error.Wrap(fmt.Errorf("%w: payload has %d bytes, header says %d",
			ErrTruncated, n, h.PayloadLen)))
	}
	payload, err := codec.Decompress(compressed.Bytes(), int(size))
	if err != nil {
		return posit.Config{}, nil, oops.Trace(Error.Wrap(err))
	}
	if uint64(len(payload)) != size {
		return posit.Config{}, nil, oops.Trace(Error.Wrap(fmt.Errorf("%w: payload has %d bytes, expected %d",
			ErrTruncated, len(payload), size)))
	}
	trailer := make([]byte, h.Checksum.Size())
	if _, err := io.ReadFull(r, trailer); err != nil {
		return posit.Config{}, nil, oops.Trace(truncated(err))
	}
	if !bytes.Equal(trailer, h.Checksum.Sum(payload)) {
		return posit.Config{}, nil, oops.Trace(Error.Wrap(fmt.Errorf("%w: %s", ErrChecksum, h.Checksum)))
	}
	return cfg, unpack(cfg, payload, int(h.Count)), nil
}

// ReadHeader reads and validates the fixed part of a file.
func ReadHeader(r io.Reader) (Header, error) {
	var h Header
	if err := binary.Read(r, binary.LittleEndian, &h); err != nil {
		return Header{}, oops.Trace(truncated(err))
	}
	switch {
	case h.Magic != Magic:
		return Header{}, oops.Trace(Error.Wrap(fmt.Errorf("%w: %#x", ErrBadMagic, h.Magic)))
	case h.Version != Version:
		return Header{}, oops.Trace(Error.Wrap(fmt.Errorf("%w: %d", ErrUnsupportedVersion, h.Version)))
	case h.Type != TypePosit:
		return Header{}, oops.Trace(Error.Wrap(fmt.Errorf("%w: %#x", ErrUnsupportedType, h.Type)))
	case h.Checksum.Size() < 0:
		return Header{}, oops.Trace(Error.Wrap(fmt.Errorf("%w: %s", ErrUnknownCodec, h.Checksum)))
	}
	return h, nil
}

func (h Header) config() (posit.Config, error) {
	cfg, err := posit.NewConfig(uint(h.NBits), uint(h.ES), posit.Silent)
	if err != nil {
		return posit.Config{}, oops.Trace(Error.Wrap(fmt.Errorf("%w: %v", ErrUnsupportedType, err)))
	}
	return cfg, nil
}

// Marshal encodes ps into a byte slice.
func Marshal(cfg posit.Config, ps []posit.Posit, opts Options) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(HeaderSize + len(ps)*PatternSize(cfg))
	if err := Write(&buf, cfg, ps, opts); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes a file from data. Trailing bytes are an error.
func Unmarshal(data []byte) (posit.Config, []posit.Posit, error) {
	r := bytes.NewReader(data)
	cfg, ps, err := Read(r)
	if err != nil {
		return posit.Config{}, nil, err
	}
	if r.Len() > 0 {
		return posit.Config{}, nil, Error.New("%d trailing bytes", r.Len())
	}
	return cfg, ps, nil
}

func pack(cfg posit.Config, ps []posit.Posit) ([]byte, error) {
	size := PatternSize(cfg)
	payload := make([]byte, 0, len(ps)*size)
	var word [8]byte
	for i, p := range ps {
		if pc := p.Config(); pc.NBits != cfg.NBits || pc.ES != cfg.ES {
			return nil, Error.Wrap(fmt.Errorf("%w: posit %d is %s, expected %s", posit.ErrConfigMismatch, i, pc, cfg))
		}
		binary.LittleEndian.PutUint64(word[:], p.Bits())
		payload = append(payload, word[:size]...)
	}
	return payload, nil
}

func unpack(cfg posit.Config, payload []byte, count int) []posit.Posit {
	size := PatternSize(cfg)
	ps := make([]posit.Posit, count)
	var word [8]byte
	for i := range ps {
		copy(word[:], payload[i*size:(i+1)*size])
		ps[i] = cfg.FromBits(binary.LittleEndian.Uint64(word[:]))
	}
	return ps
}

func truncated(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return Error.Wrap(fmt.Errorf("%w: %v", ErrTruncated, err))
	}
	return Error.Wrap(err)
}
