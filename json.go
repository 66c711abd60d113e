// Copyright 2020 Aleksandr Demakin. All rights reserved.

package posit

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

var (
	// JSONMode defines the way all posits are marshaled into json, see JSONMode* constants.
	// This variable is not thread-safe, so this should be changed on program start.
	JSONMode = JSONModeHex
)

const (
	// JSONModeHex produces lossless strings in the hex format, like `"16.2x5300p"`.
	JSONModeHex = iota
	// JSONModeString produces decimal strings, like `"5.5"`, and `"NaR"`.
	JSONModeString
	// JSONModeFloat produces numbers, like `5.5`, and null for NaR.
	JSONModeFloat
	// JSONModeBits produces objects with the configuration and the pattern, like `{"nbits":16,"es":2,"bits":21248}`.
	JSONModeBits
)

type jsonBits struct {
	NBits uint   `json:"nbits"`
	ES    uint   `json:"es"`
	Bits  uint64 `json:"bits"`
}

// MarshalJSON marshals p according to current JSONMode.
func (p Posit) MarshalJSON() ([]byte, error) {
	return p.toJSON(JSONMode)
}

func (p Posit) toJSON(mode int) ([]byte, error) {
	switch mode {
	case JSONModeString:
		return []byte(strconv.Quote(p.String())), nil
	case JSONModeFloat:
		if p.IsNaR() {
			return []byte("null"), nil
		}
		return []byte(strconv.FormatFloat(p.Float64(), 'g', -1, 64)), nil
	case JSONModeBits:
		return json.Marshal(jsonBits{NBits: p.cfg.NBits, ES: p.cfg.ES, Bits: p.bits})
	default:
		return []byte(strconv.Quote(p.HexFormat())), nil
	}
}

// UnmarshalJSON accepts any of the JSONMode* forms.
// Forms, which do not carry a configuration, are decoded with the configuration of p,
// or with DefaultConfig if p is the zero Posit.
func (p *Posit) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if len(s) == 0 {
		return Error.New("empty json")
	}
	switch {
	case s[0] == '{':
		var jb jsonBits
		if err := json.Unmarshal(data, &jb); err != nil {
			return Error.Wrap(err)
		}
		c, err := NewConfig(jb.NBits, jb.ES, p.receiverConfig().Mode)
		if err != nil {
			return err
		}
		if jb.Bits > c.mask() {
			return Error.New("pattern %d does not fit %s", jb.Bits, c)
		}
		*p = c.FromBits(jb.Bits)
		return nil
	case s == "null":
		*p = p.receiverConfig().NaR()
		return nil
	}
	return p.UnmarshalText([]byte(s))
}

// MarshalText implements encoding.TextMarshaler using the hex format.
func (p Posit) MarshalText() ([]byte, error) {
	return []byte(p.HexFormat()), nil
}

// UnmarshalText parses the hex format into its own configuration,
// and any other form accepted by Config.FromString into the configuration of p.
func (p *Posit) UnmarshalText(data []byte) error {
	s, _, err := prepareString(string(data))
	if err != nil {
		return Error.Wrap(fmt.Errorf("parsing failed: %w", err))
	}
	c := p.receiverConfig()
	if isHexFormat(s) {
		parsed, err := ParseHex(s)
		if err != nil {
			return err
		}
		*p = parsed.cfg.WithMode(c.Mode).FromBits(parsed.bits)
		return nil
	}
	parsed, err := c.FromString(s)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// MarshalBinary implements encoding.BinaryMarshaler: nbits, es, and the pattern in little-endian order.
func (p Posit) MarshalBinary() ([]byte, error) {
	n := (p.cfg.NBits + 7) / 8
	data := make([]byte, 2+n)
	data[0], data[1] = byte(p.cfg.NBits), byte(p.cfg.ES)
	for i := uint(0); i < n; i++ {
		data[2+i] = byte(p.bits >> (8 * i))
	}
	return data, nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler. The mode of p is kept.
func (p *Posit) UnmarshalBinary(data []byte) error {
	if len(data) < 2 {
		return Error.New("binary data too short: %d bytes", len(data))
	}
	c, err := NewConfig(uint(data[0]), uint(data[1]), p.cfg.Mode)
	if err != nil {
		return err
	}
	n := int(c.NBits+7) / 8
	if len(data) != 2+n {
		return Error.New("%s needs %d bytes, got %d", c, 2+n, len(data))
	}
	var b uint64
	for i := 0; i < n; i++ {
		b |= uint64(data[2+i]) << (8 * i)
	}
	if b > c.mask() {
		return Error.New("pattern %x does not fit %s", b, c)
	}
	*p = c.FromBits(b)
	return nil
}

func (p Posit) receiverConfig() Config {
	if p.cfg.NBits == 0 {
		return DefaultConfig.WithMode(p.cfg.Mode)
	}
	return p.cfg
}
