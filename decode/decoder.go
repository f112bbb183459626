// Copyright © 2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

// Package decode converts raw module memory to typed values and back.
//
// The decoder set is closed. A schema names a decoder by tag and every tag
// is resolved to a Decoder when the schema is parsed, so an unknown decoder
// is a schema error rather than a call time failure.
package decode

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"strings"
)

var (
	ErrDecode   = errors.New("decode error")
	ErrBadValue = errors.New("bad value")
)

type Decoder uint8

const (
	NoDecoder Decoder = iota
	Int
	Uint
	String
	Bytes
	Bit
	Field
	Temperature
	Voltage
	Current
	Power
	Identifier
	Connector
	nDecoders
)

var decoderNames = [...]string{
	NoDecoder:   "none",
	Int:         "int",
	Uint:        "uint",
	String:      "string",
	Bytes:       "bytes",
	Bit:         "bit",
	Field:       "field",
	Temperature: "temperature",
	Voltage:     "voltage",
	Current:     "current",
	Power:       "power",
	Identifier:  "identifier",
	Connector:   "connector",
}

func (d Decoder) String() string {
	if d < nDecoders {
		return decoderNames[d]
	}
	return fmt.Sprint("decoder(", uint8(d), ")")
}

// DecoderByName returns the decoder for a schema tag.
func DecoderByName(s string) (Decoder, bool) {
	for d := Int; d < nDecoders; d++ {
		if decoderNames[d] == s {
			return d, true
		}
	}
	return NoDecoder, false
}

// ValidLength reports whether the decoder accepts a raw block of n bytes.
func (d Decoder) ValidLength(n int) bool {
	switch d {
	case Int, Uint:
		return n == 1 || n == 2 || n == 4 || n == 8
	case String, Bytes:
		return n > 0
	case Bit, Field, Identifier, Connector:
		return n == 1
	case Temperature, Voltage, Current, Power:
		return n == 2
	}
	return false
}

// Writable reports whether values of this decoder can be encoded as a whole
// block with Encode.
func (d Decoder) Writable() bool {
	switch d {
	case Int, Uint, String, Bytes:
		return true
	}
	return false
}

type Polarity uint8

const (
	// ActiveHigh: the asserted state is a set bit.
	ActiveHigh Polarity = iota
	// ActiveLow: the asserted state is a clear bit.
	ActiveLow
)

func (p Polarity) String() string {
	if p == ActiveLow {
		return "low"
	}
	return "high"
}

// Params are the per key decoder arguments from the schema.
type Params struct {
	Bit      uint8
	Width    uint8
	Polarity Polarity
	Enum     []string
}

// DOM units.
const (
	TemperatureToCelsius     = 1 / 256.
	SupplyVoltageToVolts     = 100e-6
	TxBiasCurrentToMilliAmps = 2e-3
	PowerToMilliWatts        = 1e-4
)

// Decode applies d to raw. The result is untagged; the caller sets Key.
func Decode(d Decoder, p Params, raw []byte) (Value, error) {
	if !d.ValidLength(len(raw)) {
		return Value{}, fmt.Errorf("%v: %d bytes: %w", d, len(raw), ErrDecode)
	}
	switch d {
	case Int:
		return Value{Kind: KindInt, Int: getInt(raw)}, nil
	case Uint:
		return Value{Kind: KindUint, Uint: getUint(raw)}, nil
	case String:
		return Value{Kind: KindString, Str: trim(raw)}, nil
	case Bytes:
		b := make([]byte, len(raw))
		copy(b, raw)
		return Value{Kind: KindBytes, Bytes: b}, nil
	case Bit:
		if p.Bit > 7 {
			return Value{}, fmt.Errorf("bit %d: %w", p.Bit, ErrDecode)
		}
		set := raw[0]&(1<<p.Bit) != 0
		return Value{Kind: KindBool, Bool: set != (p.Polarity == ActiveLow)}, nil
	case Field:
		if p.Width == 0 || p.Bit+p.Width > 8 {
			return Value{}, fmt.Errorf("field %d:%d: %w",
				p.Bit, p.Width, ErrDecode)
		}
		u := uint64(raw[0]>>p.Bit) & (1<<p.Width - 1)
		if len(p.Enum) == 0 {
			return Value{Kind: KindUint, Uint: u}, nil
		}
		v := Value{Kind: KindEnum, Uint: u}
		if u < uint64(len(p.Enum)) {
			v.Str = p.Enum[u]
		} else {
			v.Str = fmt.Sprint(u)
		}
		return v, nil
	case Temperature:
		t := int16(binary.BigEndian.Uint16(raw))
		return Value{
			Kind:  KindFloat,
			Float: float64(t) * TemperatureToCelsius,
			Units: "C",
		}, nil
	case Voltage:
		return scaled(raw, SupplyVoltageToVolts, "V"), nil
	case Current:
		return scaled(raw, TxBiasCurrentToMilliAmps, "mA"), nil
	case Power:
		return scaled(raw, PowerToMilliWatts, "mW"), nil
	case Identifier:
		return Value{
			Kind: KindEnum,
			Uint: uint64(raw[0]),
			Str:  identifierName(raw[0]),
		}, nil
	case Connector:
		return Value{
			Kind: KindEnum,
			Uint: uint64(raw[0]),
			Str:  connectorName(raw[0]),
		}, nil
	}
	return Value{}, fmt.Errorf("%v: %w", d, ErrDecode)
}

// Encode renders v as exactly n bytes for a block write.
func Encode(d Decoder, n int, v interface{}) ([]byte, error) {
	if !d.Writable() {
		return nil, fmt.Errorf("%v: not encodable: %w", d, ErrBadValue)
	}
	if !d.ValidLength(n) {
		return nil, fmt.Errorf("%v: %d bytes: %w", d, n, ErrBadValue)
	}
	b := make([]byte, n)
	switch d {
	case Int:
		i, err := toInt(v)
		if err != nil {
			return nil, err
		}
		bits := uint(n * 8)
		if bits < 64 {
			min, max := -int64(1)<<(bits-1), int64(1)<<(bits-1)-1
			if i < min || i > max {
				return nil, fmt.Errorf("%d: out of range for %d bytes: %w",
					i, n, ErrBadValue)
			}
		}
		putUint(b, uint64(i))
	case Uint:
		u, err := toUint(v)
		if err != nil {
			return nil, err
		}
		if n < 8 && u >= uint64(1)<<uint(n*8) {
			return nil, fmt.Errorf("%d: out of range for %d bytes: %w",
				u, n, ErrBadValue)
		}
		putUint(b, u)
	case String:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("%T: want string: %w", v, ErrBadValue)
		}
		if len(s) > n {
			return nil, fmt.Errorf("%q: longer than %d bytes: %w",
				s, n, ErrBadValue)
		}
		for i := 0; i < len(s); i++ {
			if s[i] >= 0x80 {
				return nil, fmt.Errorf("%q: not ASCII: %w", s, ErrBadValue)
			}
		}
		copy(b, s)
		for i := len(s); i < n; i++ {
			b[i] = ' '
		}
	case Bytes:
		var src []byte
		switch t := v.(type) {
		case []byte:
			src = t
		case string:
			src = []byte(t)
		default:
			return nil, fmt.Errorf("%T: want []byte: %w", v, ErrBadValue)
		}
		if len(src) != n {
			return nil, fmt.Errorf("%d bytes: want %d: %w",
				len(src), n, ErrBadValue)
		}
		copy(b, src)
	}
	return b, nil
}

// Asserted interprets v as the logical state of a bit key. Booleans are
// taken as is; any integer is asserted unless zero.
func Asserted(v interface{}) (bool, error) {
	if b, ok := v.(bool); ok {
		return b, nil
	}
	if u, ok := v.(uint64); ok {
		return u != 0, nil
	}
	i, err := toInt(v)
	return i != 0, err
}

// SetBit returns b with only the given bit changed to represent asserted
// under polarity p.
func SetBit(b byte, bit uint8, p Polarity, asserted bool) byte {
	mask := byte(1) << bit
	if asserted != (p == ActiveLow) {
		return b | mask
	}
	return b &^ mask
}

// Hex formats b as lower case hex, two characters per byte.
func Hex(b []byte) string { return hex.EncodeToString(b) }

func scaled(raw []byte, unit float64, units string) Value {
	return Value{
		Kind:  KindFloat,
		Float: float64(binary.BigEndian.Uint16(raw)) * unit,
		Units: units,
	}
}

func getUint(raw []byte) (u uint64) {
	for _, b := range raw {
		u = u<<8 | uint64(b)
	}
	return
}

func getInt(raw []byte) int64 {
	u := getUint(raw)
	shift := uint(64 - 8*len(raw))
	return int64(u<<shift) >> shift
}

func putUint(b []byte, u uint64) {
	for i := len(b) - 1; i >= 0; i-- {
		b[i] = byte(u)
		u >>= 8
	}
}

func toInt(v interface{}) (int64, error) {
	switch t := v.(type) {
	case int:
		return int64(t), nil
	case int8:
		return int64(t), nil
	case int16:
		return int64(t), nil
	case int32:
		return int64(t), nil
	case int64:
		return t, nil
	case uint:
		if uint64(t) > math.MaxInt64 {
			return 0, fmt.Errorf("%d: out of range: %w", t, ErrBadValue)
		}
		return int64(t), nil
	case uint8:
		return int64(t), nil
	case uint16:
		return int64(t), nil
	case uint32:
		return int64(t), nil
	case bool:
		if t {
			return 1, nil
		}
		return 0, nil
	}
	return 0, fmt.Errorf("%T: want integer: %w", v, ErrBadValue)
}

func toUint(v interface{}) (uint64, error) {
	switch t := v.(type) {
	case uint64:
		return t, nil
	case uint:
		return uint64(t), nil
	}
	i, err := toInt(v)
	if err != nil {
		return 0, err
	}
	if i < 0 {
		return 0, fmt.Errorf("%d: negative: %w", i, ErrBadValue)
	}
	return uint64(i), nil
}

// Strip trailing nulls and padding.
func trim(raw []byte) string {
	if i := strings.IndexByte(string(raw), 0); i >= 0 {
		raw = raw[:i]
	}
	return strings.TrimRight(string(raw), " ")
}
