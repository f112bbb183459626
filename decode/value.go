// Copyright © 2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package decode

import (
	"bytes"
	"fmt"
	"strconv"
)

type Kind uint8

const (
	KindNone Kind = iota
	KindInt
	KindUint
	KindFloat
	KindString
	KindBytes
	KindBool
	KindEnum
)

func (k Kind) String() string {
	return [...]string{
		KindNone:   "none",
		KindInt:    "int",
		KindUint:   "uint",
		KindFloat:  "float",
		KindString: "string",
		KindBytes:  "bytes",
		KindBool:   "bool",
		KindEnum:   "enum",
	}[k]
}

// Value is one decoded key. Only the field selected by Kind is meaningful,
// except Enum which carries both the raw code in Uint and its name in Str.
type Value struct {
	Key   string
	Kind  Kind
	Int   int64
	Uint  uint64
	Float float64
	Str   string
	Bytes []byte
	Bool  bool
	Units string
}

// IsNone is true for the empty result of probing an unsupported module.
func (v Value) IsNone() bool { return v.Kind == KindNone }

// Interface returns the natural Go value: int64, uint64, float64, string,
// []byte, bool, or nil for KindNone. Enums return their name.
func (v Value) Interface() interface{} {
	switch v.Kind {
	case KindInt:
		return v.Int
	case KindUint:
		return v.Uint
	case KindFloat:
		return v.Float
	case KindString, KindEnum:
		return v.Str
	case KindBytes:
		return v.Bytes
	case KindBool:
		return v.Bool
	}
	return nil
}

func (v Value) String() string {
	switch v.Kind {
	case KindInt:
		return strconv.FormatInt(v.Int, 10)
	case KindUint:
		return strconv.FormatUint(v.Uint, 10)
	case KindFloat:
		prec := 3
		if v.Units == "C" {
			prec = 1
		}
		return strconv.FormatFloat(v.Float, 'f', prec, 64) + " " + v.Units
	case KindString:
		return v.Str
	case KindBytes:
		return Hex(v.Bytes)
	case KindBool:
		return strconv.FormatBool(v.Bool)
	case KindEnum:
		return fmt.Sprintf("%s (0x%02x)", v.Str, v.Uint)
	}
	return ""
}

// Equal compares kind and payload; the key tag is ignored.
func (v Value) Equal(w Value) bool {
	return v.Kind == w.Kind &&
		v.Int == w.Int &&
		v.Uint == w.Uint &&
		v.Float == w.Float &&
		v.Str == w.Str &&
		bytes.Equal(v.Bytes, w.Bytes) &&
		v.Bool == w.Bool &&
		v.Units == w.Units
}
