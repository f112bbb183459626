// Copyright © 2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package oom

import (
	"fmt"

	"github.com/platinasystems/oom/decode"
	"github.com/platinasystems/oom/mm"
	"github.com/platinasystems/oom/south"
)

// SetKeyValue writes one key and returns the number of bytes written.
//
// Block keys take a value for their decoder: an integer for int and uint
// keys, a string for string keys, a []byte or string of exact length for
// bytes keys. Bit keys take a bool or an integer, non-zero meaning
// asserted, and change only their own bit.
func (o *Oom) SetKeyValue(p south.Port, key string, value interface{}) (int,
	error) {
	k, err := o.writable(p, key)
	if err != nil {
		return 0, err
	}
	switch k.Write.Mode {
	case mm.WriteBit:
		asserted, err := decode.Asserted(value)
		if err != nil {
			return 0, fmt.Errorf("%s: %w", k.Name, err)
		}
		return o.setBit(p, k, asserted)
	default:
		b, err := decode.Encode(k.Decoder, k.Length, value)
		if err != nil {
			return 0, fmt.Errorf("%s: %w", k.Name, err)
		}
		defer o.lock(p)()
		return o.write(p, k.Name, k.Address, k.Page, k.Offset, b)
	}
}

// SetKeyString parses s for the key's decoder then writes it.
func (o *Oom) SetKeyString(p south.Port, key, s string) (int, error) {
	k, err := o.writable(p, key)
	if err != nil {
		return 0, err
	}
	v, err := decode.Parse(k.Decoder, s)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", k.Name, err)
	}
	return o.SetKeyValue(p, key, v)
}

func (o *Oom) writable(p south.Port, key string) (*mm.KeyDescriptor, error) {
	k, err := o.Describe(p, key)
	if err != nil {
		return nil, err
	}
	if k.Write == nil {
		return nil, fmt.Errorf("%s: %w", k.Name, ErrWriteUnsupported)
	}
	return k, nil
}

// The read, modify and write are one critical section.
func (o *Oom) setBit(p south.Port, k *mm.KeyDescriptor, asserted bool) (int,
	error) {
	defer o.lock(p)()
	raw, err := o.south.ReadRaw(p, k.Address, k.Page, k.Offset, 1)
	if err != nil {
		return 0, ioError("read", p, k.Name, err)
	}
	if len(raw) != 1 {
		return 0, fmt.Errorf("%s: read %d bytes, want 1: %w",
			k.Name, len(raw), ErrDecode)
	}
	b := decode.SetBit(raw[0], k.Write.Bit, k.Write.Polarity, asserted)
	return o.write(p, k.Name, k.Address, k.Page, k.Offset, []byte{b})
}
