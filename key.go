// Copyright © 2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package oom

import (
	"fmt"
	"strings"

	"github.com/platinasystems/oom/decode"
	"github.com/platinasystems/oom/mm"
	"github.com/platinasystems/oom/south"
)

// KeyValues are decoded keys in function declaration order.
type KeyValues []decode.Value

func (kv KeyValues) Get(key string) (decode.Value, bool) {
	for _, v := range kv {
		if v.Key == key {
			return v, true
		}
	}
	return decode.Value{}, false
}

func (kv KeyValues) Keys() []string {
	keys := make([]string, len(kv))
	for i, v := range kv {
		keys[i] = v.Key
	}
	return keys
}

func (kv KeyValues) String() string {
	var b strings.Builder
	for _, v := range kv {
		fmt.Fprint(&b, v.Key, ": ", v, "\n")
	}
	return b.String()
}

// GetKeyValue reads and decodes one key. A module type without a memory
// map returns an untyped value and no error.
func (o *Oom) GetKeyValue(p south.Port, key string) (decode.Value, error) {
	m, _ := mm.Resolve(p.Type)
	if m.Len() == 0 {
		return decode.Value{Key: key}, nil
	}
	k, err := m.Lookup(key)
	if err != nil {
		return decode.Value{}, err
	}
	defer o.lock(p)()
	return o.decodeKey(p, k)
}

// GetMemory decodes every key of a function in declared order. The port
// stays locked for the whole function so the values are one snapshot.
func (o *Oom) GetMemory(p south.Port, function string) (KeyValues, error) {
	m, f := mm.Resolve(p.Type)
	if f.Len() == 0 {
		return KeyValues{}, nil
	}
	fd, err := f.Lookup(function)
	if err != nil {
		return nil, err
	}
	kv := make(KeyValues, 0, len(fd.Keys))
	defer o.lock(p)()
	for _, name := range fd.Keys {
		k, err := m.Lookup(name)
		if err != nil {
			return nil, err
		}
		v, err := o.decodeKey(p, k)
		if err != nil {
			return nil, err
		}
		kv = append(kv, v)
	}
	return kv, nil
}

// GetAll decodes every key of the port's memory map.
func (o *Oom) GetAll(p south.Port) (KeyValues, error) {
	m, _ := mm.Resolve(p.Type)
	kv := make(KeyValues, 0, m.Len())
	defer o.lock(p)()
	for _, k := range m.Keys() {
		v, err := o.decodeKey(p, k)
		if err != nil {
			return nil, err
		}
		kv = append(kv, v)
	}
	return kv, nil
}

// The caller holds the port lock.
func (o *Oom) decodeKey(p south.Port, k *mm.KeyDescriptor) (decode.Value,
	error) {
	raw, err := o.south.ReadRaw(p, k.Address, k.Page, k.Offset, k.Length)
	if err != nil {
		return decode.Value{}, ioError("read", p, k.Name, err)
	}
	if len(raw) != k.Length {
		return decode.Value{}, fmt.Errorf("%s: read %d bytes, want %d: %w",
			k.Name, len(raw), k.Length, ErrDecode)
	}
	v, err := decode.Decode(k.Decoder, k.Params, raw)
	if err != nil {
		return decode.Value{}, fmt.Errorf("%s: %w", k.Name, err)
	}
	v.Key = k.Name
	return v, nil
}
