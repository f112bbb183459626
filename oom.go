// Copyright © 2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

// Package oom provides symbolic, typed access to the memory of pluggable
// optical modules.
//
// A module's type selects a memory map naming every field (key) and a
// function map grouping keys. Reads decode the raw bytes of a key;
// writes encode a whole key or read-modify-write one bit of a shared byte.
// All raw transfers for a port are serialized by a per-port lock.
package oom

import (
	"fmt"
	"sync"

	"github.com/platinasystems/oom/mm"
	"github.com/platinasystems/oom/south"
)

type Oom struct {
	south south.South

	mu    sync.Mutex
	locks map[int32]*sync.Mutex
}

func New(s south.South) *Oom {
	return &Oom{
		south: s,
		locks: make(map[int32]*sync.Mutex),
	}
}

func (o *Oom) South() south.South { return o.south }

// lock acquires the port's lock and returns its release.
func (o *Oom) lock(p south.Port) func() {
	o.mu.Lock()
	l, found := o.locks[p.Num]
	if !found {
		l = new(sync.Mutex)
		o.locks[p.Num] = l
	}
	o.mu.Unlock()
	l.Lock()
	return l.Unlock
}

func (o *Oom) MaxPorts() int { return o.south.MaxPorts() }

// GetPort returns a fresh handle for slot n.
func (o *Oom) GetPort(n int) (south.Port, error) {
	p, err := o.south.GetPort(n)
	if err != nil {
		return p, ioError("getport", south.Port{Num: int32(n)}, "", err)
	}
	return p, nil
}

// GetPortList returns a handle for every slot in port number order.
func (o *Oom) GetPortList() ([]south.Port, error) {
	ports, err := o.south.GetPortList()
	if err != nil {
		return nil, ioError("getportlist", south.Port{Num: -1}, "", err)
	}
	return ports, nil
}

// Keys lists the key names of the port's module type in declaration order.
func (o *Oom) Keys(p south.Port) []string {
	m, _ := mm.Resolve(p.Type)
	keys := make([]string, 0, m.Len())
	for _, k := range m.Keys() {
		keys = append(keys, k.Name)
	}
	return keys
}

// Functions lists the function names of the port's module type.
func (o *Oom) Functions(p south.Port) []string {
	_, f := mm.Resolve(p.Type)
	return f.Names()
}

// Describe returns the descriptor of a key for the port's module type.
func (o *Oom) Describe(p south.Port, key string) (*mm.KeyDescriptor, error) {
	m, _ := mm.Resolve(p.Type)
	if m.Len() == 0 {
		return nil, fmt.Errorf("%v: %w", p.Type, ErrUnsupportedType)
	}
	return m.Lookup(key)
}

// GetMemoryRaw reads length bytes with no interpretation.
func (o *Oom) GetMemoryRaw(p south.Port, address, page, offset,
	length int) ([]byte, error) {
	if err := south.CheckSpan(address, page, offset, length); err != nil {
		return nil, fmt.Errorf("%v: %w", err, ErrBadValue)
	}
	defer o.lock(p)()
	b, err := o.south.ReadRaw(p, address, page, offset, length)
	if err != nil {
		return nil, ioError("read", p, "", err)
	}
	if len(b) != length {
		return nil, ioError("read", p, "", fmt.Errorf("%d of %d bytes: %w",
			len(b), length, south.ErrShort))
	}
	return b, nil
}

// SetMemoryRaw writes data with no interpretation.
func (o *Oom) SetMemoryRaw(p south.Port, address, page, offset int,
	data []byte) (int, error) {
	if err := south.CheckSpan(address, page, offset, len(data)); err != nil {
		return 0, fmt.Errorf("%v: %w", err, ErrBadValue)
	}
	defer o.lock(p)()
	return o.write(p, "", address, page, offset, data)
}

func (o *Oom) write(p south.Port, key string, address, page, offset int,
	data []byte) (int, error) {
	n, err := o.south.WriteRaw(p, address, page, offset, data)
	if err != nil {
		return n, ioError("write", p, key, err)
	}
	if n != len(data) {
		return n, ioError("write", p, key, fmt.Errorf("%d of %d bytes: %w",
			n, len(data), south.ErrShort))
	}
	return n, nil
}
