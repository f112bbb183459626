// Copyright © 2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package mm

import (
	"errors"
	"fmt"

	"github.com/platinasystems/oom/decode"
	"gopkg.in/yaml.v2"
)

var (
	ErrNotFoundKey      = errors.New("key not found")
	ErrNotFoundFunction = errors.New("function not found")
	ErrSchema           = errors.New("invalid schema")
)

// Two wire addresses: A0h for serial id (and all of SFF-8636), A2h for the
// SFF-8472 diagnostics.
const (
	AddressA0 = 0xA0
	AddressA2 = 0xA2
)

// MemorySize is the byte span of one address, lower and upper page.
const MemorySize = 256

type WriteMode uint8

const (
	// WriteBlock encodes the whole value into Length bytes.
	WriteBlock WriteMode = iota
	// WriteBit read-modify-writes one bit of a single byte.
	WriteBit
)

type WriteSpec struct {
	Mode     WriteMode
	Bit      uint8
	Polarity decode.Polarity
}

// KeyDescriptor locates and types one named field of module memory.
type KeyDescriptor struct {
	Name    string
	Address int
	Page    int
	Offset  int
	Length  int
	Decoder decode.Decoder
	decode.Params
	// Write is nil for read only keys.
	Write *WriteSpec
}

func (k *KeyDescriptor) String() string {
	return fmt.Sprintf("%s: %#x page %d offset %d length %d %v",
		k.Name, k.Address, k.Page, k.Offset, k.Length, k.Decoder)
}

type FunctionDescriptor struct {
	Name string
	Keys []string
}

// MemoryMap is the immutable key schema of one module type.
type MemoryMap struct {
	keys   []*KeyDescriptor
	byName map[string]*KeyDescriptor
}

// FunctionMap is the immutable function schema of one module type.
type FunctionMap struct {
	functions []*FunctionDescriptor
	byName    map[string]*FunctionDescriptor
}

func (m *MemoryMap) Lookup(name string) (*KeyDescriptor, error) {
	if m != nil {
		if k, found := m.byName[name]; found {
			return k, nil
		}
	}
	return nil, fmt.Errorf("%s: %w", name, ErrNotFoundKey)
}

// Keys returns the descriptors in declaration order.
func (m *MemoryMap) Keys() []*KeyDescriptor {
	if m == nil {
		return nil
	}
	return m.keys
}

func (m *MemoryMap) Len() int { return len(m.Keys()) }

func (f *FunctionMap) Lookup(name string) (*FunctionDescriptor, error) {
	if f != nil {
		if fd, found := f.byName[name]; found {
			return fd, nil
		}
	}
	return nil, fmt.Errorf("%s: %w", name, ErrNotFoundFunction)
}

// Names returns the function names in declaration order.
func (f *FunctionMap) Names() []string {
	if f == nil {
		return nil
	}
	names := make([]string, len(f.functions))
	for i, fd := range f.functions {
		names[i] = fd.Name
	}
	return names
}

func (f *FunctionMap) Len() int {
	if f == nil {
		return 0
	}
	return len(f.functions)
}

type keyRecord struct {
	Name     string   `yaml:"name"`
	Address  int      `yaml:"address"`
	Page     int      `yaml:"page"`
	Offset   int      `yaml:"offset"`
	Length   int      `yaml:"length"`
	Decoder  string   `yaml:"decoder"`
	Bit      *int     `yaml:"bit,omitempty"`
	Width    int      `yaml:"width,omitempty"`
	Polarity string   `yaml:"polarity,omitempty"`
	Enum     []string `yaml:"enum,omitempty"`
	Writable bool     `yaml:"writable,omitempty"`
}

type functionRecord struct {
	Name string   `yaml:"name"`
	Keys []string `yaml:"keys"`
}

type schemaFile struct {
	Keys      []keyRecord      `yaml:"keys"`
	Functions []functionRecord `yaml:"functions"`
}

// Parse builds the memory and function maps of a YAML schema. Every key and
// function is validated here; nothing is checked again at access time.
func Parse(data []byte) (*MemoryMap, *FunctionMap, error) {
	var sf schemaFile
	if err := yaml.UnmarshalStrict(data, &sf); err != nil {
		return nil, nil, fmt.Errorf("%v: %w", err, ErrSchema)
	}
	m := &MemoryMap{
		keys:   make([]*KeyDescriptor, 0, len(sf.Keys)),
		byName: make(map[string]*KeyDescriptor, len(sf.Keys)),
	}
	for i := range sf.Keys {
		k, err := sf.Keys[i].descriptor()
		if err != nil {
			return nil, nil, fmt.Errorf("key %d: %v: %w", i, err, ErrSchema)
		}
		if _, found := m.byName[k.Name]; found {
			return nil, nil, fmt.Errorf("%s: duplicate key: %w",
				k.Name, ErrSchema)
		}
		m.keys = append(m.keys, k)
		m.byName[k.Name] = k
	}
	f := &FunctionMap{
		functions: make([]*FunctionDescriptor, 0, len(sf.Functions)),
		byName:    make(map[string]*FunctionDescriptor, len(sf.Functions)),
	}
	for _, r := range sf.Functions {
		if len(r.Name) == 0 {
			return nil, nil, fmt.Errorf("unnamed function: %w", ErrSchema)
		}
		if _, found := f.byName[r.Name]; found {
			return nil, nil, fmt.Errorf("%s: duplicate function: %w",
				r.Name, ErrSchema)
		}
		seen := make(map[string]bool, len(r.Keys))
		for _, name := range r.Keys {
			if _, found := m.byName[name]; !found {
				return nil, nil, fmt.Errorf("%s: %s: unknown key: %w",
					r.Name, name, ErrSchema)
			}
			if seen[name] {
				return nil, nil, fmt.Errorf("%s: %s: repeated key: %w",
					r.Name, name, ErrSchema)
			}
			seen[name] = true
		}
		fd := &FunctionDescriptor{
			Name: r.Name,
			Keys: append([]string(nil), r.Keys...),
		}
		f.functions = append(f.functions, fd)
		f.byName[fd.Name] = fd
	}
	return m, f, nil
}

func (r *keyRecord) descriptor() (*KeyDescriptor, error) {
	if len(r.Name) == 0 {
		return nil, errors.New("unnamed")
	}
	if r.Address != AddressA0 && r.Address != AddressA2 {
		return nil, fmt.Errorf("%s: address %#x", r.Name, r.Address)
	}
	if r.Page < 0 || r.Page > 255 {
		return nil, fmt.Errorf("%s: page %d", r.Name, r.Page)
	}
	if r.Offset < 0 || r.Length < 1 || r.Offset+r.Length > MemorySize {
		return nil, fmt.Errorf("%s: offset %d length %d",
			r.Name, r.Offset, r.Length)
	}
	d, found := decode.DecoderByName(r.Decoder)
	if !found {
		return nil, fmt.Errorf("%s: decoder %q", r.Name, r.Decoder)
	}
	if !d.ValidLength(r.Length) {
		return nil, fmt.Errorf("%s: %v decoder with length %d",
			r.Name, d, r.Length)
	}
	k := &KeyDescriptor{
		Name:    r.Name,
		Address: r.Address,
		Page:    r.Page,
		Offset:  r.Offset,
		Length:  r.Length,
		Decoder: d,
	}
	switch r.Polarity {
	case "", "high":
		k.Polarity = decode.ActiveHigh
	case "low":
		k.Polarity = decode.ActiveLow
	default:
		return nil, fmt.Errorf("%s: polarity %q", r.Name, r.Polarity)
	}
	switch d {
	case decode.Bit, decode.Field:
		if r.Bit == nil {
			return nil, fmt.Errorf("%s: %v decoder without bit", r.Name, d)
		}
		width := 1
		if d == decode.Field {
			width = r.Width
		}
		if *r.Bit < 0 || width < 1 || *r.Bit+width > 8 {
			return nil, fmt.Errorf("%s: bit %d width %d",
				r.Name, *r.Bit, width)
		}
		k.Bit = uint8(*r.Bit)
		if d == decode.Field {
			k.Width = uint8(width)
			k.Enum = append([]string(nil), r.Enum...)
		}
	default:
		if r.Bit != nil || r.Width != 0 || len(r.Enum) > 0 {
			return nil, fmt.Errorf("%s: bit attributes on %v decoder",
				r.Name, d)
		}
	}
	if r.Writable {
		switch {
		case d == decode.Bit:
			k.Write = &WriteSpec{
				Mode:     WriteBit,
				Bit:      k.Bit,
				Polarity: k.Polarity,
			}
		case d.Writable():
			k.Write = &WriteSpec{Mode: WriteBlock}
		default:
			return nil, fmt.Errorf("%s: %v decoder is not writable",
				r.Name, d)
		}
	}
	return k, nil
}
