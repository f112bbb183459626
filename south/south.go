// Copyright © 2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

// Package south defines the contract between the memory map engine and a
// transport that moves raw bytes to and from modules.
package south

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/platinasystems/oom/mm"
)

var (
	// ErrStale is returned for a handle whose sequence number no longer
	// matches the module in the slot.
	ErrStale = errors.New("stale port handle")

	ErrNoPort     = errors.New("no such port")
	ErrNotPresent = errors.New("module not present")

	// ErrShort is returned with the bytes that were transferred.
	ErrShort = errors.New("short transfer")
)

// PortRecordSize is the fixed wire size of a Port.
const PortRecordSize = 16

// Port flags.
const (
	// FlagPresent is set while a module is in the slot.
	FlagPresent uint32 = 1 << iota
	// FlagPaged is set for modules with an upper page select at byte 127.
	FlagPaged
)

// Port is an immutable handle for a module slot. Num is stable for the
// life of the slot; Seq changes whenever the module changes.
type Port struct {
	Num   int32
	Type  mm.Type
	Seq   int32
	Flags uint32
}

func (p Port) String() string {
	return fmt.Sprintf("port %d: %v seq %d flags %#x",
		p.Num, p.Type, p.Seq, p.Flags)
}

// MarshalBinary renders four 32 bit little endian words: num, type, seq,
// flags.
func (p Port) MarshalBinary() ([]byte, error) {
	b := make([]byte, PortRecordSize)
	binary.LittleEndian.PutUint32(b[0:], uint32(p.Num))
	binary.LittleEndian.PutUint32(b[4:], uint32(p.Type))
	binary.LittleEndian.PutUint32(b[8:], uint32(p.Seq))
	binary.LittleEndian.PutUint32(b[12:], p.Flags)
	return b, nil
}

func (p *Port) UnmarshalBinary(b []byte) error {
	if len(b) != PortRecordSize {
		return fmt.Errorf("port record: %d bytes, want %d",
			len(b), PortRecordSize)
	}
	p.Num = int32(binary.LittleEndian.Uint32(b[0:]))
	p.Type = mm.Type(int32(binary.LittleEndian.Uint32(b[4:])))
	p.Seq = int32(binary.LittleEndian.Uint32(b[8:]))
	p.Flags = binary.LittleEndian.Uint32(b[12:])
	return nil
}

// South moves raw module memory. Offsets are within the 256 byte span of an
// address; offsets 128 and above are in the given page. Implementations
// serialize their own bus but leave multi-operation sequences to the caller.
type South interface {
	MaxPorts() int
	GetPort(n int) (Port, error)
	GetPortList() ([]Port, error)
	// ReadRaw returns exactly length bytes or an error.
	ReadRaw(p Port, address, page, offset, length int) ([]byte, error)
	// WriteRaw returns the number of bytes written.
	WriteRaw(p Port, address, page, offset int, data []byte) (int, error)
}

// CheckSpan validates a raw access against the address space of a module.
func CheckSpan(address, page, offset, length int) error {
	switch {
	case address != mm.AddressA0 && address != mm.AddressA2:
		return fmt.Errorf("address %#x: invalid", address)
	case page < 0 || page > 255:
		return fmt.Errorf("page %d: invalid", page)
	case offset < 0 || length < 1 || offset+length > mm.MemorySize:
		return fmt.Errorf("offset %d length %d: out of range",
			offset, length)
	}
	return nil
}
