// Copyright © 2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

// Package sim is an in memory southbound with hot swappable modules.
//
// Each module has a lower 128 bytes per address and any number of 128 byte
// upper pages. Every access is recorded so that callers can check exactly
// what reached the bus.
package sim

import (
	"fmt"
	"sync"
	"time"

	"github.com/platinasystems/oom/mm"
	"github.com/platinasystems/oom/south"
)

const pageSize = 128

type Op uint8

const (
	Read Op = iota
	Write
)

func (op Op) String() string {
	if op == Write {
		return "write"
	}
	return "read"
}

// Access is one ReadRaw or WriteRaw that reached a module.
type Access struct {
	Op      Op
	Port    int
	Address int
	Page    int
	Offset  int
	Length  int
}

func (a Access) String() string {
	return fmt.Sprintf("%v port %d %#x page %d offset %d length %d",
		a.Op, a.Port, a.Address, a.Page, a.Offset, a.Length)
}

type slot struct {
	seq int32
	m   *Module
}

// Sim implements south.South.
type Sim struct {
	mu       sync.Mutex
	slots    []slot
	accesses []Access
	fault    error
	truncate bool

	// Delay is slept with no lock held before each access completes.
	Delay time.Duration
}

var _ south.South = (*Sim)(nil)

// New returns n empty slots.
func New(n int) *Sim {
	return &Sim{slots: make([]slot, n)}
}

// Insert places m in slot n, replacing any module there.
func (s *Sim) Insert(n int, m *Module) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n < 0 || n >= len(s.slots) {
		return fmt.Errorf("%d: %w", n, south.ErrNoPort)
	}
	s.slots[n].m = m
	s.slots[n].seq++
	return nil
}

// Remove empties slot n.
func (s *Sim) Remove(n int) error {
	return s.Insert(n, nil)
}

// Module returns the module in slot n for direct inspection.
func (s *Sim) Module(n int) *Module {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n < 0 || n >= len(s.slots) {
		return nil
	}
	return s.slots[n].m
}

// Fail makes every following access return err; nil restores service.
func (s *Sim) Fail(err error) {
	s.mu.Lock()
	s.fault = err
	s.mu.Unlock()
}

// Truncate makes every following access transfer one byte less than asked
// without reporting an error.
func (s *Sim) Truncate(t bool) {
	s.mu.Lock()
	s.truncate = t
	s.mu.Unlock()
}

// Accesses returns the log of accesses since the last Reset.
func (s *Sim) Accesses() []Access {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Access(nil), s.accesses...)
}

func (s *Sim) Reset() {
	s.mu.Lock()
	s.accesses = s.accesses[:0]
	s.mu.Unlock()
}

func (s *Sim) MaxPorts() int { return len(s.slots) }

func (s *Sim) GetPort(n int) (south.Port, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n < 0 || n >= len(s.slots) {
		return south.Port{}, fmt.Errorf("%d: %w", n, south.ErrNoPort)
	}
	return s.port(n), nil
}

func (s *Sim) GetPortList() ([]south.Port, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ports := make([]south.Port, len(s.slots))
	for n := range s.slots {
		ports[n] = s.port(n)
	}
	return ports, nil
}

func (s *Sim) port(n int) south.Port {
	sl := &s.slots[n]
	p := south.Port{Num: int32(n), Type: mm.NotPresent, Seq: sl.seq}
	if sl.m != nil {
		p.Type = sl.m.Type
		p.Flags = south.FlagPresent
		if sl.m.Paged {
			p.Flags |= south.FlagPaged
		}
	}
	return p
}

func (s *Sim) ReadRaw(p south.Port, address, page, offset, length int) ([]byte,
	error) {
	if err := south.CheckSpan(address, page, offset, length); err != nil {
		return nil, err
	}
	s.sleep()
	s.mu.Lock()
	defer s.mu.Unlock()
	m, err := s.module(p)
	if err != nil {
		return nil, err
	}
	s.accesses = append(s.accesses, Access{Read, int(p.Num), address, page,
		offset, length})
	if s.truncate {
		length--
	}
	return m.Peek(address, page, offset, length), nil
}

func (s *Sim) WriteRaw(p south.Port, address, page, offset int,
	data []byte) (int, error) {
	if err := south.CheckSpan(address, page, offset, len(data)); err != nil {
		return 0, err
	}
	s.sleep()
	s.mu.Lock()
	defer s.mu.Unlock()
	m, err := s.module(p)
	if err != nil {
		return 0, err
	}
	s.accesses = append(s.accesses, Access{Write, int(p.Num), address, page,
		offset, len(data)})
	if s.truncate {
		data = data[:len(data)-1]
	}
	m.Poke(address, page, offset, data)
	return len(data), nil
}

func (s *Sim) module(p south.Port) (*Module, error) {
	n := int(p.Num)
	if n < 0 || n >= len(s.slots) {
		return nil, fmt.Errorf("%d: %w", n, south.ErrNoPort)
	}
	if s.fault != nil {
		return nil, s.fault
	}
	sl := &s.slots[n]
	if p.Seq != sl.seq {
		return nil, fmt.Errorf("port %d seq %d, now %d: %w",
			n, p.Seq, sl.seq, south.ErrStale)
	}
	if sl.m == nil {
		return nil, fmt.Errorf("port %d: %w", n, south.ErrNotPresent)
	}
	return sl.m, nil
}

func (s *Sim) sleep() {
	if s.Delay > 0 {
		time.Sleep(s.Delay)
	}
}

// Module is the memory of one simulated transceiver.
type Module struct {
	Type  mm.Type
	Paged bool
	lower map[int]*[pageSize]byte
	upper map[[2]int]*[pageSize]byte
}

// NewModule returns a blank module of type t.
func NewModule(t mm.Type) *Module {
	return &Module{
		Type:  t,
		lower: make(map[int]*[pageSize]byte),
		upper: make(map[[2]int]*[pageSize]byte),
	}
}

func (m *Module) block(address, page, offset int) (*[pageSize]byte, int) {
	if offset < pageSize {
		b, found := m.lower[address]
		if !found {
			b = new([pageSize]byte)
			m.lower[address] = b
		}
		return b, offset
	}
	k := [2]int{address, page}
	b, found := m.upper[k]
	if !found {
		b = new([pageSize]byte)
		m.upper[k] = b
	}
	return b, offset - pageSize
}

// Peek copies length bytes starting at offset.
func (m *Module) Peek(address, page, offset, length int) []byte {
	data := make([]byte, length)
	for i := range data {
		b, o := m.block(address, page, offset+i)
		data[i] = b[o]
	}
	return data
}

// Poke stores data starting at offset.
func (m *Module) Poke(address, page, offset int, data []byte) {
	for i, v := range data {
		b, o := m.block(address, page, offset+i)
		b[o] = v
	}
}
