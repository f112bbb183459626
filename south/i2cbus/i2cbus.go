// Copyright © 2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

// Package i2cbus is a southbound for modules on SMBus behind optional
// muxes.
package i2cbus

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/platinasystems/i2c"
	"github.com/platinasystems/log"
	"github.com/platinasystems/oom/mm"
	"github.com/platinasystems/oom/south"
	"gopkg.in/yaml.v2"
)

const (
	// PageSelect is the upper page register at byte 127.
	PageSelect = 127
	// BlockMax is the largest block read; data[0] of the transfer buffer
	// holds the length.
	BlockMax   = i2c.BlockMax - 1

	DefaultWriteDelay = 10 * time.Millisecond
)

// Dev is the wiring of one module slot.
type Dev struct {
	Bus int `yaml:"bus"`

	// MuxAddr of zero means no mux.
	MuxBus   int `yaml:"mux_bus"`
	MuxAddr  int `yaml:"mux_addr"`
	MuxValue int `yaml:"mux_value"`
}

type Config struct {
	Ports []Dev `yaml:"ports"`

	// WriteDelayMs is slept after each byte written.
	WriteDelayMs int `yaml:"write_delay_ms"`
}

func ParseConfig(b []byte) (*Config, error) {
	cfg := &Config{WriteDelayMs: int(DefaultWriteDelay / time.Millisecond)}
	if err := yaml.UnmarshalStrict(b, cfg); err != nil {
		return nil, fmt.Errorf("i2cbus config: %w", err)
	}
	if len(cfg.Ports) == 0 {
		return nil, fmt.Errorf("i2cbus config: no ports")
	}
	for i, dev := range cfg.Ports {
		if dev.Bus < 0 || dev.MuxAddr < 0 || dev.MuxAddr > 0x7f ||
			dev.MuxValue < 0 || dev.MuxValue > 0xff {
			return nil, fmt.Errorf("i2cbus config: port %d: %+v", i, dev)
		}
	}
	return cfg, nil
}

func LoadConfig(fn string) (*Config, error) {
	b, err := os.ReadFile(fn)
	if err != nil {
		return nil, err
	}
	return ParseConfig(b)
}

// DoFunc performs one SMBus transaction with a slave.
type DoFunc func(bus, addr int, rw i2c.RW, cmd uint8, size i2c.SMBusSize,
	data *i2c.SMBusData) error

// SMBus opens the bus for a single transaction.
func SMBus(bus, addr int, rw i2c.RW, cmd uint8, size i2c.SMBusSize,
	data *i2c.SMBusData) error {
	var b i2c.Bus
	if err := b.Open(bus); err != nil {
		return err
	}
	defer b.Close()
	if err := b.ForceSlaveAddress(addr); err != nil {
		return err
	}
	return b.Do(rw, cmd, size, data)
}

type slot struct {
	seq  int32
	typ  mm.Type
	page map[int]int
}

// South implements south.South over SMBus.
type South struct {
	devs  []Dev
	delay time.Duration
	do    DoFunc

	mu    sync.Mutex
	buses map[int]*sync.Mutex
	slots []slot
}

var _ south.South = (*South)(nil)

// New returns a southbound for cfg using do for transactions, SMBus if nil.
func New(cfg *Config, do DoFunc) *South {
	if do == nil {
		do = SMBus
	}
	s := &South{
		devs:  cfg.Ports,
		delay: time.Duration(cfg.WriteDelayMs) * time.Millisecond,
		do:    do,
		buses: make(map[int]*sync.Mutex),
		slots: make([]slot, len(cfg.Ports)),
	}
	for i := range s.slots {
		s.slots[i].typ = mm.NotPresent
	}
	return s
}

func (s *South) MaxPorts() int { return len(s.devs) }

// bus locks the dev's bus and its mux.
func (s *South) bus(dev Dev) func() {
	s.mu.Lock()
	l, found := s.buses[dev.Bus]
	if !found {
		l = new(sync.Mutex)
		s.buses[dev.Bus] = l
	}
	s.mu.Unlock()
	l.Lock()
	return l.Unlock
}

// GetPort identifies the module in slot n. A slave that doesn't respond is
// an empty slot. The sequence number changes with the identifier.
func (s *South) GetPort(n int) (south.Port, error) {
	if n < 0 || n >= len(s.devs) {
		return south.Port{}, fmt.Errorf("%d: %w", n, south.ErrNoPort)
	}
	dev := s.devs[n]
	t := mm.NotPresent
	unlock := s.bus(dev)
	b, err := s.readBlock(dev, mm.AddressA0, 0, 1)
	unlock()
	if err == nil {
		t = mm.Identifier(b[0])
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sl := &s.slots[n]
	if t != sl.typ {
		if t == mm.NotPresent {
			log.Print("module removed from port ", n)
		} else {
			log.Print(t, " detected in port ", n)
		}
		sl.typ = t
		sl.seq++
		sl.page = nil
	}
	p := south.Port{Num: int32(n), Type: t, Seq: sl.seq}
	if t != mm.NotPresent {
		p.Flags = south.FlagPresent
		if paged(t) {
			p.Flags |= south.FlagPaged
		}
	}
	return p, nil
}

func (s *South) GetPortList() ([]south.Port, error) {
	ports := make([]south.Port, len(s.devs))
	for n := range s.devs {
		p, err := s.GetPort(n)
		if err != nil {
			return nil, err
		}
		ports[n] = p
	}
	return ports, nil
}

func (s *South) ReadRaw(p south.Port, address, page, offset,
	length int) ([]byte, error) {
	if err := south.CheckSpan(address, page, offset, length); err != nil {
		return nil, err
	}
	dev, err := s.check(p)
	if err != nil {
		return nil, err
	}
	defer s.bus(dev)()
	if offset+length > 128 {
		if err = s.selectPage(p, dev, address, page); err != nil {
			return nil, err
		}
	}
	data := make([]byte, 0, length)
	for _, c := range Chunks(offset, length) {
		b, err := s.readBlock(dev, address, c.Offset, c.Length)
		if err != nil {
			return nil, err
		}
		data = append(data, b...)
	}
	return data, nil
}

func (s *South) WriteRaw(p south.Port, address, page, offset int,
	data []byte) (int, error) {
	if err := south.CheckSpan(address, page, offset, len(data)); err != nil {
		return 0, err
	}
	dev, err := s.check(p)
	if err != nil {
		return 0, err
	}
	defer s.bus(dev)()
	if offset+len(data) > 128 {
		if err = s.selectPage(p, dev, address, page); err != nil {
			return 0, err
		}
	}
	for i, v := range data {
		if err = s.writeByte(dev, address, offset+i, v); err != nil {
			return i, err
		}
	}
	return len(data), nil
}

func (s *South) check(p south.Port) (Dev, error) {
	n := int(p.Num)
	if n < 0 || n >= len(s.devs) {
		return Dev{}, fmt.Errorf("%d: %w", n, south.ErrNoPort)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sl := &s.slots[n]
	if p.Seq != sl.seq {
		return Dev{}, fmt.Errorf("port %d seq %d, now %d: %w",
			n, p.Seq, sl.seq, south.ErrStale)
	}
	if sl.typ == mm.NotPresent {
		return Dev{}, fmt.Errorf("port %d: %w", n, south.ErrNotPresent)
	}
	return s.devs[n], nil
}

// The caller holds the bus.
func (s *South) selectPage(p south.Port, dev Dev, address, page int) error {
	if p.Flags&south.FlagPaged == 0 && address != mm.AddressA2 {
		return nil
	}
	n := int(p.Num)
	s.mu.Lock()
	current, found := s.slots[n].page[address]
	s.mu.Unlock()
	if found && current == page {
		return nil
	}
	if err := s.writeByte(dev, address, PageSelect, byte(page)); err != nil {
		return err
	}
	s.mu.Lock()
	if s.slots[n].page == nil {
		s.slots[n].page = make(map[int]int)
	}
	s.slots[n].page[address] = page
	s.mu.Unlock()
	return nil
}

// setMux writes the mux channel register; zero deselects every channel.
func (s *South) setMux(dev Dev, v int) error {
	if dev.MuxAddr == 0 {
		return nil
	}
	var data i2c.SMBusData
	data[0] = byte(v)
	return s.do(dev.MuxBus, dev.MuxAddr, i2c.Write, 0, i2c.ByteData, &data)
}

// muxed runs f with the dev's mux channel open, closing it after.
func (s *South) muxed(dev Dev, f func() error) error {
	if err := s.setMux(dev, dev.MuxValue); err != nil {
		return err
	}
	err := f()
	if cerr := s.setMux(dev, 0); cerr != nil {
		log.Print("daemon", "err", "mux ", dev.MuxAddr, " close: ", cerr)
		if err == nil {
			err = cerr
		}
	}
	return err
}

func (s *South) readBlock(dev Dev, address, offset, n int) ([]byte, error) {
	var data i2c.SMBusData
	data[0] = byte(n)
	err := s.muxed(dev, func() error {
		return s.do(dev.Bus, address>>1, i2c.Read, uint8(offset),
			i2c.I2CBlockData, &data)
	})
	if err != nil {
		return nil, err
	}
	if got := int(data[0]); got < n {
		return nil, fmt.Errorf("block %d at %d: %d bytes: %w",
			n, offset, got, south.ErrShort)
	}
	b := make([]byte, n)
	copy(b, data[1:1+n])
	return b, nil
}

func (s *South) writeByte(dev Dev, address, offset int, v byte) error {
	var data i2c.SMBusData
	data[0] = v
	err := s.muxed(dev, func() error {
		return s.do(dev.Bus, address>>1, i2c.Write, uint8(offset),
			i2c.ByteData, &data)
	})
	if err == nil && s.delay > 0 {
		time.Sleep(s.delay)
	}
	return err
}

// Chunk is one block transfer.
type Chunk struct {
	Offset int
	Length int
}

// Chunks splits a transfer into SMBus block sized pieces.
func Chunks(offset, length int) []Chunk {
	var chunks []Chunk
	for length > 0 {
		n := length
		if n > BlockMax {
			n = BlockMax
		}
		chunks = append(chunks, Chunk{offset, n})
		offset += n
		length -= n
	}
	return chunks
}

func paged(t mm.Type) bool {
	switch t {
	case mm.Qsfp, mm.QsfpPlus, mm.Qsfp28, mm.MicroQsfp:
		return true
	}
	return false
}
