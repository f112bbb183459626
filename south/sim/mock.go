// Copyright © 2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package sim

import (
	"encoding/binary"

	"github.com/platinasystems/oom/mm"
)

// Id is the serial id content of a mock module.
type Id struct {
	Vendor    string
	PartNum   string
	Rev       string
	SerialNum string
	Date      string
}

// Monitors are the real time DOM values of a mock module in wire units.
type Monitors struct {
	Temperature int16
	Vcc         uint16
	TxBias      uint16
	TxPower     uint16
	RxPower     uint16
}

// Typical is a healthy module: 32.5 C, 3.3 V, 6.5 mA and about -3 dBm.
var Typical = Monitors{
	Temperature: 0x2080,
	Vcc:         33000,
	TxBias:      3250,
	TxPower:     5012,
	RxPower:     4467,
}

var finisarOui = []byte{0x00, 0x90, 0x65}

// NewMock returns four slots: an SFP, a QSFP28, another SFP and an empty
// slot. Each populated module has a distinct serial number.
func NewMock() *Sim {
	s := New(4)
	s.Insert(0, NewSfp(Id{
		Vendor:    "FINISAR CORP.",
		PartNum:   "FTLX8571D3BCL",
		Rev:       "A",
		SerialNum: "ALN0QH3",
		Date:      "150508",
	}, Typical))
	s.Insert(1, NewQsfp(mm.Qsfp28, Id{
		Vendor:    "FINISAR CORP.",
		PartNum:   "FTLC9551REPM",
		Rev:       "A0",
		SerialNum: "X7G00AX",
		Date:      "170221",
	}, Typical))
	s.Insert(2, NewSfp(Id{
		Vendor:    "FINISAR CORP.",
		PartNum:   "FTLX8571D3BCL",
		Rev:       "A",
		SerialNum: "AQG0GLB",
		Date:      "160113",
	}, Typical))
	return s
}

// NewSfp returns an SFF-8472 module with diagnostics implemented.
func NewSfp(id Id, dom Monitors) *Module {
	m := NewModule(mm.Sfp)
	a0 := func(offset int, b ...byte) { m.Poke(mm.AddressA0, 0, offset, b) }
	a2 := func(offset int, b ...byte) { m.Poke(mm.AddressA2, 0, offset, b) }

	a0(0, byte(mm.Sfp), 0x04, 0x07)
	a0(3, 0x10, 0, 0, 0, 0, 0, 0, 0)
	a0(11, 0x06, 103)
	a0(16, 8, 3)
	m.Poke(mm.AddressA0, 0, 20, pad(id.Vendor, 16))
	m.Poke(mm.AddressA0, 0, 37, finisarOui)
	m.Poke(mm.AddressA0, 0, 40, pad(id.PartNum, 16))
	m.Poke(mm.AddressA0, 0, 56, pad(id.Rev, 4))
	a0(60, 0x03, 0x52)
	a0(64, 0x00, 0x1a)
	m.Poke(mm.AddressA0, 0, 68, pad(id.SerialNum, 16))
	m.Poke(mm.AddressA0, 0, 84, pad(id.Date, 8))
	a0(92, 0x68, 0xf0, 0x03)
	a0(63, checksum(m.Peek(mm.AddressA0, 0, 0, 63)))
	a0(95, checksum(m.Peek(mm.AddressA0, 0, 64, 31)))

	// alarm and warning thresholds
	for i, v := range []uint16{
		0x5500, 0xf300, 0x5000, 0xf800,
		37000, 29000, 36000, 30000,
		17500, 250, 15000, 500,
		12589, 1000, 10000, 1585,
		15849, 50, 10000, 79,
	} {
		put16(a2, 2*i, v)
	}

	put16(a2, 96, uint16(dom.Temperature))
	put16(a2, 98, dom.Vcc)
	put16(a2, 100, dom.TxBias)
	put16(a2, 102, dom.TxPower)
	put16(a2, 104, dom.RxPower)
	return m
}

// NewQsfp returns an SFF-8636 module of the given QSFP family type.
func NewQsfp(t mm.Type, id Id, dom Monitors) *Module {
	m := NewModule(t)
	m.Paged = true
	a0 := func(offset int, b ...byte) { m.Poke(mm.AddressA0, 0, offset, b) }

	a0(0, byte(t), 0x07, 0x00)
	put16(a0, 22, uint16(dom.Temperature))
	put16(a0, 26, dom.Vcc)
	for lane := 0; lane < 4; lane++ {
		put16(a0, 34+2*lane, dom.RxPower)
		put16(a0, 42+2*lane, dom.TxBias)
		put16(a0, 50+2*lane, dom.TxPower)
	}

	a0(128, byte(t), 0xcc, 0x07)
	a0(131, 0x80, 0, 0, 0, 0, 0, 0, 0)
	a0(139, 0x07, 0xff)
	a0(143, 35)
	m.Poke(mm.AddressA0, 0, 148, pad(id.Vendor, 16))
	m.Poke(mm.AddressA0, 0, 165, finisarOui)
	m.Poke(mm.AddressA0, 0, 168, pad(id.PartNum, 16))
	m.Poke(mm.AddressA0, 0, 184, pad(id.Rev, 2))
	put16(a0, 186, 850*20)
	a0(192, 0x02, 0x07, 0xdc, 0xfa)
	m.Poke(mm.AddressA0, 0, 196, pad(id.SerialNum, 16))
	m.Poke(mm.AddressA0, 0, 212, pad(id.Date, 8))
	a0(220, 0x0c, 0x10, 0x67)
	a0(191, checksum(m.Peek(mm.AddressA0, 0, 128, 63)))
	a0(223, checksum(m.Peek(mm.AddressA0, 0, 192, 31)))

	page3 := func(offset int, b ...byte) { m.Poke(mm.AddressA0, 3, offset, b) }
	for _, x := range []struct {
		offset int
		v      [4]uint16
	}{
		{128, [4]uint16{0x4b00, 0xfb00, 0x4600, 0x0000}},
		{144, [4]uint16{36300, 29700, 34650, 31350}},
		{176, [4]uint16{21878, 490, 17378, 1230}},
		{184, [4]uint16{7500, 1000, 6750, 1500}},
		{192, [4]uint16{21878, 1230, 17378, 2458}},
	} {
		for i, v := range x.v {
			put16(page3, x.offset+2*i, v)
		}
	}
	return m
}

func put16(poke func(int, ...byte), offset int, v uint16) {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	poke(offset, b[:]...)
}

func pad(s string, n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = ' '
	}
	copy(b, s)
	return b
}

func checksum(b []byte) (sum byte) {
	for _, v := range b {
		sum += v
	}
	return
}
