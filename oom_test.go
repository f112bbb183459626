// Copyright © 2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package oom

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/platinasystems/oom/decode"
	"github.com/platinasystems/oom/mm"
	"github.com/platinasystems/oom/south"
	"github.com/platinasystems/oom/south/sim"
)

func mock(t *testing.T) (*Oom, *sim.Sim) {
	s := sim.NewMock()
	return New(s), s
}

func port(t *testing.T, o *Oom, n int) south.Port {
	p, err := o.GetPort(n)
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func TestOneReadPerKey(t *testing.T) {
	o, s := mock(t)
	for _, n := range []int{0, 1} {
		p := port(t, o, n)
		m, _ := mm.Resolve(p.Type)
		for _, k := range m.Keys() {
			s.Reset()
			if _, err := o.GetKeyValue(p, k.Name); err != nil {
				t.Fatal(p.Type, k.Name, err)
			}
			a := s.Accesses()
			if len(a) != 1 {
				t.Fatalf("%v %s: %d accesses", p.Type, k.Name, len(a))
			}
			want := sim.Access{
				Op:      sim.Read,
				Port:    n,
				Address: k.Address,
				Page:    k.Page,
				Offset:  k.Offset,
				Length:  k.Length,
			}
			if a[0] != want {
				t.Fatalf("%v %s: %v", p.Type, k.Name, a[0])
			}
		}
	}
}

func TestFunctionOrder(t *testing.T) {
	o, _ := mock(t)
	for _, n := range []int{0, 1} {
		p := port(t, o, n)
		_, f := mm.Resolve(p.Type)
		for _, name := range o.Functions(p) {
			fd, _ := f.Lookup(name)
			kv, err := o.GetMemory(p, name)
			if err != nil {
				t.Fatal(name, err)
			}
			if s, w := fmt.Sprint(kv.Keys()), fmt.Sprint(fd.Keys); s != w {
				t.Fatalf("%s: %s != %s", name, s, w)
			}
			for _, v := range kv {
				w, err := o.GetKeyValue(p, v.Key)
				if err != nil {
					t.Fatal(err)
				}
				if !v.Equal(w) {
					t.Errorf("%s %s: %v != %v", name, v.Key, v, w)
				}
			}
		}
	}
}

func TestTxDisableRoundTrip(t *testing.T) {
	o, s := mock(t)
	for _, x := range []struct {
		port   int
		key    string
		addr   int
		offset int
		bit    uint
	}{
		{0, "SOFT_TX_DISABLE_SELECT", mm.AddressA2, 110, 6},
		{1, "TX3_DISABLE", mm.AddressA0, 86, 2},
	} {
		s.Module(x.port).Poke(x.addr, 0, x.offset, []byte{0xa5})
		p := port(t, o, x.port)
		byteAt := func() byte {
			return s.Module(x.port).Peek(x.addr, 0, x.offset, 1)[0]
		}
		for _, set := range []int{1, 0, 1, 0} {
			before := byteAt()
			if _, err := o.SetKeyValue(p, x.key, set); err != nil {
				t.Fatal(x.key, err)
			}
			after := byteAt()
			if (before^after)&^(1<<x.bit) != 0 {
				t.Fatalf("%s: %#x -> %#x", x.key, before, after)
			}
			v, err := o.GetKeyValue(p, x.key)
			if err != nil {
				t.Fatal(err)
			}
			if v.Kind != decode.KindBool || v.Bool != (set == 1) {
				t.Fatalf("%s set %d: read %v", x.key, set, v)
			}
		}
		if byteAt() != 0xa5&^(1<<x.bit) {
			t.Fatalf("%s: siblings %#x", x.key, byteAt())
		}
	}
}

func TestBitWriteIsOneReadOneWrite(t *testing.T) {
	o, s := mock(t)
	p := port(t, o, 0)
	s.Reset()
	if n, err := o.SetKeyValue(p, "SOFT_TX_DISABLE_SELECT", true); err != nil ||
		n != 1 {
		t.Fatal(n, err)
	}
	a := s.Accesses()
	if len(a) != 2 || a[0].Op != sim.Read || a[1].Op != sim.Write ||
		a[1].Offset != 110 || a[1].Length != 1 {
		t.Fatal(a)
	}
}

func TestVendorSnPerPort(t *testing.T) {
	o, s := mock(t)
	s.Insert(3, sim.NewQsfp(mm.Qsfp28, sim.Id{SerialNum: "QSN00002"},
		sim.Typical))
	for _, x := range []struct {
		port int
		sn   string
	}{
		{1, "X7G00AX"},
		{3, "QSN00002"},
		{0, "ALN0QH3"},
		{2, "AQG0GLB"},
	} {
		p := port(t, o, x.port)
		v, err := o.GetKeyValue(p, "VENDOR_SN")
		if err != nil {
			t.Fatal(err)
		}
		if v.Kind != decode.KindString || v.Str != x.sn {
			t.Errorf("port %d: %q != %q", x.port, v.Str, x.sn)
		}
	}
}

func TestUnsupportedType(t *testing.T) {
	o, s := mock(t)
	s.Insert(3, sim.NewModule(mm.Cfp2))
	p := port(t, o, 3)
	s.Reset()
	v, err := o.GetKeyValue(p, "VENDOR_SN")
	if err != nil || !v.IsNone() {
		t.Fatal(v, err)
	}
	kv, err := o.GetMemory(p, "SERIAL_ID")
	if err != nil || kv == nil || len(kv) != 0 {
		t.Fatal(kv, err)
	}
	if _, err = o.SetKeyValue(p, "SOFT_TX_DISABLE_SELECT", 1); !errors.Is(err,
		ErrUnsupportedType) {
		t.Fatal(err)
	}
	if len(o.Keys(p)) != 0 || len(o.Functions(p)) != 0 {
		t.Fatal("keys for unsupported type")
	}
	if n := len(s.Accesses()); n != 0 {
		t.Fatal(n, "accesses")
	}
}

func TestNotFound(t *testing.T) {
	o, _ := mock(t)
	p := port(t, o, 0)
	_, err := o.GetKeyValue(p, "TX1_DISABLE")
	if !errors.Is(err, ErrNotFoundKey) || errors.Is(err, ErrIO) {
		t.Error(err)
	}
	_, err = o.GetMemory(p, "CONTROL")
	if !errors.Is(err, ErrNotFoundFunction) || errors.Is(err, ErrIO) {
		t.Error(err)
	}
	if _, err = o.SetKeyValue(p, "NO_SUCH_KEY", 1); !errors.Is(err,
		ErrNotFoundKey) {
		t.Error(err)
	}
}

func TestShortReadIsDecodeError(t *testing.T) {
	o, s := mock(t)
	p := port(t, o, 1)
	s.Truncate(true)
	v, err := o.GetKeyValue(p, "VENDOR_SN")
	if !errors.Is(err, ErrDecode) || errors.Is(err, ErrIO) {
		t.Fatal(err)
	}
	if !v.IsNone() {
		t.Fatal("partial value", v)
	}
	if kv, err := o.GetMemory(p, "DOM"); !errors.Is(err, ErrDecode) ||
		kv != nil {
		t.Fatal(kv, err)
	}
}

func TestIOError(t *testing.T) {
	o, s := mock(t)
	p := port(t, o, 0)
	eio := errors.New("nak")
	s.Fail(eio)
	for _, err := range []error{
		func() error { _, err := o.GetKeyValue(p, "VENDOR_SN"); return err }(),
		func() error { _, err := o.GetMemory(p, "DOM"); return err }(),
		func() error {
			_, err := o.SetKeyValue(p, "SOFT_TX_DISABLE_SELECT", 1)
			return err
		}(),
		func() error { _, err := o.GetMemoryRaw(p, 0xA0, 0, 0, 1); return err }(),
	} {
		if !errors.Is(err, ErrIO) || !errors.Is(err, eio) {
			t.Error(err)
		}
		var ioe *IOError
		if !errors.As(err, &ioe) || ioe.Port.Num != 0 {
			t.Error(err)
		}
	}
}

func TestStaleHandle(t *testing.T) {
	o, s := mock(t)
	p := port(t, o, 2)
	s.Insert(2, sim.NewSfp(sim.Id{SerialNum: "SWAPPED"}, sim.Typical))
	_, err := o.GetKeyValue(p, "VENDOR_SN")
	if !errors.Is(err, ErrIO) || !errors.Is(err, south.ErrStale) {
		t.Fatal(err)
	}
	v, err := o.GetKeyValue(port(t, o, 2), "VENDOR_SN")
	if err != nil || v.Str != "SWAPPED" {
		t.Fatal(v, err)
	}
}

func TestWriteUnsupported(t *testing.T) {
	o, s := mock(t)
	for _, x := range []struct {
		port int
		key  string
	}{
		{0, "VENDOR_SN"},
		{0, "TEMPERATURE"},
		{0, "TX_FAULT_STATE"},
		{1, "DATA_READY"},
		{1, "IDENTIFIER"},
	} {
		s.Reset()
		if _, err := o.SetKeyValue(port(t, o, x.port), x.key,
			1); !errors.Is(err, ErrWriteUnsupported) {
			t.Errorf("%s: %v", x.key, err)
		}
		if n := len(s.Accesses()); n != 0 {
			t.Errorf("%s: %d accesses", x.key, n)
		}
	}
}

func TestBlockWrite(t *testing.T) {
	o, s := mock(t)
	sfp, qsfp := port(t, o, 0), port(t, o, 1)
	data := make([]byte, 120)
	for i := range data {
		data[i] = byte(i)
	}
	if n, err := o.SetKeyValue(sfp, "USER_EEPROM", data); err != nil ||
		n != 120 {
		t.Fatal(n, err)
	}
	v, err := o.GetKeyValue(sfp, "USER_EEPROM")
	if err != nil || v.String() != decode.Hex(data) {
		t.Fatal(v, err)
	}
	if _, err = o.SetKeyValue(sfp, "USER_EEPROM", data[:4]); !errors.Is(err,
		ErrBadValue) {
		t.Fatal(err)
	}
	if _, err = o.SetKeyValue(qsfp, "TX_DISABLE", 0x0f); err != nil {
		t.Fatal(err)
	}
	control, err := o.GetMemory(qsfp, "CONTROL")
	if err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"TX1_DISABLE", "TX2_DISABLE", "TX3_DISABLE",
		"TX4_DISABLE"} {
		if v, _ := control.Get(key); !v.Bool {
			t.Error(key, v)
		}
	}
	if _, err = o.SetKeyValue(qsfp, "TX_DISABLE", 256); !errors.Is(err,
		ErrBadValue) {
		t.Fatal(err)
	}
	if _, err = o.SetKeyValue(qsfp, "TX1_DISABLE", "on"); !errors.Is(err,
		ErrBadValue) {
		t.Fatal(err)
	}
	s.Truncate(true)
	if _, err = o.SetKeyValue(qsfp, "TX_DISABLE", 0); !errors.Is(err,
		south.ErrShort) || !errors.Is(err, ErrIO) {
		t.Fatal(err)
	}
}

func TestSetKeyString(t *testing.T) {
	o, _ := mock(t)
	sfp, qsfp := port(t, o, 0), port(t, o, 1)
	for _, x := range []struct {
		p     south.Port
		key   string
		value string
		want  string
	}{
		{qsfp, "TX_DISABLE", "0x05", "5"},
		{qsfp, "TX2_DISABLE", "on", "true"},
		{qsfp, "TX_DISABLE", "0", "0"},
		{sfp, "SOFT_RATE_SELECT", "1", "true"},
		{sfp, "USER_EEPROM", fmt.Sprintf("%0240x", 0xabcd),
			fmt.Sprintf("%0240x", 0xabcd)},
	} {
		if _, err := o.SetKeyString(x.p, x.key, x.value); err != nil {
			t.Fatal(x.key, err)
		}
		v, _ := o.GetKeyValue(x.p, x.key)
		if s := v.String(); s != x.want {
			t.Errorf("%s: %s != %s", x.key, s, x.want)
		}
	}
	if _, err := o.SetKeyString(qsfp, "TX_DISABLE", "lots"); !errors.Is(err,
		ErrBadValue) {
		t.Fatal(err)
	}
}

func TestConcurrentBitWrites(t *testing.T) {
	o, s := mock(t)
	s.Delay = 50 * time.Microsecond
	p := port(t, o, 1)
	keys := []string{"TX1_DISABLE", "TX2_DISABLE", "TX3_DISABLE",
		"TX4_DISABLE"}
	for _, set := range []bool{true, false, true} {
		var wg sync.WaitGroup
		for _, key := range keys {
			wg.Add(1)
			go func(key string) {
				defer wg.Done()
				if _, err := o.SetKeyValue(p, key, set); err != nil {
					t.Error(err)
				}
			}(key)
		}
		wg.Wait()
		want := byte(0)
		if set {
			want = 0x0f
		}
		if b := s.Module(1).Peek(0xA0, 0, 86, 1)[0]; b != want {
			t.Fatalf("set %v: %#x", set, b)
		}
	}
}

func TestHexKeys(t *testing.T) {
	o, _ := mock(t)
	for _, n := range []int{0, 1} {
		p := port(t, o, n)
		m, _ := mm.Resolve(p.Type)
		for _, k := range m.Keys() {
			if k.Decoder != decode.Bytes {
				continue
			}
			v, err := o.GetKeyValue(p, k.Name)
			if err != nil {
				t.Fatal(err)
			}
			if len(v.String()) != 2*k.Length {
				t.Errorf("%s: %q", k.Name, v)
			}
		}
	}
}

func TestMemoryRaw(t *testing.T) {
	o, _ := mock(t)
	p := port(t, o, 1)
	data := make([]byte, 128)
	for i := range data {
		data[i] = byte(i)
	}
	if n, err := o.SetMemoryRaw(p, 0xA2, 3, 128, data); err != nil ||
		n != 128 {
		t.Fatal(n, err)
	}
	b, err := o.GetMemoryRaw(p, 0xA2, 3, 128, 128)
	if err != nil {
		t.Fatal(err)
	}
	if b[0] != 0 || b[127] != 127 {
		t.Fatal(b[0], b[127])
	}
	if _, err = o.GetMemoryRaw(p, 0xA0, 0, 200, 100); !errors.Is(err,
		ErrBadValue) {
		t.Fatal(err)
	}
}

func TestPorts(t *testing.T) {
	o, _ := mock(t)
	ports, err := o.GetPortList()
	if err != nil || len(ports) != o.MaxPorts() {
		t.Fatal(ports, err)
	}
	if ports[3].Type != mm.NotPresent {
		t.Error(ports[3])
	}
	if _, err = o.GetPort(9); !errors.Is(err, ErrIO) ||
		!errors.Is(err, south.ErrNoPort) {
		t.Error(err)
	}
	all, err := o.GetAll(ports[0])
	if err != nil || len(all) != len(o.Keys(ports[0])) {
		t.Fatal(len(all), err)
	}
}

func ExampleOom_GetMemory() {
	o := New(sim.NewMock())
	p, _ := o.GetPort(0)
	kv, _ := o.GetMemory(p, "DOM")
	fmt.Print(kv)
	// Output:
	// TEMPERATURE: 32.5 C
	// VCC: 3.300 V
	// TX_BIAS: 6.500 mA
	// TX_POWER: 0.501 mW
	// RX_POWER: 0.447 mW
}

func ExampleOom_GetKeyValue() {
	o := New(sim.NewMock())
	for n := 0; n < 2; n++ {
		p, _ := o.GetPort(n)
		for _, key := range []string{"IDENTIFIER", "CONNECTOR", "VENDOR_PN"} {
			v, _ := o.GetKeyValue(p, key)
			fmt.Println(v)
		}
	}
	// Output:
	// SFP/SFP+/SFP28 (0x03)
	// LC (Lucent Connector) (0x07)
	// FTLX8571D3BCL
	// QSFP28 (0x11)
	// LC (Lucent Connector) (0x07)
	// FTLC9551REPM
}
