// Copyright © 2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package publish

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/platinasystems/oom"
	"github.com/platinasystems/oom/south/sim"
)

type lines struct {
	sync.Mutex
	s []string
}

func (l *lines) Print(a ...interface{}) (int, error) {
	s := fmt.Sprint(a...)
	l.Lock()
	l.s = append(l.s, s)
	l.Unlock()
	return len(s), nil
}

func (l *lines) take() []string {
	l.Lock()
	defer l.Unlock()
	s := l.s
	l.s = nil
	return s
}

func TestUpdate(t *testing.T) {
	s := sim.NewMock()
	out := new(lines)
	p := New(oom.New(s), out, "VENDOR_SN", "TX1_DISABLE")
	if err := p.Update(); err != nil {
		t.Fatal(err)
	}
	got := strings.Join(out.take(), "\n")
	want := strings.Join([]string{
		"port.0.type: SFP",
		"port.0.vendor_sn: ALN0QH3",
		"port.1.type: QSFP28",
		"port.1.vendor_sn: X7G00AX",
		"port.1.tx1_disable: false",
		"port.2.type: SFP",
		"port.2.vendor_sn: AQG0GLB",
		"port.3.type: NOT_PRESENT",
		"port.3.vendor_sn: empty",
		"port.3.tx1_disable: empty",
	}, "\n")
	if got != want {
		t.Fatalf("\n%s\n!=\n%s", got, want)
	}

	if err := p.Update(); err != nil {
		t.Fatal(err)
	}
	if l := out.take(); len(l) != 0 {
		t.Fatal("republished", l)
	}

	s.Remove(0)
	s.Insert(3, sim.NewSfp(sim.Id{SerialNum: "NEW"}, sim.Typical))
	p.Update()
	got = strings.Join(out.take(), "\n")
	want = strings.Join([]string{
		"port.0.type: NOT_PRESENT",
		"port.0.vendor_sn: empty",
		"port.0.tx1_disable: empty",
		"port.3.type: SFP",
		"port.3.vendor_sn: NEW",
	}, "\n")
	if got != want {
		t.Fatalf("\n%s\n!=\n%s", got, want)
	}
}

func TestUpdateReadsEveryTime(t *testing.T) {
	s := sim.NewMock()
	out := new(lines)
	p := New(oom.New(s), out, "TEMPERATURE")
	p.Update()
	out.take()
	s.Reset()
	p.Update()
	if n := len(s.Accesses()); n != 3 {
		t.Fatal(n, "reads")
	}
	s.Module(0).Poke(0xA2, 0, 96, []byte{0x30, 0x00})
	p.Update()
	if l := out.take(); len(l) != 1 || l[0] != "port.0.temperature: 48.0 C" {
		t.Fatal(l)
	}
}

func TestRun(t *testing.T) {
	out := new(lines)
	p := New(oom.New(sim.NewMock()), out)
	stop := make(chan struct{})
	done := make(chan error)
	go func() { done <- p.Run(stop, time.Millisecond) }()
	time.Sleep(10 * time.Millisecond)
	close(stop)
	if err := <-done; err != nil {
		t.Fatal(err)
	}
	if len(out.take()) == 0 {
		t.Fatal("nothing published")
	}
}

var errLost = errors.New("connection lost")

type flaky struct {
	lines
	fail bool
}

func (f *flaky) Print(a ...interface{}) (int, error) {
	if f.fail {
		return 0, errLost
	}
	return f.lines.Print(a...)
}

func TestUpdateRetriesFailedPrint(t *testing.T) {
	out := &flaky{fail: true}
	p := New(oom.New(sim.NewMock()), out, "VENDOR_SN")
	if err := p.Update(); err != nil {
		t.Fatal(err)
	}
	if l := out.take(); len(l) != 0 {
		t.Fatal(l)
	}
	out.fail = false
	p.Update()
	l := out.take()
	if len(l) != 8 || l[1] != "port.0.vendor_sn: ALN0QH3" {
		t.Fatal(l)
	}
}
