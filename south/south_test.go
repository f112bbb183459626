// Copyright © 2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package south

import (
	"fmt"
	"testing"

	"github.com/platinasystems/oom/mm"
)

func TestPortRecord(t *testing.T) {
	p := Port{Num: 3, Type: mm.Qsfp28, Seq: 7, Flags: FlagPresent | FlagPaged}
	b, err := p.MarshalBinary()
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{
		3, 0, 0, 0,
		0x11, 0, 0, 0,
		7, 0, 0, 0,
		3, 0, 0, 0,
	}
	if fmt.Sprint(b) != fmt.Sprint(want) {
		t.Fatalf("% x", b)
	}
	var q Port
	if err = q.UnmarshalBinary(b); err != nil {
		t.Fatal(err)
	}
	if q != p {
		t.Fatal(q)
	}
}

func TestPortRecordNegativeType(t *testing.T) {
	p := Port{Num: 1, Type: mm.NotPresent}
	b, _ := p.MarshalBinary()
	if fmt.Sprint(b[4:8]) != fmt.Sprint([]byte{0xfe, 0xff, 0xff, 0xff}) {
		t.Fatalf("% x", b[4:8])
	}
	var q Port
	q.UnmarshalBinary(b)
	if q.Type != mm.NotPresent {
		t.Fatal(q.Type)
	}
	if err := q.UnmarshalBinary(b[:12]); err == nil {
		t.Fatal("short record")
	}
}

func TestCheckSpan(t *testing.T) {
	for _, x := range []struct {
		address, page, offset, length int
		ok                            bool
	}{
		{0xA0, 0, 0, 256, true},
		{0xA2, 3, 128, 128, true},
		{0xA2, 0, 255, 1, true},
		{0xA4, 0, 0, 1, false},
		{0xA0, 256, 0, 1, false},
		{0xA0, 0, 255, 2, false},
		{0xA0, 0, 0, 0, false},
		{0xA0, 0, -1, 1, false},
	} {
		err := CheckSpan(x.address, x.page, x.offset, x.length)
		if (err == nil) != x.ok {
			t.Errorf("%+v: %v", x, err)
		}
	}
}
