// Copyright © 2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

// Package publish polls every port and publishes changed key values as
// "port.N.key: value" lines to the redis publisher.
package publish

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/platinasystems/log"
	"github.com/platinasystems/oom"
	"github.com/platinasystems/oom/mm"
	"github.com/platinasystems/oom/south"
)

const Empty = "empty"

// Printer is satisfied by *publisher.Publisher.
type Printer interface {
	Print(a ...interface{}) (int, error)
}

// DefaultKeys are published when New is given none.
var DefaultKeys = []string{
	"IDENTIFIER",
	"VENDOR_NAME",
	"VENDOR_PN",
	"VENDOR_SN",
	"TEMPERATURE",
	"VCC",
}

type Publisher struct {
	oom  *oom.Oom
	pub  Printer
	keys []string

	last    map[string]string
	lastErr map[string]string
}

func New(o *oom.Oom, pub Printer, keys ...string) *Publisher {
	if len(keys) == 0 {
		keys = DefaultKeys
	}
	return &Publisher{
		oom:     o,
		pub:     pub,
		keys:    keys,
		last:    make(map[string]string),
		lastErr: make(map[string]string),
	}
}

// Update publishes each value that differs from the last one published.
// Keys of an empty slot publish as "empty". Keys missing from a module's
// memory map are skipped.
func (p *Publisher) Update() error {
	ports, err := p.oom.GetPortList()
	if err != nil {
		return err
	}
	for _, port := range ports {
		prefix := "port." + strconv.Itoa(int(port.Num)) + "."
		p.print(prefix+"type", port.Type.String())
		switch {
		case port.Type == mm.NotPresent:
			for _, key := range p.keys {
				p.print(prefix+strings.ToLower(key), Empty)
			}
		case mm.Supported(port.Type):
			p.update(prefix, port)
		}
	}
	return nil
}

func (p *Publisher) update(prefix string, port south.Port) {
	for _, key := range p.keys {
		k := prefix + strings.ToLower(key)
		v, err := p.oom.GetKeyValue(port, key)
		if errors.Is(err, oom.ErrNotFoundKey) {
			continue
		}
		if err != nil {
			if s := err.Error(); s != p.lastErr[k] {
				log.Print("daemon", "err", k, ": ", err)
				p.lastErr[k] = s
			}
			continue
		}
		p.print(k, v.String())
	}
}

// A value that fails to publish is retried on the next update.
func (p *Publisher) print(k, v string) {
	if v == p.last[k] {
		delete(p.lastErr, k)
		return
	}
	if _, err := p.pub.Print(k, ": ", v); err != nil {
		if s := err.Error(); s != p.lastErr[k] {
			log.Print("daemon", "err", k, ": ", err)
			p.lastErr[k] = s
		}
		return
	}
	delete(p.lastErr, k)
	p.last[k] = v
}

// Run updates every interval until stop is closed.
func (p *Publisher) Run(stop <-chan struct{}, interval time.Duration) error {
	if err := p.Update(); err != nil {
		return err
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return nil
		case <-t.C:
			if err := p.Update(); err != nil {
				return err
			}
		}
	}
}
