// Copyright © 2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

// Package oomctl reads, decodes and writes optical module memory.
package oomctl

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/platinasystems/flags"
	"github.com/platinasystems/log"
	"github.com/platinasystems/oom"
	"github.com/platinasystems/oom/cmd"
	"github.com/platinasystems/oom/lang"
	"github.com/platinasystems/oom/publish"
	"github.com/platinasystems/oom/south"
	"github.com/platinasystems/oom/south/i2cbus"
	"github.com/platinasystems/oom/south/sim"
	"github.com/platinasystems/parms"
	"github.com/platinasystems/redis"
	"github.com/platinasystems/redis/publisher"
)

var (
	ErrUsage   = errors.New("usage")
	ErrNoSouth = errors.New("need -sim or -config FILE")
	ErrPort    = errors.New("invalid port")
)

const DefaultInterval = 5 * time.Second

type Command struct {
	// Stdout defaults to os.Stdout.
	Stdout io.Writer

	// South, if set, is used instead of -sim or -config.
	South south.South

	// Publisher, if set, replaces the redis publisher.
	Publisher publish.Printer

	once   sync.Once
	closed sync.Once
	stop   chan struct{}
}

func (*Command) String() string { return "oomctl" }

func (c *Command) Usage() string {
	return c.String() + ` [-sim] [-config FILE] [-interval DURATION] COMMAND
	ports
	keys PORT
	get PORT KEY
	memory PORT FUNCTION
	set PORT KEY VALUE
	raw PORT ADDRESS PAGE OFFSET LENGTH
	publish [KEY]...`
}

func (*Command) Apropos() lang.Alt {
	return lang.Alt{
		lang.EnUS: "optical module memory access",
	}
}

func (c *Command) Man() lang.Alt {
	return lang.Alt{
		lang.EnUS: `
DESCRIPTION
	The ` + c.String() + ` command decodes the memory of SFP and QSFP
	modules by key or by function, a named group of keys.

	-sim	use four simulated ports
	-config	i2c port wiring YAML file
	-interval
		publish period, default 5s

	ports	list ports and module types
	keys	decode every key of the port, then every function
	get	decode one key
	memory	decode the keys of a function
	set	write a key; bits accept true, false, on, off, 0 and 1
	raw	hex dump of ADDRESS (0xa0 or 0xa2) PAGE from OFFSET
	publish	publish changed values to redis until stopped`,
	}
}

func (*Command) Kind() cmd.Kind { return cmd.DontFork }

// Daemon is the command running publish. It is stopped by Close.
type Daemon struct{ *Command }

func (Daemon) Kind() cmd.Kind { return cmd.Daemon }

// For returns the command that runs args, a Daemon for publish.
func (c *Command) For(args []string) cmd.Cmd {
	_, args = flags.New(append([]string(nil), args...), "-sim")
	_, args = parms.New(args, "-config", "-interval")
	if len(args) > 0 && args[0] == "publish" {
		return Daemon{c}
	}
	return c
}

// Close stops publish. It may be called more than once.
func (c *Command) Close() error {
	stop := c.done()
	c.closed.Do(func() { close(stop) })
	return nil
}

func (c *Command) done() chan struct{} {
	c.once.Do(func() { c.stop = make(chan struct{}) })
	return c.stop
}

func (c *Command) Main(args ...string) error {
	flag, args := flags.New(args, "-sim")
	parm, args := parms.New(args, "-config", "-interval")
	if len(args) == 0 {
		return fmt.Errorf("%s: %w: %s", c, ErrUsage, c.Usage())
	}
	s, err := c.south(flag.ByName["-sim"], parm.ByName["-config"])
	if err != nil {
		return fmt.Errorf("%s: %w", c, err)
	}
	o := oom.New(s)
	w := c.Stdout
	if w == nil {
		w = os.Stdout
	}
	sub, args := args[0], args[1:]
	switch sub {
	case "ports":
		err = ports(w, o, args)
	case "keys":
		err = keys(w, o, args)
	case "get":
		err = get(w, o, args)
	case "memory":
		err = memory(w, o, args)
	case "set":
		err = set(w, o, args)
	case "raw":
		err = raw(w, o, args)
	case "publish":
		interval := DefaultInterval
		if s := parm.ByName["-interval"]; len(s) > 0 {
			if interval, err = time.ParseDuration(s); err != nil {
				return fmt.Errorf("%s: -interval: %w", c, err)
			}
		}
		err = c.publish(o, interval, args)
	default:
		err = fmt.Errorf("%q: %w", sub, ErrUsage)
	}
	if err != nil {
		return fmt.Errorf("%s %s: %w", c, sub, err)
	}
	return nil
}

func (c *Command) south(useSim bool, config string) (south.South, error) {
	switch {
	case c.South != nil:
		return c.South, nil
	case useSim:
		return sim.NewMock(), nil
	case len(config) > 0:
		cfg, err := i2cbus.LoadConfig(config)
		if err != nil {
			return nil, err
		}
		return i2cbus.New(cfg, nil), nil
	}
	return nil, ErrNoSouth
}

func want(args []string, n int, names string) error {
	if len(args) != n {
		return fmt.Errorf("%w: %s", ErrUsage, names)
	}
	return nil
}

func port(o *oom.Oom, arg string) (south.Port, error) {
	n, err := strconv.Atoi(arg)
	if err != nil || n < 0 || n >= o.MaxPorts() {
		return south.Port{}, fmt.Errorf("%q: %w", arg, ErrPort)
	}
	return o.GetPort(n)
}

func ports(w io.Writer, o *oom.Oom, args []string) error {
	if err := want(args, 0, ""); err != nil {
		return err
	}
	l, err := o.GetPortList()
	if err != nil {
		return err
	}
	for _, p := range l {
		fmt.Fprintf(w, "%d: %v\n", p.Num, p.Type)
	}
	return nil
}

func keys(w io.Writer, o *oom.Oom, args []string) error {
	if err := want(args, 1, "PORT"); err != nil {
		return err
	}
	p, err := port(o, args[0])
	if err != nil {
		return err
	}
	for _, key := range o.Keys(p) {
		v, err := o.GetKeyValue(p, key)
		if err != nil {
			fmt.Fprint(w, key, ": ", err, "\n")
			continue
		}
		fmt.Fprint(w, key, ": ", v, "\n")
	}
	fmt.Fprint(w, "\nfunctions, with their keys and values:\n")
	for _, fn := range o.Functions(p) {
		kv, err := o.GetMemory(p, fn)
		if err != nil {
			fmt.Fprint(w, "\n", fn, ": ", err, "\n")
			continue
		}
		fmt.Fprint(w, "\n", fn, ":\n", kv)
	}
	return nil
}

func get(w io.Writer, o *oom.Oom, args []string) error {
	if err := want(args, 2, "PORT KEY"); err != nil {
		return err
	}
	p, err := port(o, args[0])
	if err != nil {
		return err
	}
	v, err := o.GetKeyValue(p, args[1])
	if err != nil {
		return err
	}
	fmt.Fprintln(w, v)
	return nil
}

func memory(w io.Writer, o *oom.Oom, args []string) error {
	if err := want(args, 2, "PORT FUNCTION"); err != nil {
		return err
	}
	p, err := port(o, args[0])
	if err != nil {
		return err
	}
	kv, err := o.GetMemory(p, args[1])
	if err != nil {
		return err
	}
	fmt.Fprint(w, kv)
	return nil
}

func set(w io.Writer, o *oom.Oom, args []string) error {
	if err := want(args, 3, "PORT KEY VALUE"); err != nil {
		return err
	}
	p, err := port(o, args[0])
	if err != nil {
		return err
	}
	key := args[1]
	if _, err = o.SetKeyString(p, key, args[2]); err != nil {
		return err
	}
	v, err := o.GetKeyValue(p, key)
	if err != nil {
		return err
	}
	fmt.Fprint(w, key, ": ", v, "\n")
	return nil
}

func raw(w io.Writer, o *oom.Oom, args []string) error {
	if err := want(args, 5, "PORT ADDRESS PAGE OFFSET LENGTH"); err != nil {
		return err
	}
	p, err := port(o, args[0])
	if err != nil {
		return err
	}
	var n [4]int
	for i, arg := range args[1:] {
		v, err := strconv.ParseInt(arg, 0, 0)
		if err != nil {
			return fmt.Errorf("%q: %w", arg, ErrUsage)
		}
		n[i] = int(v)
	}
	data, err := o.GetMemoryRaw(p, n[0], n[1], n[2], n[3])
	if err != nil {
		return err
	}
	Dump(w, data)
	return nil
}

// Dump prints data in lines of 16 bytes, in groups of 4.
func Dump(w io.Writer, data []byte) {
	for len(data) > 0 {
		line := data
		if len(line) > 16 {
			line = line[:16]
		}
		data = data[len(line):]
		var groups []string
		for len(line) > 0 {
			g := line
			if len(g) > 4 {
				g = g[:4]
			}
			line = line[len(g):]
			groups = append(groups, fmt.Sprintf("%x", g))
		}
		fmt.Fprint(w, "       ", strings.Join(groups, " "), "\n")
	}
}

func (c *Command) publish(o *oom.Oom, interval time.Duration,
	keys []string) error {
	pub := c.Publisher
	if pub == nil {
		if err := redis.IsReady(); err != nil {
			return err
		}
		p, err := publisher.New()
		if err != nil {
			return err
		}
		defer p.Close()
		pub = p
	}
	log.Print(c, " publishing every ", interval)
	return publish.New(o, pub, keys...).Run(c.done(), interval)
}
