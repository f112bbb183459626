// Copyright © 2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

// This is the oom command, reading and writing optical module memory.
package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/platinasystems/oom/cmd"
	"github.com/platinasystems/oom/cmd/oomctl"
)

var Args = os.Args
var Exit = os.Exit
var Stderr io.Writer = os.Stderr

func main() {
	c := new(oomctl.Command)
	args := Args[1:]
	if len(args) > 0 {
		switch args[0] {
		case "-h", "-help", "--help", "help":
			fmt.Fprintln(Stderr, "usage:", c.Usage())
			fmt.Fprintln(Stderr, cmd.Man(c))
			return
		case "apropos":
			fmt.Fprintln(Stderr, c, "-", c.Apropos())
			return
		}
	}
	x := c.For(args)
	if cmd.WhatKind(x).IsDaemon() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			for range sig {
				c.Close()
			}
		}()
	}
	if err := x.Main(args...); err != nil {
		fmt.Fprintln(Stderr, err)
		Exit(1)
	}
}
