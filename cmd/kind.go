// Copyright © 2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package cmd

const (
	// DontFork commands run to completion in the caller's process.
	DontFork Kind = 1 << iota
	// Daemon commands run until closed.
	Daemon
)

type Kind uint16

type kinder interface {
	Kind() Kind
}

// WhatKind returns the kind of v, zero if it doesn't say.
func WhatKind(v Cmd) Kind {
	if m, found := v.(kinder); found {
		return m.Kind()
	}
	return 0
}

func (k Kind) IsDaemon() bool { return k&Daemon == Daemon }

func (k Kind) String() string {
	switch {
	case k == 0:
		return "interactive"
	case k == DontFork:
		return "don't fork"
	case k == Daemon:
		return "daemon"
	case k == DontFork|Daemon:
		return "don't fork, daemon"
	}
	return "unknown"
}
