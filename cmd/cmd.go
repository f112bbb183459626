// Copyright © 2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

// Package cmd describes the commands of the oom binary.
package cmd

import "github.com/platinasystems/oom/lang"

type Cmd interface {
	Apropos() lang.Alt
	Main(...string) error
	String() string
	Usage() string
}

type manner interface {
	Man() lang.Alt
}

// Man returns the manual of v, or its apropos if it has none.
func Man(v Cmd) lang.Alt {
	if m, found := v.(manner); found {
		return m.Man()
	}
	return v.Apropos()
}
