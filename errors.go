// Copyright © 2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package oom

import (
	"errors"
	"fmt"

	"github.com/platinasystems/oom/decode"
	"github.com/platinasystems/oom/mm"
	"github.com/platinasystems/oom/south"
)

var (
	ErrNotFoundKey      = mm.ErrNotFoundKey
	ErrNotFoundFunction = mm.ErrNotFoundFunction
	ErrUnsupportedType  = errors.New("unsupported module type")
	ErrIO               = errors.New("i/o error")
	ErrDecode           = decode.ErrDecode
	ErrWriteUnsupported = errors.New("key is not writable")
	ErrBadValue         = decode.ErrBadValue
)

// IOError is a failed or short southbound transfer. It matches ErrIO and
// unwraps to the transport error.
type IOError struct {
	Op   string
	Port south.Port
	Key  string
	Err  error
}

func (e *IOError) Error() string {
	s := fmt.Sprint(e.Op, " port ", e.Port.Num)
	if len(e.Key) > 0 {
		s += " " + e.Key
	}
	return s + ": " + e.Err.Error()
}

func (e *IOError) Unwrap() error { return e.Err }

func (e *IOError) Is(target error) bool { return target == ErrIO }

func ioError(op string, p south.Port, key string, err error) error {
	return &IOError{Op: op, Port: p, Key: key, Err: err}
}
