// Copyright © 2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

package decode

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

// Parse converts command line text to a value that Encode or Asserted
// accept for decoder d. Numbers may be decimal or 0x prefixed hex; byte
// blocks are hex.
func Parse(d Decoder, s string) (interface{}, error) {
	switch d {
	case Int:
		i, err := strconv.ParseInt(s, 0, 64)
		if err != nil {
			return nil, fmt.Errorf("%q: %w", s, ErrBadValue)
		}
		return i, nil
	case Uint:
		u, err := strconv.ParseUint(s, 0, 64)
		if err != nil {
			return nil, fmt.Errorf("%q: %w", s, ErrBadValue)
		}
		return u, nil
	case String:
		return s, nil
	case Bytes:
		b, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
		if err != nil {
			return nil, fmt.Errorf("%q: %w", s, ErrBadValue)
		}
		return b, nil
	case Bit:
		switch strings.ToLower(s) {
		case "true", "on", "yes":
			return true, nil
		case "false", "off", "no":
			return false, nil
		}
		u, err := strconv.ParseUint(s, 0, 64)
		if err != nil {
			return nil, fmt.Errorf("%q: %w", s, ErrBadValue)
		}
		return u != 0, nil
	}
	return nil, fmt.Errorf("%v: not writable: %w", d, ErrBadValue)
}
