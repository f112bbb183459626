// Copyright © 2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

// Package mm maps module types to their memory and function maps.
//
// A schema is registered per type code and built on first resolution.
// Construction happens exactly once per type, after which the maps are shared
// read only by every caller.
package mm

import (
	"embed"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/platinasystems/log"
)

//go:embed schema/*.yaml
var schemas embed.FS

var builtin = map[Type]string{
	Sfp:      "schema/sff8472.yaml",
	Qsfp:     "schema/sff8636.yaml",
	QsfpPlus: "schema/sff8636.yaml",
	Qsfp28:   "schema/sff8636.yaml",
}

var (
	emptyMemoryMap   = &MemoryMap{}
	emptyFunctionMap = &FunctionMap{}
)

type entry struct {
	once   sync.Once
	load   func() ([]byte, error)
	mm     *MemoryMap
	fm     *FunctionMap
	err    error
	builds int32
}

var registry struct {
	sync.RWMutex
	entries map[Type]*entry
}

func init() {
	registry.entries = make(map[Type]*entry)
	for t, file := range builtin {
		file := file
		registry.entries[t] = &entry{
			load: func() ([]byte, error) {
				return schemas.ReadFile(file)
			},
		}
	}
}

// Register adds a schema for a type with none. The schema is parsed on the
// type's first resolution.
func Register(t Type, data []byte) error {
	registry.Lock()
	defer registry.Unlock()
	if _, found := registry.entries[t]; found {
		return fmt.Errorf("%v: already registered", t)
	}
	b := append([]byte(nil), data...)
	registry.entries[t] = &entry{
		load: func() ([]byte, error) { return b, nil },
	}
	return nil
}

// Supported reports whether a schema is registered for t.
func Supported(t Type) bool {
	return lookup(t) != nil
}

// Types lists the registered types in ascending order.
func Types() []Type {
	registry.RLock()
	defer registry.RUnlock()
	types := make([]Type, 0, len(registry.entries))
	for t := range registry.entries {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// Resolve returns the maps for t. Types without a schema, and those whose
// schema failed to load, resolve to empty maps.
func Resolve(t Type) (*MemoryMap, *FunctionMap) {
	e := lookup(t)
	if e == nil {
		return emptyMemoryMap, emptyFunctionMap
	}
	e.build(t)
	return e.mm, e.fm
}

// Preload builds every registered schema and returns the first failure.
func Preload() error {
	var first error
	for _, t := range Types() {
		e := lookup(t)
		e.build(t)
		if e.err != nil && first == nil {
			first = fmt.Errorf("%v: %w", t, e.err)
		}
	}
	return first
}

// Builds returns how many times the schema of t has been constructed.
func Builds(t Type) int {
	if e := lookup(t); e != nil {
		return int(atomic.LoadInt32(&e.builds))
	}
	return 0
}

func lookup(t Type) *entry {
	registry.RLock()
	defer registry.RUnlock()
	return registry.entries[t]
}

func (e *entry) build(t Type) {
	e.once.Do(func() {
		atomic.AddInt32(&e.builds, 1)
		data, err := e.load()
		if err == nil {
			e.mm, e.fm, err = Parse(data)
		}
		if err != nil {
			log.Print("daemon", "err", t, " schema: ", err)
			e.mm, e.fm, e.err = emptyMemoryMap, emptyFunctionMap, err
		}
	})
}
