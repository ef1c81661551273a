// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Roo Contributors

// Package script runs verb code and eval lines in sandboxed Lua states.
// Scripts reach the object database only through core.Proxy.
package script

import (
	"context"

	"github.com/samber/oops"
	lua "github.com/yuin/gopher-lua"
)

type safeLibrary struct {
	name string
	fn   lua.LGFunction
}

// defaultSafeLibraries: base, table, string and math. os, io, debug and
// package are never opened.
func defaultSafeLibraries() []safeLibrary {
	return []safeLibrary{
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	}
}

// unsafeBaseFunctions reach the filesystem or compile arbitrary chunks.
var unsafeBaseFunctions = []string{"dofile", "loadfile", "loadstring", "load", "require", "module"}

// StateFactory creates sandboxed Lua states.
type StateFactory struct {
	libraries []safeLibrary
	// callStackSize bounds recursion, including runaway verb-to-verb calls.
	callStackSize int
}

// NewStateFactory creates a factory with the default safe libraries.
func NewStateFactory() *StateFactory {
	return &StateFactory{
		libraries:     defaultSafeLibraries(),
		callStackSize: 256,
	}
}

// NewState returns a fresh state bound to ctx. Cancelling ctx stops any
// script running in the state.
func (f *StateFactory) NewState(ctx context.Context) (*lua.LState, error) {
	L := lua.NewState(lua.Options{
		SkipOpenLibs:  true,
		CallStackSize: f.callStackSize,
	})

	for _, lib := range f.libraries {
		if err := L.CallByParam(lua.P{
			Fn:      L.NewFunction(lib.fn),
			NRet:    0,
			Protect: true,
		}, lua.LString(lib.name)); err != nil {
			L.Close()
			return nil, oops.In("script").With("library", lib.name).Wrapf(err, "open library")
		}
	}
	for _, fn := range unsafeBaseFunctions {
		L.SetGlobal(fn, lua.LNil)
	}
	L.SetContext(ctx)
	return L, nil
}
