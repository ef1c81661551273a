// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Roo Contributors

package script

import (
	"github.com/oklog/ulid/v2"
	lua "github.com/yuin/gopher-lua"

	"github.com/roomoo/roo/internal/world"
)

const objectTypeName = "roo.object"

// objectRef is the userdata behind an object proxy. Indexing reads
// properties, falling back to verbs; assignment writes properties.
type objectRef struct {
	id ulid.ULID
}

func newObject(L *lua.LState, id ulid.ULID) *lua.LUserData {
	ud := L.NewUserData()
	ud.Value = objectRef{id: id}
	L.SetMetatable(ud, L.GetTypeMetatable(objectTypeName))
	return ud
}

func checkObject(L *lua.LState, n int) objectRef {
	ud := L.CheckUserData(n)
	ref, ok := ud.Value.(objectRef)
	if !ok {
		L.ArgError(n, "object expected")
	}
	return ref
}

func (h *host) registerObjectType(L *lua.LState) {
	mt := L.NewTypeMetatable(objectTypeName)
	L.SetField(mt, "__index", L.NewFunction(h.objectIndex))
	L.SetField(mt, "__newindex", L.NewFunction(h.objectNewIndex))
	L.SetField(mt, "__eq", L.NewFunction(func(L *lua.LState) int {
		a, aok := L.CheckUserData(1).Value.(objectRef)
		b, bok := L.CheckUserData(2).Value.(objectRef)
		L.Push(lua.LBool(aok && bok && a.id == b.id))
		return 1
	}))
	L.SetField(mt, "__tostring", L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LString("#" + checkObject(L, 1).id.String()))
		return 1
	}))
}

// objectIndex resolves obj.key: a property when one is readable, otherwise
// a callable verb of that name.
func (h *host) objectIndex(L *lua.LState) int {
	ref := checkObject(L, 1)
	name := L.CheckString(2)
	ctx := L.Context()

	v, err := h.proxy.GetProperty(ctx, ref.id.String(), name)
	if err == nil {
		L.Push(toLua(L, v))
		return 1
	}
	if world.HasCode(err, world.CodePropertyNotFound) {
		if ok, verr := h.proxy.HasVerbWithName(ctx, ref.id.String(), name); verr == nil && ok {
			L.Push(h.verbFunction(L, name))
			return 1
		}
	}
	raise(L, err)
	return 0
}

func (h *host) objectNewIndex(L *lua.LState) int {
	ref := checkObject(L, 1)
	name := L.CheckString(2)
	v, err := fromLua(L.Get(3))
	if err != nil {
		raise(L, err)
		return 0
	}
	if err := h.proxy.SetProperty(L.Context(), ref.id.String(), name, v); err != nil {
		raise(L, err)
	}
	return 0
}
