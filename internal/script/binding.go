// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Roo Contributors

package script

import (
	"context"
	"strconv"
	"strings"

	"github.com/samber/oops"
	lua "github.com/yuin/gopher-lua"

	"github.com/roomoo/roo/internal/core"
	"github.com/roomoo/roo/internal/world"
)

// host binds one Lua state to the database proxy.
type host struct {
	proxy *core.Proxy
}

// pushError pushes nil followed by an error table and returns 2.
func pushError(L *lua.LState, err error) int {
	L.Push(lua.LNil)
	L.Push(errorTable(L, err))
	return 2
}

// pushSuccess pushes a value followed by nil and returns 2.
func pushSuccess(L *lua.LState, v lua.LValue) int {
	L.Push(v)
	L.Push(lua.LNil)
	return 2
}

func pushDone(L *lua.LState, err error) int {
	if err != nil {
		return pushError(L, err)
	}
	return pushSuccess(L, lua.LTrue)
}

// objectOrNil converts an identity string from the proxy.
func objectOrNil(L *lua.LState, s string) lua.LValue {
	id, err := world.ParseID(s)
	if err != nil || id == world.None {
		return lua.LNil
	}
	return newObject(L, id)
}

func objectList(L *lua.LState, ids []string) *lua.LTable {
	t := L.CreateTable(len(ids), 0)
	for _, s := range ids {
		if obj := objectOrNil(L, s); obj != lua.LNil {
			t.Append(obj)
		}
	}
	return t
}

func stringList(L *lua.LState, ss []string) *lua.LTable {
	t := L.CreateTable(len(ss), 0)
	for _, s := range ss {
		t.Append(lua.LString(s))
	}
	return t
}

// descArg reads a verb descriptor: a 1-based index or a name.
func descArg(L *lua.LState, n int) string {
	switch x := L.Get(n).(type) {
	case lua.LNumber:
		return strconv.Itoa(int(x))
	case lua.LString:
		return string(x)
	}
	L.ArgError(n, "verb index or name expected")
	return ""
}

func verbTable(L *lua.LState, d core.VerbDescriptor) *lua.LTable {
	t := L.NewTable()
	L.SetField(t, "names", stringList(L, d.Names))
	L.SetField(t, "owner", objectOrNil(L, d.Owner))
	L.SetField(t, "perms", lua.LString(d.Perms))
	L.SetField(t, "args", lua.LString(d.Args))
	L.SetField(t, "code", lua.LString(d.Code))
	L.SetField(t, "definer", objectOrNil(L, d.Definer))
	return t
}

// verbArg reads {names = "a b" | {"a", "b"}, owner, perms, args, code}.
func verbArg(L *lua.LState, n int) core.VerbDescriptor {
	t := L.CheckTable(n)
	var d core.VerbDescriptor
	switch names := t.RawGetString("names").(type) {
	case lua.LString:
		d.Names = strings.Fields(string(names))
	case *lua.LTable:
		names.ForEach(func(_, v lua.LValue) {
			d.Names = append(d.Names, v.String())
		})
	default:
		L.ArgError(n, "verb names expected")
	}
	if owner := t.RawGetString("owner"); owner != lua.LNil {
		s, ok := refString(owner)
		if !ok {
			L.ArgError(n, "owner must be an object")
		}
		d.Owner = s
	}
	d.Perms = lua.LVAsString(t.RawGetString("perms"))
	d.Args = lua.LVAsString(t.RawGetString("args"))
	if d.Args == "" {
		d.Args = "none"
	}
	d.Code = lua.LVAsString(t.RawGetString("code"))
	return d
}

// pathArg reads a 1-based Lua index path and returns it 0-based.
func pathArg(L *lua.LState, n int) []int {
	var path []int
	switch x := L.Get(n).(type) {
	case lua.LNumber:
		path = []int{int(x) - 1}
	case *lua.LTable:
		for i := 1; i <= x.Len(); i++ {
			num, ok := x.RawGetInt(i).(lua.LNumber)
			if !ok {
				L.ArgError(n, "path must hold numbers")
			}
			path = append(path, int(num)-1)
		}
	default:
		L.ArgError(n, "index or path expected")
	}
	return path
}

func valueArg(L *lua.LState, n int) (world.Value, bool) {
	v, err := fromLua(L.Get(n))
	if err != nil {
		pushError(L, err)
		return world.Value{}, false
	}
	return v, true
}

// registerDB installs the db table. Every function returns (result, nil) or
// (nil, {code, message}).
func (h *host) registerDB(L *lua.LState) {
	fns := map[string]lua.LGFunction{
		"create":             h.create,
		"valid":              h.valid,
		"move":               h.move,
		"chparent":           h.chparent,
		"recycle":            h.recycle,
		"parent":             h.parent,
		"location":           h.location,
		"children":           h.relation(h.proxy.Children),
		"contents":           h.relation(h.proxy.Contents),
		"ancestors":          h.relation(h.proxy.Ancestors),
		"get_property":       h.getProperty,
		"set_property":       h.setProperty,
		"add_property":       h.addProperty,
		"delete_property":    h.deleteProperty,
		"property_info":      h.propertyInfo,
		"set_property_info":  h.setPropertyInfo,
		"set_into_list":      h.setIntoList,
		"add_verb":           h.addVerb,
		"delete_verb":        h.deleteVerb,
		"verb_info":          h.verbInfo,
		"verb_code":          h.verbCode,
		"set_verb_code":      h.setVerbCode,
		"resolve_verb":       h.resolveVerb,
		"has_verb_with_name": h.hasVerbWithName,
		"verbs":              h.verbs,
		"is_player":          h.isPlayer,
		"set_player_flag":    h.setPlayerFlag,
		"players":            h.players,
		"set_task_perms":     h.setTaskPerms,
		"checkpoint":         h.checkpoint,
		"call":               h.call,
		"objset":             objsetFn,
		"code":               codeFn,
		"optobj":             optobjFn,
	}
	mod := L.SetFuncs(L.NewTable(), fns)

	// db[id] returns the proxy for an identity string.
	mt := L.NewTable()
	L.SetField(mt, "__index", L.NewFunction(func(L *lua.LState) int {
		id, err := world.ParseID(L.CheckString(2))
		if err != nil || id == world.None {
			L.Push(lua.LNil)
			return 1
		}
		L.Push(newObject(L, id))
		return 1
	}))
	L.SetMetatable(mod, mt)
	L.SetGlobal("db", mod)
	L.SetGlobal("notify", L.NewFunction(h.notify))
}

func (h *host) create(L *lua.LState) int {
	parent := idArg(L, 1)
	owner := ""
	if L.Get(2) != lua.LNil {
		if s, ok := L.Get(2).(lua.LString); ok && string(s) == "self" {
			owner = "self"
		} else {
			owner = idArg(L, 2)
		}
	}
	id, err := h.proxy.Create(L.Context(), parent, owner)
	if err != nil {
		return pushError(L, err)
	}
	return pushSuccess(L, objectOrNil(L, id))
}

func (h *host) valid(L *lua.LState) int {
	s, ok := refString(L.Get(1))
	return pushSuccess(L, lua.LBool(ok && h.proxy.Valid(L.Context(), s)))
}

func (h *host) move(L *lua.LState) int {
	return pushDone(L, h.proxy.Move(L.Context(), idArg(L, 1), idArg(L, 2)))
}

func (h *host) chparent(L *lua.LState) int {
	return pushDone(L, h.proxy.Chparent(L.Context(), idArg(L, 1), idArg(L, 2)))
}

func (h *host) recycle(L *lua.LState) int {
	return pushDone(L, h.proxy.Recycle(L.Context(), idArg(L, 1)))
}

func (h *host) parent(L *lua.LState) int {
	id, err := h.proxy.Parent(L.Context(), idArg(L, 1))
	if err != nil {
		return pushError(L, err)
	}
	return pushSuccess(L, objectOrNil(L, id))
}

func (h *host) location(L *lua.LState) int {
	id, err := h.proxy.Location(L.Context(), idArg(L, 1))
	if err != nil {
		return pushError(L, err)
	}
	return pushSuccess(L, objectOrNil(L, id))
}

func (h *host) relation(get func(ctx context.Context, id string) ([]string, error)) lua.LGFunction {
	return func(L *lua.LState) int {
		ids, err := get(L.Context(), idArg(L, 1))
		if err != nil {
			return pushError(L, err)
		}
		return pushSuccess(L, objectList(L, ids))
	}
}

func (h *host) getProperty(L *lua.LState) int {
	v, err := h.proxy.GetProperty(L.Context(), idArg(L, 1), L.CheckString(2))
	if err != nil {
		return pushError(L, err)
	}
	return pushSuccess(L, toLua(L, v))
}

func (h *host) setProperty(L *lua.LState) int {
	id, name := idArg(L, 1), L.CheckString(2)
	v, ok := valueArg(L, 3)
	if !ok {
		return 2
	}
	return pushDone(L, h.proxy.SetProperty(L.Context(), id, name, v))
}

// add_property(obj, name, value [, owner [, perms]])
func (h *host) addProperty(L *lua.LState) int {
	id, name := idArg(L, 1), L.CheckString(2)
	v, ok := valueArg(L, 3)
	if !ok {
		return 2
	}
	owner := ""
	if L.Get(4) != lua.LNil {
		owner = idArg(L, 4)
	}
	perms := L.OptString(5, "r")
	return pushDone(L, h.proxy.AddProperty(L.Context(), id, name, v, owner, perms))
}

func (h *host) deleteProperty(L *lua.LState) int {
	return pushDone(L, h.proxy.DeleteProperty(L.Context(), idArg(L, 1), L.CheckString(2)))
}

func (h *host) propertyInfo(L *lua.LState) int {
	info, err := h.proxy.PropertyInfo(L.Context(), idArg(L, 1), L.CheckString(2))
	if err != nil {
		return pushError(L, err)
	}
	t := L.NewTable()
	L.SetField(t, "owner", objectOrNil(L, info.Owner))
	L.SetField(t, "perms", lua.LString(info.Perms))
	L.SetField(t, "definer", objectOrNil(L, info.Definer))
	return pushSuccess(L, t)
}

// set_property_info(obj, name, {owner=, perms=, name=}); omitted fields keep
// their current values.
func (h *host) setPropertyInfo(L *lua.LState) int {
	id, name := idArg(L, 1), L.CheckString(2)
	t := L.CheckTable(3)
	ctx := L.Context()

	cur, err := h.proxy.PropertyInfo(ctx, id, name)
	if err != nil {
		return pushError(L, err)
	}
	owner, perms := cur.Owner, cur.Perms
	if o := t.RawGetString("owner"); o != lua.LNil {
		s, ok := refString(o)
		if !ok {
			L.ArgError(3, "owner must be an object")
		}
		owner = s
	}
	if p, ok := t.RawGetString("perms").(lua.LString); ok {
		perms = string(p)
	}
	newName := lua.LVAsString(t.RawGetString("name"))
	return pushDone(L, h.proxy.SetPropertyInfo(ctx, id, name, owner, perms, newName))
}

// set_into_list(obj, name, path, value); path is a 1-based index or a
// table of them, and one past the end appends.
func (h *host) setIntoList(L *lua.LState) int {
	id, name := idArg(L, 1), L.CheckString(2)
	path := pathArg(L, 3)
	v, ok := valueArg(L, 4)
	if !ok {
		return 2
	}
	return pushDone(L, h.proxy.SetIntoList(L.Context(), id, name, path, v))
}

func (h *host) addVerb(L *lua.LState) int {
	return pushDone(L, h.proxy.AddVerb(L.Context(), idArg(L, 1), verbArg(L, 2)))
}

func (h *host) deleteVerb(L *lua.LState) int {
	return pushDone(L, h.proxy.DeleteVerb(L.Context(), idArg(L, 1), descArg(L, 2)))
}

func (h *host) verbInfo(L *lua.LState) int {
	d, err := h.proxy.VerbInfo(L.Context(), idArg(L, 1), descArg(L, 2))
	if err != nil {
		return pushError(L, err)
	}
	return pushSuccess(L, verbTable(L, d))
}

func (h *host) verbCode(L *lua.LState) int {
	code, err := h.proxy.VerbCode(L.Context(), idArg(L, 1), descArg(L, 2))
	if err != nil {
		return pushError(L, err)
	}
	return pushSuccess(L, lua.LString(code))
}

func (h *host) setVerbCode(L *lua.LState) int {
	return pushDone(L, h.proxy.SetVerbCode(L.Context(), idArg(L, 1), descArg(L, 2), L.CheckString(3)))
}

func (h *host) resolveVerb(L *lua.LState) int {
	d, err := h.proxy.ResolveVerb(L.Context(), idArg(L, 1), L.CheckString(2))
	if err != nil {
		return pushError(L, err)
	}
	return pushSuccess(L, verbTable(L, d))
}

func (h *host) hasVerbWithName(L *lua.LState) int {
	ok, err := h.proxy.HasVerbWithName(L.Context(), idArg(L, 1), L.CheckString(2))
	if err != nil {
		return pushError(L, err)
	}
	return pushSuccess(L, lua.LBool(ok))
}

func (h *host) verbs(L *lua.LState) int {
	names, err := h.proxy.Verbs(L.Context(), idArg(L, 1))
	if err != nil {
		return pushError(L, err)
	}
	return pushSuccess(L, stringList(L, names))
}

func (h *host) isPlayer(L *lua.LState) int {
	ok, err := h.proxy.IsPlayer(L.Context(), idArg(L, 1))
	if err != nil {
		return pushError(L, err)
	}
	return pushSuccess(L, lua.LBool(ok))
}

func (h *host) setPlayerFlag(L *lua.LState) int {
	return pushDone(L, h.proxy.SetPlayerFlag(L.Context(), idArg(L, 1), L.ToBool(2)))
}

func (h *host) players(L *lua.LState) int {
	ids, err := h.proxy.Players(L.Context())
	if err != nil {
		return pushError(L, err)
	}
	return pushSuccess(L, objectList(L, ids))
}

func (h *host) setTaskPerms(L *lua.LState) int {
	return pushDone(L, h.proxy.SetTaskPerms(L.Context(), idArg(L, 1)))
}

func (h *host) checkpoint(L *lua.LState) int {
	return pushDone(L, h.proxy.Checkpoint(L.Context()))
}

func (h *host) notify(L *lua.LState) int {
	n, err := h.proxy.Notify(L.Context(), idArg(L, 1), L.CheckString(2))
	if err != nil {
		return pushError(L, err)
	}
	return pushSuccess(L, lua.LNumber(n))
}

func objsetFn(L *lua.LState) int {
	return pushSuccess(L, newValue(L, world.ObjSet(idsArg(L, 1)...)))
}

func codeFn(L *lua.LState) int {
	return pushSuccess(L, newValue(L, world.Code(L.CheckString(1))))
}

func optobjFn(L *lua.LState) int {
	id, err := world.ParseID(idArg(L, 1))
	if err != nil {
		return pushError(L, oops.In("script").Code(world.CodeInvalidArgument).Wrap(err))
	}
	return pushSuccess(L, newValue(L, world.OptObj(id)))
}
