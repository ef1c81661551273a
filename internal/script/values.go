// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Roo Contributors

package script

import (
	"math"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	lua "github.com/yuin/gopher-lua"

	"github.com/roomoo/roo/internal/world"
)

// valueTypeName is the metatable of userdata carrying a world.Value whose
// kind Lua cannot express on its own (object sets, optional references,
// code blocks) when a script builds one to store.
const valueTypeName = "roo.value"

// maxInt64Float is 2^63, the first float above the int64 range.
const maxInt64Float = float64(1 << 63)

func typeError(format string, args ...any) error {
	return oops.In("script").Code(world.CodeTypeMismatch).Errorf(format, args...)
}

// toLua converts a property value for a script. References become object
// proxies, lists and object sets become sequences, code becomes a string.
func toLua(L *lua.LState, v world.Value) lua.LValue {
	switch v.Kind() {
	case world.KindBool:
		b, _ := v.AsBool()
		return lua.LBool(b)
	case world.KindString:
		s, _ := v.AsString()
		return lua.LString(s)
	case world.KindInt:
		i, _ := v.AsInt()
		return lua.LNumber(i)
	case world.KindObject, world.KindOptObject:
		id, _ := v.AsObject()
		if id == world.None {
			return lua.LNil
		}
		return newObject(L, id)
	case world.KindObjectSet:
		ids, _ := v.AsObjectSet()
		t := L.CreateTable(len(ids), 0)
		for _, id := range ids {
			t.Append(newObject(L, id))
		}
		return t
	case world.KindList:
		items, _ := v.AsList()
		t := L.CreateTable(len(items), 0)
		for _, item := range items {
			t.Append(toLua(L, item))
		}
		return t
	case world.KindCode:
		src, _ := v.AsCode()
		return lua.LString(src)
	default:
		return lua.LNil
	}
}

// fromLua converts a script value for storage. Numbers must be integral;
// tables must be sequences.
func fromLua(lv lua.LValue) (world.Value, error) {
	switch x := lv.(type) {
	case lua.LBool:
		return world.Bool(bool(x)), nil
	case lua.LString:
		return world.Str(string(x)), nil
	case lua.LNumber:
		f := float64(x)
		if f != math.Trunc(f) || math.IsInf(f, 0) {
			return world.Value{}, typeError("%v is not an integer", f)
		}
		if f < math.MinInt64 || f >= maxInt64Float {
			return world.Value{}, oops.In("script").Code(world.CodeRange).Errorf("%v does not fit in 64 bits", f)
		}
		return world.Int(int64(f)), nil
	case *lua.LUserData:
		switch u := x.Value.(type) {
		case objectRef:
			return world.Obj(u.id), nil
		case world.Value:
			return u, nil
		}
		return world.Value{}, typeError("cannot store userdata")
	case *lua.LTable:
		n := x.Len()
		items := make([]world.Value, 0, n)
		for i := 1; i <= n; i++ {
			item, err := fromLua(x.RawGetInt(i))
			if err != nil {
				return world.Value{}, err
			}
			items = append(items, item)
		}
		return world.List(items...), nil
	case *lua.LNilType:
		return world.OptObj(world.None), nil
	default:
		return world.Value{}, typeError("cannot store a %s", lv.Type())
	}
}

// refString reads an object reference: a proxy, an identity string, or nil
// for no object.
func refString(lv lua.LValue) (string, bool) {
	switch x := lv.(type) {
	case *lua.LUserData:
		if ref, ok := x.Value.(objectRef); ok {
			return ref.id.String(), true
		}
	case lua.LString:
		return string(x), true
	case *lua.LNilType:
		return "none", true
	}
	return "", false
}

func idArg(L *lua.LState, n int) string {
	s, ok := refString(L.Get(n))
	if !ok {
		L.ArgError(n, "object expected")
	}
	return s
}

func idsArg(L *lua.LState, n int) []ulid.ULID {
	t := L.CheckTable(n)
	out := make([]ulid.ULID, 0, t.Len())
	for i := 1; i <= t.Len(); i++ {
		s, ok := refString(t.RawGetInt(i))
		if !ok {
			L.ArgError(n, "objects expected")
		}
		id, err := world.ParseID(s)
		if err != nil {
			L.ArgError(n, err.Error())
		}
		out = append(out, id)
	}
	return out
}

func newValue(L *lua.LState, v world.Value) *lua.LUserData {
	ud := L.NewUserData()
	ud.Value = v
	L.SetMetatable(ud, L.GetTypeMetatable(valueTypeName))
	return ud
}

func registerValueType(L *lua.LState) {
	mt := L.NewTypeMetatable(valueTypeName)
	L.SetField(mt, "__tostring", L.NewFunction(func(L *lua.LState) int {
		ud := L.CheckUserData(1)
		v, _ := ud.Value.(world.Value)
		L.Push(lua.LString(world.FormatValue(v)))
		return 1
	}))
}

// formatResult renders the value of an eval line for the player.
func formatResult(lv lua.LValue) string {
	switch x := lv.(type) {
	case lua.LString:
		return string(x)
	case *lua.LUserData:
		switch u := x.Value.(type) {
		case objectRef:
			return "#" + u.id.String()
		case world.Value:
			return world.FormatValue(u)
		}
	case *lua.LTable:
		if code, ok := x.RawGetString("code").(lua.LString); ok {
			return string(code) + ": " + x.RawGetString("message").String()
		}
		if v, err := fromLua(x); err == nil {
			return world.FormatValue(v)
		}
	}
	return lv.String()
}
