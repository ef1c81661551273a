// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Roo Contributors

package script

import (
	"context"
	"errors"

	"github.com/samber/oops"
	lua "github.com/yuin/gopher-lua"

	"github.com/roomoo/roo/internal/world"
)

// Error codes raised by the runtime itself.
const (
	CodeTimeout      = "SCRIPT_TIMEOUT"
	CodeCompileError = "SCRIPT_COMPILE"
)

// errorTable is the value a script sees for a failed operation:
// {code = "E_PERM", message = "..."}.
func errorTable(L *lua.LState, err error) *lua.LTable {
	t := L.NewTable()
	code := world.CodeOf(err)
	if code == "" {
		code = "E_INTERNAL"
	}
	L.SetField(t, "code", lua.LString(code))
	L.SetField(t, "message", lua.LString(err.Error()))
	L.SetMetatable(t, L.GetTypeMetatable(errorTypeName))
	return t
}

const errorTypeName = "roo.error"

func registerErrorType(L *lua.LState) {
	mt := L.NewTypeMetatable(errorTypeName)
	L.SetField(mt, "__tostring", L.NewFunction(func(L *lua.LState) int {
		t := L.CheckTable(1)
		L.Push(lua.LString(t.RawGetString("code").String() + ": " + t.RawGetString("message").String()))
		return 1
	}))
}

// raise throws err into the script as an error table, catchable with pcall.
func raise(L *lua.LState, err error) {
	L.Error(errorTable(L, err), 1)
}

// hostError turns a failure out of a Lua call back into a Go error. Error
// tables keep their code; a cancelled context becomes a timeout.
func hostError(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		code := CodeTimeout
		if errors.Is(ctxErr, context.Canceled) {
			code = "SCRIPT_CANCELLED"
		}
		return oops.In("script").Code(code).Wrapf(ctxErr, "script interrupted")
	}
	var apiErr *lua.ApiError
	if !errors.As(err, &apiErr) {
		return oops.In("script").Wrap(err)
	}
	if t, ok := apiErr.Object.(*lua.LTable); ok {
		if code, ok := t.RawGetString("code").(lua.LString); ok && code != "" {
			return oops.In("script").
				Code(string(code)).
				With("stack", apiErr.StackTrace).
				Errorf("%s", t.RawGetString("message").String())
		}
	}
	if apiErr.Type == lua.ApiErrorSyntax {
		return oops.In("script").Code(CodeCompileError).Errorf("%s", apiErr.Object.String())
	}
	return oops.In("script").
		With("stack", apiErr.StackTrace).
		Errorf("%s", apiErr.Object.String())
}
