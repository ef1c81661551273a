// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Roo Contributors

package script

import (
	"context"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/roomoo/roo/internal/core"
)

// Eval runs one line of script for the task in ctx and returns its first
// result formatted for display. An expression is evaluated as if prefixed
// with return; anything else runs as a statement block.
func (r *Runtime) Eval(ctx context.Context, src string) (out string, err error) {
	defer func(start time.Time) { observe(KindEval, start, err) }(time.Now())

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	L, _, err := r.newState(ctx)
	if err != nil {
		return "", err
	}
	defer L.Close()

	fn, err := L.LoadString("return " + src)
	if err != nil {
		if fn, err = L.LoadString(src); err != nil {
			return "", hostError(ctx, err)
		}
	}
	if t, ok := core.TaskFrom(ctx); ok {
		fn.Env = verbEnv(L, t.Player, "eval", L.NewTable())
	}

	if err := L.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}); err != nil {
		return "", hostError(ctx, err)
	}
	ret := L.Get(-1)
	L.Pop(1)
	return formatResult(ret), nil
}
