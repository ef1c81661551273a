// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Roo Contributors

package script

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	lua "github.com/yuin/gopher-lua"

	"github.com/roomoo/roo/internal/command"
	"github.com/roomoo/roo/internal/core"
	"github.com/roomoo/roo/internal/world"
)

// DefaultTimeout bounds one verb run or eval line, nested verb calls
// included.
const DefaultTimeout = 5 * time.Second

var _ command.Runtime = (*Runtime)(nil)

// Runtime runs verb code in a fresh sandboxed state per invocation. Each
// verb runs with its owner's permissions; eval lines run as the player.
type Runtime struct {
	proxy   *core.Proxy
	factory *StateFactory
	timeout time.Duration
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithTimeout replaces DefaultTimeout. Non-positive values are ignored.
func WithTimeout(d time.Duration) Option {
	return func(r *Runtime) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// New creates a runtime calling into proxy.
func New(proxy *core.Proxy, opts ...Option) *Runtime {
	r := &Runtime{
		proxy:   proxy,
		factory: NewStateFactory(),
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Runtime) newState(ctx context.Context) (*lua.LState, *host, error) {
	L, err := r.factory.NewState(ctx)
	if err != nil {
		return nil, nil, err
	}
	h := &host{proxy: r.proxy}
	registerValueType(L)
	registerErrorType(L)
	h.registerObjectType(L)
	h.registerDB(L)

	if sys, err := r.proxy.System(ctx); err == nil {
		L.SetGlobal("system", objectOrNil(L, sys))
	}
	if t, ok := core.TaskFrom(ctx); ok {
		L.SetGlobal("player", newObject(L, t.Player))
	}
	return L, h, nil
}

// RunVerb runs a verb matched by the dispatcher. The script sees this, verb
// and args = {verb, argstr, dobjstr, dobj}.
func (r *Runtime) RunVerb(ctx context.Context, inv command.Invocation) (err error) {
	defer func(start time.Time) { observe(KindVerb, start, err) }(time.Now())
	if inv.Verb == nil {
		return oops.In("script").Code(world.CodeInvalidArgument).Errorf("no verb to run")
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	L, _, err := r.newState(ctx)
	if err != nil {
		return err
	}
	defer L.Close()
	L.SetContext(activate(ctx, inv.Verb.Owner))

	fn, err := L.LoadString(inv.Verb.Code)
	if err != nil {
		return hostError(ctx, err)
	}
	args := L.NewTable()
	L.SetField(args, "verb", lua.LString(inv.Command.Verb))
	L.SetField(args, "argstr", lua.LString(inv.Command.Argstr))
	L.SetField(args, "dobjstr", lua.LString(inv.Command.Dobjstr))
	if inv.Command.Dobj != world.None {
		L.SetField(args, "dobj", newObject(L, inv.Command.Dobj))
	}
	fn.Env = verbEnv(L, inv.This, inv.Command.Verb, args)

	return hostError(ctx, L.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true}))
}

// activate switches the task in ctx to the permissions of a verb owner.
func activate(ctx context.Context, owner ulid.ULID) context.Context {
	if t, ok := core.TaskFrom(ctx); ok {
		return core.WithTask(ctx, t.Activation(owner))
	}
	return ctx
}

// verbEnv is the global table of one verb activation. Reads fall through to
// the shared globals; writes stay local to the activation.
func verbEnv(L *lua.LState, this ulid.ULID, verb string, args *lua.LTable) *lua.LTable {
	env := L.NewTable()
	meta := L.NewTable()
	L.SetField(meta, "__index", L.G.Global)
	L.SetMetatable(env, meta)
	L.SetField(env, "this", newObject(L, this))
	L.SetField(env, "verb", lua.LString(verb))
	L.SetField(env, "args", args)
	return env
}

// prepare resolves name on ref and loads its code for a verb-to-verb call.
// The verb must be executable. It returns the verb owner.
func (h *host) prepare(L *lua.LState, ref objectRef, name string, args []lua.LValue) (*lua.LFunction, ulid.ULID, error) {
	d, err := h.proxy.ResolveVerb(L.Context(), ref.id.String(), name)
	if err != nil {
		return nil, world.None, err
	}
	owner, err := world.ParseID(d.Owner)
	if err != nil {
		return nil, world.None, err
	}
	if !strings.Contains(d.Perms, "x") {
		return nil, world.None, oops.In("script").
			Code(world.CodePermissionDenied).
			With("verb", name).
			With("definer", d.Definer).
			Errorf("verb %s is not executable", name)
	}
	fn, err := L.LoadString(d.Code)
	if err != nil {
		return nil, world.None, oops.In("script").Code(CodeCompileError).With("verb", name).Wrap(err)
	}
	t := L.CreateTable(len(args), 0)
	for _, a := range args {
		t.Append(a)
	}
	fn.Env = verbEnv(L, ref.id, name, t)
	return fn, owner, nil
}

func stackArgs(L *lua.LState, first int) []lua.LValue {
	var out []lua.LValue
	for i := first; i <= L.GetTop(); i++ {
		out = append(out, L.Get(i))
	}
	return out
}

// verbFunction backs obj:name(...). Failures are raised.
func (h *host) verbFunction(L *lua.LState, name string) *lua.LFunction {
	return L.NewFunction(func(L *lua.LState) int {
		ref := checkObject(L, 1)
		args := stackArgs(L, 2)
		fn, owner, err := h.prepare(L, ref, name, args)
		if err != nil {
			raise(L, err)
			return 0
		}
		prev := L.Context()
		L.SetContext(activate(prev, owner))
		defer L.SetContext(prev)

		base := L.GetTop()
		L.Push(fn)
		for _, a := range args {
			L.Push(a)
		}
		L.Call(len(args), lua.MultRet)
		return L.GetTop() - base
	})
}

// call backs db.call(obj, name, ...), which returns (result, nil) or
// (nil, err) instead of raising.
func (h *host) call(L *lua.LState) int {
	ref := checkObject(L, 1)
	name := L.CheckString(2)
	args := stackArgs(L, 3)
	fn, owner, err := h.prepare(L, ref, name, args)
	if err != nil {
		return pushError(L, err)
	}
	prev := L.Context()
	L.SetContext(activate(prev, owner))
	defer L.SetContext(prev)

	L.Push(fn)
	for _, a := range args {
		L.Push(a)
	}
	if err := L.PCall(len(args), 1, nil); err != nil {
		var apiErr *lua.ApiError
		if errors.As(err, &apiErr) {
			if t, ok := apiErr.Object.(*lua.LTable); ok && t.RawGetString("code") != lua.LNil {
				L.Push(lua.LNil)
				L.Push(t)
				return 2
			}
		}
		return pushError(L, hostError(L.Context(), err))
	}
	ret := L.Get(-1)
	L.Pop(1)
	return pushSuccess(L, ret)
}
