// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Roo Contributors

package script_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roomoo/roo/internal/core"
	"github.com/roomoo/roo/internal/script"
	"github.com/roomoo/roo/internal/world"
)

type fixture struct {
	boot     world.Bootstrapped
	proxy    *core.Proxy
	notifier *core.Notifier
	rt       *script.Runtime
	wizard   context.Context
}

func newFixture(t *testing.T, opts ...script.Option) *fixture {
	t.Helper()
	db := world.NewDatabase()
	boot, err := world.Bootstrap(db)
	require.NoError(t, err)

	notifier := core.NewNotifier()
	proxy := core.NewProxy(core.NewShared(db),
		core.WithCodeValidator(script.Validator),
		core.WithNotifier(notifier),
	)
	opts = append([]script.Option{script.WithTimeout(2 * time.Second)}, opts...)
	return &fixture{
		boot:     boot,
		proxy:    proxy,
		notifier: notifier,
		rt:       script.New(proxy, opts...),
		wizard:   core.WithTask(context.Background(), core.NewTask(boot.Wizard)),
	}
}

func (f *fixture) sys() string { return f.boot.System.String() }

func (f *fixture) eval(t *testing.T, src string) string {
	t.Helper()
	out, err := f.rt.Eval(f.wizard, src)
	require.NoError(t, err, "eval %q", src)
	return out
}

func (f *fixture) addVerb(t *testing.T, names, perms, code string) {
	t.Helper()
	require.NoError(t, f.proxy.AddVerb(f.wizard, f.sys(), core.VerbDescriptor{
		Names: []string{names},
		Perms: perms,
		Args:  "none",
		Code:  code,
	}))
}
