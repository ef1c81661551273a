// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Roo Contributors

package core_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roomoo/roo/internal/core"
	"github.com/roomoo/roo/internal/world"
)

type fixture struct {
	db     *world.Database
	shared *core.Shared
	proxy  *core.Proxy
	boot   world.Bootstrapped
	wizard context.Context
}

func newFixture(t *testing.T, opts ...core.ProxyOption) *fixture {
	t.Helper()
	db := world.NewDatabase()
	boot, err := world.Bootstrap(db)
	require.NoError(t, err)
	shared := core.NewShared(db)
	return &fixture{
		db:     db,
		shared: shared,
		proxy:  core.NewProxy(shared, opts...),
		boot:   boot,
		wizard: core.WithTask(context.Background(), core.NewTask(boot.Wizard)),
	}
}

func (f *fixture) sys() string { return f.boot.System.String() }

// player creates a self-owned, non-wizard player and returns its id and a
// context running as it.
func (f *fixture) player(t *testing.T, name string) (string, context.Context) {
	t.Helper()
	id, err := f.proxy.Create(f.wizard, f.sys(), "self")
	require.NoError(t, err)
	require.NoError(t, f.proxy.SetProperty(f.wizard, id, world.PropName, world.Str(name)))
	require.NoError(t, f.proxy.SetPlayerFlag(f.wizard, id, true))
	pid, err := world.ParseID(id)
	require.NoError(t, err)
	return id, core.WithTask(context.Background(), core.NewTask(pid))
}
