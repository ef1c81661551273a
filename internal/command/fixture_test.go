// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Roo Contributors

package command

import (
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/require"

	"github.com/roomoo/roo/internal/world"
)

// testWorld is a bootstrapped database with a room, a player standing in
// it, a lamp in the player's inventory and a box in the room.
type testWorld struct {
	db     *world.Database
	boot   world.Bootstrapped
	room   ulid.ULID
	player ulid.ULID
	lamp   ulid.ULID
	box    ulid.ULID
}

func newTestWorld(t *testing.T) *testWorld {
	t.Helper()
	db := world.NewDatabase()
	boot, err := world.Bootstrap(db)
	require.NoError(t, err)
	w := &testWorld{db: db, boot: boot}

	w.room = w.create(t, "Lobby")
	w.player = w.create(t, "alice")
	require.NoError(t, db.SetPlayerFlag(w.player, true, boot.Wizard))
	w.lamp = w.create(t, "lamp")
	w.box = w.create(t, "box")

	require.NoError(t, db.Move(w.player, w.room, boot.Wizard))
	require.NoError(t, db.Move(w.lamp, w.player, boot.Wizard))
	require.NoError(t, db.Move(w.box, w.room, boot.Wizard))
	return w
}

func (w *testWorld) create(t *testing.T, name string) ulid.ULID {
	t.Helper()
	id, err := w.db.Create(w.boot.System, nil, w.boot.Wizard)
	require.NoError(t, err)
	require.NoError(t, w.db.SetName(id, name, w.boot.Wizard))
	return id
}

func (w *testWorld) addVerb(t *testing.T, on ulid.ULID, args world.ArgSpec, names ...string) {
	t.Helper()
	v, err := world.NewVerb(names, w.boot.Wizard, world.VerbPerms{Read: true, Exec: true}, args, "return true")
	require.NoError(t, err)
	require.NoError(t, w.db.AddVerb(on, v, w.boot.Wizard))
}
