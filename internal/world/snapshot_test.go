// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Roo Contributors

package world_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roomoo/roo/internal/world"
	"github.com/roomoo/roo/pkg/errutil"
)

func populated(t *testing.T) *fixture {
	t.Helper()
	f := newFixture(t)
	alice := f.user(t, "alice")
	room := f.obj(t, world.None, alice)
	require.NoError(t, f.db.SetName(room, "Lobby", alice))
	lamp := f.obj(t, room, alice)
	require.NoError(t, f.db.Move(lamp, room, alice))
	require.NoError(t, f.db.Move(alice, room, f.wiz))
	require.NoError(t, f.db.AddProperty(room, "exits", world.List(world.Obj(lamp), world.Str("north")),
		world.PropertyInfo{Owner: alice, Perms: world.PropertyPerms{Read: true, Chown: true}}, alice))
	v, err := world.NewVerb([]string{"look", "l*"}, alice, world.VerbPerms{Read: true, Exec: true}, world.ArgsAny, "return 1")
	require.NoError(t, err)
	require.NoError(t, f.db.AddVerb(room, v, alice))
	return f
}

func TestSnapshot_RoundTrip(t *testing.T) {
	f := populated(t)
	snap := f.db.Export()

	data, err := world.EncodeSnapshot(snap)
	require.NoError(t, err)
	decoded, err := world.DecodeSnapshot(data)
	require.NoError(t, err)
	restored, err := world.Import(decoded)
	require.NoError(t, err)

	again := restored.Export()
	again.SavedAt = snap.SavedAt
	assert.Equal(t, snap, again)
	assert.Equal(t, f.db.Players(), restored.Players())
	assert.Equal(t, f.boot.Nothing, restored.WellKnown(world.SysNothing))
}

func TestSnapshot_GeneratedSchemaAcceptsExport(t *testing.T) {
	schema, err := world.GenerateSnapshotSchema()
	require.NoError(t, err)
	assert.Contains(t, string(schema), world.SnapshotSchemaID)

	data, err := world.EncodeSnapshot(populated(t).db.Export())
	require.NoError(t, err)
	require.NoError(t, world.ValidateSnapshotJSON(data))
}

func TestSnapshot_ValidateRejectsGarbage(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"empty", ""},
		{"not json", "{objects"},
		{"wrong shape", `{"format":"1.0.0","objects":"many"}`},
		{"missing objects", `{"format":"1.0.0","saved_at":"2026-01-01T00:00:00Z","system":"none"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errutil.AssertErrorCode(t, world.ValidateSnapshotJSON([]byte(tt.data)), world.CodeCorruptSnapshot)
		})
	}
}

func TestSnapshot_ImportRejectsInconsistency(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*world.Snapshot)
	}{
		{"future major format", func(s *world.Snapshot) { s.Format = "2.0.0" }},
		{"unparseable format", func(s *world.Snapshot) { s.Format = "one" }},
		{"duplicate object", func(s *world.Snapshot) { s.Objects = append(s.Objects, s.Objects[0]) }},
		{"dangling parent", func(s *world.Snapshot) { s.Objects[0].Parent = world.NewID().String() }},
		{"asymmetric child", func(s *world.Snapshot) { s.Objects[0].Children = nil; s.Objects[1].Children = nil }},
		{"asymmetric contents", func(s *world.Snapshot) {
			for i := range s.Objects {
				s.Objects[i].Contents = nil
			}
		}},
		{"missing system", func(s *world.Snapshot) { s.System = world.NewID().String() }},
		{"missing player", func(s *world.Snapshot) { s.Players = append(s.Players, world.NewID().String()) }},
		{"bad perms", func(s *world.Snapshot) {
			for i := range s.Objects {
				if len(s.Objects[i].Properties) > 0 {
					s.Objects[i].Properties[0].Perms = "z"
					return
				}
			}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := cloneSnapshot(t, populated(t).db.Export())
			tt.mutate(snap)
			_, err := world.Import(snap)
			errutil.AssertErrorCode(t, err, world.CodeCorruptSnapshot)
		})
	}
}

func TestSnapshot_ImportRejectsParentCycle(t *testing.T) {
	a, b := world.NewID().String(), world.NewID().String()
	snap := &world.Snapshot{
		Format: world.SnapshotFormat,
		System: "none",
		Objects: []world.ObjectRecord{
			{ID: a, Owner: a, Parent: b, Children: []string{b}},
			{ID: b, Owner: a, Parent: a, Children: []string{a}},
		},
	}
	_, err := world.Import(snap)
	errutil.AssertErrorCode(t, err, world.CodeCorruptSnapshot)
}

func cloneSnapshot(t *testing.T, s *world.Snapshot) *world.Snapshot {
	t.Helper()
	data, err := json.Marshal(s)
	require.NoError(t, err)
	var out world.Snapshot
	require.NoError(t, json.Unmarshal(data, &out))
	return &out
}
