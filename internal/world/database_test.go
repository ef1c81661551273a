// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Roo Contributors

package world_test

import (
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roomoo/roo/internal/world"
	"github.com/roomoo/roo/pkg/errutil"
)

type fixture struct {
	db   *world.Database
	boot world.Bootstrapped
	wiz  ulid.ULID
}

func newFixture(t *testing.T, opts ...world.Option) *fixture {
	t.Helper()
	db := world.NewDatabase(opts...)
	boot, err := world.Bootstrap(db)
	require.NoError(t, err)
	return &fixture{db: db, boot: boot, wiz: boot.Wizard}
}

// user creates a self-owned, non-wizard player.
func (f *fixture) user(t *testing.T, name string) ulid.ULID {
	t.Helper()
	none := world.None
	id, err := f.db.Create(f.boot.System, &none, f.wiz)
	require.NoError(t, err)
	require.NoError(t, f.db.SetName(id, name, f.wiz))
	require.NoError(t, f.db.SetPlayerFlag(id, true, f.wiz))
	return id
}

// obj creates an object owned by requester under parent.
func (f *fixture) obj(t *testing.T, parent, requester ulid.ULID) ulid.ULID {
	t.Helper()
	id, err := f.db.Create(parent, nil, requester)
	require.NoError(t, err)
	return id
}

func readable(owner ulid.ULID) world.PropertyInfo {
	return world.PropertyInfo{Owner: owner, Perms: world.PropertyPerms{Read: true}}
}

// assertConsistent round-trips the database through a snapshot, which
// re-checks relation symmetry and acyclicity.
func assertConsistent(t *testing.T, db *world.Database) {
	t.Helper()
	_, err := world.Import(db.Export())
	require.NoError(t, err)
}

func TestCreate_Permissions(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice")
	bob := f.user(t, "bob")

	sterile := f.obj(t, world.None, alice)
	fertile := f.obj(t, world.None, alice)
	require.NoError(t, f.db.SetProperty(fertile, world.PropFertile, world.Bool(true), alice))

	tests := []struct {
		name      string
		parent    ulid.ULID
		requester ulid.ULID
		wantCode  string
	}{
		{"no parent", world.None, bob, ""},
		{"fertile parent", fertile, bob, ""},
		{"own sterile parent", sterile, alice, ""},
		{"wizard on sterile parent", sterile, f.wiz, ""},
		{"someone else's sterile parent", sterile, bob, world.CodePermissionDenied},
		{"invalid parent", world.NewID(), bob, world.CodeInvalidArgument},
		{"invalid requester", world.None, world.NewID(), world.CodePermissionDenied},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := f.db.Len()
			id, err := f.db.Create(tt.parent, nil, tt.requester)
			if tt.wantCode != "" {
				errutil.AssertErrorCode(t, err, tt.wantCode)
				assert.Equal(t, world.None, id)
				assert.Equal(t, before, f.db.Len(), "failed create must not add objects")
				return
			}
			require.NoError(t, err)
			o, err := f.db.Object(id)
			require.NoError(t, err)
			assert.Equal(t, tt.parent, o.Parent)
			assert.Equal(t, tt.requester, o.Owner)
			if tt.parent != world.None {
				p, err := f.db.Object(tt.parent)
				require.NoError(t, err)
				assert.True(t, p.HasChild(id))
			}
		})
	}
	assertConsistent(t, f.db)
}

func TestCreate_OwnerResolution(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice")
	bob := f.user(t, "bob")
	none := world.None

	t.Run("defaults to requester", func(t *testing.T) {
		id, err := f.db.Create(world.None, nil, alice)
		require.NoError(t, err)
		o, _ := f.db.Object(id)
		assert.Equal(t, alice, o.Owner)
	})

	t.Run("wizard gives ownership away", func(t *testing.T) {
		id, err := f.db.Create(world.None, &bob, f.wiz)
		require.NoError(t, err)
		o, _ := f.db.Object(id)
		assert.Equal(t, bob, o.Owner)
	})

	t.Run("wizard makes self-owned object", func(t *testing.T) {
		id, err := f.db.Create(world.None, &none, f.wiz)
		require.NoError(t, err)
		o, _ := f.db.Object(id)
		assert.Equal(t, id, o.Owner)
	})

	t.Run("non-wizard override rejected", func(t *testing.T) {
		_, err := f.db.Create(world.None, &bob, alice)
		errutil.AssertErrorCode(t, err, world.CodePermissionDenied)
		_, err = f.db.Create(world.None, &none, alice)
		errutil.AssertErrorCode(t, err, world.CodePermissionDenied)
	})

	t.Run("explicit self is fine", func(t *testing.T) {
		id, err := f.db.Create(world.None, &alice, alice)
		require.NoError(t, err)
		o, _ := f.db.Object(id)
		assert.Equal(t, alice, o.Owner)
	})
}

func TestCreate_CopiesNothingFromParent(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice")
	parent := f.obj(t, world.None, alice)
	require.NoError(t, f.db.AddProperty(parent, "x", world.Int(1), readable(alice), alice))
	require.NoError(t, f.db.SetName(parent, "Parent", alice))

	child := f.obj(t, parent, alice)
	o, err := f.db.Object(child)
	require.NoError(t, err)
	assert.Empty(t, o.PropertyNames())
	assert.Empty(t, o.Name)
	assert.Empty(t, o.Verbs())
}

func TestCreate_Quota(t *testing.T) {
	f := newFixture(t, world.WithQuota(2))
	alice := f.user(t, "alice")

	f.obj(t, world.None, alice)
	f.obj(t, world.None, alice)
	_, err := f.db.Create(world.None, nil, alice)
	errutil.AssertErrorCode(t, err, world.CodeQuota)

	// Wizards are not limited.
	for range 3 {
		f.obj(t, world.None, f.wiz)
	}
}

func TestChparent_RejectsCycles(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice")
	a := f.obj(t, world.None, alice)
	b := f.obj(t, a, alice)
	c := f.obj(t, b, alice)

	err := f.db.Chparent(a, a, alice)
	errutil.AssertErrorCode(t, err, world.CodeRecursiveMove)

	err = f.db.Chparent(a, c, alice)
	errutil.AssertErrorCode(t, err, world.CodeRecursiveMove)

	o, _ := f.db.Object(a)
	assert.Equal(t, world.None, o.Parent)
	assertConsistent(t, f.db)
}

func TestChparent_Permissions(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice")
	bob := f.user(t, "bob")
	mine := f.obj(t, world.None, alice)
	bobsSterile := f.obj(t, world.None, bob)
	bobsFertile := f.obj(t, world.None, bob)
	require.NoError(t, f.db.SetProperty(bobsFertile, world.PropFertile, world.Bool(true), bob))

	tests := []struct {
		name      string
		id        ulid.ULID
		parent    ulid.ULID
		requester ulid.ULID
		wantCode  string
	}{
		{"someone else's object", bobsSterile, world.None, alice, world.CodePermissionDenied},
		{"someone else's sterile parent", mine, bobsSterile, alice, world.CodePermissionDenied},
		{"fertile parent", mine, bobsFertile, alice, ""},
		{"wizard anywhere", mine, bobsSterile, f.wiz, ""},
		{"back to no parent", mine, world.None, alice, ""},
		{"invalid object", world.NewID(), world.None, alice, world.CodeInvalidArgument},
		{"invalid parent", mine, world.NewID(), alice, world.CodeInvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := f.db.Chparent(tt.id, tt.parent, tt.requester)
			if tt.wantCode != "" {
				errutil.AssertErrorCode(t, err, tt.wantCode)
				return
			}
			require.NoError(t, err)
			o, _ := f.db.Object(tt.id)
			assert.Equal(t, tt.parent, o.Parent)
		})
	}
	assertConsistent(t, f.db)
}

func TestChparent_UpdatesBothChildSets(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice")
	p1 := f.obj(t, world.None, alice)
	p2 := f.obj(t, world.None, alice)
	c := f.obj(t, p1, alice)

	require.NoError(t, f.db.Chparent(c, p2, alice))

	o1, _ := f.db.Object(p1)
	o2, _ := f.db.Object(p2)
	assert.False(t, o1.HasChild(c))
	assert.True(t, o2.HasChild(c))
	assert.Equal(t, []ulid.ULID{p2}, f.db.Ancestors(c))
}

func TestChparent_ShadowingRejected(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice")
	r := f.obj(t, world.None, alice)
	s := f.obj(t, world.None, alice)
	grandchild := f.obj(t, f.obj(t, s, alice), alice)
	require.NoError(t, f.db.AddProperty(r, "x", world.Int(1), readable(alice), alice))

	t.Run("object defines the name", func(t *testing.T) {
		require.NoError(t, f.db.AddProperty(s, "x", world.Int(2), readable(alice), alice))
		err := f.db.Chparent(s, r, alice)
		errutil.AssertErrorCode(t, err, world.CodeInvalidArgument)
		errutil.AssertErrorContext(t, err, "property", "x")
		o, _ := f.db.Object(s)
		assert.Equal(t, world.None, o.Parent)
		require.NoError(t, f.db.DeleteProperty(s, "x", alice))
	})

	t.Run("descendant defines the name", func(t *testing.T) {
		require.NoError(t, f.db.AddProperty(grandchild, "x", world.Int(3), readable(alice), alice))
		err := f.db.Chparent(s, r, alice)
		errutil.AssertErrorCode(t, err, world.CodeInvalidArgument)
		require.NoError(t, f.db.DeleteProperty(grandchild, "x", alice))
	})

	t.Run("ancestor of new parent defines the name", func(t *testing.T) {
		mid := f.obj(t, r, alice)
		require.NoError(t, f.db.AddProperty(s, "x", world.Int(4), readable(alice), alice))
		err := f.db.Chparent(s, mid, alice)
		errutil.AssertErrorCode(t, err, world.CodeInvalidArgument)
		require.NoError(t, f.db.DeleteProperty(s, "x", alice))
	})

	t.Run("no collision", func(t *testing.T) {
		require.NoError(t, f.db.Chparent(s, r, alice))
	})
	assertConsistent(t, f.db)
}

func TestChparent_LocalCopiesMoveBetweenSiblingClasses(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice")
	base := f.obj(t, world.None, alice)
	require.NoError(t, f.db.AddProperty(base, "description", world.Str(""), readable(alice), alice))
	kitchen := f.obj(t, base, alice)
	garden := f.obj(t, base, alice)
	room := f.obj(t, kitchen, alice)
	require.NoError(t, f.db.SetProperty(room, "description", world.Str("Sunny."), alice))

	require.NoError(t, f.db.Chparent(room, garden, alice))

	v, err := f.db.GetProperty(room, "description", alice)
	require.NoError(t, err)
	assert.True(t, v.Equal(world.Str("Sunny.")))
	assertConsistent(t, f.db)
}

func TestChparent_LocalCopyCollidesWithUnrelatedDefinition(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice")
	base := f.obj(t, world.None, alice)
	other := f.obj(t, world.None, alice)
	require.NoError(t, f.db.AddProperty(base, "p", world.Int(1), readable(alice), alice))
	require.NoError(t, f.db.AddProperty(other, "p", world.Str("unrelated"), readable(alice), alice))
	c := f.obj(t, base, alice)
	require.NoError(t, f.db.SetProperty(c, "p", world.Int(2), alice))

	err := f.db.Chparent(c, other, alice)
	errutil.AssertErrorCode(t, err, world.CodeInvalidArgument)
	errutil.AssertErrorContext(t, err, "property", "p")

	o, _ := f.db.Object(c)
	assert.Equal(t, base, o.Parent)
	assertConsistent(t, f.db)
}

func TestChparent_InheritedPropertiesFollowTheNewParent(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice")
	oldParent := f.obj(t, world.None, alice)
	newParent := f.obj(t, world.None, alice)
	require.NoError(t, f.db.AddProperty(oldParent, "color", world.Str("red"), readable(alice), alice))
	require.NoError(t, f.db.AddProperty(newParent, "size", world.Int(3), readable(alice), alice))
	child := f.obj(t, oldParent, alice)
	require.NoError(t, f.db.AddProperty(child, "mine", world.Bool(true), readable(alice), alice))

	require.NoError(t, f.db.Chparent(child, newParent, alice))

	_, err := f.db.GetProperty(child, "color", alice)
	errutil.AssertErrorCode(t, err, world.CodePropertyNotFound)
	size, err := f.db.GetProperty(child, "size", alice)
	require.NoError(t, err)
	assert.True(t, size.Equal(world.Int(3)))
	mine, err := f.db.GetProperty(child, "mine", alice)
	require.NoError(t, err)
	assert.True(t, mine.Equal(world.Bool(true)), "local properties travel with the object")
}

func TestMove(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice")
	bob := f.user(t, "bob")
	room := f.obj(t, world.None, alice)
	box := f.obj(t, world.None, alice)
	ball := f.obj(t, world.None, alice)

	require.NoError(t, f.db.Move(box, room, alice))
	require.NoError(t, f.db.Move(ball, box, alice))

	t.Run("contents and location agree", func(t *testing.T) {
		r, _ := f.db.Object(room)
		b, _ := f.db.Object(box)
		assert.True(t, r.Contains(box))
		assert.Equal(t, room, b.Location)
		assert.True(t, b.Contains(ball))
	})

	t.Run("into itself", func(t *testing.T) {
		errutil.AssertErrorCode(t, f.db.Move(box, box, alice), world.CodeRecursiveMove)
	})

	t.Run("into something it contains", func(t *testing.T) {
		errutil.AssertErrorCode(t, f.db.Move(room, ball, alice), world.CodeRecursiveMove)
	})

	t.Run("someone else's object", func(t *testing.T) {
		errutil.AssertErrorCode(t, f.db.Move(ball, room, bob), world.CodePermissionDenied)
	})

	t.Run("invalid object", func(t *testing.T) {
		errutil.AssertErrorCode(t, f.db.Move(world.NewID(), room, alice), world.CodeInvalidIndirection)
	})

	t.Run("invalid destination", func(t *testing.T) {
		errutil.AssertErrorCode(t, f.db.Move(ball, world.NewID(), alice), world.CodeInvalidArgument)
	})

	t.Run("out to nowhere", func(t *testing.T) {
		require.NoError(t, f.db.Move(ball, world.None, alice))
		b, _ := f.db.Object(box)
		assert.False(t, b.Contains(ball))
	})
	assertConsistent(t, f.db)
}

func TestMove_AcceptingPolicy(t *testing.T) {
	var closed ulid.ULID
	policy := world.AcceptingPolicy{Accept: func(_ *world.Database, _, to ulid.ULID) bool {
		return to != closed
	}}
	f := newFixture(t, world.WithMovePolicy(policy))
	alice := f.user(t, "alice")
	closed = f.obj(t, world.None, alice)
	open := f.obj(t, world.None, alice)
	thing := f.obj(t, world.None, alice)

	errutil.AssertErrorCode(t, f.db.Move(thing, closed, alice), world.CodeNotAccepted)
	require.NoError(t, f.db.Move(thing, open, alice))
	require.NoError(t, f.db.Move(thing, world.None, alice))
}

func TestProperty_RoundTrip(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice")
	o := f.obj(t, world.None, alice)
	require.NoError(t, f.db.AddProperty(o, "p", world.Int(0), readable(alice), alice))

	values := []world.Value{
		world.Bool(true),
		world.Str("text"),
		world.Int(12),
		world.Obj(o),
		world.OptObj(world.None),
		world.ObjSet(o, alice),
		world.List(world.Int(1), world.List(world.Str("x"))),
		world.Code("return 1"),
	}
	for _, v := range values {
		t.Run(v.Kind().String(), func(t *testing.T) {
			require.NoError(t, f.db.SetProperty(o, "p", v, alice))
			got, err := f.db.GetProperty(o, "p", alice)
			require.NoError(t, err)
			assert.True(t, v.Equal(got))
		})
	}
}

func TestProperty_Inheritance(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice")
	r := f.obj(t, world.None, alice)
	s := f.obj(t, r, alice)
	require.NoError(t, f.db.AddProperty(r, "x", world.Int(5), readable(alice), alice))

	got, err := f.db.GetProperty(s, "x", alice)
	require.NoError(t, err)
	assert.True(t, got.Equal(world.Int(5)))

	require.NoError(t, f.db.AddProperty(s, "x", world.Int(7), readable(alice), alice))
	got, err = f.db.GetProperty(s, "x", alice)
	require.NoError(t, err)
	assert.True(t, got.Equal(world.Int(7)))

	got, err = f.db.GetProperty(r, "x", alice)
	require.NoError(t, err)
	assert.True(t, got.Equal(world.Int(5)), "ancestor is unchanged")

	_, err = f.db.GetProperty(s, "missing", alice)
	errutil.AssertErrorCode(t, err, world.CodePropertyNotFound)
}

func TestProperty_SetInheritedMaterialisesCopy(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice")
	bob := f.user(t, "bob")
	class := f.obj(t, world.None, alice)
	require.NoError(t, f.db.SetProperty(class, world.PropFertile, world.Bool(true), alice))
	require.NoError(t, f.db.AddProperty(class, "plain", world.Int(1),
		world.PropertyInfo{Owner: alice, Perms: world.PropertyPerms{Read: true, Write: true}}, alice))
	require.NoError(t, f.db.AddProperty(class, "chowned", world.Int(1),
		world.PropertyInfo{Owner: alice, Perms: world.PropertyPerms{Read: true, Write: true, Chown: true}}, alice))
	instance := f.obj(t, class, bob)

	require.NoError(t, f.db.SetProperty(instance, "plain", world.Int(2), bob))
	require.NoError(t, f.db.SetProperty(instance, "chowned", world.Int(2), bob))

	inst, _ := f.db.Object(instance)
	plain, ok := inst.Property("plain")
	require.True(t, ok)
	assert.Equal(t, alice, plain.Info.Owner)
	chowned, ok := inst.Property("chowned")
	require.True(t, ok)
	assert.Equal(t, bob, chowned.Info.Owner)

	got, err := f.db.GetProperty(class, "plain", alice)
	require.NoError(t, err)
	assert.True(t, got.Equal(world.Int(1)))
}

func TestProperty_Permissions(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice")
	bob := f.user(t, "bob")
	o := f.obj(t, world.None, alice)
	require.NoError(t, f.db.AddProperty(o, "secret", world.Str("s"), world.PropertyInfo{Owner: alice}, alice))

	_, err := f.db.GetProperty(o, "secret", bob)
	errutil.AssertErrorCode(t, err, world.CodePermissionDenied)
	_, err = f.db.GetProperty(o, "secret", f.wiz)
	require.NoError(t, err)

	errutil.AssertErrorCode(t, f.db.SetProperty(o, "secret", world.Str("t"), bob), world.CodePermissionDenied)
	errutil.AssertErrorCode(t,
		f.db.AddProperty(o, "other", world.Int(1), readable(bob), bob), world.CodePermissionDenied)
	errutil.AssertErrorCode(t,
		f.db.AddProperty(o, "given", world.Int(1), readable(bob), alice), world.CodePermissionDenied)
}

func TestProperty_AddErrors(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice")
	o := f.obj(t, world.None, alice)
	require.NoError(t, f.db.AddProperty(o, "x", world.Int(1), readable(alice), alice))

	tests := []struct {
		name     string
		prop     string
		value    world.Value
		info     world.PropertyInfo
		wantCode string
	}{
		{"duplicate", "x", world.Int(2), readable(alice), world.CodeInvalidArgument},
		{"built-in name", world.PropLocation, world.Int(2), readable(alice), world.CodeInvalidArgument},
		{"invalid owner", "y", world.Int(2), readable(world.NewID()), world.CodeInvalidArgument},
		{"dangling reference", "z", world.Obj(world.NewID()), readable(alice), world.CodeInvalidIndirection},
		{"bad name", "1x", world.Int(2), readable(alice), world.CodeInvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := f.db.AddProperty(o, tt.prop, tt.value, tt.info, alice)
			errutil.AssertErrorCode(t, err, tt.wantCode)
		})
	}
}

func TestProperty_Builtins(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice")
	room := f.obj(t, world.None, alice)
	o := f.obj(t, world.None, alice)
	require.NoError(t, f.db.Move(o, room, alice))

	loc, err := f.db.GetProperty(o, world.PropLocation, alice)
	require.NoError(t, err)
	assert.True(t, loc.Equal(world.OptObj(room)))

	contents, err := f.db.GetProperty(room, world.PropContents, alice)
	require.NoError(t, err)
	assert.True(t, contents.Equal(world.ObjSet(o)))

	isPlayer, err := f.db.GetProperty(alice, world.PropPlayer, alice)
	require.NoError(t, err)
	assert.True(t, isPlayer.Equal(world.Bool(true)))

	tests := []struct {
		name      string
		prop      string
		value     world.Value
		requester ulid.ULID
		wantCode  string
	}{
		{"rename", world.PropName, world.Str("lamp"), alice, ""},
		{"rename wrong kind", world.PropName, world.Int(1), alice, world.CodeTypeMismatch},
		{"identity is read-only", world.PropID, world.Obj(room), f.wiz, world.CodePermissionDenied},
		{"location needs move", world.PropLocation, world.OptObj(world.None), alice, world.CodeInvalidArgument},
		{"parent needs chparent", world.PropParent, world.OptObj(world.None), alice, world.CodeInvalidArgument},
		{"wizard bit for wizards", world.PropWizard, world.Bool(true), alice, world.CodePermissionDenied},
		{"owner change for wizards", world.PropOwner, world.Obj(alice), alice, world.CodePermissionDenied},
		{"wizard changes owner", world.PropOwner, world.Obj(f.wiz), f.wiz, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := f.db.SetProperty(o, tt.prop, tt.value, tt.requester)
			if tt.wantCode != "" {
				errutil.AssertErrorCode(t, err, tt.wantCode)
				return
			}
			require.NoError(t, err)
			got, err := f.db.GetProperty(o, tt.prop, tt.requester)
			require.NoError(t, err)
			assert.True(t, got.Equal(tt.value))
		})
	}
}

func TestSetIntoList(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice")
	o := f.obj(t, world.None, alice)
	require.NoError(t, f.db.AddProperty(o, "l", world.List(world.Int(1)), readable(alice), alice))
	require.NoError(t, f.db.AddProperty(o, "n", world.Int(1), readable(alice), alice))

	require.NoError(t, f.db.SetIntoList(o, "l", []int{1}, world.Int(2), alice))
	got, err := f.db.GetProperty(o, "l", alice)
	require.NoError(t, err)
	assert.True(t, got.Equal(world.List(world.Int(1), world.Int(2))))

	errutil.AssertErrorCode(t, f.db.SetIntoList(o, "l", []int{5}, world.Int(2), alice), world.CodeRange)
	errutil.AssertErrorCode(t, f.db.SetIntoList(o, "n", []int{0}, world.Int(2), alice), world.CodeTypeMismatch)
	errutil.AssertErrorCode(t, f.db.SetIntoList(o, "none", []int{0}, world.Int(2), alice), world.CodePropertyNotFound)
}

func TestPropertyInfo(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice")
	parent := f.obj(t, world.None, alice)
	child := f.obj(t, parent, alice)
	require.NoError(t, f.db.AddProperty(parent, "x", world.Int(1),
		world.PropertyInfo{Owner: alice, Perms: world.PropertyPerms{Read: true, Chown: true}}, alice))

	info, definer, err := f.db.PropertyInfo(child, "x", alice)
	require.NoError(t, err)
	assert.Equal(t, parent, definer)
	assert.Equal(t, alice, info.Owner)
	assert.Equal(t, "rc", info.Perms.String())

	require.NoError(t, f.db.SetPropertyInfo(parent, "x",
		world.PropertyInfo{Owner: alice, Perms: world.PropertyPerms{Read: true}, NewName: "y"}, alice))
	_, _, err = f.db.PropertyInfo(child, "x", alice)
	errutil.AssertErrorCode(t, err, world.CodePropertyNotFound)
	info, _, err = f.db.PropertyInfo(child, "y", alice)
	require.NoError(t, err)
	assert.Equal(t, "r", info.Perms.String())
}

func TestVerbs(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice")
	bob := f.user(t, "bob")
	class := f.obj(t, world.None, alice)
	thing := f.obj(t, class, alice)

	look, err := world.NewVerb([]string{"look", "l"}, alice, world.VerbPerms{Read: true, Exec: true}, world.ArgsNone, "-- look")
	require.NoError(t, err)
	require.NoError(t, f.db.AddVerb(class, look, alice))

	t.Run("overlapping alias rejected", func(t *testing.T) {
		dup, err := world.NewVerb([]string{"l*"}, alice, world.VerbPerms{}, world.ArgsNone, "")
		require.NoError(t, err)
		errutil.AssertErrorCode(t, f.db.AddVerb(class, dup, alice), world.CodeInvalidArgument)
	})

	t.Run("overlap allowed on a descendant", func(t *testing.T) {
		override, err := world.NewVerb([]string{"look"}, alice, world.VerbPerms{}, world.ArgsThis, "-- override")
		require.NoError(t, err)
		require.NoError(t, f.db.AddVerb(thing, override, alice))
	})

	t.Run("add needs control", func(t *testing.T) {
		v, err := world.NewVerb([]string{"poke"}, bob, world.VerbPerms{}, world.ArgsNone, "")
		require.NoError(t, err)
		errutil.AssertErrorCode(t, f.db.AddVerb(class, v, bob), world.CodePermissionDenied)
	})

	t.Run("resolve walks ancestors", func(t *testing.T) {
		v, definer, err := f.db.ResolveVerb(thing, "look")
		require.NoError(t, err)
		assert.Equal(t, thing, definer)
		assert.Equal(t, "-- override", v.Code)

		v, definer, err = f.db.ResolveVerb(thing, "l")
		require.NoError(t, err)
		assert.Equal(t, class, definer)
		assert.Equal(t, "-- look", v.Code)

		_, _, err = f.db.ResolveVerb(thing, "dance")
		errutil.AssertErrorCode(t, err, world.CodeVerbNotFound)
	})

	t.Run("matching checks argument shape", func(t *testing.T) {
		v, definer, ok := f.db.MatchingVerb(thing, world.Command{Verb: "look"})
		require.True(t, ok)
		assert.Equal(t, class, definer)
		assert.Equal(t, "-- look", v.Code)

		v, definer, ok = f.db.MatchingVerb(thing, world.Command{Verb: "look", HasDobj: true, Dobj: thing})
		require.True(t, ok)
		assert.Equal(t, thing, definer)
		assert.Equal(t, "-- override", v.Code)

		_, _, ok = f.db.MatchingVerb(class, world.Command{Verb: "look", HasDobj: true, Dobj: thing})
		assert.False(t, ok)
	})

	t.Run("has verb with name", func(t *testing.T) {
		ok, err := f.db.HasVerbWithName(thing, "l")
		require.NoError(t, err)
		assert.True(t, ok)
		ok, err = f.db.HasVerbWithName(thing, "dance")
		require.NoError(t, err)
		assert.False(t, ok)
		_, err = f.db.HasVerbWithName(world.NewID(), "l")
		errutil.AssertErrorCode(t, err, world.CodeInvalidIndirection)
	})

	t.Run("set code by name and index", func(t *testing.T) {
		require.NoError(t, f.db.SetVerbCode(class, "look", "-- v2", alice))
		v, err := f.db.VerbInfo(class, "1", alice)
		require.NoError(t, err)
		assert.Equal(t, "-- v2", v.Code)
		errutil.AssertErrorCode(t, f.db.SetVerbCode(class, "2", "", alice), world.CodeVerbNotFound)
		errutil.AssertErrorCode(t, f.db.SetVerbCode(class, "look", "", bob), world.CodePermissionDenied)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, f.db.DeleteVerb(thing, "look", alice))
		_, definer, err := f.db.ResolveVerb(thing, "look")
		require.NoError(t, err)
		assert.Equal(t, class, definer)
	})
}

func TestPlayers(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice")
	thing := f.obj(t, world.None, alice)

	ok, err := f.db.IsPlayer(alice)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = f.db.IsPlayer(thing)
	require.NoError(t, err)
	assert.False(t, ok)

	errutil.AssertErrorCode(t, f.db.SetPlayerFlag(thing, true, alice), world.CodePermissionDenied)
	require.NoError(t, f.db.SetPlayerFlag(thing, true, f.wiz))
	assert.ElementsMatch(t, []ulid.ULID{f.wiz, alice, thing}, f.db.Players())

	require.NoError(t, f.db.SetPlayerFlag(thing, false, f.wiz))
	assert.NotContains(t, f.db.Players(), thing)

	_, err = f.db.IsPlayer(world.NewID())
	errutil.AssertErrorCode(t, err, world.CodeInvalidIndirection)
}

func TestRecycle(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice")
	bob := f.user(t, "bob")
	grand := f.obj(t, world.None, alice)
	victim := f.obj(t, grand, alice)
	child := f.obj(t, victim, alice)
	room := f.obj(t, world.None, alice)
	item := f.obj(t, world.None, alice)
	owned, err := f.db.Create(world.None, &victim, f.wiz)
	require.NoError(t, err)
	require.NoError(t, f.db.Move(victim, room, alice))
	require.NoError(t, f.db.Move(item, victim, alice))
	require.NoError(t, f.db.AddProperty(room, "ref", world.Obj(victim), readable(alice), alice))
	require.NoError(t, f.db.AddProperty(room, "opt", world.OptObj(victim), readable(alice), alice))
	require.NoError(t, f.db.AddProperty(room, "set", world.ObjSet(victim, item), readable(alice), alice))

	errutil.AssertErrorCode(t, f.db.Recycle(victim, bob), world.CodePermissionDenied)
	require.True(t, f.db.Valid(victim))

	require.NoError(t, f.db.Recycle(victim, alice))

	assert.False(t, f.db.Valid(victim))
	_, err = f.db.GetProperty(victim, world.PropName, alice)
	errutil.AssertErrorCode(t, err, world.CodeInvalidIndirection)

	c, _ := f.db.Object(child)
	assert.Equal(t, grand, c.Parent, "children move up to the recycled object's parent")
	g, _ := f.db.Object(grand)
	assert.True(t, g.HasChild(child))
	assert.False(t, g.HasChild(victim))

	it, _ := f.db.Object(item)
	assert.Equal(t, f.boot.Nothing, it.Location, "contents are evacuated to nothing")

	r, _ := f.db.Object(room)
	assert.False(t, r.Contains(victim))

	ow, _ := f.db.Object(owned)
	assert.Equal(t, alice, ow.Owner, "ownership passes to the recycled object's owner")

	ref, _ := f.db.GetProperty(room, "ref", alice)
	assert.True(t, ref.Equal(world.Obj(f.boot.Nothing)))
	opt, _ := f.db.GetProperty(room, "opt", alice)
	assert.True(t, opt.Equal(world.OptObj(world.None)))
	set, _ := f.db.GetProperty(room, "set", alice)
	assert.True(t, set.Equal(world.ObjSet(item)))

	assertConsistent(t, f.db)
}

func TestRecycle_ProtectedObjects(t *testing.T) {
	f := newFixture(t)
	for _, id := range []ulid.ULID{f.boot.System, f.boot.Nothing, f.boot.FailedMatch, f.boot.AmbiguousMatch} {
		errutil.AssertErrorCode(t, f.db.Recycle(id, f.wiz), world.CodeInvalidArgument)
		assert.True(t, f.db.Valid(id))
	}
}

func TestRecycle_PlayerLeavesRegistry(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice")
	require.NoError(t, f.db.Recycle(alice, f.wiz))
	assert.NotContains(t, f.db.Players(), alice)
	assertConsistent(t, f.db)
}

func TestBootstrap(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, f.boot.System, f.db.SystemObject())
	assert.Equal(t, f.boot.Nothing, f.db.WellKnown(world.SysNothing))
	assert.Equal(t, f.boot.FailedMatch, f.db.WellKnown(world.SysFailedMatch))
	assert.Equal(t, f.boot.AmbiguousMatch, f.db.WellKnown(world.SysAmbiguousMatch))
	assert.Equal(t, world.None, f.db.WellKnown("unknown"))
	assert.True(t, f.db.IsWizard(f.wiz))
	assert.Equal(t, []ulid.ULID{f.wiz}, f.db.Players())

	_, err := world.Bootstrap(f.db)
	errutil.AssertErrorCode(t, err, world.CodeInvalidArgument)
	assertConsistent(t, f.db)
}
