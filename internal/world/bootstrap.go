// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Roo Contributors

package world

import "github.com/oklog/ulid/v2"

// Bootstrapped names the objects created by Bootstrap.
type Bootstrapped struct {
	System         ulid.ULID
	Wizard         ulid.ULID
	Nothing        ulid.ULID
	FailedMatch    ulid.ULID
	AmbiguousMatch ulid.ULID
}

// Bootstrap fills an empty database with the minimal world: a fertile
// system object that is the root of the class tree, the sentinel objects it
// names, and a wizard player that owns everything.
func Bootstrap(db *Database) (Bootstrapped, error) {
	if db.Len() != 0 {
		return Bootstrapped{}, invalidArgument("bootstrap", "database is not empty")
	}

	var b Bootstrapped
	b.System = db.insert(None)
	sys := db.objects[b.System]
	sys.Name = "System Object"
	sys.Fertile = true
	db.system = b.System

	b.Wizard = db.insert(b.System)
	wiz := db.objects[b.Wizard]
	wiz.Name = "Wizard"
	wiz.Owner = b.Wizard
	wiz.Wizard = true
	wiz.Programmer = true
	db.players[b.Wizard] = struct{}{}
	sys.Owner = b.Wizard

	sentinel := func(name string) ulid.ULID {
		id := db.insert(None)
		o := db.objects[id]
		o.Name = name
		o.Owner = b.Wizard
		return id
	}
	b.Nothing = sentinel("nothing")
	b.FailedMatch = sentinel("failed match")
	b.AmbiguousMatch = sentinel("ambiguous match")

	info := PropertyInfo{Owner: b.Wizard, Perms: PropertyPerms{Read: true}}
	for name, id := range map[string]ulid.ULID{
		SysNothing:        b.Nothing,
		SysFailedMatch:    b.FailedMatch,
		SysAmbiguousMatch: b.AmbiguousMatch,
	} {
		if err := sys.AddProperty(name, Obj(id), info); err != nil {
			return Bootstrapped{}, err
		}
	}
	return b, nil
}
