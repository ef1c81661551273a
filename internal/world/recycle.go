// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Roo Contributors

package world

import (
	"slices"

	"github.com/oklog/ulid/v2"
)

// Recycle destroys id. Children are re-parented to id's parent, contents
// are moved to the nothing object, and references to id held elsewhere are
// rewritten so no dangling identity survives. Every check runs before the
// first change, so a failure leaves the database untouched.
//
// Re-parenting to a former ancestor cannot introduce a property collision
// that did not already exist, so it skips the chparent collision check.
func (db *Database) Recycle(id, requester ulid.ULID) error {
	o, err := db.Object(id)
	if err != nil {
		return err
	}
	if !db.OwnerOrWizard(id, requester) {
		return permissionDenied("recycle", requester)
	}
	if db.protected(id) {
		return invalidArgument("recycle", "%s is a system object and cannot be recycled", id)
	}

	nothing := db.WellKnown(SysNothing)
	newOwner := o.Owner
	if newOwner == id {
		newOwner = None
	}

	for _, child := range slices.Clone(o.children) {
		db.reparent(db.mustGet(child), o.Parent)
	}
	for _, item := range slices.Clone(o.contents) {
		dest := nothing
		if item == nothing {
			dest = None
		}
		db.relocate(db.mustGet(item), dest)
	}
	db.relocate(o, None)
	db.reparent(o, None)
	delete(db.players, id)
	delete(db.objects, id)

	db.scrubReferences(id, newOwner, nothing)
	return nil
}

// protected reports whether id is the system object or one of the
// sentinels the system object names.
func (db *Database) protected(id ulid.ULID) bool {
	if id == db.system {
		return true
	}
	for _, name := range []string{SysNothing, SysFailedMatch, SysAmbiguousMatch} {
		if db.WellKnown(name) == id {
			return true
		}
	}
	return false
}

// scrubReferences rewrites ownership and property values naming gone.
func (db *Database) scrubReferences(gone, newOwner, nothing ulid.ULID) {
	for _, o := range db.objects {
		if o.Owner == gone {
			o.Owner = newOwner
		}
		for _, p := range o.properties {
			if p.Info.Owner == gone {
				p.Info.Owner = newOwner
			}
			if slices.Contains(p.Value.References(), gone) {
				p.Value = p.Value.ReplaceRef(gone, nothing)
			}
		}
		for _, v := range o.verbs {
			if v.Owner == gone {
				v.Owner = newOwner
			}
		}
	}
}
