// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Roo Contributors

package world

import (
	"slices"

	"github.com/oklog/ulid/v2"
)

// Built-in property names. They are attributes of every object and cannot
// be defined as ordinary properties.
const (
	PropID         = "id"
	PropName       = "name"
	PropOwner      = "owner"
	PropParent     = "parent"
	PropLocation   = "location"
	PropContents   = "contents"
	PropChildren   = "children"
	PropFertile    = "fertile"
	PropWizard     = "wizard"
	PropProgrammer = "programmer"
	PropPlayer     = "player"
)

var builtinProperties = []string{
	PropID, PropName, PropOwner, PropParent, PropLocation, PropContents,
	PropChildren, PropFertile, PropWizard, PropProgrammer, PropPlayer,
}

// IsBuiltinProperty reports whether name is a built-in attribute.
func IsBuiltinProperty(name string) bool {
	return slices.Contains(builtinProperties, name)
}

func (db *Database) builtin(o *Object, name string) Value {
	switch name {
	case PropID:
		return Obj(o.ID)
	case PropName:
		return Str(o.Name)
	case PropOwner:
		return Obj(o.Owner)
	case PropParent:
		return OptObj(o.Parent)
	case PropLocation:
		return OptObj(o.Location)
	case PropContents:
		return ObjSet(o.contents...)
	case PropChildren:
		return ObjSet(o.children...)
	case PropFertile:
		return Bool(o.Fertile)
	case PropWizard:
		return Bool(o.Wizard)
	case PropProgrammer:
		return Bool(o.Programmer)
	case PropPlayer:
		_, ok := db.players[o.ID]
		return Bool(ok)
	default:
		return Value{}
	}
}

var relationHints = map[string]string{
	PropLocation: "use move(what, where)",
	PropContents: "use move(what, where)",
	PropParent:   "use chparent(what, parent)",
	PropChildren: "use chparent(child, parent)",
}

func (db *Database) setBuiltin(o *Object, name string, v Value, requester ulid.ULID) error {
	if hint, ok := relationHints[name]; ok {
		return errWith(CodeInvalidArgument).
			With("property", name).
			Hint(hint).
			Errorf(".%s cannot be set directly; %s", name, hint)
	}

	switch name {
	case PropID:
		return errWith(CodePermissionDenied).
			With("object", o.ID.String()).
			Errorf("the %s property is read-only", PropID)
	case PropName:
		s, err := v.AsString()
		if err != nil {
			return err
		}
		return db.SetName(o.ID, s, requester)
	case PropFertile:
		b, err := v.AsBool()
		if err != nil {
			return err
		}
		if !db.OwnerOrWizard(o.ID, requester) {
			return permissionDenied("set_fertile", requester)
		}
		o.Fertile = b
		return nil
	case PropOwner:
		owner, err := v.AsObject()
		if err != nil {
			return err
		}
		if !db.IsWizard(requester) {
			return permissionDenied("set_owner", requester)
		}
		if !db.Valid(owner) {
			return invalidArgument("set_owner", "invalid owner %s", owner)
		}
		o.Owner = owner
		return nil
	case PropWizard, PropProgrammer:
		b, err := v.AsBool()
		if err != nil {
			return err
		}
		if !db.IsWizard(requester) {
			return permissionDenied("set_"+name, requester)
		}
		if name == PropWizard {
			o.Wizard = b
		} else {
			o.Programmer = b
		}
		return nil
	case PropPlayer:
		b, err := v.AsBool()
		if err != nil {
			return err
		}
		return db.SetPlayerFlag(o.ID, b, requester)
	}
	return propertyNotFound(o.ID, name)
}
