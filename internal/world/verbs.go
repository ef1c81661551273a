// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Roo Contributors

package world

import "github.com/oklog/ulid/v2"

// AddVerb appends v to the local verbs of id.
func (db *Database) AddVerb(id ulid.ULID, v *Verb, requester ulid.ULID) error {
	o, err := db.Object(id)
	if err != nil {
		return err
	}
	if !db.OwnerOrWizard(id, requester) {
		return permissionDenied("add_verb", requester)
	}
	if !db.Valid(v.Owner) {
		return invalidArgument("add_verb", "invalid verb owner %s", v.Owner)
	}
	if v.Owner != requester && !db.IsWizard(requester) {
		return permissionDenied("add_verb", requester)
	}
	return o.AddVerb(v)
}

// DeleteVerb removes the local verb of id selected by desc.
func (db *Database) DeleteVerb(id ulid.ULID, desc string, requester ulid.ULID) error {
	o, err := db.Object(id)
	if err != nil {
		return err
	}
	v, ok := o.Verb(desc)
	if !ok {
		return verbNotFound(id, desc)
	}
	if !db.OwnerOrWizard(id, requester) && v.Owner != requester {
		return permissionDenied("delete_verb", requester)
	}
	return o.DeleteVerb(desc)
}

// VerbInfo returns a copy of the local verb of id selected by desc.
func (db *Database) VerbInfo(id ulid.ULID, desc string, requester ulid.ULID) (*Verb, error) {
	o, err := db.Object(id)
	if err != nil {
		return nil, err
	}
	v, ok := o.Verb(desc)
	if !ok {
		return nil, verbNotFound(id, desc)
	}
	if !v.Perms.Read && v.Owner != requester && !db.IsWizard(requester) {
		return nil, permissionDenied("verb_info", requester)
	}
	return v, nil
}

// SetVerbCode replaces the code of the local verb of id selected by desc.
// Validating the code is the script runtime's concern.
func (db *Database) SetVerbCode(id ulid.ULID, desc, code string, requester ulid.ULID) error {
	o, err := db.Object(id)
	if err != nil {
		return err
	}
	v, ok := o.Verb(desc)
	if !ok {
		return verbNotFound(id, desc)
	}
	if !v.Perms.Write && v.Owner != requester && !db.IsWizard(requester) {
		return permissionDenied("set_verb_code", requester)
	}
	return o.SetVerbCode(desc, code)
}

// ResolveVerb finds the nearest verb named name on id or its ancestors and
// returns it with the object defining it.
func (db *Database) ResolveVerb(id ulid.ULID, name string) (*Verb, ulid.ULID, error) {
	if !db.Valid(id) {
		return nil, None, invalidIndirection(id)
	}
	v, definer, ok := db.findVerb(id, func(o *Object) (*Verb, bool) {
		return o.ResolveVerb(name)
	})
	if !ok {
		return nil, None, verbNotFound(id, name)
	}
	return v, definer, nil
}

// MatchingVerb finds the nearest verb on id or its ancestors whose names
// and argument shape accept cmd. Argument shape "this" is checked against
// id itself, not the defining ancestor.
func (db *Database) MatchingVerb(id ulid.ULID, cmd Command) (*Verb, ulid.ULID, bool) {
	if !db.Valid(id) {
		return nil, None, false
	}
	return db.findVerb(id, func(o *Object) (*Verb, bool) {
		for _, v := range o.verbs {
			if v.NameMatches(cmd.Verb) && v.Accepts(cmd, id) {
				return v.Clone(), true
			}
		}
		return nil, false
	})
}

// HasVerbWithName reports whether id or an ancestor has a verb named name.
func (db *Database) HasVerbWithName(id ulid.ULID, name string) (bool, error) {
	_, _, err := db.ResolveVerb(id, name)
	switch {
	case err == nil:
		return true, nil
	case HasCode(err, CodeVerbNotFound):
		return false, nil
	default:
		return false, err
	}
}
