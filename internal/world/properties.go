// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Roo Contributors

package world

import "github.com/oklog/ulid/v2"

func (db *Database) canRead(p *Property, requester ulid.ULID) bool {
	return p.Info.Perms.Read || p.Info.Owner == requester || db.IsWizard(requester)
}

func (db *Database) canWrite(p *Property, requester ulid.ULID) bool {
	return p.Info.Perms.Write || p.Info.Owner == requester || db.IsWizard(requester)
}

// checkRefs rejects values referencing objects that do not exist.
func (db *Database) checkRefs(v Value) error {
	for _, ref := range v.References() {
		if !db.Valid(ref) {
			return invalidIndirection(ref)
		}
	}
	return nil
}

// GetProperty reads name from id, resolving through the ancestor chain;
// the nearest definition wins. Built-in attributes are always readable.
func (db *Database) GetProperty(id ulid.ULID, name string, requester ulid.ULID) (Value, error) {
	o, err := db.Object(id)
	if err != nil {
		return Value{}, err
	}
	if IsBuiltinProperty(name) {
		return db.builtin(o, name), nil
	}
	p, _, ok := db.findProperty(id, name)
	if !ok {
		return Value{}, propertyNotFound(id, name)
	}
	if !db.canRead(p, requester) {
		return Value{}, permissionDenied("get_property", requester)
	}
	return p.Value.Clone(), nil
}

// SetProperty writes name on id. Setting an inherited property gives id its
// own copy; the copy keeps the definer's permissions and, unless the
// property carries the c bit, the definer's property owner.
func (db *Database) SetProperty(id ulid.ULID, name string, v Value, requester ulid.ULID) error {
	return db.setProperty(id, name, requester, func(*Property) (Value, error) {
		return v, nil
	})
}

// SetIntoList replaces (or appends, when the final index equals the list
// length) an element inside a list-valued property.
func (db *Database) SetIntoList(id ulid.ULID, name string, path []int, v Value, requester ulid.ULID) error {
	if IsBuiltinProperty(name) {
		return typeMismatch("built-in property %q is not a list", name)
	}
	return db.setProperty(id, name, requester, func(p *Property) (Value, error) {
		cur := p.Value.Clone()
		if err := cur.SetAtPath(path, v); err != nil {
			return Value{}, err
		}
		return cur, nil
	})
}

func (db *Database) setProperty(id ulid.ULID, name string, requester ulid.ULID, update func(*Property) (Value, error)) error {
	o, err := db.Object(id)
	if err != nil {
		return err
	}
	if IsBuiltinProperty(name) {
		v, err := update(&Property{})
		if err != nil {
			return err
		}
		return db.setBuiltin(o, name, v, requester)
	}

	p, definer, ok := db.findProperty(id, name)
	if !ok {
		return propertyNotFound(id, name)
	}
	if !db.canWrite(p, requester) {
		return permissionDenied("set_property", requester)
	}
	nv, err := update(p)
	if err != nil {
		return err
	}
	if err := db.checkRefs(nv); err != nil {
		return err
	}

	if definer == id {
		return o.SetProperty(name, nv)
	}
	info := PropertyInfo{Owner: p.Info.Owner, Perms: p.Info.Perms}
	if p.Info.Perms.Chown {
		info.Owner = o.Owner
	}
	o.properties[name] = &Property{Info: info, Value: nv.Clone()}
	return nil
}

// AddProperty defines name locally on id. Only the object's owner or a
// wizard may add properties, and only a wizard may give them another owner.
func (db *Database) AddProperty(id ulid.ULID, name string, v Value, info PropertyInfo, requester ulid.ULID) error {
	o, err := db.Object(id)
	if err != nil {
		return err
	}
	if !db.OwnerOrWizard(id, requester) {
		return permissionDenied("add_property", requester)
	}
	if !db.Valid(info.Owner) {
		return invalidArgument("add_property", "invalid property owner %s", info.Owner)
	}
	if info.Owner != requester && !db.IsWizard(requester) {
		return permissionDenied("add_property", requester)
	}
	if err := db.checkRefs(v); err != nil {
		return err
	}
	return o.AddProperty(name, v, info)
}

// DeleteProperty removes a local property of id.
func (db *Database) DeleteProperty(id ulid.ULID, name string, requester ulid.ULID) error {
	o, err := db.Object(id)
	if err != nil {
		return err
	}
	p, ok := o.properties[name]
	if !ok {
		return propertyNotFound(id, name)
	}
	if !db.OwnerOrWizard(id, requester) && p.Info.Owner != requester {
		return permissionDenied("delete_property", requester)
	}
	return o.DeleteProperty(name)
}

// PropertyInfo returns the metadata of the nearest definition of name and
// the object that defines it.
func (db *Database) PropertyInfo(id ulid.ULID, name string, requester ulid.ULID) (PropertyInfo, ulid.ULID, error) {
	if _, err := db.Object(id); err != nil {
		return PropertyInfo{}, None, err
	}
	p, definer, ok := db.findProperty(id, name)
	if !ok {
		return PropertyInfo{}, None, propertyNotFound(id, name)
	}
	if !db.canRead(p, requester) {
		return PropertyInfo{}, None, permissionDenied("property_info", requester)
	}
	return PropertyInfo{Owner: p.Info.Owner, Perms: p.Info.Perms}, definer, nil
}

// SetPropertyInfo updates owner and permissions of a local property, and
// renames it when info.NewName is set. Renames are subject to the same
// collision rules as add.
func (db *Database) SetPropertyInfo(id ulid.ULID, name string, info PropertyInfo, requester ulid.ULID) error {
	o, err := db.Object(id)
	if err != nil {
		return err
	}
	p, ok := o.properties[name]
	if !ok {
		return propertyNotFound(id, name)
	}
	if !db.OwnerOrWizard(id, requester) && p.Info.Owner != requester {
		return permissionDenied("set_property_info", requester)
	}
	if !db.Valid(info.Owner) {
		return invalidArgument("set_property_info", "invalid property owner %s", info.Owner)
	}
	if info.Owner != p.Info.Owner && !db.IsWizard(requester) {
		return permissionDenied("set_property_info", requester)
	}
	if info.NewName != "" && info.NewName != name {
		if err := o.renameProperty(name, info.NewName); err != nil {
			return err
		}
	}
	p.Info = PropertyInfo{Owner: info.Owner, Perms: info.Perms}
	return nil
}
