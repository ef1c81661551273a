// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Roo Contributors

// Package world contains the object database: objects, their properties and
// verbs, and the relational operations that keep the object graph consistent.
package world

import (
	"slices"
	"sort"

	"github.com/oklog/ulid/v2"
)

// Object is a node in the world graph. Relationship fields hold identities,
// never pointers; the Database keeps both sides of every relation in step.
//
// Callers outside this package only ever see Objects borrowed for the
// duration of a locked Database access, or clones.
type Object struct {
	ID         ulid.ULID
	Name       string
	Owner      ulid.ULID
	Parent     ulid.ULID
	Location   ulid.ULID
	Fertile    bool
	Wizard     bool
	Programmer bool

	children   []ulid.ULID
	contents   []ulid.ULID
	properties map[string]*Property
	verbs      []*Verb
}

func newObject(id ulid.ULID) *Object {
	return &Object{
		ID:         id,
		properties: make(map[string]*Property),
	}
}

// Children returns a copy of the direct children.
func (o *Object) Children() []ulid.ULID { return slices.Clone(o.children) }

// Contents returns a copy of the objects located in o.
func (o *Object) Contents() []ulid.ULID { return slices.Clone(o.contents) }

// HasChild reports whether id is a direct child of o.
func (o *Object) HasChild(id ulid.ULID) bool { return slices.Contains(o.children, id) }

// Contains reports whether id is located directly in o.
func (o *Object) Contains(id ulid.ULID) bool { return slices.Contains(o.contents, id) }

// HasProperty reports whether name is defined locally.
func (o *Object) HasProperty(name string) bool {
	_, ok := o.properties[name]
	return ok
}

// Property returns a copy of a locally defined property.
func (o *Object) Property(name string) (Property, bool) {
	p, ok := o.properties[name]
	if !ok {
		return Property{}, false
	}
	return *p.clone(), true
}

// PropertyNames returns the local property names, sorted.
func (o *Object) PropertyNames() []string {
	names := make([]string, 0, len(o.properties))
	for name := range o.properties {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AddProperty defines a new local property.
func (o *Object) AddProperty(name string, v Value, info PropertyInfo) error {
	if err := ValidatePropertyName(name); err != nil {
		return validationFailed("add_property", err)
	}
	if IsBuiltinProperty(name) {
		return invalidArgument("add_property", "%q is a built-in property", name)
	}
	if _, exists := o.properties[name]; exists {
		return invalidArgument("add_property", "property %q already defined on %s", name, o.ID)
	}
	if !v.Valid() {
		return typeMismatch("cannot store an invalid value")
	}
	o.properties[name] = &Property{
		Info:  PropertyInfo{Owner: info.Owner, Perms: info.Perms},
		Value: v.Clone(),
	}
	return nil
}

// SetProperty replaces the value of a local property.
func (o *Object) SetProperty(name string, v Value) error {
	if name == PropID {
		return errWith(CodePermissionDenied).
			With("object", o.ID.String()).
			Errorf("the %s property is read-only", PropID)
	}
	p, ok := o.properties[name]
	if !ok {
		return propertyNotFound(o.ID, name)
	}
	if !v.Valid() {
		return typeMismatch("cannot store an invalid value")
	}
	p.Value = v.Clone()
	return nil
}

// SetPropertyTyped replaces a local property value, requiring the stored
// kind to be preserved.
func (o *Object) SetPropertyTyped(name string, v Value) error {
	p, ok := o.properties[name]
	if !ok {
		return propertyNotFound(o.ID, name)
	}
	nv, err := p.Value.SetTyped(v)
	if err != nil {
		return err
	}
	p.Value = nv
	return nil
}

// DeleteProperty removes a local property.
func (o *Object) DeleteProperty(name string) error {
	if _, ok := o.properties[name]; !ok {
		return propertyNotFound(o.ID, name)
	}
	delete(o.properties, name)
	return nil
}

func (o *Object) renameProperty(from, to string) error {
	p, ok := o.properties[from]
	if !ok {
		return propertyNotFound(o.ID, from)
	}
	if from == to {
		return nil
	}
	if err := ValidatePropertyName(to); err != nil {
		return validationFailed("set_property_info", err)
	}
	if IsBuiltinProperty(to) {
		return invalidArgument("set_property_info", "%q is a built-in property", to)
	}
	if _, exists := o.properties[to]; exists {
		return invalidArgument("set_property_info", "property %q already defined on %s", to, o.ID)
	}
	delete(o.properties, from)
	o.properties[to] = p
	return nil
}

// Verbs returns copies of the local verbs in definition order.
func (o *Object) Verbs() []*Verb {
	out := make([]*Verb, len(o.verbs))
	for i, v := range o.verbs {
		out[i] = v.Clone()
	}
	return out
}

// AddVerb appends a verb. No alias of v may overlap an existing local alias.
func (o *Object) AddVerb(v *Verb) error {
	if err := ensureCompiled(v); err != nil {
		return err
	}
	for _, existing := range o.verbs {
		if existing.Overlaps(v) {
			return invalidArgument("add_verb",
				"verb %q overlaps existing verb %q on %s", v.Name(), existing.Name(), o.ID)
		}
	}
	o.verbs = append(o.verbs, v.Clone())
	return nil
}

// Verb returns a copy of the local verb selected by desc (a 1-based index or
// a name).
func (o *Object) Verb(desc string) (*Verb, bool) {
	i, ok := verbIndex(o.verbs, desc)
	if !ok {
		return nil, false
	}
	return o.verbs[i].Clone(), true
}

// ResolveVerb returns the first local verb whose names match name.
func (o *Object) ResolveVerb(name string) (*Verb, bool) {
	for _, v := range o.verbs {
		if v.NameMatches(name) {
			return v.Clone(), true
		}
	}
	return nil, false
}

// MatchingVerb returns the first local verb whose names match the command
// verb and whose argument shape accepts the command.
func (o *Object) MatchingVerb(cmd Command) (*Verb, bool) {
	for _, v := range o.verbs {
		if v.NameMatches(cmd.Verb) && v.Accepts(cmd, o.ID) {
			return v.Clone(), true
		}
	}
	return nil, false
}

// SetVerbCode replaces the code of the local verb selected by desc.
func (o *Object) SetVerbCode(desc, code string) error {
	i, ok := verbIndex(o.verbs, desc)
	if !ok {
		return verbNotFound(o.ID, desc)
	}
	o.verbs[i].Code = code
	return nil
}

// DeleteVerb removes the local verb selected by desc.
func (o *Object) DeleteVerb(desc string) error {
	i, ok := verbIndex(o.verbs, desc)
	if !ok {
		return verbNotFound(o.ID, desc)
	}
	o.verbs = slices.Delete(o.verbs, i, i+1)
	return nil
}

// Clone returns a deep copy of o.
func (o *Object) Clone() *Object {
	out := *o
	out.children = slices.Clone(o.children)
	out.contents = slices.Clone(o.contents)
	out.properties = make(map[string]*Property, len(o.properties))
	for name, p := range o.properties {
		out.properties[name] = p.clone()
	}
	out.verbs = make([]*Verb, len(o.verbs))
	for i, v := range o.verbs {
		out.verbs[i] = v.Clone()
	}
	return &out
}

func addID(ids []ulid.ULID, id ulid.ULID) []ulid.ULID {
	if slices.Contains(ids, id) {
		return ids
	}
	return append(ids, id)
}

func removeID(ids []ulid.ULID, id ulid.ULID) []ulid.ULID {
	return slices.DeleteFunc(ids, func(x ulid.ULID) bool { return x == id })
}
