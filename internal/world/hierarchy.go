// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Roo Contributors

package world

import "github.com/oklog/ulid/v2"

// lineage returns id followed by its ancestors, nearest first.
// Parent links form a forest, so the walk terminates.
func (db *Database) lineage(id ulid.ULID) []ulid.ULID {
	var out []ulid.ULID
	for cur := id; cur != None; {
		o, ok := db.objects[cur]
		if !ok {
			break
		}
		out = append(out, cur)
		cur = o.Parent
	}
	return out
}

// Ancestors returns the ancestors of id, nearest first.
func (db *Database) Ancestors(id ulid.ULID) []ulid.ULID {
	l := db.lineage(id)
	if len(l) == 0 {
		return nil
	}
	return l[1:]
}

// Descendants returns every transitive child of id, breadth first.
func (db *Database) Descendants(id ulid.ULID) []ulid.ULID {
	o, ok := db.objects[id]
	if !ok {
		return nil
	}
	var out []ulid.ULID
	queue := append([]ulid.ULID(nil), o.children...)
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		out = append(out, cur)
		queue = append(queue, db.objects[cur].children...)
	}
	return out
}

// isDescendant reports whether x is a transitive child of of.
func (db *Database) isDescendant(x, of ulid.ULID) bool {
	for _, a := range db.Ancestors(x) {
		if a == of {
			return true
		}
	}
	return false
}

// isInside reports whether x is transitively located in container.
func (db *Database) isInside(x, container ulid.ULID) bool {
	for cur := x; cur != None; {
		o, ok := db.objects[cur]
		if !ok {
			return false
		}
		if o.Location == container {
			return true
		}
		cur = o.Location
	}
	return false
}

// findProperty walks id and its ancestors for the nearest definition of name.
func (db *Database) findProperty(id ulid.ULID, name string) (*Property, ulid.ULID, bool) {
	for _, a := range db.lineage(id) {
		if p, ok := db.objects[a].properties[name]; ok {
			return p, a, true
		}
	}
	return nil, None, false
}

// findVerb walks id and its ancestors for the nearest verb accepted by match.
func (db *Database) findVerb(id ulid.ULID, match func(o *Object) (*Verb, bool)) (*Verb, ulid.ULID, bool) {
	for _, a := range db.lineage(id) {
		if v, ok := match(db.objects[a]); ok {
			return v, a, true
		}
	}
	return nil, None, false
}
