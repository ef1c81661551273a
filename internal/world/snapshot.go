// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Roo Contributors

package world

import (
	"slices"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// SnapshotFormat is the format version written by Export.
const SnapshotFormat = "1.0.0"

// snapshotCompat is the range of format versions Import understands.
const snapshotCompat = "^1.0.0"

// CodeCorruptSnapshot marks a snapshot that cannot be turned back into a
// consistent database.
const CodeCorruptSnapshot = "SNAPSHOT_CORRUPT"

// Snapshot is the self-describing serialised form of a Database.
type Snapshot struct {
	Format  string            `json:"format" jsonschema:"description=snapshot format version (semver)"`
	SavedAt time.Time         `json:"saved_at"`
	System  string            `json:"system"`
	Players []string          `json:"players,omitempty"`
	Objects []ObjectRecord    `json:"objects"`
	Meta    map[string]string `json:"meta,omitempty"`
}

// ObjectRecord is one object in a Snapshot.
type ObjectRecord struct {
	ID         string           `json:"id"`
	Name       string           `json:"name"`
	Owner      string           `json:"owner"`
	Parent     string           `json:"parent,omitempty"`
	Location   string           `json:"location,omitempty"`
	Fertile    bool             `json:"fertile,omitempty"`
	Wizard     bool             `json:"wizard,omitempty"`
	Programmer bool             `json:"programmer,omitempty"`
	Children   []string         `json:"children,omitempty"`
	Contents   []string         `json:"contents,omitempty"`
	Properties []PropertyRecord `json:"properties,omitempty"`
	Verbs      []VerbRecord     `json:"verbs,omitempty"`
}

// PropertyRecord is one local property in a Snapshot.
type PropertyRecord struct {
	Name  string `json:"name"`
	Owner string `json:"owner"`
	Perms string `json:"perms,omitempty"`
	Value Value  `json:"value"`
}

// VerbRecord is one local verb in a Snapshot.
type VerbRecord struct {
	Names []string `json:"names"`
	Owner string   `json:"owner"`
	Perms string   `json:"perms,omitempty"`
	Args  string   `json:"args"`
	Code  string   `json:"code,omitempty"`
}

func formatIDs(ids []ulid.ULID) []string {
	if len(ids) == 0 {
		return nil
	}
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

func optionalID(id ulid.ULID) string {
	if id == None {
		return ""
	}
	return id.String()
}

// Export returns a deep, self-contained copy of the database.
func (db *Database) Export() *Snapshot {
	snap := &Snapshot{
		Format:  SnapshotFormat,
		SavedAt: time.Now().UTC(),
		System:  FormatID(db.system),
		Players: formatIDs(db.Players()),
		Objects: make([]ObjectRecord, 0, len(db.objects)),
	}
	for _, id := range db.IDs() {
		o := db.objects[id]
		rec := ObjectRecord{
			ID:         id.String(),
			Name:       o.Name,
			Owner:      FormatID(o.Owner),
			Parent:     optionalID(o.Parent),
			Location:   optionalID(o.Location),
			Fertile:    o.Fertile,
			Wizard:     o.Wizard,
			Programmer: o.Programmer,
			Children:   formatIDs(o.children),
			Contents:   formatIDs(o.contents),
		}
		for _, name := range o.PropertyNames() {
			p := o.properties[name]
			rec.Properties = append(rec.Properties, PropertyRecord{
				Name:  name,
				Owner: FormatID(p.Info.Owner),
				Perms: p.Info.Perms.String(),
				Value: p.Value.Clone(),
			})
		}
		for _, v := range o.verbs {
			rec.Verbs = append(rec.Verbs, VerbRecord{
				Names: slices.Clone(v.Names),
				Owner: FormatID(v.Owner),
				Perms: v.Perms.String(),
				Args:  v.Args.String(),
				Code:  v.Code,
			})
		}
		snap.Objects = append(snap.Objects, rec)
	}
	return snap
}

func corrupt(format string, args ...any) error {
	return oops.In("world").Code(CodeCorruptSnapshot).Errorf(format, args...)
}

// corruptCause reports err as snapshot corruption. err is flattened rather
// than wrapped because oops reports the innermost code of a chain.
func corruptCause(err error, what string) error {
	return oops.In("world").Code(CodeCorruptSnapshot).
		With("cause", err.Error()).
		Errorf("%s: %s", what, err)
}

// CheckFormat verifies that a snapshot format version can be imported.
func CheckFormat(format string) error {
	v, err := semver.NewVersion(format)
	if err != nil {
		return corruptCause(err, "unreadable snapshot format version "+format)
	}
	c, err := semver.NewConstraint(snapshotCompat)
	if err != nil {
		return oops.Wrapf(err, "parse snapshot compatibility constraint")
	}
	if !c.Check(v) {
		return oops.In("world").Code(CodeCorruptSnapshot).
			With("format", format).
			With("supported", snapshotCompat).
			Errorf("snapshot format %s is not supported", format)
	}
	return nil
}

// Import rebuilds a database from snap and re-checks every table invariant.
// Any inconsistency fails with SNAPSHOT_CORRUPT.
func Import(snap *Snapshot, opts ...Option) (*Database, error) {
	if snap == nil {
		return nil, corrupt("nil snapshot")
	}
	if err := CheckFormat(snap.Format); err != nil {
		return nil, err
	}

	db := NewDatabase(opts...)
	parse := func(field, s string) (ulid.ULID, error) {
		id, err := ParseID(s)
		if err != nil {
			return None, corruptCause(err, "bad "+field)
		}
		return id, nil
	}

	for _, rec := range snap.Objects {
		id, err := parse("id", rec.ID)
		if err != nil {
			return nil, err
		}
		if id == None {
			return nil, corrupt("object with no identity")
		}
		if db.Valid(id) {
			return nil, corrupt("duplicate object %s", id)
		}
		o := newObject(id)
		o.Name = rec.Name
		o.Fertile, o.Wizard, o.Programmer = rec.Fertile, rec.Wizard, rec.Programmer
		db.objects[id] = o
	}

	for _, rec := range snap.Objects {
		if err := db.importRecord(rec, parse); err != nil {
			return nil, err
		}
	}
	if err := db.checkConsistency(); err != nil {
		return nil, err
	}

	sys, err := parse("system", snap.System)
	if err != nil {
		return nil, err
	}
	if sys != None && !db.Valid(sys) {
		return nil, corrupt("system object %s does not exist", sys)
	}
	db.system = sys

	for _, s := range snap.Players {
		id, err := parse("players", s)
		if err != nil {
			return nil, err
		}
		if !db.Valid(id) {
			return nil, corrupt("player %s does not exist", id)
		}
		db.players[id] = struct{}{}
	}
	return db, nil
}

func (db *Database) importRecord(rec ObjectRecord, parse func(string, string) (ulid.ULID, error)) error {
	id, _ := ParseID(rec.ID)
	o := db.objects[id]

	ref := func(field, s string) (ulid.ULID, error) {
		ref, err := parse(field, s)
		if err != nil {
			return None, err
		}
		if ref != None && !db.Valid(ref) {
			return None, corrupt("%s of %s refers to missing object %s", field, id, ref)
		}
		return ref, nil
	}
	refs := func(field string, ss []string) ([]ulid.ULID, error) {
		out := make([]ulid.ULID, 0, len(ss))
		for _, s := range ss {
			r, err := ref(field, s)
			if err != nil {
				return nil, err
			}
			if r == None || slices.Contains(out, r) {
				return nil, corrupt("%s of %s has a bad entry %q", field, id, s)
			}
			out = append(out, r)
		}
		return out, nil
	}

	var err error
	if o.Owner, err = ref("owner", rec.Owner); err != nil {
		return err
	}
	if o.Parent, err = ref("parent", rec.Parent); err != nil {
		return err
	}
	if o.Location, err = ref("location", rec.Location); err != nil {
		return err
	}
	if o.children, err = refs("children", rec.Children); err != nil {
		return err
	}
	if o.contents, err = refs("contents", rec.Contents); err != nil {
		return err
	}

	for _, pr := range rec.Properties {
		owner, err := ref("property owner", pr.Owner)
		if err != nil {
			return err
		}
		perms, err := ParsePropertyPerms(pr.Perms)
		if err != nil {
			return corruptCause(err, "object "+rec.ID)
		}
		for _, r := range pr.Value.References() {
			if !db.Valid(r) {
				return corrupt("property %q of %s refers to missing object %s", pr.Name, id, r)
			}
		}
		if err := o.AddProperty(pr.Name, pr.Value, PropertyInfo{Owner: owner, Perms: perms}); err != nil {
			return corruptCause(err, "object "+rec.ID)
		}
	}

	for _, vr := range rec.Verbs {
		owner, err := ref("verb owner", vr.Owner)
		if err != nil {
			return err
		}
		perms, err := ParseVerbPerms(vr.Perms)
		if err != nil {
			return corruptCause(err, "object "+rec.ID)
		}
		args, err := ParseArgSpec(vr.Args)
		if err != nil {
			return corruptCause(err, "object "+rec.ID)
		}
		v, err := NewVerb(vr.Names, owner, perms, args, vr.Code)
		if err != nil {
			return corruptCause(err, "object "+rec.ID)
		}
		if err := o.AddVerb(v); err != nil {
			return corruptCause(err, "object "+rec.ID)
		}
	}
	return nil
}

// checkConsistency verifies relation symmetry and acyclicity.
func (db *Database) checkConsistency() error {
	for id, o := range db.objects {
		if o.Parent != None && !db.objects[o.Parent].HasChild(id) {
			return corrupt("%s names parent %s, which does not list it as a child", id, o.Parent)
		}
		for _, c := range o.children {
			if db.objects[c].Parent != id {
				return corrupt("%s lists child %s, whose parent differs", id, c)
			}
		}
		if o.Location != None && !db.objects[o.Location].Contains(id) {
			return corrupt("%s is located in %s, which does not contain it", id, o.Location)
		}
		for _, c := range o.contents {
			if db.objects[c].Location != id {
				return corrupt("%s contains %s, whose location differs", id, c)
			}
		}
	}
	for id := range db.objects {
		if err := db.checkChains(id); err != nil {
			return err
		}
	}
	return nil
}

func (db *Database) checkChains(id ulid.ULID) error {
	limit := len(db.objects)
	steps := 0
	for cur := db.objects[id].Parent; cur != None; cur = db.objects[cur].Parent {
		if steps++; steps > limit {
			return corrupt("parent chain of %s has a cycle", id)
		}
	}
	steps = 0
	for cur := db.objects[id].Location; cur != None; cur = db.objects[cur].Location {
		if steps++; steps > limit {
			return corrupt("location chain of %s has a cycle", id)
		}
	}
	return nil
}
