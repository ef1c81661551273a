// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Roo Contributors

package world

import (
	"slices"

	"github.com/oklog/ulid/v2"
)

// Well-known system properties naming the sentinel objects.
const (
	SysNothing        = "nothing"
	SysFailedMatch    = "failed_match"
	SysAmbiguousMatch = "ambiguous_match"
)

// Database is the object table and the relational operations over it.
// It does no locking of its own: every method must run inside the single
// reader/writer discipline provided by the caller (see core.Shared).
type Database struct {
	objects map[ulid.ULID]*Object
	players map[ulid.ULID]struct{}
	system  ulid.ULID

	newID  func() ulid.ULID
	policy MovePolicy
	quota  int
}

// Option configures a Database.
type Option func(*Database)

// WithIDGenerator replaces the identity generator.
func WithIDGenerator(gen func() ulid.ULID) Option {
	return func(db *Database) { db.newID = gen }
}

// WithMovePolicy replaces the default move permission and acceptance policy.
func WithMovePolicy(p MovePolicy) Option {
	return func(db *Database) { db.policy = p }
}

// WithQuota limits how many objects a non-wizard may own. Zero disables it.
func WithQuota(n int) Option {
	return func(db *Database) { db.quota = n }
}

// NewDatabase returns an empty database.
func NewDatabase(opts ...Option) *Database {
	db := &Database{
		objects: make(map[ulid.ULID]*Object),
		players: make(map[ulid.ULID]struct{}),
		newID:   NewID,
		policy:  DefaultMovePolicy{},
	}
	for _, opt := range opts {
		opt(db)
	}
	return db
}

// Configure applies options to an existing database, typically one
// restored from a snapshot.
func (db *Database) Configure(opts ...Option) {
	for _, opt := range opts {
		opt(db)
	}
}

// Len returns the number of live objects.
func (db *Database) Len() int { return len(db.objects) }

// IDs returns every live identity in ascending order.
func (db *Database) IDs() []ulid.ULID {
	ids := make([]ulid.ULID, 0, len(db.objects))
	for id := range db.objects {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, func(a, b ulid.ULID) int { return a.Compare(b) })
	return ids
}

// Valid reports whether id names a live object. None is never valid.
func (db *Database) Valid(id ulid.ULID) bool {
	_, ok := db.objects[id]
	return ok
}

// Object borrows the live object id. The handle must not be retained past
// the current locked access.
func (db *Database) Object(id ulid.ULID) (*Object, error) {
	o, ok := db.objects[id]
	if !ok {
		return nil, invalidIndirection(id)
	}
	return o, nil
}

// mustGet is for identities the table invariants guarantee to exist.
func (db *Database) mustGet(id ulid.ULID) *Object {
	o, ok := db.objects[id]
	if !ok {
		panic("world: dangling reference to " + id.String())
	}
	return o
}

// SystemObject returns the system object, or None before bootstrap.
func (db *Database) SystemObject() ulid.ULID { return db.system }

// SetSystemObject designates id as the system object.
func (db *Database) SetSystemObject(id ulid.ULID) error {
	if !db.Valid(id) {
		return invalidIndirection(id)
	}
	db.system = id
	return nil
}

// WellKnown resolves a system property holding an object reference, such as
// SysNothing. It returns None when the system object or property is missing.
func (db *Database) WellKnown(name string) ulid.ULID {
	sys, ok := db.objects[db.system]
	if !ok {
		return None
	}
	p, ok := sys.properties[name]
	if !ok {
		return None
	}
	id, err := p.Value.AsObject()
	if err != nil || !db.Valid(id) {
		return None
	}
	return id
}

// IsWizard reports whether id is a live wizard.
func (db *Database) IsWizard(id ulid.ULID) bool {
	o, ok := db.objects[id]
	return ok && o.Wizard
}

// OwnerOrWizard reports whether actor owns object or is a wizard.
func (db *Database) OwnerOrWizard(object, actor ulid.ULID) bool {
	if db.IsWizard(actor) {
		return true
	}
	o, ok := db.objects[object]
	return ok && db.Valid(actor) && o.Owner == actor
}

// Owned returns the objects owned by owner, in ascending identity order.
func (db *Database) Owned(owner ulid.ULID) []ulid.ULID {
	var out []ulid.ULID
	for _, id := range db.IDs() {
		if db.objects[id].Owner == owner {
			out = append(out, id)
		}
	}
	return out
}

// countOwned counts the objects owned by owner, not counting owner itself.
func (db *Database) countOwned(owner ulid.ULID) int {
	n := 0
	for id, o := range db.objects {
		if o.Owner == owner && id != owner {
			n++
		}
	}
	return n
}

// Create makes a new object. The parent must be None or a valid object that
// is fertile or controlled by requester. A nil owner means requester; an
// owner of None means the new object owns itself. Any owner other than
// requester needs a wizard. Nothing is copied from the parent.
func (db *Database) Create(parent ulid.ULID, owner *ulid.ULID, requester ulid.ULID) (ulid.ULID, error) {
	if parent != None && !db.Valid(parent) {
		return None, invalidArgument("create", "invalid parent %s", parent)
	}
	if !db.Valid(requester) {
		return None, permissionDenied("create", requester)
	}
	if parent != None && !db.objects[parent].Fertile && !db.OwnerOrWizard(parent, requester) {
		return None, permissionDenied("create", requester)
	}

	selfOwned := false
	finalOwner := requester
	if owner != nil {
		switch {
		case *owner == None:
			selfOwned = true
		case !db.Valid(*owner):
			return None, invalidArgument("create", "invalid owner %s", *owner)
		default:
			finalOwner = *owner
		}
		if (selfOwned || finalOwner != requester) && !db.IsWizard(requester) {
			return None, permissionDenied("create", requester)
		}
	}

	if db.quota > 0 && !selfOwned && !db.IsWizard(finalOwner) && db.countOwned(finalOwner) >= db.quota {
		return None, errWith(CodeQuota).
			With("owner", finalOwner.String()).
			With("quota", db.quota).
			Errorf("object quota of %d exhausted", db.quota)
	}

	id := db.insert(parent)
	o := db.objects[id]
	if selfOwned {
		o.Owner = id
	} else {
		o.Owner = finalOwner
	}
	return id, nil
}

// insert allocates a fresh object under parent with no owner set.
func (db *Database) insert(parent ulid.ULID) ulid.ULID {
	id := db.newID()
	for id == None || db.Valid(id) {
		id = db.newID()
	}
	o := newObject(id)
	o.Parent = parent
	db.objects[id] = o
	if parent != None {
		p := db.objects[parent]
		p.children = addID(p.children, id)
	}
	return id
}

// Chparent changes the parent of id, keeping both children sets in step.
func (db *Database) Chparent(id, newParent, requester ulid.ULID) error {
	if !db.Valid(id) {
		return invalidArgument("chparent", "invalid object %s", id)
	}
	if newParent != None && !db.Valid(newParent) {
		return invalidArgument("chparent", "invalid parent %s", newParent)
	}
	if !db.OwnerOrWizard(id, requester) {
		return permissionDenied("chparent", requester)
	}
	if newParent != None && !db.objects[newParent].Fertile && !db.OwnerOrWizard(newParent, requester) {
		return permissionDenied("chparent", requester)
	}
	if newParent == id || db.isDescendant(newParent, id) {
		return recursiveMove("chparent", id, newParent)
	}
	o := db.objects[id]
	if o.Parent == newParent {
		return nil
	}
	if name, clash := db.propertyCollision(id, newParent); clash {
		return errWith(CodeInvalidArgument).
			With("operation", "chparent").
			With("object", id.String()).
			With("parent", newParent.String()).
			With("property", name).
			Errorf("property %q would be defined twice under %s", name, newParent)
	}

	db.reparent(o, newParent)
	return nil
}

func (db *Database) reparent(o *Object, newParent ulid.ULID) {
	if o.Parent != None {
		old := db.mustGet(o.Parent)
		old.children = removeID(old.children, o.ID)
	}
	o.Parent = newParent
	if newParent != None {
		p := db.mustGet(newParent)
		p.children = addID(p.children, o.ID)
	}
}

// propertyCollision finds a property name defined locally on id or one of
// its descendants that newParent or one of its ancestors also defines.
// A local copy is not a collision when the nearest new definer is already
// an ancestor of id, as when moving between sibling classes.
func (db *Database) propertyCollision(id, newParent ulid.ULID) (string, bool) {
	if newParent == None {
		return "", false
	}
	incoming := db.nearestDefiners(newParent)
	current := make(map[ulid.ULID]struct{})
	for _, a := range db.lineage(db.objects[id].Parent) {
		current[a] = struct{}{}
	}
	subtree := append([]ulid.ULID{id}, db.Descendants(id)...)
	for _, d := range subtree {
		for _, name := range db.objects[d].PropertyNames() {
			definer, clash := incoming[name]
			if !clash {
				continue
			}
			if _, shared := current[definer]; shared {
				continue
			}
			return name, true
		}
	}
	return "", false
}

// nearestDefiners maps each property name visible from id to the closest
// object in its lineage that defines it.
func (db *Database) nearestDefiners(id ulid.ULID) map[string]ulid.ULID {
	definers := make(map[string]ulid.ULID)
	for _, a := range db.lineage(id) {
		for name := range db.objects[a].properties {
			if _, seen := definers[name]; !seen {
				definers[name] = a
			}
		}
	}
	return definers
}

// Move relocates what into to (None for nowhere). The policy decides
// permission and whether the destination accepts the object.
func (db *Database) Move(what, to, requester ulid.ULID) error {
	if !db.Valid(what) {
		return invalidIndirection(what)
	}
	if to != None && !db.Valid(to) {
		return invalidArgument("move", "invalid destination %s", to)
	}
	if to == what || db.isInside(to, what) {
		return recursiveMove("move", what, to)
	}
	if err := db.policy.CheckMove(db, what, to, requester); err != nil {
		return err
	}
	db.relocate(db.objects[what], to)
	return nil
}

func (db *Database) relocate(o *Object, to ulid.ULID) {
	if o.Location != None {
		old := db.mustGet(o.Location)
		old.contents = removeID(old.contents, o.ID)
	}
	o.Location = to
	if to != None {
		dest := db.mustGet(to)
		dest.contents = addID(dest.contents, o.ID)
	}
}

// IsPlayer reports whether id carries the player flag.
func (db *Database) IsPlayer(id ulid.ULID) (bool, error) {
	if !db.Valid(id) {
		return false, invalidIndirection(id)
	}
	_, ok := db.players[id]
	return ok, nil
}

// SetPlayerFlag adds or removes id from the player registry. Wizards only.
func (db *Database) SetPlayerFlag(id ulid.ULID, flag bool, requester ulid.ULID) error {
	if !db.Valid(id) {
		return invalidIndirection(id)
	}
	if !db.IsWizard(requester) {
		return permissionDenied("set_player_flag", requester)
	}
	if flag {
		db.players[id] = struct{}{}
	} else {
		delete(db.players, id)
	}
	return nil
}

// Players returns the registered players in ascending identity order.
func (db *Database) Players() []ulid.ULID {
	out := make([]ulid.ULID, 0, len(db.players))
	for id := range db.players {
		out = append(out, id)
	}
	slices.SortFunc(out, func(a, b ulid.ULID) int { return a.Compare(b) })
	return out
}

// SetName renames an object.
func (db *Database) SetName(id ulid.ULID, name string, requester ulid.ULID) error {
	o, err := db.Object(id)
	if err != nil {
		return err
	}
	if !db.OwnerOrWizard(id, requester) {
		return permissionDenied("set_name", requester)
	}
	if err := ValidateName(name); err != nil {
		return validationFailed("set_name", err)
	}
	o.Name = name
	return nil
}
