// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Roo Contributors

package world

import "github.com/oklog/ulid/v2"

// MovePolicy decides whether requester may move what into to, and whether
// the destination accepts it. It runs inside the write lock after the
// structural checks, so it may read db but must not mutate it.
type MovePolicy interface {
	CheckMove(db *Database, what, to, requester ulid.ULID) error
}

// MovePolicyFunc adapts a function to MovePolicy.
type MovePolicyFunc func(db *Database, what, to, requester ulid.ULID) error

// CheckMove implements MovePolicy.
func (f MovePolicyFunc) CheckMove(db *Database, what, to, requester ulid.ULID) error {
	return f(db, what, to, requester)
}

// DefaultMovePolicy lets the owner of what, or a wizard, move it anywhere.
type DefaultMovePolicy struct{}

// CheckMove implements MovePolicy.
func (DefaultMovePolicy) CheckMove(db *Database, what, _, requester ulid.ULID) error {
	if !db.OwnerOrWizard(what, requester) {
		return permissionDenied("move", requester)
	}
	return nil
}

// AcceptFunc decides whether a destination takes an object.
type AcceptFunc func(db *Database, what, to ulid.ULID) bool

// AcceptingPolicy extends DefaultMovePolicy with a destination check.
// Refusals fail with E_NACC. Moving to None is always accepted.
type AcceptingPolicy struct {
	Accept AcceptFunc
}

// CheckMove implements MovePolicy.
func (p AcceptingPolicy) CheckMove(db *Database, what, to, requester ulid.ULID) error {
	if err := (DefaultMovePolicy{}).CheckMove(db, what, to, requester); err != nil {
		return err
	}
	if to == None || p.Accept == nil || p.Accept(db, what, to) {
		return nil
	}
	return errWith(CodeNotAccepted).
		With("object", what.String()).
		With("destination", to.String()).
		Errorf("%s does not accept %s", to, what)
}
