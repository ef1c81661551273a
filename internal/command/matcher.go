// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Roo Contributors

package command

import (
	"github.com/oklog/ulid/v2"

	"github.com/roomoo/roo/internal/world"
)

// Match turns a parsed command into the key verb lookup consumes, resolving
// the direct-object token against the actor's inventory and then the
// contents of its location. A token that parses as an identity matches by
// identity, anything else by exact, case-sensitive name. An unresolved
// token leaves Dobj as world.None with Dobjstr still set.
//
// Match must run under the database read lock.
func Match(db *world.Database, actor ulid.ULID, p *ParsedCommand) world.Command {
	cmd := world.Command{
		Verb:    p.Verb,
		Argstr:  p.Argstr,
		Dobjstr: p.Argstr,
		Dobj:    world.None,
		HasDobj: p.HasDobj(),
	}
	if !cmd.HasDobj {
		return cmd
	}
	for _, candidates := range candidateSets(db, actor) {
		if id, ok := resolve(db, candidates, p.Argstr); ok {
			cmd.Dobj = id
			break
		}
	}
	return cmd
}

// candidateSets lists where a direct object may be found, in search order.
func candidateSets(db *world.Database, actor ulid.ULID) [][]ulid.ULID {
	o, err := db.Object(actor)
	if err != nil {
		return nil
	}
	sets := [][]ulid.ULID{o.Contents()}
	if loc, err := db.Object(o.Location); err == nil {
		sets = append(sets, loc.Contents())
	}
	return sets
}

func resolve(db *world.Database, candidates []ulid.ULID, token string) (ulid.ULID, bool) {
	if id, err := world.ParseID(token); err == nil && id != world.None {
		for _, c := range candidates {
			if c == id {
				return c, true
			}
		}
		return world.None, false
	}
	for _, c := range candidates {
		if o, err := db.Object(c); err == nil && o.Name == token {
			return c, true
		}
	}
	return world.None, false
}
