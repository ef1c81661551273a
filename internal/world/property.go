// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Roo Contributors

package world

import (
	"strings"

	"github.com/oklog/ulid/v2"
)

// PropertyPerms are the permission bits of a property.
type PropertyPerms struct {
	Read  bool
	Write bool
	// Chown makes copies materialised on descendants belong to the
	// descendant's owner instead of the defining property's owner.
	Chown bool
}

// ParsePropertyPerms parses a string of the letters r, w and c.
func ParsePropertyPerms(s string) (PropertyPerms, error) {
	var p PropertyPerms
	for _, r := range strings.ToLower(s) {
		switch r {
		case 'r':
			p.Read = true
		case 'w':
			p.Write = true
		case 'c':
			p.Chown = true
		default:
			return PropertyPerms{}, errWith(CodeInvalidArgument).
				With("perms", s).
				Errorf("unknown property permission %q", r)
		}
	}
	return p, nil
}

func (p PropertyPerms) String() string {
	var b strings.Builder
	if p.Read {
		b.WriteByte('r')
	}
	if p.Write {
		b.WriteByte('w')
	}
	if p.Chown {
		b.WriteByte('c')
	}
	return b.String()
}

// PropertyInfo is the metadata of a property.
type PropertyInfo struct {
	Owner ulid.ULID
	Perms PropertyPerms
	// NewName, when set on an update, renames the property.
	NewName string
}

// Property is a locally defined property.
type Property struct {
	Info  PropertyInfo
	Value Value
}

func (p *Property) clone() *Property {
	return &Property{
		Info:  PropertyInfo{Owner: p.Info.Owner, Perms: p.Info.Perms},
		Value: p.Value.Clone(),
	}
}
