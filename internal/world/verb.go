// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Roo Contributors

package world

import (
	"strconv"
	"strings"

	"github.com/gobwas/glob"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// VerbPerms are the permission bits of a verb.
type VerbPerms struct {
	Read  bool
	Write bool
	Exec  bool
	Debug bool
}

// ParseVerbPerms parses a string of the letters r, w, x and d.
func ParseVerbPerms(s string) (VerbPerms, error) {
	var p VerbPerms
	for _, r := range strings.ToLower(s) {
		switch r {
		case 'r':
			p.Read = true
		case 'w':
			p.Write = true
		case 'x':
			p.Exec = true
		case 'd':
			p.Debug = true
		default:
			return VerbPerms{}, errWith(CodeInvalidArgument).
				With("perms", s).
				Errorf("unknown verb permission %q", r)
		}
	}
	return p, nil
}

func (p VerbPerms) String() string {
	var b strings.Builder
	for _, f := range []struct {
		set bool
		c   byte
	}{{p.Read, 'r'}, {p.Write, 'w'}, {p.Exec, 'x'}, {p.Debug, 'd'}} {
		if f.set {
			b.WriteByte(f.c)
		}
	}
	return b.String()
}

// ArgSpec is the argument shape a verb accepts.
type ArgSpec uint8

// Argument shapes.
const (
	// ArgsNone accepts only a bare command.
	ArgsNone ArgSpec = iota
	// ArgsAny accepts a command with any direct object.
	ArgsAny
	// ArgsThis accepts a command whose direct object is the verb's object.
	ArgsThis
)

func (a ArgSpec) String() string {
	switch a {
	case ArgsAny:
		return "any"
	case ArgsThis:
		return "this"
	default:
		return "none"
	}
}

// ParseArgSpec parses "none", "any" or "this".
func ParseArgSpec(s string) (ArgSpec, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return ArgsNone, nil
	case "any":
		return ArgsAny, nil
	case "this":
		return ArgsThis, nil
	default:
		return ArgsNone, errWith(CodeInvalidArgument).
			With("args", s).
			Errorf("unknown verb argument spec %q", s)
	}
}

// Verb is executable code attached to an object.
type Verb struct {
	Names []string
	Owner ulid.ULID
	Perms VerbPerms
	Args  ArgSpec
	Code  string

	patterns []glob.Glob
}

// NewVerb builds a verb, compiling each name as a glob pattern.
func NewVerb(names []string, owner ulid.ULID, perms VerbPerms, args ArgSpec, code string) (*Verb, error) {
	if err := ValidateVerbNames(names); err != nil {
		return nil, validationFailed("add_verb", err)
	}
	v := &Verb{
		Names: append([]string(nil), names...),
		Owner: owner,
		Perms: perms,
		Args:  args,
		Code:  code,
	}
	if err := v.compile(); err != nil {
		return nil, err
	}
	return v, nil
}

func (v *Verb) compile() error {
	v.patterns = make([]glob.Glob, len(v.Names))
	for i, name := range v.Names {
		g, err := glob.Compile(name)
		if err != nil {
			return errWith(CodeInvalidArgument).
				With("name", name).
				Wrapf(err, "invalid verb name pattern")
		}
		v.patterns[i] = g
	}
	return nil
}

// Name returns the canonical (first) name.
func (v *Verb) Name() string {
	return v.Names[0]
}

// NameMatches reports whether needle equals or glob-matches any name.
func (v *Verb) NameMatches(needle string) bool {
	for i, name := range v.Names {
		if name == needle || (i < len(v.patterns) && v.patterns[i].Match(needle)) {
			return true
		}
	}
	return false
}

// Overlaps reports whether any alias of v could select the same command as
// an alias of other: equal names, or either side's pattern matching the
// other's literal text.
func (v *Verb) Overlaps(other *Verb) bool {
	for i, a := range v.Names {
		for j, b := range other.Names {
			if a == b ||
				(i < len(v.patterns) && v.patterns[i].Match(b)) ||
				(j < len(other.patterns) && other.patterns[j].Match(a)) {
				return true
			}
		}
	}
	return false
}

// Accepts reports whether cmd has the argument shape v expects when v is
// defined on (or inherited by) the object self.
func (v *Verb) Accepts(cmd Command, self ulid.ULID) bool {
	switch v.Args {
	case ArgsNone:
		return !cmd.HasDobj
	case ArgsAny:
		return cmd.HasDobj
	case ArgsThis:
		return cmd.HasDobj && cmd.Dobj == self
	default:
		return false
	}
}

// Clone returns a deep copy.
func (v *Verb) Clone() *Verb {
	out := *v
	out.Names = append([]string(nil), v.Names...)
	out.patterns = append([]glob.Glob(nil), v.patterns...)
	return &out
}

// Command is a parsed player command as seen by verb matching.
type Command struct {
	Verb    string
	Argstr  string
	Dobjstr string
	// Dobj is the resolved direct object, or None when unresolved.
	Dobj ulid.ULID
	// HasDobj distinguishes a direct-object command from a bare one.
	HasDobj bool
}

// verbIndex resolves a verb descriptor against a verb list: a positive
// integer is a 1-based index, anything else a name.
func verbIndex(verbs []*Verb, desc string) (int, bool) {
	if n, err := strconv.Atoi(desc); err == nil {
		if n >= 1 && n <= len(verbs) {
			return n - 1, true
		}
		return -1, false
	}
	for i, v := range verbs {
		if v.NameMatches(desc) {
			return i, true
		}
	}
	return -1, false
}

func ensureCompiled(v *Verb) error {
	if len(v.patterns) == len(v.Names) {
		return nil
	}
	if err := v.compile(); err != nil {
		return oops.Wrapf(err, "compile verb %q", strings.Join(v.Names, " "))
	}
	return nil
}
