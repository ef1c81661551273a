// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Roo Contributors

// Package seed builds a starting world from a YAML description.
package seed

import (
	"bytes"
	_ "embed"
	"errors"
	"io"
	"regexp"

	"github.com/Masterminds/semver/v3"
	"github.com/samber/oops"
	"gopkg.in/yaml.v3"

	"github.com/roomoo/roo/internal/world"
)

// Format is the seed format version this package reads.
const Format = "1.0.0"

const formatCompat = "^1.0.0"

// CodeInvalidSeed marks a seed that cannot be applied.
const CodeInvalidSeed = "SEED_INVALID"

// Keys naming the objects every world starts with. A seed may describe
// them to add names, properties and verbs.
const (
	KeySystem         = "system"
	KeyWizard         = "wizard"
	KeyNothing        = "nothing"
	KeyFailedMatch    = "failed_match"
	KeyAmbiguousMatch = "ambiguous_match"
)

//go:embed minimal.yaml
var minimal []byte

// Minimal returns the embedded starting world: the system object, the
// sentinels, the wizard and a first room with a few everyday verbs.
func Minimal() *Seed {
	s, err := Parse(minimal)
	if err != nil {
		panic("seed: embedded minimal seed is invalid: " + err.Error())
	}
	return s
}

// MinimalYAML returns the embedded seed source.
func MinimalYAML() []byte { return bytes.Clone(minimal) }

// Seed is a world description.
type Seed struct {
	Format  string   `yaml:"format" json:"format" jsonschema:"description=seed format version (semver)"`
	Objects []Object `yaml:"objects" json:"objects"`
}

// Object describes one object. References name other objects by key.
type Object struct {
	Key        string     `yaml:"key" json:"key" jsonschema:"pattern=^[a-z][a-z0-9_]*$"`
	Name       string     `yaml:"name,omitempty" json:"name,omitempty"`
	Parent     string     `yaml:"parent,omitempty" json:"parent,omitempty"`
	Owner      string     `yaml:"owner,omitempty" json:"owner,omitempty"`
	Location   string     `yaml:"location,omitempty" json:"location,omitempty"`
	Fertile    bool       `yaml:"fertile,omitempty" json:"fertile,omitempty"`
	Player     bool       `yaml:"player,omitempty" json:"player,omitempty"`
	Wizard     bool       `yaml:"wizard,omitempty" json:"wizard,omitempty"`
	Programmer bool       `yaml:"programmer,omitempty" json:"programmer,omitempty"`
	Properties []Property `yaml:"properties,omitempty" json:"properties,omitempty"`
	// Set assigns values to properties the object inherits.
	Set   map[string]any `yaml:"set,omitempty" json:"set,omitempty"`
	Verbs []Verb         `yaml:"verbs,omitempty" json:"verbs,omitempty"`
}

// Property is a local property. Values are YAML scalars and sequences;
// "$key" strings are object references, and single-key maps objset, code
// and optobj build the other kinds.
type Property struct {
	Name  string `yaml:"name" json:"name"`
	Value any    `yaml:"value" json:"value"`
	Owner string `yaml:"owner,omitempty" json:"owner,omitempty"`
	Perms string `yaml:"perms,omitempty" json:"perms,omitempty" jsonschema:"pattern=^[rwc]*$"`
}

// Verb is a local verb.
type Verb struct {
	Names []string `yaml:"names" json:"names" jsonschema:"minItems=1"`
	Args  string   `yaml:"args,omitempty" json:"args,omitempty" jsonschema:"enum=none,enum=any,enum=this"`
	Owner string   `yaml:"owner,omitempty" json:"owner,omitempty"`
	Perms string   `yaml:"perms,omitempty" json:"perms,omitempty" jsonschema:"pattern=^[rwxd]*$"`
	Code  string   `yaml:"code,omitempty" json:"code,omitempty"`
}

var keyPattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

func invalid(format string, args ...any) error {
	return oops.In("seed").Code(CodeInvalidSeed).Errorf(format, args...)
}

// Parse decodes and validates a seed. Unknown fields are rejected.
func Parse(data []byte) (*Seed, error) {
	if len(data) == 0 {
		return nil, invalid("seed data is empty")
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var s Seed
	if err := dec.Decode(&s); err != nil && !errors.Is(err, io.EOF) {
		return nil, oops.In("seed").Code(CodeInvalidSeed).
			With("cause", err.Error()).
			Errorf("invalid YAML: %s", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks the seed without building it: the format version, key
// syntax and uniqueness, references, permissions and argument specs.
func (s *Seed) Validate() error {
	v, err := semver.NewVersion(s.Format)
	if err != nil {
		return invalid("unreadable seed format %q", s.Format)
	}
	c, err := semver.NewConstraint(formatCompat)
	if err != nil {
		return oops.Wrapf(err, "parse seed compatibility constraint")
	}
	if !c.Check(v) {
		return invalid("seed format %s is not supported", s.Format)
	}

	keys := map[string]bool{
		KeySystem: true, KeyWizard: true, KeyNothing: true,
		KeyFailedMatch: true, KeyAmbiguousMatch: true,
	}
	seen := make(map[string]bool)
	for _, o := range s.Objects {
		if !keyPattern.MatchString(o.Key) {
			return invalid("object key %q must match %s", o.Key, keyPattern)
		}
		if seen[o.Key] {
			return invalid("object key %q is used twice", o.Key)
		}
		seen[o.Key] = true
		keys[o.Key] = true
	}

	ref := func(o Object, field, key string) error {
		if key != "" && !keys[key] {
			return invalid("%s of %s names unknown object %q", field, o.Key, key)
		}
		return nil
	}
	for _, o := range s.Objects {
		for field, key := range map[string]string{"parent": o.Parent, "owner": o.Owner, "location": o.Location} {
			if err := ref(o, field, key); err != nil {
				return err
			}
		}
		if o.Name != "" {
			if err := world.ValidateName(o.Name); err != nil {
				return invalid("name of %s: %s", o.Key, err)
			}
		}
		for _, p := range o.Properties {
			if err := ref(o, "owner of property "+p.Name, p.Owner); err != nil {
				return err
			}
			if _, err := world.ParsePropertyPerms(p.Perms); err != nil {
				return invalid("property %s of %s: %s", p.Name, o.Key, err)
			}
			if _, err := decodeValue(p.Value, func(key string) bool { return keys[key] }); err != nil {
				return invalid("property %s of %s: %s", p.Name, o.Key, err)
			}
		}
		for name, v := range o.Set {
			if _, err := decodeValue(v, func(key string) bool { return keys[key] }); err != nil {
				return invalid("value of %s on %s: %s", name, o.Key, err)
			}
		}
		for _, vb := range o.Verbs {
			if len(vb.Names) == 0 {
				return invalid("verb of %s has no names", o.Key)
			}
			if err := ref(o, "owner of verb "+vb.Names[0], vb.Owner); err != nil {
				return err
			}
			if _, err := world.ParseVerbPerms(vb.Perms); err != nil {
				return invalid("verb %s of %s: %s", vb.Names[0], o.Key, err)
			}
			if _, err := world.ParseArgSpec(vb.Args); err != nil {
				return invalid("verb %s of %s: %s", vb.Names[0], o.Key, err)
			}
		}
	}
	return nil
}
