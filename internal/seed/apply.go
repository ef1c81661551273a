// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Roo Contributors

package seed

import (
	"slices"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/roomoo/roo/internal/world"
)

// ApplyOption configures Apply.
type ApplyOption func(*applier)

// WithCodeCheck compiles every verb before it is added.
func WithCodeCheck(check func(code string) error) ApplyOption {
	return func(a *applier) { a.check = check }
}

type applier struct {
	db    *world.Database
	wiz   ulid.ULID
	ids   map[string]ulid.ULID
	check func(code string) error
}

// Apply bootstraps the empty database db and then builds the seed on top
// of it. Every change runs as the wizard.
func Apply(db *world.Database, s *Seed, opts ...ApplyOption) (world.Bootstrapped, error) {
	if err := s.Validate(); err != nil {
		return world.Bootstrapped{}, err
	}
	boot, err := world.Bootstrap(db)
	if err != nil {
		return world.Bootstrapped{}, err
	}

	a := &applier{
		db:  db,
		wiz: boot.Wizard,
		ids: map[string]ulid.ULID{
			KeySystem:         boot.System,
			KeyWizard:         boot.Wizard,
			KeyNothing:        boot.Nothing,
			KeyFailedMatch:    boot.FailedMatch,
			KeyAmbiguousMatch: boot.AmbiguousMatch,
		},
	}
	for _, opt := range opts {
		opt(a)
	}

	for _, o := range s.Objects {
		if _, ok := a.ids[o.Key]; ok {
			continue
		}
		id, err := db.Create(world.None, nil, a.wiz)
		if err != nil {
			return world.Bootstrapped{}, a.fail(o, "create", err)
		}
		a.ids[o.Key] = id
	}
	steps := []struct {
		name string
		fn   func(Object) error
	}{
		{"attributes", a.attributes},
		{"location", a.location},
		{"properties", a.properties},
		{"set", a.set},
		{"verbs", a.verbs},
	}
	for _, step := range steps {
		for _, o := range s.Objects {
			if err := step.fn(o); err != nil {
				return world.Bootstrapped{}, a.fail(o, step.name, err)
			}
		}
	}
	return boot, nil
}

// Fresh adapts Apply to the engine's fresh-world hook.
func Fresh(s *Seed, opts ...ApplyOption) func(db *world.Database) error {
	return func(db *world.Database) error {
		_, err := Apply(db, s, opts...)
		return err
	}
}

func (a *applier) fail(o Object, step string, err error) error {
	return oops.In("seed").
		Code(CodeInvalidSeed).
		With("object", o.Key).
		With("step", step).
		With("cause", err.Error()).
		Errorf("seed object %s: %s: %s", o.Key, step, err)
}

func (a *applier) ref(key string) ulid.ULID {
	return a.ids[key]
}

func (a *applier) attributes(o Object) error {
	id := a.ref(o.Key)
	if o.Parent != "" {
		if err := a.db.Chparent(id, a.ref(o.Parent), a.wiz); err != nil {
			return err
		}
	}
	if o.Name != "" {
		if err := a.db.SetName(id, o.Name, a.wiz); err != nil {
			return err
		}
	}
	if o.Owner != "" {
		if err := a.db.SetProperty(id, world.PropOwner, world.Obj(a.ref(o.Owner)), a.wiz); err != nil {
			return err
		}
	}
	for name, on := range map[string]bool{
		world.PropFertile:    o.Fertile,
		world.PropWizard:     o.Wizard,
		world.PropProgrammer: o.Programmer,
	} {
		if !on {
			continue
		}
		if err := a.db.SetProperty(id, name, world.Bool(true), a.wiz); err != nil {
			return err
		}
	}
	if o.Player {
		return a.db.SetPlayerFlag(id, true, a.wiz)
	}
	return nil
}

func (a *applier) location(o Object) error {
	if o.Location == "" {
		return nil
	}
	return a.db.Move(a.ref(o.Key), a.ref(o.Location), a.wiz)
}

func (a *applier) owner(key string) ulid.ULID {
	if key == "" {
		return a.wiz
	}
	return a.ref(key)
}

func (a *applier) resolve(key string) (ulid.ULID, bool) {
	id, ok := a.ids[key]
	return id, ok
}

func (a *applier) properties(o Object) error {
	id := a.ref(o.Key)
	for _, p := range o.Properties {
		v, err := buildValue(p.Value, a.resolve)
		if err != nil {
			return oops.With("property", p.Name).Wrap(err)
		}
		perms, err := world.ParsePropertyPerms(p.Perms)
		if err != nil {
			return err
		}
		info := world.PropertyInfo{Owner: a.owner(p.Owner), Perms: perms}
		if err := a.db.AddProperty(id, p.Name, v, info, a.wiz); err != nil {
			return err
		}
	}
	return nil
}

func (a *applier) set(o Object) error {
	id := a.ref(o.Key)
	names := make([]string, 0, len(o.Set))
	for name := range o.Set {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		v, err := buildValue(o.Set[name], a.resolve)
		if err != nil {
			return oops.With("property", name).Wrap(err)
		}
		if err := a.db.SetProperty(id, name, v, a.wiz); err != nil {
			return err
		}
	}
	return nil
}

func (a *applier) verbs(o Object) error {
	id := a.ref(o.Key)
	for _, vb := range o.Verbs {
		if a.check != nil && vb.Code != "" {
			if err := a.check(vb.Code); err != nil {
				return oops.With("verb", vb.Names[0]).Wrap(err)
			}
		}
		perms, err := world.ParseVerbPerms(vb.Perms)
		if err != nil {
			return err
		}
		args, err := world.ParseArgSpec(vb.Args)
		if err != nil {
			return err
		}
		v, err := world.NewVerb(vb.Names, a.owner(vb.Owner), perms, args, vb.Code)
		if err != nil {
			return err
		}
		if err := a.db.AddVerb(id, v, a.wiz); err != nil {
			return err
		}
	}
	return nil
}
