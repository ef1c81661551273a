// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Roo Contributors

package core

import (
	"context"
	"strings"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/roomoo/roo/internal/world"
)

// CodeValidator checks verb code before it is stored.
type CodeValidator interface {
	ValidateCode(code string) error
}

// CodeValidatorFunc adapts a function to CodeValidator.
type CodeValidatorFunc func(code string) error

// ValidateCode implements CodeValidator.
func (f CodeValidatorFunc) ValidateCode(code string) error { return f(code) }

// Checkpointer saves the database on request.
type Checkpointer interface {
	Checkpoint(ctx context.Context) error
}

// PropertyDescriptor is the metadata of a property as seen by scripts.
type PropertyDescriptor struct {
	Owner   string
	Perms   string
	Definer string
}

// VerbDescriptor is a verb as seen by scripts.
type VerbDescriptor struct {
	Definer string
	Names   []string
	Owner   string
	Perms   string
	Args    string
	Code    string
}

// Proxy is the stable, string-keyed API the script runtime and command
// layer call into. Every method locks exactly once, runs with the
// permissions of the task in ctx, and returns copies.
type Proxy struct {
	shared       *Shared
	validator    CodeValidator
	checkpointer Checkpointer
	notifier     *Notifier
}

// ProxyOption configures a Proxy.
type ProxyOption func(*Proxy)

// WithCodeValidator checks verb code on add_verb and set_verb_code.
func WithCodeValidator(v CodeValidator) ProxyOption {
	return func(p *Proxy) { p.validator = v }
}

// WithCheckpointer enables the checkpoint operation.
func WithCheckpointer(c Checkpointer) ProxyOption {
	return func(p *Proxy) { p.checkpointer = c }
}

// WithNotifier enables delivery of notify messages.
func WithNotifier(n *Notifier) ProxyOption {
	return func(p *Proxy) { p.notifier = n }
}

// NewProxy creates a proxy over shared.
func NewProxy(shared *Shared, opts ...ProxyOption) *Proxy {
	p := &Proxy{shared: shared}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Shared returns the wrapped database.
func (p *Proxy) Shared() *Shared { return p.shared }

func errorWith(code string) oops.OopsErrorBuilder {
	return oops.In("core").Code(code)
}

func denied(ctx context.Context, op string) error {
	return errorWith(world.CodePermissionDenied).
		With("operation", op).
		With("actor", requester(ctx).String()).
		Wrap(world.ErrPermissionDenied)
}

func formatIDs(ids []ulid.ULID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = world.FormatID(id)
	}
	return out
}

func describeVerb(v *world.Verb, definer ulid.ULID) VerbDescriptor {
	return VerbDescriptor{
		Definer: world.FormatID(definer),
		Names:   append([]string(nil), v.Names...),
		Owner:   world.FormatID(v.Owner),
		Perms:   v.Perms.String(),
		Args:    v.Args.String(),
		Code:    v.Code,
	}
}

// Create makes a child of parent. An empty owner means the caller; "self"
// or "none" make the new object own itself.
func (p *Proxy) Create(ctx context.Context, parent, owner string) (string, error) {
	parentID, err := world.ParseID(parent)
	if err != nil {
		return "", err
	}
	var ownerID *ulid.ULID
	switch strings.ToLower(strings.TrimSpace(owner)) {
	case "":
	case "self", "none":
		none := world.None
		ownerID = &none
	default:
		id, err := world.ParseID(owner)
		if err != nil {
			return "", err
		}
		ownerID = &id
	}
	req := requester(ctx)
	id, err := Mutate(ctx, p.shared, "create", func(db *world.Database) (ulid.ULID, error) {
		return db.Create(parentID, ownerID, req)
	})
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// System returns the system object, "none" before bootstrap.
func (p *Proxy) System(ctx context.Context) (string, error) {
	return Query(ctx, p.shared, "system", func(db *world.Database) (string, error) {
		return world.FormatID(db.SystemObject()), nil
	})
}

// Valid reports whether id names a live object. Malformed ids are not valid.
func (p *Proxy) Valid(ctx context.Context, id string) bool {
	oid, err := world.ParseID(id)
	if err != nil {
		return false
	}
	ok, _ := Query(ctx, p.shared, "valid", func(db *world.Database) (bool, error) {
		return db.Valid(oid), nil
	})
	return ok
}

// GetProperty reads name on id, resolving inheritance.
func (p *Proxy) GetProperty(ctx context.Context, id, name string) (world.Value, error) {
	oid, err := world.ParseID(id)
	if err != nil {
		return world.Value{}, err
	}
	req := requester(ctx)
	return Query(ctx, p.shared, "get_property", func(db *world.Database) (world.Value, error) {
		return db.GetProperty(oid, name, req)
	})
}

// SetProperty writes name on id.
func (p *Proxy) SetProperty(ctx context.Context, id, name string, v world.Value) error {
	oid, err := world.ParseID(id)
	if err != nil {
		return err
	}
	req := requester(ctx)
	return p.shared.Write(ctx, "set_property", func(db *world.Database) error {
		return db.SetProperty(oid, name, v, req)
	})
}

// SetIntoList replaces or appends the element at path inside the list
// stored in name.
func (p *Proxy) SetIntoList(ctx context.Context, id, name string, path []int, v world.Value) error {
	oid, err := world.ParseID(id)
	if err != nil {
		return err
	}
	req := requester(ctx)
	return p.shared.Write(ctx, "set_into_list", func(db *world.Database) error {
		return db.SetIntoList(oid, name, path, v, req)
	})
}

// AddProperty defines name on id. An empty owner means the caller.
func (p *Proxy) AddProperty(ctx context.Context, id, name string, v world.Value, owner, perms string) error {
	oid, err := world.ParseID(id)
	if err != nil {
		return err
	}
	pp, err := world.ParsePropertyPerms(perms)
	if err != nil {
		return err
	}
	req := requester(ctx)
	ownerID := req
	if owner != "" {
		if ownerID, err = world.ParseID(owner); err != nil {
			return err
		}
	}
	return p.shared.Write(ctx, "add_property", func(db *world.Database) error {
		return db.AddProperty(oid, name, v, world.PropertyInfo{Owner: ownerID, Perms: pp}, req)
	})
}

// DeleteProperty removes a local property of id.
func (p *Proxy) DeleteProperty(ctx context.Context, id, name string) error {
	oid, err := world.ParseID(id)
	if err != nil {
		return err
	}
	req := requester(ctx)
	return p.shared.Write(ctx, "delete_property", func(db *world.Database) error {
		return db.DeleteProperty(oid, name, req)
	})
}

// PropertyInfo returns the owner, permissions and defining object of name.
func (p *Proxy) PropertyInfo(ctx context.Context, id, name string) (PropertyDescriptor, error) {
	oid, err := world.ParseID(id)
	if err != nil {
		return PropertyDescriptor{}, err
	}
	req := requester(ctx)
	return Query(ctx, p.shared, "property_info", func(db *world.Database) (PropertyDescriptor, error) {
		info, definer, err := db.PropertyInfo(oid, name, req)
		if err != nil {
			return PropertyDescriptor{}, err
		}
		return PropertyDescriptor{
			Owner:   world.FormatID(info.Owner),
			Perms:   info.Perms.String(),
			Definer: world.FormatID(definer),
		}, nil
	})
}

// SetPropertyInfo changes owner and permissions of a local property and
// renames it when newName is not empty.
func (p *Proxy) SetPropertyInfo(ctx context.Context, id, name, owner, perms, newName string) error {
	oid, err := world.ParseID(id)
	if err != nil {
		return err
	}
	ownerID, err := world.ParseID(owner)
	if err != nil {
		return err
	}
	pp, err := world.ParsePropertyPerms(perms)
	if err != nil {
		return err
	}
	req := requester(ctx)
	return p.shared.Write(ctx, "set_property_info", func(db *world.Database) error {
		return db.SetPropertyInfo(oid, name, world.PropertyInfo{Owner: ownerID, Perms: pp, NewName: newName}, req)
	})
}

// Move puts what inside to; "none" takes it out of the world.
func (p *Proxy) Move(ctx context.Context, what, to string) error {
	whatID, err := world.ParseID(what)
	if err != nil {
		return err
	}
	toID, err := world.ParseID(to)
	if err != nil {
		return err
	}
	req := requester(ctx)
	return p.shared.Write(ctx, "move", func(db *world.Database) error {
		return db.Move(whatID, toID, req)
	})
}

// Chparent changes the parent of id.
func (p *Proxy) Chparent(ctx context.Context, id, parent string) error {
	oid, err := world.ParseID(id)
	if err != nil {
		return err
	}
	parentID, err := world.ParseID(parent)
	if err != nil {
		return err
	}
	req := requester(ctx)
	return p.shared.Write(ctx, "chparent", func(db *world.Database) error {
		return db.Chparent(oid, parentID, req)
	})
}

// Recycle destroys id.
func (p *Proxy) Recycle(ctx context.Context, id string) error {
	oid, err := world.ParseID(id)
	if err != nil {
		return err
	}
	req := requester(ctx)
	return p.shared.Write(ctx, "recycle", func(db *world.Database) error {
		return db.Recycle(oid, req)
	})
}

func (p *Proxy) relation(ctx context.Context, op, id string, get func(o *world.Object) []ulid.ULID) ([]string, error) {
	oid, err := world.ParseID(id)
	if err != nil {
		return nil, err
	}
	return Query(ctx, p.shared, op, func(db *world.Database) ([]string, error) {
		o, err := db.Object(oid)
		if err != nil {
			return nil, err
		}
		return formatIDs(get(o)), nil
	})
}

// Parent returns the parent of id, or "none".
func (p *Proxy) Parent(ctx context.Context, id string) (string, error) {
	out, err := p.relation(ctx, "parent", id, func(o *world.Object) []ulid.ULID {
		return []ulid.ULID{o.Parent}
	})
	if err != nil {
		return "", err
	}
	return out[0], nil
}

// Location returns the location of id, or "none".
func (p *Proxy) Location(ctx context.Context, id string) (string, error) {
	out, err := p.relation(ctx, "location", id, func(o *world.Object) []ulid.ULID {
		return []ulid.ULID{o.Location}
	})
	if err != nil {
		return "", err
	}
	return out[0], nil
}

// Children returns the direct children of id.
func (p *Proxy) Children(ctx context.Context, id string) ([]string, error) {
	return p.relation(ctx, "children", id, (*world.Object).Children)
}

// Contents returns the objects located in id.
func (p *Proxy) Contents(ctx context.Context, id string) ([]string, error) {
	return p.relation(ctx, "contents", id, (*world.Object).Contents)
}

// Ancestors returns the parent chain of id, nearest first.
func (p *Proxy) Ancestors(ctx context.Context, id string) ([]string, error) {
	oid, err := world.ParseID(id)
	if err != nil {
		return nil, err
	}
	return Query(ctx, p.shared, "ancestors", func(db *world.Database) ([]string, error) {
		if _, err := db.Object(oid); err != nil {
			return nil, err
		}
		return formatIDs(db.Ancestors(oid)), nil
	})
}

// AddVerb appends a verb to id. An empty owner means the caller.
func (p *Proxy) AddVerb(ctx context.Context, id string, d VerbDescriptor) error {
	oid, err := world.ParseID(id)
	if err != nil {
		return err
	}
	perms, err := world.ParseVerbPerms(d.Perms)
	if err != nil {
		return err
	}
	args, err := world.ParseArgSpec(d.Args)
	if err != nil {
		return err
	}
	req := requester(ctx)
	owner := req
	if d.Owner != "" {
		if owner, err = world.ParseID(d.Owner); err != nil {
			return err
		}
	}
	if err := p.validate(d.Code); err != nil {
		return err
	}
	v, err := world.NewVerb(d.Names, owner, perms, args, d.Code)
	if err != nil {
		return err
	}
	return p.shared.Write(ctx, "add_verb", func(db *world.Database) error {
		return db.AddVerb(oid, v, req)
	})
}

func (p *Proxy) validate(code string) error {
	if p.validator == nil || code == "" {
		return nil
	}
	if err := p.validator.ValidateCode(code); err != nil {
		return errorWith(world.CodeInvalidArgument).
			With("operation", "validate_code").
			With("cause", err.Error()).
			Errorf("verb code does not compile: %s", err)
	}
	return nil
}

// DeleteVerb removes the local verb of id selected by desc.
func (p *Proxy) DeleteVerb(ctx context.Context, id, desc string) error {
	oid, err := world.ParseID(id)
	if err != nil {
		return err
	}
	req := requester(ctx)
	return p.shared.Write(ctx, "delete_verb", func(db *world.Database) error {
		return db.DeleteVerb(oid, desc, req)
	})
}

// VerbInfo describes the local verb of id selected by desc, a 1-based index
// or a name.
func (p *Proxy) VerbInfo(ctx context.Context, id, desc string) (VerbDescriptor, error) {
	oid, err := world.ParseID(id)
	if err != nil {
		return VerbDescriptor{}, err
	}
	req := requester(ctx)
	return Query(ctx, p.shared, "verb_info", func(db *world.Database) (VerbDescriptor, error) {
		v, err := db.VerbInfo(oid, desc, req)
		if err != nil {
			return VerbDescriptor{}, err
		}
		return describeVerb(v, oid), nil
	})
}

// VerbCode returns the code of the local verb of id selected by desc.
func (p *Proxy) VerbCode(ctx context.Context, id, desc string) (string, error) {
	d, err := p.VerbInfo(ctx, id, desc)
	if err != nil {
		return "", err
	}
	return d.Code, nil
}

// SetVerbCode replaces the code of the local verb of id selected by desc.
func (p *Proxy) SetVerbCode(ctx context.Context, id, desc, code string) error {
	oid, err := world.ParseID(id)
	if err != nil {
		return err
	}
	if err := p.validate(code); err != nil {
		return err
	}
	req := requester(ctx)
	return p.shared.Write(ctx, "set_verb_code", func(db *world.Database) error {
		return db.SetVerbCode(oid, desc, code, req)
	})
}

// ResolveVerb finds the nearest verb named name on id or its ancestors.
func (p *Proxy) ResolveVerb(ctx context.Context, id, name string) (VerbDescriptor, error) {
	oid, err := world.ParseID(id)
	if err != nil {
		return VerbDescriptor{}, err
	}
	return Query(ctx, p.shared, "resolve_verb", func(db *world.Database) (VerbDescriptor, error) {
		v, definer, err := db.ResolveVerb(oid, name)
		if err != nil {
			return VerbDescriptor{}, err
		}
		return describeVerb(v, definer), nil
	})
}

// HasVerbWithName reports whether id or an ancestor has a verb named name.
func (p *Proxy) HasVerbWithName(ctx context.Context, id, name string) (bool, error) {
	oid, err := world.ParseID(id)
	if err != nil {
		return false, err
	}
	return Query(ctx, p.shared, "has_verb_with_name", func(db *world.Database) (bool, error) {
		return db.HasVerbWithName(oid, name)
	})
}

// Verbs lists the local verbs of id, each as its space-separated names.
func (p *Proxy) Verbs(ctx context.Context, id string) ([]string, error) {
	oid, err := world.ParseID(id)
	if err != nil {
		return nil, err
	}
	return Query(ctx, p.shared, "verbs", func(db *world.Database) ([]string, error) {
		o, err := db.Object(oid)
		if err != nil {
			return nil, err
		}
		verbs := o.Verbs()
		out := make([]string, len(verbs))
		for i, v := range verbs {
			out[i] = strings.Join(v.Names, " ")
		}
		return out, nil
	})
}

// IsPlayer reports whether id is a registered player.
func (p *Proxy) IsPlayer(ctx context.Context, id string) (bool, error) {
	oid, err := world.ParseID(id)
	if err != nil {
		return false, err
	}
	return Query(ctx, p.shared, "is_player", func(db *world.Database) (bool, error) {
		return db.IsPlayer(oid)
	})
}

// SetPlayerFlag registers or unregisters id as a player.
func (p *Proxy) SetPlayerFlag(ctx context.Context, id string, flag bool) error {
	oid, err := world.ParseID(id)
	if err != nil {
		return err
	}
	req := requester(ctx)
	return p.shared.Write(ctx, "set_player_flag", func(db *world.Database) error {
		return db.SetPlayerFlag(oid, flag, req)
	})
}

// Players lists the registered players.
func (p *Proxy) Players(ctx context.Context) ([]string, error) {
	return Query(ctx, p.shared, "players", func(db *world.Database) ([]string, error) {
		return formatIDs(db.Players()), nil
	})
}

// SetTaskPerms changes the permission identity of the current task. A
// wizard may pick any live object; anyone else may only keep their own.
func (p *Proxy) SetTaskPerms(ctx context.Context, id string) error {
	t, ok := TaskFrom(ctx)
	if !ok {
		return denied(ctx, "set_task_perms")
	}
	target, err := world.ParseID(id)
	if err != nil {
		return err
	}
	current := t.Perms()
	err = p.shared.Read(ctx, "set_task_perms", func(db *world.Database) error {
		if target == current {
			return nil
		}
		if !db.IsWizard(current) {
			return denied(ctx, "set_task_perms")
		}
		_, err := db.Object(target)
		return err
	})
	if err != nil {
		return err
	}
	t.setPerms(target)
	return nil
}

// Checkpoint saves the database now. Wizards only. The save happens
// outside the database lock.
func (p *Proxy) Checkpoint(ctx context.Context) error {
	req := requester(ctx)
	err := p.shared.Read(ctx, "checkpoint", func(db *world.Database) error {
		if !db.IsWizard(req) {
			return denied(ctx, "checkpoint")
		}
		return nil
	})
	if err != nil {
		return err
	}
	if p.checkpointer == nil {
		return errorWith(world.CodeNotImplemented).Errorf("checkpointing is not configured")
	}
	return p.checkpointer.Checkpoint(ctx)
}

// Notify sends msg to the sessions of player. The caller must be that
// player or a wizard. It returns how many sessions received the message.
func (p *Proxy) Notify(ctx context.Context, player, msg string) (int, error) {
	pid, err := world.ParseID(player)
	if err != nil {
		return 0, err
	}
	req := requester(ctx)
	err = p.shared.Read(ctx, "notify", func(db *world.Database) error {
		isPlayer, err := db.IsPlayer(pid)
		if err != nil {
			return err
		}
		if !isPlayer {
			return errorWith(world.CodeInvalidArgument).
				With("operation", "notify").
				Errorf("%s is not a player", pid)
		}
		if req != pid && !db.IsWizard(req) {
			return denied(ctx, "notify")
		}
		return nil
	})
	if err != nil || p.notifier == nil {
		return 0, err
	}
	return p.notifier.Notify(pid, msg), nil
}
