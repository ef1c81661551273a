// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Roo Contributors

package command

import (
	"context"
	"log/slog"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/roomoo/roo/internal/core"
	"github.com/roomoo/roo/internal/world"
)

var tracer = otel.Tracer("roo/command")

// Dispatcher matches typed lines to verbs and runs them.
type Dispatcher struct {
	shared      *core.Shared
	runtime     Runtime
	rateLimiter *RateLimiter // optional, can be nil
}

// DispatcherOption configures a Dispatcher during construction.
type DispatcherOption func(*Dispatcher)

// WithRateLimiter limits how fast each session may issue commands.
// Wizards are not limited.
func WithRateLimiter(rl *RateLimiter) DispatcherOption {
	return func(d *Dispatcher) {
		d.rateLimiter = rl
	}
}

// NewDispatcher creates a dispatcher over shared that runs verbs with rt.
func NewDispatcher(shared *core.Shared, rt Runtime, opts ...DispatcherOption) (*Dispatcher, error) {
	if shared == nil {
		return nil, ErrNilShared
	}
	if rt == nil {
		return nil, ErrNilRuntime
	}
	d := &Dispatcher{shared: shared, runtime: rt}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

type match struct {
	inv    Invocation
	source string
	found  bool
	wizard bool
}

// Dispatch runs one typed line for the player of the task in ctx. A blank
// line does nothing. The verb is searched on the player, then the player's
// location, then the resolved direct object; the first that has a verb
// accepting the command runs it.
func (d *Dispatcher) Dispatch(ctx context.Context, sessionID ulid.ULID, input string) (err error) {
	parsed, ok := Parse(input)
	if !ok {
		return nil
	}
	task, ok := core.TaskFrom(ctx)
	if !ok {
		return ErrNoPlayer()
	}

	ctx, span := tracer.Start(ctx, "command.execute",
		trace.WithAttributes(
			attribute.String("command.verb", parsed.Verb),
			attribute.String("player.id", task.Player.String()),
		),
	)
	rec := newMetricsRecorder()
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		rec.record()
	}()

	m, err := core.Query(ctx, d.shared, "match_command", func(db *world.Database) (match, error) {
		return findVerb(db, task.Player, parsed)
	})
	if err != nil {
		rec.setStatus(StatusError)
		return err
	}

	if d.rateLimiter != nil && !m.wizard {
		if allowed, cooldownMs := d.rateLimiter.Allow(sessionID); !allowed {
			span.SetAttributes(attribute.Bool("command.rate_limited", true))
			span.SetAttributes(attribute.Int64("command.cooldown_ms", cooldownMs))
			CommandsRateLimited.Inc()
			rec.setStatus(StatusRateLimited)
			return ErrRateLimited(cooldownMs)
		}
	}

	if !m.found {
		rec.setStatus(StatusNotFound)
		return ErrUnknownCommand(parsed.Verb)
	}

	rec.setVerb(m.inv.Verb.Name())
	rec.setSource(m.source)
	span.SetAttributes(
		attribute.String("command.source", m.source),
		attribute.String("verb.definer", m.inv.Definer.String()),
	)

	if err = d.runtime.RunVerb(ctx, m.inv); err != nil {
		rec.setStatus(StatusError)
		if world.CodeOf(err) == "" {
			err = ScriptError(m.inv.Verb.Name(), err)
		}
		slog.WarnContext(ctx, "command execution failed",
			"verb", m.inv.Verb.Name(),
			"this", m.inv.This.String(),
			"error", err,
		)
	}
	return err
}

func findVerb(db *world.Database, player ulid.ULID, parsed *ParsedCommand) (match, error) {
	actor, err := db.Object(player)
	if err != nil {
		return match{}, err
	}
	cmd := Match(db, player, parsed)
	m := match{wizard: db.IsWizard(player)}

	targets := []struct {
		id     ulid.ULID
		source string
	}{
		{player, SourcePlayer},
		{actor.Location, SourceLocation},
		{cmd.Dobj, SourceDobj},
	}
	for _, t := range targets {
		if t.id == world.None {
			continue
		}
		v, definer, ok := db.MatchingVerb(t.id, cmd)
		if !ok {
			continue
		}
		m.inv = Invocation{This: t.id, Definer: definer, Player: player, Verb: v, Command: cmd}
		m.source = t.source
		m.found = true
		break
	}
	return m, nil
}
