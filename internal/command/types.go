// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Roo Contributors

// Package command turns typed lines into verb invocations: it parses the
// line, resolves the direct object, finds the verb and hands it to the
// script runtime.
package command

import (
	"context"

	"github.com/oklog/ulid/v2"

	"github.com/roomoo/roo/internal/world"
)

// Invocation is everything a runtime needs to run a matched verb.
type Invocation struct {
	// This is the object the verb was found on.
	This ulid.ULID
	// Definer is the ancestor of This that defines the verb.
	Definer ulid.ULID
	Player  ulid.ULID
	Verb    *world.Verb
	Command world.Command
}

// Runtime executes verb code. RunVerb is called outside the database lock
// and reaches the database only through the proxy.
type Runtime interface {
	RunVerb(ctx context.Context, inv Invocation) error
}

// RuntimeFunc adapts a function to Runtime.
type RuntimeFunc func(ctx context.Context, inv Invocation) error

// RunVerb implements Runtime.
func (f RuntimeFunc) RunVerb(ctx context.Context, inv Invocation) error { return f(ctx, inv) }
