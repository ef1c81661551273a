// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Roo Contributors

package core

import (
	"context"
	"log/slog"
	"sync"

	"github.com/oklog/ulid/v2"

	"github.com/roomoo/roo/internal/logging"
	"github.com/roomoo/roo/internal/world"
)

// Task is one unit of work on behalf of a connected player: a command, an
// eval line, or a verb call chain. Perms is the identity permission checks
// run as; it starts as the player and may be changed with SetTaskPerms.
type Task struct {
	ID     ulid.ULID
	Player ulid.ULID

	mu    sync.Mutex
	perms ulid.ULID
}

// NewTask starts a task for player running with the player's permissions.
func NewTask(player ulid.ULID) *Task {
	return &Task{ID: world.NewID(), Player: player, perms: player}
}

// Perms returns the current permission identity.
func (t *Task) Perms() ulid.ULID {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.perms
}

// Activation returns a task for running a verb owned by owner on behalf of
// the same player. SetTaskPerms inside the activation does not leak back.
func (t *Task) Activation(owner ulid.ULID) *Task {
	return &Task{ID: t.ID, Player: t.Player, perms: owner}
}

func (t *Task) setPerms(id ulid.ULID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.perms = id
}

type taskKey struct{}

// WithTask attaches t to ctx. Log records written with the returned context
// carry the task and player identities.
func WithTask(ctx context.Context, t *Task) context.Context {
	ctx = logging.WithAttrs(ctx,
		slog.String("task_id", t.ID.String()),
		slog.String("player", t.Player.String()),
	)
	return context.WithValue(ctx, taskKey{}, t)
}

// TaskFrom returns the task carried by ctx.
func TaskFrom(ctx context.Context) (*Task, bool) {
	t, ok := ctx.Value(taskKey{}).(*Task)
	return t, ok
}

// requester is the identity permission checks run as. Without a task it is
// None, which every permission check rejects.
func requester(ctx context.Context) ulid.ULID {
	if t, ok := TaskFrom(ctx); ok {
		return t.Perms()
	}
	return world.None
}
