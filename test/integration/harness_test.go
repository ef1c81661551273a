// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Roo Contributors

//go:build integration

package integration

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"

	"github.com/oklog/ulid/v2"
	. "github.com/onsi/gomega" //nolint:revive // gomega convention

	"github.com/roomoo/roo/internal/command"
	"github.com/roomoo/roo/internal/core"
	"github.com/roomoo/roo/internal/script"
	"github.com/roomoo/roo/internal/seed"
	"github.com/roomoo/roo/internal/session"
	"github.com/roomoo/roo/internal/store"
	"github.com/roomoo/roo/internal/world"
)

// testWorld is a running engine with everything a session needs.
type testWorld struct {
	engine     *core.Engine
	notifier   *core.Notifier
	runtime    *script.Runtime
	dispatcher *command.Dispatcher
	wizard     ulid.ULID
}

func startWorld(ctx context.Context, s store.Store) *testWorld {
	engine, err := core.Start(ctx, core.EngineConfig{
		Store:         s,
		Fresh:         seed.Fresh(seed.Minimal(), seed.WithCodeCheck(script.ValidateCode)),
		OnLoadFailure: core.OnLoadFailureFail,
	})
	Expect(err).NotTo(HaveOccurred())

	notifier := core.NewNotifier()
	proxy := core.NewProxy(engine.Shared(),
		core.WithCodeValidator(script.Validator),
		core.WithCheckpointer(engine),
		core.WithNotifier(notifier),
	)
	rt := script.New(proxy)
	dispatcher, err := command.NewDispatcher(engine.Shared(), rt)
	Expect(err).NotTo(HaveOccurred())

	wizard, err := core.Query(ctx, engine.Shared(), "test_wizard", func(db *world.Database) (ulid.ULID, error) {
		for _, id := range db.Players() {
			if db.IsWizard(id) {
				return id, nil
			}
		}
		return world.None, nil
	})
	Expect(err).NotTo(HaveOccurred())
	Expect(wizard).NotTo(Equal(world.None))

	return &testWorld{
		engine:     engine,
		notifier:   notifier,
		runtime:    rt,
		dispatcher: dispatcher,
		wizard:     wizard,
	}
}

// eval runs src as player outside any session.
func (w *testWorld) eval(ctx context.Context, player ulid.ULID, src string) string {
	out, err := w.runtime.Eval(core.WithTask(ctx, core.NewTask(player)), src)
	Expect(err).NotTo(HaveOccurred())
	return out
}

// newPlayer creates a non-wizard player standing in the start room.
func (w *testWorld) newPlayer(ctx context.Context, name string) ulid.ULID {
	out := w.eval(ctx, w.wizard, `
local p = db.create(system)
db.set_player_flag(p, true)
p.name = "`+name+`"
db.move(p, system.start)
return p`)
	id, err := world.ParseID(strings.TrimPrefix(out, "#"))
	Expect(err).NotTo(HaveOccurred())
	return id
}

// client is a connected session fed through a pipe.
type client struct {
	in   *io.PipeWriter
	out  *syncBuffer
	done chan error
}

func (w *testWorld) connect(ctx context.Context, player ulid.ULID) *client {
	pr, pw := io.Pipe()
	c := &client{in: pw, out: &syncBuffer{}, done: make(chan error, 1)}
	sess := session.New(player, w.dispatcher, w.runtime, w.notifier, c.out)
	go func() { c.done <- sess.Run(ctx, pr) }()
	Eventually(func() bool { return w.notifier.Connected(player) }).Should(BeTrue())
	return c
}

func (c *client) send(line string) {
	_, err := io.WriteString(c.in, line+"\n")
	Expect(err).NotTo(HaveOccurred())
}

func (c *client) output() string { return c.out.String() }

func (c *client) close() {
	_ = c.in.Close()
	Eventually(c.done).Should(Receive(BeNil()))
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
