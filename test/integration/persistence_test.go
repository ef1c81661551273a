// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Roo Contributors

//go:build integration

package integration

import (
	"context"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/roomoo/roo/internal/store"
)

// storeOpener opens the same store again on every call.
type storeOpener func(ctx context.Context) store.Store

// restartScenario changes a world, closes it and checks the change after a
// restart from the same store.
func restartScenario(ctx context.Context, open storeOpener) {
	w := startWorld(ctx, open(ctx))
	w.eval(ctx, w.wizard, `
local bell = db.create(system.thing)
bell.name = "bell"
db.add_property(bell, "rung", 0)
db.add_verb(bell, {names = "ring", args = "this", perms = "rx", code = [[
this.rung = this.rung + 1
notify(player, "Ding! (" .. this.rung .. ")")
]]})
db.move(bell, system.start)
system.welcome = "Welcome back."`)

	c := w.connect(ctx, w.wizard)
	c.send("ring bell")
	Eventually(c.output).Should(ContainSubstring("Ding! (1)"))
	c.close()
	Expect(w.engine.Close(ctx)).To(Succeed())

	w = startWorld(ctx, open(ctx))
	defer func() { Expect(w.engine.Close(ctx)).To(Succeed()) }()

	c = w.connect(ctx, w.wizard)
	Eventually(c.output).Should(ContainSubstring("Welcome back."))
	Eventually(c.output).Should(ContainSubstring("You see: bell"))
	c.send("ring bell")
	Eventually(c.output).Should(ContainSubstring("Ding! (2)"))
	c.close()
}

var _ = Describe("Persistence across restarts", func() {
	It("restores the world from compressed snapshot files", func(ctx SpecContext) {
		dir := GinkgoT().TempDir()
		restartScenario(ctx, func(context.Context) store.Store {
			s, err := store.NewFileStore(dir, "world", store.WithCompression(true), store.WithKeepBackups(2))
			Expect(err).NotTo(HaveOccurred())
			return s
		})
		s, err := store.NewFileStore(dir, "world", store.WithCompression(true))
		Expect(err).NotTo(HaveOccurred())
		backups, err := s.Backups()
		Expect(err).NotTo(HaveOccurred())
		Expect(backups).To(HaveLen(1), "the first run's checkpoint was rotated")
	})

	It("restores the world from a bbolt file", func(ctx SpecContext) {
		path := filepath.Join(GinkgoT().TempDir(), "world.db")
		restartScenario(ctx, func(context.Context) store.Store {
			s, err := store.NewBoltStore(path)
			Expect(err).NotTo(HaveOccurred())
			return s
		})
	})

	Context("with PostgreSQL", Ordered, func() {
		var (
			connStr   string
			container testcontainers.Container
		)

		BeforeAll(func(ctx SpecContext) {
			pg, err := postgres.Run(ctx,
				"postgres:16-alpine",
				postgres.WithDatabase("roo_test"),
				postgres.WithUsername("roo"),
				postgres.WithPassword("roo"),
				testcontainers.WithWaitStrategy(
					wait.ForLog("database system is ready to accept connections").
						WithOccurrence(2).
						WithStartupTimeout(30*time.Second),
				),
			)
			Expect(err).NotTo(HaveOccurred())
			container = pg
			connStr, err = pg.ConnectionString(ctx, "sslmode=disable")
			Expect(err).NotTo(HaveOccurred())

			m, err := store.NewMigrator(connStr)
			Expect(err).NotTo(HaveOccurred())
			Expect(m.Up()).To(Succeed())
			Expect(m.Close()).To(Succeed())
		})

		AfterAll(func(ctx SpecContext) {
			if container != nil {
				Expect(container.Terminate(ctx)).To(Succeed())
			}
		})

		It("restores the world from the snapshot table", func(ctx SpecContext) {
			restartScenario(ctx, func(ctx context.Context) store.Store {
				s, err := store.NewPostgresStore(ctx, connStr)
				Expect(err).NotTo(HaveOccurred())
				return s
			})
		})
	})
})
