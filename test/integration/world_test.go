// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Roo Contributors

//go:build integration

package integration

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/oklog/ulid/v2"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/roomoo/roo/internal/core"
	"github.com/roomoo/roo/internal/store"
	"github.com/roomoo/roo/internal/world"
)

var _ = Describe("A shared world", func() {
	var (
		ctx    context.Context
		cancel context.CancelFunc
		w      *testWorld
	)

	BeforeEach(func() {
		ctx, cancel = context.WithCancel(context.Background())
		s, err := store.NewFileStore(filepath.Join(GinkgoT().TempDir(), "snapshots"), "world")
		Expect(err).NotTo(HaveOccurred())
		w = startWorld(ctx, s)
	})

	AfterEach(func() {
		cancel()
		Expect(w.engine.Close(context.Background())).To(Succeed())
	})

	Describe("two players in the same room", func() {
		var (
			alice  ulid.ULID
			wizard *client
			player *client
		)

		BeforeEach(func() {
			alice = w.newPlayer(ctx, "Alice")
			wizard = w.connect(ctx, w.wizard)
			player = w.connect(ctx, alice)
		})

		AfterEach(func() {
			player.close()
			wizard.close()
		})

		It("greets each player on connect", func() {
			Eventually(player.output).Should(ContainSubstring("Welcome to Roo."))
			Eventually(player.output).Should(ContainSubstring("The First Room"))
		})

		It("delivers speech to everyone present", func() {
			player.send("say hello")
			Eventually(player.output).Should(ContainSubstring(`You say, "hello"`))
			Eventually(wizard.output).Should(ContainSubstring(`Alice says, "hello"`))

			wizard.send(":waves.")
			Eventually(player.output).Should(ContainSubstring("Wizard waves."))
		})

		It("lists the other player when looking", func() {
			wizard.send("look")
			Eventually(wizard.output).Should(ContainSubstring("You see: Alice"))
		})

		It("refuses a player's write to a wizard-owned property", func() {
			player.send(`;system.welcome = "mine now"`)
			Eventually(player.output).Should(ContainSubstring("** E_PERM"))
			Expect(w.eval(ctx, w.wizard, "system.welcome")).To(Equal("Welcome to Roo."))
		})

		It("lets objects move between players", func() {
			w.eval(ctx, w.wizard, `
local cup = db.create(system.thing)
cup.name = "cup"
db.move(cup, player.location)`)

			player.send("take cup")
			Eventually(player.output).Should(ContainSubstring("Taken."))
			player.send("drop cup")
			Eventually(player.output).Should(ContainSubstring("Dropped."))
			wizard.send("get cup")
			Eventually(wizard.output).Should(ContainSubstring("Taken."))
			wizard.send("inventory")
			Eventually(wizard.output).Should(ContainSubstring("You are carrying: cup"))
		})
	})

	It("keeps the hierarchy consistent under concurrent scripts", func() {
		const workers = 16
		var wg sync.WaitGroup
		for i := range workers {
			wg.Add(1)
			go func() {
				defer GinkgoRecover()
				defer wg.Done()
				out, err := w.runtime.Eval(core.WithTask(ctx, core.NewTask(w.wizard)), fmt.Sprintf(`
local box = db.create(system.thing)
box.name = "box %d"
db.move(box, system.start)
db.chparent(box, system.room)
db.chparent(box, system.thing)
return #db.contents(system.start)`, i))
				Expect(err).NotTo(HaveOccurred())
				Expect(out).NotTo(BeEmpty())
			}()
		}
		wg.Wait()

		count, err := core.Query(ctx, w.engine.Shared(), "count", func(db *world.Database) (int, error) {
			start := db.WellKnown("start")
			o, err := db.Object(start)
			if err != nil {
				return 0, err
			}
			for _, id := range o.Contents() {
				child, err := db.Object(id)
				if err != nil {
					return 0, err
				}
				if child.Location != start {
					return 0, fmt.Errorf("%s is listed in the room but located elsewhere", id)
				}
			}
			return len(o.Contents()), nil
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(count).To(Equal(workers + 1), "the boxes and the wizard")
	})
})
