// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Roo Contributors

//go:build integration

package store_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/roomoo/roo/internal/store"
	"github.com/roomoo/roo/internal/world"
)

// startPostgres starts a PostgreSQL container and returns its connection string.
func startPostgres(ctx context.Context) (string, func(), error) {
	container, err := postgres.Run(ctx,
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
	if err != nil {
		return "", nil, err
	}
	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		return "", nil, err
	}
	return connStr, func() { _ = container.Terminate(ctx) }, nil
}

func bootstrappedSnapshot() *world.Snapshot {
	db := world.NewDatabase()
	_, err := world.Bootstrap(db)
	Expect(err).NotTo(HaveOccurred())
	return db.Export()
}

var _ = Describe("PostgresStore", func() {
	var (
		ctx       context.Context
		connStr   string
		cleanup   func()
		snapStore *store.PostgresStore
	)

	BeforeEach(func() {
		ctx = context.Background()
		var err error
		connStr, cleanup, err = startPostgres(ctx)
		Expect(err).NotTo(HaveOccurred())

		snapStore, err = store.NewPostgresStore(ctx, connStr, store.WithPostgresKeep(2))
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		if snapStore != nil {
			_ = snapStore.Close()
		}
		cleanup()
	})

	It("reports no snapshot before migrations run", func() {
		_, err := snapStore.Load(ctx)
		Expect(err).To(MatchError(store.ErrNoSnapshot))
	})

	Describe("after migrating", func() {
		BeforeEach(func() {
			migrator, err := store.NewMigrator(connStr)
			Expect(err).NotTo(HaveOccurred())
			Expect(migrator.Up()).To(Succeed())
			Expect(migrator.Close()).To(Succeed())
		})

		It("round-trips a snapshot", func() {
			snap := bootstrappedSnapshot()
			Expect(snapStore.Save(ctx, snap)).To(Succeed())

			db, err := store.LoadDatabase(ctx, snapStore)
			Expect(err).NotTo(HaveOccurred())
			Expect(db.Len()).To(Equal(len(snap.Objects)))
			Expect(world.FormatID(db.SystemObject())).To(Equal(snap.System))
		})

		It("loads the newest of several generations", func() {
			snap := bootstrappedSnapshot()
			for _, tag := range []string{"first", "second", "third"} {
				snap.Meta = map[string]string{"tag": tag}
				Expect(snapStore.Save(ctx, snap)).To(Succeed())
			}

			got, err := snapStore.Load(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Meta).To(HaveKeyWithValue("tag", "third"))
		})
	})
})
