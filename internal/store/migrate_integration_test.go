// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Resolute Contributors

//go:build integration

package store_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/resolute/resolute/internal/store"
	"github.com/resolute/resolute/internal/store/storetest"
)

var _ = Describe("Migrator", Ordered, func() {
	var (
		ctx context.Context
		db  *storetest.Database
	)

	BeforeAll(func() {
		ctx = context.Background()
		var err error
		db, err = storetest.Start(ctx)
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(func() { db.Stop(ctx) })
	})

	It("reports every migration applied", func() {
		m, err := store.NewMigrator(db.URL)
		Expect(err).NotTo(HaveOccurred())
		defer m.Close()

		status, err := m.Status()
		Expect(err).NotTo(HaveOccurred())
		Expect(status.Version).To(Equal(uint(3)))
		Expect(status.Dirty).To(BeFalse())
		Expect(status.Pending).To(BeEmpty())
	})

	It("rolls down and back up", func() {
		m, err := store.NewMigrator(db.URL)
		Expect(err).NotTo(HaveOccurred())
		defer m.Close()

		Expect(m.Down()).To(Succeed())
		v, _, err := m.Version()
		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(BeZero())

		Expect(m.Up()).To(Succeed())
		v, _, err = m.Version()
		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(Equal(uint(3)))
	})

	It("enforces one profile per user", func() {
		_, err := db.Pool.Exec(ctx, `INSERT INTO users (id, username, email, password_hash) VALUES ('u1', 'alice', 'a@example.com', 'h')`)
		Expect(err).NotTo(HaveOccurred())
		_, err = db.Pool.Exec(ctx, `INSERT INTO profiles (id, user_id, created_on) VALUES ('p1', 'u1', CURRENT_DATE)`)
		Expect(err).NotTo(HaveOccurred())
		_, err = db.Pool.Exec(ctx, `INSERT INTO profiles (id, user_id, created_on) VALUES ('p2', 'u1', CURRENT_DATE)`)
		Expect(err).To(HaveOccurred())
	})

	It("waits for a live database", func() {
		Expect(store.WaitReady(ctx, db.Pool, 3, 10*time.Millisecond)).To(Succeed())
	})
})
