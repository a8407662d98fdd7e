// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

//go:build integration

package store_test

import (
	"context"
	"errors"
	"sync"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/8srael/alx-backend-user-data/internal/auth"
	authpg "github.com/8srael/alx-backend-user-data/internal/auth/postgres"
	"github.com/8srael/alx-backend-user-data/internal/store"
)

var _ = Describe("Migrator", Ordered, func() {
	var migrator *store.Migrator

	BeforeAll(func() {
		var err error
		migrator, err = store.NewMigrator(connStr)
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(func() { Expect(migrator.Close()).To(Succeed()) })
	})

	It("starts at version zero with everything pending", func() {
		version, dirty, err := migrator.Version()
		Expect(err).NotTo(HaveOccurred())
		Expect(version).To(BeZero())
		Expect(dirty).To(BeFalse())

		pending, err := migrator.PendingMigrations()
		Expect(err).NotTo(HaveOccurred())
		Expect(pending).NotTo(BeEmpty())
	})

	It("applies and rolls back the schema", func() {
		Expect(migrator.Up()).To(Succeed())
		version, dirty, err := migrator.Version()
		Expect(err).NotTo(HaveOccurred())
		Expect(version).To(BeNumerically(">", 0))
		Expect(dirty).To(BeFalse())

		Expect(migrator.Up()).To(Succeed(), "re-running Up is a no-op")

		Expect(migrator.Down()).To(Succeed())
		version, _, err = migrator.Version()
		Expect(err).NotTo(HaveOccurred())
		Expect(version).To(BeZero())

		Expect(migrator.Up()).To(Succeed())
	})
})

var _ = Describe("PostgreSQL user store", Ordered, func() {
	var (
		ctx   context.Context
		users *authpg.UserStore
		svc   *auth.Service
	)

	BeforeAll(func() {
		ctx = context.Background()

		migrator, err := store.NewMigrator(connStr)
		Expect(err).NotTo(HaveOccurred())
		Expect(migrator.Up()).To(Succeed())
		Expect(migrator.Close()).To(Succeed())

		pool, err := store.Connect(ctx, connStr, store.DefaultConnectOptions())
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(pool.Close)

		users = authpg.NewUserStore(pool)
		hasher, err := auth.NewArgon2idHasherWithParams(auth.Argon2Params{Time: 1, Memory: 1024, Threads: 1})
		Expect(err).NotTo(HaveOccurred())
		svc, err = auth.NewService(users, hasher)
		Expect(err).NotTo(HaveOccurred())
	})

	It("runs the session lifecycle", func() {
		_, err := svc.RegisterUser(ctx, "bob@bob.com", "MyPwdOfBob")
		Expect(err).NotTo(HaveOccurred())

		ok, err := svc.ValidLogin(ctx, "bob@bob.com", "MyPwdOfBob")
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeTrue())

		token, err := svc.CreateSession(ctx, "bob@bob.com")
		Expect(err).NotTo(HaveOccurred())
		Expect(token).NotTo(BeEmpty())

		user, err := svc.GetUserFromSessionID(ctx, token)
		Expect(err).NotTo(HaveOccurred())
		Expect(user).NotTo(BeNil())
		Expect(user.Email).To(Equal("bob@bob.com"))

		Expect(svc.DestroySession(ctx, user.ID)).To(Succeed())
		user, err = svc.GetUserFromSessionID(ctx, token)
		Expect(err).NotTo(HaveOccurred())
		Expect(user).To(BeNil())
	})

	It("rejects a duplicate email through the unique constraint", func() {
		_, err := users.AddUser(ctx, "dup@example.com", "hash")
		Expect(err).NotTo(HaveOccurred())

		_, err = users.AddUser(ctx, "dup@example.com", "hash")
		Expect(errors.Is(err, auth.ErrAlreadyExists)).To(BeTrue())
	})

	It("consumes a reset token exactly once under concurrency", func() {
		_, err := svc.RegisterUser(ctx, "reset@example.com", "old-password")
		Expect(err).NotTo(HaveOccurred())
		token, err := svc.GetResetPasswordToken(ctx, "reset@example.com")
		Expect(err).NotTo(HaveOccurred())

		const workers = 8
		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			successes int
		)
		for range workers {
			wg.Add(1)
			go func() {
				defer GinkgoRecover()
				defer wg.Done()
				err := svc.UpdatePassword(ctx, token, "new-password")
				if err == nil {
					mu.Lock()
					successes++
					mu.Unlock()
					return
				}
				Expect(errors.Is(err, auth.ErrInvalidToken)).To(BeTrue())
			}()
		}
		wg.Wait()
		Expect(successes).To(Equal(1))

		ok, err := svc.ValidLogin(ctx, "reset@example.com", "new-password")
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeTrue())
	})

	It("guards updates on the expected reset token", func() {
		user, err := users.AddUser(ctx, "guard@example.com", "hash")
		Expect(err).NotTo(HaveOccurred())

		err = users.UpdateUser(ctx, user.ID, auth.RequireResetToken("missing"), auth.SetHashedPassword("x"))
		Expect(errors.Is(err, auth.ErrNotFound)).To(BeTrue())
	})
})
