// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Resolute Contributors

//go:build integration

package postgres_test

import (
	"errors"
	"strconv"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/resolute/resolute/internal/auth"
	"github.com/resolute/resolute/internal/auth/postgres"
)

var _ = Describe("Repositories", func() {
	var (
		users    *postgres.UserRepository
		sessions *postgres.SessionRepository
		alice    *auth.User
	)

	BeforeEach(func() {
		Expect(testDB.Truncate(suiteCtx)).To(Succeed())
		users = postgres.NewUserRepository(testDB.Pool)
		sessions = postgres.NewSessionRepository(testDB.Pool)

		var err error
		alice, err = auth.NewUser("alice", "alice@example.com", "hash")
		Expect(err).NotTo(HaveOccurred())
		Expect(users.Create(suiteCtx, alice)).To(Succeed())
	})

	newSession := func() *auth.Session {
		_, hash, err := auth.GenerateSessionToken()
		Expect(err).NotTo(HaveOccurred())
		sess, err := auth.NewSession(hash, time.Now().Add(time.Hour))
		Expect(err).NotTo(HaveOccurred())
		Expect(sessions.Create(suiteCtx, sess)).To(Succeed())
		return sess
	}

	Describe("UserRepository", func() {
		It("finds users regardless of case", func() {
			got, err := users.GetByUsername(suiteCtx, "ALICE")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.ID).To(Equal(alice.ID))
			Expect(got.HasProfile()).To(BeFalse())
		})

		It("rejects a duplicate username", func() {
			dup, err := auth.NewUser("Alice", "other@example.com", "hash")
			Expect(err).NotTo(HaveOccurred())
			Expect(users.Create(suiteCtx, dup)).To(MatchError(auth.ErrUsernameTaken))
		})
	})

	Describe("SessionRepository", func() {
		It("keeps the first remembered return-to", func() {
			sess := newSession()
			first, err := sessions.RememberReturnTo(suiteCtx, sess.ID, "/resolutions")
			Expect(err).NotTo(HaveOccurred())
			Expect(first).To(Equal("/resolutions"))

			second, err := sessions.RememberReturnTo(suiteCtx, sess.ID, "/profile")
			Expect(err).NotTo(HaveOccurred())
			Expect(second).To(Equal("/resolutions"))
		})

		It("consumes return-to exactly once under concurrent logins", func() {
			sess := newSession()
			_, err := sessions.RememberReturnTo(suiteCtx, sess.ID, "/resolutions/new")
			Expect(err).NotTo(HaveOccurred())

			const logins = 8
			results := make([]string, logins)
			hashes := make([]string, logins)
			var wg sync.WaitGroup
			for i := range logins {
				hashes[i] = auth.HashSessionToken("login-" + strconv.Itoa(i))
				wg.Add(1)
				go func() {
					defer GinkgoRecover()
					defer wg.Done()
					got, err := sessions.BindUser(suiteCtx, sess.ID, alice.ID, hashes[i])
					Expect(err).NotTo(HaveOccurred())
					results[i] = got
				}()
			}
			wg.Wait()

			consumed := 0
			for _, r := range results {
				if r != "" {
					Expect(r).To(Equal("/resolutions/new"))
					consumed++
				}
			}
			Expect(consumed).To(Equal(1))

			_, err = sessions.GetByTokenHash(suiteCtx, sess.TokenHash)
			Expect(errors.Is(err, auth.ErrNotFound)).To(BeTrue())

			var stored *auth.Session
			for _, h := range hashes {
				if found, err := sessions.GetByTokenHash(suiteCtx, h); err == nil {
					Expect(stored).To(BeNil())
					stored = found
				}
			}
			Expect(stored).NotTo(BeNil())
			Expect(stored.ReturnTo).To(BeEmpty())
			Expect(*stored.UserID).To(Equal(alice.ID))
		})

		It("drains flashes in insertion order", func() {
			sess := newSession()
			Expect(sessions.AddFlash(suiteCtx, sess.ID, auth.Flash{Kind: auth.FlashError, Message: "one"})).To(Succeed())
			Expect(sessions.AddFlash(suiteCtx, sess.ID, auth.Flash{Kind: auth.FlashSuccess, Message: "two"})).To(Succeed())

			flashes, err := sessions.TakeFlashes(suiteCtx, sess.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(flashes).To(Equal([]auth.Flash{
				{Kind: auth.FlashError, Message: "one"},
				{Kind: auth.FlashSuccess, Message: "two"},
			}))

			again, err := sessions.TakeFlashes(suiteCtx, sess.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(again).To(BeEmpty())
		})

		It("clears the principal once", func() {
			sess := newSession()
			_, err := sessions.BindUser(suiteCtx, sess.ID, alice.ID, auth.HashSessionToken("clear-once"))
			Expect(err).NotTo(HaveOccurred())

			cleared, err := sessions.ClearUser(suiteCtx, sess.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(cleared).To(BeTrue())

			cleared, err = sessions.ClearUser(suiteCtx, sess.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(cleared).To(BeFalse())
		})

		It("sweeps only expired sessions", func() {
			live := newSession()
			expired := newSession()
			past := time.Now().Add(-time.Minute)
			Expect(sessions.Touch(suiteCtx, expired.ID, past, past)).To(Succeed())

			n, err := sessions.DeleteExpired(suiteCtx, time.Now())
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(int64(1)))

			_, err = sessions.GetByTokenHash(suiteCtx, live.TokenHash)
			Expect(err).NotTo(HaveOccurred())
			_, err = sessions.GetByTokenHash(suiteCtx, expired.TokenHash)
			Expect(err).To(MatchError(auth.ErrNotFound))
		})
	})
})
