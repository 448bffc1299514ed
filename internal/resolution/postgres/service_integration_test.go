// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Resolute Contributors

//go:build integration

package postgres_test

import (
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/resolute/resolute/internal/auth"
	authpg "github.com/resolute/resolute/internal/auth/postgres"
	"github.com/resolute/resolute/internal/progress"
	"github.com/resolute/resolute/internal/resolution"
	"github.com/resolute/resolute/internal/resolution/postgres"
)

var _ = Describe("Service on PostgreSQL", func() {
	var (
		svc   *resolution.Service
		users *authpg.UserRepository
		user  *auth.User
	)

	BeforeEach(func() {
		Expect(testDB.Truncate(suiteCtx)).To(Succeed())
		users = authpg.NewUserRepository(testDB.Pool)

		var err error
		user, err = auth.NewUser("alice", "alice@example.com", "hash")
		Expect(err).NotTo(HaveOccurred())
		Expect(users.Create(suiteCtx, user)).To(Succeed())

		svc, err = resolution.NewService(resolution.ServiceConfig{
			Transactor:  postgres.NewTransactor(testDB.Pool),
			Profiles:    postgres.NewProfileRepository(testDB.Pool),
			Resolutions: postgres.NewResolutionRepository(testDB.Pool),
			Completions: postgres.NewCompletionRepository(testDB.Pool),
			Engine:      progress.NewEngine(progress.PolicyCountAndDuration),
		})
		Expect(err).NotTo(HaveOccurred())
	})

	It("creates one profile under concurrent requests", func() {
		const callers = 8
		ids := make([]ulid.ULID, callers)
		var wg sync.WaitGroup
		for i := range callers {
			wg.Add(1)
			go func() {
				defer GinkgoRecover()
				defer wg.Done()
				p, _, err := svc.EnsureProfile(suiteCtx, user.ID)
				Expect(err).NotTo(HaveOccurred())
				ids[i] = p.ID
			}()
		}
		wg.Wait()

		var count int
		Expect(testDB.Pool.QueryRow(suiteCtx, `SELECT count(*) FROM profiles`).Scan(&count)).To(Succeed())
		Expect(count).To(Equal(1))
		for _, id := range ids {
			Expect(id).To(Equal(ids[0]))
		}

		reloaded, err := users.GetByID(suiteCtx, user.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(reloaded.ProfileID).NotTo(BeNil())
		Expect(*reloaded.ProfileID).To(Equal(ids[0]))
	})

	It("leaves profile_id unchanged on revisit", func() {
		first, created, err := svc.EnsureProfile(suiteCtx, user.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(created).To(BeTrue())

		second, created, err := svc.EnsureProfile(suiteCtx, user.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(created).To(BeFalse())
		Expect(second.ID).To(Equal(first.ID))
	})

	It("records completions and reports weekly progress", func() {
		profile, _, err := svc.EnsureProfile(suiteCtx, user.ID)
		Expect(err).NotTo(HaveOccurred())
		res, err := svc.AddResolution(suiteCtx, user.ID, "Run", 1, 20)
		Expect(err).NotTo(HaveOccurred())

		result, err := svc.RecordCompletion(suiteCtx, user.ID, res.ID, 25, profile.CreatedOn)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Late).To(BeFalse())

		report, err := svc.Progress(suiteCtx, user.ID, profile.ID, 1)
		Expect(err).NotTo(HaveOccurred())
		Expect(report.Resolutions).To(HaveLen(1))
		Expect(report.Resolutions[0].Summary.Count).To(Equal(1))
		Expect(report.Resolutions[0].Summary.Verdict).To(Equal(progress.VerdictMet))

		checked, err := svc.ConfirmResolutions(suiteCtx, user.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(checked.LastResolutionsUpdate).NotTo(BeNil())

		late, err := svc.RecordCompletion(suiteCtx, user.ID, res.ID, 25, profile.CreatedOn.AddDate(0, 0, -3))
		Expect(err).NotTo(HaveOccurred())
		Expect(late.Late).To(BeTrue())
	})

	It("rejects a resolution for a missing profile at the database", func() {
		repo := postgres.NewResolutionRepository(testDB.Pool)
		err := repo.Create(suiteCtx, &resolution.Resolution{
			ID: ulid.Make(), ProfileID: ulid.Make(), Title: "Orphan",
			WeeklyFrequency: 1, ActivityDuration: 1, CreatedAt: time.Now(),
		})
		Expect(err).To(MatchError(resolution.ErrIntegrity))
	})
})
