// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Resolute Contributors

package progress_test

import (
	"math"
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/resolute/resolute/internal/progress"
)

func date(s string) time.Time {
	GinkgoHelper()
	t, err := progress.ParseDate(s)
	Expect(err).NotTo(HaveOccurred())
	return t
}

func clock(s string) progress.Option {
	return progress.WithClock(func() time.Time { return date(s).Add(15 * time.Hour) })
}

func entry(id, day string, minutes int) progress.Entry {
	return progress.Entry{ID: id, CompletedOn: date(day), Duration: minutes}
}

func ids(entries []progress.Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.ID)
	}
	return out
}

var _ = Describe("Engine", func() {
	var (
		anchor time.Time
		goal   progress.Goal
	)

	BeforeEach(func() {
		anchor = date("2024-01-01")
		goal = progress.Goal{WeeklyFrequency: 3, ActivityDuration: 30}
	})

	Describe("week bucketing", func() {
		var (
			engine  *progress.Engine
			entries []progress.Entry
		)

		BeforeEach(func() {
			engine = progress.NewEngine(progress.PolicyCountAndDuration, clock("2024-03-01"))
			entries = []progress.Entry{
				entry("c", "2024-01-09", 30),
				entry("a", "2024-01-02", 30),
				entry("b", "2024-01-03", 45),
			}
		})

		It("puts the two early January dates in week 1", func() {
			s, err := engine.Week(goal, entries, anchor, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(s.Count).To(Equal(2))
			Expect(ids(s.Entries)).To(Equal([]string{"a", "b"}))
			Expect(s.TotalDuration).To(Equal(75))
			Expect(s.Start).To(Equal(date("2024-01-01")))
			Expect(s.End).To(Equal(date("2024-01-08")))
		})

		It("puts 2024-01-09 in week 2", func() {
			s, err := engine.Week(goal, entries, anchor, 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(s.Count).To(Equal(1))
			Expect(ids(s.Entries)).To(Equal([]string{"c"}))
		})

		It("treats the window end as exclusive", func() {
			s, err := engine.Week(goal, []progress.Entry{entry("x", "2024-01-08", 30)}, anchor, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(s.Count).To(BeZero())
		})

		It("ignores the time of day on completion dates", func() {
			late := progress.Entry{ID: "x", CompletedOn: date("2024-01-07").Add(23 * time.Hour), Duration: 30}
			s, err := engine.Week(goal, []progress.Entry{late}, anchor, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(s.Count).To(Equal(1))
		})

		It("orders same-day entries by ID", func() {
			s, err := engine.Week(goal, []progress.Entry{
				entry("z", "2024-01-03", 30),
				entry("m", "2024-01-03", 30),
			}, anchor, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(ids(s.Entries)).To(Equal([]string{"m", "z"}))
		})

		It("rejects week numbers below 1", func() {
			for _, week := range []int{0, -1} {
				_, err := engine.Week(goal, entries, anchor, week)
				Expect(err).To(MatchError(progress.ErrInvalidWeek))
			}
		})
	})

	Describe("verdicts", func() {
		full := func() []progress.Entry {
			return []progress.Entry{
				entry("a", "2024-01-01", 30),
				entry("b", "2024-01-03", 30),
				entry("c", "2024-01-05", 30),
			}
		}

		It("is met when count and every duration reach the goal", func() {
			engine := progress.NewEngine(progress.PolicyCountAndDuration, clock("2024-03-01"))
			s, err := engine.Week(goal, full(), anchor, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(s.Verdict).To(Equal(progress.VerdictMet))
		})

		It("is unmet after the week when one occurrence is short", func() {
			entries := append(full()[:2], entry("c", "2024-01-05", 29))
			engine := progress.NewEngine(progress.PolicyCountAndDuration, clock("2024-03-01"))
			s, err := engine.Week(goal, entries, anchor, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(s.Verdict).To(Equal(progress.VerdictUnmet))
			Expect(s.ShortEntries).To(Equal(1))
		})

		It("accepts a short occurrence under count_only", func() {
			entries := append(full()[:2], entry("c", "2024-01-05", 5))
			engine := progress.NewEngine(progress.PolicyCountOnly, clock("2024-03-01"))
			s, err := engine.Week(goal, entries, anchor, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(s.Verdict).To(Equal(progress.VerdictMet))
		})

		It("is unmet after the week with too few entries", func() {
			engine := progress.NewEngine(progress.PolicyCountOnly, clock("2024-03-01"))
			s, err := engine.Week(goal, full()[:2], anchor, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(s.Verdict).To(Equal(progress.VerdictUnmet))
		})

		It("is pending while the week is still running", func() {
			engine := progress.NewEngine(progress.PolicyCountAndDuration, clock("2024-01-07"))
			s, err := engine.Week(goal, full()[:2], anchor, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(s.Verdict).To(Equal(progress.VerdictPending))
			Expect(s.Future).To(BeFalse())
		})

		It("is met early once the goal is reached mid-week", func() {
			engine := progress.NewEngine(progress.PolicyCountAndDuration, clock("2024-01-05"))
			s, err := engine.Week(goal, full(), anchor, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(s.Verdict).To(Equal(progress.VerdictMet))
		})

		It("returns an empty pending week for dates after today", func() {
			engine := progress.NewEngine(progress.PolicyCountAndDuration, clock("2024-01-10"))
			s, err := engine.Week(goal, full(), anchor, 40)
			Expect(err).NotTo(HaveOccurred())
			Expect(s.Future).To(BeTrue())
			Expect(s.Entries).To(BeEmpty())
			Expect(s.Entries).NotTo(BeNil())
			Expect(s.Count).To(BeZero())
			Expect(s.Verdict).To(Equal(progress.VerdictPending))
		})

		It("keeps huge week numbers empty and in the future", func() {
			engine := progress.NewEngine(progress.PolicyCountAndDuration, clock("2024-01-10"))
			far := []progress.Entry{entry("z", "9999-12-31", 30)}
			for _, week := range []int{progress.MaxWeek, progress.MaxWeek + 1, 1317624576693539402, math.MaxInt} {
				s, err := engine.Week(goal, append(full(), far...), anchor, week)
				Expect(err).NotTo(HaveOccurred())
				Expect(s.Week).To(Equal(week))
				Expect(s.Future).To(BeTrue())
				Expect(s.Start.After(date("9999-12-31"))).To(BeTrue())
				Expect(s.Entries).To(BeEmpty())
				Expect(s.Verdict).To(Equal(progress.VerdictPending))
			}
		})

		It("names verdicts", func() {
			Expect(progress.VerdictMet.String()).To(Equal("met"))
			Expect(progress.VerdictUnmet.String()).To(Equal("unmet"))
			Expect(progress.VerdictPending.String()).To(Equal("pending"))
			text, err := progress.VerdictUnmet.MarshalText()
			Expect(err).NotTo(HaveOccurred())
			Expect(string(text)).To(Equal("unmet"))

			var v progress.Verdict
			Expect(v.UnmarshalText([]byte("met"))).To(Succeed())
			Expect(v).To(Equal(progress.VerdictMet))
			Expect(v.UnmarshalText([]byte("maybe"))).NotTo(Succeed())
		})
	})

	Describe("Weeks", func() {
		It("summarizes week 1 through the current week", func() {
			engine := progress.NewEngine("", clock("2024-01-16"))
			Expect(engine.Policy()).To(Equal(progress.PolicyCountAndDuration))

			weeks := engine.Weeks(goal, []progress.Entry{entry("a", "2024-01-09", 30)}, anchor)
			Expect(weeks).To(HaveLen(3))
			Expect(weeks[0].Week).To(Equal(1))
			Expect(weeks[1].Count).To(Equal(1))
			Expect(weeks[2].Verdict).To(Equal(progress.VerdictPending))
		})

		It("is empty before the anchor", func() {
			engine := progress.NewEngine("", clock("2023-12-31"))
			Expect(engine.Weeks(goal, nil, anchor)).To(BeEmpty())
		})
	})
})

var _ = Describe("WeekOf", func() {
	anchor := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	DescribeTable("maps days to weeks",
		func(day string, want int, wantOK bool) {
			week, ok := progress.WeekOf(anchor, date(day))
			Expect(ok).To(Equal(wantOK))
			Expect(week).To(Equal(want))
		},
		Entry("anchor day", "2024-01-01", 1, true),
		Entry("last day of week 1", "2024-01-07", 1, true),
		Entry("first day of week 2", "2024-01-08", 2, true),
		Entry("across a month", "2024-02-05", 6, true),
		Entry("before the anchor", "2023-12-31", 0, false),
		Entry("centuries later", "2924-01-01", 46_960, true),
	)

	It("counts days past the range of time.Duration", func() {
		week, ok := progress.WeekOf(date("0001-01-01"), date("9999-12-31"))
		Expect(ok).To(BeTrue())
		Expect(week).To(Equal(521_723))
		Expect(week).To(BeNumerically("<", progress.MaxWeek))
	})
})

var _ = Describe("IsLate", func() {
	checkpoint := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)

	It("flags a completion dated before the checkpoint", func() {
		Expect(progress.IsLate(date("2024-01-01"), &checkpoint)).To(BeTrue())
	})

	It("does not flag a completion after the checkpoint", func() {
		Expect(progress.IsLate(date("2024-01-10"), &checkpoint)).To(BeFalse())
	})

	It("does not flag the checkpoint day itself", func() {
		Expect(progress.IsLate(date("2024-01-05"), &checkpoint)).To(BeFalse())
	})

	It("never flags without a checkpoint", func() {
		Expect(progress.IsLate(date("1999-01-01"), nil)).To(BeFalse())
	})
})

var _ = Describe("ParsePolicy", func() {
	It("accepts known policies", func() {
		for _, name := range []string{"count_and_duration", "count_only"} {
			p, err := progress.ParsePolicy(name)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(p)).To(Equal(name))
		}
	})

	It("rejects unknown policies", func() {
		_, err := progress.ParsePolicy("strict")
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("ParseDate", func() {
	It("rejects malformed dates", func() {
		_, err := progress.ParseDate("2024-13-01")
		Expect(err).To(HaveOccurred())
	})
})
