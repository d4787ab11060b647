// Package storagetest holds the ginkgo specs every storage.Driver must pass.
package storagetest

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/ecofes/lubebot/pkg/storage"
)

// DescribeDriver registers the shared driver specs. newDriver is called
// before each spec and must return an empty store.
func DescribeDriver(newDriver func() storage.Driver) {
	var (
		ctx    context.Context
		driver storage.Driver
	)

	BeforeEach(func() {
		ctx = context.Background()
		driver = nil
		driver = newDriver()
	})

	AfterEach(func() {
		if driver != nil {
			Expect(driver.Close()).To(Succeed())
		}
	})

	Describe("SaveQuery", func() {
		It("assigns ids and timestamps", func() {
			first, err := driver.SaveQuery(ctx, &storage.QueryRecord{UserID: 1, QueryText: "Какое масло?", ResponseText: "5W-30"})
			Expect(err).NotTo(HaveOccurred())
			second, err := driver.SaveQuery(ctx, &storage.QueryRecord{UserID: 1, QueryText: "А для дизеля?"})
			Expect(err).NotTo(HaveOccurred())

			Expect(first.ID).To(BeNumerically(">", 0))
			Expect(second.ID).To(BeNumerically(">", first.ID))
			Expect(first.Timestamp.IsZero()).To(BeFalse())
		})

		It("rejects nil records", func() {
			_, err := driver.SaveQuery(ctx, nil)
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("ListQueries", func() {
		BeforeEach(func() {
			for _, q := range []storage.QueryRecord{
				{UserID: 1, Username: "ivan", QueryText: "q1", Category: "technical", Confidence: 0.5, Action: "answer"},
				{UserID: 2, QueryText: "q2"},
				{UserID: 1, QueryText: "q3"},
			} {
				_, err := driver.SaveQuery(ctx, &q)
				Expect(err).NotTo(HaveOccurred())
			}
		})

		It("returns records newest first", func() {
			records, err := driver.ListQueries(ctx, storage.QueryFilter{})
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(HaveLen(3))
			Expect(records[0].QueryText).To(Equal("q3"))
			Expect(records[2].QueryText).To(Equal("q1"))
			Expect(records[2].Username).To(Equal("ivan"))
			Expect(records[2].Category).To(Equal("technical"))
			Expect(records[2].Confidence).To(BeNumerically("~", 0.5, 1e-9))
			Expect(records[2].Action).To(Equal("answer"))
		})

		It("filters by user", func() {
			records, err := driver.ListQueries(ctx, storage.QueryFilter{UserID: 1})
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(HaveLen(2))
			Expect(records[0].QueryText).To(Equal("q3"))
		})

		It("pages with limit and offset", func() {
			records, err := driver.ListQueries(ctx, storage.QueryFilter{Limit: 1, Offset: 1})
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(HaveLen(1))
			Expect(records[0].QueryText).To(Equal("q2"))

			records, err = driver.ListQueries(ctx, storage.QueryFilter{Offset: 2})
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(HaveLen(1))
			Expect(records[0].QueryText).To(Equal("q1"))
		})
	})

	Describe("SaveLead", func() {
		It("stores a normalized lead", func() {
			lead, err := driver.SaveLead(ctx, &storage.Lead{
				Name:             " Иван ",
				Email:            "Ivan@Example.com",
				Phone:            "+79990000000",
				Industry:         "logistics",
				TelegramUsername: "@ivan",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(lead.ID).To(BeNumerically(">", 0))
			Expect(lead.Email).To(Equal("ivan@example.com"))

			got, err := driver.GetLead(ctx, "IVAN@example.com")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Name).To(Equal("Иван"))
			Expect(got.TelegramUsername).To(Equal("ivan"))
			Expect(got.CreatedAt.IsZero()).To(BeFalse())
		})

		It("rejects duplicate emails", func() {
			_, err := driver.SaveLead(ctx, &storage.Lead{Name: "A", Email: "a@example.com"})
			Expect(err).NotTo(HaveOccurred())

			_, err = driver.SaveLead(ctx, &storage.Lead{Name: "B", Email: " A@example.com"})
			Expect(err).To(MatchError(storage.ErrDuplicateLead))

			leads, err := driver.ListLeads(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(leads).To(HaveLen(1))
		})

		It("rejects leads without an email", func() {
			_, err := driver.SaveLead(ctx, &storage.Lead{Name: "A"})
			Expect(err).To(MatchError(storage.ErrInvalidLead))
		})

		It("flags the user's queries", func() {
			_, err := driver.SaveQuery(ctx, &storage.QueryRecord{UserID: 7, QueryText: "q"})
			Expect(err).NotTo(HaveOccurred())
			_, err = driver.SaveQuery(ctx, &storage.QueryRecord{UserID: 8, QueryText: "q"})
			Expect(err).NotTo(HaveOccurred())

			_, err = driver.SaveLead(ctx, &storage.Lead{Name: "A", Email: "a@example.com", UserID: 7})
			Expect(err).NotTo(HaveOccurred())

			records, err := driver.ListQueries(ctx, storage.QueryFilter{UserID: 7})
			Expect(err).NotTo(HaveOccurred())
			Expect(records[0].IsLead).To(BeTrue())

			records, err = driver.ListQueries(ctx, storage.QueryFilter{UserID: 8})
			Expect(err).NotTo(HaveOccurred())
			Expect(records[0].IsLead).To(BeFalse())
		})
	})

	Describe("GetLead", func() {
		It("returns ErrNotFound for unknown emails", func() {
			_, err := driver.GetLead(ctx, "nobody@example.com")
			Expect(err).To(MatchError(storage.ErrNotFound))
		})
	})

	Describe("ListLeads", func() {
		It("returns leads oldest first", func() {
			for _, email := range []string{"a@example.com", "b@example.com"} {
				_, err := driver.SaveLead(ctx, &storage.Lead{Name: "x", Email: email})
				Expect(err).NotTo(HaveOccurred())
			}
			leads, err := driver.ListLeads(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(leads).To(HaveLen(2))
			Expect(leads[0].Email).To(Equal("a@example.com"))
		})
	})
}
