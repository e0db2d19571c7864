package expense

import (
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("BoltDB", func() {
	var (
		db  *BoltDB
		err error
	)

	BeforeEach(func() {
		dbPath := filepath.Join(GinkgoT().TempDir(), "test.db")
		db, err = NewBoltDB(dbPath)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		if db != nil {
			db.Close()
		}
	})

	newExpense := func(id string) *Expense {
		return &Expense{
			ID:        id,
			Date:      time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC),
			Merchant:  "Tesco Express",
			Amount:    23.45,
			Currency:  "GBP",
			Category:  "Groceries",
			CreatedAt: time.Now().UTC(),
			UpdatedAt: time.Now().UTC(),
		}
	}

	Describe("UpsertExpense", func() {
		It("stores a new expense", func() {
			stored, err := db.UpsertExpense(newExpense("a"))
			Expect(err).NotTo(HaveOccurred())
			Expect(stored.ID).To(Equal("a"))

			got, err := db.GetExpense("a")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Merchant).To(Equal("Tesco Express"))
		})

		When("the identity already exists", func() {
			var first *Expense

			BeforeEach(func() {
				first, err = db.UpsertExpense(newExpense("a"))
				Expect(err).NotTo(HaveOccurred())
			})

			It("returns the stored record unchanged and writes nothing", func() {
				second := newExpense("a")
				second.Merchant = "Imposter Mart"
				second.Amount = 999.99

				stored, err := db.UpsertExpense(second)
				Expect(err).NotTo(HaveOccurred())
				Expect(stored.Merchant).To(Equal(first.Merchant))
				Expect(stored.Amount).To(Equal(first.Amount))

				got, err := db.GetExpense("a")
				Expect(err).NotTo(HaveOccurred())
				Expect(got.Merchant).To(Equal("Tesco Express"))
			})

			It("keeps exactly one record", func() {
				_, err := db.UpsertExpense(newExpense("a"))
				Expect(err).NotTo(HaveOccurred())

				count, err := db.CountExpenses()
				Expect(err).NotTo(HaveOccurred())
				Expect(count).To(Equal(1))
			})
		})
	})

	Describe("UpdateExpense", func() {
		It("replaces an existing record", func() {
			_, err := db.UpsertExpense(newExpense("a"))
			Expect(err).NotTo(HaveOccurred())

			edited := newExpense("a")
			edited.Merchant = "Tesco Metro"
			Expect(db.UpdateExpense(edited)).To(Succeed())

			got, err := db.GetExpense("a")
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Merchant).To(Equal("Tesco Metro"))
		})

		It("fails for an unknown identity", func() {
			Expect(db.UpdateExpense(newExpense("ghost"))).NotTo(Succeed())
		})
	})

	Describe("ListExpensesByMerchant", func() {
		BeforeEach(func() {
			a := newExpense("a")
			b := newExpense("b")
			b.Merchant = "Walmart Supercenter"
			_, err = db.UpsertExpense(a)
			Expect(err).NotTo(HaveOccurred())
			_, err = db.UpsertExpense(b)
			Expect(err).NotTo(HaveOccurred())
		})

		It("matches case-insensitive substrings", func() {
			matched, err := db.ListExpensesByMerchant("walmart")
			Expect(err).NotTo(HaveOccurred())
			Expect(matched).To(HaveLen(1))
			Expect(matched[0].ID).To(Equal("b"))
		})

		It("returns an empty slice for no match", func() {
			matched, err := db.ListExpensesByMerchant("aldi")
			Expect(err).NotTo(HaveOccurred())
			Expect(matched).To(BeEmpty())
		})
	})

	Describe("DeleteExpense", func() {
		It("removes the record", func() {
			_, err := db.UpsertExpense(newExpense("a"))
			Expect(err).NotTo(HaveOccurred())

			Expect(db.DeleteExpense("a")).To(Succeed())

			_, err = db.GetExpense("a")
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("CountExpenses", func() {
		It("counts stored records", func() {
			count, err := db.CountExpenses()
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(BeZero())

			_, err = db.UpsertExpense(newExpense("a"))
			Expect(err).NotTo(HaveOccurred())
			_, err = db.UpsertExpense(newExpense("b"))
			Expect(err).NotTo(HaveOccurred())

			count, err = db.CountExpenses()
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(Equal(2))
		})
	})
})
