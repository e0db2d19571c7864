package scanning

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/expensescan/expensescan/internal/fault"
)

var _ = Describe("Decode", func() {
	var (
		input  string
		record *ExtractionRecord
		err    error
	)

	JustBeforeEach(func() {
		record, err = Decode(input)
	})

	When("decoding a well-formed response", func() {
		BeforeEach(func() {
			input = wellFormedResponse
		})

		It("does not return an error", func() {
			Expect(err).NotTo(HaveOccurred())
		})

		It("decodes all fields", func() {
			Expect(record.Merchant).To(Equal("Tesco Express"))
			Expect(record.Amount).To(Equal(23.45))
			Expect(record.Currency).To(Equal("GBP"))
			Expect(record.Category).To(Equal("Groceries"))
			Expect(record.Confidence).To(Equal(0.95))
			Expect(record.Items).To(HaveLen(3))
		})

		It("keeps optional line-item fields", func() {
			Expect(record.Items[0].Quantity).NotTo(BeNil())
			Expect(record.Items[2].Quantity).To(BeNil())
			Expect(record.Items[2].TotalPrice).To(Equal(3.50))
		})
	})

	When("the items array is syntactically broken but top-level fields are intact", func() {
		BeforeEach(func() {
			input = `{"date": "2025-03-14", "merchant": "Corner Shop", "amount": 9.99, "currency": "USD", "category": "Groceries", "items": [{"name": , "total_price"]}`
		})

		It("succeeds via the fallback path", func() {
			Expect(err).NotTo(HaveOccurred())
		})

		It("salvages the required fields", func() {
			Expect(record.Date).To(Equal("2025-03-14"))
			Expect(record.Merchant).To(Equal("Corner Shop"))
			Expect(record.Amount).To(Equal(9.99))
			Expect(record.Currency).To(Equal("USD"))
			Expect(record.Category).To(Equal("Groceries"))
		})

		It("drops the line items", func() {
			Expect(record.Items).To(BeEmpty())
		})

		It("downgrades confidence to the fixed conservative value", func() {
			Expect(record.Confidence).To(Equal(FallbackConfidence))
		})
	})

	When("the model quoted the amount as a string", func() {
		BeforeEach(func() {
			input = `{"date": "2025-03-14", "merchant": "Corner Shop", "amount": "$9.99", "currency": "USD", "category": "Other"}`
		})

		It("coerces the amount via the untyped document", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(record.Amount).To(Equal(9.99))
		})

		It("downgrades confidence", func() {
			Expect(record.Confidence).To(Equal(FallbackConfidence))
		})
	})

	When("the merchant is unrecoverable", func() {
		BeforeEach(func() {
			input = `{"date": "2025-03-14", "amount": 5.00}`
		})

		It("fails as unparseable", func() {
			Expect(err).To(HaveOccurred())
			kind, ok := fault.KindOf(err)
			Expect(ok).To(BeTrue())
			Expect(kind).To(Equal(fault.Unparseable))
		})
	})

	When("the response is not JSON at all", func() {
		BeforeEach(func() {
			input = "I could not read the receipt."
		})

		It("fails as unparseable", func() {
			Expect(err).To(HaveOccurred())
			var fe *fault.Error
			Expect(errors.As(err, &fe)).To(BeTrue())
			Expect(fe.Kind).To(Equal(fault.Unparseable))
			Expect(fe.Retryable()).To(BeFalse())
		})
	})

	When("the currency arrives lowercased", func() {
		BeforeEach(func() {
			input = `{"date": "2025-03-14", "merchant": "Shop", "amount": 5, "currency": "usd", "category": "Other"}`
		})

		It("normalizes it to upper case", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(record.Currency).To(Equal("USD"))
		})
	})
})
