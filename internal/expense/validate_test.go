package expense

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("ParseAmount", func() {
	var (
		input  string
		amount float64
		err    error
	)

	JustBeforeEach(func() {
		amount, err = ParseAmount(input)
	})

	When("the amount is a plain two-decimal number", func() {
		BeforeEach(func() {
			input = "12.34"
		})

		It("parses it", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(amount).To(Equal(12.34))
		})
	})

	When("the amount is negative", func() {
		BeforeEach(func() {
			input = "-5.00"
		})

		It("is rejected", func() {
			Expect(err).To(HaveOccurred())
		})
	})

	When("the amount has three decimal places", func() {
		BeforeEach(func() {
			input = "12.345"
		})

		It("is rejected", func() {
			Expect(err).To(HaveOccurred())
		})
	})

	When("the amount exceeds the ceiling", func() {
		BeforeEach(func() {
			input = "1000001"
		})

		It("is rejected", func() {
			Expect(err).To(HaveOccurred())
		})
	})

	When("the amount is not a number", func() {
		BeforeEach(func() {
			input = "twelve"
		})

		It("is rejected", func() {
			Expect(err).To(HaveOccurred())
		})
	})
})

var _ = Describe("ValidateAmount", func() {
	It("accepts a two-decimal value", func() {
		Expect(ValidateAmount(99.99)).To(Succeed())
	})

	It("rejects a negative value", func() {
		Expect(ValidateAmount(-5.00)).NotTo(Succeed())
	})

	It("rejects a value with three decimal places", func() {
		Expect(ValidateAmount(12.345)).NotTo(Succeed())
	})

	It("accepts the ceiling exactly", func() {
		Expect(ValidateAmount(1_000_000)).To(Succeed())
	})
})

var _ = Describe("SanitizeMerchant", func() {
	var (
		input  string
		output string
		err    error
	)

	JustBeforeEach(func() {
		output, err = SanitizeMerchant(input)
	})

	When("the merchant is ordinary", func() {
		BeforeEach(func() {
			input = "  Tesco Express  "
		})

		It("trims it", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(output).To(Equal("Tesco Express"))
		})
	})

	When("the merchant contains a script tag", func() {
		BeforeEach(func() {
			input = `Evil <script>alert(1)</script> Shop`
		})

		It("is rejected", func() {
			Expect(err).To(HaveOccurred())
		})
	})

	When("the merchant is empty", func() {
		BeforeEach(func() {
			input = "   "
		})

		It("is rejected", func() {
			Expect(err).To(HaveOccurred())
		})
	})

	When("the merchant exceeds 100 characters", func() {
		BeforeEach(func() {
			for range 30 {
				input += "abcde"
			}
		})

		It("is truncated to the bound", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(len(output)).To(BeNumerically("<=", 100))
		})
	})
})

var _ = Describe("SanitizeDescription", func() {
	It("degrades markup to absent instead of rejecting", func() {
		Expect(SanitizeDescription(`click javascript:alert(1)`)).To(BeEmpty())
	})

	It("keeps ordinary text", func() {
		Expect(SanitizeDescription(" weekly shop ")).To(Equal("weekly shop"))
	})
})

var _ = Describe("SanitizeCategory", func() {
	It("canonicalizes vocabulary entries case-insensitively", func() {
		Expect(SanitizeCategory("groceries")).To(Equal("Groceries"))
		Expect(SanitizeCategory("HEALTHCARE")).To(Equal("Healthcare"))
	})

	It("maps unknown categories to Other", func() {
		Expect(SanitizeCategory("Cryptocurrency")).To(Equal("Other"))
	})

	It("maps disallowed characters to Other", func() {
		Expect(SanitizeCategory("Groceries<script>")).To(Equal("Other"))
	})
})

var _ = Describe("SanitizePaymentMethod", func() {
	It("keeps simple values", func() {
		Expect(SanitizePaymentMethod("Visa")).To(Equal("Visa"))
	})

	It("degrades disallowed characters to absent", func() {
		Expect(SanitizePaymentMethod("Visa<script>")).To(BeEmpty())
	})
})
