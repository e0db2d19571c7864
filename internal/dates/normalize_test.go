package dates

import (
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestDates(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Dates Suite")
}

var _ = Describe("Normalize", func() {
	var (
		input  string
		now    time.Time
		result time.Time
	)

	BeforeEach(func() {
		now = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	})

	JustBeforeEach(func() {
		result = Normalize(input, now)
	})

	When("parsing an ISO date", func() {
		BeforeEach(func() {
			input = "2025-03-20"
		})

		It("returns the calendar date", func() {
			Expect(result.Year()).To(Equal(2025))
			Expect(result.Month()).To(Equal(time.March))
			Expect(result.Day()).To(Equal(20))
		})
	})

	When("parsing a full timestamp with offset", func() {
		BeforeEach(func() {
			input = "2025-03-20T14:30:00+01:00"
		})

		It("parses the date portion", func() {
			Expect(result.Month()).To(Equal(time.March))
			Expect(result.Day()).To(Equal(20))
		})
	})

	When("parsing a slashed month-first date", func() {
		BeforeEach(func() {
			input = "03/20/2025"
		})

		It("treats it as month/day/year", func() {
			Expect(result.Month()).To(Equal(time.March))
			Expect(result.Day()).To(Equal(20))
		})
	})

	When("the day exceeds twelve in a slashed date", func() {
		BeforeEach(func() {
			input = "20/03/2025"
		})

		It("falls through to day/month/year", func() {
			Expect(result.Month()).To(Equal(time.March))
			Expect(result.Day()).To(Equal(20))
		})
	})

	When("parsing a dotted date", func() {
		BeforeEach(func() {
			input = "20.03.2025"
		})

		It("treats it as day.month.year", func() {
			Expect(result.Month()).To(Equal(time.March))
			Expect(result.Day()).To(Equal(20))
		})
	})

	When("parsing a named-month date", func() {
		BeforeEach(func() {
			input = "March 20, 2025"
		})

		It("parses it", func() {
			Expect(result.Month()).To(Equal(time.March))
			Expect(result.Day()).To(Equal(20))
		})
	})

	When("a two-digit year resolves inside the pivot window", func() {
		BeforeEach(func() {
			input = "03/20/24"
		})

		It("normalizes to the 21st century", func() {
			Expect(result.Year()).To(Equal(2024))
		})
	})

	When("a two-digit year would land more than ten years in the future", func() {
		BeforeEach(func() {
			input = "03/20/85"
		})

		It("resolves to the prior century", func() {
			Expect(result.Year()).To(Equal(1985))
		})

		It("keeps the month and day", func() {
			Expect(result.Month()).To(Equal(time.March))
			Expect(result.Day()).To(Equal(20))
		})
	})

	When("the parsed year is more than one year behind the reference", func() {
		BeforeEach(func() {
			input = "2019-03-20"
		})

		It("replaces the year with the reference year", func() {
			Expect(result.Year()).To(Equal(2025))
		})

		It("keeps the month and day", func() {
			Expect(result.Month()).To(Equal(time.March))
			Expect(result.Day()).To(Equal(20))
		})
	})

	When("the parsed year is exactly one year behind the reference", func() {
		BeforeEach(func() {
			input = "2024-12-31"
		})

		It("is left alone", func() {
			Expect(result.Year()).To(Equal(2024))
		})
	})

	When("no pattern matches", func() {
		BeforeEach(func() {
			input = "the twentieth of Floréal"
		})

		It("returns the reference time verbatim", func() {
			Expect(result).To(Equal(now))
		})
	})

	When("the input is empty", func() {
		BeforeEach(func() {
			input = ""
		})

		It("returns the reference time verbatim", func() {
			Expect(result).To(Equal(now))
		})
	})
})
