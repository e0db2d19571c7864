package insights

import (
	"context"
	"fmt"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/expensescan/expensescan/internal/expense"
	"github.com/expensescan/expensescan/internal/fault"
)

// cannedCaller returns a fixed model response and records the prompt
type cannedCaller struct {
	response string
	err      error
	prompt   string
	image    []byte
	imageSet bool
}

func (c *cannedCaller) Call(ctx context.Context, prompt string, image []byte) (string, error) {
	c.prompt = prompt
	c.image = image
	c.imageSet = true
	return c.response, c.err
}

func (c *cannedCaller) Close() error { return nil }

var _ = Describe("Analyzer", func() {
	var (
		caller   *cannedCaller
		analyzer *Analyzer
		now      time.Time
		expenses []*expense.Expense
	)

	BeforeEach(func() {
		caller = &cannedCaller{}
		analyzer = NewAnalyzer(caller)
		now = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
		expenses = makeExpenses(8)
	})

	When("the model returns well-formed analysis", func() {
		BeforeEach(func() {
			caller.response = `{
				"opportunities": [{
					"title": "Batch grocery trips",
					"rationale": "Frequent small purchases carry impulse spend",
					"steps": ["Plan a weekly list", "Shop once per week"],
					"monthly_estimate": 40,
					"difficulty": "easy",
					"impact": "medium"
				}],
				"categories": [{"category": "Groceries", "total": 100, "commentary": "Steady"}],
				"patterns": ["Most spending lands on weekends"],
				"actions": ["Set a weekly grocery budget"]
			}`
		})

		It("decodes the snapshot and stamps generation metadata", func() {
			snapshot, err := analyzer.Analyze(context.Background(), expenses, now)

			Expect(err).NotTo(HaveOccurred())
			Expect(snapshot.GeneratedAt).To(Equal(now))
			Expect(snapshot.ExpenseCount).To(Equal(8))
			Expect(snapshot.Opportunities).To(HaveLen(1))
			Expect(snapshot.Opportunities[0].Title).To(Equal("Batch grocery trips"))
		})

		It("calls the model without an image attachment", func() {
			_, err := analyzer.Analyze(context.Background(), expenses, now)

			Expect(err).NotTo(HaveOccurred())
			Expect(caller.imageSet).To(BeTrue())
			Expect(caller.image).To(BeNil())
		})
	})

	When("the response is truncated mid-object", func() {
		BeforeEach(func() {
			caller.response = `{"patterns": ["Most spending lands on weekends"], "actions": ["Set a bud`
		})

		It("repairs what it can and decodes the rest", func() {
			snapshot, err := analyzer.Analyze(context.Background(), expenses, now)

			Expect(err).NotTo(HaveOccurred())
			Expect(snapshot.Patterns).To(ConsistOf("Most spending lands on weekends"))
			Expect(snapshot.Actions).To(BeEmpty())
		})
	})

	When("the response is not JSON at all", func() {
		BeforeEach(func() {
			caller.response = "I cannot analyze this spending data."
		})

		It("fails as unparseable", func() {
			_, err := analyzer.Analyze(context.Background(), expenses, now)

			kind, ok := fault.KindOf(err)
			Expect(ok).To(BeTrue())
			Expect(kind).To(Equal(fault.Unparseable))
		})
	})
})

var _ = Describe("BuildPrompt", func() {
	It("lists every category but caps merchants and items", func() {
		var expenses []*expense.Expense
		for i := 0; i < 30; i++ {
			expenses = append(expenses, &expense.Expense{
				Merchant: fmt.Sprintf("Merchant %02d", i),
				Amount:   float64(i + 1),
				Category: "Shopping",
				Items: []expense.LineItem{
					{Name: fmt.Sprintf("Item %02d", i), TotalPrice: float64(i + 1)},
				},
			})
		}

		prompt := BuildPrompt(expenses)

		Expect(strings.Count(prompt, "Merchant ")).To(Equal(maxPromptMerchants))
		Expect(strings.Count(prompt, "Item ")).To(Equal(maxPromptItems))
		Expect(prompt).To(ContainSubstring("Shopping"))
		// Largest totals survive the cap.
		Expect(prompt).To(ContainSubstring("Merchant 29"))
		Expect(prompt).NotTo(ContainSubstring("Merchant 00"))
	})

	It("folds repeat purchases into one line with a count", func() {
		expenses := []*expense.Expense{
			{Merchant: "Tesco Express", Amount: 10, Category: "Groceries"},
			{Merchant: "Tesco Express", Amount: 5, Category: "Groceries"},
		}

		prompt := BuildPrompt(expenses)

		Expect(prompt).To(ContainSubstring("Tesco Express: 15.00 across 2 purchases"))
	})
})
