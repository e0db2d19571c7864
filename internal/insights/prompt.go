package insights

import (
	"fmt"
	"sort"
	"strings"

	"github.com/expensescan/expensescan/internal/expense"
)

// Caps bounding the prompt size regardless of how many records exist.
const (
	maxPromptMerchants = 15
	maxPromptItems     = 20
)

const analysisInstructions = `You are a personal-finance analyst. Using the spending summary below, produce a JSON object with these fields:
- "opportunities": array of savings opportunities, each with "title", "rationale", "steps" (array of strings), "monthly_estimate" (number), "difficulty" ("easy"|"medium"|"hard"), "impact" ("low"|"medium"|"high")
- "categories": array of per-category analyses, each with "category", "total" (number), "commentary"
- "patterns": array of strings describing notable spending patterns
- "actions": array of short recommended actions

Return ONLY the JSON object. Do not use markdown code blocks.`

type namedTotal struct {
	name  string
	count int
	total float64
}

// BuildPrompt aggregates per-category and per-merchant totals plus the top
// line items into a single analysis prompt. Merchant and item lists are
// capped so the prompt stays bounded however large the record set grows.
func BuildPrompt(expenses []*expense.Expense) string {
	categories := make(map[string]*namedTotal)
	merchants := make(map[string]*namedTotal)
	items := make(map[string]*namedTotal)

	for _, e := range expenses {
		accumulate(categories, e.Category, e.Amount)
		accumulate(merchants, e.Merchant, e.Amount)
		for _, item := range e.Items {
			accumulate(items, item.Name, item.TotalPrice)
		}
	}

	var b strings.Builder
	b.WriteString(analysisInstructions)
	b.WriteString("\n\nSpending summary covering ")
	fmt.Fprintf(&b, "%d expenses:\n", len(expenses))

	b.WriteString("\nTotals by category:\n")
	writeTotals(&b, categories, len(categories))

	fmt.Fprintf(&b, "\nTop merchants (up to %d):\n", maxPromptMerchants)
	writeTotals(&b, merchants, maxPromptMerchants)

	fmt.Fprintf(&b, "\nTop line items (up to %d):\n", maxPromptItems)
	writeTotals(&b, items, maxPromptItems)

	return b.String()
}

func accumulate(m map[string]*namedTotal, name string, amount float64) {
	if name == "" {
		return
	}
	nt, ok := m[name]
	if !ok {
		nt = &namedTotal{name: name}
		m[name] = nt
	}
	nt.count++
	nt.total += amount
}

func writeTotals(b *strings.Builder, m map[string]*namedTotal, limit int) {
	totals := make([]*namedTotal, 0, len(m))
	for _, nt := range m {
		totals = append(totals, nt)
	}
	sort.Slice(totals, func(i, j int) bool {
		if totals[i].total != totals[j].total {
			return totals[i].total > totals[j].total
		}
		return totals[i].name < totals[j].name
	})

	if limit > len(totals) {
		limit = len(totals)
	}
	for _, nt := range totals[:limit] {
		fmt.Fprintf(b, "  %s: %.2f across %d purchases\n", nt.name, nt.total, nt.count)
	}
}
