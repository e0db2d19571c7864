package scanning

import (
	"sort"
	"strings"
	"sync"

	"github.com/expensescan/expensescan/internal/currency"
)

// The extraction prompt is assembled from named sections so a change to one
// rule is reviewable on its own. Changing any section changes model
// behavior, so the assembled prompt is the single versioned template the
// decoder is written against.

// Categories is the closed vocabulary the model must choose from. The
// validation gate maps anything else to "Other".
var Categories = []string{
	"Groceries",
	"Dining",
	"Transportation",
	"Shopping",
	"Entertainment",
	"Utilities",
	"Healthcare",
	"Travel",
	"Education",
	"Other",
}

const promptFieldRules = `You are analyzing a receipt or invoice image. Carefully read all text and extract a purchase record.

Required fields:
- "date": the transaction date
- "merchant": the store or business name, usually the largest text at the top
- "amount": the final total (grand total, amount due), numeric
- "currency": the ISO 4217 code of the currency charged
- "category": one of the categories listed below

Optional fields (use null when not present on the receipt):
- "description": a one-line summary of the purchase
- "payment_method": e.g. "Visa", "Cash", "Apple Pay"
- "tax_amount": total tax, numeric
- "confidence": your confidence in this extraction, between 0 and 1
- "items": array of line items, each with "name", "total_price" (required, numeric) and optional "quantity", "unit_price", "category", "description"
- "subtotal", "discounts", "fees", "tip", "items_total": numeric`

const promptDateRules = `Date rules:
- Prefer a full timestamp over a short date when both appear.
- Output the date exactly as printed; do not reformat it.
- Two-digit years always belong to the 2000s.`

const promptOutputRules = `Return ONLY a single JSON object with the fields above.
- "amount" and all prices must be numbers, not strings.
- Do not include any text before or after the JSON.
- Do not use markdown code blocks.
- Use null for fields you cannot find; never invent values.`

var (
	extractionPrompt     string
	extractionPromptOnce sync.Once
)

// ExtractionPrompt returns the deterministic instruction template for a
// single receipt image. It is a pure function of the tables compiled into
// the binary; no I/O.
func ExtractionPrompt() string {
	extractionPromptOnce.Do(func() {
		var b strings.Builder
		b.WriteString(promptFieldRules)
		b.WriteString("\n\nCategories (use exactly one):\n")
		b.WriteString(strings.Join(Categories, ", "))
		b.WriteString("\n\n")
		b.WriteString(currencyRules())
		b.WriteString("\n\n")
		b.WriteString(promptDateRules)
		b.WriteString("\n\n")
		b.WriteString(promptOutputRules)
		extractionPrompt = b.String()
	})
	return extractionPrompt
}

// currencyRules renders the symbol table in sorted order so the prompt is
// byte-for-byte stable across runs.
func currencyRules() string {
	symbols := make([]string, 0, len(currency.SymbolTable))
	for s := range currency.SymbolTable {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)

	var b strings.Builder
	b.WriteString("Currency rules. Map printed symbols to ISO codes using this table:\n")
	for _, s := range symbols {
		b.WriteString("  ")
		b.WriteString(s)
		b.WriteString(" -> ")
		b.WriteString(currency.SymbolTable[s])
		b.WriteString("\n")
	}
	b.WriteString("If the currency is still ambiguous, infer it from addresses, postal codes or phone prefixes on the receipt.")
	return b.String()
}
