package expense

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// Field bounds enforced before a record may reach storage.
const (
	maxMerchantLen      = 100
	maxDescriptionLen   = 500
	maxCategoryLen      = 50
	maxPaymentMethodLen = 50
	maxItemNameLen      = 200
)

// amountCeiling bounds any single monetary value, in source currency units.
var amountCeiling = decimal.NewFromInt(1_000_000)

// markupDenylist rejects free-text fields that could smuggle markup into a
// later rendering surface. Defense in depth, not primary sanitization.
var markupDenylist = []string{
	"<script",
	"</script",
	"<iframe",
	"<img",
	"<svg",
	"javascript:",
	"onerror=",
	"onload=",
	"data:text/html",
}

// categoryVocabulary mirrors the closed set offered to the model in the
// extraction prompt. Anything else degrades to "Other".
var categoryVocabulary = map[string]string{
	"groceries":      "Groceries",
	"dining":         "Dining",
	"transportation": "Transportation",
	"shopping":       "Shopping",
	"entertainment":  "Entertainment",
	"utilities":      "Utilities",
	"healthcare":     "Healthcare",
	"travel":         "Travel",
	"education":      "Education",
	"other":          "Other",
}

// restrictedCharset applies to category and payment-method values:
// alphanumerics, spaces and a small symbol set.
var restrictedCharset = regexp.MustCompile(`^[a-zA-Z0-9 \-_.&/]*$`)

func containsMarkup(s string) bool {
	lower := strings.ToLower(s)
	for _, marker := range markupDenylist {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// SanitizeMerchant validates the merchant name, a required field: trimmed,
// length-bounded, and free of markup markers.
func SanitizeMerchant(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("merchant name is empty")
	}
	if containsMarkup(s) {
		return "", fmt.Errorf("merchant name contains markup")
	}
	if len(s) > maxMerchantLen {
		s = strings.TrimSpace(s[:maxMerchantLen])
	}
	return s, nil
}

// SanitizeDescription validates an optional free-text field. Failure
// degrades the field to absent rather than rejecting the record.
func SanitizeDescription(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || containsMarkup(s) {
		return ""
	}
	if len(s) > maxDescriptionLen {
		s = strings.TrimSpace(s[:maxDescriptionLen])
	}
	return s
}

// SanitizeCategory maps a raw category onto the closed vocabulary, returning
// "Other" for anything outside it.
func SanitizeCategory(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > maxCategoryLen || !restrictedCharset.MatchString(s) {
		return "Other"
	}
	if canonical, ok := categoryVocabulary[strings.ToLower(s)]; ok {
		return canonical
	}
	return "Other"
}

// SanitizePaymentMethod validates an optional payment-method field;
// failure degrades to absent.
func SanitizePaymentMethod(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || len(s) > maxPaymentMethodLen || !restrictedCharset.MatchString(s) {
		return ""
	}
	return s
}

// SanitizeItemName validates a line-item name; an invalid name drops the
// whole item since a nameless price is useless.
func SanitizeItemName(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("item name is empty")
	}
	if containsMarkup(s) {
		return "", fmt.Errorf("item name contains markup")
	}
	if len(s) > maxItemNameLen {
		s = strings.TrimSpace(s[:maxItemNameLen])
	}
	return s, nil
}

// ValidateAmount bounds-checks a monetary value: non-negative, at most the
// ceiling, and at most two decimal places.
func ValidateAmount(v float64) error {
	return validateDecimal(decimal.NewFromFloat(v))
}

// ParseAmount parses and bounds-checks an amount supplied as text.
func ParseAmount(s string) (float64, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("amount is not a number: %w", err)
	}
	if err := validateDecimal(d); err != nil {
		return 0, err
	}
	f, _ := d.Float64()
	return f, nil
}

func validateDecimal(d decimal.Decimal) error {
	if d.IsNegative() {
		return fmt.Errorf("amount is negative")
	}
	if d.GreaterThan(amountCeiling) {
		return fmt.Errorf("amount exceeds ceiling of %s", amountCeiling)
	}
	if d.Exponent() < -2 {
		return fmt.Errorf("amount has more than two decimal places")
	}
	return nil
}

// optionalAmount bounds-checks an optional monetary value, degrading it to
// absent on failure.
func optionalAmount(v *float64) *float64 {
	if v == nil {
		return nil
	}
	if err := ValidateAmount(*v); err != nil {
		return nil
	}
	return v
}
