package scanning

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/expensescan/expensescan/internal/fault"
)

// FallbackConfidence is the fixed conservative score assigned when the
// structured decode fails and only required fields could be salvaged.
const FallbackConfidence = 0.7

// Decode turns repaired model text into an ExtractionRecord. When the typed
// decode fails, a fallback decoder salvages only the required fields via
// permissive object-level lookup; line items are dropped and confidence is
// downgraded to FallbackConfidence. The fallback itself never panics or
// returns a partial record: if the merchant or amount is unrecoverable the
// extraction fails as Unparseable. A missing or garbled date is not fatal
// here; the date normalizer substitutes the reference time downstream.
func Decode(repaired string) (*ExtractionRecord, error) {
	var record ExtractionRecord
	if err := json.Unmarshal([]byte(repaired), &record); err == nil {
		tidy(&record)
		if record.Merchant != "" && record.Amount > 0 {
			return &record, nil
		}
	}
	return decodeFallback(repaired)
}

// tidy trims free-text fields and clamps confidence into [0,1].
func tidy(record *ExtractionRecord) {
	record.Merchant = strings.TrimSpace(record.Merchant)
	record.Category = strings.TrimSpace(record.Category)
	record.Currency = strings.ToUpper(strings.TrimSpace(record.Currency))
	record.Description = strings.TrimSpace(record.Description)
	record.PaymentMethod = strings.TrimSpace(record.PaymentMethod)

	if record.Confidence < 0 {
		record.Confidence = 0
	}
	if record.Confidence > 1 {
		record.Confidence = 1
	}
}

func decodeFallback(text string) (*ExtractionRecord, error) {
	record := &ExtractionRecord{Confidence: FallbackConfidence}

	if doc, err := ParseDocument(text); err == nil {
		fillFromDocument(record, doc)
	} else {
		fillFromPatterns(record, text)
	}
	tidy(record)
	record.Confidence = FallbackConfidence

	if record.Merchant == "" {
		return nil, fault.Errorf(fault.Unparseable, "merchant unrecoverable from model response")
	}
	if record.Amount <= 0 {
		return nil, fault.Errorf(fault.Unparseable, "amount unrecoverable from model response")
	}
	return record, nil
}

// fillFromDocument probes an untyped document for the required fields,
// coercing numeric strings where the model quoted a number.
func fillFromDocument(record *ExtractionRecord, doc Value) {
	if f, ok := doc.Field("date"); ok {
		if s, ok := f.String(); ok {
			record.Date = s
		}
	}
	if f, ok := doc.Field("merchant"); ok {
		if s, ok := f.String(); ok {
			record.Merchant = s
		}
	}
	if f, ok := doc.Field("amount"); ok {
		if n, ok := f.Number(); ok {
			record.Amount = n
		}
	}
	if f, ok := doc.Field("currency"); ok {
		if s, ok := f.String(); ok {
			record.Currency = s
		}
	}
	if f, ok := doc.Field("category"); ok {
		if s, ok := f.String(); ok {
			record.Category = s
		}
	}
}

var (
	fallbackStringPatterns = map[string]*regexp.Regexp{
		"date":     regexp.MustCompile(`"date"\s*:\s*"((?:[^"\\]|\\.)*)"`),
		"merchant": regexp.MustCompile(`"merchant"\s*:\s*"((?:[^"\\]|\\.)*)"`),
		"currency": regexp.MustCompile(`"currency"\s*:\s*"((?:[^"\\]|\\.)*)"`),
		"category": regexp.MustCompile(`"category"\s*:\s*"((?:[^"\\]|\\.)*)"`),
	}
	fallbackAmountPattern = regexp.MustCompile(`"amount"\s*:\s*"?\$?(-?[0-9]+(?:\.[0-9]+)?)"?`)
)

// fillFromPatterns extracts required fields from text that is not even
// parseable JSON, e.g. when the items array is structurally broken but the
// top-level scalar fields survived intact.
func fillFromPatterns(record *ExtractionRecord, text string) {
	fields := map[string]*string{
		"date":     &record.Date,
		"merchant": &record.Merchant,
		"currency": &record.Currency,
		"category": &record.Category,
	}
	for name, dst := range fields {
		m := fallbackStringPatterns[name].FindStringSubmatch(text)
		if m == nil {
			continue
		}
		if unquoted, err := strconv.Unquote(`"` + m[1] + `"`); err == nil {
			*dst = unquoted
		} else {
			*dst = m[1]
		}
	}

	if m := fallbackAmountPattern.FindStringSubmatch(text); m != nil {
		if f, err := strconv.ParseFloat(m[1], 64); err == nil {
			record.Amount = f
		}
	}
}
