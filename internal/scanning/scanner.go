package scanning

import (
	"context"
	"strings"

	"github.com/expensescan/expensescan/internal/fault"
)

// ExtractionRecord is the untrusted intermediate form produced by decoding a
// model response. It is never persisted directly; the validation gate and
// record assembler decide what survives into an expense record.
type ExtractionRecord struct {
	Date          string     `json:"date"`
	Merchant      string     `json:"merchant"`
	Amount        float64    `json:"amount"`
	Currency      string     `json:"currency"`
	Category      string     `json:"category"`
	Description   string     `json:"description,omitempty"`
	PaymentMethod string     `json:"payment_method,omitempty"`
	TaxAmount     *float64   `json:"tax_amount,omitempty"`
	Confidence    float64    `json:"confidence"`
	Items         []LineItem `json:"items,omitempty"`
	Subtotal      *float64   `json:"subtotal,omitempty"`
	Discounts     *float64   `json:"discounts,omitempty"`
	Fees          *float64   `json:"fees,omitempty"`
	Tip           *float64   `json:"tip,omitempty"`
	ItemsTotal    *float64   `json:"items_total,omitempty"`
}

// LineItem is a single receipt line. TotalPrice is always present even when
// quantity and unit price are not; receipts often omit per-unit pricing.
type LineItem struct {
	Name        string   `json:"name"`
	Quantity    *float64 `json:"quantity,omitempty"`
	UnitPrice   *float64 `json:"unit_price,omitempty"`
	TotalPrice  float64  `json:"total_price"`
	Category    string   `json:"category,omitempty"`
	Description string   `json:"description,omitempty"`
}

// ModelCaller defines the interface to a remote vision/language model. A nil
// image sends a text-only prompt. Implementations classify their failures
// with fault kinds (Transport, ModelRejection).
type ModelCaller interface {
	// Call sends a prompt plus optional image and returns the raw model text
	Call(ctx context.Context, prompt string, image []byte) (string, error)

	// Close releases client resources
	Close() error
}

// Extractor turns one receipt image into an ExtractionRecord: prompt
// construction, model call, response repair, structured decode with
// permissive fallback.
type Extractor struct {
	caller ModelCaller
}

// NewExtractor creates a new Extractor around a model caller
func NewExtractor(caller ModelCaller) *Extractor {
	return &Extractor{caller: caller}
}

// Extract analyzes a single receipt image. The image must already be a PNG
// (see RenderPages).
func (e *Extractor) Extract(ctx context.Context, image []byte) (*ExtractionRecord, error) {
	raw, err := e.caller.Call(ctx, ExtractionPrompt(), image)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(raw) == "" {
		return nil, fault.Errorf(fault.Unparseable, "empty response from model")
	}

	return Decode(Repair(raw))
}

// Close closes the underlying model caller
func (e *Extractor) Close() error {
	return e.caller.Close()
}
