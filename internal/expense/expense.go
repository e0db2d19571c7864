package expense

import "time"

// Expense is the trusted, persisted form of an extracted receipt. Identity
// is unique within the store; a second upsert with the same ID is a no-op,
// not an overwrite.
type Expense struct {
	ID            string     `json:"id"`
	Date          time.Time  `json:"date"`
	Merchant      string     `json:"merchant"`
	Amount        float64    `json:"amount"`
	Currency      string     `json:"currency"`
	Category      string     `json:"category"`
	Description   string     `json:"description,omitempty"`
	PaymentMethod string     `json:"payment_method,omitempty"`
	TaxAmount     *float64   `json:"tax_amount,omitempty"`
	Items         []LineItem `json:"items,omitempty"`
	Breakdown     *Breakdown `json:"breakdown,omitempty"`

	// SourceFile is the stored original media this record was extracted
	// from; Page is the 1-based page within it.
	SourceFile  string `json:"source_file,omitempty"`
	Page        int    `json:"page,omitempty"`
	ContentType string `json:"content_type,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LineItem is a validated receipt line. TotalPrice is always present even
// when quantity and unit price are not.
type LineItem struct {
	Name        string   `json:"name"`
	Quantity    *float64 `json:"quantity,omitempty"`
	UnitPrice   *float64 `json:"unit_price,omitempty"`
	TotalPrice  float64  `json:"total_price"`
	Category    string   `json:"category,omitempty"`
	Description string   `json:"description,omitempty"`
}

// Breakdown is the optional financial breakdown of a receipt.
type Breakdown struct {
	Subtotal   *float64 `json:"subtotal,omitempty"`
	Discounts  *float64 `json:"discounts,omitempty"`
	Fees       *float64 `json:"fees,omitempty"`
	Tip        *float64 `json:"tip,omitempty"`
	ItemsTotal *float64 `json:"items_total,omitempty"`
}

// Empty reports whether no breakdown field is set.
func (b *Breakdown) Empty() bool {
	return b.Subtotal == nil && b.Discounts == nil && b.Fees == nil &&
		b.Tip == nil && b.ItemsTotal == nil
}

// CategoryTotal is an on-demand aggregate over the full record set.
type CategoryTotal struct {
	Category string  `json:"category"`
	Count    int     `json:"count"`
	Total    float64 `json:"total"`
}

// MonthlySummary is an on-demand aggregate for one calendar month.
type MonthlySummary struct {
	Year       int             `json:"year"`
	Month      time.Month      `json:"month"`
	Count      int             `json:"count"`
	Total      float64         `json:"total"`
	Categories []CategoryTotal `json:"categories"`
}
