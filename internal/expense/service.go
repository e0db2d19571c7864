package expense

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/expensescan/expensescan/internal/currency"
	"github.com/expensescan/expensescan/internal/dates"
	"github.com/expensescan/expensescan/internal/fault"
	"github.com/expensescan/expensescan/internal/scanning"
)

// Extractor turns one receipt image into an untrusted extraction record.
// scanning.Extractor satisfies it; tests substitute fakes.
type Extractor interface {
	Extract(ctx context.Context, image []byte) (*scanning.ExtractionRecord, error)
}

// IDGenerator generates stable identities for expense records
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

type uuidGenerator struct{}

func (uuidGenerator) Generate() string {
	return uuid.NewString()
}

type clockTimeSource struct{}

func (clockTimeSource) Now() time.Time {
	return time.Now()
}

// BatchError describes one failed page within a batch.
type BatchError struct {
	Page      int    `json:"page"`
	Kind      string `json:"kind"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}

// BatchResult summarizes a multi-page extraction. A failed page never aborts
// its siblings; it is recorded here and the batch continues.
type BatchResult struct {
	Total     int          `json:"total"`
	Processed int          `json:"processed"`
	Expenses  []*Expense   `json:"expenses"`
	Errors    []BatchError `json:"errors,omitempty"`
}

// Summary renders the user-facing processed count.
func (r *BatchResult) Summary() string {
	return fmt.Sprintf("processed %d of %d", r.Processed, r.Total)
}

// Service runs the extraction pipeline: render pages, call the model,
// repair/decode, validate, assemble, persist. Pages are processed
// sequentially to bound load on the model endpoint and keep upserts free of
// races within a batch.
type Service struct {
	db          DB
	extractor   Extractor
	media       MediaStore
	resolver    *currency.Resolver
	idGenerator IDGenerator
	timeSource  TimeSource
	onChange    func()
}

// NewService creates a Service with uuid identities and the wall clock.
func NewService(db DB, extractor Extractor, media MediaStore, resolver *currency.Resolver) *Service {
	return NewServiceWithDeps(db, extractor, media, resolver, uuidGenerator{}, clockTimeSource{})
}

// NewServiceWithDeps creates a Service with custom dependencies for testing
func NewServiceWithDeps(db DB, extractor Extractor, media MediaStore, resolver *currency.Resolver, idGen IDGenerator, timeSrc TimeSource) *Service {
	return &Service{
		db:          db,
		extractor:   extractor,
		media:       media,
		resolver:    resolver,
		idGenerator: idGen,
		timeSource:  timeSrc,
	}
}

// SetChangeListener registers a callback invoked after the record set
// changes (upsert, update, delete). Used to nudge the insights scheduler.
func (s *Service) SetChangeListener(fn func()) {
	s.onChange = fn
}

func (s *Service) notifyChanged() {
	if s.onChange != nil {
		s.onChange()
	}
}

// ProcessUpload runs the full pipeline over one uploaded source (photo or
// multi-page PDF). Each rendered page is processed to completion before the
// next begins. Per-page failures are collected, not propagated; the returned
// error is non-nil only when the source itself is unusable.
func (s *Service) ProcessUpload(ctx context.Context, filename string, data []byte, contentType string) (*BatchResult, error) {
	pages, err := scanning.RenderPages(data, contentType)
	if err != nil {
		return nil, fault.New(fault.Invalid, "rendering source", err)
	}

	uploadID := s.idGenerator.Generate()
	savedPath, err := s.media.Save(fmt.Sprintf("%s_%s", uploadID, sanitizeFilename(filename)), data)
	if err != nil {
		return nil, fault.New(fault.Persistence, "saving media", err)
	}

	result := s.processBatch(ctx, pages, savedPath, contentType)

	if result.Processed == 0 {
		// Nothing references the media; clean it up like a failed scan.
		if err := s.media.Delete(savedPath); err != nil {
			slog.Warn("failed to delete media after failed batch", "path", savedPath, "error", err)
		}
		return result, nil
	}

	s.notifyChanged()
	return result, nil
}

// processBatch runs each page to completion before the next begins. A page
// failure is recorded and its siblings continue.
func (s *Service) processBatch(ctx context.Context, pages [][]byte, sourceFile, contentType string) *BatchResult {
	result := &BatchResult{Total: len(pages), Expenses: make([]*Expense, 0, len(pages))}
	for i, page := range pages {
		stored, err := s.processPage(ctx, page, sourceFile, contentType, i+1)
		if err != nil {
			slog.Error("page extraction failed",
				"source", sourceFile,
				"page", i+1,
				"error", err,
			)
			result.Errors = append(result.Errors, toBatchError(i+1, err))
			continue
		}
		result.Processed++
		result.Expenses = append(result.Expenses, stored)
	}
	return result
}

func (s *Service) processPage(ctx context.Context, page []byte, sourceFile, contentType string, pageNum int) (*Expense, error) {
	record, err := s.extractor.Extract(ctx, page)
	if err != nil {
		return nil, err
	}

	exp, err := s.assemble(record)
	if err != nil {
		return nil, err
	}
	exp.SourceFile = sourceFile
	exp.Page = pageNum
	exp.ContentType = contentType

	return s.db.UpsertExpense(exp)
}

// assemble composes a trusted expense record from an untrusted extraction:
// validation gate on every field, date normalization, currency
// reconciliation, fresh identity. Required-field failures reject the record;
// optional-field failures degrade that field to absent.
func (s *Service) assemble(record *scanning.ExtractionRecord) (*Expense, error) {
	now := s.timeSource.Now()

	merchant, err := SanitizeMerchant(record.Merchant)
	if err != nil {
		return nil, fault.New(fault.Invalid, "validating merchant", err)
	}

	if record.Amount <= 0 {
		return nil, fault.Errorf(fault.Invalid, "amount must be positive, got %v", record.Amount)
	}
	if err := ValidateAmount(record.Amount); err != nil {
		return nil, fault.New(fault.Invalid, "validating amount", err)
	}

	description := SanitizeDescription(record.Description)

	resolveText := strings.TrimSpace(strings.Join(
		[]string{record.Merchant, record.Description, record.PaymentMethod}, " "))
	code := s.resolver.Reconcile(record.Currency, resolveText)

	exp := &Expense{
		ID:            s.idGenerator.Generate(),
		Date:          dates.Normalize(record.Date, now),
		Merchant:      merchant,
		Amount:        record.Amount,
		Currency:      code,
		Category:      SanitizeCategory(record.Category),
		Description:   description,
		PaymentMethod: SanitizePaymentMethod(record.PaymentMethod),
		TaxAmount:     optionalAmount(record.TaxAmount),
		Items:         s.assembleItems(record.Items),
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	breakdown := &Breakdown{
		Subtotal:   optionalAmount(record.Subtotal),
		Discounts:  optionalAmount(record.Discounts),
		Fees:       optionalAmount(record.Fees),
		Tip:        optionalAmount(record.Tip),
		ItemsTotal: optionalAmount(record.ItemsTotal),
	}
	if !breakdown.Empty() {
		exp.Breakdown = breakdown
	}

	return exp, nil
}

// assembleItems validates each line item independently; a bad item is
// dropped rather than failing the record.
func (s *Service) assembleItems(items []scanning.LineItem) []LineItem {
	if len(items) == 0 {
		return nil
	}

	out := make([]LineItem, 0, len(items))
	for _, item := range items {
		name, err := SanitizeItemName(item.Name)
		if err != nil {
			slog.Debug("dropping line item", "error", err)
			continue
		}
		if err := ValidateAmount(item.TotalPrice); err != nil {
			slog.Debug("dropping line item", "name", name, "error", err)
			continue
		}

		out = append(out, LineItem{
			Name:        name,
			Quantity:    positiveOrNil(item.Quantity),
			UnitPrice:   optionalAmount(item.UnitPrice),
			TotalPrice:  item.TotalPrice,
			Category:    SanitizeCategory(item.Category),
			Description: SanitizeDescription(item.Description),
		})
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func positiveOrNil(v *float64) *float64 {
	if v == nil || *v <= 0 {
		return nil
	}
	return v
}

func toBatchError(page int, err error) BatchError {
	be := BatchError{Page: page, Message: err.Error(), Kind: "unknown"}
	var fe *fault.Error
	if errors.As(err, &fe) {
		be.Kind = fe.Kind.String()
		be.Retryable = fe.Retryable()
	}
	return be
}

// GetExpense retrieves an expense by ID
func (s *Service) GetExpense(id string) (*Expense, error) {
	exp, err := s.db.GetExpense(id)
	if err != nil {
		return nil, fmt.Errorf("getting expense: %w", err)
	}
	return exp, nil
}

// ListExpenses returns all expenses
func (s *Service) ListExpenses() ([]*Expense, error) {
	expenses, err := s.db.ListExpenses()
	if err != nil {
		return nil, fmt.Errorf("listing expenses: %w", err)
	}
	return expenses, nil
}

// SearchByMerchant returns expenses matching a merchant-name predicate.
func (s *Service) SearchByMerchant(merchant string) ([]*Expense, error) {
	expenses, err := s.db.ListExpensesByMerchant(merchant)
	if err != nil {
		return nil, fmt.Errorf("searching expenses: %w", err)
	}
	return expenses, nil
}

// UpdateExpense re-validates an edited record and replaces the stored copy
// by exact identity.
func (s *Service) UpdateExpense(exp *Expense) (*Expense, error) {
	existing, err := s.db.GetExpense(exp.ID)
	if err != nil {
		return nil, fmt.Errorf("getting expense for update: %w", err)
	}

	merchant, err := SanitizeMerchant(exp.Merchant)
	if err != nil {
		return nil, fault.New(fault.Invalid, "validating merchant", err)
	}
	if exp.Amount <= 0 {
		return nil, fault.Errorf(fault.Invalid, "amount must be positive, got %v", exp.Amount)
	}
	if err := ValidateAmount(exp.Amount); err != nil {
		return nil, fault.New(fault.Invalid, "validating amount", err)
	}

	exp.Merchant = merchant
	exp.Currency = s.resolver.Reconcile(exp.Currency, merchant)
	exp.Category = SanitizeCategory(exp.Category)
	exp.Description = SanitizeDescription(exp.Description)
	exp.PaymentMethod = SanitizePaymentMethod(exp.PaymentMethod)
	exp.SourceFile = existing.SourceFile
	exp.Page = existing.Page
	exp.ContentType = existing.ContentType
	exp.CreatedAt = existing.CreatedAt
	exp.UpdatedAt = s.timeSource.Now()

	if err := s.db.UpdateExpense(exp); err != nil {
		return nil, err
	}
	s.notifyChanged()
	return exp, nil
}

// DeleteExpense removes an expense; the stored source media is deleted only
// once no other record (another page of the same document) references it.
func (s *Service) DeleteExpense(id string) error {
	exp, err := s.db.GetExpense(id)
	if err != nil {
		return fmt.Errorf("getting expense for deletion: %w", err)
	}

	if err := s.db.DeleteExpense(id); err != nil {
		return err
	}

	if exp.SourceFile != "" {
		referenced, err := s.mediaReferenced(exp.SourceFile)
		if err != nil {
			slog.Warn("could not check media references", "file", exp.SourceFile, "error", err)
		} else if !referenced {
			if err := s.media.Delete(exp.SourceFile); err != nil {
				slog.Warn("failed to delete media", "file", exp.SourceFile, "error", err)
			}
		}
	}

	s.notifyChanged()
	return nil
}

func (s *Service) mediaReferenced(sourceFile string) (bool, error) {
	all, err := s.db.ListExpenses()
	if err != nil {
		return false, err
	}
	for _, e := range all {
		if e.SourceFile == sourceFile {
			return true, nil
		}
	}
	return false, nil
}

// GetExpenseFile retrieves the original media for an expense.
func (s *Service) GetExpenseFile(id string) ([]byte, string, error) {
	exp, err := s.db.GetExpense(id)
	if err != nil {
		return nil, "", fmt.Errorf("getting expense: %w", err)
	}
	if exp.SourceFile == "" {
		return nil, "", fmt.Errorf("expense has no stored media")
	}

	data, err := s.media.Get(exp.SourceFile)
	if err != nil {
		return nil, "", fmt.Errorf("getting expense media: %w", err)
	}
	return data, exp.ContentType, nil
}

// Monthly recomputes the summary for one calendar month from the full
// current record set. Totals are naive sums across currencies; conversion is
// out of scope.
func (s *Service) Monthly(year int, month time.Month) (*MonthlySummary, error) {
	all, err := s.db.ListExpenses()
	if err != nil {
		return nil, fmt.Errorf("listing expenses: %w", err)
	}

	summary := &MonthlySummary{Year: year, Month: month}
	byCategory := make(map[string]*CategoryTotal)
	for _, e := range all {
		if e.Date.Year() != year || e.Date.Month() != month {
			continue
		}
		summary.Count++
		summary.Total += e.Amount

		ct, ok := byCategory[e.Category]
		if !ok {
			ct = &CategoryTotal{Category: e.Category}
			byCategory[e.Category] = ct
		}
		ct.Count++
		ct.Total += e.Amount
	}

	summary.Categories = sortedTotals(byCategory)
	return summary, nil
}

// CategoryTotals recomputes per-category totals over all records.
func (s *Service) CategoryTotals() ([]CategoryTotal, error) {
	all, err := s.db.ListExpenses()
	if err != nil {
		return nil, fmt.Errorf("listing expenses: %w", err)
	}

	byCategory := make(map[string]*CategoryTotal)
	for _, e := range all {
		ct, ok := byCategory[e.Category]
		if !ok {
			ct = &CategoryTotal{Category: e.Category}
			byCategory[e.Category] = ct
		}
		ct.Count++
		ct.Total += e.Amount
	}
	return sortedTotals(byCategory), nil
}

func sortedTotals(byCategory map[string]*CategoryTotal) []CategoryTotal {
	out := make([]CategoryTotal, 0, len(byCategory))
	for _, ct := range byCategory {
		out = append(out, *ct)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Total > out[j].Total
	})
	return out
}
