package insights

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/expensescan/expensescan/internal/expense"
	"github.com/expensescan/expensescan/internal/fault"
)

// Eligibility thresholds. A first snapshot needs a minimum body of records;
// after that a rerun happens on age or on meaningful growth.
const (
	minExpensesForAnalysis = 5
	rerunInterval          = 7 * 24 * time.Hour
	growthAbsolute         = 5
	growthFraction         = 0.2
	defaultDebounce        = 2 * time.Second
)

// ExpenseSource is the slice of the expense store the scheduler reads.
type ExpenseSource interface {
	ListExpenses() ([]*expense.Expense, error)
	CountExpenses() (int, error)
}

// SnapshotAnalyzer produces a snapshot from a set of expenses.
type SnapshotAnalyzer interface {
	Analyze(ctx context.Context, expenses []*expense.Expense, now time.Time) (*Snapshot, error)
}

// Scheduler decides when to regenerate the spending snapshot and makes sure
// at most one generation runs at a time. Triggers arrive from three places:
// an hourly cron tick, debounced change notifications from the expense
// service, and explicit user refreshes.
type Scheduler struct {
	source   ExpenseSource
	analyzer SnapshotAnalyzer
	cache    Cache

	cron *cron.Cron

	mu          sync.Mutex
	running     bool
	pending     bool
	notifyTimer *time.Timer

	now      func() time.Time
	debounce time.Duration
}

func NewScheduler(source ExpenseSource, analyzer SnapshotAnalyzer, cache Cache) *Scheduler {
	return &Scheduler{
		source:   source,
		analyzer: analyzer,
		cache:    cache,
		now:      time.Now,
		debounce: defaultDebounce,
	}
}

// Start begins the hourly eligibility tick and immediately checks once, so
// a restart with an aged cache does not wait an hour to catch up.
func (s *Scheduler) Start() {
	s.cron = cron.New()
	s.cron.AddFunc("@hourly", func() {
		s.MaybeRun(context.Background())
	})
	s.cron.Start()

	go s.MaybeRun(context.Background())
}

// Stop halts the cron tick and any pending debounced notification.
func (s *Scheduler) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.notifyTimer != nil {
		s.notifyTimer.Stop()
		s.notifyTimer = nil
	}
}

// Notify signals that the expense set changed. Bursts of changes (a
// multi-page upload) collapse into a single eligibility check after the
// debounce window.
func (s *Scheduler) Notify() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.notifyTimer != nil {
		s.notifyTimer.Stop()
	}
	s.notifyTimer = time.AfterFunc(s.debounce, func() {
		s.MaybeRun(context.Background())
	})
}

// MaybeRun regenerates the snapshot if the eligibility rules say so. A check
// that arrives while a run is in progress is remembered and re-evaluated
// once the run finishes, rather than starting a second run. Failures are
// logged and swallowed; the previous cached snapshot stays valid.
func (s *Scheduler) MaybeRun(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.pending = true
		s.mu.Unlock()
		return
	}

	eligible, err := s.eligible()
	if err != nil {
		s.mu.Unlock()
		slog.Error("insights eligibility check failed", "error", err)
		return
	}
	if !eligible {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()

	if err := s.run(ctx); err != nil {
		slog.Error("background insights generation failed", "error", err)
	}

	s.mu.Lock()
	s.running = false
	rerun := s.pending
	s.pending = false
	s.mu.Unlock()

	if rerun {
		s.MaybeRun(ctx)
	}
}

// ForceRefresh regenerates the snapshot regardless of eligibility. Unlike
// the background path this is user-initiated, so errors surface to the
// caller. A refresh during an in-flight run is rejected rather than queued.
func (s *Scheduler) ForceRefresh(ctx context.Context) (*Snapshot, error) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil, fault.Errorf(fault.Precondition, "insights generation already in progress")
	}
	s.running = true
	s.mu.Unlock()

	err := s.run(ctx)

	s.mu.Lock()
	s.running = false
	s.pending = false
	s.mu.Unlock()

	if err != nil {
		return nil, err
	}
	return s.cache.Snapshot()
}

// Current returns the cached snapshot and its freshness at the given time.
// A nil snapshot with no error means none has been generated yet.
func (s *Scheduler) Current(now time.Time) (*Snapshot, Freshness, error) {
	snapshot, err := s.cache.Snapshot()
	if err != nil {
		return nil, "", err
	}
	if snapshot == nil {
		return nil, "", nil
	}
	return snapshot, snapshot.FreshnessAt(now), nil
}

// eligible applies the regeneration rules against the last recorded run.
// Callers hold s.mu.
func (s *Scheduler) eligible() (bool, error) {
	count, err := s.source.CountExpenses()
	if err != nil {
		return false, err
	}

	lastAt, lastCount, err := s.cache.LastRun()
	if err != nil {
		return false, err
	}

	if lastAt.IsZero() {
		return count >= minExpensesForAnalysis, nil
	}
	if s.now().Sub(lastAt) >= rerunInterval {
		return true, nil
	}

	growth := count - lastCount
	if growth >= growthAbsolute {
		return true, nil
	}
	if lastCount > 0 && float64(growth) >= growthFraction*float64(lastCount) {
		return true, nil
	}
	return false, nil
}

func (s *Scheduler) run(ctx context.Context) error {
	started := s.now()
	expenses, err := s.source.ListExpenses()
	if err != nil {
		return err
	}

	snapshot, err := s.analyzer.Analyze(ctx, expenses, started)
	if err != nil {
		return err
	}

	if err := s.cache.PutSnapshot(snapshot); err != nil {
		return err
	}

	slog.Info("insights snapshot generated",
		"expenses", snapshot.ExpenseCount,
		"opportunities", len(snapshot.Opportunities),
		"took", s.now().Sub(started))
	return nil
}
