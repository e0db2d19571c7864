// Package insights turns the accumulated expense records into a cached
// narrative spending analysis, refreshed in the background by a scheduler
// with single-flight semantics.
package insights

import "time"

// Difficulty and impact classifications for a savings opportunity.
const (
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"

	ImpactLow    = "low"
	ImpactMedium = "medium"
	ImpactHigh   = "high"
)

// SavingsOpportunity is one suggested way to spend less.
type SavingsOpportunity struct {
	Title           string   `json:"title"`
	Rationale       string   `json:"rationale"`
	Steps           []string `json:"steps,omitempty"`
	MonthlyEstimate float64  `json:"monthly_estimate"`
	Difficulty      string   `json:"difficulty,omitempty"`
	Impact          string   `json:"impact,omitempty"`
}

// CategoryAnalysis is the model's commentary on one spending category.
type CategoryAnalysis struct {
	Category   string  `json:"category"`
	Total      float64 `json:"total"`
	Commentary string  `json:"commentary,omitempty"`
}

// Snapshot is a cached analysis derived from the record set. It is never
// mutated in place; each refresh replaces it wholesale.
type Snapshot struct {
	GeneratedAt   time.Time            `json:"generated_at"`
	ExpenseCount  int                  `json:"expense_count"`
	Opportunities []SavingsOpportunity `json:"opportunities,omitempty"`
	Categories    []CategoryAnalysis   `json:"categories,omitempty"`
	Patterns      []string             `json:"patterns,omitempty"`
	Actions       []string             `json:"actions,omitempty"`
}

// Freshness is a read-time classification of snapshot age. It is purely
// informational; no transition or side effect hangs off it.
type Freshness string

const (
	FreshnessFresh   Freshness = "fresh"   // under a day
	FreshnessRecent  Freshness = "recent"  // one to three days
	FreshnessStale   Freshness = "stale"   // three to seven days
	FreshnessExpired Freshness = "expired" // over seven days
)

// FreshnessAt classifies the snapshot's age at the given time.
func (s *Snapshot) FreshnessAt(now time.Time) Freshness {
	age := now.Sub(s.GeneratedAt)
	switch {
	case age < 24*time.Hour:
		return FreshnessFresh
	case age < 3*24*time.Hour:
		return FreshnessRecent
	case age < 7*24*time.Hour:
		return FreshnessStale
	default:
		return FreshnessExpired
	}
}
