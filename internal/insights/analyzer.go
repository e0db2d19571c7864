package insights

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/expensescan/expensescan/internal/expense"
	"github.com/expensescan/expensescan/internal/fault"
	"github.com/expensescan/expensescan/internal/scanning"
)

// Analyzer turns a set of expenses into a spending Snapshot by asking a
// language model for analysis and decoding its reply.
type Analyzer struct {
	caller scanning.ModelCaller
}

func NewAnalyzer(caller scanning.ModelCaller) *Analyzer {
	return &Analyzer{caller: caller}
}

// Analyze builds the analysis prompt, calls the model with no image
// attachment, and decodes the repaired reply into a Snapshot.
func (a *Analyzer) Analyze(ctx context.Context, expenses []*expense.Expense, now time.Time) (*Snapshot, error) {
	prompt := BuildPrompt(expenses)

	raw, err := a.caller.Call(ctx, prompt, nil)
	if err != nil {
		return nil, fmt.Errorf("calling analysis model: %w", err)
	}
	if raw == "" {
		return nil, fault.Errorf(fault.ModelRejection, "analysis model returned an empty response")
	}

	repaired := scanning.Repair(raw)

	var snapshot Snapshot
	if err := json.Unmarshal([]byte(repaired), &snapshot); err != nil {
		slog.Error("undecodable analysis response", "error", err, "length", len(raw))
		return nil, fault.Errorf(fault.Unparseable, "decoding analysis response: %v", err)
	}

	snapshot.GeneratedAt = now
	snapshot.ExpenseCount = len(expenses)
	return &snapshot, nil
}
