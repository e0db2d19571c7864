package expense

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.etcd.io/bbolt"

	"github.com/expensescan/expensescan/internal/fault"
)

const expenseBucket = "expenses"

// DB defines the interface for expense persistence. Implementations own
// uniqueness: upsert lookup-then-insert must be atomic per identity.
type DB interface {
	// UpsertExpense inserts the expense if its ID is absent. When the ID
	// already exists the stored record is returned unchanged and nothing is
	// written; duplicate submissions from retried source media become no-ops.
	UpsertExpense(e *Expense) (*Expense, error)

	// GetExpense retrieves an expense by ID
	GetExpense(id string) (*Expense, error)

	// UpdateExpense replaces an existing expense; the ID must already exist
	UpdateExpense(e *Expense) error

	// ListExpenses returns all expenses
	ListExpenses() ([]*Expense, error)

	// ListExpensesByMerchant returns expenses whose merchant contains the
	// given text, case-insensitively
	ListExpensesByMerchant(merchant string) ([]*Expense, error)

	// DeleteExpense removes an expense by ID
	DeleteExpense(id string) error

	// CountExpenses returns the number of stored expenses
	CountExpenses() (int, error)

	// Close closes the database
	Close() error
}

// BoltDB implements the DB interface using bbolt.
type BoltDB struct {
	db *bbolt.DB
}

// NewBoltDB opens (creating if needed) a bbolt database at path.
func NewBoltDB(path string) (*BoltDB, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(expenseBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &BoltDB{db: db}, nil
}

// Handle exposes the underlying bbolt handle so sibling components (the
// insights cache) can keep their own bucket in the same file.
func (b *BoltDB) Handle() *bbolt.DB {
	return b.db
}

// UpsertExpense inserts the expense if absent. The existence check and the
// put share one bbolt write transaction, so the idempotency guarantee holds
// under concurrent submissions of the same identity.
func (b *BoltDB) UpsertExpense(e *Expense) (*Expense, error) {
	var stored *Expense
	err := b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(expenseBucket))

		if existing := bucket.Get([]byte(e.ID)); existing != nil {
			return json.Unmarshal(existing, &stored)
		}

		data, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("marshaling expense: %w", err)
		}
		if err := bucket.Put([]byte(e.ID), data); err != nil {
			return err
		}
		stored = e
		return nil
	})
	if err != nil {
		return nil, fault.New(fault.Persistence, "upserting expense", err)
	}
	return stored, nil
}

// GetExpense retrieves an expense by ID
func (b *BoltDB) GetExpense(id string) (*Expense, error) {
	var expense *Expense
	err := b.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(expenseBucket)).Get([]byte(id))
		if data == nil {
			return fmt.Errorf("expense not found: %s", id)
		}
		return json.Unmarshal(data, &expense)
	})
	if err != nil {
		return nil, err
	}
	return expense, nil
}

// UpdateExpense replaces an existing expense by exact identity match.
func (b *BoltDB) UpdateExpense(e *Expense) error {
	err := b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(expenseBucket))
		if bucket.Get([]byte(e.ID)) == nil {
			return fmt.Errorf("expense not found: %s", e.ID)
		}
		data, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("marshaling expense: %w", err)
		}
		return bucket.Put([]byte(e.ID), data)
	})
	if err != nil {
		return fault.New(fault.Persistence, "updating expense", err)
	}
	return nil
}

// ListExpenses returns all expenses
func (b *BoltDB) ListExpenses() ([]*Expense, error) {
	expenses := make([]*Expense, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(expenseBucket)).ForEach(func(k, v []byte) error {
			var e Expense
			if err := json.Unmarshal(v, &e); err != nil {
				return fmt.Errorf("unmarshaling expense: %w", err)
			}
			expenses = append(expenses, &e)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return expenses, nil
}

// ListExpensesByMerchant filters by case-insensitive merchant substring.
func (b *BoltDB) ListExpensesByMerchant(merchant string) ([]*Expense, error) {
	needle := strings.ToLower(strings.TrimSpace(merchant))

	all, err := b.ListExpenses()
	if err != nil {
		return nil, err
	}

	matched := make([]*Expense, 0)
	for _, e := range all {
		if strings.Contains(strings.ToLower(e.Merchant), needle) {
			matched = append(matched, e)
		}
	}
	return matched, nil
}

// DeleteExpense removes an expense by ID
func (b *BoltDB) DeleteExpense(id string) error {
	err := b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(expenseBucket)).Delete([]byte(id))
	})
	if err != nil {
		return fault.New(fault.Persistence, "deleting expense", err)
	}
	return nil
}

// CountExpenses returns the number of stored expenses
func (b *BoltDB) CountExpenses() (int, error) {
	var count int
	err := b.db.View(func(tx *bbolt.Tx) error {
		count = tx.Bucket([]byte(expenseBucket)).Stats().KeyN
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

// Close closes the database
func (b *BoltDB) Close() error {
	return b.db.Close()
}
