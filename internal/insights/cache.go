package insights

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"go.etcd.io/bbolt"

	"github.com/expensescan/expensescan/internal/fault"
)

const insightsBucket = "insights"

var (
	snapshotKey     = []byte("snapshot")
	lastRunAtKey    = []byte("last_run_at")
	lastRunCountKey = []byte("last_run_count")
)

// Cache stores the most recent snapshot along with when it was generated
// and how many expenses it covered. A nil snapshot with no error means no
// snapshot has been generated yet.
type Cache interface {
	Snapshot() (*Snapshot, error)
	PutSnapshot(s *Snapshot) error
	LastRun() (time.Time, int, error)
}

// BoltCache keeps the snapshot in its own bucket of a shared bbolt file.
type BoltCache struct {
	db *bbolt.DB
}

func NewBoltCache(db *bbolt.DB) (*BoltCache, error) {
	err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(insightsBucket))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("creating insights bucket: %w", err)
	}
	return &BoltCache{db: db}, nil
}

func (c *BoltCache) Snapshot() (*Snapshot, error) {
	var snapshot *Snapshot
	err := c.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(insightsBucket)).Get(snapshotKey)
		if data == nil {
			return nil
		}
		return json.Unmarshal(data, &snapshot)
	})
	if err != nil {
		return nil, fault.New(fault.Persistence, "reading cached snapshot", err)
	}
	return snapshot, nil
}

// PutSnapshot stores the snapshot and records its generation time and
// expense count as the last run, all in one write transaction.
func (c *BoltCache) PutSnapshot(s *Snapshot) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshaling snapshot: %w", err)
	}

	err = c.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(insightsBucket))
		if err := bucket.Put(snapshotKey, data); err != nil {
			return err
		}
		if err := bucket.Put(lastRunAtKey, []byte(s.GeneratedAt.UTC().Format(time.RFC3339Nano))); err != nil {
			return err
		}
		return bucket.Put(lastRunCountKey, []byte(strconv.Itoa(s.ExpenseCount)))
	})
	if err != nil {
		return fault.New(fault.Persistence, "storing snapshot", err)
	}
	return nil
}

// LastRun returns when the last snapshot was generated and how many
// expenses it covered. A zero time means no run has completed.
func (c *BoltCache) LastRun() (time.Time, int, error) {
	var at time.Time
	var count int
	err := c.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(insightsBucket))

		if data := bucket.Get(lastRunAtKey); data != nil {
			parsed, err := time.Parse(time.RFC3339Nano, string(data))
			if err != nil {
				return fmt.Errorf("parsing last run time: %w", err)
			}
			at = parsed
		}
		if data := bucket.Get(lastRunCountKey); data != nil {
			parsed, err := strconv.Atoi(string(data))
			if err != nil {
				return fmt.Errorf("parsing last run count: %w", err)
			}
			count = parsed
		}
		return nil
	})
	if err != nil {
		return time.Time{}, 0, fault.New(fault.Persistence, "reading last run", err)
	}
	return at, count, nil
}
