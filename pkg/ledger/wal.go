package ledger

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// WAL is the write-ahead log interface: every receipt is persisted pending
// before it is signed and chained, then marked committed or rolled_back
// (spec §4.7 "Write-ahead log"). Recovery on startup reads Pending entries;
// the operator decides whether to replay or discard.
type WAL interface {
	Begin(receiptID string, partial interface{}) (walID string, err error)
	Commit(walID string) error
	RollBack(walID string) error
	Pending() ([]WALEntry, error)
}

// InMemoryWAL is a process-local WAL; durable only for the process
// lifetime, matching spec §4.7's "in memory otherwise" degradation when no
// path is configured.
type InMemoryWAL struct {
	mu      sync.Mutex
	now     func() time.Time
	entries map[string]WALEntry
}

// NewInMemoryWAL constructs an empty in-memory WAL. now lets tests
// substitute a deterministic clock; nil uses time.Now.
func NewInMemoryWAL(now func() time.Time) *InMemoryWAL {
	if now == nil {
		now = time.Now
	}
	return &InMemoryWAL{now: now, entries: make(map[string]WALEntry)}
}

func (w *InMemoryWAL) Begin(receiptID string, partial interface{}) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	walID := uuid.New().String()
	w.entries[walID] = WALEntry{
		WALID:     walID,
		ReceiptID: receiptID,
		Status:    WALPending,
		Receipt:   partial,
		Timestamp: w.now(),
	}
	return walID, nil
}

func (w *InMemoryWAL) Commit(walID string) error {
	return w.setStatus(walID, WALCommitted)
}

func (w *InMemoryWAL) RollBack(walID string) error {
	return w.setStatus(walID, WALRolledBack)
}

func (w *InMemoryWAL) setStatus(walID string, status WALStatus) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	entry, ok := w.entries[walID]
	if !ok {
		return nil
	}
	entry.Status = status
	w.entries[walID] = entry
	return nil
}

func (w *InMemoryWAL) Pending() ([]WALEntry, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	var out []WALEntry
	for _, e := range w.entries {
		if e.Status == WALPending {
			out = append(out, e)
		}
	}
	return out, nil
}
