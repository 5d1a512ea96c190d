package ledger

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"  // Postgres driver, registered as "postgres"
	_ "modernc.org/sqlite" // SQLite driver, registered as "sqlite"
)

// Dialect selects the placeholder style for the driver behind a SQLWAL.
type Dialect int

const (
	// DialectSQLite targets modernc.org/sqlite ("?" placeholders).
	DialectSQLite Dialect = iota
	// DialectPostgres targets lib/pq ("$n" placeholders).
	DialectPostgres
)

// CreateTableSQLite is the DDL for a modernc.org/sqlite-backed WAL.
const CreateTableSQLite = `
CREATE TABLE IF NOT EXISTS ledger_wal (
	wal_id TEXT PRIMARY KEY,
	receipt_id TEXT NOT NULL,
	status TEXT NOT NULL,
	receipt_json TEXT NOT NULL,
	timestamp INTEGER NOT NULL
)`

// CreateTablePostgres is the DDL for a lib/pq-backed WAL.
const CreateTablePostgres = `
CREATE TABLE IF NOT EXISTS ledger_wal (
	wal_id TEXT PRIMARY KEY,
	receipt_id TEXT NOT NULL,
	status TEXT NOT NULL,
	receipt_json TEXT NOT NULL,
	timestamp BIGINT NOT NULL
)`

// SQLWAL is a durable WAL backed by database/sql for a single-node or
// multi-node deployment (modernc.org/sqlite or lib/pq, selected by the
// Dialect it is constructed with).
type SQLWAL struct {
	db      *sql.DB
	dialect Dialect
	now     func() time.Time
}

// NewSQLWAL wraps an existing *sql.DB; the ledger_wal table must already
// exist (see CreateTableSQLite / CreateTablePostgres).
func NewSQLWAL(db *sql.DB, dialect Dialect, now func() time.Time) *SQLWAL {
	if now == nil {
		now = time.Now
	}
	return &SQLWAL{db: db, dialect: dialect, now: now}
}

func (w *SQLWAL) placeholder(n int) string {
	if w.dialect == DialectPostgres {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

func (w *SQLWAL) Begin(receiptID string, partial interface{}) (string, error) {
	raw, err := json.Marshal(partial)
	if err != nil {
		return "", fmt.Errorf("ledger: marshal wal entry: %w", err)
	}
	walID := uuid.New().String()
	query := fmt.Sprintf(
		"INSERT INTO ledger_wal (wal_id, receipt_id, status, receipt_json, timestamp) VALUES (%s, %s, %s, %s, %s)",
		w.placeholder(1), w.placeholder(2), w.placeholder(3), w.placeholder(4), w.placeholder(5),
	)
	if _, err := w.db.Exec(query, walID, receiptID, string(WALPending), string(raw), w.now().UnixMilli()); err != nil {
		return "", fmt.Errorf("ledger: wal insert: %w", err)
	}
	return walID, nil
}

func (w *SQLWAL) Commit(walID string) error { return w.setStatus(walID, WALCommitted) }
func (w *SQLWAL) RollBack(walID string) error { return w.setStatus(walID, WALRolledBack) }

func (w *SQLWAL) setStatus(walID string, status WALStatus) error {
	query := fmt.Sprintf("UPDATE ledger_wal SET status = %s WHERE wal_id = %s", w.placeholder(1), w.placeholder(2))
	if _, err := w.db.Exec(query, string(status), walID); err != nil {
		return fmt.Errorf("ledger: wal update: %w", err)
	}
	return nil
}

func (w *SQLWAL) Pending() ([]WALEntry, error) {
	rows, err := w.db.Query(`SELECT wal_id, receipt_id, status, receipt_json, timestamp FROM ledger_wal WHERE status = 'pending'`)
	if err != nil {
		return nil, fmt.Errorf("ledger: wal query pending: %w", err)
	}
	defer rows.Close()

	var out []WALEntry
	for rows.Next() {
		var e WALEntry
		var status, receiptJSON string
		var tsMillis int64
		if err := rows.Scan(&e.WALID, &e.ReceiptID, &status, &receiptJSON, &tsMillis); err != nil {
			return nil, fmt.Errorf("ledger: wal scan: %w", err)
		}
		e.Status = WALStatus(status)
		e.Timestamp = time.UnixMilli(tsMillis)
		var partial interface{}
		if err := json.Unmarshal([]byte(receiptJSON), &partial); err == nil {
			e.Receipt = partial
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

var _ WAL = (*SQLWAL)(nil)

// OpenSQLiteWAL opens path with the registered "sqlite" driver, pings it,
// and wraps the connection in a SQLWAL. Callers must still run
// CreateTableSQLite once before use.
func OpenSQLiteWAL(path string) (*SQLWAL, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("ledger: open sqlite wal %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ledger: ping sqlite wal %s: %w", path, err)
	}
	return NewSQLWAL(db, DialectSQLite, nil), nil
}

// OpenPostgresWAL opens dsn with the registered "postgres" driver, pings
// it, and wraps the connection in a SQLWAL. Callers must still run
// CreateTablePostgres once before use.
func OpenPostgresWAL(dsn string) (*SQLWAL, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("ledger: open postgres wal: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ledger: ping postgres wal: %w", err)
	}
	return NewSQLWAL(db, DialectPostgres, nil), nil
}
