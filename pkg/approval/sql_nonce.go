package approval

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"  // Postgres driver, registered as "postgres"
	_ "modernc.org/sqlite" // SQLite driver, registered as "sqlite"
)

// Dialect selects the placeholder style for the driver behind a
// SQLNonceDB; both dialects use the same ON CONFLICT clause.
type Dialect int

const (
	// DialectSQLite targets modernc.org/sqlite ("?" placeholders).
	DialectSQLite Dialect = iota
	// DialectPostgres targets lib/pq ("$n" placeholders).
	DialectPostgres
)

// SQLNonceDB is a durable NonceDB backed by database/sql. The table must
// already exist; see CreateTableSQLite / CreateTablePostgres for the
// expected schema.
type SQLNonceDB struct {
	db      *sql.DB
	dialect Dialect
}

// NewSQLNonceDB wraps an existing *sql.DB. Callers are responsible for
// having run the appropriate CreateTable* statement once.
func NewSQLNonceDB(db *sql.DB, dialect Dialect) *SQLNonceDB {
	return &SQLNonceDB{db: db, dialect: dialect}
}

// CreateTableSQLite is the DDL for a modernc.org/sqlite-backed nonce store.
const CreateTableSQLite = `
CREATE TABLE IF NOT EXISTS approval_nonces (
	nonce TEXT PRIMARY KEY,
	session_id TEXT NOT NULL,
	spent_at INTEGER NOT NULL
)`

// CreateTablePostgres is the DDL for a lib/pq-backed nonce store.
const CreateTablePostgres = `
CREATE TABLE IF NOT EXISTS approval_nonces (
	nonce TEXT PRIMARY KEY,
	session_id TEXT NOT NULL,
	spent_at BIGINT NOT NULL
)`

func (s *SQLNonceDB) IsSpent(nonce string) (bool, error) {
	query := "SELECT COUNT(1) FROM approval_nonces WHERE nonce = " + s.placeholder(1)
	var count int
	if err := s.db.QueryRow(query, nonce).Scan(&count); err != nil {
		return false, fmt.Errorf("approval: nonce lookup: %w", err)
	}
	return count > 0, nil
}

func (s *SQLNonceDB) Spend(nonce, sessionID string, now time.Time) error {
	query := fmt.Sprintf(
		"INSERT INTO approval_nonces (nonce, session_id, spent_at) VALUES (%s, %s, %s) ON CONFLICT (nonce) DO NOTHING",
		s.placeholder(1), s.placeholder(2), s.placeholder(3),
	)
	res, err := s.db.Exec(query, nonce, sessionID, now.UnixMilli())
	if err != nil {
		return fmt.Errorf("approval: nonce insert: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("approval: nonce insert result: %w", err)
	}
	if affected == 0 {
		return ErrReplay
	}
	return nil
}

func (s *SQLNonceDB) GC(now time.Time, retention time.Duration) error {
	query := "DELETE FROM approval_nonces WHERE spent_at < " + s.placeholder(1)
	cutoff := now.Add(-retention).UnixMilli()
	if _, err := s.db.Exec(query, cutoff); err != nil {
		return fmt.Errorf("approval: nonce gc: %w", err)
	}
	return nil
}

func (s *SQLNonceDB) placeholder(n int) string {
	if s.dialect == DialectPostgres {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

var _ NonceDB = (*SQLNonceDB)(nil)

// OpenSQLiteNonceDB opens path with the registered "sqlite" driver, pings
// it, and wraps the connection in a SQLNonceDB. Callers must still run
// CreateTableSQLite once before use.
func OpenSQLiteNonceDB(path string) (*SQLNonceDB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("approval: open sqlite nonce db %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("approval: ping sqlite nonce db %s: %w", path, err)
	}
	return NewSQLNonceDB(db, DialectSQLite), nil
}

// OpenPostgresNonceDB opens dsn with the registered "postgres" driver,
// pings it, and wraps the connection in a SQLNonceDB. Callers must still
// run CreateTablePostgres once before use.
func OpenPostgresNonceDB(dsn string) (*SQLNonceDB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("approval: open postgres nonce db: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("approval: ping postgres nonce db: %w", err)
	}
	return NewSQLNonceDB(db, DialectPostgres), nil
}
