package approval

import (
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLNonceDB_IsSpent(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT COUNT\(1\) FROM approval_nonces WHERE nonce = \$1`).
		WithArgs("nonce-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	s := NewSQLNonceDB(db, DialectPostgres)
	spent, err := s.IsSpent("nonce-1")
	require.NoError(t, err)
	assert.True(t, spent)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLNonceDB_Spend_FirstUseSucceeds(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Unix(1_700_000_200, 0).UTC()
	mock.ExpectExec(`INSERT INTO approval_nonces \(nonce, session_id, spent_at\) VALUES \(\?, \?, \?\) ON CONFLICT \(nonce\) DO NOTHING`).
		WithArgs("nonce-1", "session-1", now.UnixMilli()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	s := NewSQLNonceDB(db, DialectSQLite)
	require.NoError(t, s.Spend("nonce-1", "session-1", now))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLNonceDB_Spend_ReplayReturnsErrReplay(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Unix(1_700_000_300, 0).UTC()
	mock.ExpectExec(`INSERT INTO approval_nonces \(nonce, session_id, spent_at\) VALUES \(\?, \?, \?\) ON CONFLICT \(nonce\) DO NOTHING`).
		WithArgs("nonce-1", "session-2", now.UnixMilli()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	s := NewSQLNonceDB(db, DialectSQLite)
	err = s.Spend("nonce-1", "session-2", now)
	assert.ErrorIs(t, err, ErrReplay)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLNonceDB_GC_DeletesBeforeCutoff(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Unix(1_700_001_000, 0).UTC()
	retention := 24 * time.Hour
	cutoff := now.Add(-retention).UnixMilli()

	mock.ExpectExec(`DELETE FROM approval_nonces WHERE spent_at < \$1`).
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 3))

	s := NewSQLNonceDB(db, DialectPostgres)
	require.NoError(t, s.GC(now, retention))
	assert.NoError(t, mock.ExpectationsWereMet())
}
