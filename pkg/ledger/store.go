package ledger

import "fmt"

// AppendWithWAL wraps Append with the write-ahead-log lifecycle: the
// receipt is first persisted pending, then committed after a successful
// sign, or rolled back if sealing fails (spec §4.7). On failure the
// caller's receipt is not emitted — matching §5's "a tool dispatch that
// fails ... the WAL entry is rolled back so the receipt is not emitted".
func AppendWithWAL(wal WAL, opts AppendOptions) (*Receipt, error) {
	walID, err := wal.Begin(opts.SessionID, opts)
	if err != nil {
		return nil, fmt.Errorf("ledger: wal begin: %w", err)
	}

	receipt, err := Append(opts)
	if err != nil {
		_ = wal.RollBack(walID)
		return nil, err
	}

	if err := wal.Commit(walID); err != nil {
		return nil, fmt.Errorf("ledger: wal commit: %w", err)
	}
	return receipt, nil
}
