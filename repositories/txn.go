package repositories

import (
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// Badger detects read-write conflicts at commit time. Two concurrent
// read-modify-write transactions on the same key make one of them fail
// with ErrConflict, so the losing side is replayed a bounded number of
// times instead of losing its update. The linear backoff spreads the
// replays out when many writers hit the same key.
const (
	maxTxnRetries   = 10
	txnRetryBackoff = time.Millisecond
)

func updateWithRetry(db *badger.DB, fn func(txn *badger.Txn) error) error {
	var err error
	for i := 0; i < maxTxnRetries; i++ {
		err = db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
		time.Sleep(time.Duration(i+1) * txnRetryBackoff)
	}
	return err
}
