// Package fastpath implements instant confirmation for low-value
// transfers. It trades merkle-anchored durability for lower perceived
// latency on small transactions.
package fastpath

import (
	"github.com/nilotic/blockchain/foundation/blockchain/database"
	"github.com/nilotic/blockchain/foundation/blockchain/signature"
)

// Ledger is the subset of the ledger the fast path needs: atomic
// balance lookup/apply under the chain lock.
type Ledger interface {
	Lock()
	Unlock()
	GetBalanceLocked(addr database.AccountID) float64
	ApplyTransaction(tx database.BlockTx) error
}

// EventHandler is notified with a "fast-confirmed" event carrying the
// transaction's content-hash whenever a transfer is applied
// instantly.
type EventHandler func(v string, args ...any)

// FastPath evaluates and applies transactions that qualify for
// instant confirmation.
type FastPath struct {
	instantLimit float64
	evHandler    EventHandler
}

// New constructs a FastPath bounded by instantLimit, the maximum
// amount eligible for instant confirmation (default 10.0).
func New(instantLimit float64, evHandler EventHandler) *FastPath {
	ev := func(v string, args ...any) {
		if evHandler != nil {
			evHandler(v, args...)
		}
	}

	return &FastPath{instantLimit: instantLimit, evHandler: ev}
}

// Qualifies reports whether tx meets the fast-path contract: amount
// at or below the instant limit, sender is not COINBASE, the offline
// flag is false, and balance is checked separately by Apply under
// the chain lock.
func (fp *FastPath) Qualifies(tx database.BlockTx) bool {
	return tx.Amount <= fp.instantLimit &&
		tx.FromID != database.AccountID(signature.COINBASE) &&
		!tx.Offline
}

// Apply performs the debit+credit atomically under the ledger's
// chain lock and emits a "fast-confirmed" event carrying the
// transaction's content-hash. It reports whether the
// transaction was applied; a false result with a nil error means the
// transaction did not qualify or the sender's balance was
// insufficient — the caller should fall back to including it in a
// block.
func (fp *FastPath) Apply(l Ledger, tx database.BlockTx) (bool, error) {
	if !fp.Qualifies(tx) {
		return false, nil
	}

	l.Lock()
	defer l.Unlock()

	if l.GetBalanceLocked(tx.FromID) < tx.Amount {
		return false, nil
	}

	if err := l.ApplyTransaction(tx); err != nil {
		return false, err
	}

	fp.evHandler("fastpath: fast-confirmed: tx[%s] from[%s] to[%s] amount[%.8f]", tx.ContentHash, tx.FromID, tx.ToID, tx.Amount)

	return true, nil
}
