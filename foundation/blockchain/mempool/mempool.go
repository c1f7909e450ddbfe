// Package mempool maintains the pool of pending, not-yet-mined
// transactions.
package mempool

import (
	"errors"
	"sync"

	"github.com/nilotic/blockchain/foundation/blockchain/database"
	"github.com/nilotic/blockchain/foundation/blockchain/mempool/selector"
	"github.com/nilotic/blockchain/foundation/blockchain/signature"
)

// ErrDuplicateTx is returned by Admit when a transaction with the
// same content-hash is already in the pool.
var ErrDuplicateTx = errors.New("transaction already in mempool")

// ErrInsufficientBalance is returned by Admit when the sender's
// current balance cannot cover the transaction amount.
var ErrInsufficientBalance = errors.New("sender balance is insufficient")

// Mempool represents the pending pool of transactions, keyed by
// content-hash, kept in FIFO admission order.
type Mempool struct {
	mu       sync.RWMutex
	order    []string
	pool     map[string]database.BlockTx
	selectFn selector.Func
}

// New constructs a new mempool using the default fee-priority
// selection strategy.
func New() (*Mempool, error) {
	return NewWithStrategy(selector.StrategyFeePriority)
}

// NewWithStrategy constructs a new mempool with the specified
// selection strategy.
func NewWithStrategy(strategy string) (*Mempool, error) {
	selectFn, err := selector.Retrieve(strategy)
	if err != nil {
		return nil, err
	}

	mp := Mempool{
		pool:     make(map[string]database.BlockTx),
		selectFn: selectFn,
	}

	return &mp, nil
}

// Count returns the current number of transactions in the pool.
func (mp *Mempool) Count() int {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	return len(mp.pool)
}

// Admit validates and adds a transaction to the pool. senderBalance
// is the sender's current ledger balance, looked up by the caller
// under the chain lock before calling Admit; it is ignored for
// COINBASE-sourced transactions.
func (mp *Mempool) Admit(tx database.BlockTx, senderBalance float64) error {
	if err := tx.Validate(); err != nil {
		return err
	}

	if tx.FromID != database.AccountID(signature.COINBASE) && senderBalance < tx.Amount {
		return ErrInsufficientBalance
	}

	mp.mu.Lock()
	defer mp.mu.Unlock()

	if _, exists := mp.pool[tx.ContentHash]; exists {
		return ErrDuplicateTx
	}

	mp.pool[tx.ContentHash] = tx
	mp.order = append(mp.order, tx.ContentHash)

	return nil
}

// Contains reports whether a transaction with the given content-hash
// is currently pending.
func (mp *Mempool) Contains(contentHash string) bool {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	_, exists := mp.pool[contentHash]
	return exists
}

// Delete removes a transaction from the pool by content-hash, used
// once a transaction is mined or fast-path applied.
func (mp *Mempool) Delete(contentHash string) {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	mp.deleteLocked(contentHash)
}

func (mp *Mempool) deleteLocked(contentHash string) {
	if _, exists := mp.pool[contentHash]; !exists {
		return
	}

	delete(mp.pool, contentHash)
	for i, h := range mp.order {
		if h == contentHash {
			mp.order = append(mp.order[:i], mp.order[i+1:]...)
			break
		}
	}
}

// Truncate clears every transaction from the pool.
func (mp *Mempool) Truncate() {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	mp.pool = make(map[string]database.BlockTx)
	mp.order = nil
}

// Snapshot returns every pending transaction in FIFO admission
// order, for use in the ledger snapshot and status endpoints.
func (mp *Mempool) Snapshot() []database.BlockTx {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	txs := make([]database.BlockTx, 0, len(mp.order))
	for _, h := range mp.order {
		txs = append(txs, mp.pool[h])
	}

	return txs
}

// PickBest uses the configured selection strategy to return the next
// set of candidate transactions for the next block. Pass -1 to
// retrieve every pending transaction.
func (mp *Mempool) PickBest(howMany int) []database.BlockTx {
	mp.mu.RLock()
	txs := make([]database.BlockTx, 0, len(mp.order))
	for _, h := range mp.order {
		txs = append(txs, mp.pool[h])
	}
	mp.mu.RUnlock()

	return mp.selectFn(txs, howMany)
}

// DeleteAll removes every transaction identified by content-hash,
// used after a block is mined.
func (mp *Mempool) DeleteAll(contentHashes []string) {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	for _, h := range contentHashes {
		mp.deleteLocked(h)
	}
}
