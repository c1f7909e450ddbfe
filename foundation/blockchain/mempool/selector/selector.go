// Package selector provides the transaction selecting algorithm used
// by the Producer to pull candidates out of the mempool.
package selector

import (
	"sort"

	"github.com/nilotic/blockchain/foundation/blockchain/database"
)

// StrategyFeePriority orders by fee descending, then by insertion
// timestamp ascending.
const StrategyFeePriority = "fee-priority"

// Func selects up to howMany transactions from the pool in the
// strategy's priority order. Receiving -1 for howMany returns every
// transaction in that order.
type Func func(transactions []database.BlockTx, howMany int) []database.BlockTx

// Retrieve returns the named select strategy function.
func Retrieve(strategy string) (Func, error) {
	switch strategy {
	case "", StrategyFeePriority:
		return feePrioritySelect, nil
	default:
		return nil, errUnknownStrategy(strategy)
	}
}

type errUnknownStrategy string

func (e errUnknownStrategy) Error() string {
	return "strategy \"" + string(e) + "\" does not exist"
}

// =============================================================================

// feePrioritySelect orders transactions by fee descending, breaking
// ties by insertion time ascending (first-in-first-out), truncating
// to howMany.
func feePrioritySelect(transactions []database.BlockTx, howMany int) []database.BlockTx {
	txs := make([]database.BlockTx, len(transactions))
	copy(txs, transactions)

	sort.SliceStable(txs, func(i, j int) bool {
		if txs[i].Fee != txs[j].Fee {
			return txs[i].Fee > txs[j].Fee
		}
		return txs[i].TimeStamp < txs[j].TimeStamp
	})

	if howMany == -1 || howMany > len(txs) {
		return txs
	}

	return txs[:howMany]
}
