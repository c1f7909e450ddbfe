// Package storage persists a Ledger to a single pretty-printed JSON
// file and restores one back.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/nilotic/blockchain/foundation/blockchain/database"
	"github.com/nilotic/blockchain/foundation/blockchain/ledger"
)

// ErrSnapshotCorrupt is returned by Load when a stored block's hash
// does not match its recomputed hash, or its previous_hash does not
// match the prior block's hash.
var ErrSnapshotCorrupt = errors.New("storage: snapshot corrupt")

// Snapshot is the on-disk representation of a ledger.
type Snapshot struct {
	Blocks              []database.BlockFS              `json:"blocks"`
	Balances            map[database.AccountID]float64  `json:"balances"`
	PendingTransactions []database.TxFS                 `json:"pendingTransactions"`
	Validators          map[database.AccountID]float64  `json:"validators"`
	Difficulty          uint16                           `json:"difficulty"`
	MiningReward        float64                          `json:"miningReward"`
}

// SnapshotTo writes l's current state to path as pretty-printed
// JSON. difficulty and miningReward are supplied by the caller (the
// Producer) since the Ledger does not itself own mining parameters.
func SnapshotTo(l *ledger.Ledger, path string, difficulty uint16, miningReward float64) error {
	chain := l.CopyChain()

	blocks := make([]database.BlockFS, len(chain))
	for i, b := range chain {
		blocks[i] = database.NewBlockFS(b)
	}

	pending := l.Mempool.Snapshot()
	pendingFS := make([]database.TxFS, len(pending))
	for i, tx := range pending {
		pendingFS[i] = database.NewTxFS(tx.SignedTx)
	}

	validators := make(map[database.AccountID]float64)
	for addr, stake := range l.CopyStakes() {
		if stake > 0 {
			validators[addr] = stake
		}
	}

	snap := Snapshot{
		Blocks:              blocks,
		Balances:            l.CopyBalances(),
		PendingTransactions: pendingFS,
		Validators:          validators,
		Difficulty:          difficulty,
		MiningReward:        miningReward,
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("storage: marshal snapshot: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("storage: write snapshot: %w", err)
	}

	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("storage: install snapshot: %w", err)
	}

	return nil
}

// Load reads a snapshot from path, decoding every block and
// validating that its stored hash matches its recomputed hash and
// that the chain linkage is intact.
func Load(path string) (Snapshot, []database.Block, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Snapshot{}, nil, fmt.Errorf("storage: read snapshot: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, nil, fmt.Errorf("storage: unmarshal snapshot: %w", err)
	}

	blocks := make([]database.Block, len(snap.Blocks))
	for i, bfs := range snap.Blocks {
		block, err := database.ToBlock(bfs)
		if err != nil {
			return Snapshot{}, nil, fmt.Errorf("storage: decode block %d: %w", i, err)
		}

		if block.Hash() != bfs.Hash {
			return Snapshot{}, nil, fmt.Errorf("%w: block %d stored hash does not match recomputed hash", ErrSnapshotCorrupt, bfs.Index)
		}

		if i > 0 && bfs.PreviousHash != blocks[i-1].Hash() {
			return Snapshot{}, nil, fmt.Errorf("%w: block %d previous_hash does not match block %d's hash", ErrSnapshotCorrupt, bfs.Index, i-1)
		}

		blocks[i] = block
	}

	return snap, blocks, nil
}
