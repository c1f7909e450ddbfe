// Package genesis maintains access to the genesis configuration: the
// fixed starting state of the ledger plus the tunable constants that
// govern mining difficulty, block size, and the fast path.
package genesis

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// GenesisAddress receives the initial supply at chain start. It is
// distinct from COINBASE, which receives ongoing mining rewards.
const GenesisAddress = "GENESIS"

// GenesisSupply is the total balance minted to GenesisAddress at
// chain start.
const GenesisSupply = 1000.0

// Profile selects a tuned set of genesis constants.
type Profile string

const (
	// ProfileDefault mirrors the baseline chain parameters.
	ProfileDefault Profile = "default"

	// ProfileImprovedSpeed lowers target block time and raises the
	// instant confirmation ceiling, grounded on the original's
	// ImprovedMiningConfig tuning for faster settlement.
	ProfileImprovedSpeed Profile = "improved-speed"
)

// Genesis represents the starting state and tunable parameters of the
// chain.
type Genesis struct {
	Date              time.Time          `json:"date"`
	ChainID           uint16             `json:"chain_id"`
	Difficulty        uint16             `json:"difficulty"`
	MinDifficulty     uint16             `json:"min_difficulty"`
	MaxDifficulty     uint16             `json:"max_difficulty"`
	TargetBlockTime   time.Duration      `json:"target_block_time"`
	MiningReward      float64            `json:"mining_reward"`
	BaseFee           float64            `json:"base_fee"`
	FeeRate           float64            `json:"fee_rate"`
	InstantLimit      float64            `json:"instant_limit"`
	MaxTransPerBlock  uint16             `json:"max_trans_per_block"`
	MaxBlockSizeBytes uint32             `json:"max_block_size_bytes"`
	Balances          map[string]float64 `json:"balances"`
}

// Default returns the baseline genesis configuration.
func Default() Genesis {
	return Genesis{
		Date:              time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC),
		ChainID:           1,
		Difficulty:        4,
		MinDifficulty:     1,
		MaxDifficulty:     32,
		TargetBlockTime:   10 * time.Second,
		MiningReward:      100,
		BaseFee:           0.01,
		FeeRate:           0.001,
		InstantLimit:      10.0,
		MaxTransPerBlock:  10,
		MaxBlockSizeBytes: 1 << 20,
		Balances: map[string]float64{
			GenesisAddress: GenesisSupply,
		},
	}
}

// ImprovedSpeed returns a genesis configuration tuned for faster block
// times and a wider instant-confirmation ceiling.
func ImprovedSpeed() Genesis {
	g := Default()
	g.TargetBlockTime = 2 * time.Second
	g.InstantLimit = 25.0
	g.MaxTransPerBlock = 50
	return g
}

// ForProfile returns the genesis configuration for the named profile.
func ForProfile(p Profile) (Genesis, error) {
	switch p {
	case "", ProfileDefault:
		return Default(), nil
	case ProfileImprovedSpeed:
		return ImprovedSpeed(), nil
	default:
		return Genesis{}, fmt.Errorf("unknown genesis profile %q", p)
	}
}

// =============================================================================

// Load opens and consumes a genesis file from disk.
func Load(path string) (Genesis, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Genesis{}, err
	}

	var genesis Genesis
	if err := json.Unmarshal(content, &genesis); err != nil {
		return Genesis{}, err
	}

	return genesis, nil
}
