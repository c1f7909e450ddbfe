package porc

import (
	"github.com/nilotic/blockchain/foundation/blockchain/database"
)

// WalletStatus is the enrollment and contribution record for a
// single address.
type WalletStatus struct {
	Address                database.AccountID `json:"address"`
	Enabled                bool               `json:"enabled"`
	BandwidthLimitMBPerDay float64            `json:"bandwidth_limit_mb_per_day"`
	TotalResourcePoints    float64            `json:"total_resource_points"`
	TotalRewardsMicro      int64              `json:"total_rewards_micro"`
	LastContributionTS     int64              `json:"last_contribution_ts"`
	ReputationScore        float64            `json:"reputation_score"`
	IsEarlyAdopter         bool               `json:"is_early_adopter"`
	PoolIndex              int                `json:"pool_index"`
}
