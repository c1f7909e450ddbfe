package porc

// Stats carries the engine's running counters.
type Stats struct {
	TotalWallets               uint64  `json:"total_wallets"`
	ActiveWallets               uint64  `json:"active_wallets"`
	TotalResourcePoints         float64 `json:"total_resource_points"`
	TotalRewardsDistributedMicro int64   `json:"total_rewards_distributed_micro"`
	TotalBurnedMicro             int64   `json:"total_burned_micro"`
	CurrentBlockRewardMicro      int64   `json:"current_block_reward_micro"`
	ActivePools                  int     `json:"active_pools"`
	AverageBandwidth             float64 `json:"average_bandwidth"`
	AverageUptime                float64 `json:"average_uptime"`
}
