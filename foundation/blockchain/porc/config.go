// Package porc implements the Proof-of-Resource-Contribution engine:
// wallet enrollment, pool rotation, task issuance, signed
// contribution submission, and reward distribution.
package porc

// Config carries the tunable PoRC constants.
type Config struct {
	MinBalance         float64
	MinActivity        uint64
	DailyRewardPool    float64
	BlocksPerDay        uint64
	BondingCurveEarly   float64
	EarlyAdopterLimit   uint64
	MaxRewardPerBlock   float64
	PoolSize            int
	PoolRotationBlocks  uint64
	BurnRate            float64
	ResourcePointMB     float64
	ResourcePointTx     uint64
}

// DefaultConfig returns the reference PoRC configuration values.
func DefaultConfig() Config {
	return Config{
		MinBalance:         5,
		MinActivity:        1,
		DailyRewardPool:    500,
		BlocksPerDay:       36_000,
		BondingCurveEarly:  1.5,
		EarlyAdopterLimit:  1_000,
		MaxRewardPerBlock:  0.5,
		PoolSize:           100,
		PoolRotationBlocks: 10,
		BurnRate:           0.5,
		ResourcePointMB:    1,
		ResourcePointTx:    10,
	}
}

// BlockReward returns the per-block PoRC reward budget,
// DAILY_REWARD_POOL / BLOCKS_PER_DAY, in whole units.
func (c Config) BlockReward() float64 {
	return c.DailyRewardPool / float64(c.BlocksPerDay)
}

// microScale converts whole-unit rewards into the micro-unit integer
// representation PoRC stores wallet rewards in.
const microScale = 1_000_000

func toMicro(units float64) int64 {
	return int64(units * microScale)
}
