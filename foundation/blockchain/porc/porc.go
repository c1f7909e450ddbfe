// Package porc implements the Proof-of-Resource-Contribution engine:
// wallet enrollment, pool rotation, task issuance, signed
// contribution submission, and per-block reward distribution.
package porc

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/nilotic/blockchain/foundation/blockchain/database"
)

var (
	// ErrNotEligible is returned by Enable when the wallet does not
	// meet the enrollment eligibility bar.
	ErrNotEligible = errors.New("porc: wallet not eligible to enroll")

	// ErrWalletUnknown is returned when an operation names a wallet
	// that was never enrolled.
	ErrWalletUnknown = errors.New("porc: wallet not enrolled")

	// ErrWalletDisabled is returned by SubmitContribution when the
	// wallet is not currently enabled.
	ErrWalletDisabled = errors.New("porc: wallet not enabled")
)

// EventHandler is notified of enrollment, rotation, and reward
// events as the engine runs.
type EventHandler func(v string, args ...any)

// Store is the durable persistence contract the engine writes
// through to as wallets enroll, pools rotate, and contributions
// land, satisfied by leveldb.Store. A nil store disables persistence
// entirely, which is the default and what the test suite uses.
type Store interface {
	SaveWallet(w WalletStatus) error
	SavePool(index int, p Pool) error
	ClearPools() error
	SaveContribution(seq uint64, c Contribution) error
}

// System is the PoRC engine: it owns wallet enrollment state, the
// pool list, the task queue, pending contributions awaiting a
// reward tick, and the running stats counters.
type System struct {
	cfg   Config
	ev    EventHandler
	store Store

	mu              sync.Mutex
	wallets         map[database.AccountID]*WalletStatus
	totalRegistered uint64

	pools []Pool

	taskQueue []Task

	pendingContributions []Contribution
	contributionSeq      uint64

	currentHeight  uint64
	stats          Stats
	bandwidthSum   float64
	uptimeSum      float64
	contributions  uint64
}

// SetStore attaches the durable store the engine writes enrollment,
// pool rotation, and contribution changes through to. Call this
// before restoring persisted state at startup.
func (s *System) SetStore(store Store) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.store = store
}

// New constructs a PoRC engine using cfg, or the reference defaults
// if cfg is the zero value.
func New(cfg Config, evHandler EventHandler) *System {
	if cfg == (Config{}) {
		cfg = DefaultConfig()
	}

	ev := func(v string, args ...any) {
		if evHandler != nil {
			evHandler(v, args...)
		}
	}

	return &System{
		cfg:     cfg,
		ev:      ev,
		wallets: make(map[database.AccountID]*WalletStatus),
	}
}

// Enable enrolls addr, checking the eligibility bar (balance ≥
// MIN_BALANCE, activity ≥ MIN_ACTIVITY) against values the caller
// supplies from the ledger. Re-enabling a previously disabled wallet
// restores its history rather than resetting it.
func (s *System) Enable(addr database.AccountID, bandwidthLimit, balance float64, activityCount uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if w, ok := s.wallets[addr]; ok {
		w.Enabled = true
		w.BandwidthLimitMBPerDay = bandwidthLimit
		w.ReputationScore = reputationScore(balance, activityCount)
		s.saveWalletLocked(*w)
		s.ev("porc: Enable: re-enabled wallet[%s]", addr)
		return nil
	}

	if balance < s.cfg.MinBalance || activityCount < s.cfg.MinActivity {
		return fmt.Errorf("%w: balance[%.8f] activity[%d]", ErrNotEligible, balance, activityCount)
	}

	w := &WalletStatus{
		Address:                addr,
		Enabled:                true,
		BandwidthLimitMBPerDay: bandwidthLimit,
		ReputationScore:        reputationScore(balance, activityCount),
		IsEarlyAdopter:         s.totalRegistered < s.cfg.EarlyAdopterLimit,
		PoolIndex:              int(s.totalRegistered % uint64(s.cfg.PoolSize)),
	}

	s.wallets[addr] = w
	s.totalRegistered++
	s.stats.TotalWallets++
	s.saveWalletLocked(*w)

	s.ev("porc: Enable: enrolled wallet[%s] pool_index[%d] early_adopter[%t]", addr, w.PoolIndex, w.IsEarlyAdopter)

	return nil
}

// reputationScore scores a wallet from its ledger balance and
// activity count, capped at 10000.
func reputationScore(balance float64, activityCount uint64) float64 {
	score := balance*10 + float64(activityCount)*100
	if score > 10000 {
		score = 10000
	}
	return score
}

// Disable clears addr's enabled flag while keeping its history.
func (s *System) Disable(addr database.AccountID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.wallets[addr]
	if !ok {
		return ErrWalletUnknown
	}

	w.Enabled = false
	s.saveWalletLocked(*w)
	s.ev("porc: Disable: disabled wallet[%s]", addr)

	return nil
}

// saveWalletLocked writes w through to the attached store, if any.
// Callers must hold s.mu. Persistence failures are logged, never
// fatal to the in-memory operation.
func (s *System) saveWalletLocked(w WalletStatus) {
	if s.store == nil {
		return
	}
	if err := s.store.SaveWallet(w); err != nil {
		s.ev("porc: saveWalletLocked: wallet[%s]: %v", w.Address, err)
	}
}

// WalletStatus returns a copy of addr's current status.
func (s *System) WalletStatus(addr database.AccountID) (WalletStatus, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.wallets[addr]
	if !ok {
		return WalletStatus{}, false
	}

	return *w, true
}

// AllWallets returns a copy of every enrolled wallet's status, for
// snapshotting to durable storage.
func (s *System) AllWallets() []WalletStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := make([]WalletStatus, 0, len(s.wallets))
	for _, w := range s.wallets {
		all = append(all, *w)
	}

	return all
}

// RestoreWallet installs a previously-persisted wallet status
// directly, without re-checking eligibility; used when rehydrating
// from the PoRC store at startup.
func (s *System) RestoreWallet(w WalletStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := w
	s.wallets[w.Address] = &cp

	if w.Address != "" {
		s.totalRegistered++
	}
}

// RestorePool installs a previously-persisted pool directly.
func (s *System) RestorePool(p Pool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pools = append(s.pools, p)
	s.stats.ActivePools = len(s.pools)
}

// RotatePools discards the current pool list and rebuilds it from
// the ordered set of currently-enabled wallets, chunked into pools
// of at most PoolSize addresses.
func (s *System) RotatePools(currentHeight uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rotatePoolsLocked(currentHeight)
}

func (s *System) rotatePoolsLocked(currentHeight uint64) {
	enabled := make([]database.AccountID, 0, len(s.wallets))
	for addr, w := range s.wallets {
		if w.Enabled {
			enabled = append(enabled, addr)
		}
	}
	sort.Slice(enabled, func(i, j int) bool { return enabled[i] < enabled[j] })

	var pools []Pool
	for i := 0; i < len(enabled); i += s.cfg.PoolSize {
		end := i + s.cfg.PoolSize
		if end > len(enabled) {
			end = len(enabled)
		}

		pools = append(pools, Pool{
			Addresses:  enabled[i:end],
			BlockStart: currentHeight,
			BlockEnd:   currentHeight + s.cfg.PoolRotationBlocks,
			IsActive:   true,
		})
	}

	s.pools = pools
	s.stats.ActivePools = len(pools)
	s.stats.ActiveWallets = uint64(len(enabled))

	if s.store != nil {
		if err := s.store.ClearPools(); err != nil {
			s.ev("porc: rotatePoolsLocked: ClearPools: %v", err)
		}
		for i, p := range pools {
			if err := s.store.SavePool(i, p); err != nil {
				s.ev("porc: rotatePoolsLocked: SavePool[%d]: %v", i, err)
			}
		}
	}

	s.ev("porc: RotatePools: rebuilt %d pool(s) over %d enabled wallet(s) at height[%d]", len(pools), len(enabled), currentHeight)
}

// ActivePools returns a copy of the current pool list.
func (s *System) ActivePools() []Pool {
	s.mu.Lock()
	defer s.mu.Unlock()

	pools := make([]Pool, len(s.pools))
	copy(pools, s.pools)

	return pools
}

// GenerateTasks enqueues a RELAY_TRANSACTIONS and a PROPAGATE_BLOCK
// task for every wallet in every active pool.
func (s *System) GenerateTasks(issuedBlock uint64) []Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	var created []Task

	for _, pool := range s.pools {
		if !pool.IsActive {
			continue
		}

		for _, wallet := range pool.Addresses {
			relay := newRelayTask(wallet, issuedBlock)
			propagate := newPropagateTask(wallet, issuedBlock)

			created = append(created, relay, propagate)
		}
	}

	s.taskQueue = append(s.taskQueue, created...)

	s.ev("porc: GenerateTasks: enqueued %d task(s) at height[%d]", len(created), issuedBlock)

	return created
}

// TasksForWallet returns every currently-queued task assigned to
// addr.
func (s *System) TasksForWallet(addr database.AccountID) []Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	var tasks []Task
	for _, t := range s.taskQueue {
		if t.AssignedWallet == addr {
			tasks = append(tasks, t)
		}
	}

	return tasks
}

// SubmitContribution validates and records a signed contribution
// log.
func (s *System) SubmitContribution(c Contribution) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.wallets[c.Wallet]
	if !ok {
		return ErrWalletUnknown
	}
	if !w.Enabled {
		return ErrWalletDisabled
	}

	if c.TaskID == "" {
		return fmt.Errorf("%w: missing task_id", ErrInvalidContribution)
	}

	if c.BandwidthUsedMB <= 0 && c.TransactionsRelayed == 0 {
		return fmt.Errorf("%w: no measured work", ErrInvalidContribution)
	}

	if !c.verify() {
		return fmt.Errorf("%w: signature does not verify", ErrInvalidContribution)
	}

	s.pendingContributions = append(s.pendingContributions, c)
	w.LastContributionTS = c.TimeStamp
	s.saveWalletLocked(*w)

	s.contributions++
	s.bandwidthSum += c.BandwidthUsedMB
	s.uptimeSum += float64(c.UptimeSeconds)
	s.stats.AverageBandwidth = s.bandwidthSum / float64(s.contributions)
	s.stats.AverageUptime = s.uptimeSum / float64(s.contributions)

	if s.store != nil {
		s.contributionSeq++
		if err := s.store.SaveContribution(s.contributionSeq, c); err != nil {
			s.ev("porc: SubmitContribution: SaveContribution: %v", err)
		}
	}

	s.ev("porc: SubmitContribution: accepted wallet[%s] task[%s]", c.Wallet, c.TaskID)

	return nil
}

// DistributeRewards is the critical per-block tick: it sums resource
// points across pending contributions,
// pays each contributing wallet its proportional, bonding-curve
// adjusted, capped share of the per-block reward budget, and clears
// the pending-contribution list.
func (s *System) DistributeRewards() {
	s.mu.Lock()
	defer s.mu.Unlock()

	blockReward := s.cfg.BlockReward()
	s.stats.CurrentBlockRewardMicro = toMicro(blockReward)

	if len(s.pendingContributions) == 0 {
		return
	}

	walletPoints := make(map[database.AccountID]float64)
	var totalPoints float64

	for _, c := range s.pendingContributions {
		p := c.resourcePoints(s.cfg)
		walletPoints[c.Wallet] += p
		totalPoints += p
	}

	if totalPoints <= 0 {
		s.pendingContributions = nil
		return
	}

	var distributedMicro int64

	for addr, points := range walletPoints {
		w, ok := s.wallets[addr]
		if !ok {
			continue
		}

		proportional := (points / totalPoints) * blockReward

		multiplier := 1.0
		if w.IsEarlyAdopter {
			multiplier = s.cfg.BondingCurveEarly
		}

		reward := proportional * multiplier
		if reward > s.cfg.MaxRewardPerBlock {
			reward = s.cfg.MaxRewardPerBlock
		}

		rewardMicro := toMicro(reward)

		w.TotalRewardsMicro += rewardMicro
		w.TotalResourcePoints += points
		s.saveWalletLocked(*w)

		distributedMicro += rewardMicro
	}

	s.stats.TotalResourcePoints += totalPoints
	s.stats.TotalRewardsDistributedMicro += toMicro(blockReward)

	s.pendingContributions = nil

	s.ev("porc: DistributeRewards: paid %d wallet(s) %d micro-units total", len(walletPoints), distributedMicro)
}

// BurnFees adds BURN_RATE of collectedFees to the cumulative burned
// total; the remainder is left for the caller to pay to the block
// producer.
func (s *System) BurnFees(collectedFees float64) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	burned := s.cfg.BurnRate * collectedFees
	s.stats.TotalBurnedMicro += toMicro(burned)

	return collectedFees - burned
}

// Stats returns a copy of the running counters.
func (s *System) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.stats
}

// TopContributors returns up to limit wallets ordered by total
// rewards descending.
func (s *System) TopContributors(limit int) []WalletStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := make([]WalletStatus, 0, len(s.wallets))
	for _, w := range s.wallets {
		all = append(all, *w)
	}

	sort.Slice(all, func(i, j int) bool { return all[i].TotalRewardsMicro > all[j].TotalRewardsMicro })

	if limit >= 0 && limit < len(all) {
		all = all[:limit]
	}

	return all
}

// OnBlockMined is the hook Producer invokes after every sealed
// block: it advances the engine's notion of chain height, runs the
// reward-distribution tick, and rotates pools and regenerates tasks
// every POOL_ROTATION_BLOCKS blocks.
func (s *System) OnBlockMined(height uint64) {
	s.mu.Lock()
	s.currentHeight = height
	rotate := s.cfg.PoolRotationBlocks > 0 && height%s.cfg.PoolRotationBlocks == 0
	s.mu.Unlock()

	s.DistributeRewards()

	if rotate {
		s.RotatePools(height)
		s.GenerateTasks(height)
	}
}
