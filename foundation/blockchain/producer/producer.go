// Package producer implements block assembly, the proof-of-work
// search, the proof-of-stake validation path, and difficulty
// retargeting.
package producer

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"sync"
	"time"

	"github.com/nilotic/blockchain/foundation/blockchain/database"
	"github.com/nilotic/blockchain/foundation/blockchain/fastpath"
	"github.com/nilotic/blockchain/foundation/blockchain/genesis"
	"github.com/nilotic/blockchain/foundation/blockchain/ledger"
)

// ErrNoTransactions is returned when mining is attempted with an
// empty mempool.
var ErrNoTransactions = errors.New("no transactions in mempool")

// halvingInterval is the number of blocks between mining-reward
// halvings.
const halvingInterval = 210_000

// ringBufferCap bounds the mining-time samples used to compute the
// difficulty retarget average.
const ringBufferCap = 100

// EventHandler is notified of mining progress and outcomes.
type EventHandler func(v string, args ...any)

// Producer owns the mutable mining state: current difficulty and the
// ring buffer of recent block mining-time samples.
type Producer struct {
	ledger        *ledger.Ledger
	fastPath      *fastpath.FastPath
	genesis       genesis.Genesis
	ev            EventHandler
	blockMinedHook func(height uint64)

	mu               sync.Mutex
	currentDifficulty uint16
	miningTimes      []time.Duration
	difficultyChanges uint64
}

// OnBlockMined registers a hook invoked after every block (PoW or
// PoS) is successfully appended, used to drive the PoRC engine's
// reward-distribution tick. Must be called before mining starts; it
// is not safe to change concurrently with MineBlock/ValidateBlockPoS.
func (p *Producer) OnBlockMined(hook func(height uint64)) {
	p.blockMinedHook = hook
}

// New constructs a Producer seeded at the genesis target difficulty.
func New(l *ledger.Ledger, fp *fastpath.FastPath, g genesis.Genesis, evHandler EventHandler) *Producer {
	ev := func(v string, args ...any) {
		if evHandler != nil {
			evHandler(v, args...)
		}
	}

	return &Producer{
		ledger:            l,
		fastPath:          fp,
		genesis:           g,
		ev:                ev,
		currentDifficulty: g.Difficulty,
	}
}

// CurrentDifficulty returns the producer's current PoW difficulty.
func (p *Producer) CurrentDifficulty() uint16 {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.currentDifficulty
}

// DifficultyChanges returns the number of times the difficulty has
// actually changed.
func (p *Producer) DifficultyChanges() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.difficultyChanges
}

// CalculateBlockReward returns the mining reward for the block at
// the given index, halving every 210,000 blocks from the configured
// base reward.
func (p *Producer) CalculateBlockReward(index uint64) float64 {
	halvings := index / halvingInterval

	reward := p.genesis.MiningReward
	for i := uint64(0); i < halvings; i++ {
		reward /= 2
	}

	return reward
}

// MineBlock assembles and proof-of-work seals the next block for
// minerAddr.
func (p *Producer) MineBlock(ctx context.Context, minerAddr database.AccountID) (database.Block, error) {
	if p.ledger.Mempool.Count() == 0 {
		return database.Block{}, ErrNoTransactions
	}

	last := p.ledger.LatestBlock()
	reward := p.CalculateBlockReward(last.Header.Number + 1)

	coinbase := database.NewBlockTx(database.SignCoinbase(minerAddr, reward))
	trans := p.assembleTransactions(coinbase)

	difficulty := p.CurrentDifficulty()

	start := time.Now()
	block, err := database.POW(ctx, minerAddr, difficulty, last, trans, p.ev)
	if err != nil {
		return block, err
	}
	elapsed := time.Since(start)

	if err := p.ledger.AppendBlock(block); err != nil {
		return database.Block{}, err
	}

	p.onBlockSealed(block, elapsed)

	return block, nil
}

// ValidateBlockPoS seals and appends the next block via the
// proof-of-stake path: validatorID must currently have positive
// stake, and reward equals miningReward*(stake/1000).
func (p *Producer) ValidateBlockPoS(validatorID database.AccountID, v, r, s *big.Int) (database.Block, error) {
	stake := p.ledger.GetStake(validatorID)
	if stake <= 0 {
		return database.Block{}, errors.New("validate_block_pos: validator has no stake")
	}

	last := p.ledger.LatestBlock()
	reward := p.genesis.MiningReward * (stake / 1000)

	coinbase := database.NewBlockTx(database.SignCoinbase(validatorID, reward))
	trans := p.assembleTransactions(coinbase)

	block, err := database.ValidatePoS(validatorID, last, trans, v, r, s)
	if err != nil {
		return database.Block{}, err
	}

	if err := p.ledger.AppendBlock(block); err != nil {
		return database.Block{}, err
	}

	p.onBlockSealed(block, 0)

	return block, nil
}

// =============================================================================

// assembleTransactions prepends the coinbase transaction, pulls
// candidates from the mempool via the selection contract, applies
// the fast-path filter, and truncates to the block size limit.
func (p *Producer) assembleTransactions(coinbase database.BlockTx) []database.BlockTx {
	candidates := p.ledger.Mempool.PickBest(int(p.genesis.MaxTransPerBlock))

	trans := []database.BlockTx{coinbase}
	var fastConfirmed []string

	sizeBudget := int(p.genesis.MaxBlockSizeBytes) - blockTxSize(coinbase)

	for _, tx := range candidates {
		applied, err := p.fastPath.Apply(p.ledger, tx)
		if err != nil {
			p.ev("producer: assembleTransactions: fast-path error tx[%s]: %s", tx.ContentHash, err)
			continue
		}

		if applied {
			fastConfirmed = append(fastConfirmed, tx.ContentHash)
			continue
		}

		size := blockTxSize(tx)
		if size > sizeBudget {
			continue
		}

		trans = append(trans, tx)
		sizeBudget -= size
	}

	if len(fastConfirmed) > 0 {
		p.ledger.Mempool.DeleteAll(fastConfirmed)
	}

	return trans
}

// onBlockSealed removes mined transactions from the mempool, records
// the mining-time sample, and retargets difficulty.
func (p *Producer) onBlockSealed(block database.Block, elapsed time.Duration) {
	hashes := make([]string, 0, len(block.Trans.Values())-1)
	for _, tx := range block.Trans.Values()[1:] {
		hashes = append(hashes, tx.ContentHash)
	}
	p.ledger.Mempool.DeleteAll(hashes)

	p.ev("producer: onBlockSealed: block-mined: blk[%d]: hash[%s]", block.Header.Number, block.Hash())

	if p.blockMinedHook != nil {
		p.blockMinedHook(block.Header.Number)
	}

	if block.IsPoS() {
		return
	}

	p.recordMiningTime(elapsed)
	p.adjustDifficulty()
}

func (p *Producer) recordMiningTime(elapsed time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.miningTimes = append(p.miningTimes, elapsed)
	if len(p.miningTimes) > ringBufferCap {
		p.miningTimes = p.miningTimes[len(p.miningTimes)-ringBufferCap:]
	}
}

// adjustDifficulty computes the average of the mining-time ring
// buffer and moves the difficulty by at most one step per block.
func (p *Producer) adjustDifficulty() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.miningTimes) == 0 {
		return
	}

	var total time.Duration
	for _, d := range p.miningTimes {
		total += d
	}
	avg := total / time.Duration(len(p.miningTimes))

	target := p.genesis.TargetBlockTime
	before := p.currentDifficulty

	switch {
	case avg < (target*8)/10:
		if p.currentDifficulty < p.genesis.MaxDifficulty {
			p.currentDifficulty++
		}
	case avg > (target*12)/10:
		if p.currentDifficulty > p.genesis.MinDifficulty {
			p.currentDifficulty--
		}
	}

	if p.currentDifficulty != before {
		p.difficultyChanges++
		p.ev("producer: adjustDifficulty: difficulty[%d -> %d] avg[%s] target[%s]", before, p.currentDifficulty, avg, target)
	}
}

// blockTxSize approximates the serialized byte size of a transaction
// for the MAX_BLOCK_SIZE check in the selection contract.
func blockTxSize(tx database.BlockTx) int {
	data, err := json.Marshal(database.NewTxFS(tx.SignedTx))
	if err != nil {
		return 0
	}

	return len(data)
}
