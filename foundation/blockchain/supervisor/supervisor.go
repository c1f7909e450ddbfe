// Package supervisor owns process lifecycle: startup ordering,
// periodic maintenance loops, and graceful shutdown.
package supervisor

import (
	"context"
	"sync"
	"time"

	"github.com/nilotic/blockchain/foundation/blockchain/database"
	"github.com/nilotic/blockchain/foundation/blockchain/genesis"
	"github.com/nilotic/blockchain/foundation/blockchain/ledger"
	"github.com/nilotic/blockchain/foundation/blockchain/porc"
	"github.com/nilotic/blockchain/foundation/blockchain/producer"
	"github.com/nilotic/blockchain/foundation/blockchain/storage"
)

// taskAssignmentInterval, rewardDistributionInterval, and
// poolRotationInterval are the PoRC worker loop periods.
const (
	taskAssignmentInterval     = 5 * time.Second
	rewardDistributionInterval = 30 * time.Second
	poolRotationInterval       = 24 * time.Second
	snapshotInterval           = 60 * time.Second
)

// EventHandler is notified of lifecycle events as the supervisor
// starts loops, snapshots state, and shuts down.
type EventHandler func(v string, args ...any)

// Supervisor runs the background loops around an already-constructed
// Ledger, Producer, and PoRC System. It does not construct those
// components or start and stop the HTTP adapter; the caller does both
// around Start/Shutdown.
type Supervisor struct {
	ledger   *ledger.Ledger
	producer *producer.Producer
	porc     *porc.System
	genesis  genesis.Genesis
	ev       EventHandler

	snapshotPath string

	wg   sync.WaitGroup
	shut chan struct{}
}

// New wires a Supervisor around already-constructed components.
// Callers must have already called ledger.Genesis or
// ledger.RestoreChain before passing l in.
func New(l *ledger.Ledger, p *producer.Producer, ps *porc.System, g genesis.Genesis, snapshotPath string, evHandler EventHandler) *Supervisor {
	ev := func(v string, args ...any) {
		if evHandler != nil {
			evHandler(v, args...)
		}
	}

	s := &Supervisor{
		ledger:       l,
		producer:     p,
		porc:         ps,
		genesis:      g,
		ev:           ev,
		snapshotPath: snapshotPath,
		shut:         make(chan struct{}),
	}

	p.OnBlockMined(func(height uint64) {
		s.porc.OnBlockMined(height)
	})

	return s
}

// Start launches the PoRC worker loops and the periodic snapshot
// loop. The HTTP adapter is started and stopped by the caller around
// Start/Shutdown.
func (s *Supervisor) Start() {
	loops := []func(){
		s.taskAssignmentLoop,
		s.rewardDistributionLoop,
		s.poolRotationLoop,
		s.snapshotLoop,
	}

	s.wg.Add(len(loops))

	started := make(chan struct{})
	for _, loop := range loops {
		go func(loop func()) {
			defer s.wg.Done()
			started <- struct{}{}
			loop()
		}(loop)
	}

	for range loops {
		<-started
	}

	s.ev("supervisor: Start: all loops running")
}

// Shutdown sets the shutdown flag, stops every background loop, and
// takes a final snapshot. Snapshot failure is logged but does not
// abort shutdown.
func (s *Supervisor) Shutdown() {
	s.ev("supervisor: Shutdown: started")
	defer s.ev("supervisor: Shutdown: completed")

	close(s.shut)
	s.wg.Wait()

	if err := s.snapshot(); err != nil {
		s.ev("supervisor: Shutdown: final snapshot: ERROR: %s", err)
	}
}

// MineOnce runs a single mine_block attempt for minerAddr. The POST
// /mine handler does not go through it; it calls Producer.MineBlock
// directly.
func (s *Supervisor) MineOnce(ctx context.Context, minerAddr database.AccountID) error {
	_, err := s.producer.MineBlock(ctx, minerAddr)
	return err
}

// =============================================================================

func (s *Supervisor) taskAssignmentLoop() {
	s.ev("supervisor: taskAssignmentLoop: started")
	defer s.ev("supervisor: taskAssignmentLoop: completed")

	ticker := time.NewTicker(taskAssignmentInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.porc.GenerateTasks(s.ledger.ChainHeight())
		case <-s.shut:
			return
		}
	}
}

func (s *Supervisor) rewardDistributionLoop() {
	s.ev("supervisor: rewardDistributionLoop: started")
	defer s.ev("supervisor: rewardDistributionLoop: completed")

	ticker := time.NewTicker(rewardDistributionInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.porc.DistributeRewards()
		case <-s.shut:
			return
		}
	}
}

func (s *Supervisor) poolRotationLoop() {
	s.ev("supervisor: poolRotationLoop: started")
	defer s.ev("supervisor: poolRotationLoop: completed")

	ticker := time.NewTicker(poolRotationInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.porc.RotatePools(s.ledger.ChainHeight())
		case <-s.shut:
			return
		}
	}
}

func (s *Supervisor) snapshotLoop() {
	s.ev("supervisor: snapshotLoop: started")
	defer s.ev("supervisor: snapshotLoop: completed")

	ticker := time.NewTicker(snapshotInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.snapshot(); err != nil {
				s.ev("supervisor: snapshotLoop: ERROR: %s", err)
			}
		case <-s.shut:
			return
		}
	}
}

func (s *Supervisor) snapshot() error {
	if s.snapshotPath == "" {
		return nil
	}

	return storage.SnapshotTo(s.ledger, s.snapshotPath, s.producer.CurrentDifficulty(), s.genesis.MiningReward)
}
