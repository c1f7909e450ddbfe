package porc

import (
	"fmt"
	"sync/atomic"

	"github.com/nilotic/blockchain/foundation/blockchain/database"
)

// TaskType enumerates the kinds of resource-contribution work the
// engine assigns to enrolled wallets.
type TaskType int

const (
	TaskRelayTransactions TaskType = iota
	TaskPropagateBlock
	TaskCacheData
	TaskVerifyPeers
)

func (t TaskType) String() string {
	switch t {
	case TaskRelayTransactions:
		return "RELAY_TRANSACTIONS"
	case TaskPropagateBlock:
		return "PROPAGATE_BLOCK"
	case TaskCacheData:
		return "CACHE_DATA"
	case TaskVerifyPeers:
		return "VERIFY_PEERS"
	default:
		return "UNKNOWN"
	}
}

// Task is a single unit of resource-contribution work issued to a
// wallet, mirroring PoRCTask.
type Task struct {
	TaskID               string             `json:"task_id"`
	Type                 TaskType           `json:"type"`
	AssignedWallet       database.AccountID `json:"assigned_wallet"`
	IssuedBlock          uint64             `json:"issued_block"`
	EstimatedBandwidthMB float64            `json:"estimated_bandwidth_mb"`
	EstimatedTx          uint64             `json:"estimated_tx"`
}

var taskSeq uint64

// nextTaskID produces a stable, monotonically increasing task
// identifier; the counter is process-local since task IDs are never
// persisted across restarts of the reference implementation either.
func nextTaskID(wallet database.AccountID, t TaskType) string {
	n := atomic.AddUint64(&taskSeq, 1)

	suffix := string(wallet)
	if len(suffix) > 4 {
		suffix = suffix[len(suffix)-4:]
	}

	return fmt.Sprintf("task-%s-%d-%s", t, n, suffix)
}

func newRelayTask(wallet database.AccountID, issuedBlock uint64) Task {
	return Task{
		TaskID:               nextTaskID(wallet, TaskRelayTransactions),
		Type:                 TaskRelayTransactions,
		AssignedWallet:       wallet,
		IssuedBlock:          issuedBlock,
		EstimatedBandwidthMB: 10,
		EstimatedTx:          50,
	}
}

func newPropagateTask(wallet database.AccountID, issuedBlock uint64) Task {
	return Task{
		TaskID:               nextTaskID(wallet, TaskPropagateBlock),
		Type:                 TaskPropagateBlock,
		AssignedWallet:       wallet,
		IssuedBlock:          issuedBlock,
		EstimatedBandwidthMB: 5,
	}
}
