// Package node wires the Ledger, Mempool, FastPath, Producer, PoRC
// System, Odero Registry and Supervisor into a single owned value,
// constructed by main and passed explicitly to every subsystem and
// HTTP handler rather than scattered global state.
package node

import (
	"fmt"

	"github.com/nilotic/blockchain/foundation/blockchain/database"
	"github.com/nilotic/blockchain/foundation/blockchain/fastpath"
	"github.com/nilotic/blockchain/foundation/blockchain/genesis"
	"github.com/nilotic/blockchain/foundation/blockchain/ledger"
	"github.com/nilotic/blockchain/foundation/blockchain/mempool"
	"github.com/nilotic/blockchain/foundation/blockchain/odero"
	"github.com/nilotic/blockchain/foundation/blockchain/porc"
	"github.com/nilotic/blockchain/foundation/blockchain/producer"
	"github.com/nilotic/blockchain/foundation/blockchain/storage"
	"github.com/nilotic/blockchain/foundation/blockchain/storage/leveldb"
	"github.com/nilotic/blockchain/foundation/blockchain/supervisor"
)

// EventHandler is notified of events from every subsystem the Node
// wires together.
type EventHandler func(v string, args ...any)

// Config carries everything needed to construct a Node.
type Config struct {
	Genesis genesis.Genesis
	PoRC    porc.Config

	// SnapshotPath is where the ledger is persisted and, if present
	// at startup, restored from. Empty disables snapshotting.
	SnapshotPath string

	// PoRCStoreDir is the directory backing the PoRC leveldb store.
	// Empty disables PoRC persistence.
	PoRCStoreDir string

	EventHandler EventHandler
}

// Node bundles every constructed subsystem a running chain needs.
type Node struct {
	Genesis    genesis.Genesis
	Ledger     *ledger.Ledger
	Mempool    *mempool.Mempool
	FastPath   *fastpath.FastPath
	Producer   *producer.Producer
	PoRC       *porc.System
	Odero      *odero.Registry
	Supervisor *supervisor.Supervisor

	porcStore    *leveldb.Store
	snapshotPath string
}

// New constructs every subsystem, restoring from a snapshot and the
// PoRC store on disk if they exist, otherwise building a fresh
// genesis chain.
func New(cfg Config) (*Node, error) {
	ev := func(v string, args ...any) {
		if cfg.EventHandler != nil {
			cfg.EventHandler(v, args...)
		}
	}

	mp, err := mempool.New()
	if err != nil {
		return nil, fmt.Errorf("node: construct mempool: %w", err)
	}

	l := ledger.New(cfg.Genesis, mp, ledger.EventHandler(ev))

	restored := false
	if cfg.SnapshotPath != "" {
		if snap, blocks, err := storage.Load(cfg.SnapshotPath); err == nil {
			stakes := make(map[database.AccountID]float64, len(snap.Validators))
			for addr, stake := range snap.Validators {
				stakes[addr] = stake
			}

			if err := l.RestoreChain(blocks, snap.Balances, stakes); err != nil {
				return nil, fmt.Errorf("node: restore snapshot: %w", err)
			}

			for _, txFS := range snap.PendingTransactions {
				signedTx := database.ToSignedTx(txFS)
				blockTx := database.NewBlockTx(signedTx)
				if err := mp.Admit(blockTx, l.GetBalance(signedTx.FromID)); err != nil {
					ev("node: New: dropped pending transaction[%s] on restore: %s", signedTx.ContentHash, err)
				}
			}

			restored = true
			ev("node: New: restored chain from snapshot[%s] height[%d] pending[%d]", cfg.SnapshotPath, len(blocks), len(snap.PendingTransactions))
		}
	}

	if !restored {
		if err := l.Genesis(); err != nil {
			return nil, fmt.Errorf("node: build genesis: %w", err)
		}
	}

	fp := fastpath.New(cfg.Genesis.InstantLimit, fastpath.EventHandler(ev))
	p := producer.New(l, fp, cfg.Genesis, producer.EventHandler(ev))
	ps := porc.New(cfg.PoRC, porc.EventHandler(ev))
	reg := odero.New(l)

	n := &Node{
		Genesis:      cfg.Genesis,
		Ledger:       l,
		Mempool:      mp,
		FastPath:     fp,
		Producer:     p,
		PoRC:         ps,
		Odero:        reg,
		snapshotPath: cfg.SnapshotPath,
	}

	if cfg.PoRCStoreDir != "" {
		store, err := leveldb.Open(cfg.PoRCStoreDir)
		if err != nil {
			return nil, fmt.Errorf("node: open porc store: %w", err)
		}

		ps.SetStore(store)
		n.porcStore = store

		if err := restorePoRC(ps, store); err != nil {
			return nil, fmt.Errorf("node: restore porc store: %w", err)
		}

		ev("node: New: attached porc store[%s]", cfg.PoRCStoreDir)
	}

	n.Supervisor = supervisor.New(l, p, ps, cfg.Genesis, cfg.SnapshotPath, supervisor.EventHandler(ev))

	return n, nil
}

// restorePoRC hydrates a freshly constructed PoRC System from a
// leveldb store's persisted wallets and pools at startup.
func restorePoRC(ps *porc.System, store *leveldb.Store) error {
	wallets, err := store.LoadWallets()
	if err != nil {
		return fmt.Errorf("load wallets: %w", err)
	}
	for _, w := range wallets {
		ps.RestoreWallet(w)
	}

	pools, err := store.LoadPools()
	if err != nil {
		return fmt.Errorf("load pools: %w", err)
	}
	for _, p := range pools {
		ps.RestorePool(p)
	}

	return nil
}

// Start launches the Supervisor's background loops. Callers should
// start the HTTP adapter only after this returns.
func (n *Node) Start() {
	n.Supervisor.Start()
}

// Shutdown stops the Supervisor's background loops, takes a final
// snapshot, and closes the PoRC store. It does not stop the HTTP
// adapter; that is left to the caller.
func (n *Node) Shutdown() error {
	n.Supervisor.Shutdown()

	if n.porcStore != nil {
		return n.porcStore.Close()
	}

	return nil
}
