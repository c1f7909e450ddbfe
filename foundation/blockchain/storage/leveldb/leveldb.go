// Package leveldb persists PoRC wallet status, pools, and
// contribution logs in a goleveldb key-value store.
package leveldb

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/nilotic/blockchain/foundation/blockchain/porc"
)

const (
	walletPrefix       = "wallet:"
	poolPrefix         = "pool:"
	contributionPrefix = "contribution:"
)

// Store wraps a goleveldb database with the PoRC key layout:
// wallet:<address>, pool:<index zero-padded to 10 digits>,
// contribution:<taskID>:<seq>.
type Store struct {
	db *leveldb.DB
}

// Open opens (creating if absent) the leveldb database at dir.
func Open(dir string) (*Store, error) {
	db, err := leveldb.OpenFile(dir, nil)
	if err != nil {
		return nil, fmt.Errorf("leveldb: open %s: %w", dir, err)
	}

	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveWallet persists a single wallet's status.
func (s *Store) SaveWallet(w porc.WalletStatus) error {
	data, err := json.Marshal(w)
	if err != nil {
		return fmt.Errorf("leveldb: marshal wallet: %w", err)
	}

	return s.db.Put([]byte(walletPrefix+string(w.Address)), data, nil)
}

// LoadWallets reads every persisted wallet status.
func (s *Store) LoadWallets() ([]porc.WalletStatus, error) {
	var wallets []porc.WalletStatus

	iter := s.db.NewIterator(util.BytesPrefix([]byte(walletPrefix)), nil)
	defer iter.Release()

	for iter.Next() {
		var w porc.WalletStatus
		if err := json.Unmarshal(iter.Value(), &w); err != nil {
			return nil, fmt.Errorf("leveldb: unmarshal wallet: %w", err)
		}
		wallets = append(wallets, w)
	}

	return wallets, iter.Error()
}

// SavePool persists a single pool at its slot index.
func (s *Store) SavePool(index int, p porc.Pool) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("leveldb: marshal pool: %w", err)
	}

	key := fmt.Sprintf("%s%010d", poolPrefix, index)
	return s.db.Put([]byte(key), data, nil)
}

// LoadPools reads every persisted pool, ordered by slot index.
func (s *Store) LoadPools() ([]porc.Pool, error) {
	var pools []porc.Pool

	iter := s.db.NewIterator(util.BytesPrefix([]byte(poolPrefix)), nil)
	defer iter.Release()

	for iter.Next() {
		var p porc.Pool
		if err := json.Unmarshal(iter.Value(), &p); err != nil {
			return nil, fmt.Errorf("leveldb: unmarshal pool: %w", err)
		}
		pools = append(pools, p)
	}

	return pools, iter.Error()
}

// ClearPools removes every persisted pool, ahead of writing a fresh
// rotation.
func (s *Store) ClearPools() error {
	iter := s.db.NewIterator(util.BytesPrefix([]byte(poolPrefix)), nil)
	defer iter.Release()

	batch := new(leveldb.Batch)
	for iter.Next() {
		batch.Delete(append([]byte{}, iter.Key()...))
	}
	if err := iter.Error(); err != nil {
		return err
	}

	return s.db.Write(batch, nil)
}

// SaveContribution appends a signed contribution log keyed by its
// task id and submission sequence, so multiple wallets contributing
// to the same task never collide.
func (s *Store) SaveContribution(seq uint64, c porc.Contribution) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("leveldb: marshal contribution: %w", err)
	}

	key := contributionPrefix + c.TaskID + ":" + strconv.FormatUint(seq, 10)
	return s.db.Put([]byte(key), data, nil)
}

// LoadContributions reads every persisted contribution.
func (s *Store) LoadContributions() ([]porc.Contribution, error) {
	var contributions []porc.Contribution

	iter := s.db.NewIterator(util.BytesPrefix([]byte(contributionPrefix)), nil)
	defer iter.Release()

	for iter.Next() {
		var c porc.Contribution
		if err := json.Unmarshal(iter.Value(), &c); err != nil {
			return nil, fmt.Errorf("leveldb: unmarshal contribution: %w", err)
		}
		contributions = append(contributions, c)
	}

	return contributions, iter.Error()
}
