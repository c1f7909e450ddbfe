package porc

import "github.com/nilotic/blockchain/foundation/blockchain/database"

// Pool is a chunk of at most PoolSize enrolled wallets rotated
// together for a span of blocks, mirroring PoRCPool.
type Pool struct {
	Addresses  []database.AccountID `json:"addresses"`
	BlockStart uint64               `json:"block_start"`
	BlockEnd   uint64               `json:"block_end"`
	IsActive   bool                 `json:"is_active"`
}

func (p Pool) contains(addr database.AccountID) bool {
	for _, a := range p.Addresses {
		if a == addr {
			return true
		}
	}
	return false
}
