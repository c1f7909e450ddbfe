package porc

import (
	"crypto/ecdsa"
	"errors"
	"math/big"

	"github.com/nilotic/blockchain/foundation/blockchain/database"
	"github.com/nilotic/blockchain/foundation/blockchain/signature"
)

// ErrInvalidContribution is returned by SubmitContribution when the
// signature does not verify or the contribution carries no measured
// work.
var ErrInvalidContribution = errors.New("porc: invalid contribution")

// Contribution is a signed log of resource work performed by a
// wallet for a task, mirroring PoRCContribution in the original
// implementation.
type Contribution struct {
	ContributionPayload

	V *big.Int `json:"v"`
	R *big.Int `json:"r"`
	S *big.Int `json:"s"`
}

// ContributionPayload is the subset of Contribution that gets
// signed; separating it from the V/R/S fields mirrors the
// signable-payload convention used for transactions.
type ContributionPayload struct {
	Wallet              database.AccountID `json:"wallet"`
	TaskID              string             `json:"task_id"`
	TimeStamp           int64              `json:"timestamp"`
	BlockHeight         uint64             `json:"block_height"`
	BandwidthUsedMB     float64            `json:"bandwidth_used_mb"`
	TransactionsRelayed uint64             `json:"transactions_relayed"`
	UptimeSeconds       uint64             `json:"uptime_seconds"`
}

// NewContribution builds and signs a contribution log with
// privateKey, per the signContribution helper in the original
// implementation.
func NewContribution(wallet database.AccountID, taskID string, ts int64, blockHeight uint64, bandwidthUsedMB float64, transactionsRelayed, uptimeSeconds uint64, privateKey *ecdsa.PrivateKey) (Contribution, error) {
	payload := ContributionPayload{
		Wallet:              wallet,
		TaskID:              taskID,
		TimeStamp:           ts,
		BlockHeight:         blockHeight,
		BandwidthUsedMB:     bandwidthUsedMB,
		TransactionsRelayed: transactionsRelayed,
		UptimeSeconds:       uptimeSeconds,
	}

	v, r, s, err := signature.Sign(payload, privateKey)
	if err != nil {
		return Contribution{}, err
	}

	return Contribution{ContributionPayload: payload, V: v, R: r, S: s}, nil
}

// resourcePoints computes the resource points this contribution is
// worth: bandwidthUsed*RESOURCE_POINT_MB + transactionsRelayed /
// RESOURCE_POINT_TX, using integer division on the tx term.
func (c Contribution) resourcePoints(cfg Config) float64 {
	bandwidthPoints := c.BandwidthUsedMB * cfg.ResourcePointMB
	txPoints := c.TransactionsRelayed / cfg.ResourcePointTx

	return bandwidthPoints + float64(txPoints)
}

// verify reports whether the contribution's signature was produced
// by wallet.
func (c Contribution) verify() bool {
	if c.V == nil || c.R == nil || c.S == nil {
		return false
	}

	addr, err := signature.FromAddress(c.ContributionPayload, c.V, c.R, c.S)
	if err != nil {
		return false
	}

	return database.AccountID(addr) == c.Wallet
}
