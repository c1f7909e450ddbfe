package public

import "github.com/nilotic/blockchain/foundation/blockchain/database"

// status is the response body for GET /.
type status struct {
	ChainHeight  uint64  `json:"chain_height"`
	PendingTx    int     `json:"pending_tx"`
	Difficulty   uint16  `json:"difficulty"`
	MiningReward float64 `json:"mining_reward"`
}

// chainResponse is the response body for GET /chain.
type chainResponse struct {
	Height uint64             `json:"height"`
	Blocks []database.BlockFS `json:"blocks,omitempty"`
}

// submitTransactionRequest is the request body for POST /transaction.
// Fee, offline and signature are optional: a wallet that signed the
// transfer locally (see app/wallet/cli) supplies fee/timestamp/
// signature so Validate can recover and check the sender; the
// GENESIS premine account has no private key and is exempt from
// signature recovery the same way COINBASE is, so demo transfers
// sourced from it can omit them entirely.
type submitTransactionRequest struct {
	Sender    string  `json:"sender" validate:"required"`
	Recipient string  `json:"recipient" validate:"required"`
	Amount    float64 `json:"amount" validate:"gte=0"`
	Fee       float64 `json:"fee"`
	TimeStamp int64   `json:"timestamp"`
	Signature string  `json:"signature"`
}

// submitTransactionResponse is the response body for POST /transaction.
type submitTransactionResponse struct {
	Status string `json:"status"`
	Hash   string `json:"hash"`
}

// mineRequest is the request body for POST /mine.
type mineRequest struct {
	MinerAddress string `json:"miner_address" validate:"required"`
}

// mineResponse is the response body for POST /mine.
type mineResponse struct {
	Status string `json:"status"`
	Height uint64 `json:"height"`
	Hash   string `json:"hash"`
}

// balanceResponse is the response body for GET /balance.
type balanceResponse struct {
	Address database.AccountID `json:"address"`
	Balance float64            `json:"balance"`
}

// stakeRequest is the request body for POST /stake.
type stakeRequest struct {
	Address string  `json:"address" validate:"required"`
	Amount  float64 `json:"amount" validate:"gt=0"`
}

// stakeResponse is the response body for POST /stake.
type stakeResponse struct {
	Address database.AccountID `json:"address"`
	Stake   float64            `json:"stake"`
}

// validateRequest is the request body for POST /validate.
type validateRequest struct {
	ValidatorAddress string `json:"validator_address" validate:"required"`
	Signature        string `json:"signature" validate:"required"`
}

// validateResponse is the response body for POST /validate.
type validateResponse struct {
	Status string `json:"status"`
	Height uint64 `json:"height"`
	Hash   string `json:"hash"`
}

// oderoCreateRequest is the request body for POST /odero/create.
type oderoCreateRequest struct {
	Address string  `json:"address" validate:"required"`
	Amount  float64 `json:"amount" validate:"gt=0"`
}

// oderoRedeemRequest is the request body for POST /odero/redeem.
type oderoRedeemRequest struct {
	TokenID   string `json:"token_id" validate:"required"`
	Recipient string `json:"recipient" validate:"required"`
}

// oderoVerifyRequest is the request body for POST /odero/verify.
type oderoVerifyRequest struct {
	TokenID string `json:"token_id" validate:"required"`
}

// oderoVerifyResponse is the response body for POST /odero/verify.
type oderoVerifyResponse struct {
	Valid bool `json:"valid"`
}

// transactionStatusResponse is the response body for GET
// /transaction/{hash}/status.
type transactionStatusResponse struct {
	Hash   string `json:"hash"`
	Status string `json:"status"`
}

// porcEnableRequest is the request body for POST /porc/enable.
type porcEnableRequest struct {
	Address                string  `json:"address" validate:"required"`
	BandwidthLimitMBPerDay float64 `json:"bandwidth_limit_mb_per_day"`
}

// porcSubmitLogRequest is the request body for POST /porc/submit_log:
// a contribution log the wallet signed locally against its own
// private key.
type porcSubmitLogRequest struct {
	Wallet              string  `json:"wallet" validate:"required"`
	TaskID              string  `json:"task_id" validate:"required"`
	TimeStamp           int64   `json:"timestamp" validate:"required"`
	BlockHeight         uint64  `json:"block_height"`
	BandwidthUsedMB     float64 `json:"bandwidth_used_mb"`
	TransactionsRelayed uint64  `json:"transactions_relayed"`
	UptimeSeconds       uint64  `json:"uptime_seconds"`
	Signature           string  `json:"signature" validate:"required"`
}

// statusResponse wraps a bare status string, used by operations with
// no other payload to return.
type statusResponse struct {
	Status string `json:"status"`
}
