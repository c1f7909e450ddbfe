// Package public maintains the group of handlers for public access
// to the chain: status, transaction admission, mining, staking,
// validation, odero token operations, and the PoRC surface.
package public

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/nilotic/blockchain/business/web/v1/response"
	"github.com/nilotic/blockchain/foundation/blockchain/database"
	"github.com/nilotic/blockchain/foundation/blockchain/node"
	"github.com/nilotic/blockchain/foundation/blockchain/odero"
	"github.com/nilotic/blockchain/foundation/blockchain/porc"
	"github.com/nilotic/blockchain/foundation/events"
	"github.com/nilotic/blockchain/foundation/web"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Handlers manages the set of node endpoints: status, the chain tail,
// transaction admission, mining, staking, validation, odero token
// operations, the PoRC surface, and the live event stream.
type Handlers struct {
	Log  *zap.SugaredLogger
	Node *node.Node
	WS   websocket.Upgrader
	Evts *events.Events
}

// Status handles GET /: a summary of chain height, pending tx count,
// current difficulty, and mining reward.
func (h Handlers) Status(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	resp := status{
		ChainHeight:  h.Node.Ledger.ChainHeight(),
		PendingTx:    h.Node.Mempool.Count(),
		Difficulty:   h.Node.Producer.CurrentDifficulty(),
		MiningReward: h.Node.Producer.CalculateBlockReward(h.Node.Ledger.ChainHeight()),
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Chain handles GET /chain?include_blocks=true&limit=N: the last N
// blocks (default 10), or none when include_blocks is not "true".
func (h Handlers) Chain(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	chain := h.Node.Ledger.CopyChain()

	resp := chainResponse{Height: h.Node.Ledger.ChainHeight()}

	if r.URL.Query().Get("include_blocks") == "true" {
		limit := 10
		if v := r.URL.Query().Get("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				limit = n
			}
		}

		if limit > len(chain) {
			limit = len(chain)
		}
		tail := chain[len(chain)-limit:]

		blocks := make([]database.BlockFS, len(tail))
		for i, b := range tail {
			blocks[i] = database.NewBlockFS(b)
		}
		resp.Blocks = blocks
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// SubmitTransaction handles POST /transaction: admits a transaction
// into the mempool, or, if it qualifies for instant confirmation,
// applies it directly via the fast path. A signature is required
// unless the sender is the GENESIS premine or COINBASE, neither of
// which has a private key.
func (h Handlers) SubmitTransaction(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var req submitTransactionRequest
	if err := web.Decode(r, &req); err != nil {
		return err
	}

	sender, err := database.ToAccountID(req.Sender)
	if err != nil {
		return response.NewTrusted(fmt.Errorf("sender: %w", err), http.StatusBadRequest)
	}

	recipient, err := database.ToAccountID(req.Recipient)
	if err != nil {
		return response.NewTrusted(fmt.Errorf("recipient: %w", err), http.StatusBadRequest)
	}

	ts := req.TimeStamp
	if ts == 0 {
		ts = time.Now().UTC().Unix()
	}

	tx := database.Tx{
		ToID:      recipient,
		Amount:    req.Amount,
		Fee:       req.Fee,
		TimeStamp: ts,
	}

	var signedTx database.SignedTx
	if req.Signature != "" {
		v, sigR, sigS, err := database.DecodeSignature(req.Signature)
		if err != nil {
			return response.NewTrusted(fmt.Errorf("signature: %w", err), http.StatusBadRequest)
		}
		signedTx = database.NewSignedTx(sender, tx, v, sigR, sigS)
	} else {
		signedTx = database.NewSignedTx(sender, tx, nil, nil, nil)
	}

	if err := signedTx.Validate(); err != nil {
		return response.NewTrusted(err, http.StatusBadRequest)
	}

	blockTx := database.NewBlockTx(signedTx)

	applied, err := h.Node.FastPath.Apply(h.Node.Ledger, blockTx)
	if err != nil {
		return response.NewTrusted(err, http.StatusBadRequest)
	}

	if applied {
		resp := submitTransactionResponse{Status: "fast-confirmed", Hash: signedTx.ContentHash}
		return web.Respond(ctx, w, resp, http.StatusOK)
	}

	if err := h.Node.Ledger.Mempool.Admit(blockTx, h.Node.Ledger.GetBalance(sender)); err != nil {
		return response.NewTrusted(err, http.StatusBadRequest)
	}

	resp := submitTransactionResponse{Status: "pending", Hash: signedTx.ContentHash}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Mine handles POST /mine: runs a single mine_block attempt.
func (h Handlers) Mine(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var req mineRequest
	if err := web.Decode(r, &req); err != nil {
		return err
	}

	minerAddr, err := database.ToAccountID(req.MinerAddress)
	if err != nil {
		return response.NewTrusted(fmt.Errorf("miner_address: %w", err), http.StatusBadRequest)
	}

	block, err := h.Node.Producer.MineBlock(ctx, minerAddr)
	if err != nil {
		return response.NewTrusted(err, http.StatusBadRequest)
	}

	resp := mineResponse{
		Status: "mined",
		Height: block.Header.Number,
		Hash:   block.Hash(),
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Balance handles GET /balance?address=...
func (h Handlers) Balance(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	addr, err := database.ToAccountID(r.URL.Query().Get("address"))
	if err != nil {
		return response.NewTrusted(fmt.Errorf("address: %w", err), http.StatusBadRequest)
	}

	resp := balanceResponse{
		Address: addr,
		Balance: h.Node.Ledger.GetBalance(addr),
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Stake handles POST /stake: moves amount from addr's spendable
// balance into its stake.
func (h Handlers) Stake(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var req stakeRequest
	if err := web.Decode(r, &req); err != nil {
		return err
	}

	addr, err := database.ToAccountID(req.Address)
	if err != nil {
		return response.NewTrusted(fmt.Errorf("address: %w", err), http.StatusBadRequest)
	}

	if err := h.Node.Ledger.Stake(addr, req.Amount); err != nil {
		return response.NewTrusted(err, http.StatusBadRequest)
	}

	resp := stakeResponse{
		Address: addr,
		Stake:   h.Node.Ledger.GetStake(addr),
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Validate handles POST /validate: runs the proof-of-stake
// validation path for validator_address.
func (h Handlers) Validate(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var req validateRequest
	if err := web.Decode(r, &req); err != nil {
		return err
	}

	validatorID, err := database.ToAccountID(req.ValidatorAddress)
	if err != nil {
		return response.NewTrusted(fmt.Errorf("validator_address: %w", err), http.StatusBadRequest)
	}

	v, sigR, sigS, err := database.DecodeSignature(req.Signature)
	if err != nil {
		return response.NewTrusted(fmt.Errorf("signature: %w", err), http.StatusBadRequest)
	}

	block, err := h.Node.Producer.ValidateBlockPoS(validatorID, v, sigR, sigS)
	if err != nil {
		return response.NewTrusted(err, http.StatusBadRequest)
	}

	resp := validateResponse{
		Status: "validated",
		Height: block.Header.Number,
		Hash:   block.Hash(),
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// OderoCreate handles POST /odero/create.
func (h Handlers) OderoCreate(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var req oderoCreateRequest
	if err := web.Decode(r, &req); err != nil {
		return err
	}

	creator, err := database.ToAccountID(req.Address)
	if err != nil {
		return response.NewTrusted(fmt.Errorf("address: %w", err), http.StatusBadRequest)
	}

	token, err := h.Node.Odero.Create(creator, req.Amount)
	if err != nil {
		return response.NewTrusted(err, http.StatusBadRequest)
	}

	return web.Respond(ctx, w, token, http.StatusOK)
}

// OderoRedeem handles POST /odero/redeem.
func (h Handlers) OderoRedeem(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var req oderoRedeemRequest
	if err := web.Decode(r, &req); err != nil {
		return err
	}

	recipient, err := database.ToAccountID(req.Recipient)
	if err != nil {
		return response.NewTrusted(fmt.Errorf("recipient: %w", err), http.StatusBadRequest)
	}

	token, err := h.Node.Odero.Redeem(req.TokenID, recipient)
	switch err {
	case nil:
		return web.Respond(ctx, w, token, http.StatusOK)
	case odero.ErrTokenNotFound, odero.ErrTokenRedeemed, odero.ErrInvalidToken:
		return response.NewTrusted(err, http.StatusBadRequest)
	default:
		return err
	}
}

// OderoVerify handles POST /odero/verify.
func (h Handlers) OderoVerify(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var req oderoVerifyRequest
	if err := web.Decode(r, &req); err != nil {
		return err
	}

	_, valid := h.Node.Odero.Verify(req.TokenID)

	return web.Respond(ctx, w, oderoVerifyResponse{Valid: valid}, http.StatusOK)
}

// TransactionStatus handles GET /transaction/{hash}/status.
func (h Handlers) TransactionStatus(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	hash := web.Param(r, "hash")

	resp := transactionStatusResponse{
		Hash:   hash,
		Status: h.Node.Ledger.TransactionStatus(hash),
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// PorcEnable handles POST /porc/enable.
func (h Handlers) PorcEnable(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var req porcEnableRequest
	if err := web.Decode(r, &req); err != nil {
		return err
	}

	addr, err := database.ToAccountID(req.Address)
	if err != nil {
		return response.NewTrusted(fmt.Errorf("address: %w", err), http.StatusBadRequest)
	}

	balance := h.Node.Ledger.GetBalance(addr)
	activity := h.Node.Ledger.ActivityCount(addr)

	if err := h.Node.PoRC.Enable(addr, req.BandwidthLimitMBPerDay, balance, activity); err != nil {
		return response.NewTrusted(err, http.StatusBadRequest)
	}

	return web.Respond(ctx, w, statusResponse{Status: "enabled"}, http.StatusOK)
}

// PorcSubmitLog handles POST /porc/submit_log: a wallet-signed
// resource-contribution log.
func (h Handlers) PorcSubmitLog(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var req porcSubmitLogRequest
	if err := web.Decode(r, &req); err != nil {
		return err
	}

	wallet, err := database.ToAccountID(req.Wallet)
	if err != nil {
		return response.NewTrusted(fmt.Errorf("wallet: %w", err), http.StatusBadRequest)
	}

	v, sigR, sigS, err := database.DecodeSignature(req.Signature)
	if err != nil {
		return response.NewTrusted(fmt.Errorf("signature: %w", err), http.StatusBadRequest)
	}

	c := porc.Contribution{
		ContributionPayload: porc.ContributionPayload{
			Wallet:              wallet,
			TaskID:              req.TaskID,
			TimeStamp:           req.TimeStamp,
			BlockHeight:         req.BlockHeight,
			BandwidthUsedMB:     req.BandwidthUsedMB,
			TransactionsRelayed: req.TransactionsRelayed,
			UptimeSeconds:       req.UptimeSeconds,
		},
		V: v,
		R: sigR,
		S: sigS,
	}

	if err := h.Node.PoRC.SubmitContribution(c); err != nil {
		return response.NewTrusted(err, http.StatusBadRequest)
	}

	return web.Respond(ctx, w, statusResponse{Status: "accepted"}, http.StatusOK)
}

// PorcStats handles GET /porc/stats.
func (h Handlers) PorcStats(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.Node.PoRC.Stats(), http.StatusOK)
}

// PorcPools handles GET /porc/pools.
func (h Handlers) PorcPools(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.Node.PoRC.ActivePools(), http.StatusOK)
}

// PorcWallet handles GET /porc/wallet?address=...
func (h Handlers) PorcWallet(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	addr, err := database.ToAccountID(r.URL.Query().Get("address"))
	if err != nil {
		return response.NewTrusted(fmt.Errorf("address: %w", err), http.StatusBadRequest)
	}

	wallet, ok := h.Node.PoRC.WalletStatus(addr)
	if !ok {
		return response.NewTrusted(porc.ErrWalletUnknown, http.StatusNotFound)
	}

	return web.Respond(ctx, w, wallet, http.StatusOK)
}

// Events handles GET /v1/events: a websocket stream of subsystem
// events, fed by the same event handler wired into the Ledger,
// Producer, and PoRC System at startup.
func (h Handlers) Events(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	h.WS.CheckOrigin = func(r *http.Request) bool { return true }

	c, err := h.WS.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	ch := h.Evts.Acquire(v.TraceID)
	defer h.Evts.Release(v.TraceID)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg, open := <-ch:
			if !open {
				return nil
			}

			if err := c.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return err
			}

		case <-ticker.C:
			if err := c.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
				return nil
			}
		}
	}
}
