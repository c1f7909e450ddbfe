package database

import (
	"crypto/ecdsa"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/nilotic/blockchain/foundation/blockchain/signature"
)

// ContractAddress is the sentinel recipient that marks a transaction
// as a contract deployment.
const ContractAddress = "CONTRACT"

// GenesisSentinel is the premine account credited at chain start. No
// private key corresponds to it, so like COINBASE it is exempt from
// signature recovery in Validate.
const GenesisSentinel AccountID = "GENESIS"

// =============================================================================

// Tx is the transactional information between two parties. ContentHash
// is a deterministic digest over (sender, recipient, amount,
// timestamp, contract payload, offline flag) and is computed once the
// sender is known, at Sign time.
type Tx struct {
	ToID            AccountID `json:"to"`
	Amount          float64   `json:"amount"`
	Fee             float64   `json:"fee"`
	TimeStamp       int64     `json:"timestamp"`
	Offline         bool      `json:"is_offline"`
	ContractPayload []byte    `json:"contract_payload,omitempty"`
}

// NewTx constructs a new unsigned transaction. The fee is stored as
// given; a zero fee is not replaced by a computed default.
func NewTx(toID AccountID, amount, fee float64, offline bool, contractPayload []byte) (Tx, error) {
	if !toID.IsAccountID() {
		return Tx{}, fmt.Errorf("to account is not properly formatted")
	}

	if amount < 0 {
		return Tx{}, errors.New("amount must be non-negative")
	}

	tx := Tx{
		ToID:            toID,
		Amount:          amount,
		Fee:             fee,
		TimeStamp:       time.Now().UTC().Unix(),
		Offline:         offline,
		ContractPayload: contractPayload,
	}

	return tx, nil
}

// IsContractDeploy reports whether this transaction deploys a
// contract: recipient is the CONTRACT sentinel and a payload is
// present.
func (tx Tx) IsContractDeploy() bool {
	return tx.ToID == ContractAddress && len(tx.ContractPayload) > 0
}

// Sign uses the specified private key to sign the transaction,
// producing the content-hash over the full transaction contents.
func (tx Tx) Sign(privateKey *ecdsa.PrivateKey) (SignedTx, error) {
	if !tx.ToID.IsAccountID() {
		return SignedTx{}, fmt.Errorf("to account is not properly formatted")
	}

	v, r, s, err := signature.Sign(tx, privateKey)
	if err != nil {
		return SignedTx{}, err
	}

	fromID := PublicKeyToAccountID(privateKey.PublicKey)

	signedTx := SignedTx{
		Tx:     tx,
		FromID: fromID,
		V:      v,
		R:      r,
		S:      s,
	}
	signedTx.ContentHash = signedTx.computeContentHash()

	return signedTx, nil
}

// NewSignedTx reconstructs a signed transaction from its wire parts
// and recomputes its content hash, for callers such as the HTTP
// surface that receive an already wallet-signed transaction rather
// than holding the private key themselves.
func NewSignedTx(fromID AccountID, tx Tx, v, r, s *big.Int) SignedTx {
	signedTx := SignedTx{
		Tx:     tx,
		FromID: fromID,
		V:      v,
		R:      r,
		S:      s,
	}
	signedTx.ContentHash = signedTx.computeContentHash()

	return signedTx
}

// SignCoinbase constructs the reserved COINBASE-sourced transaction
// used to pay block rewards and PoS stake rewards. It carries no
// signature since no private key corresponds to COINBASE.
func SignCoinbase(toID AccountID, amount float64) SignedTx {
	tx := Tx{
		ToID:      toID,
		Amount:    amount,
		TimeStamp: time.Now().UTC().Unix(),
	}

	signedTx := SignedTx{
		Tx:     tx,
		FromID: AccountID(signature.COINBASE),
	}
	signedTx.ContentHash = signedTx.computeContentHash()

	return signedTx
}

// NewInternalTransfer constructs an unsigned, Offline-flagged transfer
// moving amount directly between two ledger accounts, for subsystems
// such as odero that move value without a wallet's signature. It is
// applied directly via Ledger.ApplyTransaction, which never calls
// Validate, so the missing signature is never checked. Unlike
// SignCoinbase, fromID is not the COINBASE sentinel, so
// applyTransactionLocked still debits it normally.
func NewInternalTransfer(fromID, toID AccountID, amount float64) SignedTx {
	tx := Tx{
		ToID:      toID,
		Amount:    amount,
		TimeStamp: time.Now().UTC().Unix(),
		Offline:   true,
	}

	signedTx := SignedTx{
		Tx:     tx,
		FromID: fromID,
	}
	signedTx.ContentHash = signedTx.computeContentHash()

	return signedTx
}

// =============================================================================

// SignedTx is a signed version of the transaction. This is how
// clients like a wallet provide transactions for inclusion into the
// ledger.
type SignedTx struct {
	Tx
	FromID      AccountID `json:"from"`
	ContentHash string    `json:"content_hash"`
	V           *big.Int  `json:"v,omitempty"`
	R           *big.Int  `json:"r,omitempty"`
	S           *big.Int  `json:"s,omitempty"`
}

// computeContentHash returns the deterministic digest over the
// transaction's (sender, recipient, amount, timestamp, contract
// payload, offline flag).
func (tx SignedTx) computeContentHash() string {
	type contentHashable struct {
		FromID          AccountID
		ToID            AccountID
		Amount          float64
		TimeStamp       int64
		ContractPayload []byte
		Offline         bool
	}

	return signature.Hash(contentHashable{
		FromID:          tx.FromID,
		ToID:            tx.ToID,
		Amount:          tx.Amount,
		TimeStamp:       tx.TimeStamp,
		ContractPayload: tx.ContractPayload,
		Offline:         tx.Offline,
	})
}

// Validate verifies the transaction is well formed and, unless the
// sender is COINBASE or the GENESIS sentinel, that its signature
// verifies against the claimed sender.
func (tx SignedTx) Validate() error {
	if tx.FromID == "" {
		return errors.New("sender must not be empty")
	}

	if !tx.ToID.IsAccountID() {
		return errors.New("invalid account for to account")
	}

	if tx.Amount < 0 {
		return errors.New("amount must be non-negative")
	}

	if tx.ContentHash != tx.computeContentHash() {
		return errors.New("content hash does not match transaction contents")
	}

	if tx.FromID == AccountID(signature.COINBASE) || tx.FromID == GenesisSentinel {
		return nil
	}

	from, err := signature.FromAddress(tx.Tx, tx.V, tx.R, tx.S)
	if err != nil {
		return fmt.Errorf("recovering signer: %w", err)
	}

	if AccountID(from) != tx.FromID {
		return errors.New("signature does not match claimed sender")
	}

	return nil
}

// SignatureString returns the signature as a string.
func (tx SignedTx) SignatureString() string {
	if tx.V == nil {
		return ""
	}
	return signature.SignatureString(tx.V, tx.R, tx.S)
}

// String implements the fmt.Stringer interface for logging.
func (tx SignedTx) String() string {
	return fmt.Sprintf("%s->%s:%.8f", tx.FromID, tx.ToID, tx.Amount)
}

// =============================================================================

// BlockTx represents the transaction as it is recorded inside a
// block.
type BlockTx struct {
	SignedTx
}

// NewBlockTx constructs a new block transaction.
func NewBlockTx(signedTx SignedTx) BlockTx {
	return BlockTx{SignedTx: signedTx}
}

// Hash implements the merkle Hashable interface, hashing the
// transaction's content-hash.
func (tx BlockTx) Hash() ([]byte, error) {
	return hex.DecodeString(tx.ContentHash)
}

// Equals implements the merkle Hashable interface: two block
// transactions are the same if their content-hashes match.
func (tx BlockTx) Equals(otherTx BlockTx) bool {
	return tx.ContentHash == otherTx.ContentHash
}

// =============================================================================

// TxFS is the wire/snapshot representation of a transaction.
type TxFS struct {
	Sender    AccountID `json:"sender"`
	Recipient AccountID `json:"recipient"`
	Amount    float64   `json:"amount"`
	Fee       float64   `json:"fee"`
	TimeStamp int64     `json:"timestamp"`
	Hash      string    `json:"hash"`
	Signature string    `json:"signature,omitempty"`
	IsOffline bool      `json:"isOffline"`
	ContractCode  string `json:"contractCode,omitempty"`
	ContractState string `json:"contractState,omitempty"`
}

// NewTxFS constructs the snapshot representation of a signed
// transaction.
func NewTxFS(tx SignedTx) TxFS {
	txFS := TxFS{
		Sender:    tx.FromID,
		Recipient: tx.ToID,
		Amount:    tx.Amount,
		Fee:       tx.Fee,
		TimeStamp: tx.TimeStamp,
		Hash:      tx.ContentHash,
		Signature: tx.SignatureString(),
		IsOffline: tx.Offline,
	}

	if len(tx.ContractPayload) > 0 {
		txFS.ContractCode = hex.EncodeToString(tx.ContractPayload)
	}

	return txFS
}

// ToSignedTx converts a snapshot transaction back into a SignedTx
// for replay.
func ToSignedTx(txFS TxFS) SignedTx {
	tx := SignedTx{
		Tx: Tx{
			ToID:      txFS.Recipient,
			Amount:    txFS.Amount,
			Fee:       txFS.Fee,
			TimeStamp: txFS.TimeStamp,
			Offline:   txFS.IsOffline,
		},
		FromID:      txFS.Sender,
		ContentHash: txFS.Hash,
	}

	if txFS.ContractCode != "" {
		if payload, err := hex.DecodeString(txFS.ContractCode); err == nil {
			tx.ContractPayload = payload
		}
	}

	if txFS.Signature != "" {
		v, r, s, err := parseSignatureString(txFS.Signature)
		if err == nil {
			tx.V, tx.R, tx.S = v, r, s
		}
	}

	return tx
}

// DecodeSignature parses the "0x"-prefixed [R|S|V] hex string
// produced by signature.SignatureString, for callers outside this
// package (the HTTP handlers) that need to turn a submitted signature
// back into its components.
func DecodeSignature(sig string) (v, r, s *big.Int, err error) {
	return parseSignatureString(sig)
}

// parseSignatureString parses the "0x"-prefixed [R|S|V] hex string
// produced by signature.SignatureString back into its components.
func parseSignatureString(sig string) (v, r, s *big.Int, err error) {
	sig = strings.TrimPrefix(sig, "0x")

	raw, err := hex.DecodeString(sig)
	if err != nil {
		return nil, nil, nil, err
	}

	if len(raw) != 65 {
		return nil, nil, nil, fmt.Errorf("invalid signature length %d", len(raw))
	}

	r = new(big.Int).SetBytes(raw[:32])
	s = new(big.Int).SetBytes(raw[32:64])
	v = new(big.Int).SetBytes(raw[64:65])

	return v, r, s, nil
}
