package database

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math"
	"math/big"
	"time"

	"github.com/nilotic/blockchain/foundation/blockchain/merkle"
	"github.com/nilotic/blockchain/foundation/blockchain/signature"
)

// ErrChainForked is returned from ValidateBlock if another node's
// chain is two or more blocks ahead of ours.
var ErrChainForked = errors.New("blockchain forked, start resync")

// ErrSolutionNotFound is returned by POW when the context is
// cancelled before a nonce satisfying the difficulty is found.
var ErrSolutionNotFound = errors.New("proof of work cancelled before a solution was found")

// NumberInvalid is the sentinel block number returned by a failed
// mining attempt.
const NumberInvalid = math.MaxUint64

// =============================================================================

// BlockHeader represents the information describing a block.
// Difficulty and BeneficiaryID are carried here for convenience but
// are deliberately excluded from the hashed payload (see Hash): the
// hash covers only (number, previous_hash, timestamp, merkle_root,
// nonce, validator_if_present).
type BlockHeader struct {
	Number        uint64    `json:"number"`
	PrevBlockHash string    `json:"prev_block_hash"`
	TimeStamp     int64     `json:"timestamp"`
	Nonce         uint64    `json:"nonce"`
	Difficulty    uint16    `json:"difficulty"`
	BeneficiaryID AccountID `json:"beneficiary"`
	TransRoot     string    `json:"trans_root"`
	ValidatorID   AccountID `json:"validator,omitempty"`
}

// hashedHeader is the subset of BlockHeader that is actually hashed
// to produce a block's identity.
type hashedHeader struct {
	Number        uint64    `json:"number"`
	PrevBlockHash string    `json:"prev_block_hash"`
	TimeStamp     int64     `json:"timestamp"`
	TransRoot     string    `json:"trans_root"`
	Nonce         uint64    `json:"nonce"`
	ValidatorID   AccountID `json:"validator,omitempty"`
}

// ValidatorSignature is the PoS validator's signature over the
// sealed block header, kept out of BlockHeader since it is produced
// after the header (and therefore the hash) is final.
type ValidatorSignature struct {
	V *big.Int `json:"v"`
	R *big.Int `json:"r"`
	S *big.Int `json:"s"`
}

// Block represents a group of transactions batched together, sealed
// by either proof of work or proof of stake.
type Block struct {
	Header    BlockHeader
	Trans     *merkle.Tree[BlockTx]
	Validator *ValidatorSignature
}

// =============================================================================

// draftBlock constructs the next block, unsealed, ready for either
// POW or the PoS validation path.
func draftBlock(beneficiaryID AccountID, difficulty uint16, prevBlock Block, trans []BlockTx) (Block, error) {
	tree, err := merkle.NewTree(trans)
	if err != nil {
		return Block{}, err
	}

	nb := Block{
		Header: BlockHeader{
			Number:        prevBlock.Header.Number + 1,
			PrevBlockHash: prevBlock.Hash(),
			TimeStamp:     time.Now().UTC().Unix(),
			BeneficiaryID: beneficiaryID,
			Difficulty:    difficulty,
			TransRoot:     tree.RootHex(),
		},
		Trans: tree,
	}

	return nb, nil
}

// NewGenesisBlock constructs block 0, whose transaction list is
// exactly the single COINBASE-sourced issuance transaction.
func NewGenesisBlock(coinbase BlockTx) (Block, error) {
	nb, err := draftBlock(coinbase.ToID, 0, Block{}, []BlockTx{coinbase})
	if err != nil {
		return Block{}, err
	}

	nb.Header.Number = 0

	return nb, nil
}

// POW drafts a block and performs the proof-of-work search to find a
// nonce that solves the difficulty puzzle.
func POW(ctx context.Context, beneficiaryID AccountID, difficulty uint16, prevBlock Block, trans []BlockTx, evHandler func(v string, args ...any)) (Block, error) {
	nb, err := draftBlock(beneficiaryID, difficulty, prevBlock, trans)
	if err != nil {
		return Block{}, err
	}

	if err := nb.performPOW(ctx, evHandler); err != nil {
		return Block{Header: BlockHeader{Number: NumberInvalid}}, err
	}

	return nb, nil
}

// performPOW does the work of mining to find a valid hash for the
// block. Pointer semantics are used since a nonce is being
// discovered.
func (b *Block) performPOW(ctx context.Context, ev func(v string, args ...any)) error {
	ev("producer: performPOW: started: blk[%d]", b.Header.Number)
	defer ev("producer: performPOW: completed: blk[%d]", b.Header.Number)

	nBig, err := rand.Int(rand.Reader, big.NewInt(math.MaxInt64))
	if err != nil {
		return ctx.Err()
	}
	b.Header.Nonce = nBig.Uint64()

	var attempts uint64
	for {
		attempts++
		if attempts%1_000_000 == 0 {
			ev("producer: performPOW: attempts[%d]", attempts)
		}

		if ctx.Err() != nil {
			ev("producer: performPOW: cancelled: blk[%d]", b.Header.Number)
			return ErrSolutionNotFound
		}

		hash := b.Hash()
		if !isHashSolved(b.Header.Difficulty, hash) {
			b.Header.Nonce++
			continue
		}

		ev("producer: performPOW: solved: blk[%d]: hash[%s]: attempts[%d]", b.Header.Number, hash, attempts)
		return nil
	}
}

// ValidatePoS drafts a block and seals it via the proof-of-stake
// path: difficulty is forced to zero and a validator signature over
// the header is recorded instead of a mined nonce. The caller is
// responsible for checking the validator's stake is positive before
// calling this.
func ValidatePoS(validatorID AccountID, prevBlock Block, trans []BlockTx, v, r, s *big.Int) (Block, error) {
	nb, err := draftBlock(validatorID, 0, prevBlock, trans)
	if err != nil {
		return Block{}, err
	}

	nb.Header.ValidatorID = validatorID
	nb.Validator = &ValidatorSignature{V: v, R: r, S: s}

	return nb, nil
}

// Hash returns the unique hash for the block: the SHA-256 digest
// over (number, previous_hash, timestamp, merkle_root, nonce,
// validator_if_present).
func (b Block) Hash() string {
	if b.Header.Number == 0 && b.Header.PrevBlockHash == "" {
		return signature.ZeroHash
	}

	h := hashedHeader{
		Number:        b.Header.Number,
		PrevBlockHash: b.Header.PrevBlockHash,
		TimeStamp:     b.Header.TimeStamp,
		TransRoot:     b.Header.TransRoot,
		Nonce:         b.Header.Nonce,
		ValidatorID:   b.Header.ValidatorID,
	}

	return signature.Hash(h)
}

// IsPoS reports whether this block was sealed via proof of stake.
func (b Block) IsPoS() bool {
	return b.Header.ValidatorID != ""
}

// ValidateBlock validates a block for inclusion onto the chain
// following previousBlock.
func (b Block) ValidateBlock(previousBlock Block, evHandler func(v string, args ...any)) error {
	evHandler("ledger: ValidateBlock: blk[%d]: check: chain is not forked", b.Header.Number)

	nextNumber := previousBlock.Header.Number + 1
	if b.Header.Number >= (nextNumber + 2) {
		return ErrChainForked
	}

	evHandler("ledger: ValidateBlock: blk[%d]: check: block number is the next number", b.Header.Number)

	if b.Header.Number != nextNumber {
		return fmt.Errorf("this block is not the next number, got %d, exp %d", b.Header.Number, nextNumber)
	}

	evHandler("ledger: ValidateBlock: blk[%d]: check: parent hash matches parent block", b.Header.Number)

	if b.Header.PrevBlockHash != previousBlock.Hash() {
		return fmt.Errorf("parent block hash doesn't match our known parent, got %s, exp %s", b.Header.PrevBlockHash, previousBlock.Hash())
	}

	// Genesis and PoS-sealed blocks bypass the PoW difficulty check;
	// the two sealing paths are never active on the same block.
	if b.Header.Number != 0 && !b.IsPoS() {
		evHandler("ledger: ValidateBlock: blk[%d]: check: block hash has been solved", b.Header.Number)

		hash := b.Hash()
		if !isHashSolved(b.Header.Difficulty, hash) {
			return fmt.Errorf("%s invalid block hash", hash)
		}
	}

	if previousBlock.Header.TimeStamp > 0 {
		evHandler("ledger: ValidateBlock: blk[%d]: check: timestamp is not before parent block", b.Header.Number)

		if b.Header.TimeStamp < previousBlock.Header.TimeStamp {
			return fmt.Errorf("block timestamp is before parent block, parent %d, block %d", previousBlock.Header.TimeStamp, b.Header.TimeStamp)
		}
	}

	evHandler("ledger: ValidateBlock: blk[%d]: check: merkle root matches transactions", b.Header.Number)

	if b.Header.TransRoot != b.Trans.RootHex() {
		return fmt.Errorf("merkle root does not match transactions, got %s, exp %s", b.Trans.RootHex(), b.Header.TransRoot)
	}

	evHandler("ledger: ValidateBlock: blk[%d]: check: at most one coinbase transaction, first in list", b.Header.Number)

	for i, tx := range b.Trans.Values() {
		if tx.FromID == AccountID(signature.COINBASE) && i != 0 {
			return fmt.Errorf("coinbase transaction at index %d, must be first", i)
		}
	}

	return nil
}

// isHashSolved checks the hash against the PoW rule: the hash must
// have a prefix of difficulty leading hex zero characters.
func isHashSolved(difficulty uint16, hash string) bool {
	const match = "00000000000000000000000000000000"

	if len(hash) != 64 {
		return false
	}

	if int(difficulty) > len(match) {
		return false
	}

	return hash[:difficulty] == match[:difficulty]
}

// =============================================================================

// BlockFS represents what is written to, and read from, the
// snapshot's "blocks" array.
type BlockFS struct {
	Index        uint64    `json:"index"`
	TimeStamp    int64     `json:"timestamp"`
	PreviousHash string    `json:"previousHash"`
	Hash         string    `json:"hash"`
	Nonce        uint64    `json:"nonce"`
	MerkleRoot   string    `json:"merkleRoot"`
	Validator    AccountID `json:"validator,omitempty"`
	Signature    string    `json:"signature,omitempty"`
	Transactions []TxFS    `json:"transactions"`
}

// NewBlockFS constructs the value to serialize to the snapshot.
func NewBlockFS(block Block) BlockFS {
	trans := block.Trans.Values()
	txs := make([]TxFS, len(trans))
	for i, tx := range trans {
		txs[i] = NewTxFS(tx.SignedTx)
	}

	bfs := BlockFS{
		Index:        block.Header.Number,
		TimeStamp:    block.Header.TimeStamp,
		PreviousHash: block.Header.PrevBlockHash,
		Hash:         block.Hash(),
		Nonce:        block.Header.Nonce,
		MerkleRoot:   block.Header.TransRoot,
		Validator:    block.Header.ValidatorID,
		Transactions: txs,
	}

	if block.Validator != nil {
		bfs.Signature = signature.SignatureString(block.Validator.V, block.Validator.R, block.Validator.S)
	}

	return bfs
}

// ToBlock converts a BlockFS back into a Block for replay.
func ToBlock(blockFS BlockFS) (Block, error) {
	trans := make([]BlockTx, len(blockFS.Transactions))
	for i, txFS := range blockFS.Transactions {
		trans[i] = NewBlockTx(ToSignedTx(txFS))
	}

	tree, err := merkle.NewTree(trans)
	if err != nil {
		return Block{}, err
	}

	nb := Block{
		Header: BlockHeader{
			Number:        blockFS.Index,
			PrevBlockHash: blockFS.PreviousHash,
			TimeStamp:     blockFS.TimeStamp,
			Nonce:         blockFS.Nonce,
			TransRoot:     blockFS.MerkleRoot,
			ValidatorID:   blockFS.Validator,
		},
		Trans: tree,
	}

	return nb, nil
}
