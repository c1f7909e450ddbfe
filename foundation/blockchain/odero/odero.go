// Package odero implements offline-token-backed transfers behind the
// /odero/create, /odero/redeem, and /odero/verify endpoints.
package odero

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/nilotic/blockchain/foundation/blockchain/database"
	"github.com/nilotic/blockchain/foundation/blockchain/ledger"
)

// EscrowAccount holds the balance of every outstanding, unredeemed
// token; creating a token debits the creator into escrow, redeeming it
// credits the recipient out of escrow.
const EscrowAccount database.AccountID = "ODERO-ESCROW-0000000000000000000"

var (
	// ErrInvalidAmount is returned by Create when amount is not
	// positive.
	ErrInvalidAmount = errors.New("odero: amount must be positive")

	// ErrTokenNotFound is returned by Redeem when tokenID is unknown.
	ErrTokenNotFound = errors.New("odero: token not found")

	// ErrTokenRedeemed is returned by Redeem when tokenID has already
	// been redeemed.
	ErrTokenRedeemed = errors.New("odero: token already redeemed")

	// ErrInvalidToken is returned by Redeem when the token fails the
	// format/verify check.
	ErrInvalidToken = errors.New("odero: invalid token")
)

// Token mirrors OderoSLW: a bearer instrument for an amount escrowed
// out of its creator's balance until redeemed.
type Token struct {
	TokenID      string             `json:"token_id"`
	Amount       float64            `json:"amount"`
	Creator      database.AccountID `json:"creator"`
	CreationTime string             `json:"creation_time"`
	Redeemed     bool               `json:"redeemed"`
}

func newToken(amount float64, creator database.AccountID) (Token, error) {
	id, err := newTokenID()
	if err != nil {
		return Token{}, err
	}

	return Token{
		TokenID:      id,
		Amount:       amount,
		Creator:      creator,
		CreationTime: time.Now().UTC().Format(time.RFC3339),
	}, nil
}

func newTokenID() (string, error) {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}

	return "OSLW" + hex.EncodeToString(buf), nil
}

// QRCode returns the string a real QR encoder would render, per
// OderoSLW::generateQrCode.
func (t Token) QRCode() string {
	return fmt.Sprintf("QR Code data: ODEROSLW:%s:%g:%s:%s", t.TokenID, t.Amount, t.Creator, t.CreationTime)
}

// Verify reports whether the token is well formed, per
// OderoSLW::verify: a non-empty "OSLW"-prefixed id (de-duplicated, in
// case the id was doubled in transit), a known creator and creation
// time, and a positive amount.
func (t Token) Verify() bool {
	id := dedupeTokenID(t.TokenID)

	if id == "" || t.Creator == "" || t.CreationTime == "" || t.Amount <= 0 {
		return false
	}

	return strings.HasPrefix(id, "OSLW")
}

// dedupeTokenID truncates a token id at a second "OSLW" occurrence
// past index 4, matching the original's defensive duplicate-pattern
// strip.
func dedupeTokenID(tokenID string) string {
	if len(tokenID) <= 4 {
		return tokenID
	}

	if idx := strings.Index(tokenID[4:], "OSLW"); idx >= 0 {
		return tokenID[:4+idx]
	}

	return tokenID
}

// =============================================================================

// Registry tracks outstanding tokens and moves the corresponding
// escrowed balance through l as tokens are created and redeemed.
type Registry struct {
	l *ledger.Ledger

	mu     sync.Mutex
	tokens map[string]Token
}

// New constructs an empty Registry backed by l.
func New(l *ledger.Ledger) *Registry {
	return &Registry{
		l:      l,
		tokens: make(map[string]Token),
	}
}

// Create escrows amount out of creator's balance and mints a new
// token for it.
func (reg *Registry) Create(creator database.AccountID, amount float64) (Token, error) {
	if amount <= 0 {
		return Token{}, ErrInvalidAmount
	}

	token, err := newToken(amount, creator)
	if err != nil {
		return Token{}, err
	}

	reg.l.Lock()
	defer reg.l.Unlock()

	if reg.l.GetBalanceLocked(creator) < amount {
		return Token{}, fmt.Errorf("odero: insufficient balance, have %.8f, need %.8f", reg.l.GetBalanceLocked(creator), amount)
	}

	transfer := database.NewBlockTx(database.NewInternalTransfer(creator, EscrowAccount, amount))
	if err := reg.l.ApplyTransaction(transfer); err != nil {
		return Token{}, err
	}

	reg.mu.Lock()
	reg.tokens[token.TokenID] = token
	reg.mu.Unlock()

	return token, nil
}

// Redeem pays a token's escrowed amount out to recipient and marks it
// spent. A token can be redeemed at most once.
func (reg *Registry) Redeem(tokenID string, recipient database.AccountID) (Token, error) {
	reg.mu.Lock()
	token, ok := reg.tokens[tokenID]
	switch {
	case !ok:
		reg.mu.Unlock()
		return Token{}, ErrTokenNotFound
	case token.Redeemed:
		reg.mu.Unlock()
		return Token{}, ErrTokenRedeemed
	case !token.Verify():
		reg.mu.Unlock()
		return Token{}, ErrInvalidToken
	}
	token.Redeemed = true
	reg.tokens[tokenID] = token
	reg.mu.Unlock()

	reg.l.Lock()
	defer reg.l.Unlock()

	transfer := database.NewBlockTx(database.NewInternalTransfer(EscrowAccount, recipient, token.Amount))
	if err := reg.l.ApplyTransaction(transfer); err != nil {
		return Token{}, err
	}

	return token, nil
}

// Verify reports a token's format validity and current redeemed
// state, for the /odero/verify endpoint.
func (reg *Registry) Verify(tokenID string) (Token, bool) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	token, ok := reg.tokens[tokenID]
	if !ok {
		return Token{}, false
	}

	return token, token.Verify()
}
