package database

import (
	"crypto/ecdsa"
	"errors"
	"strings"

	"github.com/nilotic/blockchain/foundation/blockchain/signature"
)

// Account represents information stored in the ledger for an individual
// address: its current spendable balance and whether it has staked
// value toward producing blocks via proof of stake.
type Account struct {
	AccountID AccountID
	Balance   float64
	Stake     float64
}

// newAccount constructs a new account value for use.
func newAccount(accountID AccountID, balance float64) Account {
	return Account{
		AccountID: accountID,
		Balance:   balance,
	}
}

// =============================================================================

// AccountID represents an address used to sign transactions and is
// associated with transactions and balances on the ledger.
type AccountID string

// ToAccountID converts a string to an account id and validates it is
// formatted correctly.
func ToAccountID(value string) (AccountID, error) {
	a := AccountID(value)
	if !a.IsAccountID() {
		return "", errors.New("invalid account format")
	}

	return a, nil
}

// PublicKeyToAccountID converts a public key to its derived address.
func PublicKeyToAccountID(pk ecdsa.PublicKey) AccountID {
	return AccountID(signature.DeriveAddress(pk))
}

// IsAccountID verifies whether the underlying data represents a
// valid address: the "NIL" prefix followed by 34 lowercase hex
// characters, or one of the chain's reserved sentinel addresses.
func (a AccountID) IsAccountID() bool {
	switch a {
	case AccountID(signature.COINBASE), GenesisSentinel:
		return true
	}

	const prefix = "NIL"
	const digestLen = 34

	s := string(a)
	if !strings.HasPrefix(s, prefix) {
		return false
	}

	hexPart := s[len(prefix):]
	if len(hexPart) != digestLen {
		return false
	}

	return isHex(hexPart)
}

// =============================================================================

// isHex validates whether each byte is a valid hexadecimal character.
func isHex(s string) bool {
	for _, c := range []byte(s) {
		if !isHexCharacter(c) {
			return false
		}
	}

	return true
}

// isHexCharacter returns whether c is a valid hexadecimal digit.
func isHexCharacter(c byte) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}

// =============================================================================

// byAccount provides sorting support by the account id value.
type byAccount []Account

// Len returns the number of accounts in the list.
func (ba byAccount) Len() int {
	return len(ba)
}

// Less helps sort the list by account id in ascending order to keep
// the accounts in a deterministic order of processing.
func (ba byAccount) Less(i, j int) bool {
	return ba[i].AccountID < ba[j].AccountID
}

// Swap moves accounts in the order of the account id value.
func (ba byAccount) Swap(i, j int) {
	ba[i], ba[j] = ba[j], ba[i]
}
