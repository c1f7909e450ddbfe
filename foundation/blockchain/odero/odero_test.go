package odero_test

import (
	"testing"

	"github.com/nilotic/blockchain/foundation/blockchain/database"
	"github.com/nilotic/blockchain/foundation/blockchain/genesis"
	"github.com/nilotic/blockchain/foundation/blockchain/ledger"
	"github.com/nilotic/blockchain/foundation/blockchain/mempool"
	"github.com/nilotic/blockchain/foundation/blockchain/odero"
)

func newTestLedger(t *testing.T) (*ledger.Ledger, database.AccountID) {
	t.Helper()

	mp, err := mempool.New()
	if err != nil {
		t.Fatalf("should be able to construct a mempool: %v", err)
	}

	g := genesis.Default()
	l := ledger.New(g, mp, nil)
	if err := l.Genesis(); err != nil {
		t.Fatalf("should be able to build genesis: %v", err)
	}

	creator := database.AccountID("NIL" + "0123456789abcdef0123456789abcdef01")
	l.Lock()
	if err := l.ApplyTransaction(database.NewBlockTx(database.SignCoinbase(creator, 100))); err != nil {
		t.Fatalf("should be able to fund creator: %v", err)
	}
	l.Unlock()

	return l, creator
}

func TestCreateEscrowsBalance(t *testing.T) {
	l, creator := newTestLedger(t)
	reg := odero.New(l)

	before := l.GetBalance(creator)

	token, err := reg.Create(creator, 25)
	if err != nil {
		t.Fatalf("should be able to create a token: %v", err)
	}

	if got := l.GetBalance(creator); got != before-25 {
		t.Fatalf("got balance %v, exp %v", got, before-25)
	}
	if got := l.GetBalance(odero.EscrowAccount); got != 25 {
		t.Fatalf("got escrow balance %v, exp 25", got)
	}
	if !token.Verify() {
		t.Fatalf("expected a freshly minted token to verify")
	}
}

func TestCreateRejectsInsufficientBalance(t *testing.T) {
	l, creator := newTestLedger(t)
	reg := odero.New(l)

	if _, err := reg.Create(creator, 1_000_000); err == nil {
		t.Fatalf("expected an error for an over-large amount")
	}
}

func TestRedeemPaysRecipientAndIsOneShot(t *testing.T) {
	l, creator := newTestLedger(t)
	reg := odero.New(l)

	token, err := reg.Create(creator, 10)
	if err != nil {
		t.Fatalf("should be able to create a token: %v", err)
	}

	recipient := database.AccountID("NIL" + "abcdef0123456789abcdef0123456789ab")

	if _, err := reg.Redeem(token.TokenID, recipient); err != nil {
		t.Fatalf("should be able to redeem a token: %v", err)
	}
	if got := l.GetBalance(recipient); got != 10 {
		t.Fatalf("got recipient balance %v, exp 10", got)
	}

	if _, err := reg.Redeem(token.TokenID, recipient); err != odero.ErrTokenRedeemed {
		t.Fatalf("expected ErrTokenRedeemed, got %v", err)
	}
}

func TestRedeemUnknownToken(t *testing.T) {
	l, _ := newTestLedger(t)
	reg := odero.New(l)

	recipient := database.AccountID("NIL" + "abcdef0123456789abcdef0123456789ab")
	if _, err := reg.Redeem("OSLWdeadbeef", recipient); err != odero.ErrTokenNotFound {
		t.Fatalf("expected ErrTokenNotFound, got %v", err)
	}
}

func TestVerify(t *testing.T) {
	l, creator := newTestLedger(t)
	reg := odero.New(l)

	token, err := reg.Create(creator, 5)
	if err != nil {
		t.Fatalf("should be able to create a token: %v", err)
	}

	if _, ok := reg.Verify(token.TokenID); !ok {
		t.Fatalf("expected token to verify before redemption")
	}

	if _, ok := reg.Verify("not-a-real-token"); ok {
		t.Fatalf("expected an unknown token to fail verification")
	}
}
