package mempool_test

import (
	"crypto/ecdsa"
	"errors"
	"testing"

	"github.com/agrimkaushik/powledger/foundation/blockchain/database"
	"github.com/agrimkaushik/powledger/foundation/blockchain/mempool"
	"github.com/agrimkaushik/powledger/foundation/blockchain/mempool/selector"
	"github.com/ethereum/go-ethereum/crypto"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

const chainID = 1

// chainView stubs the confirmed chain for the admission rules.
type chainView struct {
	balances  map[database.AccountID]uint64
	confirmed map[string]bool
}

func (cv chainView) ChainID() uint16 {
	return chainID
}

func (cv chainView) BalanceOf(accountID database.AccountID) uint64 {
	return cv.balances[accountID]
}

func (cv chainView) HasTransaction(id string) bool {
	return cv.confirmed[id]
}

// =============================================================================

func Test_Admission(t *testing.T) {
	aliceKey, aliceID := newAccount(t)
	_, bobID := newAccount(t)

	t.Log("Given the need to gate what enters the pool.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen transactions compete for one account's balance.", testID)
		{
			view := chainView{
				balances:  map[database.AccountID]uint64{aliceID: 100},
				confirmed: map[string]bool{},
			}

			mp, err := mempool.New()
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to construct a mempool: %v", failed, testID, err)
			}

			tx1 := signTx(t, aliceKey, bobID, 60, 0, 100)
			if err := mp.Admit(tx1, view); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould admit a transaction the balance covers: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould admit a transaction the balance covers.", success, testID)

			if err := mp.Admit(tx1, view); !errors.Is(err, database.ErrDuplicateTx) {
				t.Fatalf("\t%s\tTest %d:\tShould refuse a transaction already pending: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould refuse a transaction already pending.", success, testID)

			tx2 := signTx(t, aliceKey, bobID, 50, 0, 101)
			if err := mp.Admit(tx2, view); !errors.Is(err, database.ErrInsufficientBalance) {
				t.Fatalf("\t%s\tTest %d:\tShould count pending spending against the balance: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould count pending spending against the balance.", success, testID)

			tx3 := signTx(t, aliceKey, bobID, 40, 0, 102)
			if err := mp.Admit(tx3, view); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould admit a transaction spending exactly the rest: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould admit a transaction spending exactly the rest.", success, testID)

			tx4 := signTx(t, aliceKey, bobID, 1, 0, 103)
			if err := mp.Admit(tx4, view); !errors.Is(err, database.ErrInsufficientBalance) {
				t.Fatalf("\t%s\tTest %d:\tShould refuse once the balance is spoken for: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould refuse once the balance is spoken for.", success, testID)

			if got := mp.Count(); got != 2 {
				t.Fatalf("\t%s\tTest %d:\tShould hold 2 transactions, got %d.", failed, testID, got)
			}
			t.Logf("\t%s\tTest %d:\tShould hold 2 transactions.", success, testID)
		}

		testID = 1
		t.Logf("\tTest %d:\tWhen a transaction was already confirmed.", testID)
		{
			tx := signTx(t, aliceKey, bobID, 10, 1, 100)

			view := chainView{
				balances:  map[database.AccountID]uint64{aliceID: 1000},
				confirmed: map[string]bool{tx.ID(): true},
			}

			mp, err := mempool.New()
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to construct a mempool: %v", failed, testID, err)
			}

			if err := mp.Admit(tx, view); !errors.Is(err, database.ErrDuplicateTx) {
				t.Fatalf("\t%s\tTest %d:\tShould refuse a confirmed transaction: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould refuse a confirmed transaction.", success, testID)
		}

		testID = 2
		t.Logf("\tTest %d:\tWhen the signature does not hold.", testID)
		{
			view := chainView{
				balances:  map[database.AccountID]uint64{aliceID: 1000},
				confirmed: map[string]bool{},
			}

			mp, err := mempool.New()
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to construct a mempool: %v", failed, testID, err)
			}

			tampered := signTx(t, aliceKey, bobID, 10, 1, 100)
			tampered.Amount = 999

			if err := mp.Admit(tampered, view); !errors.Is(err, database.ErrInvalidSignature) {
				t.Fatalf("\t%s\tTest %d:\tShould refuse a tampered transaction: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould refuse a tampered transaction.", success, testID)

			foreign := signTxForChain(t, aliceKey, bobID, chainID+1)
			if err := mp.Admit(foreign, view); !errors.Is(err, database.ErrInvalidSignature) {
				t.Fatalf("\t%s\tTest %d:\tShould refuse a transaction for another chain: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould refuse a transaction for another chain.", success, testID)
		}
	}
}

func Test_PickBest(t *testing.T) {
	aliceKey, aliceID := newAccount(t)
	_, bobID := newAccount(t)

	view := chainView{
		balances:  map[database.AccountID]uint64{aliceID: 1_000_000},
		confirmed: map[string]bool{},
	}

	t.Log("Given the need to pick the next block's transactions.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen the pool runs the fee strategy.", testID)
		{
			mp, err := mempool.NewWithStrategy(selector.StrategyFee)
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to construct a mempool: %v", failed, testID, err)
			}

			fees := []uint64{10, 50, 30}
			for i, fee := range fees {
				tx := signTx(t, aliceKey, bobID, 100, fee, uint64(100+i))
				if err := mp.Admit(tx, view); err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould be able to admit transaction %d: %v", failed, testID, i, err)
				}
			}
			t.Logf("\t%s\tTest %d:\tShould be able to admit the transactions.", success, testID)

			picked := mp.PickBest(2)
			if len(picked) != 2 || picked[0].Fee != 50 || picked[1].Fee != 30 {
				t.Fatalf("\t%s\tTest %d:\tShould pick the two best fees, got %v.", failed, testID, pickedFees(picked))
			}
			t.Logf("\t%s\tTest %d:\tShould pick the two best fees.", success, testID)

			all := mp.PickBest(-1)
			if len(all) != 3 || all[0].Fee != 50 || all[1].Fee != 30 || all[2].Fee != 10 {
				t.Fatalf("\t%s\tTest %d:\tShould return the whole pool in fee order, got %v.", failed, testID, pickedFees(all))
			}
			t.Logf("\t%s\tTest %d:\tShould return the whole pool in fee order.", success, testID)
		}

		testID = 1
		t.Logf("\tTest %d:\tWhen the strategy does not exist.", testID)
		{
			if _, err := mempool.NewWithStrategy("bogus"); err == nil {
				t.Fatalf("\t%s\tTest %d:\tShould refuse an unknown strategy.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould refuse an unknown strategy.", success, testID)
		}
	}
}

func Test_Reinsert(t *testing.T) {
	aliceKey, aliceID := newAccount(t)
	_, bobID := newAccount(t)

	t.Log("Given the need to requeue transactions orphaned by a chain switch.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen orphans come back after a replacement.", testID)
		{
			affordable := signTx(t, aliceKey, bobID, 50, 1, 100)
			confirmed := signTx(t, aliceKey, bobID, 10, 1, 101)
			tooRich := signTx(t, aliceKey, bobID, 5000, 0, 102)

			view := chainView{
				balances:  map[database.AccountID]uint64{aliceID: 100},
				confirmed: map[string]bool{confirmed.ID(): true},
			}

			mp, err := mempool.New()
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to construct a mempool: %v", failed, testID, err)
			}

			if !mp.ReinsertIfEligible(affordable, view) {
				t.Fatalf("\t%s\tTest %d:\tShould requeue an affordable orphan.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould requeue an affordable orphan.", success, testID)

			if mp.ReinsertIfEligible(affordable, view) {
				t.Fatalf("\t%s\tTest %d:\tShould not requeue an orphan twice.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould not requeue an orphan twice.", success, testID)

			if mp.ReinsertIfEligible(confirmed, view) {
				t.Fatalf("\t%s\tTest %d:\tShould not requeue a transaction the new chain confirmed.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould not requeue a transaction the new chain confirmed.", success, testID)

			if mp.ReinsertIfEligible(tooRich, view) {
				t.Fatalf("\t%s\tTest %d:\tShould not requeue an orphan the new chain can't afford.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould not requeue an orphan the new chain can't afford.", success, testID)

			if got := mp.Count(); got != 1 {
				t.Fatalf("\t%s\tTest %d:\tShould hold exactly the requeued orphan, got %d.", failed, testID, got)
			}
			t.Logf("\t%s\tTest %d:\tShould hold exactly the requeued orphan.", success, testID)
		}
	}
}

func Test_CRUD(t *testing.T) {
	aliceKey, aliceID := newAccount(t)
	_, bobID := newAccount(t)

	view := chainView{
		balances:  map[database.AccountID]uint64{aliceID: 1000},
		confirmed: map[string]bool{},
	}

	t.Log("Given the need to manage the pool's contents.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen transactions come and go.", testID)
		{
			mp, err := mempool.New()
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to construct a mempool: %v", failed, testID, err)
			}

			tx1 := signTx(t, aliceKey, bobID, 10, 1, 100)
			tx2 := signTx(t, aliceKey, bobID, 20, 2, 101)

			if err := mp.Admit(tx1, view); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to admit tx1: %v", failed, testID, err)
			}
			if err := mp.Admit(tx2, view); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to admit tx2: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould be able to admit both transactions.", success, testID)

			if !mp.Contains(tx1.ID()) || !mp.Contains(tx2.ID()) {
				t.Fatalf("\t%s\tTest %d:\tShould report both transactions pending.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould report both transactions pending.", success, testID)

			if got := len(mp.Copy()); got != 2 {
				t.Fatalf("\t%s\tTest %d:\tShould copy 2 transactions, got %d.", failed, testID, got)
			}
			t.Logf("\t%s\tTest %d:\tShould copy 2 transactions.", success, testID)

			mp.Delete(tx1)
			if mp.Contains(tx1.ID()) || mp.Count() != 1 {
				t.Fatalf("\t%s\tTest %d:\tShould be able to delete a transaction.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould be able to delete a transaction.", success, testID)

			mp.Truncate()
			if got := mp.Count(); got != 0 {
				t.Fatalf("\t%s\tTest %d:\tShould be able to truncate the pool, got %d.", failed, testID, got)
			}
			t.Logf("\t%s\tTest %d:\tShould be able to truncate the pool.", success, testID)
		}
	}
}

// =============================================================================

// newAccount generates a fresh key pair for a test persona.
func newAccount(t *testing.T) (*ecdsa.PrivateKey, database.AccountID) {
	t.Helper()

	privateKey, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("\t%s\tShould be able to generate a private key: %v", failed, err)
	}

	return privateKey, database.PublicKeyToAccountID(privateKey.PublicKey)
}

// signTx signs a transaction with a fixed timestamp so selection order is
// under the test's control.
func signTx(t *testing.T, privateKey *ecdsa.PrivateKey, to database.AccountID, amount uint64, fee uint64, timeStamp uint64) database.SignedTx {
	t.Helper()

	tx := database.Tx{
		ChainID:   chainID,
		Nonce:     timeStamp,
		FromID:    database.PublicKeyToAccountID(privateKey.PublicKey),
		ToID:      to,
		Amount:    amount,
		Fee:       fee,
		TimeStamp: timeStamp,
	}

	signedTx, err := tx.Sign(privateKey)
	if err != nil {
		t.Fatalf("\t%s\tShould be able to sign a transaction: %v", failed, err)
	}

	return signedTx
}

// signTxForChain signs a minimal transaction for the given chain id.
func signTxForChain(t *testing.T, privateKey *ecdsa.PrivateKey, to database.AccountID, forChain uint16) database.SignedTx {
	t.Helper()

	tx := database.Tx{
		ChainID:   forChain,
		Nonce:     1,
		FromID:    database.PublicKeyToAccountID(privateKey.PublicKey),
		ToID:      to,
		Amount:    10,
		Fee:       1,
		TimeStamp: 100,
	}

	signedTx, err := tx.Sign(privateKey)
	if err != nil {
		t.Fatalf("\t%s\tShould be able to sign a transaction: %v", failed, err)
	}

	return signedTx
}

// pickedFees pulls the fees out for a readable failure message.
func pickedFees(txs []database.SignedTx) []uint64 {
	fees := make([]uint64, len(txs))
	for i, tx := range txs {
		fees[i] = tx.Fee
	}

	return fees
}
