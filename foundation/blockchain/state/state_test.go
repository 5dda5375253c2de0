package state_test

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"testing"
	"time"

	"github.com/agrimkaushik/powledger/foundation/blockchain/database"
	"github.com/agrimkaushik/powledger/foundation/blockchain/database/storage/memory"
	"github.com/agrimkaushik/powledger/foundation/blockchain/genesis"
	"github.com/agrimkaushik/powledger/foundation/blockchain/peer"
	"github.com/agrimkaushik/powledger/foundation/blockchain/state"
	"github.com/ethereum/go-ethereum/crypto"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

// =============================================================================

// testWorker stands in for the background workflows. The state only ever
// signals it, so counters are all the tests need.
type testWorker struct {
	shareTx     int
	startMining int
	cancels     int
}

func (w *testWorker) Shutdown() {}

func (w *testWorker) SignalStartMining() {
	w.startMining++
}

func (w *testWorker) SignalShareTx(tx database.SignedTx) {
	w.shareTx++
}

func (w *testWorker) SignalCancelMining() (done func()) {
	w.cancels++
	return func() {}
}

// =============================================================================

func Test_MiningFlow(t *testing.T) {
	aliceKey, aliceID := newAccount(t)
	_, bobID := newAccount(t)

	gen := testGenesis(map[string]uint64{string(aliceID): 1000})

	t.Log("Given the need to move submitted transactions into mined blocks.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen a wallet submits a transaction.", testID)
		{
			st, worker := newNode(t, gen)

			tx := signTx(t, gen, aliceKey, bobID, 100, 10)
			if err := st.SubmitWalletTransaction(tx); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould accept the transaction: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould accept the transaction.", success, testID)

			if worker.shareTx != 1 || worker.startMining != 1 {
				t.Fatalf("\t%s\tTest %d:\tShould signal sharing and mining once, got share[%d] mine[%d].", failed, testID, worker.shareTx, worker.startMining)
			}
			t.Logf("\t%s\tTest %d:\tShould signal sharing and mining once.", success, testID)

			if got := st.MempoolCount(); got != 1 {
				t.Fatalf("\t%s\tTest %d:\tShould hold 1 pending transaction, got %d.", failed, testID, got)
			}
			t.Logf("\t%s\tTest %d:\tShould hold 1 pending transaction.", success, testID)

			pending := st.UncommittedTransactions(bobID)
			if len(pending) != 1 || pending[0].ID() != tx.ID() {
				t.Fatalf("\t%s\tTest %d:\tShould list the pending transaction for the receiver.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould list the pending transaction for the receiver.", success, testID)

			block, err := st.MineNewBlock(context.Background())
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to mine a block: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould be able to mine a block.", success, testID)

			if block.Header.Number != 1 || st.LatestBlock().Hash() != block.Hash() {
				t.Fatalf("\t%s\tTest %d:\tShould sit on the mined block.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould sit on the mined block.", success, testID)

			if got := st.MempoolCount(); got != 0 {
				t.Fatalf("\t%s\tTest %d:\tShould drain the mined transactions, got %d.", failed, testID, got)
			}
			t.Logf("\t%s\tTest %d:\tShould drain the mined transactions.", success, testID)

			if got, want := st.BalanceOf(bobID), gen.InitialBalance+100; got != want {
				t.Fatalf("\t%s\tTest %d:\tShould credit the receiver %d, got %d.", failed, testID, want, got)
			}
			if got, want := st.BalanceOf(st.BeneficiaryID()), gen.InitialBalance+gen.MiningReward+10; got != want {
				t.Fatalf("\t%s\tTest %d:\tShould credit the miner %d, got %d.", failed, testID, want, got)
			}
			t.Logf("\t%s\tTest %d:\tShould credit the receiver and the miner.", success, testID)

			if _, err := st.MineNewBlock(context.Background()); !errors.Is(err, state.ErrNoTransactions) {
				t.Fatalf("\t%s\tTest %d:\tShould refuse to mine an empty block: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould refuse to mine an empty block.", success, testID)

			if err := st.SubmitWalletTransaction(tx); !errors.Is(err, database.ErrDuplicateTx) {
				t.Fatalf("\t%s\tTest %d:\tShould refuse a transaction already confirmed: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould refuse a transaction already confirmed.", success, testID)
		}

		testID = 1
		t.Logf("\tTest %d:\tWhen the node submits from its own account.", testID)
		{
			st, worker := newNode(t, gen)

			// The node account starts at the initial balance, which covers
			// a small payment.
			signedTx, err := st.SubmitLocalTransaction(bobID, 10, 1)
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould accept the node's own transaction: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould accept the node's own transaction.", success, testID)

			if signedTx.FromID != st.BeneficiaryID() {
				t.Fatalf("\t%s\tTest %d:\tShould sign from the node account.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould sign from the node account.", success, testID)

			if worker.shareTx != 1 || st.MempoolCount() != 1 {
				t.Fatalf("\t%s\tTest %d:\tShould share and hold the transaction.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould share and hold the transaction.", success, testID)
		}
	}
}

func Test_ProposedBlocks(t *testing.T) {
	aliceKey, aliceID := newAccount(t)
	_, bobID := newAccount(t)

	gen := testGenesis(map[string]uint64{string(aliceID): 1000})

	t.Log("Given the need to process blocks arriving from peers.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen a peer proposes the next block.", testID)
		{
			stA, workerA := newNode(t, gen)
			stB, _ := newNode(t, gen)

			txB := signTx(t, gen, aliceKey, bobID, 100, 10)
			if err := stB.SubmitWalletTransaction(txB); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould accept the transaction on node B: %v", failed, testID, err)
			}

			blockB1, err := stB.MineNewBlock(context.Background())
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to mine on node B: %v", failed, testID, err)
			}

			// A stale solution that still points at the tip must not get in.
			bad := blockB1
			bad.Header.Nonce = breakNonce(bad)
			if err := stA.ProcessProposedBlock(bad); err == nil {
				t.Fatalf("\t%s\tTest %d:\tShould reject a broken proposal.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould reject a broken proposal.", success, testID)

			if got := stA.LatestBlock().Header.Number; got != 0 {
				t.Fatalf("\t%s\tTest %d:\tShould stay at genesis after a broken proposal, got block %d.", failed, testID, got)
			}
			t.Logf("\t%s\tTest %d:\tShould stay at genesis after a broken proposal.", success, testID)

			if err := stA.ProcessProposedBlock(blockB1); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould accept the proposal: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould accept the proposal.", success, testID)

			if stA.LatestBlock().Hash() != blockB1.Hash() {
				t.Fatalf("\t%s\tTest %d:\tShould sit on the proposed block.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould sit on the proposed block.", success, testID)

			if workerA.cancels == 0 {
				t.Fatalf("\t%s\tTest %d:\tShould cancel any mining in flight.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould cancel any mining in flight.", success, testID)

			cancels := workerA.cancels
			if err := stA.ProcessProposedBlock(blockB1); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould swallow a repeated proposal: %v", failed, testID, err)
			}
			if workerA.cancels != cancels {
				t.Fatalf("\t%s\tTest %d:\tShould not touch the miner for a repeated proposal.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould swallow a repeated proposal.", success, testID)
		}

		testID = 1
		t.Logf("\tTest %d:\tWhen a proposal skips ahead of the chain.", testID)
		{
			stB, _ := newNode(t, gen)
			stC, workerC := newNode(t, gen)

			tx1 := signTx(t, gen, aliceKey, bobID, 10, 1)
			if err := stB.SubmitWalletTransaction(tx1); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould accept the first transaction on node B: %v", failed, testID, err)
			}
			if _, err := stB.MineNewBlock(context.Background()); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to mine block 1 on node B: %v", failed, testID, err)
			}

			tx2 := signTx(t, gen, aliceKey, bobID, 20, 2)
			if err := stB.SubmitWalletTransaction(tx2); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould accept the second transaction on node B: %v", failed, testID, err)
			}
			blockB2, err := stB.MineNewBlock(context.Background())
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to mine block 2 on node B: %v", failed, testID, err)
			}

			// Node C never saw block 1, so block 2 cannot extend its tip.
			// The proposal is left to the chain sync.
			if err := stC.ProcessProposedBlock(blockB2); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould defer a proposal that skips ahead: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould defer a proposal that skips ahead.", success, testID)

			if got := stC.LatestBlock().Header.Number; got != 0 {
				t.Fatalf("\t%s\tTest %d:\tShould stay at genesis, got block %d.", failed, testID, got)
			}
			if workerC.cancels != 0 {
				t.Fatalf("\t%s\tTest %d:\tShould not touch the miner for a deferred proposal.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould not touch the miner for a deferred proposal.", success, testID)

			// The periodic sync fetches the whole chain and converges.
			if err := stC.ProcessRemoteChain(stB.QueryBlocksByNumber(0, state.QueryLatest)); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould converge through a chain fetch: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould converge through a chain fetch.", success, testID)

			if stC.LatestBlock().Hash() != stB.LatestBlock().Hash() {
				t.Fatalf("\t%s\tTest %d:\tShould sit on node B's tip.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould sit on node B's tip.", success, testID)
		}
	}
}

func Test_ForkConvergence(t *testing.T) {
	aliceKey, aliceID := newAccount(t)
	_, bobID := newAccount(t)

	gen := testGenesis(map[string]uint64{string(aliceID): 1000})

	t.Log("Given the need to switch to a stronger chain from a peer.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen two miners split and one pulls ahead.", testID)
		{
			stA, workerA := newNode(t, gen)
			stC, _ := newNode(t, gen)

			txA := signTx(t, gen, aliceKey, bobID, 40, 5)
			if err := stA.SubmitWalletTransaction(txA); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould accept the transaction on node A: %v", failed, testID, err)
			}
			if _, err := stA.MineNewBlock(context.Background()); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to mine on node A: %v", failed, testID, err)
			}

			txC1 := signTx(t, gen, aliceKey, bobID, 10, 1)
			if err := stC.SubmitWalletTransaction(txC1); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould accept the first transaction on node C: %v", failed, testID, err)
			}
			if _, err := stC.MineNewBlock(context.Background()); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to mine block 1 on node C: %v", failed, testID, err)
			}

			txC2 := signTx(t, gen, aliceKey, bobID, 20, 2)
			if err := stC.SubmitWalletTransaction(txC2); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould accept the second transaction on node C: %v", failed, testID, err)
			}
			if _, err := stC.MineNewBlock(context.Background()); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to mine block 2 on node C: %v", failed, testID, err)
			}

			candidate := stC.QueryBlocksByNumber(0, state.QueryLatest)
			if err := stA.ProcessRemoteChain(candidate); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould adopt the longer chain: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould adopt the longer chain.", success, testID)

			if stA.LatestBlock().Hash() != stC.LatestBlock().Hash() {
				t.Fatalf("\t%s\tTest %d:\tShould sit on node C's tip.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould sit on node C's tip.", success, testID)

			if workerA.cancels == 0 {
				t.Fatalf("\t%s\tTest %d:\tShould cancel any mining in flight.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould cancel any mining in flight.", success, testID)

			// The abandoned branch's transaction competes again.
			pending := stA.UncommittedTransactions("")
			if stA.MempoolCount() != 1 || len(pending) != 1 || pending[0].ID() != txA.ID() {
				t.Fatalf("\t%s\tTest %d:\tShould requeue the orphaned transaction.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould requeue the orphaned transaction.", success, testID)

			cancels := workerA.cancels
			if err := stA.ProcessRemoteChain(candidate); !errors.Is(err, database.ErrChainNotBetter) {
				t.Fatalf("\t%s\tTest %d:\tShould refuse a chain that is not better: %v", failed, testID, err)
			}
			if workerA.cancels != cancels {
				t.Fatalf("\t%s\tTest %d:\tShould never interrupt the miner for a losing chain.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould refuse a chain that is not better without touching the miner.", success, testID)
		}
	}
}

// =============================================================================

// testGenesis returns genesis settings tuned so tests mine instantly.
func testGenesis(balances map[string]uint64) genesis.Genesis {
	return genesis.Genesis{
		Date:           time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC),
		ChainID:        1,
		TransPerBlock:  3,
		Difficulty:     1,
		MiningReward:   15,
		InitialBalance: 100,
		Balances:       balances,
	}
}

// newAccount generates a fresh key pair for a test persona.
func newAccount(t *testing.T) (*ecdsa.PrivateKey, database.AccountID) {
	t.Helper()

	privateKey, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("\t%s\tShould be able to generate a private key: %v", failed, err)
	}

	return privateKey, database.PublicKeyToAccountID(privateKey.PublicKey)
}

// newNode builds a state over fresh in-memory storage with a stub worker
// wired in the way worker.Run does it.
func newNode(t *testing.T, gen genesis.Genesis) (*state.State, *testWorker) {
	t.Helper()

	privateKey, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("\t%s\tShould be able to generate a node key: %v", failed, err)
	}

	strg, err := memory.New()
	if err != nil {
		t.Fatalf("\t%s\tShould be able to construct storage: %v", failed, err)
	}

	st, err := state.New(state.Config{
		Host:           "localhost:9080",
		Miner:          true,
		PrivateKey:     privateKey,
		Genesis:        gen,
		Storage:        strg,
		SelectStrategy: "fee",
		KnownPeers:     peer.NewPeerSet(),
	})
	if err != nil {
		t.Fatalf("\t%s\tShould be able to construct the state: %v", failed, err)
	}

	worker := testWorker{}
	st.Worker = &worker

	return st, &worker
}

// signTx creates and signs a transaction from the key owner's account.
func signTx(t *testing.T, gen genesis.Genesis, privateKey *ecdsa.PrivateKey, to database.AccountID, amount uint64, fee uint64) database.SignedTx {
	t.Helper()

	from := database.PublicKeyToAccountID(privateKey.PublicKey)

	tx, err := database.NewTx(gen.ChainID, from, to, amount, fee)
	if err != nil {
		t.Fatalf("\t%s\tShould be able to create a transaction: %v", failed, err)
	}

	signedTx, err := tx.Sign(privateKey)
	if err != nil {
		t.Fatalf("\t%s\tShould be able to sign a transaction: %v", failed, err)
	}

	return signedTx
}

// breakNonce finds a nonce that leaves the block hash unsolved without
// touching anything else about the block.
func breakNonce(block database.Block) uint64 {
	for isSolved(block.Hash()) {
		block.Header.Nonce++
	}

	return block.Header.Nonce
}

// isSolved reports whether the hash clears difficulty one.
func isSolved(hash string) bool {
	return len(hash) == 66 && hash[2] == '0'
}
