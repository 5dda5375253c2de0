package selector_test

import (
	"testing"

	"github.com/agrimkaushik/powledger/foundation/blockchain/database"
	"github.com/agrimkaushik/powledger/foundation/blockchain/mempool/selector"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

// =============================================================================

func Test_Retrieve(t *testing.T) {
	t.Log("Given the need to look up selection strategies by name.")
	{
		if _, err := selector.Retrieve(selector.StrategyFee); err != nil {
			t.Fatalf("\t%s\tShould find the fee strategy: %v", failed, err)
		}
		t.Logf("\t%s\tShould find the fee strategy.", success)

		if _, err := selector.Retrieve(selector.StrategyAge); err != nil {
			t.Fatalf("\t%s\tShould find the age strategy: %v", failed, err)
		}
		t.Logf("\t%s\tShould find the age strategy.", success)

		if _, err := selector.Retrieve("bogus"); err == nil {
			t.Fatalf("\t%s\tShould refuse an unknown strategy.", failed)
		}
		t.Logf("\t%s\tShould refuse an unknown strategy.", success)
	}
}

func Test_Ordering(t *testing.T) {
	// The selection only reads fees, timestamps and derived ids, so the
	// transactions don't need signatures here.
	txs := []database.SignedTx{
		makeTx(1, 10, 300),
		makeTx(2, 50, 200),
		makeTx(3, 30, 100),
		makeTx(4, 50, 150),
	}

	type table struct {
		name     string
		strategy string
		howMany  int
		order    []uint64 // Expected nonce order.
	}

	tt := []table{
		{name: "fee order", strategy: selector.StrategyFee, howMany: -1, order: []uint64{4, 2, 3, 1}},
		{name: "fee top two", strategy: selector.StrategyFee, howMany: 2, order: []uint64{4, 2}},
		{name: "fee over ask", strategy: selector.StrategyFee, howMany: 99, order: []uint64{4, 2, 3, 1}},
		{name: "age order", strategy: selector.StrategyAge, howMany: -1, order: []uint64{3, 4, 2, 1}},
	}

	t.Log("Given the need to select transactions deterministically.")
	{
		for testID, tst := range tt {
			t.Logf("\tTest %d:\tWhen running the %s strategy.", testID, tst.strategy)
			{
				f := func(t *testing.T) {
					selectFn, err := selector.Retrieve(tst.strategy)
					if err != nil {
						t.Fatalf("\t%s\tTest %d:\tShould find the strategy: %v", failed, testID, err)
					}

					picked := selectFn(txs, tst.howMany)
					if len(picked) != len(tst.order) {
						t.Fatalf("\t%s\tTest %d:\tShould select %d transactions, got %d.", failed, testID, len(tst.order), len(picked))
					}
					t.Logf("\t%s\tTest %d:\tShould select %d transactions.", success, testID, len(tst.order))

					for i, nonce := range tst.order {
						if picked[i].Nonce != nonce {
							t.Fatalf("\t%s\tTest %d:\tShould see nonce %d at position %d, got %d.", failed, testID, nonce, i, picked[i].Nonce)
						}
					}
					t.Logf("\t%s\tTest %d:\tShould keep the strategy's order.", success, testID)

					// The input order must not leak into the result.
					reversed := make([]database.SignedTx, 0, len(txs))
					for i := len(txs) - 1; i >= 0; i-- {
						reversed = append(reversed, txs[i])
					}

					again := selectFn(reversed, tst.howMany)
					for i := range picked {
						if again[i].Nonce != picked[i].Nonce {
							t.Fatalf("\t%s\tTest %d:\tShould select the same order regardless of input order.", failed, testID)
						}
					}
					t.Logf("\t%s\tTest %d:\tShould select the same order regardless of input order.", success, testID)
				}

				t.Run(tst.name, f)
			}
		}
	}
}

func Test_AgeTieBreak(t *testing.T) {
	t.Log("Given the need for a total order when timestamps collide.")
	{
		a := makeTx(1, 10, 100)
		b := makeTx(2, 20, 100)

		selectFn, err := selector.Retrieve(selector.StrategyAge)
		if err != nil {
			t.Fatalf("\t%s\tShould find the age strategy: %v", failed, err)
		}

		first := selectFn([]database.SignedTx{a, b}, -1)
		second := selectFn([]database.SignedTx{b, a}, -1)

		for i := range first {
			if first[i].Nonce != second[i].Nonce {
				t.Fatalf("\t%s\tShould break timestamp ties the same way every time.", failed)
			}
		}
		t.Logf("\t%s\tShould break timestamp ties the same way every time.", success)
	}
}

// =============================================================================

// makeTx builds an unsigned transaction carrying just what the strategies
// read, with the nonce doubling as a label.
func makeTx(nonce uint64, fee uint64, timeStamp uint64) database.SignedTx {
	return database.SignedTx{
		Tx: database.Tx{
			ChainID:   1,
			Nonce:     nonce,
			FromID:    "0xdd6B972ffcc631a62CAE1BB9d80b7ff429c8ebA4",
			ToID:      "0xF01813E4B85e178A83e29B8E7bF26BD830a25f32",
			Amount:    100,
			Fee:       fee,
			TimeStamp: timeStamp,
		},
	}
}
