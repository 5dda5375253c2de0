// Package selector provides different transaction selecting algorithms.
package selector

import (
	"fmt"

	"github.com/agrimkaushik/powledger/foundation/blockchain/database"
)

// List of different select strategies.
const (
	StrategyFee = "fee"
	StrategyAge = "age"
)

// Map of different select strategies with functions.
var strategies = map[string]Func{
	StrategyFee: feeSelect,
	StrategyAge: ageSelect,
}

// Func defines a function that takes the pooled transactions and selects
// howMany of them in an order based on the function's strategy. Strategies
// MUST be deterministic: two nodes holding the same transactions must make
// the same selection in the same order. Receiving -1 for howMany must
// return all the transactions in the strategy's ordering.
type Func func(txs []database.SignedTx, howMany int) []database.SignedTx

// Retrieve returns the specified select strategy function.
func Retrieve(strategy string) (Func, error) {
	fn, exists := strategies[strategy]
	if !exists {
		return nil, fmt.Errorf("strategy %q does not exist", strategy)
	}
	return fn, nil
}
