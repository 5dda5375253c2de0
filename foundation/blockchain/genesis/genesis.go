// Package genesis maintains access to the genesis file.
package genesis

import (
	"encoding/json"
	"os"
	"time"
)

// Genesis represents the genesis file. Every node on the network must run
// with the same genesis information or their chains will never agree.
type Genesis struct {
	Date           time.Time         `json:"date"`
	ChainID        uint16            `json:"chain_id"`        // An unique id for this running network.
	TransPerBlock  uint16            `json:"trans_per_block"` // The maximum number of transactions in a block, the reward transaction included.
	Difficulty     uint16            `json:"difficulty"`      // The number of leading zero hex digits a solved block hash must carry.
	MiningReward   uint64            `json:"mining_reward"`   // Base reward for mining a block, block fees excluded.
	InitialBalance uint64            `json:"initial_balance"` // Opening balance for any account not named in the balance sheet.
	Balances       map[string]uint64 `json:"balance_sheet"`   // Accounts with explicit opening balances.
}

// =============================================================================

// Load opens and consumes the genesis file.
func Load(path string) (Genesis, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Genesis{}, err
	}

	var genesis Genesis
	err = json.Unmarshal(content, &genesis)
	if err != nil {
		return Genesis{}, err
	}

	return genesis, nil
}
