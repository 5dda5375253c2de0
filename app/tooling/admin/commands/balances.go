// Package commands holds the admin subcommands operating on a chain store.
package commands

import (
	"fmt"

	"github.com/agrimkaushik/powledger/foundation/blockchain/database"
	"github.com/ardanlabs/conf/v3"
)

// Balances prints the projected balance of every account, or of the one
// account given as the second argument.
func Balances(args conf.Args, db *database.Database) error {
	onlyAccount := args.Num(1)

	latestBlock := db.LatestBlock()
	fmt.Printf("Height: %d  Tip: %s\n\n", latestBlock.Header.Number, latestBlock.Hash())

	if onlyAccount != "" {
		accountID, err := database.ToAccountID(onlyAccount)
		if err != nil {
			return err
		}

		fmt.Printf("Account: %s  Balance: %d\n", accountID, db.BalanceOf(accountID))
		return nil
	}

	for _, account := range db.Accounts() {
		fmt.Printf("Account: %s  Balance: %d\n", account.AccountID, account.Balance)
	}

	return nil
}
