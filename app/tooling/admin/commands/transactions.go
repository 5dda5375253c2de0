package commands

import (
	"fmt"
	"math"

	"github.com/agrimkaushik/powledger/foundation/blockchain/database"
	"github.com/ardanlabs/conf/v3"
)

// Transactions prints every confirmed transaction on the chain, or only the
// ones the account given as the second argument takes part in.
func Transactions(args conf.Args, db *database.Database) error {
	var onlyAccount database.AccountID
	if acct := args.Num(1); acct != "" {
		accountID, err := database.ToAccountID(acct)
		if err != nil {
			return err
		}
		onlyAccount = accountID
	}

	for _, block := range db.BlocksByNumber(0, math.MaxUint64) {
		for _, tx := range block.Trans {
			if onlyAccount != "" && tx.FromID != onlyAccount && tx.ToID != onlyAccount {
				continue
			}

			fmt.Printf("Block: %d  ID: %s  From: %s  To: %s  Amount: %d  Fee: %d\n",
				block.Header.Number, tx.ID(), tx.FromID, tx.ToID, tx.Amount, tx.Fee)
		}
	}

	return nil
}
