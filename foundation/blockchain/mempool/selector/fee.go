package selector

import (
	"sort"

	"github.com/agrimkaushik/powledger/foundation/blockchain/database"
)

// feeSelect returns the highest paying transactions first. Fee ties fall to
// the older transaction, and id ties on top of that keep the order total,
// so every node holding the same pool builds the exact same block.
var feeSelect = func(txs []database.SignedTx, howMany int) []database.SignedTx {
	sorted := append([]database.SignedTx{}, txs...)

	sort.Slice(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Fee != b.Fee {
			return a.Fee > b.Fee
		}
		if a.TimeStamp != b.TimeStamp {
			return a.TimeStamp < b.TimeStamp
		}
		return a.ID() < b.ID()
	})

	if howMany == -1 || howMany > len(sorted) {
		howMany = len(sorted)
	}

	return sorted[:howMany]
}
