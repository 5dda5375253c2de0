package selector

import (
	"sort"

	"github.com/agrimkaushik/powledger/foundation/blockchain/database"
)

// ageSelect returns the oldest transactions first regardless of fee, with
// id ties keeping the order total. Useful on private networks where fees
// are a formality and fairness matters more.
var ageSelect = func(txs []database.SignedTx, howMany int) []database.SignedTx {
	sorted := append([]database.SignedTx{}, txs...)

	sort.Slice(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
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
