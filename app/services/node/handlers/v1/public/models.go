package public

import (
	"github.com/agrimkaushik/powledger/business/sys/validate"
	"github.com/agrimkaushik/powledger/foundation/blockchain/database"
)

// sendTx is what a client posts to have this node build, sign and submit a
// transaction from its own account.
type sendTx struct {
	To     string `json:"to" validate:"required"`
	Amount uint64 `json:"amount" validate:"required,gt=0"`
	Fee    uint64 `json:"fee"`
}

// Validate checks the posted data against the field rules.
func (stx sendTx) Validate() error {
	return validate.Check(stx)
}

// =============================================================================

// act represents the projected balance of an account with its known name.
type act struct {
	Account database.AccountID `json:"account"`
	Name    string             `json:"name"`
	Balance uint64             `json:"balance"`
}

// actInfo is the account listing anchored at the tip it was projected from.
type actInfo struct {
	LatestBlock string `json:"latest_block"`
	Uncommitted int    `json:"uncommitted"`
	Accounts    []act  `json:"accounts"`
}

// tx is the presentation of a transaction with names resolved.
type tx struct {
	FromAccount database.AccountID `json:"from"`
	FromName    string             `json:"from_name"`
	To          database.AccountID `json:"to"`
	ToName      string             `json:"to_name"`
	ChainID     uint16             `json:"chain_id"`
	Nonce       uint64             `json:"nonce"`
	Amount      uint64             `json:"amount"`
	Fee         uint64             `json:"fee"`
	TimeStamp   uint64             `json:"timestamp"`
	Sig         string             `json:"sig"`
}

// block is the presentation of a block with its transactions resolved.
type block struct {
	Hash          string             `json:"hash"`
	PrevBlockHash string             `json:"prev_block_hash"`
	Number        uint64             `json:"number"`
	TimeStamp     uint64             `json:"timestamp"`
	Beneficiary   database.AccountID `json:"beneficiary"`
	Difficulty    uint16             `json:"difficulty"`
	TransRoot     string             `json:"trans_root"`
	Nonce         uint64             `json:"nonce"`
	Transactions  []tx               `json:"txs"`
}

// info describes this node for clients and tooling.
type info struct {
	Account           database.AccountID `json:"account"`
	Name              string             `json:"name"`
	Host              string             `json:"host"`
	Miner             bool               `json:"miner"`
	LatestBlockNumber uint64             `json:"latest_block_number"`
	LatestBlockHash   string             `json:"latest_block_hash"`
	Uncommitted       int                `json:"uncommitted"`
	KnownPeers        int                `json:"known_peers"`
}

// =============================================================================

// toTx resolves a signed transaction into its presentation. The reward
// transaction carries no signature.
func toTx(signedTx database.SignedTx, lookup func(database.AccountID) string) tx {
	var sig string
	if !signedTx.IsCoinbase() {
		sig = signedTx.SignatureString()
	}

	return tx{
		FromAccount: signedTx.FromID,
		FromName:    lookup(signedTx.FromID),
		To:          signedTx.ToID,
		ToName:      lookup(signedTx.ToID),
		ChainID:     signedTx.ChainID,
		Nonce:       signedTx.Nonce,
		Amount:      signedTx.Amount,
		Fee:         signedTx.Fee,
		TimeStamp:   signedTx.TimeStamp,
		Sig:         sig,
	}
}

// toBlock resolves a database block into its presentation.
func toBlock(blk database.Block, lookup func(database.AccountID) string) block {
	trans := make([]tx, len(blk.Trans))
	for i, signedTx := range blk.Trans {
		trans[i] = toTx(signedTx, lookup)
	}

	return block{
		Hash:          blk.Hash(),
		PrevBlockHash: blk.Header.PrevBlockHash,
		Number:        blk.Header.Number,
		TimeStamp:     blk.Header.TimeStamp,
		Beneficiary:   blk.Header.BeneficiaryID,
		Difficulty:    blk.Header.Difficulty,
		TransRoot:     blk.Header.TransRoot,
		Nonce:         blk.Header.Nonce,
		Transactions:  trans,
	}
}
