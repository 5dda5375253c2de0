package database

import (
	"crypto/ecdsa"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/agrimkaushik/powledger/foundation/blockchain/signature"
)

// =============================================================================

// Tx is the transactional information between two parties.
type Tx struct {
	ChainID   uint16    `json:"chain_id"`  // The chain id the transaction was created for.
	Nonce     uint64    `json:"nonce"`     // Random value that keeps the transaction id unique.
	FromID    AccountID `json:"from"`      // Account sending the money.
	ToID      AccountID `json:"to"`        // Account receiving the benefit of the transaction.
	Amount    uint64    `json:"amount"`    // Monetary value received from this transaction.
	Fee       uint64    `json:"fee"`       // Fee offered by the sender as an incentive to mine this transaction.
	TimeStamp uint64    `json:"timestamp"` // The time the transaction was created.
}

// NewTx constructs a new transaction between two parties. The nonce and the
// timestamp are captured here so the same transfer submitted twice still
// produces two distinct transaction ids.
func NewTx(chainID uint16, fromID AccountID, toID AccountID, amount uint64, fee uint64) (Tx, error) {
	if !fromID.IsAccountID() {
		return Tx{}, fmt.Errorf("from account is not properly formatted")
	}
	if !toID.IsAccountID() {
		return Tx{}, fmt.Errorf("to account is not properly formatted")
	}

	nonce, err := newNonce()
	if err != nil {
		return Tx{}, err
	}

	tx := Tx{
		ChainID:   chainID,
		Nonce:     nonce,
		FromID:    fromID,
		ToID:      toID,
		Amount:    amount,
		Fee:       fee,
		TimeStamp: uint64(time.Now().UTC().Unix()),
	}

	return tx, nil
}

// ID returns a unique identifier for the transaction, derived from the core
// transaction fields. Every node derives the same id for the same
// transaction.
func (tx Tx) ID() string {
	return signature.Hash(tx)
}

// Sign uses the specified private key to sign the transaction. The key must
// belong to the from account or the signed transaction will never validate.
func (tx Tx) Sign(privateKey *ecdsa.PrivateKey) (SignedTx, error) {

	// The signing key decides the recovered address, so catch a mismatch
	// with the from account right here at the source.
	if PublicKeyToAccountID(privateKey.PublicKey) != tx.FromID {
		return SignedTx{}, errors.New("signing key does not match the from account")
	}

	// Sign the transaction with the private key to produce a signature.
	v, r, s, err := signature.Sign(tx, privateKey)
	if err != nil {
		return SignedTx{}, err
	}

	// Construct the signed transaction by adding the signature
	// in the [R|S|V] format.
	signedTx := SignedTx{
		Tx: tx,
		V:  v,
		R:  r,
		S:  s,
	}

	return signedTx, nil
}

// newNonce produces a crypto-quality random nonce.
func newNonce() (uint64, error) {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0, err
	}

	return binary.BigEndian.Uint64(b[:]), nil
}

// =============================================================================

// SignedTx is a signed version of the transaction. This is how clients like
// a wallet provide transactions for inclusion into the blockchain. The
// reward transaction inside a block is the one exception: it carries no
// signature and names the coinbase sentinel as its sender.
type SignedTx struct {
	Tx
	V *big.Int `json:"v"` // Recovery identifier, either 31 or 32 with the ledger id.
	R *big.Int `json:"r"` // First coordinate of the ECDSA signature.
	S *big.Int `json:"s"` // Second coordinate of the ECDSA signature.
}

// Validate verifies the transaction has a proper signature that conforms to
// our standards, that the signer is the claimed from account, and that the
// transaction was created for this chain.
func (tx SignedTx) Validate(chainID uint16) error {
	if tx.ChainID != chainID {
		return fmt.Errorf("invalid chain id, got %d, exp %d", tx.ChainID, chainID)
	}

	if !tx.FromID.IsAccountID() {
		return errors.New("from account is not properly formatted")
	}

	if !tx.ToID.IsAccountID() {
		return errors.New("to account is not properly formatted")
	}

	if tx.FromID == tx.ToID {
		return fmt.Errorf("transaction invalid, sending money to yourself, from %s, to %s", tx.FromID, tx.ToID)
	}

	if err := signature.VerifySignature(tx.V, tx.R, tx.S); err != nil {
		return err
	}

	address, err := signature.FromAddress(tx.Tx, tx.V, tx.R, tx.S)
	if err != nil {
		return err
	}

	if address != string(tx.FromID) {
		return errors.New("signature address doesn't match from address")
	}

	return nil
}

// IsCoinbase reports whether this is the reward transaction of a block.
func (tx SignedTx) IsCoinbase() bool {
	return tx.FromID == CoinbaseAccount
}

// SignatureString returns the signature as a string.
func (tx SignedTx) SignatureString() string {
	return signature.SignatureString(tx.V, tx.R, tx.S)
}

// String implements the fmt.Stringer interface for logging.
func (tx SignedTx) String() string {
	return fmt.Sprintf("%s:%d", tx.FromID, tx.Nonce)
}

// =============================================================================

// NewCoinbaseTx constructs the reward transaction carried first in every
// mined block. The amount folds the block's fees into the base reward and
// the block number keeps the id unique for the same beneficiary.
func NewCoinbaseTx(chainID uint16, beneficiaryID AccountID, reward uint64, fees uint64, blockNumber uint64) SignedTx {
	tx := Tx{
		ChainID:   chainID,
		Nonce:     blockNumber,
		FromID:    CoinbaseAccount,
		ToID:      beneficiaryID,
		Amount:    reward + fees,
		TimeStamp: uint64(time.Now().UTC().Unix()),
	}

	return SignedTx{Tx: tx}
}
