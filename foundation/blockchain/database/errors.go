package database

import "errors"

// Error values named by the admission and validation rules. Rejections are
// wrapped around these so callers can key their handling off errors.Is.
var (
	// ErrInvalidSignature is returned when a transaction's signature fails
	// verification or recovers a different account than it claims.
	ErrInvalidSignature = errors.New("invalid signature")

	// ErrInsufficientBalance is returned when a transaction spends more
	// than the sender's confirmed balance net of its pending spending.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrDuplicateTx is returned when a transaction id is already pending
	// or already confirmed on the chain.
	ErrDuplicateTx = errors.New("duplicate transaction")

	// ErrInvalidBlockLink is returned when a block doesn't link to the tip
	// of the chain by number and previous block hash.
	ErrInvalidBlockLink = errors.New("invalid block link")

	// ErrDifficultyNotMet is returned when a block hash doesn't carry the
	// required leading zero hex digits.
	ErrDifficultyNotMet = errors.New("difficulty not met")

	// ErrBlockSizeExceeded is returned when a block carries more
	// transactions than the network permits.
	ErrBlockSizeExceeded = errors.New("block size exceeded")

	// ErrMalformedCoinbase is returned when a block's reward transaction is
	// missing, misplaced, duplicated, or pays the wrong amount.
	ErrMalformedCoinbase = errors.New("malformed reward transaction")

	// ErrNegativeBalance is returned when replaying a block would drive an
	// account's balance below zero.
	ErrNegativeBalance = errors.New("negative balance projection")

	// ErrChainInvalid is returned when a candidate chain fails full
	// validation from its genesis block.
	ErrChainInvalid = errors.New("chain failed validation")

	// ErrChainNotBetter is returned when a candidate chain doesn't strictly
	// beat the current chain under the fork choice rule.
	ErrChainNotBetter = errors.New("chain is not better than the current chain")
)
