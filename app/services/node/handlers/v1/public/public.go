// Package public maintains the group of handlers for public client access.
package public

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/agrimkaushik/powledger/business/web/errs"
	"github.com/agrimkaushik/powledger/foundation/blockchain/database"
	"github.com/agrimkaushik/powledger/foundation/blockchain/state"
	"github.com/agrimkaushik/powledger/foundation/events"
	"github.com/agrimkaushik/powledger/foundation/nameservice"
	"github.com/agrimkaushik/powledger/foundation/web"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Handlers manages the set of public endpoints.
type Handlers struct {
	Log   *zap.SugaredLogger
	State *state.State
	NS    *nameservice.NameService
	WS    websocket.Upgrader
	Evts  *events.Events
}

// Events handles a web socket to provide events to a client.
func (h Handlers) Events(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	h.WS.CheckOrigin = func(r *http.Request) bool { return true }

	c, err := h.WS.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	ch := h.Evts.Acquire(v.TraceID)
	defer h.Evts.Release(v.TraceID)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg, wd := <-ch:
			if !wd {
				return nil
			}

			if err := c.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return err
			}

		case <-ticker.C:
			if err := c.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
				return nil
			}
		}
	}
}

// SubmitWalletTransaction accepts a signed transaction from a wallet and
// submits it to the mempool.
func (h Handlers) SubmitWalletTransaction(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	var signedTx database.SignedTx
	if err := web.Decode(r, &signedTx); err != nil {
		return fmt.Errorf("unable to decode payload: %w", err)
	}

	h.Log.Infow("add user tran", "traceid", v.TraceID, "from:nonce", signedTx, "to", signedTx.ToID, "amount", signedTx.Amount, "fee", signedTx.Fee)
	if err := h.State.SubmitWalletTransaction(signedTx); err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	resp := struct {
		Status string `json:"status"`
	}{
		Status: "transaction added to mempool",
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// SendTransaction has this node build, sign and submit a transaction from its
// own account to the specified account.
func (h Handlers) SendTransaction(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	var stx sendTx
	if err := web.Decode(r, &stx); err != nil {
		return fmt.Errorf("unable to decode payload: %w", err)
	}

	toID, err := database.ToAccountID(stx.To)
	if err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	h.Log.Infow("send tran", "traceid", v.TraceID, "to", toID, "amount", stx.Amount, "fee", stx.Fee)
	signedTx, err := h.State.SubmitLocalTransaction(toID, stx.Amount, stx.Fee)
	if err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	resp := struct {
		Status string `json:"status"`
		Tx     tx     `json:"tx"`
	}{
		Status: "transaction added to mempool",
		Tx:     toTx(signedTx, h.NS.Lookup),
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Genesis returns the genesis information.
func (h Handlers) Genesis(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	gen := h.State.Genesis()
	return web.Respond(ctx, w, gen, http.StatusOK)
}

// Mempool returns the set of uncommitted transactions, optionally limited to
// the ones the specified account takes part in.
func (h Handlers) Mempool(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	accountStr := web.Param(r, "account")

	var accountID database.AccountID
	if accountStr != "" {
		var err error
		accountID, err = database.ToAccountID(accountStr)
		if err != nil {
			return errs.NewTrusted(err, http.StatusBadRequest)
		}
	}

	txs := h.State.UncommittedTransactions(accountID)

	trans := make([]tx, len(txs))
	for i, signedTx := range txs {
		trans[i] = toTx(signedTx, h.NS.Lookup)
	}

	return web.Respond(ctx, w, trans, http.StatusOK)
}

// Accounts returns the projected balances for all accounts or one account.
func (h Handlers) Accounts(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	accountStr := web.Param(r, "account")

	var accts []database.Account
	switch accountStr {
	case "":
		accts = h.State.Accounts()

	default:
		accountID, err := database.ToAccountID(accountStr)
		if err != nil {
			return errs.NewTrusted(err, http.StatusBadRequest)
		}
		accts = []database.Account{{AccountID: accountID, Balance: h.State.BalanceOf(accountID)}}
	}

	acts := make([]act, len(accts))
	for i, acct := range accts {
		acts[i] = act{
			Account: acct.AccountID,
			Name:    h.NS.Lookup(acct.AccountID),
			Balance: acct.Balance,
		}
	}

	ai := actInfo{
		LatestBlock: h.State.LatestBlock().Hash(),
		Uncommitted: h.State.MempoolCount(),
		Accounts:    acts,
	}

	return web.Respond(ctx, w, ai, http.StatusOK)
}

// BlocksByNumber returns the blocks numbered from/to inclusive. The word
// latest can stand in for either side of the range.
func (h Handlers) BlocksByNumber(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	fromStr := web.Param(r, "from")
	if fromStr == "latest" || fromStr == "" {
		fromStr = fmt.Sprintf("%d", state.QueryLatest)
	}

	toStr := web.Param(r, "to")
	if toStr == "latest" || toStr == "" {
		toStr = fmt.Sprintf("%d", state.QueryLatest)
	}

	from, err := strconv.ParseUint(fromStr, 10, 64)
	if err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}
	to, err := strconv.ParseUint(toStr, 10, 64)
	if err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	if from > to {
		return errs.NewTrusted(errors.New("from greater than to"), http.StatusBadRequest)
	}

	dbBlocks := h.State.QueryBlocksByNumber(from, to)
	if len(dbBlocks) == 0 {
		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}

	blocks := make([]block, len(dbBlocks))
	for i, dbBlock := range dbBlocks {
		blocks[i] = toBlock(dbBlock, h.NS.Lookup)
	}

	return web.Respond(ctx, w, blocks, http.StatusOK)
}

// Info describes this node for clients and tooling.
func (h Handlers) Info(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	accountID := h.State.BeneficiaryID()
	latestBlock := h.State.LatestBlock()

	nfo := info{
		Account:           accountID,
		Name:              h.NS.Lookup(accountID),
		Host:              h.State.Host(),
		Miner:             h.State.IsMiner(),
		LatestBlockNumber: latestBlock.Header.Number,
		LatestBlockHash:   latestBlock.Hash(),
		Uncommitted:       h.State.MempoolCount(),
		KnownPeers:        len(h.State.KnownPeers()),
	}

	return web.Respond(ctx, w, nfo, http.StatusOK)
}

// Sample is a liveness probe for manual testing.
func (h Handlers) Sample(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	resp := struct {
		Status string `json:"status"`
	}{
		Status: "ok",
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}
