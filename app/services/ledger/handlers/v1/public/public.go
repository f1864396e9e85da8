// Package public maintains the group of handlers for public access.
package public

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ardanlabs/ledger/business/sys/validate"
	"github.com/ardanlabs/ledger/business/web/errs"
	"github.com/ardanlabs/ledger/foundation/blockchain/accounts"
	"github.com/ardanlabs/ledger/foundation/blockchain/chain"
	"github.com/ardanlabs/ledger/foundation/blockchain/signature"
	"github.com/ardanlabs/ledger/foundation/blockchain/state"
	"github.com/ardanlabs/ledger/foundation/events"
	"github.com/ardanlabs/ledger/foundation/nameservice"
	"github.com/ardanlabs/ledger/foundation/web"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Handlers manages the set of ledger endpoints.
type Handlers struct {
	Log   *zap.SugaredLogger
	State *state.State
	NS    *nameservice.NameService
	WS    websocket.Upgrader
	Evts  *events.Events
}

// Events handles a web socket to provide events to a client.
func (h Handlers) Events(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	h.WS.CheckOrigin = func(r *http.Request) bool { return true }

	c, err := h.WS.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	id, ch := h.Evts.Acquire()
	defer h.Evts.Release(id)

	h.Log.Infow("events", "traceid", web.GetTraceID(ctx), "subscriber", id)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg, wd := <-ch:
			if !wd {
				return nil
			}

			if err := c.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				h.Log.Infow("events", "traceid", web.GetTraceID(ctx), "subscriber", id, "ERROR", err)
				return nil
			}

		case <-ticker.C:
			if err := c.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
				return nil
			}
		}
	}
}

// SubmitTransaction adds a signed wallet transaction to the mempool.
func (h Handlers) SubmitTransaction(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var ntx NewTx
	if err := web.Decode(r, &ntx); err != nil {
		return errs.BadRequest(err)
	}

	if err := validate.Check(ntx); err != nil {
		return err
	}

	tran := ntx.toTransaction()

	h.Log.Infow("submit tran", "traceid", web.GetTraceID(ctx), "from:nonce", tran, "to", tran.To, "amount", tran.Amount)
	if err := h.State.SubmitTransaction(tran); err != nil {
		return errs.BadRequest(err)
	}

	resp := struct {
		Status string `json:"status"`
		ID     string `json:"id"`
	}{
		Status: "transaction added to mempool",
		ID:     tran.ID(),
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// SignalMining asks the worker to mine the transactions in the mempool.
func (h Handlers) SignalMining(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	h.State.SignalMining()

	resp := struct {
		Status      string `json:"status"`
		Uncommitted int    `json:"uncommitted"`
	}{
		Status:      "mining signaled",
		Uncommitted: h.State.QueryMempoolLength(),
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Genesis returns the genesis information.
func (h Handlers) Genesis(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.State.Genesis(), http.StatusOK)
}

// Mempool returns the set of uncommitted transactions.
func (h Handlers) Mempool(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	acct := web.Param(r, "account")

	mempool := h.State.Mempool()

	trans := make([]tx, 0, len(mempool))
	for _, tran := range mempool {
		if acct != "" && !strings.EqualFold(acct, tran.From) && !strings.EqualFold(acct, tran.To) {
			continue
		}
		trans = append(trans, h.toTx(tran))
	}

	return web.Respond(ctx, w, trans, http.StatusOK)
}

// Accounts returns the current balances for all users.
func (h Handlers) Accounts(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	account := web.Param(r, "account")

	var blkAccounts map[string]accounts.Info
	switch account {
	case "":
		blkAccounts = h.State.Accounts()

	default:
		if !signature.IsAddress(account) {
			return errs.BadRequest(fmt.Errorf("invalid account %q", account))
		}

		blkInfo, err := h.State.QueryAccount(account)
		if err != nil {
			if errors.Is(err, accounts.ErrAccountNotFound) {
				return errs.NotFound(err)
			}
			return err
		}
		blkAccounts = map[string]accounts.Info{account: blkInfo}
	}

	acts := make([]info, 0, len(blkAccounts))
	for account, blkInfo := range blkAccounts {
		act := info{
			Account: account,
			Name:    h.NS.Lookup(account),
			Balance: blkInfo.Balance,
			Nonce:   blkInfo.Nonce,
		}
		acts = append(acts, act)
	}
	sort.Slice(acts, func(i, j int) bool { return acts[i].Account < acts[j].Account })

	ai := actInfo{
		LatestBlock: h.State.LatestBlock().Hash,
		Uncommitted: h.State.QueryMempoolLength(),
		Accounts:    acts,
	}

	return web.Respond(ctx, w, ai, http.StatusOK)
}

// BlocksByAccount returns all the blocks holding a transaction for the
// account, or every block when no account is provided.
func (h Handlers) BlocksByAccount(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	account := web.Param(r, "account")
	if account != "" && !signature.IsAddress(account) {
		return errs.BadRequest(fmt.Errorf("invalid account %q", account))
	}

	dbBlocks := h.State.QueryBlocksByAccount(account)
	if len(dbBlocks) == 0 {
		return web.Respond(ctx, w, nil, http.StatusNoContent)
	}

	blocks := make([]block, len(dbBlocks))
	for i, blk := range dbBlocks {
		blocks[i] = h.toBlock(blk)
	}

	return web.Respond(ctx, w, blocks, http.StatusOK)
}

// MerkleProof returns the proof that a transaction is part of a block.
func (h Handlers) MerkleProof(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	index, err := strconv.ParseUint(web.Param(r, "index"), 10, 64)
	if err != nil {
		return errs.BadRequest(fmt.Errorf("invalid block index: %w", err))
	}

	txIndex, err := strconv.Atoi(web.Param(r, "tx"))
	if err != nil {
		return errs.BadRequest(fmt.Errorf("invalid transaction index: %w", err))
	}

	p, err := h.State.QueryMerkleProof(index, txIndex)
	if err != nil {
		return errs.NotFound(err)
	}

	return web.Respond(ctx, w, h.toProof(p), http.StatusOK)
}

// ValidateChain replays the chain and reports whether it is intact.
func (h Handlers) ValidateChain(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	report := chainReport{
		Valid:       true,
		Length:      h.State.ChainLength(),
		Difficulty:  h.State.Difficulty(),
		LatestBlock: h.State.LatestBlock().Hash,
	}

	if err := h.State.ValidateChain(); err != nil {
		report.Valid = false
		report.Error = err.Error()

		var ve *chain.ValidationError
		if errors.As(err, &ve) {
			idx := int(ve.Index)
			report.FailedIndex = &idx
		}
	}

	return web.Respond(ctx, w, report, http.StatusOK)
}

// Contracts returns the addresses of every deployed contract.
func (h Handlers) Contracts(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.State.Contracts(), http.StatusOK)
}

// DeployContract creates a new contract, owned by the signer, with the
// provided starting balances.
func (h Handlers) DeployContract(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var nc NewContract
	if err := web.Decode(r, &nc); err != nil {
		return errs.BadRequest(err)
	}

	if err := validate.Check(nc); err != nil {
		return err
	}

	address, err := h.State.DeployContract(nc.toDeployment())
	if err != nil {
		return err
	}

	c, err := h.State.QueryContract(address)
	if err != nil {
		return err
	}

	ci := contractInfo{
		Address:  c.Address(),
		Owner:    c.Owner(),
		Code:     c.Code(),
		Balances: c.Balances(),
	}

	return web.Respond(ctx, w, ci, http.StatusCreated)
}

// CallContract executes a method, signed by the contract owner, against a
// deployed contract.
func (h Handlers) CallContract(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var call ContractCall
	if err := web.Decode(r, &call); err != nil {
		return errs.BadRequest(err)
	}

	if err := validate.Check(call); err != nil {
		return err
	}

	signed, err := call.toCall(web.Param(r, "address"))
	if err != nil {
		return err
	}

	result, err := h.State.CallContract(signed)
	if err != nil {
		return err
	}

	return web.Respond(ctx, w, result, http.StatusOK)
}

// ContractBalance returns the balance of an account inside a contract.
func (h Handlers) ContractBalance(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	result, err := h.State.QueryContractBalance(web.Param(r, "address"), web.Param(r, "account"))
	if err != nil {
		return err
	}

	return web.Respond(ctx, w, result, http.StatusOK)
}
