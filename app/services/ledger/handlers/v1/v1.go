// Package v1 contains the full set of handler functions and routes
// supported by the v1 web api.
package v1

import (
	"net/http"

	"github.com/ardanlabs/ledger/app/services/ledger/handlers/v1/public"
	"github.com/ardanlabs/ledger/business/web/mid"
	"github.com/ardanlabs/ledger/foundation/blockchain/state"
	"github.com/ardanlabs/ledger/foundation/events"
	"github.com/ardanlabs/ledger/foundation/nameservice"
	"github.com/ardanlabs/ledger/foundation/web"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const version = "v1"

// Config contains all the mandatory systems required by handlers.
type Config struct {
	Log   *zap.SugaredLogger
	State *state.State
	NS    *nameservice.NameService
	Evts  *events.Events
}

// PublicRoutes binds all the version 1 public routes.
func PublicRoutes(app *web.App, cfg Config) {
	pbl := public.Handlers{
		Log:   cfg.Log,
		State: cfg.State,
		NS:    cfg.NS,
		WS:    websocket.Upgrader{},
		Evts:  cfg.Evts,
	}

	cors := mid.Cors("*")

	app.Handle(http.MethodGet, version, "/events", pbl.Events)
	app.Handle(http.MethodGet, version, "/genesis/list", pbl.Genesis, cors)
	app.Handle(http.MethodGet, version, "/accounts/list", pbl.Accounts, cors)
	app.Handle(http.MethodGet, version, "/accounts/list/:account", pbl.Accounts, cors)
	app.Handle(http.MethodGet, version, "/blocks/list", pbl.BlocksByAccount, cors)
	app.Handle(http.MethodGet, version, "/blocks/list/:account", pbl.BlocksByAccount, cors)
	app.Handle(http.MethodGet, version, "/blocks/proof/:index/:tx", pbl.MerkleProof, cors)
	app.Handle(http.MethodGet, version, "/chain/validate", pbl.ValidateChain, cors)
	app.Handle(http.MethodGet, version, "/tx/uncommitted/list", pbl.Mempool, cors)
	app.Handle(http.MethodGet, version, "/tx/uncommitted/list/:account", pbl.Mempool, cors)
	app.Handle(http.MethodPost, version, "/tx/submit", pbl.SubmitTransaction, cors)
	app.Handle(http.MethodGet, version, "/mining/signal", pbl.SignalMining, cors)
	app.Handle(http.MethodGet, version, "/contracts/list", pbl.Contracts, cors)
	app.Handle(http.MethodPost, version, "/contracts/deploy", pbl.DeployContract, cors)
	app.Handle(http.MethodPost, version, "/contracts/:address/call", pbl.CallContract, cors)
	app.Handle(http.MethodGet, version, "/contracts/:address/balance/:account", pbl.ContractBalance, cors)
}
