// Package v1 contains the full set of handler functions and routes
// supported by the node's HTTP api.
package v1

import (
	"net/http"

	"github.com/nilotic/blockchain/app/services/node/handlers/v1/public"
	"github.com/nilotic/blockchain/foundation/blockchain/node"
	"github.com/nilotic/blockchain/foundation/events"
	"github.com/nilotic/blockchain/foundation/web"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Config contains all the mandatory systems required by handlers.
type Config struct {
	Log  *zap.SugaredLogger
	Node *node.Node
	Evts *events.Events
}

// PublicRoutes binds the node's HTTP surface.
func PublicRoutes(app *web.App, cfg Config) {
	pbl := public.Handlers{
		Log:  cfg.Log,
		Node: cfg.Node,
		WS:   websocket.Upgrader{ReadBufferSize: 1024, WriteBufferSize: 1024},
		Evts: cfg.Evts,
	}

	app.Handle(http.MethodGet, "", "/", pbl.Status)
	app.Handle(http.MethodGet, "", "/chain", pbl.Chain)
	app.Handle(http.MethodPost, "", "/transaction", pbl.SubmitTransaction)
	app.Handle(http.MethodPost, "", "/mine", pbl.Mine)
	app.Handle(http.MethodGet, "", "/balance", pbl.Balance)
	app.Handle(http.MethodPost, "", "/stake", pbl.Stake)
	app.Handle(http.MethodPost, "", "/validate", pbl.Validate)
	app.Handle(http.MethodPost, "", "/odero/create", pbl.OderoCreate)
	app.Handle(http.MethodPost, "", "/odero/redeem", pbl.OderoRedeem)
	app.Handle(http.MethodPost, "", "/odero/verify", pbl.OderoVerify)
	app.Handle(http.MethodGet, "", "/transaction/:hash/status", pbl.TransactionStatus)
	app.Handle(http.MethodPost, "", "/porc/enable", pbl.PorcEnable)
	app.Handle(http.MethodPost, "", "/porc/submit_log", pbl.PorcSubmitLog)
	app.Handle(http.MethodGet, "", "/porc/stats", pbl.PorcStats)
	app.Handle(http.MethodGet, "", "/porc/pools", pbl.PorcPools)
	app.Handle(http.MethodGet, "", "/porc/wallet", pbl.PorcWallet)
	app.Handle(http.MethodGet, "v1", "/events", pbl.Events)
}
