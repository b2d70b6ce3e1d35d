// Package v1 contains the full set of handler functions and routes
// supported by the v1 web api.
package v1

import (
	"net/http"
	"time"

	"github.com/ardanlabs/ledger/app/services/node/handlers/v1/public"
	"github.com/ardanlabs/ledger/foundation/blockchain/state"
	"github.com/ardanlabs/ledger/foundation/events"
	"github.com/ardanlabs/ledger/foundation/web"
	"go.uber.org/zap"
)

const version = "v1"

// Config contains all the mandatory systems required by handlers.
type Config struct {
	Log         *zap.SugaredLogger
	State       *state.State
	Evts        *events.Events
	MineTimeout time.Duration
}

// PublicRoutes binds all the version 1 public routes.
func PublicRoutes(app *web.App, cfg Config) {
	pbl := public.Handlers{
		Log:         cfg.Log,
		State:       cfg.State,
		Evts:        cfg.Evts,
		MineTimeout: cfg.MineTimeout,
	}

	app.Handle(http.MethodGet, version, "/health", pbl.Health)
	app.Handle(http.MethodGet, version, "/healthz", pbl.Health)
	app.Handle(http.MethodGet, version, "/events", pbl.Events)
	app.Handle(http.MethodGet, version, "/genesis", pbl.Genesis)
	app.Handle(http.MethodGet, version, "/chain/head", pbl.Head)
	app.Handle(http.MethodGet, version, "/chain/tip", pbl.Tip)
	app.Handle(http.MethodGet, version, "/chain/blocks", pbl.Blocks)
	app.Handle(http.MethodGet, version, "/chain/blocks/:index", pbl.Block)
	app.Handle(http.MethodPost, version, "/tx", pbl.SubmitTransaction)
	app.Handle(http.MethodGet, version, "/mempool", pbl.Mempool)
	app.Handle(http.MethodPost, version, "/mine", pbl.Mine)
}
