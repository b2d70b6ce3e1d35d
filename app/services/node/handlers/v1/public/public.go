// Package public maintains the group of handlers for public access.
package public

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/ardanlabs/ledger/business/sys/validate"
	v1 "github.com/ardanlabs/ledger/business/web/v1"
	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/mempool"
	"github.com/ardanlabs/ledger/foundation/blockchain/pow"
	"github.com/ardanlabs/ledger/foundation/blockchain/state"
	"github.com/ardanlabs/ledger/foundation/blockchain/worker"
	"github.com/ardanlabs/ledger/foundation/events"
	"github.com/ardanlabs/ledger/foundation/web"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Handlers manages the set of ledger endpoints.
type Handlers struct {
	Log         *zap.SugaredLogger
	State       *state.State
	WS          websocket.Upgrader
	Evts        *events.Events
	MineTimeout time.Duration
}

// Health reports the node is serving requests.
func (h Handlers) Health(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	status := struct {
		Status string `json:"status"`
	}{
		Status: "ok",
	}

	return web.Respond(ctx, w, status, http.StatusOK)
}

// Events handles a web socket to provide events to a client.
func (h Handlers) Events(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	// Need this to handle CORS on the websocket.
	h.WS.CheckOrigin = func(r *http.Request) bool { return true }

	// This upgrades the HTTP connection to a websocket connection.
	c, err := h.WS.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	defer c.Close()

	// This provides a channel for receiving events from the blockchain.
	ch := h.Evts.Acquire(v.TraceID)
	defer h.Evts.Release(v.TraceID)

	// Starting a ticker to send a ping message over the websocket.
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	// Block waiting for events from the blockchain or ticker.
	for {
		select {
		case msg, wd := <-ch:

			// If the channel is closed, release the websocket.
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

// Genesis returns the genesis information.
func (h Handlers) Genesis(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	return web.Respond(ctx, w, h.State.Genesis(), http.StatusOK)
}

// Head returns the number of the latest block.
func (h Handlers) Head(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	height, err := h.State.QueryHeight()
	if err != nil && !errors.Is(err, database.ErrEmptyChain) {
		return err
	}

	return web.Respond(ctx, w, head{Height: height}, http.StatusOK)
}

// Tip returns the number and hash of the latest block. The hash is left out
// while the chain is empty.
func (h Handlers) Tip(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	t, err := h.State.QueryTip()
	switch {
	case errors.Is(err, database.ErrEmptyChain):
		return web.Respond(ctx, w, tip{}, http.StatusOK)
	case err != nil:
		return err
	}

	return web.Respond(ctx, w, tip{Height: t.Height, Hash: &t.Hash}, http.StatusOK)
}

// Blocks returns a page of blocks. The query string takes start, limit and
// dir values. Without a start the page begins at the tip.
func (h Handlers) Blocks(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	qs := r.URL.Query()

	var start *uint64
	if s := qs.Get("start"); s != "" {
		n, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return v1.NewRequestError(fmt.Errorf("invalid start %q", s), http.StatusBadRequest)
		}
		start = &n
	}

	limit := blocksPerBatch
	if s := qs.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			return v1.NewRequestError(fmt.Errorf("invalid limit %q", s), http.StatusBadRequest)
		}
		limit = min(n, maxBlocksPerRequest)
	}

	dir, err := database.ParseDirection(qs.Get("dir"))
	if err != nil {
		return v1.NewRequestError(err, http.StatusBadRequest)
	}

	blocks, err := h.State.QueryBlocks(start, limit, dir)
	switch {
	case errors.Is(err, database.ErrEmptyChain):
		return web.Respond(ctx, w, []blockRow{}, http.StatusOK)
	case err != nil:
		return err
	}

	rows := make([]blockRow, len(blocks))
	for i, block := range blocks {
		rows[i] = toBlockRow(block)
	}

	return web.Respond(ctx, w, rows, http.StatusOK)
}

// Block returns the block with the specified index and its transactions.
func (h Handlers) Block(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	s := web.Param(r, "index")

	index, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return v1.NewRequestError(fmt.Errorf("invalid index %q", s), http.StatusBadRequest)
	}

	block, err := h.State.QueryBlock(index)
	switch {
	case errors.Is(err, database.ErrBlockNotFound):
		return v1.NewRequestError(err, http.StatusNotFound)
	case err != nil:
		return err
	}

	return web.Respond(ctx, w, toBlockDetail(block), http.StatusOK)
}

// SubmitTransaction adds a new transaction to the mempool.
func (h Handlers) SubmitTransaction(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	var ntx newTx
	if err := web.Decode(r, &ntx); err != nil {
		return requestError(err)
	}

	h.Log.Infow("add tran", "traceid", v.TraceID, "from", ntx.From, "to", ntx.To, "amount", ntx.Amount)

	tx, err := h.State.SubmitTransaction(ntx.From, ntx.To, ntx.Amount)
	if err != nil {
		if mempool.IsRejected(err) {
			return v1.NewRequestError(err, http.StatusBadRequest)
		}
		return err
	}

	resp := accepted{
		Accepted: true,
		Tx:       tx,
		Pending:  h.State.QueryMempoolLength(),
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Mempool returns the set of pending transactions in the order they will be
// mined.
func (h Handlers) Mempool(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	trans := h.State.QueryMempool()
	if trans == nil {
		trans = []database.Tx{}
	}

	return web.Respond(ctx, w, trans, http.StatusOK)
}

// Mine asks the worker to mine the pending transactions into the next block.
// An empty body mines at the genesis difficulty.
func (h Handlers) Mine(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	var mr mineRequest
	if err := web.Decode(r, &mr); err != nil && !errors.Is(err, io.EOF) {
		return requestError(err)
	}

	args := state.MineArgs{
		MaxTxs: mr.MaxTxs,
		Target: h.State.Genesis().Difficulty,
		Data:   mr.Data,
	}
	if mr.Target != nil {
		args.Target = *mr.Target
	}

	if h.State.Worker == nil {
		return v1.NewRequestError(errors.New("mining is not available"), http.StatusServiceUnavailable)
	}

	if h.MineTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.MineTimeout)
		defer cancel()
	}

	h.Log.Infow("mine", "traceid", v.TraceID, "target", args.Target, "maxtxs", args.MaxTxs)

	block, err := h.State.Worker.Mine(ctx, args)
	if err != nil {
		return mineError(err)
	}

	return web.Respond(ctx, w, toBlockRow(block), http.StatusOK)
}

// =============================================================================

// requestError turns a decode failure into a client error. Validation
// errors pass through so they are reported per field.
func requestError(err error) error {
	if validate.IsFieldErrors(err) {
		return err
	}
	return v1.NewRequestError(err, http.StatusBadRequest)
}

// mineError maps the mining errors onto http status codes.
func mineError(err error) error {
	switch {
	case errors.Is(err, pow.ErrInvalidTarget):
		return v1.NewRequestError(err, http.StatusBadRequest)
	case errors.Is(err, pow.ErrTimeout):
		return v1.NewRequestError(err, http.StatusRequestTimeout)
	case errors.Is(err, state.ErrChainLinkage):
		return v1.NewRequestError(err, http.StatusConflict)
	case errors.Is(err, pow.ErrCancelled), errors.Is(err, worker.ErrShutdown):
		return v1.NewRequestError(err, http.StatusServiceUnavailable)
	}

	return err
}
