// Package viewer serves a page that renders the node's block events as they
// arrive over the events websocket.
package viewer

import (
	"context"
	_ "embed"
	"net/http"

	"github.com/ardanlabs/ledger/foundation/web"
)

//go:embed index.html
var index []byte

// Index writes the viewer page.
func Index(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	if err := web.SetStatusCode(ctx, http.StatusOK); err != nil {
		return err
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)

	_, err := w.Write(index)
	return err
}
