package public_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/ardanlabs/ledger/app/services/node/handlers"
	v1 "github.com/ardanlabs/ledger/business/web/v1"
	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/genesis"
	"github.com/ardanlabs/ledger/foundation/blockchain/state"
	"github.com/ardanlabs/ledger/foundation/blockchain/storage/memory"
	"github.com/ardanlabs/ledger/foundation/blockchain/worker"
	"github.com/ardanlabs/ledger/foundation/events"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

// node bundles a running state and its public mux.
type node struct {
	state *state.State
	evts  *events.Events
	mux   http.Handler
}

func newNode(t *testing.T, mineTimeout time.Duration) node {
	t.Helper()

	evts := events.New()

	gen := genesis.Default()
	gen.Difficulty = 4

	st, err := state.New(state.Config{
		Storage:   memory.New(),
		Genesis:   gen,
		Workers:   2,
		EvHandler: func(v string, args ...any) { evts.Send(fmt.Sprintf(v, args...)) },
	})
	if err != nil {
		t.Fatalf("constructing state: %v", err)
	}

	if err := st.EnsureGenesis(); err != nil {
		t.Fatalf("writing genesis: %v", err)
	}

	worker.Run(st, worker.Config{}, nil)
	t.Cleanup(func() {
		evts.Shutdown()
		st.Shutdown()
	})

	mux := handlers.PublicMux(handlers.MuxConfig{
		Shutdown:    make(chan os.Signal, 1),
		Log:         zap.NewNop().Sugar(),
		State:       st,
		Evts:        evts,
		MineTimeout: mineTimeout,
	})

	return node{state: st, evts: evts, mux: mux}
}

func (n node) call(method string, path string, body string) *httptest.ResponseRecorder {
	var r *http.Request
	switch body {
	case "":
		r = httptest.NewRequest(method, path, nil)
	default:
		r = httptest.NewRequest(method, path, strings.NewReader(body))
	}

	w := httptest.NewRecorder()
	n.mux.ServeHTTP(w, r)
	return w
}

// =============================================================================

func Test_Transactions(t *testing.T) {
	t.Log("Given the need to submit transactions over the api.")
	{
		n := newNode(t, 0)

		tests := []struct {
			name   string
			body   string
			status int
			fields []string
		}{
			{"valid", `{"from":"alice","to":"bob","amount":10}`, http.StatusOK, nil},
			{"self transfer", `{"from":"alice","to":"alice","amount":10}`, http.StatusBadRequest, nil},
			{"missing fields", `{"from":"alice"}`, http.StatusBadRequest, []string{"to", "amount"}},
			{"unknown field", `{"from":"alice","to":"bob","amount":1,"tip":5}`, http.StatusBadRequest, nil},
			{"bad json", `{"from":`, http.StatusBadRequest, nil},
		}

		for testID, tt := range tests {
			t.Logf("\tTest %d:\tWhen submitting a %s transaction.", testID, tt.name)
			{
				w := n.call(http.MethodPost, "/v1/tx", tt.body)
				if w.Code != tt.status {
					t.Fatalf("\t%s\tTest %d:\tShould get status %d, got %d: %s", failed, testID, tt.status, w.Code, w.Body.String())
				}
				t.Logf("\t%s\tTest %d:\tShould get status %d.", success, testID, tt.status)

				if len(tt.fields) > 0 {
					var er v1.ErrorResponse
					if err := json.NewDecoder(w.Body).Decode(&er); err != nil {
						t.Fatalf("\t%s\tTest %d:\tShould be able to decode the error: %v", failed, testID, err)
					}
					for _, field := range tt.fields {
						if _, exists := er.Fields[field]; !exists {
							t.Fatalf("\t%s\tTest %d:\tShould report field %q, got %v.", failed, testID, field, er.Fields)
						}
					}
					t.Logf("\t%s\tTest %d:\tShould report the failing fields.", success, testID)
				}
			}
		}

		testID := len(tests)
		t.Logf("\tTest %d:\tWhen listing the mempool.", testID)
		{
			w := n.call(http.MethodGet, "/v1/mempool", "")

			var trans []database.Tx
			if err := json.NewDecoder(w.Body).Decode(&trans); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to decode the mempool: %v", failed, testID, err)
			}

			if len(trans) != 1 || trans[0].From != "alice" || trans[0].Amount != 10 || trans[0].TimeStamp == 0 {
				t.Fatalf("\t%s\tTest %d:\tShould hold only the accepted transaction, got %v.", failed, testID, trans)
			}
			t.Logf("\t%s\tTest %d:\tShould hold only the accepted transaction.", success, testID)
		}
	}
}

func Test_Mine(t *testing.T) {
	t.Log("Given the need to mine and query blocks over the api.")
	{
		n := newNode(t, 0)

		testID := 0
		t.Logf("\tTest %d:\tWhen mining a pending transaction.", testID)
		{
			if w := n.call(http.MethodPost, "/v1/tx", `{"from":"alice","to":"bob","amount":1}`); w.Code != http.StatusOK {
				t.Fatalf("\t%s\tTest %d:\tShould accept the transaction, got %d.", failed, testID, w.Code)
			}

			w := n.call(http.MethodPost, "/v1/mine", `{"target":4,"data":"memo"}`)
			if w.Code != http.StatusOK {
				t.Fatalf("\t%s\tTest %d:\tShould mine, got %d: %s", failed, testID, w.Code, w.Body.String())
			}

			var row struct {
				Index      uint64        `json:"index"`
				TxCount    int           `json:"tx_count"`
				Hash       database.Hash `json:"hash"`
				Difficulty uint32        `json:"difficulty"`
				Data       *string       `json:"data"`
			}
			if err := json.NewDecoder(w.Body).Decode(&row); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to decode the block: %v", failed, testID, err)
			}

			if row.Index != 1 || row.TxCount != 1 || row.Difficulty != 4 || row.Data == nil || *row.Data != "memo" {
				t.Fatalf("\t%s\tTest %d:\tShould mine block 1 with the payload, got %+v.", failed, testID, row)
			}
			t.Logf("\t%s\tTest %d:\tShould mine block 1 with the payload.", success, testID)

			w = n.call(http.MethodGet, "/v1/chain/tip", "")

			var tip struct {
				Height uint64        `json:"height"`
				Hash   database.Hash `json:"hash"`
			}
			if err := json.NewDecoder(w.Body).Decode(&tip); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to decode the tip: %v", failed, testID, err)
			}

			if tip.Height != 1 || tip.Hash != row.Hash {
				t.Fatalf("\t%s\tTest %d:\tShould report the mined block as the tip.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould report the mined block as the tip.", success, testID)

			if body := strings.TrimSpace(n.call(http.MethodGet, "/v1/chain/head", "").Body.String()); body != `{"height":1}` {
				t.Fatalf("\t%s\tTest %d:\tShould report the head, got %s.", failed, testID, body)
			}
			t.Logf("\t%s\tTest %d:\tShould report the head.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen mining with an empty body.", testID)
		{
			w := n.call(http.MethodPost, "/v1/mine", "")
			if w.Code != http.StatusOK {
				t.Fatalf("\t%s\tTest %d:\tShould mine, got %d: %s", failed, testID, w.Code, w.Body.String())
			}
			t.Logf("\t%s\tTest %d:\tShould mine at the genesis difficulty.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen the target is out of range.", testID)
		{
			if w := n.call(http.MethodPost, "/v1/mine", `{"target":300}`); w.Code != http.StatusBadRequest {
				t.Fatalf("\t%s\tTest %d:\tShould get 400, got %d.", failed, testID, w.Code)
			}
			t.Logf("\t%s\tTest %d:\tShould get 400.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen listing blocks.", testID)
		{
			w := n.call(http.MethodGet, "/v1/chain/blocks?start=0&dir=asc", "")

			var rows []struct {
				Index    uint64        `json:"index"`
				Hash     database.Hash `json:"hash"`
				PrevHash database.Hash `json:"previous_hash"`
				DataHash database.Hash `json:"data_hash"`
				Data     *string       `json:"data"`
			}
			if err := json.NewDecoder(w.Body).Decode(&rows); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to decode the rows: %v", failed, testID, err)
			}

			if len(rows) != 3 || rows[0].Index != 0 || rows[2].Index != 2 {
				t.Fatalf("\t%s\tTest %d:\tShould list blocks 0..2, got %+v.", failed, testID, rows)
			}
			if rows[1].PrevHash != rows[0].Hash || rows[2].PrevHash != rows[1].Hash {
				t.Fatalf("\t%s\tTest %d:\tShould list a linked chain.", failed, testID)
			}
			if rows[0].Data == nil || *rows[0].Data != "Genesis Block" {
				t.Fatalf("\t%s\tTest %d:\tShould carry the genesis payload.", failed, testID)
			}
			if rows[2].Data != nil || !rows[2].DataHash.IsZero() {
				t.Fatalf("\t%s\tTest %d:\tShould show a zero data hash without a payload.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould list a linked chain.", success, testID)

			w = n.call(http.MethodGet, "/v1/chain/blocks?limit=1", "")
			if err := json.NewDecoder(w.Body).Decode(&rows); err != nil || len(rows) != 1 || rows[0].Index != 2 {
				t.Fatalf("\t%s\tTest %d:\tShould default to the tip going down.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould default to the tip going down.", success, testID)

			for _, qs := range []string{"limit=abc", "limit=0", "start=-1", "dir=sideways"} {
				if w := n.call(http.MethodGet, "/v1/chain/blocks?"+qs, ""); w.Code != http.StatusBadRequest {
					t.Fatalf("\t%s\tTest %d:\tShould reject %s, got %d.", failed, testID, qs, w.Code)
				}
			}
			t.Logf("\t%s\tTest %d:\tShould reject bad query values.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen fetching a single block.", testID)
		{
			w := n.call(http.MethodGet, "/v1/chain/blocks/1", "")

			var detail struct {
				Index        uint64        `json:"index"`
				Transactions []database.Tx `json:"transactions"`
			}
			if err := json.NewDecoder(w.Body).Decode(&detail); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to decode the block: %v", failed, testID, err)
			}

			if detail.Index != 1 || len(detail.Transactions) != 1 || detail.Transactions[0].To != "bob" {
				t.Fatalf("\t%s\tTest %d:\tShould include the transactions, got %+v.", failed, testID, detail)
			}
			t.Logf("\t%s\tTest %d:\tShould include the transactions.", success, testID)

			if w := n.call(http.MethodGet, "/v1/chain/blocks/99", ""); w.Code != http.StatusNotFound {
				t.Fatalf("\t%s\tTest %d:\tShould get 404 for a missing block, got %d.", failed, testID, w.Code)
			}
			t.Logf("\t%s\tTest %d:\tShould get 404 for a missing block.", success, testID)
		}
	}
}

func Test_MineTimeout(t *testing.T) {
	t.Log("Given the need to bound mining requests.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen the target can't be met in time.", testID)
		{
			n := newNode(t, 50*time.Millisecond)

			if w := n.call(http.MethodPost, "/v1/tx", `{"from":"alice","to":"bob","amount":1}`); w.Code != http.StatusOK {
				t.Fatalf("\t%s\tTest %d:\tShould accept the transaction, got %d.", failed, testID, w.Code)
			}

			if w := n.call(http.MethodPost, "/v1/mine", `{"target":200}`); w.Code != http.StatusRequestTimeout {
				t.Fatalf("\t%s\tTest %d:\tShould get 408, got %d: %s", failed, testID, w.Code, w.Body.String())
			}
			t.Logf("\t%s\tTest %d:\tShould get 408.", success, testID)

			if n.state.QueryMempoolLength() != 1 {
				t.Fatalf("\t%s\tTest %d:\tShould keep the transaction.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould keep the transaction.", success, testID)
		}
	}
}

func Test_Events(t *testing.T) {
	t.Log("Given the need to stream chain events to clients.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen a block is mined while a client listens.", testID)
		{
			n := newNode(t, 0)

			srv := httptest.NewServer(n.mux)
			defer srv.Close()

			url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/events"
			c, _, err := websocket.DefaultDialer.Dial(url, nil)
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to connect: %v", failed, testID, err)
			}
			defer c.Close()
			t.Logf("\t%s\tTest %d:\tShould be able to connect.", success, testID)

			// The receiver is registered after the upgrade completes.
			deadline := time.Now().Add(5 * time.Second)
			for n.evts.Count() == 0 {
				if time.Now().After(deadline) {
					t.Fatalf("\t%s\tTest %d:\tShould register the receiver.", failed, testID)
				}
				time.Sleep(10 * time.Millisecond)
			}

			resp, err := http.Post(srv.URL+"/v1/mine", "application/json", strings.NewReader(`{"target":2}`))
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to mine: %v", failed, testID, err)
			}
			resp.Body.Close()

			c.SetReadDeadline(time.Now().Add(5 * time.Second))
			for {
				_, msg, err := c.ReadMessage()
				if err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould receive a block event: %v", failed, testID, err)
				}
				if strings.HasPrefix(string(msg), "viewer: block:") {
					break
				}
			}
			t.Logf("\t%s\tTest %d:\tShould receive a block event.", success, testID)
		}
	}
}

func Test_Viewer(t *testing.T) {
	t.Log("Given the need to serve the block viewer page.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen requesting the root path.", testID)
		{
			n := newNode(t, 0)

			w := n.call(http.MethodGet, "/", "")
			if w.Code != http.StatusOK {
				t.Fatalf("\t%s\tTest %d:\tShould receive a 200, got %d.", failed, testID, w.Code)
			}
			t.Logf("\t%s\tTest %d:\tShould receive a 200.", success, testID)

			if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
				t.Fatalf("\t%s\tTest %d:\tShould receive html, got %q.", failed, testID, ct)
			}
			if !strings.Contains(w.Body.String(), "/v1/events") {
				t.Fatalf("\t%s\tTest %d:\tShould follow the events feed.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould receive the viewer page.", success, testID)
		}
	}
}

func Test_Health(t *testing.T) {
	t.Log("Given the need to check the node is serving requests.")
	{
		n := newNode(t, 0)

		for testID, path := range []string{"/v1/health", "/v1/healthz"} {
			t.Logf("\tTest %d:\tWhen requesting %s.", testID, path)
			{
				w := n.call(http.MethodGet, path, "")
				if w.Code != http.StatusOK {
					t.Fatalf("\t%s\tTest %d:\tShould receive a 200, got %d.", failed, testID, w.Code)
				}

				var resp struct {
					Status string `json:"status"`
				}
				if err := json.NewDecoder(w.Body).Decode(&resp); err != nil || resp.Status != "ok" {
					t.Fatalf("\t%s\tTest %d:\tShould report ok: %v", failed, testID, err)
				}
				t.Logf("\t%s\tTest %d:\tShould report ok.", success, testID)
			}
		}
	}
}
