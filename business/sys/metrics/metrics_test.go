package metrics

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/ardanlabs/ledger/foundation/blockchain/genesis"
	"github.com/ardanlabs/ledger/foundation/blockchain/pow"
	"github.com/ardanlabs/ledger/foundation/blockchain/state"
	"github.com/ardanlabs/ledger/foundation/blockchain/storage/memory"
	"github.com/ardanlabs/ledger/foundation/events"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func Test_ObserveMining(t *testing.T) {
	t.Log("Given the need to count mining outcomes.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen mining succeeds and fails.", testID)
		{
			before := testutil.ToFloat64(miningTotal.WithLabelValues("success"))
			beforeTimeout := testutil.ToFloat64(miningTotal.WithLabelValues("timeout"))

			ObserveMining(3, nil, 10*time.Millisecond)
			ObserveMining(0, fmt.Errorf("%w: deadline", pow.ErrTimeout), time.Second)

			if got := testutil.ToFloat64(miningTotal.WithLabelValues("success")); got != before+1 {
				t.Fatalf("\t%s\tTest %d:\tShould count the success, got %v.", failed, testID, got)
			}
			if got := testutil.ToFloat64(miningTotal.WithLabelValues("timeout")); got != beforeTimeout+1 {
				t.Fatalf("\t%s\tTest %d:\tShould count the timeout, got %v.", failed, testID, got)
			}
			t.Logf("\t%s\tTest %d:\tShould count by outcome.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen mapping errors to labels.", testID)
		{
			tests := []struct {
				err    error
				status string
			}{
				{nil, "success"},
				{pow.ErrCancelled, "cancelled"},
				{pow.ErrInvalidTarget, "invalid_target"},
				{&state.LinkageError{EmptyStore: true}, "linkage"},
				{errors.New("disk full"), "error"},
			}

			for _, tt := range tests {
				if got := miningStatus(tt.err); got != tt.status {
					t.Fatalf("\t%s\tTest %d:\tShould map %v to %s, got %s.", failed, testID, tt.err, tt.status, got)
				}
			}
			t.Logf("\t%s\tTest %d:\tShould map errors to labels.", success, testID)
		}
	}
}

func Test_ChainCollector(t *testing.T) {
	t.Log("Given the need to report chain state on scrape.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen the chain has genesis and one pending tx.", testID)
		{
			gen := genesis.Default()
			gen.Difficulty = 1

			st, err := state.New(state.Config{Storage: memory.New(), Genesis: gen})
			if err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to construct state: %v", failed, testID, err)
			}

			cc := NewChainCollector(st)

			if n := testutil.CollectAndCount(cc); n != 1 {
				t.Fatalf("\t%s\tTest %d:\tShould skip the height on an empty chain, got %d metrics.", failed, testID, n)
			}
			t.Logf("\t%s\tTest %d:\tShould skip the height on an empty chain.", success, testID)

			if err := st.EnsureGenesis(); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to write genesis: %v", failed, testID, err)
			}
			if _, err := st.SubmitTransaction("alice", "bob", 1); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould accept the transaction: %v", failed, testID, err)
			}

			exp := `
# HELP ledger_chain_height Number of the latest block.
# TYPE ledger_chain_height gauge
ledger_chain_height 0
# HELP ledger_mempool_length Number of pending transactions.
# TYPE ledger_mempool_length gauge
ledger_mempool_length 1
`
			if err := testutil.CollectAndCompare(cc, strings.NewReader(exp)); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould report height and mempool: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould report height and mempool.", success, testID)
		}
	}
}

func Test_EventsCollector(t *testing.T) {
	t.Log("Given the need to report on the event feed.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen a subscriber falls behind.", testID)
		{
			evts := events.New()
			defer evts.Shutdown()

			ch := evts.Acquire("slow")
			for i := 0; i < cap(ch)+3; i++ {
				evts.Send("event")
			}

			exp := `
# HELP ledger_events_dropped_total Count of events dropped for subscribers that fell behind.
# TYPE ledger_events_dropped_total counter
ledger_events_dropped_total 3
# HELP ledger_events_subscribers Number of connected event subscribers.
# TYPE ledger_events_subscribers gauge
ledger_events_subscribers 1
`
			if err := testutil.CollectAndCompare(NewEventsCollector(evts), strings.NewReader(exp)); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould report subscribers and drops: %v", failed, testID, err)
			}
			t.Logf("\t%s\tTest %d:\tShould report subscribers and drops.", success, testID)
		}
	}
}
