package events_test

import (
	"testing"

	"github.com/ardanlabs/ledger/foundation/events"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func Test_Events(t *testing.T) {
	t.Log("Given the need to fan out events to receivers.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen two receivers are registered.", testID)
		{
			evts := events.New()

			ch1 := evts.Acquire("one")
			ch2 := evts.Acquire("two")

			if evts.Acquire("one") != ch1 {
				t.Fatalf("\t%s\tTest %d:\tShould return the same channel for the same id.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould return the same channel for the same id.", success, testID)

			evts.Send("viewer: block: 1")

			if msg := <-ch1; msg != "viewer: block: 1" {
				t.Fatalf("\t%s\tTest %d:\tShould deliver to the first receiver, got %q.", failed, testID, msg)
			}
			if msg := <-ch2; msg != "viewer: block: 1" {
				t.Fatalf("\t%s\tTest %d:\tShould deliver to the second receiver, got %q.", failed, testID, msg)
			}
			t.Logf("\t%s\tTest %d:\tShould deliver to every receiver.", success, testID)

			if err := evts.Release("one"); err != nil {
				t.Fatalf("\t%s\tTest %d:\tShould be able to release: %v", failed, testID, err)
			}
			if _, open := <-ch1; open {
				t.Fatalf("\t%s\tTest %d:\tShould close a released channel.", failed, testID)
			}
			if err := evts.Release("one"); err == nil {
				t.Fatalf("\t%s\tTest %d:\tShould not release twice.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould close a released channel once.", success, testID)

			evts.Shutdown()
			if _, open := <-ch2; open || evts.Count() != 0 {
				t.Fatalf("\t%s\tTest %d:\tShould close every channel on shutdown.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould close every channel on shutdown.", success, testID)

			if _, open := <-evts.Acquire("three"); open {
				t.Fatalf("\t%s\tTest %d:\tShould hand out closed channels after shutdown.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould hand out closed channels after shutdown.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen a receiver falls behind.", testID)
		{
			evts := events.New()
			ch := evts.Acquire("slow")

			for i := 0; i < 500; i++ {
				evts.Send("event")
			}

			if len(ch) != cap(ch) {
				t.Fatalf("\t%s\tTest %d:\tShould fill the buffer and drop the rest.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould not block the sender.", success, testID)

			if exp := uint64(500 - cap(ch)); evts.Dropped() != exp {
				t.Fatalf("\t%s\tTest %d:\tShould count %d dropped events, got %d.", failed, testID, exp, evts.Dropped())
			}
			t.Logf("\t%s\tTest %d:\tShould count the dropped events.", success, testID)
		}
	}
}
