package dedup_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/agrimkaushik/powledger/foundation/blockchain/dedup"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

// =============================================================================

func Test_Seen(t *testing.T) {
	t.Log("Given the need to spot repeated gossip keys.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen keys arrive more than once.", testID)
		{
			c := dedup.New(time.Minute, 100)

			if c.Seen("blk-1") {
				t.Fatalf("\t%s\tTest %d:\tShould report a fresh key as unseen.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould report a fresh key as unseen.", success, testID)

			if !c.Seen("blk-1") {
				t.Fatalf("\t%s\tTest %d:\tShould report a repeated key as seen.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould report a repeated key as seen.", success, testID)

			if c.Seen("blk-2") {
				t.Fatalf("\t%s\tTest %d:\tShould keep keys apart.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould keep keys apart.", success, testID)

			if got := c.Count(); got != 2 {
				t.Fatalf("\t%s\tTest %d:\tShould remember 2 keys, got %d.", failed, testID, got)
			}
			t.Logf("\t%s\tTest %d:\tShould remember 2 keys.", success, testID)
		}
	}
}

func Test_Expiry(t *testing.T) {
	t.Log("Given the need to forget keys once their window passes.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen the window runs out.", testID)
		{
			const ttl = 100 * time.Millisecond
			c := dedup.New(ttl, 100)

			c.Seen("blk-1")

			// Re-seeing inside the window must not extend it.
			time.Sleep(ttl / 4)
			if !c.Seen("blk-1") {
				t.Fatalf("\t%s\tTest %d:\tShould still remember the key inside the window.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould still remember the key inside the window.", success, testID)

			time.Sleep(ttl)
			if c.Seen("blk-1") {
				t.Fatalf("\t%s\tTest %d:\tShould forget the key once the window from first sight passes.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould forget the key once the window from first sight passes.", success, testID)
		}

		testID = 1
		t.Logf("\tTest %d:\tWhen counting after expiry.", testID)
		{
			const ttl = 50 * time.Millisecond
			c := dedup.New(ttl, 100)

			c.Seen("blk-1")
			c.Seen("blk-2")

			time.Sleep(2 * ttl)
			if got := c.Count(); got != 0 {
				t.Fatalf("\t%s\tTest %d:\tShould count 0 keys after expiry, got %d.", failed, testID, got)
			}
			t.Logf("\t%s\tTest %d:\tShould count 0 keys after expiry.", success, testID)
		}
	}
}

func Test_CapEviction(t *testing.T) {
	t.Log("Given the need to bound how much the cache remembers.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen more keys arrive than the cache may hold.", testID)
		{
			const maxEntries = 3
			c := dedup.New(time.Minute, maxEntries)

			for i := 0; i < maxEntries+1; i++ {
				c.Seen(fmt.Sprintf("blk-%d", i))
			}

			if got := c.Count(); got != maxEntries {
				t.Fatalf("\t%s\tTest %d:\tShould hold at most %d keys, got %d.", failed, testID, maxEntries, got)
			}
			t.Logf("\t%s\tTest %d:\tShould hold at most %d keys.", success, testID, maxEntries)

			// The oldest key went first, so it reads as fresh again.
			if c.Seen("blk-0") {
				t.Fatalf("\t%s\tTest %d:\tShould evict the oldest key first.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould evict the oldest key first.", success, testID)

			if !c.Seen("blk-3") {
				t.Fatalf("\t%s\tTest %d:\tShould keep the newest keys.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould keep the newest keys.", success, testID)
		}
	}
}
