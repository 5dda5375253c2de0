package merkle_test

import (
	"crypto/sha256"
	"strings"
	"testing"

	"github.com/agrimkaushik/powledger/foundation/blockchain/merkle"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

// =============================================================================

func Test_Root(t *testing.T) {
	t.Log("Given the need to commit a block to its ordered transactions.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen hashing small leaf sets.", testID)
		{
			if got, want := merkle.Root(nil), sha256.Sum256(nil); got != want {
				t.Fatalf("\t%s\tTest %d:\tShould root an empty set at the hash of no data.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould root an empty set at the hash of no data.", success, testID)

			leaf := []byte("tx-a")
			leafHash := sha256.Sum256(leaf)
			if got := merkle.Root([][]byte{leaf}); got != leafHash {
				t.Fatalf("\t%s\tTest %d:\tShould root a single leaf at its own hash.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould root a single leaf at its own hash.", success, testID)

			a := sha256.Sum256([]byte("tx-a"))
			b := sha256.Sum256([]byte("tx-b"))
			pair := make([]byte, 0, 64)
			pair = append(pair, a[:]...)
			pair = append(pair, b[:]...)
			want := sha256.Sum256(pair)

			if got := merkle.Root([][]byte{[]byte("tx-a"), []byte("tx-b")}); got != want {
				t.Fatalf("\t%s\tTest %d:\tShould pair two leaves by hashing their concatenation.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould pair two leaves by hashing their concatenation.", success, testID)
		}

		testID = 1
		t.Logf("\tTest %d:\tWhen leaf order or content changes.", testID)
		{
			ab := merkle.Root([][]byte{[]byte("tx-a"), []byte("tx-b")})
			ba := merkle.Root([][]byte{[]byte("tx-b"), []byte("tx-a")})
			if ab == ba {
				t.Fatalf("\t%s\tTest %d:\tShould produce different roots for different orders.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould produce different roots for different orders.", success, testID)

			ab2 := merkle.Root([][]byte{[]byte("tx-a"), []byte("tx-b")})
			if ab != ab2 {
				t.Fatalf("\t%s\tTest %d:\tShould produce the same root for the same leaves.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould produce the same root for the same leaves.", success, testID)

			abx := merkle.Root([][]byte{[]byte("tx-a"), []byte("tx-x")})
			if ab == abx {
				t.Fatalf("\t%s\tTest %d:\tShould change the root when any leaf changes.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould change the root when any leaf changes.", success, testID)
		}

		testID = 2
		t.Logf("\tTest %d:\tWhen the leaf count is odd.", testID)
		{
			// The odd node is promoted unchanged, so three leaves fold as
			// hash(hash(a||b) || hash(c)).
			a := sha256.Sum256([]byte("tx-a"))
			b := sha256.Sum256([]byte("tx-b"))
			c := sha256.Sum256([]byte("tx-c"))

			pair := make([]byte, 0, 64)
			pair = append(pair, a[:]...)
			pair = append(pair, b[:]...)
			ab := sha256.Sum256(pair)

			top := make([]byte, 0, 64)
			top = append(top, ab[:]...)
			top = append(top, c[:]...)
			want := sha256.Sum256(top)

			got := merkle.Root([][]byte{[]byte("tx-a"), []byte("tx-b"), []byte("tx-c")})
			if got != want {
				t.Fatalf("\t%s\tTest %d:\tShould promote the odd leaf to the next level unchanged.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould promote the odd leaf to the next level unchanged.", success, testID)
		}
	}
}

func Test_RootHex(t *testing.T) {
	t.Log("Given the need for the ledger's hex form of the root.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen encoding a root.", testID)
		{
			hex := merkle.RootHex([][]byte{[]byte("tx-a")})

			if !strings.HasPrefix(hex, "0x") || len(hex) != 66 {
				t.Fatalf("\t%s\tTest %d:\tShould encode as 0x followed by 64 hex digits, got %q.", failed, testID, hex)
			}
			t.Logf("\t%s\tTest %d:\tShould encode as 0x followed by 64 hex digits.", success, testID)

			if merkle.RootHex(nil) != merkle.RootHex([][]byte{}) {
				t.Fatalf("\t%s\tTest %d:\tShould treat nil and empty the same.", failed, testID)
			}
			t.Logf("\t%s\tTest %d:\tShould treat nil and empty the same.", success, testID)
		}
	}
}
