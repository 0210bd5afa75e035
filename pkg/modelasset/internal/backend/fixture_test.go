package backend

import (
	"strings"
	"testing"
)

// records encodes a document for the test modules under testdata. Each entry
// is "<kind>:<uri>" and becomes one [kind][len][uri] record.
func records(t *testing.T, entries ...string) []byte {
	t.Helper()
	var out []byte
	for _, e := range entries {
		kind, uri, ok := strings.Cut(e, ":")
		if !ok || len(kind) != 1 || len(uri) > 255 {
			t.Fatalf("bad record %q", e)
		}
		out = append(out, kind[0], byte(len(uri)))
		out = append(out, uri...)
	}
	return out
}

// fixturePixels is a 2x1 image in the test module encoding: red, then green.
var fixturePixels = []byte{2, 1, 0xFF, 0, 0, 0xFF, 0, 0xFF, 0, 0xFF}
