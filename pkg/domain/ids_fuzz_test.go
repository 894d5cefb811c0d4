package domain

import (
	"testing"
	"unicode/utf8"
)

// FuzzParseJobID checks that parsing never panics and that accepted IDs round-trip.
func FuzzParseJobID(f *testing.F) {
	f.Add("")
	f.Add("550e8400-e29b-41d4-a716-446655440000")
	f.Add("00000000-0000-0000-0000-000000000000")
	f.Add("not-a-uuid")
	f.Add("550e8400-e29b-41d4-a716-446655440000\x00suffix")

	f.Fuzz(func(t *testing.T, input string) {
		id, err := ParseJobID(input)
		if err != nil {
			return
		}
		roundTrip, err := ParseJobID(id.String())
		if err != nil {
			t.Errorf("valid ID failed round-trip: %v", err)
		}
		if roundTrip != id {
			t.Error("round-trip changed ID value")
		}
	})
}

// FuzzParseIdentifier checks that an accepted identifier always has exactly one
// well-formed kind and survives re-parsing through its fields.
func FuzzParseIdentifier(f *testing.F) {
	f.Add("ABC123DEF456", "", "")
	f.Add("", "1ABC2", "")
	f.Add("", "", "Acme Widgets LLC")
	f.Add("ABC123DEF456", "1ABC2", "")
	f.Add("", "", string([]byte{0xff, 0xfe}))

	f.Fuzz(func(t *testing.T, uei, cage, legalName string) {
		id, err := ParseIdentifier(uei, cage, legalName)
		if err != nil {
			if !id.IsZero() {
				t.Error("error returned with non-zero identifier")
			}
			return
		}
		if !utf8.ValidString(id.Value()) {
			t.Error("accepted non-UTF8 identifier")
		}
		again, err := ParseIdentifier(id.Fields())
		if err != nil || again != id {
			t.Errorf("identifier %q did not round-trip: %v", id, err)
		}
	})
}
