// Package zone implements ZoneIndex: an immutable, process-wide
// pincode -> pricing-zone lookup loaded once at boot from the master
// pincode catalog file (spec.md §4.1, §6.2).
package zone

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Metadata holds the non-pricing attributes of a pincode.
type Metadata struct {
	Zone  string
	State string
	City  string
}

// Index is an immutable pincode->zone lookup, safe for unsynchronized
// concurrent reads once Load has returned.
type Index struct {
	byPincode map[int]Metadata
}

// rawEntry mirrors the master catalog's JSON shape; pincode may arrive as
// either a string or a number (spec.md §9), so it is decoded permissively.
type rawEntry struct {
	Pincode interface{} `json:"pincode"`
	Zone    string      `json:"zone"`
	State   string      `json:"state"`
	City    string      `json:"city"`
}

// Load reads the master pincode array from path and builds an Index.
func Load(path string) (*Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("zone: read catalog: %w", err)
	}
	return LoadFromBytes(data)
}

// LoadFromBytes builds an Index from raw JSON bytes, exposed separately so
// tests don't need a filesystem fixture.
func LoadFromBytes(data []byte) (*Index, error) {
	dec := json.NewDecoder(strings.NewReader(string(data)))
	dec.UseNumber()

	var entries []rawEntry
	if err := dec.Decode(&entries); err != nil {
		return nil, fmt.Errorf("zone: decode catalog: %w", err)
	}

	idx := &Index{byPincode: make(map[int]Metadata, len(entries))}
	for _, e := range entries {
		pin, err := canonicalPincode(fmt.Sprint(e.Pincode))
		if err != nil {
			continue
		}
		idx.byPincode[pin] = Metadata{
			Zone:  strings.ToUpper(strings.TrimSpace(e.Zone)),
			State: e.State,
			City:  e.City,
		}
	}
	return idx, nil
}

// canonicalPincode normalises a pincode that may have arrived as a string
// or a JSON number (possibly with whitespace) to a single integer type.
func canonicalPincode(s string) (int, error) {
	s = strings.TrimSpace(s)
	return strconv.Atoi(s)
}

// ZoneOf returns the zone code for pin, or ("", false) if unknown.
func (idx *Index) ZoneOf(pin int) (string, bool) {
	m, ok := idx.byPincode[pin]
	if !ok {
		return "", false
	}
	return m.Zone, true
}

// MetadataOf returns the full metadata record for pin.
func (idx *Index) MetadataOf(pin int) (Metadata, bool) {
	m, ok := idx.byPincode[pin]
	return m, ok
}

// Has reports whether pin is present in the master catalog.
func (idx *Index) Has(pin int) bool {
	_, ok := idx.byPincode[pin]
	return ok
}

// PincodesInZone returns every master pincode belonging to zone, used by
// UTSFRegistry's FULL_ZONE expansion (spec.md §4.3).
func (idx *Index) PincodesInZone(zoneCode string) []int {
	zoneCode = strings.ToUpper(zoneCode)
	var out []int
	for pin, m := range idx.byPincode {
		if m.Zone == zoneCode {
			out = append(out, pin)
		}
	}
	return out
}

// Len returns the number of pincodes in the catalog.
func (idx *Index) Len() int { return len(idx.byPincode) }
