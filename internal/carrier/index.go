package carrier

import "github.com/iaros/freightquote/internal/zone"

// ServiceIndex is the compiled, O(1)-lookup serviceability view of a single
// carrier, built once per load/reload per the four-pass algorithm in
// spec.md §4.3.
type ServiceIndex struct {
	served map[int]bool
	oda    map[int]bool
}

// BuildServiceIndex compiles c's serviceability and ODA declarations into a
// flat per-pincode index, honouring integrityMode and the exception-set
// rule that applies regardless of mode.
func BuildServiceIndex(c *Carrier, zi *zone.Index) *ServiceIndex {
	idx := &ServiceIndex{served: make(map[int]bool), oda: make(map[int]bool)}

	for zoneCode, rules := range c.Serviceability {
		// Pass 1: exceptions, unioned regardless of mode.
		exceptions := expand(rules.ExceptRanges, rules.ExceptSingles)
		for _, p := range rules.SoftExclusions {
			exceptions[p] = true
		}

		// Pass 2: served set per mode.
		var served map[int]bool
		switch rules.Mode {
		case FullZone, FullMinusExceptions:
			hasHybrid := len(rules.ServedRanges) > 0 || len(rules.ServedSingles) > 0
			switch {
			case hasHybrid:
				served = expand(rules.ServedRanges, rules.ServedSingles)
			case c.IntegrityMode == IntegrityStrict:
				served = map[int]bool{}
			default:
				served = make(map[int]bool)
				if zi != nil {
					for _, p := range zi.PincodesInZone(zoneCode) {
						served[p] = true
					}
				}
			}
		case OnlyServed:
			served = expand(rules.ServedRanges, rules.ServedSingles)
		case NotServed:
			served = map[int]bool{}
		default:
			served = map[int]bool{}
		}

		for p := range exceptions {
			delete(served, p)
		}
		for p := range served {
			idx.served[p] = true
		}
	}

	// Pass 3: ODA index across all zones.
	for _, rules := range c.ODA {
		odaSet := expand(rules.ODARanges, rules.ODASingles)
		for p := range odaSet {
			idx.oda[p] = true
		}
	}

	return idx
}

// expand flattens a set of ranges and singles into a pincode membership set.
func expand(ranges []PincodeRange, singles []int) map[int]bool {
	out := make(map[int]bool, len(singles))
	for _, p := range singles {
		out[p] = true
	}
	for _, r := range ranges {
		for p := r.Start; p <= r.End; p++ {
			out[p] = true
		}
	}
	return out
}

// IsServiceable reports whether pin is servable under this compiled index.
// Pass 5: in STRICT integrity mode, BuildServiceIndex already excluded any
// zone-wide FULL_ZONE expansion, so a plain membership check here is
// sufficient to honour "no zone-wide expansion is trusted".
func (idx *ServiceIndex) IsServiceable(pin int) bool {
	return idx.served[pin]
}

// IsODA reports whether pin is flagged out-of-delivery-area.
func (idx *ServiceIndex) IsODA(pin int) bool {
	return idx.oda[pin]
}

// Count returns the number of distinct serviceable pincodes, used for
// catalog stats and admin diagnostics.
func (idx *ServiceIndex) Count() int {
	return len(idx.served)
}

// ServedPincodes returns every serviceable pincode, used by
// NearestPincodeFinder's candidate-set construction (spec.md §4.10).
func (idx *ServiceIndex) ServedPincodes() []int {
	out := make([]int, 0, len(idx.served))
	for p := range idx.served {
		out = append(out, p)
	}
	return out
}
