package carrier_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/iaros/freightquote/internal/carrier"
	"github.com/iaros/freightquote/internal/zone"
)

func zoneIndexFixture(t *testing.T) *zone.Index {
	t.Helper()
	idx, err := zone.LoadFromBytes([]byte(`[
		{"pincode": 110001, "zone": "N1", "state": "DL", "city": "Delhi"},
		{"pincode": 110002, "zone": "N1", "state": "DL", "city": "Delhi"},
		{"pincode": 110003, "zone": "N1", "state": "DL", "city": "Delhi"}
	]`))
	if err != nil {
		t.Fatalf("zone.LoadFromBytes: %v", err)
	}
	return idx
}

func TestBuildServiceIndex_FullZoneExpandsMasterCatalog(t *testing.T) {
	zi := zoneIndexFixture(t)
	c := &carrier.Carrier{
		IntegrityMode: carrier.IntegrityNone,
		Serviceability: map[string]carrier.ZoneServiceability{
			"N1": {Mode: carrier.FullZone},
		},
	}
	idx := carrier.BuildServiceIndex(c, zi)
	assert.True(t, idx.IsServiceable(110001))
	assert.True(t, idx.IsServiceable(110002))
	assert.True(t, idx.IsServiceable(110003))
}

func TestBuildServiceIndex_ExceptionSetAppliesRegardlessOfMode(t *testing.T) {
	// spec.md §8 invariant 6: an excepted pincode is never serviceable,
	// even under FULL_ZONE.
	zi := zoneIndexFixture(t)
	c := &carrier.Carrier{
		Serviceability: map[string]carrier.ZoneServiceability{
			"N1": {Mode: carrier.FullZone, ExceptSingles: []int{110002}},
		},
	}
	idx := carrier.BuildServiceIndex(c, zi)
	assert.True(t, idx.IsServiceable(110001))
	assert.False(t, idx.IsServiceable(110002))
}

func TestBuildServiceIndex_SoftExclusionsAreExceptionsToo(t *testing.T) {
	zi := zoneIndexFixture(t)
	c := &carrier.Carrier{
		Serviceability: map[string]carrier.ZoneServiceability{
			"N1": {Mode: carrier.FullZone, SoftExclusions: []int{110003}},
		},
	}
	idx := carrier.BuildServiceIndex(c, zi)
	assert.False(t, idx.IsServiceable(110003))
}

func TestBuildServiceIndex_HybridWhitelistUnderFullZone(t *testing.T) {
	// A FULL_ZONE entry that also lists servedSingles/Ranges becomes a
	// whitelist instead of expanding the whole zone (spec.md §4.3 pass 2).
	zi := zoneIndexFixture(t)
	c := &carrier.Carrier{
		Serviceability: map[string]carrier.ZoneServiceability{
			"N1": {Mode: carrier.FullZone, ServedSingles: []int{110001}},
		},
	}
	idx := carrier.BuildServiceIndex(c, zi)
	assert.True(t, idx.IsServiceable(110001))
	assert.False(t, idx.IsServiceable(110002))
}

func TestBuildServiceIndex_OnlyServedExpandsExplicitSetOnly(t *testing.T) {
	zi := zoneIndexFixture(t)
	c := &carrier.Carrier{
		Serviceability: map[string]carrier.ZoneServiceability{
			"N1": {Mode: carrier.OnlyServed, ServedRanges: []carrier.PincodeRange{{Start: 110001, End: 110001}}},
		},
	}
	idx := carrier.BuildServiceIndex(c, zi)
	assert.True(t, idx.IsServiceable(110001))
	assert.False(t, idx.IsServiceable(110002))
}

func TestBuildServiceIndex_NotServedIsAlwaysEmpty(t *testing.T) {
	zi := zoneIndexFixture(t)
	c := &carrier.Carrier{
		Serviceability: map[string]carrier.ZoneServiceability{"N1": {Mode: carrier.NotServed}},
	}
	idx := carrier.BuildServiceIndex(c, zi)
	assert.False(t, idx.IsServiceable(110001))
}

func TestBuildServiceIndex_StrictIntegrityModeDistrustsFullZoneExpansion(t *testing.T) {
	// spec.md §4.3 pass 5: STRICT never trusts a zone-wide expansion even
	// when the carrier declares FULL_ZONE with no hybrid whitelist.
	zi := zoneIndexFixture(t)
	c := &carrier.Carrier{
		IntegrityMode: carrier.IntegrityStrict,
		Serviceability: map[string]carrier.ZoneServiceability{
			"N1": {Mode: carrier.FullZone},
		},
	}
	idx := carrier.BuildServiceIndex(c, zi)
	assert.False(t, idx.IsServiceable(110001))
	assert.Equal(t, 0, idx.Count())
}

func TestBuildServiceIndex_ODAIndexIndependentOfServiceability(t *testing.T) {
	zi := zoneIndexFixture(t)
	c := &carrier.Carrier{
		Serviceability: map[string]carrier.ZoneServiceability{"N1": {Mode: carrier.NotServed}},
		ODA:            map[string]carrier.ZoneODA{"N1": {ODASingles: []int{110001}}},
	}
	idx := carrier.BuildServiceIndex(c, zi)
	assert.False(t, idx.IsServiceable(110001))
	assert.True(t, idx.IsODA(110001))
}
