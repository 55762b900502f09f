package nearest_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iaros/freightquote/internal/carrier"
	"github.com/iaros/freightquote/internal/geo"
	"github.com/iaros/freightquote/internal/nearest"
	"github.com/iaros/freightquote/internal/zone"
)

type fakeSource struct {
	entries []*carrier.Entry
}

func (f fakeSource) ServiceableCarriers(context.Context, string) []*carrier.Entry { return f.entries }

func onlyServedEntry(id string, pin int, rates map[string]map[string]float64) *carrier.Entry {
	c := &carrier.Carrier{
		ID: id,
		Serviceability: map[string]carrier.ZoneServiceability{
			"N1": {Mode: carrier.OnlyServed, ServedSingles: []int{pin}},
		},
		Pricing: carrier.Pricing{ZoneRates: rates},
	}
	return &carrier.Entry{Carrier: c, Index: carrier.BuildServiceIndex(c, nil)}
}

func TestFind_SkipsCloserCandidateThatCannotPrice_ScenarioTen(t *testing.T) {
	// spec.md §8 scenario 10: two candidates within 200km; only the
	// farther one actually prices, so it becomes the nearest pincode.
	const destination = 500000
	const closePincode = 500001 // ~11km from destination
	const farPincode = 500010   // ~100km from destination

	centroids, err := geo.LoadFromBytes([]byte(`[
		{"pincode": 500000, "lat": 19.0000, "lng": 73.0000},
		{"pincode": 500001, "lat": 19.1000, "lng": 73.0000},
		{"pincode": 500010, "lat": 19.9000, "lng": 73.0000}
	]`))
	require.NoError(t, err)

	zones, err := zone.LoadFromBytes([]byte(`[
		{"pincode": 500001, "zone": "N1"},
		{"pincode": 500010, "zone": "N1"}
	]`))
	require.NoError(t, err)

	closeEntry := onlyServedEntry("close-carrier", closePincode, nil) // no zone rate -> can't price
	farEntry := onlyServedEntry("far-carrier", farPincode, map[string]map[string]float64{
		"N1": {"N1": 10},
	})

	src := fakeSource{entries: []*carrier.Entry{closeEntry, farEntry}}

	result, ok := nearest.Find(context.Background(), 110001, destination, "N1", "", src, centroids, zones)
	require.True(t, ok)
	assert.Equal(t, farPincode, result.NearestPincode)
	assert.Equal(t, []string{"far-carrier"}, result.ServedBy)
	assert.True(t, result.HasDistance)
}

func TestFind_NoCandidatesReturnsFalse(t *testing.T) {
	src := fakeSource{}
	_, ok := nearest.Find(context.Background(), 110001, 500000, "N1", "", src, nil, nil)
	assert.False(t, ok)
}

func TestFind_FallsBackToPincodeDeltaWithoutCentroids(t *testing.T) {
	zones, err := zone.LoadFromBytes([]byte(`[{"pincode": 500010, "zone": "N1"}]`))
	require.NoError(t, err)

	farEntry := onlyServedEntry("far-carrier", 500010, map[string]map[string]float64{"N1": {"N1": 10}})
	src := fakeSource{entries: []*carrier.Entry{farEntry}}

	result, ok := nearest.Find(context.Background(), 110001, 500000, "N1", "", src, nil, zones)
	require.True(t, ok)
	assert.Equal(t, 500010, result.NearestPincode)
	assert.False(t, result.HasDistance)
}
