package zone_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iaros/freightquote/internal/zone"
)

func TestLoadFromBytes_ZoneOfAndHas(t *testing.T) {
	idx, err := zone.LoadFromBytes([]byte(`[
		{"pincode": "400001", "zone": "w1", "state": "MH", "city": "Mumbai"},
		{"pincode": 110001, "zone": "N1", "state": "DL", "city": "Delhi"}
	]`))
	require.NoError(t, err)

	z, ok := idx.ZoneOf(400001)
	require.True(t, ok)
	assert.Equal(t, "W1", z) // zone codes are upper-cased regardless of input case

	assert.True(t, idx.Has(110001))
	assert.False(t, idx.Has(999999))
	assert.Equal(t, 2, idx.Len())
}

func TestLoadFromBytes_PincodesInZoneIsCaseInsensitive(t *testing.T) {
	idx, err := zone.LoadFromBytes([]byte(`[
		{"pincode": 110001, "zone": "N1"},
		{"pincode": 110002, "zone": "N1"},
		{"pincode": 400001, "zone": "W1"}
	]`))
	require.NoError(t, err)

	pins := idx.PincodesInZone("n1")
	assert.ElementsMatch(t, []int{110001, 110002}, pins)
}

func TestLoadFromBytes_UnparsablePincodeIsSkippedNotFatal(t *testing.T) {
	idx, err := zone.LoadFromBytes([]byte(`[
		{"pincode": "not-a-number", "zone": "N1"},
		{"pincode": 110001, "zone": "N1"}
	]`))
	require.NoError(t, err)
	assert.Equal(t, 1, idx.Len())
	assert.True(t, idx.Has(110001))
}
