package carrier_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iaros/freightquote/internal/carrier"
)

func TestParseUTSF_CamelCase(t *testing.T) {
	data := []byte(`{
		"meta": {"id": "c1", "companyName": "ABC Logistics", "isVerified": true, "approvalStatus": "approved"},
		"pricing": {
			"priceRate": {"kFactor": 4500, "minCharges": 300, "fuel": 10, "fuelMax": 500},
			"zoneRates": {"n1": {"s1": 12.5}}
		},
		"serviceability": {
			"N1": {"mode": "FULL_ZONE", "exceptSingles": [110001], "softExclusions": [110002]}
		},
		"oda": {"N1": {"odaSingles": [110003]}}
	}`)

	c, err := carrier.ParseUTSF(data)
	require.NoError(t, err)
	assert.Equal(t, "c1", c.ID)
	assert.Equal(t, "ABC Logistics", c.Name)
	assert.True(t, c.IsVerified)
	assert.Equal(t, carrier.Approved, c.ApprovalStatus)
	assert.Equal(t, 4500, c.Pricing.PriceRate.Divisor)
	assert.Equal(t, 12.5, c.Pricing.ZoneRates["N1"]["S1"])
	assert.ElementsMatch(t, []int{110001}, c.Serviceability["N1"].ExceptSingles)
	assert.ElementsMatch(t, []int{110002}, c.Serviceability["N1"].SoftExclusions)
	assert.ElementsMatch(t, []int{110003}, c.ODA["N1"].ODASingles)
}

func TestParseUTSF_SnakeCaseEquivalence(t *testing.T) {
	camel := []byte(`{
		"meta": {"id": "c1", "companyName": "X"},
		"pricing": {"priceRate": {"minCharges": 10}, "zoneRates": {}},
		"serviceability": {"N1": {"mode": "ONLY_SERVED", "servedSingles": [1], "servedRanges": [[10,20]]}}
	}`)
	snake := []byte(`{
		"meta": {"id": "c1", "company_name": "X"},
		"pricing": {"price_rate": {"min_charges": 10}, "zone_rates": {}},
		"serviceability": {"N1": {"mode": "ONLY_SERVED", "served_singles": [1], "served_ranges": [{"s":10,"e":20}]}}
	}`)

	a, err := carrier.ParseUTSF(camel)
	require.NoError(t, err)
	b, err := carrier.ParseUTSF(snake)
	require.NoError(t, err)

	assert.Equal(t, a.Pricing.PriceRate.MinCharges, b.Pricing.PriceRate.MinCharges)
	assert.ElementsMatch(t, a.Serviceability["N1"].ServedSingles, b.Serviceability["N1"].ServedSingles)
	assert.Equal(t, a.Serviceability["N1"].ServedRanges, b.Serviceability["N1"].ServedRanges)
}

func TestParseUTSF_PincodeAsStringOrNumber(t *testing.T) {
	data := []byte(`{
		"meta": {"id": "c1", "companyName": "X"},
		"zoneOverrides": {"110001": "N1", "110002": "N2"},
		"serviceability": {"N1": {"mode": "ONLY_SERVED", "servedSingles": ["110003", 110004]}},
		"pricing": {"priceRate": {}, "zoneRates": {}}
	}`)
	c, err := carrier.ParseUTSF(data)
	require.NoError(t, err)
	assert.Equal(t, "N1", c.ZoneOverrides[110001])
	assert.Equal(t, "N2", c.ZoneOverrides[110002])
	assert.ElementsMatch(t, []int{110003, 110004}, c.Serviceability["N1"].ServedSingles)
}

func TestEncodeUTSF_RoundTripsThroughParse(t *testing.T) {
	// spec.md §6.1: emit camelCase on write; a re-parse of our own output
	// must reproduce the carrier, pricing and serviceability included.
	original := &carrier.Carrier{
		ID:              "c1",
		Name:            "ABC Logistics",
		OwnerCustomerID: "cust-1",
		ApprovalStatus:  carrier.Approved,
		IsVerified:      true,
		IntegrityMode:   carrier.IntegrityStrict,
		Serviceability: map[string]carrier.ZoneServiceability{
			"N1": {
				Mode:          carrier.OnlyServed,
				ServedSingles: []int{110001},
				ServedRanges:  []carrier.PincodeRange{{Start: 110010, End: 110020}},
				ExceptSingles: []int{110015},
			},
		},
		ODA:           map[string]carrier.ZoneODA{"N1": {ODASingles: []int{110003}}},
		ZoneOverrides: map[int]string{110001: "X3"},
		Pricing: carrier.Pricing{
			ZoneRates: map[string]map[string]float64{"N1": {"S1": 12.5}},
			PriceRate: carrier.PriceRate{Divisor: 4500, MinCharges: 300, Fuel: 10, FuelMax: 500},
			Surcharges: []carrier.Surcharge{
				{ID: "s1", Formula: carrier.Flat, Value: 10, Order: 1, Enabled: true},
			},
		},
	}

	data, err := carrier.EncodeUTSF(original)
	require.NoError(t, err)

	parsed, err := carrier.ParseUTSF(data)
	require.NoError(t, err)
	assert.Equal(t, original.ID, parsed.ID)
	assert.Equal(t, original.Name, parsed.Name)
	assert.Equal(t, original.OwnerCustomerID, parsed.OwnerCustomerID)
	assert.Equal(t, carrier.IntegrityStrict, parsed.IntegrityMode)
	assert.Equal(t, original.Pricing.PriceRate.Divisor, parsed.Pricing.PriceRate.Divisor)
	assert.Equal(t, original.Pricing.ZoneRates, parsed.Pricing.ZoneRates)
	assert.Equal(t, original.Serviceability["N1"].ServedRanges, parsed.Serviceability["N1"].ServedRanges)
	assert.ElementsMatch(t, original.Serviceability["N1"].ExceptSingles, parsed.Serviceability["N1"].ExceptSingles)
	assert.ElementsMatch(t, original.ODA["N1"].ODASingles, parsed.ODA["N1"].ODASingles)
	assert.Equal(t, original.ZoneOverrides, parsed.ZoneOverrides)
	assert.Equal(t, original.Pricing.Surcharges, parsed.Pricing.Surcharges)
}

func TestParseUTSF_SurchargeDefaultsEnabledTrue(t *testing.T) {
	data := []byte(`{
		"meta": {"id": "c1", "companyName": "X"},
		"pricing": {
			"priceRate": {}, "zoneRates": {},
			"surcharges": [{"id": "s1", "formula": "FLAT", "value": 10}]
		}
	}`)
	c, err := carrier.ParseUTSF(data)
	require.NoError(t, err)
	require.Len(t, c.Pricing.Surcharges, 1)
	assert.True(t, c.Pricing.Surcharges[0].Enabled)
}
