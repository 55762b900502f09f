package freight_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iaros/freightquote/internal/carrier"
	"github.com/iaros/freightquote/internal/freight"
)

func basePricing(unitPrice float64) carrier.Pricing {
	return carrier.Pricing{
		ZoneRates: map[string]map[string]float64{
			"N1": {"S1": unitPrice},
		},
		PriceRate: carrier.PriceRate{Divisor: 5000},
	}
}

func TestCalculate_ScenarioOne_BaseFreight(t *testing.T) {
	p := basePricing(10)
	res, ok := freight.Calculate(p, freight.Input{
		OriginZone: "N1", DestZone: "S1",
		ActualWeight: 10, VolumetricWeight: 11,
	})
	require.True(t, ok)
	assert.Equal(t, 11.0, res.ChargeableWeight)
	assert.Equal(t, 110.0, res.BaseFreight)
}

func TestCalculate_MinChargesNotAppliedToTotal_EffectiveBaseFloor(t *testing.T) {
	// spec.md §8 scenario 2: minCharges=500, minChargesApplyToTotal=false.
	p := basePricing(10)
	p.PriceRate.MinCharges = 500
	p.PriceRate.MinChargesApplyToTotal = false

	res, ok := freight.Calculate(p, freight.Input{
		OriginZone: "N1", DestZone: "S1",
		ActualWeight: 10, VolumetricWeight: 11,
	})
	require.True(t, ok)
	assert.Equal(t, 110.0, res.BaseFreight)
	assert.Equal(t, 500.0, res.EffectiveBase)
	assert.True(t, res.MinChargesApplied)
}

func TestCalculate_MinChargesApplyToTotal_EffectiveBaseEqualsBase(t *testing.T) {
	p := basePricing(10)
	p.PriceRate.MinCharges = 500
	p.PriceRate.MinChargesApplyToTotal = true
	p.PriceRate.MinTotalCharges = 500

	res, ok := freight.Calculate(p, freight.Input{
		OriginZone: "N1", DestZone: "S1",
		ActualWeight: 10, VolumetricWeight: 11,
	})
	require.True(t, ok)
	assert.Equal(t, res.BaseFreight, res.EffectiveBase)
	assert.False(t, res.MinChargesApplied)
	assert.EqualValues(t, 500, res.TotalCharges)
}

func TestCalculate_NoRateForLane_CarrierSkipped(t *testing.T) {
	// spec.md §8 scenario 3 / invariant 5.
	p := carrier.Pricing{ZoneRates: map[string]map[string]float64{"N1": {"N2": 5}}}
	_, ok := freight.Calculate(p, freight.Input{OriginZone: "N1", DestZone: "S1", ActualWeight: 5})
	assert.False(t, ok)
}

func TestCalculate_RateLookup_TriesReverseDirection(t *testing.T) {
	p := carrier.Pricing{ZoneRates: map[string]map[string]float64{"S1": {"N1": 20}}}
	res, ok := freight.Calculate(p, freight.Input{OriginZone: "N1", DestZone: "S1", ActualWeight: 5})
	require.True(t, ok)
	assert.Equal(t, 20.0, res.UnitPrice)
}

func TestCalculate_FuelCap(t *testing.T) {
	// spec.md §8 scenario 6: fuel=100%, fuelMax=400, base=10000 -> 400.
	p := basePricing(100)
	p.PriceRate.Fuel = 100
	p.PriceRate.FuelMax = 400

	res, ok := freight.Calculate(p, freight.Input{
		OriginZone: "N1", DestZone: "S1",
		ActualWeight: 100, VolumetricWeight: 0,
	})
	require.True(t, ok)
	assert.Equal(t, 10000.0, res.BaseFreight)
	assert.Equal(t, 400.0, res.FuelCharges)
}

func TestCalculate_InvoiceSurcharge_FloorsAtMinimum(t *testing.T) {
	// spec.md §8 scenario 7: percentage=1, minimumAmount=50, invoiceValue=1000
	// -> max(10, 50) = 50.
	p := basePricing(1)
	p.InvoiceValueCharges = carrier.InvoiceValueCharge{Enabled: true, Percentage: 1, MinimumAmount: 50}

	res, ok := freight.Calculate(p, freight.Input{
		OriginZone: "N1", DestZone: "S1",
		ActualWeight: 1, VolumetricWeight: 0, InvoiceValue: 1000,
	})
	require.True(t, ok)
	assert.Equal(t, 50.0, res.InvoiceSurcharge)
	assert.Equal(t, res.TotalCharges-50, res.TotalChargesWithoutInvoiceAddon)
}

func TestCalculate_ODASwitchMode_ThresholdBoundaryUsesFixedBranch(t *testing.T) {
	// spec.md §8 boundary test: weight == threshold uses the fixed branch.
	p := basePricing(1)
	p.ODACharges = carrier.ODACharge{Mode: carrier.ODASwitch, Fixed: 100, Variable: 5, ThresholdWeight: 20}

	atThreshold, ok := freight.Calculate(p, freight.Input{
		OriginZone: "N1", DestZone: "S1",
		ActualWeight: 20, VolumetricWeight: 0, IsDestODA: true,
	})
	require.True(t, ok)
	assert.Equal(t, 100.0, atThreshold.ODACharges)

	aboveThreshold, ok := freight.Calculate(p, freight.Input{
		OriginZone: "N1", DestZone: "S1",
		ActualWeight: 21, VolumetricWeight: 0, IsDestODA: true,
	})
	require.True(t, ok)
	assert.Equal(t, 5.0*21, aboveThreshold.ODACharges)
}

func TestCalculate_ODALegacyMode(t *testing.T) {
	p := basePricing(1)
	p.ODACharges = carrier.ODACharge{Mode: carrier.ODALegacy, Fixed: 50, Variable: 10}
	res, ok := freight.Calculate(p, freight.Input{
		OriginZone: "N1", DestZone: "S1",
		ActualWeight: 10, VolumetricWeight: 0, IsDestODA: true,
	})
	require.True(t, ok)
	assert.Equal(t, 50.0+10*10.0/100, res.ODACharges)
}

func TestCalculate_ODAExcessMode(t *testing.T) {
	p := basePricing(1)
	p.ODACharges = carrier.ODACharge{Mode: carrier.ODAExcess, Fixed: 50, Variable: 2, ThresholdWeight: 10}
	res, ok := freight.Calculate(p, freight.Input{
		OriginZone: "N1", DestZone: "S1",
		ActualWeight: 15, VolumetricWeight: 0, IsDestODA: true,
	})
	require.True(t, ok)
	assert.Equal(t, 50.0+2*5.0, res.ODACharges)
}

func TestCalculate_ODANotAppliedWhenNotODA(t *testing.T) {
	p := basePricing(1)
	p.ODACharges = carrier.ODACharge{Mode: carrier.ODALegacy, Fixed: 50, Variable: 10}
	res, ok := freight.Calculate(p, freight.Input{
		OriginZone: "N1", DestZone: "S1",
		ActualWeight: 10, VolumetricWeight: 0, IsDestODA: false,
	})
	require.True(t, ok)
	assert.Equal(t, 0.0, res.ODACharges)
}

func TestCalculate_CustomSurcharges_OrderAndSubtotalIsolation(t *testing.T) {
	// spec.md §8: a PCT_OF_SUBTOTAL at order 10 must not see a FLAT at
	// order 20 that comes after it.
	p := basePricing(1)
	p.Surcharges = []carrier.Surcharge{
		{ID: "late-flat", Formula: carrier.Flat, Value: 1000, Order: 20, Enabled: true},
		{ID: "subtotal-pct", Formula: carrier.PctOfSubtotal, Value: 10, Order: 10, Enabled: true},
	}

	res, ok := freight.Calculate(p, freight.Input{
		OriginZone: "N1", DestZone: "S1",
		ActualWeight: 100, VolumetricWeight: 0,
	})
	require.True(t, ok)
	// standardSum = baseFreight(100) only, no other standard charges.
	assert.Equal(t, 10.0, res.CustomSurcharges["subtotal-pct"])
	assert.Equal(t, 1000.0, res.CustomSurcharges["late-flat"])
}

func TestCalculate_CustomSurcharge_MaxFlatPerKg(t *testing.T) {
	p := basePricing(1)
	p.Surcharges = []carrier.Surcharge{
		{ID: "maxflat", Formula: carrier.MaxFlatPerKg, Value: 50, Value2: 2, Order: 1, Enabled: true},
	}
	res, ok := freight.Calculate(p, freight.Input{
		OriginZone: "N1", DestZone: "S1",
		ActualWeight: 100, VolumetricWeight: 0,
	})
	require.True(t, ok)
	// max(50, 2*100) = 200
	assert.Equal(t, 200.0, res.CustomSurcharges["maxflat"])
}

func TestCalculate_DisabledSurchargeSkipped(t *testing.T) {
	p := basePricing(1)
	p.Surcharges = []carrier.Surcharge{
		{ID: "disabled", Formula: carrier.Flat, Value: 999, Order: 1, Enabled: false},
	}
	res, ok := freight.Calculate(p, freight.Input{
		OriginZone: "N1", DestZone: "S1",
		ActualWeight: 10, VolumetricWeight: 0,
	})
	require.True(t, ok)
	_, present := res.CustomSurcharges["disabled"]
	assert.False(t, present)
}

func TestCalculate_MinTotalChargesFloor(t *testing.T) {
	p := basePricing(1)
	p.PriceRate.MinTotalCharges = 5000
	res, ok := freight.Calculate(p, freight.Input{
		OriginZone: "N1", DestZone: "S1",
		ActualWeight: 10, VolumetricWeight: 0,
	})
	require.True(t, ok)
	assert.EqualValues(t, 5000, res.TotalCharges)
}

func TestCalculate_HandlingChargeThreshold(t *testing.T) {
	p := basePricing(1)
	p.HandlingCharges = carrier.HandlingCharge{Fixed: 20, Variable: 10, ThresholdWeight: 50}
	res, ok := freight.Calculate(p, freight.Input{
		OriginZone: "N1", DestZone: "S1",
		ActualWeight: 60, VolumetricWeight: 0,
	})
	require.True(t, ok)
	assert.Equal(t, 20.0+10*0.10, res.HandlingCharges)
}

func TestCalculate_CompoundChargeTakesMaxOfFixedAndVariable(t *testing.T) {
	p := basePricing(10)
	p.ROVCharges = carrier.CompoundCharge{Fixed: 100, Variable: 50} // 50% of 1000 base = 500 > fixed 100
	res, ok := freight.Calculate(p, freight.Input{
		OriginZone: "N1", DestZone: "S1",
		ActualWeight: 100, VolumetricWeight: 0,
	})
	require.True(t, ok)
	assert.Equal(t, 500.0, res.ROVCharges)
}

func TestCalculate_Invariant_EffectiveBaseGreaterOrEqualBase(t *testing.T) {
	p := basePricing(10)
	p.PriceRate.MinCharges = 10000
	res, ok := freight.Calculate(p, freight.Input{
		OriginZone: "N1", DestZone: "S1",
		ActualWeight: 1, VolumetricWeight: 0,
	})
	require.True(t, ok)
	assert.GreaterOrEqual(t, res.EffectiveBase, res.BaseFreight)
}

func TestCalculate_Invariant_TotalWithoutInvoiceNeverExceedsTotal(t *testing.T) {
	p := basePricing(10)
	p.InvoiceValueCharges = carrier.InvoiceValueCharge{Enabled: true, Percentage: 5, MinimumAmount: 0}
	res, ok := freight.Calculate(p, freight.Input{
		OriginZone: "N1", DestZone: "S1",
		ActualWeight: 10, VolumetricWeight: 0, InvoiceValue: 5000,
	})
	require.True(t, ok)
	assert.LessOrEqual(t, res.TotalChargesWithoutInvoiceAddon, res.TotalCharges)
	assert.GreaterOrEqual(t, res.TotalCharges, int64(0))
}

func TestCalculate_MinWeightRaisesEffectiveWeight(t *testing.T) {
	p := basePricing(10)
	p.PriceRate.MinWeight = 50
	res, ok := freight.Calculate(p, freight.Input{
		OriginZone: "N1", DestZone: "S1",
		ActualWeight: 5, VolumetricWeight: 3,
	})
	require.True(t, ok)
	// chargeableWeight = max(5,3) = 5, but minWeight=50 raises the billed weight.
	assert.Equal(t, 5.0, res.ChargeableWeight)
	assert.Equal(t, 500.0, res.BaseFreight)
}
