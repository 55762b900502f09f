package smartshield_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/iaros/freightquote/internal/smartshield"
)

func flagCodes(flags []smartshield.Flag) []string {
	out := make([]string, len(flags))
	for i, f := range flags {
		out[i] = f.Code
	}
	return out
}

func TestEvaluate_CohortOutliers_ScenarioNine(t *testing.T) {
	// spec.md §8 scenario 9: totals [100,500,550,600,3000] -> median 550;
	// 100 is under 20% of median, 3000 is over 5x median.
	quotes := []smartshield.QuoteContext{
		{CarrierID: "c1", TotalCharges: 100, BaseFreight: 100, PartsSum: 100},
		{CarrierID: "c2", TotalCharges: 500, BaseFreight: 500, PartsSum: 500},
		{CarrierID: "c3", TotalCharges: 550, BaseFreight: 550, PartsSum: 550},
		{CarrierID: "c4", TotalCharges: 600, BaseFreight: 600, PartsSum: 600},
		{CarrierID: "c5", TotalCharges: 3000, BaseFreight: 3000, PartsSum: 3000},
	}
	summary := smartshield.Evaluate(quotes)

	var cheap, expensive bool
	for _, f := range summary.CohortFlags {
		if f.Code == "OUTLIER_CHEAP" && f.Value == 100 {
			cheap = true
		}
		if f.Code == "OUTLIER_EXPENSIVE" && f.Value == 3000 {
			expensive = true
		}
	}
	assert.True(t, cheap, "expected 100 to be flagged OUTLIER_CHEAP")
	assert.True(t, expensive, "expected 3000 to be flagged OUTLIER_EXPENSIVE")
}

func TestEvaluate_CohortCheckSkippedBelowThreeQuotes(t *testing.T) {
	quotes := []smartshield.QuoteContext{
		{CarrierID: "c1", TotalCharges: 100, BaseFreight: 100, PartsSum: 100},
		{CarrierID: "c2", TotalCharges: 10000, BaseFreight: 10000, PartsSum: 10000},
	}
	summary := smartshield.Evaluate(quotes)
	assert.Empty(t, summary.CohortFlags)
}

func TestEvaluate_NegativeTotalIsError(t *testing.T) {
	summary := smartshield.Evaluate([]smartshield.QuoteContext{
		{CarrierID: "c1", TotalCharges: -5, BaseFreight: 10, PartsSum: -5},
	})
	assert.Contains(t, flagCodes(summary.PerQuote[0].Flags), "NEGATIVE_TOTAL")
	assert.Equal(t, 1, summary.Errors)
}

func TestEvaluate_NaNTotalIsError(t *testing.T) {
	summary := smartshield.Evaluate([]smartshield.QuoteContext{
		{CarrierID: "c1", TotalCharges: math.NaN(), BaseFreight: 10, PartsSum: 0},
	})
	assert.Contains(t, flagCodes(summary.PerQuote[0].Flags), "NAN_TOTAL")
}

func TestEvaluate_PhantomChargesWhenBaseAndFixedAreZeroButTotalIsNot(t *testing.T) {
	summary := smartshield.Evaluate([]smartshield.QuoteContext{
		{CarrierID: "c1", TotalCharges: 200, BaseFreight: 0, PartsSum: 200},
	})
	assert.Contains(t, flagCodes(summary.PerQuote[0].Flags), "PHANTOM_CHARGES")
}

func TestEvaluate_MissingCarrierIDIsError(t *testing.T) {
	summary := smartshield.Evaluate([]smartshield.QuoteContext{
		{CarrierID: "", TotalCharges: 100, BaseFreight: 100, PartsSum: 100},
	})
	assert.Contains(t, flagCodes(summary.PerQuote[0].Flags), "NO_VENDOR_ID")
}

func TestEvaluate_HighFuelRatioFlagged(t *testing.T) {
	summary := smartshield.Evaluate([]smartshield.QuoteContext{
		{CarrierID: "c1", TotalCharges: 160, BaseFreight: 100, FuelCharges: 60, PartsSum: 160},
	})
	assert.Contains(t, flagCodes(summary.PerQuote[0].Flags), "HIGH_FUEL_RATIO")
}

func TestEvaluate_CleanQuoteHasNoFlagsAndScoreOne(t *testing.T) {
	summary := smartshield.Evaluate([]smartshield.QuoteContext{
		{
			CarrierID: "c1", TotalCharges: 500, BaseFreight: 400, EffectiveBase: 400,
			UnitPrice: 20, ActualWeight: 20, Chargeable: 20, PartsSum: 500,
			FuelCharges: 100,
		},
	})
	assert.Empty(t, summary.PerQuote[0].Flags)
	assert.Equal(t, 1.0, summary.PerQuote[0].Score)
}
