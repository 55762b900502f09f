// Package smartshield implements the post-hoc, purely advisory anomaly
// detector that runs over a batch of quotes after FreightCalculator has
// produced them (spec.md §4.9). It never drops a quote; it only annotates.
package smartshield

import (
	"math"
	"sort"

	"github.com/iaros/freightquote/internal/freight"
)

// Severity classifies a Flag.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Flag is a single anomaly observation attached to a quote or a cohort.
type Flag struct {
	Code     string
	Severity Severity
	Message  string
	Field    string
	Value    float64
}

// QuoteContext is the subset of a quote's data SmartShield needs, kept
// independent of the carrier/quote packages so this package has no
// upward dependency on the orchestration layer.
type QuoteContext struct {
	CarrierID    string
	ActualWeight float64
	Volumetric   float64
	Chargeable   float64
	UnitPrice    float64
	BaseFreight  float64
	EffectiveBase float64
	FuelCharges        float64
	ODACharges         float64
	HandlingCharges    float64
	ROVCharges         float64
	InsuranceCharges   float64
	MiscellaneousCharges float64
	TotalCharges       float64
	PartsSum           float64 // sum of every itemised charge the quote reports
}

// QuoteReport is one quote's flags and derived health score.
type QuoteReport struct {
	CarrierID string
	Flags     []Flag
	Score     float64
}

// Summary is the aggregate result over a batch of quotes.
type Summary struct {
	OverallScore float64
	Errors       int
	Warnings     int
	Infos        int
	PerQuote     []QuoteReport
	CohortFlags  []Flag
}

// Evaluate runs every per-quote check plus the cohort outlier check over
// quotes and returns the combined Summary (spec.md §4.9).
func Evaluate(quotes []QuoteContext) Summary {
	perQuote := make([]QuoteReport, 0, len(quotes))
	var totalErrors, totalWarnings, totalInfos int

	for _, q := range quotes {
		flags := evaluateQuote(q)
		perQuote = append(perQuote, QuoteReport{
			CarrierID: q.CarrierID,
			Flags:     flags,
			Score:     quoteScore(flags),
		})
		e, w, i := tally(flags)
		totalErrors += e
		totalWarnings += w
		totalInfos += i
	}

	cohortFlags := evaluateCohort(quotes)
	ce, cw, ci := tally(cohortFlags)
	totalErrors += ce
	totalWarnings += cw
	totalInfos += ci

	return Summary{
		OverallScore: overallScore(totalErrors, totalWarnings),
		Errors:       totalErrors,
		Warnings:     totalWarnings,
		Infos:        totalInfos,
		PerQuote:     perQuote,
		CohortFlags:  cohortFlags,
	}
}

func tally(flags []Flag) (errors, warnings, infos int) {
	for _, f := range flags {
		switch f.Severity {
		case SeverityError:
			errors++
		case SeverityWarning:
			warnings++
		case SeverityInfo:
			infos++
		}
	}
	return
}

func evaluateQuote(q QuoteContext) []Flag {
	var flags []Flag

	add := func(code string, sev Severity, msg, field string, value float64) {
		flags = append(flags, Flag{Code: code, Severity: sev, Message: msg, Field: field, Value: value})
	}

	if math.IsNaN(q.TotalCharges) {
		add("NAN_TOTAL", SeverityError, "total charges is NaN", "totalCharges", q.TotalCharges)
	}
	if q.TotalCharges < 0 {
		add("NEGATIVE_TOTAL", SeverityError, "total charges is negative", "totalCharges", q.TotalCharges)
	}
	if q.BaseFreight < 0 {
		add("NEGATIVE_BASE", SeverityError, "base freight is negative", "baseFreight", q.BaseFreight)
	}

	expectedChargeable := math.Max(q.ActualWeight, q.Volumetric)
	diff := math.Abs(q.Chargeable - expectedChargeable)
	if diff > 0.5 && expectedChargeable > 0 && diff/expectedChargeable > 0.01 {
		add("WEIGHT_MISMATCH", SeverityWarning, "chargeable weight diverges from max(actual, volumetric)", "chargeableWeight", q.Chargeable)
	}

	if q.ActualWeight > 0 && q.Volumetric/q.ActualWeight > 100 {
		add("EXTREME_VOLUMETRIC", SeverityWarning, "volumetric weight is over 100x actual weight", "volumetricWeight", q.Volumetric)
	}
	if q.Chargeable < 0.01 {
		add("NEAR_ZERO_WEIGHT", SeverityWarning, "chargeable weight is near zero", "chargeableWeight", q.Chargeable)
	}
	if q.EffectiveBase > q.BaseFreight {
		add("MIN_CHARGES_APPLIED", SeverityInfo, "minimum charges floor was applied", "effectiveBaseFreight", q.EffectiveBase)
	}
	if q.UnitPrice > 500 {
		add("HIGH_UNIT_PRICE", SeverityWarning, "unit price exceeds 500/kg", "unitPrice", q.UnitPrice)
	}
	if q.UnitPrice == 0 && q.TotalCharges != 0 {
		add("ZERO_UNIT_PRICE", SeverityWarning, "unit price is zero but total is nonzero", "unitPrice", q.UnitPrice)
	}
	if q.TotalCharges < 50 {
		add("SUSPICIOUSLY_CHEAP", SeverityWarning, "total charges under 50", "totalCharges", q.TotalCharges)
	}
	if q.TotalCharges > 5_000_000 {
		add("SUSPICIOUSLY_EXPENSIVE", SeverityWarning, "total charges over 5,000,000", "totalCharges", q.TotalCharges)
	}

	ratioCheck := func(code string, amount float64, limit float64, field string) {
		if q.BaseFreight > 0 && amount/q.BaseFreight > limit {
			add(code, SeverityWarning, "charge ratio against base freight exceeds threshold", field, amount)
		}
	}
	ratioCheck("HIGH_FUEL_RATIO", q.FuelCharges, 0.50, "fuelCharges")
	ratioCheck("HIGH_ODA_RATIO", q.ODACharges, 1.00, "odaCharges")
	ratioCheck("HIGH_HANDLING_RATIO", q.HandlingCharges, 0.40, "handlingCharges")
	ratioCheck("HIGH_ROV_RATIO", q.ROVCharges, 0.30, "rovCharges")
	ratioCheck("HIGH_INSURANCE_RATIO", q.InsuranceCharges, 0.20, "insuranceCharges")
	ratioCheck("HIGH_MISC_RATIO", q.MiscellaneousCharges, 0.30, "miscellaneousCharges")

	allFixedZero := q.FuelCharges == 0 && q.ODACharges == 0 && q.HandlingCharges == 0 &&
		q.ROVCharges == 0 && q.InsuranceCharges == 0 && q.MiscellaneousCharges == 0
	if q.BaseFreight == 0 && q.TotalCharges > 0 && allFixedZero {
		add("PHANTOM_CHARGES", SeverityError, "nonzero total with zero base and zero fixed charges", "totalCharges", q.TotalCharges)
	}

	if math.Abs(q.TotalCharges-q.PartsSum) > math.Max(2, 0.01*q.TotalCharges) {
		add("TOTAL_MISMATCH", SeverityWarning, "reported total diverges from the sum of its parts", "totalCharges", q.TotalCharges)
	}
	if q.CarrierID == "" {
		add("NO_VENDOR_ID", SeverityError, "quote has no carrier id", "carrierId", 0)
	}

	return flags
}

// evaluateCohort runs the cohort-level median-outlier check, only when at
// least 3 valid (positive, finite) totals are present (spec.md §4.9).
func evaluateCohort(quotes []QuoteContext) []Flag {
	var totals []float64
	for _, q := range quotes {
		if q.TotalCharges > 0 && !math.IsNaN(q.TotalCharges) {
			totals = append(totals, q.TotalCharges)
		}
	}
	if len(totals) < 3 {
		return nil
	}

	median := medianOf(totals)
	var flags []Flag
	for _, q := range quotes {
		if q.TotalCharges <= 0 || math.IsNaN(q.TotalCharges) {
			continue
		}
		switch {
		case q.TotalCharges < 0.20*median:
			flags = append(flags, Flag{
				Code: "OUTLIER_CHEAP", Severity: SeverityWarning,
				Message: "total is under 20% of cohort median", Field: "totalCharges", Value: q.TotalCharges,
			})
		case q.TotalCharges > 5*median:
			flags = append(flags, Flag{
				Code: "OUTLIER_EXPENSIVE", Severity: SeverityWarning,
				Message: "total exceeds 5x cohort median", Field: "totalCharges", Value: q.TotalCharges,
			})
		}
	}
	return flags
}

func medianOf(values []float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

func quoteScore(flags []Flag) float64 {
	e, w, _ := tally(flags)
	score := 1 - 0.3*float64(e) - 0.1*float64(w)
	return math.Max(0, score)
}

func overallScore(errors, warnings int) float64 {
	score := 1 - 0.15*float64(errors) - 0.05*float64(warnings)
	return math.Max(0, score)
}

// FromResult adapts a freight.Result plus its carrier id into a
// QuoteContext, so callers in internal/quote don't have to hand-build
// the struct field by field.
func FromResult(carrierID string, r *freight.Result) QuoteContext {
	partsSum := r.EffectiveBase + r.FuelCharges + r.ROVCharges + r.InsuranceCharges +
		r.FMCharges + r.AppointmentCharges + r.HandlingCharges + r.ODACharges +
		r.DocketCharges + r.GreenTax + r.DaccCharges + r.MiscellaneousCharges + r.InvoiceSurcharge
	for _, v := range r.CustomSurcharges {
		partsSum += v
	}
	return QuoteContext{
		CarrierID:            carrierID,
		ActualWeight:         r.ActualWeight,
		Volumetric:           r.VolumetricWeight,
		Chargeable:           r.ChargeableWeight,
		UnitPrice:            r.UnitPrice,
		BaseFreight:          r.BaseFreight,
		EffectiveBase:        r.EffectiveBase,
		FuelCharges:          r.FuelCharges,
		ODACharges:           r.ODACharges,
		HandlingCharges:      r.HandlingCharges,
		ROVCharges:           r.ROVCharges,
		InsuranceCharges:     r.InsuranceCharges,
		MiscellaneousCharges: r.MiscellaneousCharges,
		TotalCharges:         float64(r.TotalCharges),
		PartsSum:             partsSum,
	}
}
