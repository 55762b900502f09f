// Package freight implements the pure per-carrier pricing formula that
// turns a carrier's pricing contract plus shipment/route context into an
// itemised quote (spec.md §4.6). Nothing in this package performs I/O.
package freight

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/iaros/freightquote/internal/carrier"
)

// Input is everything FreightCalculator needs for a single carrier
// evaluation, already resolved by the caller (zones, ODA flag, weights).
type Input struct {
	OriginZone       string
	DestZone         string
	ActualWeight     float64
	VolumetricWeight float64 // pre-computed for this carrier's divisor
	IsDestODA        bool
	InvoiceValue     float64
}

// FormulaParams echoes the constants used to produce a Result, so a
// consumer can audit or reproduce a quote without re-reading the carrier
// contract (spec.md §4.6 step 11).
type FormulaParams struct {
	KFactor             int
	FuelPct             float64
	DocketCharge        float64
	ROVPct              float64
	ROVFixed            float64
	MinCharges          float64
	ODAMode             carrier.ODAMode
	UnitPrice           float64
	BaseFreight         float64
	EffectiveBaseFreight float64
}

// Result is a single carrier's fully itemised quote.
type Result struct {
	UnitPrice        float64
	ActualWeight     float64
	VolumetricWeight float64
	ChargeableWeight float64

	BaseFreight     float64
	EffectiveBase   float64
	MinChargesApplied bool

	FuelCharges        float64
	ROVCharges         float64
	InsuranceCharges   float64
	FMCharges          float64
	AppointmentCharges float64
	HandlingCharges    float64
	ODACharges         float64
	DocketCharges      float64
	GreenTax           float64
	DaccCharges        float64
	MiscellaneousCharges float64
	InvoiceSurcharge   float64
	CustomSurcharges   map[string]float64

	TotalCharges                    int64
	TotalChargesWithoutInvoiceAddon int64

	FormulaParams FormulaParams
}

// ErrNoRate names the case where no zoneRates entry exists for either
// direction between origin and destination zone — spec.md §4.6 step 1 and
// invariant 5. Calculate does not return it: it reports that case as
// ok=false, and the carrier is skipped entirely, not errored.
type ErrNoRate struct{}

func (ErrNoRate) Error() string { return "freight: no zone rate for this lane" }

// Calculate computes a single carrier's quote for in. It returns
// (nil, false) when no rate exists for the lane — the caller must drop
// the carrier from the result set rather than surface an error.
func Calculate(p carrier.Pricing, in Input) (*Result, bool) {
	unitPrice, ok := lookupRate(p.ZoneRates, in.OriginZone, in.DestZone)
	if !ok {
		return nil, false
	}

	chargeableWeight := math.Max(in.ActualWeight, in.VolumetricWeight)

	divisor := p.PriceRate.Divisor
	if divisor == 0 {
		divisor = 5000
	}

	effectiveWeight := chargeableWeight
	if p.PriceRate.MinWeight > chargeableWeight {
		effectiveWeight = p.PriceRate.MinWeight
	}
	baseFreight := unitPrice * effectiveWeight

	effectiveBase := baseFreight
	minApplied := false
	if !p.PriceRate.MinChargesApplyToTotal && p.PriceRate.MinCharges > baseFreight {
		effectiveBase = p.PriceRate.MinCharges
		minApplied = true
	}

	fuel := (p.PriceRate.Fuel / 100) * baseFreight
	if p.PriceRate.FuelMax > 0 && fuel > p.PriceRate.FuelMax {
		fuel = p.PriceRate.FuelMax
	}

	rov := compoundCharge(p.ROVCharges, baseFreight)
	insurance := compoundCharge(p.InsuranceCharges, baseFreight)
	fm := compoundCharge(p.FMCharges, baseFreight)
	appointment := compoundCharge(p.AppointmentCharges, baseFreight)

	handling := p.HandlingCharges.Fixed + math.Max(0, chargeableWeight-p.HandlingCharges.ThresholdWeight)*(p.HandlingCharges.Variable/100)

	var oda float64
	if in.IsDestODA {
		oda = odaCharge(p.ODACharges, chargeableWeight)
	}

	var invoiceSurcharge float64
	if p.InvoiceValueCharges.Enabled && in.InvoiceValue > 0 {
		invoiceSurcharge = math.Max(in.InvoiceValue*p.InvoiceValueCharges.Percentage/100, p.InvoiceValueCharges.MinimumAmount)
	}

	standardSum := effectiveBase + fuel + rov + insurance + fm + appointment + handling + oda +
		p.PriceRate.DocketCharges + p.PriceRate.GreenTax + p.PriceRate.DaccCharges + p.PriceRate.MiscellaneousCharges

	customTotal, customByID := applyCustomSurcharges(p.Surcharges, baseFreight, standardSum, chargeableWeight)

	totalWithoutInvoice := standardSum + customTotal
	total := totalWithoutInvoice + invoiceSurcharge

	if p.PriceRate.MinTotalCharges > 0 && p.PriceRate.MinTotalCharges > total {
		total = p.PriceRate.MinTotalCharges
	}

	res := &Result{
		UnitPrice:            unitPrice,
		ActualWeight:         in.ActualWeight,
		VolumetricWeight:     in.VolumetricWeight,
		ChargeableWeight:     chargeableWeight,
		BaseFreight:          roundHalfUp(baseFreight),
		EffectiveBase:        roundHalfUp(effectiveBase),
		MinChargesApplied:    minApplied,
		FuelCharges:          roundHalfUp(fuel),
		ROVCharges:           roundHalfUp(rov),
		InsuranceCharges:     roundHalfUp(insurance),
		FMCharges:            roundHalfUp(fm),
		AppointmentCharges:   roundHalfUp(appointment),
		HandlingCharges:      roundHalfUp(handling),
		ODACharges:           roundHalfUp(oda),
		DocketCharges:        roundHalfUp(p.PriceRate.DocketCharges),
		GreenTax:             roundHalfUp(p.PriceRate.GreenTax),
		DaccCharges:          roundHalfUp(p.PriceRate.DaccCharges),
		MiscellaneousCharges: roundHalfUp(p.PriceRate.MiscellaneousCharges),
		InvoiceSurcharge:     roundHalfUp(invoiceSurcharge),
		CustomSurcharges:     customByID,

		TotalCharges:                    int64(roundHalfUp(total)),
		TotalChargesWithoutInvoiceAddon: int64(roundHalfUp(total - invoiceSurcharge)),

		FormulaParams: FormulaParams{
			KFactor:              divisor,
			FuelPct:              p.PriceRate.Fuel,
			DocketCharge:         p.PriceRate.DocketCharges,
			ROVPct:               p.ROVCharges.Variable,
			ROVFixed:             p.ROVCharges.Fixed,
			MinCharges:           p.PriceRate.MinCharges,
			ODAMode:              p.ODACharges.Mode,
			UnitPrice:            unitPrice,
			BaseFreight:          roundHalfUp(baseFreight),
			EffectiveBaseFreight: roundHalfUp(effectiveBase),
		},
	}
	return res, true
}

// lookupRate tries origin->dest, then dest->origin, case-insensitively,
// per spec.md §4.6 step 1 ("try both directions").
func lookupRate(rates map[string]map[string]float64, origin, dest string) (float64, bool) {
	origin, dest = strings.ToUpper(origin), strings.ToUpper(dest)
	if inner, ok := rates[origin]; ok {
		if v, ok := inner[dest]; ok {
			return v, true
		}
	}
	if inner, ok := rates[dest]; ok {
		if v, ok := inner[origin]; ok {
			return v, true
		}
	}
	return 0, false
}

func compoundCharge(c carrier.CompoundCharge, base float64) float64 {
	return math.Max((c.Variable/100)*base, c.Fixed)
}

// odaCharge implements the three ODA formulas in spec.md §4.6 step 7. At
// the switch threshold boundary (weight == threshold) the fixed branch
// applies, not the variable one (spec.md §8 boundary tests).
func odaCharge(c carrier.ODACharge, weight float64) float64 {
	switch c.Mode {
	case carrier.ODASwitch:
		if weight > c.ThresholdWeight {
			return c.Variable * weight
		}
		return c.Fixed
	case carrier.ODAExcess:
		return c.Fixed + math.Max(0, weight-c.ThresholdWeight)*c.Variable
	default: // legacy
		return c.Fixed + weight*c.Variable/100
	}
}

// applyCustomSurcharges applies a carrier's ordered surcharge list after
// all standard charges, per spec.md §4.6 step 9. PCT_OF_SUBTOTAL sees only
// the running sum of prior custom surcharges plus the standard-charge
// subtotal — a later entry never feeds an earlier one.
func applyCustomSurcharges(list []carrier.Surcharge, base, standardSubtotal, weight float64) (float64, map[string]float64) {
	ordered := make([]carrier.Surcharge, len(list))
	copy(ordered, list)
	sortByOrder(ordered)

	runningSubtotal := standardSubtotal
	var total float64
	byID := make(map[string]float64, len(ordered))
	for _, s := range ordered {
		if !s.Enabled {
			continue
		}
		var amount float64
		switch s.Formula {
		case carrier.PctOfBase:
			amount = (s.Value / 100) * base
		case carrier.PctOfSubtotal:
			amount = (s.Value / 100) * runningSubtotal
		case carrier.Flat:
			amount = s.Value
		case carrier.PerKg:
			amount = s.Value * weight
		case carrier.MaxFlatPerKg:
			amount = math.Max(s.Value, s.Value2*weight)
		}
		amount = roundHalfUp(amount)
		total += amount
		runningSubtotal += amount
		key := s.ID
		if key == "" {
			key = s.Label
		}
		byID[key] = amount
	}
	return total, byID
}

func sortByOrder(s []carrier.Surcharge) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j].Order < s[j-1].Order; j-- {
			s[j], s[j-1] = s[j-1], s[j]
		}
	}
}

// roundHalfUp implements the engine-wide rounding rule: half-up to the
// nearest rupee, never banker's rounding (spec.md §4.6 edge cases). Uses
// shopspring/decimal rather than float truncation so the rounding step
// itself doesn't reintroduce binary floating-point error on the final,
// customer-visible amount.
func roundHalfUp(x float64) float64 {
	d := decimal.NewFromFloat(x).Round(0)
	f, _ := d.Float64()
	return f
}
