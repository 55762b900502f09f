package quote

import (
	"github.com/iaros/freightquote/internal/carrier"
	"github.com/iaros/freightquote/internal/freight"
	"github.com/iaros/freightquote/internal/shipment"
	"github.com/iaros/freightquote/internal/smartshield"
)

// Request is the full calculate request contract (spec.md §4.7).
type Request struct {
	OwnerCustomerID string            `json:"ownerCustomerId"`
	Origin          int               `json:"origin"`
	Dest            int               `json:"dest"`
	Mode            string            `json:"mode,omitempty"`
	Shipment        shipment.Request  `json:"shipment"`
	InvoiceValue    float64           `json:"invoiceValue"`
}

// Quote is a single carrier's result as surfaced in the response, owned by
// its producing request and carrying every input used plus provenance
// (spec.md §3 "Quote — derived").
type Quote struct {
	CarrierID   string        `json:"carrierId"`
	CarrierName string        `json:"carrierName"`
	Source      carrier.Source `json:"source"`

	UnitPrice        float64 `json:"unitPrice"`
	ActualWeight     float64 `json:"actualWeight"`
	VolumetricWeight float64 `json:"volumetricWeight"`
	ChargeableWeight float64 `json:"chargeableWeight"`

	BaseFreight   float64 `json:"baseFreight"`
	EffectiveBase float64 `json:"effectiveBaseFreight"`

	FuelCharges          float64            `json:"fuelCharges"`
	ROVCharges           float64            `json:"rovCharges"`
	InsuranceCharges     float64            `json:"insuranceCharges"`
	FMCharges            float64            `json:"fmCharges"`
	AppointmentCharges   float64            `json:"appointmentCharges"`
	HandlingCharges      float64            `json:"handlingCharges"`
	ODACharges           float64            `json:"odaCharges"`
	DocketCharges        float64            `json:"docketCharges"`
	GreenTax             float64            `json:"greenTax"`
	DaccCharges          float64            `json:"daccCharges"`
	MiscellaneousCharges float64            `json:"miscellaneousCharges"`
	InvoiceSurcharge     float64            `json:"invoiceSurcharge"`
	CustomSurcharges     map[string]float64 `json:"customSurcharges,omitempty"`

	TotalCharges                    int64 `json:"totalCharges"`
	TotalChargesWithoutInvoiceAddon int64 `json:"totalChargesWithoutInvoiceAddon"`

	FormulaParams freight.FormulaParams `json:"formulaParams"`
}

// fromFreightResult builds a Quote from a freight.Result plus its owning
// carrier entry.
func fromFreightResult(e *carrier.Entry, r *freight.Result) Quote {
	return Quote{
		CarrierID:                       e.Carrier.ID,
		CarrierName:                     e.Carrier.Name,
		Source:                          e.Carrier.Source,
		UnitPrice:                       r.UnitPrice,
		ActualWeight:                    r.ActualWeight,
		VolumetricWeight:                r.VolumetricWeight,
		ChargeableWeight:                r.ChargeableWeight,
		BaseFreight:                     r.BaseFreight,
		EffectiveBase:                   r.EffectiveBase,
		FuelCharges:                     r.FuelCharges,
		ROVCharges:                      r.ROVCharges,
		InsuranceCharges:                r.InsuranceCharges,
		FMCharges:                       r.FMCharges,
		AppointmentCharges:              r.AppointmentCharges,
		HandlingCharges:                 r.HandlingCharges,
		ODACharges:                      r.ODACharges,
		DocketCharges:                   r.DocketCharges,
		GreenTax:                        r.GreenTax,
		DaccCharges:                     r.DaccCharges,
		MiscellaneousCharges:            r.MiscellaneousCharges,
		InvoiceSurcharge:                r.InvoiceSurcharge,
		CustomSurcharges:                r.CustomSurcharges,
		TotalCharges:                    r.TotalCharges,
		TotalChargesWithoutInvoiceAddon: r.TotalChargesWithoutInvoiceAddon,
		FormulaParams:                   r.FormulaParams,
	}
}

// SmartShieldView is the response's smartShield block (spec.md §4.7 step 12).
type SmartShieldView struct {
	OverallScore float64             `json:"overallScore"`
	Summary      map[string]int      `json:"summary"`
	CohortFlags  []smartshield.Flag  `json:"cohortFlags,omitempty"`
	QuoteFlags   map[string][]smartshield.Flag `json:"quoteFlags,omitempty"`
}

// Debug carries graceful-degradation metadata (spec.md §4.7 Failure policy).
type Debug struct {
	Error        bool   `json:"error,omitempty"`
	ErrorType    string `json:"errorType,omitempty"`
	ErrorMessage string `json:"errorMessage,omitempty"`
}

// Response is the full calculate response (spec.md §4.7 step 12).
type Response struct {
	TiedUpResult  []Quote         `json:"tiedUpResult"`
	CompanyResult []Quote         `json:"companyResult"`
	DistanceKM    float64         `json:"distanceKm,omitempty"`
	DistanceText  string          `json:"distanceText,omitempty"`
	EstimatedDays float64         `json:"estimatedDays,omitempty"`
	SmartShield   SmartShieldView `json:"smartShield"`
	Debug         Debug           `json:"debug"`
	FromCache     bool            `json:"fromCache,omitempty"`
}
