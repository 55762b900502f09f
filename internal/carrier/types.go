// Package carrier models a freight carrier's pricing contract and
// serviceability rules, and implements the two sources (UTSF file catalog,
// document-store catalog) plus the hot-switch merge between them
// (spec.md §3, §4.3-§4.5).
package carrier

// ApprovalStatus mirrors the lifecycle states a carrier record can be in.
// Only Approved carriers ever enter quoting (spec.md §3).
type ApprovalStatus string

const (
	Pending  ApprovalStatus = "pending"
	Approved ApprovalStatus = "approved"
	Rejected ApprovalStatus = "rejected"
	Draft    ApprovalStatus = "draft"
)

// IntegrityMode controls whether FULL_ZONE expansion is trusted.
type IntegrityMode string

const (
	IntegrityStrict IntegrityMode = "STRICT"
	IntegrityNone   IntegrityMode = "NONE"
)

// ServiceabilityMode is the per-zone coverage strategy a carrier declares.
type ServiceabilityMode string

const (
	FullZone            ServiceabilityMode = "FULL_ZONE"
	FullMinusExceptions ServiceabilityMode = "FULL_MINUS_EXCEPTIONS"
	OnlyServed          ServiceabilityMode = "ONLY_SERVED"
	NotServed           ServiceabilityMode = "NOT_SERVED"
)

// Source identifies which registry a resolved carrier ultimately came from,
// echoed onto every Quote for provenance (spec.md §3).
type Source string

const (
	SourceUTSF Source = "UTSF"
	SourceDB   Source = "DB"
)

// PincodeRange is an inclusive [Start, End] pincode range, the normalised
// form of the UTSF format's `[s,e]`-or-`{s,e}` range encoding (spec.md §9).
type PincodeRange struct {
	Start int
	End   int
}

// Contains reports whether pin falls within the range, inclusive.
func (r PincodeRange) Contains(pin int) bool {
	return pin >= r.Start && pin <= r.End
}

// ZoneServiceability is one zone's entry in a carrier's serviceability map.
type ZoneServiceability struct {
	Mode            ServiceabilityMode
	ExceptRanges    []PincodeRange
	ExceptSingles   []int
	ServedRanges    []PincodeRange
	ServedSingles   []int
	SoftExclusions  []int
	CoveragePercent float64
}

// ZoneODA is one zone's ODA (out-of-delivery-area) pincode declaration.
type ZoneODA struct {
	ODARanges  []PincodeRange
	ODASingles []int
}

// CompoundCharge is the {fixed, variable} shape shared by ROV, insurance,
// FM and appointment charges (spec.md §3).
type CompoundCharge struct {
	Fixed    float64
	Variable float64 // percent
}

// HandlingCharge additionally has a weight threshold below which only the
// fixed portion applies.
type HandlingCharge struct {
	Fixed           float64
	Variable        float64 // percent
	ThresholdWeight float64
}

// ODAMode selects which of the three ODA formulas applies (spec.md §4.6 step 7).
type ODAMode string

const (
	ODALegacy ODAMode = "legacy"
	ODASwitch ODAMode = "switch"
	ODAExcess ODAMode = "excess"
)

// ODACharge is the carrier's out-of-delivery-area surcharge configuration.
type ODACharge struct {
	Fixed           float64
	Variable        float64
	ThresholdWeight float64
	Mode            ODAMode
}

// InvoiceValueCharge is the invoice-value-based surcharge configuration.
type InvoiceValueCharge struct {
	Enabled       bool
	Percentage    float64
	MinimumAmount float64
}

// SurchargeFormula selects how a custom surcharge's amount is derived.
type SurchargeFormula string

const (
	PctOfBase      SurchargeFormula = "PCT_OF_BASE"
	PctOfSubtotal  SurchargeFormula = "PCT_OF_SUBTOTAL"
	Flat           SurchargeFormula = "FLAT"
	PerKg          SurchargeFormula = "PER_KG"
	MaxFlatPerKg   SurchargeFormula = "MAX_FLAT_PKG"
)

// Surcharge is one entry in a carrier's ordered custom-surcharge list.
type Surcharge struct {
	ID      string
	Label   string
	Formula SurchargeFormula
	Value   float64
	Value2  float64
	Order   int
	Enabled bool
}

// PriceRate holds the scalar pricing knobs that apply regardless of zone.
type PriceRate struct {
	MinWeight              float64
	Divisor                int // alias kFactor, default 5000
	MinCharges             float64 // alias minBaseFreight
	MinTotalCharges        float64 // 0 means unset
	MinChargesApplyToTotal bool
	DocketCharges          float64
	Fuel                   float64 // percent
	FuelMax                float64 // 0 means uncapped
	GreenTax               float64
	DaccCharges            float64
	MiscellaneousCharges   float64
}

// Pricing is the full pricing contract attached to a carrier.
type Pricing struct {
	ZoneRates map[string]map[string]float64 // originZone -> destZone -> unitPrice/kg

	PriceRate PriceRate

	ROVCharges         CompoundCharge
	InsuranceCharges   CompoundCharge
	FMCharges          CompoundCharge
	AppointmentCharges CompoundCharge
	HandlingCharges    HandlingCharge
	ODACharges         ODACharge
	InvoiceValueCharges InvoiceValueCharge
	Surcharges         []Surcharge
}

// Carrier is the fully resolved, in-memory carrier record used by the
// quoting core, built either from a UTSF file or a document-store record.
type Carrier struct {
	ID              string
	Name            string
	OwnerCustomerID string // empty = public carrier

	ApprovalStatus ApprovalStatus
	IsVerified     bool
	IntegrityMode  IntegrityMode

	Serviceability map[string]ZoneServiceability // zone -> rules
	ODA            map[string]ZoneODA           // zone -> rules
	ZoneOverrides  map[int]string               // pincode -> zone override

	Pricing Pricing

	Source Source
}

// IsQuotable reports whether the carrier is eligible to enter quoting at
// all, independent of route-specific serviceability (spec.md §3: "only
// approved enters quoting").
func (c *Carrier) IsQuotable() bool {
	return c.ApprovalStatus == Approved
}
