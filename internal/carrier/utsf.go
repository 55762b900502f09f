package carrier

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ParseUTSF decodes a single *.utsf.json payload into a Carrier. It
// tolerates both camelCase and snake_case field names and both range
// encodings ([start,end] pairs or {s,e}/{start,end} objects), per the
// dynamic-typing notes in spec.md §9. Unknown/missing fields default to
// their zero value rather than erroring, since UTSF files in the wild are
// written by several generations of the same tool.
func ParseUTSF(data []byte) (*Carrier, error) {
	var root map[string]interface{}
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("carrier: decode utsf: %w", err)
	}

	meta := asMap(root["meta"])
	c := &Carrier{
		ID:              asString(meta["id"]),
		Name:            asString(firstOf(meta, "companyName", "company_name")),
		OwnerCustomerID: asString(firstOf(meta, "customerID", "customer_id")),
		IsVerified:      asBool(firstOf(meta, "isVerified", "is_verified")),
		ApprovalStatus:  ApprovalStatus(asString(firstOf(meta, "approvalStatus", "approval_status"))),
		IntegrityMode:   IntegrityMode(strings.ToUpper(asString(firstOf(meta, "integrityMode", "integrity_mode")))),
		Source:          SourceUTSF,
	}
	if c.IntegrityMode == "" {
		c.IntegrityMode = IntegrityNone
	}
	if c.ApprovalStatus == "" {
		c.ApprovalStatus = Approved
	}

	c.ZoneOverrides = parseZoneOverrides(firstOf(root, "zoneOverrides", "zone_overrides"))

	pricingRaw := asMap(root["pricing"])
	c.Pricing = parsePricing(pricingRaw)

	c.Serviceability = parseServiceability(asMap(root["serviceability"]))
	c.ODA = parseODA(asMap(root["oda"]))

	return c, nil
}

func parseZoneOverrides(v interface{}) map[int]string {
	m := asMap(v)
	out := make(map[int]string, len(m))
	for k, val := range m {
		pin, err := strconv.Atoi(strings.TrimSpace(k))
		if err != nil {
			continue
		}
		out[pin] = strings.ToUpper(asString(val))
	}
	return out
}

func parsePricing(m map[string]interface{}) Pricing {
	prRaw := asMap(firstOf(m, "priceRate", "price_rate"))
	pr := PriceRate{
		MinWeight:              asFloat(firstOf(prRaw, "minWeight", "min_weight")),
		Divisor:                asIntOr(firstOf(prRaw, "kFactor", "k_factor", "divisor"), 5000),
		MinCharges:             asFloat(firstOf(prRaw, "minCharges", "min_charges", "minBaseFreight", "min_base_freight")),
		MinTotalCharges:        asFloat(firstOf(prRaw, "minTotalCharges", "min_total_charges")),
		MinChargesApplyToTotal: asBool(firstOf(prRaw, "minChargesApplyToTotal", "min_charges_apply_to_total")),
		DocketCharges:          asFloat(firstOf(prRaw, "docketCharges", "docket_charges")),
		Fuel:                   asFloat(firstOf(prRaw, "fuel")),
		FuelMax:                asFloat(firstOf(prRaw, "fuelMax", "fuel_max")),
		GreenTax:               asFloat(firstOf(prRaw, "greenTax", "green_tax")),
		DaccCharges:            asFloat(firstOf(prRaw, "daccCharges", "dacc_charges")),
		MiscellaneousCharges:   asFloat(firstOf(prRaw, "miscellanousCharges", "miscellaneous_charges", "misc_charges")),
	}
	if pr.Divisor == 0 {
		pr.Divisor = 5000
	}

	zoneRatesRaw := asMap(firstOf(m, "zoneRates", "zone_rates"))
	zoneRates := make(map[string]map[string]float64, len(zoneRatesRaw))
	for origin, destsRaw := range zoneRatesRaw {
		dests := asMap(destsRaw)
		inner := make(map[string]float64, len(dests))
		for dest, price := range dests {
			inner[strings.ToUpper(dest)] = asFloat(price)
		}
		zoneRates[strings.ToUpper(origin)] = inner
	}

	return Pricing{
		ZoneRates:           zoneRates,
		PriceRate:           pr,
		ROVCharges:          parseCompound(firstOf(m, "rovCharges", "rov_charges")),
		InsuranceCharges:    parseCompound(firstOf(m, "insuaranceCharges", "insuranceCharges", "insurance_charges")),
		FMCharges:           parseCompound(firstOf(m, "fmCharges", "fm_charges")),
		AppointmentCharges:  parseCompound(firstOf(m, "appointmentCharges", "appointment_charges")),
		HandlingCharges:     parseHandling(firstOf(m, "handlingCharges", "handling_charges")),
		ODACharges:          parseODACharge(firstOf(m, "odaCharges", "oda_charges")),
		InvoiceValueCharges: parseInvoice(firstOf(m, "invoiceValueCharges", "invoice_value_charges")),
		Surcharges:          parseSurcharges(firstOf(m, "surcharges")),
	}
}

func parseCompound(v interface{}) CompoundCharge {
	m := asMap(v)
	return CompoundCharge{
		Fixed:    asFloat(m["fixed"]),
		Variable: asFloat(m["variable"]),
	}
}

func parseHandling(v interface{}) HandlingCharge {
	m := asMap(v)
	return HandlingCharge{
		Fixed:           asFloat(m["fixed"]),
		Variable:        asFloat(m["variable"]),
		ThresholdWeight: asFloat(firstOf(m, "thresholdWeight", "threshold_weight")),
	}
}

func parseODACharge(v interface{}) ODACharge {
	m := asMap(v)
	mode := strings.ToLower(asString(m["mode"]))
	if mode == "" {
		mode = string(ODALegacy)
	}
	return ODACharge{
		Fixed:           asFloat(m["fixed"]),
		Variable:        asFloat(m["variable"]),
		ThresholdWeight: asFloat(firstOf(m, "thresholdWeight", "threshold_weight")),
		Mode:            ODAMode(mode),
	}
}

func parseInvoice(v interface{}) InvoiceValueCharge {
	m := asMap(v)
	return InvoiceValueCharge{
		Enabled:       asBool(m["enabled"]),
		Percentage:    asFloat(m["percentage"]),
		MinimumAmount: asFloat(firstOf(m, "minimumAmount", "minimum_amount")),
	}
}

func parseSurcharges(v interface{}) []Surcharge {
	list, ok := v.([]interface{})
	if !ok {
		return nil
	}
	out := make([]Surcharge, 0, len(list))
	for _, raw := range list {
		m := asMap(raw)
		out = append(out, Surcharge{
			ID:      asString(m["id"]),
			Label:   asString(m["label"]),
			Formula: SurchargeFormula(asString(m["formula"])),
			Value:   asFloat(m["value"]),
			Value2:  asFloat(firstOf(m, "value2")),
			Order:   asIntOr(m["order"], 0),
			Enabled: asBoolDefault(m["enabled"], true),
		})
	}
	return out
}

func parseServiceability(m map[string]interface{}) map[string]ZoneServiceability {
	out := make(map[string]ZoneServiceability, len(m))
	for zoneCode, raw := range m {
		zm := asMap(raw)
		out[strings.ToUpper(zoneCode)] = ZoneServiceability{
			Mode:            ServiceabilityMode(strings.ToUpper(asString(zm["mode"]))),
			ExceptRanges:    parseRanges(firstOf(zm, "exceptRanges", "except_ranges")),
			ExceptSingles:   parseSingles(firstOf(zm, "exceptSingles", "except_singles")),
			ServedRanges:    parseRanges(firstOf(zm, "servedRanges", "served_ranges")),
			ServedSingles:   parseSingles(firstOf(zm, "servedSingles", "served_singles")),
			SoftExclusions:  parseSingles(firstOf(zm, "softExclusions", "soft_exclusions")),
			CoveragePercent: asFloat(firstOf(zm, "coveragePercent", "coverage_percent")),
		}
	}
	return out
}

func parseODA(m map[string]interface{}) map[string]ZoneODA {
	out := make(map[string]ZoneODA, len(m))
	for zoneCode, raw := range m {
		zm := asMap(raw)
		out[strings.ToUpper(zoneCode)] = ZoneODA{
			ODARanges:  parseRanges(firstOf(zm, "odaRanges", "oda_ranges")),
			ODASingles: parseSingles(firstOf(zm, "odaSingles", "oda_singles")),
		}
	}
	return out
}

// parseRanges normalises either [[s,e], ...] or [{s,e}|{start,end}, ...]
// into []PincodeRange.
func parseRanges(v interface{}) []PincodeRange {
	list, ok := v.([]interface{})
	if !ok {
		return nil
	}
	out := make([]PincodeRange, 0, len(list))
	for _, item := range list {
		switch t := item.(type) {
		case []interface{}:
			if len(t) == 2 {
				out = append(out, PincodeRange{Start: asInt(t[0]), End: asInt(t[1])})
			}
		case map[string]interface{}:
			out = append(out, PincodeRange{
				Start: asInt(firstOf(t, "s", "start")),
				End:   asInt(firstOf(t, "e", "end")),
			})
		}
	}
	return out
}

func parseSingles(v interface{}) []int {
	list, ok := v.([]interface{})
	if !ok {
		return nil
	}
	out := make([]int, 0, len(list))
	for _, item := range list {
		out = append(out, asInt(item))
	}
	return out
}

// EncodeUTSF serialises c back into the UTSF file format. Field names are
// always emitted in camelCase and ranges as [start, end] pairs, regardless
// of which variant the file originally used (spec.md §6.1).
func EncodeUTSF(c *Carrier) ([]byte, error) {
	doc := map[string]interface{}{
		"version": "3.0",
		"meta": map[string]interface{}{
			"id":             c.ID,
			"companyName":    c.Name,
			"customerID":     c.OwnerCustomerID,
			"isVerified":     c.IsVerified,
			"approvalStatus": c.ApprovalStatus,
			"integrityMode":  c.IntegrityMode,
		},
		"pricing": map[string]interface{}{
			"priceRate": map[string]interface{}{
				"minWeight":              c.Pricing.PriceRate.MinWeight,
				"kFactor":                c.Pricing.PriceRate.Divisor,
				"minCharges":             c.Pricing.PriceRate.MinCharges,
				"minTotalCharges":        c.Pricing.PriceRate.MinTotalCharges,
				"minChargesApplyToTotal": c.Pricing.PriceRate.MinChargesApplyToTotal,
				"docketCharges":          c.Pricing.PriceRate.DocketCharges,
				"fuel":                   c.Pricing.PriceRate.Fuel,
				"fuelMax":                c.Pricing.PriceRate.FuelMax,
				"greenTax":               c.Pricing.PriceRate.GreenTax,
				"daccCharges":            c.Pricing.PriceRate.DaccCharges,
				"miscellanousCharges":    c.Pricing.PriceRate.MiscellaneousCharges,
			},
			"zoneRates":          c.Pricing.ZoneRates,
			"rovCharges":         encodeCompound(c.Pricing.ROVCharges),
			"insuaranceCharges":  encodeCompound(c.Pricing.InsuranceCharges),
			"fmCharges":          encodeCompound(c.Pricing.FMCharges),
			"appointmentCharges": encodeCompound(c.Pricing.AppointmentCharges),
			"handlingCharges": map[string]interface{}{
				"fixed":           c.Pricing.HandlingCharges.Fixed,
				"variable":        c.Pricing.HandlingCharges.Variable,
				"thresholdWeight": c.Pricing.HandlingCharges.ThresholdWeight,
			},
			"odaCharges": map[string]interface{}{
				"fixed":           c.Pricing.ODACharges.Fixed,
				"variable":        c.Pricing.ODACharges.Variable,
				"thresholdWeight": c.Pricing.ODACharges.ThresholdWeight,
				"mode":            c.Pricing.ODACharges.Mode,
			},
			"invoiceValueCharges": map[string]interface{}{
				"enabled":       c.Pricing.InvoiceValueCharges.Enabled,
				"percentage":    c.Pricing.InvoiceValueCharges.Percentage,
				"minimumAmount": c.Pricing.InvoiceValueCharges.MinimumAmount,
			},
			"surcharges": encodeSurcharges(c.Pricing.Surcharges),
		},
		"serviceability": encodeServiceability(c.Serviceability),
		"oda":            encodeODA(c.ODA),
		"zoneOverrides":  encodeZoneOverrides(c.ZoneOverrides),
	}
	return json.MarshalIndent(doc, "", "  ")
}

func encodeCompound(c CompoundCharge) map[string]interface{} {
	return map[string]interface{}{"fixed": c.Fixed, "variable": c.Variable}
}

func encodeSurcharges(list []Surcharge) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(list))
	for _, s := range list {
		out = append(out, map[string]interface{}{
			"id":      s.ID,
			"label":   s.Label,
			"formula": s.Formula,
			"value":   s.Value,
			"value2":  s.Value2,
			"order":   s.Order,
			"enabled": s.Enabled,
		})
	}
	return out
}

func encodeRanges(ranges []PincodeRange) [][2]int {
	out := make([][2]int, 0, len(ranges))
	for _, r := range ranges {
		out = append(out, [2]int{r.Start, r.End})
	}
	return out
}

func encodeServiceability(m map[string]ZoneServiceability) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for zoneCode, rules := range m {
		out[zoneCode] = map[string]interface{}{
			"mode":            rules.Mode,
			"exceptRanges":    encodeRanges(rules.ExceptRanges),
			"exceptSingles":   rules.ExceptSingles,
			"servedRanges":    encodeRanges(rules.ServedRanges),
			"servedSingles":   rules.ServedSingles,
			"softExclusions":  rules.SoftExclusions,
			"coveragePercent": rules.CoveragePercent,
		}
	}
	return out
}

func encodeODA(m map[string]ZoneODA) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for zoneCode, rules := range m {
		out[zoneCode] = map[string]interface{}{
			"odaRanges":  encodeRanges(rules.ODARanges),
			"odaSingles": rules.ODASingles,
		}
	}
	return out
}

func encodeZoneOverrides(m map[int]string) map[string]string {
	out := make(map[string]string, len(m))
	for pin, zoneCode := range m {
		out[strconv.Itoa(pin)] = zoneCode
	}
	return out
}

// --- tolerant accessor helpers --------------------------------------------

func asMap(v interface{}) map[string]interface{} {
	m, _ := v.(map[string]interface{})
	return m
}

func firstOf(m map[string]interface{}, keys ...string) interface{} {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			return v
		}
	}
	return nil
}

func asString(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return ""
	}
}

func asBool(v interface{}) bool {
	b, _ := v.(bool)
	return b
}

func asBoolDefault(v interface{}, def bool) bool {
	if v == nil {
		return def
	}
	b, ok := v.(bool)
	if !ok {
		return def
	}
	return b
}

func asFloat(v interface{}) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case json.Number:
		f, _ := t.Float64()
		return f
	case string:
		f, _ := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f
	default:
		return 0
	}
}

func asInt(v interface{}) int {
	switch t := v.(type) {
	case float64:
		return int(t)
	case json.Number:
		i, _ := t.Int64()
		return int(i)
	case string:
		i, _ := strconv.Atoi(strings.TrimSpace(t))
		return i
	default:
		return 0
	}
}

func asIntOr(v interface{}, def int) int {
	if v == nil {
		return def
	}
	i := asInt(v)
	if i == 0 {
		return def
	}
	return i
}
