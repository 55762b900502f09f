package carrier

import (
	"context"
	"regexp"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/iaros/freightquote/internal/logging"
)

func optsProjection(projection bson.M) *options.FindOptions {
	return options.Find().SetProjection(projection)
}

// testVendorPattern excludes obvious test/dummy carrier records from the
// document store, mirroring the admin catalog's onboarding guardrails.
var testVendorPattern = regexp.MustCompile(`(?i)^(test|dummy|demo)[\s_-]`)

// DBCarrierSource is the secondary carrier source backed by the document
// store: a public-carrier collection and a customer-scoped tied-up-carrier
// collection, each queried with a server-side projection down to the two
// pincodes relevant to the current route (spec.md §4.4).
type DBCarrierSource struct {
	publicCarriers *mongo.Collection
	publicPrices   *mongo.Collection
	tiedUpCarriers *mongo.Collection
	log            *logging.Logger
}

// NewDBCarrierSource wires the three collections used by the secondary
// carrier source.
func NewDBCarrierSource(db *mongo.Database, log *logging.Logger) *DBCarrierSource {
	return &DBCarrierSource{
		publicCarriers: db.Collection("public_carriers"),
		publicPrices:   db.Collection("public_carrier_prices"),
		tiedUpCarriers: db.Collection("tied_up_carriers"),
		log:            log,
	}
}

// docServiceEntry mirrors one element of a carrier document's
// serviceability array (spec.md §6.3). Only the isODA key is read; an
// entry that sets isOda instead decodes as not ODA.
type docServiceEntry struct {
	Pincode int    `bson:"pincode"`
	Zone    string `bson:"zone"`
	State   string `bson:"state"`
	City    string `bson:"city"`
	IsODA   bool   `bson:"isODA"`
	Active  *bool  `bson:"active"`
}

type publicCarrierDoc struct {
	ID          string             `bson:"_id"`
	CompanyName string             `bson:"companyName"`
	Service     []docServiceEntry  `bson:"service"`
}

type tiedUpCarrierDoc struct {
	ID             string             `bson:"_id"`
	CustomerID     string             `bson:"customerID"`
	CompanyName    string             `bson:"companyName"`
	ApprovalStatus string             `bson:"approvalStatus"`
	IsVerified     bool               `bson:"isVerified"`
	Serviceability []docServiceEntry  `bson:"serviceability"`
	Prices         tiedUpPricesDoc    `bson:"prices"`
}

type tiedUpPricesDoc struct {
	PriceRate           bson.M `bson:"priceRate"`
	PriceChart          bson.M `bson:"priceChart"`
	InvoiceValueCharges bson.M `bson:"invoiceValueCharges"`
}

type publicPriceDoc struct {
	CarrierID string `bson:"carrierId"`
	PriceRate bson.M `bson:"priceRate"`
	ZoneRates bson.M `bson:"zoneRates"`
}

// pincodeProjectionFilter restricts a serviceability/service array to the
// two pincodes the current request actually needs, instead of pulling a
// carrier's entire national coverage list over the wire.
func pincodeProjectionFilter(field string, origin, dest int) bson.M {
	return bson.M{
		"$filter": bson.M{
			"input": "$" + field,
			"as":    "entry",
			"cond": bson.M{
				"$in": []interface{}{"$$entry.pincode", []int{origin, dest}},
			},
		},
	}
}

// FetchTiedUp returns the requester's tied-up carriers, projected to the
// two route pincodes, excluding test vendors and non-approved records.
func (s *DBCarrierSource) FetchTiedUp(ctx context.Context, customerID string, origin, dest int) ([]*Carrier, error) {
	// $in with nil matches documents where approvalStatus is null or the
	// field is absent entirely — legacy tied-up records predate the field.
	filter := bson.M{
		"customerID":     customerID,
		"approvalStatus": bson.M{"$in": []interface{}{string(Approved), nil}},
	}
	projection := bson.M{
		"customerID":     1,
		"companyName":    1,
		"approvalStatus": 1,
		"isVerified":     1,
		"prices":         1,
		"serviceability": pincodeProjectionFilter("serviceability", origin, dest),
	}
	cur, err := s.tiedUpCarriers.Find(ctx, filter, optsProjection(projection))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []*Carrier
	for cur.Next(ctx) {
		var doc tiedUpCarrierDoc
		if err := cur.Decode(&doc); err != nil {
			continue
		}
		if testVendorPattern.MatchString(doc.CompanyName) {
			continue
		}
		out = append(out, tiedUpDocToCarrier(doc))
	}
	return out, cur.Err()
}

// FetchTiedUpFull returns the owner's tied-up carriers with their complete
// serviceability arrays — no per-route projection — for NearestPincodeFinder's
// candidate-set construction (spec.md §4.10 step 1). Inactive serviceability
// entries are dropped by serviceEntriesToIndex during conversion.
func (s *DBCarrierSource) FetchTiedUpFull(ctx context.Context, customerID string) ([]*Carrier, error) {
	filter := bson.M{
		"customerID":     customerID,
		"approvalStatus": bson.M{"$in": []interface{}{string(Approved), nil}},
	}
	cur, err := s.tiedUpCarriers.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []*Carrier
	for cur.Next(ctx) {
		var doc tiedUpCarrierDoc
		if err := cur.Decode(&doc); err != nil {
			continue
		}
		if testVendorPattern.MatchString(doc.CompanyName) {
			continue
		}
		out = append(out, tiedUpDocToCarrier(doc))
	}
	return out, cur.Err()
}

// FetchPublic returns every public carrier except test vendors (the query
// filter is empty, so serviceability at origin or dest is not checked),
// with each service array projected down to the origin and dest entries,
// batch-joined with their price documents in a single follow-up query.
func (s *DBCarrierSource) FetchPublic(ctx context.Context, origin, dest int) ([]*Carrier, error) {
	filter := bson.M{}
	projection := bson.M{
		"companyName": 1,
		"service":     pincodeProjectionFilter("service", origin, dest),
	}
	cur, err := s.publicCarriers.Find(ctx, filter, optsProjection(projection))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var docs []publicCarrierDoc
	ids := make([]string, 0)
	for cur.Next(ctx) {
		var doc publicCarrierDoc
		if err := cur.Decode(&doc); err != nil {
			continue
		}
		if testVendorPattern.MatchString(doc.CompanyName) {
			continue
		}
		docs = append(docs, doc)
		ids = append(ids, doc.ID)
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, nil
	}

	priceByID, err := s.fetchPublicPrices(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]*Carrier, 0, len(docs))
	for _, doc := range docs {
		out = append(out, publicDocToCarrier(doc, priceByID[doc.ID]))
	}
	return out, nil
}

func (s *DBCarrierSource) fetchPublicPrices(ctx context.Context, ids []string) (map[string]publicPriceDoc, error) {
	filter := bson.M{"carrierId": bson.M{"$in": ids}}
	cur, err := s.publicPrices.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := make(map[string]publicPriceDoc, len(ids))
	for cur.Next(ctx) {
		var doc publicPriceDoc
		if err := cur.Decode(&doc); err != nil {
			continue
		}
		out[doc.CarrierID] = doc
	}
	return out, cur.Err()
}

func tiedUpDocToCarrier(doc tiedUpCarrierDoc) *Carrier {
	c := &Carrier{
		ID:              doc.ID,
		Name:            doc.CompanyName,
		OwnerCustomerID: doc.CustomerID,
		ApprovalStatus:  ApprovalStatus(doc.ApprovalStatus),
		IsVerified:      doc.IsVerified,
		IntegrityMode:   IntegrityNone,
		Source:          SourceDB,
	}
	if c.ApprovalStatus == "" {
		c.ApprovalStatus = Approved
	}
	c.Serviceability, c.ODA = serviceEntriesToIndex(doc.Serviceability)
	c.Pricing = bsonToPricing(doc.Prices.PriceRate, doc.Prices.PriceChart, doc.Prices.InvoiceValueCharges)
	return c
}

func publicDocToCarrier(doc publicCarrierDoc, price publicPriceDoc) *Carrier {
	c := &Carrier{
		ID:             doc.ID,
		Name:           doc.CompanyName,
		ApprovalStatus: Approved,
		IntegrityMode:  IntegrityNone,
		Source:         SourceDB,
	}
	c.Serviceability, c.ODA = serviceEntriesToIndex(doc.Service)
	c.Pricing = bsonToPricing(price.PriceRate, price.ZoneRates, nil)
	return c
}

// serviceEntriesToIndex converts the document store's flat per-pincode
// serviceability array into the same ZoneServiceability/ZoneODA shape UTSF
// uses, so both sources compile through the identical ServiceIndex builder.
// Each present entry becomes a single-pincode ONLY_SERVED declaration.
func serviceEntriesToIndex(entries []docServiceEntry) (map[string]ZoneServiceability, map[string]ZoneODA) {
	byZone := make(map[string]*ZoneServiceability)
	odaByZone := make(map[string]*ZoneODA)
	for _, e := range entries {
		if e.Active != nil && !*e.Active {
			continue
		}
		z := strings.ToUpper(e.Zone)
		if _, ok := byZone[z]; !ok {
			byZone[z] = &ZoneServiceability{Mode: OnlyServed}
		}
		byZone[z].ServedSingles = append(byZone[z].ServedSingles, e.Pincode)
		if e.IsODA {
			if _, ok := odaByZone[z]; !ok {
				odaByZone[z] = &ZoneODA{}
			}
			odaByZone[z].ODASingles = append(odaByZone[z].ODASingles, e.Pincode)
		}
	}
	out := make(map[string]ZoneServiceability, len(byZone))
	for z, v := range byZone {
		out[z] = *v
	}
	odaOut := make(map[string]ZoneODA, len(odaByZone))
	for z, v := range odaByZone {
		odaOut[z] = *v
	}
	return out, odaOut
}

func bsonToPricing(priceRate, zoneRates, invoice bson.M) Pricing {
	pr := PriceRate{
		MinWeight:              bsonFloat(priceRate, "minWeight"),
		Divisor:                bsonIntOr(priceRate, "kFactor", "divisor"),
		MinCharges:             bsonFloat(priceRate, "minCharges", "minBaseFreight"),
		MinTotalCharges:        bsonFloat(priceRate, "minTotalCharges"),
		MinChargesApplyToTotal: bsonBool(priceRate, "minChargesApplyToTotal"),
		DocketCharges:          bsonFloat(priceRate, "docketCharges"),
		Fuel:                   bsonFloat(priceRate, "fuel"),
		FuelMax:                bsonFloat(priceRate, "fuelMax"),
		GreenTax:               bsonFloat(priceRate, "greenTax"),
		DaccCharges:            bsonFloat(priceRate, "daccCharges"),
		MiscellaneousCharges:   bsonFloat(priceRate, "miscellanousCharges", "miscCharges"),
	}
	if pr.Divisor == 0 {
		pr.Divisor = 5000
	}

	zr := make(map[string]map[string]float64, len(zoneRates))
	for origin, destsRaw := range zoneRates {
		dests, ok := destsRaw.(bson.M)
		if !ok {
			continue
		}
		inner := make(map[string]float64, len(dests))
		for dest, v := range dests {
			if f, ok := v.(float64); ok {
				inner[strings.ToUpper(dest)] = f
			}
		}
		zr[strings.ToUpper(origin)] = inner
	}

	inv := InvoiceValueCharge{
		Enabled:       bsonBool(invoice, "enabled"),
		Percentage:    bsonFloat(invoice, "percentage"),
		MinimumAmount: bsonFloat(invoice, "minimumAmount"),
	}

	return Pricing{
		ZoneRates:           zr,
		PriceRate:           pr,
		ROVCharges:          bsonCompound(priceRate, "rovCharges"),
		InsuranceCharges:    bsonCompound(priceRate, "insuaranceCharges", "insuranceCharges"),
		FMCharges:           bsonCompound(priceRate, "fmCharges"),
		AppointmentCharges:  bsonCompound(priceRate, "appointmentCharges"),
		HandlingCharges:     bsonHandling(priceRate, "handlingCharges"),
		ODACharges:          bsonODA(priceRate, "odaCharges"),
		InvoiceValueCharges: inv,
	}
}

func bsonFloat(m bson.M, keys ...string) float64 {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			if f, ok := v.(float64); ok {
				return f
			}
		}
	}
	return 0
}

func bsonBool(m bson.M, key string) bool {
	if v, ok := m[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return false
}

func bsonIntOr(m bson.M, keys ...string) int {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			if f, ok := v.(float64); ok {
				return int(f)
			}
		}
	}
	return 0
}

func bsonSub(m bson.M, key string) bson.M {
	if m == nil {
		return nil
	}
	sub, _ := m[key].(bson.M)
	return sub
}

func bsonCompound(m bson.M, keys ...string) CompoundCharge {
	for _, k := range keys {
		if sub := bsonSub(m, k); sub != nil {
			return CompoundCharge{Fixed: bsonFloat(sub, "fixed"), Variable: bsonFloat(sub, "variable")}
		}
	}
	return CompoundCharge{}
}

func bsonHandling(m bson.M, key string) HandlingCharge {
	sub := bsonSub(m, key)
	return HandlingCharge{
		Fixed:           bsonFloat(sub, "fixed"),
		Variable:        bsonFloat(sub, "variable"),
		ThresholdWeight: bsonFloat(sub, "thresholdWeight"),
	}
}

func bsonODA(m bson.M, key string) ODACharge {
	sub := bsonSub(m, key)
	mode := ODALegacy
	if v, ok := sub["mode"]; ok {
		if s, ok := v.(string); ok && s != "" {
			mode = ODAMode(s)
		}
	}
	return ODACharge{
		Fixed:           bsonFloat(sub, "fixed"),
		Variable:        bsonFloat(sub, "variable"),
		ThresholdWeight: bsonFloat(sub, "thresholdWeight"),
		Mode:            mode,
	}
}
