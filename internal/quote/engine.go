// Package quote implements QuoteEngine: the orchestration of a single
// calculate request across zone resolution, carrier resolution, bounded
// concurrent pricing, and SmartShield (spec.md §4.7).
package quote

import (
	"context"
	"fmt"
	"regexp"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/iaros/freightquote/internal/apperrors"
	"github.com/iaros/freightquote/internal/carrier"
	"github.com/iaros/freightquote/internal/distance"
	"github.com/iaros/freightquote/internal/events"
	"github.com/iaros/freightquote/internal/freight"
	"github.com/iaros/freightquote/internal/geo"
	"github.com/iaros/freightquote/internal/logging"
	"github.com/iaros/freightquote/internal/metrics"
	"github.com/iaros/freightquote/internal/shipment"
	"github.com/iaros/freightquote/internal/smartshield"
	"github.com/iaros/freightquote/internal/zone"
)

const (
	defaultInvoiceValue = 1
	minInvoiceValue     = 1
	maxInvoiceValue     = 1e8
)

// Engine orchestrates calculate requests. It holds references to every
// process-wide singleton (registries, caches, external clients) but keeps
// no per-request state itself.
type Engine struct {
	Zones     *zone.Index
	Centroids *geo.Index
	Registry  *carrier.Registry
	DBSource  *carrier.DBCarrierSource
	Distance  *distance.Client
	Cache     *ResultCache

	Invalidation *events.InvalidationBus
	Anomalies    *events.AnomalyStream

	BatchSize int
	Metrics   *metrics.Collectors
	Log       *logging.Logger
}

// Calculate runs the full pipeline in spec.md §4.7. Validation failures
// and structured route errors (NO_ROAD_ROUTE, PINCODE_NOT_FOUND, the
// distance-service API codes) are returned as errors for the transport
// layer to map to 400/500; anything unexpected past that point degrades
// gracefully to an empty, success response per the Failure policy in
// spec.md §4.7/§7.
func (e *Engine) Calculate(ctx context.Context, req Request) (*Response, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	normalized, err := shipment.Normalize(req.Shipment)
	if err != nil {
		return nil, err
	}
	invoiceValue := req.InvoiceValue
	if invoiceValue == 0 {
		invoiceValue = defaultInvoiceValue
	}

	requestID := Fingerprint(req.OwnerCustomerID, req.Origin, req.Dest, req.Mode, invoiceValue, normalized.Boxes)
	if cached, ok := e.Cache.Get(ctx, requestID); ok {
		e.countCacheLookup(true)
		// Copy before decorating: the local cache tier hands back a shared
		// pointer, and FromCache describes this call, not the stored entry.
		decorated := *cached
		decorated.FromCache = true
		return &decorated, nil
	}
	e.countCacheLookup(false)

	resp, err := e.calculateUncached(ctx, req, requestID, normalized, invoiceValue)
	if err != nil {
		return nil, err
	}

	if len(resp.TiedUpResult) > 0 || len(resp.CompanyResult) > 0 {
		e.Cache.Set(ctx, requestID, resp)
	}
	return resp, nil
}

func (e *Engine) calculateUncached(ctx context.Context, req Request, requestID string, normalized *shipment.Normalized, invoiceValue float64) (resp *Response, err error) {
	resp = &Response{}

	defer func() {
		if r := recover(); r != nil {
			// Fatal inner error: the UI still renders the empty state, so
			// respond 200 with empty arrays and debug metadata (spec.md §7).
			resp = &Response{Debug: Debug{
				Error:        true,
				ErrorType:    string(apperrors.Internal),
				ErrorMessage: fmt.Sprint(r),
			}}
			err = nil
		}
	}()

	distResult, err := e.Distance.ComputeRouteDistance(ctx, req.Origin, req.Dest)
	if err != nil {
		if appErr, ok := err.(*apperrors.Error); ok {
			return nil, appErr
		}
		return nil, apperrors.Wrap(apperrors.GoogleAPIError, "quote.Calculate", "distance lookup failed", err)
	}
	resp.DistanceKM = distResult.KM
	resp.DistanceText = fmt.Sprintf("%.0f km", distResult.KM)
	resp.EstimatedDays = distResult.Days

	originZone, ok := e.Zones.ZoneOf(req.Origin)
	if !ok {
		return nil, apperrors.New(apperrors.PincodeNotFound, "quote.Calculate", "origin pincode not found in zone index")
	}
	destZone, ok := e.Zones.ZoneOf(req.Dest)
	if !ok {
		return nil, apperrors.New(apperrors.PincodeNotFound, "quote.Calculate", "destination pincode not found in zone index")
	}

	tiedUpDB, publicDB := e.fetchDBCarriers(ctx, req)

	utsfEntries := e.utsfEntriesForRoute(req.Origin, req.Dest)
	resolved := carrier.Resolve(utsfEntries, append(tiedUpDB, publicDB...), req.OwnerCustomerID)

	route := routeContext{
		origin: req.Origin, dest: req.Dest,
		originZone: originZone, destZone: destZone,
	}
	tiedUpQuotes := e.priceBatched(resolved.TiedUp, route, normalized, invoiceValue)
	companyQuotes := e.priceBatched(resolved.Public, route, normalized, invoiceValue)

	all := append(append([]Quote(nil), tiedUpQuotes...), companyQuotes...)
	summary := runSmartShield(all)
	e.countShieldFlags(summary)

	resp.TiedUpResult = tiedUpQuotes
	resp.CompanyResult = companyQuotes
	resp.SmartShield = SmartShieldView{
		OverallScore: summary.OverallScore,
		Summary: map[string]int{
			"errors":   summary.Errors,
			"warnings": summary.Warnings,
			"infos":    summary.Infos,
		},
		CohortFlags: summary.CohortFlags,
		QuoteFlags:  quoteFlagsByCarrier(summary),
	}

	if e.Anomalies != nil {
		e.Anomalies.Publish(ctx, requestID, req.OwnerCustomerID, summary)
	}

	return resp, nil
}

// routeContext carries the request's resolved endpoints through the
// per-carrier fan-out, where each carrier may still remap a pincode's zone
// via its own zoneOverrides.
type routeContext struct {
	origin, dest         int
	originZone, destZone string
}

// fetchDBCarriers runs the tied-up and public carrier queries
// simultaneously (spec.md §4.7 step 5). Either failing independently still
// lets the other source contribute to the response.
func (e *Engine) fetchDBCarriers(ctx context.Context, req Request) (tiedUp, public []*carrier.Carrier) {
	if e.DBSource == nil {
		return nil, nil
	}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		fetched, err := e.DBSource.FetchTiedUp(gctx, req.OwnerCustomerID, req.Origin, req.Dest)
		if err != nil {
			e.Log.Warn("tied-up carrier fetch failed, continuing without DB tied-up carriers")
			return nil
		}
		tiedUp = fetched
		return nil
	})
	g.Go(func() error {
		fetched, err := e.DBSource.FetchPublic(gctx, req.Origin, req.Dest)
		if err != nil {
			e.Log.Warn("public carrier fetch failed, continuing without DB public carriers")
			return nil
		}
		public = fetched
		return nil
	})
	_ = g.Wait()
	return tiedUp, public
}

// utsfEntriesForRoute returns every quotable UTSF carrier serviceable at
// both route endpoints.
func (e *Engine) utsfEntriesForRoute(origin, dest int) []*carrier.Entry {
	var out []*carrier.Entry
	for _, entry := range e.Registry.All() {
		if !entry.Carrier.IsQuotable() {
			continue
		}
		if entry.Index.IsServiceable(origin) && entry.Index.IsServiceable(dest) {
			out = append(out, entry)
		}
	}
	return out
}

// priceBatched fans FreightCalculator out across entries in fixed-size
// batches (default 8), yielding to the scheduler between batches so other
// requests make progress (spec.md §5).
func (e *Engine) priceBatched(entries []*carrier.Entry, route routeContext, normalized *shipment.Normalized, invoiceValue float64) []Quote {
	batchSize := e.BatchSize
	if batchSize <= 0 {
		batchSize = 8
	}

	var (
		mu     sync.Mutex
		quotes []Quote
	)

	for start := 0; start < len(entries); start += batchSize {
		end := start + batchSize
		if end > len(entries) {
			end = len(entries)
		}
		batch := entries[start:end]

		var wg sync.WaitGroup
		for _, entry := range batch {
			entry := entry
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer func() {
					if r := recover(); r != nil {
						e.Log.CarrierLogger(entry.Carrier.ID, entry.Carrier.Name, "panic during pricing")
						if e.Metrics != nil {
							e.Metrics.CarrierFanoutErrors.WithLabelValues(entry.Carrier.ID).Inc()
						}
					}
				}()
				q, ok := e.priceOne(entry, route, normalized, invoiceValue)
				if !ok {
					return
				}
				mu.Lock()
				quotes = append(quotes, q)
				mu.Unlock()
			}()
		}
		wg.Wait()
		runtime.Gosched()
	}

	return quotes
}

func (e *Engine) priceOne(entry *carrier.Entry, route routeContext, normalized *shipment.Normalized, invoiceValue float64) (Quote, bool) {
	divisor := entry.Carrier.Pricing.PriceRate.Divisor
	if divisor == 0 {
		divisor = 5000
	}

	isDestODA := entry.Index != nil && entry.Index.IsODA(route.dest)

	// A carrier's zoneOverrides remap a pincode's zone for this carrier's
	// rate lookup only; the master zone still stands everywhere else
	// (spec.md §3 "zoneOverrides").
	originZone := overrideZone(entry.Carrier, route.origin, route.originZone)
	destZone := overrideZone(entry.Carrier, route.dest, route.destZone)

	in := freight.Input{
		OriginZone:       originZone,
		DestZone:         destZone,
		ActualWeight:     normalized.ActualWeight,
		VolumetricWeight: normalized.VolumetricFor(divisor),
		IsDestODA:        isDestODA,
		InvoiceValue:     invoiceValue,
	}
	res, ok := freight.Calculate(entry.Carrier.Pricing, in)
	if !ok {
		return Quote{}, false
	}
	return fromFreightResult(entry, res), true
}

func runSmartShield(quotes []Quote) smartshield.Summary {
	contexts := make([]smartshield.QuoteContext, 0, len(quotes))
	for _, q := range quotes {
		r := &freight.Result{
			UnitPrice: q.UnitPrice, ActualWeight: q.ActualWeight, VolumetricWeight: q.VolumetricWeight,
			ChargeableWeight: q.ChargeableWeight, BaseFreight: q.BaseFreight, EffectiveBase: q.EffectiveBase,
			FuelCharges: q.FuelCharges, ROVCharges: q.ROVCharges, InsuranceCharges: q.InsuranceCharges,
			FMCharges: q.FMCharges, AppointmentCharges: q.AppointmentCharges, HandlingCharges: q.HandlingCharges,
			ODACharges: q.ODACharges, DocketCharges: q.DocketCharges, GreenTax: q.GreenTax,
			DaccCharges: q.DaccCharges, MiscellaneousCharges: q.MiscellaneousCharges,
			InvoiceSurcharge: q.InvoiceSurcharge, CustomSurcharges: q.CustomSurcharges,
			TotalCharges: q.TotalCharges, TotalChargesWithoutInvoiceAddon: q.TotalChargesWithoutInvoiceAddon,
		}
		contexts = append(contexts, smartshield.FromResult(q.CarrierID, r))
	}
	return smartshield.Evaluate(contexts)
}

func quoteFlagsByCarrier(s smartshield.Summary) map[string][]smartshield.Flag {
	out := make(map[string][]smartshield.Flag, len(s.PerQuote))
	for _, qr := range s.PerQuote {
		if len(qr.Flags) > 0 {
			out[qr.CarrierID] = qr.Flags
		}
	}
	return out
}

// overrideZone returns c's declared zone for pin, falling back to the
// already-resolved master zone.
func overrideZone(c *carrier.Carrier, pin int, masterZone string) string {
	if z, ok := c.ZoneOverrides[pin]; ok && z != "" {
		return z
	}
	return masterZone
}

func (e *Engine) countCacheLookup(hit bool) {
	if e.Metrics == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	e.Metrics.CacheHitRate.WithLabelValues(result).Inc()
}

func (e *Engine) countShieldFlags(s smartshield.Summary) {
	if e.Metrics == nil {
		return
	}
	for _, qr := range s.PerQuote {
		for _, f := range qr.Flags {
			e.Metrics.SmartShieldFlags.WithLabelValues(f.Code, string(f.Severity)).Inc()
		}
	}
	for _, f := range s.CohortFlags {
		e.Metrics.SmartShieldFlags.WithLabelValues(f.Code, string(f.Severity)).Inc()
	}
}

var customerIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

func validateRequest(req Request) error {
	if req.Origin <= 0 || req.Dest <= 0 {
		return apperrors.New(apperrors.PincodeNotFound, "quote.validateRequest", "origin and destination pincodes are required")
	}
	if req.OwnerCustomerID != "" && !customerIDPattern.MatchString(req.OwnerCustomerID) {
		return apperrors.New(apperrors.InvalidCustomerID, "quote.validateRequest", "customer id is malformed")
	}
	if req.InvoiceValue != 0 && (req.InvoiceValue < minInvoiceValue || req.InvoiceValue > maxInvoiceValue) {
		return apperrors.New(apperrors.InvalidDimensions, "quote.validateRequest", "invoice value out of bounds")
	}
	return nil
}
