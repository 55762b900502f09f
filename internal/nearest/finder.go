// Package nearest implements NearestPincodeFinder: given an unserviceable
// destination, finds the closest substitute pincode that at least one
// relevant carrier can actually price (spec.md §4.10).
package nearest

import (
	"context"
	"sort"

	"github.com/iaros/freightquote/internal/carrier"
	"github.com/iaros/freightquote/internal/freight"
	"github.com/iaros/freightquote/internal/geo"
	"github.com/iaros/freightquote/internal/zone"
)

const (
	maxRadiusKm   = 200
	maxCandidates = 50
	testWeight    = 100
)

// candidate pairs a pincode with its ranking distance (km, or a numeric
// pincode delta when no centroid is available).
type candidate struct {
	pincode int
	metric  float64
}

// Result is the outcome of a successful nearest-pincode search.
type Result struct {
	NearestPincode int
	DistanceKM     float64 // 0 if haversine ranking wasn't available
	HasDistance    bool
	ServedBy       []string // carrier IDs that priced successfully
}

// CarrierSource supplies the candidate carriers to search over: UTSF
// entries (optionally owner-filtered) unioned with the owner's DB tied-up
// carriers (spec.md §4.10 step 1). The ctx bounds the DB fetch.
type CarrierSource interface {
	ServiceableCarriers(ctx context.Context, ownerCustomerID string) []*carrier.Entry
}

// Find implements spec.md §4.10's four steps. originZone is the already
// resolved master zone of origin; zones resolves each candidate's zone
// (honouring a carrier's zoneOverrides where present) for the verify step.
func Find(ctx context.Context, origin, destination int, originZone string, ownerCustomerID string, source CarrierSource, centroids *geo.Index, zones *zone.Index) (*Result, bool) {
	entries := source.ServiceableCarriers(ctx, ownerCustomerID)

	candidateSet := make(map[int]bool)
	for _, e := range entries {
		for _, p := range e.Index.ServedPincodes() {
			if p != destination {
				candidateSet[p] = true
			}
		}
	}
	if len(candidateSet) == 0 {
		return nil, false
	}

	candidates := rankCandidates(candidateSet, destination, centroids)

	for _, cand := range candidates {
		var servedBy []string
		for _, e := range entries {
			if !e.Index.IsServiceable(cand.pincode) {
				continue
			}
			destZone := resolveZone(e.Carrier, cand.pincode, zones)
			if destZone == "" {
				continue
			}
			in := freight.Input{
				OriginZone:       originZone,
				DestZone:         destZone,
				ActualWeight:     testWeight,
				VolumetricWeight: 0,
			}
			res, ok := freight.Calculate(e.Carrier.Pricing, in)
			if ok && res.TotalCharges > 0 {
				servedBy = append(servedBy, e.Carrier.ID)
			}
		}
		if len(servedBy) > 0 {
			hasDistance := centroids != nil && centroids.Has(destination) && centroids.Has(cand.pincode)
			dist := 0.0
			if hasDistance {
				dist = cand.metric
			}
			return &Result{
				NearestPincode: cand.pincode,
				DistanceKM:     dist,
				HasDistance:    hasDistance,
				ServedBy:       servedBy,
			}, true
		}
	}
	return nil, false
}

// resolveZone returns c's zone for pin: its per-pincode zoneOverride if
// present, otherwise the master ZoneIndex zone.
func resolveZone(c *carrier.Carrier, pin int, zones *zone.Index) string {
	if c.ZoneOverrides != nil {
		if z, ok := c.ZoneOverrides[pin]; ok {
			return z
		}
	}
	if zones == nil {
		return ""
	}
	z, _ := zones.ZoneOf(pin)
	return z
}

func rankCandidates(set map[int]bool, destination int, centroids *geo.Index) []candidate {
	out := make([]candidate, 0, len(set))

	if centroids != nil && centroids.Has(destination) {
		destPoint, _ := centroids.PointOf(destination)
		for p := range set {
			point, ok := centroids.PointOf(p)
			if !ok {
				continue
			}
			km := geo.HaversineKm(destPoint, point)
			if km <= maxRadiusKm {
				out = append(out, candidate{pincode: p, metric: km})
			}
		}
		sort.Slice(out, func(i, j int) bool { return out[i].metric < out[j].metric })
	} else {
		for p := range set {
			diff := p - destination
			if diff < 0 {
				diff = -diff
			}
			out = append(out, candidate{pincode: p, metric: float64(diff)})
		}
		sort.Slice(out, func(i, j int) bool { return out[i].metric < out[j].metric })
	}

	if len(out) > maxCandidates {
		out = out[:maxCandidates]
	}
	return out
}
