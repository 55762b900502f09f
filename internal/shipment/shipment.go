// Package shipment models the box/weight inputs to a quote request and
// the volumetric-weight arithmetic shared by every carrier evaluation
// (spec.md §3, §4.6 step 2).
package shipment

import (
	"math"

	"github.com/iaros/freightquote/internal/apperrors"
)

// Box is a single packed unit: dimensions in centimetres, weight in kg,
// and count (identical boxes shipped together).
type Box struct {
	Length float64 `json:"length"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Weight float64 `json:"weight"`
	Count  int     `json:"count"`
}

// Request is the shipment portion of a calculate request. Boxes is the
// preferred shape; legacy single-box fields (LengthCm etc.) are folded
// into a single-element Boxes slice by Normalize.
type Request struct {
	Boxes []Box `json:"boxes"`

	// Legacy single-box fields, accepted for backward compatibility.
	LengthCm float64 `json:"length,omitempty"`
	WidthCm  float64 `json:"width,omitempty"`
	HeightCm float64 `json:"height,omitempty"`
	WeightKg float64 `json:"weight,omitempty"`
	Count    int     `json:"count,omitempty"`
}

// StandardDivisors are the volumetric divisors pre-computed once per
// request and reused across every carrier (spec.md §4.6 step 2).
var StandardDivisors = [4]int{4500, 5000, 5500, 6000}

// Normalized is a validated shipment ready for pricing: a non-empty list
// of boxes plus volumetric weight pre-computed for every standard divisor.
type Normalized struct {
	Boxes       []Box
	ActualWeight float64
	Volumetric  map[int]float64 // divisor -> volumetric weight (kg)
}

// Normalize validates req and folds legacy single-box fields into Boxes.
func Normalize(req Request) (*Normalized, error) {
	boxes := req.Boxes
	if len(boxes) == 0 {
		count := req.Count
		if count == 0 {
			count = 1
		}
		boxes = []Box{{
			Length: req.LengthCm,
			Width:  req.WidthCm,
			Height: req.HeightCm,
			Weight: req.WeightKg,
			Count:  count,
		}}
	}
	if len(boxes) == 0 {
		return nil, apperrors.New(apperrors.InvalidBoxCount, "shipment.Normalize", "at least one box is required")
	}

	var actual float64
	for i, b := range boxes {
		if b.Length <= 0 || b.Width <= 0 || b.Height <= 0 {
			return nil, apperrors.New(apperrors.InvalidDimensions, "shipment.Normalize", "box dimensions must be positive")
		}
		if b.Weight < 0 {
			return nil, apperrors.New(apperrors.InvalidWeight, "shipment.Normalize", "box weight cannot be negative")
		}
		if b.Count < 1 {
			return nil, apperrors.New(apperrors.InvalidBoxCount, "shipment.Normalize", "box count must be at least 1")
		}
		actual += b.Weight * float64(b.Count)
		boxes[i] = b
	}

	n := &Normalized{
		Boxes:        boxes,
		ActualWeight: actual,
		Volumetric:   make(map[int]float64, len(StandardDivisors)),
	}
	for _, d := range StandardDivisors {
		n.Volumetric[d] = volumetricWeight(boxes, d)
	}
	return n, nil
}

// volumetricWeight sums, per box, ceil((L*W*H*count)/divisor), per the
// chargeable-weight definition in spec.md's GLOSSARY.
func volumetricWeight(boxes []Box, divisor int) float64 {
	var total float64
	for _, b := range boxes {
		raw := (b.Length * b.Width * b.Height * float64(b.Count)) / float64(divisor)
		total += math.Ceil(raw)
	}
	return total
}

// VolumetricFor resolves the pre-computed volumetric weight for an
// arbitrary divisor, computing it on the fly if it isn't one of the
// four standard values (a carrier may declare a nonstandard divisor).
func (n *Normalized) VolumetricFor(divisor int) float64 {
	if v, ok := n.Volumetric[divisor]; ok {
		return v
	}
	return volumetricWeight(n.Boxes, divisor)
}

// ChargeableWeight returns max(actual, volumetric) for divisor.
func (n *Normalized) ChargeableWeight(divisor int) float64 {
	return math.Max(n.ActualWeight, n.VolumetricFor(divisor))
}
