package quote_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/iaros/freightquote/internal/quote"
	"github.com/iaros/freightquote/internal/shipment"
)

func TestFingerprint_ReorderingEqualBoxesIsStable(t *testing.T) {
	// spec.md §8 round-trip law: reordering equal-by-value boxes must not
	// change the fingerprint.
	boxes := []shipment.Box{
		{Length: 10, Width: 10, Height: 10, Weight: 1, Count: 1},
		{Length: 20, Width: 20, Height: 20, Weight: 2, Count: 1},
	}
	reversed := []shipment.Box{boxes[1], boxes[0]}

	a := quote.Fingerprint("cust-1", 110001, 400001, "express", 0, boxes)
	b := quote.Fingerprint("cust-1", 110001, 400001, "express", 0, reversed)
	assert.Equal(t, a, b)
}

func TestFingerprint_DiffersOnAnyInput(t *testing.T) {
	boxes := []shipment.Box{{Length: 10, Width: 10, Height: 10, Weight: 1, Count: 1}}

	base := quote.Fingerprint("cust-1", 110001, 400001, "express", 0, boxes)
	assert.NotEqual(t, base, quote.Fingerprint("cust-2", 110001, 400001, "express", 0, boxes))
	assert.NotEqual(t, base, quote.Fingerprint("cust-1", 110002, 400001, "express", 0, boxes))
	assert.NotEqual(t, base, quote.Fingerprint("cust-1", 110001, 400002, "express", 0, boxes))
	assert.NotEqual(t, base, quote.Fingerprint("cust-1", 110001, 400001, "surface", 0, boxes))
	assert.NotEqual(t, base, quote.Fingerprint("cust-1", 110001, 400001, "express", 500, boxes))
}

func TestFingerprint_IsDeterministic(t *testing.T) {
	boxes := []shipment.Box{{Length: 10, Width: 10, Height: 10, Weight: 1, Count: 1}}
	a := quote.Fingerprint("cust-1", 110001, 400001, "express", 0, boxes)
	b := quote.Fingerprint("cust-1", 110001, 400001, "express", 0, boxes)
	assert.Equal(t, a, b)
}
