package shipment_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iaros/freightquote/internal/apperrors"
	"github.com/iaros/freightquote/internal/shipment"
)

func TestNormalize_VolumetricWeight_ScenarioOne(t *testing.T) {
	// spec.md §8 scenario 1: 30x30x30cm, 5kg, count=2, divisor=5000.
	n, err := shipment.Normalize(shipment.Request{
		Boxes: []shipment.Box{{Length: 30, Width: 30, Height: 30, Weight: 5, Count: 2}},
	})
	require.NoError(t, err)

	assert.Equal(t, 10.0, n.ActualWeight)
	assert.Equal(t, 11.0, n.VolumetricFor(5000))
	assert.Equal(t, 11.0, n.ChargeableWeight(5000))
}

func TestNormalize_LegacySingleBoxFoldedIntoBoxes(t *testing.T) {
	n, err := shipment.Normalize(shipment.Request{
		LengthCm: 10, WidthCm: 10, HeightCm: 10, WeightKg: 2,
	})
	require.NoError(t, err)
	require.Len(t, n.Boxes, 1)
	assert.Equal(t, 1, n.Boxes[0].Count)
	assert.Equal(t, 2.0, n.ActualWeight)
}

func TestNormalize_RejectsNonPositiveDimensions(t *testing.T) {
	_, err := shipment.Normalize(shipment.Request{
		Boxes: []shipment.Box{{Length: 0, Width: 10, Height: 10, Weight: 1, Count: 1}},
	})
	require.Error(t, err)
	appErr, ok := err.(*apperrors.Error)
	require.True(t, ok)
	assert.Equal(t, apperrors.InvalidDimensions, appErr.Code)
}

func TestNormalize_RejectsNegativeWeight(t *testing.T) {
	_, err := shipment.Normalize(shipment.Request{
		Boxes: []shipment.Box{{Length: 1, Width: 1, Height: 1, Weight: -1, Count: 1}},
	})
	require.Error(t, err)
	assert.Equal(t, apperrors.InvalidWeight, err.(*apperrors.Error).Code)
}

func TestNormalize_RejectsZeroBoxCount(t *testing.T) {
	_, err := shipment.Normalize(shipment.Request{
		Boxes: []shipment.Box{{Length: 1, Width: 1, Height: 1, Weight: 1, Count: 0}},
	})
	require.Error(t, err)
	assert.Equal(t, apperrors.InvalidBoxCount, err.(*apperrors.Error).Code)
}

func TestNormalize_TinyBoxZeroWeight_VolumetricUnderOneKgAnyDivisor(t *testing.T) {
	// spec.md §8 boundary test: count=1, dims=(1,1,1), weight=0.
	n, err := shipment.Normalize(shipment.Request{
		Boxes: []shipment.Box{{Length: 1, Width: 1, Height: 1, Weight: 0, Count: 1}},
	})
	require.NoError(t, err)
	for _, d := range shipment.StandardDivisors {
		assert.LessOrEqual(t, n.VolumetricFor(d), 1.0)
	}
}
