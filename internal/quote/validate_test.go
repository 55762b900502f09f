package quote

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iaros/freightquote/internal/apperrors"
	"github.com/iaros/freightquote/internal/carrier"
)

func TestValidateRequest_RejectsNonPositivePincodes(t *testing.T) {
	err := validateRequest(Request{Origin: 0, Dest: 400001})
	require.Error(t, err)
	assert.Equal(t, apperrors.PincodeNotFound, err.(*apperrors.Error).Code)

	err = validateRequest(Request{Origin: 110001, Dest: -1})
	require.Error(t, err)
}

func TestValidateRequest_RejectsOutOfBoundsInvoiceValue(t *testing.T) {
	err := validateRequest(Request{Origin: 110001, Dest: 400001, InvoiceValue: -5})
	require.Error(t, err)
	assert.Equal(t, apperrors.InvalidDimensions, err.(*apperrors.Error).Code)

	err = validateRequest(Request{Origin: 110001, Dest: 400001, InvoiceValue: 1e9})
	require.Error(t, err)
}

func TestValidateRequest_ZeroInvoiceValueIsAllowed(t *testing.T) {
	// 0 means "use default", not "out of bounds" (spec.md §4.7).
	err := validateRequest(Request{Origin: 110001, Dest: 400001, InvoiceValue: 0})
	assert.NoError(t, err)
}

func TestValidateRequest_AcceptsValidRequest(t *testing.T) {
	err := validateRequest(Request{Origin: 110001, Dest: 400001, InvoiceValue: 100})
	assert.NoError(t, err)
}

func TestValidateRequest_RejectsMalformedCustomerID(t *testing.T) {
	err := validateRequest(Request{Origin: 110001, Dest: 400001, OwnerCustomerID: "cust 1; drop"})
	require.Error(t, err)
	assert.Equal(t, apperrors.InvalidCustomerID, err.(*apperrors.Error).Code)

	// Empty means "anonymous/public request", not malformed.
	assert.NoError(t, validateRequest(Request{Origin: 110001, Dest: 400001}))
	assert.NoError(t, validateRequest(Request{Origin: 110001, Dest: 400001, OwnerCustomerID: "cust-1"}))
}

func TestOverrideZone_CarrierRemapWinsOverMasterZone(t *testing.T) {
	c := &carrier.Carrier{ZoneOverrides: map[int]string{110001: "X3"}}
	assert.Equal(t, "X3", overrideZone(c, 110001, "N1"))
	assert.Equal(t, "N1", overrideZone(c, 110002, "N1"))
	assert.Equal(t, "N1", overrideZone(&carrier.Carrier{}, 110001, "N1"))
}
