package carrier_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/iaros/freightquote/internal/carrier"
)

func entryOf(id, name, owner string) *carrier.Entry {
	return &carrier.Entry{
		Carrier: &carrier.Carrier{ID: id, Name: name, OwnerCustomerID: owner},
		Index:   carrier.BuildServiceIndex(&carrier.Carrier{}, nil),
	}
}

func TestResolve_DBCarrierOverriddenByMatchingUTSFID(t *testing.T) {
	// spec.md §8 scenario 4/invariant 7: id match is an override, the DB
	// copy must not also appear.
	utsf := []*carrier.Entry{entryOf("c1", "Acme Express", "")}
	db := []*carrier.Carrier{{ID: "c1", Name: "Acme Express (legacy)"}}

	res := carrier.Resolve(utsf, db, "")
	assert.Len(t, res.Public, 1)
	assert.Equal(t, "c1", res.Public[0].Carrier.ID)
}

func TestResolve_DBCarrierOverriddenByCaseInsensitiveNameMatch(t *testing.T) {
	utsf := []*carrier.Entry{entryOf("c1", "Acme Express", "")}
	db := []*carrier.Carrier{{ID: "db-9", Name: "ACME EXPRESS"}}

	res := carrier.Resolve(utsf, db, "")
	assert.Len(t, res.Public, 1)
	assert.Equal(t, "c1", res.Public[0].Carrier.ID)
}

func TestResolve_FallbackVendorBypassesOverrideEvenOnNameMatch(t *testing.T) {
	// spec.md §8 scenario 5: a fallback vendor always passes through, even
	// when a UTSF entry shares its name.
	utsf := []*carrier.Entry{entryOf("c1", "WheelsEye", "")}
	db := []*carrier.Carrier{{ID: "db-9", Name: "WheelsEye"}}

	res := carrier.Resolve(utsf, db, "")
	assert.Len(t, res.Public, 2)
}

func TestResolve_UnmatchedDBCarrierPassesThrough(t *testing.T) {
	utsf := []*carrier.Entry{entryOf("c1", "Acme Express", "")}
	db := []*carrier.Carrier{{ID: "db-9", Name: "Other Logistics"}}

	res := carrier.Resolve(utsf, db, "")
	assert.Len(t, res.Public, 2)
}

func TestResolve_TiedUpSplitByRequesterCustomerID(t *testing.T) {
	utsf := []*carrier.Entry{
		entryOf("c1", "Tied Carrier", "cust-1"),
		entryOf("c2", "Public Carrier", ""),
	}
	db := []*carrier.Carrier{{ID: "db-9", Name: "DB Tied", OwnerCustomerID: "cust-1"}}

	res := carrier.Resolve(utsf, db, "cust-1")
	assert.Len(t, res.TiedUp, 2)
	assert.Len(t, res.Public, 1)
}
