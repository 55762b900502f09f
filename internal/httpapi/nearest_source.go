package httpapi

import (
	"context"

	"github.com/iaros/freightquote/internal/carrier"
	"github.com/iaros/freightquote/internal/quote"
)

// registrySource adapts the engine's carrier sources to
// nearest.CarrierSource: the candidate set is the union of UTSF registry
// entries (owner's tied-up plus public) and the owner's DB tied-up
// carriers fetched with full serviceability (spec.md §4.10 step 1). The
// two lists merge through the same hot-switch rule as quoting, so a
// carrier present in both contributes its UTSF coverage, not both.
type registrySource struct {
	engine *quote.Engine
}

func (s registrySource) ServiceableCarriers(ctx context.Context, ownerCustomerID string) []*carrier.Entry {
	all := s.engine.Registry.All()
	utsf := all
	if ownerCustomerID != "" {
		utsf = make([]*carrier.Entry, 0, len(all))
		for _, e := range all {
			if e.Carrier.OwnerCustomerID == "" || e.Carrier.OwnerCustomerID == ownerCustomerID {
				utsf = append(utsf, e)
			}
		}
	}

	var db []*carrier.Carrier
	if s.engine.DBSource != nil && ownerCustomerID != "" {
		fetched, err := s.engine.DBSource.FetchTiedUpFull(ctx, ownerCustomerID)
		if err != nil {
			s.engine.Log.Warn("tied-up carrier fetch failed, nearest search continues on UTSF coverage only")
		} else {
			db = fetched
		}
	}

	resolved := carrier.Resolve(utsf, db, ownerCustomerID)
	return append(resolved.TiedUp, resolved.Public...)
}
