package carrier

import "strings"

// fallbackVendors bypass the hot-switch override rule entirely: they are
// priced zone-to-zone without per-pincode serviceability and must always
// pass through regardless of whether a UTSF entry shares their name
// (spec.md §4.5, GLOSSARY "Fallback vendor").
var fallbackVendors = []string{
	"wheelseye",
	"local ftl",
	"ftl transporter",
	"local-ftl",
}

// isFallbackVendor reports whether name contains one of the whitelisted
// fallback-vendor substrings, case-insensitively.
func isFallbackVendor(name string) bool {
	lower := strings.ToLower(name)
	for _, v := range fallbackVendors {
		if strings.Contains(lower, v) {
			return true
		}
	}
	return false
}

// Resolved is the outcome of merging a UTSF snapshot with a DB fetch for a
// single request: tied-up and public carriers, each already deduplicated
// by the hot-switch rule.
type Resolved struct {
	TiedUp []*Entry
	Public []*Entry
}

// Resolve merges UTSF and DB carrier lists per the hot-switch rule in
// spec.md §4.5: a DB carrier is overridden iff its id or lowercase name
// matches a UTSF carrier, except for the fallback-vendor whitelist.
// requesterCustomerID splits UTSF carriers into tied-up (owned by the
// requester) versus public.
func Resolve(utsfEntries []*Entry, dbCarriers []*Carrier, requesterCustomerID string) Resolved {
	utsfIDs := make(map[string]bool, len(utsfEntries))
	utsfNames := make(map[string]bool, len(utsfEntries))
	for _, e := range utsfEntries {
		utsfIDs[e.Carrier.ID] = true
		utsfNames[strings.ToLower(e.Carrier.Name)] = true
	}

	var res Resolved
	for _, e := range utsfEntries {
		if e.Carrier.OwnerCustomerID != "" && e.Carrier.OwnerCustomerID == requesterCustomerID {
			res.TiedUp = append(res.TiedUp, e)
		} else {
			res.Public = append(res.Public, e)
		}
	}

	for _, c := range dbCarriers {
		overridden := (utsfIDs[c.ID] || utsfNames[strings.ToLower(c.Name)]) && !isFallbackVendor(c.Name)
		if overridden {
			continue
		}
		// DB serviceability is always decoded as per-pincode ONLY_SERVED
		// entries (see serviceEntriesToIndex), so no zone.Index is needed
		// to compile it.
		entry := &Entry{Carrier: c, Index: BuildServiceIndex(c, nil)}
		if c.OwnerCustomerID != "" && c.OwnerCustomerID == requesterCustomerID {
			res.TiedUp = append(res.TiedUp, entry)
		} else {
			res.Public = append(res.Public, entry)
		}
	}
	return res
}
