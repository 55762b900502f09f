package quote

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/iaros/freightquote/internal/shipment"
)

// Fingerprint returns a stable cache key for a calculate request. Box
// entries are canonicalised (sorted by a fixed field order) before
// hashing so that reordering equal-by-value boxes never changes the key
// (spec.md §4.8, §8 round-trip law).
func Fingerprint(ownerCustomerID string, origin, dest int, mode string, invoiceValue float64, boxes []shipment.Box) string {
	canon := make([]shipment.Box, len(boxes))
	copy(canon, boxes)
	sort.Slice(canon, func(i, j int) bool {
		a, b := canon[i], canon[j]
		if a.Length != b.Length {
			return a.Length < b.Length
		}
		if a.Width != b.Width {
			return a.Width < b.Width
		}
		if a.Height != b.Height {
			return a.Height < b.Height
		}
		if a.Weight != b.Weight {
			return a.Weight < b.Weight
		}
		return a.Count < b.Count
	})

	var sb strings.Builder
	fmt.Fprintf(&sb, "calc:%s:%d:%d:%s:%.4f:", ownerCustomerID, origin, dest, mode, invoiceValue)
	for _, b := range canon {
		fmt.Fprintf(&sb, "[%.3f,%.3f,%.3f,%.3f,%d]", b.Length, b.Width, b.Height, b.Weight, b.Count)
	}

	sum := sha256.Sum256([]byte(sb.String()))
	return "calc:" + hex.EncodeToString(sum[:])
}
