package analysis

import (
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"finsight/internal/core"
)

// stripMarks removes combining diacritical marks after NFD decomposition, so
// "Caffè" and "Caffe" normalize to the same key.
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// normalizeText lower-cases, trims and strips diacritics. Idempotent.
func normalizeText(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if out, _, err := transform.String(stripMarks, s); err == nil {
		s = out
	}
	return s
}

// NormalizeVendor derives the grouping key for a raw transaction description.
// Empty or blank descriptions map to the reserved "unknown" key.
func NormalizeVendor(description string) string {
	key := normalizeText(description)
	if key == "" {
		return core.UnknownVendorKey
	}
	return key
}

// GroupByVendor buckets transactions by normalized vendor key. Occurrences
// within a group are sorted ascending by date; the display description is
// taken from the first transaction seen for the key. Always succeeds and
// returns an empty map for empty input.
func GroupByVendor(txs []core.Transaction) map[string]core.VendorGroup {
	groups := make(map[string]core.VendorGroup, len(txs))
	for _, t := range txs {
		key := NormalizeVendor(t.Description)
		g, ok := groups[key]
		if !ok {
			display := strings.TrimSpace(t.Description)
			if display == "" {
				display = core.UnknownVendorKey
			}
			g = core.VendorGroup{Key: key, Display: display}
		}
		g.Occurrences = append(g.Occurrences, core.Occurrence{Date: t.Date, Amount: t.Amount})
		groups[key] = g
	}

	for key, g := range groups {
		sort.SliceStable(g.Occurrences, func(i, j int) bool {
			return g.Occurrences[i].Date.Before(g.Occurrences[j].Date)
		})
		groups[key] = g
	}
	return groups
}

// OrderedGroups flattens a vendor map into a slice sorted by key, giving the
// downstream detectors a deterministic iteration order.
func OrderedGroups(groups map[string]core.VendorGroup) []core.VendorGroup {
	out := make([]core.VendorGroup, 0, len(groups))
	for _, g := range groups {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}
