package analysis

// TermTable is the versioned configuration data behind the reimbursement
// matcher: category synonym sets, positive-reimbursement phrases and the
// generic material vocabulary. Keeping it as data lets the lists grow without
// touching the matching algorithm.
type TermTable struct {
	// Synonyms maps a normalized category name to the terms that count as
	// the same category in contract language.
	Synonyms map[string][]string

	// PositivePhrases are note fragments that signal the client agreed to
	// reimburse.
	PositivePhrases []string

	// MaterialTerms are generic materials/tools/supplies words used by the
	// catch-all rule.
	MaterialTerms []string

	// MaterialCategories are the categories the catch-all rule applies to.
	MaterialCategories []string

	// MaterialLabel is the generic matched-term label the catch-all
	// reports.
	MaterialLabel string
}

// DefaultTermTable returns the stock vocabulary.
func DefaultTermTable() TermTable {
	return TermTable{
		Synonyms: map[string][]string{
			"travel":        {"travel", "trip", "mileage", "transport", "flight", "train", "taxi"},
			"meals":         {"meal", "meals", "food", "lunch", "dinner", "catering", "per diem"},
			"lodging":       {"lodging", "hotel", "accommodation", "stay"},
			"equipment":     {"equipment", "hardware", "device", "tool", "tools"},
			"software":      {"software", "license", "licence", "subscription", "saas"},
			"supplies":      {"supplies", "materials", "consumables", "stationery"},
			"communication": {"communication", "phone", "internet", "mobile"},
			"training":      {"training", "course", "conference", "workshop", "education"},
			"shipping":      {"shipping", "postage", "courier", "delivery"},
		},
		PositivePhrases: []string{
			"reimburs", // matches reimburse, reimbursed, reimbursable
			"covered",
			"will cover",
			"client pays",
			"paid by client",
			"billable",
			"at cost",
			"on top of the fee",
			"refund",
		},
		MaterialTerms: []string{
			"materials", "tools", "supplies", "equipment", "consumables",
		},
		MaterialCategories: []string{
			"equipment", "software", "supplies", "shipping",
		},
		MaterialLabel: "materials and supplies",
	}
}

// synonymsFor returns the synonym set for a normalized category, always
// including the category name itself.
func (t TermTable) synonymsFor(category string) []string {
	syns := []string{category}
	for _, s := range t.Synonyms[category] {
		if s != category {
			syns = append(syns, s)
		}
	}
	return syns
}

// isMaterialCategory reports whether the catch-all rule covers the category.
func (t TermTable) isMaterialCategory(category string) bool {
	for _, c := range t.MaterialCategories {
		if c == category {
			return true
		}
	}
	return false
}
