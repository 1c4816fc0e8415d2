package analysis

import (
	"sort"
	"strings"

	"finsight/internal/core"
)

// SuggestReimbursement decides whether an expense category is reimbursable
// under a client's analyzed contracts. Returns nil when the client has no
// analyzed contracts at all. Contracts are evaluated most-recent-first and
// the first matching rule wins:
//
//  1. user notes naming the category together with a positive phrase
//     (medium confidence, overrides structured terms),
//  2. the materials catch-all for material-like categories (medium),
//  3. a structured reimbursable term (high),
//  4. a structured non-reimbursable term, only when the contract has no
//     user notes (high),
//  5. fallback "unclear, verify manually" (low, no matched term).
//
// Matching is case- and diacritic-insensitive bidirectional substring
// containment.
func SuggestReimbursement(category string, contracts []core.ContractTerms, table TermTable) *core.ReimbursementSuggestion {
	if len(contracts) == 0 {
		return nil
	}

	ordered := make([]core.ContractTerms, len(contracts))
	copy(ordered, contracts)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].AnalyzedAt.After(ordered[j].AnalyzedAt)
	})

	cat := normalizeText(category)
	if cat == "" {
		cat = core.OtherCategory
	}
	synonyms := normalizeAll(table.synonymsFor(cat))
	positives := normalizeAll(table.PositivePhrases)
	materials := normalizeAll(table.MaterialTerms)

	for _, contract := range ordered {
		notes := normalizeText(contract.UserNotes)

		if notes != "" && containsAny(notes, positives) {
			if term, ok := firstContained(notes, synonyms); ok {
				return &core.ReimbursementSuggestion{
					IsReimbursable: true,
					Confidence:     core.ConfidenceMedium,
					MatchedTerm:    term,
					SourceRef:      noteRef(contract),
				}
			}
			if table.isMaterialCategory(cat) && containsAny(notes, materials) {
				return &core.ReimbursementSuggestion{
					IsReimbursable: true,
					Confidence:     core.ConfidenceMedium,
					MatchedTerm:    table.MaterialLabel,
					SourceRef:      noteRef(contract),
				}
			}
		}

		if term, ok := matchTerms(synonyms, contract.Reimbursable); ok {
			return &core.ReimbursementSuggestion{
				IsReimbursable: true,
				Confidence:     core.ConfidenceHigh,
				MatchedTerm:    term,
				SourceRef:      contract.ID,
			}
		}

		if notes == "" {
			if term, ok := matchTerms(synonyms, contract.NonReimbursable); ok {
				return &core.ReimbursementSuggestion{
					IsReimbursable: false,
					Confidence:     core.ConfidenceHigh,
					MatchedTerm:    term,
					SourceRef:      contract.ID,
				}
			}
		}
	}

	return &core.ReimbursementSuggestion{
		IsReimbursable: false,
		Confidence:     core.ConfidenceLow,
	}
}

func noteRef(c core.ContractTerms) string {
	if c.ID == "" {
		return "user_notes"
	}
	return c.ID + ":user_notes"
}

func normalizeAll(terms []string) []string {
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		if n := normalizeText(t); n != "" {
			out = append(out, n)
		}
	}
	return out
}

// containsAny reports whether any needle appears inside text.
func containsAny(text string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(text, n) {
			return true
		}
	}
	return false
}

// firstContained returns the first needle appearing inside text.
func firstContained(text string, needles []string) (string, bool) {
	for _, n := range needles {
		if strings.Contains(text, n) {
			return n, true
		}
	}
	return "", false
}

// matchTerms finds the first contract term that bidirectionally
// substring-matches any synonym, returning the raw term on success.
func matchTerms(synonyms []string, terms []string) (string, bool) {
	for _, term := range terms {
		normTerm := normalizeText(term)
		if normTerm == "" {
			continue
		}
		for _, syn := range synonyms {
			if strings.Contains(normTerm, syn) || strings.Contains(syn, normTerm) {
				return term, true
			}
		}
	}
	return "", false
}
