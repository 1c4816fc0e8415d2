// Package analysis implements the transaction-pattern analysis routines:
// vendor grouping, recurrence classification, anomaly detection, income and
// expense correlation, reimbursement term matching and workflow progress
// resolution. All functions are pure and operate on in-memory snapshots.
package analysis

import "finsight/internal/core"

// Band is an inclusive day-gap range for one cadence class.
type Band struct {
	Min int
	Max int
}

// Contains reports whether the gap falls inside the band, bounds included.
func (b Band) Contains(gapDays int) bool {
	return gapDays >= b.Min && gapDays <= b.Max
}

// Midpoint returns the center of the band, used for the tightness bonus in
// recurrence confidence.
func (b Band) Midpoint() float64 {
	return float64(b.Min+b.Max) / 2
}

// CadenceBands holds the day-gap ranges for the four regular cadences.
// Gaps outside every band classify as irregular.
type CadenceBands struct {
	Weekly    Band
	Monthly   Band
	Quarterly Band
	Yearly    Band
}

// Classify maps a non-negative day gap to exactly one cadence.
func (b CadenceBands) Classify(gapDays int) core.Cadence {
	switch {
	case b.Weekly.Contains(gapDays):
		return core.Weekly
	case b.Monthly.Contains(gapDays):
		return core.Monthly
	case b.Quarterly.Contains(gapDays):
		return core.Quarterly
	case b.Yearly.Contains(gapDays):
		return core.Yearly
	default:
		return core.Irregular
	}
}

// Band returns the band for a regular cadence, false for irregular.
func (b CadenceBands) Band(c core.Cadence) (Band, bool) {
	switch c {
	case core.Weekly:
		return b.Weekly, true
	case core.Monthly:
		return b.Monthly, true
	case core.Quarterly:
		return b.Quarterly, true
	case core.Yearly:
		return b.Yearly, true
	default:
		return Band{}, false
	}
}

// Config carries the tunable thresholds of the recurrence classifier and the
// anomaly detector. The defaults are empirically chosen constants; they are
// configuration, not invariants.
type Config struct {
	// WarningPct and CriticalPct are the high_variance thresholds, in
	// percent change over the historical average (strict greater-than).
	WarningPct  float64
	CriticalPct float64

	// SpikePct is the spike threshold, in percent change.
	SpikePct float64

	// SimilarityThreshold is the variance-ratio bound below which two
	// consecutive amounts count as similar.
	SimilarityThreshold float64

	// DuplicateMaxDayGap is the largest day gap between two equal charges
	// that still counts as a duplicate.
	DuplicateMaxDayGap int

	Bands CadenceBands
}

// DefaultConfig returns the stock thresholds: warning above 30%, critical
// above 50%, spike above 100%, similarity below 0.15, duplicates within one
// day, and the standard cadence bands.
func DefaultConfig() Config {
	return Config{
		WarningPct:          30,
		CriticalPct:         50,
		SpikePct:            100,
		SimilarityThreshold: 0.15,
		DuplicateMaxDayGap:  1,
		Bands: CadenceBands{
			Weekly:    Band{Min: 6, Max: 8},
			Monthly:   Band{Min: 25, Max: 35},
			Quarterly: Band{Min: 80, Max: 100},
			Yearly:    Band{Min: 350, Max: 380},
		},
	}
}
