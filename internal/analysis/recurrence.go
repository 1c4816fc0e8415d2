package analysis

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"finsight/internal/core"
)

// dayGap returns the whole-day distance between two occurrences.
func dayGap(a, b core.Occurrence) int {
	gap := b.Date.Sub(a.Date).Hours() / 24
	return int(math.Abs(math.Round(gap)))
}

// varianceRatio is the relative amount difference between two consecutive
// occurrences: |a-b| / max(a, b). Zero when both amounts are zero.
func varianceRatio(prev, latest decimal.Decimal) float64 {
	max := decimal.Max(prev, latest)
	if max.IsZero() {
		return 0
	}
	return latest.Sub(prev).Abs().Div(max).InexactFloat64()
}

// ClassifyRecurrence infers the payment cadence and stability of a vendor
// group. Groups with fewer than two occurrences are skipped (nil, nil).
//
// A new_recurring alert fires only when the group has exactly two
// occurrences, the gap falls in the monthly band, and the amounts are
// similar. A third occurrence naturally stops the group from qualifying, so
// the alert is emitted at most once per vendor across successive runs.
func ClassifyRecurrence(g core.VendorGroup, cfg Config) (*core.RecurrencePattern, *core.Alert) {
	n := len(g.Occurrences)
	if n < 2 {
		return nil, nil
	}

	gaps := make([]int, 0, n-1)
	for i := 1; i < n; i++ {
		gaps = append(gaps, dayGap(g.Occurrences[i-1], g.Occurrences[i]))
	}

	latest := g.Occurrences[n-1]
	prev := g.Occurrences[n-2]
	ratio := varianceRatio(prev.Amount, latest.Amount)
	similar := ratio < cfg.SimilarityThreshold

	cadence := cfg.Bands.Classify(meanGap(gaps))

	pattern := &core.RecurrencePattern{
		VendorKey:     g.Key,
		Cadence:       cadence,
		AverageAmount: meanAmount(g.Occurrences[:n-1]),
		LatestAmount:  latest.Amount,
		VarianceRatio: ratio,
		Confidence:    recurrenceConfidence(cadence, gaps, n, cfg.Bands),
		LastDate:      latest.Date,
	}

	var alert *core.Alert
	if n == 2 && cfg.Bands.Monthly.Contains(gaps[0]) && similar {
		date := latest.Date
		alert = &core.Alert{
			ID:        fmt.Sprintf("%s:%s", core.AlertNewRecurring, g.Key),
			Type:      core.AlertNewRecurring,
			Severity:  core.SeverityInfo,
			VendorKey: g.Key,
			Amount:    latest.Amount,
			Date:      &date,
		}
	}

	return pattern, alert
}

// meanGap rounds the average of the consecutive day gaps.
func meanGap(gaps []int) int {
	sum := 0
	for _, g := range gaps {
		sum += g
	}
	return int(math.Round(float64(sum) / float64(len(gaps))))
}

// meanAmount averages occurrence amounts; zero for an empty slice.
func meanAmount(occs []core.Occurrence) decimal.Decimal {
	if len(occs) == 0 {
		return decimal.Zero
	}
	sum := decimal.Zero
	for _, o := range occs {
		sum = sum.Add(o.Amount)
	}
	return sum.Div(decimal.NewFromInt(int64(len(occs))))
}

// recurrenceConfidence scores a pattern 0-100. The scheme is monotonic in
// occurrence count and band tightness: an in-band cadence starts at 40,
// gains 10 per occurrence beyond the second (capped at +40), and gains 20
// when the mean absolute gap deviation from the band midpoint is at most two
// days. Irregular cadences top out at 30.
func recurrenceConfidence(cadence core.Cadence, gaps []int, occurrences int, bands CadenceBands) int {
	extra := (occurrences - 2) * 10
	if extra > 40 {
		extra = 40
	}

	band, ok := bands.Band(cadence)
	if !ok {
		conf := 10 + (occurrences-2)*5
		if conf > 30 {
			conf = 30
		}
		return conf
	}

	conf := 40 + extra
	if meanAbsDeviation(gaps, band.Midpoint()) <= 2 {
		conf += 20
	}
	if conf > 100 {
		conf = 100
	}
	return conf
}

func meanAbsDeviation(gaps []int, center float64) float64 {
	sum := 0.0
	for _, g := range gaps {
		sum += math.Abs(float64(g) - center)
	}
	return sum / float64(len(gaps))
}
