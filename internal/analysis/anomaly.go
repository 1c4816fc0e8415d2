package analysis

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"finsight/internal/core"
)

// DetectAnomalies inspects each vendor group for abnormally large latest
// charges, spikes, and same/next-day duplicates, and returns the alerts
// sorted by severity (critical, warning, info). The sort is stable, so ties
// keep the caller's group order. The detector holds no state; dismissal is a
// presentation concern and never feeds back here.
func DetectAnomalies(groups []core.VendorGroup, cfg Config) []core.Alert {
	var alerts []core.Alert
	for _, g := range groups {
		alerts = append(alerts, detectVariance(g, cfg)...)
		alerts = append(alerts, detectDuplicates(g, cfg)...)
	}

	sort.SliceStable(alerts, func(i, j int) bool {
		return alerts[i].Severity.Rank() < alerts[j].Severity.Rank()
	})
	return alerts
}

// detectVariance compares the latest charge against the mean of all earlier
// ones. Needs at least three occurrences; skipped when the historical mean is
// not positive. high_variance (warning above WarningPct, critical above
// CriticalPct) and spike (above SpikePct, always critical) fire
// independently and may both flag the same charge.
func detectVariance(g core.VendorGroup, cfg Config) []core.Alert {
	n := len(g.Occurrences)
	if n < 3 {
		return nil
	}

	avg := meanAmount(g.Occurrences[:n-1])
	if !avg.IsPositive() {
		return nil
	}

	latest := g.Occurrences[n-1]
	pct := latest.Amount.Sub(avg).Div(avg).Mul(decimal.NewFromInt(100)).InexactFloat64()

	var alerts []core.Alert
	if pct > cfg.WarningPct {
		severity := core.SeverityWarning
		if pct > cfg.CriticalPct {
			severity = core.SeverityCritical
		}
		alerts = append(alerts, varianceAlert(core.AlertHighVariance, severity, g.Key, latest, avg, pct))
	}
	if pct > cfg.SpikePct {
		alerts = append(alerts, varianceAlert(core.AlertSpike, core.SeverityCritical, g.Key, latest, avg, pct))
	}
	return alerts
}

func varianceAlert(typ core.AlertType, severity core.Severity, key string, latest core.Occurrence, avg decimal.Decimal, pct float64) core.Alert {
	date := latest.Date
	return core.Alert{
		ID:            fmt.Sprintf("%s:%s", typ, key),
		Type:          typ,
		Severity:      severity,
		VendorKey:     key,
		Amount:        latest.Amount,
		HistoricalAvg: &avg,
		PercentChange: &pct,
		Date:          &date,
	}
}

// detectDuplicates walks every consecutive occurrence pair in the group's
// full history. A pair at most DuplicateMaxDayGap days apart with exactly
// equal amounts yields one warning alert referencing the later occurrence;
// overlapping pairs each produce their own alert.
func detectDuplicates(g core.VendorGroup, cfg Config) []core.Alert {
	var alerts []core.Alert
	for i := 1; i < len(g.Occurrences); i++ {
		prev, cur := g.Occurrences[i-1], g.Occurrences[i]
		if dayGap(prev, cur) > cfg.DuplicateMaxDayGap || !prev.Amount.Equal(cur.Amount) {
			continue
		}
		date := cur.Date
		alerts = append(alerts, core.Alert{
			ID:        fmt.Sprintf("%s:%s:%s:%d", core.AlertDuplicate, g.Key, cur.Date.Format("2006-01-02"), i),
			Type:      core.AlertDuplicate,
			Severity:  core.SeverityWarning,
			VendorKey: g.Key,
			Amount:    cur.Amount,
			Date:      &date,
		})
	}
	return alerts
}
