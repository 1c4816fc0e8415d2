package analysis

import (
	"sort"

	"finsight/internal/core"
)

// Report bundles the output of one full analysis pass over a transaction
// snapshot. It is rebuilt from scratch on every call; nothing is cached or
// carried over between runs.
type Report struct {
	Groups      []core.VendorGroup       `json:"groups"`
	Patterns    []core.RecurrencePattern `json:"patterns"`
	Alerts      []core.Alert             `json:"alerts"`
	Monthly     []core.MonthlyPoint      `json:"monthly"`
	Correlation *core.CorrelationResult  `json:"correlation,omitempty"`
}

// BuildReport runs grouping, recurrence classification, anomaly detection
// and monthly correlation over a snapshot. The correlation result is nil
// when fewer than two months of data exist.
func BuildReport(txs []core.Transaction, cfg Config) Report {
	groups := OrderedGroups(GroupByVendor(txs))

	report := Report{Groups: groups}

	var alerts []core.Alert
	for _, g := range groups {
		pattern, alert := ClassifyRecurrence(g, cfg)
		if pattern != nil {
			report.Patterns = append(report.Patterns, *pattern)
		}
		if alert != nil {
			alerts = append(alerts, *alert)
		}
	}
	alerts = append(alerts, DetectAnomalies(groups, cfg)...)
	sort.SliceStable(alerts, func(i, j int) bool {
		return alerts[i].Severity.Rank() < alerts[j].Severity.Rank()
	})
	report.Alerts = alerts

	report.Monthly = MonthlySeries(txs)
	if corr, err := CorrelateMonthly(report.Monthly); err == nil {
		report.Correlation = &corr
	}

	return report
}
