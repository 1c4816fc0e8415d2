package analysis

import (
	"sort"

	"finsight/internal/core"
)

// MonthlySeries folds raw transactions into one point per calendar month
// that has at least one income or expense record, sorted ascending by month
// key ("YYYY-MM").
func MonthlySeries(txs []core.Transaction) []core.MonthlyPoint {
	byMonth := make(map[string]core.MonthlyPoint)
	for _, t := range txs {
		if t.Date.IsZero() {
			continue
		}
		key := t.Date.Format("2006-01")
		p, ok := byMonth[key]
		if !ok {
			p = core.MonthlyPoint{Month: key}
		}
		switch t.Kind {
		case core.Income:
			p.Income = p.Income.Add(t.Amount)
		case core.Expense:
			p.Expense = p.Expense.Add(t.Amount)
		}
		byMonth[key] = p
	}

	points := make([]core.MonthlyPoint, 0, len(byMonth))
	for _, p := range byMonth {
		points = append(points, p)
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Month < points[j].Month })
	return points
}
