package analysis

import (
	"errors"
	"fmt"
	"math"

	"finsight/internal/core"
)

// ErrInsufficientData is returned when fewer than two monthly points are
// available. Callers must branch on it instead of reading the result: a zero
// correlation would be a misleading "no relationship" signal.
var ErrInsufficientData = errors.New("insufficient data: need at least two monthly points")

// Correlate computes the Pearson correlation and least-squares trend line
// between two aligned series of equal length (income as x, expense as y).
// Degenerate no-variance series define r and slope as 0 rather than failing.
func Correlate(income, expense []float64) (core.CorrelationResult, error) {
	n := len(income)
	if n < 2 || len(expense) != n {
		return core.CorrelationResult{}, ErrInsufficientData
	}

	var sumX, sumY, sumXY, sumXX, sumYY float64
	for i := 0; i < n; i++ {
		x, y := income[i], expense[i]
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
		sumYY += y * y
	}

	fn := float64(n)
	rNum := fn*sumXY - sumX*sumY
	rDen := math.Sqrt((fn*sumXX - sumX*sumX) * (fn*sumYY - sumY*sumY))

	var r float64
	if rDen != 0 {
		r = rNum / rDen
	}

	var slope, intercept float64
	if den := fn*sumXX - sumX*sumX; den != 0 {
		slope = rNum / den
		intercept = (sumY - slope*sumX) / fn
	}

	result := core.CorrelationResult{
		R:         r,
		Slope:     slope,
		Intercept: intercept,
	}
	result.Insights = buildInsights(result, sumX, sumY)
	return result, nil
}

// CorrelateMonthly runs Correlate over the income/expense sums of an
// aggregated monthly series.
func CorrelateMonthly(points []core.MonthlyPoint) (core.CorrelationResult, error) {
	income := make([]float64, len(points))
	expense := make([]float64, len(points))
	for i, p := range points {
		income[i] = p.Income.InexactFloat64()
		expense[i] = p.Expense.InexactFloat64()
	}
	return Correlate(income, expense)
}

// StrengthLabel maps |r| to a display label: strong at 0.7 and above,
// moderate from 0.4, weak below.
func StrengthLabel(r float64) string {
	abs := math.Abs(r)
	switch {
	case abs >= 0.7:
		return "strong"
	case abs >= 0.4:
		return "moderate"
	default:
		return "weak"
	}
}

// buildInsights derives the qualitative statements. Each rule is independent;
// several insights may co-occur.
func buildInsights(res core.CorrelationResult, totalIncome, totalExpense float64) []string {
	var insights []string

	if math.Abs(res.R) >= 0.7 {
		direction := "rise and fall together"
		if res.R < 0 {
			direction = "move in opposite directions"
		}
		insights = append(insights, fmt.Sprintf("Income and expenses show a strong correlation (r=%.2f): they %s.", res.R, direction))
	}
	if math.Abs(res.R) < 0.3 {
		insights = append(insights, "Spending stays stable regardless of income swings.")
	}

	if totalIncome > 0 {
		savingsRate := (totalIncome - totalExpense) / totalIncome * 100
		switch {
		case savingsRate >= 20:
			insights = append(insights, fmt.Sprintf("Healthy savings rate of %.0f%% over the period.", savingsRate))
		case savingsRate >= 0:
			insights = append(insights, fmt.Sprintf("Savings rate of %.0f%%: income and spending are close to balanced.", savingsRate))
		default:
			insights = append(insights, fmt.Sprintf("Spending exceeded income by %.0f%% over the period.", -savingsRate))
		}
	}

	if res.Slope > 1 {
		insights = append(insights, "Expenses grow faster than income: each extra unit earned is more than spent.")
	} else if res.Slope > 0 && res.Slope < 0.5 {
		insights = append(insights, "Good spending control: less than half of each extra unit earned is spent.")
	}

	return insights
}
