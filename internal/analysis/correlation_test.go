package analysis

import (
	"errors"
	"math"
	"math/rand"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"finsight/internal/core"
)

func TestCorrelate_InsufficientData(t *testing.T) {
	tests := []struct {
		name    string
		income  []float64
		expense []float64
	}{
		{name: "empty", income: nil, expense: nil},
		{name: "single point", income: []float64{100}, expense: []float64{80}},
		{name: "mismatched lengths", income: []float64{100, 200}, expense: []float64{80}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Correlate(tt.income, tt.expense)
			if !errors.Is(err, ErrInsufficientData) {
				t.Errorf("err = %v, want ErrInsufficientData", err)
			}
		})
	}
}

func TestCorrelate_PerfectLinearRelation(t *testing.T) {
	income := []float64{100, 200, 300, 400}
	expense := []float64{200, 400, 600, 800} // y = 2x

	res, err := Correlate(income, expense)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(res.R-1) > 1e-9 {
		t.Errorf("r = %v, want 1.0", res.R)
	}
	if math.Abs(res.Slope-2) > 1e-9 {
		t.Errorf("slope = %v, want 2.0", res.Slope)
	}
	if math.Abs(res.Intercept) > 1e-6 {
		t.Errorf("intercept = %v, want 0", res.Intercept)
	}
}

func TestCorrelate_DegenerateSeries(t *testing.T) {
	// Constant series have zero variance; r and slope degrade to 0
	// instead of propagating a division by zero.
	res, err := Correlate([]float64{100, 100, 100}, []float64{50, 60, 70})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.R != 0 {
		t.Errorf("r = %v, want 0 for zero-variance income", res.R)
	}
	if res.Slope != 0 {
		t.Errorf("slope = %v, want 0 for zero denominator", res.Slope)
	}
}

func TestCorrelate_BoundsOnRandomSeries(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for run := 0; run < 200; run++ {
		n := 2 + rng.Intn(30)
		income := make([]float64, n)
		expense := make([]float64, n)
		for i := range income {
			income[i] = rng.Float64() * 10000
			expense[i] = rng.Float64() * 10000
		}

		res, err := Correlate(income, expense)
		if err != nil {
			t.Fatalf("run %d: unexpected error: %v", run, err)
		}
		if res.R < -1-1e-9 || res.R > 1+1e-9 {
			t.Fatalf("run %d: r = %v outside [-1, 1]", run, res.R)
		}
	}
}

func TestCorrelate_Insights(t *testing.T) {
	tests := []struct {
		name        string
		income      []float64
		expense     []float64
		wantPart    string
		rejectParts []string
	}{
		{
			name:     "strong correlation noted",
			income:   []float64{100, 200, 300},
			expense:  []float64{90, 180, 270},
			wantPart: "strong correlation",
		},
		{
			name:     "healthy savings rate",
			income:   []float64{1000, 2000, 3000},
			expense:  []float64{500, 1000, 1500},
			wantPart: "savings rate",
		},
		{
			name:     "overspending noted",
			income:   []float64{1000, 1000, 1001},
			expense:  []float64{1500, 1400, 1450},
			wantPart: "exceeded income",
		},
		{
			name:     "expenses outpace income",
			income:   []float64{100, 200, 300},
			expense:  []float64{100, 300, 500}, // slope 2
			wantPart: "grow faster",
		},
		{
			name:        "stable spending on weak correlation",
			income:      []float64{100, 300, 100, 300, 100, 300},
			expense:     []float64{200, 200, 200, 200, 200, 200},
			wantPart:    "stable",
			rejectParts: []string{"strong correlation"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Correlate(tt.income, tt.expense)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			joined := strings.ToLower(strings.Join(res.Insights, " | "))
			if !strings.Contains(joined, tt.wantPart) {
				t.Errorf("insights %q missing %q", joined, tt.wantPart)
			}
			for _, reject := range tt.rejectParts {
				if strings.Contains(joined, reject) {
					t.Errorf("insights %q unexpectedly contain %q", joined, reject)
				}
			}
		})
	}
}

func TestStrengthLabel(t *testing.T) {
	tests := []struct {
		r    float64
		want string
	}{
		{0.7, "strong"},
		{-0.9, "strong"},
		{0.69, "moderate"},
		{0.4, "moderate"},
		{-0.4, "moderate"},
		{0.39, "weak"},
		{0, "weak"},
	}

	for _, tt := range tests {
		if got := StrengthLabel(tt.r); got != tt.want {
			t.Errorf("StrengthLabel(%v) = %q, want %q", tt.r, got, tt.want)
		}
	}
}

func TestCorrelateMonthly(t *testing.T) {
	points := []core.MonthlyPoint{
		{Month: "2025-01", Income: decimal.NewFromInt(1000), Expense: decimal.NewFromInt(400)},
		{Month: "2025-02", Income: decimal.NewFromInt(2000), Expense: decimal.NewFromInt(800)},
		{Month: "2025-03", Income: decimal.NewFromInt(3000), Expense: decimal.NewFromInt(1200)},
	}

	res, err := CorrelateMonthly(points)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(res.R-1) > 1e-9 {
		t.Errorf("r = %v, want 1.0 for a proportional series", res.R)
	}
	if math.Abs(res.Slope-0.4) > 1e-9 {
		t.Errorf("slope = %v, want 0.4", res.Slope)
	}

	if _, err := CorrelateMonthly(points[:1]); !errors.Is(err, ErrInsufficientData) {
		t.Errorf("single month: err = %v, want ErrInsufficientData", err)
	}
}
