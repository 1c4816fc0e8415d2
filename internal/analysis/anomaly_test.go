package analysis

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"finsight/internal/core"
)

func group(key string, occs ...core.Occurrence) core.VendorGroup {
	return core.VendorGroup{Key: key, Display: key, Occurrences: occs}
}

func alertsOfType(alerts []core.Alert, typ core.AlertType) []core.Alert {
	var out []core.Alert
	for _, a := range alerts {
		if a.Type == typ {
			out = append(out, a)
		}
	}
	return out
}

func TestDetectAnomalies_VarianceThresholds(t *testing.T) {
	cfg := DefaultConfig()
	tests := []struct {
		name         string
		latest       string
		wantVariance bool
		wantSeverity core.Severity
		wantSpike    bool
	}{
		{
			// Thresholds are strict greater-than: exactly 30% above
			// the 100 average does not fire.
			name:         "exactly at warning threshold",
			latest:       "130",
			wantVariance: false,
		},
		{
			name:         "just above warning threshold",
			latest:       "130.01",
			wantVariance: true,
			wantSeverity: core.SeverityWarning,
		},
		{
			name:         "exactly at critical threshold",
			latest:       "150",
			wantVariance: true,
			wantSeverity: core.SeverityWarning,
		},
		{
			name:         "above critical threshold",
			latest:       "151",
			wantVariance: true,
			wantSeverity: core.SeverityCritical,
		},
		{
			name:         "exactly at spike threshold",
			latest:       "200",
			wantVariance: true,
			wantSeverity: core.SeverityCritical,
			wantSpike:    false,
		},
		{
			// 131% above average fires both alerts for the same charge.
			name:         "131 percent above",
			latest:       "231",
			wantVariance: true,
			wantSeverity: core.SeverityCritical,
			wantSpike:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := group("vendor",
				occ(2025, 1, 1, "100"),
				occ(2025, 2, 1, "100"),
				occ(2025, 3, 1, tt.latest),
			)
			alerts := DetectAnomalies([]core.VendorGroup{g}, cfg)

			variance := alertsOfType(alerts, core.AlertHighVariance)
			if tt.wantVariance {
				if len(variance) != 1 {
					t.Fatalf("high_variance alerts = %d, want 1", len(variance))
				}
				if variance[0].Severity != tt.wantSeverity {
					t.Errorf("severity = %q, want %q", variance[0].Severity, tt.wantSeverity)
				}
				if variance[0].HistoricalAvg == nil || !variance[0].HistoricalAvg.Equal(decimal.NewFromInt(100)) {
					t.Errorf("historical avg = %v, want 100", variance[0].HistoricalAvg)
				}
			} else if len(variance) != 0 {
				t.Errorf("unexpected high_variance alerts: %+v", variance)
			}

			spikes := alertsOfType(alerts, core.AlertSpike)
			if tt.wantSpike != (len(spikes) == 1) {
				t.Errorf("spike alerts = %d, wantSpike %v", len(spikes), tt.wantSpike)
			}
			for _, s := range spikes {
				if s.Severity != core.SeverityCritical {
					t.Errorf("spike severity = %q, want critical", s.Severity)
				}
			}
		})
	}
}

func TestDetectAnomalies_SkipsZeroAverage(t *testing.T) {
	cfg := DefaultConfig()
	g := group("freebie",
		occ(2025, 1, 1, "0"),
		occ(2025, 2, 1, "0"),
		occ(2025, 3, 1, "50"),
	)
	alerts := DetectAnomalies([]core.VendorGroup{g}, cfg)
	if len(alertsOfType(alerts, core.AlertHighVariance)) != 0 || len(alertsOfType(alerts, core.AlertSpike)) != 0 {
		t.Errorf("variance alerts emitted despite zero historical average: %+v", alerts)
	}
}

func TestDetectAnomalies_TooFewOccurrences(t *testing.T) {
	cfg := DefaultConfig()
	g := group("sparse",
		occ(2025, 1, 1, "10"),
		occ(2025, 2, 1, "100"),
	)
	alerts := DetectAnomalies([]core.VendorGroup{g}, cfg)
	if len(alerts) != 0 {
		t.Errorf("variance check needs three occurrences, got alerts %+v", alerts)
	}
}

func TestDetectAnomalies_DuplicateSymmetry(t *testing.T) {
	cfg := DefaultConfig()
	date := time.Date(2025, 4, 10, 0, 0, 0, 0, time.UTC)
	amount := decimal.RequireFromString("49.90")

	a := core.Transaction{Description: "Hosting", Amount: amount, Date: date, Kind: core.Expense}
	b := core.Transaction{Description: "hosting", Amount: amount, Date: date, Kind: core.Expense}

	for name, txs := range map[string][]core.Transaction{
		"original order": {a, b},
		"reversed order": {b, a},
	} {
		t.Run(name, func(t *testing.T) {
			groups := OrderedGroups(GroupByVendor(txs))
			alerts := DetectAnomalies(groups, cfg)

			dups := alertsOfType(alerts, core.AlertDuplicate)
			if len(dups) != 1 {
				t.Fatalf("duplicate alerts = %d, want 1", len(dups))
			}
			if dups[0].Severity != core.SeverityWarning {
				t.Errorf("duplicate severity = %q, want warning", dups[0].Severity)
			}
			if dups[0].Date == nil || !dups[0].Date.Equal(date) {
				t.Errorf("duplicate date = %v, want %v", dups[0].Date, date)
			}
		})
	}
}

func TestDetectAnomalies_DuplicatePairs(t *testing.T) {
	cfg := DefaultConfig()
	tests := []struct {
		name string
		occs []core.Occurrence
		want int
	}{
		{
			name: "next-day equal amounts",
			occs: []core.Occurrence{occ(2025, 1, 1, "12"), occ(2025, 1, 2, "12")},
			want: 1,
		},
		{
			name: "two days apart",
			occs: []core.Occurrence{occ(2025, 1, 1, "12"), occ(2025, 1, 3, "12")},
			want: 0,
		},
		{
			name: "same day different amounts",
			occs: []core.Occurrence{occ(2025, 1, 1, "12"), occ(2025, 1, 1, "12.01")},
			want: 0,
		},
		{
			// Three equal charges on consecutive days: each adjacent
			// pair produces its own alert.
			name: "overlapping pairs",
			occs: []core.Occurrence{occ(2025, 1, 1, "12"), occ(2025, 1, 2, "12"), occ(2025, 1, 3, "12")},
			want: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			alerts := DetectAnomalies([]core.VendorGroup{group("v", tt.occs...)}, cfg)
			if got := len(alertsOfType(alerts, core.AlertDuplicate)); got != tt.want {
				t.Errorf("duplicate alerts = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestDetectAnomalies_SortedBySeverity(t *testing.T) {
	cfg := DefaultConfig()
	groups := []core.VendorGroup{
		group("dup", occ(2025, 1, 1, "10"), occ(2025, 1, 1, "10")),
		group("spiky", occ(2025, 1, 1, "100"), occ(2025, 2, 1, "100"), occ(2025, 3, 1, "400")),
	}

	alerts := DetectAnomalies(groups, cfg)
	for i := 1; i < len(alerts); i++ {
		if alerts[i-1].Severity.Rank() > alerts[i].Severity.Rank() {
			t.Fatalf("alerts out of severity order at %d: %q before %q",
				i, alerts[i-1].Severity, alerts[i].Severity)
		}
	}
	if len(alerts) == 0 || alerts[0].Severity != core.SeverityCritical {
		t.Error("critical alerts must sort first")
	}
}
