package analysis

import (
	"reflect"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"finsight/internal/core"
)

func TestNormalizeVendor(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "lower-cases and trims",
			input: "  Netflix  ",
			want:  "netflix",
		},
		{
			name:  "strips diacritics",
			input: "Caffè Nerò",
			want:  "caffe nero",
		},
		{
			name:  "empty maps to unknown",
			input: "",
			want:  core.UnknownVendorKey,
		},
		{
			name:  "blank maps to unknown",
			input: "   ",
			want:  core.UnknownVendorKey,
		},
		{
			name:  "already normalized is unchanged",
			input: "spotify",
			want:  "spotify",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeVendor(tt.input)
			if got != tt.want {
				t.Errorf("NormalizeVendor(%q) = %q, want %q", tt.input, got, tt.want)
			}
			if again := NormalizeVendor(got); again != got {
				t.Errorf("normalization not idempotent: %q -> %q", got, again)
			}
		})
	}
}

func TestGroupByVendor(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2025, 1, d, 0, 0, 0, 0, time.UTC) }
	txs := []core.Transaction{
		{Description: "Netflix", Amount: decimal.NewFromFloat(15.99), Date: day(20)},
		{Description: "netflix", Amount: decimal.NewFromFloat(15.99), Date: day(5)},
		{Description: "", Amount: decimal.NewFromFloat(3), Date: day(1)},
	}

	groups := GroupByVendor(txs)

	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}

	nf, ok := groups["netflix"]
	if !ok {
		t.Fatal("case-insensitive merge failed: no netflix group")
	}
	if len(nf.Occurrences) != 2 {
		t.Fatalf("expected 2 netflix occurrences, got %d", len(nf.Occurrences))
	}
	if !nf.Occurrences[0].Date.Before(nf.Occurrences[1].Date) {
		t.Error("occurrences not sorted ascending by date")
	}
	if nf.Display != "Netflix" {
		t.Errorf("display = %q, want first-seen raw description", nf.Display)
	}

	if _, ok := groups[core.UnknownVendorKey]; !ok {
		t.Error("empty description not bucketed under the unknown key")
	}
}

func TestGroupByVendor_Deterministic(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2025, 3, d, 0, 0, 0, 0, time.UTC) }
	txs := []core.Transaction{
		{Description: "Gym", Amount: decimal.NewFromInt(40), Date: day(2)},
		{Description: "gym", Amount: decimal.NewFromInt(40), Date: day(1)},
		{Description: "Rent", Amount: decimal.NewFromInt(900), Date: day(1)},
	}

	first := GroupByVendor(txs)
	second := GroupByVendor(txs)
	if !reflect.DeepEqual(first, second) {
		t.Error("grouping the same input twice produced different groups")
	}

	if !reflect.DeepEqual(OrderedGroups(first), OrderedGroups(second)) {
		t.Error("ordered group iteration is not deterministic")
	}
}

func TestGroupByVendor_EmptyInput(t *testing.T) {
	groups := GroupByVendor(nil)
	if len(groups) != 0 {
		t.Errorf("expected empty mapping for empty input, got %d groups", len(groups))
	}
}
