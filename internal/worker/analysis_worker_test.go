package worker

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"finsight/internal/analysis"
	"finsight/internal/core"
	"finsight/internal/source/memory"
)

type capturePublisher struct {
	alerts []core.Alert
	fail   bool
}

func (p *capturePublisher) PublishAlert(_ context.Context, alert core.Alert) error {
	if p.fail {
		return context.DeadlineExceeded
	}
	p.alerts = append(p.alerts, alert)
	return nil
}

func seededStore() *memory.Store {
	store := memory.New()
	// Netflix doubles its price on the third charge.
	store.AddTransactions(
		tx("2025-01-05", "15.99", "Netflix"),
		tx("2025-02-05", "15.99", "Netflix"),
		tx("2025-03-05", "45.00", "Netflix"),
	)
	return store
}

func tx(date, amount, desc string) core.Transaction {
	d, _ := time.Parse("2006-01-02", date)
	return core.Transaction{
		Date:        d,
		Amount:      decimal.RequireFromString(amount),
		Description: desc,
		Kind:        core.Expense,
	}
}

func TestAnalysisWorker_RunOnce(t *testing.T) {
	pub := &capturePublisher{}
	w := NewAnalysisWorker(seededStore(), pub, analysis.DefaultConfig(), time.Minute)

	report, err := w.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}

	if len(report.Groups) != 1 {
		t.Fatalf("groups = %d, want 1", len(report.Groups))
	}
	if len(report.Patterns) != 1 {
		t.Fatalf("patterns = %d, want 1", len(report.Patterns))
	}
	if report.Patterns[0].Cadence != core.Monthly {
		t.Errorf("cadence = %s, want monthly", report.Patterns[0].Cadence)
	}
	if len(report.Alerts) == 0 {
		t.Fatal("expected at least one alert for the price jump")
	}
	if len(pub.alerts) != len(report.Alerts) {
		t.Errorf("published %d alerts, want %d", len(pub.alerts), len(report.Alerts))
	}
}

func TestAnalysisWorker_PublishesEachAlertOnce(t *testing.T) {
	pub := &capturePublisher{}
	w := NewAnalysisWorker(seededStore(), pub, analysis.DefaultConfig(), time.Minute)
	ctx := context.Background()

	if _, err := w.RunOnce(ctx); err != nil {
		t.Fatalf("first RunOnce() error = %v", err)
	}
	first := len(pub.alerts)
	if first == 0 {
		t.Fatal("expected alerts on first pass")
	}

	if _, err := w.RunOnce(ctx); err != nil {
		t.Fatalf("second RunOnce() error = %v", err)
	}
	if len(pub.alerts) != first {
		t.Errorf("published = %d after second pass, want %d (no re-publish)", len(pub.alerts), first)
	}
}

func TestAnalysisWorker_RetriesFailedPublishes(t *testing.T) {
	pub := &capturePublisher{fail: true}
	w := NewAnalysisWorker(seededStore(), pub, analysis.DefaultConfig(), time.Minute)
	ctx := context.Background()

	if _, err := w.RunOnce(ctx); err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}
	if len(pub.alerts) != 0 {
		t.Fatalf("published = %d with failing broker, want 0", len(pub.alerts))
	}

	pub.fail = false
	if _, err := w.RunOnce(ctx); err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}
	if len(pub.alerts) == 0 {
		t.Error("expected alerts to be re-published after broker recovery")
	}
}

func TestAnalysisWorker_NilPublisher(t *testing.T) {
	w := NewAnalysisWorker(seededStore(), nil, analysis.DefaultConfig(), time.Minute)

	report, err := w.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}
	if len(report.Alerts) == 0 {
		t.Error("expected alerts in the report even without a publisher")
	}
}

func TestAnalysisWorker_EmptySnapshot(t *testing.T) {
	w := NewAnalysisWorker(memory.New(), nil, analysis.DefaultConfig(), time.Minute)

	report, err := w.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}
	if len(report.Groups) != 0 || len(report.Alerts) != 0 {
		t.Errorf("expected empty report, got %d groups, %d alerts", len(report.Groups), len(report.Alerts))
	}
	if report.Correlation != nil {
		t.Error("expected nil correlation for empty snapshot")
	}
}
