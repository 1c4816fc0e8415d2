// Package worker runs the periodic analysis pass and pushes fresh alerts
// to the message queue.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"finsight/internal/analysis"
	"finsight/internal/core"
	"finsight/internal/source"
)

// AlertPublisher pushes one alert to the queue.
type AlertPublisher interface {
	PublishAlert(ctx context.Context, alert core.Alert) error
}

// AnalysisWorker periodically rebuilds the analysis report from the
// transaction source and publishes alerts it has not published before.
// Alert ids are deterministic per finding, so the seen set survives
// recomputation of an unchanged snapshot.
type AnalysisWorker struct {
	source    source.TransactionSource
	publisher AlertPublisher
	cfg       analysis.Config
	interval  time.Duration
	seen      map[string]bool
}

func NewAnalysisWorker(src source.TransactionSource, publisher AlertPublisher, cfg analysis.Config, interval time.Duration) *AnalysisWorker {
	return &AnalysisWorker{
		source:    src,
		publisher: publisher,
		cfg:       cfg,
		interval:  interval,
		seen:      make(map[string]bool),
	}
}

// Run executes an immediate pass, then one per interval until ctx ends.
func (w *AnalysisWorker) Run(ctx context.Context) error {
	if _, err := w.RunOnce(ctx); err != nil {
		slog.ErrorContext(ctx, "Analysis pass failed", "error", err)
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Analysis worker stopping", "reason", ctx.Err())
			return ctx.Err()
		case <-ticker.C:
			if _, err := w.RunOnce(ctx); err != nil {
				slog.ErrorContext(ctx, "Analysis pass failed", "error", err)
			}
		}
	}
}

// RunOnce loads the snapshot, runs the analysis stages concurrently and
// publishes unseen alerts.
func (w *AnalysisWorker) RunOnce(ctx context.Context) (analysis.Report, error) {
	started := time.Now()

	txs, err := w.source.ListTransactions(ctx)
	if err != nil {
		return analysis.Report{}, fmt.Errorf("list transactions: %w", err)
	}

	groups := analysis.OrderedGroups(analysis.GroupByVendor(txs))
	report := analysis.Report{Groups: groups}

	var (
		patterns         []core.RecurrencePattern
		recurrenceAlerts []core.Alert
		anomalies        []core.Alert
	)

	var g errgroup.Group
	g.Go(func() error {
		for _, grp := range groups {
			pattern, alert := analysis.ClassifyRecurrence(grp, w.cfg)
			if pattern != nil {
				patterns = append(patterns, *pattern)
			}
			if alert != nil {
				recurrenceAlerts = append(recurrenceAlerts, *alert)
			}
		}
		return nil
	})
	g.Go(func() error {
		anomalies = analysis.DetectAnomalies(groups, w.cfg)
		return nil
	})
	g.Go(func() error {
		report.Monthly = analysis.MonthlySeries(txs)
		corr, err := analysis.CorrelateMonthly(report.Monthly)
		if err != nil {
			if errors.Is(err, analysis.ErrInsufficientData) {
				return nil
			}
			return err
		}
		report.Correlation = &corr
		return nil
	})
	if err := g.Wait(); err != nil {
		return analysis.Report{}, err
	}

	report.Patterns = patterns
	alerts := append(recurrenceAlerts, anomalies...)
	sort.SliceStable(alerts, func(i, j int) bool {
		return alerts[i].Severity.Rank() < alerts[j].Severity.Rank()
	})
	report.Alerts = alerts

	published := w.publishNew(ctx, alerts)

	slog.InfoContext(ctx, "Analysis pass completed",
		"transactions", len(txs),
		"groups", len(groups),
		"patterns", len(patterns),
		"alerts", len(alerts),
		"published", published,
		"duration", time.Since(started).Round(time.Millisecond))

	return report, nil
}

// publishNew publishes alerts not seen before. A failed publish keeps the
// alert unseen so the next pass retries it.
func (w *AnalysisWorker) publishNew(ctx context.Context, alerts []core.Alert) int {
	published := 0
	for _, alert := range alerts {
		if w.seen[alert.ID] {
			continue
		}
		if w.publisher == nil {
			slog.InfoContext(ctx, "Alert raised (no publisher configured)",
				"id", alert.ID,
				"type", alert.Type,
				"severity", alert.Severity)
			w.seen[alert.ID] = true
			continue
		}
		if err := w.publisher.PublishAlert(ctx, alert); err != nil {
			slog.ErrorContext(ctx, "Failed to publish alert", "id", alert.ID, "error", err)
			continue
		}
		w.seen[alert.ID] = true
		published++
	}
	return published
}
