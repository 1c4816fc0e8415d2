// Package core defines the domain types shared by the analysis components,
// the stores and the HTTP layer.
package core

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Income  TransactionKind = "income"
	Expense TransactionKind = "expense"
)

const (
	Weekly    Cadence = "weekly"
	Monthly   Cadence = "monthly"
	Quarterly Cadence = "quarterly"
	Yearly    Cadence = "yearly"
	Irregular Cadence = "irregular"
)

const (
	AlertHighVariance AlertType = "high_variance"
	AlertSpike        AlertType = "spike"
	AlertNewRecurring AlertType = "new_recurring"
	AlertDuplicate    AlertType = "duplicate"
)

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

const (
	StepCompleted StepStatus = "completed"
	StepCurrent   StepStatus = "current"
	StepPending   StepStatus = "pending"
)

type (
	TransactionKind string

	// Cadence is the inferred repayment frequency class of a recurring charge.
	Cadence string

	AlertType string

	Severity string

	// Confidence grades a reimbursement suggestion.
	Confidence string

	StepStatus string

	// Transaction is one dated money movement as fetched from a store.
	// Amount is sign-normalized to a positive magnitude; Kind carries the
	// direction.
	Transaction struct {
		ID          string          `json:"id"`
		Date        time.Time       `json:"date"`
		Amount      decimal.Decimal `json:"amount"`
		Description string          `json:"description"`
		Category    string          `json:"category,omitempty"`
		ClientID    string          `json:"client_id,omitempty"`
		Kind        TransactionKind `json:"kind"`
	}

	// Occurrence is one (date, amount) pair inside a vendor group.
	Occurrence struct {
		Date   time.Time       `json:"date"`
		Amount decimal.Decimal `json:"amount"`
	}

	// VendorGroup buckets the transactions of one normalized vendor key.
	// Occurrences are sorted ascending by date.
	VendorGroup struct {
		Key         string       `json:"key"`
		Display     string       `json:"display"`
		Occurrences []Occurrence `json:"occurrences"`
	}

	// RecurrencePattern describes an inferred recurring payment. It is
	// recomputed on every analysis run and never stored.
	RecurrencePattern struct {
		VendorKey     string          `json:"vendor_key"`
		Cadence       Cadence         `json:"cadence"`
		AverageAmount decimal.Decimal `json:"average_amount"`
		LatestAmount  decimal.Decimal `json:"latest_amount"`
		VarianceRatio float64         `json:"variance_ratio"`
		Confidence    int             `json:"confidence"`
		LastDate      time.Time       `json:"last_date"`
	}

	// Alert flags an abnormal charge, spike, duplicate or newly emerging
	// recurring payment on a vendor.
	Alert struct {
		ID            string           `json:"id"`
		Type          AlertType        `json:"type"`
		Severity      Severity         `json:"severity"`
		VendorKey     string           `json:"vendor_key"`
		Amount        decimal.Decimal  `json:"amount"`
		HistoricalAvg *decimal.Decimal `json:"historical_avg,omitempty"`
		PercentChange *float64         `json:"percent_change,omitempty"`
		Date          *time.Time       `json:"date,omitempty"`
	}

	// MonthlyPoint aggregates income and expense sums for one calendar
	// month ("YYYY-MM").
	MonthlyPoint struct {
		Month   string          `json:"month"`
		Income  decimal.Decimal `json:"income"`
		Expense decimal.Decimal `json:"expense"`
	}

	// CorrelationResult holds Pearson r, the least-squares trend line and
	// the qualitative insights derived from both.
	CorrelationResult struct {
		R         float64  `json:"r"`
		Slope     float64  `json:"slope"`
		Intercept float64  `json:"intercept"`
		Insights  []string `json:"insights"`
	}

	// ContractTerms is the analyzed term set of one client contract,
	// owned by the contract store and read-only here.
	ContractTerms struct {
		ID              string    `json:"id"`
		ClientID        string    `json:"client_id"`
		Reimbursable    []string  `json:"reimbursable"`
		NonReimbursable []string  `json:"non_reimbursable"`
		UserNotes       string    `json:"user_notes"`
		AnalyzedAt      time.Time `json:"analyzed_at"`
	}

	// ReimbursementSuggestion is the matcher's verdict for one expense
	// category against a client's contracts.
	ReimbursementSuggestion struct {
		IsReimbursable bool       `json:"is_reimbursable"`
		Confidence     Confidence `json:"confidence"`
		MatchedTerm    string     `json:"matched_term,omitempty"`
		SourceRef      string     `json:"source_ref,omitempty"`
	}

	// WorkflowStep is one step of a resolved workflow.
	WorkflowStep struct {
		Name   string     `json:"name"`
		Status StepStatus `json:"status"`
		Count  *int       `json:"count,omitempty"`
	}

	// WorkflowState is the resolved progress of one business process.
	// CurrentStep is derived from the counts on every call, never from
	// stored history.
	WorkflowState struct {
		WorkflowID  WorkflowID     `json:"workflow_id"`
		CurrentStep int            `json:"current_step"`
		TotalSteps  int            `json:"total_steps"`
		Steps       []WorkflowStep `json:"steps"`
	}

	// WorkflowID names one of the fixed business processes.
	WorkflowID string

	// WorkflowCounts carries the named raw counts a workflow resolver
	// reads. Missing names default to zero.
	WorkflowCounts map[string]int
)

const (
	WorkflowCapture        WorkflowID = "capture"
	WorkflowBilling        WorkflowID = "billing"
	WorkflowTaxPrep        WorkflowID = "tax_prep"
	WorkflowReconciliation WorkflowID = "reconciliation"
	WorkflowWealth         WorkflowID = "wealth"
)

// UnknownVendorKey is the reserved grouping key for transactions with an
// empty or missing description.
const UnknownVendorKey = "unknown"

// OtherCategory is the bucket for transactions without a category.
const OtherCategory = "other"

var (
	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidDate   = errors.New("invalid date")
)

// Rank orders severities for display: critical before warning before info.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 0
	case SeverityWarning:
		return 1
	default:
		return 2
	}
}

// Valid reports whether the cadence is one of the closed set.
func (c Cadence) Valid() bool {
	switch c {
	case Weekly, Monthly, Quarterly, Yearly, Irregular:
		return true
	}
	return false
}

// Valid reports whether the workflow id names a known pipeline.
func (w WorkflowID) Valid() bool {
	switch w {
	case WorkflowCapture, WorkflowBilling, WorkflowTaxPrep, WorkflowReconciliation, WorkflowWealth:
		return true
	}
	return false
}

// Get returns the named count, zero when absent.
func (c WorkflowCounts) Get(name string) int {
	return c[name]
}

// Validate checks the minimal shape invariants of a transaction.
func (t Transaction) Validate() error {
	if t.Amount.IsNegative() {
		return ErrInvalidAmount
	}
	if t.Date.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// CategoryOrOther returns the transaction category, defaulting the empty
// category to the "other" bucket.
func (t Transaction) CategoryOrOther() string {
	if t.Category == "" {
		return OtherCategory
	}
	return t.Category
}
