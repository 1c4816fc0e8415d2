// This file resolves workflow progress for the fixed business pipelines.
// Each pipeline declares its ordered steps and the precondition that leaves a
// step unmet; the first unmet step in order is the current one. Resolution is
// a pure function of the counts, recomputed idempotently on every call.

package analysis

import (
	"fmt"

	"finsight/internal/core"
)

// Count names read by the pipeline definitions. Producers feed these into
// core.WorkflowCounts; absent names default to zero.
const (
	CountCaptured               = "captured"
	CountAwaitingExtraction     = "awaiting_extraction"
	CountAwaitingReview         = "awaiting_review"
	CountAwaitingClassification = "awaiting_classification"

	CountBillable     = "billable"
	CountUnbilled     = "unbilled"
	CountDraftInvoice = "draft_invoices"
	CountUnpaid       = "unpaid_invoices"

	CountTaxRelevant     = "tax_relevant"
	CountUncategorized   = "uncategorized"
	CountMissingReceipts = "missing_receipts"
	CountUnreviewed      = "unreviewed_deductions"

	CountImported  = "imported"
	CountUnmatched = "unmatched"
	CountDisputed  = "disputed"
	CountUnposted  = "unposted"

	CountAccountsLinked     = "accounts_linked"
	CountUnvaluedAssets     = "unvalued_assets"
	CountStaleValuations    = "stale_valuations"
	CountUnallocatedSurplus = "unallocated_surplus"
)

// pipelineStep couples a display name with the precondition that keeps the
// step current. A nil unmet marks the terminal "done" step. countKey, when
// set, surfaces the named count on the step for progress badges.
type pipelineStep struct {
	name     string
	countKey string
	unmet    func(c core.WorkflowCounts) bool
}

func positive(key string) func(core.WorkflowCounts) bool {
	return func(c core.WorkflowCounts) bool { return c.Get(key) > 0 }
}

func zero(key string) func(core.WorkflowCounts) bool {
	return func(c core.WorkflowCounts) bool { return c.Get(key) == 0 }
}

// workflowPipelines registers the step list of every known pipeline,
// analogous to a strategy registry: resolution looks the pipeline up and
// walks its steps in order.
var workflowPipelines = map[core.WorkflowID][]pipelineStep{
	core.WorkflowCapture: {
		{name: "capture receipts", countKey: CountCaptured, unmet: zero(CountCaptured)},
		{name: "extract data", countKey: CountAwaitingExtraction, unmet: positive(CountAwaitingExtraction)},
		{name: "review extractions", countKey: CountAwaitingReview, unmet: positive(CountAwaitingReview)},
		{name: "classify expenses", countKey: CountAwaitingClassification, unmet: positive(CountAwaitingClassification)},
		{name: "all classified"},
	},
	core.WorkflowBilling: {
		{name: "log billable work", countKey: CountBillable, unmet: zero(CountBillable)},
		{name: "invoice billed items", countKey: CountUnbilled, unmet: positive(CountUnbilled)},
		{name: "send drafts", countKey: CountDraftInvoice, unmet: positive(CountDraftInvoice)},
		{name: "collect payment", countKey: CountUnpaid, unmet: positive(CountUnpaid)},
		{name: "all paid"},
	},
	core.WorkflowTaxPrep: {
		{name: "collect records", countKey: CountTaxRelevant, unmet: zero(CountTaxRelevant)},
		{name: "categorize", countKey: CountUncategorized, unmet: positive(CountUncategorized)},
		{name: "attach receipts", countKey: CountMissingReceipts, unmet: positive(CountMissingReceipts)},
		{name: "review deductions", countKey: CountUnreviewed, unmet: positive(CountUnreviewed)},
		{name: "ready to file"},
	},
	core.WorkflowReconciliation: {
		{name: "import statements", countKey: CountImported, unmet: zero(CountImported)},
		{name: "match transactions", countKey: CountUnmatched, unmet: positive(CountUnmatched)},
		{name: "resolve disputes", countKey: CountDisputed, unmet: positive(CountDisputed)},
		{name: "post adjustments", countKey: CountUnposted, unmet: positive(CountUnposted)},
		{name: "reconciled"},
	},
	core.WorkflowWealth: {
		{name: "link accounts", countKey: CountAccountsLinked, unmet: zero(CountAccountsLinked)},
		{name: "value assets", countKey: CountUnvaluedAssets, unmet: positive(CountUnvaluedAssets)},
		{name: "refresh valuations", countKey: CountStaleValuations, unmet: positive(CountStaleValuations)},
		{name: "allocate surplus", countKey: CountUnallocatedSurplus, unmet: positive(CountUnallocatedSurplus)},
		{name: "on track"},
	},
}

// ResolveWorkflow maps the raw counts of a named pipeline to its discrete
// progress state. Unknown pipeline ids degrade to a zero-progress five-step
// state rather than failing.
func ResolveWorkflow(id core.WorkflowID, counts core.WorkflowCounts) core.WorkflowState {
	steps, ok := workflowPipelines[id]
	if !ok {
		return unknownWorkflowState(id)
	}

	current := len(steps) - 1
	for i, step := range steps {
		if step.unmet != nil && step.unmet(counts) {
			current = i
			break
		}
	}

	state := core.WorkflowState{
		WorkflowID:  id,
		CurrentStep: current,
		TotalSteps:  len(steps),
		Steps:       make([]core.WorkflowStep, len(steps)),
	}
	for i, step := range steps {
		s := core.WorkflowStep{Name: step.name, Status: stepStatus(i, current)}
		if step.countKey != "" {
			n := counts.Get(step.countKey)
			s.Count = &n
		}
		state.Steps[i] = s
	}
	return state
}

func stepStatus(i, current int) core.StepStatus {
	switch {
	case i < current:
		return core.StepCompleted
	case i == current:
		return core.StepCurrent
	default:
		return core.StepPending
	}
}

func unknownWorkflowState(id core.WorkflowID) core.WorkflowState {
	const total = 5
	state := core.WorkflowState{
		WorkflowID:  id,
		CurrentStep: 0,
		TotalSteps:  total,
		Steps:       make([]core.WorkflowStep, total),
	}
	for i := range state.Steps {
		state.Steps[i] = core.WorkflowStep{
			Name:   fmt.Sprintf("step %d", i+1),
			Status: stepStatus(i, 0),
		}
	}
	return state
}
