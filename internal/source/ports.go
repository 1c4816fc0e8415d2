// Package source declares the outbound ports the analysis surfaces read
// from. Adapters live in subpackages (memory, sheets) and in the sqlite
// storage package.
package source

import (
	"context"

	"finsight/internal/core"
)

type (
	// TransactionSource supplies the transaction snapshot an analysis run
	// operates on. Implementations return a fresh slice per call; the
	// analysis never mutates it.
	TransactionSource interface {
		ListTransactions(ctx context.Context) ([]core.Transaction, error)
	}

	// ContractSource supplies a client's analyzed contract terms.
	ContractSource interface {
		ListContracts(ctx context.Context, clientID string) ([]core.ContractTerms, error)
	}

	// WorkflowCountSource supplies the raw named counts a workflow
	// resolver reads.
	WorkflowCountSource interface {
		WorkflowCounts(ctx context.Context, id core.WorkflowID) (core.WorkflowCounts, error)
	}
)
