// Package memory is the in-process source adapter: a seedable store used as
// the default backend and in tests.
package memory

import (
	"context"
	"sync"

	"finsight/internal/core"
)

type Store struct {
	mu        sync.Mutex
	txs       []core.Transaction
	contracts map[string][]core.ContractTerms
	counts    map[core.WorkflowID]core.WorkflowCounts
}

func New() *Store {
	return &Store{
		contracts: make(map[string][]core.ContractTerms),
		counts:    make(map[core.WorkflowID]core.WorkflowCounts),
	}
}

// AddTransactions appends to the snapshot.
func (s *Store) AddTransactions(txs ...core.Transaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.txs = append(s.txs, txs...)
}

// SetContracts replaces a client's analyzed contracts.
func (s *Store) SetContracts(clientID string, contracts []core.ContractTerms) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contracts[clientID] = append([]core.ContractTerms(nil), contracts...)
}

// SetWorkflowCounts replaces the counts of one pipeline.
func (s *Store) SetWorkflowCounts(id core.WorkflowID, counts core.WorkflowCounts) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := make(core.WorkflowCounts, len(counts))
	for k, v := range counts {
		copied[k] = v
	}
	s.counts[id] = copied
}

// ListTransactions implements source.TransactionSource.
func (s *Store) ListTransactions(_ context.Context) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Transaction(nil), s.txs...), nil
}

// ListContracts implements source.ContractSource.
func (s *Store) ListContracts(_ context.Context, clientID string) ([]core.ContractTerms, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.ContractTerms(nil), s.contracts[clientID]...), nil
}

// WorkflowCounts implements source.WorkflowCountSource.
func (s *Store) WorkflowCounts(_ context.Context, id core.WorkflowID) (core.WorkflowCounts, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	counts, ok := s.counts[id]
	if !ok {
		return core.WorkflowCounts{}, nil
	}
	copied := make(core.WorkflowCounts, len(counts))
	for k, v := range counts {
		copied[k] = v
	}
	return copied, nil
}
