// Package backend selects and wires the configured data sources.
package backend

import (
	"context"
	"fmt"
	"log/slog"

	"finsight/internal/config"
	"finsight/internal/source"
	"finsight/internal/source/memory"
	"finsight/internal/source/sheets"
	"finsight/internal/storage"
)

// Type names a configured data backend.
type Type string

const (
	MemoryBackend Type = "memory"
	SQLiteBackend Type = "sqlite"
	SheetsBackend Type = "sheets"
)

func (t Type) IsValid() bool {
	switch t {
	case MemoryBackend, SQLiteBackend, SheetsBackend:
		return true
	}
	return false
}

// CleanupFunc releases backend resources on shutdown.
type CleanupFunc func() error

// Result bundles the wired source ports and an optional cleanup.
type Result struct {
	Transactions source.TransactionSource
	Contracts    source.ContractSource
	Workflows    source.WorkflowCountSource
	Cleanup      CleanupFunc
}

// Factory creates backends based on configuration.
type Factory struct {
	logger *slog.Logger
}

func NewFactory(logger *slog.Logger) *Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &Factory{logger: logger}
}

// Create wires the sources for the configured backend type.
func (f *Factory) Create(ctx context.Context, cfg *config.Config) (*Result, error) {
	backendType := Type(cfg.DataBackend)
	if !backendType.IsValid() {
		return nil, fmt.Errorf("invalid backend type: %s", cfg.DataBackend)
	}

	switch backendType {
	case SQLiteBackend:
		return f.createSQLite(cfg)
	case SheetsBackend:
		return f.createSheets(ctx)
	default:
		return f.createMemory()
	}
}

func (f *Factory) createSQLite(cfg *config.Config) (*Result, error) {
	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("initialize SQLite repository: %w", err)
	}

	f.logger.Info("Initialized SQLite backend", "db_path", cfg.SQLiteDBPath)

	return &Result{
		Transactions: repo,
		Contracts:    repo,
		Workflows:    repo,
		Cleanup:      repo.Close,
	}, nil
}

func (f *Factory) createSheets(ctx context.Context) (*Result, error) {
	cli, err := sheets.NewFromEnv(ctx)
	if err != nil {
		return nil, fmt.Errorf("initialize Google Sheets client: %w", err)
	}

	// The sheet only carries transactions; contract terms and workflow
	// counts stay in-process.
	aux := memory.New()

	f.logger.Info("Initialized Google Sheets backend")

	return &Result{
		Transactions: cli,
		Contracts:    aux,
		Workflows:    aux,
	}, nil
}

func (f *Factory) createMemory() (*Result, error) {
	store := memory.New()

	f.logger.Info("Initialized memory backend")

	return &Result{
		Transactions: store,
		Contracts:    store,
		Workflows:    store,
	}, nil
}
