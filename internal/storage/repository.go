// Package storage is the SQLite adapter behind the source ports. It owns
// the schema for transactions, analyzed contract terms and workflow counts.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"finsight/internal/core"
)

const dateLayout = "2006-01-02"

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// AddTransaction persists a transaction and returns its id.
func (r *SQLiteRepository) AddTransaction(ctx context.Context, t core.Transaction) (string, error) {
	if err := t.Validate(); err != nil {
		return "", fmt.Errorf("validate transaction: %w", err)
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO transactions (tx_date, amount, description, category, client_id, kind)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		t.Date.Format(dateLayout), t.Amount.String(), t.Description, t.Category, t.ClientID, string(t.Kind))
	if err != nil {
		return "", fmt.Errorf("insert transaction: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return "", fmt.Errorf("last insert id: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved",
		"id", id,
		"description", t.Description,
		"amount", t.Amount.String(),
		"kind", t.Kind)

	return strconv.FormatInt(id, 10), nil
}

// ListTransactions implements source.TransactionSource. Rows with a
// malformed amount or date are skipped rather than failing the snapshot.
func (r *SQLiteRepository) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, tx_date, amount, description, category, client_id, kind
		 FROM transactions ORDER BY tx_date, id`)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var txs []core.Transaction
	for rows.Next() {
		var (
			id, date, amount, desc, category, clientID, kind string
		)
		if err := rows.Scan(&id, &date, &amount, &desc, &category, &clientID, &kind); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}

		parsedDate, err := time.Parse(dateLayout, date)
		if err != nil {
			slog.WarnContext(ctx, "Skipping transaction with malformed date", "id", id, "date", date)
			continue
		}
		parsedAmount, err := decimal.NewFromString(amount)
		if err != nil {
			slog.WarnContext(ctx, "Skipping transaction with malformed amount", "id", id, "amount", amount)
			continue
		}

		txs = append(txs, core.Transaction{
			ID:          id,
			Date:        parsedDate,
			Amount:      parsedAmount,
			Description: desc,
			Category:    category,
			ClientID:    clientID,
			Kind:        core.TransactionKind(kind),
		})
	}
	return txs, rows.Err()
}

// UpsertContract stores a client's analyzed contract terms.
func (r *SQLiteRepository) UpsertContract(ctx context.Context, c core.ContractTerms) (string, error) {
	reimb, err := json.Marshal(c.Reimbursable)
	if err != nil {
		return "", fmt.Errorf("marshal reimbursable terms: %w", err)
	}
	nonReimb, err := json.Marshal(c.NonReimbursable)
	if err != nil {
		return "", fmt.Errorf("marshal non-reimbursable terms: %w", err)
	}

	analyzedAt := c.AnalyzedAt
	if analyzedAt.IsZero() {
		analyzedAt = time.Now().UTC()
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO contracts (client_id, reimbursable, non_reimbursable, user_notes, analyzed_at)
		 VALUES (?, ?, ?, ?, ?)`,
		c.ClientID, string(reimb), string(nonReimb), c.UserNotes, analyzedAt.Format(time.RFC3339))
	if err != nil {
		return "", fmt.Errorf("insert contract: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return "", fmt.Errorf("last insert id: %w", err)
	}
	return strconv.FormatInt(id, 10), nil
}

// ListContracts implements source.ContractSource.
func (r *SQLiteRepository) ListContracts(ctx context.Context, clientID string) ([]core.ContractTerms, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, client_id, reimbursable, non_reimbursable, user_notes, analyzed_at
		 FROM contracts WHERE client_id = ? ORDER BY analyzed_at DESC, id DESC`, clientID)
	if err != nil {
		return nil, fmt.Errorf("query contracts: %w", err)
	}
	defer rows.Close()

	var contracts []core.ContractTerms
	for rows.Next() {
		var (
			id, client, reimb, nonReimb, notes, analyzedAt string
		)
		if err := rows.Scan(&id, &client, &reimb, &nonReimb, &notes, &analyzedAt); err != nil {
			return nil, fmt.Errorf("scan contract: %w", err)
		}

		c := core.ContractTerms{ID: id, ClientID: client, UserNotes: notes}
		if err := json.Unmarshal([]byte(reimb), &c.Reimbursable); err != nil {
			return nil, fmt.Errorf("unmarshal reimbursable terms for contract %s: %w", id, err)
		}
		if err := json.Unmarshal([]byte(nonReimb), &c.NonReimbursable); err != nil {
			return nil, fmt.Errorf("unmarshal non-reimbursable terms for contract %s: %w", id, err)
		}
		if ts, err := time.Parse(time.RFC3339, analyzedAt); err == nil {
			c.AnalyzedAt = ts
		}
		contracts = append(contracts, c)
	}
	return contracts, rows.Err()
}

// SetWorkflowCount records one named count for a pipeline.
func (r *SQLiteRepository) SetWorkflowCount(ctx context.Context, id core.WorkflowID, name string, value int) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO workflow_counts (workflow_id, name, value) VALUES (?, ?, ?)
		 ON CONFLICT (workflow_id, name) DO UPDATE SET value = excluded.value`,
		string(id), name, value)
	if err != nil {
		return fmt.Errorf("upsert workflow count: %w", err)
	}
	return nil
}

// WorkflowCounts implements source.WorkflowCountSource.
func (r *SQLiteRepository) WorkflowCounts(ctx context.Context, id core.WorkflowID) (core.WorkflowCounts, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT name, value FROM workflow_counts WHERE workflow_id = ?`, string(id))
	if err != nil {
		return nil, fmt.Errorf("query workflow counts: %w", err)
	}
	defer rows.Close()

	counts := core.WorkflowCounts{}
	for rows.Next() {
		var name string
		var value int
		if err := rows.Scan(&name, &value); err != nil {
			return nil, fmt.Errorf("scan workflow count: %w", err)
		}
		counts[name] = value
	}
	return counts, rows.Err()
}
