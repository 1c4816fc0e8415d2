package sheets

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"finsight/internal/core"
)

const dateLayout = "2006-01-02"

// parseTransactions converts the raw sheet values into transactions.
// Malformed rows are skipped with a warning so one bad cell does not
// poison the whole snapshot.
func parseTransactions(values [][]interface{}) []core.Transaction {
	var txs []core.Transaction
	for i, row := range values {
		t, err := parseTransactionRow(row)
		if err != nil {
			slog.Warn("Skipping sheet row", "row", i+2, "error", err)
			continue
		}
		t.ID = fmt.Sprintf("sheet-%d", i+2)
		txs = append(txs, t)
	}
	return txs
}

// parseTransactionRow parses one [date, amount, description, category,
// client_id, kind] row.
func parseTransactionRow(row []interface{}) (core.Transaction, error) {
	rawDate := safeGet(row, 0)
	if rawDate == "" {
		return core.Transaction{}, fmt.Errorf("missing date")
	}
	date, err := time.Parse(dateLayout, rawDate)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("parse date %q: %w", rawDate, err)
	}

	rawAmount := strings.ReplaceAll(safeGet(row, 1), ",", ".")
	amount, err := decimal.NewFromString(rawAmount)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("parse amount %q: %w", rawAmount, err)
	}

	kind := core.TransactionKind(strings.ToLower(safeGet(row, 5)))
	if kind == "" {
		kind = core.Expense
	}

	t := core.Transaction{
		Date:        date,
		Amount:      amount,
		Description: safeGet(row, 2),
		Category:    safeGet(row, 3),
		ClientID:    safeGet(row, 4),
		Kind:        kind,
	}
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	return t, nil
}

// safeGet returns the trimmed string at index i, or "" when the row is
// shorter than that.
func safeGet(row []interface{}, i int) string {
	if i >= len(row) {
		return ""
	}
	s, ok := row[i].(string)
	if !ok {
		return strings.TrimSpace(fmt.Sprintf("%v", row[i]))
	}
	return strings.TrimSpace(s)
}
