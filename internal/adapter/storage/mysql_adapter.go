package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rl1809/shop-economy/internal/core/domain"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS purchases (
		id VARCHAR(36) PRIMARY KEY,
		request_id VARCHAR(128) NOT NULL,
		entry_id VARCHAR(128) NOT NULL,
		item_id VARCHAR(128) NOT NULL,
		quantity INT NOT NULL,
		stock_left INT NOT NULL,
		created_at DATETIME(6) NOT NULL,
		INDEX idx_purchases_created_at (created_at)
	)`,
	`CREATE TABLE IF NOT EXISTS purchase_costs (
		purchase_id VARCHAR(36) NOT NULL,
		line_no INT NOT NULL,
		currency_id VARCHAR(128) NOT NULL,
		amount INT NOT NULL,
		PRIMARY KEY (purchase_id, line_no)
	)`,
}

// MySQLAdapter keeps an append-only journal of committed purchases.
type MySQLAdapter struct {
	db *sql.DB
}

func NewMySQLAdapter(db *sql.DB) *MySQLAdapter {
	return &MySQLAdapter{db: db}
}

func (m *MySQLAdapter) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := m.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

func (m *MySQLAdapter) RecordPurchase(ctx context.Context, receipt domain.Receipt) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO purchases (id, request_id, entry_id, item_id, quantity, stock_left, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		receipt.ID, receipt.RequestID, receipt.EntryID, string(receipt.Item),
		receipt.Quantity, receipt.StockLeft, receipt.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert purchase: %w", err)
	}

	for i, line := range receipt.Costs {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO purchase_costs (purchase_id, line_no, currency_id, amount)
			VALUES (?, ?, ?, ?)`,
			receipt.ID, i, string(line.Currency), line.Amount,
		)
		if err != nil {
			return fmt.Errorf("insert cost line %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (m *MySQLAdapter) ListPurchases(ctx context.Context, limit int) ([]domain.Receipt, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT id, request_id, entry_id, item_id, quantity, stock_left, created_at
		FROM purchases ORDER BY created_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query purchases: %w", err)
	}
	defer rows.Close()

	var receipts []domain.Receipt
	for rows.Next() {
		var r domain.Receipt
		var item string
		if err := rows.Scan(&r.ID, &r.RequestID, &r.EntryID, &item, &r.Quantity, &r.StockLeft, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan purchase: %w", err)
		}
		r.Item = domain.ItemID(item)
		receipts = append(receipts, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate purchases: %w", err)
	}

	for i := range receipts {
		costs, err := m.costLines(ctx, receipts[i].ID)
		if err != nil {
			return nil, err
		}
		receipts[i].Costs = costs
	}

	return receipts, nil
}

func (m *MySQLAdapter) costLines(ctx context.Context, purchaseID string) ([]domain.CostLine, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT currency_id, amount FROM purchase_costs
		WHERE purchase_id = ? ORDER BY line_no`, purchaseID,
	)
	if err != nil {
		return nil, fmt.Errorf("query cost lines: %w", err)
	}
	defer rows.Close()

	var lines []domain.CostLine
	for rows.Next() {
		var currency string
		var line domain.CostLine
		if err := rows.Scan(&currency, &line.Amount); err != nil {
			return nil, fmt.Errorf("scan cost line: %w", err)
		}
		line.Currency = domain.CurrencyID(currency)
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cost lines: %w", err)
	}
	return lines, nil
}
