package storage

import (
	"context"
	"fmt"
	"time"

	"ledger/internal/core"
)

// Summary totals every transaction by type.
func (r *SQLiteRepository) Summary(ctx context.Context) (core.Summary, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT type, COALESCE(SUM(amount_cents), 0), COUNT(*) FROM transactions GROUP BY type`)
	if err != nil {
		return core.Summary{}, fmt.Errorf("summarize transactions: %w", err)
	}
	defer rows.Close()

	var s core.Summary
	for rows.Next() {
		var (
			typ   string
			cents int64
			count int64
		)
		if err := rows.Scan(&typ, &cents, &count); err != nil {
			return core.Summary{}, fmt.Errorf("scan summary row: %w", err)
		}
		switch core.TransactionType(typ) {
		case core.Income:
			s.TotalIncome = core.Money{Cents: cents}
		case core.Expense:
			s.TotalExpenses = core.Money{Cents: cents}
		}
		s.TransactionCount += count
	}
	if err := rows.Err(); err != nil {
		return core.Summary{}, fmt.Errorf("summarize transactions: %w", err)
	}

	s.Balance = s.TotalIncome.Sub(s.TotalExpenses)
	return s, nil
}

// CategoryBreakdown sums amounts per category, optionally for one type only.
// Results are ordered by total descending; equal totals are ordered by
// category name ascending.
func (r *SQLiteRepository) CategoryBreakdown(ctx context.Context, typ core.TransactionType) ([]core.CategoryTotal, error) {
	query := `SELECT category, SUM(amount_cents) AS total, COUNT(*) FROM transactions`
	var args []any
	if typ != "" {
		query += ` WHERE type = ?`
		args = append(args, string(typ))
	}
	query += ` GROUP BY category ORDER BY total DESC, category ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("category breakdown: %w", err)
	}
	defer rows.Close()

	out := make([]core.CategoryTotal, 0)
	for rows.Next() {
		var ct core.CategoryTotal
		if err := rows.Scan(&ct.Category, &ct.Total.Cents, &ct.Count); err != nil {
			return nil, fmt.Errorf("scan category breakdown: %w", err)
		}
		out = append(out, ct)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("category breakdown: %w", err)
	}
	return out, nil
}

// MonthlyTrends groups transactions dated on or after since by calendar
// month (UTC) and type.
func (r *SQLiteRepository) MonthlyTrends(ctx context.Context, since time.Time) (core.MonthlyTrends, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT substr(date, 1, 7) AS month, type, SUM(amount_cents)
		   FROM transactions
		  WHERE date >= ?
		  GROUP BY month, type
		  ORDER BY month`, formatTime(since))
	if err != nil {
		return nil, fmt.Errorf("monthly trends: %w", err)
	}
	defer rows.Close()

	trends := core.MonthlyTrends{}
	for rows.Next() {
		var (
			month, typ string
			cents      int64
		)
		if err := rows.Scan(&month, &typ, &cents); err != nil {
			return nil, fmt.Errorf("scan monthly trend: %w", err)
		}
		trends.Add(month, core.TransactionType(typ), core.Money{Cents: cents})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("monthly trends: %w", err)
	}
	return trends, nil
}

// Recent returns the n most recently created transactions.
func (r *SQLiteRepository) Recent(ctx context.Context, n int) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions ORDER BY created_at DESC, id DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("recent transactions: %w", err)
	}
	defer rows.Close()

	items, err := scanTransactions(rows)
	if err != nil {
		return nil, fmt.Errorf("recent transactions: %w", err)
	}
	return items, nil
}

// Categories returns the distinct category names in alphabetical order,
// optionally restricted to one type.
func (r *SQLiteRepository) Categories(ctx context.Context, typ core.TransactionType) ([]string, error) {
	query := `SELECT DISTINCT category FROM transactions`
	var args []any
	if typ != "" {
		query += ` WHERE type = ?`
		args = append(args, string(typ))
	}
	query += ` ORDER BY category ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	out := make([]string, 0)
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return out, nil
}
