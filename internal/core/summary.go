package core

import "time"

// Summary holds overall totals across every stored transaction.
type Summary struct {
	TotalIncome      Money `json:"totalIncome"`
	TotalExpenses    Money `json:"totalExpenses"`
	Balance          Money `json:"balance"`
	TransactionCount int64 `json:"transactionCount"`
}

// CategoryTotal is the summed amount and count of one category.
type CategoryTotal struct {
	Category string `json:"category"`
	Total    Money  `json:"total"`
	Count    int64  `json:"count"`
}

// MonthlyTrend holds income and expense totals for one calendar month.
type MonthlyTrend struct {
	Income  Money `json:"income"`
	Expense Money `json:"expense"`
}

// MonthlyTrends maps "YYYY-MM" to that month's totals.
type MonthlyTrends map[string]MonthlyTrend

// Analytics is the combined breakdown view.
type Analytics struct {
	ExpenseBreakdown   []CategoryTotal `json:"expenseBreakdown"`
	IncomeBreakdown    []CategoryTotal `json:"incomeBreakdown"`
	MonthlyTrends      MonthlyTrends   `json:"monthlyTrends"`
	RecentTransactions []Transaction   `json:"recentTransactions"`
}

// TrendWindow is how far back monthly trends reach.
const TrendWindow = 12

// TrendsSince returns the inclusive lower bound of the monthly trend window.
func TrendsSince(now time.Time) time.Time {
	return now.UTC().AddDate(0, -TrendWindow, 0)
}

// MonthKey formats t as the "YYYY-MM" bucket it falls in (UTC).
func MonthKey(t time.Time) string {
	return t.UTC().Format("2006-01")
}

// Add accumulates amount into the bucket for typ.
func (m MonthlyTrends) Add(month string, typ TransactionType, amount Money) {
	trend := m[month]
	switch typ {
	case Income:
		trend.Income = trend.Income.Add(amount)
	case Expense:
		trend.Expense = trend.Expense.Add(amount)
	}
	m[month] = trend
}
