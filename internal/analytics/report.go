package analytics

import (
	"sort"

	"github.com/boddenberg/finbuddy-assistant-go/internal/domain"
)

// Totals sums income and expenses over every dated row of the table.
func Totals(txs []domain.Transaction) domain.Totals {
	var t domain.Totals
	for _, tx := range txs {
		if tx.Date.IsZero() {
			continue
		}
		if tx.IsIncome() {
			t.Income += tx.AmountFloat()
		} else {
			t.Expenses += tx.AmountFloat()
		}
	}
	t.Net = t.Income - t.Expenses
	return t
}

// ExpenseBreakdown sums expenses by category, largest first.
func ExpenseBreakdown(txs []domain.Transaction) []domain.CategoryAmount {
	byCategory := make(map[string]float64)
	for _, tx := range txs {
		if tx.Date.IsZero() || tx.IsIncome() {
			continue
		}
		byCategory[tx.Category] += tx.AmountFloat()
	}
	return topCategories(byCategory, 0)
}

// DailySeries returns per-day income and expense totals in date order.
func DailySeries(txs []domain.Transaction) []domain.DailyFlow {
	byDay := make(map[string]*domain.DailyFlow)
	for _, tx := range txs {
		if tx.Date.IsZero() {
			continue
		}
		key := tx.DateString()
		f, ok := byDay[key]
		if !ok {
			f = &domain.DailyFlow{Date: key}
			byDay[key] = f
		}
		if tx.IsIncome() {
			f.Income += tx.AmountFloat()
		} else {
			f.Expense += tx.AmountFloat()
		}
	}
	out := make([]domain.DailyFlow, 0, len(byDay))
	for _, f := range byDay {
		out = append(out, *f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

// LatestFirst returns a copy of the table ordered by date descending.
// Rows without a date sort last; equal dates keep their table order.
func LatestFirst(txs []domain.Transaction) []domain.Transaction {
	out := make([]domain.Transaction, len(txs))
	copy(out, txs)
	sort.SliceStable(out, func(i, j int) bool {
		di, dj := out[i].Date, out[j].Date
		if di.IsZero() != dj.IsZero() {
			return !di.IsZero()
		}
		return di.After(dj)
	})
	return out
}

// Analysable reports whether any row has a usable date.
func Analysable(txs []domain.Transaction) bool {
	for _, tx := range txs {
		if !tx.Date.IsZero() {
			return true
		}
	}
	return false
}
