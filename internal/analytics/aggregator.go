// Package analytics computes the derived views of a transaction table:
// the period-over-period metrics snapshot, the linear expense trend and the
// local weather verdict. Everything here is pure and deterministic given its
// inputs; callers supply "today".
package analytics

import (
	"sort"
	"time"

	"github.com/boddenberg/finbuddy-assistant-go/internal/domain"
)

const (
	maxTopCategories = 5
	maxSpikes        = 3
)

// window is an inclusive range of calendar days.
type window struct {
	start, end time.Time
}

func (w window) contains(d time.Time) bool {
	return !d.Before(w.start) && !d.After(w.end)
}

type periodSums struct {
	income     float64
	expense    float64
	byCategory map[string]float64
}

func sumWindow(txs []domain.Transaction, w window) periodSums {
	s := periodSums{byCategory: make(map[string]float64)}
	for _, t := range txs {
		if t.Date.IsZero() || !w.contains(t.Date) {
			continue
		}
		amt := t.AmountFloat()
		if t.IsIncome() {
			s.income += amt
			continue
		}
		s.expense += amt
		s.byCategory[t.Category] += amt
	}
	return s
}

// ComputeMetrics builds the snapshot for the days-long window ending on today
// and the equally long window before it. days <= 0 selects the default of 30.
// Rows with an unparseable date are ignored; an empty table yields the
// all-zero snapshot.
func ComputeMetrics(txs []domain.Transaction, days int, today time.Time) domain.MetricsSnapshot {
	if days <= 0 {
		days = domain.DefaultPeriodDays
	}
	today = domain.CalendarDay(today)
	snap := domain.EmptySnapshot(days, today)

	cur := window{start: today.AddDate(0, 0, -(days - 1)), end: today}
	prev := window{start: cur.start.AddDate(0, 0, -days), end: cur.start.AddDate(0, 0, -1)}

	c := sumWindow(txs, cur)
	p := sumWindow(txs, prev)

	snap.Current.Income = c.income
	snap.Current.Expense = c.expense
	snap.Current.Net = c.income - c.expense
	if c.income > 0 {
		snap.Current.SavingsRatePct = snap.Current.Net / c.income * 100
	}
	snap.Current.TopCategories = topCategories(c.byCategory, maxTopCategories)

	snap.Previous.Income = p.income
	snap.Previous.Expense = p.expense
	snap.Previous.Net = p.income - p.expense

	snap.CategorySpikes = categorySpikes(snap.Current.TopCategories, p.byCategory)
	return snap
}

// topCategories sorts by amount descending (name ascending on ties) and keeps n.
func topCategories(byCategory map[string]float64, n int) domain.TopCategories {
	out := make(domain.TopCategories, 0, len(byCategory))
	for cat, amt := range byCategory {
		out = append(out, domain.CategoryAmount{Category: cat, Amount: amt})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Amount != out[j].Amount {
			return out[i].Amount > out[j].Amount
		}
		return out[i].Category < out[j].Category
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

func categorySpikes(top domain.TopCategories, prevByCategory map[string]float64) []domain.CategorySpike {
	spikes := make([]domain.CategorySpike, 0, len(top))
	for _, tc := range top {
		pv := prevByCategory[tc.Category]
		delta := tc.Amount - pv
		var pct float64
		switch {
		case pv > 0:
			pct = delta / pv * 100
		case tc.Amount > 0:
			pct = 100
		}
		spikes = append(spikes, domain.CategorySpike{
			Category:  tc.Category,
			Cur:       tc.Amount,
			Prev:      pv,
			Delta:     delta,
			PctChange: pct,
		})
	}
	sort.SliceStable(spikes, func(i, j int) bool {
		if spikes[i].PctChange != spikes[j].PctChange {
			return spikes[i].PctChange > spikes[j].PctChange
		}
		return spikes[i].Delta > spikes[j].Delta
	})
	if len(spikes) > maxSpikes {
		spikes = spikes[:maxSpikes]
	}
	return spikes
}
