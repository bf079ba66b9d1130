package domain

import (
	"bytes"
	"encoding/json"
	"time"
)

// DefaultPeriodDays is the trailing window used when none is given.
const DefaultPeriodDays = 30

// ============================================================
// Metrics snapshot
// ============================================================

// MetricsSnapshot compares the trailing window ending today with the window
// before it. It is derived on demand and never stored.
type MetricsSnapshot struct {
	PeriodDays     int             `json:"period_days"`
	Today          string          `json:"today"`
	Current        CurrentPeriod   `json:"current"`
	Previous       PeriodTotals    `json:"previous"`
	CategorySpikes []CategorySpike `json:"category_spikes"`
}

// CurrentPeriod holds the totals of the current window.
type CurrentPeriod struct {
	Income         float64       `json:"income"`
	Expense        float64       `json:"expense"`
	Net            float64       `json:"net"`
	SavingsRatePct float64       `json:"savings_rate_pct"`
	TopCategories  TopCategories `json:"top_categories"`
}

// PeriodTotals holds the totals of the previous window.
type PeriodTotals struct {
	Income  float64 `json:"income"`
	Expense float64 `json:"expense"`
	Net     float64 `json:"net"`
}

// CategorySpike is the change of one category's spend between the windows.
type CategorySpike struct {
	Category  string  `json:"category"`
	Cur       float64 `json:"cur"`
	Prev      float64 `json:"prev"`
	Delta     float64 `json:"delta"`
	PctChange float64 `json:"pct_change"`
}

// CategoryAmount is one entry of TopCategories.
type CategoryAmount struct {
	Category string  `json:"category"`
	Amount   float64 `json:"amount"`
}

// TopCategories is ordered by amount, largest first. It marshals to a JSON
// object whose keys keep that order.
type TopCategories []CategoryAmount

func (tc TopCategories) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range tc {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(c.Category)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(c.Amount)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Get returns the amount for category, if present.
func (tc TopCategories) Get(category string) (float64, bool) {
	for _, c := range tc {
		if c.Category == category {
			return c.Amount, true
		}
	}
	return 0, false
}

// EmptySnapshot returns the all-zero snapshot for a window.
func EmptySnapshot(days int, today time.Time) MetricsSnapshot {
	return MetricsSnapshot{
		PeriodDays:     days,
		Today:          today.Format(DateLayout),
		Current:        CurrentPeriod{TopCategories: TopCategories{}},
		CategorySpikes: []CategorySpike{},
	}
}

// IsEmpty reports whether the snapshot carries no activity at all.
func (s MetricsSnapshot) IsEmpty() bool {
	return s.Current.Income == 0 && s.Current.Expense == 0 &&
		s.Previous.Income == 0 && s.Previous.Expense == 0
}

// MaxSpikePct is the largest pct_change among the spikes, or 0 without spikes.
func (s MetricsSnapshot) MaxSpikePct() float64 {
	if len(s.CategorySpikes) == 0 {
		return 0
	}
	max := s.CategorySpikes[0].PctChange
	for _, sp := range s.CategorySpikes[1:] {
		if sp.PctChange > max {
			max = sp.PctChange
		}
	}
	return max
}

// TopCategory returns the largest expense category of the current window.
func (s MetricsSnapshot) TopCategory() (string, bool) {
	if len(s.Current.TopCategories) == 0 {
		return "", false
	}
	return s.Current.TopCategories[0].Category, true
}
