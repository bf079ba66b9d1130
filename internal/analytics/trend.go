package analytics

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/boddenberg/finbuddy-assistant-go/internal/domain"
)

// ForecastHorizonDays is the number of days projected past the last observation.
const ForecastHorizonDays = 30

// minTrendRows is the minimum number of rows, and of expense rows, needed for a fit.
const minTrendRows = 3

// Messages returned instead of a forecast.
const (
	MsgNotEnoughTransactions = "Not enough transaction data to generate a forecast. Please add more entries."
	MsgNotEnoughExpenses     = "Not enough expense data to generate a forecast. Please add more expense entries."
)

// unixEpochOrdinal is the proleptic Gregorian ordinal of 1970-01-01,
// counting 0001-01-01 as day 1.
const unixEpochOrdinal = 719163

type dayTotal struct {
	ordinal int64
	amount  float64
}

// Trend fits an ordinary least squares line to daily expense totals against
// the ordinal day number and sums its clamped projection over the next 30
// days. Insufficient data is reported through Sufficient and Message, never
// as an error.
func Trend(txs []domain.Transaction) domain.TrendForecast {
	out := domain.TrendForecast{Horizon: ForecastHorizonDays}
	if len(txs) < minTrendRows {
		out.Message = MsgNotEnoughTransactions
		out.Narrative = MsgNotEnoughTransactions
		return out
	}

	byDay := make(map[int64]float64)
	expenseRows := 0
	for _, t := range txs {
		if t.IsIncome() || t.Date.IsZero() {
			continue
		}
		expenseRows++
		byDay[ordinal(t)] += t.AmountFloat()
	}
	if expenseRows < minTrendRows {
		out.Message = MsgNotEnoughExpenses
		out.Narrative = MsgNotEnoughExpenses
		return out
	}

	days := make([]dayTotal, 0, len(byDay))
	for o, amt := range byDay {
		days = append(days, dayTotal{ordinal: o, amount: amt})
	}
	sort.Slice(days, func(i, j int) bool { return days[i].ordinal < days[j].ordinal })

	xs := make([]float64, len(days))
	ys := make([]float64, len(days))
	for i, d := range days {
		xs[i] = float64(d.ordinal)
		ys[i] = d.amount
	}

	var intercept, slope float64
	if len(days) == 1 {
		// A single day has no trend; project it flat.
		intercept = ys[0]
	} else {
		intercept, slope = stat.LinearRegression(xs, ys, nil, false)
	}

	last := days[len(days)-1].ordinal
	out.Projected = make([]float64, ForecastHorizonDays)
	for i := range out.Projected {
		v := intercept + slope*float64(last+int64(i)+1)
		if v < 0 {
			v = 0
		}
		out.Projected[i] = v
		out.ProjectedTotal += v
	}

	out.Sufficient = true
	out.Slope = slope
	out.Intercept = intercept
	out.AvgDailySpend = stat.Mean(ys, nil)
	out.Narrative = trendNarrative(out.ProjectedTotal, out.AvgDailySpend)
	return out
}

func ordinal(t domain.Transaction) int64 {
	return t.Date.Unix()/86400 + unixEpochOrdinal
}

func trendNarrative(total, avg float64) string {
	return fmt.Sprintf("### 🗓️ 30-Day Expense Forecast\n\n"+
		"Based on your recent spending habits, you are projected to spend approximately **%s** over the next 30 days.\n\n"+
		"*Your average daily spend has been **%s**.*\n\n"+
		"> **Disclaimer:** This is a simple trend-based projection and may not account for large, irregular expenses.",
		domain.FormatINR(total), domain.FormatINR(avg))
}
