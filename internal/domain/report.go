package domain

// ============================================================
// Reports
// ============================================================

// Totals sums a whole project table.
type Totals struct {
	Income   float64 `json:"income"`
	Expenses float64 `json:"expenses"`
	Net      float64 `json:"net"`
}

// DailyFlow is one day of the income vs expense series.
type DailyFlow struct {
	Date    string  `json:"date"`
	Income  float64 `json:"income"`
	Expense float64 `json:"expense"`
}

// Dashboard is the payload of GET /v1/reports/dashboard.
type Dashboard struct {
	Project          string            `json:"project"`
	Empty            bool              `json:"empty"`
	Totals           Totals            `json:"totals"`
	Formatted        map[string]string `json:"formatted"`
	ExpenseBreakdown []CategoryAmount  `json:"expense_breakdown"`
	DailySeries      []DailyFlow       `json:"daily_series"`
	Transactions     []Transaction     `json:"transactions"`
	Weather          *WeatherForecast  `json:"weather,omitempty"`
	Trend            *TrendForecast    `json:"trend,omitempty"`
}

// BudgetPlan is the cached output of the planner.
type BudgetPlan struct {
	Project string `json:"project"`
	Plan    string `json:"plan"`
	Cached  bool   `json:"cached"`
}

// ImportReport summarises a CSV import.
type ImportReport struct {
	Imported int        `json:"imported"`
	Skipped  []RowError `json:"skipped"`
}

// RowError explains why a CSV row was skipped. Line is 1-based and counts the header.
type RowError struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}
