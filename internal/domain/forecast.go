package domain

// ============================================================
// Weather verdict
// ============================================================

// WeatherStatus is the qualitative financial health label.
type WeatherStatus string

const (
	StatusClearSkies    WeatherStatus = "CLEAR_SKIES"
	StatusPartlyCloudy  WeatherStatus = "PARTLY_CLOUDY"
	StatusLightShowers  WeatherStatus = "LIGHT_SHOWERS"
	StatusThunderstorms WeatherStatus = "THUNDERSTORMS"
)

// Verdict sources.
const (
	VerdictSourceAI    = "ai"
	VerdictSourceLocal = "local"
)

// MaxVerdictActions caps ForecastVerdict.Actions.
const MaxVerdictActions = 3

// Valid reports whether s is one of the four known statuses.
func (s WeatherStatus) Valid() bool {
	switch s {
	case StatusClearSkies, StatusPartlyCloudy, StatusLightShowers, StatusThunderstorms:
		return true
	}
	return false
}

// Emoji returns the icon shown next to the status.
func (s WeatherStatus) Emoji() string {
	switch s {
	case StatusClearSkies:
		return "☀️"
	case StatusPartlyCloudy:
		return "🌤️"
	case StatusLightShowers:
		return "🌧️"
	default:
		return "⛈️"
	}
}

// ForecastVerdict is the outlook for the trailing window.
type ForecastVerdict struct {
	Status      WeatherStatus `json:"status"`
	Emoji       string        `json:"emoji"`
	Headline    string        `json:"headline"`
	Explanation string        `json:"explanation"`
	Actions     []string      `json:"actions"`
	Score       int           `json:"score"`
	Source      string        `json:"source"`
}

// WeatherForecast is the payload of GET /v1/forecast/weather.
// Empty is set when the selected project has nothing to analyse.
type WeatherForecast struct {
	Project  string           `json:"project"`
	Empty    bool             `json:"empty"`
	Message  string           `json:"message,omitempty"`
	Snapshot MetricsSnapshot  `json:"snapshot"`
	Verdict  *ForecastVerdict `json:"verdict,omitempty"`
}

// ============================================================
// Trend forecast
// ============================================================

// TrendForecast is the linear projection of daily expenses.
type TrendForecast struct {
	Sufficient     bool      `json:"sufficient"`
	Message        string    `json:"message,omitempty"`
	Slope          float64   `json:"slope"`
	Intercept      float64   `json:"intercept"`
	Horizon        int       `json:"horizon_days"`
	Projected      []float64 `json:"projected,omitempty"`
	ProjectedTotal float64   `json:"projected_total"`
	AvgDailySpend  float64   `json:"avg_daily_spend"`
	Narrative      string    `json:"narrative"`
}
