package analytics

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/boddenberg/finbuddy-assistant-go/internal/domain"
)

// ErrInvalidVerdict is returned when a model reply cannot be used as a verdict.
var ErrInvalidVerdict = errors.New("invalid weather verdict")

// LocalStatus applies the ordered rule cascade; the first matching rule wins.
func LocalStatus(s domain.MetricsSnapshot) domain.WeatherStatus {
	inc := s.Current.Income
	exp := s.Current.Expense
	net := s.Current.Net
	sr := s.Current.SavingsRatePct
	bigSpike := s.MaxSpikePct()

	switch {
	case inc <= 0 && exp > 0:
		return domain.StatusThunderstorms
	case net >= 0 && sr >= 20 && bigSpike < 15:
		return domain.StatusClearSkies
	case net >= 0 && (sr >= 5 || bigSpike < 25):
		return domain.StatusPartlyCloudy
	case net < 0 && math.Abs(net) <= 0.2*math.Max(inc, 1):
		return domain.StatusLightShowers
	default:
		return domain.StatusThunderstorms
	}
}

// LocalVerdict builds a complete verdict without any external call.
func LocalVerdict(s domain.MetricsSnapshot) domain.ForecastVerdict {
	status := LocalStatus(s)
	return domain.ForecastVerdict{
		Status:      status,
		Emoji:       status.Emoji(),
		Headline:    fallbackHeadline(status, s),
		Explanation: "",
		Actions:     fallbackActions(status, s),
		Score:       fallbackScore(status),
		Source:      domain.VerdictSourceLocal,
	}
}

func fallbackScore(status domain.WeatherStatus) int {
	if status == domain.StatusClearSkies || status == domain.StatusPartlyCloudy {
		return 65
	}
	return 35
}

func fallbackHeadline(status domain.WeatherStatus, s domain.MetricsSnapshot) string {
	switch status {
	case domain.StatusClearSkies:
		return fmt.Sprintf("Clear skies — healthy net (%s) and %.0f%% savings rate.",
			domain.FormatINRWhole(s.Current.Net), s.Current.SavingsRatePct)
	case domain.StatusPartlyCloudy:
		return "Partly cloudy — mostly on track with a few minor hotspots."
	case domain.StatusLightShowers:
		return "Light showers — caution: spending is pressuring savings."
	default:
		return "Thunderstorms — urgent attention needed to stabilize cash flow."
	}
}

func fallbackActions(status domain.WeatherStatus, s domain.MetricsSnapshot) []string {
	capAction := "Cap top category for 2 weeks"
	if top, ok := s.TopCategory(); ok {
		capAction = fmt.Sprintf("Cap %s spending for 2 weeks", top)
	}
	actions := []string{"Pre-commit a small saving", capAction}
	if status == domain.StatusThunderstorms && s.Current.Income <= 0 {
		actions = append(actions, "Record this period's income so the outlook is complete")
	}
	return actions
}

const weatherPrompt = `You are a concise finance coach. The app computed summary metrics for the last %d days.
Using the WEATHER metaphor, output a short forecast and one to three next steps.
Pick EXACTLY ONE status from this set:
- CLEAR_SKIES (☀️): everything on track.
- PARTLY_CLOUDY (🌤️): mostly fine, a few minor issues.
- LIGHT_SHOWERS (🌧️): caution; noticeable overspend or savings risk.
- THUNDERSTORMS (⛈️): critical issues; urgent action.

Return strictly valid JSON (no markdown, no backticks):
{
  "status": "CLEAR_SKIES|PARTLY_CLOUDY|LIGHT_SHOWERS|THUNDERSTORMS",
  "emoji": "☀️|🌤️|🌧️|⛈️",
  "headline": "one-sentence summary",
  "explanation": "2-3 short sentences using the numbers in plain English",
  "actions": ["action 1", "action 2", "action 3"],
  "score": 0-100
}

Numbers (INR):
current_income: %s
current_expense: %s
current_net: %s
savings_rate_pct: %s
previous_income: %s
previous_expense: %s
previous_net: %s
top_categories: %s
category_spikes: %s

Rules:
- Negative net or >25%% category spikes → lean 🌧️/⛈️ with specific actions.
- Positive net AND savings rate ≥20%% and no big spikes → lean ☀️.
- Keep under ~80 words total.
`

// WeatherPrompt embeds the full snapshot in the structured verdict request.
func WeatherPrompt(s domain.MetricsSnapshot) (string, error) {
	top, err := json.Marshal(s.Current.TopCategories)
	if err != nil {
		return "", fmt.Errorf("marshal top categories: %w", err)
	}
	spikes, err := json.Marshal(s.CategorySpikes)
	if err != nil {
		return "", fmt.Errorf("marshal spikes: %w", err)
	}
	return fmt.Sprintf(weatherPrompt,
		s.PeriodDays,
		num(s.Current.Income),
		num(s.Current.Expense),
		num(s.Current.Net),
		num(s.Current.SavingsRatePct),
		num(s.Previous.Income),
		num(s.Previous.Expense),
		num(s.Previous.Net),
		top,
		spikes,
	), nil
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// rawVerdict mirrors the requested JSON loosely; models are not strict about types.
type rawVerdict struct {
	Status      *string         `json:"status"`
	Emoji       string          `json:"emoji"`
	Headline    string          `json:"headline"`
	Explanation string          `json:"explanation"`
	Actions     json.RawMessage `json:"actions"`
	Score       json.RawMessage `json:"score"`
}

// ParseVerdict reads a model reply into a verdict. Text around the JSON
// object is tolerated by cutting from the first '{' to the last '}'. A
// missing or unknown status is an error so the caller can fall back.
func ParseVerdict(text string, s domain.MetricsSnapshot) (domain.ForecastVerdict, error) {
	var raw rawVerdict
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &raw); err != nil {
		obj, ok := extractObject(text)
		if !ok {
			return domain.ForecastVerdict{}, fmt.Errorf("%w: no JSON object in reply", ErrInvalidVerdict)
		}
		raw = rawVerdict{}
		if err := json.Unmarshal([]byte(obj), &raw); err != nil {
			return domain.ForecastVerdict{}, fmt.Errorf("%w: %v", ErrInvalidVerdict, err)
		}
	}
	if raw.Status == nil {
		return domain.ForecastVerdict{}, fmt.Errorf("%w: missing status", ErrInvalidVerdict)
	}
	status := domain.WeatherStatus(strings.ToUpper(strings.TrimSpace(*raw.Status)))
	if !status.Valid() {
		return domain.ForecastVerdict{}, fmt.Errorf("%w: unknown status %q", ErrInvalidVerdict, *raw.Status)
	}

	v := domain.ForecastVerdict{
		Status:      status,
		Emoji:       strings.TrimSpace(raw.Emoji),
		Headline:    strings.TrimSpace(raw.Headline),
		Explanation: strings.TrimSpace(raw.Explanation),
		Actions:     parseActions(raw.Actions),
		Score:       parseScore(raw.Score, status),
		Source:      domain.VerdictSourceAI,
	}
	if v.Emoji == "" {
		v.Emoji = status.Emoji()
	}
	if v.Headline == "" {
		v.Headline = fallbackHeadline(status, s)
	}
	return v, nil
}

func extractObject(text string) (string, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end <= start {
		return "", false
	}
	return text[start : end+1], true
}

func parseActions(raw json.RawMessage) []string {
	actions := []string{}
	if len(raw) == 0 {
		return actions
	}
	var list []any
	if err := json.Unmarshal(raw, &list); err != nil {
		var single string
		if json.Unmarshal(raw, &single) == nil && strings.TrimSpace(single) != "" {
			actions = append(actions, strings.TrimSpace(single))
		}
		return actions
	}
	for _, item := range list {
		s, ok := item.(string)
		if !ok {
			continue
		}
		if s = strings.TrimSpace(s); s != "" {
			actions = append(actions, s)
		}
		if len(actions) == domain.MaxVerdictActions {
			break
		}
	}
	return actions
}

func parseScore(raw json.RawMessage, status domain.WeatherStatus) int {
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		var s string
		if json.Unmarshal(raw, &s) != nil {
			return fallbackScore(status)
		}
		parsed, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return fallbackScore(status)
		}
		f = parsed
	}
	if math.IsNaN(f) {
		return fallbackScore(status)
	}
	return int(math.Round(math.Max(0, math.Min(100, f))))
}
