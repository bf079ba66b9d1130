package domain

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

// ============================================================
// Amounts
// ============================================================

// MaxAmount is the largest accepted amount: 12 integer digits, 10 decimals.
var MaxAmount = decimal.RequireFromString("999999999999.9999999999")

// AmountDecimals is the number of decimal places an amount is kept at.
const AmountDecimals = 10

// Slider bounds for AmountModeSlider.
const (
	SliderMin  = 0.0
	SliderMax  = 100_000.0
	SliderStep = 10_000.0
)

// AmountMode tags which representation an AmountInput carries.
type AmountMode string

const (
	AmountModeSlider AmountMode = "slider"
	AmountModeExact  AmountMode = "exact"
)

// AmountInput is the amount as entered: either a slider position or typed text.
// Only one of Slider and Text is read, depending on Mode.
type AmountInput struct {
	Mode   AmountMode `json:"mode"`
	Slider float64    `json:"slider,omitempty"`
	Text   string     `json:"text,omitempty"`
}

// Normalize validates the input and returns the amount it denotes.
func (a AmountInput) Normalize() (decimal.Decimal, error) {
	switch a.Mode {
	case AmountModeSlider:
		v := a.Slider
		if math.IsNaN(v) || v < SliderMin || v > SliderMax {
			return decimal.Zero, &ErrValidation{
				Field:   "amount.slider",
				Message: fmt.Sprintf("must be between %.0f and %.0f", SliderMin, SliderMax),
			}
		}
		if math.Mod(v, SliderStep) != 0 {
			return decimal.Zero, &ErrValidation{
				Field:   "amount.slider",
				Message: fmt.Sprintf("must be a multiple of %.0f", SliderStep),
			}
		}
		return decimal.NewFromFloat(v).RoundBank(AmountDecimals), nil
	case AmountModeExact, "":
		d, err := ParseAmount(a.Text)
		if err != nil {
			return decimal.Zero, &ErrValidation{
				Field:   "amount.text",
				Message: "please enter a valid amount (up to 999999999999.9999999999)",
			}
		}
		return d, nil
	default:
		return decimal.Zero, &ErrValidation{Field: "amount.mode", Message: "must be 'slider' or 'exact'"}
	}
}

var (
	amountSanitizer = regexp.MustCompile(`[^\d.]`)
	currencyTokens  = strings.NewReplacer(
		",", " ",
		"\u00a0", " ",
		"INR", "",
		"inr", "",
		"Rs.", "",
		"Rs", "",
		"rs", "",
		"रु", "",
		"₹", "",
	)
)

// NormalizeAmountText strips currency markers and separators, keeping digits
// and a single decimal point: "₹12,000.50" -> "12000.50".
func NormalizeAmountText(text string) string {
	t := strings.TrimSpace(text)
	if t == "" {
		return ""
	}
	t = currencyTokens.Replace(t)
	t = amountSanitizer.ReplaceAllString(t, "")
	if strings.Count(t, ".") > 1 {
		parts := strings.Split(t, ".")
		t = parts[0] + "." + strings.Join(parts[1:], "")
	}
	return strings.TrimSpace(t)
}

// ParseAmount parses user-entered amount text. Negative values, empty input
// and values above MaxAmount are rejected.
func ParseAmount(text string) (decimal.Decimal, error) {
	if strings.Contains(text, "-") {
		return decimal.Zero, fmt.Errorf("negative amount %q", text)
	}
	norm := NormalizeAmountText(text)
	if norm == "" || norm == "." {
		return decimal.Zero, fmt.Errorf("empty amount %q", text)
	}
	d, err := decimal.NewFromString(norm)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse amount %q: %w", text, err)
	}
	if d.IsNegative() || d.GreaterThan(MaxAmount) {
		return decimal.Zero, fmt.Errorf("amount %q out of range", text)
	}
	if d.Exponent() < -AmountDecimals {
		d = d.RoundBank(AmountDecimals)
	}
	return d, nil
}

// FormatINR renders v as rupees with thousands separators and two decimals.
func FormatINR(v float64) string {
	return "₹" + humanize.FormatFloat("#,###.##", v)
}

// FormatINRWhole renders v as rupees without decimals.
func FormatINRWhole(v float64) string {
	return "₹" + humanize.FormatFloat("#,###.", v)
}
