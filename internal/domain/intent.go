package domain

import (
	"strings"
	"unicode"
)

// Intent is the classified purpose of a chat query.
type Intent string

const (
	IntentBudgeting         Intent = "BUDGETING"
	IntentForecasting       Intent = "FORECASTING"
	IntentCategorization    Intent = "CATEGORIZATION"
	IntentSavingsInvestment Intent = "SAVINGS_INVESTMENT"
	IntentTaxInfo           Intent = "TAX_INFO"
	IntentCashManagement    Intent = "CASH_MANAGEMENT"
	IntentReportSummary     Intent = "REPORT_SUMMARY"
	IntentGeneralQuery      Intent = "GENERAL_QUERY"
)

// Intents lists every label in classifier prompt order.
var Intents = []Intent{
	IntentBudgeting,
	IntentForecasting,
	IntentCategorization,
	IntentSavingsInvestment,
	IntentTaxInfo,
	IntentCashManagement,
	IntentReportSummary,
	IntentGeneralQuery,
}

// ParseIntent maps a classifier reply to an Intent. The reply must name
// exactly one label; surrounding whitespace, quotes, markdown emphasis, a
// "category:" prefix and trailing punctuation are tolerated. Anything else
// yields (IntentGeneralQuery, false).
func ParseIntent(raw string) (Intent, bool) {
	s := strings.TrimSpace(raw)
	s = strings.Trim(s, "`*\"' \t\r\n")
	s = strings.TrimRightFunc(s, unicode.IsPunct)
	s = strings.ToUpper(strings.TrimSpace(s))
	if rest, ok := strings.CutPrefix(s, "CATEGORY:"); ok {
		s = strings.TrimSpace(rest)
	}
	s = strings.Trim(s, "`*\"' ")
	s = strings.NewReplacer(" ", "_", "-", "_").Replace(s)

	for _, in := range Intents {
		if s == string(in) {
			return in, true
		}
	}
	return IntentGeneralQuery, false
}
