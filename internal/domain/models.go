// Package domain defines the core entities of the FinBuddy assistant.
// These models are independent of external services and represent the
// canonical data structures used throughout the service.
package domain

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/shopspring/decimal"
)

// DateLayout is the ISO calendar date format used on the wire and in CSV files.
const DateLayout = "2006-01-02"

// DefaultCategories are the categories offered when adding a transaction.
var DefaultCategories = []string{
	"Income", "Groceries", "Utilities", "Transport", "Investment", "Rent",
	"Dining", "Shopping", "Healthcare", "Education", "Other",
}

// ============================================================
// Transactions
// ============================================================

// Transaction is a single income or expense record of a project.
// A zero Date marks a record whose date could not be parsed; such
// records are kept in the table but ignored by analytics.
type Transaction struct {
	ID       string          `json:"id"`
	Date     time.Time       `json:"-"`
	Category string          `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
	Note     string          `json:"note"`
}

// MarshalJSON renders the date as a plain ISO calendar date.
func (t Transaction) MarshalJSON() ([]byte, error) {
	type alias Transaction
	return json.Marshal(struct {
		alias
		Date string `json:"date"`
	}{alias: alias(t), Date: t.DateString()})
}

// DateString returns the ISO date, or "" for an unparseable date.
func (t Transaction) DateString() string {
	if t.Date.IsZero() {
		return ""
	}
	return t.Date.Format(DateLayout)
}

// IsIncome reports whether the transaction counts as income.
func (t Transaction) IsIncome() bool {
	return IsIncomeCategory(t.Category)
}

// AmountFloat returns the amount as float64 for aggregation.
func (t Transaction) AmountFloat() float64 {
	return t.Amount.InexactFloat64()
}

// IsIncomeCategory matches "income" case-insensitively, ignoring surrounding spaces.
func IsIncomeCategory(category string) bool {
	return strings.ToLower(strings.TrimSpace(category)) == "income"
}

// TransactionInput is the payload of the add and edit actions.
type TransactionInput struct {
	Date     string      `json:"date"`
	Category string      `json:"category"`
	Amount   AmountInput `json:"amount"`
	Note     string      `json:"note,omitempty"`
}

// Validate normalises the input into a Transaction without an ID.
// Nothing is mutated when it fails.
func (in TransactionInput) Validate() (Transaction, error) {
	date, ok := ParseDate(in.Date)
	if !ok {
		return Transaction{}, &ErrValidation{Field: "date", Message: "must be an ISO date (YYYY-MM-DD)"}
	}
	category := strings.TrimSpace(in.Category)
	if category == "" {
		return Transaction{}, &ErrValidation{Field: "category", Message: "required"}
	}
	amount, err := in.Amount.Normalize()
	if err != nil {
		return Transaction{}, err
	}
	return Transaction{
		Date:     date,
		Category: category,
		Amount:   amount,
		Note:     strings.TrimSpace(in.Note),
	}, nil
}

var dateLayouts = []string{
	DateLayout,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006/01/02",
}

// ParseDate parses a calendar date and truncates it to UTC midnight.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return CalendarDay(t), true
		}
	}
	if len(s) > 10 {
		if t, err := time.Parse(DateLayout, s[:10]); err == nil {
			return CalendarDay(t), true
		}
	}
	return time.Time{}, false
}

// CalendarDay drops the clock part of t, keeping its calendar date.
func CalendarDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Fingerprint hashes the contents of a transaction table. Two tables with the
// same rows in the same order share a fingerprint; it keys cached results.
func Fingerprint(txs []Transaction) uint64 {
	h := xxhash.New()
	for _, t := range txs {
		h.WriteString(t.ID)
		h.WriteString("|")
		h.WriteString(t.DateString())
		h.WriteString("|")
		h.WriteString(t.Category)
		h.WriteString("|")
		h.WriteString(t.Amount.String())
		h.WriteString("|")
		h.WriteString(t.Note)
		h.WriteString("\n")
	}
	return h.Sum64()
}

// ============================================================
// Projects
// ============================================================

// Project is a named, isolated set of transactions.
type Project struct {
	Name         string        `json:"name"`
	Transactions []Transaction `json:"transactions"`
}

// ProjectSummary is the list view of a project.
type ProjectSummary struct {
	Name             string `json:"name"`
	TransactionCount int    `json:"transactionCount"`
	Selected         bool   `json:"selected"`
}
