// Package csvio reads and writes transaction tables as CSV with the header
// date,category,amount,note.
package csvio

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/boddenberg/finbuddy-assistant-go/internal/domain"
)

// Header is the column order used for export and expected on import.
var Header = []string{"date", "category", "amount", "note"}

// Read parses a CSV table. Columns are located by header name, case-insensitively;
// "note" is optional. Rows with a bad date, an empty category or an invalid
// amount are skipped and reported. A missing required column is an error.
func Read(r io.Reader) ([]domain.Transaction, []domain.RowError, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, &domain.ErrValidation{Field: "file", Message: "empty CSV"}
	}
	if err != nil {
		return nil, nil, &domain.ErrValidation{Field: "file", Message: err.Error()}
	}

	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	for _, required := range []string{"date", "category", "amount"} {
		if _, ok := cols[required]; !ok {
			return nil, nil, &domain.ErrValidation{Field: "file", Message: fmt.Sprintf("missing column %q", required)}
		}
	}

	var (
		txs     []domain.Transaction
		skipped []domain.RowError
	)
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			line := 0
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				line = pe.StartLine
			}
			skipped = append(skipped, domain.RowError{Line: line, Reason: err.Error()})
			continue
		}
		// Line the record starts on; quoted fields may span several lines.
		line, _ := cr.FieldPos(0)

		field := func(name string) string {
			i, ok := cols[name]
			if !ok || i >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[i])
		}

		date, ok := domain.ParseDate(field("date"))
		if !ok {
			skipped = append(skipped, domain.RowError{Line: line, Reason: fmt.Sprintf("invalid date %q", field("date"))})
			continue
		}
		category := field("category")
		if category == "" {
			skipped = append(skipped, domain.RowError{Line: line, Reason: "empty category"})
			continue
		}
		amount, err := domain.ParseAmount(field("amount"))
		if err != nil {
			skipped = append(skipped, domain.RowError{Line: line, Reason: fmt.Sprintf("invalid amount %q", field("amount"))})
			continue
		}
		txs = append(txs, domain.Transaction{
			Date:     date,
			Category: category,
			Amount:   amount,
			Note:     field("note"),
		})
	}
	return txs, skipped, nil
}

// Write renders txs with Header as the first row.
func Write(w io.Writer, txs []domain.Transaction) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, t := range txs {
		if err := cw.Write([]string{t.DateString(), t.Category, t.Amount.String(), t.Note}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
