// Package report shapes ledger data for the owner dashboard and the
// spreadsheet export.
package report

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/tv-reposteria/api/internal/database"
)

const (
	EntriesSheet = "Ledger"
	SummarySheet = "Monthly"
)

var entryHeaders = []string{"Date", "Type", "Description", "Amount", "Order"}

var summaryHeaders = []string{"Month", "Income", "Expenses", "Balance"}

// Month is one bucket of the dashboard series.
type Month struct {
	Month    string          `json:"month"`
	Income   decimal.Decimal `json:"income"`
	Expenses decimal.Decimal `json:"expenses"`
	Balance  decimal.Decimal `json:"balance"`
}

// Dashboard summarizes the ledger over a date range. Income is net of
// sale reversals; expenses are purchases as a positive figure.
type Dashboard struct {
	Income   decimal.Decimal `json:"income"`
	Expenses decimal.Decimal `json:"expenses"`
	Balance  decimal.Decimal `json:"balance"`
	Months   []Month         `json:"months"`
}

func BuildDashboard(totals database.GetLedgerTotalsRow, months []database.ListLedgerMonthlyTotalsRow) (Dashboard, error) {
	income, err := parseAmount(totals.Income)
	if err != nil {
		return Dashboard{}, errors.Wrap(err, "income total")
	}
	expenses, err := parseAmount(totals.Expenses)
	if err != nil {
		return Dashboard{}, errors.Wrap(err, "expenses total")
	}

	d := Dashboard{
		Income:   income,
		Expenses: expenses,
		Balance:  income.Sub(expenses),
		Months:   make([]Month, 0, len(months)),
	}
	for _, m := range months {
		in, err := parseAmount(m.Income)
		if err != nil {
			return Dashboard{}, errors.Wrapf(err, "income for %s", m.Month)
		}
		out, err := parseAmount(m.Expenses)
		if err != nil {
			return Dashboard{}, errors.Wrapf(err, "expenses for %s", m.Month)
		}
		d.Months = append(d.Months, Month{
			Month:    m.Month,
			Income:   in,
			Expenses: out,
			Balance:  in.Sub(out),
		})
	}
	return d, nil
}

func parseAmount(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}

// LedgerWorkbook renders entries on one sheet and the monthly series on a
// second. The caller owns the returned file and must Close it.
func LedgerWorkbook(entries []database.LedgerEntry, months []Month) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", EntriesSheet); err != nil {
		f.Close()
		return nil, errors.Wrap(err, "rename sheet")
	}
	if _, err := f.NewSheet(SummarySheet); err != nil {
		f.Close()
		return nil, errors.Wrap(err, "add summary sheet")
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		f.Close()
		return nil, errors.Wrap(err, "header style")
	}
	totalStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		f.Close()
		return nil, errors.Wrap(err, "total style")
	}

	entriesSheet := &sheetWriter{f: f, sheet: EntriesSheet}
	entriesSheet.headers(entryHeaders, headerStyle)
	total := decimal.Zero
	for i, e := range entries {
		row := i + 2
		amount := numericToDecimal(e.Amount)
		total = total.Add(amount)

		entriesSheet.set(fmt.Sprintf("A%d", row), formatDate(e.EntryDate))
		entriesSheet.set(fmt.Sprintf("B%d", row), e.EntryType)
		entriesSheet.set(fmt.Sprintf("C%d", row), e.Description)
		entriesSheet.set(fmt.Sprintf("D%d", row), amount.InexactFloat64())
		if e.OrderID.Valid {
			entriesSheet.set(fmt.Sprintf("E%d", row), uuid.UUID(e.OrderID.Bytes).String())
		}
	}
	totalRow := len(entries) + 2
	entriesSheet.set(fmt.Sprintf("A%d", totalRow), "Total")
	entriesSheet.set(fmt.Sprintf("D%d", totalRow), total.InexactFloat64())
	entriesSheet.style(fmt.Sprintf("A%d", totalRow), fmt.Sprintf("E%d", totalRow), totalStyle)
	entriesSheet.widths([]float64{12, 16, 40, 14, 38})
	if entriesSheet.err != nil {
		f.Close()
		return nil, entriesSheet.err
	}

	summarySheet := &sheetWriter{f: f, sheet: SummarySheet}
	summarySheet.headers(summaryHeaders, headerStyle)
	for i, m := range months {
		row := i + 2
		summarySheet.set(fmt.Sprintf("A%d", row), m.Month)
		summarySheet.set(fmt.Sprintf("B%d", row), m.Income.InexactFloat64())
		summarySheet.set(fmt.Sprintf("C%d", row), m.Expenses.InexactFloat64())
		summarySheet.set(fmt.Sprintf("D%d", row), m.Balance.InexactFloat64())
	}
	summarySheet.widths([]float64{10, 14, 14, 14})
	if summarySheet.err != nil {
		f.Close()
		return nil, summarySheet.err
	}

	return f, nil
}

// Filename names an export for the given range; zero times are open ends.
func Filename(from, to time.Time) string {
	name := "ledger"
	if !from.IsZero() {
		name += "_" + from.Format("2006-01-02")
	}
	if !to.IsZero() {
		name += "_to_" + to.Format("2006-01-02")
	}
	return name + ".xlsx"
}

// sheetWriter writes to one sheet and keeps the first error; later calls
// are no-ops once it is set.
type sheetWriter struct {
	f     *excelize.File
	sheet string
	err   error
}

func (w *sheetWriter) set(cell string, value interface{}) {
	if w.err != nil {
		return
	}
	if err := w.f.SetCellValue(w.sheet, cell, value); err != nil {
		w.err = errors.Wrapf(err, "write %s!%s", w.sheet, cell)
	}
}

func (w *sheetWriter) style(from, to string, style int) {
	if w.err != nil {
		return
	}
	if err := w.f.SetCellStyle(w.sheet, from, to, style); err != nil {
		w.err = errors.Wrapf(err, "style %s!%s:%s", w.sheet, from, to)
	}
}

func (w *sheetWriter) headers(headers []string, style int) {
	for i, h := range headers {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			if w.err == nil {
				w.err = errors.Wrapf(err, "header column %d", i+1)
			}
			return
		}
		w.set(col+"1", h)
		w.style(col+"1", col+"1", style)
	}
}

func (w *sheetWriter) widths(widths []float64) {
	for i, width := range widths {
		if w.err != nil {
			return
		}
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			w.err = errors.Wrapf(err, "width column %d", i+1)
			return
		}
		if err := w.f.SetColWidth(w.sheet, col, col, width); err != nil {
			w.err = errors.Wrapf(err, "set width of %s!%s", w.sheet, col)
		}
	}
}

func formatDate(d pgtype.Date) string {
	if !d.Valid {
		return ""
	}
	return d.Time.Format("2006-01-02")
}

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return decimal.Zero
	}
	return d
}
