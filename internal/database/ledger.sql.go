package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const ledgerEntryColumns = `id, entry_date, amount, description, entry_type, order_id, created_at`

func scanLedgerEntry(row interface{ Scan(...any) error }) (LedgerEntry, error) {
	var i LedgerEntry
	err := row.Scan(
		&i.ID,
		&i.EntryDate,
		&i.Amount,
		&i.Description,
		&i.EntryType,
		&i.OrderID,
		&i.CreatedAt,
	)
	return i, err
}

const createLedgerEntry = `INSERT INTO ledger_entries (entry_date, amount, description, entry_type, order_id)
VALUES ($1, $2, $3, $4, $5)
RETURNING ` + ledgerEntryColumns

type CreateLedgerEntryParams struct {
	EntryDate   pgtype.Date    `json:"entry_date"`
	Amount      pgtype.Numeric `json:"amount"`
	Description string         `json:"description"`
	EntryType   string         `json:"entry_type"`
	OrderID     pgtype.UUID    `json:"order_id"`
}

func (q *Queries) CreateLedgerEntry(ctx context.Context, arg CreateLedgerEntryParams) (LedgerEntry, error) {
	row := q.db.QueryRow(ctx, createLedgerEntry,
		arg.EntryDate,
		arg.Amount,
		arg.Description,
		arg.EntryType,
		arg.OrderID,
	)
	return scanLedgerEntry(row)
}

const listLedgerEntries = `SELECT ` + ledgerEntryColumns + `
FROM ledger_entries
WHERE ($1::date IS NULL OR entry_date >= $1)
  AND ($2::date IS NULL OR entry_date <= $2)
  AND ($3::text IS NULL OR entry_type = $3)
ORDER BY entry_date DESC, created_at DESC, id DESC
LIMIT $4 OFFSET $5
`

type ListLedgerEntriesParams struct {
	FromDate  pgtype.Date `json:"from_date"`
	ToDate    pgtype.Date `json:"to_date"`
	EntryType pgtype.Text `json:"entry_type"`
	Limit     int32       `json:"limit"`
	Offset    int32       `json:"offset"`
}

func (q *Queries) ListLedgerEntries(ctx context.Context, arg ListLedgerEntriesParams) ([]LedgerEntry, error) {
	rows, err := q.db.Query(ctx, listLedgerEntries,
		arg.FromDate,
		arg.ToDate,
		arg.EntryType,
		arg.Limit,
		arg.Offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []LedgerEntry{}
	for rows.Next() {
		i, err := scanLedgerEntry(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listLedgerEntriesByOrder = `SELECT ` + ledgerEntryColumns + `
FROM ledger_entries
WHERE order_id = $1
ORDER BY created_at
`

func (q *Queries) ListLedgerEntriesByOrder(ctx context.Context, orderID pgtype.UUID) ([]LedgerEntry, error) {
	rows, err := q.db.Query(ctx, listLedgerEntriesByOrder, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []LedgerEntry{}
	for rows.Next() {
		i, err := scanLedgerEntry(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getLedgerTotals = `SELECT
    COALESCE(SUM(amount) FILTER (WHERE entry_type IN ('SALE', 'SALE_REVERSAL')), 0)::text AS income,
    COALESCE(-SUM(amount) FILTER (WHERE entry_type = 'PURCHASE'), 0)::text AS expenses
FROM ledger_entries
WHERE ($1::date IS NULL OR entry_date >= $1)
  AND ($2::date IS NULL OR entry_date <= $2)
`

type GetLedgerTotalsParams struct {
	FromDate pgtype.Date `json:"from_date"`
	ToDate   pgtype.Date `json:"to_date"`
}

type GetLedgerTotalsRow struct {
	Income   string `json:"income"`
	Expenses string `json:"expenses"`
}

func (q *Queries) GetLedgerTotals(ctx context.Context, arg GetLedgerTotalsParams) (GetLedgerTotalsRow, error) {
	row := q.db.QueryRow(ctx, getLedgerTotals, arg.FromDate, arg.ToDate)
	var i GetLedgerTotalsRow
	err := row.Scan(&i.Income, &i.Expenses)
	return i, err
}

const listLedgerMonthlyTotals = `SELECT
    to_char(entry_date, 'YYYY-MM') AS month,
    COALESCE(SUM(amount) FILTER (WHERE entry_type IN ('SALE', 'SALE_REVERSAL')), 0)::text AS income,
    COALESCE(-SUM(amount) FILTER (WHERE entry_type = 'PURCHASE'), 0)::text AS expenses
FROM ledger_entries
WHERE ($1::date IS NULL OR entry_date >= $1)
  AND ($2::date IS NULL OR entry_date <= $2)
GROUP BY month
ORDER BY month
`

type ListLedgerMonthlyTotalsParams struct {
	FromDate pgtype.Date `json:"from_date"`
	ToDate   pgtype.Date `json:"to_date"`
}

type ListLedgerMonthlyTotalsRow struct {
	Month    string `json:"month"`
	Income   string `json:"income"`
	Expenses string `json:"expenses"`
}

func (q *Queries) ListLedgerMonthlyTotals(ctx context.Context, arg ListLedgerMonthlyTotalsParams) ([]ListLedgerMonthlyTotalsRow, error) {
	rows, err := q.db.Query(ctx, listLedgerMonthlyTotals, arg.FromDate, arg.ToDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []ListLedgerMonthlyTotalsRow{}
	for rows.Next() {
		var i ListLedgerMonthlyTotalsRow
		if err := rows.Scan(&i.Month, &i.Income, &i.Expenses); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

