package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const orderColumns = `id, order_number, customer_name, customer_contact, delivery_date, delivery_time, detail_json, total_amount, notes, status, created_by, created_at, updated_at`

func scanOrder(row interface{ Scan(...any) error }) (Order, error) {
	var i Order
	err := row.Scan(
		&i.ID,
		&i.OrderNumber,
		&i.CustomerName,
		&i.CustomerContact,
		&i.DeliveryDate,
		&i.DeliveryTime,
		&i.DetailJson,
		&i.TotalAmount,
		&i.Notes,
		&i.Status,
		&i.CreatedBy,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const getNextOrderNumber = `SELECT COALESCE(MAX(CAST(substring(order_number FROM 5) AS INTEGER)), 0) + 1
FROM orders
WHERE order_number LIKE 'TVR-%'
`

func (q *Queries) GetNextOrderNumber(ctx context.Context) (int32, error) {
	row := q.db.QueryRow(ctx, getNextOrderNumber)
	var next int32
	err := row.Scan(&next)
	return next, err
}

const createOrder = `INSERT INTO orders (
    order_number, customer_name, customer_contact, delivery_date, delivery_time,
    detail_json, total_amount, notes, status, created_by
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
RETURNING ` + orderColumns

type CreateOrderParams struct {
	OrderNumber     string         `json:"order_number"`
	CustomerName    string         `json:"customer_name"`
	CustomerContact pgtype.Text    `json:"customer_contact"`
	DeliveryDate    pgtype.Date    `json:"delivery_date"`
	DeliveryTime    pgtype.Text    `json:"delivery_time"`
	DetailJson      []byte         `json:"detail_json"`
	TotalAmount     pgtype.Numeric `json:"total_amount"`
	Notes           pgtype.Text    `json:"notes"`
	Status          string         `json:"status"`
	CreatedBy       pgtype.UUID    `json:"created_by"`
}

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx, createOrder,
		arg.OrderNumber,
		arg.CustomerName,
		arg.CustomerContact,
		arg.DeliveryDate,
		arg.DeliveryTime,
		arg.DetailJson,
		arg.TotalAmount,
		arg.Notes,
		arg.Status,
		arg.CreatedBy,
	)
	return scanOrder(row)
}

const getOrder = `SELECT ` + orderColumns + `
FROM orders
WHERE id = $1
`

func (q *Queries) GetOrder(ctx context.Context, id uuid.UUID) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrder, id))
}

const getOrderForUpdate = `SELECT ` + orderColumns + `
FROM orders
WHERE id = $1
FOR UPDATE
`

func (q *Queries) GetOrderForUpdate(ctx context.Context, id uuid.UUID) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrderForUpdate, id))
}

const listOrders = `SELECT ` + orderColumns + `
FROM orders
WHERE ($1::text IS NULL OR status = $1)
  AND (NOT $2::boolean OR status NOT IN ('DELIVERED', 'CANCELLED'))
  AND ($3::date IS NULL OR delivery_date >= $3)
  AND ($4::date IS NULL OR delivery_date <= $4)
ORDER BY delivery_date, created_at
LIMIT $5 OFFSET $6
`

type ListOrdersParams struct {
	Status     pgtype.Text `json:"status"`
	ActiveOnly bool        `json:"active_only"`
	FromDate   pgtype.Date `json:"from_date"`
	ToDate     pgtype.Date `json:"to_date"`
	Limit      int32       `json:"limit"`
	Offset     int32       `json:"offset"`
}

func (q *Queries) ListOrders(ctx context.Context, arg ListOrdersParams) ([]Order, error) {
	rows, err := q.db.Query(ctx, listOrders,
		arg.Status,
		arg.ActiveOnly,
		arg.FromDate,
		arg.ToDate,
		arg.Limit,
		arg.Offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Order{}
	for rows.Next() {
		i, err := scanOrder(rows)
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

const updateOrderStatus = `UPDATE orders
SET status = $2, updated_at = now()
WHERE id = $1 AND status = $3
RETURNING ` + orderColumns

type UpdateOrderStatusParams struct {
	ID         uuid.UUID `json:"id"`
	Status     string    `json:"status"`
	PrevStatus string    `json:"prev_status"`
}

func (q *Queries) UpdateOrderStatus(ctx context.Context, arg UpdateOrderStatusParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, updateOrderStatus, arg.ID, arg.Status, arg.PrevStatus))
}
