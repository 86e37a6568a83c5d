package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const stockMovementColumns = `id, order_id, inventory_item_id, item_name, unit, delta, movement_type, created_at`

func scanStockMovement(row interface{ Scan(...any) error }) (StockMovement, error) {
	var i StockMovement
	err := row.Scan(
		&i.ID,
		&i.OrderID,
		&i.InventoryItemID,
		&i.ItemName,
		&i.Unit,
		&i.Delta,
		&i.MovementType,
		&i.CreatedAt,
	)
	return i, err
}

const createStockMovement = `INSERT INTO stock_movements (order_id, inventory_item_id, item_name, unit, delta, movement_type)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING ` + stockMovementColumns

type CreateStockMovementParams struct {
	OrderID         uuid.UUID      `json:"order_id"`
	InventoryItemID pgtype.UUID    `json:"inventory_item_id"`
	ItemName        string         `json:"item_name"`
	Unit            string         `json:"unit"`
	Delta           pgtype.Numeric `json:"delta"`
	MovementType    string         `json:"movement_type"`
}

func (q *Queries) CreateStockMovement(ctx context.Context, arg CreateStockMovementParams) (StockMovement, error) {
	row := q.db.QueryRow(ctx, createStockMovement,
		arg.OrderID,
		arg.InventoryItemID,
		arg.ItemName,
		arg.Unit,
		arg.Delta,
		arg.MovementType,
	)
	return scanStockMovement(row)
}

const listStockMovementsByOrder = `SELECT ` + stockMovementColumns + `
FROM stock_movements
WHERE order_id = $1 AND movement_type = $2
ORDER BY created_at, id
`

type ListStockMovementsByOrderParams struct {
	OrderID      uuid.UUID `json:"order_id"`
	MovementType string    `json:"movement_type"`
}

func (q *Queries) ListStockMovementsByOrder(ctx context.Context, arg ListStockMovementsByOrderParams) ([]StockMovement, error) {
	rows, err := q.db.Query(ctx, listStockMovementsByOrder, arg.OrderID, arg.MovementType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []StockMovement{}
	for rows.Next() {
		i, err := scanStockMovement(rows)
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
