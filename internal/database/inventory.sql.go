package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const inventoryItemColumns = `id, name, unit, stock_quantity, unit_cost, created_at, updated_at`

func scanInventoryItem(row interface{ Scan(...any) error }) (InventoryItem, error) {
	var i InventoryItem
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Unit,
		&i.StockQuantity,
		&i.UnitCost,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const listInventoryItems = `SELECT ` + inventoryItemColumns + `
FROM inventory_items
ORDER BY name
`

func (q *Queries) ListInventoryItems(ctx context.Context) ([]InventoryItem, error) {
	rows, err := q.db.Query(ctx, listInventoryItems)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []InventoryItem{}
	for rows.Next() {
		i, err := scanInventoryItem(rows)
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

const getInventoryItem = `SELECT ` + inventoryItemColumns + `
FROM inventory_items
WHERE id = $1
`

func (q *Queries) GetInventoryItem(ctx context.Context, id uuid.UUID) (InventoryItem, error) {
	return scanInventoryItem(q.db.QueryRow(ctx, getInventoryItem, id))
}

const getInventoryItemForUpdate = `SELECT ` + inventoryItemColumns + `
FROM inventory_items
WHERE id = $1
FOR UPDATE
`

func (q *Queries) GetInventoryItemForUpdate(ctx context.Context, id uuid.UUID) (InventoryItem, error) {
	return scanInventoryItem(q.db.QueryRow(ctx, getInventoryItemForUpdate, id))
}

const getInventoryItemByName = `SELECT ` + inventoryItemColumns + `
FROM inventory_items
WHERE name = $1
`

func (q *Queries) GetInventoryItemByName(ctx context.Context, name string) (InventoryItem, error) {
	return scanInventoryItem(q.db.QueryRow(ctx, getInventoryItemByName, name))
}

const createInventoryItem = `INSERT INTO inventory_items (name, unit, stock_quantity, unit_cost)
VALUES ($1, $2, $3, $4)
RETURNING ` + inventoryItemColumns

type CreateInventoryItemParams struct {
	Name          string         `json:"name"`
	Unit          string         `json:"unit"`
	StockQuantity pgtype.Numeric `json:"stock_quantity"`
	UnitCost      pgtype.Numeric `json:"unit_cost"`
}

func (q *Queries) CreateInventoryItem(ctx context.Context, arg CreateInventoryItemParams) (InventoryItem, error) {
	row := q.db.QueryRow(ctx, createInventoryItem,
		arg.Name,
		arg.Unit,
		arg.StockQuantity,
		arg.UnitCost,
	)
	return scanInventoryItem(row)
}

const updateInventoryItemCost = `UPDATE inventory_items
SET unit_cost = $2, updated_at = now()
WHERE id = $1
RETURNING ` + inventoryItemColumns

type UpdateInventoryItemCostParams struct {
	ID       uuid.UUID      `json:"id"`
	UnitCost pgtype.Numeric `json:"unit_cost"`
}

func (q *Queries) UpdateInventoryItemCost(ctx context.Context, arg UpdateInventoryItemCostParams) (InventoryItem, error) {
	return scanInventoryItem(q.db.QueryRow(ctx, updateInventoryItemCost, arg.ID, arg.UnitCost))
}

// Stock is adjusted relative to the stored value so concurrent adjustments
// never overwrite each other.
const adjustInventoryStock = `UPDATE inventory_items
SET stock_quantity = stock_quantity + $2, updated_at = now()
WHERE id = $1
RETURNING ` + inventoryItemColumns

type AdjustInventoryStockParams struct {
	ID    uuid.UUID      `json:"id"`
	Delta pgtype.Numeric `json:"delta"`
}

func (q *Queries) AdjustInventoryStock(ctx context.Context, arg AdjustInventoryStockParams) (InventoryItem, error) {
	return scanInventoryItem(q.db.QueryRow(ctx, adjustInventoryStock, arg.ID, arg.Delta))
}

const applyInventoryPurchase = `UPDATE inventory_items
SET stock_quantity = stock_quantity + $2, unit_cost = $3, updated_at = now()
WHERE id = $1
RETURNING ` + inventoryItemColumns

type ApplyInventoryPurchaseParams struct {
	ID       uuid.UUID      `json:"id"`
	Quantity pgtype.Numeric `json:"quantity"`
	UnitCost pgtype.Numeric `json:"unit_cost"`
}

func (q *Queries) ApplyInventoryPurchase(ctx context.Context, arg ApplyInventoryPurchaseParams) (InventoryItem, error) {
	return scanInventoryItem(q.db.QueryRow(ctx, applyInventoryPurchase, arg.ID, arg.Quantity, arg.UnitCost))
}

const deleteInventoryItem = `DELETE FROM inventory_items
WHERE id = $1
RETURNING id
`

func (q *Queries) DeleteInventoryItem(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	row := q.db.QueryRow(ctx, deleteInventoryItem, id)
	var deleted uuid.UUID
	err := row.Scan(&deleted)
	return deleted, err
}
