package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const productBaseColumns = `id, name, category, image_url, created_at, updated_at`

func scanProductBase(row interface{ Scan(...any) error }) (ProductBase, error) {
	var i ProductBase
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.Category,
		&i.ImageUrl,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const listProductBases = `SELECT ` + productBaseColumns + `
FROM product_bases
ORDER BY name
`

func (q *Queries) ListProductBases(ctx context.Context) ([]ProductBase, error) {
	rows, err := q.db.Query(ctx, listProductBases)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []ProductBase{}
	for rows.Next() {
		i, err := scanProductBase(rows)
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

const getProductBase = `SELECT ` + productBaseColumns + `
FROM product_bases
WHERE id = $1
`

func (q *Queries) GetProductBase(ctx context.Context, id uuid.UUID) (ProductBase, error) {
	return scanProductBase(q.db.QueryRow(ctx, getProductBase, id))
}

const getProductBaseByName = `SELECT ` + productBaseColumns + `
FROM product_bases
WHERE name = $1
`

func (q *Queries) GetProductBaseByName(ctx context.Context, name string) (ProductBase, error) {
	return scanProductBase(q.db.QueryRow(ctx, getProductBaseByName, name))
}

const createProductBase = `INSERT INTO product_bases (name, category, image_url)
VALUES ($1, $2, $3)
RETURNING ` + productBaseColumns

type CreateProductBaseParams struct {
	Name     string      `json:"name"`
	Category string      `json:"category"`
	ImageUrl pgtype.Text `json:"image_url"`
}

func (q *Queries) CreateProductBase(ctx context.Context, arg CreateProductBaseParams) (ProductBase, error) {
	return scanProductBase(q.db.QueryRow(ctx, createProductBase, arg.Name, arg.Category, arg.ImageUrl))
}

const updateProductBase = `UPDATE product_bases
SET name = $2, category = $3, image_url = $4, updated_at = now()
WHERE id = $1
RETURNING ` + productBaseColumns

type UpdateProductBaseParams struct {
	ID       uuid.UUID   `json:"id"`
	Name     string      `json:"name"`
	Category string      `json:"category"`
	ImageUrl pgtype.Text `json:"image_url"`
}

func (q *Queries) UpdateProductBase(ctx context.Context, arg UpdateProductBaseParams) (ProductBase, error) {
	return scanProductBase(q.db.QueryRow(ctx, updateProductBase, arg.ID, arg.Name, arg.Category, arg.ImageUrl))
}

const deleteProductBase = `DELETE FROM product_bases
WHERE id = $1
RETURNING id
`

func (q *Queries) DeleteProductBase(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	row := q.db.QueryRow(ctx, deleteProductBase, id)
	var deleted uuid.UUID
	err := row.Scan(&deleted)
	return deleted, err
}

const variationColumns = `id, product_base_id, name, ingredients_json, sale_price, yield_factor, costing_mode, created_at, updated_at`

func scanVariation(row interface{ Scan(...any) error }) (Variation, error) {
	var i Variation
	err := row.Scan(
		&i.ID,
		&i.ProductBaseID,
		&i.Name,
		&i.IngredientsJson,
		&i.SalePrice,
		&i.YieldFactor,
		&i.CostingMode,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const listVariationsByProductBase = `SELECT ` + variationColumns + `
FROM variations
WHERE product_base_id = $1
ORDER BY name
`

func (q *Queries) ListVariationsByProductBase(ctx context.Context, productBaseID uuid.UUID) ([]Variation, error) {
	rows, err := q.db.Query(ctx, listVariationsByProductBase, productBaseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Variation{}
	for rows.Next() {
		i, err := scanVariation(rows)
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

const getVariation = `SELECT ` + variationColumns + `
FROM variations
WHERE id = $1
`

func (q *Queries) GetVariation(ctx context.Context, id uuid.UUID) (Variation, error) {
	return scanVariation(q.db.QueryRow(ctx, getVariation, id))
}

const getVariationForOrder = `SELECT v.id, v.product_base_id, v.name, v.sale_price, pb.name AS base_name
FROM variations v
JOIN product_bases pb ON pb.id = v.product_base_id
WHERE v.id = $1
`

type GetVariationForOrderRow struct {
	ID            uuid.UUID      `json:"id"`
	ProductBaseID uuid.UUID      `json:"product_base_id"`
	Name          string         `json:"name"`
	SalePrice     pgtype.Numeric `json:"sale_price"`
	BaseName      string         `json:"base_name"`
}

func (q *Queries) GetVariationForOrder(ctx context.Context, id uuid.UUID) (GetVariationForOrderRow, error) {
	row := q.db.QueryRow(ctx, getVariationForOrder, id)
	var i GetVariationForOrderRow
	err := row.Scan(
		&i.ID,
		&i.ProductBaseID,
		&i.Name,
		&i.SalePrice,
		&i.BaseName,
	)
	return i, err
}

const createVariation = `INSERT INTO variations (product_base_id, name, ingredients_json, sale_price, yield_factor, costing_mode)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING ` + variationColumns

type CreateVariationParams struct {
	ProductBaseID   uuid.UUID      `json:"product_base_id"`
	Name            string         `json:"name"`
	IngredientsJson []byte         `json:"ingredients_json"`
	SalePrice       pgtype.Numeric `json:"sale_price"`
	YieldFactor     int32          `json:"yield_factor"`
	CostingMode     string         `json:"costing_mode"`
}

func (q *Queries) CreateVariation(ctx context.Context, arg CreateVariationParams) (Variation, error) {
	row := q.db.QueryRow(ctx, createVariation,
		arg.ProductBaseID,
		arg.Name,
		arg.IngredientsJson,
		arg.SalePrice,
		arg.YieldFactor,
		arg.CostingMode,
	)
	return scanVariation(row)
}

const updateVariation = `UPDATE variations
SET name = $3, ingredients_json = $4, sale_price = $5, yield_factor = $6, costing_mode = $7, updated_at = now()
WHERE id = $1 AND product_base_id = $2
RETURNING ` + variationColumns

type UpdateVariationParams struct {
	ID              uuid.UUID      `json:"id"`
	ProductBaseID   uuid.UUID      `json:"product_base_id"`
	Name            string         `json:"name"`
	IngredientsJson []byte         `json:"ingredients_json"`
	SalePrice       pgtype.Numeric `json:"sale_price"`
	YieldFactor     int32          `json:"yield_factor"`
	CostingMode     string         `json:"costing_mode"`
}

func (q *Queries) UpdateVariation(ctx context.Context, arg UpdateVariationParams) (Variation, error) {
	row := q.db.QueryRow(ctx, updateVariation,
		arg.ID,
		arg.ProductBaseID,
		arg.Name,
		arg.IngredientsJson,
		arg.SalePrice,
		arg.YieldFactor,
		arg.CostingMode,
	)
	return scanVariation(row)
}

const deleteVariation = `DELETE FROM variations
WHERE id = $1 AND product_base_id = $2
RETURNING id
`

type DeleteVariationParams struct {
	ID            uuid.UUID `json:"id"`
	ProductBaseID uuid.UUID `json:"product_base_id"`
}

func (q *Queries) DeleteVariation(ctx context.Context, arg DeleteVariationParams) (uuid.UUID, error) {
	row := q.db.QueryRow(ctx, deleteVariation, arg.ID, arg.ProductBaseID)
	var deleted uuid.UUID
	err := row.Scan(&deleted)
	return deleted, err
}
