package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type InventoryItem struct {
	ID            uuid.UUID      `json:"id"`
	Name          string         `json:"name"`
	Unit          string         `json:"unit"`
	StockQuantity pgtype.Numeric `json:"stock_quantity"`
	UnitCost      pgtype.Numeric `json:"unit_cost"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

type LedgerEntry struct {
	ID          uuid.UUID      `json:"id"`
	EntryDate   pgtype.Date    `json:"entry_date"`
	Amount      pgtype.Numeric `json:"amount"`
	Description string         `json:"description"`
	EntryType   string         `json:"entry_type"`
	OrderID     pgtype.UUID    `json:"order_id"`
	CreatedAt   time.Time      `json:"created_at"`
}

type Order struct {
	ID              uuid.UUID      `json:"id"`
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
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

type ProductBase struct {
	ID        uuid.UUID   `json:"id"`
	Name      string      `json:"name"`
	Category  string      `json:"category"`
	ImageUrl  pgtype.Text `json:"image_url"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

type StockMovement struct {
	ID              uuid.UUID      `json:"id"`
	OrderID         uuid.UUID      `json:"order_id"`
	InventoryItemID pgtype.UUID    `json:"inventory_item_id"`
	ItemName        string         `json:"item_name"`
	Unit            string         `json:"unit"`
	Delta           pgtype.Numeric `json:"delta"`
	MovementType    string         `json:"movement_type"`
	CreatedAt       time.Time      `json:"created_at"`
}

type User struct {
	ID             uuid.UUID `json:"id"`
	Username       string    `json:"username"`
	HashedPassword string    `json:"hashed_password"`
	FullName       string    `json:"full_name"`
	Role           string    `json:"role"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type Variation struct {
	ID              uuid.UUID      `json:"id"`
	ProductBaseID   uuid.UUID      `json:"product_base_id"`
	Name            string         `json:"name"`
	IngredientsJson []byte         `json:"ingredients_json"`
	SalePrice       pgtype.Numeric `json:"sale_price"`
	YieldFactor     int32          `json:"yield_factor"`
	CostingMode     string         `json:"costing_mode"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}
