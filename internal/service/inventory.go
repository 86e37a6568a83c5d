package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/tv-reposteria/api/internal/database"
	"github.com/tv-reposteria/api/internal/enum"
	"github.com/tv-reposteria/api/internal/unit"
)

// Errors returned by the inventory service.
var (
	ErrItemNotFound     = errors.New("inventory item not found")
	ErrNonCanonicalUnit = errors.New("unit must be one of kg, g, L, mL, unit")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidDate      = errors.New("invalid date")
)

// InventoryStore defines the DB methods needed to create items and price
// them. Satisfied by *database.Queries.
type InventoryStore interface {
	GetInventoryItem(ctx context.Context, id uuid.UUID) (database.InventoryItem, error)
	GetInventoryItemByName(ctx context.Context, name string) (database.InventoryItem, error)
	CreateInventoryItem(ctx context.Context, arg database.CreateInventoryItemParams) (database.InventoryItem, error)
	UpdateInventoryItemCost(ctx context.Context, arg database.UpdateInventoryItemCostParams) (database.InventoryItem, error)
}

// PurchaseStore defines the DB methods needed to book a purchase.
// Satisfied by *database.Queries (and its WithTx variant).
type PurchaseStore interface {
	GetInventoryItemForUpdate(ctx context.Context, id uuid.UUID) (database.InventoryItem, error)
	ApplyInventoryPurchase(ctx context.Context, arg database.ApplyInventoryPurchaseParams) (database.InventoryItem, error)
	CreateLedgerEntry(ctx context.Context, arg database.CreateLedgerEntryParams) (database.LedgerEntry, error)
}

// NewPurchaseStore creates a PurchaseStore from a DBTX (pool or tx).
type NewPurchaseStore func(db database.DBTX) PurchaseStore

// Package describes a reference package: Quantity of Unit sold for Price.
type Package struct {
	Quantity string
	Unit     string
	Price    string
}

// CreateItemRequest is the input for a new inventory item.
type CreateItemRequest struct {
	Name    string
	Unit    string
	Package *Package
}

// PurchaseRequest is a purchase of Quantity Unit of an item for TotalPaid.
type PurchaseRequest struct {
	Quantity    string
	Unit        string
	TotalPaid   string
	Date        string // YYYY-MM-DD, defaults to today
	Description string
}

// PurchaseResult is the outcome of a purchase.
type PurchaseResult struct {
	Item        database.InventoryItem
	Normalized  decimal.Decimal
	UnitCost    decimal.Decimal
	LedgerEntry database.LedgerEntry
}

// InventoryService handles inventory items, their prices and purchases.
type InventoryService struct {
	store    InventoryStore
	pool     TxBeginner
	newStore NewPurchaseStore
	loc      *time.Location
	now      func() time.Time
}

// NewInventoryService creates a new InventoryService.
func NewInventoryService(store InventoryStore, pool TxBeginner, newStore NewPurchaseStore, loc *time.Location) *InventoryService {
	if loc == nil {
		loc = time.UTC
	}
	return &InventoryService{store: store, pool: pool, newStore: newStore, loc: loc, now: time.Now}
}

// CreateItem adds an item with zero stock. When a reference package is given
// the unit cost is derived from it.
func (s *InventoryService) CreateItem(ctx context.Context, req CreateItemRequest) (database.InventoryItem, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return database.InventoryItem{}, ErrNameRequired
	}
	canonical, err := unit.Parse(req.Unit)
	if err != nil || !canonical.IsCanonical() {
		return database.InventoryItem{}, ErrNonCanonicalUnit
	}

	unitCost := decimal.Zero
	if req.Package != nil {
		unitCost, err = packageUnitCost(*req.Package, canonical)
		if err != nil {
			return database.InventoryItem{}, err
		}
	}

	_, err = s.store.GetInventoryItemByName(ctx, name)
	if err == nil {
		return database.InventoryItem{}, errors.Wrapf(ErrAlreadyExists, "inventory item %q", name)
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return database.InventoryItem{}, errors.Wrap(err, "check inventory item name")
	}

	item, err := s.store.CreateInventoryItem(ctx, database.CreateInventoryItemParams{
		Name:          name,
		Unit:          string(canonical),
		StockQuantity: quantityToNumeric(decimal.Zero),
		UnitCost:      quantityToNumeric(unitCost),
	})
	if err != nil {
		if isUniqueViolation(err) {
			return database.InventoryItem{}, errors.Wrapf(ErrAlreadyExists, "inventory item %q", name)
		}
		return database.InventoryItem{}, errors.Wrap(err, "create inventory item")
	}
	return item, nil
}

// UpdateMarketPrice re-derives an item's unit cost from a current package price.
// Stock is left untouched.
func (s *InventoryService) UpdateMarketPrice(ctx context.Context, id uuid.UUID, pkg Package) (database.InventoryItem, error) {
	item, err := s.store.GetInventoryItem(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.InventoryItem{}, ErrItemNotFound
		}
		return database.InventoryItem{}, errors.Wrap(err, "get inventory item")
	}

	unitCost, err := packageUnitCost(pkg, unit.Unit(item.Unit))
	if err != nil {
		return database.InventoryItem{}, err
	}

	updated, err := s.store.UpdateInventoryItemCost(ctx, database.UpdateInventoryItemCostParams{
		ID:       id,
		UnitCost: quantityToNumeric(unitCost),
	})
	if err != nil {
		return database.InventoryItem{}, errors.Wrap(err, "update unit cost")
	}
	return updated, nil
}

func packageUnitCost(pkg Package, canonical unit.Unit) (decimal.Decimal, error) {
	qty, err := decimal.NewFromString(pkg.Quantity)
	if err != nil || !qty.IsPositive() {
		return decimal.Zero, ErrInvalidQuantity
	}
	price, err := decimal.NewFromString(pkg.Price)
	if err != nil || price.IsNegative() {
		return decimal.Zero, ErrInvalidAmount
	}
	u, err := unit.Parse(pkg.Unit)
	if err != nil {
		return decimal.Zero, err
	}
	return unit.UnitPrice(price, qty, u, canonical)
}

// RecordPurchase adds the purchased quantity to stock, sets the unit cost to
// what was paid for it and books the expense, all in one transaction.
func (s *InventoryService) RecordPurchase(ctx context.Context, id uuid.UUID, req PurchaseRequest) (*PurchaseResult, error) {
	qty, err := decimal.NewFromString(req.Quantity)
	if err != nil || !qty.IsPositive() {
		return nil, ErrInvalidQuantity
	}
	paid, err := decimal.NewFromString(req.TotalPaid)
	if err != nil || paid.IsNegative() {
		return nil, ErrInvalidAmount
	}
	from, err := unit.Parse(req.Unit)
	if err != nil {
		return nil, err
	}
	entryDate := dateIn(s.now(), s.loc)
	if req.Date != "" {
		entryDate, err = time.Parse(time.DateOnly, req.Date)
		if err != nil {
			return nil, ErrInvalidDate
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "begin tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	item, err := store.GetInventoryItemForUpdate(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrItemNotFound
		}
		return nil, errors.Wrap(err, "get inventory item")
	}

	normalized, err := unit.Normalize(qty, from, unit.Unit(item.Unit))
	if err != nil {
		return nil, err
	}
	if !normalized.IsPositive() {
		return nil, ErrInvalidQuantity
	}
	unitCost := paid.Div(normalized)

	updated, err := store.ApplyInventoryPurchase(ctx, database.ApplyInventoryPurchaseParams{
		ID:       id,
		Quantity: quantityToNumeric(normalized),
		UnitCost: quantityToNumeric(unitCost),
	})
	if err != nil {
		return nil, errors.Wrap(err, "apply purchase")
	}

	description := strings.TrimSpace(req.Description)
	if description == "" {
		description = "Purchase " + item.Name + " " + qty.String() + " " + string(from)
	}
	entry, err := store.CreateLedgerEntry(ctx, database.CreateLedgerEntryParams{
		EntryDate:   pgDate(entryDate),
		Amount:      decimalToNumeric(paid.Neg()),
		Description: description,
		EntryType:   enum.LedgerEntryPurchase,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create ledger entry")
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, errors.Wrap(err, "commit tx")
	}

	log.WithFields(log.Fields{
		"item":       item.Name,
		"quantity":   normalized.String(),
		"unit":       item.Unit,
		"total_paid": paid.StringFixed(2),
	}).Info("purchase recorded")

	return &PurchaseResult{
		Item:        updated,
		Normalized:  normalized,
		UnitCost:    unitCost,
		LedgerEntry: entry,
	}, nil
}
