package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/tv-reposteria/api/internal/database"
	"github.com/tv-reposteria/api/internal/enum"
	"github.com/tv-reposteria/api/internal/recipe"
	"github.com/tv-reposteria/api/internal/unit"
)

// stockScale matches the scale of inventory_items.stock_quantity. Deltas are
// rounded to it before being applied so a return exactly undoes a delivery.
const stockScale = 4

// Reasons a line is left out of a stock update.
const (
	SkipNoVariation     = "variation not found"
	SkipBadRecipe       = "recipe could not be read"
	SkipNoItem          = "inventory item not found"
	SkipUnsupportedUnit = "unsupported unit conversion"
)

// StockStore defines the DB methods needed to move stock for an order.
// Satisfied by *database.Queries (and its WithTx variant).
type StockStore interface {
	GetVariation(ctx context.Context, id uuid.UUID) (database.Variation, error)
	GetInventoryItem(ctx context.Context, id uuid.UUID) (database.InventoryItem, error)
	GetInventoryItemByName(ctx context.Context, name string) (database.InventoryItem, error)
	AdjustInventoryStock(ctx context.Context, arg database.AdjustInventoryStockParams) (database.InventoryItem, error)
	CreateStockMovement(ctx context.Context, arg database.CreateStockMovementParams) (database.StockMovement, error)
	ListStockMovementsByOrder(ctx context.Context, arg database.ListStockMovementsByOrderParams) ([]database.StockMovement, error)
}

// StockAdjustment is the change applied to one inventory item.
type StockAdjustment struct {
	ItemID        uuid.UUID       `json:"item_id"`
	Item          string          `json:"item"`
	Unit          string          `json:"unit"`
	Before        decimal.Decimal `json:"before"`
	After         decimal.Decimal `json:"after"`
	Delta         decimal.Decimal `json:"delta"`
	NegativeStock bool            `json:"negative_stock"`
}

// SkippedLine is a recipe line that could not be applied.
type SkippedLine struct {
	Product    string `json:"product"`
	Ingredient string `json:"ingredient,omitempty"`
	Reason     string `json:"reason"`
}

// StockResult reports what a stock update did.
type StockResult struct {
	Adjustments []StockAdjustment `json:"adjustments"`
	Skipped     []SkippedLine     `json:"skipped"`
}

// pendingDelta accumulates the change for one item across all order lines.
type pendingDelta struct {
	itemID uuid.UUID
	name   string
	delta  decimal.Decimal
}

// stockRun collects the outcome of one stock update.
type stockRun struct {
	order  database.Order
	result StockResult
	logger *log.Entry
	deltas map[uuid.UUID]*pendingDelta
	sorted []uuid.UUID
}

func newStockRun(order database.Order) *stockRun {
	return &stockRun{
		order:  order,
		result: StockResult{Adjustments: []StockAdjustment{}, Skipped: []SkippedLine{}},
		logger: log.WithFields(log.Fields{
			"order_id":     order.ID,
			"order_number": order.OrderNumber,
		}),
		deltas: map[uuid.UUID]*pendingDelta{},
	}
}

func (run *stockRun) skip(product, ingredient, reason string) {
	run.logger.WithFields(log.Fields{
		"product":    product,
		"ingredient": ingredient,
		"reason":     reason,
	}).Warn("stock update skipped line")
	run.result.Skipped = append(run.result.Skipped, SkippedLine{Product: product, Ingredient: ingredient, Reason: reason})
}

func (run *stockRun) add(itemID uuid.UUID, name string, delta decimal.Decimal) {
	p, ok := run.deltas[itemID]
	if !ok {
		p = &pendingDelta{itemID: itemID, name: name, delta: decimal.Zero}
		run.deltas[itemID] = p
		run.sorted = append(run.sorted, itemID)
	}
	p.delta = p.delta.Add(delta)
}

// ApplyDelivery consumes the ingredients of every line of order and records
// each item's movement against the order.
func ApplyDelivery(ctx context.Context, store StockStore, order database.Order) (StockResult, error) {
	run := newStockRun(order)

	lines, err := recipe.DecodeLineItems(order.DetailJson)
	if err != nil {
		return run.result, errors.Wrapf(err, "order %s", order.OrderNumber)
	}

	for _, line := range lines {
		if line.VariationID == uuid.Nil {
			run.skip(line.Product, "", SkipNoVariation)
			continue
		}
		variation, err := store.GetVariation(ctx, line.VariationID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				run.skip(line.Product, "", SkipNoVariation)
				continue
			}
			return run.result, errors.Wrapf(err, "get variation %s", line.VariationID)
		}

		ingredients, err := recipe.DecodeIngredients(variation.IngredientsJson)
		if err != nil {
			run.skip(line.Product, "", SkipBadRecipe)
			continue
		}

		yield := decimal.NewFromInt32(variation.YieldFactor)
		if variation.YieldFactor < 1 {
			yield = decimal.NewFromInt(1)
		}
		sold := decimal.NewFromInt32(line.Quantity)

		for _, ing := range ingredients {
			item, err := resolveItem(ctx, store, ing)
			if err != nil {
				if errors.Is(err, pgx.ErrNoRows) {
					run.skip(line.Product, ing.Name, SkipNoItem)
					continue
				}
				return run.result, errors.Wrapf(err, "get inventory item %s", ing.Name)
			}

			qty, err := unit.Normalize(ing.Quantity, ing.Unit, unit.Unit(item.Unit))
			if err != nil {
				run.skip(line.Product, ing.Name, SkipUnsupportedUnit+": "+string(ing.Unit)+" -> "+item.Unit)
				continue
			}

			run.add(item.ID, item.Name, qty.Div(yield).Mul(sold).Neg())
		}
	}

	return run.apply(ctx, store, enum.StockMovementDelivery)
}

// ApplyCancellationReturn puts back exactly what ApplyDelivery recorded for
// order. Recipe edits or deletions made after delivery do not change it.
func ApplyCancellationReturn(ctx context.Context, store StockStore, order database.Order) (StockResult, error) {
	run := newStockRun(order)

	movements, err := store.ListStockMovementsByOrder(ctx, database.ListStockMovementsByOrderParams{
		OrderID:      order.ID,
		MovementType: enum.StockMovementDelivery,
	})
	if err != nil {
		return run.result, errors.Wrapf(err, "list stock movements for %s", order.OrderNumber)
	}

	for _, m := range movements {
		if !m.InventoryItemID.Valid {
			run.skip("", m.ItemName, SkipNoItem)
			continue
		}
		run.add(uuid.UUID(m.InventoryItemID.Bytes), m.ItemName, numericToDecimal(m.Delta).Neg())
	}

	return run.apply(ctx, store, enum.StockMovementReturn)
}

// apply writes the accumulated deltas and records them as movements of the
// given type.
func (run *stockRun) apply(ctx context.Context, store StockStore, movementType string) (StockResult, error) {
	for _, id := range run.sorted {
		p := run.deltas[id]
		delta := p.delta.Round(stockScale)
		if delta.IsZero() {
			continue
		}
		updated, err := store.AdjustInventoryStock(ctx, database.AdjustInventoryStockParams{
			ID:    id,
			Delta: quantityToNumeric(delta),
		})
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				run.skip("", p.name, SkipNoItem)
				continue
			}
			return run.result, errors.Wrapf(err, "adjust stock for %s", p.name)
		}

		if _, err := store.CreateStockMovement(ctx, database.CreateStockMovementParams{
			OrderID:         run.order.ID,
			InventoryItemID: pgtype.UUID{Bytes: id, Valid: true},
			ItemName:        updated.Name,
			Unit:            updated.Unit,
			Delta:           quantityToNumeric(delta),
			MovementType:    movementType,
		}); err != nil {
			return run.result, errors.Wrapf(err, "record stock movement for %s", p.name)
		}

		after := numericToDecimal(updated.StockQuantity)
		adj := StockAdjustment{
			ItemID:        id,
			Item:          updated.Name,
			Unit:          updated.Unit,
			Before:        after.Sub(delta),
			After:         after,
			Delta:         delta,
			NegativeStock: after.IsNegative(),
		}
		if adj.NegativeStock {
			run.logger.WithFields(log.Fields{
				"item":  adj.Item,
				"after": adj.After.String(),
			}).Warn("inventory item went negative")
		}
		run.result.Adjustments = append(run.result.Adjustments, adj)
	}

	return run.result, nil
}

// resolveItem finds the inventory item for a recipe line. Lines saved before
// items carried IDs are matched by name.
func resolveItem(ctx context.Context, store StockStore, ing recipe.Ingredient) (database.InventoryItem, error) {
	if ing.ItemID != uuid.Nil {
		return store.GetInventoryItem(ctx, ing.ItemID)
	}
	return store.GetInventoryItemByName(ctx, ing.Name)
}
