// Package recipe decodes the ingredient and order-line blobs stored inside
// variation and order rows, and costs recipes against inventory.
package recipe

import (
	"bytes"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/tv-reposteria/api/internal/unit"
)

var (
	ErrUnknownItem = errors.New("inventory item not found")
	ErrBadQuantity = errors.New("quantity must be > 0")
)

// Ingredient is one line of a recipe. Unit may differ from the inventory
// item's canonical unit.
type Ingredient struct {
	ItemID   uuid.UUID       `json:"item_id"`
	Name     string          `json:"name"`
	Quantity decimal.Decimal `json:"quantity"`
	Unit     unit.Unit       `json:"unit"`
}

// LineItem is one product line of an order, frozen at intake.
type LineItem struct {
	VariationID uuid.UUID       `json:"variation_id"`
	Product     string          `json:"product"`
	Quantity    int32           `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

// Item is the part of an inventory item needed to cost a recipe.
type Item struct {
	ID       uuid.UUID
	Name     string
	Unit     unit.Unit
	UnitCost decimal.Decimal
}

func isEmpty(raw []byte) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || bytes.Equal(raw, []byte("null"))
}

// DecodeIngredients parses an ingredients blob. Empty and null blobs yield an
// empty slice.
func DecodeIngredients(raw []byte) ([]Ingredient, error) {
	lines := []Ingredient{}
	if isEmpty(raw) {
		return lines, nil
	}
	if err := json.Unmarshal(raw, &lines); err != nil {
		return nil, errors.Wrap(err, "decode ingredients")
	}
	for i := range lines {
		u, err := unit.Parse(string(lines[i].Unit))
		if err != nil {
			return nil, errors.Wrapf(err, "ingredient[%d]", i)
		}
		lines[i].Unit = u
	}
	return lines, nil
}

// EncodeIngredients serialises lines, writing [] for a nil slice.
func EncodeIngredients(lines []Ingredient) ([]byte, error) {
	if lines == nil {
		lines = []Ingredient{}
	}
	raw, err := json.Marshal(lines)
	if err != nil {
		return nil, errors.Wrap(err, "encode ingredients")
	}
	return raw, nil
}

// DecodeLineItems parses an order detail blob. Empty and null blobs yield an
// empty slice.
func DecodeLineItems(raw []byte) ([]LineItem, error) {
	lines := []LineItem{}
	if isEmpty(raw) {
		return lines, nil
	}
	if err := json.Unmarshal(raw, &lines); err != nil {
		return nil, errors.Wrap(err, "decode order detail")
	}
	return lines, nil
}

// EncodeLineItems serialises lines, writing [] for a nil slice.
func EncodeLineItems(lines []LineItem) ([]byte, error) {
	if lines == nil {
		lines = []LineItem{}
	}
	raw, err := json.Marshal(lines)
	if err != nil {
		return nil, errors.Wrap(err, "encode order detail")
	}
	return raw, nil
}

// Validate checks a line against the item it draws from: the quantity must be
// positive and its unit must convert into the item's unit.
func (in Ingredient) Validate(item Item) error {
	if !in.Quantity.IsPositive() {
		return ErrBadQuantity
	}
	_, err := unit.Normalize(in.Quantity, in.Unit, item.Unit)
	return err
}

// Lookup resolves an inventory item by ID. ok is false when it does not exist.
type Lookup func(id uuid.UUID) (item Item, ok bool)

// LineCost is the cost of a single recipe line.
type LineCost struct {
	Name       string          `json:"name"`
	Quantity   decimal.Decimal `json:"quantity"`
	Unit       unit.Unit       `json:"unit"`
	Normalized decimal.Decimal `json:"normalized_quantity"`
	ItemUnit   unit.Unit       `json:"item_unit"`
	UnitCost   decimal.Decimal `json:"unit_cost"`
	Cost       decimal.Decimal `json:"cost"`
}

// Cost prices every line at the current unit cost of its item. The first
// line that references an unknown item or cannot be converted aborts the
// whole calculation.
func Cost(lines []Ingredient, lookup Lookup) (decimal.Decimal, []LineCost, error) {
	total := decimal.Zero
	costs := make([]LineCost, 0, len(lines))
	for i, line := range lines {
		item, ok := lookup(line.ItemID)
		if !ok {
			return decimal.Zero, nil, errors.Wrapf(ErrUnknownItem, "ingredient[%d] %s", i, line.Name)
		}
		qty, err := unit.Normalize(line.Quantity, line.Unit, item.Unit)
		if err != nil {
			return decimal.Zero, nil, errors.Wrapf(err, "ingredient[%d] %s", i, line.Name)
		}
		cost := qty.Mul(item.UnitCost)
		total = total.Add(cost)
		costs = append(costs, LineCost{
			Name:       item.Name,
			Quantity:   line.Quantity,
			Unit:       line.Unit,
			Normalized: qty,
			ItemUnit:   item.Unit,
			UnitCost:   item.UnitCost,
			Cost:       cost,
		})
	}
	return total, costs, nil
}
