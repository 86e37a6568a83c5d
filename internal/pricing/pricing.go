// Package pricing turns an ingredient cost into a sale price through a fixed
// cascade of surcharges.
package pricing

import (
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/tv-reposteria/api/internal/enum"
)

// Costing modes for a recipe.
const (
	ModePerUnit = enum.CostingModePerUnit
	ModeBatch   = enum.CostingModeBatch
)

var (
	ErrNegativeParam  = errors.New("pricing parameters must not be negative")
	ErrInvalidMode    = errors.New("invalid costing_mode")
	ErrInvalidYield   = errors.New("yield_factor must be >= 1")
	ErrModeMismatch   = errors.New("per-unit recipes must have yield_factor 1")
	ErrNegativeAmount = errors.New("ingredient cost must not be negative")
)

var hundred = decimal.NewFromInt(100)

// Params holds the operator's surcharges. Percentages are whole numbers
// (5 means 5%); Labor and Packaging are fixed amounts.
type Params struct {
	WastePct       decimal.Decimal `json:"waste_pct"`
	OverheadPct    decimal.Decimal `json:"overhead_pct"`
	Labor          decimal.Decimal `json:"labor"`
	MaintenancePct decimal.Decimal `json:"maintenance_pct"`
	MarginPct      decimal.Decimal `json:"margin_pct"`
	Packaging      decimal.Decimal `json:"packaging"`
}

// DefaultParams returns the surcharges the shop quotes with unless told otherwise.
func DefaultParams() Params {
	return Params{
		WastePct:       decimal.NewFromInt(5),
		OverheadPct:    decimal.NewFromInt(15),
		Labor:          decimal.NewFromInt(6400),
		MaintenancePct: decimal.NewFromInt(5),
		MarginPct:      decimal.NewFromInt(60),
		Packaging:      decimal.NewFromInt(3000),
	}
}

// Validate rejects negative parameters.
func (p Params) Validate() error {
	for _, v := range []decimal.Decimal{p.WastePct, p.OverheadPct, p.Labor, p.MaintenancePct, p.MarginPct, p.Packaging} {
		if v.IsNegative() {
			return ErrNegativeParam
		}
	}
	return nil
}

// Breakdown is every amount produced by the cascade.
type Breakdown struct {
	Ingredients decimal.Decimal `json:"insumos"`
	Waste       decimal.Decimal `json:"merma"`
	Overhead    decimal.Decimal `json:"ops"`
	Labor       decimal.Decimal `json:"mo"`
	Maintenance decimal.Decimal `json:"maq"`
	Margin      decimal.Decimal `json:"ganancia"`
	Packaging   decimal.Decimal `json:"empaque"`

	Subtotal1 decimal.Decimal `json:"subtotal1"`
	Subtotal2 decimal.Decimal `json:"subtotal2"`
	Subtotal3 decimal.Decimal `json:"subtotal3"`
	Subtotal4 decimal.Decimal `json:"subtotal4"`
	Subtotal5 decimal.Decimal `json:"subtotal5"`

	FinalPrice decimal.Decimal `json:"final_price"`
}

// ProductionCost is the price before margin and packaging.
func (b Breakdown) ProductionCost() decimal.Decimal {
	return b.FinalPrice.Sub(b.Margin).Sub(b.Packaging)
}

// Price runs the cascade on base. Each stage compounds on the previous
// subtotal, so the order below must not change.
func Price(base decimal.Decimal, p Params) Breakdown {
	b := Breakdown{
		Ingredients: base,
		Labor:       p.Labor,
		Packaging:   p.Packaging,
	}

	b.Waste = pct(base, p.WastePct)
	b.Subtotal1 = base.Add(b.Waste)

	b.Overhead = pct(b.Subtotal1, p.OverheadPct)
	b.Subtotal2 = b.Subtotal1.Add(b.Overhead)

	b.Subtotal3 = b.Subtotal2.Add(p.Labor)

	b.Maintenance = pct(b.Subtotal3, p.MaintenancePct)
	b.Subtotal4 = b.Subtotal3.Add(b.Maintenance)

	b.Margin = pct(b.Subtotal4, p.MarginPct)
	b.Subtotal5 = b.Subtotal4.Add(b.Margin)

	b.FinalPrice = b.Subtotal5.Add(p.Packaging)
	return b
}

func pct(amount, percent decimal.Decimal) decimal.Decimal {
	return amount.Mul(percent).Div(hundred)
}

// Quote is a priced recipe.
type Quote struct {
	Mode           string          `json:"costing_mode"`
	YieldFactor    int32           `json:"yield_factor"`
	Breakdown      Breakdown       `json:"breakdown"`
	ProductionCost decimal.Decimal `json:"production_cost"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
}

// ValidateMode checks that mode and yield can be combined.
func ValidateMode(mode string, yield int32) error {
	if yield < 1 {
		return ErrInvalidYield
	}
	switch mode {
	case ModePerUnit:
		if yield != 1 {
			return ErrModeMismatch
		}
	case ModeBatch:
	default:
		return ErrInvalidMode
	}
	return nil
}

// NewQuote prices ingredientCost under the given costing mode.
//
// In batch mode ingredientCost, labor and packaging cover the whole batch;
// the cascade runs once and the unit price is the final price split across
// yield units. In per-unit mode everything is already per unit and yield
// must be 1.
func NewQuote(ingredientCost decimal.Decimal, p Params, mode string, yield int32) (Quote, error) {
	if err := ValidateMode(mode, yield); err != nil {
		return Quote{}, err
	}
	if err := p.Validate(); err != nil {
		return Quote{}, err
	}
	if ingredientCost.IsNegative() {
		return Quote{}, ErrNegativeAmount
	}

	b := Price(ingredientCost, p)
	return Quote{
		Mode:           mode,
		YieldFactor:    yield,
		Breakdown:      b,
		ProductionCost: b.ProductionCost(),
		UnitPrice:      b.FinalPrice.Div(decimal.NewFromInt32(yield)),
	}, nil
}
