// Package unit converts ingredient quantities between units of measure.
//
// Inventory items are stocked in a canonical unit (kg, g, L, mL or unit).
// Recipes and purchases may be written in any unit that converts into the
// item's canonical unit; Normalize performs that conversion exactly.
package unit

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// Unit is a unit of measure.
type Unit string

const (
	Gram       Unit = "g"
	Kilogram   Unit = "kg"
	Milliliter Unit = "mL"
	Liter      Unit = "L"
	Count      Unit = "unit"
	Teaspoon   Unit = "tsp"
	Tablespoon Unit = "tbsp"
)

// ErrUnsupportedConversion is returned for unit pairs with no defined conversion.
var ErrUnsupportedConversion = errors.New("unsupported unit conversion")

// ErrUnknownUnit is returned by Parse for unrecognised spellings.
var ErrUnknownUnit = errors.New("unknown unit")

var (
	thousand   = decimal.NewFromInt(1000)
	tspFactor  = decimal.NewFromInt(5)
	tbspFactor = decimal.NewFromInt(15)
)

// aliases maps accepted spellings (lower-cased) onto units. Stored recipe
// blobs still carry the legacy spellings.
var aliases = map[string]Unit{
	"g":        Gram,
	"gr":       Gram,
	"kg":       Kilogram,
	"ml":       Milliliter,
	"cc":       Milliliter,
	"l":        Liter,
	"lt":       Liter,
	"unit":     Count,
	"unidad":   Count,
	"unidades": Count,
	"tsp":      Teaspoon,
	"cdta":     Teaspoon,
	"tbsp":     Tablespoon,
	"cda":      Tablespoon,
}

// Parse resolves a unit spelling. Matching is case-insensitive and ignores
// surrounding whitespace.
func Parse(s string) (Unit, error) {
	u, ok := aliases[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return "", errors.Wrapf(ErrUnknownUnit, "%q", s)
	}
	return u, nil
}

// IsCanonical reports whether u may be used as an inventory item's stock unit.
func (u Unit) IsCanonical() bool {
	switch u {
	case Gram, Kilogram, Milliliter, Liter, Count:
		return true
	}
	return false
}

func (u Unit) String() string { return string(u) }

// Normalize converts qty expressed in from into the unit to.
//
// Identical units return qty unchanged. g/kg and mL/L convert by a factor of
// 1000. Teaspoons (5) and tablespoons (15) convert into grams or millilitres
// and their multiples, never back. Every other pair, including anything
// involving the count unit, fails with ErrUnsupportedConversion.
func Normalize(qty decimal.Decimal, from, to Unit) (decimal.Decimal, error) {
	if from == to {
		return qty, nil
	}

	switch {
	case from == Gram && to == Kilogram, from == Milliliter && to == Liter:
		return qty.Div(thousand), nil
	case from == Kilogram && to == Gram, from == Liter && to == Milliliter:
		return qty.Mul(thousand), nil
	case from == Teaspoon || from == Tablespoon:
		base := tspFactor
		if from == Tablespoon {
			base = tbspFactor
		}
		switch to {
		case Gram, Milliliter:
			return qty.Mul(base), nil
		case Kilogram, Liter:
			return qty.Mul(base).Div(thousand), nil
		}
	}

	return decimal.Zero, errors.Wrapf(ErrUnsupportedConversion, "%s -> %s", from, to)
}

// CompatibleUnits lists the units a quantity may be entered in for an item
// stocked in canonical. The canonical unit comes first.
func CompatibleUnits(canonical Unit) []Unit {
	switch canonical {
	case Gram:
		return []Unit{Gram, Kilogram, Teaspoon, Tablespoon}
	case Kilogram:
		return []Unit{Kilogram, Gram, Teaspoon, Tablespoon}
	case Milliliter:
		return []Unit{Milliliter, Liter, Teaspoon, Tablespoon}
	case Liter:
		return []Unit{Liter, Milliliter, Teaspoon, Tablespoon}
	case Count:
		return []Unit{Count}
	}
	return nil
}

// ErrNonPositiveQuantity is returned when a package quantity is zero or negative.
var ErrNonPositiveQuantity = errors.New("quantity must be > 0")

// UnitPrice derives the cost of one canonical unit from a package of
// packageQty packageUnit bought for packagePrice.
func UnitPrice(packagePrice, packageQty decimal.Decimal, packageUnit, canonical Unit) (decimal.Decimal, error) {
	if !packageQty.IsPositive() {
		return decimal.Zero, ErrNonPositiveQuantity
	}
	normalized, err := Normalize(packageQty, packageUnit, canonical)
	if err != nil {
		return decimal.Zero, err
	}
	return packagePrice.Div(normalized), nil
}
