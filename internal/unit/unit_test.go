package unit

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		qty  string
		from Unit
		to   Unit
		want string
	}{
		{"identity", "12.5", Gram, Gram, "12.5"},
		{"g to kg", "250", Gram, Kilogram, "0.25"},
		{"kg to g", "1.2", Kilogram, Gram, "1200"},
		{"mL to L", "750", Milliliter, Liter, "0.75"},
		{"L to mL", "2", Liter, Milliliter, "2000"},
		{"tsp to g", "2", Teaspoon, Gram, "10"},
		{"tsp to mL", "1", Teaspoon, Milliliter, "5"},
		{"tbsp to g", "3", Tablespoon, Gram, "45"},
		{"tbsp to kg", "2", Tablespoon, Kilogram, "0.03"},
		{"tbsp to L", "4", Tablespoon, Liter, "0.06"},
		{"count identity", "6", Count, Count, "6"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(d(tt.qty), tt.from, tt.to)
			require.NoError(t, err)
			assert.True(t, got.Equal(d(tt.want)), "got %s, want %s", got, tt.want)
		})
	}
}

func TestNormalize_Unsupported(t *testing.T) {
	pairs := [][2]Unit{
		{Gram, Milliliter},
		{Kilogram, Liter},
		{Count, Gram},
		{Gram, Count},
		{Gram, Teaspoon},
		{Milliliter, Tablespoon},
		{Teaspoon, Tablespoon},
		{Tablespoon, Teaspoon},
		{Teaspoon, Count},
	}
	for _, p := range pairs {
		got, err := Normalize(d("10"), p[0], p[1])
		assert.ErrorIs(t, err, ErrUnsupportedConversion, "%s -> %s", p[0], p[1])
		assert.Contains(t, err.Error(), string(p[0])+" -> "+string(p[1]))
		assert.True(t, got.IsZero())
	}
}

func TestNormalize_RoundTrip(t *testing.T) {
	pairs := [][2]Unit{
		{Gram, Kilogram},
		{Kilogram, Gram},
		{Milliliter, Liter},
		{Liter, Milliliter},
	}
	for _, qty := range []string{"0", "1", "0.375", "1234.5678"} {
		for _, p := range pairs {
			there, err := Normalize(d(qty), p[0], p[1])
			require.NoError(t, err)
			back, err := Normalize(there, p[1], p[0])
			require.NoError(t, err)
			assert.True(t, back.Equal(d(qty)), "%s %s -> %s -> %s gave %s", qty, p[0], p[1], p[0], back)
		}
	}
}

func TestParse(t *testing.T) {
	tests := map[string]Unit{
		"g":        Gram,
		"gr":       Gram,
		" KG ":     Kilogram,
		"ml":       Milliliter,
		"mL":       Milliliter,
		"cc":       Milliliter,
		"L":        Liter,
		"lt":       Liter,
		"unidades": Count,
		"unit":     Count,
		"cdta":     Teaspoon,
		"cda":      Tablespoon,
		"tbsp":     Tablespoon,
	}
	for in, want := range tests {
		got, err := Parse(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := Parse("cup")
	assert.ErrorIs(t, err, ErrUnknownUnit)
}

func TestIsCanonical(t *testing.T) {
	for _, u := range []Unit{Gram, Kilogram, Milliliter, Liter, Count} {
		assert.True(t, u.IsCanonical(), u)
	}
	assert.False(t, Teaspoon.IsCanonical())
	assert.False(t, Tablespoon.IsCanonical())
}

func TestCompatibleUnits(t *testing.T) {
	for _, canonical := range []Unit{Gram, Kilogram, Milliliter, Liter, Count} {
		units := CompatibleUnits(canonical)
		require.NotEmpty(t, units)
		assert.Equal(t, canonical, units[0])
		for _, u := range units {
			_, err := Normalize(d("1"), u, canonical)
			assert.NoError(t, err, "%s -> %s", u, canonical)
		}
	}
	assert.Nil(t, CompatibleUnits(Teaspoon))
}

func TestUnitPrice(t *testing.T) {
	// 1 kg bag bought for 1200 -> 1.2 per gram
	got, err := UnitPrice(d("1200"), d("1"), Kilogram, Gram)
	require.NoError(t, err)
	assert.True(t, got.Equal(d("1.2")), got.String())

	// 500 mL bottle for 900 -> 1800 per litre
	got, err = UnitPrice(d("900"), d("500"), Milliliter, Liter)
	require.NoError(t, err)
	assert.True(t, got.Equal(d("1800")), got.String())

	_, err = UnitPrice(d("900"), d("0"), Milliliter, Liter)
	assert.ErrorIs(t, err, ErrNonPositiveQuantity)

	_, err = UnitPrice(d("900"), d("1"), Count, Gram)
	assert.ErrorIs(t, err, ErrUnsupportedConversion)
}
