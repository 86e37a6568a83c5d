package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/tv-reposteria/api/internal/database"
	"github.com/tv-reposteria/api/internal/enum"
	"github.com/tv-reposteria/api/internal/pricing"
	"github.com/tv-reposteria/api/internal/recipe"
	"github.com/tv-reposteria/api/internal/unit"
)

// Errors returned by the catalog service.
var (
	ErrAlreadyExists          = errors.New("already exists")
	ErrNameRequired           = errors.New("name is required")
	ErrInvalidCategory        = errors.New("invalid category")
	ErrProductBaseNotFound    = errors.New("product base not found")
	ErrInvalidSalePrice       = errors.New("invalid sale_price")
	ErrIngredientItemNotFound = errors.New("ingredient inventory item not found")
)

// CatalogStore defines the DB methods needed to maintain product bases and
// their variations. Satisfied by *database.Queries.
type CatalogStore interface {
	GetProductBase(ctx context.Context, id uuid.UUID) (database.ProductBase, error)
	GetProductBaseByName(ctx context.Context, name string) (database.ProductBase, error)
	CreateProductBase(ctx context.Context, arg database.CreateProductBaseParams) (database.ProductBase, error)
	UpdateProductBase(ctx context.Context, arg database.UpdateProductBaseParams) (database.ProductBase, error)
	GetVariation(ctx context.Context, id uuid.UUID) (database.Variation, error)
	CreateVariation(ctx context.Context, arg database.CreateVariationParams) (database.Variation, error)
	UpdateVariation(ctx context.Context, arg database.UpdateVariationParams) (database.Variation, error)
	GetInventoryItem(ctx context.Context, id uuid.UUID) (database.InventoryItem, error)
}

// ProductBaseRequest is the input for creating or renaming a product base.
type ProductBaseRequest struct {
	Name     string
	Category string
	ImageURL string
}

// VariationRequest is the input for saving a variation. ID is nil on create.
type VariationRequest struct {
	ID            uuid.UUID
	ProductBaseID uuid.UUID
	Name          string
	Ingredients   []recipe.Ingredient
	SalePrice     string
	YieldFactor   int32
	CostingMode   string
}

// VariationQuote is a variation priced at current inventory costs.
type VariationQuote struct {
	VariationID    uuid.UUID         `json:"variation_id"`
	IngredientCost decimal.Decimal   `json:"ingredient_cost"`
	Lines          []recipe.LineCost `json:"lines"`
	Params         pricing.Params    `json:"params"`
	Quote          pricing.Quote     `json:"quote"`
	SalePrice      decimal.Decimal   `json:"sale_price"`
}

// CatalogService handles product base and variation business logic.
type CatalogService struct {
	store CatalogStore
}

// NewCatalogService creates a new CatalogService.
func NewCatalogService(store CatalogStore) *CatalogService {
	return &CatalogService{store: store}
}

// CreateProductBase creates a product base, rejecting names already in use.
func (s *CatalogService) CreateProductBase(ctx context.Context, req ProductBaseRequest) (database.ProductBase, error) {
	name, err := validateProductBase(req)
	if err != nil {
		return database.ProductBase{}, err
	}

	_, err = s.store.GetProductBaseByName(ctx, name)
	if err == nil {
		return database.ProductBase{}, errors.Wrapf(ErrAlreadyExists, "product base %q", name)
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return database.ProductBase{}, errors.Wrap(err, "check product base name")
	}

	base, err := s.store.CreateProductBase(ctx, database.CreateProductBaseParams{
		Name:     name,
		Category: req.Category,
		ImageUrl: optionalText(req.ImageURL),
	})
	if err != nil {
		if isUniqueViolation(err) {
			return database.ProductBase{}, errors.Wrapf(ErrAlreadyExists, "product base %q", name)
		}
		return database.ProductBase{}, errors.Wrap(err, "create product base")
	}
	return base, nil
}

// UpdateProductBase renames or recategorises a product base.
func (s *CatalogService) UpdateProductBase(ctx context.Context, id uuid.UUID, req ProductBaseRequest) (database.ProductBase, error) {
	name, err := validateProductBase(req)
	if err != nil {
		return database.ProductBase{}, err
	}

	existing, err := s.store.GetProductBaseByName(ctx, name)
	if err == nil && existing.ID != id {
		return database.ProductBase{}, errors.Wrapf(ErrAlreadyExists, "product base %q", name)
	}
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return database.ProductBase{}, errors.Wrap(err, "check product base name")
	}

	base, err := s.store.UpdateProductBase(ctx, database.UpdateProductBaseParams{
		ID:       id,
		Name:     name,
		Category: req.Category,
		ImageUrl: optionalText(req.ImageURL),
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.ProductBase{}, ErrProductBaseNotFound
		}
		if isUniqueViolation(err) {
			return database.ProductBase{}, errors.Wrapf(ErrAlreadyExists, "product base %q", name)
		}
		return database.ProductBase{}, errors.Wrap(err, "update product base")
	}
	return base, nil
}

func validateProductBase(req ProductBaseRequest) (string, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return "", ErrNameRequired
	}
	if !enum.IsValidCategory(req.Category) {
		return "", ErrInvalidCategory
	}
	return name, nil
}

// SaveVariation creates (req.ID nil) or updates a variation after checking
// its costing mode and every ingredient line against inventory.
func (s *CatalogService) SaveVariation(ctx context.Context, req VariationRequest) (database.Variation, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return database.Variation{}, ErrNameRequired
	}
	salePrice, err := decimal.NewFromString(req.SalePrice)
	if err != nil || salePrice.IsNegative() {
		return database.Variation{}, ErrInvalidSalePrice
	}
	if req.CostingMode == "" {
		req.CostingMode = enum.CostingModePerUnit
	}
	if req.YieldFactor == 0 {
		req.YieldFactor = 1
	}
	if err := pricing.ValidateMode(req.CostingMode, req.YieldFactor); err != nil {
		return database.Variation{}, err
	}

	if _, err := s.store.GetProductBase(ctx, req.ProductBaseID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Variation{}, ErrProductBaseNotFound
		}
		return database.Variation{}, errors.Wrap(err, "get product base")
	}

	for i := range req.Ingredients {
		ing := &req.Ingredients[i]
		item, err := s.store.GetInventoryItem(ctx, ing.ItemID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return database.Variation{}, errors.Wrapf(ErrIngredientItemNotFound, "ingredient[%d]", i)
			}
			return database.Variation{}, errors.Wrapf(err, "ingredient[%d]: get inventory item", i)
		}
		if err := ing.Validate(recipeItem(item)); err != nil {
			return database.Variation{}, errors.Wrapf(err, "ingredient[%d] %s", i, item.Name)
		}
		ing.Name = item.Name
	}

	blob, err := recipe.EncodeIngredients(req.Ingredients)
	if err != nil {
		return database.Variation{}, err
	}

	var v database.Variation
	if req.ID == uuid.Nil {
		v, err = s.store.CreateVariation(ctx, database.CreateVariationParams{
			ProductBaseID:   req.ProductBaseID,
			Name:            name,
			IngredientsJson: blob,
			SalePrice:       decimalToNumeric(salePrice),
			YieldFactor:     req.YieldFactor,
			CostingMode:     req.CostingMode,
		})
	} else {
		v, err = s.store.UpdateVariation(ctx, database.UpdateVariationParams{
			ID:              req.ID,
			ProductBaseID:   req.ProductBaseID,
			Name:            name,
			IngredientsJson: blob,
			SalePrice:       decimalToNumeric(salePrice),
			YieldFactor:     req.YieldFactor,
			CostingMode:     req.CostingMode,
		})
	}
	if err != nil {
		if isUniqueViolation(err) {
			return database.Variation{}, errors.Wrapf(ErrAlreadyExists, "variation %q", name)
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Variation{}, ErrVariationNotFound
		}
		return database.Variation{}, errors.Wrap(err, "save variation")
	}
	return v, nil
}

// QuoteVariation prices a saved variation at today's inventory costs.
func (s *CatalogService) QuoteVariation(ctx context.Context, id uuid.UUID, params pricing.Params) (*VariationQuote, error) {
	v, err := s.store.GetVariation(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrVariationNotFound
		}
		return nil, errors.Wrap(err, "get variation")
	}

	ingredients, err := recipe.DecodeIngredients(v.IngredientsJson)
	if err != nil {
		return nil, err
	}

	items := map[uuid.UUID]recipe.Item{}
	for _, ing := range ingredients {
		if _, ok := items[ing.ItemID]; ok {
			continue
		}
		item, err := s.store.GetInventoryItem(ctx, ing.ItemID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				continue
			}
			return nil, errors.Wrap(err, "get inventory item")
		}
		items[ing.ItemID] = recipeItem(item)
	}

	cost, lines, err := recipe.Cost(ingredients, func(id uuid.UUID) (recipe.Item, bool) {
		it, ok := items[id]
		return it, ok
	})
	if err != nil {
		return nil, err
	}

	quote, err := pricing.NewQuote(cost, params, v.CostingMode, v.YieldFactor)
	if err != nil {
		return nil, err
	}

	return &VariationQuote{
		VariationID:    v.ID,
		IngredientCost: cost,
		Lines:          lines,
		Params:         params,
		Quote:          quote,
		SalePrice:      numericToDecimal(v.SalePrice),
	}, nil
}

func recipeItem(item database.InventoryItem) recipe.Item {
	return recipe.Item{
		ID:       item.ID,
		Name:     item.Name,
		Unit:     unit.Unit(item.Unit),
		UnitCost: numericToDecimal(item.UnitCost),
	}
}

// isUniqueViolation reports a pgconn unique constraint error (code 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

