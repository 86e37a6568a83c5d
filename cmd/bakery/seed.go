package main

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	"golang.org/x/crypto/bcrypt"

	"github.com/tv-reposteria/api/internal/database"
	"github.com/tv-reposteria/api/internal/enum"
	"github.com/tv-reposteria/api/internal/recipe"
	"github.com/tv-reposteria/api/internal/unit"
)

const defaultSeedPassword = "password123"

func seedCommand() *cli.Command {
	return &cli.Command{
		Name:  "seed",
		Usage: "create the owner account and a starter catalog",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "username", Usage: "owner username", EnvVars: []string{"SEED_USERNAME"}, Value: "owner"},
			&cli.StringFlag{Name: "password", Usage: "owner password", EnvVars: []string{"SEED_PASSWORD"}},
			&cli.StringFlag{Name: "name", Usage: "owner full name", EnvVars: []string{"SEED_NAME"}, Value: "Bakery Owner"},
			&cli.BoolFlag{Name: "catalog", Usage: "also seed sample inventory and products", Value: true},
		},
		Action: seed,
	}
}

func seed(c *cli.Context) error {
	cfg := configFrom(c)

	password := c.String("password")
	if password == "" {
		password = defaultSeedPassword
		log.Warnf("using default password %q, change it immediately in production", defaultSeedPassword)
	}

	ctx := c.Context
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		return errors.Wrap(err, "ping database")
	}

	// Owner and catalog land together or not at all.
	tx, err := pool.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "begin transaction")
	}
	defer tx.Rollback(ctx)

	q := database.New(tx)

	ownerID, err := seedOwner(ctx, q, c.String("username"), password, c.String("name"))
	if err != nil {
		return err
	}

	if c.Bool("catalog") {
		items, err := seedInventory(ctx, q)
		if err != nil {
			return err
		}
		if err := seedProducts(ctx, q, items); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.Wrap(err, "commit")
	}

	log.WithField("owner_id", ownerID).Info("seed completed")
	return nil
}

// seedOwner creates the owner user if the username is free.
func seedOwner(ctx context.Context, q *database.Queries, username, password, fullName string) (uuid.UUID, error) {
	existing, err := q.GetUserByUsername(ctx, username)
	if err == nil {
		log.WithField("username", username).Info("owner already exists, skipping")
		return existing.ID, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, errors.Wrap(err, "check user")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return uuid.Nil, errors.Wrap(err, "hash password")
	}

	user, err := q.CreateUser(ctx, database.CreateUserParams{
		Username:       username,
		HashedPassword: string(hashed),
		FullName:       fullName,
		Role:           enum.UserRoleOwner,
	})
	if err != nil {
		return uuid.Nil, errors.Wrap(err, "insert user")
	}

	log.WithFields(log.Fields{"username": username, "id": user.ID}).Info("created owner")
	return user.ID, nil
}

type seedItem struct {
	name     string
	unit     unit.Unit
	stock    string
	unitCost string
}

var starterInventory = []seedItem{
	{"Harina 0000", unit.Kilogram, "25", "1200"},
	{"Azucar", unit.Kilogram, "10", "1500"},
	{"Manteca", unit.Kilogram, "5", "9800"},
	{"Huevos", unit.Count, "60", "250"},
	{"Leche", unit.Liter, "12", "1300"},
	{"Dulce de leche", unit.Kilogram, "4", "6200"},
}

// seedInventory creates missing starter items and returns every starter item
// by name, existing or new.
func seedInventory(ctx context.Context, q *database.Queries) (map[string]database.InventoryItem, error) {
	out := make(map[string]database.InventoryItem, len(starterInventory))
	for _, s := range starterInventory {
		item, err := q.GetInventoryItemByName(ctx, s.name)
		if err == nil {
			out[s.name] = item
			continue
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, errors.Wrapf(err, "check inventory item %q", s.name)
		}

		var stock, cost pgtype.Numeric
		if err := stock.Scan(s.stock); err != nil {
			return nil, errors.Wrapf(err, "stock for %q", s.name)
		}
		if err := cost.Scan(s.unitCost); err != nil {
			return nil, errors.Wrapf(err, "unit cost for %q", s.name)
		}

		item, err = q.CreateInventoryItem(ctx, database.CreateInventoryItemParams{
			Name:          s.name,
			Unit:          string(s.unit),
			StockQuantity: stock,
			UnitCost:      cost,
		})
		if err != nil {
			return nil, errors.Wrapf(err, "insert inventory item %q", s.name)
		}
		log.WithFields(log.Fields{"name": s.name, "id": item.ID}).Info("created inventory item")
		out[s.name] = item
	}
	return out, nil
}

type seedIngredient struct {
	item     string
	quantity string
	unit     unit.Unit
}

type seedVariation struct {
	name        string
	salePrice   string
	yield       int32
	costingMode string
	ingredients []seedIngredient
}

type seedProduct struct {
	name       string
	category   string
	variations []seedVariation
}

var starterProducts = []seedProduct{
	{
		name:     "Torta Rogel",
		category: enum.CategoryCakes,
		variations: []seedVariation{
			{
				name:        "20 cm",
				salePrice:   "32000",
				yield:       1,
				costingMode: enum.CostingModePerUnit,
				ingredients: []seedIngredient{
					{"Harina 0000", "500", unit.Gram},
					{"Manteca", "150", unit.Gram},
					{"Huevos", "6", unit.Count},
					{"Dulce de leche", "1", unit.Kilogram},
				},
			},
		},
	},
	{
		name:     "Medialunas",
		category: enum.CategoryPastry,
		variations: []seedVariation{
			{
				name:        "Docena",
				salePrice:   "9000",
				yield:       12,
				costingMode: enum.CostingModeBatch,
				ingredients: []seedIngredient{
					{"Harina 0000", "1", unit.Kilogram},
					{"Azucar", "120", unit.Gram},
					{"Manteca", "400", unit.Gram},
					{"Leche", "250", unit.Milliliter},
					{"Huevos", "2", unit.Count},
				},
			},
		},
	},
}

// seedProducts creates starter product bases that do not exist yet, along
// with their variations. Existing bases are left untouched.
func seedProducts(ctx context.Context, q *database.Queries, items map[string]database.InventoryItem) error {
	for _, p := range starterProducts {
		_, err := q.GetProductBaseByName(ctx, p.name)
		if err == nil {
			log.WithField("name", p.name).Info("product already exists, skipping")
			continue
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return errors.Wrapf(err, "check product %q", p.name)
		}

		base, err := q.CreateProductBase(ctx, database.CreateProductBaseParams{
			Name:     p.name,
			Category: p.category,
		})
		if err != nil {
			return errors.Wrapf(err, "insert product %q", p.name)
		}

		for _, v := range p.variations {
			lines := make([]recipe.Ingredient, 0, len(v.ingredients))
			for _, in := range v.ingredients {
				item, ok := items[in.item]
				if !ok {
					return errors.Errorf("variation %q references unknown item %q", v.name, in.item)
				}
				lines = append(lines, recipe.Ingredient{
					ItemID:   item.ID,
					Name:     item.Name,
					Quantity: decimal.RequireFromString(in.quantity),
					Unit:     in.unit,
				})
			}
			blob, err := recipe.EncodeIngredients(lines)
			if err != nil {
				return errors.Wrapf(err, "encode ingredients for %q", v.name)
			}

			var price pgtype.Numeric
			if err := price.Scan(v.salePrice); err != nil {
				return errors.Wrapf(err, "sale price for %q", v.name)
			}

			if _, err := q.CreateVariation(ctx, database.CreateVariationParams{
				ProductBaseID:   base.ID,
				Name:            v.name,
				IngredientsJson: blob,
				SalePrice:       price,
				YieldFactor:     v.yield,
				CostingMode:     v.costingMode,
			}); err != nil {
				return errors.Wrapf(err, "insert variation %q", v.name)
			}
		}
		log.WithFields(log.Fields{"name": p.name, "id": base.ID}).Info("created product")
	}
	return nil
}
