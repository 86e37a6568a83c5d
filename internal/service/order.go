package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/tv-reposteria/api/internal/database"
	"github.com/tv-reposteria/api/internal/enum"
	"github.com/tv-reposteria/api/internal/recipe"
)

const maxOrderNumberRetries = 3

// Errors returned by the order service.
var (
	ErrEmptyItems           = errors.New("items are required")
	ErrCustomerRequired     = errors.New("customer_name is required")
	ErrDeliveryDateRequired = errors.New("delivery_date is required")
	ErrInvalidDeliveryDate  = errors.New("invalid delivery_date")
	ErrInvalidQuantity      = errors.New("quantity must be > 0")
	ErrInvalidVariationID   = errors.New("invalid variation_id")
	ErrVariationNotFound    = errors.New("variation not found")
	ErrInvalidUnitPrice     = errors.New("invalid unit_price")
)

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// OrderStore defines the DB methods needed to create orders.
// Satisfied by *database.Queries (and its WithTx variant).
type OrderStore interface {
	GetNextOrderNumber(ctx context.Context) (int32, error)
	GetVariationForOrder(ctx context.Context, id uuid.UUID) (database.GetVariationForOrderRow, error)
	CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
}

// NewOrderStore creates an OrderStore from a DBTX (pool or tx).
// This allows the service to create store instances from transactions.
type NewOrderStore func(db database.DBTX) OrderStore

// CreateOrderRequest is the validated input for creating an order.
type CreateOrderRequest struct {
	CreatedBy       uuid.UUID
	CustomerName    string
	CustomerContact string
	DeliveryDate    string // YYYY-MM-DD
	DeliveryTime    string
	Notes           string
	Items           []CreateOrderItemRequest
}

// CreateOrderItemRequest is a single line in the order.
type CreateOrderItemRequest struct {
	VariationID string
	Quantity    int32
	UnitPrice   string // optional override of the variation's sale price
}

// CreateOrderResult is the created order with its decoded lines.
type CreateOrderResult struct {
	Order database.Order
	Items []recipe.LineItem
}

// OrderService handles order intake.
type OrderService struct {
	pool     TxBeginner
	newStore NewOrderStore
}

// NewOrderService creates a new OrderService.
func NewOrderService(pool TxBeginner, newStore NewOrderStore) *OrderService {
	return &OrderService{pool: pool, newStore: newStore}
}

// CreateOrder validates the request, snapshots names and prices, and creates
// the order atomically. Retries up to maxOrderNumberRetries times on
// order_number unique constraint violations (concurrent transactions reading
// the same MAX).
func (s *OrderService) CreateOrder(ctx context.Context, req CreateOrderRequest) (*CreateOrderResult, error) {
	if strings.TrimSpace(req.CustomerName) == "" {
		return nil, ErrCustomerRequired
	}
	if req.DeliveryDate == "" {
		return nil, ErrDeliveryDateRequired
	}
	deliveryDate, err := time.Parse(time.DateOnly, req.DeliveryDate)
	if err != nil {
		return nil, ErrInvalidDeliveryDate
	}
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}

	var lastErr error
	for attempt := 0; attempt < maxOrderNumberRetries; attempt++ {
		result, err := s.createOrderTx(ctx, req, deliveryDate)
		if err == nil {
			return result, nil
		}
		if isOrderNumberConflict(err) {
			lastErr = err
			continue
		}
		return nil, err
	}
	return nil, lastErr
}

// isOrderNumberConflict checks if the error is a unique constraint violation
// on the order number (pgconn error code 23505).
func isOrderNumberConflict(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" && pgErr.ConstraintName == "orders_order_number_key"
	}
	return false
}

func (s *OrderService) createOrderTx(ctx context.Context, req CreateOrderRequest, deliveryDate time.Time) (*CreateOrderResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "begin tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	nextNum, err := store.GetNextOrderNumber(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "get next order number")
	}
	orderNumber := fmt.Sprintf("TVR-%04d", nextNum)

	total := decimal.Zero
	lines := make([]recipe.LineItem, 0, len(req.Items))

	for i, item := range req.Items {
		if item.Quantity <= 0 {
			return nil, errors.Wrapf(ErrInvalidQuantity, "item[%d]", i)
		}
		variationID, err := uuid.Parse(item.VariationID)
		if err != nil {
			return nil, errors.Wrapf(ErrInvalidVariationID, "item[%d]", i)
		}
		variation, err := store.GetVariationForOrder(ctx, variationID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, errors.Wrapf(ErrVariationNotFound, "item[%d]", i)
			}
			return nil, errors.Wrapf(err, "item[%d]: get variation", i)
		}

		unitPrice := numericToDecimal(variation.SalePrice)
		if item.UnitPrice != "" {
			unitPrice, err = decimal.NewFromString(item.UnitPrice)
			if err != nil || unitPrice.IsNegative() {
				return nil, errors.Wrapf(ErrInvalidUnitPrice, "item[%d]", i)
			}
		}
		unitPrice = unitPrice.Round(2)

		subtotal := unitPrice.Mul(decimal.NewFromInt32(item.Quantity))
		total = total.Add(subtotal)

		lines = append(lines, recipe.LineItem{
			VariationID: variationID,
			Product:     variation.BaseName + " - " + variation.Name,
			Quantity:    item.Quantity,
			UnitPrice:   unitPrice,
			Subtotal:    subtotal,
		})
	}

	detail, err := recipe.EncodeLineItems(lines)
	if err != nil {
		return nil, err
	}

	createdBy := pgtype.UUID{}
	if req.CreatedBy != uuid.Nil {
		createdBy = pgtype.UUID{Bytes: req.CreatedBy, Valid: true}
	}

	order, err := store.CreateOrder(ctx, database.CreateOrderParams{
		OrderNumber:     orderNumber,
		CustomerName:    strings.TrimSpace(req.CustomerName),
		CustomerContact: optionalText(req.CustomerContact),
		DeliveryDate:    pgtype.Date{Time: deliveryDate, Valid: true},
		DeliveryTime:    optionalText(req.DeliveryTime),
		DetailJson:      detail,
		TotalAmount:     decimalToNumeric(total),
		Notes:           optionalText(req.Notes),
		Status:          enum.OrderStatusPending,
		CreatedBy:       createdBy,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create order")
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, errors.Wrap(err, "commit tx")
	}

	return &CreateOrderResult{Order: order, Items: lines}, nil
}

// --- Helpers ---

func optionalText(s string) pgtype.Text {
	s = strings.TrimSpace(s)
	if s == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: s, Valid: true}
}

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func decimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(d.StringFixed(2))
	return n
}

// quantityToNumeric keeps the four decimals stock and unit costs are stored with.
func quantityToNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(d.StringFixed(stockScale))
	return n
}
