package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/tv-reposteria/api/internal/database"
	"github.com/tv-reposteria/api/internal/enum"
	"github.com/tv-reposteria/api/internal/orderflow"
)

// Errors returned by the order status service.
var (
	ErrOrderNotFound  = errors.New("order not found")
	ErrInvalidStatus  = errors.New("invalid status")
	ErrStatusConflict = errors.New("order status changed concurrently")
)

// OrderStatusStore defines the DB methods needed to move an order between statuses.
// Satisfied by *database.Queries (and its WithTx variant).
type OrderStatusStore interface {
	StockStore
	GetOrderForUpdate(ctx context.Context, id uuid.UUID) (database.Order, error)
	UpdateOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error)
	CreateLedgerEntry(ctx context.Context, arg database.CreateLedgerEntryParams) (database.LedgerEntry, error)
}

// NewOrderStatusStore creates an OrderStatusStore from a DBTX (pool or tx).
type NewOrderStatusStore func(db database.DBTX) OrderStatusStore

// TransitionResult is the outcome of a status change.
type TransitionResult struct {
	Order       database.Order
	PrevStatus  string
	Effect      orderflow.Effect
	Stock       *StockResult
	LedgerEntry *database.LedgerEntry
}

// OrderStatusService applies order status changes together with their
// stock and ledger effects.
type OrderStatusService struct {
	pool     TxBeginner
	newStore NewOrderStatusStore
	loc      *time.Location
	now      func() time.Time
}

// NewOrderStatusService creates a new OrderStatusService. Ledger entries are
// dated in loc.
func NewOrderStatusService(pool TxBeginner, newStore NewOrderStatusStore, loc *time.Location) *OrderStatusService {
	if loc == nil {
		loc = time.UTC
	}
	return &OrderStatusService{pool: pool, newStore: newStore, loc: loc, now: time.Now}
}

// Transition moves an order to status to. The row lock, the conditional
// status write, the stock movement and the ledger entry share one
// transaction; nothing is applied if any step fails.
func (s *OrderStatusService) Transition(ctx context.Context, orderID uuid.UUID, to string) (*TransitionResult, error) {
	if !orderflow.IsValidStatus(to) {
		return nil, ErrInvalidStatus
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "begin tx")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	current, err := store.GetOrderForUpdate(ctx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, errors.Wrap(err, "get order")
	}

	effect, err := orderflow.Transition(current.Status, to)
	if err != nil {
		return nil, err
	}

	updated, err := store.UpdateOrderStatus(ctx, database.UpdateOrderStatusParams{
		ID:         orderID,
		Status:     to,
		PrevStatus: current.Status,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrStatusConflict
		}
		return nil, errors.Wrap(err, "update order status")
	}

	result := &TransitionResult{
		Order:      updated,
		PrevStatus: current.Status,
		Effect:     effect,
	}

	switch effect {
	case orderflow.EffectDeliver:
		stock, err := ApplyDelivery(ctx, store, current)
		if err != nil {
			return nil, errors.Wrap(err, "apply delivery")
		}
		entry, err := s.bookSale(ctx, store, current, enum.LedgerEntrySale)
		if err != nil {
			return nil, err
		}
		result.Stock = &stock
		result.LedgerEntry = &entry

	case orderflow.EffectReturn:
		stock, err := ApplyCancellationReturn(ctx, store, current)
		if err != nil {
			return nil, errors.Wrap(err, "apply cancellation return")
		}
		entry, err := s.bookSale(ctx, store, current, enum.LedgerEntrySaleReversal)
		if err != nil {
			return nil, err
		}
		result.Stock = &stock
		result.LedgerEntry = &entry
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, errors.Wrap(err, "commit tx")
	}

	log.WithFields(log.Fields{
		"order_id":     orderID,
		"order_number": updated.OrderNumber,
		"from":         current.Status,
		"to":           to,
		"effect":       effect.String(),
	}).Info("order status changed")

	return result, nil
}

// bookSale records the order total as a sale, or takes it back for a reversal.
func (s *OrderStatusService) bookSale(ctx context.Context, store OrderStatusStore, order database.Order, entryType string) (database.LedgerEntry, error) {
	amount := numericToDecimal(order.TotalAmount)
	description := "Sale " + order.OrderNumber + " - " + order.CustomerName
	if entryType == enum.LedgerEntrySaleReversal {
		amount = amount.Neg()
		description = "Reversal of sale " + order.OrderNumber + " - " + order.CustomerName
	}

	entry, err := store.CreateLedgerEntry(ctx, database.CreateLedgerEntryParams{
		EntryDate:   pgDate(dateIn(s.now(), s.loc)),
		Amount:      decimalToNumeric(amount),
		Description: description,
		EntryType:   entryType,
		OrderID:     pgtype.UUID{Bytes: order.ID, Valid: true},
	})
	if err != nil {
		return database.LedgerEntry{}, errors.Wrap(err, "create ledger entry")
	}
	return entry, nil
}

func pgDate(t time.Time) pgtype.Date {
	return pgtype.Date{Time: t, Valid: true}
}

// dateIn returns the calendar date of t in loc, as midnight UTC.
func dateIn(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
