package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/tv-reposteria/api/internal/database"
	"github.com/tv-reposteria/api/internal/enum"
	"github.com/tv-reposteria/api/internal/recipe"
)

// --- Mock implementations ---

// mockTx implements pgx.Tx with only the methods we need.
// The unused methods panic so we catch accidental calls.
type mockTx struct {
	commitErr   error
	rollbackErr error
	committed   bool
}

func (m *mockTx) Begin(ctx context.Context) (pgx.Tx, error) { panic("not implemented") }
func (m *mockTx) Commit(ctx context.Context) error {
	if m.commitErr == nil {
		m.committed = true
	}
	return m.commitErr
}
func (m *mockTx) Rollback(ctx context.Context) error { return m.rollbackErr }
func (m *mockTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	panic("not implemented")
}
func (m *mockTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	panic("not implemented")
}
func (m *mockTx) LargeObjects() pgx.LargeObjects { panic("not implemented") }
func (m *mockTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	panic("not implemented")
}
func (m *mockTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	panic("not implemented")
}
func (m *mockTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	panic("not implemented")
}
func (m *mockTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	panic("not implemented")
}
func (m *mockTx) Conn() *pgx.Conn { panic("not implemented") }

// mockTxBeginner implements TxBeginner.
type mockTxBeginner struct {
	tx  pgx.Tx
	err error
}

func (m *mockTxBeginner) Begin(ctx context.Context) (pgx.Tx, error) {
	return m.tx, m.err
}

// mockOrderStore implements OrderStore with configurable behavior.
type mockOrderStore struct {
	getNextOrderNumberFn   func(ctx context.Context) (int32, error)
	getVariationForOrderFn func(ctx context.Context, id uuid.UUID) (database.GetVariationForOrderRow, error)
	createOrderFn          func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
}

func (m *mockOrderStore) GetNextOrderNumber(ctx context.Context) (int32, error) {
	return m.getNextOrderNumberFn(ctx)
}
func (m *mockOrderStore) GetVariationForOrder(ctx context.Context, id uuid.UUID) (database.GetVariationForOrderRow, error) {
	return m.getVariationForOrderFn(ctx, id)
}
func (m *mockOrderStore) CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
	return m.createOrderFn(ctx, arg)
}

// --- Test helpers ---

func makeNumeric(val string) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(val)
	return n
}

func numericEquals(n pgtype.Numeric, expected string) bool {
	d := numericToDecimal(n)
	exp, _ := decimal.NewFromString(expected)
	return d.Equal(exp)
}

// newTestService creates an OrderService with mocked dependencies.
func newTestService(store *mockOrderStore) (*OrderService, *mockTx) {
	tx := &mockTx{}
	pool := &mockTxBeginner{tx: tx}
	newStore := func(db database.DBTX) OrderStore { return store }
	return NewOrderService(pool, newStore), tx
}

// defaultStore returns a mockOrderStore that knows a single variation.
func defaultStore(variationID uuid.UUID) *mockOrderStore {
	return &mockOrderStore{
		getNextOrderNumberFn: func(ctx context.Context) (int32, error) {
			return 7, nil
		},
		getVariationForOrderFn: func(ctx context.Context, id uuid.UUID) (database.GetVariationForOrderRow, error) {
			if id == variationID {
				return database.GetVariationForOrderRow{
					ID:        variationID,
					Name:      "20 porciones",
					BaseName:  "Torta de chocolate",
					SalePrice: makeNumeric("45000.00"),
				}, nil
			}
			return database.GetVariationForOrderRow{}, pgx.ErrNoRows
		},
		createOrderFn: func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
			return database.Order{
				ID:           uuid.New(),
				OrderNumber:  arg.OrderNumber,
				CustomerName: arg.CustomerName,
				DeliveryDate: arg.DeliveryDate,
				DetailJson:   arg.DetailJson,
				TotalAmount:  arg.TotalAmount,
				Status:       arg.Status,
				CreatedBy:    arg.CreatedBy,
			}, nil
		},
	}
}

func basicReq(variationID string) CreateOrderRequest {
	return CreateOrderRequest{
		CreatedBy:    uuid.New(),
		CustomerName: "Marcela Rojas",
		DeliveryDate: "2026-10-20",
		Items: []CreateOrderItemRequest{
			{VariationID: variationID, Quantity: 2},
		},
	}
}

// =====================
// Validation tests
// =====================

func TestCreateOrder_Validation(t *testing.T) {
	vid := uuid.New()
	tests := []struct {
		name   string
		modify func(r *CreateOrderRequest)
		want   error
	}{
		{"missing customer", func(r *CreateOrderRequest) { r.CustomerName = "  " }, ErrCustomerRequired},
		{"missing date", func(r *CreateOrderRequest) { r.DeliveryDate = "" }, ErrDeliveryDateRequired},
		{"bad date", func(r *CreateOrderRequest) { r.DeliveryDate = "20/10/2026" }, ErrInvalidDeliveryDate},
		{"no items", func(r *CreateOrderRequest) { r.Items = nil }, ErrEmptyItems},
		{"zero quantity", func(r *CreateOrderRequest) { r.Items[0].Quantity = 0 }, ErrInvalidQuantity},
		{"bad variation id", func(r *CreateOrderRequest) { r.Items[0].VariationID = "nope" }, ErrInvalidVariationID},
		{"unknown variation", func(r *CreateOrderRequest) { r.Items[0].VariationID = uuid.New().String() }, ErrVariationNotFound},
		{"bad price override", func(r *CreateOrderRequest) { r.Items[0].UnitPrice = "-1" }, ErrInvalidUnitPrice},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, tx := newTestService(defaultStore(vid))
			req := basicReq(vid.String())
			tt.modify(&req)

			_, err := svc.CreateOrder(context.Background(), req)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if tx.committed {
				t.Error("transaction should not be committed")
			}
		})
	}
}

// =====================
// Snapshot tests
// =====================

func TestCreateOrder_Snapshot(t *testing.T) {
	vid := uuid.New()
	store := defaultStore(vid)
	var captured database.CreateOrderParams
	inner := store.createOrderFn
	store.createOrderFn = func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
		captured = arg
		return inner(ctx, arg)
	}
	svc, tx := newTestService(store)

	req := basicReq(vid.String())
	req.Items = append(req.Items, CreateOrderItemRequest{VariationID: vid.String(), Quantity: 1, UnitPrice: "40000"})
	req.DeliveryTime = "15:30"

	result, err := svc.CreateOrder(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !tx.committed {
		t.Error("expected commit")
	}

	if captured.OrderNumber != "TVR-0007" {
		t.Errorf("order number: got %s", captured.OrderNumber)
	}
	if captured.Status != enum.OrderStatusPending {
		t.Errorf("status: got %s", captured.Status)
	}
	// 2 x 45000 + 1 x 40000
	if !numericEquals(captured.TotalAmount, "130000") {
		t.Errorf("total: got %v", numericToDecimal(captured.TotalAmount))
	}
	if !captured.DeliveryTime.Valid || captured.DeliveryTime.String != "15:30" {
		t.Errorf("delivery time: got %+v", captured.DeliveryTime)
	}
	if captured.CustomerContact.Valid {
		t.Error("empty contact should be NULL")
	}

	lines, err := recipe.DecodeLineItems(captured.DetailJson)
	if err != nil {
		t.Fatalf("decode detail: %v", err)
	}
	if len(lines) != 2 || len(result.Items) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if lines[0].Product != "Torta de chocolate - 20 porciones" {
		t.Errorf("product snapshot: got %q", lines[0].Product)
	}
	if !lines[0].Subtotal.Equal(decimal.NewFromInt(90000)) {
		t.Errorf("line subtotal: got %s", lines[0].Subtotal)
	}
	if !lines[1].UnitPrice.Equal(decimal.NewFromInt(40000)) {
		t.Errorf("override price: got %s", lines[1].UnitPrice)
	}
}

// =====================
// Retry tests
// =====================

func TestCreateOrder_RetriesOnOrderNumberConflict(t *testing.T) {
	vid := uuid.New()
	store := defaultStore(vid)
	calls := 0
	inner := store.createOrderFn
	store.createOrderFn = func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
		calls++
		if calls == 1 {
			return database.Order{}, &pgconn.PgError{Code: "23505", ConstraintName: "orders_order_number_key"}
		}
		return inner(ctx, arg)
	}
	svc, _ := newTestService(store)

	if _, err := svc.CreateOrder(context.Background(), basicReq(vid.String())); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 2 {
		t.Errorf("expected 2 attempts, got %d", calls)
	}
}

func TestCreateOrder_GivesUpAfterMaxRetries(t *testing.T) {
	vid := uuid.New()
	store := defaultStore(vid)
	calls := 0
	store.createOrderFn = func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
		calls++
		return database.Order{}, &pgconn.PgError{Code: "23505", ConstraintName: "orders_order_number_key"}
	}
	svc, _ := newTestService(store)

	_, err := svc.CreateOrder(context.Background(), basicReq(vid.String()))
	if !isOrderNumberConflict(err) {
		t.Fatalf("expected order number conflict, got %v", err)
	}
	if calls != maxOrderNumberRetries {
		t.Errorf("expected %d attempts, got %d", maxOrderNumberRetries, calls)
	}
}

func TestCreateOrder_OtherErrorNotRetried(t *testing.T) {
	vid := uuid.New()
	store := defaultStore(vid)
	calls := 0
	store.createOrderFn = func(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
		calls++
		return database.Order{}, errors.New("connection reset")
	}
	svc, _ := newTestService(store)

	if _, err := svc.CreateOrder(context.Background(), basicReq(vid.String())); err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("expected 1 attempt, got %d", calls)
	}
}

func TestCreateOrder_BeginError(t *testing.T) {
	vid := uuid.New()
	pool := &mockTxBeginner{err: errors.New("pool closed")}
	svc := NewOrderService(pool, func(db database.DBTX) OrderStore { return defaultStore(vid) })

	_, err := svc.CreateOrder(context.Background(), basicReq(vid.String()))
	if err == nil {
		t.Fatal("expected error")
	}
}
