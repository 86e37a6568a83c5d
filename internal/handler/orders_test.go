package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/tv-reposteria/api/internal/database"
	"github.com/tv-reposteria/api/internal/enum"
	"github.com/tv-reposteria/api/internal/handler"
	"github.com/tv-reposteria/api/internal/orderflow"
	"github.com/tv-reposteria/api/internal/recipe"
	"github.com/tv-reposteria/api/internal/service"
	"github.com/tv-reposteria/api/internal/ws"
)

// --- Mocks ---

type mockOrderService struct {
	t        *testing.T
	requests []service.CreateOrderRequest
	err      error
}

func (m *mockOrderService) CreateOrder(_ context.Context, req service.CreateOrderRequest) (*service.CreateOrderResult, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.requests = append(m.requests, req)

	total := decimal.Zero
	items := make([]recipe.LineItem, len(req.Items))
	for i, it := range req.Items {
		price := decimal.RequireFromString(it.UnitPrice)
		sub := price.Mul(decimal.NewFromInt32(it.Quantity))
		items[i] = recipe.LineItem{
			VariationID: uuid.MustParse(it.VariationID),
			Product:     "Torta Selva Negra - Grande",
			Quantity:    it.Quantity,
			UnitPrice:   price,
			Subtotal:    sub,
		}
		total = total.Add(sub)
	}
	order := makeOrder(m.t, enum.OrderStatusPending, items)
	order.CustomerName = req.CustomerName
	order.TotalAmount = mustNumeric(m.t, total.String())
	order.CreatedBy = pgtype.UUID{Bytes: req.CreatedBy, Valid: true}
	return &service.CreateOrderResult{Order: order, Items: items}, nil
}

type mockStatusService struct {
	result *service.TransitionResult
	err    error
	calls  []string
}

func (m *mockStatusService) Transition(_ context.Context, _ uuid.UUID, to string) (*service.TransitionResult, error) {
	m.calls = append(m.calls, to)
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

type mockOrderStore struct {
	orders  map[uuid.UUID]database.Order
	entries map[uuid.UUID][]database.LedgerEntry
	lastArg database.ListOrdersParams
}

func newMockOrderStore() *mockOrderStore {
	return &mockOrderStore{
		orders:  make(map[uuid.UUID]database.Order),
		entries: make(map[uuid.UUID][]database.LedgerEntry),
	}
}

func (m *mockOrderStore) GetOrder(_ context.Context, id uuid.UUID) (database.Order, error) {
	o, ok := m.orders[id]
	if !ok {
		return database.Order{}, pgx.ErrNoRows
	}
	return o, nil
}

func (m *mockOrderStore) ListOrders(_ context.Context, arg database.ListOrdersParams) ([]database.Order, error) {
	m.lastArg = arg
	var out []database.Order
	for _, o := range m.orders {
		if arg.Status.Valid && o.Status != arg.Status.String {
			continue
		}
		if arg.ActiveOnly && !orderflow.IsActive(o.Status) {
			continue
		}
		out = append(out, o)
	}
	return out, nil
}

func (m *mockOrderStore) ListLedgerEntriesByOrder(_ context.Context, orderID pgtype.UUID) ([]database.LedgerEntry, error) {
	return m.entries[uuid.UUID(orderID.Bytes)], nil
}

// --- Helpers ---

func makeOrder(t *testing.T, status string, items []recipe.LineItem) database.Order {
	t.Helper()
	blob, err := recipe.EncodeLineItems(items)
	if err != nil {
		t.Fatalf("encode line items: %v", err)
	}
	return database.Order{
		ID:           uuid.New(),
		OrderNumber:  "TVR-0001",
		CustomerName: "Lucia",
		DeliveryDate: pgtype.Date{Time: time.Date(2026, 5, 20, 0, 0, 0, 0, time.UTC), Valid: true},
		DetailJson:   blob,
		TotalAmount:  mustNumeric(t, "90000"),
		Status:       status,
	}
}

func sampleItems() []recipe.LineItem {
	return []recipe.LineItem{{
		VariationID: uuid.New(),
		Product:     "Torta Selva Negra - Grande",
		Quantity:    2,
		UnitPrice:   decimal.NewFromInt(45000),
		Subtotal:    decimal.NewFromInt(90000),
	}}
}

func setupOrderRouter(svc *mockOrderService, status *mockStatusService, store *mockOrderStore, hub handler.Broadcaster) http.Handler {
	h := handler.NewOrderHandler(svc, status, store, hub)
	r := chi.NewRouter()
	r.Route("/orders", h.RegisterRoutes)
	return withRole(enum.UserRoleStaff, r)
}

// --- Create tests ---

func TestCreateOrder_BroadcastsToKitchen(t *testing.T) {
	svc := &mockOrderService{t: t}
	hub := &recordingHub{}
	router := setupOrderRouter(svc, &mockStatusService{}, newMockOrderStore(), hub)

	variationID := uuid.New()
	rr := doRequest(t, router, "POST", "/orders", map[string]interface{}{
		"customer_name": "Lucia",
		"delivery_date": "2026-05-20",
		"items": []map[string]interface{}{
			{"variation_id": variationID.String(), "quantity": 2, "unit_price": "45000"},
		},
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusCreated, rr.Body.String())
	}

	resp := decodeResponse(t, rr)
	if resp["status"] != "PENDING" {
		t.Errorf("status: got %v, want PENDING", resp["status"])
	}
	if resp["total_amount"] != "90000.00" {
		t.Errorf("total_amount: got %v, want 90000.00", resp["total_amount"])
	}
	if resp["delivery_date"] != "2026-05-20" {
		t.Errorf("delivery_date: got %v, want 2026-05-20", resp["delivery_date"])
	}
	items := resp["items"].([]interface{})
	if len(items) != 1 || items[0].(map[string]interface{})["subtotal"] != "90000.00" {
		t.Errorf("items: got %v", items)
	}

	if len(svc.requests) != 1 || svc.requests[0].CreatedBy == uuid.Nil {
		t.Error("order should carry the creating user")
	}
	if got := hub.types(ws.ChannelKitchen); len(got) != 1 || got[0] != ws.EventOrderCreated {
		t.Errorf("kitchen events: got %v", got)
	}
}

func TestCreateOrder_Unauthenticated(t *testing.T) {
	h := handler.NewOrderHandler(&mockOrderService{t: t}, &mockStatusService{}, newMockOrderStore(), nil)
	r := chi.NewRouter()
	r.Route("/orders", h.RegisterRoutes)

	rr := doRequest(t, r, "POST", "/orders", map[string]interface{}{"customer_name": "x"})
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestCreateOrder_ServiceErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"empty items", service.ErrEmptyItems, http.StatusBadRequest},
		{"customer required", service.ErrCustomerRequired, http.StatusBadRequest},
		{"unknown variation", errors.Wrapf(service.ErrVariationNotFound, "item[%d]", 0), http.StatusBadRequest},
		{"bad quantity", errors.Wrapf(service.ErrInvalidQuantity, "item[%d]", 1), http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hub := &recordingHub{}
			router := setupOrderRouter(&mockOrderService{t: t, err: tt.err}, &mockStatusService{}, newMockOrderStore(), hub)
			rr := doRequest(t, router, "POST", "/orders", map[string]interface{}{"customer_name": "x"})
			if rr.Code != tt.want {
				t.Errorf("status: got %d, want %d", rr.Code, tt.want)
			}
			if len(hub.events) != 0 {
				t.Errorf("events: got %d, want 0", len(hub.events))
			}
		})
	}
}

// --- Read tests ---

func TestListOrders_Filters(t *testing.T) {
	store := newMockOrderStore()
	pending := makeOrder(t, enum.OrderStatusPending, sampleItems())
	delivered := makeOrder(t, enum.OrderStatusDelivered, sampleItems())
	store.orders[pending.ID] = pending
	store.orders[delivered.ID] = delivered
	router := setupOrderRouter(&mockOrderService{t: t}, &mockStatusService{}, store, nil)

	rr := doRequest(t, router, "GET", "/orders?active=true&from=2026-05-01&to=2026-05-31&limit=500", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	orders := decodeListResponse(t, rr)
	if len(orders) != 1 || orders[0]["status"] != "PENDING" {
		t.Errorf("orders: got %v", orders)
	}
	if !store.lastArg.ActiveOnly || !store.lastArg.FromDate.Valid || !store.lastArg.ToDate.Valid {
		t.Errorf("params: got %+v", store.lastArg)
	}
	if store.lastArg.Limit != 100 {
		t.Errorf("limit: got %d, want capped at 100", store.lastArg.Limit)
	}
}

func TestListOrders_BadQuery(t *testing.T) {
	router := setupOrderRouter(&mockOrderService{t: t}, &mockStatusService{}, newMockOrderStore(), nil)

	for _, q := range []string{"status=BAKING", "active=maybe", "from=20-05-2026", "from=2026-06-01&to=2026-05-01"} {
		rr := doRequest(t, router, "GET", "/orders?"+q, nil)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("%s: status got %d, want %d", q, rr.Code, http.StatusBadRequest)
		}
	}
}

func TestGetOrder_IncludesLedgerEntries(t *testing.T) {
	store := newMockOrderStore()
	o := makeOrder(t, enum.OrderStatusDelivered, sampleItems())
	store.orders[o.ID] = o
	store.entries[o.ID] = []database.LedgerEntry{{
		ID:          uuid.New(),
		EntryDate:   o.DeliveryDate,
		Amount:      mustNumeric(t, "90000"),
		Description: "Venta TVR-0001",
		EntryType:   enum.LedgerEntrySale,
		OrderID:     pgtype.UUID{Bytes: o.ID, Valid: true},
	}}
	router := setupOrderRouter(&mockOrderService{t: t}, &mockStatusService{}, store, nil)

	rr := doRequest(t, router, "GET", "/orders/"+o.ID.String(), nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	resp := decodeResponse(t, rr)
	entries, ok := resp["ledger_entries"].([]interface{})
	if !ok || len(entries) != 1 {
		t.Fatalf("ledger_entries: got %v", resp["ledger_entries"])
	}
	entry := entries[0].(map[string]interface{})
	if entry["entry_type"] != "SALE" || entry["order_id"] != o.ID.String() {
		t.Errorf("entry: got %v", entry)
	}
}

func TestGetOrder_NotFound(t *testing.T) {
	router := setupOrderRouter(&mockOrderService{t: t}, &mockStatusService{}, newMockOrderStore(), nil)

	rr := doRequest(t, router, "GET", "/orders/"+uuid.New().String(), nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusNotFound)
	}
}

// --- Status tests ---

func TestUpdateStatus_Deliver(t *testing.T) {
	o := makeOrder(t, enum.OrderStatusDelivered, sampleItems())
	entry := database.LedgerEntry{
		ID:          uuid.New(),
		EntryDate:   o.DeliveryDate,
		Amount:      mustNumeric(t, "90000"),
		Description: "Venta TVR-0001",
		EntryType:   enum.LedgerEntrySale,
		OrderID:     pgtype.UUID{Bytes: o.ID, Valid: true},
	}
	status := &mockStatusService{result: &service.TransitionResult{
		Order:      o,
		PrevStatus: enum.OrderStatusReadyForPickup,
		Effect:     orderflow.EffectDeliver,
		Stock: &service.StockResult{Adjustments: []service.StockAdjustment{{
			ItemID: uuid.New(),
			Item:   "Harina",
			Unit:   "g",
			Before: decimal.NewFromInt(2000),
			After:  decimal.NewFromInt(1000),
			Delta:  decimal.NewFromInt(-1000),
		}}},
		LedgerEntry: &entry,
	}}
	hub := &recordingHub{}
	router := setupOrderRouter(&mockOrderService{t: t}, status, newMockOrderStore(), hub)

	rr := doRequest(t, router, "PATCH", "/orders/"+o.ID.String()+"/status", map[string]string{"status": "DELIVERED"})
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	var resp struct {
		Order struct {
			Status string `json:"status"`
		} `json:"order"`
		PrevStatus string `json:"prev_status"`
		Effect     string `json:"effect"`
		Stock      struct {
			Adjustments []struct {
				Delta string `json:"delta"`
			} `json:"adjustments"`
		} `json:"stock"`
		LedgerEntry struct {
			Amount string `json:"amount"`
		} `json:"ledger_entry"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Order.Status != "DELIVERED" || resp.PrevStatus != "READY_FOR_PICKUP" || resp.Effect != "deliver" {
		t.Errorf("transition: got %+v", resp)
	}
	if len(resp.Stock.Adjustments) != 1 || resp.Stock.Adjustments[0].Delta != "-1000" {
		t.Errorf("stock: got %+v", resp.Stock)
	}
	if resp.LedgerEntry.Amount != "90000.00" {
		t.Errorf("ledger amount: got %s, want 90000.00", resp.LedgerEntry.Amount)
	}

	if got := hub.types(ws.ChannelKitchen); len(got) != 1 || got[0] != ws.EventOrderStatusChanged {
		t.Errorf("kitchen events: got %v", got)
	}
	finance := hub.types(ws.ChannelFinance)
	if len(finance) != 2 || finance[0] != ws.EventStockAdjusted || finance[1] != ws.EventLedgerEntryCreated {
		t.Errorf("finance events: got %v", finance)
	}
}

func TestUpdateStatus_NoEffectOnlyNotifiesKitchen(t *testing.T) {
	o := makeOrder(t, enum.OrderStatusInOven, sampleItems())
	status := &mockStatusService{result: &service.TransitionResult{
		Order:      o,
		PrevStatus: enum.OrderStatusPending,
		Effect:     orderflow.EffectNone,
	}}
	hub := &recordingHub{}
	router := setupOrderRouter(&mockOrderService{t: t}, status, newMockOrderStore(), hub)

	rr := doRequest(t, router, "PATCH", "/orders/"+o.ID.String()+"/status", map[string]string{"status": "IN_OVEN"})
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	resp := decodeResponse(t, rr)
	if _, ok := resp["stock"]; ok {
		t.Error("stock should be omitted when nothing moved")
	}
	if _, ok := resp["ledger_entry"]; ok {
		t.Error("ledger_entry should be omitted when nothing was booked")
	}
	if len(hub.types(ws.ChannelFinance)) != 0 {
		t.Error("finance should not hear about a plain status change")
	}
}

func TestUpdateStatus_Errors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid transition", errors.Wrapf(orderflow.ErrInvalidTransition, "cannot transition from %s", "CANCELLED"), http.StatusConflict},
		{"concurrent change", service.ErrStatusConflict, http.StatusConflict},
		{"unknown status", service.ErrInvalidStatus, http.StatusBadRequest},
		{"missing order", service.ErrOrderNotFound, http.StatusNotFound},
		{"ledger write failed", errors.Wrap(errors.New("disk full"), "create ledger entry"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hub := &recordingHub{}
			router := setupOrderRouter(&mockOrderService{t: t}, &mockStatusService{err: tt.err}, newMockOrderStore(), hub)

			rr := doRequest(t, router, "PATCH", "/orders/"+uuid.New().String()+"/status", map[string]string{"status": "DELIVERED"})
			if rr.Code != tt.want {
				t.Errorf("status: got %d, want %d; body: %s", rr.Code, tt.want, rr.Body.String())
			}
			if len(hub.events) != 0 {
				t.Errorf("events: got %d, want 0", len(hub.events))
			}
		})
	}
}
