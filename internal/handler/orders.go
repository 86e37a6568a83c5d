package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/tv-reposteria/api/internal/database"
	"github.com/tv-reposteria/api/internal/middleware"
	"github.com/tv-reposteria/api/internal/orderflow"
	"github.com/tv-reposteria/api/internal/recipe"
	"github.com/tv-reposteria/api/internal/service"
	"github.com/tv-reposteria/api/internal/ws"
)

// OrderServicer defines the service methods needed by order handlers.
// Satisfied by *service.OrderService; narrow interface for testability.
type OrderServicer interface {
	CreateOrder(ctx context.Context, req service.CreateOrderRequest) (*service.CreateOrderResult, error)
}

// OrderStatusServicer applies status changes with their effects.
// Satisfied by *service.OrderStatusService.
type OrderStatusServicer interface {
	Transition(ctx context.Context, orderID uuid.UUID, to string) (*service.TransitionResult, error)
}

// OrderStore defines the database methods needed by order read handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type OrderStore interface {
	GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
	ListOrders(ctx context.Context, arg database.ListOrdersParams) ([]database.Order, error)
	ListLedgerEntriesByOrder(ctx context.Context, orderID pgtype.UUID) ([]database.LedgerEntry, error)
}

// OrderHandler handles order endpoints.
type OrderHandler struct {
	svc    OrderServicer
	status OrderStatusServicer
	store  OrderStore
	hub    Broadcaster
}

// NewOrderHandler creates a new OrderHandler. hub may be nil.
func NewOrderHandler(svc OrderServicer, status OrderStatusServicer, store OrderStore, hub Broadcaster) *OrderHandler {
	return &OrderHandler{svc: svc, status: status, store: store, hub: hub}
}

// RegisterRoutes registers order endpoints on the given Chi router.
// Expected to be mounted at /orders
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Patch("/{id}/status", h.UpdateStatus)
}

// --- Request / Response types ---

type createOrderRequest struct {
	CustomerName    string                   `json:"customer_name"`
	CustomerContact string                   `json:"customer_contact"`
	DeliveryDate    string                   `json:"delivery_date"`
	DeliveryTime    string                   `json:"delivery_time"`
	Notes           string                   `json:"notes"`
	Items           []createOrderItemRequest `json:"items"`
}

type createOrderItemRequest struct {
	VariationID string `json:"variation_id"`
	Quantity    int32  `json:"quantity"`
	UnitPrice   string `json:"unit_price"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

type orderResponse struct {
	ID              uuid.UUID             `json:"id"`
	OrderNumber     string                `json:"order_number"`
	CustomerName    string                `json:"customer_name"`
	CustomerContact *string               `json:"customer_contact"`
	DeliveryDate    string                `json:"delivery_date"`
	DeliveryTime    *string               `json:"delivery_time"`
	Items           []orderItemResponse   `json:"items"`
	TotalAmount     string                `json:"total_amount"`
	Notes           *string               `json:"notes"`
	Status          string                `json:"status"`
	CreatedBy       *uuid.UUID            `json:"created_by"`
	CreatedAt       time.Time             `json:"created_at"`
	UpdatedAt       time.Time             `json:"updated_at"`
	LedgerEntries   []ledgerEntryResponse `json:"ledger_entries,omitempty"`
}

type orderItemResponse struct {
	VariationID uuid.UUID `json:"variation_id"`
	Product     string    `json:"product"`
	Quantity    int32     `json:"quantity"`
	UnitPrice   string    `json:"unit_price"`
	Subtotal    string    `json:"subtotal"`
}

type transitionResponse struct {
	Order       orderResponse        `json:"order"`
	PrevStatus  string               `json:"prev_status"`
	Effect      string               `json:"effect"`
	Stock       *service.StockResult `json:"stock,omitempty"`
	LedgerEntry *ledgerEntryResponse `json:"ledger_entry,omitempty"`
}

type statusEvent struct {
	OrderID     uuid.UUID `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	From        string    `json:"from"`
	To          string    `json:"to"`
}

// --- Handlers ---

// Create takes a new order. Prices and product names are frozen on the order.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	svcReq := service.CreateOrderRequest{
		CreatedBy:       claims.UserID,
		CustomerName:    req.CustomerName,
		CustomerContact: req.CustomerContact,
		DeliveryDate:    req.DeliveryDate,
		DeliveryTime:    req.DeliveryTime,
		Notes:           req.Notes,
		Items:           make([]service.CreateOrderItemRequest, len(req.Items)),
	}
	for i, item := range req.Items {
		svcReq.Items[i] = service.CreateOrderItemRequest{
			VariationID: item.VariationID,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
		}
	}

	result, err := h.svc.CreateOrder(r.Context(), svcReq)
	if err != nil {
		writeServiceError(w, r, "create order", err)
		return
	}

	resp := toOrderResponse(result.Order, result.Items)
	notify(h.hub, ws.ChannelKitchen, ws.EventOrderCreated, resp)
	writeJSON(w, http.StatusCreated, resp)
}

// List returns orders by delivery date. Filters: status, active, from, to.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseDateFilter(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	limit, offset := parsePagination(r)

	params := database.ListOrdersParams{
		FromDate: from,
		ToDate:   to,
		Limit:    limit,
		Offset:   offset,
	}
	if s := r.URL.Query().Get("status"); s != "" {
		if !orderflow.IsValidStatus(s) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid status"})
			return
		}
		params.Status = pgtype.Text{String: s, Valid: true}
	}
	if s := r.URL.Query().Get("active"); s != "" {
		active, err := strconv.ParseBool(s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid active flag"})
			return
		}
		params.ActiveOnly = active
	}

	orders, err := h.store.ListOrders(r.Context(), params)
	if err != nil {
		writeInternalError(w, r, "list orders", err)
		return
	}

	resp := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		items, err := recipe.DecodeLineItems(o.DetailJson)
		if err != nil {
			writeInternalError(w, r, "decode order "+o.OrderNumber, err)
			return
		}
		resp = append(resp, toOrderResponse(o, items))
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get returns one order with the ledger entries it produced.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	o, err := h.store.GetOrder(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
			return
		}
		writeInternalError(w, r, "get order", err)
		return
	}

	items, err := recipe.DecodeLineItems(o.DetailJson)
	if err != nil {
		writeInternalError(w, r, "decode order "+o.OrderNumber, err)
		return
	}

	entries, err := h.store.ListLedgerEntriesByOrder(r.Context(), pgtype.UUID{Bytes: o.ID, Valid: true})
	if err != nil {
		writeInternalError(w, r, "list order ledger entries", err)
		return
	}

	resp := toOrderResponse(o, items)
	for _, e := range entries {
		resp.LedgerEntries = append(resp.LedgerEntries, toLedgerEntryResponse(e))
	}
	writeJSON(w, http.StatusOK, resp)
}

// UpdateStatus moves an order through its lifecycle. Delivery consumes stock
// and books the sale; cancelling a delivered order reverses both.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	result, err := h.status.Transition(r.Context(), id, req.Status)
	if err != nil {
		writeServiceError(w, r, "update order status", err)
		return
	}

	items, err := recipe.DecodeLineItems(result.Order.DetailJson)
	if err != nil {
		writeInternalError(w, r, "decode order "+result.Order.OrderNumber, err)
		return
	}

	resp := transitionResponse{
		Order:      toOrderResponse(result.Order, items),
		PrevStatus: result.PrevStatus,
		Effect:     result.Effect.String(),
		Stock:      result.Stock,
	}
	if result.LedgerEntry != nil {
		entry := toLedgerEntryResponse(*result.LedgerEntry)
		resp.LedgerEntry = &entry
	}

	notify(h.hub, ws.ChannelKitchen, ws.EventOrderStatusChanged, statusEvent{
		OrderID:     result.Order.ID,
		OrderNumber: result.Order.OrderNumber,
		From:        result.PrevStatus,
		To:          result.Order.Status,
	})
	if resp.Stock != nil {
		notify(h.hub, ws.ChannelFinance, ws.EventStockAdjusted, resp.Stock)
	}
	if resp.LedgerEntry != nil {
		notify(h.hub, ws.ChannelFinance, ws.EventLedgerEntryCreated, resp.LedgerEntry)
	}

	writeJSON(w, http.StatusOK, resp)
}

// --- Helpers ---

func toOrderResponse(o database.Order, items []recipe.LineItem) orderResponse {
	resp := orderResponse{
		ID:           o.ID,
		OrderNumber:  o.OrderNumber,
		CustomerName: o.CustomerName,
		TotalAmount:  numericToString(o.TotalAmount),
		Status:       o.Status,
		CreatedAt:    o.CreatedAt,
		UpdatedAt:    o.UpdatedAt,
		Items:        make([]orderItemResponse, len(items)),
	}
	if o.CustomerContact.Valid {
		resp.CustomerContact = &o.CustomerContact.String
	}
	if o.DeliveryDate.Valid {
		resp.DeliveryDate = o.DeliveryDate.Time.Format(time.DateOnly)
	}
	if o.DeliveryTime.Valid {
		resp.DeliveryTime = &o.DeliveryTime.String
	}
	if o.Notes.Valid {
		resp.Notes = &o.Notes.String
	}
	if o.CreatedBy.Valid {
		id := uuid.UUID(o.CreatedBy.Bytes)
		resp.CreatedBy = &id
	}
	for i, item := range items {
		resp.Items[i] = orderItemResponse{
			VariationID: item.VariationID,
			Product:     item.Product,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice.StringFixed(2),
			Subtotal:    item.Subtotal.StringFixed(2),
		}
	}
	return resp
}

func numericDecimal(n pgtype.Numeric) (decimal.Decimal, bool) {
	if !n.Valid {
		return decimal.Zero, false
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

func numericToString(n pgtype.Numeric) string {
	d, ok := numericDecimal(n)
	if !ok {
		return "0.00"
	}
	return d.StringFixed(2)
}

// quantityToString keeps the four decimals stock and unit costs carry.
func quantityToString(n pgtype.Numeric) string {
	d, ok := numericDecimal(n)
	if !ok {
		return "0.0000"
	}
	return d.StringFixed(4)
}
