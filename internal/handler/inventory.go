package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"github.com/tv-reposteria/api/internal/database"
	"github.com/tv-reposteria/api/internal/enum"
	"github.com/tv-reposteria/api/internal/middleware"
	"github.com/tv-reposteria/api/internal/service"
	"github.com/tv-reposteria/api/internal/ws"
)

// InventoryStore defines the database methods needed by inventory read and
// delete handlers. Satisfied by *database.Queries.
type InventoryStore interface {
	ListInventoryItems(ctx context.Context) ([]database.InventoryItem, error)
	GetInventoryItem(ctx context.Context, id uuid.UUID) (database.InventoryItem, error)
	DeleteInventoryItem(ctx context.Context, id uuid.UUID) (uuid.UUID, error)
}

// InventoryServicer defines the service methods needed by inventory handlers.
// Satisfied by *service.InventoryService.
type InventoryServicer interface {
	CreateItem(ctx context.Context, req service.CreateItemRequest) (database.InventoryItem, error)
	UpdateMarketPrice(ctx context.Context, id uuid.UUID, pkg service.Package) (database.InventoryItem, error)
	RecordPurchase(ctx context.Context, id uuid.UUID, req service.PurchaseRequest) (*service.PurchaseResult, error)
}

// InventoryHandler handles inventory items, market prices and purchases.
type InventoryHandler struct {
	svc   InventoryServicer
	store InventoryStore
	hub   Broadcaster
}

// NewInventoryHandler creates a new InventoryHandler. hub may be nil.
func NewInventoryHandler(svc InventoryServicer, store InventoryStore, hub Broadcaster) *InventoryHandler {
	return &InventoryHandler{svc: svc, store: store, hub: hub}
}

// RegisterRoutes registers inventory endpoints on the given Chi router.
// Expected to be mounted at /inventory
func (h *InventoryHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)
	r.With(middleware.RequireRole(enum.UserRoleOwner)).Delete("/{id}", h.Delete)
	r.Put("/{id}/price", h.UpdatePrice)
	r.Post("/{id}/purchases", h.Purchase)
}

// --- Request / Response types ---

type packageRequest struct {
	Quantity string `json:"quantity"`
	Unit     string `json:"unit"`
	Price    string `json:"price"`
}

func (p packageRequest) toService() service.Package {
	return service.Package{Quantity: p.Quantity, Unit: p.Unit, Price: p.Price}
}

type createItemRequest struct {
	Name    string          `json:"name"`
	Unit    string          `json:"unit"`
	Package *packageRequest `json:"package"`
}

type purchaseRequest struct {
	Quantity    string `json:"quantity"`
	Unit        string `json:"unit"`
	TotalPaid   string `json:"total_paid"`
	Date        string `json:"date"`
	Description string `json:"description"`
}

type inventoryItemResponse struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	Unit          string    `json:"unit"`
	StockQuantity string    `json:"stock_quantity"`
	UnitCost      string    `json:"unit_cost"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func toInventoryItemResponse(item database.InventoryItem) inventoryItemResponse {
	return inventoryItemResponse{
		ID:            item.ID,
		Name:          item.Name,
		Unit:          item.Unit,
		StockQuantity: quantityToString(item.StockQuantity),
		UnitCost:      quantityToString(item.UnitCost),
		CreatedAt:     item.CreatedAt,
		UpdatedAt:     item.UpdatedAt,
	}
}

type purchaseResponse struct {
	Item        inventoryItemResponse `json:"item"`
	Normalized  string                `json:"normalized_quantity"`
	UnitCost    string                `json:"unit_cost"`
	LedgerEntry ledgerEntryResponse   `json:"ledger_entry"`
}

// --- Handlers ---

// List returns every inventory item.
func (h *InventoryHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.store.ListInventoryItems(r.Context())
	if err != nil {
		writeInternalError(w, r, "list inventory items", err)
		return
	}

	resp := make([]inventoryItemResponse, len(items))
	for i, item := range items {
		resp[i] = toInventoryItemResponse(item)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get returns one inventory item.
func (h *InventoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid item ID"})
		return
	}

	item, err := h.store.GetInventoryItem(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "inventory item not found"})
			return
		}
		writeInternalError(w, r, "get inventory item", err)
		return
	}
	writeJSON(w, http.StatusOK, toInventoryItemResponse(item))
}

// Create adds an inventory item with zero stock.
func (h *InventoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	svcReq := service.CreateItemRequest{Name: req.Name, Unit: req.Unit}
	if req.Package != nil {
		pkg := req.Package.toService()
		svcReq.Package = &pkg
	}

	item, err := h.svc.CreateItem(r.Context(), svcReq)
	if err != nil {
		writeServiceError(w, r, "create inventory item", err)
		return
	}
	writeJSON(w, http.StatusCreated, toInventoryItemResponse(item))
}

// Delete removes an inventory item. Recipes that still name it skip the line
// on delivery.
func (h *InventoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid item ID"})
		return
	}

	if _, err := h.store.DeleteInventoryItem(r.Context(), id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "inventory item not found"})
			return
		}
		writeInternalError(w, r, "delete inventory item", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UpdatePrice re-derives the unit cost from a current package price.
func (h *InventoryHandler) UpdatePrice(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid item ID"})
		return
	}

	var req packageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	item, err := h.svc.UpdateMarketPrice(r.Context(), id, req.toService())
	if err != nil {
		writeServiceError(w, r, "update market price", err)
		return
	}
	writeJSON(w, http.StatusOK, toInventoryItemResponse(item))
}

// Purchase books a purchase: stock goes up, unit cost follows what was paid
// and the expense lands in the ledger.
func (h *InventoryHandler) Purchase(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid item ID"})
		return
	}

	var req purchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	result, err := h.svc.RecordPurchase(r.Context(), id, service.PurchaseRequest{
		Quantity:    req.Quantity,
		Unit:        req.Unit,
		TotalPaid:   req.TotalPaid,
		Date:        req.Date,
		Description: req.Description,
	})
	if err != nil {
		writeServiceError(w, r, "record purchase", err)
		return
	}

	entry := toLedgerEntryResponse(result.LedgerEntry)
	notify(h.hub, ws.ChannelFinance, ws.EventLedgerEntryCreated, entry)

	writeJSON(w, http.StatusCreated, purchaseResponse{
		Item:        toInventoryItemResponse(result.Item),
		Normalized:  result.Normalized.StringFixed(4),
		UnitCost:    result.UnitCost.StringFixed(4),
		LedgerEntry: entry,
	})
}
