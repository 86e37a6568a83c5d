package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/tv-reposteria/api/internal/database"
	"github.com/tv-reposteria/api/internal/recipe"
	"github.com/tv-reposteria/api/internal/service"
	"github.com/tv-reposteria/api/internal/unit"
)

// VariationStore defines the database methods needed by variation handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type VariationStore interface {
	GetProductBase(ctx context.Context, id uuid.UUID) (database.ProductBase, error)
	ListVariationsByProductBase(ctx context.Context, productBaseID uuid.UUID) ([]database.Variation, error)
	GetVariation(ctx context.Context, id uuid.UUID) (database.Variation, error)
	DeleteVariation(ctx context.Context, arg database.DeleteVariationParams) (uuid.UUID, error)
}

// VariationHandler handles variation CRUD and quoting.
type VariationHandler struct {
	svc   CatalogServicer
	store VariationStore
}

// NewVariationHandler creates a new VariationHandler.
func NewVariationHandler(svc CatalogServicer, store VariationStore) *VariationHandler {
	return &VariationHandler{svc: svc, store: store}
}

// RegisterRoutes registers variation endpoints on the given Chi router.
// Expected to be mounted at /products/{pid}/variations
func (h *VariationHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
	r.Post("/{id}/quote", h.Quote)
}

// --- Request / Response types ---

type ingredientRequest struct {
	ItemID   string `json:"item_id"`
	Quantity string `json:"quantity"`
	Unit     string `json:"unit"`
}

type variationRequest struct {
	Name        string              `json:"name"`
	Ingredients []ingredientRequest `json:"ingredients"`
	SalePrice   string              `json:"sale_price"`
	YieldFactor int32               `json:"yield_factor"`
	CostingMode string              `json:"costing_mode"`
}

type variationResponse struct {
	ID            uuid.UUID           `json:"id"`
	ProductBaseID uuid.UUID           `json:"product_base_id"`
	Name          string              `json:"name"`
	Ingredients   []recipe.Ingredient `json:"ingredients"`
	SalePrice     string              `json:"sale_price"`
	YieldFactor   int32               `json:"yield_factor"`
	CostingMode   string              `json:"costing_mode"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

func toVariationResponse(v database.Variation) (variationResponse, error) {
	ingredients, err := recipe.DecodeIngredients(v.IngredientsJson)
	if err != nil {
		return variationResponse{}, err
	}
	return variationResponse{
		ID:            v.ID,
		ProductBaseID: v.ProductBaseID,
		Name:          v.Name,
		Ingredients:   ingredients,
		SalePrice:     numericToString(v.SalePrice),
		YieldFactor:   v.YieldFactor,
		CostingMode:   v.CostingMode,
		CreatedAt:     v.CreatedAt,
		UpdatedAt:     v.UpdatedAt,
	}, nil
}

func (req variationRequest) toServiceRequest(id, productBaseID uuid.UUID) (service.VariationRequest, error) {
	lines := make([]recipe.Ingredient, len(req.Ingredients))
	for i, in := range req.Ingredients {
		itemID, err := uuid.Parse(in.ItemID)
		if err != nil {
			return service.VariationRequest{}, errors.Errorf("ingredients[%d]: invalid item_id", i)
		}
		qty, err := decimal.NewFromString(in.Quantity)
		if err != nil {
			return service.VariationRequest{}, errors.Errorf("ingredients[%d]: invalid quantity", i)
		}
		u, err := unit.Parse(in.Unit)
		if err != nil {
			return service.VariationRequest{}, errors.Wrapf(err, "ingredients[%d]", i)
		}
		lines[i] = recipe.Ingredient{ItemID: itemID, Quantity: qty, Unit: u}
	}
	return service.VariationRequest{
		ID:            id,
		ProductBaseID: productBaseID,
		Name:          req.Name,
		Ingredients:   lines,
		SalePrice:     req.SalePrice,
		YieldFactor:   req.YieldFactor,
		CostingMode:   req.CostingMode,
	}, nil
}

// --- Handlers ---

// List returns the variations of a product base.
func (h *VariationHandler) List(w http.ResponseWriter, r *http.Request) {
	pid, ok := h.productBaseID(w, r)
	if !ok {
		return
	}

	variations, err := h.store.ListVariationsByProductBase(r.Context(), pid)
	if err != nil {
		writeInternalError(w, r, "list variations", err)
		return
	}

	resp := make([]variationResponse, 0, len(variations))
	for _, v := range variations {
		vr, err := toVariationResponse(v)
		if err != nil {
			writeInternalError(w, r, "decode variation "+v.Name, err)
			return
		}
		resp = append(resp, vr)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get returns one variation.
func (h *VariationHandler) Get(w http.ResponseWriter, r *http.Request) {
	v, ok := h.variation(w, r)
	if !ok {
		return
	}
	resp, err := toVariationResponse(v)
	if err != nil {
		writeInternalError(w, r, "decode variation", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Create adds a variation to a product base.
func (h *VariationHandler) Create(w http.ResponseWriter, r *http.Request) {
	pid, err := uuid.Parse(chi.URLParam(r, "pid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid product ID"})
		return
	}
	h.save(w, r, uuid.Nil, pid, http.StatusCreated)
}

// Update replaces a variation's recipe, price and costing mode.
func (h *VariationHandler) Update(w http.ResponseWriter, r *http.Request) {
	v, ok := h.variation(w, r)
	if !ok {
		return
	}
	h.save(w, r, v.ID, v.ProductBaseID, http.StatusOK)
}

func (h *VariationHandler) save(w http.ResponseWriter, r *http.Request, id, pid uuid.UUID, status int) {
	var req variationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	svcReq, err := req.toServiceRequest(id, pid)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	saved, err := h.svc.SaveVariation(r.Context(), svcReq)
	if err != nil {
		if errors.Is(err, service.ErrVariationNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "variation not found"})
			return
		}
		writeServiceError(w, r, "save variation", err)
		return
	}

	resp, err := toVariationResponse(saved)
	if err != nil {
		writeInternalError(w, r, "decode variation", err)
		return
	}
	writeJSON(w, status, resp)
}

// Delete removes a variation.
func (h *VariationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	pid, err := uuid.Parse(chi.URLParam(r, "pid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid product ID"})
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid variation ID"})
		return
	}

	if _, err := h.store.DeleteVariation(r.Context(), database.DeleteVariationParams{ID: id, ProductBaseID: pid}); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "variation not found"})
			return
		}
		writeInternalError(w, r, "delete variation", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Quote prices a saved variation at current inventory costs. The body may
// override any pricing parameter; an empty body uses the defaults.
func (h *VariationHandler) Quote(w http.ResponseWriter, r *http.Request) {
	v, ok := h.variation(w, r)
	if !ok {
		return
	}

	var req pricingParamsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	quote, err := h.svc.QuoteVariation(r.Context(), v.ID, req.params())
	if err != nil {
		if errors.Is(err, service.ErrVariationNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "variation not found"})
			return
		}
		writeServiceError(w, r, "quote variation", err)
		return
	}
	writeJSON(w, http.StatusOK, quote)
}

// --- Helpers ---

// productBaseID parses {pid} and checks the product base exists.
func (h *VariationHandler) productBaseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	pid, err := uuid.Parse(chi.URLParam(r, "pid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid product ID"})
		return uuid.Nil, false
	}
	if _, err := h.store.GetProductBase(r.Context(), pid); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "product not found"})
			return uuid.Nil, false
		}
		writeInternalError(w, r, "get product base", err)
		return uuid.Nil, false
	}
	return pid, true
}

// variation loads {id} and checks it belongs to {pid}.
func (h *VariationHandler) variation(w http.ResponseWriter, r *http.Request) (database.Variation, bool) {
	pid, err := uuid.Parse(chi.URLParam(r, "pid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid product ID"})
		return database.Variation{}, false
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid variation ID"})
		return database.Variation{}, false
	}

	v, err := h.store.GetVariation(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "variation not found"})
			return database.Variation{}, false
		}
		writeInternalError(w, r, "get variation", err)
		return database.Variation{}, false
	}
	if v.ProductBaseID != pid {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "variation not found"})
		return database.Variation{}, false
	}
	return v, true
}
