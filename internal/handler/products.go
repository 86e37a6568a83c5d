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
	"github.com/tv-reposteria/api/internal/pricing"
	"github.com/tv-reposteria/api/internal/service"
)

// ProductStore defines the database methods needed by product base handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type ProductStore interface {
	ListProductBases(ctx context.Context) ([]database.ProductBase, error)
	GetProductBase(ctx context.Context, id uuid.UUID) (database.ProductBase, error)
	DeleteProductBase(ctx context.Context, id uuid.UUID) (uuid.UUID, error)
	ListVariationsByProductBase(ctx context.Context, productBaseID uuid.UUID) ([]database.Variation, error)
}

// CatalogServicer defines the service methods needed by catalog handlers.
// Satisfied by *service.CatalogService; narrow interface for testability.
type CatalogServicer interface {
	CreateProductBase(ctx context.Context, req service.ProductBaseRequest) (database.ProductBase, error)
	UpdateProductBase(ctx context.Context, id uuid.UUID, req service.ProductBaseRequest) (database.ProductBase, error)
	SaveVariation(ctx context.Context, req service.VariationRequest) (database.Variation, error)
	QuoteVariation(ctx context.Context, id uuid.UUID, params pricing.Params) (*service.VariationQuote, error)
}

// ProductHandler handles product base CRUD endpoints.
type ProductHandler struct {
	svc   CatalogServicer
	store ProductStore
}

// NewProductHandler creates a new ProductHandler.
func NewProductHandler(svc CatalogServicer, store ProductStore) *ProductHandler {
	return &ProductHandler{svc: svc, store: store}
}

// RegisterRoutes registers product base endpoints on the given Chi router.
// Expected to be mounted at /products
func (h *ProductHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Post("/", h.Create)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
}

// --- Request / Response types ---

type productBaseRequest struct {
	Name     string `json:"name"`
	Category string `json:"category"`
	ImageURL string `json:"image_url"`
}

type productBaseResponse struct {
	ID         uuid.UUID           `json:"id"`
	Name       string              `json:"name"`
	Category   string              `json:"category"`
	ImageURL   *string             `json:"image_url"`
	CreatedAt  time.Time           `json:"created_at"`
	UpdatedAt  time.Time           `json:"updated_at"`
	Variations []variationResponse `json:"variations,omitempty"`
}

func toProductBaseResponse(b database.ProductBase) productBaseResponse {
	resp := productBaseResponse{
		ID:        b.ID,
		Name:      b.Name,
		Category:  b.Category,
		CreatedAt: b.CreatedAt,
		UpdatedAt: b.UpdatedAt,
	}
	if b.ImageUrl.Valid {
		resp.ImageURL = &b.ImageUrl.String
	}
	return resp
}

// --- Handlers ---

// List returns every product base.
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	bases, err := h.store.ListProductBases(r.Context())
	if err != nil {
		writeInternalError(w, r, "list product bases", err)
		return
	}

	resp := make([]productBaseResponse, len(bases))
	for i, b := range bases {
		resp[i] = toProductBaseResponse(b)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get returns one product base together with its variations.
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid product ID"})
		return
	}

	base, err := h.store.GetProductBase(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "product not found"})
			return
		}
		writeInternalError(w, r, "get product base", err)
		return
	}

	variations, err := h.store.ListVariationsByProductBase(r.Context(), id)
	if err != nil {
		writeInternalError(w, r, "list variations", err)
		return
	}

	resp := toProductBaseResponse(base)
	resp.Variations = make([]variationResponse, 0, len(variations))
	for _, v := range variations {
		vr, err := toVariationResponse(v)
		if err != nil {
			writeInternalError(w, r, "decode variation "+v.Name, err)
			return
		}
		resp.Variations = append(resp.Variations, vr)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Create adds a product base.
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req productBaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	base, err := h.svc.CreateProductBase(r.Context(), service.ProductBaseRequest{
		Name:     req.Name,
		Category: req.Category,
		ImageURL: req.ImageURL,
	})
	if err != nil {
		writeServiceError(w, r, "create product base", err)
		return
	}

	writeJSON(w, http.StatusCreated, toProductBaseResponse(base))
}

// Update renames or recategorises a product base.
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid product ID"})
		return
	}

	var req productBaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	base, err := h.svc.UpdateProductBase(r.Context(), id, service.ProductBaseRequest{
		Name:     req.Name,
		Category: req.Category,
		ImageURL: req.ImageURL,
	})
	if err != nil {
		writeServiceError(w, r, "update product base", err)
		return
	}

	writeJSON(w, http.StatusOK, toProductBaseResponse(base))
}

// Delete removes a product base and, through the foreign key, its variations.
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid product ID"})
		return
	}

	if _, err := h.store.DeleteProductBase(r.Context(), id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "product not found"})
			return
		}
		writeInternalError(w, r, "delete product base", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
