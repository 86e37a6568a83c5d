package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/tv-reposteria/api/internal/enum"
	"github.com/tv-reposteria/api/internal/pricing"
)

// PricingHandler exposes the cost cascade as a stateless calculator.
type PricingHandler struct{}

// NewPricingHandler creates a new PricingHandler.
func NewPricingHandler() *PricingHandler {
	return &PricingHandler{}
}

// RegisterRoutes registers pricing endpoints on the given Chi router.
func (h *PricingHandler) RegisterRoutes(r chi.Router) {
	r.Get("/pricing/defaults", h.Defaults)
	r.Post("/pricing/quote", h.Quote)
}

// --- Request types ---

// pricingParamsRequest overrides individual pricing parameters; nil fields
// keep their default.
type pricingParamsRequest struct {
	WastePct       *decimal.Decimal `json:"waste_pct"`
	OverheadPct    *decimal.Decimal `json:"overhead_pct"`
	Labor          *decimal.Decimal `json:"labor"`
	MaintenancePct *decimal.Decimal `json:"maintenance_pct"`
	MarginPct      *decimal.Decimal `json:"margin_pct"`
	Packaging      *decimal.Decimal `json:"packaging"`
}

func (req pricingParamsRequest) params() pricing.Params {
	p := pricing.DefaultParams()
	overrides := []struct {
		src *decimal.Decimal
		dst *decimal.Decimal
	}{
		{req.WastePct, &p.WastePct},
		{req.OverheadPct, &p.OverheadPct},
		{req.Labor, &p.Labor},
		{req.MaintenancePct, &p.MaintenancePct},
		{req.MarginPct, &p.MarginPct},
		{req.Packaging, &p.Packaging},
	}
	for _, o := range overrides {
		if o.src != nil {
			*o.dst = *o.src
		}
	}
	return p
}

type quoteRequest struct {
	pricingParamsRequest
	IngredientCost string `json:"ingredient_cost"`
	CostingMode    string `json:"costing_mode"`
	YieldFactor    int32  `json:"yield_factor"`
}

// --- Handlers ---

// Defaults returns the parameters used when a quote overrides nothing.
func (h *PricingHandler) Defaults(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, pricing.DefaultParams())
}

// Quote runs the cascade over a raw ingredient cost.
func (h *PricingHandler) Quote(w http.ResponseWriter, r *http.Request) {
	var req quoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	cost, err := decimal.NewFromString(req.IngredientCost)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid ingredient_cost"})
		return
	}
	if req.CostingMode == "" {
		req.CostingMode = enum.CostingModePerUnit
	}
	if req.YieldFactor == 0 {
		req.YieldFactor = 1
	}

	quote, err := pricing.NewQuote(cost, req.params(), req.CostingMode, req.YieldFactor)
	if err != nil {
		writeServiceError(w, r, "quote", err)
		return
	}
	writeJSON(w, http.StatusOK, quote)
}
