package handler

import (
	"net/http"

	"github.com/pkg/errors"

	"github.com/tv-reposteria/api/internal/orderflow"
	"github.com/tv-reposteria/api/internal/pricing"
	"github.com/tv-reposteria/api/internal/recipe"
	"github.com/tv-reposteria/api/internal/service"
	"github.com/tv-reposteria/api/internal/unit"
)

var badRequestErrors = []error{
	service.ErrNameRequired,
	service.ErrInvalidCategory,
	service.ErrInvalidSalePrice,
	service.ErrIngredientItemNotFound,
	service.ErrNonCanonicalUnit,
	service.ErrInvalidAmount,
	service.ErrInvalidDate,
	service.ErrEmptyItems,
	service.ErrCustomerRequired,
	service.ErrDeliveryDateRequired,
	service.ErrInvalidDeliveryDate,
	service.ErrInvalidQuantity,
	service.ErrInvalidVariationID,
	service.ErrVariationNotFound,
	service.ErrInvalidUnitPrice,
	service.ErrInvalidStatus,
	unit.ErrUnsupportedConversion,
	unit.ErrUnknownUnit,
	unit.ErrNonPositiveQuantity,
	recipe.ErrUnknownItem,
	recipe.ErrBadQuantity,
	pricing.ErrNegativeParam,
	pricing.ErrInvalidMode,
	pricing.ErrInvalidYield,
	pricing.ErrModeMismatch,
	pricing.ErrNegativeAmount,
}

var notFoundErrors = []error{
	service.ErrProductBaseNotFound,
	service.ErrItemNotFound,
	service.ErrOrderNotFound,
}

var conflictErrors = []error{
	service.ErrAlreadyExists,
	service.ErrStatusConflict,
	orderflow.ErrInvalidTransition,
}

func matchesAny(err error, targets []error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// writeServiceError maps known service errors to 4xx responses carrying the
// wrapped message; anything else is a 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case matchesAny(err, notFoundErrors):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case matchesAny(err, conflictErrors):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case matchesAny(err, badRequestErrors):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	default:
		writeInternalError(w, r, op, err)
	}
}
