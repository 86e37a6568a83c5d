package enum

// ── Group A: State machines (CHECK constrained in DB) ──

const (
	OrderStatusPending        = "PENDING"
	OrderStatusInOven         = "IN_OVEN"
	OrderStatusReadyForPickup = "READY_FOR_PICKUP"
	OrderStatusDelivered      = "DELIVERED"
	OrderStatusCancelled      = "CANCELLED"
)

const (
	LedgerEntryPurchase     = "PURCHASE"
	LedgerEntrySale         = "SALE"
	LedgerEntrySaleReversal = "SALE_REVERSAL"
)

const (
	StockMovementDelivery = "DELIVERY"
	StockMovementReturn   = "RETURN"
)

// ── Group C: Borderline (CHECK constrained in DB) ──

const (
	UserRoleOwner = "OWNER"
	UserRoleStaff = "STAFF"
)

const (
	CategoryCakes      = "CAKES"
	CategoryCocktail   = "COCKTAIL"
	CategoryIndividual = "INDIVIDUAL"
	CategoryPastry     = "PASTRY"
)

const (
	CostingModePerUnit = "PER_UNIT"
	CostingModeBatch   = "BATCH"
)

// IsValidCategory reports whether c is one of the catalog categories.
func IsValidCategory(c string) bool {
	switch c {
	case CategoryCakes, CategoryCocktail, CategoryIndividual, CategoryPastry:
		return true
	}
	return false
}

// IsValidRole reports whether r is a known user role.
func IsValidRole(r string) bool {
	return r == UserRoleOwner || r == UserRoleStaff
}
