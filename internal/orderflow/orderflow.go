// Package orderflow defines which order status changes are allowed and what
// each one does to stock and the ledger.
package orderflow

import (
	"github.com/pkg/errors"

	"github.com/tv-reposteria/api/internal/enum"
)

// ErrInvalidTransition is returned for a status change that is not allowed.
var ErrInvalidTransition = errors.New("invalid status transition")

// Effect is the side effect a transition carries besides the status write.
type Effect int

const (
	// EffectNone only writes the new status.
	EffectNone Effect = iota
	// EffectDeliver consumes stock for the order and books the sale.
	EffectDeliver
	// EffectReturn restores the stock consumed at delivery and reverses the sale.
	EffectReturn
)

func (e Effect) String() string {
	switch e {
	case EffectDeliver:
		return "deliver"
	case EffectReturn:
		return "return"
	}
	return "none"
}

// allowedTransitions defines valid status transitions.
// Key is current status, value maps each reachable status to its effect.
var allowedTransitions = map[string]map[string]Effect{
	enum.OrderStatusPending: {
		enum.OrderStatusInOven:    EffectNone,
		enum.OrderStatusCancelled: EffectNone,
	},
	enum.OrderStatusInOven: {
		enum.OrderStatusReadyForPickup: EffectNone,
		enum.OrderStatusCancelled:      EffectNone,
	},
	enum.OrderStatusReadyForPickup: {
		enum.OrderStatusDelivered: EffectDeliver,
		enum.OrderStatusCancelled: EffectNone,
	},
	enum.OrderStatusDelivered: {
		enum.OrderStatusCancelled: EffectReturn,
	},
}

// Transition validates from -> to and returns its effect.
func Transition(from, to string) (Effect, error) {
	next, ok := allowedTransitions[from]
	if !ok {
		return EffectNone, errors.Wrapf(ErrInvalidTransition, "cannot transition from %s", from)
	}
	effect, ok := next[to]
	if !ok {
		return EffectNone, errors.Wrapf(ErrInvalidTransition, "cannot transition from %s to %s", from, to)
	}
	return effect, nil
}

// IsValidStatus reports whether s is a known order status.
func IsValidStatus(s string) bool {
	switch s {
	case enum.OrderStatusPending, enum.OrderStatusInOven, enum.OrderStatusReadyForPickup,
		enum.OrderStatusDelivered, enum.OrderStatusCancelled:
		return true
	}
	return false
}

// IsActive reports whether an order in status s still needs kitchen work.
func IsActive(s string) bool {
	return s == enum.OrderStatusPending || s == enum.OrderStatusInOven || s == enum.OrderStatusReadyForPickup
}
