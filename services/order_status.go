package services

import "github.com/buildmart/marketplace-api/models"

// fulfilmentPath is the forward order of the status machine. Each status may
// only advance to the next one; CANCELLED is reachable from any non-terminal
// status.
var fulfilmentPath = []models.OrderStatus{
	models.OrderPending,
	models.OrderConfirmed,
	models.OrderProcessing,
	models.OrderReady,
	models.OrderShipped,
	models.OrderDelivered,
}

// NextStatus returns the status following s on the fulfilment path
func NextStatus(s models.OrderStatus) (models.OrderStatus, bool) {
	for i, status := range fulfilmentPath {
		if status == s && i+1 < len(fulfilmentPath) {
			return fulfilmentPath[i+1], true
		}
	}
	return "", false
}

// CanTransition reports whether an order may move from one status to another.
// Same-status updates are not transitions and are handled by the caller.
func CanTransition(from, to models.OrderStatus) bool {
	if !from.Valid() || !to.Valid() || from.IsTerminal() {
		return false
	}
	if to == models.OrderCancelled {
		return true
	}
	next, ok := NextStatus(from)
	return ok && next == to
}

// AllowedTransitions lists the statuses reachable from s
func AllowedTransitions(s models.OrderStatus) []models.OrderStatus {
	if !s.Valid() || s.IsTerminal() {
		return []models.OrderStatus{}
	}
	allowed := []models.OrderStatus{}
	if next, ok := NextStatus(s); ok {
		allowed = append(allowed, next)
	}
	return append(allowed, models.OrderCancelled)
}

// allowedFor narrows AllowedTransitions to what the viewer may request: the
// supplier drives fulfilment, the purchaser may only cancel
func allowedFor(status models.OrderStatus, isSupplier bool) []models.OrderStatus {
	allowed := AllowedTransitions(status)
	if isSupplier {
		return allowed
	}
	for _, s := range allowed {
		if s == models.OrderCancelled {
			return []models.OrderStatus{models.OrderCancelled}
		}
	}
	return []models.OrderStatus{}
}
