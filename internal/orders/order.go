// Package orders holds the order model, the /pedidos REST client, and
// the reconciliation controller that keeps a local order view in sync
// with the server across storefront instances.
package orders

import (
	"time"

	pkgerrors "github.com/racoonius-programmer/levelup-storefront/pkg/errors"
)

// Status is an order's lifecycle stage, using the backend's wire values.
type Status string

const (
	StatusInPreparation Status = "en preparacion"
	StatusDelivered     Status = "entregado"
)

func (s Status) IsValid() bool {
	return s == StatusInPreparation || s == StatusDelivered
}

// CanTransition reports whether the move to next is allowed. Transitions
// only go forward: once delivered, an order never returns to
// preparation.
func (s Status) CanTransition(next Status) bool {
	return s == StatusInPreparation && next == StatusDelivered
}

// Item is one ordered line: the product identity and the unit price
// captured at order time.
type Item struct {
	Code      string `json:"codigo"`
	Name      string `json:"nombre"`
	Quantity  int    `json:"cantidad"`
	UnitPrice int64  `json:"precio"`
}

// Order is the backend's representation. ID, CreatedAt and Total are
// server-assigned; clients never compute them authoritatively.
type Order struct {
	ID        int64     `json:"id"`
	CreatedAt time.Time `json:"fecha"`
	UserID    string    `json:"usuario"`
	Items     []Item    `json:"items"`
	Status    Status    `json:"estado"`
	Total     int64     `json:"total"`
}

// Draft is the creation payload: no id, timestamp, or total.
type Draft struct {
	UserID string `json:"usuario"`
	Items  []Item `json:"items"`
	Status Status `json:"estado"`
}

// Validate rejects drafts that cannot become orders.
func (d Draft) Validate() error {
	if d.UserID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "order owner is required")
	}
	if len(d.Items) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "order must contain at least one item")
	}
	for _, item := range d.Items {
		if item.Code == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "order item is missing a product code")
		}
		if item.Quantity < 1 {
			return pkgerrors.New(pkgerrors.CodeValidation, "order item quantity must be positive")
		}
	}
	return nil
}

// PopularityByProduct sums ordered quantities per product code. The
// catalog's best-selling sort consumes the result.
func PopularityByProduct(orders []Order) map[string]int {
	popularity := make(map[string]int)
	for _, order := range orders {
		for _, item := range order.Items {
			popularity[item.Code] += item.Quantity
		}
	}
	return popularity
}
