// Package pricing resolves the unit price a cart line is stored with.
// Discount logic lives here and nowhere else: the cart only ever sees the
// already-resolved price.
package pricing

import (
	"fmt"

	"github.com/racoonius-programmer/levelup-storefront/internal/catalog"
	"github.com/racoonius-programmer/levelup-storefront/internal/session"
	"github.com/shopspring/decimal"
)

// Policy computes resolved unit prices for cart insertion.
type Policy struct {
	discountPercent decimal.Decimal
}

// NewPolicy builds a pricing policy with the lifetime discount percentage
// granted to eligible accounts.
func NewPolicy(discountPercent int64) (*Policy, error) {
	if discountPercent < 0 || discountPercent > 100 {
		return nil, fmt.Errorf("discount percent must be within [0,100], got %d", discountPercent)
	}
	return &Policy{discountPercent: decimal.NewFromInt(discountPercent)}, nil
}

// UnitPrice resolves the price one unit of the product costs the given
// identity, in whole currency units. Anonymous and ineligible identities
// pay the base price.
func (p *Policy) UnitPrice(product catalog.Product, identity *session.Identity) int64 {
	base := decimal.NewFromInt(product.Price)
	if identity == nil || !identity.DiscountEligible || p.discountPercent.IsZero() {
		return product.Price
	}
	factor := decimal.NewFromInt(100).Sub(p.discountPercent).Div(decimal.NewFromInt(100))
	discounted := base.Mul(factor).Round(0)
	if discounted.IsNegative() {
		return 0
	}
	return discounted.IntPart()
}

// Discounted reports whether the identity qualifies for the discount.
func (p *Policy) Discounted(identity *session.Identity) bool {
	return identity != nil && identity.DiscountEligible && !p.discountPercent.IsZero()
}
