// Package pricing holds the discount calculator: pure functions that
// classify a campaign snapshot against a point in time and compute the
// discounted price of an order line. All arithmetic uses decimals; malformed
// numeric input is rejected at validation time, never propagated as a price.
package pricing

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/boutiq/internal/domain/campaign"
)

// Validity classifies how a campaign applies to a product at a given instant.
type Validity string

const (
	// ValidityNone means no campaign applies: either none is attached, or
	// the attached campaign's time window does not contain the instant.
	ValidityNone Validity = "none"
	// ValidityNonPromotional means the campaign is visible (badge) but does
	// not change the price: it has no complete time window or no reduction.
	ValidityNonPromotional Validity = "non-promotional"
	// ValidityPromotional means the campaign's window contains the instant
	// and it carries a positive reduction, so the price is discounted.
	ValidityPromotional Validity = "promotional"
)

var hundred = decimal.NewFromInt(100)

// Classify returns the validity of the given campaign snapshot at now.
//
// A window only counts when both dates are present; a campaign with a
// partial or missing window never discounts but keeps its badge. An expired
// or not-yet-started window hides the campaign entirely.
func Classify(snap *campaign.Snapshot, now time.Time) Validity {
	if snap == nil {
		return ValidityNone
	}
	if snap.StartDate == nil || snap.EndDate == nil {
		return ValidityNonPromotional
	}
	if now.Before(*snap.StartDate) || now.After(*snap.EndDate) {
		return ValidityNone
	}
	if snap.Reduction.IsPositive() {
		return ValidityPromotional
	}
	return ValidityNonPromotional
}

// DiscountedLinePrice computes the price of quantity units at unitPrice with
// the given percentage reduction applied. A zero reduction leaves the price
// untouched. The result is rounded to 2 decimal places and never negative.
// Reductions outside [0,100] are a caller validation error and are not
// clamped here.
func DiscountedLinePrice(unitPrice decimal.Decimal, quantity int, reduction decimal.Decimal) decimal.Decimal {
	qty := decimal.NewFromInt(int64(quantity))
	line := unitPrice.Mul(qty)
	if reduction.IsZero() {
		return line.Round(2)
	}

	factor := decimal.NewFromInt(1).Sub(reduction.Div(hundred))
	line = line.Mul(factor).Round(2)
	if line.IsNegative() {
		return decimal.Zero
	}
	return line
}
