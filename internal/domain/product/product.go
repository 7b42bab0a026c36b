// Package product holds the catalog item model.
package product

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/boutiq/internal/domain/campaign"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// ErrStockConflict is returned when a guarded stock decrement is refused
// because it would drop the quantity below zero.
var ErrStockConflict = errors.New("stock decrement conflict")

// Product is a catalog item. Campaign is the denormalized backlink: a
// snapshot of the campaign that currently lists this product, or nil.
type Product struct {
	ID        string
	Name      string
	Price     decimal.Decimal
	Quantity  int
	Category  string
	Campaign  *campaign.Snapshot
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Repository defines persistence operations for products.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)
	Create(ctx context.Context, p *Product) (*Product, error)
	// DecrementStock subtracts by from the product's quantity. The write is
	// rejected with ErrStockConflict when it would go negative; quantities
	// are never clamped.
	DecrementStock(ctx context.Context, id string, by int) error
}
