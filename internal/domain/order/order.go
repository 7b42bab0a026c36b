// Package order holds the order model and the fulfillment coordinator for
// the pending-to-fulfilled transition.
package order

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/boutiq/internal/domain/campaign"
)

// State is the order lifecycle state. The only transition is
// StateNotSold -> StateSold; cancellation deletes the order and is only
// permitted while unsold.
type State string

const (
	StateNotSold State = "not-sold"
	StateSold    State = "sold"
)

// Sentinel errors for order validation and state transitions.
var (
	ErrEmptyItems     = errors.New("items required")
	ErrAlreadySold    = errors.New("order already sold")
	ErrNotCancellable = errors.New("only unsold orders can be cancelled")
)

// ProductNotFoundError indicates an order line references a product that no
// longer exists.
type ProductNotFoundError struct {
	ProductID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %s not found", e.ProductID)
}

// InvalidQuantityError indicates a line item has a non-positive quantity.
type InvalidQuantityError struct {
	ProductID string
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be greater than 0 for product %s", e.ProductID)
}

// OutOfStockError indicates a product has no stock left at all.
type OutOfStockError struct {
	ProductID string
	Name      string
}

func (e *OutOfStockError) Error() string {
	return fmt.Sprintf("product %s (%s) is out of stock", e.Name, e.ProductID)
}

// InsufficientStockError indicates a line asks for more units than are
// available.
type InsufficientStockError struct {
	ProductID string
	Name      string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("product %s (%s): requested %d, only %d in stock",
		e.Name, e.ProductID, e.Requested, e.Available)
}

// Line is one product entry within an order. It is an immutable snapshot
// taken at order-creation time: later campaign or price changes never alter
// it. Price is the frozen line total with any promotion already applied.
type Line struct {
	ProductID string
	Name      string
	Quantity  int
	Price     decimal.Decimal
	Promotion *campaign.Snapshot
}

// Order is a customer order with its immutable line snapshot.
type Order struct {
	ID        string
	FirstName string
	LastName  string
	Address   string
	Phone     string
	UserID    string
	State     State
	Lines     []Line
	CreatedAt time.Time
}

// Total sums the frozen line prices.
func (o *Order) Total() decimal.Decimal {
	sum := decimal.Zero
	for _, line := range o.Lines {
		sum = sum.Add(line.Price)
	}
	return sum
}

// Repository defines persistence operations for orders.
type Repository interface {
	List(ctx context.Context) ([]Order, error)
	GetByID(ctx context.Context, id string) (*Order, error)
	Create(ctx context.Context, o *Order) (*Order, error)
	SetState(ctx context.Context, id string, s State) error
	Delete(ctx context.Context, id string) error
}
