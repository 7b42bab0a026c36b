package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/boutiq/internal/domain/product"
	"github.com/xenking/boutiq/internal/pricing"
	"github.com/xenking/boutiq/internal/repair"
)

// Item is one requested product in a place-order request.
type Item struct {
	ProductID string
	Quantity  int
}

// PlaceRequest holds the input for creating an order.
type PlaceRequest struct {
	FirstName string
	LastName  string
	Address   string
	Phone     string
	UserID    string
	Items     []Item
}

// Service encapsulates order assembly and fulfillment.
type Service struct {
	orders   Repository
	products product.Repository
	repairs  repair.Reporter
	now      func() time.Time
}

// NewService creates an order Service with the required domain dependencies.
func NewService(orders Repository, products product.Repository, repairs repair.Reporter) *Service {
	return &Service{
		orders:   orders,
		products: products,
		repairs:  repairs,
		now:      time.Now,
	}
}

// WithClock replaces the time source used for campaign classification.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Place assembles and persists a new order in the not-sold state. Each line
// freezes the product name, the effective discounted price, and (when a
// promotion applies) the campaign snapshot, so later campaign or price
// changes never retroactively alter the order. Stock is not touched here;
// it is only decremented at sale time.
func (s *Service) Place(ctx context.Context, req PlaceRequest) (*Order, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}

	now := s.now()
	lines := make([]Line, 0, len(req.Items))
	for _, item := range req.Items {
		if item.Quantity <= 0 {
			return nil, &InvalidQuantityError{ProductID: item.ProductID}
		}

		p, err := s.products.GetByID(ctx, item.ProductID)
		if err != nil {
			if errors.Is(err, product.ErrNotFound) {
				return nil, &ProductNotFoundError{ProductID: item.ProductID}
			}
			return nil, errors.Wrapf(err, "get product %s", item.ProductID)
		}

		line := Line{
			ProductID: p.ID,
			Name:      p.Name,
			Quantity:  item.Quantity,
			Price:     pricing.DiscountedLinePrice(p.Price, item.Quantity, decimal.Zero),
		}
		if pricing.Classify(p.Campaign, now) == pricing.ValidityPromotional {
			line.Price = pricing.DiscountedLinePrice(p.Price, item.Quantity, p.Campaign.Reduction)
			line.Promotion = p.Campaign
		}
		lines = append(lines, line)
	}

	o := &Order{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Address:   req.Address,
		Phone:     req.Phone,
		UserID:    req.UserID,
		State:     StateNotSold,
		Lines:     lines,
	}

	created, err := s.orders.Create(ctx, o)
	if err != nil {
		return nil, errors.Wrap(err, "create order")
	}
	return created, nil
}

// MarkAsSold applies the not-sold -> sold transition. Every line is
// validated against current stock before any mutation: a missing product,
// an empty shelf, or an insufficient quantity aborts the whole operation
// with the order and all stock untouched. Only after all lines pass is the
// order marked sold and each product's quantity decremented. The decrements
// are still one write per product with no atomicity across products; a
// failure there leaves the order sold and is routed to the repair reporter.
func (s *Service) MarkAsSold(ctx context.Context, orderID string) (*Order, error) {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, errors.Wrap(err, "load order")
	}
	if o.State == StateSold {
		return nil, ErrAlreadySold
	}

	// Validation pass: no mutation until every line checks out. Lines
	// referencing the same product are validated against their combined
	// quantity, so duplicates cannot each pass individually and then have a
	// later decrement refused.
	requested := make(map[string]int, len(o.Lines))
	for _, line := range o.Lines {
		requested[line.ProductID] += line.Quantity
	}
	for _, line := range o.Lines {
		total, pending := requested[line.ProductID]
		if !pending {
			continue
		}
		delete(requested, line.ProductID)

		p, err := s.products.GetByID(ctx, line.ProductID)
		if err != nil {
			if errors.Is(err, product.ErrNotFound) {
				return nil, &ProductNotFoundError{ProductID: line.ProductID}
			}
			return nil, errors.Wrapf(err, "get product %s", line.ProductID)
		}
		if p.Quantity == 0 {
			return nil, &OutOfStockError{ProductID: p.ID, Name: p.Name}
		}
		if total > p.Quantity {
			return nil, &InsufficientStockError{
				ProductID: p.ID,
				Name:      p.Name,
				Requested: total,
				Available: p.Quantity,
			}
		}
	}

	if err := s.orders.SetState(ctx, o.ID, StateSold); err != nil {
		return nil, errors.Wrap(err, "mark order sold")
	}
	o.State = StateSold

	// Stock mutation pass. Guarded decrements refuse to go negative; a
	// refused or failed decrement after the order is already sold is a
	// known consistency gap, reported for repair rather than rolled back.
	for _, line := range o.Lines {
		if err := s.products.DecrementStock(ctx, line.ProductID, line.Quantity); err != nil {
			s.repairs.Report(ctx, repair.Repair{
				Collection: "products",
				RecordID:   line.ProductID,
				Action:     "decrement-stock",
				Reason:     err.Error(),
			})
		}
	}

	return o, nil
}

// Cancel deletes an unsold order. Stock is never restored because it was
// never decremented: quantities only change at sale time.
func (s *Service) Cancel(ctx context.Context, orderID string) error {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return errors.Wrap(err, "load order")
	}
	if o.State != StateNotSold {
		return ErrNotCancellable
	}

	if err := s.orders.Delete(ctx, o.ID); err != nil {
		return errors.Wrap(err, "delete order")
	}
	return nil
}
