package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"

	"github.com/xenking/boutiq/internal/domain/order"
	"github.com/xenking/boutiq/internal/store"
)

// ErrOrderNotFound is returned when a requested order does not exist.
var ErrOrderNotFound = errors.New("order not found")

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository on the record store.
type OrderRepository struct {
	store store.Store
}

// NewOrderRepository returns an OrderRepository using the given store.
func NewOrderRepository(st store.Store) *OrderRepository {
	return &OrderRepository{store: st}
}

// List returns all orders, most recently created first.
func (r *OrderRepository) List(ctx context.Context) ([]order.Order, error) {
	records, err := r.store.Find(ctx, store.CollectionOrders, store.OrderBy("createdAt"))
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}

	orders := make([]order.Order, len(records))
	for i, rec := range records {
		orders[i] = *orderFromRecord(rec)
	}
	return orders, nil
}

// GetByID returns a single order by its identifier.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.Order, error) {
	rec, err := r.store.FindByID(ctx, store.CollectionOrders, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}
	return orderFromRecord(*rec), nil
}

// Create persists a new order with its immutable line snapshot.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) (*order.Order, error) {
	lines := make([]any, len(o.Lines))
	for i, line := range o.Lines {
		doc := store.Document{
			"id":       line.ProductID,
			"name":     line.Name,
			"quantity": line.Quantity,
			"price":    line.Price.InexactFloat64(),
		}
		if line.Promotion != nil {
			doc["promotion"] = snapshotToDoc(line.Promotion)
		}
		lines[i] = doc
	}

	rec, err := r.store.Create(ctx, store.CollectionOrders, store.Document{
		"firstName": o.FirstName,
		"lastName":  o.LastName,
		"address":   o.Address,
		"phone":     o.Phone,
		"userId":    o.UserID,
		"state":     string(o.State),
		"products":  lines,
	})
	if err != nil {
		return nil, fmt.Errorf("creating order: %w", err)
	}
	return orderFromRecord(*rec), nil
}

// SetState rewrites only the order's state field.
func (r *OrderRepository) SetState(ctx context.Context, id string, s order.State) error {
	_, err := r.store.Update(ctx, store.CollectionOrders, id, store.Document{
		"state": string(s),
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrOrderNotFound
		}
		return fmt.Errorf("setting state on order %q: %w", id, err)
	}
	return nil
}

// Delete removes the order record.
func (r *OrderRepository) Delete(ctx context.Context, id string) error {
	if err := r.store.DeleteByID(ctx, store.CollectionOrders, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrOrderNotFound
		}
		return fmt.Errorf("deleting order %q: %w", id, err)
	}
	return nil
}

func orderFromRecord(rec store.Record) *order.Order {
	o := &order.Order{
		ID:        rec.ID,
		FirstName: docString(rec.Doc, "firstName"),
		LastName:  docString(rec.Doc, "lastName"),
		Address:   docString(rec.Doc, "address"),
		Phone:     docString(rec.Doc, "phone"),
		UserID:    docString(rec.Doc, "userId"),
		State:     order.State(docString(rec.Doc, "state")),
		CreatedAt: rec.CreatedAt,
	}

	raw, _ := rec.Doc["products"].([]any)
	o.Lines = make([]order.Line, 0, len(raw))
	for _, v := range raw {
		doc, ok := v.(map[string]any)
		if !ok {
			continue
		}
		o.Lines = append(o.Lines, order.Line{
			ProductID: docString(doc, "id"),
			Name:      docString(doc, "name"),
			Quantity:  docInt(doc, "quantity"),
			Price:     docDecimal(doc, "price"),
			Promotion: snapshotFromDoc(docObject(doc, "promotion")),
		})
	}
	return o
}
