package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"

	"github.com/xenking/boutiq/internal/domain/campaign"
	"github.com/xenking/boutiq/internal/domain/product"
	"github.com/xenking/boutiq/internal/store"
)

var (
	_ product.Repository = (*ProductRepository)(nil)
	_ campaign.Backlinks = (*ProductRepository)(nil)
)

// ProductRepository implements product.Repository and the backlink surface
// the campaign coordinator writes through.
type ProductRepository struct {
	store store.Store
}

// NewProductRepository returns a ProductRepository using the given store.
func NewProductRepository(st store.Store) *ProductRepository {
	return &ProductRepository{store: st}
}

// List returns all products, most recently created first.
func (r *ProductRepository) List(ctx context.Context) ([]product.Product, error) {
	records, err := r.store.Find(ctx, store.CollectionProducts, store.OrderBy("createdAt"))
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}

	products := make([]product.Product, len(records))
	for i, rec := range records {
		products[i] = *productFromRecord(rec)
	}
	return products, nil
}

// GetByID returns a single product by its identifier.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*product.Product, error) {
	rec, err := r.store.FindByID(ctx, store.CollectionProducts, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, product.ErrNotFound
		}
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}
	return productFromRecord(*rec), nil
}

// Create persists a new product record. A caller-supplied ID is honored so
// import tools can keep supplier SKUs.
func (r *ProductRepository) Create(ctx context.Context, p *product.Product) (*product.Product, error) {
	doc := store.Document{
		"name":     p.Name,
		"price":    p.Price.InexactFloat64(),
		"quantity": p.Quantity,
		"category": p.Category,
	}
	if p.ID != "" {
		doc["id"] = p.ID
	}
	if p.Campaign != nil {
		doc["campaign"] = snapshotToDoc(p.Campaign)
	}

	rec, err := r.store.Create(ctx, store.CollectionProducts, doc)
	if err != nil {
		return nil, fmt.Errorf("creating product: %w", err)
	}
	return productFromRecord(*rec), nil
}

// DecrementStock subtracts by from the product's quantity. When the store
// offers a server-side guarded decrement it is used; otherwise the fallback
// is the historical read-validate-write sequence, which is racy under
// concurrent sellers. Either way a write that would go negative is rejected
// with product.ErrStockConflict, never clamped.
func (r *ProductRepository) DecrementStock(ctx context.Context, id string, by int) error {
	if dec, ok := r.store.(store.Decrementer); ok {
		err := dec.DecrementField(ctx, store.CollectionProducts, id, "quantity", by)
		if errors.Is(err, store.ErrConflict) {
			return product.ErrStockConflict
		}
		if err != nil {
			return fmt.Errorf("decrementing stock for product %q: %w", id, err)
		}
		return nil
	}

	p, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if p.Quantity < by {
		return product.ErrStockConflict
	}
	if _, err := r.store.Update(ctx, store.CollectionProducts, id, store.Document{
		"quantity": p.Quantity - by,
	}); err != nil {
		return fmt.Errorf("decrementing stock for product %q: %w", id, err)
	}
	return nil
}

// SetBacklink writes the campaign snapshot onto the product.
func (r *ProductRepository) SetBacklink(ctx context.Context, productID string, snap *campaign.Snapshot) error {
	_, err := r.store.Update(ctx, store.CollectionProducts, productID, store.Document{
		"campaign": snapshotToDoc(snap),
	})
	if err != nil {
		return fmt.Errorf("setting backlink on product %q: %w", productID, err)
	}
	return nil
}

// ClearBacklink removes the embedded campaign snapshot from the product.
func (r *ProductRepository) ClearBacklink(ctx context.Context, productID string) error {
	_, err := r.store.Update(ctx, store.CollectionProducts, productID, store.Document{
		"campaign": nil,
	})
	if err != nil {
		return fmt.Errorf("clearing backlink on product %q: %w", productID, err)
	}
	return nil
}

// ListIDsByCampaign returns the IDs of products whose embedded snapshot
// references the given campaign.
func (r *ProductRepository) ListIDsByCampaign(ctx context.Context, campaignID string) ([]string, error) {
	records, err := r.store.Find(ctx, store.CollectionProducts,
		store.FilterBy("campaign/id", campaignID),
	)
	if err != nil {
		return nil, fmt.Errorf("listing products for campaign %q: %w", campaignID, err)
	}

	ids := make([]string, len(records))
	for i, rec := range records {
		ids[i] = rec.ID
	}
	return ids, nil
}

func productFromRecord(rec store.Record) *product.Product {
	return &product.Product{
		ID:        rec.ID,
		Name:      docString(rec.Doc, "name"),
		Price:     docDecimal(rec.Doc, "price"),
		Quantity:  docInt(rec.Doc, "quantity"),
		Category:  docString(rec.Doc, "category"),
		Campaign:  snapshotFromDoc(docObject(rec.Doc, "campaign")),
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	}
}
