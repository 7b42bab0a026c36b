package order

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/boutiq/internal/domain/campaign"
	"github.com/xenking/boutiq/internal/domain/product"
	"github.com/xenking/boutiq/internal/repair"
)

// --- Mock implementations ---

type mockProductRepo struct {
	byID         map[string]*product.Product
	decremented  map[string]int
	decrementErr error
}

func (m *mockProductRepo) List(_ context.Context) ([]product.Product, error) {
	return nil, nil
}

func (m *mockProductRepo) GetByID(_ context.Context, id string) (*product.Product, error) {
	p, ok := m.byID[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	clone := *p
	return &clone, nil
}

func (m *mockProductRepo) Create(_ context.Context, p *product.Product) (*product.Product, error) {
	return p, nil
}

func (m *mockProductRepo) DecrementStock(_ context.Context, id string, by int) error {
	if m.decrementErr != nil {
		return m.decrementErr
	}
	p, ok := m.byID[id]
	if !ok || p.Quantity < by {
		return product.ErrStockConflict
	}
	p.Quantity -= by
	if m.decremented == nil {
		m.decremented = make(map[string]int)
	}
	m.decremented[id] += by
	return nil
}

type mockOrderRepo struct {
	byID      map[string]*Order
	createErr error
	setErr    error
	deleted   []string
}

func (m *mockOrderRepo) List(_ context.Context) ([]Order, error) {
	return nil, nil
}

func (m *mockOrderRepo) GetByID(_ context.Context, id string) (*Order, error) {
	o, ok := m.byID[id]
	if !ok {
		return nil, errOrderMissing
	}
	clone := *o
	return &clone, nil
}

func (m *mockOrderRepo) Create(_ context.Context, o *Order) (*Order, error) {
	if m.createErr != nil {
		return nil, m.createErr
	}
	o.ID = "o1"
	if m.byID == nil {
		m.byID = make(map[string]*Order)
	}
	m.byID[o.ID] = o
	return o, nil
}

func (m *mockOrderRepo) SetState(_ context.Context, id string, s State) error {
	if m.setErr != nil {
		return m.setErr
	}
	o, ok := m.byID[id]
	if !ok {
		return errOrderMissing
	}
	o.State = s
	return nil
}

func (m *mockOrderRepo) Delete(_ context.Context, id string) error {
	delete(m.byID, id)
	m.deleted = append(m.deleted, id)
	return nil
}

var errOrderMissing = errors.New("order not found")

type recordingReporter struct {
	repairs []repair.Repair
}

func (r *recordingReporter) Report(_ context.Context, rep repair.Repair) {
	r.repairs = append(r.repairs, rep)
}

// --- Helpers ---

func newTestProduct(id, name string, price string, quantity int) *product.Product {
	return &product.Product{
		ID:       id,
		Name:     name,
		Price:    decimal.RequireFromString(price),
		Quantity: quantity,
		Category: "test",
	}
}

func newProductRepo(products ...*product.Product) *mockProductRepo {
	byID := make(map[string]*product.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	return &mockProductRepo{byID: byID}
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// --- Place ---

func TestPlace_EmptyItems(t *testing.T) {
	svc := NewService(&mockOrderRepo{}, newProductRepo(), repair.Discard)

	_, err := svc.Place(context.Background(), PlaceRequest{})
	require.ErrorIs(t, err, ErrEmptyItems)
}

func TestPlace_InvalidQuantity(t *testing.T) {
	svc := NewService(&mockOrderRepo{}, newProductRepo(newTestProduct("p1", "Tee", "10.00", 5)), repair.Discard)

	_, err := svc.Place(context.Background(), PlaceRequest{
		Items: []Item{{ProductID: "p1", Quantity: 0}},
	})

	var iqErr *InvalidQuantityError
	require.ErrorAs(t, err, &iqErr)
	assert.Equal(t, "p1", iqErr.ProductID)
}

func TestPlace_ProductNotFound(t *testing.T) {
	svc := NewService(&mockOrderRepo{}, newProductRepo(), repair.Discard)

	_, err := svc.Place(context.Background(), PlaceRequest{
		Items: []Item{{ProductID: "missing", Quantity: 1}},
	})

	var pnfErr *ProductNotFoundError
	require.ErrorAs(t, err, &pnfErr)
	assert.Equal(t, "missing", pnfErr.ProductID)
}

func TestPlace_FreezesLinePrices(t *testing.T) {
	repo := &mockOrderRepo{}
	svc := NewService(repo,
		newProductRepo(
			newTestProduct("p1", "Tee", "10.00", 5),
			newTestProduct("p2", "Jeans", "20.00", 5),
		),
		repair.Discard,
	)

	o, err := svc.Place(context.Background(), PlaceRequest{
		FirstName: "Ada",
		Items: []Item{
			{ProductID: "p1", Quantity: 2},
			{ProductID: "p2", Quantity: 1},
		},
	})

	require.NoError(t, err)
	assert.Equal(t, StateNotSold, o.State)
	require.Len(t, o.Lines, 2)
	assert.True(t, decimal.RequireFromString("20.00").Equal(o.Lines[0].Price))
	assert.True(t, decimal.RequireFromString("20.00").Equal(o.Lines[1].Price))
	assert.True(t, decimal.RequireFromString("40.00").Equal(o.Total()))
	assert.Nil(t, o.Lines[0].Promotion)
}

func TestPlace_AppliesActivePromotion(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	start := now.AddDate(0, 0, -1)
	end := now.AddDate(0, 0, 1)

	p := newTestProduct("p1", "Tee", "10.00", 5)
	p.Campaign = &campaign.Snapshot{
		ID:        "c1",
		Title:     "Sale",
		Reduction: decimal.RequireFromString("10"),
		StartDate: &start,
		EndDate:   &end,
	}

	svc := NewService(&mockOrderRepo{}, newProductRepo(p), repair.Discard).
		WithClock(fixedClock(now))

	o, err := svc.Place(context.Background(), PlaceRequest{
		Items: []Item{{ProductID: "p1", Quantity: 3}},
	})

	require.NoError(t, err)
	require.Len(t, o.Lines, 1)
	assert.True(t, decimal.RequireFromString("27.00").Equal(o.Lines[0].Price))
	require.NotNil(t, o.Lines[0].Promotion)
	assert.Equal(t, "c1", o.Lines[0].Promotion.ID)
}

func TestPlace_ExpiredPromotionIgnored(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	start := now.AddDate(0, -2, 0)
	end := now.AddDate(0, -1, 0)

	p := newTestProduct("p1", "Tee", "10.00", 5)
	p.Campaign = &campaign.Snapshot{
		ID:        "c1",
		Reduction: decimal.RequireFromString("50"),
		StartDate: &start,
		EndDate:   &end,
	}

	svc := NewService(&mockOrderRepo{}, newProductRepo(p), repair.Discard).
		WithClock(fixedClock(now))

	o, err := svc.Place(context.Background(), PlaceRequest{
		Items: []Item{{ProductID: "p1", Quantity: 1}},
	})

	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("10.00").Equal(o.Lines[0].Price))
	assert.Nil(t, o.Lines[0].Promotion)
}

func TestPlace_DoesNotTouchStock(t *testing.T) {
	products := newProductRepo(newTestProduct("p1", "Tee", "10.00", 5))
	svc := NewService(&mockOrderRepo{}, products, repair.Discard)

	_, err := svc.Place(context.Background(), PlaceRequest{
		Items: []Item{{ProductID: "p1", Quantity: 3}},
	})

	require.NoError(t, err)
	assert.Equal(t, 5, products.byID["p1"].Quantity)
}

// --- MarkAsSold ---

func placeOrder(t *testing.T, svc *Service, items ...Item) *Order {
	t.Helper()
	o, err := svc.Place(context.Background(), PlaceRequest{Items: items})
	require.NoError(t, err)
	return o
}

func TestMarkAsSold_DecrementsStock(t *testing.T) {
	products := newProductRepo(
		newTestProduct("p1", "Tee", "10.00", 5),
		newTestProduct("p2", "Jeans", "20.00", 2),
	)
	repo := &mockOrderRepo{}
	svc := NewService(repo, products, repair.Discard)

	o := placeOrder(t, svc,
		Item{ProductID: "p1", Quantity: 3},
		Item{ProductID: "p2", Quantity: 2},
	)

	sold, err := svc.MarkAsSold(context.Background(), o.ID)
	require.NoError(t, err)

	assert.Equal(t, StateSold, sold.State)
	assert.Equal(t, 2, products.byID["p1"].Quantity)
	assert.Equal(t, 0, products.byID["p2"].Quantity)
}

func TestMarkAsSold_InsufficientStock(t *testing.T) {
	products := newProductRepo(newTestProduct("p1", "Tee", "10.00", 3))
	repo := &mockOrderRepo{}
	svc := NewService(repo, products, repair.Discard)

	o := placeOrder(t, svc, Item{ProductID: "p1", Quantity: 5})

	_, err := svc.MarkAsSold(context.Background(), o.ID)

	var isErr *InsufficientStockError
	require.ErrorAs(t, err, &isErr)
	assert.Equal(t, 5, isErr.Requested)
	assert.Equal(t, 3, isErr.Available)

	// Nothing was mutated.
	assert.Equal(t, 3, products.byID["p1"].Quantity)
	assert.Equal(t, StateNotSold, repo.byID[o.ID].State)
}

func TestMarkAsSold_OutOfStock(t *testing.T) {
	products := newProductRepo(newTestProduct("p1", "Tee", "10.00", 0))
	repo := &mockOrderRepo{}
	svc := NewService(repo, products, repair.Discard)

	o := &Order{
		ID:    "o1",
		State: StateNotSold,
		Lines: []Line{{ProductID: "p1", Name: "Tee", Quantity: 1}},
	}
	repo.byID = map[string]*Order{"o1": o}

	_, err := svc.MarkAsSold(context.Background(), "o1")

	var oosErr *OutOfStockError
	require.ErrorAs(t, err, &oosErr)
	assert.Equal(t, "p1", oosErr.ProductID)
	assert.Equal(t, StateNotSold, repo.byID["o1"].State)
}

func TestMarkAsSold_ValidatesAllLinesBeforeMutating(t *testing.T) {
	products := newProductRepo(
		newTestProduct("p1", "Tee", "10.00", 5),
		newTestProduct("p2", "Jeans", "20.00", 1),
	)
	repo := &mockOrderRepo{}
	svc := NewService(repo, products, repair.Discard)

	o := placeOrder(t, svc,
		Item{ProductID: "p1", Quantity: 2},
		Item{ProductID: "p2", Quantity: 3},
	)

	_, err := svc.MarkAsSold(context.Background(), o.ID)

	var isErr *InsufficientStockError
	require.ErrorAs(t, err, &isErr)
	// The passing first line must not have been decremented.
	assert.Equal(t, 5, products.byID["p1"].Quantity)
	assert.Equal(t, 1, products.byID["p2"].Quantity)
}

func TestMarkAsSold_DuplicateLinesValidateCombined(t *testing.T) {
	products := newProductRepo(newTestProduct("p1", "Tee", "10.00", 3))
	repo := &mockOrderRepo{}
	svc := NewService(repo, products, repair.Discard)

	// Two lines for the same product: each fits stock on its own, but not
	// together. Validation must refuse before any mutation instead of
	// letting the second decrement fail after the order is sold.
	o := placeOrder(t, svc,
		Item{ProductID: "p1", Quantity: 2},
		Item{ProductID: "p1", Quantity: 2},
	)

	_, err := svc.MarkAsSold(context.Background(), o.ID)

	var isErr *InsufficientStockError
	require.ErrorAs(t, err, &isErr)
	assert.Equal(t, 4, isErr.Requested)
	assert.Equal(t, 3, isErr.Available)
	assert.Equal(t, 3, products.byID["p1"].Quantity)
	assert.Equal(t, StateNotSold, repo.byID[o.ID].State)
}

func TestMarkAsSold_DuplicateLinesWithinStock(t *testing.T) {
	products := newProductRepo(newTestProduct("p1", "Tee", "10.00", 3))
	repo := &mockOrderRepo{}
	svc := NewService(repo, products, repair.Discard)

	o := placeOrder(t, svc,
		Item{ProductID: "p1", Quantity: 2},
		Item{ProductID: "p1", Quantity: 1},
	)

	sold, err := svc.MarkAsSold(context.Background(), o.ID)
	require.NoError(t, err)

	assert.Equal(t, StateSold, sold.State)
	assert.Equal(t, 0, products.byID["p1"].Quantity)
}

func TestMarkAsSold_AlreadySold(t *testing.T) {
	repo := &mockOrderRepo{byID: map[string]*Order{
		"o1": {ID: "o1", State: StateSold},
	}}
	svc := NewService(repo, newProductRepo(), repair.Discard)

	_, err := svc.MarkAsSold(context.Background(), "o1")
	require.ErrorIs(t, err, ErrAlreadySold)
}

func TestMarkAsSold_DecrementFailureReported(t *testing.T) {
	products := newProductRepo(newTestProduct("p1", "Tee", "10.00", 5))
	repo := &mockOrderRepo{}
	reporter := &recordingReporter{}
	svc := NewService(repo, products, reporter)

	o := placeOrder(t, svc, Item{ProductID: "p1", Quantity: 2})

	products.decrementErr = product.ErrStockConflict

	sold, err := svc.MarkAsSold(context.Background(), o.ID)

	// The sale itself succeeds; the failed decrement is reported, not
	// rolled back.
	require.NoError(t, err)
	assert.Equal(t, StateSold, sold.State)
	require.Len(t, reporter.repairs, 1)
	assert.Equal(t, "products", reporter.repairs[0].Collection)
	assert.Equal(t, "p1", reporter.repairs[0].RecordID)
	assert.Equal(t, "decrement-stock", reporter.repairs[0].Action)
}

// --- Cancel ---

func TestCancel_DeletesUnsoldOrder(t *testing.T) {
	products := newProductRepo(newTestProduct("p1", "Tee", "10.00", 5))
	repo := &mockOrderRepo{}
	svc := NewService(repo, products, repair.Discard)

	o := placeOrder(t, svc, Item{ProductID: "p1", Quantity: 1})

	require.NoError(t, svc.Cancel(context.Background(), o.ID))
	assert.Equal(t, []string{o.ID}, repo.deleted)
	// Stock was never decremented, so nothing is restored.
	assert.Equal(t, 5, products.byID["p1"].Quantity)
}

func TestCancel_SoldOrderRefused(t *testing.T) {
	repo := &mockOrderRepo{byID: map[string]*Order{
		"o1": {ID: "o1", State: StateSold},
	}}
	svc := NewService(repo, newProductRepo(), repair.Discard)

	err := svc.Cancel(context.Background(), "o1")
	require.ErrorIs(t, err, ErrNotCancellable)
	assert.Empty(t, repo.deleted)
}
