package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xenking/boutiq/internal/domain/campaign"
	"github.com/xenking/boutiq/internal/domain/order"
	"github.com/xenking/boutiq/internal/repair"
	"github.com/xenking/boutiq/internal/repository"
	"github.com/xenking/boutiq/internal/store/memstore"
)

func newTestHandler(t *testing.T) (*Handler, http.Handler, *memstore.Store) {
	t.Helper()

	st := memstore.New()
	products := repository.NewProductRepository(st)
	campaigns := repository.NewCampaignRepository(st)
	orders := repository.NewOrderRepository(st)
	settings := repository.NewSettingsRepository(st)

	coord := campaign.NewCoordinator(
		campaigns,
		products,
		settings,
		campaign.UnmanagedPhotos{},
		repair.Discard,
		zap.NewNop(),
	)
	sales := order.NewService(orders, products, repair.Discard)

	h := New(products, campaigns, coord, sales, orders, settings)
	return h, h.Routes(), st
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(w.Body).Decode(&v))
	return v
}

func seedProduct(t *testing.T, router http.Handler, id, name string, price float64, quantity int) {
	t.Helper()
	w := doJSON(t, router, http.MethodPost, "/products", map[string]any{
		"id":       id,
		"name":     name,
		"price":    price,
		"quantity": quantity,
		"category": "test",
	})
	require.Equal(t, http.StatusCreated, w.Code)
}

// --- Products ---

func TestProducts_CreateAndGet(t *testing.T) {
	_, router, _ := newTestHandler(t)

	seedProduct(t, router, "p1", "Tee", 29.90, 10)

	w := doJSON(t, router, http.MethodGet, "/products/p1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	resp := decode[productResponse](t, w)
	assert.Equal(t, "p1", resp.ID)
	assert.Equal(t, "Tee", resp.Name)
	assert.Equal(t, "none", resp.Validity)
	assert.InDelta(t, 29.90, resp.EffectivePrice, 0.001)
}

func TestProducts_GetNotFound(t *testing.T) {
	_, router, _ := newTestHandler(t)

	w := doJSON(t, router, http.MethodGet, "/products/ghost", nil)
	require.Equal(t, http.StatusNotFound, w.Code)

	resp := decode[errorBody](t, w)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestProducts_CreateValidation(t *testing.T) {
	_, router, _ := newTestHandler(t)

	w := doJSON(t, router, http.MethodPost, "/products", map[string]any{"price": 10})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = doJSON(t, router, http.MethodPost, "/products", map[string]any{"name": "Tee", "price": -1})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestProducts_ListShowsEffectivePrice(t *testing.T) {
	h, router, _ := newTestHandler(t)

	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	h.now = func() time.Time { return now }

	seedProduct(t, router, "p1", "Tee", 100, 10)

	start := now.AddDate(0, 0, -1)
	end := now.AddDate(0, 0, 1)
	w := doJSON(t, router, http.MethodPost, "/campaigns", map[string]any{
		"title":     "Sale",
		"reduction": 25,
		"startDate": start,
		"endDate":   end,
		"products":  []string{"p1"},
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, router, http.MethodGet, "/products", nil)
	require.Equal(t, http.StatusOK, w.Code)

	list := decode[[]productResponse](t, w)
	require.Len(t, list, 1)
	assert.Equal(t, "promotional", list[0].Validity)
	assert.InDelta(t, 100.0, list[0].Price, 0.001)
	assert.InDelta(t, 75.0, list[0].EffectivePrice, 0.001)
	require.NotNil(t, list[0].Campaign)
	assert.Equal(t, "Sale", list[0].Campaign.Title)
}

// --- Campaigns ---

func TestCampaigns_CreateValidation(t *testing.T) {
	_, router, _ := newTestHandler(t)

	w := doJSON(t, router, http.MethodPost, "/campaigns", map[string]any{"reduction": 10})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = doJSON(t, router, http.MethodPost, "/campaigns", map[string]any{
		"title":     "Bad",
		"reduction": 150,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	start := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, -7)
	w = doJSON(t, router, http.MethodPost, "/campaigns", map[string]any{
		"title":     "Bad",
		"startDate": start,
		"endDate":   end,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestCampaigns_EditAndDelete(t *testing.T) {
	_, router, _ := newTestHandler(t)

	w := doJSON(t, router, http.MethodPost, "/campaigns", map[string]any{"title": "Sale"})
	require.Equal(t, http.StatusCreated, w.Code)
	created := decode[campaignResponse](t, w)

	w = doJSON(t, router, http.MethodPut, "/campaigns/"+created.ID, map[string]any{
		"title":     "Bigger Sale",
		"reduction": 30,
	})
	require.Equal(t, http.StatusOK, w.Code)
	updated := decode[campaignResponse](t, w)
	assert.Equal(t, "Bigger Sale", updated.Title)
	assert.InDelta(t, 30.0, updated.Reduction, 0.001)

	w = doJSON(t, router, http.MethodDelete, "/campaigns/"+created.ID, nil)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(t, router, http.MethodGet, "/campaigns/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCampaigns_FixedBanner(t *testing.T) {
	_, router, _ := newTestHandler(t)

	w := doJSON(t, router, http.MethodGet, "/campaigns/fixed", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, router, http.MethodPost, "/campaigns", map[string]any{
		"title": "Pinned",
		"fixed": true,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	created := decode[campaignResponse](t, w)

	w = doJSON(t, router, http.MethodGet, "/campaigns/fixed", nil)
	require.Equal(t, http.StatusOK, w.Code)
	fixed := decode[campaignResponse](t, w)
	assert.Equal(t, created.ID, fixed.ID)
	assert.Equal(t, "Pinned", fixed.Title)
}

// --- Orders ---

func TestOrders_PlaceSellCancel(t *testing.T) {
	_, router, _ := newTestHandler(t)

	seedProduct(t, router, "p1", "Tee", 10, 5)

	w := doJSON(t, router, http.MethodPost, "/orders", map[string]any{
		"firstName": "Ada",
		"items":     []map[string]any{{"productId": "p1", "quantity": 2}},
	})
	require.Equal(t, http.StatusCreated, w.Code)
	placed := decode[orderResponse](t, w)
	assert.Equal(t, "not-sold", placed.State)
	require.Len(t, placed.Products, 1)
	assert.InDelta(t, 20.0, placed.Total, 0.001)

	w = doJSON(t, router, http.MethodPost, "/orders/"+placed.ID+"/sell", nil)
	require.Equal(t, http.StatusOK, w.Code)
	sold := decode[orderResponse](t, w)
	assert.Equal(t, "sold", sold.State)

	// Selling again conflicts; cancelling a sold order conflicts.
	w = doJSON(t, router, http.MethodPost, "/orders/"+placed.ID+"/sell", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(t, router, http.MethodDelete, "/orders/"+placed.ID, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestOrders_InsufficientStock(t *testing.T) {
	_, router, _ := newTestHandler(t)

	seedProduct(t, router, "p1", "Tee", 10, 3)

	w := doJSON(t, router, http.MethodPost, "/orders", map[string]any{
		"items": []map[string]any{{"productId": "p1", "quantity": 5}},
	})
	require.Equal(t, http.StatusCreated, w.Code)
	placed := decode[orderResponse](t, w)

	w = doJSON(t, router, http.MethodPost, "/orders/"+placed.ID+"/sell", nil)
	require.Equal(t, http.StatusConflict, w.Code)

	// Stock and order state are untouched after the refusal.
	w = doJSON(t, router, http.MethodGet, "/products/p1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	p := decode[productResponse](t, w)
	assert.Equal(t, 3, p.Quantity)
}

func TestOrders_PlaceValidation(t *testing.T) {
	_, router, _ := newTestHandler(t)

	w := doJSON(t, router, http.MethodPost, "/orders", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, router, http.MethodPost, "/orders", map[string]any{
		"items": []map[string]any{{"productId": "ghost", "quantity": 1}},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestOrders_ListMostRecentFirst(t *testing.T) {
	_, router, st := newTestHandler(t)

	clock := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	st.WithClock(func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	})

	seedProduct(t, router, "p1", "Tee", 10, 50)

	for range 3 {
		w := doJSON(t, router, http.MethodPost, "/orders", map[string]any{
			"items": []map[string]any{{"productId": "p1", "quantity": 1}},
		})
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w := doJSON(t, router, http.MethodGet, "/orders", nil)
	require.Equal(t, http.StatusOK, w.Code)

	list := decode[[]orderResponse](t, w)
	require.Len(t, list, 3)
	for i := 1; i < len(list); i++ {
		assert.False(t, list[i-1].CreatedAt.Before(list[i].CreatedAt))
	}
}

// --- Settings ---

func TestSettings_RoundTrip(t *testing.T) {
	_, router, _ := newTestHandler(t)

	w := doJSON(t, router, http.MethodGet, "/settings", nil)
	require.Equal(t, http.StatusOK, w.Code)
	empty := decode[settingsPayload](t, w)
	assert.Empty(t, empty.StoreName)

	w = doJSON(t, router, http.MethodPut, "/settings", settingsPayload{
		StoreName: "Boutiq",
		Banner:    "Summer drop",
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodGet, "/settings", nil)
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[settingsPayload](t, w)
	assert.Equal(t, "Boutiq", got.StoreName)
	assert.Equal(t, "Summer drop", got.Banner)
}
