package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/boutiq/internal/domain/product"
	"github.com/xenking/boutiq/internal/pricing"
)

type productResponse struct {
	ID             string            `json:"id"`
	Name           string            `json:"name"`
	Price          float64           `json:"price"`
	Quantity       int               `json:"quantity"`
	Category       string            `json:"category"`
	Campaign       *campaignSnapshot `json:"campaign,omitempty"`
	Validity       string            `json:"validity"`
	EffectivePrice float64           `json:"effectivePrice"`
	CreatedAt      time.Time         `json:"createdAt"`
}

type campaignSnapshot struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Reduction float64    `json:"reduction,omitempty"`
	StartDate *time.Time `json:"startDate,omitempty"`
	EndDate   *time.Time `json:"endDate,omitempty"`
}

type createProductRequest struct {
	ID       string  `json:"id,omitempty"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
	Category string  `json:"category"`
}

// ListProducts returns the catalog with the effective discounted price
// derived at read time.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.List(r.Context())
	if err != nil {
		internalError(w, r, err)
		return
	}

	now := h.now()
	resp := make([]productResponse, len(products))
	for i := range products {
		resp[i] = h.productToResponse(&products[i], now)
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetProduct returns a single product with its effective price.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.products.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, product.ErrNotFound) {
			writeError(w, http.StatusNotFound, "product not found")
			return
		}
		internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.productToResponse(p, h.now()))
}

// CreateProduct adds a catalog item.
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req createProductRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusUnprocessableEntity, "name required")
		return
	}
	if req.Price < 0 || req.Quantity < 0 {
		writeError(w, http.StatusUnprocessableEntity, "price and quantity must not be negative")
		return
	}

	created, err := h.products.Create(r.Context(), &product.Product{
		ID:       req.ID,
		Name:     req.Name,
		Price:    decimal.NewFromFloat(req.Price),
		Quantity: req.Quantity,
		Category: req.Category,
	})
	if err != nil {
		internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, h.productToResponse(created, h.now()))
}

func (h *Handler) productToResponse(p *product.Product, now time.Time) productResponse {
	validity := pricing.Classify(p.Campaign, now)

	effective := p.Price
	if validity == pricing.ValidityPromotional {
		effective = pricing.DiscountedLinePrice(p.Price, 1, p.Campaign.Reduction)
	}

	resp := productResponse{
		ID:             p.ID,
		Name:           p.Name,
		Price:          p.Price.InexactFloat64(),
		Quantity:       p.Quantity,
		Category:       p.Category,
		Validity:       string(validity),
		EffectivePrice: effective.InexactFloat64(),
		CreatedAt:      p.CreatedAt,
	}
	if p.Campaign != nil && validity != pricing.ValidityNone {
		resp.Campaign = &campaignSnapshot{
			ID:        p.Campaign.ID,
			Title:     p.Campaign.Title,
			Reduction: p.Campaign.Reduction.InexactFloat64(),
			StartDate: p.Campaign.StartDate,
			EndDate:   p.Campaign.EndDate,
		}
	}
	return resp
}
