// Package handler exposes the engine over HTTP: storefront reads and the
// admin back-office mutations. Rendering, authentication, and sessions are
// handled upstream; these handlers assume an already-authorized caller.
package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/boutiq/internal/domain/campaign"
	"github.com/xenking/boutiq/internal/domain/order"
	"github.com/xenking/boutiq/internal/domain/product"
	"github.com/xenking/boutiq/internal/repository"
)

// Handler holds the engine's entry points for the HTTP surface.
type Handler struct {
	products  product.Repository
	campaigns campaign.Repository
	coord     *campaign.Coordinator
	orders    *order.Service
	orderRepo order.Repository
	settings  *repository.SettingsRepository
	now       func() time.Time
}

// New constructs a Handler with the required domain dependencies.
func New(
	products product.Repository,
	campaigns campaign.Repository,
	coord *campaign.Coordinator,
	orders *order.Service,
	orderRepo order.Repository,
	settings *repository.SettingsRepository,
) *Handler {
	return &Handler{
		products:  products,
		campaigns: campaigns,
		coord:     coord,
		orders:    orders,
		orderRepo: orderRepo,
		settings:  settings,
		now:       time.Now,
	}
}

// Routes mounts all API routes on a chi router.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Route("/products", func(r chi.Router) {
		r.Get("/", h.ListProducts)
		r.Post("/", h.CreateProduct)
		r.Get("/{id}", h.GetProduct)
	})

	r.Route("/campaigns", func(r chi.Router) {
		r.Get("/", h.ListCampaigns)
		r.Post("/", h.CreateCampaign)
		r.Get("/fixed", h.GetFixedCampaign)
		r.Get("/{id}", h.GetCampaign)
		r.Put("/{id}", h.EditCampaign)
		r.Delete("/{id}", h.DeleteCampaign)
	})

	r.Route("/orders", func(r chi.Router) {
		r.Get("/", h.ListOrders)
		r.Post("/", h.PlaceOrder)
		r.Post("/{id}/sell", h.SellOrder)
		r.Delete("/{id}", h.CancelOrder)
	})

	r.Route("/settings", func(r chi.Router) {
		r.Get("/", h.GetSettings)
		r.Put("/", h.UpdateSettings)
	})

	return r
}

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, errorBody{Code: code, Message: msg})
}

// internalError logs the cause and responds with a generic failure; store
// errors are not surfaced to clients.
func internalError(w http.ResponseWriter, r *http.Request, err error) {
	zctx.From(r.Context()).Error("request failed", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal error")
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}
