package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"

	"github.com/xenking/boutiq/internal/domain/order"
	"github.com/xenking/boutiq/internal/repository"
)

type placeOrderRequest struct {
	FirstName string             `json:"firstName"`
	LastName  string             `json:"lastName"`
	Address   string             `json:"address"`
	Phone     string             `json:"phone"`
	UserID    string             `json:"userId"`
	Items     []orderItemRequest `json:"items"`
}

type orderItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type orderResponse struct {
	ID        string              `json:"id"`
	FirstName string              `json:"firstName"`
	LastName  string              `json:"lastName"`
	Address   string              `json:"address"`
	Phone     string              `json:"phone"`
	UserID    string              `json:"userId"`
	State     string              `json:"state"`
	Products  []orderLineResponse `json:"products"`
	Total     float64             `json:"total"`
	CreatedAt time.Time           `json:"createdAt"`
}

type orderLineResponse struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Quantity  int               `json:"quantity"`
	Price     float64           `json:"price"`
	Promotion *campaignSnapshot `json:"promotion,omitempty"`
}

// ListOrders returns all orders, most recent first.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orderRepo.List(r.Context())
	if err != nil {
		internalError(w, r, err)
		return
	}

	resp := make([]orderResponse, len(orders))
	for i := range orders {
		resp[i] = orderToResponse(&orders[i])
	}
	writeJSON(w, http.StatusOK, resp)
}

// PlaceOrder assembles a new order from the cart snapshot.
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req placeOrderRequest
	if !decodeBody(w, r, &req) {
		return
	}

	items := make([]order.Item, len(req.Items))
	for i, item := range req.Items {
		items[i] = order.Item{ProductID: item.ProductID, Quantity: item.Quantity}
	}

	created, err := h.orders.Place(r.Context(), order.PlaceRequest{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Address:   req.Address,
		Phone:     req.Phone,
		UserID:    req.UserID,
		Items:     items,
	})
	if err != nil {
		mapOrderError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, orderToResponse(created))
}

// SellOrder applies the not-sold -> sold transition with stock validation.
func (h *Handler) SellOrder(w http.ResponseWriter, r *http.Request) {
	sold, err := h.orders.MarkAsSold(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		mapOrderError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orderToResponse(sold))
}

// CancelOrder deletes an unsold order.
func (h *Handler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	if err := h.orders.Cancel(r.Context(), chi.URLParam(r, "id")); err != nil {
		mapOrderError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// mapOrderError converts domain errors into coded JSON responses. Stock
// errors carry the specific reason the sale was refused.
func mapOrderError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		pnfErr *order.ProductNotFoundError
		iqErr  *order.InvalidQuantityError
		oosErr *order.OutOfStockError
		insErr *order.InsufficientStockError
	)
	switch {
	case errors.Is(err, repository.ErrOrderNotFound):
		writeError(w, http.StatusNotFound, "order not found")
	case errors.Is(err, order.ErrEmptyItems):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &iqErr):
		writeError(w, http.StatusUnprocessableEntity, iqErr.Error())
	case errors.As(err, &pnfErr):
		writeError(w, http.StatusUnprocessableEntity, pnfErr.Error())
	case errors.As(err, &oosErr):
		writeError(w, http.StatusConflict, oosErr.Error())
	case errors.As(err, &insErr):
		writeError(w, http.StatusConflict, insErr.Error())
	case errors.Is(err, order.ErrAlreadySold):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, order.ErrNotCancellable):
		writeError(w, http.StatusConflict, err.Error())
	default:
		internalError(w, r, err)
	}
}

func orderToResponse(o *order.Order) orderResponse {
	lines := make([]orderLineResponse, len(o.Lines))
	for i, line := range o.Lines {
		lines[i] = orderLineResponse{
			ID:       line.ProductID,
			Name:     line.Name,
			Quantity: line.Quantity,
			Price:    line.Price.InexactFloat64(),
		}
		if line.Promotion != nil {
			lines[i].Promotion = &campaignSnapshot{
				ID:        line.Promotion.ID,
				Title:     line.Promotion.Title,
				Reduction: line.Promotion.Reduction.InexactFloat64(),
				StartDate: line.Promotion.StartDate,
				EndDate:   line.Promotion.EndDate,
			}
		}
	}

	return orderResponse{
		ID:        o.ID,
		FirstName: o.FirstName,
		LastName:  o.LastName,
		Address:   o.Address,
		Phone:     o.Phone,
		UserID:    o.UserID,
		State:     string(o.State),
		Products:  lines,
		Total:     o.Total().InexactFloat64(),
		CreatedAt: o.CreatedAt,
	}
}
