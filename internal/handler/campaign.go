package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/boutiq/internal/domain/campaign"
)

type campaignRequest struct {
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Default     bool       `json:"default,omitempty"`
	Fixed       bool       `json:"fixed,omitempty"`
	Reduction   float64    `json:"reduction,omitempty"`
	StartDate   *time.Time `json:"startDate,omitempty"`
	EndDate     *time.Time `json:"endDate,omitempty"`
	Photo       string     `json:"photo,omitempty"`
	Products    []string   `json:"products,omitempty"`
}

type campaignResponse struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Default     bool       `json:"default"`
	Fixed       bool       `json:"fixed"`
	Reduction   float64    `json:"reduction,omitempty"`
	StartDate   *time.Time `json:"startDate,omitempty"`
	EndDate     *time.Time `json:"endDate,omitempty"`
	Photo       string     `json:"photo,omitempty"`
	Products    []string   `json:"products,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

func (req campaignRequest) toInput() campaign.Input {
	return campaign.Input{
		Title:       req.Title,
		Description: req.Description,
		Default:     req.Default,
		Fixed:       req.Fixed,
		Reduction:   decimal.NewFromFloat(req.Reduction),
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		Photo:       req.Photo,
	}
}

// ListCampaigns returns all campaigns for the admin back-office.
func (h *Handler) ListCampaigns(w http.ResponseWriter, r *http.Request) {
	campaigns, err := h.campaigns.List(r.Context())
	if err != nil {
		internalError(w, r, err)
		return
	}

	resp := make([]campaignResponse, len(campaigns))
	for i := range campaigns {
		resp[i] = campaignToResponse(&campaigns[i])
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetCampaign returns a single campaign.
func (h *Handler) GetCampaign(w http.ResponseWriter, r *http.Request) {
	c, err := h.campaigns.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, campaign.ErrNotFound) {
			writeError(w, http.StatusNotFound, "campaign not found")
			return
		}
		internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, campaignToResponse(c))
}

// GetFixedCampaign returns the campaign pinned to the storefront banner,
// or 404 when none is pinned.
func (h *Handler) GetFixedCampaign(w http.ResponseWriter, r *http.Request) {
	id, err := h.settings.HolderID(r.Context(), campaign.FlagFixed)
	if err != nil {
		internalError(w, r, err)
		return
	}
	if id == "" {
		writeError(w, http.StatusNotFound, "no fixed campaign")
		return
	}

	c, err := h.campaigns.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, campaign.ErrNotFound) {
			writeError(w, http.StatusNotFound, "no fixed campaign")
			return
		}
		internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, campaignToResponse(c))
}

// CreateCampaign runs the assignment coordinator's create protocol.
func (h *Handler) CreateCampaign(w http.ResponseWriter, r *http.Request) {
	var req campaignRequest
	if !decodeBody(w, r, &req) {
		return
	}

	created, err := h.coord.Create(r.Context(), req.toInput(), req.Products)
	if err != nil {
		mapCampaignError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, campaignToResponse(created))
}

// EditCampaign runs the assignment coordinator's edit protocol.
func (h *Handler) EditCampaign(w http.ResponseWriter, r *http.Request) {
	var req campaignRequest
	if !decodeBody(w, r, &req) {
		return
	}

	updated, err := h.coord.Edit(r.Context(), chi.URLParam(r, "id"), req.toInput(), req.Products)
	if err != nil {
		mapCampaignError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, campaignToResponse(updated))
}

// DeleteCampaign runs the assignment coordinator's delete protocol.
func (h *Handler) DeleteCampaign(w http.ResponseWriter, r *http.Request) {
	if err := h.coord.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		mapCampaignError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func mapCampaignError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, campaign.ErrNotFound):
		writeError(w, http.StatusNotFound, "campaign not found")
	case errors.Is(err, campaign.ErrTitleRequired),
		errors.Is(err, campaign.ErrReductionRange),
		errors.Is(err, campaign.ErrDateOrder):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		internalError(w, r, err)
	}
}

func campaignToResponse(c *campaign.Campaign) campaignResponse {
	return campaignResponse{
		ID:          c.ID,
		Title:       c.Title,
		Description: c.Description,
		Default:     c.Default,
		Fixed:       c.Fixed,
		Reduction:   c.Reduction.InexactFloat64(),
		StartDate:   c.StartDate,
		EndDate:     c.EndDate,
		Photo:       c.Photo,
		Products:    c.Products,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}
