package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"

	"github.com/xenking/boutiq/internal/domain/campaign"
	"github.com/xenking/boutiq/internal/store"
)

var _ campaign.Repository = (*CampaignRepository)(nil)

// CampaignRepository implements campaign.Repository on the record store.
type CampaignRepository struct {
	store store.Store
}

// NewCampaignRepository returns a CampaignRepository using the given store.
func NewCampaignRepository(st store.Store) *CampaignRepository {
	return &CampaignRepository{store: st}
}

// List returns all campaigns, most recently created first.
func (r *CampaignRepository) List(ctx context.Context) ([]campaign.Campaign, error) {
	records, err := r.store.Find(ctx, store.CollectionCampaigns, store.OrderBy("createdAt"))
	if err != nil {
		return nil, fmt.Errorf("listing campaigns: %w", err)
	}

	campaigns := make([]campaign.Campaign, len(records))
	for i, rec := range records {
		campaigns[i] = *campaignFromRecord(rec)
	}
	return campaigns, nil
}

// GetByID returns a single campaign by its identifier.
func (r *CampaignRepository) GetByID(ctx context.Context, id string) (*campaign.Campaign, error) {
	rec, err := r.store.FindByID(ctx, store.CollectionCampaigns, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, campaign.ErrNotFound
		}
		return nil, fmt.Errorf("getting campaign %q: %w", id, err)
	}
	return campaignFromRecord(*rec), nil
}

// Create persists a new campaign record.
func (r *CampaignRepository) Create(ctx context.Context, c *campaign.Campaign) (*campaign.Campaign, error) {
	rec, err := r.store.Create(ctx, store.CollectionCampaigns, campaignToDoc(c))
	if err != nil {
		return nil, fmt.Errorf("creating campaign: %w", err)
	}
	return campaignFromRecord(*rec), nil
}

// Update rewrites the campaign's full field set. Optional fields absent
// from c are written as null markers so the store clears them.
func (r *CampaignRepository) Update(ctx context.Context, id string, c *campaign.Campaign) (*campaign.Campaign, error) {
	rec, err := r.store.Update(ctx, store.CollectionCampaigns, id, campaignToDoc(c))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, campaign.ErrNotFound
		}
		return nil, fmt.Errorf("updating campaign %q: %w", id, err)
	}
	return campaignFromRecord(*rec), nil
}

// ClearFlag drops a singleton flag from the given campaign.
func (r *CampaignRepository) ClearFlag(ctx context.Context, id string, flag campaign.Flag) error {
	_, err := r.store.Update(ctx, store.CollectionCampaigns, id, store.Document{
		string(flag): false,
	})
	if err != nil {
		return fmt.Errorf("clearing %s flag on campaign %q: %w", flag, id, err)
	}
	return nil
}

// Delete removes the campaign record.
func (r *CampaignRepository) Delete(ctx context.Context, id string) error {
	if err := r.store.DeleteByID(ctx, store.CollectionCampaigns, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return campaign.ErrNotFound
		}
		return fmt.Errorf("deleting campaign %q: %w", id, err)
	}
	return nil
}

func campaignToDoc(c *campaign.Campaign) store.Document {
	return store.Document{
		"title":       c.Title,
		"description": c.Description,
		"default":     c.Default,
		"fixed":       c.Fixed,
		"reduction":   decimalMarker(c.Reduction),
		"startDate":   timeMarker(c.StartDate),
		"endDate":     timeMarker(c.EndDate),
		"products":    stringsMarker(c.Products),
		"photo":       c.Photo,
	}
}

func campaignFromRecord(rec store.Record) *campaign.Campaign {
	return &campaign.Campaign{
		ID:          rec.ID,
		Title:       docString(rec.Doc, "title"),
		Description: docString(rec.Doc, "description"),
		Default:     docBool(rec.Doc, "default"),
		Fixed:       docBool(rec.Doc, "fixed"),
		Reduction:   docDecimal(rec.Doc, "reduction"),
		StartDate:   docTimePtr(rec.Doc, "startDate"),
		EndDate:     docTimePtr(rec.Doc, "endDate"),
		Products:    docStrings(rec.Doc, "products"),
		Photo:       docString(rec.Doc, "photo"),
		CreatedAt:   rec.CreatedAt,
		UpdatedAt:   rec.UpdatedAt,
	}
}

// snapshotToDoc renders the denormalized backlink embedded in products.
func snapshotToDoc(snap *campaign.Snapshot) store.Document {
	return store.Document{
		"id":        snap.ID,
		"title":     snap.Title,
		"reduction": decimalMarker(snap.Reduction),
		"startDate": timeMarker(snap.StartDate),
		"endDate":   timeMarker(snap.EndDate),
	}
}

func snapshotFromDoc(doc store.Document) *campaign.Snapshot {
	if doc == nil {
		return nil
	}
	return &campaign.Snapshot{
		ID:        docString(doc, "id"),
		Title:     docString(doc, "title"),
		Reduction: docDecimal(doc, "reduction"),
		StartDate: docTimePtr(doc, "startDate"),
		EndDate:   docTimePtr(doc, "endDate"),
	}
}
