package campaign

import (
	"context"

	"github.com/go-faster/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/boutiq/internal/repair"
)

// backlinkFanOut caps the number of concurrent product writes per operation.
const backlinkFanOut = 8

// Coordinator orchestrates the multi-record writes that keep campaign
// membership, product backlinks, and the singleton flags consistent. It is
// not a transaction: each step is an independent store write that can fail
// on its own. The primary campaign write is authoritative; secondary writes
// are best-effort and their failures are routed to the repair reporter
// instead of failing the operation.
type Coordinator struct {
	campaigns Repository
	backlinks Backlinks
	settings  Settings
	photos    PhotoStore
	repairs   repair.Reporter
	lg        *zap.Logger
}

// NewCoordinator creates a Coordinator with the required collaborators.
func NewCoordinator(
	campaigns Repository,
	backlinks Backlinks,
	settings Settings,
	photos PhotoStore,
	repairs repair.Reporter,
	lg *zap.Logger,
) *Coordinator {
	return &Coordinator{
		campaigns: campaigns,
		backlinks: backlinks,
		settings:  settings,
		photos:    photos,
		repairs:   repairs,
		lg:        lg,
	}
}

// Create writes a new campaign and applies its product backlinks and
// singleton flags. A default campaign carries no product list; its discount
// applies store-wide.
func (co *Coordinator) Create(ctx context.Context, in Input, productIDs []string) (*Campaign, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	c := &Campaign{
		Title:       in.Title,
		Description: in.Description,
		Default:     in.Default,
		Fixed:       in.Fixed,
		Reduction:   in.Reduction,
		StartDate:   in.StartDate,
		EndDate:     in.EndDate,
		Photo:       in.Photo,
	}
	if !in.Default {
		c.Products = productIDs
	}

	created, err := co.campaigns.Create(ctx, c)
	if err != nil {
		return nil, errors.Wrap(err, "create campaign")
	}

	if !created.Default {
		co.setBacklinks(ctx, created, created.Products)
	}
	if created.Default {
		co.transferFlag(ctx, created.ID, FlagDefault)
	}
	if created.Fixed {
		co.transferFlag(ctx, created.ID, FlagFixed)
	}

	return created, nil
}

// Edit rewrites the campaign and reconciles backlinks and singleton flags
// against its previous state. Products dropped from the campaign have their
// backlink cleared; kept and added products receive the updated snapshot.
// A campaign becoming default has every previously backlinked product
// cleared, since its discount is store-wide and not product-scoped.
func (co *Coordinator) Edit(ctx context.Context, id string, in Input, productIDs []string) (*Campaign, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	old, err := co.campaigns.GetByID(ctx, id)
	if err != nil {
		return nil, errors.Wrap(err, "load campaign")
	}

	c := &Campaign{
		ID:          id,
		Title:       in.Title,
		Description: in.Description,
		Default:     in.Default,
		Fixed:       in.Fixed,
		Reduction:   in.Reduction,
		StartDate:   in.StartDate,
		EndDate:     in.EndDate,
		Photo:       in.Photo,
	}
	if !in.Default {
		c.Products = productIDs
	}

	updated, err := co.campaigns.Update(ctx, id, c)
	if err != nil {
		return nil, errors.Wrap(err, "update campaign")
	}

	removed := co.removedProducts(ctx, old, updated)
	co.clearBacklinks(ctx, updated.ID, removed)

	if !updated.Default {
		co.setBacklinks(ctx, updated, updated.Products)
	}

	co.reconcileFlag(ctx, updated.ID, FlagDefault, updated.Default)
	co.reconcileFlag(ctx, updated.ID, FlagFixed, updated.Fixed)

	return updated, nil
}

// Delete removes the campaign record and its photo asset, then clears the
// backlink on every product still referencing it. Backlinked products are
// found by filtering on the embedded campaign id, never by trusting the
// deleted campaign's own product list, which may be stale.
func (co *Coordinator) Delete(ctx context.Context, id string) error {
	old, err := co.campaigns.GetByID(ctx, id)
	if err != nil {
		return errors.Wrap(err, "load campaign")
	}

	if err := co.campaigns.Delete(ctx, id); err != nil {
		return errors.Wrap(err, "delete campaign")
	}

	if old.Photo != "" {
		if err := co.photos.Delete(ctx, old.Photo); err != nil {
			co.report(ctx, "campaigns", id, "delete-photo", err)
		}
	}

	// A deleted campaign must not remain the singleton holder.
	co.releaseFlag(ctx, id, FlagDefault)
	co.releaseFlag(ctx, id, FlagFixed)

	ids, err := co.backlinks.ListIDsByCampaign(ctx, id)
	if err != nil {
		co.report(ctx, "products", "", "list-backlinked", err)
		return nil
	}
	co.clearBacklinks(ctx, id, ids)

	return nil
}

// removedProducts computes which products must have their backlink cleared
// after an edit. A campaign transitioning to default clears everything that
// currently points at it.
func (co *Coordinator) removedProducts(ctx context.Context, old, updated *Campaign) []string {
	if updated.Default {
		ids, err := co.backlinks.ListIDsByCampaign(ctx, updated.ID)
		if err != nil {
			co.report(ctx, "products", "", "list-backlinked", err)
			return old.Products
		}
		return ids
	}

	kept := make(map[string]struct{}, len(updated.Products))
	for _, id := range updated.Products {
		kept[id] = struct{}{}
	}

	var removed []string
	for _, id := range old.Products {
		if _, ok := kept[id]; !ok {
			removed = append(removed, id)
		}
	}
	return removed
}

// setBacklinks writes the campaign snapshot onto each product. Writes for
// different products are independent and run concurrently; an individual
// failure never rolls back the campaign or the other products.
func (co *Coordinator) setBacklinks(ctx context.Context, c *Campaign, productIDs []string) {
	snap := c.Backlink()

	g := &errgroup.Group{}
	g.SetLimit(backlinkFanOut)
	for _, productID := range productIDs {
		g.Go(func() error {
			if err := co.backlinks.SetBacklink(ctx, productID, snap); err != nil {
				co.report(ctx, "products", productID, "set-backlink", err)
			}
			return nil
		})
	}
	_ = g.Wait()
}

// clearBacklinks clears the campaign field on each product, concurrently and
// best-effort.
func (co *Coordinator) clearBacklinks(ctx context.Context, campaignID string, productIDs []string) {
	g := &errgroup.Group{}
	g.SetLimit(backlinkFanOut)
	for _, productID := range productIDs {
		g.Go(func() error {
			if err := co.backlinks.ClearBacklink(ctx, productID); err != nil {
				co.report(ctx, "products", productID, "clear-backlink", err)
			}
			return nil
		})
	}
	_ = g.Wait()

	if len(productIDs) > 0 {
		co.lg.Debug("cleared backlinks",
			zap.String("campaign_id", campaignID),
			zap.Int("products", len(productIDs)),
		)
	}
}

// transferFlag makes newID the singleton holder of flag: the previous
// holder's flag is cleared, then the pointer is rewritten. Each step is an
// independent best-effort write.
func (co *Coordinator) transferFlag(ctx context.Context, newID string, flag Flag) {
	prev, err := co.settings.HolderID(ctx, flag)
	if err != nil {
		co.report(ctx, "settings", string(flag), "read-holder", err)
		return
	}

	if prev != "" && prev != newID {
		if err := co.campaigns.ClearFlag(ctx, prev, flag); err != nil {
			co.report(ctx, "campaigns", prev, "clear-"+string(flag), err)
		}
	}

	if prev != newID {
		if err := co.settings.SetHolderID(ctx, flag, newID); err != nil {
			co.report(ctx, "settings", string(flag), "set-holder", err)
		}
	}
}

// reconcileFlag applies the singleton transfer after an edit: a set flag
// transfers to the edited campaign, and a dropped flag clears the pointer
// when the edited campaign was the holder.
func (co *Coordinator) reconcileFlag(ctx context.Context, id string, flag Flag, held bool) {
	if held {
		co.transferFlag(ctx, id, flag)
		return
	}
	co.releaseFlag(ctx, id, flag)
}

// releaseFlag clears the singleton pointer when id is the current holder.
func (co *Coordinator) releaseFlag(ctx context.Context, id string, flag Flag) {
	prev, err := co.settings.HolderID(ctx, flag)
	if err != nil {
		co.report(ctx, "settings", string(flag), "read-holder", err)
		return
	}
	if prev != id {
		return
	}
	if err := co.settings.SetHolderID(ctx, flag, ""); err != nil {
		co.report(ctx, "settings", string(flag), "clear-holder", err)
	}
}

func (co *Coordinator) report(ctx context.Context, collection, recordID, action string, err error) {
	co.repairs.Report(ctx, repair.Repair{
		Collection: collection,
		RecordID:   recordID,
		Action:     action,
		Reason:     err.Error(),
	})
}
