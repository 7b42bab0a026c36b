// Package campaign holds the campaign model and the assignment coordinator
// that keeps denormalized product backlinks and the store-wide singleton
// flags consistent across independently written documents.
package campaign

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Sentinel errors for campaign validation and lookup.
var (
	ErrNotFound       = errors.New("campaign not found")
	ErrTitleRequired  = errors.New("campaign title is required")
	ErrReductionRange = errors.New("reduction must be between 0 and 100")
	ErrDateOrder      = errors.New("start date must not be after end date")
)

// Flag names the two store-wide singleton flags a campaign can hold.
type Flag string

const (
	// FlagDefault marks the campaign applied store-wide without an explicit
	// product list. At most one campaign holds it.
	FlagDefault Flag = "default"
	// FlagFixed marks the campaign pinned to the storefront banner,
	// independent of discount logic. At most one campaign holds it.
	FlagFixed Flag = "fixed"
)

// Campaign is a discount campaign record. A default campaign carries no
// product list, reduction, or time window; those fields are only meaningful
// on product-scoped campaigns.
type Campaign struct {
	ID          string
	Title       string
	Description string
	Default     bool
	Fixed       bool
	Reduction   decimal.Decimal
	StartDate   *time.Time
	EndDate     *time.Time
	Products    []string
	Photo       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Snapshot is the denormalized copy of campaign data embedded in a product
// record (the backlink). It is not a live reference: later campaign edits
// must rewrite it explicitly.
type Snapshot struct {
	ID        string
	Title     string
	Reduction decimal.Decimal
	StartDate *time.Time
	EndDate   *time.Time
}

// Backlink returns the snapshot to embed in product records.
func (c *Campaign) Backlink() *Snapshot {
	return &Snapshot{
		ID:        c.ID,
		Title:     c.Title,
		Reduction: c.Reduction,
		StartDate: c.StartDate,
		EndDate:   c.EndDate,
	}
}

// Input is the create/edit payload for a campaign.
type Input struct {
	Title       string
	Description string
	Default     bool
	Fixed       bool
	Reduction   decimal.Decimal
	StartDate   *time.Time
	EndDate     *time.Time
	Photo       string
}

// Validate checks field-level constraints before any write is issued.
// The date check compares start against end; an inverted window is rejected.
func (in Input) Validate() error {
	if in.Title == "" {
		return ErrTitleRequired
	}
	if in.Reduction.IsNegative() || in.Reduction.GreaterThan(decimal.NewFromInt(100)) {
		return ErrReductionRange
	}
	if in.StartDate != nil && in.EndDate != nil && in.StartDate.After(*in.EndDate) {
		return ErrDateOrder
	}
	return nil
}

// Repository defines persistence operations for campaigns.
type Repository interface {
	List(ctx context.Context) ([]Campaign, error)
	GetByID(ctx context.Context, id string) (*Campaign, error)
	Create(ctx context.Context, c *Campaign) (*Campaign, error)
	Update(ctx context.Context, id string, c *Campaign) (*Campaign, error)
	// ClearFlag drops a singleton flag from the given campaign, used when
	// the flag transfers to a new holder.
	ClearFlag(ctx context.Context, id string, flag Flag) error
	Delete(ctx context.Context, id string) error
}

// Backlinks is the product-side surface the coordinator writes through.
// Every call is an independent best-effort document write.
type Backlinks interface {
	SetBacklink(ctx context.Context, productID string, snap *Snapshot) error
	ClearBacklink(ctx context.Context, productID string) error
	// ListIDsByCampaign finds products whose embedded snapshot references
	// the campaign, by filtering on the backlink itself rather than
	// trusting the campaign's own (possibly stale) product list.
	ListIDsByCampaign(ctx context.Context, campaignID string) ([]string, error)
}

// Settings holds the store-wide singleton pointers. Each pointer lives in a
// single settings record so transfers are one write instead of a
// scan-and-flip over all campaigns.
type Settings interface {
	HolderID(ctx context.Context, flag Flag) (string, error)
	// SetHolderID records the campaign holding the flag; an empty id clears
	// the pointer.
	SetHolderID(ctx context.Context, flag Flag, id string) error
}

// PhotoStore is the external asset-storage collaborator. Only deletion is
// consumed here; uploads happen upstream of the engine.
type PhotoStore interface {
	Delete(ctx context.Context, url string) error
}

// UnmanagedPhotos is a PhotoStore for deployments where asset cleanup is
// handled out of band.
type UnmanagedPhotos struct{}

func (UnmanagedPhotos) Delete(context.Context, string) error { return nil }
