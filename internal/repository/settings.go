package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"

	"github.com/xenking/boutiq/internal/domain/campaign"
	"github.com/xenking/boutiq/internal/store"
)

// settingsRecordID is the fixed key of the single store-wide settings record.
const settingsRecordID = "store"

// Singleton pointer field per flag.
var holderKeys = map[campaign.Flag]string{
	campaign.FlagDefault: "defaultCampaignId",
	campaign.FlagFixed:   "fixedCampaignId",
}

var _ campaign.Settings = (*SettingsRepository)(nil)

// SettingsRepository holds the store-wide settings record: the two campaign
// singleton pointers plus the storefront profile fields the admin edits.
type SettingsRepository struct {
	store store.Store
}

// NewSettingsRepository returns a SettingsRepository using the given store.
func NewSettingsRepository(st store.Store) *SettingsRepository {
	return &SettingsRepository{store: st}
}

// HolderID returns the campaign currently holding the flag, or "" when no
// campaign does (including when the settings record does not exist yet).
func (r *SettingsRepository) HolderID(ctx context.Context, flag campaign.Flag) (string, error) {
	key, ok := holderKeys[flag]
	if !ok {
		return "", fmt.Errorf("unknown flag %q", flag)
	}

	rec, err := r.store.FindByID(ctx, store.CollectionSettings, settingsRecordID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("reading settings: %w", err)
	}
	return docString(rec.Doc, key), nil
}

// SetHolderID records the campaign holding the flag; an empty id clears the
// pointer. The settings record is created on first use.
func (r *SettingsRepository) SetHolderID(ctx context.Context, flag campaign.Flag, id string) error {
	key, ok := holderKeys[flag]
	if !ok {
		return fmt.Errorf("unknown flag %q", flag)
	}

	var value any
	if id != "" {
		value = id
	}
	return r.patch(ctx, store.Document{key: value})
}

// Profile holds the storefront display settings.
type Profile struct {
	StoreName string
	Banner    string
}

// GetProfile returns the storefront profile, zero-valued when unset.
func (r *SettingsRepository) GetProfile(ctx context.Context) (*Profile, error) {
	rec, err := r.store.FindByID(ctx, store.CollectionSettings, settingsRecordID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return &Profile{}, nil
		}
		return nil, fmt.Errorf("reading settings: %w", err)
	}
	return &Profile{
		StoreName: docString(rec.Doc, "storeName"),
		Banner:    docString(rec.Doc, "banner"),
	}, nil
}

// UpdateProfile rewrites the storefront profile fields.
func (r *SettingsRepository) UpdateProfile(ctx context.Context, p Profile) error {
	return r.patch(ctx, store.Document{
		"storeName": p.StoreName,
		"banner":    p.Banner,
	})
}

func (r *SettingsRepository) patch(ctx context.Context, doc store.Document) error {
	_, err := r.store.Update(ctx, store.CollectionSettings, settingsRecordID, doc)
	if errors.Is(err, store.ErrNotFound) {
		doc["id"] = settingsRecordID
		_, err = r.store.Create(ctx, store.CollectionSettings, doc)
	}
	if err != nil {
		return fmt.Errorf("writing settings: %w", err)
	}
	return nil
}
