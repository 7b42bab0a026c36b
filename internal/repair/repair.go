// Package repair makes best-effort consistency failures observable. A
// secondary write failing must not block the primary user action, but it
// must not be invisible either: every failure is logged and recorded as a
// repair document that an operator (or a future reconciler) can replay.
package repair

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/xenking/boutiq/internal/store"
)

// Repair describes a consistency update that failed and still needs to be
// applied.
type Repair struct {
	// Collection and RecordID locate the document the failed write targeted.
	Collection string
	RecordID   string
	// Action names the intended change, e.g. "clear-backlink".
	Action string
	// Reason is the error that prevented the write.
	Reason string
	At     time.Time
}

// Reporter receives failed consistency updates. Report must never fail the
// caller; implementations swallow their own errors.
type Reporter interface {
	Report(ctx context.Context, r Repair)
}

// Discard is a Reporter that drops everything. Used by tools that have no
// repair pipeline.
var Discard Reporter = discard{}

type discard struct{}

func (discard) Report(context.Context, Repair) {}

var _ Reporter = (*StoreReporter)(nil)

// StoreReporter appends repairs to the repairs collection and logs them at
// Warn. A failure to persist the repair itself is only logged; the primary
// operation already succeeded and must not be disturbed.
type StoreReporter struct {
	store store.Store
	lg    *zap.Logger
}

// NewStoreReporter returns a StoreReporter writing through the given store.
func NewStoreReporter(st store.Store, lg *zap.Logger) *StoreReporter {
	return &StoreReporter{store: st, lg: lg}
}

// Report records the repair.
func (r *StoreReporter) Report(ctx context.Context, rep Repair) {
	if rep.At.IsZero() {
		rep.At = time.Now().UTC()
	}

	r.lg.Warn("consistency update failed",
		zap.String("collection", rep.Collection),
		zap.String("record_id", rep.RecordID),
		zap.String("action", rep.Action),
		zap.String("reason", rep.Reason),
	)

	doc := store.Document{
		"collection": rep.Collection,
		"recordId":   rep.RecordID,
		"action":     rep.Action,
		"reason":     rep.Reason,
		"failedAt":   rep.At.Format(time.RFC3339Nano),
	}
	if _, err := r.store.Create(ctx, store.CollectionRepairs, doc); err != nil {
		r.lg.Error("recording repair failed", zap.Error(err))
	}
}
