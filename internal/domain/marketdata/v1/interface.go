package marketdatav1

import (
	"context"

	orderbookv1 "github.com/meridian-exchange/matching-engine/internal/domain/orderbook/v1"
)

// UpdateApplier folds sequenced updates into some downstream view. Called
// inline from the market publisher's drain loop, so it must be fast and must
// copy anything it keeps.
type UpdateApplier interface {
	Apply(update *SequencedUpdate)
}

// SnapshotStore persists book snapshots keyed by instrument.
type SnapshotStore interface {
	Save(ctx context.Context, snapshot *BookSnapshot) error
	Load(ctx context.Context, instrumentID orderbookv1.InstrumentID) (*BookSnapshot, error)
}
