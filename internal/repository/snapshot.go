package repository

import (
	"context"

	"github.com/JesseOrSomething/ZenCode/internal/model"
)

// SnapshotStore persists the in-memory ledger and conversation windows. The
// host calls LoadAll at startup, SaveAll periodically and on shutdown; the
// session core itself never touches storage.
type SnapshotStore interface {
	// LoadAll reads the last persisted snapshot. A missing snapshot returns
	// an empty one, not an error.
	LoadAll(ctx context.Context) (*model.Snapshot, error)
	// SaveAll replaces the persisted snapshot with the given state.
	SaveAll(ctx context.Context, snap *model.Snapshot) error
}
