package supply

import (
	"context"

	"github.com/agripool/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// SupplyEntryRepository defines the interface for supply entry persistence
type SupplyEntryRepository interface {
	// FindByID finds a supply entry by its ID. Returns shared.ErrNotFound
	// when no entry has the id.
	FindByID(ctx context.Context, id uuid.UUID) (*SupplyEntry, error)

	// FindByIDs finds multiple supply entries by their IDs
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]SupplyEntry, error)

	// FindAll finds all supply entries (the marketplace view)
	FindAll(ctx context.Context, filter shared.Filter) ([]SupplyEntry, error)

	// FindByFarmer finds all supply entries owned by a farmer
	FindByFarmer(ctx context.Context, farmerID uuid.UUID, filter shared.Filter) ([]SupplyEntry, error)

	// Save creates or updates a supply entry
	Save(ctx context.Context, entry *SupplyEntry) error

	// SaveWithLock saves with optimistic locking (checks version)
	SaveWithLock(ctx context.Context, entry *SupplyEntry) error

	// Delete deletes a supply entry
	Delete(ctx context.Context, id uuid.UUID) error

	// Count counts supply entries matching the filter
	Count(ctx context.Context, filter shared.Filter) (int64, error)
}
