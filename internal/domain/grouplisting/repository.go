package grouplisting

import (
	"context"

	"github.com/agripool/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Repository defines the persistence operations for group listings
type Repository interface {
	// FindByID loads a listing with its members. Returns shared.ErrNotFound
	// when no listing has the id.
	FindByID(ctx context.Context, id uuid.UUID) (*GroupListing, error)

	// FindByKey loads the listing for a normalized (crop, location) key,
	// or returns nil when none exists
	FindByKey(ctx context.Context, normalizedKey string) (*GroupListing, error)

	// FindOrCreate returns the listing for the key, creating an empty one
	// with the given display names and snapshot price when absent. Creation
	// is race-safe: concurrent callers for the same key all get the same row.
	FindOrCreate(ctx context.Context, cropName, location string, pricePerKg decimal.Decimal) (*GroupListing, error)

	// FindActive lists active listings with at least one member
	FindActive(ctx context.Context, filter shared.Filter) (shared.Paginated[GroupListing], error)

	// FindByFarmerMember lists the listings that currently contain a
	// membership belonging to the farmer
	FindByFarmerMember(ctx context.Context, farmerID uuid.UUID) ([]GroupListing, error)

	// FindContainingEntry returns the listing holding the supply entry as a
	// member, or nil when the entry is not pooled
	FindContainingEntry(ctx context.Context, supplyEntryID uuid.UUID) (*GroupListing, error)

	// Save persists the listing and its members
	Save(ctx context.Context, listing *GroupListing) error

	// SaveWithLock saves with optimistic locking (version check)
	SaveWithLock(ctx context.Context, listing *GroupListing) error
}
