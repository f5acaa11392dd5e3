package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/agripool/backend/internal/domain/grouplisting"
	"github.com/agripool/backend/internal/domain/shared"
)

// GormGroupListingRepository implements grouplisting.Repository using GORM.
// Listings are loaded and saved together with their memberships.
type GormGroupListingRepository struct {
	db *gorm.DB
}

// NewGormGroupListingRepository creates a new GormGroupListingRepository
func NewGormGroupListingRepository(db *gorm.DB) *GormGroupListingRepository {
	return &GormGroupListingRepository{db: db}
}

// withMembers preloads memberships in join order
func (r *GormGroupListingRepository) withMembers(query *gorm.DB) *gorm.DB {
	return query.Preload("Members", func(db *gorm.DB) *gorm.DB {
		return db.Order("position ASC")
	})
}

// FindByID loads a listing with its members
func (r *GormGroupListingRepository) FindByID(ctx context.Context, id uuid.UUID) (*grouplisting.GroupListing, error) {
	var listing grouplisting.GroupListing
	if err := r.withMembers(r.db.WithContext(ctx)).
		First(&listing, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &listing, nil
}

// FindByKey loads the listing for a normalized (crop, location) key
func (r *GormGroupListingRepository) FindByKey(ctx context.Context, normalizedKey string) (*grouplisting.GroupListing, error) {
	var listing grouplisting.GroupListing
	if err := r.withMembers(r.db.WithContext(ctx)).
		First(&listing, "normalized_key = ?", normalizedKey).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &listing, nil
}

// FindOrCreate returns the listing for the key, creating an empty one when
// absent. The insert ignores conflicts on the normalized key so concurrent
// callers racing on the same key all converge on one row.
func (r *GormGroupListingRepository) FindOrCreate(ctx context.Context, cropName, location string, pricePerKg decimal.Decimal) (*grouplisting.GroupListing, error) {
	key := grouplisting.NormalizeKey(cropName, location)

	listing, err := r.FindByKey(ctx, key)
	if err != nil {
		return nil, err
	}
	if listing != nil {
		return listing, nil
	}

	created, err := grouplisting.NewGroupListing(cropName, location, pricePerKg)
	if err != nil {
		return nil, err
	}

	if err := r.db.WithContext(ctx).
		Omit("Members").
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "normalized_key"}},
			DoNothing: true,
		}).
		Create(created).Error; err != nil {
		return nil, err
	}

	// Re-read so a lost race still returns the winning row.
	listing, err = r.FindByKey(ctx, key)
	if err != nil {
		return nil, err
	}
	if listing == nil {
		return nil, shared.ErrNotFound
	}
	return listing, nil
}

// FindActive lists active listings with pooled quantity remaining
func (r *GormGroupListingRepository) FindActive(ctx context.Context, filter shared.Filter) (shared.Paginated[grouplisting.GroupListing], error) {
	base := r.db.WithContext(ctx).Model(&grouplisting.GroupListing{}).
		Where("active = ? AND total_quantity > 0", true)

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return shared.Paginated[grouplisting.GroupListing]{}, err
	}

	page := filter.Page
	pageSize := filter.PageSize
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}

	orderBy := ValidateSortField(filter.OrderBy, GroupListingSortFields, "created_at")
	orderDir := ValidateSortOrder(filter.OrderDir)

	var listings []grouplisting.GroupListing
	if err := r.withMembers(base.Session(&gorm.Session{})).
		Order(orderBy + " " + orderDir).
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&listings).Error; err != nil {
		return shared.Paginated[grouplisting.GroupListing]{}, err
	}

	return shared.NewPaginated(listings, total, page, pageSize), nil
}

// FindByFarmerMember lists the listings that currently contain a membership
// belonging to the farmer
func (r *GormGroupListingRepository) FindByFarmerMember(ctx context.Context, farmerID uuid.UUID) ([]grouplisting.GroupListing, error) {
	var listings []grouplisting.GroupListing
	if err := r.withMembers(r.db.WithContext(ctx)).
		Where("id IN (SELECT group_listing_id FROM group_memberships WHERE farmer_id = ?)", farmerID).
		Order("created_at DESC").
		Find(&listings).Error; err != nil {
		return nil, err
	}
	return listings, nil
}

// FindContainingEntry returns the listing holding the supply entry as a
// member, or nil when the entry is not pooled
func (r *GormGroupListingRepository) FindContainingEntry(ctx context.Context, supplyEntryID uuid.UUID) (*grouplisting.GroupListing, error) {
	var listing grouplisting.GroupListing
	if err := r.withMembers(r.db.WithContext(ctx)).
		Where("id IN (SELECT group_listing_id FROM group_memberships WHERE supply_entry_id = ?)", supplyEntryID).
		First(&listing).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &listing, nil
}

// Save persists the listing and its members without a version check
func (r *GormGroupListingRepository) Save(ctx context.Context, listing *grouplisting.GroupListing) error {
	db := r.db.WithContext(ctx)
	if err := db.Omit("Members").Save(listing).Error; err != nil {
		return err
	}
	return r.saveMembers(db, listing)
}

// SaveWithLock saves with optimistic locking (version check). The membership
// rows are replaced only after the version check passes, so a conflicting
// writer never sees a half-updated aggregate.
func (r *GormGroupListingRepository) SaveWithLock(ctx context.Context, listing *grouplisting.GroupListing) error {
	db := r.db.WithContext(ctx)

	result := db.Model(listing).
		Omit("Members").
		Where("id = ? AND version = ?", listing.ID, listing.Version-1).
		Updates(map[string]interface{}{
			"crop_name":      listing.CropName,
			"location":       listing.Location,
			"normalized_key": listing.NormalizedKey,
			"price_per_kg":   listing.PricePerKg,
			"total_quantity": listing.TotalQuantity,
			"active":         listing.Active,
			"version":        listing.Version,
			"updated_at":     listing.UpdatedAt,
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}

	return r.saveMembers(db, listing)
}

// saveMembers reconciles the membership rows with the aggregate's member set
func (r *GormGroupListingRepository) saveMembers(db *gorm.DB, listing *grouplisting.GroupListing) error {
	keep := make([]uuid.UUID, 0, len(listing.Members))
	for _, m := range listing.Members {
		keep = append(keep, m.ID)
	}

	query := db.Where("group_listing_id = ?", listing.ID)
	if len(keep) > 0 {
		query = query.Where("id NOT IN ?", keep)
	}
	if err := query.Delete(&grouplisting.Membership{}).Error; err != nil {
		return err
	}

	if len(listing.Members) == 0 {
		return nil
	}

	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(&listing.Members).Error
}

// Ensure GormGroupListingRepository implements grouplisting.Repository
var _ grouplisting.Repository = (*GormGroupListingRepository)(nil)
