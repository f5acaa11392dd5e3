package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/agripool/backend/internal/domain/shared"
	"github.com/agripool/backend/internal/domain/supply"
)

// GormSupplyEntryRepository implements SupplyEntryRepository using GORM
type GormSupplyEntryRepository struct {
	db *gorm.DB
}

// NewGormSupplyEntryRepository creates a new GormSupplyEntryRepository
func NewGormSupplyEntryRepository(db *gorm.DB) *GormSupplyEntryRepository {
	return &GormSupplyEntryRepository{db: db}
}

// FindByID finds a supply entry by its ID
func (r *GormSupplyEntryRepository) FindByID(ctx context.Context, id uuid.UUID) (*supply.SupplyEntry, error) {
	var entry supply.SupplyEntry
	if err := r.db.WithContext(ctx).First(&entry, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &entry, nil
}

// FindByIDs finds multiple supply entries by their IDs
func (r *GormSupplyEntryRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]supply.SupplyEntry, error) {
	if len(ids) == 0 {
		return []supply.SupplyEntry{}, nil
	}

	var entries []supply.SupplyEntry
	if err := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// FindAll finds all supply entries matching the filter
func (r *GormSupplyEntryRepository) FindAll(ctx context.Context, filter shared.Filter) ([]supply.SupplyEntry, error) {
	var entries []supply.SupplyEntry
	query := r.applyFilter(
		r.db.WithContext(ctx).Model(&supply.SupplyEntry{}),
		filter,
	)

	if err := query.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// FindByFarmer finds all supply entries owned by a farmer
func (r *GormSupplyEntryRepository) FindByFarmer(ctx context.Context, farmerID uuid.UUID, filter shared.Filter) ([]supply.SupplyEntry, error) {
	var entries []supply.SupplyEntry
	query := r.applyFilter(
		r.db.WithContext(ctx).Model(&supply.SupplyEntry{}).
			Where("farmer_id = ?", farmerID),
		filter,
	)

	if err := query.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// Save creates or updates a supply entry
func (r *GormSupplyEntryRepository) Save(ctx context.Context, entry *supply.SupplyEntry) error {
	return r.db.WithContext(ctx).Save(entry).Error
}

// SaveWithLock saves with optimistic locking (checks version)
func (r *GormSupplyEntryRepository) SaveWithLock(ctx context.Context, entry *supply.SupplyEntry) error {
	result := r.db.WithContext(ctx).
		Model(entry).
		Where("id = ? AND version = ?", entry.ID, entry.Version-1).
		Updates(map[string]interface{}{
			"crop_name":          entry.CropName,
			"location":           entry.Location,
			"available_quantity": entry.AvailableQuantity,
			"price_per_kg":       entry.PricePerKg,
			"harvest_date":       entry.HarvestDate,
			"pooled":             entry.Pooled,
			"version":            entry.Version,
			"updated_at":         entry.UpdatedAt,
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// Delete deletes a supply entry
func (r *GormSupplyEntryRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&supply.SupplyEntry{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Count counts supply entries matching the filter
func (r *GormSupplyEntryRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	query := r.applyFilterWithoutPagination(
		r.db.WithContext(ctx).Model(&supply.SupplyEntry{}),
		filter,
	)

	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// applyFilter applies filter options including pagination and ordering
func (r *GormSupplyEntryRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	query = r.applyFilterWithoutPagination(query, filter)

	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	orderBy := ValidateSortField(filter.OrderBy, SupplyEntrySortFields, "created_at")
	orderDir := ValidateSortOrder(filter.OrderDir)
	return query.Order(orderBy + " " + orderDir)
}

// applyFilterWithoutPagination applies filter options without pagination
func (r *GormSupplyEntryRepository) applyFilterWithoutPagination(query *gorm.DB, filter shared.Filter) *gorm.DB {
	for key, value := range filter.Filters {
		switch key {
		case "crop_name":
			if s, ok := value.(string); ok && s != "" {
				query = query.Where("LOWER(crop_name) = ?", strings.ToLower(strings.TrimSpace(s)))
			}
		case "location":
			if s, ok := value.(string); ok && s != "" {
				query = query.Where("LOWER(location) = ?", strings.ToLower(strings.TrimSpace(s)))
			}
		case "pooled":
			query = query.Where("pooled = ?", value)
		case "farmer_id":
			query = query.Where("farmer_id = ?", value)
		case "has_quantity":
			if value == true {
				query = query.Where("available_quantity > 0")
			}
		}
	}

	return query
}

// Ensure GormSupplyEntryRepository implements SupplyEntryRepository
var _ supply.SupplyEntryRepository = (*GormSupplyEntryRepository)(nil)
