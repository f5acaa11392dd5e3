package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/agripool/backend/internal/domain/order"
	"github.com/agripool/backend/internal/domain/shared"
)

// GormSubOrderRepository implements order.Repository using GORM
type GormSubOrderRepository struct {
	db *gorm.DB
}

// NewGormSubOrderRepository creates a new GormSubOrderRepository
func NewGormSubOrderRepository(db *gorm.DB) *GormSubOrderRepository {
	return &GormSubOrderRepository{db: db}
}

// FindByID loads a sub-order
func (r *GormSubOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*order.SubOrder, error) {
	var subOrder order.SubOrder
	if err := r.db.WithContext(ctx).First(&subOrder, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &subOrder, nil
}

// FindByBuyer lists the sub-orders placed by a buyer
func (r *GormSubOrderRepository) FindByBuyer(ctx context.Context, buyerID uuid.UUID, filter shared.Filter) (shared.Paginated[order.SubOrder], error) {
	return r.findForParty(ctx, "buyer_id = ?", buyerID, filter)
}

// FindByFarmer lists the sub-orders directed at a farmer
func (r *GormSubOrderRepository) FindByFarmer(ctx context.Context, farmerID uuid.UUID, filter shared.Filter) (shared.Paginated[order.SubOrder], error) {
	return r.findForParty(ctx, "farmer_id = ?", farmerID, filter)
}

func (r *GormSubOrderRepository) findForParty(ctx context.Context, cond string, partyID uuid.UUID, filter shared.Filter) (shared.Paginated[order.SubOrder], error) {
	base := r.db.WithContext(ctx).Model(&order.SubOrder{}).Where(cond, partyID)

	if status, ok := filter.Filters["status"]; ok {
		base = base.Where("status = ?", status)
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return shared.Paginated[order.SubOrder]{}, err
	}

	page := filter.Page
	pageSize := filter.PageSize
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}

	orderBy := ValidateSortField(filter.OrderBy, SubOrderSortFields, "created_at")
	orderDir := ValidateSortOrder(filter.OrderDir)

	var subOrders []order.SubOrder
	if err := base.Session(&gorm.Session{}).
		Order(orderBy + " " + orderDir).
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&subOrders).Error; err != nil {
		return shared.Paginated[order.SubOrder]{}, err
	}

	return shared.NewPaginated(subOrders, total, page, pageSize), nil
}

// Save persists a sub-order
func (r *GormSubOrderRepository) Save(ctx context.Context, subOrder *order.SubOrder) error {
	return r.db.WithContext(ctx).Save(subOrder).Error
}

// SaveAll persists a batch of sub-orders from one bulk order
func (r *GormSubOrderRepository) SaveAll(ctx context.Context, subOrders []*order.SubOrder) error {
	if len(subOrders) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&subOrders).Error
}

// SaveWithLock saves with optimistic locking (checks version)
func (r *GormSubOrderRepository) SaveWithLock(ctx context.Context, subOrder *order.SubOrder) error {
	result := r.db.WithContext(ctx).
		Model(subOrder).
		Where("id = ? AND version = ?", subOrder.ID, subOrder.Version-1).
		Updates(map[string]interface{}{
			"status":     subOrder.Status,
			"version":    subOrder.Version,
			"updated_at": subOrder.UpdatedAt,
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// Ensure GormSubOrderRepository implements order.Repository
var _ order.Repository = (*GormSubOrderRepository)(nil)
