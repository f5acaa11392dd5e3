package order

import (
	"context"

	"github.com/agripool/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Repository defines the persistence operations for sub-orders
type Repository interface {
	// FindByID loads a sub-order. Returns shared.ErrNotFound when no
	// sub-order has the id.
	FindByID(ctx context.Context, id uuid.UUID) (*SubOrder, error)

	// FindByBuyer lists the sub-orders placed by a buyer
	FindByBuyer(ctx context.Context, buyerID uuid.UUID, filter shared.Filter) (shared.Paginated[SubOrder], error)

	// FindByFarmer lists the sub-orders directed at a farmer
	FindByFarmer(ctx context.Context, farmerID uuid.UUID, filter shared.Filter) (shared.Paginated[SubOrder], error)

	// Save persists a sub-order
	Save(ctx context.Context, subOrder *SubOrder) error

	// SaveAll persists a batch of sub-orders from one bulk order
	SaveAll(ctx context.Context, subOrders []*SubOrder) error

	// SaveWithLock saves with optimistic locking (version check)
	SaveWithLock(ctx context.Context, subOrder *SubOrder) error
}
