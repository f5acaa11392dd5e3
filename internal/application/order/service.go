package order

import (
	"context"
	"errors"

	"github.com/agripool/backend/internal/domain/order"
	"github.com/agripool/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultMaxRetries bounds the optimistic-lock retry loop
const DefaultMaxRetries = 3

// Service handles direct purchases and the sub-order lifecycle. Bulk orders
// against group listings are placed through the pooling service; the
// resulting sub-orders are listed and driven through their status machine
// here.
type Service struct {
	scope          TransactionScope
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
	maxRetries     int
}

// NewService creates a new order Service
func NewService(scope TransactionScope, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		scope:      scope,
		logger:     logger,
		maxRetries: DefaultMaxRetries,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *Service) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetMaxRetries overrides the optimistic-lock retry bound
func (s *Service) SetMaxRetries(n int) {
	if n > 0 {
		s.maxRetries = n
	}
}

// PlaceDirectOrder buys a quantity straight from one supply entry at its
// listed price. Pooled entries are rejected; their quantity is sold through
// the group listing. The stock decrement and the sub-order commit atomically.
func (s *Service) PlaceDirectOrder(ctx context.Context, buyerID uuid.UUID, req PlaceDirectOrderRequest) (*SubOrderResponse, error) {
	var resp *SubOrderResponse

	err := s.withRetry(ctx, func() error {
		return s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
			entry, err := repos.SupplyRepo().FindByID(ctx, req.SupplyEntryID)
			if err != nil {
				return err
			}
			if entry.Pooled {
				return shared.NewDomainError("INVALID_STATE", "Pooled supply entries are purchased through their group listing")
			}

			if err := entry.Decrement(req.QuantityKg); err != nil {
				return err
			}

			subOrder, err := order.NewDirectSubOrder(entry.ID, buyerID, entry.FarmerID,
				entry.CropName, entry.Location, req.QuantityKg, entry.PricePerKg)
			if err != nil {
				return err
			}

			if err := repos.SupplyRepo().SaveWithLock(ctx, entry); err != nil {
				return err
			}
			if err := repos.OrderRepo().Save(ctx, subOrder); err != nil {
				return err
			}

			resp = NewSubOrderResponse(subOrder)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("direct order placed",
		zap.String("sub_order_id", resp.ID.String()),
		zap.String("supply_entry_id", req.SupplyEntryID.String()),
		zap.String("buyer_id", buyerID.String()),
		zap.String("quantity_kg", req.QuantityKg.String()))

	return resp, nil
}

// Get returns a sub-order visible to its buyer or farmer
func (s *Service) Get(ctx context.Context, actorID, orderID uuid.UUID) (*SubOrderResponse, error) {
	var resp *SubOrderResponse
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		o, err := repos.OrderRepo().FindByID(ctx, orderID)
		if err != nil {
			return err
		}
		if !o.BelongsToBuyer(actorID) && !o.BelongsToFarmer(actorID) {
			return shared.ErrForbidden
		}
		resp = NewSubOrderResponse(o)
		return nil
	})
	return resp, err
}

// ListBuyerOrders returns the sub-orders placed by the buyer
func (s *Service) ListBuyerOrders(ctx context.Context, buyerID uuid.UUID, filter shared.Filter) (shared.Paginated[SubOrderResponse], error) {
	var page shared.Paginated[SubOrderResponse]
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		orders, err := repos.OrderRepo().FindByBuyer(ctx, buyerID, filter)
		if err != nil {
			return err
		}
		page = toResponsePage(orders)
		return nil
	})
	return page, err
}

// ListFarmerOrders returns the sub-orders directed at the farmer
func (s *Service) ListFarmerOrders(ctx context.Context, farmerID uuid.UUID, filter shared.Filter) (shared.Paginated[SubOrderResponse], error) {
	var page shared.Paginated[SubOrderResponse]
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		orders, err := repos.OrderRepo().FindByFarmer(ctx, farmerID, filter)
		if err != nil {
			return err
		}
		page = toResponsePage(orders)
		return nil
	})
	return page, err
}

// UpdateStatus moves a sub-order to its next state. The farmer side accepts,
// rejects and ships its own orders; the buyer confirms delivery of theirs.
func (s *Service) UpdateStatus(ctx context.Context, actorID uuid.UUID, role string, orderID uuid.UUID, next order.Status) (*SubOrderResponse, error) {
	if !next.IsValid() {
		return nil, shared.NewDomainError("INVALID_STATUS", "Unknown order status")
	}

	var resp *SubOrderResponse
	var events []shared.DomainEvent

	err := s.withRetry(ctx, func() error {
		return s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
			o, err := repos.OrderRepo().FindByID(ctx, orderID)
			if err != nil {
				return err
			}

			if order.RequiredRole(next) != role {
				return shared.ErrForbidden
			}
			switch role {
			case order.RoleFarmer:
				if !o.BelongsToFarmer(actorID) {
					return shared.ErrForbidden
				}
			case order.RoleBuyer:
				if !o.BelongsToBuyer(actorID) {
					return shared.ErrForbidden
				}
			default:
				return shared.ErrForbidden
			}

			if err := o.TransitionTo(next); err != nil {
				return err
			}
			if err := repos.OrderRepo().SaveWithLock(ctx, o); err != nil {
				return err
			}

			events = drainEvents(o)
			resp = NewSubOrderResponse(o)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events)

	s.logger.Info("sub-order status updated",
		zap.String("sub_order_id", orderID.String()),
		zap.String("status", string(next)))

	return resp, nil
}

// withRetry runs op until it succeeds, fails with a non-retryable error or
// exhausts the retry budget
func (s *Service) withRetry(ctx context.Context, op func() error) error {
	var err error
	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		err = op()
		if err == nil || !isConcurrencyConflict(err) {
			return err
		}
		s.logger.Debug("retrying order operation after version conflict",
			zap.Int("attempt", attempt),
			zap.Int("max_retries", s.maxRetries))
	}
	return shared.ErrConcurrencyConflict
}

// drainEvents takes the sub-order's pending domain events so they can be
// published once the surrounding transaction has committed
func drainEvents(o *order.SubOrder) []shared.DomainEvent {
	events := o.GetDomainEvents()
	o.ClearDomainEvents()
	return events
}

// publish forwards committed domain events to the publisher
func (s *Service) publish(ctx context.Context, events []shared.DomainEvent) {
	if s.eventPublisher == nil || len(events) == 0 {
		return
	}
	_ = s.eventPublisher.Publish(ctx, events...)
}

func toResponsePage(orders shared.Paginated[order.SubOrder]) shared.Paginated[SubOrderResponse] {
	items := make([]SubOrderResponse, len(orders.Items))
	for i := range orders.Items {
		items[i] = *NewSubOrderResponse(&orders.Items[i])
	}
	return shared.NewPaginated(items, orders.Total, orders.Page, orders.PageSize)
}

func isConcurrencyConflict(err error) bool {
	var domainErr *shared.DomainError
	return errors.As(err, &domainErr) && domainErr.Code == shared.ErrConcurrencyConflict.Code
}
