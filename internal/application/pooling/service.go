package pooling

import (
	"context"
	"errors"
	"time"

	"github.com/agripool/backend/internal/domain/grouplisting"
	"github.com/agripool/backend/internal/domain/order"
	"github.com/agripool/backend/internal/domain/shared"
	"github.com/agripool/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// DefaultMaxRetries bounds the optimistic-lock retry loop
	DefaultMaxRetries = 3

	// DefaultIdempotencyTTL is how long a processed bulk-order key is remembered
	DefaultIdempotencyTTL = 24 * time.Hour
)

// Service coordinates group pooling: joining and leaving group listings and
// splitting bulk orders across their members. Each operation runs inside one
// transaction and retries from a fresh read on version conflicts.
type Service struct {
	scope          TransactionScope
	allocator      *grouplisting.AllocationService
	eventPublisher shared.EventPublisher
	idempotency    shared.IdempotencyStore
	idempotencyTTL time.Duration
	logger         *zap.Logger
	maxRetries     int
}

// NewService creates a new pooling Service
func NewService(scope TransactionScope, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		scope:          scope,
		allocator:      grouplisting.NewAllocationService(),
		logger:         logger,
		maxRetries:     DefaultMaxRetries,
		idempotencyTTL: DefaultIdempotencyTTL,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *Service) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetIdempotencyStore enables duplicate suppression for bulk orders
func (s *Service) SetIdempotencyStore(store shared.IdempotencyStore) {
	s.idempotency = store
}

// SetIdempotencyTTL overrides how long processed bulk-order keys are remembered
func (s *Service) SetIdempotencyTTL(ttl time.Duration) {
	if ttl > 0 {
		s.idempotencyTTL = ttl
	}
}

// SetMaxRetries overrides the optimistic-lock retry bound
func (s *Service) SetMaxRetries(n int) {
	if n > 0 {
		s.maxRetries = n
	}
}

// Join pools a farmer's supply entry into the group listing for its crop and
// location, creating the listing when none exists. The entry's full available
// quantity becomes its contribution and the entry is locked against direct
// edits until it leaves.
func (s *Service) Join(ctx context.Context, farmerID uuid.UUID, req JoinGroupRequest) (*GroupListingResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "group_pooling", "join")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrSupplyEntryID, req.SupplyEntryID.String(),
		telemetry.SpanAttrFarmerID, farmerID.String(),
	)

	var resp *GroupListingResponse
	var events []shared.DomainEvent

	err := s.withRetry(ctx, func() error {
		return s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
			entry, err := repos.SupplyRepo().FindByID(ctx, req.SupplyEntryID)
			if err != nil {
				return err
			}
			if !entry.IsOwnedBy(farmerID) {
				return shared.ErrForbidden
			}
			if entry.Pooled {
				return shared.ErrAlreadyPooled
			}

			listing, err := repos.GroupRepo().FindOrCreate(ctx, entry.CropName, entry.Location, entry.PricePerKg)
			if err != nil {
				return err
			}
			// An emptied listing is reused for the next pool and takes the
			// newcomer's price as its fresh snapshot.
			if listing.IsEmpty() && !listing.PricePerKg.Equal(entry.PricePerKg) {
				if err := listing.ResetPriceForReuse(entry.PricePerKg); err != nil {
					return err
				}
			}

			if err := listing.AddMember(entry.ID, farmerID, entry.AvailableQuantity); err != nil {
				return err
			}
			if err := entry.MarkPooled(); err != nil {
				return err
			}

			if err := repos.SupplyRepo().SaveWithLock(ctx, entry); err != nil {
				return err
			}
			if err := repos.GroupRepo().SaveWithLock(ctx, listing); err != nil {
				return err
			}

			events = drainEvents(listing)
			resp = NewGroupListingResponse(listing)
			return nil
		})
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	s.publish(ctx, events)

	s.logger.Info("supply entry joined group listing",
		zap.String("supply_entry_id", req.SupplyEntryID.String()),
		zap.String("group_listing_id", resp.ID.String()),
		zap.String("total_quantity", resp.TotalQuantity.String()))

	return resp, nil
}

// Leave withdraws a farmer's supply entry from its group listing. The entry
// keeps whatever quantity is still unallocated and becomes freely editable
// again. The listing is retained even when its last member leaves.
func (s *Service) Leave(ctx context.Context, farmerID uuid.UUID, req LeaveGroupRequest) (*GroupListingResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "group_pooling", "leave")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrSupplyEntryID, req.SupplyEntryID.String(),
		telemetry.SpanAttrFarmerID, farmerID.String(),
	)

	var resp *GroupListingResponse
	var events []shared.DomainEvent

	err := s.withRetry(ctx, func() error {
		return s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
			entry, err := repos.SupplyRepo().FindByID(ctx, req.SupplyEntryID)
			if err != nil {
				return err
			}
			if !entry.IsOwnedBy(farmerID) {
				return shared.ErrForbidden
			}

			listing, err := repos.GroupRepo().FindContainingEntry(ctx, entry.ID)
			if err != nil {
				return err
			}
			if listing == nil {
				return shared.ErrNotInGroup
			}

			if err := listing.RemoveMember(entry.ID); err != nil {
				return err
			}
			if err := entry.ClearPooled(); err != nil {
				return err
			}

			if err := repos.SupplyRepo().SaveWithLock(ctx, entry); err != nil {
				return err
			}
			if err := repos.GroupRepo().SaveWithLock(ctx, listing); err != nil {
				return err
			}

			events = drainEvents(listing)
			resp = NewGroupListingResponse(listing)
			return nil
		})
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	s.publish(ctx, events)

	s.logger.Info("supply entry left group listing",
		zap.String("supply_entry_id", req.SupplyEntryID.String()),
		zap.String("group_listing_id", resp.ID.String()))

	return resp, nil
}

// PlaceBulkOrder splits an order for the requested quantity across the
// listing's members, decrements their supply entries in lockstep and creates
// one pending sub-order per allocated member, all in one transaction.
//
// When an idempotency key is supplied and a store is configured, replays of a
// processed key are rejected with a conflict instead of allocating twice.
func (s *Service) PlaceBulkOrder(ctx context.Context, buyerID uuid.UUID, req PlaceBulkOrderRequest, idempotencyKey string) (*BulkOrderResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "group_pooling", "place_bulk_order")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrGroupListingID, req.GroupListingID.String(),
		telemetry.SpanAttrBuyerID, buyerID.String(),
		telemetry.SpanAttrQuantityKg, req.QuantityKg.String(),
	)

	if idempotencyKey != "" && s.idempotency != nil {
		fresh, err := s.idempotency.MarkProcessed(ctx, "bulk-order:"+idempotencyKey, s.idempotencyTTL)
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
		if !fresh {
			err := shared.NewDomainError("DUPLICATE_REQUEST", "Bulk order with this idempotency key was already processed")
			telemetry.RecordError(span, err)
			return nil, err
		}
	}

	var resp *BulkOrderResponse
	var events []shared.DomainEvent

	err := s.withRetry(ctx, func() error {
		return s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
			listing, err := repos.GroupRepo().FindByID(ctx, req.GroupListingID)
			if err != nil {
				return err
			}

			allocations, err := s.allocator.Allocate(listing, buyerID, req.QuantityKg)
			if err != nil {
				return err
			}

			subOrders := make([]*order.SubOrder, 0, len(allocations))
			for _, alloc := range allocations {
				entry, err := repos.SupplyRepo().FindByID(ctx, alloc.SupplyEntryID)
				if err != nil {
					// A membership pointing at a vanished entry is corrupted
					// state, not a missing resource.
					if errors.Is(err, shared.ErrNotFound) {
						return shared.ErrConsistencyViolation
					}
					return err
				}
				if err := entry.Decrement(alloc.Quantity); err != nil {
					return err
				}
				if err := repos.SupplyRepo().SaveWithLock(ctx, entry); err != nil {
					return err
				}

				subOrder, err := order.NewSubOrder(listing.ID, alloc.SupplyEntryID, buyerID, alloc.FarmerID,
					listing.CropName, listing.Location, alloc.Quantity, alloc.PricePerKg)
				if err != nil {
					return err
				}
				subOrders = append(subOrders, subOrder)
			}

			if err := repos.OrderRepo().SaveAll(ctx, subOrders); err != nil {
				return err
			}
			if err := repos.GroupRepo().SaveWithLock(ctx, listing); err != nil {
				return err
			}

			events = drainEvents(listing)
			resp = NewBulkOrderResponse(listing, buyerID, req.QuantityKg, subOrders)
			return nil
		})
	})
	if err != nil {
		telemetry.RecordError(span, err)
		if isConsistencyViolation(err) {
			s.logger.Error("bulk order aborted on consistency violation",
				zap.String("group_listing_id", req.GroupListingID.String()),
				zap.String("buyer_id", buyerID.String()),
				zap.Error(err))
		}
		return nil, err
	}
	s.publish(ctx, events)

	s.logger.Info("bulk order placed",
		zap.String("group_listing_id", req.GroupListingID.String()),
		zap.String("buyer_id", buyerID.String()),
		zap.String("quantity_kg", req.QuantityKg.String()),
		zap.Int("sub_orders", len(resp.SubOrders)))

	return resp, nil
}

// GetGroup returns one group listing with its members
func (s *Service) GetGroup(ctx context.Context, id uuid.UUID) (*GroupListingResponse, error) {
	var resp *GroupListingResponse
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		listing, err := repos.GroupRepo().FindByID(ctx, id)
		if err != nil {
			return err
		}
		resp = NewGroupListingResponse(listing)
		return nil
	})
	return resp, err
}

// ListActiveGroups returns the browsable active listings with pooled quantity
func (s *Service) ListActiveGroups(ctx context.Context, filter shared.Filter) (shared.Paginated[GroupListingResponse], error) {
	var page shared.Paginated[GroupListingResponse]
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		listings, err := repos.GroupRepo().FindActive(ctx, filter)
		if err != nil {
			return err
		}
		items := make([]GroupListingResponse, len(listings.Items))
		for i := range listings.Items {
			items[i] = *NewGroupListingResponse(&listings.Items[i])
		}
		page = shared.NewPaginated(items, listings.Total, listings.Page, listings.PageSize)
		return nil
	})
	return page, err
}

// ListMyGroups returns the listings the farmer currently contributes to
func (s *Service) ListMyGroups(ctx context.Context, farmerID uuid.UUID) ([]GroupListingResponse, error) {
	var items []GroupListingResponse
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		listings, err := repos.GroupRepo().FindByFarmerMember(ctx, farmerID)
		if err != nil {
			return err
		}
		items = make([]GroupListingResponse, len(listings))
		for i := range listings {
			items[i] = *NewGroupListingResponse(&listings[i])
		}
		return nil
	})
	return items, err
}

// withRetry runs op until it succeeds, fails with a non-retryable error or
// exhausts the retry budget. Version conflicts restart from a fresh read.
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
		s.logger.Debug("retrying pooling operation after version conflict",
			zap.Int("attempt", attempt),
			zap.Int("max_retries", s.maxRetries))
	}
	return shared.ErrConcurrencyConflict
}

// drainEvents takes the aggregate's pending domain events so they can be
// published once the surrounding transaction has committed. A retried or
// rolled-back attempt must not leak its events.
func drainEvents(listing *grouplisting.GroupListing) []shared.DomainEvent {
	events := listing.GetDomainEvents()
	listing.ClearDomainEvents()
	return events
}

// publish forwards committed domain events to the publisher
func (s *Service) publish(ctx context.Context, events []shared.DomainEvent) {
	if s.eventPublisher == nil || len(events) == 0 {
		return
	}
	// Publish failures are logged by the event bus, not propagated
	_ = s.eventPublisher.Publish(ctx, events...)
}

func isConcurrencyConflict(err error) bool {
	var domainErr *shared.DomainError
	return errors.As(err, &domainErr) && domainErr.Code == shared.ErrConcurrencyConflict.Code
}

func isConsistencyViolation(err error) bool {
	var domainErr *shared.DomainError
	return errors.As(err, &domainErr) && domainErr.Code == shared.ErrConsistencyViolation.Code
}
