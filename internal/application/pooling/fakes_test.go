package pooling

import (
	"context"
	"sync"
	"time"

	"github.com/agripool/backend/internal/domain/grouplisting"
	"github.com/agripool/backend/internal/domain/order"
	"github.com/agripool/backend/internal/domain/shared"
	"github.com/agripool/backend/internal/domain/supply"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// The fakes below back the service tests with map storage. Loads and saves
// deep-copy the aggregates so a "fresh read" really is fresh, and SaveWithLock
// enforces the same version check the real repositories run against the
// database.

// MockEventPublisher records published domain events
type MockEventPublisher struct {
	mu     sync.Mutex
	events []shared.DomainEvent
}

func NewMockEventPublisher() *MockEventPublisher {
	return &MockEventPublisher{events: make([]shared.DomainEvent, 0)}
}

func (m *MockEventPublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, events...)
	return nil
}

func (m *MockEventPublisher) GetEventsByType(eventType string) []shared.DomainEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]shared.DomainEvent, 0)
	for _, e := range m.events {
		if e.EventType() == eventType {
			result = append(result, e)
		}
	}
	return result
}

// memIdempotencyStore is an in-memory shared.IdempotencyStore
type memIdempotencyStore struct {
	mu   sync.Mutex
	seen map[string]bool
}

func newMemIdempotencyStore() *memIdempotencyStore {
	return &memIdempotencyStore{seen: make(map[string]bool)}
}

func (s *memIdempotencyStore) MarkProcessed(_ context.Context, key string, _ time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seen[key] {
		return false, nil
	}
	s.seen[key] = true
	return true, nil
}

func (s *memIdempotencyStore) IsProcessed(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seen[key], nil
}

func (s *memIdempotencyStore) Close() error { return nil }

func cloneEntry(e *supply.SupplyEntry) *supply.SupplyEntry {
	c := *e
	return &c
}

func cloneListing(g *grouplisting.GroupListing) *grouplisting.GroupListing {
	c := *g
	c.Members = append([]grouplisting.Membership(nil), g.Members...)
	c.ClearDomainEvents()
	return &c
}

func cloneOrder(o *order.SubOrder) *order.SubOrder {
	c := *o
	c.ClearDomainEvents()
	return &c
}

// memSupplyRepo is an in-memory supply.SupplyEntryRepository
type memSupplyRepo struct {
	mu      sync.Mutex
	entries map[uuid.UUID]*supply.SupplyEntry
}

func newMemSupplyRepo() *memSupplyRepo {
	return &memSupplyRepo{entries: make(map[uuid.UUID]*supply.SupplyEntry)}
}

func (r *memSupplyRepo) FindByID(_ context.Context, id uuid.UUID) (*supply.SupplyEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return cloneEntry(e), nil
}

func (r *memSupplyRepo) FindByIDs(_ context.Context, ids []uuid.UUID) ([]supply.SupplyEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]supply.SupplyEntry, 0, len(ids))
	for _, id := range ids {
		if e, ok := r.entries[id]; ok {
			out = append(out, *cloneEntry(e))
		}
	}
	return out, nil
}

func (r *memSupplyRepo) FindAll(_ context.Context, _ shared.Filter) ([]supply.SupplyEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]supply.SupplyEntry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, *cloneEntry(e))
	}
	return out, nil
}

func (r *memSupplyRepo) FindByFarmer(_ context.Context, farmerID uuid.UUID, _ shared.Filter) ([]supply.SupplyEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]supply.SupplyEntry, 0)
	for _, e := range r.entries {
		if e.FarmerID == farmerID {
			out = append(out, *cloneEntry(e))
		}
	}
	return out, nil
}

func (r *memSupplyRepo) Save(_ context.Context, entry *supply.SupplyEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[entry.ID] = cloneEntry(entry)
	return nil
}

func (r *memSupplyRepo) SaveWithLock(_ context.Context, entry *supply.SupplyEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.entries[entry.ID]
	if !ok {
		return shared.ErrNotFound
	}
	if stored.Version != entry.Version-1 {
		return shared.ErrConcurrencyConflict
	}
	r.entries[entry.ID] = cloneEntry(entry)
	return nil
}

func (r *memSupplyRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, id)
	return nil
}

func (r *memSupplyRepo) Count(_ context.Context, _ shared.Filter) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.entries)), nil
}

// memGroupRepo is an in-memory grouplisting.Repository
type memGroupRepo struct {
	mu       sync.Mutex
	listings map[uuid.UUID]*grouplisting.GroupListing
}

func newMemGroupRepo() *memGroupRepo {
	return &memGroupRepo{listings: make(map[uuid.UUID]*grouplisting.GroupListing)}
}

func (r *memGroupRepo) FindByID(_ context.Context, id uuid.UUID) (*grouplisting.GroupListing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.listings[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return cloneListing(g), nil
}

func (r *memGroupRepo) FindByKey(_ context.Context, normalizedKey string) (*grouplisting.GroupListing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, g := range r.listings {
		if g.NormalizedKey == normalizedKey {
			return cloneListing(g), nil
		}
	}
	return nil, nil
}

func (r *memGroupRepo) FindOrCreate(_ context.Context, cropName, location string, pricePerKg decimal.Decimal) (*grouplisting.GroupListing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := grouplisting.NormalizeKey(cropName, location)
	for _, g := range r.listings {
		if g.NormalizedKey == key {
			return cloneListing(g), nil
		}
	}
	g, err := grouplisting.NewGroupListing(cropName, location, pricePerKg)
	if err != nil {
		return nil, err
	}
	r.listings[g.ID] = cloneListing(g)
	return g, nil
}

func (r *memGroupRepo) FindActive(_ context.Context, filter shared.Filter) (shared.Paginated[grouplisting.GroupListing], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	items := make([]grouplisting.GroupListing, 0)
	for _, g := range r.listings {
		if g.Active && g.TotalQuantity.IsPositive() {
			items = append(items, *cloneListing(g))
		}
	}
	return shared.NewPaginated(items, int64(len(items)), filter.Page, filter.PageSize), nil
}

func (r *memGroupRepo) FindByFarmerMember(_ context.Context, farmerID uuid.UUID) ([]grouplisting.GroupListing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]grouplisting.GroupListing, 0)
	for _, g := range r.listings {
		for _, m := range g.Members {
			if m.FarmerID == farmerID {
				out = append(out, *cloneListing(g))
				break
			}
		}
	}
	return out, nil
}

func (r *memGroupRepo) FindContainingEntry(_ context.Context, supplyEntryID uuid.UUID) (*grouplisting.GroupListing, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, g := range r.listings {
		if g.MemberBySupplyEntry(supplyEntryID) != nil {
			return cloneListing(g), nil
		}
	}
	return nil, nil
}

func (r *memGroupRepo) Save(_ context.Context, listing *grouplisting.GroupListing) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listings[listing.ID] = cloneListing(listing)
	return nil
}

func (r *memGroupRepo) SaveWithLock(_ context.Context, listing *grouplisting.GroupListing) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.listings[listing.ID]
	if !ok {
		return shared.ErrNotFound
	}
	if stored.Version != listing.Version-1 {
		return shared.ErrConcurrencyConflict
	}
	r.listings[listing.ID] = cloneListing(listing)
	return nil
}

func (r *memGroupRepo) snapshot() map[uuid.UUID]*grouplisting.GroupListing {
	r.mu.Lock()
	defer r.mu.Unlock()
	snap := make(map[uuid.UUID]*grouplisting.GroupListing, len(r.listings))
	for id, g := range r.listings {
		snap[id] = cloneListing(g)
	}
	return snap
}

func (r *memGroupRepo) restore(snap map[uuid.UUID]*grouplisting.GroupListing) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listings = snap
}

func (r *memSupplyRepo) snapshot() map[uuid.UUID]*supply.SupplyEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	snap := make(map[uuid.UUID]*supply.SupplyEntry, len(r.entries))
	for id, e := range r.entries {
		snap[id] = cloneEntry(e)
	}
	return snap
}

func (r *memSupplyRepo) restore(snap map[uuid.UUID]*supply.SupplyEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = snap
}

// memOrderRepo is an in-memory order.Repository
type memOrderRepo struct {
	mu     sync.Mutex
	orders map[uuid.UUID]*order.SubOrder
}

func newMemOrderRepo() *memOrderRepo {
	return &memOrderRepo{orders: make(map[uuid.UUID]*order.SubOrder)}
}

func (r *memOrderRepo) FindByID(_ context.Context, id uuid.UUID) (*order.SubOrder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return cloneOrder(o), nil
}

func (r *memOrderRepo) FindByBuyer(_ context.Context, buyerID uuid.UUID, filter shared.Filter) (shared.Paginated[order.SubOrder], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	items := make([]order.SubOrder, 0)
	for _, o := range r.orders {
		if o.BuyerID == buyerID {
			items = append(items, *cloneOrder(o))
		}
	}
	return shared.NewPaginated(items, int64(len(items)), filter.Page, filter.PageSize), nil
}

func (r *memOrderRepo) FindByFarmer(_ context.Context, farmerID uuid.UUID, filter shared.Filter) (shared.Paginated[order.SubOrder], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	items := make([]order.SubOrder, 0)
	for _, o := range r.orders {
		if o.FarmerID == farmerID {
			items = append(items, *cloneOrder(o))
		}
	}
	return shared.NewPaginated(items, int64(len(items)), filter.Page, filter.PageSize), nil
}

func (r *memOrderRepo) Save(_ context.Context, subOrder *order.SubOrder) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders[subOrder.ID] = cloneOrder(subOrder)
	return nil
}

func (r *memOrderRepo) SaveAll(_ context.Context, subOrders []*order.SubOrder) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range subOrders {
		r.orders[o.ID] = cloneOrder(o)
	}
	return nil
}

func (r *memOrderRepo) SaveWithLock(_ context.Context, subOrder *order.SubOrder) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.orders[subOrder.ID]
	if !ok {
		return shared.ErrNotFound
	}
	if stored.Version != subOrder.Version-1 {
		return shared.ErrConcurrencyConflict
	}
	r.orders[subOrder.ID] = cloneOrder(subOrder)
	return nil
}

func (r *memOrderRepo) snapshot() map[uuid.UUID]*order.SubOrder {
	r.mu.Lock()
	defer r.mu.Unlock()
	snap := make(map[uuid.UUID]*order.SubOrder, len(r.orders))
	for id, o := range r.orders {
		snap[id] = cloneOrder(o)
	}
	return snap
}

func (r *memOrderRepo) restore(snap map[uuid.UUID]*order.SubOrder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders = snap
}

// flakyGroupRepo fails SaveWithLock a configured number of times to simulate
// a concurrent writer winning the version race
type flakyGroupRepo struct {
	*memGroupRepo
	conflicts int
}

func (r *flakyGroupRepo) SaveWithLock(ctx context.Context, listing *grouplisting.GroupListing) error {
	if r.conflicts > 0 {
		r.conflicts--
		return shared.ErrConcurrencyConflict
	}
	return r.memGroupRepo.SaveWithLock(ctx, listing)
}

// testScope runs the function against the in-memory repositories and rolls
// their state back when it fails, mirroring a database transaction
type testScope struct {
	groupRepo  grouplisting.Repository
	supplyRepo *memSupplyRepo
	orderRepo  *memOrderRepo

	groups *memGroupRepo
}

func newTestScope(groups *memGroupRepo, supplies *memSupplyRepo, orders *memOrderRepo) *testScope {
	return &testScope{groupRepo: groups, supplyRepo: supplies, orderRepo: orders, groups: groups}
}

func (s *testScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	groupSnap := s.groups.snapshot()
	supplySnap := s.supplyRepo.snapshot()
	orderSnap := s.orderRepo.snapshot()

	if err := fn(s); err != nil {
		s.groups.restore(groupSnap)
		s.supplyRepo.restore(supplySnap)
		s.orderRepo.restore(orderSnap)
		return err
	}
	return nil
}

func (s *testScope) GroupRepo() grouplisting.Repository        { return s.groupRepo }
func (s *testScope) SupplyRepo() supply.SupplyEntryRepository  { return s.supplyRepo }
func (s *testScope) OrderRepo() order.Repository               { return s.orderRepo }
