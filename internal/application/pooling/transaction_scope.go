package pooling

import (
	"context"

	"github.com/agripool/backend/internal/domain/grouplisting"
	"github.com/agripool/backend/internal/domain/order"
	"github.com/agripool/backend/internal/domain/supply"
)

// TransactionScope provides transactional access to the pooling repositories.
// All repository operations issued inside Execute share one database
// transaction and commit or roll back atomically. Joins, leaves and bulk-order
// allocations each run as one such unit.
type TransactionScope interface {
	// Execute runs the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	// If the function succeeds, the transaction is committed.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to the pooling repositories within
// a transaction. All repositories returned share the same underlying database
// transaction.
type TransactionalRepositories interface {
	// GroupRepo returns the group listing repository scoped to the current transaction
	GroupRepo() grouplisting.Repository
	// SupplyRepo returns the supply entry repository scoped to the current transaction
	SupplyRepo() supply.SupplyEntryRepository
	// OrderRepo returns the sub-order repository scoped to the current transaction
	OrderRepo() order.Repository
}

// NoOpTransactionScope is a transaction scope that doesn't actually use
// transactions. Useful for testing with in-memory repositories.
type NoOpTransactionScope struct {
	groupRepo  grouplisting.Repository
	supplyRepo supply.SupplyEntryRepository
	orderRepo  order.Repository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given repositories
func NewNoOpTransactionScope(
	groupRepo grouplisting.Repository,
	supplyRepo supply.SupplyEntryRepository,
	orderRepo order.Repository,
) *NoOpTransactionScope {
	return &NoOpTransactionScope{
		groupRepo:  groupRepo,
		supplyRepo: supplyRepo,
		orderRepo:  orderRepo,
	}
}

// Execute runs the function without a real transaction
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// GroupRepo returns the group listing repository
func (s *NoOpTransactionScope) GroupRepo() grouplisting.Repository {
	return s.groupRepo
}

// SupplyRepo returns the supply entry repository
func (s *NoOpTransactionScope) SupplyRepo() supply.SupplyEntryRepository {
	return s.supplyRepo
}

// OrderRepo returns the sub-order repository
func (s *NoOpTransactionScope) OrderRepo() order.Repository {
	return s.orderRepo
}
