package order

import (
	"context"

	"github.com/agripool/backend/internal/domain/order"
	"github.com/agripool/backend/internal/domain/supply"
)

// TransactionScope provides transactional access to the order repositories.
// A direct purchase decrements the supply entry and creates its sub-order in
// one atomic unit.
type TransactionScope interface {
	// Execute runs the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	// If the function succeeds, the transaction is committed.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to the order repositories within
// a transaction
type TransactionalRepositories interface {
	// SupplyRepo returns the supply entry repository scoped to the current transaction
	SupplyRepo() supply.SupplyEntryRepository
	// OrderRepo returns the sub-order repository scoped to the current transaction
	OrderRepo() order.Repository
}

// NoOpTransactionScope is a transaction scope that doesn't actually use
// transactions. Useful for testing with in-memory repositories.
type NoOpTransactionScope struct {
	supplyRepo supply.SupplyEntryRepository
	orderRepo  order.Repository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given repositories
func NewNoOpTransactionScope(supplyRepo supply.SupplyEntryRepository, orderRepo order.Repository) *NoOpTransactionScope {
	return &NoOpTransactionScope{supplyRepo: supplyRepo, orderRepo: orderRepo}
}

// Execute runs the function without a real transaction
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// SupplyRepo returns the supply entry repository
func (s *NoOpTransactionScope) SupplyRepo() supply.SupplyEntryRepository {
	return s.supplyRepo
}

// OrderRepo returns the sub-order repository
func (s *NoOpTransactionScope) OrderRepo() order.Repository {
	return s.orderRepo
}
