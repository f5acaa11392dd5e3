package persistence

import (
	"context"

	"gorm.io/gorm"

	apporder "github.com/agripool/backend/internal/application/order"
	"github.com/agripool/backend/internal/domain/order"
	"github.com/agripool/backend/internal/domain/supply"
)

// GormOrderTransactionScope implements the order TransactionScope using GORM
// transactions. Direct orders decrement the supply entry and persist the
// sub-order atomically.
type GormOrderTransactionScope struct {
	db *gorm.DB
}

// NewGormOrderTransactionScope creates a new GormOrderTransactionScope
func NewGormOrderTransactionScope(db *gorm.DB) *GormOrderTransactionScope {
	return &GormOrderTransactionScope{db: db}
}

// Execute runs the given function within a database transaction.
// If the function returns an error, the transaction is rolled back.
func (s *GormOrderTransactionScope) Execute(ctx context.Context, fn func(repos apporder.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repos := &gormOrderRepositories{tx: tx}
		return fn(repos)
	})
}

// gormOrderRepositories provides transaction-scoped repositories
type gormOrderRepositories struct {
	tx *gorm.DB
}

// SupplyRepo returns the supply entry repository scoped to the current transaction
func (r *gormOrderRepositories) SupplyRepo() supply.SupplyEntryRepository {
	return NewGormSupplyEntryRepository(r.tx)
}

// OrderRepo returns the sub-order repository scoped to the current transaction
func (r *gormOrderRepositories) OrderRepo() order.Repository {
	return NewGormSubOrderRepository(r.tx)
}

// Ensure GormOrderTransactionScope implements TransactionScope
var _ apporder.TransactionScope = (*GormOrderTransactionScope)(nil)

// Ensure gormOrderRepositories implements TransactionalRepositories
var _ apporder.TransactionalRepositories = (*gormOrderRepositories)(nil)
