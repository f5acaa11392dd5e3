package persistence

import (
	"context"

	"gorm.io/gorm"

	apppooling "github.com/agripool/backend/internal/application/pooling"
	"github.com/agripool/backend/internal/domain/grouplisting"
	"github.com/agripool/backend/internal/domain/order"
	"github.com/agripool/backend/internal/domain/supply"
)

// GormPoolingTransactionScope implements the pooling TransactionScope using
// GORM transactions. Join, leave and bulk-order allocation each run their
// repository operations atomically inside one scope.
type GormPoolingTransactionScope struct {
	db *gorm.DB
}

// NewGormPoolingTransactionScope creates a new GormPoolingTransactionScope
func NewGormPoolingTransactionScope(db *gorm.DB) *GormPoolingTransactionScope {
	return &GormPoolingTransactionScope{db: db}
}

// Execute runs the given function within a database transaction.
// If the function returns an error, the transaction is rolled back.
func (s *GormPoolingTransactionScope) Execute(ctx context.Context, fn func(repos apppooling.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repos := &gormPoolingRepositories{tx: tx}
		return fn(repos)
	})
}

// gormPoolingRepositories provides transaction-scoped repositories
type gormPoolingRepositories struct {
	tx *gorm.DB
}

// GroupRepo returns the group listing repository scoped to the current transaction
func (r *gormPoolingRepositories) GroupRepo() grouplisting.Repository {
	return NewGormGroupListingRepository(r.tx)
}

// SupplyRepo returns the supply entry repository scoped to the current transaction
func (r *gormPoolingRepositories) SupplyRepo() supply.SupplyEntryRepository {
	return NewGormSupplyEntryRepository(r.tx)
}

// OrderRepo returns the sub-order repository scoped to the current transaction
func (r *gormPoolingRepositories) OrderRepo() order.Repository {
	return NewGormSubOrderRepository(r.tx)
}

// Ensure GormPoolingTransactionScope implements TransactionScope
var _ apppooling.TransactionScope = (*GormPoolingTransactionScope)(nil)

// Ensure gormPoolingRepositories implements TransactionalRepositories
var _ apppooling.TransactionalRepositories = (*gormPoolingRepositories)(nil)
