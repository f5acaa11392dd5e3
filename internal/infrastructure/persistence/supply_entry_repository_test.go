package persistence

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/agripool/backend/internal/domain/shared"
	"github.com/agripool/backend/internal/domain/supply"
)

func setupSupplyEntryTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(&supply.SupplyEntry{})
	require.NoError(t, err)

	return db
}

func newTestEntry(t *testing.T, farmerID uuid.UUID, crop, location string, quantity int64) *supply.SupplyEntry {
	t.Helper()

	entry, err := supply.NewSupplyEntry(
		farmerID, crop, location,
		decimal.NewFromInt(quantity), decimal.NewFromInt(12), nil,
	)
	require.NoError(t, err)
	return entry
}

func TestGormSupplyEntryRepository_SaveAndFind(t *testing.T) {
	db := setupSupplyEntryTestDB(t)
	repo := NewGormSupplyEntryRepository(db)
	ctx := context.Background()

	t.Run("saves and loads an entry", func(t *testing.T) {
		farmerID := uuid.New()
		entry := newTestEntry(t, farmerID, "Wheat", "Nairobi", 50)

		require.NoError(t, repo.Save(ctx, entry))

		found, err := repo.FindByID(ctx, entry.ID)
		require.NoError(t, err)
		assert.Equal(t, entry.ID, found.ID)
		assert.Equal(t, farmerID, found.FarmerID)
		assert.Equal(t, "Wheat", found.CropName)
		assert.True(t, decimal.NewFromInt(50).Equal(found.AvailableQuantity))
		assert.Equal(t, 1, found.Version)
		assert.False(t, found.Pooled)
	})

	t.Run("returns NotFound for unknown id", func(t *testing.T) {
		_, err := repo.FindByID(ctx, uuid.New())
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("finds multiple entries by ids", func(t *testing.T) {
		farmerID := uuid.New()
		first := newTestEntry(t, farmerID, "Maize", "Eldoret", 30)
		second := newTestEntry(t, farmerID, "Maize", "Eldoret", 20)
		require.NoError(t, repo.Save(ctx, first))
		require.NoError(t, repo.Save(ctx, second))

		entries, err := repo.FindByIDs(ctx, []uuid.UUID{first.ID, second.ID})
		require.NoError(t, err)
		assert.Len(t, entries, 2)

		entries, err = repo.FindByIDs(ctx, nil)
		require.NoError(t, err)
		assert.Empty(t, entries)
	})
}

func TestGormSupplyEntryRepository_Filters(t *testing.T) {
	db := setupSupplyEntryTestDB(t)
	repo := NewGormSupplyEntryRepository(db)
	ctx := context.Background()

	farmerA := uuid.New()
	farmerB := uuid.New()

	require.NoError(t, repo.Save(ctx, newTestEntry(t, farmerA, "Wheat", "Nakuru", 50)))
	require.NoError(t, repo.Save(ctx, newTestEntry(t, farmerA, "Maize", "Nakuru", 30)))
	require.NoError(t, repo.Save(ctx, newTestEntry(t, farmerB, "Wheat", "Kisumu", 20)))

	t.Run("filters by crop name case-insensitively", func(t *testing.T) {
		filter := shared.DefaultFilter()
		filter.Filters["crop_name"] = "  WHEAT "

		entries, err := repo.FindAll(ctx, filter)
		require.NoError(t, err)
		assert.Len(t, entries, 2)
	})

	t.Run("filters by location", func(t *testing.T) {
		filter := shared.DefaultFilter()
		filter.Filters["location"] = "nakuru"

		entries, err := repo.FindAll(ctx, filter)
		require.NoError(t, err)
		assert.Len(t, entries, 2)
	})

	t.Run("lists entries for one farmer", func(t *testing.T) {
		entries, err := repo.FindByFarmer(ctx, farmerA, shared.DefaultFilter())
		require.NoError(t, err)
		assert.Len(t, entries, 2)
	})

	t.Run("counts matching entries", func(t *testing.T) {
		filter := shared.DefaultFilter()
		filter.Filters["crop_name"] = "wheat"

		count, err := repo.Count(ctx, filter)
		require.NoError(t, err)
		assert.Equal(t, int64(2), count)
	})

	t.Run("paginates results", func(t *testing.T) {
		filter := shared.DefaultFilter()
		filter.PageSize = 2

		entries, err := repo.FindAll(ctx, filter)
		require.NoError(t, err)
		assert.Len(t, entries, 2)

		filter.Page = 2
		entries, err = repo.FindAll(ctx, filter)
		require.NoError(t, err)
		assert.Len(t, entries, 1)
	})
}

func TestGormSupplyEntryRepository_SaveWithLock(t *testing.T) {
	db := setupSupplyEntryTestDB(t)
	repo := NewGormSupplyEntryRepository(db)
	ctx := context.Background()

	t.Run("persists a version-incremented aggregate", func(t *testing.T) {
		entry := newTestEntry(t, uuid.New(), "Beans", "Thika", 40)
		require.NoError(t, repo.Save(ctx, entry))

		loaded, err := repo.FindByID(ctx, entry.ID)
		require.NoError(t, err)
		require.NoError(t, loaded.Decrement(decimal.NewFromInt(10)))

		require.NoError(t, repo.SaveWithLock(ctx, loaded))

		found, err := repo.FindByID(ctx, entry.ID)
		require.NoError(t, err)
		assert.True(t, decimal.NewFromInt(30).Equal(found.AvailableQuantity))
		assert.Equal(t, 2, found.Version)
	})

	t.Run("rejects a stale aggregate", func(t *testing.T) {
		entry := newTestEntry(t, uuid.New(), "Beans", "Thika", 40)
		require.NoError(t, repo.Save(ctx, entry))

		fresh, err := repo.FindByID(ctx, entry.ID)
		require.NoError(t, err)
		stale, err := repo.FindByID(ctx, entry.ID)
		require.NoError(t, err)

		require.NoError(t, fresh.Decrement(decimal.NewFromInt(5)))
		require.NoError(t, repo.SaveWithLock(ctx, fresh))

		require.NoError(t, stale.Decrement(decimal.NewFromInt(5)))
		err = repo.SaveWithLock(ctx, stale)
		assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)

		// The winning write is untouched.
		found, err := repo.FindByID(ctx, entry.ID)
		require.NoError(t, err)
		assert.True(t, decimal.NewFromInt(35).Equal(found.AvailableQuantity))
	})
}

func TestGormSupplyEntryRepository_Delete(t *testing.T) {
	db := setupSupplyEntryTestDB(t)
	repo := NewGormSupplyEntryRepository(db)
	ctx := context.Background()

	entry := newTestEntry(t, uuid.New(), "Tea", "Kericho", 15)
	require.NoError(t, repo.Save(ctx, entry))

	require.NoError(t, repo.Delete(ctx, entry.ID))

	_, err := repo.FindByID(ctx, entry.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)

	err = repo.Delete(ctx, entry.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}
