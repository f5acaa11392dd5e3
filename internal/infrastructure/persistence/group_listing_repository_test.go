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

	"github.com/agripool/backend/internal/domain/grouplisting"
	"github.com/agripool/backend/internal/domain/shared"
)

func setupGroupListingTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(&grouplisting.GroupListing{}, &grouplisting.Membership{})
	require.NoError(t, err)

	return db
}

func TestGormGroupListingRepository_FindOrCreate(t *testing.T) {
	db := setupGroupListingTestDB(t)
	repo := NewGormGroupListingRepository(db)
	ctx := context.Background()

	t.Run("creates a listing when the key is new", func(t *testing.T) {
		listing, err := repo.FindOrCreate(ctx, "Wheat", "Nakuru", decimal.NewFromInt(40))
		require.NoError(t, err)
		assert.Equal(t, "wheat|nakuru", listing.NormalizedKey)
		assert.True(t, listing.Active)
		assert.Empty(t, listing.Members)
	})

	t.Run("returns the existing row for the same key", func(t *testing.T) {
		first, err := repo.FindOrCreate(ctx, "Maize", "Eldoret", decimal.NewFromInt(30))
		require.NoError(t, err)

		// Different casing and a different price still hit the same listing.
		second, err := repo.FindOrCreate(ctx, "  MAIZE ", "eldoret", decimal.NewFromInt(99))
		require.NoError(t, err)

		assert.Equal(t, first.ID, second.ID)
		assert.True(t, decimal.NewFromInt(30).Equal(second.PricePerKg))
	})
}

func TestGormGroupListingRepository_MembersRoundTrip(t *testing.T) {
	db := setupGroupListingTestDB(t)
	repo := NewGormGroupListingRepository(db)
	ctx := context.Background()

	listing, err := repo.FindOrCreate(ctx, "Wheat", "Nakuru", decimal.NewFromInt(40))
	require.NoError(t, err)

	firstEntry := uuid.New()
	secondEntry := uuid.New()
	require.NoError(t, listing.AddMember(firstEntry, uuid.New(), decimal.NewFromInt(50)))
	require.NoError(t, repo.SaveWithLock(ctx, listing))

	listing, err = repo.FindByID(ctx, listing.ID)
	require.NoError(t, err)
	require.NoError(t, listing.AddMember(secondEntry, uuid.New(), decimal.NewFromInt(30)))
	require.NoError(t, repo.SaveWithLock(ctx, listing))

	t.Run("loads members in join order", func(t *testing.T) {
		found, err := repo.FindByID(ctx, listing.ID)
		require.NoError(t, err)
		require.Len(t, found.Members, 2)
		assert.Equal(t, firstEntry, found.Members[0].SupplyEntryID)
		assert.Equal(t, secondEntry, found.Members[1].SupplyEntryID)
		assert.True(t, decimal.NewFromInt(80).Equal(found.TotalQuantity))
	})

	t.Run("removed members are deleted from storage", func(t *testing.T) {
		found, err := repo.FindByID(ctx, listing.ID)
		require.NoError(t, err)
		require.NoError(t, found.RemoveMember(firstEntry))
		require.NoError(t, repo.SaveWithLock(ctx, found))

		reloaded, err := repo.FindByID(ctx, listing.ID)
		require.NoError(t, err)
		require.Len(t, reloaded.Members, 1)
		assert.Equal(t, secondEntry, reloaded.Members[0].SupplyEntryID)
		assert.True(t, decimal.NewFromInt(30).Equal(reloaded.TotalQuantity))

		var count int64
		require.NoError(t, db.Model(&grouplisting.Membership{}).Count(&count).Error)
		assert.Equal(t, int64(1), count)
	})
}

func TestGormGroupListingRepository_SaveWithLock(t *testing.T) {
	db := setupGroupListingTestDB(t)
	repo := NewGormGroupListingRepository(db)
	ctx := context.Background()

	listing, err := repo.FindOrCreate(ctx, "Beans", "Thika", decimal.NewFromInt(55))
	require.NoError(t, err)

	fresh, err := repo.FindByID(ctx, listing.ID)
	require.NoError(t, err)
	stale, err := repo.FindByID(ctx, listing.ID)
	require.NoError(t, err)

	require.NoError(t, fresh.AddMember(uuid.New(), uuid.New(), decimal.NewFromInt(10)))
	require.NoError(t, repo.SaveWithLock(ctx, fresh))

	require.NoError(t, stale.AddMember(uuid.New(), uuid.New(), decimal.NewFromInt(20)))
	err = repo.SaveWithLock(ctx, stale)
	assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)

	// The losing writer left no membership rows behind.
	found, err := repo.FindByID(ctx, listing.ID)
	require.NoError(t, err)
	assert.Len(t, found.Members, 1)
	assert.True(t, decimal.NewFromInt(10).Equal(found.TotalQuantity))
}

func TestGormGroupListingRepository_Queries(t *testing.T) {
	db := setupGroupListingTestDB(t)
	repo := NewGormGroupListingRepository(db)
	ctx := context.Background()

	farmerID := uuid.New()
	entryID := uuid.New()

	active, err := repo.FindOrCreate(ctx, "Wheat", "Nakuru", decimal.NewFromInt(40))
	require.NoError(t, err)
	require.NoError(t, active.AddMember(entryID, farmerID, decimal.NewFromInt(50)))
	require.NoError(t, repo.SaveWithLock(ctx, active))

	// Drained listing stays in storage but out of the active view.
	_, err = repo.FindOrCreate(ctx, "Maize", "Eldoret", decimal.NewFromInt(30))
	require.NoError(t, err)

	t.Run("FindActive excludes listings without pooled quantity", func(t *testing.T) {
		page, err := repo.FindActive(ctx, shared.DefaultFilter())
		require.NoError(t, err)
		require.Len(t, page.Items, 1)
		assert.Equal(t, active.ID, page.Items[0].ID)
		assert.Equal(t, int64(1), page.Total)
		assert.Len(t, page.Items[0].Members, 1)
	})

	t.Run("FindByKey returns nil for an unknown key", func(t *testing.T) {
		found, err := repo.FindByKey(ctx, "coffee|nyeri")
		require.NoError(t, err)
		assert.Nil(t, found)
	})

	t.Run("FindByFarmerMember lists the farmer's listings", func(t *testing.T) {
		listings, err := repo.FindByFarmerMember(ctx, farmerID)
		require.NoError(t, err)
		require.Len(t, listings, 1)
		assert.Equal(t, active.ID, listings[0].ID)

		listings, err = repo.FindByFarmerMember(ctx, uuid.New())
		require.NoError(t, err)
		assert.Empty(t, listings)
	})

	t.Run("FindContainingEntry resolves the pooled entry", func(t *testing.T) {
		found, err := repo.FindContainingEntry(ctx, entryID)
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, active.ID, found.ID)

		found, err = repo.FindContainingEntry(ctx, uuid.New())
		require.NoError(t, err)
		assert.Nil(t, found)
	})
}
