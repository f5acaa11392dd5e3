package grouplisting

import (
	"testing"

	"github.com/agripool/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestListing(t *testing.T) *GroupListing {
	t.Helper()
	listing, err := NewGroupListing("Wheat", "Punjab", decimal.NewFromInt(30))
	require.NoError(t, err)
	return listing
}

func TestNormalizeKey(t *testing.T) {
	t.Run("trims and case-folds both parts", func(t *testing.T) {
		assert.Equal(t, "wheat|punjab", NormalizeKey("  Wheat ", "PUNJAB"))
		assert.Equal(t, NormalizeKey("Wheat", "Punjab"), NormalizeKey("wheat", "punjab"))
	})

	t.Run("different crops produce different keys", func(t *testing.T) {
		assert.NotEqual(t, NormalizeKey("whea", "Punjab"), NormalizeKey("wheat", "Punjab"))
	})
}

func TestNewGroupListing(t *testing.T) {
	t.Run("creates empty active listing", func(t *testing.T) {
		listing, err := NewGroupListing(" Wheat ", "Punjab", decimal.NewFromInt(30))
		require.NoError(t, err)

		assert.Equal(t, "Wheat", listing.CropName)
		assert.Equal(t, "wheat|punjab", listing.NormalizedKey)
		assert.True(t, listing.Active)
		assert.True(t, listing.TotalQuantity.IsZero())
		assert.Empty(t, listing.Members)
		assert.Equal(t, 1, listing.GetVersion())
	})

	t.Run("rejects empty crop name", func(t *testing.T) {
		_, err := NewGroupListing("  ", "Punjab", decimal.NewFromInt(30))
		assert.Error(t, err)
	})

	t.Run("rejects non-positive price", func(t *testing.T) {
		_, err := NewGroupListing("Wheat", "Punjab", decimal.Zero)
		assert.Error(t, err)
	})
}

func TestGroupListing_AddMember(t *testing.T) {
	t.Run("adds member and recomputes total", func(t *testing.T) {
		listing := newTestListing(t)
		entryID := uuid.New()
		farmerID := uuid.New()

		err := listing.AddMember(entryID, farmerID, decimal.NewFromInt(50))
		require.NoError(t, err)

		assert.True(t, listing.HasMember(entryID))
		assert.True(t, listing.TotalQuantity.Equal(decimal.NewFromInt(50)))
		assert.Len(t, listing.GetDomainEvents(), 1)
		assert.Equal(t, EventMemberJoined, listing.GetDomainEvents()[0].EventType())
	})

	t.Run("preserves join order via positions", func(t *testing.T) {
		listing := newTestListing(t)
		first, second := uuid.New(), uuid.New()

		require.NoError(t, listing.AddMember(first, uuid.New(), decimal.NewFromInt(10)))
		require.NoError(t, listing.AddMember(second, uuid.New(), decimal.NewFromInt(20)))

		assert.Equal(t, 0, listing.Members[0].Position)
		assert.Equal(t, 1, listing.Members[1].Position)
		assert.True(t, listing.TotalQuantity.Equal(decimal.NewFromInt(30)))
	})

	t.Run("rejects duplicate supply entry", func(t *testing.T) {
		listing := newTestListing(t)
		entryID := uuid.New()

		require.NoError(t, listing.AddMember(entryID, uuid.New(), decimal.NewFromInt(10)))
		err := listing.AddMember(entryID, uuid.New(), decimal.NewFromInt(10))

		assert.ErrorIs(t, err, shared.ErrAlreadyPooled)
	})

	t.Run("rejects negative quantity", func(t *testing.T) {
		listing := newTestListing(t)
		err := listing.AddMember(uuid.New(), uuid.New(), decimal.NewFromInt(-1))
		assert.Error(t, err)
	})
}

func TestGroupListing_RemoveMember(t *testing.T) {
	t.Run("removes member and recomputes total", func(t *testing.T) {
		listing := newTestListing(t)
		entryID := uuid.New()
		require.NoError(t, listing.AddMember(entryID, uuid.New(), decimal.NewFromInt(50)))
		require.NoError(t, listing.AddMember(uuid.New(), uuid.New(), decimal.NewFromInt(30)))

		err := listing.RemoveMember(entryID)
		require.NoError(t, err)

		assert.False(t, listing.HasMember(entryID))
		assert.True(t, listing.TotalQuantity.Equal(decimal.NewFromInt(30)))
	})

	t.Run("last member leaving keeps listing with zero total", func(t *testing.T) {
		listing := newTestListing(t)
		entryID := uuid.New()
		require.NoError(t, listing.AddMember(entryID, uuid.New(), decimal.NewFromInt(50)))

		require.NoError(t, listing.RemoveMember(entryID))

		assert.True(t, listing.IsEmpty())
		assert.True(t, listing.TotalQuantity.IsZero())
		assert.True(t, listing.Active)
	})

	t.Run("rejects entry that is not a member", func(t *testing.T) {
		listing := newTestListing(t)
		err := listing.RemoveMember(uuid.New())
		assert.ErrorIs(t, err, shared.ErrNotInGroup)
	})
}

func TestGroupListing_ResetPriceForReuse(t *testing.T) {
	t.Run("updates snapshot price on empty listing", func(t *testing.T) {
		listing := newTestListing(t)
		err := listing.ResetPriceForReuse(decimal.NewFromInt(42))
		require.NoError(t, err)
		assert.True(t, listing.PricePerKg.Equal(decimal.NewFromInt(42)))
	})

	t.Run("rejects price change while members exist", func(t *testing.T) {
		listing := newTestListing(t)
		require.NoError(t, listing.AddMember(uuid.New(), uuid.New(), decimal.NewFromInt(10)))

		err := listing.ResetPriceForReuse(decimal.NewFromInt(42))
		assert.Error(t, err)
		assert.True(t, listing.PricePerKg.Equal(decimal.NewFromInt(30)))
	})
}

func TestGroupListing_CheckInvariant(t *testing.T) {
	t.Run("holds after membership churn", func(t *testing.T) {
		listing := newTestListing(t)
		first := uuid.New()
		require.NoError(t, listing.AddMember(first, uuid.New(), decimal.NewFromInt(50)))
		require.NoError(t, listing.AddMember(uuid.New(), uuid.New(), decimal.NewFromInt(30)))
		require.NoError(t, listing.RemoveMember(first))

		assert.NoError(t, listing.CheckInvariant())
	})

	t.Run("detects drifted total", func(t *testing.T) {
		listing := newTestListing(t)
		require.NoError(t, listing.AddMember(uuid.New(), uuid.New(), decimal.NewFromInt(50)))
		listing.TotalQuantity = decimal.NewFromInt(99)

		assert.ErrorIs(t, listing.CheckInvariant(), shared.ErrConsistencyViolation)
	})
}
