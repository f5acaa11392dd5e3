package grouplisting

import (
	"strings"
	"time"

	"github.com/agripool/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Membership associates one supply entry with a group listing together with
// the quantity it currently contributes to the pool. Memberships are child
// entities of GroupListing and keep their join order via Position.
type Membership struct {
	ID                  uuid.UUID `gorm:"type:uuid;primaryKey"`
	GroupListingID      uuid.UUID `gorm:"type:uuid;not null;index"`
	SupplyEntryID       uuid.UUID `gorm:"type:uuid;not null;uniqueIndex"`
	FarmerID            uuid.UUID `gorm:"type:uuid;not null;index"`
	ContributedQuantity decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Position            int             `gorm:"not null"` // Join order, drives allocation order
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// TableName returns the table name for GORM
func (Membership) TableName() string {
	return "group_memberships"
}

// GroupListing is the pooled supply for one (crop, location) key. It is the
// aggregate root for pooling operations: membership changes and bulk-order
// allocations all go through it, and its total quantity always equals the sum
// of its members' contributed quantities.
type GroupListing struct {
	shared.BaseAggregateRoot
	CropName      string          `gorm:"size:255;not null"`
	Location      string          `gorm:"size:255;not null"`
	NormalizedKey string          `gorm:"size:511;not null;uniqueIndex"`
	PricePerKg    decimal.Decimal `gorm:"type:decimal(18,4);not null"` // Snapshot price, fixed at creation
	TotalQuantity decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	Active        bool            `gorm:"not null;default:true"`

	// Members are loaded with the aggregate and persisted through it,
	// ordered by Position.
	Members []Membership `gorm:"foreignKey:GroupListingID;references:ID"`
}

// TableName returns the table name for GORM
func (GroupListing) TableName() string {
	return "group_listings"
}

// NormalizeKey builds the lookup key for a (crop, location) pair. Matching is
// exact after trimming and case-folding, so "Wheat " and "wheat" pool together
// but "whea" does not.
func NormalizeKey(cropName, location string) string {
	crop := strings.ToLower(strings.TrimSpace(cropName))
	loc := strings.ToLower(strings.TrimSpace(location))
	return crop + "|" + loc
}

// NewGroupListing creates an empty group listing for a (crop, location) key.
// The proposed price becomes the listing's permanent snapshot price.
func NewGroupListing(cropName, location string, pricePerKg decimal.Decimal) (*GroupListing, error) {
	if strings.TrimSpace(cropName) == "" {
		return nil, shared.NewDomainError("INVALID_CROP", "Crop name cannot be empty")
	}
	if strings.TrimSpace(location) == "" {
		return nil, shared.NewDomainError("INVALID_LOCATION", "Location cannot be empty")
	}
	if pricePerKg.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_PRICE", "Price per kg must be positive")
	}

	return &GroupListing{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		CropName:          strings.TrimSpace(cropName),
		Location:          strings.TrimSpace(location),
		NormalizedKey:     NormalizeKey(cropName, location),
		PricePerKg:        pricePerKg,
		TotalQuantity:     decimal.Zero,
		Active:            true,
		Members:           make([]Membership, 0),
	}, nil
}

// MemberBySupplyEntry returns the membership for a supply entry, or nil
func (g *GroupListing) MemberBySupplyEntry(supplyEntryID uuid.UUID) *Membership {
	for i := range g.Members {
		if g.Members[i].SupplyEntryID == supplyEntryID {
			return &g.Members[i]
		}
	}
	return nil
}

// HasMember returns true if the supply entry is a member of this listing
func (g *GroupListing) HasMember(supplyEntryID uuid.UUID) bool {
	return g.MemberBySupplyEntry(supplyEntryID) != nil
}

// IsEmpty returns true when the listing has no members
func (g *GroupListing) IsEmpty() bool {
	return len(g.Members) == 0
}

// AddMember appends a membership for a supply entry with the quantity it
// contributes. The total quantity is recomputed from all members.
func (g *GroupListing) AddMember(supplyEntryID, farmerID uuid.UUID, quantity decimal.Decimal) error {
	if supplyEntryID == uuid.Nil {
		return shared.NewDomainError("INVALID_ENTRY", "Supply entry ID cannot be empty")
	}
	if farmerID == uuid.Nil {
		return shared.NewDomainError("INVALID_FARMER", "Farmer ID cannot be empty")
	}
	if quantity.IsNegative() {
		return shared.NewDomainError("INVALID_QUANTITY", "Contributed quantity cannot be negative")
	}
	if g.HasMember(supplyEntryID) {
		return shared.ErrAlreadyPooled
	}

	now := time.Now()
	g.Members = append(g.Members, Membership{
		ID:                  uuid.New(),
		GroupListingID:      g.ID,
		SupplyEntryID:       supplyEntryID,
		FarmerID:            farmerID,
		ContributedQuantity: quantity,
		Position:            g.nextPosition(),
		CreatedAt:           now,
		UpdatedAt:           now,
	})
	g.recomputeTotal()
	g.UpdatedAt = now
	g.IncrementVersion()

	g.AddDomainEvent(NewMemberJoinedEvent(g, supplyEntryID, farmerID, quantity))

	return nil
}

// RemoveMember removes the membership for a supply entry. When the last member
// leaves, the listing stays around with a zero total so the key can be reused.
func (g *GroupListing) RemoveMember(supplyEntryID uuid.UUID) error {
	idx := -1
	for i := range g.Members {
		if g.Members[i].SupplyEntryID == supplyEntryID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return shared.ErrNotInGroup
	}

	removed := g.Members[idx]
	g.Members = append(g.Members[:idx], g.Members[idx+1:]...)
	g.recomputeTotal()
	g.UpdatedAt = time.Now()
	g.IncrementVersion()

	g.AddDomainEvent(NewMemberLeftEvent(g, removed.SupplyEntryID, removed.FarmerID, removed.ContributedQuantity))

	return nil
}

// ResetPriceForReuse replaces the snapshot price of an emptied listing before
// it is reused for a fresh pool. Only allowed while no members contribute;
// with members present the snapshot price is immutable.
func (g *GroupListing) ResetPriceForReuse(pricePerKg decimal.Decimal) error {
	if !g.IsEmpty() {
		return shared.NewDomainError("INVALID_STATE", "Snapshot price cannot change while the listing has members")
	}
	if pricePerKg.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_PRICE", "Price per kg must be positive")
	}

	// No version bump here: the reset only happens inside a join, which
	// bumps the version once when the member is added.
	g.PricePerKg = pricePerKg
	g.UpdatedAt = time.Now()

	return nil
}

// CheckInvariant verifies that the stored total equals the sum of all member
// contributions and that no contribution is negative.
func (g *GroupListing) CheckInvariant() error {
	sum := decimal.Zero
	for i := range g.Members {
		if g.Members[i].ContributedQuantity.IsNegative() {
			return shared.ErrConsistencyViolation
		}
		sum = sum.Add(g.Members[i].ContributedQuantity)
	}
	if !g.TotalQuantity.Equal(sum) {
		return shared.ErrConsistencyViolation
	}
	return nil
}

// recomputeTotal derives the total quantity from the member contributions
func (g *GroupListing) recomputeTotal() {
	sum := decimal.Zero
	for i := range g.Members {
		sum = sum.Add(g.Members[i].ContributedQuantity)
	}
	g.TotalQuantity = sum
}

// nextPosition returns the position for a newly appended member
func (g *GroupListing) nextPosition() int {
	max := -1
	for i := range g.Members {
		if g.Members[i].Position > max {
			max = g.Members[i].Position
		}
	}
	return max + 1
}
