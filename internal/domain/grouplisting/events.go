package grouplisting

import (
	"github.com/agripool/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	EventMemberJoined       = "grouplisting.member_joined"
	EventMemberLeft         = "grouplisting.member_left"
	EventBulkOrderAllocated = "grouplisting.bulk_order_allocated"
)

// MemberJoinedEvent is raised when a supply entry joins a group listing
type MemberJoinedEvent struct {
	shared.BaseDomainEvent
	SupplyEntryID       uuid.UUID       `json:"supply_entry_id"`
	FarmerID            uuid.UUID       `json:"farmer_id"`
	ContributedQuantity decimal.Decimal `json:"contributed_quantity"`
	TotalQuantity       decimal.Decimal `json:"total_quantity"`
}

// NewMemberJoinedEvent creates a member joined event
func NewMemberJoinedEvent(g *GroupListing, supplyEntryID, farmerID uuid.UUID, quantity decimal.Decimal) *MemberJoinedEvent {
	return &MemberJoinedEvent{
		BaseDomainEvent:     shared.NewBaseDomainEvent(EventMemberJoined, "GroupListing", g.ID),
		SupplyEntryID:       supplyEntryID,
		FarmerID:            farmerID,
		ContributedQuantity: quantity,
		TotalQuantity:       g.TotalQuantity,
	}
}

// MemberLeftEvent is raised when a supply entry leaves a group listing
type MemberLeftEvent struct {
	shared.BaseDomainEvent
	SupplyEntryID     uuid.UUID       `json:"supply_entry_id"`
	FarmerID          uuid.UUID       `json:"farmer_id"`
	ReturnedQuantity  decimal.Decimal `json:"returned_quantity"`
	RemainingQuantity decimal.Decimal `json:"remaining_quantity"`
}

// NewMemberLeftEvent creates a member left event
func NewMemberLeftEvent(g *GroupListing, supplyEntryID, farmerID uuid.UUID, returned decimal.Decimal) *MemberLeftEvent {
	return &MemberLeftEvent{
		BaseDomainEvent:   shared.NewBaseDomainEvent(EventMemberLeft, "GroupListing", g.ID),
		SupplyEntryID:     supplyEntryID,
		FarmerID:          farmerID,
		ReturnedQuantity:  returned,
		RemainingQuantity: g.TotalQuantity,
	}
}

// BulkOrderAllocatedEvent is raised when a bulk order has been split across
// the listing's members
type BulkOrderAllocatedEvent struct {
	shared.BaseDomainEvent
	BuyerID           uuid.UUID       `json:"buyer_id"`
	RequestedQuantity decimal.Decimal `json:"requested_quantity"`
	Allocations       []Allocation    `json:"allocations"`
	RemainingQuantity decimal.Decimal `json:"remaining_quantity"`
}

// NewBulkOrderAllocatedEvent creates a bulk order allocated event
func NewBulkOrderAllocatedEvent(g *GroupListing, buyerID uuid.UUID, requested decimal.Decimal, allocations []Allocation) *BulkOrderAllocatedEvent {
	return &BulkOrderAllocatedEvent{
		BaseDomainEvent:   shared.NewBaseDomainEvent(EventBulkOrderAllocated, "GroupListing", g.ID),
		BuyerID:           buyerID,
		RequestedQuantity: requested,
		Allocations:       allocations,
		RemainingQuantity: g.TotalQuantity,
	}
}
