package pooling

import (
	"time"

	"github.com/agripool/backend/internal/domain/grouplisting"
	"github.com/agripool/backend/internal/domain/order"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// JoinGroupRequest pools a farmer's supply entry into the listing matching
// its crop and location
type JoinGroupRequest struct {
	SupplyEntryID uuid.UUID `json:"supply_entry_id" binding:"required"`
}

// LeaveGroupRequest withdraws a supply entry from its group listing
type LeaveGroupRequest struct {
	SupplyEntryID uuid.UUID `json:"supply_entry_id" binding:"required"`
}

// PlaceBulkOrderRequest orders a quantity from a group listing's pooled supply
type PlaceBulkOrderRequest struct {
	GroupListingID uuid.UUID       `json:"group_listing_id" binding:"required"`
	QuantityKg     decimal.Decimal `json:"quantity_kg" binding:"required"`
}

// MemberResponse is one membership inside a group listing
type MemberResponse struct {
	SupplyEntryID       uuid.UUID       `json:"supply_entry_id"`
	FarmerID            uuid.UUID       `json:"farmer_id"`
	ContributedQuantity decimal.Decimal `json:"contributed_quantity"`
	Position            int             `json:"position"`
}

// GroupListingResponse is the API representation of a group listing
type GroupListingResponse struct {
	ID            uuid.UUID        `json:"id"`
	CropName      string           `json:"crop_name"`
	Location      string           `json:"location"`
	PricePerKg    decimal.Decimal  `json:"price_per_kg"`
	TotalQuantity decimal.Decimal  `json:"total_quantity"`
	Active        bool             `json:"active"`
	MemberCount   int              `json:"member_count"`
	Members       []MemberResponse `json:"members"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

// NewGroupListingResponse converts a group listing aggregate to its response
func NewGroupListingResponse(g *grouplisting.GroupListing) *GroupListingResponse {
	members := make([]MemberResponse, len(g.Members))
	for i, m := range g.Members {
		members[i] = MemberResponse{
			SupplyEntryID:       m.SupplyEntryID,
			FarmerID:            m.FarmerID,
			ContributedQuantity: m.ContributedQuantity,
			Position:            m.Position,
		}
	}
	return &GroupListingResponse{
		ID:            g.ID,
		CropName:      g.CropName,
		Location:      g.Location,
		PricePerKg:    g.PricePerKg,
		TotalQuantity: g.TotalQuantity,
		Active:        g.Active,
		MemberCount:   len(g.Members),
		Members:       members,
		CreatedAt:     g.CreatedAt,
		UpdatedAt:     g.UpdatedAt,
	}
}

// SubOrderSummary is one farmer's slice of a placed bulk order
type SubOrderSummary struct {
	ID            uuid.UUID       `json:"id"`
	SupplyEntryID uuid.UUID       `json:"supply_entry_id"`
	FarmerID      uuid.UUID       `json:"farmer_id"`
	QuantityKg    decimal.Decimal `json:"quantity_kg"`
	PricePerKg    decimal.Decimal `json:"price_per_kg"`
	TotalPrice    decimal.Decimal `json:"total_price"`
	Status        order.Status    `json:"status"`
}

// BulkOrderResponse is the result of placing a bulk order against a listing
type BulkOrderResponse struct {
	GroupListingID    uuid.UUID         `json:"group_listing_id"`
	BuyerID           uuid.UUID         `json:"buyer_id"`
	RequestedQuantity decimal.Decimal   `json:"requested_quantity"`
	TotalPrice        decimal.Decimal   `json:"total_price"`
	RemainingQuantity decimal.Decimal   `json:"remaining_quantity"`
	SubOrders         []SubOrderSummary `json:"sub_orders"`
}

// NewBulkOrderResponse builds the response for a completed bulk order
func NewBulkOrderResponse(listing *grouplisting.GroupListing, buyerID uuid.UUID, requested decimal.Decimal, subOrders []*order.SubOrder) *BulkOrderResponse {
	summaries := make([]SubOrderSummary, len(subOrders))
	total := decimal.Zero
	for i, o := range subOrders {
		summaries[i] = SubOrderSummary{
			ID:            o.ID,
			SupplyEntryID: o.SupplyEntryID,
			FarmerID:      o.FarmerID,
			QuantityKg:    o.Quantity,
			PricePerKg:    o.PricePerKg,
			TotalPrice:    o.TotalPrice,
			Status:        o.Status,
		}
		total = total.Add(o.TotalPrice)
	}
	return &BulkOrderResponse{
		GroupListingID:    listing.ID,
		BuyerID:           buyerID,
		RequestedQuantity: requested,
		TotalPrice:        total,
		RemainingQuantity: listing.TotalQuantity,
		SubOrders:         summaries,
	}
}
