package order

import (
	"time"

	"github.com/agripool/backend/internal/domain/order"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PlaceDirectOrderRequest buys a quantity straight from one supply entry,
// outside any group listing
type PlaceDirectOrderRequest struct {
	SupplyEntryID uuid.UUID       `json:"supply_entry_id" binding:"required"`
	QuantityKg    decimal.Decimal `json:"quantity_kg" binding:"required"`
}

// UpdateStatusRequest moves a sub-order to its next lifecycle state
type UpdateStatusRequest struct {
	Status order.Status `json:"status" binding:"required"`
}

// SubOrderResponse is the API representation of a sub-order
type SubOrderResponse struct {
	ID             uuid.UUID       `json:"id"`
	GroupListingID *uuid.UUID      `json:"group_listing_id,omitempty"`
	SupplyEntryID  uuid.UUID       `json:"supply_entry_id"`
	BuyerID        uuid.UUID       `json:"buyer_id"`
	FarmerID       uuid.UUID       `json:"farmer_id"`
	CropName       string          `json:"crop_name"`
	Location       string          `json:"location"`
	QuantityKg     decimal.Decimal `json:"quantity_kg"`
	PricePerKg     decimal.Decimal `json:"price_per_kg"`
	TotalPrice     decimal.Decimal `json:"total_price"`
	Status         order.Status    `json:"status"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// NewSubOrderResponse converts a sub-order to its response
func NewSubOrderResponse(o *order.SubOrder) *SubOrderResponse {
	return &SubOrderResponse{
		ID:             o.ID,
		GroupListingID: o.GroupListingID,
		SupplyEntryID:  o.SupplyEntryID,
		BuyerID:        o.BuyerID,
		FarmerID:       o.FarmerID,
		CropName:       o.CropName,
		Location:       o.Location,
		QuantityKg:     o.Quantity,
		PricePerKg:     o.PricePerKg,
		TotalPrice:     o.TotalPrice,
		Status:         o.Status,
		CreatedAt:      o.CreatedAt,
		UpdatedAt:      o.UpdatedAt,
	}
}
