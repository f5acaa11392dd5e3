package supply

import (
	"time"

	"github.com/agripool/backend/internal/domain/supply"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateSupplyEntryRequest offers a crop quantity on the marketplace
type CreateSupplyEntryRequest struct {
	CropName    string          `json:"crop_name" binding:"required"`
	Location    string          `json:"location" binding:"required"`
	QuantityKg  decimal.Decimal `json:"quantity_kg"`
	PricePerKg  decimal.Decimal `json:"price_per_kg" binding:"required"`
	HarvestDate *time.Time      `json:"harvest_date"`
}

// UpdateSupplyEntryRequest edits an unpooled supply entry
type UpdateSupplyEntryRequest struct {
	CropName    string          `json:"crop_name" binding:"required"`
	Location    string          `json:"location" binding:"required"`
	QuantityKg  decimal.Decimal `json:"quantity_kg"`
	PricePerKg  decimal.Decimal `json:"price_per_kg" binding:"required"`
	HarvestDate *time.Time      `json:"harvest_date"`
}

// SupplyEntryResponse is the API representation of a supply entry
type SupplyEntryResponse struct {
	ID          uuid.UUID       `json:"id"`
	FarmerID    uuid.UUID       `json:"farmer_id"`
	CropName    string          `json:"crop_name"`
	Location    string          `json:"location"`
	QuantityKg  decimal.Decimal `json:"quantity_kg"`
	PricePerKg  decimal.Decimal `json:"price_per_kg"`
	HarvestDate *time.Time      `json:"harvest_date,omitempty"`
	Pooled      bool            `json:"pooled"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// NewSupplyEntryResponse converts a supply entry to its response
func NewSupplyEntryResponse(e *supply.SupplyEntry) *SupplyEntryResponse {
	return &SupplyEntryResponse{
		ID:          e.ID,
		FarmerID:    e.FarmerID,
		CropName:    e.CropName,
		Location:    e.Location,
		QuantityKg:  e.AvailableQuantity,
		PricePerKg:  e.PricePerKg,
		HarvestDate: e.HarvestDate,
		Pooled:      e.Pooled,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}
