package supply

import (
	"time"

	"github.com/agripool/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SupplyEntry represents one farmer's individually offered quantity of a crop
// at a location. It is the aggregate root for the inventory ledger: allocation
// decrements flow through it and its available quantity can never go negative.
type SupplyEntry struct {
	shared.BaseAggregateRoot
	FarmerID          uuid.UUID       `gorm:"type:uuid;not null;index"`
	CropName          string          `gorm:"size:255;not null"`
	Location          string          `gorm:"size:255;not null"`
	AvailableQuantity decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"` // Quantity in kg still on offer
	PricePerKg        decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	HarvestDate       *time.Time
	Pooled            bool `gorm:"not null;default:false"` // True while the entry is a member of a group listing
}

// TableName returns the table name for GORM
func (SupplyEntry) TableName() string {
	return "supply_entries"
}

// NewSupplyEntry creates a new supply entry owned by a farmer
func NewSupplyEntry(farmerID uuid.UUID, cropName, location string, quantity, pricePerKg decimal.Decimal, harvestDate *time.Time) (*SupplyEntry, error) {
	if farmerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_FARMER", "Farmer ID cannot be empty")
	}
	if cropName == "" {
		return nil, shared.NewDomainError("INVALID_CROP", "Crop name cannot be empty")
	}
	if location == "" {
		return nil, shared.NewDomainError("INVALID_LOCATION", "Location cannot be empty")
	}
	if quantity.IsNegative() {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Quantity cannot be negative")
	}
	if pricePerKg.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_PRICE", "Price per kg must be positive")
	}

	return &SupplyEntry{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		FarmerID:          farmerID,
		CropName:          cropName,
		Location:          location,
		AvailableQuantity: quantity,
		PricePerKg:        pricePerKg,
		HarvestDate:       harvestDate,
	}, nil
}

// IsOwnedBy returns true if the entry belongs to the given farmer
func (e *SupplyEntry) IsOwnedBy(farmerID uuid.UUID) bool {
	return e.FarmerID == farmerID
}

// CanFulfill returns true if the available quantity covers the requested quantity
func (e *SupplyEntry) CanFulfill(quantity decimal.Decimal) bool {
	return e.AvailableQuantity.GreaterThanOrEqual(quantity)
}

// Decrement removes a fulfilled quantity from the entry. The quantity must be
// positive and must not exceed what is available.
func (e *SupplyEntry) Decrement(quantity decimal.Decimal) error {
	if quantity.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_QUANTITY", "Decrement quantity must be positive")
	}
	if e.AvailableQuantity.LessThan(quantity) {
		return shared.ErrInsufficientQuantity
	}

	e.AvailableQuantity = e.AvailableQuantity.Sub(quantity)
	e.UpdatedAt = time.Now()
	e.IncrementVersion()

	return nil
}

// MarkPooled flags the entry as a member of a group listing. While pooled the
// entry rejects direct edits and deletion; all quantity changes must flow
// through the pooling service.
func (e *SupplyEntry) MarkPooled() error {
	if e.Pooled {
		return shared.ErrAlreadyPooled
	}
	e.Pooled = true
	e.UpdatedAt = time.Now()
	e.IncrementVersion()
	return nil
}

// ClearPooled removes the pooled flag after the entry leaves its group listing
func (e *SupplyEntry) ClearPooled() error {
	if !e.Pooled {
		return shared.ErrNotInGroup
	}
	e.Pooled = false
	e.UpdatedAt = time.Now()
	e.IncrementVersion()
	return nil
}

// Update changes the offer details. Rejected while the entry is pooled.
func (e *SupplyEntry) Update(cropName, location string, quantity, pricePerKg decimal.Decimal, harvestDate *time.Time) error {
	if e.Pooled {
		return shared.NewDomainError("INVALID_STATE", "Cannot edit a supply entry while it is pooled in a group listing")
	}
	if cropName == "" {
		return shared.NewDomainError("INVALID_CROP", "Crop name cannot be empty")
	}
	if location == "" {
		return shared.NewDomainError("INVALID_LOCATION", "Location cannot be empty")
	}
	if quantity.IsNegative() {
		return shared.NewDomainError("INVALID_QUANTITY", "Quantity cannot be negative")
	}
	if pricePerKg.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_PRICE", "Price per kg must be positive")
	}

	e.CropName = cropName
	e.Location = location
	e.AvailableQuantity = quantity
	e.PricePerKg = pricePerKg
	e.HarvestDate = harvestDate
	e.UpdatedAt = time.Now()
	e.IncrementVersion()

	return nil
}

// CanDelete returns true when the entry may be removed. Pooled entries must
// leave their group listing first.
func (e *SupplyEntry) CanDelete() bool {
	return !e.Pooled
}
