package order

import (
	"strings"
	"time"

	"github.com/agripool/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status represents the lifecycle state of a sub-order
type Status string

const (
	StatusPending   Status = "pending"
	StatusAccepted  Status = "accepted"
	StatusRejected  Status = "rejected"
	StatusShipped   Status = "shipped"
	StatusDelivered Status = "delivered"
)

// statusTransitions maps each state to the states it may move to
var statusTransitions = map[Status][]Status{
	StatusPending:   {StatusAccepted, StatusRejected},
	StatusAccepted:  {StatusShipped},
	StatusShipped:   {StatusDelivered},
	StatusRejected:  {},
	StatusDelivered: {},
}

// IsValid returns true for a known status value
func (s Status) IsValid() bool {
	_, ok := statusTransitions[s]
	return ok
}

// CanTransitionTo returns true if the status may move to next
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range statusTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal returns true when no further transitions are possible
func (s Status) IsTerminal() bool {
	return len(statusTransitions[s]) == 0
}

// Role names used for order status gating
const (
	RoleFarmer = "farmer"
	RoleBuyer  = "buyer"
)

// RequiredRole returns the role allowed to drive an order into next. The
// farmer side accepts, rejects and ships; the buyer confirms delivery.
func RequiredRole(next Status) string {
	if next == StatusDelivered {
		return RoleBuyer
	}
	return RoleFarmer
}

// SubOrder is one farmer's slice of an order. A bulk order against a group
// listing fans out into one sub-order per allocated member; a direct purchase
// of a single supply entry produces one sub-order with no listing reference.
// Each sub-order moves through its status lifecycle independently.
type SubOrder struct {
	shared.BaseAggregateRoot
	GroupListingID *uuid.UUID      `gorm:"type:uuid;index"` // Nil for direct orders
	SupplyEntryID  uuid.UUID       `gorm:"type:uuid;not null;index"`
	BuyerID        uuid.UUID       `gorm:"type:uuid;not null;index"`
	FarmerID       uuid.UUID       `gorm:"type:uuid;not null;index"`
	CropName       string          `gorm:"size:255;not null"`
	Location       string          `gorm:"size:255;not null"`
	Quantity       decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	PricePerKg     decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	TotalPrice     decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Status         Status          `gorm:"size:32;not null;default:'pending'"`
}

// TableName returns the table name for GORM
func (SubOrder) TableName() string {
	return "sub_orders"
}

// NewSubOrder creates a pending sub-order for one allocated share of a bulk
// order. The total price is derived from quantity and the listing's snapshot
// price.
func NewSubOrder(groupListingID, supplyEntryID, buyerID, farmerID uuid.UUID, cropName, location string, quantity, pricePerKg decimal.Decimal) (*SubOrder, error) {
	if groupListingID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_REFERENCE", "Sub-order must reference a group listing")
	}
	o, err := NewDirectSubOrder(supplyEntryID, buyerID, farmerID, cropName, location, quantity, pricePerKg)
	if err != nil {
		return nil, err
	}
	o.GroupListingID = &groupListingID
	return o, nil
}

// NewDirectSubOrder creates a pending sub-order for a direct purchase of a
// single supply entry, outside any group listing.
func NewDirectSubOrder(supplyEntryID, buyerID, farmerID uuid.UUID, cropName, location string, quantity, pricePerKg decimal.Decimal) (*SubOrder, error) {
	if supplyEntryID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_REFERENCE", "Sub-order must reference a supply entry")
	}
	if buyerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_BUYER", "Buyer ID cannot be empty")
	}
	if farmerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_FARMER", "Farmer ID cannot be empty")
	}
	if strings.TrimSpace(cropName) == "" {
		return nil, shared.NewDomainError("INVALID_CROP", "Crop name cannot be empty")
	}
	if quantity.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	if pricePerKg.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_PRICE", "Price per kg must be positive")
	}

	return &SubOrder{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		SupplyEntryID:     supplyEntryID,
		BuyerID:           buyerID,
		FarmerID:          farmerID,
		CropName:          strings.TrimSpace(cropName),
		Location:          strings.TrimSpace(location),
		Quantity:          quantity,
		PricePerKg:        pricePerKg,
		TotalPrice:        quantity.Mul(pricePerKg),
		Status:            StatusPending,
	}, nil
}

// TransitionTo moves the order to the next status if the lifecycle allows it
func (o *SubOrder) TransitionTo(next Status) error {
	if !next.IsValid() {
		return shared.NewDomainError("INVALID_STATUS", "Unknown order status")
	}
	if !o.Status.CanTransitionTo(next) {
		return shared.NewDomainError("INVALID_STATE", "Order cannot move from "+string(o.Status)+" to "+string(next))
	}

	previous := o.Status
	o.Status = next
	o.UpdatedAt = time.Now()
	o.IncrementVersion()

	o.AddDomainEvent(NewStatusChangedEvent(o, previous))

	return nil
}

// BelongsToBuyer returns true if the order was placed by the given buyer
func (o *SubOrder) BelongsToBuyer(buyerID uuid.UUID) bool {
	return o.BuyerID == buyerID
}

// BelongsToFarmer returns true if the order is fulfilled by the given farmer
func (o *SubOrder) BelongsToFarmer(farmerID uuid.UUID) bool {
	return o.FarmerID == farmerID
}
