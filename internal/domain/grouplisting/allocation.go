package grouplisting

import (
	"time"

	"github.com/agripool/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Allocation is one member's share of a bulk order
type Allocation struct {
	SupplyEntryID uuid.UUID       `json:"supply_entry_id"`
	FarmerID      uuid.UUID       `json:"farmer_id"`
	Quantity      decimal.Decimal `json:"quantity"`
	PricePerKg    decimal.Decimal `json:"price_per_kg"`
}

// AllocationService splits a bulk order across the members of a group listing.
// It is a pure domain service: it holds no state and mutates only the
// aggregate passed in, leaving persistence and transactions to the caller.
type AllocationService struct{}

// NewAllocationService creates a new allocation service
func NewAllocationService() *AllocationService {
	return &AllocationService{}
}

// Allocate splits the requested quantity across the listing's members in join
// order. Every member ahead of the terminal absorber gets the floor of its
// proportional share, capped at its contribution and at what is still
// unassigned. The last member with a positive contribution absorbs whatever
// remains, so the shares always sum exactly to the requested quantity.
//
// On success the member contributions and the listing total are decremented
// and the computed allocations are returned. On any error the listing is left
// untouched.
func (s *AllocationService) Allocate(listing *GroupListing, buyerID uuid.UUID, requested decimal.Decimal) ([]Allocation, error) {
	if buyerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_BUYER", "Buyer ID cannot be empty")
	}
	if requested.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Requested quantity must be positive")
	}
	if !listing.Active {
		return nil, shared.NewDomainError("INVALID_STATE", "Group listing is not active")
	}
	if requested.GreaterThan(listing.TotalQuantity) {
		return nil, shared.ErrInsufficientQuantity
	}
	if err := listing.CheckInvariant(); err != nil {
		return nil, err
	}

	allocations, err := s.plan(listing, requested)
	if err != nil {
		return nil, err
	}

	s.apply(listing, allocations)
	listing.AddDomainEvent(NewBulkOrderAllocatedEvent(listing, buyerID, requested, allocations))

	return allocations, nil
}

// plan computes the per-member shares without touching the aggregate
func (s *AllocationService) plan(listing *GroupListing, requested decimal.Decimal) ([]Allocation, error) {
	total := listing.TotalQuantity

	// The terminal absorber is the last member still holding any quantity.
	absorber := -1
	for i := range listing.Members {
		if listing.Members[i].ContributedQuantity.IsPositive() {
			absorber = i
		}
	}
	if absorber < 0 {
		return nil, shared.ErrInsufficientQuantity
	}

	remaining := requested
	allocations := make([]Allocation, 0, len(listing.Members))

	for i := range listing.Members {
		if remaining.IsZero() {
			break
		}
		member := &listing.Members[i]
		contribution := member.ContributedQuantity
		if !contribution.IsPositive() {
			continue
		}

		var amount decimal.Decimal
		if i == absorber {
			amount = remaining
			if amount.GreaterThan(contribution) {
				// The proportional shares left more behind than the
				// absorber holds. Total and members disagree.
				return nil, shared.ErrConsistencyViolation
			}
		} else {
			amount = contribution.Div(total).Mul(requested).Floor()
			if amount.GreaterThan(remaining) {
				amount = remaining
			}
			if amount.GreaterThan(contribution) {
				amount = contribution
			}
		}
		if !amount.IsPositive() {
			continue
		}

		remaining = remaining.Sub(amount)
		allocations = append(allocations, Allocation{
			SupplyEntryID: member.SupplyEntryID,
			FarmerID:      member.FarmerID,
			Quantity:      amount,
			PricePerKg:    listing.PricePerKg,
		})
	}

	if !remaining.IsZero() {
		return nil, shared.ErrConsistencyViolation
	}

	return allocations, nil
}

// apply decrements the member contributions by their planned shares
func (s *AllocationService) apply(listing *GroupListing, allocations []Allocation) {
	now := time.Now()
	for _, alloc := range allocations {
		member := listing.MemberBySupplyEntry(alloc.SupplyEntryID)
		member.ContributedQuantity = member.ContributedQuantity.Sub(alloc.Quantity)
		member.UpdatedAt = now
	}
	listing.recomputeTotal()
	listing.UpdatedAt = now
	listing.IncrementVersion()
}
