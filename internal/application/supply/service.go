package supply

import (
	"context"

	"github.com/agripool/backend/internal/domain/shared"
	"github.com/agripool/backend/internal/domain/supply"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service handles the supply entry inventory: farmers offering, editing and
// withdrawing crop quantities. Entries pooled into a group listing are locked
// here and can only change through the pooling service.
type Service struct {
	repo   supply.SupplyEntryRepository
	logger *zap.Logger
}

// NewService creates a new supply Service
func NewService(repo supply.SupplyEntryRepository, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, logger: logger}
}

// Create offers a new supply entry owned by the farmer
func (s *Service) Create(ctx context.Context, farmerID uuid.UUID, req CreateSupplyEntryRequest) (*SupplyEntryResponse, error) {
	entry, err := supply.NewSupplyEntry(farmerID, req.CropName, req.Location, req.QuantityKg, req.PricePerKg, req.HarvestDate)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, entry); err != nil {
		return nil, err
	}

	s.logger.Info("supply entry created",
		zap.String("supply_entry_id", entry.ID.String()),
		zap.String("farmer_id", farmerID.String()),
		zap.String("crop_name", entry.CropName))

	return NewSupplyEntryResponse(entry), nil
}

// Get returns one supply entry
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*SupplyEntryResponse, error) {
	entry, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return NewSupplyEntryResponse(entry), nil
}

// ListAll returns the marketplace view of supply entries
func (s *Service) ListAll(ctx context.Context, filter shared.Filter) ([]SupplyEntryResponse, error) {
	entries, err := s.repo.FindAll(ctx, filter)
	if err != nil {
		return nil, err
	}
	return toResponses(entries), nil
}

// ListMine returns the supply entries owned by the farmer
func (s *Service) ListMine(ctx context.Context, farmerID uuid.UUID, filter shared.Filter) ([]SupplyEntryResponse, error) {
	entries, err := s.repo.FindByFarmer(ctx, farmerID, filter)
	if err != nil {
		return nil, err
	}
	return toResponses(entries), nil
}

// Update edits an entry's offer details. Pooled entries are rejected; they
// must leave their group listing first.
func (s *Service) Update(ctx context.Context, farmerID, id uuid.UUID, req UpdateSupplyEntryRequest) (*SupplyEntryResponse, error) {
	entry, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !entry.IsOwnedBy(farmerID) {
		return nil, shared.ErrForbidden
	}

	if err := entry.Update(req.CropName, req.Location, req.QuantityKg, req.PricePerKg, req.HarvestDate); err != nil {
		return nil, err
	}
	if err := s.repo.SaveWithLock(ctx, entry); err != nil {
		return nil, err
	}

	return NewSupplyEntryResponse(entry), nil
}

// Delete removes an entry. Pooled entries are rejected.
func (s *Service) Delete(ctx context.Context, farmerID, id uuid.UUID) error {
	entry, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if !entry.IsOwnedBy(farmerID) {
		return shared.ErrForbidden
	}
	if !entry.CanDelete() {
		return shared.NewDomainError("INVALID_STATE", "Cannot delete a supply entry while it is pooled in a group listing")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info("supply entry deleted",
		zap.String("supply_entry_id", id.String()),
		zap.String("farmer_id", farmerID.String()))

	return nil
}

func toResponses(entries []supply.SupplyEntry) []SupplyEntryResponse {
	out := make([]SupplyEntryResponse, len(entries))
	for i := range entries {
		out[i] = *NewSupplyEntryResponse(&entries[i])
	}
	return out
}
