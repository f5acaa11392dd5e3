package order

import (
	"github.com/agripool/backend/internal/domain/shared"
)

const EventStatusChanged = "order.status_changed"

// StatusChangedEvent is raised when a sub-order moves to a new status
type StatusChangedEvent struct {
	shared.BaseDomainEvent
	PreviousStatus Status `json:"previous_status"`
	NewStatus      Status `json:"new_status"`
}

// NewStatusChangedEvent creates a status changed event
func NewStatusChangedEvent(o *SubOrder, previous Status) *StatusChangedEvent {
	return &StatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventStatusChanged, "SubOrder", o.ID),
		PreviousStatus:  previous,
		NewStatus:       o.Status,
	}
}
