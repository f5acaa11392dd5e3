package shared

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrNotFound             = NewDomainError("NOT_FOUND", "Resource not found")
	ErrInvalidInput         = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrUnauthorized         = NewDomainError("UNAUTHORIZED", "Not authorized to perform this action")
	ErrForbidden            = NewDomainError("FORBIDDEN", "Access to this resource is forbidden")
	ErrInvalidState         = NewDomainError("INVALID_STATE", "Operation not allowed in current state")
	ErrAlreadyPooled        = NewDomainError("ALREADY_POOLED", "Supply entry is already part of a group listing")
	ErrNotInGroup           = NewDomainError("NOT_IN_GROUP", "Supply entry is not part of any group listing")
	ErrInsufficientQuantity = NewDomainError("INSUFFICIENT_QUANTITY", "Insufficient quantity available")
	ErrConcurrencyConflict  = NewDomainError("CONCURRENCY_CONFLICT", "Resource was modified by another process")
	ErrConsistencyViolation = NewDomainError("CONSISTENCY_VIOLATION", "Aggregate state violates a core invariant")
)
