package persistence

import (
	"strings"
)

// ValidateSortOrder validates and normalizes the sort order to ASC or DESC.
// Returns "DESC" as the default if the input is invalid or empty.
func ValidateSortOrder(orderDir string) string {
	normalized := strings.ToUpper(strings.TrimSpace(orderDir))
	if normalized == "ASC" {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField validates the sort field against a whitelist of allowed fields.
// Returns the defaultField if the input is invalid, empty, or not in the whitelist.
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if trimmed == "" {
		return defaultField
	}
	if allowedFields[trimmed] {
		return trimmed
	}
	return defaultField
}

// SupplyEntrySortFields contains allowed sort fields for supply entries
var SupplyEntrySortFields = map[string]bool{
	"id":                 true,
	"created_at":         true,
	"updated_at":         true,
	"crop_name":          true,
	"location":           true,
	"available_quantity": true,
	"price_per_kg":       true,
	"harvest_date":       true,
}

// GroupListingSortFields contains allowed sort fields for group listings
var GroupListingSortFields = map[string]bool{
	"id":             true,
	"created_at":     true,
	"updated_at":     true,
	"crop_name":      true,
	"location":       true,
	"price_per_kg":   true,
	"total_quantity": true,
}

// SubOrderSortFields contains allowed sort fields for sub-orders
var SubOrderSortFields = map[string]bool{
	"id":          true,
	"created_at":  true,
	"updated_at":  true,
	"crop_name":   true,
	"status":      true,
	"quantity":    true,
	"total_price": true,
}
