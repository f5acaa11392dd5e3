package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	appsupply "github.com/agripool/backend/internal/application/supply"
	"github.com/agripool/backend/internal/interfaces/http/middleware"
)

// SupplyEntryHandler handles supply entry API endpoints
type SupplyEntryHandler struct {
	BaseHandler
	service *appsupply.Service
}

// NewSupplyEntryHandler creates a new SupplyEntryHandler
func NewSupplyEntryHandler(service *appsupply.Service) *SupplyEntryHandler {
	return &SupplyEntryHandler{service: service}
}

// List returns the marketplace view of supply entries
func (h *SupplyEntryHandler) List(c *gin.Context) {
	filter, err := bindListFilter(c)
	if err != nil {
		h.BadRequest(c, "Invalid pagination parameters")
		return
	}

	if crop := c.Query("crop_name"); crop != "" {
		filter.Filters["crop_name"] = crop
	}
	if location := c.Query("location"); location != "" {
		filter.Filters["location"] = location
	}
	if pooled := c.Query("pooled"); pooled != "" {
		value, err := strconv.ParseBool(pooled)
		if err != nil {
			h.BadRequest(c, "Invalid pooled parameter")
			return
		}
		filter.Filters["pooled"] = value
	}

	entries, err := h.service.ListAll(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, entries)
}

// ListMine returns the caller's own supply entries
func (h *SupplyEntryHandler) ListMine(c *gin.Context) {
	farmerID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	filter, err := bindListFilter(c)
	if err != nil {
		h.BadRequest(c, "Invalid pagination parameters")
		return
	}

	entries, err := h.service.ListMine(c.Request.Context(), farmerID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, entries)
}

// Get returns one supply entry by ID
func (h *SupplyEntryHandler) Get(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		h.BadRequest(c, "Invalid supply entry ID")
		return
	}

	entry, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, entry)
}

// Create registers a new supply entry for the calling farmer
func (h *SupplyEntryHandler) Create(c *gin.Context) {
	farmerID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var req appsupply.CreateSupplyEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	entry, err := h.service.Create(c.Request.Context(), farmerID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, entry)
}

// Update edits an unpooled supply entry owned by the caller
func (h *SupplyEntryHandler) Update(c *gin.Context) {
	farmerID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	id, ok := parseIDParam(c)
	if !ok {
		h.BadRequest(c, "Invalid supply entry ID")
		return
	}

	var req appsupply.UpdateSupplyEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	entry, err := h.service.Update(c.Request.Context(), farmerID, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, entry)
}

// Delete removes an unpooled supply entry owned by the caller
func (h *SupplyEntryHandler) Delete(c *gin.Context) {
	farmerID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	id, ok := parseIDParam(c)
	if !ok {
		h.BadRequest(c, "Invalid supply entry ID")
		return
	}

	if err := h.service.Delete(c.Request.Context(), farmerID, id); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}

// RegisterRoutes registers supply entry routes
func (h *SupplyEntryHandler) RegisterRoutes(rg *gin.RouterGroup) {
	entries := rg.Group("/supply-entries")
	{
		entries.GET("", h.List)
		entries.GET("/mine", middleware.RequireFarmer(), h.ListMine)
		entries.GET("/:id", h.Get)
		entries.POST("", middleware.RequireFarmer(), h.Create)
		entries.PUT("/:id", middleware.RequireFarmer(), h.Update)
		entries.DELETE("/:id", middleware.RequireFarmer(), h.Delete)
	}
}
