package handler

import (
	"github.com/gin-gonic/gin"

	apppooling "github.com/agripool/backend/internal/application/pooling"
	"github.com/agripool/backend/internal/interfaces/http/middleware"
)

// IdempotencyKeyHeader carries the client-chosen key deduplicating bulk orders
const IdempotencyKeyHeader = "Idempotency-Key"

// GroupListingHandler handles group pooling API endpoints
type GroupListingHandler struct {
	BaseHandler
	service *apppooling.Service
}

// NewGroupListingHandler creates a new GroupListingHandler
func NewGroupListingHandler(service *apppooling.Service) *GroupListingHandler {
	return &GroupListingHandler{service: service}
}

// List returns active group listings with pooled quantity remaining
func (h *GroupListingHandler) List(c *gin.Context) {
	filter, err := bindListFilter(c)
	if err != nil {
		h.BadRequest(c, "Invalid pagination parameters")
		return
	}

	page, err := h.service.ListActiveGroups(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}

// ListMine returns the group listings the calling farmer is a member of
func (h *GroupListingHandler) ListMine(c *gin.Context) {
	farmerID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	groups, err := h.service.ListMyGroups(c.Request.Context(), farmerID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, groups)
}

// Get returns one group listing by ID
func (h *GroupListingHandler) Get(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		h.BadRequest(c, "Invalid group listing ID")
		return
	}

	group, err := h.service.GetGroup(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, group)
}

// Join pools the caller's supply entry into the listing matching its crop
// and location, creating the listing when none exists yet
func (h *GroupListingHandler) Join(c *gin.Context) {
	farmerID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var req apppooling.JoinGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	group, err := h.service.Join(c.Request.Context(), farmerID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, group)
}

// Leave withdraws the caller's supply entry from its group listing
func (h *GroupListingHandler) Leave(c *gin.Context) {
	farmerID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var req apppooling.LeaveGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	group, err := h.service.Leave(c.Request.Context(), farmerID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, group)
}

// PlaceBulkOrder splits an order across the listing's members in proportion
// to their contributed quantities
func (h *GroupListingHandler) PlaceBulkOrder(c *gin.Context) {
	buyerID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var req apppooling.PlaceBulkOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	idempotencyKey := c.GetHeader(IdempotencyKeyHeader)

	result, err := h.service.PlaceBulkOrder(c.Request.Context(), buyerID, req, idempotencyKey)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, result)
}

// RegisterRoutes registers group pooling routes
func (h *GroupListingHandler) RegisterRoutes(rg *gin.RouterGroup) {
	groups := rg.Group("/group-listings")
	{
		groups.GET("", h.List)
		groups.GET("/mine", middleware.RequireFarmer(), h.ListMine)
		groups.GET("/:id", h.Get)
		groups.POST("/join", middleware.RequireFarmer(), h.Join)
		groups.POST("/leave", middleware.RequireFarmer(), h.Leave)
	}

	rg.POST("/bulk-orders", middleware.RequireBuyer(), h.PlaceBulkOrder)
}
