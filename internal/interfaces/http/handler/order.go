package handler

import (
	"github.com/gin-gonic/gin"

	apporder "github.com/agripool/backend/internal/application/order"
	"github.com/agripool/backend/internal/domain/order"
	"github.com/agripool/backend/internal/infrastructure/auth"
	"github.com/agripool/backend/internal/interfaces/http/middleware"
)

// OrderHandler handles sub-order API endpoints
type OrderHandler struct {
	BaseHandler
	service *apporder.Service
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(service *apporder.Service) *OrderHandler {
	return &OrderHandler{service: service}
}

// PlaceDirect buys directly from a single unpooled supply entry
func (h *OrderHandler) PlaceDirect(c *gin.Context) {
	buyerID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	var req apporder.PlaceDirectOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	resp, err := h.service.PlaceDirectOrder(c.Request.Context(), buyerID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, resp)
}

// List returns the caller's orders. Buyers see orders they placed, farmers
// see orders received against their supply entries.
func (h *OrderHandler) List(c *gin.Context) {
	actorID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	filter, err := bindListFilter(c)
	if err != nil {
		h.BadRequest(c, "Invalid pagination parameters")
		return
	}
	if status := c.Query("status"); status != "" {
		if !order.Status(status).IsValid() {
			h.BadRequest(c, "Unknown order status")
			return
		}
		filter.Filters["status"] = status
	}

	switch middleware.GetJWTRole(c) {
	case auth.RoleBuyer:
		result, err := h.service.ListBuyerOrders(c.Request.Context(), actorID, filter)
		if err != nil {
			h.HandleError(c, err)
			return
		}
		h.SuccessWithMeta(c, result.Items, result.Total, result.Page, result.PageSize)
	case auth.RoleFarmer:
		result, err := h.service.ListFarmerOrders(c.Request.Context(), actorID, filter)
		if err != nil {
			h.HandleError(c, err)
			return
		}
		h.SuccessWithMeta(c, result.Items, result.Total, result.Page, result.PageSize)
	default:
		h.Forbidden(c, "Unknown role")
	}
}

// Get returns one sub-order visible to the caller
func (h *OrderHandler) Get(c *gin.Context) {
	actorID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	id, ok := parseIDParam(c)
	if !ok {
		h.BadRequest(c, "Invalid order ID")
		return
	}

	resp, err := h.service.Get(c.Request.Context(), actorID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, resp)
}

// UpdateStatus moves a sub-order to its next lifecycle state
func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	actorID, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Authentication required")
		return
	}

	id, ok := parseIDParam(c)
	if !ok {
		h.BadRequest(c, "Invalid order ID")
		return
	}

	var req apporder.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	role := middleware.GetJWTRole(c)

	resp, err := h.service.UpdateStatus(c.Request.Context(), actorID, role, id, req.Status)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, resp)
}

// RegisterRoutes registers sub-order routes
func (h *OrderHandler) RegisterRoutes(rg *gin.RouterGroup) {
	orders := rg.Group("/orders")
	{
		orders.GET("", h.List)
		orders.GET("/:id", h.Get)
		orders.POST("", middleware.RequireBuyer(), h.PlaceDirect)
		orders.PUT("/:id/status", h.UpdateStatus)
	}
}
