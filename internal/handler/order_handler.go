package handler

import (
	"net/http"

	"medi-kart/internal/model"
	"medi-kart/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// OrderHandler handles order-related HTTP requests.
type OrderHandler struct {
	service service.OrderService
	logger  zerolog.Logger
}

// NewOrderHandler creates a new order handler.
func NewOrderHandler(service service.OrderService, logger zerolog.Logger) *OrderHandler {
	return &OrderHandler{
		service: service,
		logger:  logger.With().Str("handler", "order").Logger(),
	}
}

// Place godoc
// @Summary Place an order
// @Description Builds the order from cartItems, or from the caller's cart when none are sent.
// @Tags orders
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param input body model.PlaceOrderRequest true "Order"
// @Success 201 {object} model.Response{data=model.Order}
// @Failure 400 {object} model.ErrorResponse
// @Failure 404 {object} model.ErrorResponse
// @Router /orders [post]
func (h *OrderHandler) Place(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	var req model.PlaceOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err, h.logger)
		return
	}

	order, err := h.service.Place(c.Request.Context(), p, &req)
	if err != nil {
		writeError(c, err, h.logger)
		return
	}

	writeData(c, http.StatusCreated, "Order placed successfully", order)
}

// ListMine godoc
// @Summary List the caller's orders
// @Tags orders
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.ListResponse{data=[]model.Order}
// @Router /orders [get]
func (h *OrderHandler) ListMine(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	orders, err := h.service.ListForUser(c.Request.Context(), p)
	if err != nil {
		writeError(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, model.ListResponse{Success: true, Count: len(orders), Data: orders})
}

// ListAll godoc
// @Summary List all orders
// @Tags orders
// @Produce json
// @Security BearerAuth
// @Param status query string false "Order status or all"
// @Param page query int false "Page (1-based)"
// @Param limit query int false "Page size"
// @Success 200 {object} model.ListResponse{data=[]model.Order}
// @Failure 400 {object} model.ErrorResponse
// @Failure 403 {object} model.ErrorResponse
// @Router /orders/all [get]
func (h *OrderHandler) ListAll(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	page, err := h.service.ListAll(c.Request.Context(), p, listQuery(c))
	if err != nil {
		writeError(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, model.ListResponse{
		Success: true,
		Count:   len(page.Orders),
		Total:   page.Total,
		Page:    page.Page,
		Pages:   page.Pages,
		Data:    page.Orders,
	})
}

// Get godoc
// @Summary Get an order
// @Tags orders
// @Produce json
// @Security BearerAuth
// @Param orderId path string true "Order ID"
// @Success 200 {object} model.Response{data=model.Order}
// @Failure 403 {object} model.ErrorResponse
// @Failure 404 {object} model.ErrorResponse
// @Router /orders/{orderId} [get]
func (h *OrderHandler) Get(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	order, err := h.service.Get(c.Request.Context(), p, c.Param("orderId"))
	if err != nil {
		writeError(c, err, h.logger)
		return
	}

	writeData(c, http.StatusOK, "", order)
}

// UpdateStatus godoc
// @Summary Update an order's status
// @Tags orders
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param orderId path string true "Order ID"
// @Param input body model.UpdateOrderStatusRequest true "New status"
// @Success 200 {object} model.Response{data=model.Order}
// @Failure 400 {object} model.ErrorResponse
// @Failure 403 {object} model.ErrorResponse
// @Router /orders/{orderId} [put]
func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	var req model.UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err, h.logger)
		return
	}

	order, err := h.service.UpdateStatus(c.Request.Context(), p, c.Param("orderId"), &req)
	if err != nil {
		writeError(c, err, h.logger)
		return
	}

	writeData(c, http.StatusOK, "Order status updated", order)
}

// Cancel godoc
// @Summary Cancel a pending order
// @Tags orders
// @Produce json
// @Security BearerAuth
// @Param orderId path string true "Order ID"
// @Success 200 {object} model.Response{data=model.Order}
// @Failure 400 {object} model.ErrorResponse
// @Failure 403 {object} model.ErrorResponse
// @Router /orders/{orderId} [patch]
func (h *OrderHandler) Cancel(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	order, err := h.service.Cancel(c.Request.Context(), p, c.Param("orderId"))
	if err != nil {
		writeError(c, err, h.logger)
		return
	}

	writeData(c, http.StatusOK, "Order cancelled successfully", order)
}
