package handler

import (
	"net/http"

	"medi-kart/internal/model"
	"medi-kart/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// CartHandler handles requests against the caller's cart.
type CartHandler struct {
	service service.CartService
	logger  zerolog.Logger
}

// NewCartHandler creates a new cart handler.
func NewCartHandler(service service.CartService, logger zerolog.Logger) *CartHandler {
	return &CartHandler{
		service: service,
		logger:  logger.With().Str("handler", "cart").Logger(),
	}
}

// Get godoc
// @Summary Get the caller's cart
// @Tags cart
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.Response{data=model.CartResponse}
// @Router /cart [get]
func (h *CartHandler) Get(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	cart, err := h.service.Get(c.Request.Context(), p)
	h.respond(c, "", cart, err)
}

// AddItem godoc
// @Summary Add a medicine to the cart
// @Tags cart
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param input body model.AddCartItemRequest true "Item"
// @Success 200 {object} model.Response{data=model.CartResponse}
// @Failure 400 {object} model.ErrorResponse
// @Failure 404 {object} model.ErrorResponse
// @Router /cart [post]
func (h *CartHandler) AddItem(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	var req model.AddCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err, h.logger)
		return
	}

	cart, err := h.service.AddItem(c.Request.Context(), p, &req)
	h.respond(c, "Item added to cart", cart, err)
}

// UpdateItem godoc
// @Summary Change a cart line's quantity
// @Tags cart
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param itemId path string true "Cart item ID"
// @Param input body model.UpdateCartItemRequest true "Quantity"
// @Success 200 {object} model.Response{data=model.CartResponse}
// @Failure 400 {object} model.ErrorResponse
// @Failure 404 {object} model.ErrorResponse
// @Router /cart/{itemId} [put]
func (h *CartHandler) UpdateItem(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	var req model.UpdateCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err, h.logger)
		return
	}

	cart, err := h.service.UpdateItem(c.Request.Context(), p, c.Param("itemId"), req.Quantity)
	h.respond(c, "Cart updated", cart, err)
}

// RemoveItem godoc
// @Summary Remove a cart line
// @Tags cart
// @Produce json
// @Security BearerAuth
// @Param itemId path string true "Cart item ID"
// @Success 200 {object} model.Response{data=model.CartResponse}
// @Router /cart/{itemId} [delete]
func (h *CartHandler) RemoveItem(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	cart, err := h.service.RemoveItem(c.Request.Context(), p, c.Param("itemId"))
	h.respond(c, "Item removed from cart", cart, err)
}

// Clear godoc
// @Summary Empty the cart
// @Tags cart
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.Response{data=model.CartResponse}
// @Router /cart [delete]
func (h *CartHandler) Clear(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}

	cart, err := h.service.Clear(c.Request.Context(), p)
	h.respond(c, "Cart cleared", cart, err)
}

func (h *CartHandler) respond(c *gin.Context, message string, cart *model.CartResponse, err error) {
	if err != nil {
		writeError(c, err, h.logger)
		return
	}
	writeData(c, http.StatusOK, message, cart)
}
