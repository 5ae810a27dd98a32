package api

import (
	"errors"
	"net/http"

	"order-assistant/internal/apperr"
	"order-assistant/internal/service"

	"github.com/gin-gonic/gin"
)

// getCart returns the session cart
func (h *Handler) getCart(c *gin.Context) {
	cart := h.cartService.GetCart(c.Request.Context(), c.Param("tenantID"), c.Param("sessionID"))
	c.JSON(http.StatusOK, cart)
}

// getCartSummary returns the display projection, plus a ready-made chat text
func (h *Handler) getCartSummary(c *gin.Context) {
	summary := h.cartService.GetSummary(c.Request.Context(), c.Param("tenantID"), c.Param("sessionID"))
	c.JSON(http.StatusOK, gin.H{
		"summary": summary,
		"text":    summary.String(),
	})
}

// clearCart drops the session cart
func (h *Handler) clearCart(c *gin.Context) {
	cleared := h.cartService.ClearCart(c.Request.Context(), c.Param("tenantID"), c.Param("sessionID"))
	c.JSON(http.StatusOK, gin.H{"cleared": cleared})
}

// addItem handles adding an item to the cart
func (h *Handler) addItem(c *gin.Context) {
	var req service.AddItemRequest
	if err := bindJSON(c, &req); err != nil {
		h.writeError(c, err)
		return
	}

	item, err := h.cartService.AddItem(c.Request.Context(), c.Param("tenantID"), c.Param("sessionID"), &req)
	if err != nil {
		h.writeError(c, err)
		return
	}

	cart := h.cartService.GetCart(c.Request.Context(), c.Param("tenantID"), c.Param("sessionID"))
	c.JSON(http.StatusCreated, gin.H{
		"item": item,
		"cart": cart,
	})
}

// removeItem handles removing an item from the cart
func (h *Handler) removeItem(c *gin.Context) {
	cart, err := h.cartService.RemoveItem(c.Request.Context(), c.Param("tenantID"), c.Param("sessionID"), c.Param("itemID"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

// updateItem handles changing the quantity of a cart item
func (h *Handler) updateItem(c *gin.Context) {
	var req service.UpdateQuantityRequest
	if err := bindJSON(c, &req); err != nil {
		h.writeError(c, err)
		return
	}

	item, err := h.cartService.UpdateItemQuantity(c.Request.Context(), c.Param("tenantID"), c.Param("sessionID"), c.Param("itemID"), req.Quantity)
	if err != nil {
		h.writeError(c, err)
		return
	}

	cart := h.cartService.GetCart(c.Request.Context(), c.Param("tenantID"), c.Param("sessionID"))
	c.JSON(http.StatusOK, gin.H{
		"item": item,
		"cart": cart,
	})
}

// checkout runs the order creation pipeline for the session
func (h *Handler) checkout(c *gin.Context) {
	var req service.CheckoutRequest
	if err := bindJSON(c, &req); err != nil {
		h.writeError(c, err)
		return
	}

	result, err := h.checkoutService.Checkout(c.Request.Context(), c.Param("tenantID"), c.Param("sessionID"), &req)
	if err != nil {
		var appErr *apperr.Error
		if result != nil && errors.As(err, &appErr) {
			c.JSON(statusFor(appErr), result)
			return
		}
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

// getHours reports whether the establishment is open now
func (h *Handler) getHours(c *gin.Context) {
	status, err := h.hoursService.Check(c.Request.Context(), c.Param("tenantID"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

// getOrder handles get order by ID
func (h *Handler) getOrder(c *gin.Context) {
	details, err := h.orderService.GetOrder(c.Request.Context(), c.Param("tenantID"), c.Param("orderID"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, details)
}
