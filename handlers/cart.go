package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"store-backend/internal/cart"
	"store-backend/pkg/ctxmanage"
	"store-backend/pkg/logkey"

	"github.com/gin-gonic/gin"
)

// GetCart returns the caller's active cart, creating it on first access.
func (h *Handler) GetCart(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	claims, ok := requestClaims(c)
	if !ok {
		return
	}

	userCart, err := h.c.GetOrCreateCart(c.Request.Context(), claims.UserID)
	if err != nil {
		slog.Error("error fetching cart", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.ERROR, err.Error()), slog.Int64(logkey.UserID, claims.UserID))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "Failed to fetch cart"})
		return
	}

	c.JSON(http.StatusOK, userCart)
}

func (h *Handler) AddToCart(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	claims, ok := requestClaims(c)
	if !ok {
		return
	}

	var request struct {
		ProductID int64 `json:"product_id"`
		Quantity  int   `json:"quantity"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		slog.Error("invalid request body", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
		return
	}

	if request.ProductID <= 0 || request.Quantity <= 0 {
		slog.Error("invalid product ID or quantity", slog.String(logkey.TraceID, traceId))
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "Product ID and quantity must be valid"})
		return
	}

	item, err := h.c.AddItem(c.Request.Context(), claims.UserID, request.ProductID, request.Quantity)
	if err != nil {
		if errors.Is(err, cart.ErrProductNotFound) {
			slog.Error("product not found", slog.String(logkey.TraceID, traceId), slog.Int64("product_id", request.ProductID))
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"message": "Product not found"})
			return
		}
		slog.Error("error adding product to cart", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.ERROR, err.Error()), slog.Int64("product_id", request.ProductID))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "Failed to add product to cart"})
		return
	}

	slog.Info("product added to cart", slog.String(logkey.TraceID, traceId),
		slog.Int64("product_id", request.ProductID), slog.Int("quantity", request.Quantity),
		slog.Int64(logkey.UserID, claims.UserID))

	c.JSON(http.StatusOK, item)
}

func (h *Handler) UpdateCartItem(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	claims, ok := requestClaims(c)
	if !ok {
		return
	}
	itemID, ok := pathID(c)
	if !ok {
		return
	}

	var request struct {
		Delta int `json:"delta"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		slog.Error("invalid request body", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
		return
	}

	item, err := h.c.UpdateItemQuantity(c.Request.Context(), claims.UserID, itemID, request.Delta)
	if err != nil {
		switch {
		case errors.Is(err, cart.ErrItemNotFound):
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"message": "Cart item not found"})
		case errors.Is(err, cart.ErrNegativeQuantity):
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "Quantity cannot drop below zero"})
		default:
			slog.Error("error updating cart item", slog.String(logkey.TraceID, traceId),
				slog.String(logkey.ERROR, err.Error()), slog.Int64("item_id", itemID))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "Failed to update cart item"})
		}
		return
	}

	c.JSON(http.StatusOK, item)
}

func (h *Handler) RemoveCartItem(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	claims, ok := requestClaims(c)
	if !ok {
		return
	}
	itemID, ok := pathID(c)
	if !ok {
		return
	}

	item, err := h.c.RemoveItem(c.Request.Context(), claims.UserID, itemID)
	if err != nil {
		if errors.Is(err, cart.ErrItemNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"message": "Cart item not found"})
			return
		}
		slog.Error("error removing cart item", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.ERROR, err.Error()), slog.Int64("item_id", itemID))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "Failed to remove cart item"})
		return
	}

	c.JSON(http.StatusOK, item)
}

func (h *Handler) ClearCart(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	claims, ok := requestClaims(c)
	if !ok {
		return
	}

	err := h.c.Clear(c.Request.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, cart.ErrNoActiveItems) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"message": "No active items in cart"})
			return
		}
		slog.Error("error clearing cart", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.ERROR, err.Error()), slog.Int64(logkey.UserID, claims.UserID))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "Failed to clear cart"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Cart cleared"})
}

func (h *Handler) CartSummary(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	claims, ok := requestClaims(c)
	if !ok {
		return
	}

	summary, err := h.c.Summary(c.Request.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, cart.ErrCartNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"message": "Cart not found"})
			return
		}
		slog.Error("error summarizing cart", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.ERROR, err.Error()), slog.Int64(logkey.UserID, claims.UserID))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "Failed to summarize cart"})
		return
	}

	c.JSON(http.StatusOK, summary)
}
