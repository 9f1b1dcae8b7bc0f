package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"store-backend/internal/wishlist"
	"store-backend/pkg/ctxmanage"
	"store-backend/pkg/logkey"

	"github.com/gin-gonic/gin"
)

func (h *Handler) GetWishlist(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	claims, ok := requestClaims(c)
	if !ok {
		return
	}

	w, err := h.w.GetOrCreateWishlist(c.Request.Context(), claims.UserID)
	if err != nil {
		slog.Error("error fetching wishlist", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.ERROR, err.Error()), slog.Int64(logkey.UserID, claims.UserID))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "Failed to fetch wishlist"})
		return
	}
	c.JSON(http.StatusOK, w)
}

func (h *Handler) AddToWishlist(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	claims, ok := requestClaims(c)
	if !ok {
		return
	}

	var request struct {
		ProductID int64 `json:"product_id"`
	}
	if err := c.ShouldBindJSON(&request); err != nil || request.ProductID <= 0 {
		slog.Error("invalid request body", slog.String(logkey.TraceID, traceId))
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
		return
	}

	item, err := h.w.AddProduct(c.Request.Context(), claims.UserID, request.ProductID)
	if err != nil {
		if errors.Is(err, wishlist.ErrProductNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"message": "Product not found"})
			return
		}
		slog.Error("error adding product to wishlist", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.ERROR, err.Error()), slog.Int64("product_id", request.ProductID))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "Failed to add product to wishlist"})
		return
	}
	c.JSON(http.StatusOK, item)
}

func (h *Handler) RemoveWishlistItem(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	claims, ok := requestClaims(c)
	if !ok {
		return
	}
	itemID, ok := pathID(c)
	if !ok {
		return
	}

	item, err := h.w.RemoveItem(c.Request.Context(), claims.UserID, itemID)
	if err != nil {
		if errors.Is(err, wishlist.ErrItemNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"message": "Wishlist item not found"})
			return
		}
		slog.Error("error removing wishlist item", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.ERROR, err.Error()), slog.Int64("item_id", itemID))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "Failed to remove wishlist item"})
		return
	}
	c.JSON(http.StatusOK, item)
}

func (h *Handler) ClearWishlist(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	claims, ok := requestClaims(c)
	if !ok {
		return
	}

	if err := h.w.Clear(c.Request.Context(), claims.UserID); err != nil {
		if errors.Is(err, wishlist.ErrNoActiveItems) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"message": "No active items in wishlist"})
			return
		}
		slog.Error("error clearing wishlist", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.ERROR, err.Error()), slog.Int64(logkey.UserID, claims.UserID))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "Failed to clear wishlist"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "Wishlist cleared successfully"})
}

func (h *Handler) WishlistCount(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	claims, ok := requestClaims(c)
	if !ok {
		return
	}

	count, err := h.w.ItemsCount(c.Request.Context(), claims.UserID)
	if err != nil {
		slog.Error("error counting wishlist items", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.ERROR, err.Error()), slog.Int64(logkey.UserID, claims.UserID))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "Failed to count wishlist items"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": count})
}
