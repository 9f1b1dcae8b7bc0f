package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"store-backend/internal/reviews"
	"store-backend/pkg/ctxmanage"
	"store-backend/pkg/logkey"

	"github.com/gin-gonic/gin"
)

func (h *Handler) ListReviews(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)

	list, err := h.r.ListReviews(c.Request.Context())
	if err != nil {
		slog.Error("error listing reviews", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "Failed to list reviews"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"reviews": list})
}

func (h *Handler) ListProductReviews(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	productID, ok := pathID(c)
	if !ok {
		return
	}

	list, err := h.r.ListByProduct(c.Request.Context(), productID)
	if err != nil {
		if errors.Is(err, reviews.ErrProductNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Product not found"})
			return
		}
		slog.Error("error listing product reviews", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.ERROR, err.Error()), slog.Int64("product_id", productID))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "Failed to list reviews"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"reviews": list})
}

func (h *Handler) CreateReview(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	claims, ok := requestClaims(c)
	if !ok {
		return
	}

	var nr reviews.NewReview
	if err := c.ShouldBindJSON(&nr); err != nil {
		slog.Error("json validation error", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": http.StatusText(http.StatusBadRequest)})
		return
	}
	if err := h.validate.Struct(nr); err != nil {
		slog.Error("validation failed", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": http.StatusText(http.StatusBadRequest)})
		return
	}

	review, err := h.r.CreateReview(c.Request.Context(), nr, claims.UserID)
	if err != nil {
		switch {
		case errors.Is(err, reviews.ErrProductNotFound):
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Product not found"})
		case errors.Is(err, reviews.ErrAlreadyReviewed):
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "You have already reviewed this product"})
		default:
			slog.Error("error creating review", slog.String(logkey.TraceID, traceId),
				slog.String(logkey.ERROR, err.Error()), slog.Int64("product_id", nr.ProductID))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "Failed to create review"})
		}
		return
	}
	c.JSON(http.StatusOK, review)
}

func (h *Handler) DeleteReview(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	reviewID, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.r.DeleteReview(c.Request.Context(), reviewID); err != nil {
		if errors.Is(err, reviews.ErrReviewNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Review not found"})
			return
		}
		slog.Error("error deleting review", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.ERROR, err.Error()), slog.Int64("review_id", reviewID))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "Failed to delete review"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Review deleted successfully"})
}
