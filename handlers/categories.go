package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"store-backend/internal/categories"
	"store-backend/pkg/ctxmanage"
	"store-backend/pkg/logkey"

	"github.com/gin-gonic/gin"
)

func (h *Handler) ListCategories(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)

	list, err := h.cat.ListCategories(c.Request.Context())
	if err != nil {
		slog.Error("error listing categories", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "Failed to list categories"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": list})
}

func (h *Handler) CreateCategory(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)

	var nc categories.NewCategory
	if err := c.ShouldBindJSON(&nc); err != nil {
		slog.Error("json validation error", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": http.StatusText(http.StatusBadRequest)})
		return
	}
	if err := h.validate.Struct(nc); err != nil {
		slog.Error("validation failed", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": http.StatusText(http.StatusBadRequest)})
		return
	}

	cat, err := h.cat.CreateCategory(c.Request.Context(), nc)
	if err != nil {
		if errors.Is(err, categories.ErrParentNotFound) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Parent category not found"})
			return
		}
		slog.Error("error creating category", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "Failed to create category"})
		return
	}
	c.JSON(http.StatusOK, cat)
}

func (h *Handler) UpdateCategory(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	categoryID, ok := pathID(c)
	if !ok {
		return
	}

	var nc categories.NewCategory
	if err := c.ShouldBindJSON(&nc); err != nil {
		slog.Error("json validation error", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": http.StatusText(http.StatusBadRequest)})
		return
	}

	cat, err := h.cat.UpdateCategory(c.Request.Context(), categoryID, nc)
	if err != nil {
		switch {
		case errors.Is(err, categories.ErrCategoryNotFound):
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Category not found"})
		case errors.Is(err, categories.ErrParentNotFound):
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Parent category not found"})
		case errors.Is(err, categories.ErrSelfParent):
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Category cannot be its own parent"})
		default:
			slog.Error("error updating category", slog.String(logkey.TraceID, traceId),
				slog.String(logkey.ERROR, err.Error()), slog.Int64("category_id", categoryID))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "Failed to update category"})
		}
		return
	}
	c.JSON(http.StatusOK, cat)
}

func (h *Handler) DeleteCategory(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	categoryID, ok := pathID(c)
	if !ok {
		return
	}

	cat, err := h.cat.DeleteCategory(c.Request.Context(), categoryID)
	if err != nil {
		if errors.Is(err, categories.ErrCategoryNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Category not found"})
			return
		}
		slog.Error("error deleting category", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.ERROR, err.Error()), slog.Int64("category_id", categoryID))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "Failed to delete category"})
		return
	}
	c.JSON(http.StatusOK, cat)
}
