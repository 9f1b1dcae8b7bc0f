package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"store-backend/internal/products"
	"store-backend/pkg/ctxmanage"
	"store-backend/pkg/logkey"

	"github.com/gin-gonic/gin"
)

func (h *Handler) CreateProduct(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	claims, ok := requestClaims(c)
	if !ok {
		return
	}

	if c.Request.ContentLength > 5*1024 {
		slog.Error("request body limit breached", slog.String(logkey.TraceID, traceId),
			slog.Int64("size_received", c.Request.ContentLength))
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Request body too large."})
		return
	}

	var newProduct products.NewProduct
	if err := c.ShouldBindJSON(&newProduct); err != nil {
		slog.Error("json validation error", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": http.StatusText(http.StatusBadRequest)})
		return
	}
	if err := h.validate.Struct(newProduct); err != nil {
		slog.Error("validation failed", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": http.StatusText(http.StatusBadRequest)})
		return
	}
	if newProduct.Price.IsNegative() {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "price must not be negative"})
		return
	}

	insertedProduct, err := h.p.InsertProduct(c.Request.Context(), newProduct, claims.UserID)
	if err != nil {
		if errors.Is(err, products.ErrCategoryNotFound) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Category not found or inactive"})
			return
		}
		slog.Error("error in inserting the product", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "Product Creation Failed"})
		return
	}

	c.JSON(http.StatusOK, insertedProduct)
}

func (h *Handler) ListProducts(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)

	list, err := h.p.ListProducts(c.Request.Context())
	if err != nil {
		slog.Error("error listing products", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "Failed to list products"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": list})
}

func (h *Handler) ListProductsByCategory(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	categoryID, ok := pathID(c)
	if !ok {
		return
	}

	list, err := h.p.ListByCategory(c.Request.Context(), categoryID)
	if err != nil {
		if errors.Is(err, products.ErrCategoryNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Category not found or inactive"})
			return
		}
		slog.Error("error listing products by category", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.ERROR, err.Error()), slog.Int64("category_id", categoryID))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "Failed to list products"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": list})
}

func (h *Handler) GetProduct(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	productID, ok := pathID(c)
	if !ok {
		return
	}

	product, err := h.p.GetProductByID(c.Request.Context(), productID)
	if err != nil {
		if errors.Is(err, products.ErrProductNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Product not found"})
			return
		}
		slog.Error("error in retrieving product", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.ERROR, err.Error()), slog.Int64("product_id", productID))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve product"})
		return
	}
	c.JSON(http.StatusOK, product)
}

// ProductAvailability exposes the catalog lookup the cart relies on: the
// current price plus the product and category activity flags.
func (h *Handler) ProductAvailability(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	productID, ok := pathID(c)
	if !ok {
		return
	}

	ap, err := h.p.GetActiveProduct(c.Request.Context(), productID)
	if err != nil {
		if errors.Is(err, products.ErrProductNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Product not found"})
			return
		}
		slog.Error("error checking product availability", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.ERROR, err.Error()), slog.Int64("product_id", productID))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to check availability"})
		return
	}
	c.JSON(http.StatusOK, ap)
}

func (h *Handler) UpdateProduct(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	claims, ok := requestClaims(c)
	if !ok {
		return
	}
	productID, ok := pathID(c)
	if !ok {
		return
	}

	var newProduct products.NewProduct
	if err := c.ShouldBindJSON(&newProduct); err != nil {
		slog.Error("json validation error", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": http.StatusText(http.StatusBadRequest)})
		return
	}
	if err := h.validate.Struct(newProduct); err != nil {
		slog.Error("validation failed", slog.String(logkey.TraceID, traceId), slog.String(logkey.ERROR, err.Error()))
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": http.StatusText(http.StatusBadRequest)})
		return
	}

	product, err := h.p.UpdateProduct(c.Request.Context(), productID, newProduct, claims.UserID)
	if err != nil {
		switch {
		case errors.Is(err, products.ErrProductNotFound):
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Product not found"})
		case errors.Is(err, products.ErrNotOwner):
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "You can only update your own products"})
		case errors.Is(err, products.ErrCategoryNotFound):
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Category not found or inactive"})
		default:
			slog.Error("error updating product", slog.String(logkey.TraceID, traceId),
				slog.String(logkey.ERROR, err.Error()), slog.Int64("product_id", productID))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to update product"})
		}
		return
	}
	c.JSON(http.StatusOK, product)
}

func (h *Handler) DeleteProduct(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	claims, ok := requestClaims(c)
	if !ok {
		return
	}
	productID, ok := pathID(c)
	if !ok {
		return
	}

	product, err := h.p.DeleteProduct(c.Request.Context(), productID, claims.UserID)
	if err != nil {
		switch {
		case errors.Is(err, products.ErrProductNotFound):
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Product not found"})
		case errors.Is(err, products.ErrNotOwner):
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "You can only delete your own products"})
		default:
			slog.Error("error deleting product", slog.String(logkey.TraceID, traceId),
				slog.String(logkey.ERROR, err.Error()), slog.Int64("product_id", productID))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete product"})
		}
		return
	}
	c.JSON(http.StatusOK, product)
}
