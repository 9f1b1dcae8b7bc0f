package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"store-backend/internal/orders"
	"store-backend/internal/stores/kafka"
	"store-backend/pkg/ctxmanage"
	"store-backend/pkg/logkey"

	"github.com/gin-gonic/gin"
)

// Checkout turns the caller's active cart into an order. A Conflict answer
// means a concurrent checkout raced this one; resubmitting is safe.
func (h *Handler) Checkout(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	claims, ok := requestClaims(c)
	if !ok {
		return
	}

	order, err := h.o.Checkout(c.Request.Context(), claims.UserID)
	if err != nil {
		switch {
		case errors.Is(err, orders.ErrEmptyCart):
			slog.Error("checkout on empty cart", slog.String(logkey.TraceID, traceId), slog.Int64(logkey.UserID, claims.UserID))
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "Cart is empty"})
		case errors.Is(err, orders.ErrCheckoutConflict):
			slog.Error("checkout conflict", slog.String(logkey.TraceID, traceId), slog.Int64(logkey.UserID, claims.UserID))
			c.AbortWithStatusJSON(http.StatusConflict, gin.H{"message": "Checkout conflict, please retry"})
		default:
			slog.Error("error during checkout", slog.String(logkey.TraceID, traceId),
				slog.String(logkey.ERROR, err.Error()), slog.Int64(logkey.UserID, claims.UserID))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "Checkout failed"})
		}
		return
	}

	slog.Info("order placed", slog.String(logkey.TraceID, traceId),
		slog.Int64("order_id", order.ID), slog.Int64(logkey.UserID, claims.UserID))

	// Best effort: the order is committed either way, consumers reconcile.
	go func(o orders.Order) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		event := kafka.OrderPlacedEvent{
			OrderID:    o.ID,
			UserID:     o.UserID,
			TotalPrice: o.TotalPrice,
			Status:     string(o.Status),
			CreatedAt:  o.CreatedAt,
		}
		if err := h.k.Publish(ctx, kafka.TopicOrderPlaced, strconv.FormatInt(o.ID, 10), event); err != nil {
			slog.Error("failed to publish order-placed event", slog.String(logkey.TraceID, traceId),
				slog.String(logkey.ERROR, err.Error()), slog.Int64("order_id", o.ID))
		}
	}(*order)

	c.JSON(http.StatusOK, order)
}

func (h *Handler) ListOrders(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	claims, ok := requestClaims(c)
	if !ok {
		return
	}

	list, err := h.o.List(c.Request.Context(), claims.UserID)
	if err != nil {
		slog.Error("error listing orders", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.ERROR, err.Error()), slog.Int64(logkey.UserID, claims.UserID))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "Failed to list orders"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"orders": list})
}

func (h *Handler) GetOrder(c *gin.Context) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	claims, ok := requestClaims(c)
	if !ok {
		return
	}
	orderID, ok := pathID(c)
	if !ok {
		return
	}

	order, err := h.o.GetByID(c.Request.Context(), claims.UserID, orderID)
	if err != nil {
		if errors.Is(err, orders.ErrOrderNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"message": "Order not found"})
			return
		}
		slog.Error("error fetching order", slog.String(logkey.TraceID, traceId),
			slog.String(logkey.ERROR, err.Error()), slog.Int64("order_id", orderID))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "Failed to fetch order"})
		return
	}

	c.JSON(http.StatusOK, order)
}
