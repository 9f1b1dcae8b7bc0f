package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"store-backend/internal/auth"
	"store-backend/pkg/ctxmanage"
	"store-backend/pkg/logkey"

	"github.com/gin-gonic/gin"
)

// requestClaims pulls the verified claims out of the request context,
// aborting with 401 when the authentication middleware did not run.
func requestClaims(c *gin.Context) (auth.Claims, bool) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	claims, ok := c.Request.Context().Value(auth.ClaimsKey).(auth.Claims)
	if !ok {
		slog.Error("claims not found", slog.String(logkey.TraceID, traceId))
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return auth.Claims{}, false
	}
	return claims, true
}

// pathID parses the :id path parameter, aborting with 400 when it is not a
// positive integer.
func pathID(c *gin.Context) (int64, bool) {
	traceId := ctxmanage.GetTraceIdOfRequest(c)
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		slog.Error("invalid id parameter", slog.String(logkey.TraceID, traceId), slog.String("id", c.Param("id")))
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}
