package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/imrishuroy/campus-orderflow/internal/logging"
	"github.com/imrishuroy/campus-orderflow/internal/orders"
)

const actorKey = "auth.actor"

// Middleware rejects requests without a valid bearer token and stores the
// caller for ActorFrom.
func Middleware(issuer *Issuer, logger *zap.Logger) gin.HandlerFunc {
	logger = logging.OrNop(logger)
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "missing bearer token",
			})
			return
		}

		claims, err := issuer.Parse(strings.TrimSpace(token))
		if err != nil {
			logger.Debug("rejected token", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "invalid token",
			})
			return
		}

		c.Set(actorKey, orders.Party{ID: claims.UserID, Name: claims.Name})
		c.Next()
	}
}

// ActorFrom returns the authenticated caller.
func ActorFrom(c *gin.Context) (orders.Party, bool) {
	v, ok := c.Get(actorKey)
	if !ok {
		return orders.Party{}, false
	}
	p, ok := v.(orders.Party)
	return p, ok
}
