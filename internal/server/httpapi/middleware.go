package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/suitewaste/internal/auth"
	"github.com/dmitrijs2005/suitewaste/internal/common"
	"github.com/dmitrijs2005/suitewaste/internal/logging"
	"github.com/gin-gonic/gin"
)

const userIDKey = "userID"

// UserIDFromContext returns the token subject set by the auth middleware.
func UserIDFromContext(c *gin.Context) string {
	return c.GetString(userIDKey)
}

func requestLogger(log logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info(c.Request.Context(), "http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

// bearerAuth accepts HS256 session tokens signed with secret. Tokens issued
// more than maxAge ago are refused even when not yet expired.
func bearerAuth(secret []byte, maxAge time.Duration, now func() time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := strings.TrimSpace(c.GetHeader(common.AuthorizationHeaderName))
		if len(h) < 7 || !strings.EqualFold(h[:7], "bearer ") {
			fail(c, http.StatusUnauthorized, "missing token")
			return
		}

		claims, err := auth.ParseToken(strings.TrimSpace(h[7:]), secret)
		if err != nil {
			fail(c, http.StatusUnauthorized, "invalid token")
			return
		}
		if maxAge > 0 && claims.IssuedAt != nil && now().Sub(claims.IssuedAt.Time) > maxAge {
			fail(c, http.StatusUnauthorized, "token too old")
			return
		}

		c.Set(userIDKey, claims.UserID)
		c.Next()
	}
}
