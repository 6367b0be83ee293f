package middlewares

import (
	"bitbucket.org/mmdatafocus/tradebooks/utils"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// RevokedTokenKey is the redis key marking a signed-out token.
func RevokedTokenKey(token string) string { return "revoked:" + token }

// SessionMiddleware rejects tokens revoked before their expiry. Runs after AuthMiddleware.
// Without redis every unexpired token is accepted.
func SessionMiddleware(rdb *redis.Client, logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := utils.GetTokenFromContext(c.Request.Context())
		if rdb == nil || !ok || token == "" {
			c.Next()
			return
		}
		n, err := rdb.Exists(c.Request.Context(), RevokedTokenKey(token)).Result()
		if err != nil {
			logger.WithFields(logrus.Fields{"field": "SessionMiddleware"}).Warn("revocation check skipped: " + err.Error())
			c.Next()
			return
		}
		if n > 0 {
			unauthorized(c, "session revoked")
			return
		}
		c.Next()
	}
}
