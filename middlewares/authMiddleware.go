package middlewares

import (
	"net/http"
	"strings"

	"bitbucket.org/mmdatafocus/tradebooks/action"
	"bitbucket.org/mmdatafocus/tradebooks/utils"
	"github.com/gin-gonic/gin"
)

// AuthMiddleware requires a valid bearer token and scopes the request to its account.
// An expired or unknown token answers 401, which the client treats as an ended session.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.Request.Header.Get("Authorization")
		bearer := "Bearer "
		if !strings.HasPrefix(auth, bearer) {
			unauthorized(c, "missing bearer token")
			return
		}

		validate, err := utils.JwtValidate(strings.TrimSpace(auth[len(bearer):]))
		if err != nil || !validate.Valid {
			unauthorized(c, "token expired or invalid")
			return
		}
		customClaim, ok := validate.Claims.(*utils.JwtCustomClaim)
		if !ok || customClaim.AccountId == "" {
			unauthorized(c, "token carries no account")
			return
		}

		ctx := utils.SetAccountIdInContext(c.Request.Context(), customClaim.AccountId)
		ctx = utils.SetDeviceIdInContext(ctx, customClaim.DeviceId)
		ctx = utils.SetTokenInContext(ctx, auth[len(bearer):])
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func unauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, action.ErrorResponse{Code: "unauthorized", Message: msg})
}
