package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/quizgrade-backend/internal/model"
	"github.com/stemsi/quizgrade-backend/internal/response"
)

// RequirePermission lets the request through only when the token grants
// every listed permission. Role checks run earlier in the group.
func RequirePermission(perms ...model.Permission) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetClaims(c)
		if claims == nil {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenRequired)
			return
		}

		for _, p := range perms {
			if !claims.HasPermission(string(p)) {
				response.AbortFail(c, http.StatusForbidden, response.ErrPermissionDenied)
				return
			}
		}
		c.Next()
	}
}
