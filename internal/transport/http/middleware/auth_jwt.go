package middleware

import (
	"github.com/gin-gonic/gin"

	"menu-catalog/internal/core/auth"
	resp "menu-catalog/internal/transport/http/response"
)

// KeyUserID 鉴权通过后写入 gin.Context 的用户 id
const KeyUserID = "userId"

type Authenticator interface {
	Authenticate(token string) (string, error)
}

// AuthJWT token 依次从 Authorization 头、?token=、cookie jwt_token 中查找
func AuthJWT(a Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		tok := auth.TokenFromRequest(c.Request)
		if tok == "" {
			authRejectTotal.WithLabelValues("missing").Inc()
			resp.Abort(c, resp.CodeUnauthorized, "missing token")
			return
		}
		uid, err := a.Authenticate(tok)
		if err != nil {
			authRejectTotal.WithLabelValues("invalid").Inc()
			resp.Abort(c, resp.CodeUnauthorized, "invalid token")
			return
		}
		c.Set(KeyUserID, uid)
		c.Next()
	}
}
