package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	resp "menu-catalog/internal/transport/http/response"
)

const msgBodyTooLarge = "request body too large"

// MaxBodyBytes 限制请求体大小；声明长度超限直接拒绝，否则在读取时以 *http.MaxBytesError 暴露
func MaxBodyBytes(n int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > n {
			resp.Abort(c, resp.CodeBadRequest, msgBodyTooLarge)
			return
		}
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, n)
		}
		c.Next()
	}
}
