package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// 业务码直接沿用 HTTP 语义；HTTP 状态码恒为 200
const (
	CodeOK              = 0
	CodeBadRequest      = 400
	CodeUnauthorized    = 401
	CodeForbidden       = 403
	CodeNotFound        = 404
	CodeConflict        = 409
	CodeTooManyRequests = 429
	CodeServerError     = 500
	CodeUnavailable     = 503
	CodeTimeout         = 504
)

// KeyCode 写入 gin.Context 的业务码，供访问日志和指标读取
const KeyCode = "bizCode"

// CodeMsgMap 集中管理 code - msg
var CodeMsgMap = map[int]string{
	CodeOK:              "OK",
	CodeBadRequest:      "Bad Request",
	CodeUnauthorized:    "unauthorized",
	CodeForbidden:       "Forbidden",
	CodeNotFound:        "Not Found",
	CodeConflict:        "conflict",
	CodeTooManyRequests: "too many requests",
	CodeServerError:     "internal error",
	CodeUnavailable:     "server busy",
	CodeTimeout:         "timeout",
}

type Resp struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data any    `json:"data"`
}

// New 保证 data 不为 null
func New(code int, msg string, data any) Resp {
	if data == nil {
		data = struct{}{}
	}
	return Resp{Code: code, Msg: msg, Data: data}
}

func OK(data any) Resp {
	return New(CodeOK, CodeMsgMap[CodeOK], data)
}

// Error customMsg 为空时使用默认 msg
func Error(code int, customMsg string) Resp {
	msg := CodeMsgMap[code]
	if customMsg != "" {
		msg = customMsg
	}
	return New(code, msg, nil)
}

func JSON(c *gin.Context, r Resp) {
	c.Set(KeyCode, r.Code)
	c.JSON(http.StatusOK, r)
}

// Abort 中间件拦截用
func Abort(c *gin.Context, code int, customMsg string) {
	c.Set(KeyCode, code)
	c.AbortWithStatusJSON(http.StatusOK, Error(code, customMsg))
}
