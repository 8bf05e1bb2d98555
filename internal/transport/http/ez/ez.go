package ez

import (
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"menu-catalog/internal/domain"
	mdw "menu-catalog/internal/transport/http/middleware"
	resp "menu-catalog/internal/transport/http/response"
)

// EZ 轻封装：绑定一个分组和日志，Register 在其上挂 Action
type EZ struct {
	g   *gin.RouterGroup
	log *zap.Logger
}

func New(g *gin.RouterGroup, l *zap.Logger) EZ {
	if l == nil {
		l = zap.NewNop()
	}
	return EZ{g: g, log: l}
}

// 绑定方式
type Binder string

const (
	BindJSON  Binder = "json"  // 从 JSON 绑定
	BindQuery Binder = "query" // 从 URL ?a=b 绑定
	BindURI   Binder = "uri"   // 从路径参数 :id 绑定
	BindNone  Binder = "none"  // 不绑定
)

// AErr handler 想自定义 code/msg 时返回
type AErr struct {
	Code int
	Msg  string
	Err  error
}

func (e *AErr) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "action error"
}

func (e *AErr) Unwrap() error { return e.Err }

func BadRequest(msg string) error   { return &AErr{Code: resp.CodeBadRequest, Msg: msg} }
func Unauthorized(msg string) error { return &AErr{Code: resp.CodeUnauthorized, Msg: msg} }

// FromError 把领域错误映射成 envelope 的 code/msg；存储细节不外露
func FromError(err error) (int, string) {
	var ae *AErr
	switch {
	case errors.As(err, &ae):
		return ae.Code, ae.Error()
	case errors.Is(err, domain.ErrValidation):
		return resp.CodeBadRequest, err.Error()
	case errors.Is(err, domain.ErrAuth):
		return resp.CodeUnauthorized, resp.CodeMsgMap[resp.CodeUnauthorized]
	case errors.Is(err, domain.ErrNotFound):
		return resp.CodeNotFound, "not found"
	case errors.Is(err, domain.ErrConflict):
		return resp.CodeConflict, resp.CodeMsgMap[resp.CodeConflict]
	default:
		return resp.CodeServerError, resp.CodeMsgMap[resp.CodeServerError]
	}
}

// Action 一个接口：I 入参，O 出参
type Action[I any, O any] struct {
	Method  string // "GET" | "POST" | "PUT" | "DELETE"
	Path    string // 例："/login"、"/categories/:id/dishes"
	Binder  Binder
	Auth    bool // 是否要求登录（检查 userId）
	Handler func(c *gin.Context, in *I) (O, error)
}

// Register 在当前 EZ 下注册动作接口
func Register[I any, O any](e EZ, a Action[I, O]) {
	h := func(c *gin.Context) {
		if a.Auth && c.GetString(mdw.KeyUserID) == "" {
			resp.JSON(c, resp.Error(resp.CodeUnauthorized, ""))
			return
		}

		var in I
		if err := bind(c, a.Binder, &in); err != nil {
			msg := err.Error()
			var mbe *http.MaxBytesError
			if errors.As(err, &mbe) {
				msg = "request body too large"
			}
			resp.JSON(c, resp.Error(resp.CodeBadRequest, msg))
			return
		}

		out, err := a.Handler(c, &in)
		if err != nil {
			code, msg := FromError(err)
			_ = c.Error(err)
			if code >= resp.CodeServerError {
				e.log.Error("action failed",
					zap.String("rid", c.GetString(mdw.KeyRequestID)),
					zap.String("path", a.Path),
					zap.Error(err))
			}
			r := resp.Error(code, msg)
			// 部分成功时 handler 会同时返回结果和错误，例如已创建实体的 id
			if v := reflect.ValueOf(out); v.IsValid() && !v.IsZero() {
				r.Data = out
			}
			resp.JSON(c, r)
			return
		}
		resp.JSON(c, resp.OK(out))
	}

	switch strings.ToUpper(a.Method) {
	case http.MethodGet:
		e.g.GET(a.Path, h)
	case http.MethodPut:
		e.g.PUT(a.Path, h)
	case http.MethodDelete:
		e.g.DELETE(a.Path, h)
	default: // 默认 POST
		e.g.POST(a.Path, h)
	}
}

func bind(c *gin.Context, b Binder, in any) error {
	switch b {
	case BindJSON:
		return c.ShouldBindJSON(in)
	case BindQuery:
		return c.ShouldBindQuery(in)
	case BindURI:
		return c.ShouldBindUri(in)
	default:
		return nil
	}
}
