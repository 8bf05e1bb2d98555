package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"menu-catalog/internal/domain"
	httpez "menu-catalog/internal/transport/http/ez"
	mdw "menu-catalog/internal/transport/http/middleware"
	resp "menu-catalog/internal/transport/http/response"
)

type UserAdmin interface {
	User(ctx context.Context, id string) (*domain.User, error)
	ListUsers(ctx context.Context) ([]domain.User, error)
	DeleteUser(ctx context.Context, id string) error
}

// AdminHandler 管理端用户接口，实现 router.AdminModule
type AdminHandler struct {
	users  UserAdmin
	log    *zap.Logger
	admins map[string]struct{} // 为空时任何登录用户都可访问
}

type AdminOption func(*AdminHandler)

// WithAdmins 只允许这些用户名访问管理端
func WithAdmins(usernames ...string) AdminOption {
	return func(h *AdminHandler) {
		for _, u := range usernames {
			if u = strings.TrimSpace(u); u != "" {
				h.admins[u] = struct{}{}
			}
		}
	}
}

func NewAdminHandler(users UserAdmin, l *zap.Logger, opts ...AdminOption) *AdminHandler {
	if l == nil {
		l = zap.NewNop()
	}
	h := &AdminHandler{users: users, log: l, admins: map[string]struct{}{}}
	for _, o := range opts {
		o(h)
	}
	return h
}

type listQ struct {
	Username    string `form:"username"` // 按用户名模糊搜
	CurrentPage int    `form:"current_page,default=1"`
	PageSize    int    `form:"page_size,default=10"`
}

type row struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

type listOut struct {
	Data        []row `json:"data"`
	Total       int   `json:"total"`
	CurrentPage int   `json:"current_page"`
	PageSize    int   `json:"page_size"`
}

type idURI struct {
	ID string `uri:"id" binding:"required"`
}

func (h *AdminHandler) MountAdmin(g *gin.RouterGroup) {
	e := httpez.New(g.Group("", h.requireAdmin), h.log)

	// --- GET /admin/v1/users  用户列表 ---
	httpez.Register(e, httpez.Action[listQ, listOut]{
		Method: http.MethodGet,
		Path:   "/users",
		Binder: httpez.BindQuery,
		Auth:   true,
		Handler: func(c *gin.Context, in *listQ) (listOut, error) {
			return h.list(c.Request.Context(), in)
		},
	})

	// --- DELETE /admin/v1/users/:id ---
	httpez.Register(e, httpez.Action[idURI, gin.H]{
		Method: http.MethodDelete,
		Path:   "/users/:id",
		Binder: httpez.BindURI,
		Auth:   true,
		Handler: func(c *gin.Context, in *idURI) (gin.H, error) {
			if in.ID == c.GetString(mdw.KeyUserID) {
				return nil, httpez.BadRequest("cannot delete yourself")
			}
			if err := h.users.DeleteUser(c.Request.Context(), in.ID); err != nil {
				return nil, err
			}
			return gin.H{"id": in.ID}, nil
		},
	})
}

// requireAdmin 配置了管理员名单时，按当前登录用户的用户名放行
func (h *AdminHandler) requireAdmin(c *gin.Context) {
	uid := c.GetString(mdw.KeyUserID)
	if len(h.admins) == 0 || uid == "" {
		c.Next()
		return
	}
	u, err := h.users.User(c.Request.Context(), uid)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		resp.Abort(c, resp.CodeForbidden, "")
		return
	case err != nil:
		h.log.Error("admin: load caller failed", zap.String("user_id", uid), zap.Error(err))
		resp.Abort(c, resp.CodeServerError, "")
		return
	}
	if _, ok := h.admins[u.Username]; !ok {
		h.log.Warn("admin: access denied", zap.String("user_id", uid), zap.String("username", u.Username))
		resp.Abort(c, resp.CodeForbidden, "")
		return
	}
	c.Next()
}

func (h *AdminHandler) list(ctx context.Context, in *listQ) (listOut, error) {
	if in.CurrentPage <= 0 {
		in.CurrentPage = 1
	}
	if in.PageSize <= 0 || in.PageSize > 100 {
		in.PageSize = 10
	}
	us, err := h.users.ListUsers(ctx)
	if err != nil {
		return listOut{}, err
	}

	q := strings.TrimSpace(in.Username)
	rows := make([]row, 0, len(us))
	for _, u := range us {
		if q == "" || strings.Contains(u.Username, q) {
			rows = append(rows, row{ID: u.ID, Username: u.Username})
		}
	}

	out := listOut{Total: len(rows), CurrentPage: in.CurrentPage, PageSize: in.PageSize, Data: []row{}}
	start := (in.CurrentPage - 1) * in.PageSize
	if start < len(rows) {
		end := min(start+in.PageSize, len(rows))
		out.Data = rows[start:end]
	}
	return out, nil
}
