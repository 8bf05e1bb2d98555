package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"menu-catalog/internal/core/server"
	"menu-catalog/internal/service"
	httpez "menu-catalog/internal/transport/http/ez"
	mdw "menu-catalog/internal/transport/http/middleware"
)

type Deps struct {
	Log     *zap.Logger
	Auth    *service.AuthService
	Catalog *service.CatalogService
}

func NewAPIEngine(d Deps, o server.Options) *gin.Engine {
	if o.Name == "" {
		o.Name = "api"
	}
	r := server.NewRouter(d.Log, o)

	api := r.Group("/api/v1")
	// 鉴权分组（/me 等必须挂这里，才能拿到 userId）
	authed := api.Group("")
	authed.Use(mdw.AuthJWT(d.Auth))

	var reg Registry
	reg.Register(
		&authModule{svc: d.Auth, log: d.Log},
		&catalogModule{svc: d.Catalog, log: d.Log},
	)
	reg.MountAllAPI(api, authed)
	return r
}

// ---------- 账号：/create_user /login（公共）+ /me（鉴权） ----------

type authModule struct {
	svc *service.AuthService
	log *zap.Logger
}

func (*authModule) Priority() int { return 10 }

type credentialsIn struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type userOut struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

func (m *authModule) MountAPI(pub, authed *gin.RouterGroup) {
	ezPublic := httpez.New(pub, m.log)

	httpez.Register(ezPublic, httpez.Action[credentialsIn, userOut]{
		Method: http.MethodPost,
		Path:   "/create_user",
		Binder: httpez.BindJSON,
		Handler: func(c *gin.Context, in *credentialsIn) (userOut, error) {
			u, err := m.svc.CreateUser(c.Request.Context(), in.Username, in.Password)
			if err != nil {
				return userOut{}, err
			}
			return userOut{ID: u.ID, Username: u.Username}, nil
		},
	})

	httpez.Register(ezPublic, httpez.Action[credentialsIn, *service.LoginResult]{
		Method: http.MethodPost,
		Path:   "/login",
		Binder: httpez.BindJSON,
		Handler: func(c *gin.Context, in *credentialsIn) (*service.LoginResult, error) {
			return m.svc.Login(c.Request.Context(), in.Username, in.Password)
		},
	})

	ezAuth := httpez.New(authed, m.log)

	httpez.Register(ezAuth, httpez.Action[struct{}, userOut]{
		Method: http.MethodGet,
		Path:   "/me",
		Binder: httpez.BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, _ *struct{}) (userOut, error) {
			u, err := m.svc.User(c.Request.Context(), c.GetString(mdw.KeyUserID))
			if err != nil {
				return userOut{}, err
			}
			return userOut{ID: u.ID, Username: u.Username}, nil
		},
	})
}
