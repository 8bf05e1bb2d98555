package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"menu-catalog/internal/core/server"
	"menu-catalog/internal/transport/http/handler"
	mdw "menu-catalog/internal/transport/http/middleware"
)

// NewAdminEngine 管理端 v1，整个分组要求登录
func NewAdminEngine(l *zap.Logger, adminH *handler.AdminHandler, authn mdw.Authenticator, o server.Options) *gin.Engine {
	if o.Name == "" {
		o.Name = "admin"
	}
	r := server.NewRouter(l, o)

	admin := r.Group("/admin/v1")
	admin.Use(mdw.AuthJWT(authn))

	var reg Registry
	reg.Register(adminH)
	reg.MountAllAdmin(admin)
	return r
}
