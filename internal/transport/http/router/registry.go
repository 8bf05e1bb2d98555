package router

import (
	"sort"

	"github.com/gin-gonic/gin"
)

// APIModule 在 /api/v1 上挂载；pub 无需登录，authed 已走 AuthJWT
type APIModule interface {
	MountAPI(pub, authed *gin.RouterGroup)
}

// AdminModule 在 /admin/v1 上挂载（分组已鉴权）
type AdminModule interface {
	MountAdmin(g *gin.RouterGroup)
}

// 可选：实现该接口可控制挂载顺序（数值越小越先挂），不实现默认 100
type prioritizer interface{ Priority() int }

// Registry 每个 engine 一份，不用全局状态
type Registry struct {
	apiMods   []APIModule
	adminMods []AdminModule
}

// Register 根据类型断言分发到 API/Admin 列表；一个模块可同时实现两者
func (r *Registry) Register(mods ...any) {
	for _, mod := range mods {
		if m, ok := mod.(APIModule); ok {
			r.apiMods = append(r.apiMods, m)
		}
		if m, ok := mod.(AdminModule); ok {
			r.adminMods = append(r.adminMods, m)
		}
	}
}

func (r *Registry) MountAllAPI(pub, authed *gin.RouterGroup) {
	mods := append([]APIModule(nil), r.apiMods...)
	sort.SliceStable(mods, func(i, j int) bool {
		return priorityOf(mods[i]) < priorityOf(mods[j])
	})
	for _, m := range mods {
		m.MountAPI(pub, authed)
	}
}

func (r *Registry) MountAllAdmin(g *gin.RouterGroup) {
	mods := append([]AdminModule(nil), r.adminMods...)
	sort.SliceStable(mods, func(i, j int) bool {
		return priorityOf(mods[i]) < priorityOf(mods[j])
	})
	for _, m := range mods {
		m.MountAdmin(g)
	}
}

func priorityOf(v any) int {
	if p, ok := v.(prioritizer); ok {
		return p.Priority()
	}
	return 100
}
