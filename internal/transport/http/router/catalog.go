package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"menu-catalog/internal/domain"
	"menu-catalog/internal/service"
	httpez "menu-catalog/internal/transport/http/ez"
)

// catalogModule 读接口公开，写接口要求登录
type catalogModule struct {
	svc *service.CatalogService
	log *zap.Logger
}

type idURI struct {
	ID string `uri:"id" binding:"required"`
}

type idOut struct {
	ID string `json:"id"`
}

type createCategoryIn struct {
	Name    string   `json:"name" binding:"required"`
	DishIDs []string `json:"dish_ids"`
}

type createDishIn struct {
	Name        string   `json:"name" binding:"required"`
	Price       *float64 `json:"price" binding:"required"`
	Picture     string   `json:"picture"`
	CategoryIDs []string `json:"category_ids"`
}

func (m *catalogModule) MountAPI(pub, authed *gin.RouterGroup) {
	m.mountReads(httpez.New(pub, m.log))
	m.mountWrites(httpez.New(authed, m.log))
}

func (m *catalogModule) mountReads(e httpez.EZ) {
	httpez.Register(e, httpez.Action[struct{}, []domain.CategoryWithDishes]{
		Method: http.MethodGet,
		Path:   "/menu",
		Binder: httpez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) ([]domain.CategoryWithDishes, error) {
			return m.svc.GetMenu(c.Request.Context())
		},
	})

	httpez.Register(e, httpez.Action[struct{}, []domain.Category]{
		Method: http.MethodGet,
		Path:   "/categories",
		Binder: httpez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) ([]domain.Category, error) {
			return m.svc.ListCategories(c.Request.Context())
		},
	})

	httpez.Register(e, httpez.Action[struct{}, []domain.Dish]{
		Method: http.MethodGet,
		Path:   "/dishes",
		Binder: httpez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) ([]domain.Dish, error) {
			return m.svc.ListDishes(c.Request.Context())
		},
	})

	httpez.Register(e, httpez.Action[idURI, []domain.Dish]{
		Method: http.MethodGet,
		Path:   "/categories/:id/dishes",
		Binder: httpez.BindURI,
		Handler: func(c *gin.Context, in *idURI) ([]domain.Dish, error) {
			return m.svc.DishesForCategory(c.Request.Context(), in.ID)
		},
	})

	httpez.Register(e, httpez.Action[idURI, []domain.Category]{
		Method: http.MethodGet,
		Path:   "/dishes/:id/categories",
		Binder: httpez.BindURI,
		Handler: func(c *gin.Context, in *idURI) ([]domain.Category, error) {
			return m.svc.CategoriesForDish(c.Request.Context(), in.ID)
		},
	})
}

func (m *catalogModule) mountWrites(e httpez.EZ) {
	httpez.Register(e, httpez.Action[createCategoryIn, idOut]{
		Method: http.MethodPost,
		Path:   "/categories",
		Binder: httpez.BindJSON,
		Auth:   true,
		Handler: func(c *gin.Context, in *createCategoryIn) (idOut, error) {
			id, err := m.svc.CreateCategory(c.Request.Context(), in.Name, in.DishIDs)
			return idOut{ID: id}, err
		},
	})

	httpez.Register(e, httpez.Action[idURI, idOut]{
		Method: http.MethodDelete,
		Path:   "/categories/:id",
		Binder: httpez.BindURI,
		Auth:   true,
		Handler: func(c *gin.Context, in *idURI) (idOut, error) {
			if err := m.svc.DeleteCategory(c.Request.Context(), in.ID); err != nil {
				return idOut{}, err
			}
			return idOut{ID: in.ID}, nil
		},
	})

	httpez.Register(e, httpez.Action[createDishIn, idOut]{
		Method: http.MethodPost,
		Path:   "/dishes",
		Binder: httpez.BindJSON,
		Auth:   true,
		Handler: func(c *gin.Context, in *createDishIn) (idOut, error) {
			id, err := m.svc.CreateDish(c.Request.Context(), in.Name, *in.Price, in.Picture, in.CategoryIDs)
			return idOut{ID: id}, err
		},
	})

	httpez.Register(e, httpez.Action[idURI, idOut]{
		Method: http.MethodDelete,
		Path:   "/dishes/:id",
		Binder: httpez.BindURI,
		Auth:   true,
		Handler: func(c *gin.Context, in *idURI) (idOut, error) {
			if err := m.svc.DeleteDish(c.Request.Context(), in.ID); err != nil {
				return idOut{}, err
			}
			return idOut{ID: in.ID}, nil
		},
	})
}
