package main

import (
	"net/http"

	"StoreProAPI/internal/middleware"
	"StoreProAPI/internal/repository"
	"StoreProAPI/internal/services"

	"github.com/labstack/echo/v4"
)

func registerCategoryRoutes(g *echo.Group, s *server) {
	cs := s.categories
	p := g.Group("/categories")

	p.GET("", func(c echo.Context) error {
		q, err := listQuery(c, repository.CategoryFields)
		if err != nil {
			return err
		}
		list, err := cs.List(c.Request().Context(), q)
		if err != nil {
			return err
		}
		return successList(c, "categories", list)
	})

	p.GET("/:id", func(c echo.Context) error {
		id, err := pathID(c, "id")
		if err != nil {
			return err
		}
		cat, err := cs.Get(c.Request().Context(), id)
		if err != nil {
			return err
		}
		return success(c, http.StatusOK, "category", cat)
	})

	p.GET("/:id/subcategories", func(c echo.Context) error {
		id, err := pathID(c, "id")
		if err != nil {
			return err
		}
		list, err := cs.Subcategories(c.Request().Context(), id)
		if err != nil {
			return err
		}
		return successList(c, "subcategories", list)
	})

	admin := p.Group("", s.protect, s.authz.Require(middleware.ResCategories, middleware.ActWrite))

	admin.POST("", func(c echo.Context) error {
		var in services.CategoryInput
		if err := bind(c, &in); err != nil {
			return err
		}
		cat, err := cs.Create(c.Request().Context(), in)
		if err != nil {
			return err
		}
		return success(c, http.StatusCreated, "category", cat)
	})

	admin.PATCH("/:id", func(c echo.Context) error {
		id, err := pathID(c, "id")
		if err != nil {
			return err
		}
		var in services.CategoryInput
		if err := bind(c, &in); err != nil {
			return err
		}
		cat, err := cs.Update(c.Request().Context(), id, in)
		if err != nil {
			return err
		}
		return success(c, http.StatusOK, "category", cat)
	})

	admin.DELETE("/:id", func(c echo.Context) error {
		id, err := pathID(c, "id")
		if err != nil {
			return err
		}
		if err := cs.Delete(c.Request().Context(), id); err != nil {
			return err
		}
		return c.NoContent(http.StatusNoContent)
	})
}
