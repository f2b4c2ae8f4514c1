package main

import (
	"net/http"

	"StoreProAPI/internal/middleware"
	"StoreProAPI/internal/model"
	"StoreProAPI/internal/services"

	"github.com/labstack/echo/v4"
)

func registerCartRoutes(g *echo.Group, s *server) {
	cs := s.carts
	p := g.Group("/cart", s.protect)
	read := s.authz.Require(middleware.ResCart, middleware.ActRead)
	write := s.authz.Require(middleware.ResCart, middleware.ActWrite)

	respond := func(c echo.Context, cart *model.Cart, err error) error {
		if err != nil {
			return err
		}
		return success(c, http.StatusOK, "cart", model.NewCartResponse(cart))
	}

	p.GET("", func(c echo.Context) error {
		cart, err := cs.Get(c.Request().Context(), middleware.CurrentUser(c).UserID)
		return respond(c, cart, err)
	}, read)

	p.POST("/add", func(c echo.Context) error {
		var in services.AddItemInput
		if err := bind(c, &in); err != nil {
			return err
		}
		cart, err := cs.AddItem(c.Request().Context(), middleware.CurrentUser(c).UserID, in)
		return respond(c, cart, err)
	}, write)

	p.PATCH("/item/:itemId", func(c echo.Context) error {
		itemID, err := pathID(c, "itemId")
		if err != nil {
			return err
		}
		var req struct {
			Quantity int `json:"quantity"`
		}
		if err := bind(c, &req); err != nil {
			return err
		}
		cart, err := cs.UpdateItem(c.Request().Context(), middleware.CurrentUser(c).UserID, itemID, req.Quantity)
		return respond(c, cart, err)
	}, write)

	p.DELETE("/item/:itemId", func(c echo.Context) error {
		itemID, err := pathID(c, "itemId")
		if err != nil {
			return err
		}
		cart, err := cs.RemoveItem(c.Request().Context(), middleware.CurrentUser(c).UserID, itemID)
		return respond(c, cart, err)
	}, write)

	p.DELETE("/clear", func(c echo.Context) error {
		cart, err := cs.Clear(c.Request().Context(), middleware.CurrentUser(c).UserID)
		return respond(c, cart, err)
	}, write)
}
