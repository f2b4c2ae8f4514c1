package main

import (
	"net/http"

	"StoreProAPI/internal/middleware"
	"StoreProAPI/internal/repository"
	"StoreProAPI/internal/services"

	"github.com/labstack/echo/v4"
)

func registerOrderRoutes(g *echo.Group, s *server) {
	os := s.orders
	p := g.Group("/orders", s.protect)
	manage := s.authz.Require(middleware.ResOrders, middleware.ActManage)

	p.POST("", func(c echo.Context) error {
		var in services.CreateOrderInput
		if err := bind(c, &in); err != nil {
			return err
		}
		order, err := os.CreateFromCart(c.Request().Context(), middleware.CurrentUser(c).UserID, in)
		if err != nil {
			return err
		}
		return success(c, http.StatusCreated, "order", order)
	}, s.authz.Require(middleware.ResOrders, middleware.ActCreate))

	p.GET("/my-orders", func(c echo.Context) error {
		q, err := listQuery(c, repository.OrderFields)
		if err != nil {
			return err
		}
		list, err := os.ListForUser(c.Request().Context(), middleware.CurrentUser(c).UserID, q)
		if err != nil {
			return err
		}
		return successList(c, "orders", list)
	}, s.authz.Require(middleware.ResOrders, middleware.ActRead))

	p.GET("/stats", func(c echo.Context) error {
		stats, err := os.Stats(c.Request().Context(), middleware.CurrentUser(c).UserID)
		if err != nil {
			return err
		}
		return success(c, http.StatusOK, "stats", stats)
	}, s.authz.Require(middleware.ResOrders, middleware.ActRead))

	// admin live feed of order and payment events
	p.GET("/feed", echo.WrapHandler(s.feed), manage)

	p.GET("/:id", func(c echo.Context) error {
		id, err := pathID(c, "id")
		if err != nil {
			return err
		}
		order, err := os.Get(c.Request().Context(), middleware.CurrentUser(c), id)
		if err != nil {
			return err
		}
		return success(c, http.StatusOK, "order", order)
	}, s.authz.Require(middleware.ResOrders, middleware.ActRead))

	p.PATCH("/:id/cancel", func(c echo.Context) error {
		id, err := pathID(c, "id")
		if err != nil {
			return err
		}
		order, err := os.Cancel(c.Request().Context(), middleware.CurrentUser(c), id)
		if err != nil {
			return err
		}
		return success(c, http.StatusOK, "order", order)
	}, s.authz.Require(middleware.ResOrders, middleware.ActCancel))

	// ======================
	// ADMIN
	// ======================
	p.GET("", func(c echo.Context) error {
		q, err := listQuery(c, repository.OrderFields)
		if err != nil {
			return err
		}
		list, err := os.List(c.Request().Context(), middleware.CurrentUser(c), q)
		if err != nil {
			return err
		}
		return successList(c, "orders", list)
	}, manage)

	p.PATCH("/:id/status", func(c echo.Context) error {
		id, err := pathID(c, "id")
		if err != nil {
			return err
		}
		var req statusRequest
		if err := bind(c, &req); err != nil {
			return err
		}
		order, err := os.UpdateStatus(c.Request().Context(), id, req.value())
		if err != nil {
			return err
		}
		return success(c, http.StatusOK, "order", order)
	}, manage)
}

// statusRequest takes the new status as orderStatus, or status for older clients.
type statusRequest struct {
	OrderStatus string `json:"orderStatus"`
	Status      string `json:"status"`
}

func (r statusRequest) value() string {
	if r.OrderStatus != "" {
		return r.OrderStatus
	}
	return r.Status
}
