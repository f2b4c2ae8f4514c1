package main

import (
	"io"
	"net/http"
	"strconv"

	"StoreProAPI/internal/middleware"
	"StoreProAPI/internal/repository"

	"github.com/labstack/echo/v4"
)

const maxWebhookBody = 1 << 20

func registerPaymentRoutes(g *echo.Group, s *server) {
	ps := s.payments
	p := g.Group("/payments")

	// ============================
	// PROVIDER WEBHOOK
	// (public, always 200 or the provider keeps retrying)
	// ============================
	p.POST("/webhook", func(c echo.Context) error {
		body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBody))
		if err != nil {
			c.Logger().Errorf("payment webhook: read body: %v", err)
			return c.JSON(http.StatusOK, echo.Map{"received": true})
		}
		if err := ps.HandleWebhook(c.Request().Context(), body); err != nil {
			c.Logger().Errorf("payment webhook ignored: %v", err)
		}
		return c.JSON(http.StatusOK, echo.Map{"received": true})
	})

	// ============================
	// LOGGED IN
	// ============================
	p.POST("/initialize", func(c echo.Context) error {
		var req struct {
			OrderID int64  `json:"orderId"`
			Email   string `json:"email"`
		}
		if err := bind(c, &req); err != nil {
			return err
		}
		if req.OrderID <= 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "orderId is required")
		}
		actor := middleware.CurrentUser(c)
		if req.Email == "" {
			req.Email = actor.Email
		}
		pay, created, err := ps.Initialize(c.Request().Context(), actor, req.OrderID, req.Email)
		if err != nil {
			return err
		}
		code := http.StatusOK
		if created {
			code = http.StatusCreated
		}
		return successData(c, code, echo.Map{
			"payment":          pay,
			"authorizationUrl": pay.AuthorizationURL,
			"reference":        pay.TransactionID,
		})
	}, s.protect, s.authz.Require(middleware.ResPayments, middleware.ActCreate))

	p.GET("/verify", func(c echo.Context) error {
		reference := c.QueryParam("reference")
		redirect, _ := strconv.ParseBool(c.QueryParam("redirect"))
		if reference == "" && c.QueryParam("order_id") != "" {
			// the provider's finish redirect names the reference order_id
			reference, redirect = c.QueryParam("order_id"), true
		}
		pay, err := ps.Verify(c.Request().Context(), reference)
		if err != nil {
			return err
		}
		if redirect {
			return c.Redirect(http.StatusFound, ps.RedirectURL(pay))
		}
		return success(c, http.StatusOK, "payment", pay)
	}, s.protect, s.authz.Require(middleware.ResPayments, middleware.ActRead))

	p.GET("/:id", func(c echo.Context) error {
		id, err := pathID(c, "id")
		if err != nil {
			return err
		}
		pay, err := ps.Get(c.Request().Context(), middleware.CurrentUser(c), id)
		if err != nil {
			return err
		}
		return success(c, http.StatusOK, "payment", pay)
	}, s.protect, s.authz.Require(middleware.ResPayments, middleware.ActRead))

	// ============================
	// ADMIN
	// ============================
	manage := []echo.MiddlewareFunc{s.protect, s.authz.Require(middleware.ResPayments, middleware.ActManage)}

	p.GET("", func(c echo.Context) error {
		q, err := listQuery(c, repository.PaymentFields)
		if err != nil {
			return err
		}
		list, err := ps.List(c.Request().Context(), q)
		if err != nil {
			return err
		}
		return successList(c, "payments", list)
	}, manage...)

	p.POST("/:id/refund", func(c echo.Context) error {
		id, err := pathID(c, "id")
		if err != nil {
			return err
		}
		var req struct {
			Reason string `json:"reason"`
		}
		if c.Request().ContentLength != 0 {
			if err := bind(c, &req); err != nil {
				return err
			}
		}
		pay, refund, err := ps.Refund(c.Request().Context(), id, req.Reason)
		if err != nil {
			return err
		}
		return successData(c, http.StatusOK, echo.Map{
			"payment": pay,
			"refund":  refund,
		})
	}, manage...)
}
