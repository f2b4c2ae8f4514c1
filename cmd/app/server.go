package main

import (
	"context"
	"mime/multipart"
	"net/http"
	"strings"

	"StoreProAPI/internal/config"
	"StoreProAPI/internal/middleware"
	"StoreProAPI/internal/services"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
)

type imageUploader interface {
	SaveAll(ctx context.Context, files []*multipart.FileHeader) ([]string, error)
	Delete(ctx context.Context, url string) error
}

// server holds everything the route registrations need.
type server struct {
	cfg     *config.Config
	jwt     *middleware.JWT
	authz   *middleware.Authorizer
	protect echo.MiddlewareFunc

	auth       *services.AuthService
	users      *services.UserService
	categories *services.CategoryService
	products   *services.ProductService
	carts      *services.CartService
	orders     *services.OrderService
	payments   *services.PaymentService

	images imageUploader
	feed   http.Handler
}

// mount installs the middleware stack and every route on e.
func (s *server) mount(e *echo.Echo) {
	e.HideBanner = true
	e.HTTPErrorHandler = httpErrorHandler
	s.protect = middleware.Protect(s.jwt, s.auth)

	e.Use(echomw.Logger())
	e.Use(echomw.Recover())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     s.cfg.Server.CORSOrigins,
		AllowCredentials: true,
	}))
	e.Use(echomw.BodyLimit("30M"))
	if s.cfg.Server.RequestTimeout > 0 {
		e.Use(echomw.ContextTimeoutWithConfig(echomw.ContextTimeoutConfig{
			Timeout: s.cfg.Server.RequestTimeout,
		}))
	}

	if s.cfg.Uploads.Dir != "" {
		e.Static(strings.TrimRight(s.cfg.Uploads.BaseURL, "/"), s.cfg.Uploads.Dir)
	}

	api := e.Group("/api")
	registerUserRoutes(api, s)
	registerCategoryRoutes(api, s)
	registerProductRoutes(api, s)
	registerCartRoutes(api, s)
	registerOrderRoutes(api, s)
	registerPaymentRoutes(api, s)
}
