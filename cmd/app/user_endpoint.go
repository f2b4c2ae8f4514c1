package main

import (
	"net/http"
	"time"

	"StoreProAPI/internal/middleware"
	"StoreProAPI/internal/model"
	"StoreProAPI/internal/repository"
	"StoreProAPI/internal/services"

	"github.com/labstack/echo/v4"
)

func registerUserRoutes(g *echo.Group, s *server) {
	auth, users := s.auth, s.users
	p := g.Group("/users")

	sendToken := func(c echo.Context, code int, u *model.User) error {
		now := time.Now()
		token, err := s.jwt.Generate(u.UserID, now)
		if err != nil {
			return err
		}
		c.SetCookie(&http.Cookie{
			Name:     middleware.CookieName,
			Value:    token,
			Path:     "/",
			Expires:  now.Add(s.jwt.TTL()),
			HttpOnly: true,
			Secure:   s.cfg.Auth.CookieSecure,
			SameSite: http.SameSiteLaxMode,
		})
		u.PasswordHash = ""
		return c.JSON(code, echo.Map{
			"status": "success",
			"token":  token,
			"data":   echo.Map{"user": u},
		})
	}

	p.POST("/signup", func(c echo.Context) error {
		var in services.SignupInput
		if err := bind(c, &in); err != nil {
			return err
		}
		u, err := auth.Signup(c.Request().Context(), in)
		if err != nil {
			return err
		}
		return sendToken(c, http.StatusCreated, u)
	})

	p.POST("/login", func(c echo.Context) error {
		var req struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := bind(c, &req); err != nil {
			return err
		}
		u, err := auth.Login(c.Request().Context(), req.Email, req.Password)
		if err != nil {
			return err
		}
		return sendToken(c, http.StatusOK, u)
	})

	p.POST("/logout", func(c echo.Context) error {
		c.SetCookie(&http.Cookie{
			Name:     middleware.CookieName,
			Value:    "loggedout",
			Path:     "/",
			Expires:  time.Now().Add(10 * time.Second),
			HttpOnly: true,
		})
		return c.JSON(http.StatusOK, echo.Map{"status": "success"})
	})

	p.POST("/forgotPassword", func(c echo.Context) error {
		var req struct {
			Email string `json:"email"`
		}
		if err := bind(c, &req); err != nil {
			return err
		}
		if err := auth.ForgotPassword(c.Request().Context(), req.Email); err != nil {
			return err
		}
		return c.JSON(http.StatusOK, echo.Map{
			"status":  "success",
			"message": "Token sent to email!",
		})
	})

	p.PATCH("/resetPassword/:token", func(c echo.Context) error {
		var req struct {
			Password        string `json:"password"`
			PasswordConfirm string `json:"passwordConfirm"`
		}
		if err := bind(c, &req); err != nil {
			return err
		}
		u, err := auth.ResetPassword(c.Request().Context(), c.Param("token"), req.Password, req.PasswordConfirm)
		if err != nil {
			return err
		}
		return sendToken(c, http.StatusOK, u)
	})

	// ======================
	// LOGGED IN
	// ======================
	me := p.Group("", s.protect, s.authz.Require(middleware.ResProfile, middleware.ActWrite))

	me.GET("/me", func(c echo.Context) error {
		u, err := users.Get(c.Request().Context(), middleware.CurrentUser(c).UserID)
		if err != nil {
			return err
		}
		return success(c, http.StatusOK, "user", u)
	})

	me.PATCH("/updateMe", func(c echo.Context) error {
		var req struct {
			services.ProfileUpdate
			Password        *string `json:"password"`
			PasswordConfirm *string `json:"passwordConfirm"`
		}
		if err := bind(c, &req); err != nil {
			return err
		}
		if req.Password != nil || req.PasswordConfirm != nil {
			return echo.NewHTTPError(http.StatusBadRequest,
				"this route is not for password updates, please use /updateMyPassword")
		}
		u, err := users.UpdateMe(c.Request().Context(), middleware.CurrentUser(c).UserID, req.ProfileUpdate)
		if err != nil {
			return err
		}
		return success(c, http.StatusOK, "user", u)
	})

	me.PATCH("/updateMyPassword", func(c echo.Context) error {
		var req struct {
			PasswordCurrent string `json:"passwordCurrent"`
			Password        string `json:"password"`
			PasswordConfirm string `json:"passwordConfirm"`
		}
		if err := bind(c, &req); err != nil {
			return err
		}
		u, err := auth.UpdatePassword(c.Request().Context(), middleware.CurrentUser(c).UserID,
			req.PasswordCurrent, req.Password, req.PasswordConfirm)
		if err != nil {
			return err
		}
		return sendToken(c, http.StatusOK, u)
	})

	me.DELETE("/deleteMe", func(c echo.Context) error {
		if err := users.DeleteMe(c.Request().Context(), middleware.CurrentUser(c).UserID); err != nil {
			return err
		}
		return c.NoContent(http.StatusNoContent)
	})

	// ======================
	// ADMIN
	// ======================
	admin := p.Group("", s.protect, s.authz.Require(middleware.ResUsers, middleware.ActManage))

	admin.GET("", func(c echo.Context) error {
		q, err := listQuery(c, repository.UserFields)
		if err != nil {
			return err
		}
		list, err := users.List(c.Request().Context(), q)
		if err != nil {
			return err
		}
		return successList(c, "users", list)
	})

	admin.GET("/:id", func(c echo.Context) error {
		id, err := pathID(c, "id")
		if err != nil {
			return err
		}
		u, err := users.Get(c.Request().Context(), id)
		if err != nil {
			return err
		}
		return success(c, http.StatusOK, "user", u)
	})

	admin.PATCH("/:id", func(c echo.Context) error {
		id, err := pathID(c, "id")
		if err != nil {
			return err
		}
		var in services.AdminUserUpdate
		if err := bind(c, &in); err != nil {
			return err
		}
		u, err := users.Update(c.Request().Context(), id, in)
		if err != nil {
			return err
		}
		return success(c, http.StatusOK, "user", u)
	})

	admin.DELETE("/:id", func(c echo.Context) error {
		id, err := pathID(c, "id")
		if err != nil {
			return err
		}
		if err := users.Delete(c.Request().Context(), id); err != nil {
			return err
		}
		return c.NoContent(http.StatusNoContent)
	})
}
