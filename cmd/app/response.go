package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"StoreProAPI/internal/repository"
	"StoreProAPI/internal/services"
	"StoreProAPI/internal/storage"

	"github.com/labstack/echo/v4"
)

const genericMessage = "something went very wrong, please try again later"

// success wraps v as {status, data: {key: v}}.
func success(c echo.Context, code int, key string, v interface{}) error {
	return successData(c, code, echo.Map{key: v})
}

func successData(c echo.Context, code int, data echo.Map) error {
	return c.JSON(code, echo.Map{
		"status": "success",
		"data":   data,
	})
}

// successList adds the results count: {status, results, data: {key: items}}.
func successList[T any](c echo.Context, key string, items []T) error {
	if items == nil {
		items = []T{}
	}
	return c.JSON(http.StatusOK, echo.Map{
		"status":  "success",
		"results": len(items),
		"data":    echo.Map{key: items},
	})
}

func pathID(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("invalid %s", name))
	}
	return id, nil
}

func bind(c echo.Context, v interface{}) error {
	if err := c.Bind(v); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	return nil
}

func listQuery(c echo.Context, fields map[string]repository.Field) (repository.ListQuery, error) {
	q, err := repository.ParseListQuery(c.QueryParams(), fields)
	if err != nil {
		return q, echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return q, nil
}

// httpErrorHandler renders every error as {status, message}. 4xx are "fail",
// 5xx are "error" and never carry the underlying cause.
func httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	code, msg := statusFor(err)
	if code >= http.StatusInternalServerError {
		c.Logger().Errorf("%s %s: %v", c.Request().Method, c.Path(), err)
	}

	status := "fail"
	if code >= http.StatusInternalServerError {
		status = "error"
	}
	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = c.JSON(code, echo.Map{"status": status, "message": msg})
	}
	if err != nil {
		c.Logger().Error(err)
	}
}

func statusFor(err error) (int, string) {
	var ae *services.AppError
	if errors.As(err, &ae) {
		switch ae.Kind {
		case services.KindValidation, services.KindBusinessRule:
			return http.StatusBadRequest, ae.Message
		case services.KindNotFound:
			return http.StatusNotFound, ae.Message
		case services.KindForbidden:
			return http.StatusForbidden, ae.Message
		case services.KindUnauthorized:
			return http.StatusUnauthorized, ae.Message
		case services.KindUpstream:
			// upstream messages are written for clients; the cause stays in Err
			return http.StatusInternalServerError, ae.Message
		}
		return http.StatusInternalServerError, genericMessage
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		if he.Code >= http.StatusInternalServerError {
			return he.Code, genericMessage
		}
		return he.Code, fmt.Sprint(he.Message)
	}
	if errors.Is(err, storage.ErrInvalidUpload) {
		return http.StatusBadRequest, err.Error()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusServiceUnavailable, "request timed out, please try again"
	}
	return http.StatusInternalServerError, genericMessage
}
