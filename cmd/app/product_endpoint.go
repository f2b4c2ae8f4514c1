package main

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"StoreProAPI/internal/middleware"
	"StoreProAPI/internal/model"
	"StoreProAPI/internal/repository"
	"StoreProAPI/internal/services"

	"github.com/labstack/echo/v4"
)

const xlsxMIME = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func registerProductRoutes(g *echo.Group, s *server) {
	ps := s.products
	p := g.Group("/products")

	p.GET("", func(c echo.Context) error {
		q, err := listQuery(c, repository.ProductFields)
		if err != nil {
			return err
		}
		list, err := ps.List(c.Request().Context(), q)
		if err != nil {
			return err
		}
		return successList(c, "products", list)
	})

	p.GET("/search", func(c echo.Context) error {
		list, err := ps.Search(c.Request().Context(), c.QueryParam("q"))
		if err != nil {
			return err
		}
		return successList(c, "products", list)
	})

	p.GET("/category/:categoryId", func(c echo.Context) error {
		id, err := pathID(c, "categoryId")
		if err != nil {
			return err
		}
		list, err := ps.ByCategory(c.Request().Context(), id)
		if err != nil {
			return err
		}
		return successList(c, "products", list)
	})

	p.GET("/:id", func(c echo.Context) error {
		id, err := pathID(c, "id")
		if err != nil {
			return err
		}
		prod, err := ps.Get(c.Request().Context(), id)
		if err != nil {
			return err
		}
		return success(c, http.StatusOK, "product", prod)
	})

	// ======================
	// ADMIN
	// ======================
	admin := p.Group("", s.protect, s.authz.Require(middleware.ResProducts, middleware.ActWrite))

	admin.GET("/export", func(c echo.Context) error {
		file, err := ps.Export(c.Request().Context())
		if err != nil {
			return err
		}
		var buf bytes.Buffer
		if err := file.Write(&buf); err != nil {
			return err
		}
		c.Response().Header().Set(echo.HeaderContentDisposition, "attachment; filename=products.xlsx")
		return c.Blob(http.StatusOK, xlsxMIME, buf.Bytes())
	})

	admin.POST("", func(c echo.Context) error {
		ctx := c.Request().Context()
		in, files, err := productInput(c)
		if err != nil {
			return err
		}
		urls, err := s.images.SaveAll(ctx, files)
		if err != nil {
			return err
		}
		in.Images = urls
		prod, err := ps.Create(ctx, in)
		if err != nil {
			discardImages(c, s.images, urls)
			return err
		}
		return success(c, http.StatusCreated, "product", prod)
	})

	admin.PATCH("/:id", func(c echo.Context) error {
		ctx := c.Request().Context()
		id, err := pathID(c, "id")
		if err != nil {
			return err
		}
		in, files, err := productInput(c)
		if err != nil {
			return err
		}
		if len(files) > 0 {
			if in.Images, err = s.images.SaveAll(ctx, files); err != nil {
				return err
			}
		}
		prod, err := ps.Update(ctx, id, in)
		if err != nil {
			discardImages(c, s.images, in.Images)
			return err
		}
		return success(c, http.StatusOK, "product", prod)
	})

	admin.DELETE("/:id", func(c echo.Context) error {
		id, err := pathID(c, "id")
		if err != nil {
			return err
		}
		if err := ps.Delete(c.Request().Context(), id); err != nil {
			return err
		}
		return c.NoContent(http.StatusNoContent)
	})
}

func discardImages(c echo.Context, images imageUploader, urls []string) {
	for _, u := range urls {
		if err := images.Delete(c.Request().Context(), u); err != nil {
			c.Logger().Warnf("failed to remove unused image %s: %v", u, err)
		}
	}
}

// productInput reads a multipart form (fields plus "images" files) or a
// JSON body. JSON bodies cannot carry images.
func productInput(c echo.Context) (services.ProductInput, []*multipart.FileHeader, error) {
	var in services.ProductInput
	if !strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm) {
		return in, nil, bind(c, &in)
	}
	form, err := c.MultipartForm()
	if err != nil {
		return in, nil, echo.NewHTTPError(http.StatusBadRequest, "invalid multipart form")
	}

	field := func(name string) (string, bool) {
		vals := form.Value[name]
		if len(vals) == 0 {
			return "", false
		}
		return vals[0], true
	}
	bad := func(name string) error {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}

	if v, ok := field("name"); ok {
		in.Name = &v
	}
	if v, ok := field("description"); ok {
		in.Description = &v
	}
	if v, ok := field("category"); ok {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return in, nil, bad("category")
		}
		in.CategoryID = &id
	}
	for name, dst := range map[string]**float64{"price": &in.Price, "discountprice": &in.DiscountPrice} {
		if v, ok := field(name); ok && v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return in, nil, bad(name)
			}
			*dst = &f
		}
	}
	if v, ok := field("stockquantity"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return in, nil, bad("stockquantity")
		}
		in.StockQuantity = &n
	}
	if vals, ok := form.Value["specs"]; ok {
		specs := specList(vals)
		in.Specs = &specs
	}
	if v, ok := field("variants"); ok {
		var variants []model.Variant
		if err := json.Unmarshal([]byte(v), &variants); err != nil {
			return in, nil, bad("variants")
		}
		in.Variants = &variants
	}
	return in, form.File["images"], nil
}

// specList accepts repeated fields, one JSON array, or a comma separated list.
func specList(vals []string) []string {
	if len(vals) == 1 {
		var arr []string
		if err := json.Unmarshal([]byte(vals[0]), &arr); err == nil {
			return arr
		}
		vals = strings.Split(vals[0], ",")
	}
	specs := make([]string, 0, len(vals))
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			specs = append(specs, v)
		}
	}
	return specs
}
