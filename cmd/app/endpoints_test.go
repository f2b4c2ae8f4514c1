package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"StoreProAPI/external/midtrans"
	"StoreProAPI/internal/config"
	"StoreProAPI/internal/middleware"
	"StoreProAPI/internal/services"
	"StoreProAPI/internal/storage"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestServer mounts the real routes over services whose stores are never
// reached by the requests these tests make.
func newTestServer(t *testing.T) *echo.Echo {
	t.Helper()
	cfg := &config.Config{}
	cfg.Payment = config.PaymentConfig{
		Provider:    "midtrans",
		ServerKey:   "SB-Mid-server-test",
		Environment: "sandbox",
		Currency:    "IDR",
		FrontendURL: "https://shop.test",
	}

	j, err := middleware.NewJWT("test-secret", time.Hour)
	require.NoError(t, err)
	authz, err := middleware.NewAuthorizer()
	require.NoError(t, err)
	provider, err := midtrans.NewProvider(cfg.Payment)
	require.NoError(t, err)

	s := &server{
		cfg:        cfg,
		jwt:        j,
		authz:      authz,
		auth:       services.NewAuthService(nil, nil, services.NewLocalValidator(), ""),
		users:      services.NewUserService(nil),
		categories: services.NewCategoryService(nil, nil),
		products:   services.NewProductService(nil, nil, nil),
		carts:      services.NewCartService(nil, nil),
		orders:     services.NewOrderService(nil, nil, nil, nil),
		payments:   services.NewPaymentService(nil, nil, provider, nil, cfg.Payment),
	}
	e := echo.New()
	s.mount(e)
	return e
}

func do(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err     error
		code    int
		message string
	}{
		{&services.AppError{Kind: services.KindValidation, Message: "quantity must be at least 1"}, 400, "quantity must be at least 1"},
		{&services.AppError{Kind: services.KindBusinessRule, Message: "cart is empty"}, 400, "cart is empty"},
		{&services.AppError{Kind: services.KindNotFound, Message: "no product found with that ID"}, 404, "no product found with that ID"},
		{&services.AppError{Kind: services.KindForbidden, Message: "not your order"}, 403, "not your order"},
		{&services.AppError{Kind: services.KindUnauthorized, Message: "incorrect email or password"}, 401, "incorrect email or password"},
		{&services.AppError{Kind: services.KindUpstream, Message: "payment initialization failed", Err: errors.New("dial tcp: refused")}, 500, "payment initialization failed"},
		{&services.AppError{Kind: services.KindInternal, Message: "boom"}, 500, genericMessage},
		{fmt.Errorf("query orders: %w", errors.New("connection reset")), 500, genericMessage},
		{echo.NewHTTPError(http.StatusBadRequest, "invalid id"), 400, "invalid id"},
		{echo.NewHTTPError(http.StatusBadGateway, "secret detail"), 502, genericMessage},
		{fmt.Errorf("%w: not an image", storage.ErrInvalidUpload), 400, "invalid upload: not an image"},
	}
	for _, tc := range cases {
		code, msg := statusFor(tc.err)
		assert.Equal(t, tc.code, code, tc.err.Error())
		assert.Equal(t, tc.message, msg, tc.err.Error())
	}
}

func TestErrorEnvelope(t *testing.T) {
	e := newTestServer(t)

	rec := do(e, http.MethodGet, "/api/products?sort=password", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeEnvelope(t, rec)
	assert.Equal(t, "fail", body["status"])
	assert.Contains(t, body["message"], "cannot sort by")

	rec = do(e, http.MethodGet, "/api/products/search?q=%20", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "please provide a search query", decodeEnvelope(t, rec)["message"])

	rec = do(e, http.MethodGet, "/api/categories/abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid id", decodeEnvelope(t, rec)["message"])

	rec = do(e, http.MethodGet, "/api/nowhere", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "fail", decodeEnvelope(t, rec)["status"])
}

func TestProtectedRoutesRequireLogin(t *testing.T) {
	e := newTestServer(t)
	routes := []struct{ method, path string }{
		{http.MethodGet, "/api/users/me"},
		{http.MethodGet, "/api/users"},
		{http.MethodGet, "/api/cart"},
		{http.MethodPost, "/api/cart/add"},
		{http.MethodPost, "/api/orders"},
		{http.MethodGet, "/api/orders"},
		{http.MethodGet, "/api/orders/feed"},
		{http.MethodPost, "/api/products"},
		{http.MethodGet, "/api/products/export"},
		{http.MethodDelete, "/api/categories/1"},
		{http.MethodPost, "/api/payments/initialize"},
		{http.MethodGet, "/api/payments/verify?reference=x"},
		{http.MethodPost, "/api/payments/1/refund"},
	}
	for _, r := range routes {
		rec := do(e, r.method, r.path, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "%s %s", r.method, r.path)
	}
}

func TestWebhookAlwaysAcknowledges(t *testing.T) {
	e := newTestServer(t)

	forged := `{"order_id":"ref-1","status_code":"200","gross_amount":"51000.00",` +
		`"transaction_status":"settlement","signature_key":"forged"}`
	for _, body := range []string{forged, "not json", ""} {
		rec := do(e, http.MethodPost, "/api/payments/webhook", body)
		assert.Equal(t, http.StatusOK, rec.Code, body)
		assert.Equal(t, true, decodeEnvelope(t, rec)["received"])
	}
}

func TestLogoutOverwritesCookie(t *testing.T) {
	e := newTestServer(t)
	rec := do(e, http.MethodPost, "/api/users/logout", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, middleware.CookieName, cookies[0].Name)
	assert.Equal(t, "loggedout", cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
}

func TestProductInputFromMultipart(t *testing.T) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("name", "Desk Lamp"))
	require.NoError(t, w.WriteField("category", "3"))
	require.NoError(t, w.WriteField("price", "49.5"))
	require.NoError(t, w.WriteField("stockquantity", "12"))
	require.NoError(t, w.WriteField("specs", "LED"))
	require.NoError(t, w.WriteField("specs", "USB-C"))
	require.NoError(t, w.WriteField("variants", `[{"color":"black","sku":"LAMP-B"}]`))
	part, err := w.CreateFormFile("images", "lamp.png")
	require.NoError(t, err)
	_, err = part.Write([]byte("\x89PNG\r\n\x1a\n"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/products", &buf)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	c := echo.New().NewContext(req, httptest.NewRecorder())

	in, files, err := productInput(c)
	require.NoError(t, err)
	assert.Equal(t, "Desk Lamp", *in.Name)
	assert.Equal(t, int64(3), *in.CategoryID)
	assert.Equal(t, 49.5, *in.Price)
	assert.Nil(t, in.DiscountPrice)
	assert.Equal(t, 12, *in.StockQuantity)
	assert.Equal(t, []string{"LED", "USB-C"}, *in.Specs)
	require.Len(t, *in.Variants, 1)
	assert.Equal(t, "LAMP-B", (*in.Variants)[0].SKU)
	require.Len(t, files, 1)
	assert.Equal(t, "lamp.png", files[0].Filename)
}

func TestProductInputRejectsBadNumbers(t *testing.T) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("price", "cheap"))
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/products", &buf)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	c := echo.New().NewContext(req, httptest.NewRecorder())

	_, _, err := productInput(c)
	var he *echo.HTTPError
	require.True(t, errors.As(err, &he))
	assert.Equal(t, http.StatusBadRequest, he.Code)
}

func TestSpecList(t *testing.T) {
	cases := map[string]struct {
		in   []string
		want []string
	}{
		"repeated":    {[]string{"LED", " USB-C "}, []string{"LED", "USB-C"}},
		"json array":  {[]string{`["LED","USB-C"]`}, []string{"LED", "USB-C"}},
		"comma list":  {[]string{"LED, USB-C,,"}, []string{"LED", "USB-C"}},
		"single item": {[]string{"LED"}, []string{"LED"}},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, specList(tc.in))
		})
	}
}

func TestSuccessEnvelopesNameTheirData(t *testing.T) {
	e := echo.New()
	serve := func(h func(c echo.Context) error) map[string]interface{} {
		rec := httptest.NewRecorder()
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
		require.NoError(t, h(c))
		return decodeEnvelope(t, rec)
	}

	out := serve(func(c echo.Context) error {
		return successList(c, "orders", []int{1, 2})
	})
	assert.Equal(t, "success", out["status"])
	assert.EqualValues(t, 2, out["results"])
	data, ok := out["data"].(map[string]interface{})
	require.True(t, ok, "data must be an object")
	assert.Equal(t, []interface{}{float64(1), float64(2)}, data["orders"])

	out = serve(func(c echo.Context) error {
		return successList[int](c, "products", nil)
	})
	assert.EqualValues(t, 0, out["results"])
	assert.Equal(t, map[string]interface{}{"products": []interface{}{}}, out["data"])

	out = serve(func(c echo.Context) error {
		return success(c, http.StatusOK, "product", echo.Map{"name": "Mug"})
	})
	assert.Equal(t, map[string]interface{}{"product": map[string]interface{}{"name": "Mug"}}, out["data"])
}

func TestStatusRequestAcceptsBothFieldNames(t *testing.T) {
	e := echo.New()
	cases := map[string]struct {
		body string
		want string
	}{
		"orderStatus": {`{"orderStatus":"shipped"}`, "shipped"},
		"status":      {`{"status":"delivered"}`, "delivered"},
		"both":        {`{"orderStatus":"shipped","status":"cancelled"}`, "shipped"},
		"neither":     {`{}`, ""},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPatch, "/", strings.NewReader(tc.body))
			req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
			c := e.NewContext(req, httptest.NewRecorder())
			var r statusRequest
			require.NoError(t, bind(c, &r))
			assert.Equal(t, tc.want, r.value())
		})
	}
}
