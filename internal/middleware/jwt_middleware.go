package middleware

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"StoreProAPI/internal/model"
	"StoreProAPI/internal/services"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

const (
	CookieName = "jwt"
	userKey    = "auth_user"
	issuer     = "storepro-api"
)

// Claims defines JWT payload structure
type Claims struct {
	UserID int64 `json:"id"`
	jwt.RegisteredClaims
}

// JWT signs and checks HS256 session tokens.
type JWT struct {
	secret []byte
	ttl    time.Duration
}

func NewJWT(secret string, ttl time.Duration) (*JWT, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is empty")
	}
	if ttl <= 0 {
		return nil, errors.New("jwt ttl must be positive")
	}
	return &JWT{secret: []byte(secret), ttl: ttl}, nil
}

func (j *JWT) TTL() time.Duration { return j.ttl }

// Generate creates a signed token for the given user.
func (j *JWT) Generate(userID int64, now time.Time) (string, error) {
	claims := &Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    issuer,
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(j.secret)
}

func (j *JWT) Parse(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return j.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(issuer))
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.IssuedAt == nil {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

// Authenticator resolves the user behind a verified token.
type Authenticator interface {
	Authenticate(ctx context.Context, userID int64, issuedAt time.Time) (*model.User, error)
}

// Protect requires a valid token from the Authorization header or the jwt
// cookie and stores the user on the context.
func Protect(j *JWT, auth Authenticator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			tokenString := tokenFrom(c)
			if tokenString == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "you are not logged in, please log in to get access")
			}
			claims, err := j.Parse(tokenString)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token, please log in again")
			}
			u, err := auth.Authenticate(c.Request().Context(), claims.UserID, claims.IssuedAt.Time)
			if err != nil {
				if services.KindOf(err) == services.KindUnauthorized {
					return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
				}
				return err
			}
			c.Set(userKey, u)
			return next(c)
		}
	}
}

func tokenFrom(c echo.Context) string {
	if auth := c.Request().Header.Get("Authorization"); auth != "" {
		parts := strings.Fields(auth)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return parts[1]
		}
		return ""
	}
	if ck, err := c.Cookie(CookieName); err == nil && ck.Value != "loggedout" {
		return ck.Value
	}
	return ""
}

// CurrentUser returns the user stored by Protect, or nil.
func CurrentUser(c echo.Context) *model.User {
	if u, ok := c.Get(userKey).(*model.User); ok {
		return u
	}
	return nil
}
