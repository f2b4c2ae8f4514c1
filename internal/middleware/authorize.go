package middleware

import (
	"fmt"
	"net/http"

	"StoreProAPI/internal/model"

	"github.com/casbin/casbin/v2"
	casbinmodel "github.com/casbin/casbin/v2/model"
	"github.com/labstack/echo/v4"
)

const rbacModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && r.obj == p.obj && (p.act == "*" || r.act == p.act)
`

// Resources and actions checked by Require.
const (
	ResCart       = "cart"
	ResOrders     = "orders"
	ResPayments   = "payments"
	ResProfile    = "profile"
	ResProducts   = "products"
	ResCategories = "categories"
	ResUsers      = "users"

	ActRead   = "read"
	ActCreate = "create"
	ActCancel = "cancel"
	ActWrite  = "write"
	ActManage = "manage"
)

// admins inherit every customer permission through the grouping rule.
var rolePolicies = [][]string{
	{model.RoleCustomer, ResCart, "*"},
	{model.RoleCustomer, ResProfile, "*"},
	{model.RoleCustomer, ResOrders, ActCreate},
	{model.RoleCustomer, ResOrders, ActRead},
	{model.RoleCustomer, ResOrders, ActCancel},
	{model.RoleCustomer, ResPayments, ActCreate},
	{model.RoleCustomer, ResPayments, ActRead},

	{model.RoleAdmin, ResProducts, ActWrite},
	{model.RoleAdmin, ResCategories, ActWrite},
	{model.RoleAdmin, ResUsers, ActManage},
	{model.RoleAdmin, ResOrders, ActManage},
	{model.RoleAdmin, ResPayments, ActManage},
}

// Authorizer is a casbin RBAC gate keyed on the user's role.
type Authorizer struct {
	enforcer *casbin.Enforcer
}

func NewAuthorizer() (*Authorizer, error) {
	m, err := casbinmodel.NewModelFromString(rbacModel)
	if err != nil {
		return nil, fmt.Errorf("failed to load rbac model: %w", err)
	}
	e, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize rbac enforcer: %w", err)
	}
	if _, err := e.AddPolicies(rolePolicies); err != nil {
		return nil, fmt.Errorf("failed to load rbac policies: %w", err)
	}
	if _, err := e.AddGroupingPolicy(model.RoleAdmin, model.RoleCustomer); err != nil {
		return nil, fmt.Errorf("failed to load rbac roles: %w", err)
	}
	return &Authorizer{enforcer: e}, nil
}

func (a *Authorizer) Allowed(role, resource, action string) (bool, error) {
	ok, err := a.enforcer.Enforce(role, resource, action)
	if err != nil {
		return false, fmt.Errorf("rbac permission check failed: %w", err)
	}
	return ok, nil
}

// Require must run after Protect.
func (a *Authorizer) Require(resource, action string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			u := CurrentUser(c)
			if u == nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "you are not logged in, please log in to get access")
			}
			ok, err := a.Allowed(u.Role, resource, action)
			if err != nil {
				return err
			}
			if !ok {
				return echo.NewHTTPError(http.StatusForbidden, "you do not have permission to perform this action")
			}
			return next(c)
		}
	}
}
