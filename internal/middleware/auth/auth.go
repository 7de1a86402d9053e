package auth

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/marketconnect/marketconnect/internal/models"
	"github.com/marketconnect/marketconnect/internal/tokens"
)

const (
	CtxUserID = "user_id"
	CtxEmail  = "email"
	CtxRole   = "role"
)

// Middleware verifies the Authorization: Bearer header and puts the subject
// id, email and role into the request context.
func Middleware(secret []byte) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			if header == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing access token")
			}
			tokenStr, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || tokenStr == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "malformed authorization header")
			}
			claims, err := tokens.AccessClaimsFromToken(tokenStr, secret)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
			}
			userID, err := claims.UserID()
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "token has no subject")
			}

			c.Set(CtxUserID, userID)
			c.Set(CtxEmail, claims.Email)
			c.Set(CtxRole, claims.Role)

			return next(c)
		}
	}
}

func RequireRole(required models.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, ok := c.Get(CtxRole).(models.Role)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid or missing role")
			}
			switch role {
			case required:
				return next(c)
			case models.RoleVendor, models.RoleCustomer:
				return echo.NewHTTPError(http.StatusForbidden, "you don't have enough rights to see this page")
			}
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid or missing role")
		}
	}
}

// UserID pulls the authenticated subject id out of the context. Handlers
// behind Middleware can rely on it being present.
func UserID(c echo.Context) (uint, error) {
	id, ok := c.Get(CtxUserID).(uint)
	if !ok {
		return 0, echo.NewHTTPError(http.StatusUnauthorized, "missing access token")
	}
	return id, nil
}
